package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/rankriot/rankriot/internal/common"
	"github.com/rankriot/rankriot/internal/interfaces"
)

// Manager aggregates the Postgres-backed stores behind one connection pool
type Manager struct {
	db       *sql.DB
	logger   arbor.ILogger
	projects *ProjectStore
	scans    *ScanStore
	pages    *PageStore
	links    *LinkStore
	issues   *IssueStore
}

// NewManager connects to Postgres, applies the schema, and wires the stores
func NewManager(ctx context.Context, cfg common.DatabaseConfig, logger arbor.ILogger) (*Manager, error) {
	db, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info().Int("max_open_conns", cfg.MaxOpenConns).Msg("Connected to Postgres")
	return NewManagerWithDB(db, logger), nil
}

// NewManagerWithDB wires the stores over an existing pool. Used by tests
// with a mock connection.
func NewManagerWithDB(db *sql.DB, logger arbor.ILogger) *Manager {
	return &Manager{
		db:       db,
		logger:   logger,
		projects: &ProjectStore{db: db},
		scans:    &ScanStore{db: db},
		pages:    &PageStore{db: db},
		links:    &LinkStore{db: db},
		issues:   &IssueStore{db: db},
	}
}

func (m *Manager) ProjectStorage() interfaces.ProjectStorage { return m.projects }
func (m *Manager) ScanStorage() interfaces.ScanStorage       { return m.scans }
func (m *Manager) PageStorage() interfaces.PageStorage       { return m.pages }
func (m *Manager) LinkStorage() interfaces.LinkStorage       { return m.links }
func (m *Manager) IssueStorage() interfaces.IssueStorage     { return m.issues }

func (m *Manager) Ping(ctx context.Context) error {
	return m.db.PingContext(ctx)
}

func (m *Manager) Close() error {
	return m.db.Close()
}

// marshalJSON encodes a value for a JSONB column; nil maps and slices
// become SQL NULL
func marshalJSON(v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal json column: %w", err)
	}
	return data, nil
}

// unmarshalJSON decodes a JSONB column into out, tolerating NULL
func unmarshalJSON(data []byte, out interface{}) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}
