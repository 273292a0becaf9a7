package storage

import (
	"context"

	"github.com/ternarybob/arbor"

	"github.com/rankriot/rankriot/internal/common"
	"github.com/rankriot/rankriot/internal/interfaces"
	"github.com/rankriot/rankriot/internal/storage/postgres"
)

// NewStorageManager connects the configured backend. Postgres is the only
// backend today; the indirection keeps callers off the concrete type.
func NewStorageManager(ctx context.Context, cfg common.DatabaseConfig, logger arbor.ILogger) (interfaces.StorageManager, error) {
	return postgres.NewManager(ctx, cfg, logger)
}
