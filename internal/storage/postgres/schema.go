package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS projects (
		id                 TEXT PRIMARY KEY,
		url                TEXT NOT NULL,
		name               TEXT NOT NULL,
		notification_email TEXT NOT NULL DEFAULT '',
		scan_frequency     TEXT NOT NULL DEFAULT 'none',
		settings           JSONB NOT NULL DEFAULT '{}',
		robots_txt_cache   JSONB,
		last_scan_at       TIMESTAMPTZ,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS scans (
		id             TEXT PRIMARY KEY,
		project_id     TEXT NOT NULL REFERENCES projects(id),
		status         TEXT NOT NULL DEFAULT 'queued',
		queue_position INTEGER,
		pages_scanned  INTEGER NOT NULL DEFAULT 0,
		links_scanned  INTEGER NOT NULL DEFAULT 0,
		issues_found   INTEGER NOT NULL DEFAULT 0,
		error          TEXT NOT NULL DEFAULT '',
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		started_at     TIMESTAMPTZ,
		completed_at   TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_scans_project_status ON scans (project_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_scans_status_created ON scans (status, created_at)`,
	`CREATE TABLE IF NOT EXISTS pages (
		id                  TEXT PRIMARY KEY,
		project_id          TEXT NOT NULL REFERENCES projects(id),
		url                 TEXT NOT NULL,
		title               TEXT NOT NULL DEFAULT '',
		h1s                 JSONB NOT NULL DEFAULT '[]',
		h2s                 JSONB NOT NULL DEFAULT '[]',
		h3s                 JSONB NOT NULL DEFAULT '[]',
		meta_description    TEXT NOT NULL DEFAULT '',
		canonical_url       TEXT NOT NULL DEFAULT '',
		http_status         INTEGER NOT NULL DEFAULT 0,
		content_type        TEXT NOT NULL DEFAULT '',
		content_length      BIGINT,
		is_indexable        BOOLEAN NOT NULL DEFAULT false,
		has_robots_noindex  BOOLEAN NOT NULL DEFAULT false,
		has_robots_nofollow BOOLEAN NOT NULL DEFAULT false,
		redirect_url        TEXT NOT NULL DEFAULT '',
		load_time_ms        BIGINT NOT NULL DEFAULT 0,
		first_byte_time_ms  BIGINT NOT NULL DEFAULT 0,
		size_bytes          BIGINT,
		image_count         INTEGER NOT NULL DEFAULT 0,
		js_count            INTEGER NOT NULL DEFAULT 0,
		css_count           INTEGER NOT NULL DEFAULT 0,
		open_graph          JSONB,
		twitter_card        JSONB,
		structured_data     JSONB,
		created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (project_id, url)
	)`,
	`CREATE TABLE IF NOT EXISTS scan_page_snapshots (
		id            TEXT PRIMARY KEY,
		scan_id       TEXT NOT NULL REFERENCES scans(id),
		page_id       TEXT NOT NULL REFERENCES pages(id),
		project_id    TEXT NOT NULL REFERENCES projects(id),
		url           TEXT NOT NULL,
		snapshot_data JSONB NOT NULL DEFAULT '{}',
		issues        JSONB NOT NULL DEFAULT '[]',
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_snapshots_scan ON scan_page_snapshots (scan_id)`,
	`CREATE TABLE IF NOT EXISTS page_links (
		id                  TEXT PRIMARY KEY,
		project_id          TEXT NOT NULL REFERENCES projects(id),
		source_page_id      TEXT NOT NULL REFERENCES pages(id),
		destination_url     TEXT NOT NULL,
		anchor_text         TEXT NOT NULL DEFAULT '',
		link_type           TEXT NOT NULL DEFAULT 'internal',
		is_followed         BOOLEAN NOT NULL DEFAULT true,
		is_broken           BOOLEAN,
		http_status         INTEGER,
		destination_page_id TEXT NOT NULL DEFAULT '',
		created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (source_page_id, destination_url)
	)`,
	`CREATE TABLE IF NOT EXISTS issues (
		id          TEXT PRIMARY KEY,
		project_id  TEXT NOT NULL REFERENCES projects(id),
		scan_id     TEXT NOT NULL REFERENCES scans(id),
		page_id     TEXT NOT NULL REFERENCES pages(id),
		issue_type  TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		severity    TEXT NOT NULL DEFAULT 'low',
		is_fixed    BOOLEAN NOT NULL DEFAULT false,
		details     JSONB,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_issues_scan ON issues (scan_id)`,
}

// EnsureSchema creates the tables and indexes if they do not exist
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
