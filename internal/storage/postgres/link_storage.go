package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rankriot/rankriot/internal/models"
)

// LinkStore persists the link graph
type LinkStore struct {
	db *sql.DB
}

// UpsertLinks writes a batch of edges in one transaction. An existing
// (source_page_id, destination_url) edge is refreshed in place.
func (s *LinkStore) UpsertLinks(ctx context.Context, links []*models.PageLink) error {
	if len(links) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin link tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO page_links
			(id, project_id, source_page_id, destination_url, anchor_text, link_type,
			 is_followed, is_broken, http_status, destination_page_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (source_page_id, destination_url) DO UPDATE SET
			anchor_text = EXCLUDED.anchor_text,
			link_type = EXCLUDED.link_type,
			is_followed = EXCLUDED.is_followed,
			is_broken = EXCLUDED.is_broken,
			http_status = EXCLUDED.http_status,
			destination_page_id = EXCLUDED.destination_page_id`)
	if err != nil {
		return fmt.Errorf("prepare link upsert: %w", err)
	}
	defer stmt.Close()

	for _, link := range links {
		var broken sql.NullBool
		if link.IsBroken != nil {
			broken = sql.NullBool{Bool: *link.IsBroken, Valid: true}
		}
		var status sql.NullInt64
		if link.HTTPStatus != nil {
			status = sql.NullInt64{Int64: int64(*link.HTTPStatus), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			link.ID, link.ProjectID, link.SourcePageID, link.DestinationURL,
			link.AnchorText, string(link.LinkType), link.IsFollowed,
			broken, status, link.DestinationPageID, link.CreatedAt); err != nil {
			return fmt.Errorf("upsert link %s: %w", link.DestinationURL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit link tx: %w", err)
	}
	return nil
}
