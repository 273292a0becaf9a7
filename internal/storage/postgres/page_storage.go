package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rankriot/rankriot/internal/interfaces"
	"github.com/rankriot/rankriot/internal/models"
)

// PageStore persists pages and their scan-scoped snapshots
type PageStore struct {
	db *sql.DB
}

const pageColumns = `id, project_id, url, title, h1s, h2s, h3s, meta_description, canonical_url,
	http_status, content_type, content_length, is_indexable, has_robots_noindex, has_robots_nofollow,
	redirect_url, load_time_ms, first_byte_time_ms, size_bytes, image_count, js_count, css_count,
	open_graph, twitter_card, structured_data, created_at, updated_at`

func (s *PageStore) FindPage(ctx context.Context, projectID, url string) (*models.Page, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+pageColumns+` FROM pages WHERE project_id = $1 AND url = $2`, projectID, url)
	return scanPage(row)
}

// UpsertPage inserts the page or refreshes the existing row for the same
// (project_id, url)
func (s *PageStore) UpsertPage(ctx context.Context, page *models.Page) error {
	h1s, err := marshalJSON(page.H1s)
	if err != nil {
		return err
	}
	h2s, err := marshalJSON(page.H2s)
	if err != nil {
		return err
	}
	h3s, err := marshalJSON(page.H3s)
	if err != nil {
		return err
	}
	openGraph, err := marshalJSON(page.OpenGraph)
	if err != nil {
		return err
	}
	twitterCard, err := marshalJSON(page.TwitterCard)
	if err != nil {
		return err
	}
	structured, err := marshalJSON(page.StructuredData)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO pages (`+pageColumns+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27)
		 ON CONFLICT (project_id, url) DO UPDATE SET
			title = EXCLUDED.title,
			h1s = EXCLUDED.h1s,
			h2s = EXCLUDED.h2s,
			h3s = EXCLUDED.h3s,
			meta_description = EXCLUDED.meta_description,
			canonical_url = EXCLUDED.canonical_url,
			http_status = EXCLUDED.http_status,
			content_type = EXCLUDED.content_type,
			content_length = EXCLUDED.content_length,
			is_indexable = EXCLUDED.is_indexable,
			has_robots_noindex = EXCLUDED.has_robots_noindex,
			has_robots_nofollow = EXCLUDED.has_robots_nofollow,
			redirect_url = EXCLUDED.redirect_url,
			load_time_ms = EXCLUDED.load_time_ms,
			first_byte_time_ms = EXCLUDED.first_byte_time_ms,
			size_bytes = EXCLUDED.size_bytes,
			image_count = EXCLUDED.image_count,
			js_count = EXCLUDED.js_count,
			css_count = EXCLUDED.css_count,
			open_graph = EXCLUDED.open_graph,
			twitter_card = EXCLUDED.twitter_card,
			structured_data = EXCLUDED.structured_data,
			updated_at = EXCLUDED.updated_at`,
		page.ID, page.ProjectID, page.URL, page.Title, h1s, h2s, h3s,
		page.MetaDescription, page.CanonicalURL, page.HTTPStatus, page.ContentType,
		page.ContentLength, page.IsIndexable, page.HasRobotsNoindex, page.HasRobotsNofollow,
		page.RedirectURL, page.LoadTimeMs, page.FirstByteTimeMs, page.SizeBytes,
		page.ImageCount, page.JSCount, page.CSSCount,
		openGraph, twitterCard, structured, page.CreatedAt, page.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert page: %w", err)
	}
	return nil
}

func (s *PageStore) InsertScanSnapshot(ctx context.Context, snapshot *models.ScanPageSnapshot) error {
	data, err := marshalJSON(snapshot.SnapshotData)
	if err != nil {
		return err
	}
	issues, err := marshalJSON(snapshot.Issues)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO scan_page_snapshots (id, scan_id, page_id, project_id, url, snapshot_data, issues, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		snapshot.ID, snapshot.ScanID, snapshot.PageID, snapshot.ProjectID,
		snapshot.URL, data, issues, snapshot.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert scan snapshot: %w", err)
	}
	return nil
}

func scanPage(row rowScanner) (*models.Page, error) {
	var (
		page          models.Page
		h1s, h2s, h3s []byte
		openGraph     []byte
		twitterCard   []byte
		structured    []byte
	)
	err := row.Scan(
		&page.ID, &page.ProjectID, &page.URL, &page.Title, &h1s, &h2s, &h3s,
		&page.MetaDescription, &page.CanonicalURL, &page.HTTPStatus, &page.ContentType,
		&page.ContentLength, &page.IsIndexable, &page.HasRobotsNoindex, &page.HasRobotsNofollow,
		&page.RedirectURL, &page.LoadTimeMs, &page.FirstByteTimeMs, &page.SizeBytes,
		&page.ImageCount, &page.JSCount, &page.CSSCount,
		&openGraph, &twitterCard, &structured, &page.CreatedAt, &page.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan page row: %w", err)
	}

	for _, decode := range []struct {
		raw []byte
		out interface{}
	}{
		{h1s, &page.H1s},
		{h2s, &page.H2s},
		{h3s, &page.H3s},
		{openGraph, &page.OpenGraph},
		{twitterCard, &page.TwitterCard},
		{structured, &page.StructuredData},
	} {
		if err := unmarshalJSON(decode.raw, decode.out); err != nil {
			return nil, fmt.Errorf("decode page column: %w", err)
		}
	}
	return &page, nil
}
