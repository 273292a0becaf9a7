package models

import "time"

// Page is the canonical latest-known record for a URL within a project
type Page struct {
	ID               string                   `json:"id"`
	ProjectID        string                   `json:"project_id"`
	URL              string                   `json:"url"`
	Title            string                   `json:"title"`
	H1s              []string                 `json:"h1s"`
	H2s              []string                 `json:"h2s"`
	H3s              []string                 `json:"h3s"`
	MetaDescription  string                   `json:"meta_description"`
	CanonicalURL     string                   `json:"canonical_url"`
	HTTPStatus       int                      `json:"http_status"`
	ContentType      string                   `json:"content_type"`
	ContentLength    *int64                   `json:"content_length,omitempty"`
	IsIndexable      bool                     `json:"is_indexable"`
	HasRobotsNoindex bool                     `json:"has_robots_noindex"`
	HasRobotsNofollow bool                    `json:"has_robots_nofollow"`
	RedirectURL      string                   `json:"redirect_url,omitempty"`
	LoadTimeMs       int64                    `json:"load_time_ms"`
	FirstByteTimeMs  int64                    `json:"first_byte_time_ms"`
	SizeBytes        *int64                   `json:"size_bytes,omitempty"`
	ImageCount       int                      `json:"image_count"`
	JSCount          int                      `json:"js_count"`
	CSSCount         int                      `json:"css_count"`
	OpenGraph        map[string]string        `json:"open_graph"`
	TwitterCard      map[string]string        `json:"twitter_card"`
	StructuredData   []map[string]interface{} `json:"structured_data"`
	CreatedAt        time.Time                `json:"created_at"`
	UpdatedAt        time.Time                `json:"updated_at"`
}

// ScanPageSnapshot is a scan-scoped immutable copy of a Page
type ScanPageSnapshot struct {
	ID           string                 `json:"id"`
	ScanID       string                 `json:"scan_id"`
	PageID       string                 `json:"page_id"`
	ProjectID    string                 `json:"project_id"`
	URL          string                 `json:"url"`
	SnapshotData map[string]interface{} `json:"snapshot_data"`
	Issues       []Issue                `json:"issues"`
	CreatedAt    time.Time              `json:"created_at"`
}
