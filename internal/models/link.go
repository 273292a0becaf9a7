package models

import "time"

// LinkType classifies how a link relates to the crawled site
type LinkType string

const (
	LinkTypeInternal LinkType = "internal"
	LinkTypeExternal LinkType = "external"
	LinkTypeResource LinkType = "resource"
)

// PageLink is one edge of the link graph, unique on (source_page_id, destination_url)
type PageLink struct {
	ID                string    `json:"id"`
	ProjectID         string    `json:"project_id"`
	SourcePageID      string    `json:"source_page_id"`
	DestinationURL    string    `json:"destination_url"`
	AnchorText        string    `json:"anchor_text,omitempty"`
	LinkType          LinkType  `json:"link_type"`
	IsFollowed        bool      `json:"is_followed"`
	IsBroken          *bool     `json:"is_broken,omitempty"`
	HTTPStatus        *int      `json:"http_status,omitempty"`
	DestinationPageID string    `json:"destination_page_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}
