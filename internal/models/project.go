package models

import "time"

// ScanFrequency controls how often a project is automatically scanned
type ScanFrequency string

const (
	FrequencyDaily   ScanFrequency = "daily"
	FrequencyWeekly  ScanFrequency = "weekly"
	FrequencyMonthly ScanFrequency = "monthly"
	FrequencyNone    ScanFrequency = "none"
)

// ProjectSettings holds per-project crawl overrides
type ProjectSettings struct {
	MaxPages *int `json:"max_pages,omitempty"`
}

// Project is a named target site with a seed URL
type Project struct {
	ID                string          `json:"id"`
	URL               string          `json:"url"`
	Name              string          `json:"name"`
	NotificationEmail string          `json:"notification_email,omitempty"`
	ScanFrequency     ScanFrequency   `json:"scan_frequency"`
	Settings          ProjectSettings `json:"settings"`
	RobotsTxtCache    *RobotsPolicy   `json:"robots_txt_cache,omitempty"`
	LastScanAt        *time.Time      `json:"last_scan_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// EffectiveMaxPages returns the project's page budget, falling back to the default
func (p *Project) EffectiveMaxPages(defaultMax int) int {
	if p.Settings.MaxPages != nil && *p.Settings.MaxPages > 0 {
		return *p.Settings.MaxPages
	}
	return defaultMax
}
