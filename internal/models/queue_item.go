package models

import "time"

// QueueItem is an ephemeral crawl work item
type QueueItem struct {
	URL      string    `json:"url"`
	Depth    int       `json:"depth"`
	Priority int       `json:"priority"` // 0..100, higher pops first
	Referrer string    `json:"referrer,omitempty"`
	AddedAt  time.Time `json:"added_at"`
}

// PriorityForDepth computes the default priority for a discovered link:
// seed=100, depth d -> max(0, 100-10*d)
func PriorityForDepth(depth int) int {
	p := 100 - 10*depth
	if p < 0 {
		return 0
	}
	return p
}
