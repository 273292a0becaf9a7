package models

// AgentRules holds the robots.txt directives for a single user-agent group
type AgentRules struct {
	Name       string   `json:"name"`
	Disallow   []string `json:"disallow"`
	Allow      []string `json:"allow"`
	CrawlDelay *float64 `json:"crawl_delay,omitempty"` // Seconds
}

// RobotsPolicy is a parsed robots.txt document
type RobotsPolicy struct {
	UserAgents []AgentRules `json:"user_agents"`
	Sitemaps   []string     `json:"sitemaps"`
}
