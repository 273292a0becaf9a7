package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rankriot/rankriot/internal/models"
)

const robotsFetchTimeout = 5 * time.Second

// RobotsPolicy wraps a parsed robots.txt with lookup helpers. A nil or
// empty policy allows everything.
type RobotsPolicy struct {
	parsed    *models.RobotsPolicy
	userAgent string
}

// NewRobotsPolicy builds a lookup policy for the given crawler user agent.
// parsed may be nil, which yields an open policy.
func NewRobotsPolicy(parsed *models.RobotsPolicy, userAgent string) *RobotsPolicy {
	return &RobotsPolicy{parsed: parsed, userAgent: userAgent}
}

// Parsed returns the underlying document, nil for an open policy
func (p *RobotsPolicy) Parsed() *models.RobotsPolicy {
	if p == nil {
		return nil
	}
	return p.parsed
}

// Sitemaps returns the sitemap URLs declared by robots.txt
func (p *RobotsPolicy) Sitemaps() []string {
	if p == nil || p.parsed == nil {
		return nil
	}
	return p.parsed.Sitemaps
}

// IsAllowed applies the matched agent group's rules to the URL path.
// Longest-prefix match wins; allow beats disallow at equal length.
func (p *RobotsPolicy) IsAllowed(rawURL string) bool {
	if p == nil || p.parsed == nil {
		return true
	}

	rules := p.matchAgent()
	if rules == nil {
		return true
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	path := parsed.Path
	if path == "" {
		path = "/"
	}
	if parsed.RawQuery != "" {
		path += "?" + parsed.RawQuery
	}

	allowLen := longestPrefix(rules.Allow, path)
	disallowLen := longestPrefix(rules.Disallow, path)

	if disallowLen < 0 {
		return true
	}
	// Allow wins ties
	return allowLen >= disallowLen
}

// CrawlDelay returns the matched agent's crawl delay, or the fallback
func (p *RobotsPolicy) CrawlDelay(fallback time.Duration) time.Duration {
	if p == nil || p.parsed == nil {
		return fallback
	}
	rules := p.matchAgent()
	if rules == nil || rules.CrawlDelay == nil {
		return fallback
	}
	return time.Duration(*rules.CrawlDelay * float64(time.Second))
}

// matchAgent finds the rules group for the crawler's agent, falling back
// to the wildcard group
func (p *RobotsPolicy) matchAgent() *models.AgentRules {
	agent := strings.ToLower(p.userAgent)

	var wildcard *models.AgentRules
	for i := range p.parsed.UserAgents {
		group := &p.parsed.UserAgents[i]
		name := strings.ToLower(group.Name)
		if name == "*" {
			if wildcard == nil {
				wildcard = group
			}
			continue
		}
		if strings.Contains(agent, name) {
			return group
		}
	}
	return wildcard
}

// longestPrefix returns the length of the longest rule prefix matching
// path, or -1 when no rule matches. Empty rules never match.
func longestPrefix(rules []string, path string) int {
	longest := -1
	for _, rule := range rules {
		if rule == "" {
			continue
		}
		if strings.HasPrefix(path, rule) && len(rule) > longest {
			longest = len(rule)
		}
	}
	return longest
}

// FetchRobots downloads and parses robots.txt for the seed's host. Any
// fetch or parse failure yields an open policy and a non-nil error so the
// caller can log it; the scan proceeds either way.
func FetchRobots(ctx context.Context, client *http.Client, seedURL, userAgent string) (*RobotsPolicy, error) {
	parsed, err := url.Parse(seedURL)
	if err != nil {
		return NewRobotsPolicy(nil, userAgent), fmt.Errorf("invalid seed URL: %w", err)
	}

	robotsURL := fmt.Sprintf("%s://%s/robots.txt", parsed.Scheme, parsed.Host)

	reqCtx, cancel := context.WithTimeout(ctx, robotsFetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return NewRobotsPolicy(nil, userAgent), fmt.Errorf("build robots request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return NewRobotsPolicy(nil, userAgent), fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return NewRobotsPolicy(nil, userAgent), fmt.Errorf("robots.txt returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return NewRobotsPolicy(nil, userAgent), fmt.Errorf("read robots.txt: %w", err)
	}

	doc := ParseRobots(string(body))
	return NewRobotsPolicy(doc, userAgent), nil
}

// ParseRobots parses robots.txt content into per-agent rule groups and
// sitemap declarations. Unknown directives are ignored.
func ParseRobots(content string) *models.RobotsPolicy {
	doc := &models.RobotsPolicy{}

	// Consecutive User-agent lines share the directives that follow them
	var pending []*models.AgentRules
	lastWasAgent := false

	flush := func() {
		for _, group := range pending {
			doc.UserAgents = append(doc.UserAgents, *group)
		}
		pending = nil
	}

	for _, line := range strings.Split(content, "\n") {
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		idx := strings.Index(line, ":")
		if idx < 0 {
			continue
		}
		directive := strings.ToLower(strings.TrimSpace(line[:idx]))
		value := strings.TrimSpace(line[idx+1:])

		switch directive {
		case "user-agent":
			if !lastWasAgent {
				flush()
			}
			pending = append(pending, &models.AgentRules{Name: value})
			lastWasAgent = true
			continue
		case "disallow":
			for _, group := range pending {
				group.Disallow = append(group.Disallow, value)
			}
		case "allow":
			for _, group := range pending {
				group.Allow = append(group.Allow, value)
			}
		case "crawl-delay":
			if delay, err := strconv.ParseFloat(value, 64); err == nil && delay >= 0 {
				for _, group := range pending {
					d := delay
					group.CrawlDelay = &d
				}
			}
		case "sitemap":
			if value != "" {
				doc.Sitemaps = append(doc.Sitemaps, value)
			}
		}
		lastWasAgent = false
	}
	flush()

	return doc
}
