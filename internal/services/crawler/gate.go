package crawler

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// HostGate enforces a per-host minimum delay between requests. Workers
// serialize on the host, not globally.
type HostGate struct {
	limiters     map[string]*rate.Limiter
	delays       map[string]time.Duration
	mu           sync.Mutex
	defaultDelay time.Duration
}

// NewHostGate creates a gate with the configured default per-host delay
func NewHostGate(defaultDelay time.Duration) *HostGate {
	return &HostGate{
		limiters:     make(map[string]*rate.Limiter),
		delays:       make(map[string]time.Duration),
		defaultDelay: defaultDelay,
	}
}

// SetDelay overrides the delay for one host (robots crawl-delay)
func (g *HostGate) SetDelay(host string, delay time.Duration) {
	host = strings.ToLower(host)
	g.mu.Lock()
	defer g.mu.Unlock()
	g.delays[host] = delay
	if limiter, ok := g.limiters[host]; ok {
		limiter.SetLimit(limitForDelay(delay))
	}
}

// Delay returns the effective delay for a host
func (g *HostGate) Delay(host string) time.Duration {
	host = strings.ToLower(host)
	g.mu.Lock()
	defer g.mu.Unlock()
	if d, ok := g.delays[host]; ok {
		return d
	}
	return g.defaultDelay
}

// Wait blocks until the host's rate limit admits another request, or the
// context is cancelled
func (g *HostGate) Wait(ctx context.Context, rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return nil
	}
	host := strings.ToLower(parsed.Host)

	g.mu.Lock()
	limiter, ok := g.limiters[host]
	if !ok {
		delay := g.defaultDelay
		if d, exists := g.delays[host]; exists {
			delay = d
		}
		limiter = rate.NewLimiter(limitForDelay(delay), 1)
		g.limiters[host] = limiter
	}
	g.mu.Unlock()

	return limiter.Wait(ctx)
}

func limitForDelay(delay time.Duration) rate.Limit {
	if delay <= 0 {
		return rate.Inf
	}
	return rate.Every(delay)
}
