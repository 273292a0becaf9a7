package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAgent = "RankRiot Crawler/1.0 (+https://rankriot.app/bot)"

func TestParseRobots(t *testing.T) {
	content := `
# global rules
User-agent: *
Disallow: /admin
Allow: /admin/public
Crawl-delay: 2

User-agent: BadBot
User-agent: WorseBot
Disallow: /

Sitemap: https://example.com/sitemap.xml
Sitemap: https://example.com/news-sitemap.xml
`
	doc := ParseRobots(content)
	require.Len(t, doc.UserAgents, 3)

	wildcard := doc.UserAgents[0]
	assert.Equal(t, "*", wildcard.Name)
	assert.Equal(t, []string{"/admin"}, wildcard.Disallow)
	assert.Equal(t, []string{"/admin/public"}, wildcard.Allow)
	require.NotNil(t, wildcard.CrawlDelay)
	assert.Equal(t, 2.0, *wildcard.CrawlDelay)

	// Consecutive User-agent lines share one rule group
	assert.Equal(t, "BadBot", doc.UserAgents[1].Name)
	assert.Equal(t, "WorseBot", doc.UserAgents[2].Name)
	assert.Equal(t, []string{"/"}, doc.UserAgents[1].Disallow)
	assert.Equal(t, []string{"/"}, doc.UserAgents[2].Disallow)

	assert.Equal(t, []string{
		"https://example.com/sitemap.xml",
		"https://example.com/news-sitemap.xml",
	}, doc.Sitemaps)
}

func TestRobotsIsAllowed(t *testing.T) {
	doc := ParseRobots(`
User-agent: *
Disallow: /private
Allow: /private/docs
Disallow: /tmp
`)
	policy := NewRobotsPolicy(doc, testAgent)

	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"unlisted path allowed", "https://example.com/about", true},
		{"disallowed prefix", "https://example.com/private", false},
		{"disallowed subtree", "https://example.com/private/files", false},
		{"longer allow wins", "https://example.com/private/docs/guide", true},
		{"query included in match", "https://example.com/tmp?x=1", false},
		{"root allowed", "https://example.com/", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.IsAllowed(tt.url))
		})
	}
}

func TestRobotsAllowWinsTies(t *testing.T) {
	doc := ParseRobots(`
User-agent: *
Disallow: /a/b
Allow: /a/b
`)
	policy := NewRobotsPolicy(doc, testAgent)
	assert.True(t, policy.IsAllowed("https://example.com/a/b"))
}

func TestRobotsAgentMatching(t *testing.T) {
	doc := ParseRobots(`
User-agent: rankriot
Disallow: /only-for-us

User-agent: *
Disallow: /for-everyone
`)
	policy := NewRobotsPolicy(doc, testAgent)
	// Specific group matched by substring, wildcard rules do not apply
	assert.False(t, policy.IsAllowed("https://example.com/only-for-us"))
	assert.True(t, policy.IsAllowed("https://example.com/for-everyone"))

	other := NewRobotsPolicy(doc, "SomeOtherBot/2.0")
	assert.True(t, other.IsAllowed("https://example.com/only-for-us"))
	assert.False(t, other.IsAllowed("https://example.com/for-everyone"))
}

func TestRobotsNilPolicyAllowsAll(t *testing.T) {
	policy := NewRobotsPolicy(nil, testAgent)
	assert.True(t, policy.IsAllowed("https://example.com/anything"))
}

func TestRobotsCrawlDelay(t *testing.T) {
	doc := ParseRobots("User-agent: *\nCrawl-delay: 1.5\n")
	policy := NewRobotsPolicy(doc, testAgent)
	assert.Equal(t, 1500, int(policy.CrawlDelay(0).Milliseconds()))

	open := NewRobotsPolicy(nil, testAgent)
	assert.Equal(t, 0, int(open.CrawlDelay(0).Milliseconds()))
}

func TestFetchRobots(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.Write([]byte("User-agent: *\nDisallow: /secret\n"))
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	policy, err := FetchRobots(context.Background(), server.Client(), server.URL+"/", testAgent)
	require.NoError(t, err)
	assert.False(t, policy.IsAllowed(server.URL+"/secret"))
	assert.True(t, policy.IsAllowed(server.URL+"/open"))
}

func TestFetchRobotsMissingYieldsOpenPolicy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	policy, err := FetchRobots(context.Background(), server.Client(), server.URL+"/", testAgent)
	assert.Error(t, err)
	assert.True(t, policy.IsAllowed(server.URL+"/anything"))
}
