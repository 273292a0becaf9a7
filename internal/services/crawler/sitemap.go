package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/ternarybob/arbor"
)

// maxSitemapsToProcess bounds recursion through <sitemapindex> documents
const maxSitemapsToProcess = 5

// wellKnownSitemapPaths are tried on every seed domain in addition to any
// sitemaps declared in robots.txt
var wellKnownSitemapPaths = []string{
	"/sitemap.xml",
	"/sitemap_index.xml",
	"/wp-sitemap.xml",
	"/sitemap1.xml",
}

var locPattern = regexp.MustCompile(`<loc>\s*([^<]+?)\s*</loc>`)

// SitemapReader discovers page URLs from sitemap XML documents
type SitemapReader struct {
	client    *http.Client
	userAgent string
	logger    arbor.ILogger
}

// NewSitemapReader creates a sitemap reader sharing the crawler's HTTP client
func NewSitemapReader(client *http.Client, userAgent string, logger arbor.ILogger) *SitemapReader {
	return &SitemapReader{
		client:    client,
		userAgent: userAgent,
		logger:    logger,
	}
}

// Discover returns page URLs from the seed's well-known sitemap locations
// and any robots-declared sitemap URLs. Fetch errors are swallowed; the
// seed proceeds regardless.
func (r *SitemapReader) Discover(ctx context.Context, seedURL string, declared []string) []string {
	parsed, err := url.Parse(seedURL)
	if err != nil {
		return nil
	}

	candidates := make([]string, 0, len(wellKnownSitemapPaths)+len(declared))
	for _, path := range wellKnownSitemapPaths {
		candidates = append(candidates, fmt.Sprintf("%s://%s%s", parsed.Scheme, parsed.Host, path))
	}
	candidates = append(candidates, declared...)

	processed := 0
	seen := make(map[string]bool)
	var urls []string

	var walk func(sitemapURL string)
	walk = func(sitemapURL string) {
		if processed >= maxSitemapsToProcess || seen[sitemapURL] {
			return
		}
		seen[sitemapURL] = true

		body, err := r.fetch(ctx, sitemapURL)
		if err != nil {
			// Failed candidates do not consume the document budget
			r.logger.Debug().Err(err).Str("sitemap", sitemapURL).Msg("Sitemap fetch skipped")
			return
		}
		processed++

		locs := extractLocs(body)
		if strings.Contains(body, "<sitemapindex") {
			for _, loc := range locs {
				walk(loc)
			}
			return
		}
		urls = append(urls, locs...)
	}

	for _, candidate := range candidates {
		walk(candidate)
	}

	return dedupeStrings(urls)
}

// fetch downloads one sitemap document. Gzipped sitemaps are skipped.
func (r *SitemapReader) fetch(ctx context.Context, sitemapURL string) (string, error) {
	if strings.HasSuffix(strings.ToLower(sitemapURL), ".gz") {
		return "", fmt.Errorf("gzipped sitemap not supported: %s", sitemapURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sitemapURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("sitemap returned status %d", resp.StatusCode)
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if strings.Contains(contentType, "gzip") {
		return "", fmt.Errorf("gzipped sitemap not supported: %s", sitemapURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// extractLocs pulls every <loc> value out of a sitemap document and
// unescapes XML entities
func extractLocs(body string) []string {
	matches := locPattern.FindAllStringSubmatch(body, -1)
	locs := make([]string, 0, len(matches))
	for _, m := range matches {
		locs = append(locs, unescapeXML(m[1]))
	}
	return locs
}

var xmlEntityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
)

func unescapeXML(s string) string {
	return xmlEntityReplacer.Replace(s)
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
