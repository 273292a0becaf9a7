package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/rankriot/rankriot/internal/models"
)

const (
	maxBodyBytes = 10 * 1024 * 1024
	maxRedirects = 5
)

// Fetcher downloads pages over plain HTTP and extracts their SEO signals.
// Pages that look JavaScript-heavy are flagged for headless escalation by
// the coordinator.
type Fetcher struct {
	client    *http.Client
	userAgent string
	logger    arbor.ILogger
}

// NewFetcher creates an HTTP fetcher. The client should follow redirects;
// the redirect chain's final URL is recorded on the result.
func NewFetcher(timeout time.Duration, userAgent string, logger arbor.ILogger) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		userAgent: userAgent,
		logger:    logger,
	}
}

// Client exposes the underlying HTTP client for sharing with the robots
// and sitemap fetchers
func (f *Fetcher) Client() *http.Client {
	return f.client
}

// Fetch downloads one URL and extracts its content. Network failures are
// reported on the result's FetchError rather than the error return, so the
// coordinator can record the page as errored and keep crawling.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) *PageResult {
	result := &PageResult{URL: pageURL, FinalURL: pageURL}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		result.FetchError = fmt.Errorf("build request: %w", err)
		return result
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	start := time.Now()
	var firstByte time.Duration

	resp, err := f.client.Do(req)
	if err != nil {
		result.FetchError = fmt.Errorf("fetch %s: %w", pageURL, err)
		return result
	}
	defer resp.Body.Close()
	firstByte = time.Since(start)

	result.HTTPStatus = resp.StatusCode
	result.ContentType = resp.Header.Get("Content-Type")
	if resp.ContentLength >= 0 {
		length := resp.ContentLength
		result.ContentLength = &length
	}
	if resp.Request != nil && resp.Request.URL != nil {
		result.FinalURL = resp.Request.URL.String()
		if result.FinalURL != pageURL {
			result.RedirectURL = result.FinalURL
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	elapsed := time.Since(start)
	result.LoadTimeMs = int(elapsed.Milliseconds())
	result.FirstByteMs = int(firstByte.Milliseconds())
	if err != nil {
		result.FetchError = fmt.Errorf("read body: %w", err)
		return result
	}

	size := int64(len(body))
	result.SizeBytes = &size

	if !result.IsHTML() {
		return result
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		result.FetchError = fmt.Errorf("parse html: %w", err)
		return result
	}

	f.extract(doc, result)
	return result
}

// ExtractFromHTML runs the signal extraction over already-rendered HTML,
// used after a headless fetch. The rendered DOM replaces the HTTP
// extraction entirely; sizes are unknown on this path.
func (f *Fetcher) ExtractFromHTML(html string, result *PageResult) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return fmt.Errorf("parse rendered html: %w", err)
	}
	result.Links = nil
	result.SizeBytes = nil
	result.ContentLength = nil
	f.extract(doc, result)
	return nil
}

// NeedsHeadless reports whether the page should be refetched with the
// headless browser
func (r *PageResult) NeedsHeadless() bool {
	return r.IsHTML() && r.JSCount > jsEscalationThreshold
}

func (f *Fetcher) extract(doc *goquery.Document, result *PageResult) {
	result.Title = strings.TrimSpace(doc.Find("title").First().Text())

	if desc, exists := doc.Find("meta[name='description']").First().Attr("content"); exists {
		result.MetaDesc = strings.TrimSpace(desc)
	}

	result.H1s = headingTexts(doc, "h1")
	result.H2s = headingTexts(doc, "h2")
	result.H3s = headingTexts(doc, "h3")

	if href, exists := doc.Find("link[rel='canonical']").First().Attr("href"); exists {
		result.CanonicalURL = strings.TrimSpace(href)
	}

	if content, exists := doc.Find("meta[name='robots']").First().Attr("content"); exists {
		lowered := strings.ToLower(content)
		result.HasNoindex = strings.Contains(lowered, "noindex")
		result.HasNofollow = strings.Contains(lowered, "nofollow")
	}

	result.OpenGraph = metaProperties(doc, "meta[property^='og:']", "property", "og:")
	result.TwitterCard = metaProperties(doc, "meta[name^='twitter:']", "name", "twitter:")
	result.StructuredData = structuredData(doc)

	result.ImageCount = doc.Find("img").Length()
	result.JSCount = doc.Find("script").Length()
	result.CSSCount = doc.Find("link[rel='stylesheet']").Length()

	pageNofollow := result.HasNofollow
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") ||
			strings.HasPrefix(href, "tel:") {
			return
		}

		canonical, ok := Canonicalize(href, result.FinalURL)

		rel, _ := sel.Attr("rel")
		followed := !pageNofollow && !strings.Contains(strings.ToLower(rel), "nofollow")

		linkType := models.LinkTypeExternal
		if ok && SameSite(canonical, result.FinalURL) {
			linkType = models.LinkTypeInternal
		}

		result.Links = append(result.Links, LinkResult{
			RawURL:       href,
			CanonicalURL: canonical,
			Type:         linkType,
			AnchorText:   strings.TrimSpace(sel.Text()),
			IsFollowed:   followed,
			Valid:        ok,
		})
	})

	resourceRefs := []struct {
		selector string
		attr     string
	}{
		{"link[href]", "href"},
		{"script[src]", "src"},
		{"img[src]", "src"},
	}
	for _, ref := range resourceRefs {
		attr := ref.attr
		doc.Find(ref.selector).Each(func(_ int, sel *goquery.Selection) {
			src, _ := sel.Attr(attr)
			src = strings.TrimSpace(src)
			if src == "" || strings.HasPrefix(src, "data:") {
				return
			}
			canonical, ok := Canonicalize(src, result.FinalURL)
			result.Links = append(result.Links, LinkResult{
				RawURL:       src,
				CanonicalURL: canonical,
				Type:         models.LinkTypeResource,
				IsFollowed:   true,
				Valid:        ok,
			})
		})
	}
}

func headingTexts(doc *goquery.Document, tag string) []string {
	var texts []string
	doc.Find(tag).Each(func(_ int, sel *goquery.Selection) {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			texts = append(texts, text)
		}
	})
	return texts
}

// metaProperties collects meta tags matching selector into a map keyed
// without the og:/twitter: namespace prefix
func metaProperties(doc *goquery.Document, selector, attr, prefix string) map[string]string {
	props := make(map[string]string)
	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		name, _ := sel.Attr(attr)
		content, _ := sel.Attr("content")
		key := strings.TrimPrefix(name, prefix)
		if key != "" && content != "" {
			props[key] = content
		}
	})
	if len(props) == 0 {
		return nil
	}
	return props
}

func structuredData(doc *goquery.Document) []map[string]interface{} {
	var blocks []map[string]interface{}
	doc.Find("script[type='application/ld+json']").Each(func(_ int, sel *goquery.Selection) {
		raw := strings.TrimSpace(sel.Text())
		if raw == "" {
			return
		}
		var obj map[string]interface{}
		if err := json.Unmarshal([]byte(raw), &obj); err == nil {
			blocks = append(blocks, obj)
			return
		}
		// Some sites wrap multiple entities in a top-level array
		var list []map[string]interface{}
		if err := json.Unmarshal([]byte(raw), &list); err == nil {
			blocks = append(blocks, list...)
		}
	})
	return blocks
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
