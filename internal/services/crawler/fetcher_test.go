package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rankriot/rankriot/internal/common"
	"github.com/rankriot/rankriot/internal/models"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
<title>Sample Page Title Here</title>
<meta name="description" content="A sample page used to exercise the extraction pipeline with enough text.">
<meta name="robots" content="noindex, nofollow">
<link rel="canonical" href="https://example.com/sample">
<meta property="og:title" content="OG Sample">
<meta property="og:image" content="https://example.com/img.png">
<meta name="twitter:card" content="summary">
<script type="application/ld+json">{"@type":"Article","headline":"Sample"}</script>
<link rel="stylesheet" href="/main.css">
<script src="/a.js"></script>
<script src="/b.js"></script>
</head>
<body>
<h1>Primary Heading</h1>
<h2>Section One</h2>
<h2>Section Two</h2>
<h3>Subsection</h3>
<img src="/one.png"><img src="/two.png">
<a href="/internal">Internal link</a>
<a href="https://other.com/page" rel="nofollow">External link</a>
<a href="#fragment">Skip me</a>
<a href="mailto:x@example.com">Mail</a>
</body>
</html>`

func newTestFetcher() *Fetcher {
	return NewFetcher(5*time.Second, testAgent, common.GetLogger())
}

func TestFetcherExtractsSignals(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(samplePage))
	}))
	defer server.Close()

	result := newTestFetcher().Fetch(context.Background(), server.URL+"/sample")
	require.NoError(t, result.FetchError)

	assert.Equal(t, 200, result.HTTPStatus)
	assert.Equal(t, "Sample Page Title Here", result.Title)
	assert.Contains(t, result.MetaDesc, "sample page")
	assert.Equal(t, []string{"Primary Heading"}, result.H1s)
	assert.Equal(t, []string{"Section One", "Section Two"}, result.H2s)
	assert.Equal(t, []string{"Subsection"}, result.H3s)
	assert.Equal(t, "https://example.com/sample", result.CanonicalURL)
	assert.True(t, result.HasNoindex)
	assert.True(t, result.HasNofollow)
	assert.Equal(t, "OG Sample", result.OpenGraph["title"])
	assert.Equal(t, "https://example.com/img.png", result.OpenGraph["image"])
	assert.Equal(t, "summary", result.TwitterCard["card"])
	require.Len(t, result.StructuredData, 1)
	assert.Equal(t, "Article", result.StructuredData[0]["@type"])
	assert.Equal(t, 2, result.ImageCount)
	// Every script element counts, inline and external alike
	assert.Equal(t, 3, result.JSCount)
	assert.Equal(t, 1, result.CSSCount)
	assert.GreaterOrEqual(t, result.LoadTimeMs, 0)
	require.NotNil(t, result.SizeBytes)
	assert.Positive(t, *result.SizeBytes)
}

func TestFetcherClassifiesLinks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(samplePage))
	}))
	defer server.Close()

	result := newTestFetcher().Fetch(context.Background(), server.URL+"/sample")
	require.NoError(t, result.FetchError)

	anchors := linksOfType(result, models.LinkTypeInternal, models.LinkTypeExternal)
	resources := linksOfType(result, models.LinkTypeResource)

	// Fragment-only, mailto, and javascript hrefs are dropped
	require.Len(t, anchors, 2)

	internal := anchors[0]
	assert.Equal(t, models.LinkTypeInternal, internal.Type)
	assert.Equal(t, "Internal link", internal.AnchorText)
	// Page-level nofollow from the robots meta suppresses following
	assert.False(t, internal.IsFollowed)

	external := anchors[1]
	assert.Equal(t, models.LinkTypeExternal, external.Type)
	assert.Equal(t, "https://other.com/page", external.CanonicalURL)
	assert.False(t, external.IsFollowed)

	// Both link elements, both external scripts, and both images
	require.Len(t, resources, 6)
	for _, res := range resources {
		assert.True(t, res.IsFollowed)
	}
}

func linksOfType(result *PageResult, types ...models.LinkType) []LinkResult {
	var out []LinkResult
	for _, link := range result.Links {
		for _, lt := range types {
			if link.Type == lt {
				out = append(out, link)
				break
			}
		}
	}
	return out
}

func TestFetcherCountsInlineScripts(t *testing.T) {
	var page strings.Builder
	page.WriteString("<html><head><title>Script Heavy Page Title</title></head><body>")
	for i := 0; i < 7; i++ {
		page.WriteString("<script>console.log(1);</script>")
	}
	page.WriteString("</body></html>")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(page.String()))
	}))
	defer server.Close()

	result := newTestFetcher().Fetch(context.Background(), server.URL+"/")
	require.NoError(t, result.FetchError)
	assert.Equal(t, 7, result.JSCount)
	assert.True(t, result.NeedsHeadless())
}

func TestFetcherEmitsResourceLinks(t *testing.T) {
	page := `<html><head><title>Resource Links Page Title</title>
<link rel="stylesheet" href="/main.css">
<script src="/app.js"></script>
</head><body><img src="/hero.png"></body></html>`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(page))
	}))
	defer server.Close()

	result := newTestFetcher().Fetch(context.Background(), server.URL+"/")
	require.NoError(t, result.FetchError)

	resources := linksOfType(result, models.LinkTypeResource)
	require.Len(t, resources, 3)
	wantSuffixes := []string{"/main.css", "/app.js", "/hero.png"}
	for i, res := range resources {
		assert.Equal(t, server.URL+wantSuffixes[i], res.CanonicalURL)
		assert.True(t, res.IsFollowed)
		assert.True(t, res.Valid)
	}
}

func TestExtractFromHTMLReplacesHTTPExtraction(t *testing.T) {
	page := `<html><head><title>Rendered Page Title Here</title></head><body>
<a href="/a">A</a><a href="/b">B</a>
</body></html>`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(page))
	}))
	defer server.Close()

	fetcher := newTestFetcher()
	result := fetcher.Fetch(context.Background(), server.URL+"/")
	require.NoError(t, result.FetchError)
	require.Len(t, result.Links, 2)

	// Re-extraction over the rendered DOM replaces the HTTP result
	require.NoError(t, fetcher.ExtractFromHTML(page, result))
	assert.Len(t, result.Links, 2)
	assert.Nil(t, result.SizeBytes)
	assert.Nil(t, result.ContentLength)
}

func TestFetcherFollowedLinks(t *testing.T) {
	page := `<html><head><title>t</title></head><body>
<a href="/followed">A</a>
<a href="/nofollowed" rel="nofollow">B</a>
</body></html>`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(page))
	}))
	defer server.Close()

	result := newTestFetcher().Fetch(context.Background(), server.URL+"/")
	require.NoError(t, result.FetchError)
	require.Len(t, result.Links, 2)
	assert.True(t, result.Links[0].IsFollowed)
	assert.False(t, result.Links[1].IsFollowed)
}

func TestFetcherNonHTMLSkipsParsing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	result := newTestFetcher().Fetch(context.Background(), server.URL+"/api")
	require.NoError(t, result.FetchError)
	assert.False(t, result.IsHTML())
	assert.Empty(t, result.Title)
	assert.Empty(t, result.Links)
}

func TestFetcherRecordsRedirect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><head><title>New</title></head><body></body></html>"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	result := newTestFetcher().Fetch(context.Background(), server.URL+"/old")
	require.NoError(t, result.FetchError)
	assert.Equal(t, 200, result.HTTPStatus)
	assert.Equal(t, server.URL+"/new", result.FinalURL)
	assert.Equal(t, server.URL+"/new", result.RedirectURL)
}

func TestFetcherNetworkErrorOnResult(t *testing.T) {
	result := newTestFetcher().Fetch(context.Background(), "http://127.0.0.1:1/unreachable")
	assert.Error(t, result.FetchError)
	assert.Equal(t, 0, result.HTTPStatus)
}

func TestNeedsHeadless(t *testing.T) {
	result := &PageResult{ContentType: "text/html", JSCount: jsEscalationThreshold}
	assert.False(t, result.NeedsHeadless())

	result.JSCount = jsEscalationThreshold + 1
	assert.True(t, result.NeedsHeadless())

	result.ContentType = "application/json"
	assert.False(t, result.NeedsHeadless())
}
