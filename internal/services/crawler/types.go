package crawler

import "github.com/rankriot/rankriot/internal/models"

// jsEscalationThreshold is the script count above which a page is refetched
// with the headless browser
const jsEscalationThreshold = 5

// LinkResult is one outbound link discovered on a fetched page
type LinkResult struct {
	RawURL       string
	CanonicalURL string
	Type         models.LinkType
	AnchorText   string
	IsFollowed   bool
	Valid        bool
}

// PageResult carries everything the fetcher extracted from one URL
type PageResult struct {
	URL            string
	FinalURL       string
	HTTPStatus     int
	ContentType    string
	ContentLength  *int64
	RedirectURL    string
	Title          string
	MetaDesc       string
	H1s            []string
	H2s            []string
	H3s            []string
	CanonicalURL   string
	HasNoindex     bool
	HasNofollow    bool
	OpenGraph      map[string]string
	TwitterCard    map[string]string
	StructuredData []map[string]interface{}
	ImageCount     int
	JSCount        int
	CSSCount       int
	SizeBytes      *int64
	LoadTimeMs     int
	FirstByteMs    int
	RenderedWithJS bool
	Links          []LinkResult
	FetchError     error
}

// IsHTML reports whether the response carried an HTML content type
func (r *PageResult) IsHTML() bool {
	return containsFold(r.ContentType, "text/html") || containsFold(r.ContentType, "application/xhtml+xml")
}
