package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		referrer string
		want     string
		wantOK   bool
	}{
		{
			name:   "lowercases scheme and host",
			raw:    "HTTPS://Example.COM/Path",
			want:   "https://example.com/Path",
			wantOK: true,
		},
		{
			name:   "strips default https port",
			raw:    "https://example.com:443/page",
			want:   "https://example.com/page",
			wantOK: true,
		},
		{
			name:   "strips default http port",
			raw:    "http://example.com:80/page",
			want:   "http://example.com/page",
			wantOK: true,
		},
		{
			name:   "keeps non-default port",
			raw:    "https://example.com:8443/page",
			want:   "https://example.com:8443/page",
			wantOK: true,
		},
		{
			name:   "drops fragment",
			raw:    "https://example.com/page#section",
			want:   "https://example.com/page",
			wantOK: true,
		},
		{
			name:   "removes tracking params preserving order",
			raw:    "https://example.com/p?b=2&utm_source=x&a=1&utm_medium=y",
			want:   "https://example.com/p?b=2&a=1",
			wantOK: true,
		},
		{
			name:   "keeps utm_content",
			raw:    "https://example.com/p?utm_content=z",
			want:   "https://example.com/p?utm_content=z",
			wantOK: true,
		},
		{
			name:   "collapses bare slash path",
			raw:    "https://example.com/",
			want:   "https://example.com",
			wantOK: true,
		},
		{
			name:   "keeps deeper paths intact",
			raw:    "https://example.com/a/",
			want:   "https://example.com/a/",
			wantOK: true,
		},
		{
			name:     "resolves relative against referrer",
			raw:      "../about",
			referrer: "https://example.com/blog/post",
			want:     "https://example.com/about",
			wantOK:   true,
		},
		{
			name:     "resolves root-relative against referrer",
			raw:      "/contact",
			referrer: "https://example.com/blog/post",
			want:     "https://example.com/contact",
			wantOK:   true,
		},
		{
			name:   "parse failure returns input",
			raw:    "http://exa mple.com/%zz",
			want:   "http://exa mple.com/%zz",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Canonicalize(tt.raw, tt.referrer)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSameSite(t *testing.T) {
	assert.True(t, SameSite("https://example.com/a", "https://example.com/b"))
	assert.True(t, SameSite("https://EXAMPLE.com/a", "https://example.com/b"))
	assert.False(t, SameSite("https://blog.example.com/a", "https://example.com/b"))
	assert.False(t, SameSite("https://example.com/a", "https://other.com/b"))
	assert.False(t, SameSite("not a url at all\x7f", "https://example.com"))
}
