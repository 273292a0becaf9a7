package crawler

import (
	"net/url"
	"strings"
)

// trackingParams are query parameters stripped during canonicalization.
// Extensible set; comparisons are case-sensitive per the URL standard.
var trackingParams = []string{
	"utm_source",
	"utm_medium",
	"utm_campaign",
}

// Canonicalize normalizes a URL for deduplication and same-site tests:
// lowercases scheme and host, strips default ports, resolves against the
// referrer, drops the fragment, removes tracking query parameters while
// preserving the order of the rest, and collapses a bare "/" path.
// On parse failure the input is returned unchanged with ok=false so the
// caller can mark the link as likely invalid.
func Canonicalize(raw string, referrer string) (string, bool) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return raw, false
	}

	if referrer != "" && !parsed.IsAbs() {
		base, err := url.Parse(referrer)
		if err != nil {
			return raw, false
		}
		parsed = base.ResolveReference(parsed)
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)

	// Strip default ports
	if port := parsed.Port(); port != "" {
		if (parsed.Scheme == "http" && port == "80") || (parsed.Scheme == "https" && port == "443") {
			parsed.Host = parsed.Hostname()
		}
	}

	parsed.Fragment = ""
	parsed.RawQuery = stripTrackingParams(parsed.RawQuery)

	if parsed.Path == "/" {
		parsed.Path = ""
	}

	return parsed.String(), true
}

// stripTrackingParams removes tracking keys from a raw query string without
// reordering the remaining parameters (url.Values would alphabetize them).
func stripTrackingParams(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}

	kept := make([]string, 0, 4)
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key := pair
		if idx := strings.Index(pair, "="); idx >= 0 {
			key = pair[:idx]
		}
		if isTrackingParam(key) {
			continue
		}
		kept = append(kept, pair)
	}
	return strings.Join(kept, "&")
}

func isTrackingParam(key string) bool {
	for _, p := range trackingParams {
		if key == p {
			return true
		}
	}
	return false
}

// SameSite reports whether two URLs share a canonical host. Subdomains
// count as different sites.
func SameSite(a, b string) bool {
	ha := hostOf(a)
	hb := hostOf(b)
	return ha != "" && ha == hb
}

// hostOf returns the lowercase hostname of a URL, without port
func hostOf(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}
