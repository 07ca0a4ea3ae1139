// Package links extracts outbound hyperlink targets from post HTML and
// computes the delta between link sets across post revisions.
package links

import (
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"
)

var linksLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	linksLogger = l
}

// DefaultMaxHTMLBytes caps how much HTML is tokenized for extraction.
// Blog posts are typically far smaller; the cap guards against
// pathological inputs.
const DefaultMaxHTMLBytes = 5 * 1024 * 1024

type Extractor struct {
	// siteOrigin is the blog's own scheme://host. Links to it are
	// self-references and excluded. Empty disables the filter.
	siteOrigin string

	maxBytes int
}

func NewExtractor(siteOrigin string, maxBytes int) *Extractor {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxHTMLBytes
	}
	return &Extractor{
		siteOrigin: strings.TrimSuffix(strings.ToLower(siteOrigin), "/"),
		maxBytes:   maxBytes,
	}
}

// Extract returns the set of normalized outbound link targets found in
// the HTML body. Extraction is best-effort: malformed markup yields the
// links found up to that point, and an empty or unparsable document
// yields an empty set. Relative hrefs are not resolved; anything
// without an absolute http(s) target is dropped.
func (e *Extractor) Extract(htmlBody string) map[string]struct{} {
	targets := make(map[string]struct{})
	if htmlBody == "" {
		return targets
	}

	if len(htmlBody) > e.maxBytes {
		linksLogger.Warn().
			Int("size", len(htmlBody)).
			Int("max", e.maxBytes).
			Msg("HTML body too large for link extraction, truncating")
		htmlBody = htmlBody[:e.maxBytes]
	}

	z := html.NewTokenizer(strings.NewReader(htmlBody))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			// io.EOF for a clean end, anything else is malformed
			// input; either way we keep what we have.
			return targets
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}

		name, hasAttr := z.TagName()
		if len(name) != 1 || name[0] != 'a' || !hasAttr {
			continue
		}

		for {
			key, val, more := z.TagAttr()
			if strings.EqualFold(string(key), "href") {
				if target, ok := e.normalizeTarget(string(val)); ok {
					targets[target] = struct{}{}
				}
			}
			if !more {
				break
			}
		}
	}
}

// normalizeTarget validates and normalizes a raw href value.
func (e *Extractor) normalizeTarget(href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}

	u, err := url.Parse(href)
	if err != nil {
		return "", false
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", false
	}
	if u.Host == "" {
		return "", false
	}

	u.Scheme = scheme
	host := strings.ToLower(u.Hostname())
	if port := u.Port(); port != "" {
		u.Host = host + ":" + port
	} else {
		u.Host = host
	}

	if e.siteOrigin != "" && u.Scheme+"://"+u.Host == e.siteOrigin {
		return "", false
	}

	u.Fragment = ""
	u.RawFragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")

	return u.String(), true
}
