package webmention

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/debemdeboas/posse/internal/config"
)

// maxDiscoveryBytes bounds how much of the target document is scanned
// for a webmention endpoint.
const maxDiscoveryBytes = 1024 * 1024

// DiscoverEndpoint fetches the target and returns its advertised
// webmention endpoint, resolved to an absolute URL. Precedence follows
// the protocol: the Link response header first, then the first <link> or
// <a> element with rel=webmention in document order. An empty string
// means the target advertises no endpoint.
func (c *Client) DiscoverEndpoint(ctx context.Context, target string) (string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader(config.HUserAgent, c.userAgent).
		SetHeader("Accept", config.CTypeHTML).
		Get(target)
	if err != nil {
		return "", fmt.Errorf("error fetching target: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("target returned HTTP %d", resp.StatusCode())
	}

	// The fetch may have been redirected; endpoints resolve against the
	// final URL.
	base, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("error parsing target url: %w", err)
	}
	if req := resp.RawResponse.Request; req != nil && req.URL != nil {
		base = req.URL
	}

	for _, value := range resp.Header().Values(config.HLink) {
		if endpoint, ok := endpointFromLinkHeader(value); ok {
			return resolveEndpoint(base, endpoint), nil
		}
	}

	body := resp.Body()
	if len(body) > maxDiscoveryBytes {
		body = body[:maxDiscoveryBytes]
	}
	if endpoint, ok := endpointFromHTML(string(body)); ok {
		return resolveEndpoint(base, endpoint), nil
	}

	return "", nil
}

// endpointFromLinkHeader scans a Link header value, which may carry
// several comma-separated entries of the form <url>; rel="webmention".
func endpointFromLinkHeader(value string) (string, bool) {
	for _, entry := range strings.Split(value, ",") {
		parts := strings.Split(entry, ";")
		if len(parts) < 2 {
			continue
		}

		target := strings.TrimSpace(parts[0])
		if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
			continue
		}

		for _, param := range parts[1:] {
			key, val, ok := strings.Cut(strings.TrimSpace(param), "=")
			if !ok || !strings.EqualFold(strings.TrimSpace(key), "rel") {
				continue
			}
			if relContainsWebmention(strings.Trim(strings.TrimSpace(val), `"`)) {
				return strings.Trim(target, "<>"), true
			}
		}
	}
	return "", false
}

// endpointFromHTML returns the href of the first <link> or <a> element
// with rel=webmention. An empty href is valid and refers to the page
// itself.
func endpointFromHTML(body string) (string, bool) {
	z := html.NewTokenizer(strings.NewReader(body))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return "", false
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}

		name, hasAttr := z.TagName()
		tag := string(name)
		if (tag != "link" && tag != "a") || !hasAttr {
			continue
		}

		var href string
		var hasHref, isWebmention bool
		for {
			key, val, more := z.TagAttr()
			switch strings.ToLower(string(key)) {
			case "href":
				href = strings.TrimSpace(string(val))
				hasHref = true
			case "rel":
				isWebmention = relContainsWebmention(string(val))
			}
			if !more {
				break
			}
		}

		if isWebmention && hasHref {
			return href, true
		}
	}
}

func relContainsWebmention(rel string) bool {
	for _, v := range strings.Fields(rel) {
		if strings.EqualFold(v, "webmention") {
			return true
		}
	}
	return false
}

func resolveEndpoint(base *url.URL, endpoint string) string {
	ref, err := url.Parse(endpoint)
	if err != nil {
		return endpoint
	}
	return base.ResolveReference(ref).String()
}
