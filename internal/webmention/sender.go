// Package webmention implements the sending half of the W3C Webmention
// protocol: endpoint discovery on the target, then a form-encoded POST
// of source and target. Retractions use the same send; the receiver
// re-fetches the source and observes the link is gone.
package webmention

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/debemdeboas/posse/internal/config"
)

var wmLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	wmLogger = l
}

// Result is the outcome of a single webmention send attempt. A zero
// StatusCode means the request never completed.
type Result struct {
	Success    bool
	StatusCode int
	Message    string
	Location   string
}

// Sender delivers a webmention for (source, target). Implemented by
// Client; the orchestrator only sees this interface.
type Sender interface {
	Send(ctx context.Context, source, target string) Result
}

type Client struct {
	http      *resty.Client
	userAgent string

	// allowPrivate disables the private/loopback target guard. Only
	// set from tests, which run against 127.0.0.1 listeners.
	allowPrivate bool
}

type Option func(*Client)

// WithAllowPrivate turns off the guard that refuses sends to private
// and loopback addresses.
func WithAllowPrivate() Option {
	return func(c *Client) { c.allowPrivate = true }
}

func NewClient(timeout time.Duration, userAgent string, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := &Client{
		http: resty.New().
			SetTimeout(timeout).
			SetRedirectPolicy(resty.FlexibleRedirectPolicy(5)),
		userAgent: userAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send discovers the target's webmention endpoint and posts the
// mention. Network and discovery failures come back as an unsuccessful
// Result rather than an error, so callers can collect per-link
// outcomes without aborting a batch.
func (c *Client) Send(ctx context.Context, source, target string) Result {
	if !c.allowPrivate && isPrivateOrLoopback(target) {
		wmLogger.Warn().Str("target", target).Msg("Refusing webmention to private or loopback target")
		return Result{Success: false, Message: "target is a private or loopback address"}
	}

	endpoint, err := c.DiscoverEndpoint(ctx, target)
	if err != nil {
		wmLogger.Warn().Err(err).Str("target", target).Msg("Webmention endpoint discovery failed")
		return Result{Success: false, Message: fmt.Sprintf("endpoint discovery failed: %v", err)}
	}
	if endpoint == "" {
		return Result{Success: false, Message: "target advertises no webmention endpoint"}
	}

	if !c.allowPrivate && isPrivateOrLoopback(endpoint) {
		return Result{Success: false, Message: "endpoint is a private or loopback address"}
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader(config.HUserAgent, c.userAgent).
		SetHeader(config.HCType, config.CTypeForm).
		SetFormData(map[string]string{
			"source": source,
			"target": target,
		}).
		Post(endpoint)
	if err != nil {
		wmLogger.Error().Err(err).Str("source", source).Str("target", target).Msg("Webmention request failed")
		return Result{Success: false, Message: fmt.Sprintf("request failed: %v", err)}
	}

	// Webmention spec: any 2xx means accepted (202 for async processing,
	// 201 with a status Location).
	if resp.IsSuccess() {
		location := resp.Header().Get(config.HLocation)
		wmLogger.Info().
			Str("source", source).
			Str("target", target).
			Int("status_code", resp.StatusCode()).
			Msg("Webmention accepted")
		return Result{
			Success:    true,
			StatusCode: resp.StatusCode(),
			Message:    "webmention accepted",
			Location:   location,
		}
	}

	msg := parseErrorBody(resp)
	wmLogger.Warn().
		Str("source", source).
		Str("target", target).
		Int("status_code", resp.StatusCode()).
		Str("error", msg).
		Msg("Webmention rejected")
	return Result{Success: false, StatusCode: resp.StatusCode(), Message: msg}
}

func parseErrorBody(resp *resty.Response) string {
	body := strings.TrimSpace(string(resp.Body()))
	if body != "" && len(body) < 200 {
		return fmt.Sprintf("HTTP %d: %s", resp.StatusCode(), body)
	}
	return fmt.Sprintf("HTTP %d: %s", resp.StatusCode(), resp.Status())
}

// isPrivateOrLoopback reports whether the URL's host resolves trivially
// to an address we should never send server-side requests to.
func isPrivateOrLoopback(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return true
	}

	host := u.Hostname()
	if host == "" {
		return true
	}
	if strings.EqualFold(host, "localhost") {
		return true
	}

	ip := net.ParseIP(host)
	if ip == nil {
		// Hostname, not a literal address. DNS-level rebinding is out
		// of scope here.
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified()
}
