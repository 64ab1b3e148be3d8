// Package httpclient is the outbound HTTP client. Failures leave it already
// classified as *guard.Error values so callers never guess a code.
package httpclient

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	stdhttp "net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"

	"github.com/guardkit/guard/internal/classify"
	"github.com/guardkit/guard/pkg/guard"
)

// DefaultMaxBody caps how much of a response body GetJSON will read.
const DefaultMaxBody = 1 << 20

// Client wraps http.Client with logging and failure classification.
type Client struct {
	hc          *stdhttp.Client
	log         *slog.Logger
	headers     map[string]string
	urlRedactor func(*url.URL) string
	maxBody     int64
}

// Option configures Client.
type Option func(*Client)

// WithTimeout sets request timeout.
func WithTimeout(t time.Duration) Option {
	return func(c *Client) { c.hc.Timeout = t }
}

// WithLogger sets logger used by client.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithHeaders adds default headers to each request.
func WithHeaders(h map[string]string) Option {
	return func(c *Client) {
		for k, v := range h {
			if c.headers == nil {
				c.headers = make(map[string]string)
			}
			c.headers[k] = v
		}
	}
}

// WithURLRedactor sets URL redactor for logs and error meta.
func WithURLRedactor(f func(*url.URL) string) Option {
	return func(c *Client) { c.urlRedactor = f }
}

// WithTransport sets custom transport.
func WithTransport(rt stdhttp.RoundTripper) Option {
	return func(c *Client) {
		if rt != nil {
			c.hc.Transport = rt
		}
	}
}

// WithMaxBody limits the decoded response size (0 disables the limit).
func WithMaxBody(n int64) Option {
	return func(c *Client) { c.maxBody = n }
}

// New creates configured Client.
func New(opts ...Option) *Client {
	tr := stdhttp.DefaultTransport.(*stdhttp.Transport).Clone()
	tr.MaxIdleConns = 100
	tr.MaxIdleConnsPerHost = 100
	tr.IdleConnTimeout = 90 * time.Second
	tr.TLSHandshakeTimeout = 10 * time.Second
	tr.ResponseHeaderTimeout = 10 * time.Second

	c := &Client{
		hc: &stdhttp.Client{
			Timeout:   15 * time.Second,
			Transport: tr,
		},
		log:     slog.Default(),
		headers: map[string]string{"Accept": "application/json"},
		maxBody: DefaultMaxBody,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Do sends req with the default headers and logs the outcome. Transport
// errors are returned unclassified; see GetJSON for the classified form.
func (c *Client) Do(ctx context.Context, req *stdhttp.Request) (*stdhttp.Response, error) {
	r := req.Clone(ctx)
	for k, v := range c.headers {
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}

	u := c.redactURL(r.URL)
	st := time.Now()
	resp, err := c.hc.Do(r)
	dur := time.Since(st)
	if err != nil {
		c.log.Warn("http request error", slog.String("method", r.Method), slog.String("url", u), slog.Duration("dur", dur), slog.Any("error", err))
		return nil, err
	}
	c.log.Info("http request", slog.String("method", r.Method), slog.String("url", u), slog.Int("status", resp.StatusCode), slog.Duration("dur", dur))
	return resp, nil
}

// GetJSON fetches rawURL and decodes the JSON body into out. Every failure is
// a *guard.Error with meta {url, status}; status is 0 when no response arrived.
//
//	400, 422 -> VALIDATION
//	401      -> UNAUTHORIZED
//	403      -> FORBIDDEN
//	404      -> NOT_FOUND
//	408, 504 -> TIMEOUT
//	5xx      -> NETWORK
//
// Transport failures are TIMEOUT when they timed out and NETWORK otherwise.
// A canceled ctx stays UNKNOWN. Other statuses and undecodable bodies are
// INTERNAL.
func (c *Client) GetJSON(ctx context.Context, rawURL string, out any) error {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return guard.New("invalid url",
			guard.WithCode(guard.CodeValidation),
			guard.WithCause(err),
			guard.WithMetaKV("url", rawURL),
		)
	}
	shown := c.redactURL(u)

	req, err := stdhttp.NewRequestWithContext(ctx, stdhttp.MethodGet, u.String(), nil)
	if err != nil {
		return classify.Mark(err, guard.CodeValidation)
	}

	resp, err := c.Do(ctx, req)
	if err != nil {
		code := classify.CodeOf(err)
		if code == guard.CodeUnknown && !classify.IsCanceled(err) {
			code = guard.CodeNetwork
		}
		return guard.New(fmt.Sprintf("GET %s failed", shown),
			guard.WithCode(code),
			guard.WithCause(err),
			guard.WithMeta(map[string]any{"url": shown, "status": 0}),
		)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return guard.New(fmt.Sprintf("GET %s: %s", shown, resp.Status),
			guard.WithCode(StatusCode(resp.StatusCode)),
			guard.WithMeta(map[string]any{"url": shown, "status": resp.StatusCode}),
		)
	}

	var body io.Reader = resp.Body
	if c.maxBody > 0 {
		body = io.LimitReader(resp.Body, c.maxBody)
	}
	if err := json.NewDecoder(body).Decode(out); err != nil {
		return guard.New(fmt.Sprintf("GET %s: decode response", shown),
			guard.WithCode(guard.CodeInternal),
			guard.WithCause(err),
			guard.WithMeta(map[string]any{"url": shown, "status": resp.StatusCode}),
		)
	}
	return nil
}

// StatusCode maps a non-2xx HTTP status onto a guard code.
func StatusCode(status int) guard.Code {
	switch status {
	case stdhttp.StatusBadRequest, stdhttp.StatusUnprocessableEntity:
		return guard.CodeValidation
	case stdhttp.StatusUnauthorized:
		return guard.CodeUnauthorized
	case stdhttp.StatusForbidden:
		return guard.CodeForbidden
	case stdhttp.StatusNotFound:
		return guard.CodeNotFound
	case stdhttp.StatusRequestTimeout, stdhttp.StatusGatewayTimeout:
		return guard.CodeTimeout
	}
	if status >= 500 {
		return guard.CodeNetwork
	}
	return guard.CodeInternal
}

func (c *Client) redactURL(u *url.URL) string {
	if c.urlRedactor != nil {
		return c.urlRedactor(u)
	}
	return u.Redacted()
}

// drainAndClose drains up to 512KB from body and closes it.
func drainAndClose(b io.ReadCloser) {
	if b == nil {
		return
	}
	_, _ = io.CopyN(io.Discard, b, 512<<10)
	_ = b.Close()
}
