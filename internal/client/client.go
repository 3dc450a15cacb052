package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yomite/threadsnap/internal/model"
)

const (
	// defaultTimeout bounds one whole request/response exchange.
	defaultTimeout = 30 * time.Second

	// defaultMaxBodySize caps how much of a response body is read.
	defaultMaxBodySize = 8 * 1024 * 1024

	// defaultPathTemplate is the Discuz-style thread page path. The
	// first verb takes the thread id, the second the page number.
	defaultPathTemplate = "thread-%s-%d-1.html"

	// defaultUserAgent identifies the tool honestly.
	defaultUserAgent = "threadsnap/1.0 (+https://github.com/yomite/threadsnap)"

	// acceptHeader mirrors what a browser sends for a page navigation.
	acceptHeader = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"

	// acceptLanguageHeader favors the locales the supported forums run
	// in.
	acceptLanguageHeader = "zh-CN,zh;q=0.9,en;q=0.5"
)

// Client fetches thread pages from one forum origin.
type Client struct {
	// httpClient performs the requests. It may be proxy-configured by
	// the caller.
	httpClient *http.Client

	// origin is the forum's scheme plus host, without trailing slash.
	origin string

	// pathTemplate turns (thread id, page number) into a request path.
	pathTemplate string

	// userAgent is sent as the User-Agent header.
	userAgent string

	// cookie, when set, is sent verbatim as the Cookie header.
	cookie string

	// headers are extra headers set on every request. They win over
	// the built-in ones.
	headers map[string]string

	// charset forces response transcoding from the named encoding.
	// Empty means sniff the document's meta declaration.
	charset string

	// timeout is applied when the Client builds its own http.Client.
	timeout time.Duration

	// maxBodySize caps how many response bytes are read.
	maxBodySize int64
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient supplies a pre-configured http.Client, typically one
// routed through a SOCKS proxy or an embedded Tor runtime. WithTimeout
// is ignored when this option is used.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout of the built-in http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithPathTemplate sets the thread page path template. It must contain
// a string verb for the thread id followed by an int verb for the page
// number.
func WithPathTemplate(template string) Option {
	return func(c *Client) {
		c.pathTemplate = template
	}
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithCookie sets the Cookie header sent on every request, for forums
// that hide threads from logged-out visitors.
func WithCookie(cookie string) Option {
	return func(c *Client) {
		c.cookie = cookie
	}
}

// WithHeaders sets extra headers sent on every request.
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) {
		c.headers = headers
	}
}

// WithCharset forces response bodies to be transcoded from the named
// encoding (e.g. "gbk", "big5") instead of sniffing the document.
func WithCharset(name string) Option {
	return func(c *Client) {
		c.charset = name
	}
}

// WithMaxBodySize sets the response body read cap in bytes.
func WithMaxBodySize(size int64) Option {
	return func(c *Client) {
		c.maxBodySize = size
	}
}

// New returns a Client for the given forum origin, e.g.
// "https://forum.example.com".
func New(origin string, opts ...Option) (*Client, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("%w: parse origin: %v", ErrInvalidRequest, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: origin must be an http(s) URL with a host, got %q", ErrInvalidRequest, origin)
	}

	c := &Client{
		origin:       strings.TrimRight(origin, "/"),
		pathTemplate: defaultPathTemplate,
		userAgent:    defaultUserAgent,
		timeout:      defaultTimeout,
		maxBodySize:  defaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}
	return c, nil
}

// ThreadURL returns the full URL of one thread page.
func (c *Client) ThreadURL(key model.PageKey) string {
	return c.origin + "/" + fmt.Sprintf(c.pathTemplate, key.ThreadID, key.Page)
}

// FetchThreadPage performs one GET for the page identified by key and
// returns its body decoded to UTF-8. referer, when non-empty, is sent
// as the Referer header so paging through a thread looks like a
// browsing session. An invalid key is refused with ErrInvalidRequest
// before any request is made.
func (c *Client) FetchThreadPage(ctx context.Context, key model.PageKey, referer string) (*model.RawDocument, error) {
	if err := key.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ThreadURL(key), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("Accept-Language", acceptLanguageHeader)
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}
	if referer != "" {
		req.Header.Set("Referer", referer)
	}
	for name, value := range c.headers {
		req.Header.Set(name, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: %w", key, &StatusError{Code: resp.StatusCode})
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: read body: %w", key, err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fmt.Errorf("fetch %s: %w", key, ErrEmptyResponse)
	}

	return &model.RawDocument{
		Key:  key,
		Body: string(c.decodeBody(body)),
	}, nil
}
