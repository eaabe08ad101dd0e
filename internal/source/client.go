package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/time/rate"

	"github.com/sells-group/earnings-cli/internal/resilience"
)

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36"

// ClientOptions configures the shared HTTP client.
type ClientOptions struct {
	UserAgent string
	Timeout   time.Duration
	// RatePerSec and Burst apply to every host without an explicit rate.
	RatePerSec float64
	Burst      int
	// MaxBodyBytes caps how much of a response body is read. Default: 8 MiB.
	MaxBodyBytes int64
	// PreviewDir, when set, receives a copy of every fetched body.
	PreviewDir string
}

// Client performs rate-limited HTTP requests for the adapters. It is safe
// for concurrent use; every request is independent, so adapters sharing a
// Client can still run in parallel.
type Client struct {
	hc   *http.Client
	opts ClientOptions

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewClient creates a Client with sensible defaults.
func NewClient(opts ClientOptions) *Client {
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = 2
	}
	if opts.Burst <= 0 {
		opts.Burst = 2
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 8 << 20
	}
	return &Client{
		hc: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		opts:     opts,
		limiters: make(map[string]*rate.Limiter),
	}
}

// SetHostRate overrides the request rate for one host.
func (c *Client) SetHostRate(host string, perSec float64) {
	if perSec <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.limiters[host] = rate.NewLimiter(rate.Limit(perSec), c.opts.Burst)
}

func (c *Client) limiterFor(host string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	if lim, ok := c.limiters[host]; ok {
		return lim
	}
	lim := rate.NewLimiter(rate.Limit(c.opts.RatePerSec), c.opts.Burst)
	c.limiters[host] = lim
	return lim
}

// Get fetches rawURL and returns the decoded body.
func (c *Client) Get(ctx context.Context, rawURL string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "client: create request")
	}
	return c.do(req, header)
}

// PostForm submits form as application/x-www-form-urlencoded.
func (c *Client) PostForm(ctx context.Context, rawURL string, form url.Values, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, eris.Wrap(err, "client: create request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	return c.do(req, header)
}

// PostJSON submits payload encoded as JSON.
func (c *Client) PostJSON(ctx context.Context, rawURL string, payload any, header http.Header) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrap(err, "client: encode payload")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(data))
	if err != nil {
		return nil, eris.Wrap(err, "client: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, header)
}

func (c *Client) do(req *http.Request, header http.Header) ([]byte, error) {
	if err := c.limiterFor(req.URL.Host).Wait(req.Context()); err != nil {
		return nil, eris.Wrap(err, "client: rate limiter wait")
	}

	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	safeURL := redactURL(req.URL)
	resp, err := c.hc.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			urlErr.URL = safeURL
		}
		return nil, eris.Wrapf(err, "client: %s %s", req.Method, safeURL)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.opts.MaxBodyBytes))
	if err != nil {
		return nil, eris.Wrap(err, "client: read body")
	}

	if blocked, blockType := DetectBlock(resp, body); blocked {
		return nil, eris.Errorf("client: blocked (%s) at %s", blockType, req.URL.Host)
	}
	if resp.StatusCode >= 400 {
		return nil, resilience.StatusError(resp.StatusCode, safeURL)
	}

	body, err = decodeCharset(resp.Header.Get("Content-Type"), body)
	if err != nil {
		return nil, err
	}

	c.preview(req.URL, body)
	return body, nil
}

// redactURL drops the query string, which may carry API tokens.
func redactURL(u *url.URL) string {
	return u.Scheme + "://" + u.Host + u.Path
}

// decodeCharset transcodes body to UTF-8 when the response declares another charset.
func decodeCharset(contentType string, body []byte) ([]byte, error) {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return body, nil
	}
	charset := strings.ToLower(params["charset"])
	if charset == "" || charset == "utf-8" || charset == "utf8" {
		return body, nil
	}

	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, eris.Wrapf(err, "client: unsupported charset %q", charset)
	}
	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return nil, eris.Wrapf(err, "client: decode %s body", charset)
	}
	return out, nil
}

func (c *Client) preview(u *url.URL, body []byte) {
	if c.opts.PreviewDir == "" {
		return
	}
	if err := os.MkdirAll(c.opts.PreviewDir, 0o755); err != nil {
		zap.L().Warn("client: create preview dir", zap.Error(err))
		return
	}
	name := fmt.Sprintf("%s-%d.txt", strings.ReplaceAll(u.Host, ":", "_"), time.Now().UnixNano())
	path := filepath.Join(c.opts.PreviewDir, name)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		zap.L().Warn("client: write preview", zap.String("path", path), zap.Error(err))
		return
	}
	zap.L().Debug("client: saved preview", zap.String("url", redactURL(u)), zap.String("path", path))
}
