package marketplace

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
)

const (
	defaultConnectTimeout = 5 * time.Second
	defaultReadTimeout    = 15 * time.Second

	// maxBodyBytes bounds how much of a response is read into memory.
	maxBodyBytes = 8 << 20
)

// UserAgents is the fixed pool of realistic client identities rotated per
// request.
var UserAgents = []string{
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 13_5) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0 Safari/537.36",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 16_7 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.0 Mobile/15E148 Safari/604.1",
	"Mozilla/5.0 (Linux; Android 13; Pixel 7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0 Mobile Safari/537.36",
}

// RandomUserAgent picks one entry of UserAgents.
func RandomUserAgent() string {
	return UserAgents[rand.IntN(len(UserAgents))]
}

// Response is a fully read upstream response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Transport performs a single GET against the marketplace.
type Transport interface {
	Get(ctx context.Context, url string) (*Response, error)
}

// HTTPTransport implements Transport over net/http with browser-like
// headers and transparent gzip/brotli decoding.
type HTTPTransport struct {
	client         *http.Client
	connectTimeout time.Duration
	readTimeout    time.Duration
	rateLimiter    *RateLimiter
	userAgent      func() string
}

// HTTPOption configures the HTTPTransport.
type HTTPOption func(*HTTPTransport)

// WithTimeouts sets the connect and read timeouts. Non-positive values keep
// the defaults.
func WithTimeouts(connect, read time.Duration) HTTPOption {
	return func(t *HTTPTransport) {
		if connect > 0 {
			t.connectTimeout = connect
		}
		if read > 0 {
			t.readTimeout = read
		}
	}
}

// WithHTTPClient overrides the constructed HTTP client.
func WithHTTPClient(hc *http.Client) HTTPOption {
	return func(t *HTTPTransport) {
		t.client = hc
	}
}

// WithRateLimiter routes every request through r.Wait first.
func WithRateLimiter(r *RateLimiter) HTTPOption {
	return func(t *HTTPTransport) {
		t.rateLimiter = r
	}
}

// WithUserAgentFunc overrides how the per-request User-Agent is chosen.
func WithUserAgentFunc(f func() string) HTTPOption {
	return func(t *HTTPTransport) {
		t.userAgent = f
	}
}

// NewHTTPTransport creates an HTTPTransport. Unless WithHTTPClient is given
// the client dials with the connect timeout, waits at most the read timeout
// for response headers, and bounds the whole exchange by their sum.
func NewHTTPTransport(opts ...HTTPOption) *HTTPTransport {
	t := &HTTPTransport{
		connectTimeout: defaultConnectTimeout,
		readTimeout:    defaultReadTimeout,
		userAgent:      RandomUserAgent,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.client == nil {
		t.client = &http.Client{
			Timeout: t.connectTimeout + t.readTimeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   t.connectTimeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   t.connectTimeout,
				ResponseHeaderTimeout: t.readTimeout,
				IdleConnTimeout:       90 * time.Second,
				MaxIdleConnsPerHost:   4,
				// Accept-Encoding is set by hand, so decoding is done here too.
				DisableCompression: true,
			},
		}
	}
	return t
}

// Get implements Transport.Get. Non-2xx statuses are returned as a Response;
// only transport failures produce an error.
func (t *HTTPTransport) Get(ctx context.Context, url string) (*Response, error) {
	if err := t.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}
	setBrowserHeaders(req.Header, t.userAgent())

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

func setBrowserHeaders(h http.Header, userAgent string) {
	h.Set("User-Agent", userAgent)
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	h.Set("Accept-Language", "en-GB,en;q=0.9")
	h.Set("Accept-Encoding", "gzip, br")
	h.Set("Cache-Control", "no-cache")
	h.Set("Pragma", "no-cache")
}

func readBody(resp *http.Response) ([]byte, error) {
	var r io.Reader = resp.Body
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("opening gzip stream: %w", err)
		}
		defer gz.Close()
		r = gz
	case "br":
		r = brotli.NewReader(resp.Body)
	}
	return io.ReadAll(io.LimitReader(r, maxBodyBytes))
}
