package marketplace

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

const defaultBrowserTimeout = 30 * time.Second

// BrowserTransport implements Transport by driving headless Chrome, for
// origins that refuse plain HTTP clients. JSON documents are returned as
// their body text and everything else as the page's outer HTML.
type BrowserTransport struct {
	execPath    string
	timeout     time.Duration
	rateLimiter *RateLimiter
	userAgent   func() string

	once        sync.Once
	startErr    error
	allocCtx    context.Context
	allocCancel context.CancelFunc
	browserCtx  context.Context
	cancel      context.CancelFunc
}

// BrowserOption configures the BrowserTransport.
type BrowserOption func(*BrowserTransport)

// WithExecPath points the allocator at a specific Chrome binary.
func WithExecPath(path string) BrowserOption {
	return func(b *BrowserTransport) {
		b.execPath = path
	}
}

// WithBrowserTimeout bounds each navigation. Non-positive values keep the
// default.
func WithBrowserTimeout(d time.Duration) BrowserOption {
	return func(b *BrowserTransport) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithBrowserRateLimiter routes every navigation through r.Wait first.
func WithBrowserRateLimiter(r *RateLimiter) BrowserOption {
	return func(b *BrowserTransport) {
		b.rateLimiter = r
	}
}

// NewBrowserTransport configures a browser transport. Chrome is started
// lazily on the first Get so constructing one is cheap.
func NewBrowserTransport(opts ...BrowserOption) *BrowserTransport {
	b := &BrowserTransport{
		timeout:   defaultBrowserTimeout,
		userAgent: RandomUserAgent,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *BrowserTransport) start() error {
	b.once.Do(func() {
		flags := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-blink-features", "AutomationControlled"),
			chromedp.Flag("exclude-switches", "enable-automation"),
			chromedp.Flag("disable-extensions", true),
			chromedp.Flag("blink-settings", "imagesEnabled=false"),
			chromedp.UserAgent(b.userAgent()),
		)
		if b.execPath != "" {
			flags = append(flags, chromedp.ExecPath(b.execPath))
		}

		b.allocCtx, b.allocCancel = chromedp.NewExecAllocator(context.Background(), flags...)
		b.browserCtx, b.cancel = chromedp.NewContext(b.allocCtx,
			chromedp.WithLogf(func(string, ...any) {}),
		)

		// Running with no actions launches the browser process.
		if err := chromedp.Run(b.browserCtx); err != nil {
			b.startErr = fmt.Errorf("starting headless browser: %w", err)
			b.cancel()
			b.allocCancel()
		}
	})
	return b.startErr
}

// Get implements Transport.Get by navigating a fresh tab to url.
func (b *BrowserTransport) Get(ctx context.Context, url string) (*Response, error) {
	if err := b.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}
	if err := b.start(); err != nil {
		return nil, err
	}

	tabCtx, cancelTab := chromedp.NewContext(b.browserCtx)
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, b.timeout)
	defer cancelTimeout()
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	if err := chromedp.Run(tabCtx,
		emulation.SetUserAgentOverride(b.userAgent()).WithAcceptLanguage("en-GB,en;q=0.9"),
	); err != nil {
		return nil, b.wrapErr(ctx, "setting user agent", err)
	}

	resp, err := chromedp.RunResponse(tabCtx, chromedp.Navigate(url))
	if err != nil {
		return nil, b.wrapErr(ctx, "navigating", err)
	}

	var contentType, body string
	if err := chromedp.Run(tabCtx, chromedp.Evaluate(`document.contentType`, &contentType)); err != nil {
		return nil, b.wrapErr(ctx, "reading content type", err)
	}

	if strings.Contains(contentType, "json") {
		err = chromedp.Run(tabCtx,
			chromedp.Evaluate(`document.body ? document.body.innerText : ""`, &body),
		)
	} else {
		err = chromedp.Run(tabCtx, chromedp.OuterHTML("html", &body, chromedp.ByQuery))
	}
	if err != nil {
		return nil, b.wrapErr(ctx, "reading document", err)
	}

	return &Response{
		StatusCode: responseStatus(resp),
		Header:     http.Header{"Content-Type": []string{contentType}},
		Body:       []byte(body),
	}, nil
}

// Close shuts down the browser, if it was started.
func (b *BrowserTransport) Close() {
	if b.cancel != nil {
		b.cancel()
	}
	if b.allocCancel != nil {
		b.allocCancel()
	}
}

func (*BrowserTransport) wrapErr(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		return fmt.Errorf("browser %s: %w", op, errors.Join(err, ctxErr))
	}
	return fmt.Errorf("browser %s: %w", op, err)
}

func responseStatus(resp *network.Response) int {
	if resp == nil {
		return http.StatusOK
	}
	return int(resp.Status)
}
