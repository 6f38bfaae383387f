package understat

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// UserAgent is sent with every upstream request.
const UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Fetcher retrieves the raw body of a page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher fetches pages with a plain HTTP client.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher creates a fetcher with the given request timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{client: &http.Client{Timeout: timeout}}
}

// Fetch performs a GET request and returns the body of a 2xx response.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode, Body: string(body[:min(len(body), 200)])}
	}
	return body, nil
}

// BrowserFetcher renders pages in headless Chrome. Used when the plain HTTP
// client is blocked upstream.
type BrowserFetcher struct {
	allocCtx context.Context
	cancel   context.CancelFunc
	timeout  time.Duration
}

// NewBrowserFetcher starts a headless Chrome allocator.
func NewBrowserFetcher(timeout time.Duration) *BrowserFetcher {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(UserAgent),
	)
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &BrowserFetcher{
		allocCtx: allocCtx,
		cancel:   cancel,
		timeout:  timeout,
	}
}

// Close releases the browser allocator.
func (f *BrowserFetcher) Close() {
	if f.cancel != nil {
		f.cancel()
	}
}

// Fetch navigates to url and returns the rendered document.
func (f *BrowserFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	browserCtx, cancel := chromedp.NewContext(f.allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, f.timeout)
	defer cancel()

	// Tie the browser tab to the caller's context as well.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady(`body`, chromedp.ByQuery),
		chromedp.OuterHTML(`html`, &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("chromedp error: %w", err)
	}
	if html == "" {
		return nil, fmt.Errorf("empty HTML content returned")
	}
	return []byte(html), nil
}

// PageStore is the key/value store backing CachingFetcher.
type PageStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// CachingFetcher keeps raw pages in a PageStore for ttl. Store failures are
// logged and never fail the fetch.
type CachingFetcher struct {
	next   Fetcher
	store  PageStore
	ttl    time.Duration
	logger log.Logger
}

// NewCachingFetcher wraps next with a page cache.
func NewCachingFetcher(next Fetcher, store PageStore, ttl time.Duration, logger log.Logger) *CachingFetcher {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &CachingFetcher{
		next:   next,
		store:  store,
		ttl:    ttl,
		logger: log.With(logger, "component", "page-cache"),
	}
}

// CacheKey is the store key for a page URL.
func CacheKey(url string) string {
	return "understat:page:" + url
}

// Fetch returns the cached page or fetches and stores it.
func (f *CachingFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	key := CacheKey(url)
	if cached, err := f.store.Get(ctx, key); err == nil && cached != "" {
		level.Debug(f.logger).Log("msg", "cache hit", "key", key)
		return []byte(cached), nil
	}

	body, err := f.next.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	if err := f.store.Set(ctx, key, body, f.ttl); err != nil {
		level.Warn(f.logger).Log("msg", "failed to cache page", "key", key, "err", err)
	}
	return body, nil
}
