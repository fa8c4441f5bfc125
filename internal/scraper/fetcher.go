package scraper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/FranksOps/sovgauge/internal/bypass"
	"github.com/FranksOps/sovgauge/internal/fingerprint"
	"github.com/FranksOps/sovgauge/internal/metrics"
	"github.com/FranksOps/sovgauge/pkg/httpclient"
	"github.com/FranksOps/sovgauge/pkg/ratelimit"
	"github.com/FranksOps/sovgauge/pkg/useragent"
)

const defaultMaxBody = 4 << 20

// FetchConfig configures a Fetcher.
type FetchConfig struct {
	Timeout time.Duration
	// MaxRedirects caps followed redirects. Zero selects 5; negative
	// returns the first redirect response as is.
	MaxRedirects int
	UseCookieJar bool
	UAPool       *useragent.Pool
	Fingerprint  fingerprint.Profile
	// HostInterval spaces consecutive requests to one host. Zero disables it.
	HostInterval time.Duration
	// MaxBodyBytes caps how much of a response body is read.
	MaxBodyBytes int64
	// Transport overrides the fingerprinted transport. Used by tests.
	Transport http.RoundTripper
	Logger    *slog.Logger
}

// Page is a fetched HTTP response.
type Page struct {
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
	Duration   time.Duration
	// BlockedBy names the anti-bot vendor that served a challenge page, if any.
	BlockedBy string
}

// Blocked reports whether the page is a bot challenge.
func (p *Page) Blocked() bool { return p.BlockedBy != "" }

// Fetcher performs single GET requests with a browser-like TLS fingerprint,
// rotating User-Agents and per-host spacing.
type Fetcher struct {
	config  FetchConfig
	client  *httpclient.Client
	limiter *ratelimit.HostLimiter
	logger  *slog.Logger
}

// NewFetcher builds a Fetcher. One client is held for the Fetcher's lifetime
// so connections and cookies are reused.
func NewFetcher(cfg FetchConfig) (*Fetcher, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRedirects == 0 {
		cfg.MaxRedirects = 5
	}
	if cfg.UAPool == nil {
		cfg.UAPool = useragent.NewPool(nil)
	}
	if cfg.Fingerprint == "" {
		cfg.Fingerprint = fingerprint.ProfileGo
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBody
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	transport := cfg.Transport
	if transport == nil {
		var err error
		transport, err = fingerprint.Transport(cfg.Fingerprint, fingerprint.Options{})
		if err != nil {
			return nil, fmt.Errorf("failed to setup transport: %w", err)
		}
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: cfg.MaxRedirects,
		UseCookieJar: cfg.UseCookieJar,
		Transport:    transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &Fetcher{
		config:  cfg,
		client:  client,
		limiter: ratelimit.NewHostLimiter(cfg.HostInterval),
		logger:  cfg.Logger,
	}, nil
}

// Fetch GETs targetURL. Transport failures are returned as errors; any HTTP
// response, including challenge pages, is returned as a Page.
func (f *Fetcher) Fetch(ctx context.Context, targetURL string) (*Page, error) {
	u, err := url.Parse(targetURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}

	if err := f.limiter.Wait(ctx, targetURL); err != nil {
		return nil, fmt.Errorf("host limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.config.UAPool.Next())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	start := time.Now()
	resp, err := f.client.Do(ctx, req)
	if err != nil {
		metrics.RecordFetch(u.Hostname(), 0, "", time.Since(start))
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxBodyBytes))
	if err != nil {
		metrics.RecordFetch(u.Hostname(), 0, "", time.Since(start))
		return nil, fmt.Errorf("read body: %w", err)
	}

	page := &Page{
		URL:        targetURL,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		Duration:   time.Since(start),
	}
	page.BlockedBy, _ = bypass.Analyze(bypass.Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, bypass.DefaultDetectors())

	if page.Blocked() {
		f.logger.Warn("bot challenge detected", "url", targetURL, "status", page.StatusCode, "vendor", page.BlockedBy)
	}
	metrics.RecordFetch(u.Hostname(), page.StatusCode, page.BlockedBy, page.Duration)
	return page, nil
}
