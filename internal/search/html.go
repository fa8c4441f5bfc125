package search

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/FranksOps/sovgauge/internal/scraper"
)

// DefaultDuckDuckGoURL is the JavaScript-free DuckDuckGo results endpoint.
const DefaultDuckDuckGoURL = "https://html.duckduckgo.com/html/"

// ErrDisallowed is returned when robots.txt forbids the results page.
var ErrDisallowed = errors.New("search: disallowed by robots.txt")

// BlockedError reports a bot challenge served instead of results.
type BlockedError struct {
	Vendor string
	Status int
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("search: blocked by %s (status %d)", e.Vendor, e.Status)
}

// DuckDuckGo implements Provider by scraping the HTML results page.
// It needs no API key.
type DuckDuckGo struct {
	fetcher *scraper.Fetcher
	robots  *scraper.RobotsGate
	baseURL string
}

var _ Provider = (*DuckDuckGo)(nil)

// NewDuckDuckGo builds a provider. A nil robots gate skips robots.txt checks;
// an empty baseURL selects DefaultDuckDuckGoURL.
func NewDuckDuckGo(fetcher *scraper.Fetcher, robots *scraper.RobotsGate, baseURL string) (*DuckDuckGo, error) {
	if fetcher == nil {
		return nil, errors.New("duckduckgo: fetcher is required")
	}
	if baseURL == "" {
		baseURL = DefaultDuckDuckGoURL
	}
	return &DuckDuckGo{fetcher: fetcher, robots: robots, baseURL: baseURL}, nil
}

// Name implements Provider.
func (d *DuckDuckGo) Name() string { return "duckduckgo" }

// Search implements Provider. Results are scored by rank, 1.0 for the first.
func (d *DuckDuckGo) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if limit < 0 {
		return nil, fmt.Errorf("duckduckgo: limit cannot be negative: %d", limit)
	}

	target := d.baseURL + "?" + url.Values{"q": {query}}.Encode()

	if d.robots != nil {
		ok, err := d.robots.Allowed(ctx, target)
		if err != nil {
			return nil, fmt.Errorf("duckduckgo: %w", err)
		}
		if !ok {
			return nil, ErrDisallowed
		}
	}

	page, err := d.fetcher.Fetch(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo search %q: %w", query, err)
	}
	if page.Blocked() {
		return nil, &BlockedError{Vendor: page.BlockedBy, Status: page.StatusCode}
	}
	if page.StatusCode != 200 {
		return nil, fmt.Errorf("duckduckgo search %q: unexpected status %d", query, page.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, fmt.Errorf("duckduckgo: parse results: %w", err)
	}
	return parseResults(doc, limit), nil
}

func parseResults(doc *goquery.Document, limit int) []Result {
	var results []Result
	doc.Find(".result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if limit > 0 && len(results) >= limit {
			return false
		}
		if s.HasClass("result--ad") {
			return true
		}
		link := s.Find("a.result__a").First()
		href, ok := link.Attr("href")
		if !ok {
			return true
		}
		target := resolveRedirect(href)
		if target == "" {
			return true
		}
		results = append(results, Result{
			Title:   strings.TrimSpace(link.Text()),
			URL:     target,
			Content: strings.TrimSpace(s.Find(".result__snippet").First().Text()),
		})
		return true
	})

	n := len(results)
	for i := range results {
		results[i].Score = 1 - float64(i)/float64(n)
	}
	return results
}

// resolveRedirect unwraps DuckDuckGo's /l/?uddg= click-tracking links.
func resolveRedirect(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if dest := u.Query().Get("uddg"); dest != "" {
		return dest
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}
