package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/FranksOps/sovgauge/pkg/httpclient"
)

// DefaultTavilyURL is the public Tavily API root.
const DefaultTavilyURL = "https://api.tavily.com"

// TavilyConfig configures the Tavily search API client.
type TavilyConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	// Depth is "basic" or "advanced"; advanced costs two API credits.
	Depth string
}

// Tavily implements Provider against the Tavily search API.
type Tavily struct {
	apiKey  string
	baseURL string
	depth   string
	client  *httpclient.Client
}

var _ Provider = (*Tavily)(nil)

type tavilyRequest struct {
	Query             string `json:"query"`
	MaxResults        int    `json:"max_results"`
	SearchDepth       string `json:"search_depth"`
	IncludeRawContent bool   `json:"include_raw_content"`
}

type tavilyResponse struct {
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// NewTavily builds a client. The API key is required.
func NewTavily(cfg TavilyConfig) (*Tavily, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("tavily: api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultTavilyURL
	}
	if cfg.Depth == "" {
		cfg.Depth = "basic"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 20 * time.Second
	}

	client, err := httpclient.New(httpclient.Config{Timeout: cfg.Timeout, MaxRedirects: 3})
	if err != nil {
		return nil, fmt.Errorf("tavily: %w", err)
	}

	return &Tavily{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		depth:   cfg.Depth,
		client:  client,
	}, nil
}

// Name implements Provider.
func (t *Tavily) Name() string { return "tavily" }

// Search implements Provider.
func (t *Tavily) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if limit < 0 {
		return nil, fmt.Errorf("tavily: limit cannot be negative: %d", limit)
	}

	req := tavilyRequest{
		Query:       query,
		MaxResults:  limit,
		SearchDepth: t.depth,
	}
	header := http.Header{"Authorization": {"Bearer " + t.apiKey}}

	var resp tavilyResponse
	if err := t.client.PostJSON(ctx, t.baseURL+"/search", header, req, &resp); err != nil {
		return nil, fmt.Errorf("tavily search %q: %w", query, err)
	}

	results := make([]Result, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, Result{
			Title:   r.Title,
			URL:     r.URL,
			Content: r.Content,
			Score:   r.Score,
		})
	}
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
