package search

import "context"

// Result is a single hit returned by a search provider.
type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// Provider abstracts a web search backend. Implementations may call an
// official API or scrape a results page. The limit parameter caps the number
// of results returned.
type Provider interface {
	Search(ctx context.Context, query string, limit int) ([]Result, error)
	Name() string
}
