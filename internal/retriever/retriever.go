package retriever

import (
	"context"
	"log/slog"
	"time"

	"github.com/FranksOps/sovgauge/internal/metrics"
	"github.com/FranksOps/sovgauge/internal/models"
	"github.com/FranksOps/sovgauge/internal/search"
	"github.com/FranksOps/sovgauge/pkg/ratelimit"
)

// Config tunes retrieval. Zero values select the defaults.
type Config struct {
	PerQuery     int           // results requested per variant, default 8
	MaxDocuments int           // cap after dedup, default 20
	Pause        time.Duration // pause after each successful call, default 500ms
}

func (c Config) withDefaults() Config {
	if c.PerQuery <= 0 {
		c.PerQuery = 8
	}
	if c.MaxDocuments <= 0 {
		c.MaxDocuments = 20
	}
	if c.Pause == 0 {
		c.Pause = 500 * time.Millisecond
	}
	return c
}

// Retriever runs the query variants against a search provider under a
// shared rate budget.
type Retriever struct {
	provider search.Provider
	budget   *ratelimit.Budget
	cache    *search.ResultCache
	sleep    ratelimit.SleepFunc
	logger   *slog.Logger
	cfg      Config
}

// Option customizes a Retriever.
type Option func(*Retriever)

// WithCache consults c before spending budget.
func WithCache(c *search.ResultCache) Option {
	return func(r *Retriever) { r.cache = c }
}

// WithSleep replaces the blocking sleep, mainly for tests.
func WithSleep(s ratelimit.SleepFunc) Option {
	return func(r *Retriever) { r.sleep = s }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Retriever) { r.logger = l }
}

// New builds a Retriever.
func New(provider search.Provider, budget *ratelimit.Budget, cfg Config, opts ...Option) *Retriever {
	r := &Retriever{
		provider: provider,
		budget:   budget,
		sleep:    ratelimit.Sleep,
		logger:   slog.Default(),
		cfg:      cfg.withDefaults(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "retriever", "provider", provider.Name())
	return r
}

// Variants returns the fixed query variants for q, in call order.
func Variants(q string) []string {
	return []string{q, q + " review 2024", "best " + q}
}

// Retrieve searches every variant of query and returns the merged,
// deduplicated documents. Failed or budget-skipped variants contribute
// nothing. The only error returned is ctx's.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]models.Document, error) {
	var docs []models.Document
	service := r.provider.Name()

	for _, variant := range Variants(query) {
		if cached, ok := r.cache.Get(service, variant, r.cfg.PerQuery); ok {
			metrics.RecordCall(service, metrics.OutcomeCached)
			r.logger.Debug("search cache hit", "variant", variant, "results", len(cached))
			docs = append(docs, toDocuments(cached, variant)...)
			continue
		}

		waited, err := r.budget.Await(ctx, r.sleep)
		metrics.RecordWait(service, waited)
		if ratelimit.Exhausted(err) {
			metrics.RecordCall(service, metrics.OutcomeSkipped)
			r.logger.Warn("search budget exhausted, skipping variant", "variant", variant, "err", err)
			continue
		}
		if err != nil {
			return nil, err
		}

		results, err := r.provider.Search(ctx, variant, r.cfg.PerQuery)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			metrics.RecordCall(service, metrics.OutcomeError)
			r.logger.Error("search failed", "variant", variant, "err", err)
			continue
		}
		r.budget.RecordCall()
		metrics.RecordCall(service, metrics.OutcomeOK)
		metrics.SetRemaining(service, r.budget.Remaining())
		r.cache.Add(service, variant, r.cfg.PerQuery, results)

		r.logger.Info("search ok", "variant", variant, "results", len(results))
		docs = append(docs, toDocuments(results, variant)...)

		if err := r.sleep(ctx, r.cfg.Pause); err != nil {
			return nil, err
		}
	}

	docs = Dedupe(docs)
	if len(docs) > r.cfg.MaxDocuments {
		docs = docs[:r.cfg.MaxDocuments]
	}
	metrics.DocumentsRetrieved.Add(float64(len(docs)))
	return docs, nil
}

// Dedupe drops documents whose URL was already seen, keeping the first
// occurrence and the original order.
func Dedupe(docs []models.Document) []models.Document {
	seen := make(map[string]struct{}, len(docs))
	out := make([]models.Document, 0, len(docs))
	for _, d := range docs {
		if _, ok := seen[d.URL]; ok {
			continue
		}
		seen[d.URL] = struct{}{}
		out = append(out, d)
	}
	return out
}

func toDocuments(results []search.Result, variant string) []models.Document {
	docs := make([]models.Document, 0, len(results))
	for _, res := range results {
		docs = append(docs, models.Document{
			Title:       res.Title,
			URL:         res.URL,
			Content:     res.Content,
			Score:       res.Score,
			SourceQuery: variant,
		})
	}
	return docs
}
