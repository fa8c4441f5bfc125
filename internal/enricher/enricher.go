package enricher

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/FranksOps/sovgauge/internal/analyzer"
	"github.com/FranksOps/sovgauge/internal/inference"
	"github.com/FranksOps/sovgauge/internal/metrics"
	"github.com/FranksOps/sovgauge/internal/models"
	"github.com/FranksOps/sovgauge/pkg/ratelimit"
)

const (
	promptHeader   = "For each result below give JSON with brands & sentiment.\n"
	promptSep      = "\n---\n"
	contentPreview = 500
)

// Config tunes enrichment. Zero values select the defaults.
type Config struct {
	BatchSize int           // default 5
	Pause     time.Duration // pause after every batch, default 1s
}

// Enricher attaches a ManualAnalysis to every document and makes one
// best-effort inference call per batch. The inference response is discarded.
type Enricher struct {
	analyzer *analyzer.Analyzer
	provider inference.Provider
	budget   *ratelimit.Budget
	sleep    ratelimit.SleepFunc
	logger   *slog.Logger
	cfg      Config
}

// Option customizes an Enricher.
type Option func(*Enricher)

// WithSleep replaces the blocking sleep, mainly for tests.
func WithSleep(s ratelimit.SleepFunc) Option {
	return func(e *Enricher) { e.sleep = s }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Enricher) { e.logger = l }
}

// New builds an Enricher. A nil provider disables the inference attempt.
func New(a *analyzer.Analyzer, provider inference.Provider, budget *ratelimit.Budget, cfg Config, opts ...Option) *Enricher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 5
	}
	if cfg.Pause == 0 {
		cfg.Pause = time.Second
	}
	e := &Enricher{
		analyzer: a,
		provider: provider,
		budget:   budget,
		sleep:    ratelimit.Sleep,
		logger:   slog.Default(),
		cfg:      cfg,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "enricher")
	if provider == nil {
		e.logger.Info("no inference provider configured, using manual analysis only")
	}
	return e
}

// Enrich returns a copy of docs with Manual set on each, in the same order.
// The only error returned is ctx's.
func (e *Enricher) Enrich(ctx context.Context, docs []models.Document) ([]models.Document, error) {
	out := make([]models.Document, 0, len(docs))

	for i, batch := range Batches(docs, e.cfg.BatchSize) {
		if err := e.infer(ctx, i, batch); err != nil {
			return nil, err
		}

		for _, d := range batch {
			m := e.analyzer.Analyze(d)
			d.Manual = &m
			out = append(out, d)
		}

		if err := e.sleep(ctx, e.cfg.Pause); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// infer makes the advisory inference call for one batch. Failures are logged
// and swallowed; only context errors propagate.
func (e *Enricher) infer(ctx context.Context, index int, batch []models.Document) error {
	if e.provider == nil {
		return nil
	}
	service := e.provider.Name()

	waited, err := e.budget.Await(ctx, e.sleep)
	metrics.RecordWait(service, waited)
	if ratelimit.Exhausted(err) {
		metrics.RecordCall(service, metrics.OutcomeSkipped)
		e.logger.Warn("inference budget exhausted, skipping batch", "batch", index, "err", err)
		return nil
	}
	if err != nil {
		return err
	}

	resp, err := e.provider.Complete(ctx, BuildPrompt(batch))
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		metrics.RecordCall(service, metrics.OutcomeError)
		e.logger.Error("inference failed, falling back to manual analysis", "batch", index, "err", err)
		return nil
	}
	e.budget.RecordCall()
	metrics.RecordCall(service, metrics.OutcomeOK)
	metrics.SetRemaining(service, e.budget.Remaining())
	e.logger.Debug("inference ok", "batch", index, "response_bytes", len(resp))
	return nil
}

// Batches splits docs into consecutive slices of at most size elements.
func Batches(docs []models.Document, size int) [][]models.Document {
	if size <= 0 {
		size = 1
	}
	var out [][]models.Document
	for start := 0; start < len(docs); start += size {
		end := min(start+size, len(docs))
		out = append(out, docs[start:end])
	}
	return out
}

// BuildPrompt formats a batch for the inference call: each document's title
// and the first 500 characters of its content.
func BuildPrompt(batch []models.Document) string {
	parts := make([]string, 0, len(batch))
	for _, d := range batch {
		parts = append(parts, fmt.Sprintf("Title: %s\nContent: %s...", d.Title, truncate(d.Content, contentPreview)))
	}
	return promptHeader + strings.Join(parts, promptSep)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
