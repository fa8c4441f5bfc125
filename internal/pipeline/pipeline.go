package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/FranksOps/sovgauge/internal/insight"
	"github.com/FranksOps/sovgauge/internal/metrics"
	"github.com/FranksOps/sovgauge/internal/models"
	"github.com/FranksOps/sovgauge/internal/report"
)

// ErrMissingStage is returned by Run when a required stage is not set.
var ErrMissingStage = errors.New("pipeline: missing stage")

// Retriever produces the documents for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]models.Document, error)
}

// Enricher attaches manual analysis to documents.
type Enricher interface {
	Enrich(ctx context.Context, docs []models.Document) ([]models.Document, error)
}

// State carries one run's query and stage outputs. It is owned by a single
// run and never shared.
type State struct {
	RunID     string
	Query     string
	Documents []models.Document
	Enriched  []models.Document
	Metrics   report.Metrics
	Insights  []string
	StartedAt time.Time
	Elapsed   time.Duration
}

// Report converts the finished state into the caller-facing payload.
func (s *State) Report() report.Report {
	return report.New(s.RunID, s.Query, s.Metrics, s.Insights, s.Elapsed, s.StartedAt.Add(s.Elapsed))
}

// Pipeline orchestrates the four stages of an analysis run: retrieval,
// enrichment, aggregation and insight derivation.
type Pipeline struct {
	Retriever Retriever
	Enricher  Enricher
	// Competitors is the keyword order used to break ranking ties.
	Competitors []string
	Logger      *slog.Logger
}

// Run executes the stages sequentially. Upstream failures are absorbed by the
// stages; Run only fails on a missing stage or a canceled context.
func (p *Pipeline) Run(ctx context.Context, query string) (*State, error) {
	if p.Retriever == nil {
		return nil, fmt.Errorf("%w: retriever", ErrMissingStage)
	}
	if p.Enricher == nil {
		return nil, fmt.Errorf("%w: enricher", ErrMissingStage)
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &State{
		RunID:     uuid.New().String(),
		Query:     query,
		StartedAt: time.Now(),
	}
	logger = logger.With("component", "pipeline", "run_id", s.RunID)
	logger.Info("run started", "query", query)

	err := p.run(ctx, s, logger)
	s.Elapsed = time.Since(s.StartedAt)
	metrics.RecordRun(s.Elapsed, err)
	if err != nil {
		logger.Warn("run aborted", "err", err, "elapsed", s.Elapsed)
		return nil, err
	}

	logger.Info("run finished",
		"docs", s.Metrics.DocsAnalyzed,
		"sov_pct", s.Metrics.SoVPct,
		"insights", len(s.Insights),
		"elapsed", s.Elapsed,
	)
	return s, nil
}

func (p *Pipeline) run(ctx context.Context, s *State, logger *slog.Logger) error {
	docs, err := p.Retriever.Retrieve(ctx, s.Query)
	if err != nil {
		return fmt.Errorf("retrieve: %w", err)
	}
	s.Documents = docs
	logger.Debug("retrieval done", "docs", len(docs))

	enriched, err := p.Enricher.Enrich(ctx, docs)
	if err != nil {
		return fmt.Errorf("enrich: %w", err)
	}
	s.Enriched = enriched

	s.Metrics = report.Aggregate(enriched, p.Competitors)
	s.Insights = insight.Derive(s.Metrics)
	return nil
}
