package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/FranksOps/sovgauge/internal/analyzer"
	"github.com/FranksOps/sovgauge/internal/config"
	"github.com/FranksOps/sovgauge/internal/enricher"
	"github.com/FranksOps/sovgauge/internal/fingerprint"
	"github.com/FranksOps/sovgauge/internal/inference"
	"github.com/FranksOps/sovgauge/internal/metrics"
	"github.com/FranksOps/sovgauge/internal/pipeline"
	"github.com/FranksOps/sovgauge/internal/retriever"
	"github.com/FranksOps/sovgauge/internal/scraper"
	"github.com/FranksOps/sovgauge/internal/search"
	"github.com/FranksOps/sovgauge/internal/server"
	"github.com/FranksOps/sovgauge/pkg/ratelimit"
	"github.com/FranksOps/sovgauge/pkg/useragent"
)

// App is the composed process: one budget per external service, shared by
// every run for the life of the process.
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Pipeline  *pipeline.Pipeline
	Inference server.Service
	Search    server.Service
}

// Build wires the pipeline from cfg. Missing inference credentials disable
// the inference attempt; missing search credentials are an error.
func Build(cfg *config.Config, logger *slog.Logger, opts ...ratelimit.Option) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	inferenceBudget := ratelimit.NewBudget(cfg.Inference.Limits.PerMinute, cfg.Inference.Limits.PerDay, opts...)
	searchBudget := ratelimit.NewBudget(cfg.Search.Limits.PerMinute, cfg.Search.Limits.PerDay, opts...)

	provider, label, err := newSearchProvider(cfg, logger)
	if err != nil {
		return nil, err
	}

	var llm inference.Provider
	if cfg.Inference.APIKey != "" {
		client, err := inference.NewChatClient(inference.Config{
			APIKey:      cfg.Inference.APIKey,
			BaseURL:     cfg.Inference.BaseURL,
			Model:       cfg.Inference.Model,
			Temperature: cfg.Inference.Temperature,
			Timeout:     cfg.Inference.Timeout,
			MaxRetries:  cfg.Inference.MaxRetries,
		})
		if err != nil {
			return nil, err
		}
		llm = client
	}

	ret := retriever.New(provider, searchBudget, retriever.Config{
		PerQuery:     cfg.Search.PerQuery,
		MaxDocuments: cfg.Search.MaxDocuments,
		Pause:        cfg.Search.Pause,
	},
		retriever.WithCache(search.NewResultCache(cfg.Search.CacheSize, cfg.Search.CacheTTL)),
		retriever.WithLogger(logger),
	)

	kw := cfg.AnalyzerKeywords()
	scorer, err := analyzer.NewScorer(cfg.Enrich.Sentiment, kw)
	if err != nil {
		return nil, err
	}
	an := analyzer.New(kw, scorer)
	enr := enricher.New(an, llm, inferenceBudget, enricher.Config{
		BatchSize: cfg.Enrich.BatchSize,
		Pause:     cfg.Enrich.Pause,
	}, enricher.WithLogger(logger))

	app := &App{
		Config: cfg,
		Logger: logger,
		Pipeline: &pipeline.Pipeline{
			Retriever:   ret,
			Enricher:    enr,
			Competitors: an.Competitors(),
			Logger:      logger,
		},
		Inference: server.Service{Name: "gemini", Label: "Gemini", Budget: inferenceBudget},
		Search:    server.Service{Name: provider.Name(), Label: label, Budget: searchBudget},
	}
	metrics.SetRemaining(app.Inference.Name, inferenceBudget.Remaining())
	metrics.SetRemaining(app.Search.Name, searchBudget.Remaining())
	return app, nil
}

func newSearchProvider(cfg *config.Config, logger *slog.Logger) (search.Provider, string, error) {
	switch cfg.Search.Provider {
	case config.ProviderTavily:
		if cfg.Search.APIKey == "" {
			return nil, "", errors.New("TAVILY_API_KEY is required for the tavily search provider")
		}
		tv, err := search.NewTavily(search.TavilyConfig{
			APIKey:  cfg.Search.APIKey,
			BaseURL: cfg.Search.BaseURL,
			Timeout: cfg.Search.Timeout,
			Depth:   cfg.Search.Depth,
		})
		return tv, "Tavily", err

	case config.ProviderDuckDuckGo:
		profile, err := fingerprint.ParseProfile(cfg.Search.Fingerprint)
		if err != nil {
			return nil, "", err
		}
		fetcher, err := scraper.NewFetcher(scraper.FetchConfig{
			Timeout:      cfg.Search.Timeout,
			UseCookieJar: true,
			UAPool:       useragent.NewPool(cfg.Search.UserAgents),
			Fingerprint:  profile,
			HostInterval: cfg.Search.HostInterval,
			Logger:       logger,
		})
		if err != nil {
			return nil, "", err
		}
		gate := scraper.NewRobotsGate(fetcher, cfg.Search.RobotsAgent, logger)
		ddg, err := search.NewDuckDuckGo(fetcher, gate, cfg.Search.BaseURL)
		return ddg, "DuckDuckGo", err

	default:
		return nil, "", fmt.Errorf("unknown search provider %q", cfg.Search.Provider)
	}
}
