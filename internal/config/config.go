// Package config loads sovgauge settings from defaults, an optional YAML file,
// a .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/FranksOps/sovgauge/internal/analyzer"
)

// Search provider names.
const (
	ProviderTavily     = "tavily"
	ProviderDuckDuckGo = "duckduckgo"
)

// Config is the complete application configuration.
type Config struct {
	Inference InferenceConfig `mapstructure:"inference"`
	Search    SearchConfig    `mapstructure:"search"`
	Enrich    EnrichConfig    `mapstructure:"enrich"`
	Keywords  KeywordsConfig  `mapstructure:"keywords"`
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// Limits is a per-minute and per-day call budget.
type Limits struct {
	PerMinute int `mapstructure:"per_minute"`
	PerDay    int `mapstructure:"per_day"`
}

// InferenceConfig configures the OpenAI-compatible inference endpoint.
type InferenceConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxRetries  int           `mapstructure:"max_retries"`
	Limits      Limits        `mapstructure:"limits"`
}

// SearchConfig configures retrieval and the search provider.
type SearchConfig struct {
	Provider     string        `mapstructure:"provider"`
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	Depth        string        `mapstructure:"depth"`
	Timeout      time.Duration `mapstructure:"timeout"`
	Limits       Limits        `mapstructure:"limits"`
	PerQuery     int           `mapstructure:"per_query"`
	MaxDocuments int           `mapstructure:"max_documents"`
	Pause        time.Duration `mapstructure:"pause"`
	CacheSize    int           `mapstructure:"cache_size"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
	// Settings for the HTML provider.
	Fingerprint  string        `mapstructure:"fingerprint"`
	HostInterval time.Duration `mapstructure:"host_interval"`
	RobotsAgent  string        `mapstructure:"robots_agent"`
	UserAgents   []string      `mapstructure:"user_agents"`
}

// EnrichConfig configures batching of inference calls.
type EnrichConfig struct {
	BatchSize int           `mapstructure:"batch_size"`
	Pause     time.Duration `mapstructure:"pause"`
	// Sentiment selects the scorer: "vader" or "lexicon".
	Sentiment string `mapstructure:"sentiment"`
}

// KeywordsConfig holds the brand and competitor term lists.
type KeywordsConfig struct {
	Brand       []string `mapstructure:"brand"`
	Competitors []string `mapstructure:"competitors"`
}

// ServerConfig configures the HTTP service.
type ServerConfig struct {
	Addr         string `mapstructure:"addr"`
	DefaultQuery string `mapstructure:"default_query"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration. cfgFile may be empty, in which case
// sovgauge.yaml is looked up in the working directory and is optional.
// Variables from .env are loaded first without overriding the environment.
func Load(cfgFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("sovgauge")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("SOV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("inference.api_key", "GEMINI_API_KEY", "SOV_INFERENCE_API_KEY")
	_ = v.BindEnv("search.api_key", "TAVILY_API_KEY", "SOV_SEARCH_API_KEY")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("inference.api_key", "")
	v.SetDefault("inference.base_url", "https://generativelanguage.googleapis.com/v1beta/openai/")
	v.SetDefault("inference.model", "gemini-2.5-flash")
	v.SetDefault("inference.temperature", 0.1)
	v.SetDefault("inference.timeout", 60*time.Second)
	v.SetDefault("inference.max_retries", 0)
	v.SetDefault("inference.limits.per_minute", 4)
	v.SetDefault("inference.limits.per_day", 90)

	v.SetDefault("search.provider", ProviderTavily)
	v.SetDefault("search.api_key", "")
	v.SetDefault("search.base_url", "")
	v.SetDefault("search.depth", "basic")
	v.SetDefault("search.timeout", 20*time.Second)
	v.SetDefault("search.limits.per_minute", 90)
	v.SetDefault("search.limits.per_day", 800)
	v.SetDefault("search.per_query", 8)
	v.SetDefault("search.max_documents", 20)
	v.SetDefault("search.pause", 500*time.Millisecond)
	v.SetDefault("search.cache_size", 128)
	v.SetDefault("search.cache_ttl", 15*time.Minute)
	v.SetDefault("search.fingerprint", "go")
	v.SetDefault("search.host_interval", 2*time.Second)
	v.SetDefault("search.robots_agent", "sovgauge")
	v.SetDefault("search.user_agents", []string{})

	v.SetDefault("enrich.batch_size", 5)
	v.SetDefault("enrich.pause", time.Second)
	v.SetDefault("enrich.sentiment", analyzer.ScorerVader)

	v.SetDefault("keywords.brand", analyzer.DefaultBrandKeywords)
	v.SetDefault("keywords.competitors", analyzer.DefaultCompetitorKeywords)

	v.SetDefault("server.addr", ":5000")
	v.SetDefault("server.default_query", "smart fan")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	var errs []error

	check := func(name string, l Limits) {
		if l.PerMinute <= 0 || l.PerDay <= 0 {
			errs = append(errs, fmt.Errorf("%s limits must be positive, got %d/min %d/day", name, l.PerMinute, l.PerDay))
		}
	}
	check("inference", c.Inference.Limits)
	check("search", c.Search.Limits)

	switch c.Search.Provider {
	case ProviderTavily, ProviderDuckDuckGo:
	default:
		errs = append(errs, fmt.Errorf("unknown search provider %q", c.Search.Provider))
	}
	if c.Search.PerQuery <= 0 || c.Search.MaxDocuments <= 0 {
		errs = append(errs, errors.New("search per_query and max_documents must be positive"))
	}
	if c.Inference.MaxRetries < 0 {
		errs = append(errs, errors.New("inference max_retries must not be negative"))
	}
	switch c.Enrich.Sentiment {
	case analyzer.ScorerVader, analyzer.ScorerLexicon:
	default:
		errs = append(errs, fmt.Errorf("unknown sentiment scorer %q", c.Enrich.Sentiment))
	}
	if c.Enrich.BatchSize <= 0 {
		errs = append(errs, errors.New("enrich batch_size must be positive"))
	}
	if len(c.Keywords.Brand) == 0 {
		errs = append(errs, errors.New("at least one brand keyword is required"))
	}
	return errors.Join(errs...)
}

// AnalyzerKeywords converts the keyword settings for the analyzer.
func (c *Config) AnalyzerKeywords() analyzer.Keywords {
	return analyzer.Keywords{
		Brand:       append([]string(nil), c.Keywords.Brand...),
		Competitors: append([]string(nil), c.Keywords.Competitors...),
	}
}
