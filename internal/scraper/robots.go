package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"
)

// RobotsGate answers whether a URL may be fetched under its host's robots.txt.
// Rules are fetched once per host and cached for the gate's lifetime.
type RobotsGate struct {
	fetcher *Fetcher
	agent   string
	logger  *slog.Logger
	mu      sync.Mutex
	cache   map[string]*robotstxt.RobotsData
}

// NewRobotsGate creates a gate that evaluates rules for agent.
func NewRobotsGate(fetcher *Fetcher, agent string, logger *slog.Logger) *RobotsGate {
	if logger == nil {
		logger = slog.Default()
	}
	return &RobotsGate{
		fetcher: fetcher,
		agent:   agent,
		logger:  logger,
		cache:   make(map[string]*robotstxt.RobotsData),
	}
}

// Allowed reports whether targetURL may be fetched. An unreachable or
// unparsable robots.txt allows everything.
func (g *RobotsGate) Allowed(ctx context.Context, targetURL string) (bool, error) {
	u, err := url.Parse(targetURL)
	if err != nil {
		return false, fmt.Errorf("invalid url: %w", err)
	}

	data := g.rules(ctx, u.Scheme+"://"+u.Host)
	if data == nil {
		return true, nil
	}
	return data.TestAgent(u.RequestURI(), g.agent), nil
}

func (g *RobotsGate) rules(ctx context.Context, origin string) *robotstxt.RobotsData {
	g.mu.Lock()
	defer g.mu.Unlock()

	if data, ok := g.cache[origin]; ok {
		return data
	}

	data, err := g.load(ctx, origin)
	if err != nil {
		g.logger.Debug("robots.txt unavailable, allowing", "origin", origin, "err", err)
	}
	g.cache[origin] = data
	return data
}

func (g *RobotsGate) load(ctx context.Context, origin string) (*robotstxt.RobotsData, error) {
	page, err := g.fetcher.Fetch(ctx, origin+"/robots.txt")
	if err != nil {
		return nil, err
	}
	if page.StatusCode >= 400 {
		return nil, nil
	}
	data, err := robotstxt.FromBytes(page.Body)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}
	return data, nil
}
