package search

import (
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// ResultCache memoizes search results per query and limit so repeated runs
// within the TTL spend no search budget.
type ResultCache struct {
	lru *expirable.LRU[string, []Result]
}

// NewResultCache returns a cache holding up to size entries for ttl. A size
// <= 0 returns nil, which is a valid always-missing cache.
func NewResultCache(size int, ttl time.Duration) *ResultCache {
	if size <= 0 {
		return nil
	}
	return &ResultCache{lru: expirable.NewLRU[string, []Result](size, nil, ttl)}
}

func cacheKey(provider, query string, limit int) string {
	return provider + "\x00" + strings.ToLower(strings.TrimSpace(query)) + "\x00" + strconv.Itoa(limit)
}

// Get returns a copy of the cached results.
func (c *ResultCache) Get(provider, query string, limit int) ([]Result, bool) {
	if c == nil {
		return nil, false
	}
	res, ok := c.lru.Get(cacheKey(provider, query, limit))
	if !ok {
		return nil, false
	}
	return append([]Result(nil), res...), true
}

// Add stores results.
func (c *ResultCache) Add(provider, query string, limit int, results []Result) {
	if c == nil {
		return
	}
	c.lru.Add(cacheKey(provider, query, limit), append([]Result(nil), results...))
}

// Len reports the number of live entries.
func (c *ResultCache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}
