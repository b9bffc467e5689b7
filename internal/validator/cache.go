package validator

import (
	"context"
	"strings"
	"sync"
	"time"

	"krishi-web/internal/models"
)

// ResultCache memoizes RecordResults. Clearing it never changes a
// validation outcome, only how much work the next batch repeats.
type ResultCache struct {
	mu      sync.RWMutex
	entries map[string]RecordResult
}

func NewResultCache() *ResultCache {
	return &ResultCache{entries: make(map[string]RecordResult)}
}

// cacheKeySep cannot appear in a value that passes the rules, and keeps
// "a|b"+"c" apart from "a"+"b|c".
const cacheKeySep = "\x1f"

// CacheKey covers every field ValidateRecord reads, so two records share a
// key only when they get the same verdict.
func CacheKey(r models.HierarchyRecord) string {
	return strings.Join([]string{
		strings.TrimSpace(r.DistrictName),
		strings.TrimSpace(r.Level4Name),
		strings.TrimSpace(r.Level5Name),
		strings.TrimSpace(r.VillageCode),
		strings.TrimSpace(r.VillageName),
		strings.TrimSpace(r.Level6Code),
	}, cacheKeySep)
}

func (c *ResultCache) Get(key string) (RecordResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.entries[key]
	return r, ok
}

func (c *ResultCache) Put(key string, result RecordResult) {
	c.mu.Lock()
	c.entries[key] = result
	c.mu.Unlock()
}

func (c *ResultCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *ResultCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]RecordResult)
	c.mu.Unlock()
}

// ClearOn empties the cache every time tick fires, until ctx is done or
// tick is closed. It blocks; run it in its own goroutine.
func (c *ResultCache) ClearOn(ctx context.Context, tick <-chan time.Time) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-tick:
			if !ok {
				return
			}
			c.Clear()
		}
	}
}

// ClearEvery starts a background goroutine clearing the cache at interval.
func (c *ResultCache) ClearEvery(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		c.ClearOn(ctx, ticker.C)
	}()
}
