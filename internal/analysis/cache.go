package analysis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dgraph-io/ristretto/v2"
)

// CachedLinter memoizes another linter's findings in a ristretto cache.
// Entries are keyed by dictionary generation, scope and text, so adding a
// word makes every earlier entry unreachable.
type CachedLinter struct {
	next  Linter
	cache *ristretto.Cache[string, []Finding]
}

var _ Linter = (*CachedLinter)(nil)

// NewCachedLinter wraps next with a cache holding up to maxCost bytes of
// linted text.
func NewCachedLinter(next Linter, maxCost int64) (*CachedLinter, error) {
	if maxCost <= 0 {
		return nil, fmt.Errorf("cache size must be positive, got %d", maxCost)
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, []Finding]{
		NumCounters: max(maxCost/100*10, 1000),
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create lint cache: %w", err)
	}
	return &CachedLinter{next: next, cache: c}, nil
}

func cacheKey(in Input) string {
	return strconv.FormatUint(in.Generation, 10) + "\x00" + in.Scope + "\x00" + in.Text
}

// Lint returns cached findings when available.
func (c *CachedLinter) Lint(ctx context.Context, in Input) []Finding {
	key := cacheKey(in)
	if findings, ok := c.cache.Get(key); ok {
		return cloneFindings(findings)
	}

	findings := c.next.Lint(ctx, in)
	if ctx.Err() != nil {
		return findings
	}
	c.cache.Set(key, cloneFindings(findings), int64(len(in.Text)+1))
	return findings
}

// Wait blocks until pending cache writes are applied.
func (c *CachedLinter) Wait() {
	c.cache.Wait()
}

// Clear drops every entry.
func (c *CachedLinter) Clear() {
	c.cache.Clear()
}

// Close releases the cache.
func (c *CachedLinter) Close() {
	c.cache.Close()
}

func cloneFindings(in []Finding) []Finding {
	if in == nil {
		return nil
	}
	out := make([]Finding, len(in))
	copy(out, in)
	return out
}
