// Package cache keeps recent analysis results in memory so that replayed or
// duplicate jobs skip the O(N^2) spectral pass.
package cache

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/couchcryptid/water-level-analysis/internal/analysis"
	"github.com/couchcryptid/water-level-analysis/internal/domain"
	"github.com/couchcryptid/water-level-analysis/internal/observability"
)

// CachedAnalyzer wraps an Analyzer with an in-memory LRU cache keyed by the
// content of the series and config.
type CachedAnalyzer struct {
	inner   domain.Analyzer
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedAnalyzer creates a cache decorator around an analyzer.
func NewCachedAnalyzer(inner domain.Analyzer, maxEntries int, metrics *observability.Metrics) *CachedAnalyzer {
	return &CachedAnalyzer{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

// Analyze returns a cached result for identical input, or runs the inner
// analyzer and caches a successful result. Errors are never cached. Every
// result handed out is a private copy, so callers may modify it freely.
func (c *CachedAnalyzer) Analyze(ctx context.Context, samples []domain.Sample, cfg domain.AnalysisConfig) (domain.AnalysisResult, error) {
	key := Key(samples, cfg)
	if result, ok := c.cache.get(key); ok {
		c.metrics.CacheLookups.WithLabelValues("hit").Inc()
		return cloneResult(result), nil
	}
	c.metrics.CacheLookups.WithLabelValues("miss").Inc()

	result, err := c.inner.Analyze(ctx, samples, cfg)
	if err != nil {
		return result, err
	}
	c.cache.put(key, cloneResult(result))
	c.metrics.CacheEntries.Set(float64(c.cache.len()))
	return result, nil
}

// Key hashes the series in sorted order together with every config field, so
// any permutation of the same samples maps to the same key.
func Key(samples []domain.Sample, cfg domain.AnalysisConfig) string {
	h := sha256.New()
	buf := make([]byte, 0, 64)

	buf = append(buf, cfg.TideRemovalMethod...)
	buf = append(buf, 0)
	buf = append(buf, cfg.ConfidenceThreshold...)
	buf = append(buf, 0)
	buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(cfg.ExtremeThreshold))
	buf = appendOptionalTime(buf, cfg.StartTime)
	buf = appendOptionalTime(buf, cfg.EndTime)
	h.Write(buf)

	for _, s := range analysis.SortSamples(samples) {
		buf = buf[:0]
		buf = binary.LittleEndian.AppendUint64(buf, uint64(s.Timestamp.UnixNano()))
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(s.Level))
		buf = binary.LittleEndian.AppendUint64(buf, uint64(int64(s.OriginalIndex)))
		h.Write(buf)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func cloneResult(r domain.AnalysisResult) domain.AnalysisResult {
	r.Decomposition = domain.Decomposition{
		Original:  slices.Clone(r.Decomposition.Original),
		Detrended: slices.Clone(r.Decomposition.Detrended),
		Residual:  slices.Clone(r.Decomposition.Residual),
		Tidal:     slices.Clone(r.Decomposition.Tidal),
	}
	if r.Events != nil {
		events := make([]domain.Event, len(r.Events))
		for i, e := range r.Events {
			e.EndTime = clonePtr(e.EndTime)
			e.Peak = clonePtr(e.Peak)
			e.Amplitude = clonePtr(e.Amplitude)
			e.Period = clonePtr(e.Period)
			e.Properties = slices.Clone(e.Properties)
			events[i] = e
		}
		r.Events = events
	}
	return r
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func appendOptionalTime(buf []byte, t *time.Time) []byte {
	if t == nil {
		return append(buf, 0)
	}
	buf = append(buf, 1)
	return binary.LittleEndian.AppendUint64(buf, uint64(t.UnixNano()))
}

// lruCache is a thread-safe LRU of analysis results. The front of order is
// the most recently used entry.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*list.Element
	order      *list.List
}

type entry struct {
	key   string
	value domain.AnalysisResult
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
	}
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *lruCache) get(key string) (domain.AnalysisResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return domain.AnalysisResult{}, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*entry).value, true
}

func (c *lruCache) put(key string, value domain.AnalysisResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value.(*entry).value = value
		c.order.MoveToFront(el)
		return
	}

	c.entries[key] = c.order.PushFront(&entry{key: key, value: value})
	for c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*entry).key)
	}
}
