package catalog

import (
	"context"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"
)

type CacheMetrics struct {
	Hits          prometheus.Counter
	Misses        prometheus.Counter
	Invalidations prometheus.Counter
}

func NewCacheMetrics(reg prometheus.Registerer) *CacheMetrics {
	m := &CacheMetrics{
		Hits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catalog_stats_cache_hits_total",
			Help: "Stats requests served from cache",
		}),
		Misses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catalog_stats_cache_misses_total",
			Help: "Stats requests that recomputed the aggregate",
		}),
		Invalidations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catalog_stats_cache_invalidations_total",
			Help: "Change notifications that cleared the stats cache",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.Hits, m.Misses, m.Invalidations)
	}
	return m
}

type statsEntry struct {
	stats  Stats
	signal Signal
}

// StatsCache serves the aggregate computed against the current change
// signal. Every Get re-checks the signal, so a missed Invalidate only costs
// a stat call, never a stale answer.
type StatsCache struct {
	store    Store
	detector Detector
	metrics  *CacheMetrics

	mu    sync.RWMutex
	entry *statsEntry

	group singleflight.Group
}

func NewStatsCache(store Store, detector Detector, metrics *CacheMetrics) *StatsCache {
	if metrics == nil {
		metrics = NewCacheMetrics(nil)
	}
	return &StatsCache{store: store, detector: detector, metrics: metrics}
}

func (c *StatsCache) Get(ctx context.Context) (Stats, error) {
	sig, err := c.detector.CurrentSignal(ctx)
	if err != nil {
		return Stats{}, err
	}

	if st, ok := c.lookup(sig); ok {
		c.metrics.Hits.Inc()
		return st, nil
	}

	// Keyed by signal so a caller never joins a recompute started against
	// an older version of the data. The shared read is detached from the
	// leader's cancellation; each caller still stops waiting on its own ctx.
	key := strconv.FormatInt(sig.ModTime, 10) + ":" + strconv.FormatInt(sig.Size, 10)
	ch := c.group.DoChan(key, func() (any, error) {
		return c.recompute(context.WithoutCancel(ctx), sig)
	})

	select {
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Stats{}, res.Err
		}
		return res.Val.(Stats), nil
	}
}

// Invalidate drops the cached entry. It is the push-mode callback.
func (c *StatsCache) Invalidate() {
	c.mu.Lock()
	c.entry = nil
	c.mu.Unlock()
	c.metrics.Invalidations.Inc()
}

func (c *StatsCache) lookup(sig Signal) (Stats, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.entry == nil || c.entry.signal != sig {
		return Stats{}, false
	}
	return c.entry.stats, true
}

// recompute is called with a signal read before the data. If a write lands
// in between, the entry is filed under the older signal and the next Get
// recomputes.
func (c *StatsCache) recompute(ctx context.Context, sig Signal) (Stats, error) {
	if st, ok := c.lookup(sig); ok {
		c.metrics.Hits.Inc()
		return st, nil
	}

	c.metrics.Misses.Inc()

	items, err := c.store.ReadAll(ctx)
	if err != nil {
		return Stats{}, err
	}
	st := ComputeStats(items)

	c.mu.Lock()
	c.entry = &statsEntry{stats: st, signal: sig}
	c.mu.Unlock()

	return st, nil
}
