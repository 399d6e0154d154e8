package scanner

import (
	"context"
	"sync"

	"github.com/bennert/crypto-scanner/internal/indicator"
	"github.com/bennert/crypto-scanner/internal/metrics"
	"github.com/bennert/crypto-scanner/internal/models"
)

// ProbeFunc cheaply reports the newest known bar-close timestamp for a
// key without fetching candles. ok is false when no fresh information is
// available, forcing a full fetch.
type ProbeFunc func(ctx context.Context) (closedAt int64, ok bool)

// FetchFunc loads the closed-candle series for a key.
type FetchFunc func(ctx context.Context) ([]models.Candle, error)

type cacheKey struct {
	pair      string
	timeframe int
}

// Cache deduplicates snapshot computation across chats. Per (pair,
// timeframe) it retains only the snapshot of the newest closed bar; it is
// not a time series store. Calls for the same key are serialized, calls
// for different keys proceed independently.
type Cache struct {
	pipeline *indicator.Pipeline

	mu      sync.Mutex
	locks   map[cacheKey]*sync.Mutex
	entries map[cacheKey]*models.Snapshot
}

func NewCache(pipeline *indicator.Pipeline) *Cache {
	return &Cache{
		pipeline: pipeline,
		locks:    make(map[cacheKey]*sync.Mutex),
		entries:  make(map[cacheKey]*models.Snapshot),
	}
}

func (c *Cache) keyLock(key cacheKey) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[key]
	if !ok {
		l = &sync.Mutex{}
		c.locks[key] = l
	}
	return l
}

func (c *Cache) entry(key cacheKey) *models.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[key]
}

func (c *Cache) storeIfNewer(key cacheKey, snap *models.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.entries[key]; ok && prev.ClosedAt >= snap.ClosedAt {
		return
	}
	c.entries[key] = snap
}

// GetOrCompute returns the snapshot of the newest closed bar for (pair,
// timeframe). When the cached entry is already at the bar-close the probe
// reports, it is returned without fetching candles. Otherwise fetch runs
// and the pipeline computes a new snapshot, which replaces the entry only
// if it is newer than the cached one. On fetch failure nothing is written.
//
// Snapshots are computed with the default StochRSI floor; per-chat floors
// are applied at classification time so entries stay shareable.
func (c *Cache) GetOrCompute(ctx context.Context, pair string, timeframe int, probe ProbeFunc, fetch FetchFunc) (*models.Snapshot, error) {
	key := cacheKey{pair: pair, timeframe: timeframe}
	l := c.keyLock(key)
	l.Lock()
	defer l.Unlock()

	if cached := c.entry(key); cached != nil && probe != nil {
		if closedAt, ok := probe(ctx); ok && closedAt == cached.ClosedAt {
			metrics.CacheHits.Inc()
			return cached, nil
		}
	}

	candles, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	latest := models.LastTimestamp(candles)
	if cached := c.entry(key); cached != nil && cached.ClosedAt == latest {
		// fetched series ends at the bar we already computed
		metrics.CacheHits.Inc()
		return cached, nil
	}

	metrics.CacheMisses.Inc()
	snap, err := c.pipeline.Compute(candles, models.DefaultMinStochRSI)
	if err != nil {
		return nil, err
	}
	snap.Pair = pair
	snap.Timeframe = timeframe
	c.storeIfNewer(key, snap)
	return snap, nil
}

// Evict drops the cached entry for a key. Used by tests and by manual
// pair list refreshes.
func (c *Cache) Evict(pair string, timeframe int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, cacheKey{pair: pair, timeframe: timeframe})
}
