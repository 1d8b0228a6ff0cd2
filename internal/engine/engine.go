// ABOUTME: Engine bundles the two cache orchestrators and owns the cross-cutting
// ABOUTME: operations: scoped invalidation, eviction, cache stats, and health checks.
package engine

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/intervex/intervex/internal/cache"
)

// CacheStatus reports how a result was produced.
type CacheStatus string

const (
	// StatusHit — served from a live cache entry.
	StatusHit CacheStatus = "hit"
	// StatusMiss — computed and stored.
	StatusMiss CacheStatus = "miss"
	// StatusBypass — computed without the cache because the backend was
	// unreachable. The result is still valid; only caching degraded.
	StatusBypass CacheStatus = "bypass"
)

// evictionFraction is the share of live entries deleted (oldest first) when a
// namespace reaches its configured maximum.
const evictionFraction = 0.20

// Config bounds the cache behavior of both orchestrators.
type Config struct {
	CombinationTTL      time.Duration
	TriggerDefTTL       time.Duration
	TriggerEvalTTL      time.Duration
	MaxEntriesPerPrefix int
}

// Engine is the composition root for the optimization and trigger services.
// Constructed once at process start and passed by reference to consumers;
// Close releases the cache store connection.
type Engine struct {
	Combinations *Combinations
	Triggers     *Triggers

	store   *cache.Store
	metrics *cache.Metrics
	log     *slog.Logger
}

// New wires the engine. questions and triggers are the record-store
// collaborators supplying candidate metadata and trigger definitions.
func New(store *cache.Store, questions QuestionSource, triggers TriggerSource, metrics *cache.Metrics, cfg Config, log *slog.Logger) *Engine {
	return &Engine{
		Combinations: &Combinations{store: store, source: questions, metrics: metrics, cfg: cfg, log: log},
		Triggers:     &Triggers{store: store, source: triggers, metrics: metrics, cfg: cfg, log: log},
		store:        store,
		metrics:      metrics,
		log:          log,
	}
}

// InvalidateBusiness deletes every cached combination, compiled trigger, and
// evaluation result belonging to one business context. Entries of other
// business contexts are never touched: deletion operates on keys found under
// the business-scoped prefixes only.
func (e *Engine) InvalidateBusiness(ctx context.Context, businessID string) (int64, error) {
	var deleted int64
	for _, prefix := range []string{cache.PrefixCombinations, cache.PrefixTriggerDefs, cache.PrefixTriggerEval} {
		keys, err := e.store.ScanPrefix(ctx, cache.BusinessPrefix(prefix, businessID))
		if err != nil {
			return deleted, err
		}
		n, err := e.store.Delete(ctx, keys...)
		if err != nil {
			return deleted, err
		}
		deleted += n
	}
	e.log.Info("business cache invalidated", "business_id", businessID, "deleted", deleted)
	return deleted, nil
}

// Stats returns the process-wide counters plus an approximate live-entry
// count, optionally narrowed to one business context. A failed key scan
// degrades the entry count to -1 rather than failing the call.
func (e *Engine) Stats(ctx context.Context, businessID string) cache.Snapshot {
	var entries int64
	for _, prefix := range []string{cache.PrefixCombinations, cache.PrefixTriggerDefs, cache.PrefixTriggerEval} {
		scan := prefix
		if businessID != "" {
			scan = cache.BusinessPrefix(prefix, businessID)
		}
		keys, err := e.store.ScanPrefix(ctx, scan)
		if err != nil {
			e.log.Warn("cache stats scan failed", "prefix", scan, "error", err)
			entries = -1
			break
		}
		entries += int64(len(keys))
	}
	return e.metrics.Snapshot(entries)
}

// Health describes cache-backend reachability for the health endpoint.
type Health struct {
	Status        string  `json:"status"` // healthy | unhealthy
	LatencyMillis float64 `json:"latency_ms"`
	Details       string  `json:"details,omitempty"`
}

// HealthCheck pings the cache backend. An unreachable backend reports
// unhealthy, but the engine keeps serving in compute-only mode.
func (e *Engine) HealthCheck(ctx context.Context) Health {
	latency, err := e.store.Ping(ctx)
	h := Health{Status: "healthy", LatencyMillis: float64(latency.Microseconds()) / 1000.0}
	if err != nil {
		h.Status = "unhealthy"
		h.Details = err.Error()
	}
	return h
}

// Close releases the cache store connection.
func (e *Engine) Close() error {
	return e.store.Close()
}

// evictIfFull enforces the per-namespace size bound before an insert: when
// the live-entry count under prefix meets or exceeds max, the oldest 20% by
// recorded generation time are deleted as a batch. Entries whose generation
// time cannot be read sort first and are evicted before anything else.
//
// Eviction failures are logged and swallowed; the insert proceeds regardless,
// since an over-full cache is preferable to a failed request.
func evictIfFull(ctx context.Context, store *cache.Store, metrics *cache.Metrics, log *slog.Logger, prefix string, max int) {
	if max <= 0 {
		return
	}
	keys, err := store.ScanPrefix(ctx, prefix)
	if err != nil {
		log.Warn("eviction scan failed", "prefix", prefix, "error", err)
		return
	}
	if len(keys) < max {
		return
	}

	type aged struct {
		key string
		ts  time.Time
	}
	entries := make([]aged, 0, len(keys))
	for _, k := range keys {
		ts, ok := store.GeneratedAt(ctx, k)
		if !ok {
			continue // expired between scan and read
		}
		entries = append(entries, aged{key: k, ts: ts})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ts.Before(entries[j].ts) })

	n := int(float64(len(entries)) * evictionFraction)
	if n < 1 {
		n = 1
	}
	victims := make([]string, n)
	for i := 0; i < n; i++ {
		victims[i] = entries[i].key
	}
	deleted, err := store.Delete(ctx, victims...)
	if err != nil {
		log.Warn("eviction delete failed", "prefix", prefix, "error", err)
		return
	}
	metrics.AddEvictions(prefix, int(deleted))
	log.Info("cache eviction", "prefix", prefix, "live", len(keys), "evicted", deleted)
}
