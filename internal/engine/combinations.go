// ABOUTME: Cache orchestrator fronting the combination optimizer: get-or-compute-and-store
// ABOUTME: with best-effort caching — backend failures degrade to direct computation.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/intervex/intervex/internal/cache"
	"github.com/intervex/intervex/internal/optimizer"
)

// QuestionSource supplies candidate question metadata from the record store.
// Reads are side-effect-free; ids absent from the store are simply omitted
// from the result.
type QuestionSource interface {
	QuestionsByID(ctx context.Context, ids []string) ([]optimizer.Candidate, error)
}

// CombinationResult carries the combination together with how it was produced.
// Status is StatusBypass when the cache backend was unreachable; the value is
// still a complete, correct combination.
type CombinationResult struct {
	Combination *optimizer.Combination `json:"combination"`
	Status      CacheStatus            `json:"cache_status"`
	Reason      string                 `json:"reason,omitempty"`
}

// Combinations orchestrates the optimize path. Concurrent requests for the
// same key may each compute on a shared miss; there is deliberately no
// in-flight de-duplication — the optimizer is a cheap, bounded, pure
// computation and last-write-wins is acceptable (see DESIGN.md).
type Combinations struct {
	store   *cache.Store
	source  QuestionSource
	metrics *cache.Metrics
	cfg     Config
	log     *slog.Logger
}

// Get validates the request, then returns the cached combination for its
// semantic identity or computes, stores, and returns a fresh one. Validation
// failures are the only errors surfaced for caller mistakes; infrastructure
// failures degrade silently to compute-only.
func (s *Combinations) Get(ctx context.Context, req *optimizer.Request) (*CombinationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	key := cache.CombinationKey(req)

	var cached optimizer.Combination
	found, err := s.store.Get(ctx, key, &cached)
	if err != nil {
		s.log.Warn("cache unreachable, computing directly", "key", key, "error", err)
		combo, cerr := s.compute(ctx, req, key)
		if cerr != nil {
			return nil, cerr
		}
		s.metrics.RecordBypass(cache.PrefixCombinations, time.Since(start))
		return &CombinationResult{Combination: combo, Status: StatusBypass, Reason: err.Error()}, nil
	}
	if found {
		s.metrics.RecordHit(cache.PrefixCombinations, time.Since(start))
		return &CombinationResult{Combination: &cached, Status: StatusHit}, nil
	}

	combo, err := s.compute(ctx, req, key)
	if err != nil {
		return nil, err
	}

	evictIfFull(ctx, s.store, s.metrics, s.log, cache.PrefixCombinations, s.cfg.MaxEntriesPerPrefix)
	if err := s.store.Set(ctx, key, combo, s.cfg.CombinationTTL); err != nil {
		s.log.Warn("cache write failed", "key", key, "error", err)
		s.metrics.RecordBypass(cache.PrefixCombinations, time.Since(start))
		return &CombinationResult{Combination: combo, Status: StatusBypass, Reason: err.Error()}, nil
	}

	s.metrics.RecordMiss(cache.PrefixCombinations, time.Since(start))
	return &CombinationResult{Combination: combo, Status: StatusMiss}, nil
}

// compute loads candidates, applies exclusions, and runs the optimizer.
// The combination is stamped with its cache identity so a later hit carries
// the same metadata byte for byte.
func (s *Combinations) compute(ctx context.Context, req *optimizer.Request, key string) (*optimizer.Combination, error) {
	candidates, err := s.source.QuestionsByID(ctx, req.QuestionIDs)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}
	candidates = optimizer.FilterExcluded(candidates, req.Exclude)

	combo := optimizer.Optimize(candidates, req.DurationSeconds, req.PriorityWeights, req.TopicWeights, req.MaxItems)
	combo.CacheKey = key
	combo.GeneratedAt = time.Now().UTC()
	combo.TTLSeconds = int(s.cfg.CombinationTTL / time.Second)
	return combo, nil
}
