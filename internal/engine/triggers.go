// ABOUTME: Cache orchestrator fronting the trigger compiler/executor: caches compiled
// ABOUTME: definitions long-term and evaluation results short-term, keyed by record hash.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/intervex/intervex/internal/cache"
	"github.com/intervex/intervex/internal/trigger"
)

// TriggerSource supplies a trigger's declarative condition list from the
// record store.
type TriggerSource interface {
	TriggerConditions(ctx context.Context, triggerID uuid.UUID) ([]trigger.Condition, error)
}

// DefinitionEntry is the cached form of a compiled trigger: the declarative
// conditions it came from, the compiled evaluator, and when it was refreshed.
// Invalidated on definition change or business-scope clear; expires after the
// configured TTL regardless.
type DefinitionEntry struct {
	TriggerID  uuid.UUID           `json:"trigger_id"`
	Conditions []trigger.Condition `json:"conditions"`
	Compiled   trigger.Compiled    `json:"compiled"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

// Triggers orchestrates the trigger path.
type Triggers struct {
	store   *cache.Store
	source  TriggerSource
	metrics *cache.Metrics
	cfg     Config
	log     *slog.Logger
}

// CacheDefinition loads a trigger's conditions from the record store,
// compiles them, and stores the result under the business's trigger_defs
// namespace. Any previously cached evaluation results for the trigger are
// invalidated, since they were produced by the old definition.
func (s *Triggers) CacheDefinition(ctx context.Context, businessID string, triggerID uuid.UUID) (*DefinitionEntry, error) {
	conditions, err := s.source.TriggerConditions(ctx, triggerID)
	if err != nil {
		return nil, fmt.Errorf("load trigger %s: %w", triggerID, err)
	}
	compiled, err := trigger.Compile(triggerID, conditions)
	if err != nil {
		return nil, err
	}

	entry := &DefinitionEntry{
		TriggerID:  triggerID,
		Conditions: conditions,
		Compiled:   *compiled,
		UpdatedAt:  time.Now().UTC(),
	}

	evalPrefix := cache.BusinessPrefix(cache.PrefixTriggerEval, businessID) + triggerID.String() + ":"
	if stale, err := s.store.ScanPrefix(ctx, evalPrefix); err == nil {
		if _, err := s.store.Delete(ctx, stale...); err != nil {
			s.log.Warn("stale evaluation invalidation failed", "trigger_id", triggerID, "error", err)
		}
	}

	evictIfFull(ctx, s.store, s.metrics, s.log, cache.PrefixTriggerDefs, s.cfg.MaxEntriesPerPrefix)
	key := cache.TriggerDefKey(businessID, triggerID)
	if err := s.store.Set(ctx, key, entry, s.cfg.TriggerDefTTL); err != nil {
		// The compiled definition is still returned; only caching degraded.
		s.log.Warn("trigger definition cache write failed", "key", key, "error", err)
	}
	return entry, nil
}

// Evaluate runs the requested triggers against one data record.
//
// Definitions are read from the cache; a trigger id with no cached definition
// is silently skipped — callers are expected to have called CacheDefinition
// first, and an absent entry most often means the trigger was deleted or
// invalidated. If the cache backend is unreachable the definition is compiled
// directly from the record store instead, so evaluation keeps working without
// the cache.
//
// Evaluation results are themselves cached with a short TTL, keyed by a hash
// of only the record fields the compiled trigger references.
func (s *Triggers) Evaluate(ctx context.Context, businessID string, record map[string]any, triggerIDs []uuid.UUID) ([]trigger.Result, error) {
	if businessID == "" {
		return nil, fmt.Errorf("business id must not be empty")
	}
	results := make([]trigger.Result, 0, len(triggerIDs))
	for _, id := range triggerIDs {
		res, ok := s.evaluateOne(ctx, businessID, record, id)
		if ok {
			results = append(results, res)
		}
	}
	return results, nil
}

// evaluateOne resolves one trigger's compiled form and evaluates it, serving
// the result from the evaluation cache when possible. ok=false means the
// trigger produced no result (unknown id, or failure that was logged and
// skipped so the rest of the batch proceeds).
func (s *Triggers) evaluateOne(ctx context.Context, businessID string, record map[string]any, id uuid.UUID) (trigger.Result, bool) {
	start := time.Now()
	defKey := cache.TriggerDefKey(businessID, id)

	var entry DefinitionEntry
	found, err := s.store.Get(ctx, defKey, &entry)
	if err != nil {
		// Backend down: degrade to compile-on-the-fly from the record store.
		compiled, cerr := s.compileDirect(ctx, id)
		if cerr != nil {
			s.log.Error("trigger evaluation skipped", "trigger_id", id, "error", cerr)
			return trigger.Result{}, false
		}
		res := trigger.Execute(compiled, record)
		s.metrics.RecordBypass(cache.PrefixTriggerEval, time.Since(start))
		return res, true
	}
	if !found {
		return trigger.Result{}, false
	}

	relevant := make(map[string]any, len(record))
	for _, f := range entry.Compiled.Fields() {
		if v, ok := record[f]; ok {
			relevant[f] = v
		}
	}
	evalKey := cache.TriggerEvalKey(businessID, id, cache.HashJSON(relevant))

	var cached trigger.Result
	if found, err := s.store.Get(ctx, evalKey, &cached); err == nil && found {
		s.metrics.RecordHit(cache.PrefixTriggerEval, time.Since(start))
		return cached, true
	}

	res := trigger.Execute(&entry.Compiled, record)

	evictIfFull(ctx, s.store, s.metrics, s.log, cache.PrefixTriggerEval, s.cfg.MaxEntriesPerPrefix)
	if err := s.store.Set(ctx, evalKey, res, s.cfg.TriggerEvalTTL); err != nil {
		s.log.Warn("evaluation cache write failed", "key", evalKey, "error", err)
	}
	s.metrics.RecordMiss(cache.PrefixTriggerEval, time.Since(start))
	return res, true
}

// compileDirect bypasses the cache entirely: record store to compiled form.
func (s *Triggers) compileDirect(ctx context.Context, id uuid.UUID) (*trigger.Compiled, error) {
	conditions, err := s.source.TriggerConditions(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load trigger %s: %w", id, err)
	}
	return trigger.Compile(id, conditions)
}
