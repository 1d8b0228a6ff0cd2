// ABOUTME: Tests for the trigger orchestrator: definition caching, evaluation-result
// ABOUTME: caching keyed by relevant record fields, stale-result invalidation, degradation.
package engine_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/intervex/intervex/internal/cache"
	"github.com/intervex/intervex/internal/trigger"
)

// fakeTriggers maps trigger ids to condition lists and counts loads.
type fakeTriggers struct {
	mu       sync.Mutex
	loads    int
	triggers map[uuid.UUID][]trigger.Condition
}

func (f *fakeTriggers) TriggerConditions(_ context.Context, id uuid.UUID) ([]trigger.Condition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	conds, ok := f.triggers[id]
	if !ok {
		return nil, context.Canceled // any error; unknown ids are a source failure here
	}
	return conds, nil
}

func rawJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func spendCondition(t *testing.T, threshold float64) trigger.Condition {
	return trigger.Condition{
		ID:    "high_spend",
		Field: "total_spend",
		Op:    trigger.OpGTE,
		Value: rawJSON(t, threshold),
	}
}

func TestTriggers_CacheDefinitionThenEvaluate(t *testing.T) {
	id := uuid.New()
	src := &fakeTriggers{triggers: map[uuid.UUID][]trigger.Condition{
		id: {spendCondition(t, 500)},
	}}
	eng, _ := newTestEngine(t, defaultQuestions(), src, testConfig())
	ctx := context.Background()

	entry, err := eng.Triggers.CacheDefinition(ctx, "biz-1", id)
	if err != nil {
		t.Fatalf("CacheDefinition: %v", err)
	}
	if entry.TriggerID != id || len(entry.Compiled.Conditions) != 1 {
		t.Fatalf("unexpected entry: %+v", entry)
	}

	results, err := eng.Triggers.Evaluate(ctx, "biz-1", map[string]any{"total_spend": 750.0}, []uuid.UUID{id})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
	if !results[0].Triggered {
		t.Error("trigger should fire for spend 750 >= 500")
	}
	if len(results[0].MatchedConditions) != 1 || results[0].MatchedConditions[0] != "high_spend" {
		t.Errorf("MatchedConditions = %v, want [high_spend]", results[0].MatchedConditions)
	}
}

func TestTriggers_CompileErrorSurfaced(t *testing.T) {
	id := uuid.New()
	src := &fakeTriggers{triggers: map[uuid.UUID][]trigger.Condition{
		id: {{Field: "total_spend", Op: "regex", Value: rawJSON(t, "x")}},
	}}
	eng, _ := newTestEngine(t, defaultQuestions(), src, testConfig())

	_, err := eng.Triggers.CacheDefinition(context.Background(), "biz-1", id)
	var ce *trigger.CompileError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want *trigger.CompileError", err)
	}
}

func TestTriggers_UnknownIDSilentlySkipped(t *testing.T) {
	known := uuid.New()
	src := &fakeTriggers{triggers: map[uuid.UUID][]trigger.Condition{
		known: {spendCondition(t, 100)},
	}}
	eng, _ := newTestEngine(t, defaultQuestions(), src, testConfig())
	ctx := context.Background()

	if _, err := eng.Triggers.CacheDefinition(ctx, "biz-1", known); err != nil {
		t.Fatal(err)
	}

	results, err := eng.Triggers.Evaluate(ctx, "biz-1",
		map[string]any{"total_spend": 200.0},
		[]uuid.UUID{known, uuid.New()}) // second id was never cached
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("results = %d, want 1 (unknown id must be skipped, not error)", len(results))
	}
}

func TestTriggers_EvaluationResultCached(t *testing.T) {
	id := uuid.New()
	src := &fakeTriggers{triggers: map[uuid.UUID][]trigger.Condition{
		id: {spendCondition(t, 500)},
	}}
	eng, h := newTestEngine(t, defaultQuestions(), src, testConfig())
	ctx := context.Background()

	if _, err := eng.Triggers.CacheDefinition(ctx, "biz-1", id); err != nil {
		t.Fatal(err)
	}

	record := map[string]any{"total_spend": 750.0, "plan": "pro"}
	if _, err := eng.Triggers.Evaluate(ctx, "biz-1", record, []uuid.UUID{id}); err != nil {
		t.Fatal(err)
	}
	before := eng.Stats(ctx, "").Hits

	// Same relevant field, different irrelevant field: must hit the eval cache
	// because the key only covers fields the trigger references.
	record2 := map[string]any{"total_spend": 750.0, "plan": "enterprise"}
	results, err := eng.Triggers.Evaluate(ctx, "biz-1", record2, []uuid.UUID{id})
	if err != nil {
		t.Fatal(err)
	}
	if !results[0].Triggered {
		t.Error("cached result should still report triggered")
	}
	if after := eng.Stats(ctx, "").Hits; after != before+1 {
		t.Errorf("hits = %d, want %d (second evaluation should be a cache hit)", after, before+1)
	}

	keys, err := h.store.ScanPrefix(ctx, cache.PrefixTriggerEval)
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 1 {
		t.Errorf("trigger_eval entries = %d, want 1", len(keys))
	}
}

func TestTriggers_DifferentRelevantFieldsMissSeparately(t *testing.T) {
	id := uuid.New()
	src := &fakeTriggers{triggers: map[uuid.UUID][]trigger.Condition{
		id: {spendCondition(t, 500)},
	}}
	eng, h := newTestEngine(t, defaultQuestions(), src, testConfig())
	ctx := context.Background()

	if _, err := eng.Triggers.CacheDefinition(ctx, "biz-1", id); err != nil {
		t.Fatal(err)
	}
	for _, spend := range []float64{100, 900} {
		if _, err := eng.Triggers.Evaluate(ctx, "biz-1", map[string]any{"total_spend": spend}, []uuid.UUID{id}); err != nil {
			t.Fatal(err)
		}
	}

	keys, err := h.store.ScanPrefix(ctx, cache.PrefixTriggerEval)
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 2 {
		t.Errorf("trigger_eval entries = %d, want 2 distinct records", len(keys))
	}
}

func TestTriggers_RecachingDefinitionInvalidatesStaleEvaluations(t *testing.T) {
	id := uuid.New()
	src := &fakeTriggers{triggers: map[uuid.UUID][]trigger.Condition{
		id: {spendCondition(t, 500)},
	}}
	eng, h := newTestEngine(t, defaultQuestions(), src, testConfig())
	ctx := context.Background()

	if _, err := eng.Triggers.CacheDefinition(ctx, "biz-1", id); err != nil {
		t.Fatal(err)
	}
	record := map[string]any{"total_spend": 600.0}
	results, err := eng.Triggers.Evaluate(ctx, "biz-1", record, []uuid.UUID{id})
	if err != nil {
		t.Fatal(err)
	}
	if !results[0].Triggered {
		t.Fatal("expected fire at threshold 500")
	}

	// Tighten the threshold and re-cache: old evaluation results are stale.
	src.mu.Lock()
	src.triggers[id] = []trigger.Condition{spendCondition(t, 1000)}
	src.mu.Unlock()
	if _, err := eng.Triggers.CacheDefinition(ctx, "biz-1", id); err != nil {
		t.Fatal(err)
	}

	keys, err := h.store.ScanPrefix(ctx, cache.PrefixTriggerEval)
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 0 {
		t.Fatalf("stale evaluation entries survived re-cache: %v", keys)
	}

	results, err = eng.Triggers.Evaluate(ctx, "biz-1", record, []uuid.UUID{id})
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Triggered {
		t.Error("trigger should not fire under the new threshold 1000")
	}
}

func TestTriggers_CacheDownCompilesDirectly(t *testing.T) {
	id := uuid.New()
	src := &fakeTriggers{triggers: map[uuid.UUID][]trigger.Condition{
		id: {spendCondition(t, 500)},
	}}
	eng, h := newTestEngine(t, defaultQuestions(), src, testConfig())
	ctx := context.Background()

	if _, err := eng.Triggers.CacheDefinition(ctx, "biz-1", id); err != nil {
		t.Fatal(err)
	}
	h.mr.Close()

	results, err := eng.Triggers.Evaluate(ctx, "biz-1", map[string]any{"total_spend": 750.0}, []uuid.UUID{id})
	if err != nil {
		t.Fatalf("Evaluate with cache down: %v", err)
	}
	if len(results) != 1 || !results[0].Triggered {
		t.Errorf("degraded evaluation results = %+v, want one fired result", results)
	}
	if eng.Stats(ctx, "").Bypasses == 0 {
		t.Error("degraded evaluation should be counted as a bypass")
	}
}

func TestTriggers_EvaluateRequiresBusinessID(t *testing.T) {
	eng, _ := newTestEngine(t, defaultQuestions(), &fakeTriggers{}, testConfig())
	if _, err := eng.Triggers.Evaluate(context.Background(), "", nil, nil); err == nil {
		t.Fatal("expected error for empty business id")
	}
}
