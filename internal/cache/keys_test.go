// ABOUTME: Tests for key derivation: stability, order-insensitivity, and tenant scoping.
package cache

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/intervex/intervex/internal/optimizer"
)

func TestCombinationKey_StableAndOrderInsensitive(t *testing.T) {
	t.Parallel()
	a := &optimizer.Request{
		BusinessID:      "biz-1",
		DurationSeconds: 60,
		QuestionIDs:     []string{"q1", "q2", "q3"},
		PriorityWeights: map[string]float64{"q1": 2, "q2": 3},
	}
	b := &optimizer.Request{
		BusinessID:      "biz-1",
		DurationSeconds: 60,
		QuestionIDs:     []string{"q3", "q1", "q2"}, // same set, different order
		PriorityWeights: map[string]float64{"q2": 3, "q1": 2},
	}
	if CombinationKey(a) != CombinationKey(b) {
		t.Error("semantically identical requests must derive the same key")
	}
	if CombinationKey(a) != CombinationKey(a) {
		t.Error("key derivation must be deterministic")
	}
}

func TestCombinationKey_DistinguishesSemanticChanges(t *testing.T) {
	t.Parallel()
	base := optimizer.Request{
		BusinessID:      "biz-1",
		DurationSeconds: 60,
		QuestionIDs:     []string{"q1", "q2"},
	}
	longer := base
	longer.DurationSeconds = 120
	excluded := base
	excluded.Exclude = []string{"q2"}

	baseKey := CombinationKey(&base)
	if CombinationKey(&longer) == baseKey {
		t.Error("different duration must derive a different key")
	}
	if CombinationKey(&excluded) == baseKey {
		t.Error("different exclusions must derive a different key")
	}
}

func TestCombinationKey_DefaultMaxItemsEquivalence(t *testing.T) {
	t.Parallel()
	implicit := &optimizer.Request{BusinessID: "b", DurationSeconds: 60, QuestionIDs: []string{"q1"}}
	explicit := &optimizer.Request{BusinessID: "b", DurationSeconds: 60, QuestionIDs: []string{"q1"}, MaxItems: optimizer.DefaultMaxItems}
	if CombinationKey(implicit) != CombinationKey(explicit) {
		t.Error("omitted max_items must hash like the default")
	}
}

func TestKeys_BusinessScoping(t *testing.T) {
	t.Parallel()
	id := uuid.New()
	defKey := TriggerDefKey("biz-1", id)
	if !strings.HasPrefix(defKey, "trigger_defs:biz-1:") {
		t.Errorf("TriggerDefKey = %q, want trigger_defs:biz-1: prefix", defKey)
	}
	evalKey := TriggerEvalKey("biz-1", id, "abcd1234")
	if !strings.HasPrefix(evalKey, "trigger_eval:biz-1:") || !strings.HasSuffix(evalKey, ":abcd1234") {
		t.Errorf("TriggerEvalKey = %q malformed", evalKey)
	}
	reqKey := CombinationKey(&optimizer.Request{BusinessID: "biz-1", DurationSeconds: 60})
	if !strings.HasPrefix(reqKey, BusinessPrefix(PrefixCombinations, "biz-1")) {
		t.Errorf("CombinationKey = %q, want combinations:biz-1: prefix", reqKey)
	}
}

func TestHashJSON_MapOrderIndependent(t *testing.T) {
	t.Parallel()
	// encoding/json sorts map keys, so construction order must not matter.
	m1 := map[string]float64{"a": 1, "b": 2, "c": 3}
	m2 := map[string]float64{"c": 3, "b": 2, "a": 1}
	if HashJSON(m1) != HashJSON(m2) {
		t.Error("map construction order leaked into the hash")
	}
	if len(HashJSON(m1)) != 16 {
		t.Errorf("hash length = %d, want 16", len(HashJSON(m1)))
	}
}
