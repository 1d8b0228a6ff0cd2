// ABOUTME: Pure key derivation for the three cache namespaces, scoped by business context.
// ABOUTME: Semantic request identity is hashed canonically: same inputs, same key, always.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/google/uuid"

	"github.com/intervex/intervex/internal/optimizer"
)

// Key namespaces. Every key is additionally scoped by business-context id so
// invalidation can clear one tenant without touching another.
const (
	PrefixCombinations = "combinations:"
	PrefixTriggerDefs  = "trigger_defs:"
	PrefixTriggerEval  = "trigger_eval:"
)

// BusinessPrefix narrows a namespace to one business context.
func BusinessPrefix(prefix, businessID string) string {
	return prefix + businessID + ":"
}

// CombinationKey derives the cache key for a combination request from its
// semantic identity: question ids and exclusions are sorted before hashing so
// callers supplying the same set in a different order share one entry.
// Weight maps are canonical already (encoding/json sorts map keys).
func CombinationKey(req *optimizer.Request) string {
	ids := append([]string(nil), req.QuestionIDs...)
	sort.Strings(ids)
	exclude := append([]string(nil), req.Exclude...)
	sort.Strings(exclude)

	maxItems := req.MaxItems
	if maxItems <= 0 {
		maxItems = optimizer.DefaultMaxItems
	}

	identity := struct {
		Duration        int                `json:"duration"`
		QuestionIDs     []string           `json:"question_ids"`
		PriorityWeights map[string]float64 `json:"priority_weights,omitempty"`
		TopicWeights    map[string]float64 `json:"topic_weights,omitempty"`
		Exclude         []string           `json:"exclude,omitempty"`
		MaxItems        int                `json:"max_items"`
	}{
		Duration:        req.DurationSeconds,
		QuestionIDs:     ids,
		PriorityWeights: req.PriorityWeights,
		TopicWeights:    req.TopicWeights,
		Exclude:         exclude,
		MaxItems:        maxItems,
	}
	return BusinessPrefix(PrefixCombinations, req.BusinessID) + HashJSON(identity)
}

// TriggerDefKey is the cache key for a compiled trigger definition.
func TriggerDefKey(businessID string, triggerID uuid.UUID) string {
	return BusinessPrefix(PrefixTriggerDefs, businessID) + triggerID.String()
}

// TriggerEvalKey is the cache key for one evaluation result: the trigger plus
// a hash of the record fields the compiled trigger actually references.
func TriggerEvalKey(businessID string, triggerID uuid.UUID, recordHash string) string {
	return BusinessPrefix(PrefixTriggerEval, businessID) + triggerID.String() + ":" + recordHash
}

// HashJSON returns the first 16 hex characters of the SHA-256 of v's JSON
// encoding. encoding/json emits map keys in sorted order, which keeps the
// digest stable across calls.
func HashJSON(v any) string {
	data, _ := json.Marshal(v)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}
