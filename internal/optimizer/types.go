// ABOUTME: Types for the combination optimizer: Candidate, Request, Combination, ValidationError.
// ABOUTME: These types flow through Request.Validate → Optimize and into the cache orchestrator.
package optimizer

import (
	"fmt"
	"time"
)

// Candidate is one interview question as supplied by the record store.
// Immutable for the duration of one optimization call.
type Candidate struct {
	ID        string `json:"id"`
	Priority  int    `json:"priority"` // base priority, 1–5
	TokenCost int    `json:"token_cost"`
	Topic     string `json:"topic"`
}

// Request identifies one combination computation. Two requests with the same
// Fingerprint are served from the same cache entry.
type Request struct {
	BusinessID      string             `json:"business_id"`
	DurationSeconds int                `json:"duration_seconds"`
	QuestionIDs     []string           `json:"question_ids"`
	PriorityWeights map[string]float64 `json:"priority_weights,omitempty"`
	TopicWeights    map[string]float64 `json:"topic_weights,omitempty"`
	Exclude         []string           `json:"exclude,omitempty"`
	MaxItems        int                `json:"max_items,omitempty"` // 0 → DefaultMaxItems
}

// Selected is one accepted question with its final conversational position.
type Selected struct {
	QuestionID string `json:"question_id"`
	Priority   int    `json:"priority"`
	TokenCost  int    `json:"token_cost"`
	Topic      string `json:"topic"`
	Position   int    `json:"position"` // 1-based
}

// Combination is the ordered, budget-respecting, topic-balanced result of one
// optimization run. CacheKey, GeneratedAt, and TTLSeconds are filled by the
// cache orchestrator, not by Optimize, which keeps Optimize deterministic.
type Combination struct {
	Questions                []Selected         `json:"questions"`
	TotalTokens              int                `json:"total_tokens"`
	EstimatedDurationSeconds int                `json:"estimated_duration_seconds"`
	PriorityScore            float64            `json:"priority_score"`
	TopicDistribution        map[string]float64 `json:"topic_distribution"`
	CacheKey                 string             `json:"cache_key,omitempty"`
	GeneratedAt              time.Time          `json:"generated_at,omitzero"`
	TTLSeconds               int                `json:"ttl_seconds,omitempty"`
}

// ValidationError describes a single problem with a Request.
// Multiple errors may be returned together so callers see the full problem list.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is the collected set of request problems.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}
	return fmt.Sprintf("%s (and %d more)", e[0].Error(), len(e)-1)
}

// Validate checks the request for caller errors: a missing business context,
// a zero or negative duration, or negative weights. All problems are
// collected and returned together.
func (r *Request) Validate() error {
	var errs ValidationErrors
	if r.BusinessID == "" {
		errs = append(errs, ValidationError{"business_id", "must not be empty"})
	}
	if r.DurationSeconds <= 0 {
		errs = append(errs, ValidationError{"duration_seconds", "must be positive"})
	}
	for id, w := range r.PriorityWeights {
		if w < 0 {
			errs = append(errs, ValidationError{"priority_weights", fmt.Sprintf("weight for %q must not be negative", id)})
		}
	}
	for topic, w := range r.TopicWeights {
		if w < 0 {
			errs = append(errs, ValidationError{"topic_weights", fmt.Sprintf("weight for %q must not be negative", topic)})
		}
	}
	if r.MaxItems < 0 {
		errs = append(errs, ValidationError{"max_items", "must not be negative"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}
