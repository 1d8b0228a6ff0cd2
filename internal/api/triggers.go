package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/intervex/intervex/internal/store"
	"github.com/intervex/intervex/internal/trigger"
)

// registerTriggerRoutes wires up the trigger endpoints.
//
//	POST /triggers/{trigger_id}/cache — compile and cache a trigger definition
//	POST /triggers/evaluate           — evaluate triggers against a data record
func registerTriggerRoutes(api huma.API, srv *Server) {
	huma.Register(api, huma.Operation{
		OperationID: "cache-trigger-definition",
		Method:      http.MethodPost,
		Path:        "/triggers/{trigger_id}/cache",
		Summary:     "Compile and cache a trigger",
		Description: "Loads the trigger's conditions, compiles them, and caches the compiled form. Stale evaluation results for the trigger are invalidated.",
		Tags:        []string{"Triggers"},
	}, cacheTriggerHandler(srv))

	huma.Register(api, huma.Operation{
		OperationID: "evaluate-triggers",
		Method:      http.MethodPost,
		Path:        "/triggers/evaluate",
		Summary:     "Evaluate triggers against a record",
		Description: "Runs the requested triggers against one data record. Unknown trigger ids are skipped. Evaluation results are cached briefly, keyed by the record fields each trigger references.",
		Tags:        []string{"Triggers"},
	}, evaluateTriggersHandler(srv))
}

// ── POST /triggers/{trigger_id}/cache ─────────────────────────────────────────

// CacheTriggerInput identifies the trigger and its business context.
type CacheTriggerInput struct {
	TriggerID uuid.UUID `path:"trigger_id" doc:"Trigger identifier"`
	Body      struct {
		BusinessID string `json:"business_id" doc:"Business context the trigger belongs to"`
	}
}

// CacheTriggerOutput is the response for POST /triggers/{trigger_id}/cache.
type CacheTriggerOutput struct {
	Body *CacheTriggerBody
}

// CacheTriggerBody summarizes the cached definition.
type CacheTriggerBody struct {
	TriggerID      uuid.UUID `json:"trigger_id"`
	ConditionCount int       `json:"condition_count"`
	Fields         []string  `json:"fields"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func cacheTriggerHandler(srv *Server) func(context.Context, *CacheTriggerInput) (*CacheTriggerOutput, error) {
	return func(ctx context.Context, input *CacheTriggerInput) (*CacheTriggerOutput, error) {
		if input.Body.BusinessID == "" {
			return nil, huma.Error422UnprocessableEntity("business_id must not be empty")
		}

		entry, err := srv.engine.Triggers.CacheDefinition(ctx, input.Body.BusinessID, input.TriggerID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, huma.Error404NotFound("trigger not found")
			}
			var ce *trigger.CompileError
			if errors.As(err, &ce) {
				return nil, compileError(ce)
			}
			return nil, fmt.Errorf("cache trigger definition: %w", err)
		}

		return &CacheTriggerOutput{Body: &CacheTriggerBody{
			TriggerID:      entry.TriggerID,
			ConditionCount: len(entry.Compiled.Conditions),
			Fields:         entry.Compiled.Fields(),
			UpdatedAt:      entry.UpdatedAt,
		}}, nil
	}
}

// compileError converts the collected condition errors into a 422 with one
// ErrorDetail per offending condition.
func compileError(ce *trigger.CompileError) error {
	details := make([]error, len(ce.Errs))
	for i, ve := range ce.Errs {
		loc := "body.conditions"
		if ve.Index >= 0 {
			loc = fmt.Sprintf("body.conditions[%d].%s", ve.Index, ve.Field)
		}
		details[i] = &huma.ErrorDetail{
			Message:  ve.Message,
			Location: loc,
		}
	}
	return huma.Error422UnprocessableEntity("invalid trigger definition", details...)
}

// ── POST /triggers/evaluate ───────────────────────────────────────────────────

// EvaluateTriggersInput is the request body for POST /triggers/evaluate.
type EvaluateTriggersInput struct {
	Body struct {
		BusinessID string         `json:"business_id" doc:"Business context scoping the trigger lookups"`
		Record     map[string]any `json:"record" doc:"Data record the triggers are evaluated against"`
		TriggerIDs []uuid.UUID    `json:"trigger_ids" doc:"Triggers to evaluate"`
	}
}

// EvaluateTriggersOutput is the response for POST /triggers/evaluate.
type EvaluateTriggersOutput struct {
	Body *EvaluateTriggersBody
}

// EvaluateTriggersBody wraps the per-trigger results. Results carries one
// entry per evaluated trigger; requested ids with no cached definition are
// absent, so len(Results) may be less than len(TriggerIDs).
type EvaluateTriggersBody struct {
	Results []TriggerResultItem `json:"results"`
}

// TriggerResultItem is the API representation of one evaluation result.
type TriggerResultItem struct {
	TriggerID         uuid.UUID `json:"trigger_id"`
	Triggered         bool      `json:"triggered"`
	MatchedConditions []string  `json:"matched_conditions"`
	ElapsedMillis     float64   `json:"elapsed_ms"`
}

func evaluateTriggersHandler(srv *Server) func(context.Context, *EvaluateTriggersInput) (*EvaluateTriggersOutput, error) {
	return func(ctx context.Context, input *EvaluateTriggersInput) (*EvaluateTriggersOutput, error) {
		if input.Body.BusinessID == "" {
			return nil, huma.Error422UnprocessableEntity("business_id must not be empty")
		}

		results, err := srv.engine.Triggers.Evaluate(ctx, input.Body.BusinessID, input.Body.Record, input.Body.TriggerIDs)
		if err != nil {
			return nil, fmt.Errorf("evaluate triggers: %w", err)
		}

		items := make([]TriggerResultItem, len(results))
		for i, r := range results {
			matched := r.MatchedConditions
			if matched == nil {
				matched = []string{} // never return null for arrays in JSON
			}
			items[i] = TriggerResultItem{
				TriggerID:         r.TriggerID,
				Triggered:         r.Triggered,
				MatchedConditions: matched,
				ElapsedMillis:     float64(r.Elapsed.Microseconds()) / 1000.0,
			}
		}
		return &EvaluateTriggersOutput{Body: &EvaluateTriggersBody{Results: items}}, nil
	}
}
