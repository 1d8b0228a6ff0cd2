package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/intervex/intervex/internal/engine"
	"github.com/intervex/intervex/internal/optimizer"
)

// registerCombinationRoutes wires up the combination optimization endpoint.
//
//	POST /combinations — optimize a question set for an interview duration
func registerCombinationRoutes(api huma.API, srv *Server) {
	huma.Register(api, huma.Operation{
		OperationID: "optimize-combination",
		Method:      http.MethodPost,
		Path:        "/combinations",
		Summary:     "Optimize a question combination",
		Description: "Selects the best question combination for the given duration. Results are cached by semantic request identity; identical requests return the cached combination.",
		Tags:        []string{"Combinations"},
	}, optimizeCombinationHandler(srv))
}

// OptimizeCombinationInput is the request body for POST /combinations.
type OptimizeCombinationInput struct {
	Body struct {
		BusinessID      string             `json:"business_id" doc:"Business context the questions belong to"`
		DurationSeconds int                `json:"duration_seconds" doc:"Planned interview duration in seconds"`
		QuestionIDs     []string           `json:"question_ids" doc:"Candidate question ids to optimize over"`
		PriorityWeights map[string]float64 `json:"priority_weights,omitempty" doc:"Per-question weight overrides; defaults to the question's base priority"`
		TopicWeights    map[string]float64 `json:"topic_weights,omitempty" doc:"Per-topic weight multipliers; default 1.0"`
		Exclude         []string           `json:"exclude,omitempty" doc:"Question ids to drop before optimization"`
		MaxItems        int                `json:"max_items,omitempty" doc:"Maximum questions in the combination; default 20"`
	}
}

// OptimizeCombinationOutput is the response for POST /combinations.
type OptimizeCombinationOutput struct {
	Body *CombinationBody
}

// CombinationBody carries the combination plus cache provenance.
type CombinationBody struct {
	Combination *optimizer.Combination `json:"combination"`
	CacheStatus engine.CacheStatus     `json:"cache_status"`
	Reason      string                 `json:"reason,omitempty"`
}

func optimizeCombinationHandler(srv *Server) func(context.Context, *OptimizeCombinationInput) (*OptimizeCombinationOutput, error) {
	return func(ctx context.Context, input *OptimizeCombinationInput) (*OptimizeCombinationOutput, error) {
		req := &optimizer.Request{
			BusinessID:      input.Body.BusinessID,
			DurationSeconds: input.Body.DurationSeconds,
			QuestionIDs:     input.Body.QuestionIDs,
			PriorityWeights: input.Body.PriorityWeights,
			TopicWeights:    input.Body.TopicWeights,
			Exclude:         input.Body.Exclude,
			MaxItems:        input.Body.MaxItems,
		}

		res, err := srv.engine.Combinations.Get(ctx, req)
		if err != nil {
			var verrs optimizer.ValidationErrors
			if errors.As(err, &verrs) {
				return nil, validationError(verrs)
			}
			return nil, fmt.Errorf("optimize combination: %w", err)
		}

		return &OptimizeCombinationOutput{Body: &CombinationBody{
			Combination: res.Combination,
			CacheStatus: res.Status,
			Reason:      res.Reason,
		}}, nil
	}
}

// validationError converts the collected field errors into a 422 with one
// ErrorDetail per offending field.
func validationError(verrs optimizer.ValidationErrors) error {
	details := make([]error, len(verrs))
	for i, ve := range verrs {
		details[i] = &huma.ErrorDetail{
			Message:  ve.Message,
			Location: "body." + ve.Field,
		}
	}
	return huma.Error422UnprocessableEntity("invalid combination request", details...)
}
