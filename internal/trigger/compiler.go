// ABOUTME: Compiles validated trigger conditions into a serializable tagged-variant AST.
// ABOUTME: Pure and wall-clock independent; identical input yields behaviorally identical output.
package trigger

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Compile converts a trigger's declarative condition list into its executable
// form. Conditions are validated first; any error aborts compilation with a
// *CompileError carrying the full problem list.
//
// Conditions without an explicit id are assigned a positional one so that
// MatchedConditions can always reference them.
func Compile(triggerID uuid.UUID, conditions []Condition) (*Compiled, error) {
	if errs := Validate(conditions); len(errs) > 0 {
		return nil, &CompileError{TriggerID: triggerID, Errs: errs}
	}

	compiled := make([]CompiledCondition, 0, len(conditions))
	for i, c := range conditions {
		cc, err := compileCondition(c)
		if err != nil {
			// Unreachable after Validate; kept as a guard against skew
			// between validator and compiler operand handling.
			return nil, fmt.Errorf("compile condition %d (%s): %w", i, c.Field, err)
		}
		if cc.ID == "" {
			cc.ID = fmt.Sprintf("cond_%d", i)
		}
		compiled = append(compiled, cc)
	}

	return &Compiled{TriggerID: triggerID, Conditions: compiled}, nil
}

// compileCondition lowers a single condition to its tagged-variant node.
func compileCondition(c Condition) (CompiledCondition, error) {
	cc := CompiledCondition{ID: c.ID, Field: c.Field, Op: c.Op, Optional: c.Optional}

	switch c.Op {
	case OpGTE, OpLTE:
		if err := json.Unmarshal(c.Value, &cc.Num); err != nil {
			return cc, fmt.Errorf("numeric value: %w", err)
		}
		cc.Kind = kindNumber

	case OpBetween:
		var bounds []float64
		if err := json.Unmarshal(c.Value, &bounds); err != nil {
			return cc, fmt.Errorf("range value: %w", err)
		}
		if len(bounds) != 2 {
			return cc, fmt.Errorf("range value must have 2 bounds, got %d", len(bounds))
		}
		cc.Kind = kindRange
		cc.Lo, cc.Hi = bounds[0], bounds[1]

	case OpEQ, OpNEQ, OpIncludes:
		kind, v, err := parseScalar(c.Value)
		if err != nil {
			return cc, err
		}
		cc.Kind = kind
		switch kind {
		case kindNumber:
			cc.Num = v.(float64)
		case kindText:
			cc.Text = v.(string)
		case kindBool:
			cc.Bool = v.(bool)
		}

	default:
		return cc, fmt.Errorf("unknown operator %q", c.Op)
	}
	return cc, nil
}
