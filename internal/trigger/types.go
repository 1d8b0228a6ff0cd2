// ABOUTME: IR types for the trigger engine: Condition, Compiled, Result, ValidationError.
// ABOUTME: These types flow through Validate → Compile and into the executor.
package trigger

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Op is a condition comparison operator.
type Op string

// Supported comparison operators. Includes tests membership of the operand in
// an array-valued record field; Between tests an inclusive numeric range.
const (
	OpGTE      Op = "gte"
	OpLTE      Op = "lte"
	OpEQ       Op = "eq"
	OpNEQ      Op = "neq"
	OpIncludes Op = "includes"
	OpBetween  Op = "between"
)

// Condition is a single declarative clause of a trigger definition as stored
// in the record store. Optional conditions relax the firing law: a trigger
// fires iff all required conditions hold and, when any optional conditions
// exist, at least one of them holds.
type Condition struct {
	ID       string          `json:"id"`
	Field    string          `json:"field"`
	Op       Op              `json:"operator"`
	Value    json.RawMessage `json:"value"`
	Optional bool            `json:"optional,omitempty"`
}

// operandKind tags the compiled operand variant.
type operandKind string

const (
	kindNumber operandKind = "number"
	kindText   operandKind = "text"
	kindBool   operandKind = "bool"
	kindRange  operandKind = "range"
)

// CompiledCondition is one tagged-variant AST node produced by Compile and
// interpreted by Execute. It is fully serializable; no dynamic code is
// constructed anywhere.
type CompiledCondition struct {
	ID       string      `json:"id"`
	Field    string      `json:"field"`
	Op       Op          `json:"op"`
	Kind     operandKind `json:"kind"`
	Num      float64     `json:"num,omitempty"`
	Text     string      `json:"text,omitempty"`
	Bool     bool        `json:"bool,omitempty"`
	Lo       float64     `json:"lo,omitempty"`
	Hi       float64     `json:"hi,omitempty"`
	Optional bool        `json:"optional,omitempty"`
}

// Compiled is the executable form of a trigger. Two Compile calls with
// identical input produce behaviorally identical Compiled values.
type Compiled struct {
	TriggerID  uuid.UUID           `json:"trigger_id"`
	Conditions []CompiledCondition `json:"conditions"`
}

// Fields returns the distinct record fields the compiled trigger references,
// in first-reference order. Used to derive evaluation-result cache keys from
// only the relevant slice of the input record.
func (c *Compiled) Fields() []string {
	seen := make(map[string]bool, len(c.Conditions))
	var fields []string
	for _, cc := range c.Conditions {
		if !seen[cc.Field] {
			seen[cc.Field] = true
			fields = append(fields, cc.Field)
		}
	}
	return fields
}

// Result is the outcome of executing one compiled trigger against a record.
// MatchedConditions lists every condition that held, required or optional,
// independent of the final verdict.
type Result struct {
	TriggerID         uuid.UUID     `json:"trigger_id"`
	Triggered         bool          `json:"triggered"`
	MatchedConditions []string      `json:"matched_conditions"`
	Elapsed           time.Duration `json:"elapsed_ns"`
}

// ValidationError describes a single validation problem with a condition list.
type ValidationError struct {
	Index   int    `json:"index"` // condition index; -1 for trigger-level errors
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string { return e.Message }

// CompileError wraps the validation errors that prevented compilation.
type CompileError struct {
	TriggerID uuid.UUID
	Errs      []ValidationError
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("trigger %s: %d invalid condition(s): %s", e.TriggerID, len(e.Errs), e.Errs[0].Message)
}
