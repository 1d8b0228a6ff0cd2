// ABOUTME: Semantic validation of a trigger's declarative condition list.
// ABOUTME: Returns all validation errors at once so callers see the full problem list.
package trigger

import (
	"encoding/json"
	"fmt"
)

var validOps = map[Op]bool{
	OpGTE:      true,
	OpLTE:      true,
	OpEQ:       true,
	OpNEQ:      true,
	OpIncludes: true,
	OpBetween:  true,
}

// Validate performs semantic validation of a condition list. All errors are
// collected and returned together so the caller can display the full problem
// list. An empty list is a trigger-level error: such a trigger could never
// encode a meaningful firing law.
func Validate(conditions []Condition) []ValidationError {
	var errs []ValidationError
	if len(conditions) == 0 {
		errs = append(errs, ValidationError{Index: -1, Message: "conditions must be non-empty"})
		return errs
	}
	for i, c := range conditions {
		add := func(msg string) {
			errs = append(errs, ValidationError{Index: i, Field: c.Field, Message: msg})
		}
		if c.Field == "" {
			add("field must not be empty")
		}
		if !validOps[c.Op] {
			add(fmt.Sprintf("unknown operator %q", c.Op))
			continue
		}
		errs = append(errs, validateValue(i, c)...)
	}
	return errs
}

// validateValue checks that c.Value parses to the shape its operator requires.
func validateValue(idx int, c Condition) []ValidationError {
	var errs []ValidationError
	add := func(msg string) {
		errs = append(errs, ValidationError{Index: idx, Field: c.Field, Message: msg})
	}

	switch c.Op {
	case OpGTE, OpLTE:
		var v float64
		if err := json.Unmarshal(c.Value, &v); err != nil {
			add(fmt.Sprintf("value must be a number: %v", err))
		}

	case OpBetween:
		var bounds []float64
		if err := json.Unmarshal(c.Value, &bounds); err != nil {
			add(fmt.Sprintf("value must be a two-element numeric array: %v", err))
		} else if len(bounds) != 2 {
			add(fmt.Sprintf("value must have exactly 2 bounds, got %d", len(bounds)))
		} else if bounds[0] > bounds[1] {
			add(fmt.Sprintf("lower bound %v exceeds upper bound %v", bounds[0], bounds[1]))
		}

	case OpEQ, OpNEQ, OpIncludes:
		if _, _, err := parseScalar(c.Value); err != nil {
			add(err.Error())
		}
	}
	return errs
}

// parseScalar accepts a JSON number, string, or boolean operand and reports
// which variant it is.
func parseScalar(raw json.RawMessage) (operandKind, any, error) {
	var num float64
	if err := json.Unmarshal(raw, &num); err == nil {
		return kindNumber, num, nil
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return kindText, text, nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return kindBool, b, nil
	}
	return "", nil, fmt.Errorf("value must be a JSON number, string, or boolean")
}
