// ABOUTME: Interprets a compiled trigger AST against a data record.
// ABOUTME: Missing or malformed record fields never raise; they simply do not match.
package trigger

import (
	"time"
)

// Execute applies a compiled trigger to a data record. The record is typically
// a decoded JSON document (map[string]any with float64 numbers), but any
// missing, nil, or wrongly-typed field is treated as not matching the
// conditions that reference it rather than failing the evaluation.
//
// Firing law: all required conditions must hold AND either no optional
// conditions exist or at least one optional condition holds. Every condition
// that holds is recorded in MatchedConditions regardless of the verdict.
func Execute(c *Compiled, record map[string]any) Result {
	start := time.Now()

	matched := make([]string, 0, len(c.Conditions))
	requiredTotal := 0
	requiredHeld := 0
	optionalTotal := 0
	optionalHeld := 0

	for i := range c.Conditions {
		cc := &c.Conditions[i]
		holds := evalCondition(cc, record)
		if cc.Optional {
			optionalTotal++
			if holds {
				optionalHeld++
			}
		} else {
			requiredTotal++
			if holds {
				requiredHeld++
			}
		}
		if holds {
			matched = append(matched, cc.ID)
		}
	}

	triggered := requiredHeld == requiredTotal && (optionalTotal == 0 || optionalHeld > 0)

	return Result{
		TriggerID:         c.TriggerID,
		Triggered:         triggered,
		MatchedConditions: matched,
		Elapsed:           time.Since(start),
	}
}

// evalCondition evaluates a single AST node against the record.
func evalCondition(cc *CompiledCondition, record map[string]any) bool {
	raw, ok := record[cc.Field]
	if !ok || raw == nil {
		return false
	}

	switch cc.Op {
	case OpGTE:
		v, ok := asNumber(raw)
		return ok && v >= cc.Num
	case OpLTE:
		v, ok := asNumber(raw)
		return ok && v <= cc.Num
	case OpBetween:
		v, ok := asNumber(raw)
		return ok && v >= cc.Lo && v <= cc.Hi
	case OpEQ:
		return scalarEqual(cc, raw)
	case OpNEQ:
		return !scalarEqual(cc, raw)
	case OpIncludes:
		items, ok := raw.([]any)
		if !ok {
			return false
		}
		for _, item := range items {
			if scalarEqual(cc, item) {
				return true
			}
		}
		return false
	}
	return false
}

// scalarEqual compares a record value against the compiled operand variant.
func scalarEqual(cc *CompiledCondition, raw any) bool {
	switch cc.Kind {
	case kindNumber:
		v, ok := asNumber(raw)
		return ok && v == cc.Num
	case kindText:
		v, ok := raw.(string)
		return ok && v == cc.Text
	case kindBool:
		v, ok := raw.(bool)
		return ok && v == cc.Bool
	}
	return false
}

// asNumber coerces the numeric types a decoded record may carry.
// JSON decoding yields float64; record-store adapters may supply ints.
func asNumber(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}
