// ABOUTME: Unit tests for the trigger compiler and executor: Validate, Compile, Execute.
// ABOUTME: Pure logic tests — no redis or database required.
package trigger_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/intervex/intervex/internal/trigger"
)

func cond(id, field string, op trigger.Op, value string, optional bool) trigger.Condition {
	return trigger.Condition{
		ID:       id,
		Field:    field,
		Op:       op,
		Value:    json.RawMessage(value),
		Optional: optional,
	}
}

func mustCompile(t *testing.T, conditions []trigger.Condition) *trigger.Compiled {
	t.Helper()
	c, err := trigger.Compile(uuid.New(), conditions)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return c
}

// ─── Validate ────────────────────────────────────────────────────────────────

func TestValidate_Valid(t *testing.T) {
	t.Parallel()
	errs := trigger.Validate([]trigger.Condition{
		cond("c1", "purchase_total", trigger.OpGTE, `100`, false),
		cond("c2", "tier", trigger.OpEQ, `"gold"`, true),
		cond("c3", "tags", trigger.OpIncludes, `"vip"`, true),
		cond("c4", "visits", trigger.OpBetween, `[3, 10]`, false),
	})
	if len(errs) != 0 {
		t.Errorf("expected no errors, got %v", errs)
	}
}

func TestValidate_EmptyConditions(t *testing.T) {
	t.Parallel()
	errs := trigger.Validate(nil)
	if len(errs) != 1 || errs[0].Index != -1 {
		t.Errorf("expected single trigger-level error, got %v", errs)
	}
}

func TestValidate_UnknownOperator(t *testing.T) {
	t.Parallel()
	errs := trigger.Validate([]trigger.Condition{
		cond("c1", "tier", "regex", `"gold.*"`, false),
	})
	if len(errs) == 0 {
		t.Fatal("expected error for unknown operator, got none")
	}
}

func TestValidate_BadNumericValue(t *testing.T) {
	t.Parallel()
	errs := trigger.Validate([]trigger.Condition{
		cond("c1", "purchase_total", trigger.OpGTE, `"ten"`, false),
	})
	if len(errs) == 0 {
		t.Fatal("expected error for non-numeric gte value, got none")
	}
}

func TestValidate_BadRange(t *testing.T) {
	t.Parallel()
	for _, value := range []string{`[1]`, `[1,2,3]`, `[10, 1]`, `"x"`} {
		errs := trigger.Validate([]trigger.Condition{
			cond("c1", "visits", trigger.OpBetween, value, false),
		})
		if len(errs) == 0 {
			t.Errorf("value %s: expected error, got none", value)
		}
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	t.Parallel()
	errs := trigger.Validate([]trigger.Condition{
		cond("c1", "", trigger.OpEQ, `1`, false),
		cond("c2", "visits", "shout", `1`, false),
		cond("c3", "visits", trigger.OpBetween, `[9, 1]`, false),
	})
	if len(errs) != 3 {
		t.Errorf("len(errs) = %d, want 3: %v", len(errs), errs)
	}
}

// ─── Compile ─────────────────────────────────────────────────────────────────

func TestCompile_InvalidConditionsReturnCompileError(t *testing.T) {
	t.Parallel()
	_, err := trigger.Compile(uuid.New(), []trigger.Condition{
		cond("c1", "tier", "regex", `"gold"`, false),
	})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var ce *trigger.CompileError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *CompileError, got %T", err)
	}
}

func TestCompile_AssignsPositionalIDs(t *testing.T) {
	t.Parallel()
	c := mustCompile(t, []trigger.Condition{
		cond("", "purchase_total", trigger.OpGTE, `100`, false),
		cond("", "tier", trigger.OpEQ, `"gold"`, false),
	})
	if c.Conditions[0].ID != "cond_0" || c.Conditions[1].ID != "cond_1" {
		t.Errorf("ids = %q,%q; want cond_0,cond_1", c.Conditions[0].ID, c.Conditions[1].ID)
	}
}

func TestCompile_SerializationRoundTrip(t *testing.T) {
	t.Parallel()
	original := mustCompile(t, []trigger.Condition{
		cond("c1", "purchase_total", trigger.OpBetween, `[50, 200]`, false),
		cond("c2", "tags", trigger.OpIncludes, `"vip"`, true),
	})
	record := map[string]any{"purchase_total": 120.0, "tags": []any{"new", "vip"}}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var restored trigger.Compiled
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	got := trigger.Execute(&restored, record)
	want := trigger.Execute(original, record)
	if got.Triggered != want.Triggered || len(got.MatchedConditions) != len(want.MatchedConditions) {
		t.Errorf("restored evaluator diverges: got %+v, want %+v", got, want)
	}
}

func TestCompiled_Fields(t *testing.T) {
	t.Parallel()
	c := mustCompile(t, []trigger.Condition{
		cond("c1", "purchase_total", trigger.OpGTE, `100`, false),
		cond("c2", "tier", trigger.OpEQ, `"gold"`, false),
		cond("c3", "purchase_total", trigger.OpLTE, `500`, false),
	})
	fields := c.Fields()
	if len(fields) != 2 || fields[0] != "purchase_total" || fields[1] != "tier" {
		t.Errorf("Fields() = %v, want [purchase_total tier]", fields)
	}
}

// ─── Execute: firing law ─────────────────────────────────────────────────────

func TestExecute_AllRequiredMustHold(t *testing.T) {
	t.Parallel()
	c := mustCompile(t, []trigger.Condition{
		cond("c1", "purchase_total", trigger.OpGTE, `100`, false),
		cond("c2", "tier", trigger.OpEQ, `"gold"`, false),
	})

	res := trigger.Execute(c, map[string]any{"purchase_total": 150.0, "tier": "gold"})
	if !res.Triggered {
		t.Error("expected triggered when all required hold")
	}
	if len(res.MatchedConditions) != 2 {
		t.Errorf("MatchedConditions = %v, want both", res.MatchedConditions)
	}

	res = trigger.Execute(c, map[string]any{"purchase_total": 150.0, "tier": "silver"})
	if res.Triggered {
		t.Error("expected not triggered when one required fails")
	}
	if len(res.MatchedConditions) != 1 || res.MatchedConditions[0] != "c1" {
		t.Errorf("MatchedConditions = %v, want [c1]", res.MatchedConditions)
	}
}

func TestExecute_ZeroOptional_FiresIffAllRequiredHold(t *testing.T) {
	t.Parallel()
	c := mustCompile(t, []trigger.Condition{
		cond("c1", "visits", trigger.OpGTE, `3`, false),
	})
	if !trigger.Execute(c, map[string]any{"visits": 5.0}).Triggered {
		t.Error("expected fire with required holding and no optional conditions")
	}
	if trigger.Execute(c, map[string]any{"visits": 1.0}).Triggered {
		t.Error("expected no fire with required failing")
	}
}

func TestExecute_ZeroRequired_FiresIffAnyOptionalHolds(t *testing.T) {
	t.Parallel()
	c := mustCompile(t, []trigger.Condition{
		cond("c1", "tier", trigger.OpEQ, `"gold"`, true),
		cond("c2", "tier", trigger.OpEQ, `"platinum"`, true),
	})
	if !trigger.Execute(c, map[string]any{"tier": "platinum"}).Triggered {
		t.Error("expected fire when one optional holds")
	}
	if trigger.Execute(c, map[string]any{"tier": "silver"}).Triggered {
		t.Error("expected no fire when no optional holds")
	}
}

func TestExecute_RequiredHoldButNoOptionalHolds(t *testing.T) {
	t.Parallel()
	c := mustCompile(t, []trigger.Condition{
		cond("c1", "visits", trigger.OpGTE, `1`, false),
		cond("c2", "tier", trigger.OpEQ, `"gold"`, true),
	})
	res := trigger.Execute(c, map[string]any{"visits": 2.0, "tier": "silver"})
	if res.Triggered {
		t.Error("expected no fire: optional conditions exist but none holds")
	}
	// The required condition still appears in MatchedConditions.
	if len(res.MatchedConditions) != 1 || res.MatchedConditions[0] != "c1" {
		t.Errorf("MatchedConditions = %v, want [c1]", res.MatchedConditions)
	}
}

// ─── Execute: operators ──────────────────────────────────────────────────────

func TestExecute_Operators(t *testing.T) {
	t.Parallel()
	record := map[string]any{
		"score":  7.5,
		"name":   "ada",
		"active": true,
		"tags":   []any{"vip", "beta"},
		"count":  int64(4),
	}

	cases := []struct {
		name  string
		c     trigger.Condition
		match bool
	}{
		{"gte holds", cond("x", "score", trigger.OpGTE, `7.5`, false), true},
		{"gte fails", cond("x", "score", trigger.OpGTE, `8`, false), false},
		{"lte holds", cond("x", "score", trigger.OpLTE, `10`, false), true},
		{"lte fails", cond("x", "score", trigger.OpLTE, `7`, false), false},
		{"eq number", cond("x", "score", trigger.OpEQ, `7.5`, false), true},
		{"eq string", cond("x", "name", trigger.OpEQ, `"ada"`, false), true},
		{"eq bool", cond("x", "active", trigger.OpEQ, `true`, false), true},
		{"neq holds", cond("x", "name", trigger.OpNEQ, `"bob"`, false), true},
		{"neq fails", cond("x", "name", trigger.OpNEQ, `"ada"`, false), false},
		{"includes holds", cond("x", "tags", trigger.OpIncludes, `"vip"`, false), true},
		{"includes fails", cond("x", "tags", trigger.OpIncludes, `"gold"`, false), false},
		{"includes non-array field", cond("x", "name", trigger.OpIncludes, `"ada"`, false), false},
		{"between inclusive low", cond("x", "score", trigger.OpBetween, `[7.5, 9]`, false), true},
		{"between inclusive high", cond("x", "score", trigger.OpBetween, `[1, 7.5]`, false), true},
		{"between outside", cond("x", "score", trigger.OpBetween, `[8, 9]`, false), false},
		{"integer coercion", cond("x", "count", trigger.OpGTE, `4`, false), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			c := mustCompile(t, []trigger.Condition{tc.c})
			res := trigger.Execute(c, record)
			if res.Triggered != tc.match {
				t.Errorf("Triggered = %v, want %v", res.Triggered, tc.match)
			}
		})
	}
}

func TestExecute_MissingAndMalformedFields(t *testing.T) {
	t.Parallel()
	c := mustCompile(t, []trigger.Condition{
		cond("c1", "absent", trigger.OpGTE, `1`, false),
		cond("c2", "wrong_type", trigger.OpLTE, `10`, false),
		cond("c3", "null_field", trigger.OpNEQ, `"x"`, false),
	})
	record := map[string]any{
		"wrong_type": "not a number",
		"null_field": nil,
	}
	res := trigger.Execute(c, record)
	if res.Triggered {
		t.Error("expected no fire against missing/malformed fields")
	}
	if len(res.MatchedConditions) != 0 {
		t.Errorf("MatchedConditions = %v, want empty", res.MatchedConditions)
	}
}

func TestExecute_NilRecord(t *testing.T) {
	t.Parallel()
	c := mustCompile(t, []trigger.Condition{
		cond("c1", "visits", trigger.OpGTE, `1`, false),
	})
	res := trigger.Execute(c, nil)
	if res.Triggered || len(res.MatchedConditions) != 0 {
		t.Errorf("nil record should match nothing, got %+v", res)
	}
}
