// ABOUTME: Unit tests for the store's query builders.
// ABOUTME: Verifies generated SQL shape and argument binding without a database.
package store

import (
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

func TestQuestionsByIDQuery(t *testing.T) {
	t.Parallel()

	query, args, err := questionsByIDQuery([]string{"q1", "q2"}).ToSql()
	if err != nil {
		t.Fatalf("ToSql: %v", err)
	}
	want := "SELECT id, priority, token_cost, topic FROM questions WHERE id = ANY($1) ORDER BY id"
	if query != want {
		t.Errorf("query = %q, want %q", query, want)
	}
	if len(args) != 1 {
		t.Fatalf("args = %d, want 1", len(args))
	}
	if _, ok := args[0].(*pq.StringArray); !ok {
		t.Errorf("args[0] = %T, want *pq.StringArray", args[0])
	}
}

func TestTriggerConditionsQuery(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	query, args, err := triggerConditionsQuery(id).ToSql()
	if err != nil {
		t.Fatalf("ToSql: %v", err)
	}
	want := "SELECT conditions FROM triggers WHERE id = $1"
	if query != want {
		t.Errorf("query = %q, want %q", query, want)
	}
	if len(args) != 1 || args[0] != id {
		t.Errorf("args = %v, want [%v]", args, id)
	}
}
