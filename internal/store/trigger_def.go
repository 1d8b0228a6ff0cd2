// ABOUTME: Store methods for trigger definition records.
// ABOUTME: Conditions are stored as a jsonb column and decoded on read.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/intervex/intervex/internal/trigger"
)

// TriggerConditions returns the declarative condition list for one trigger.
// Returns ErrNotFound when no trigger with the given id exists.
func (s *Store) TriggerConditions(ctx context.Context, triggerID uuid.UUID) ([]trigger.Condition, error) {
	query, args, err := triggerConditionsQuery(triggerID).ToSql()
	if err != nil {
		return nil, fmt.Errorf("trigger conditions: build query: %w", err)
	}

	var raw json.RawMessage
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("trigger %s: %w", triggerID, ErrNotFound)
		}
		return nil, fmt.Errorf("trigger conditions: %w", err)
	}

	var conditions []trigger.Condition
	if err := json.Unmarshal(raw, &conditions); err != nil {
		return nil, fmt.Errorf("trigger %s: decode conditions: %w", triggerID, err)
	}
	return conditions, nil
}

func triggerConditionsQuery(triggerID uuid.UUID) sq.SelectBuilder {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	return psql.
		Select("conditions").
		From("triggers").
		Where(sq.Eq{"id": triggerID})
}
