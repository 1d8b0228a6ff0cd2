// ABOUTME: Store methods for interview question records.
// ABOUTME: Queries use squirrel with dollar placeholders and pq.Array for id sets.
package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/intervex/intervex/internal/optimizer"
)

// QuestionsByID returns the candidate metadata for the given question ids.
// Ids with no matching row are omitted, not errors; callers treat absence as
// exclusion from optimization.
func (s *Store) QuestionsByID(ctx context.Context, ids []string) ([]optimizer.Candidate, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := questionsByIDQuery(ids).ToSql()
	if err != nil {
		return nil, fmt.Errorf("questions by id: build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("questions by id: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var result []optimizer.Candidate
	for rows.Next() {
		var c optimizer.Candidate
		if err := rows.Scan(&c.ID, &c.Priority, &c.TokenCost, &c.Topic); err != nil {
			return nil, fmt.Errorf("questions by id: scan: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// questionsByIDQuery builds the lookup. id = ANY($1) keeps the statement
// shape stable regardless of how many ids are requested.
func questionsByIDQuery(ids []string) sq.SelectBuilder {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	return psql.
		Select("id, priority, token_cost, topic").
		From("questions").
		Where("id = ANY(?)", pq.Array(ids)).
		OrderBy("id")
}
