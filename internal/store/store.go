// Package store provides the data access layer for question and trigger
// records. Queries are built with squirrel against a *sql.DB wrapping pgxpool
// via stdlib; the raw pool is kept for callers that need pgx native access.
package store

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// Store is the central data access object for the questions and triggers
// tables. It satisfies the engine's QuestionSource and TriggerSource.
type Store struct {
	pool *pgxpool.Pool
	db   *sql.DB
}

// New creates a Store backed by pool. The stdlib adapter shares the pool's
// connections, so both handles observe the same pool limits.
func New(pool *pgxpool.Pool) *Store {
	return &Store{
		pool: pool,
		db:   stdlib.OpenDBFromPool(pool),
	}
}

// Pool returns the underlying pgxpool for callers that need pgx native
// operations.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// DB returns the stdlib-wrapped *sql.DB.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the stdlib handle and the pool.
func (s *Store) Close() error {
	err := s.db.Close()
	s.pool.Close()
	return err
}
