// Package store wraps db.Querier with the submission operations the pipeline
// needs and maps backend failures onto PersistenceError.
//
// The store never decides a submission's lifecycle state; it persists what
// the pipeline tells it.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/nyashahama/roi-audit-backend/internal/db"
)

// Store holds the connection pool (for health checks) and a db.Querier for
// executing queries.
type Store struct {
	// pool may be nil in unit tests that run against a stub Querier.
	pool *sql.DB
	q    db.Querier
}

// New creates a Store. The pool must already be open and verified (e.g. via
// db.PingContext) before calling New.
func New(pool *sql.DB, q db.Querier) *Store {
	return &Store{pool: pool, q: q}
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if s.pool == nil {
		return nil
	}
	if err := s.pool.PingContext(ctx); err != nil {
		return &PersistenceError{Op: "Ping", Err: err}
	}
	return nil
}

// ─── ERRORS ──────────────────────────────────────────────────────────────────

var (
	// ErrDuplicateSubmission is returned by Create when a submission with the
	// same response token already exists. The id of the existing row is
	// returned alongside it.
	ErrDuplicateSubmission = errors.New("store: submission already exists for response token")

	// ErrSubmissionNotFound is wrapped in a PersistenceError when an id does
	// not match any row.
	ErrSubmissionNotFound = errors.New("store: submission not found")
)

// PersistenceError reports a failed database operation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// uniqueViolation is the Postgres SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
