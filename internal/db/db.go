// Package db is the thin query layer over Postgres. Every statement the
// service runs lives in queries.go; callers depend on the Querier interface so
// tests can substitute an in-memory stub.
package db

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// New returns a Queries bound to db.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// Queries implements Querier on top of a DBTX.
type Queries struct {
	db DBTX
}

// WithTx returns a copy of q that runs every statement inside tx.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Querier is the full set of statements the store needs.
type Querier interface {
	// CreateAuditSubmission inserts a submission. When a row with the same
	// response_token already exists nothing is written and sql.ErrNoRows is
	// returned (ON CONFLICT DO NOTHING).
	CreateAuditSubmission(ctx context.Context, arg CreateAuditSubmissionParams) (AuditSubmission, error)

	// UpdateAuditSubmission applies every Valid field of arg and leaves the
	// rest untouched. Returns sql.ErrNoRows for an unknown id.
	UpdateAuditSubmission(ctx context.Context, arg UpdateAuditSubmissionParams) (AuditSubmission, error)

	GetAuditSubmissionByID(ctx context.Context, id uuid.UUID) (AuditSubmission, error)
	GetAuditSubmissionByResponseToken(ctx context.Context, responseToken string) (AuditSubmission, error)

	// ListStaleSubmissions returns non-terminal rows last touched before
	// arg.UpdatedBefore, oldest first.
	ListStaleSubmissions(ctx context.Context, arg ListStaleSubmissionsParams) ([]StaleSubmission, error)
}

var _ Querier = (*Queries)(nil)
