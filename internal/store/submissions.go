package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"

	"github.com/nyashahama/roi-audit-backend/internal/db"
	"github.com/nyashahama/roi-audit-backend/internal/roi"
	"github.com/nyashahama/roi-audit-backend/internal/typeform"
)

// ─── INPUT TYPES ─────────────────────────────────────────────────────────────

// CreateParams is everything known about a submission before any external
// call: the delivery metadata, the parsed input and its metrics.
type CreateParams struct {
	ResponseToken string
	EventID       string
	FormID        string
	SubmittedAt   time.Time // zero when the payload carried none
	Input         typeform.AuditInput
	Metrics       roi.Metrics
	RawPayload    []byte // original webhook body; stored as jsonb when valid JSON
}

// Update is a partial update. Nil fields are left untouched.
type Update struct {
	AIStrategy       *string
	AIImplementation *string
	AISavings        *string
	EmailSent        *bool
	EmailSentAt      *time.Time
	EmailMessageID   *string
	ErrorMessage     *string
	Status           *db.ProcessingStatus
}

// ─── METHODS ─────────────────────────────────────────────────────────────────

// Create inserts a submission in the processing state with email_sent=false.
//
// If a row with the same response token already exists (a redelivery that
// raced past the pipeline's lookup), nothing is written and the existing id
// is returned together with ErrDuplicateSubmission.
func (s *Store) Create(ctx context.Context, p CreateParams) (uuid.UUID, error) {
	in := p.Input
	m := p.Metrics

	row, err := s.q.CreateAuditSubmission(ctx, db.CreateAuditSubmissionParams{
		ResponseToken: p.ResponseToken,
		EventID:       p.EventID,
		FormID:        p.FormID,
		SubmittedAt:   db.NullTimeFrom(p.SubmittedAt),

		CompanyName:                in.CompanyName,
		Industry:                   in.Industry,
		CompanySize:                in.CompanySize,
		AnnualRevenue:              db.NullStringFrom(in.AnnualRevenue),
		Email:                      in.Email,
		Phone:                      db.NullStringFrom(in.Phone),
		PrimaryChallenges:          in.PrimaryChallenges,
		TimeConsumingProcesses:     in.TimeConsumingProcesses,
		HoursPerWeekManual:         in.HoursPerWeekOnManualTasks,
		EmployeesOnRepetitiveTasks: clampInt32(in.EmployeesOnRepetitiveTasks),
		HourlyCostPerEmployee:      in.HourlyCostPerEmployee,
		MonthlyOperatingCosts:      db.NullStringFrom(in.MonthlyOperatingCosts),
		CurrentTechStack:           in.CurrentTechStack,
		DesiredOutcomes:            in.DesiredOutcomes,
		ExpectedRoiTimeline:        db.NullStringFrom(in.ExpectedROITimeline),
		ImplementationBudget:       db.NullStringFrom(in.ImplementationBudget),
		BestTimeToContact:          db.NullStringFrom(in.BestTimeToContact),

		HourlyRate:            m.HourlyRate,
		TotalWeeklyHours:      m.TotalWeeklyHours,
		CalculatedWeeklyCost:  m.WeeklyLaborCost,
		CalculatedMonthlyCost: m.MonthlyLaborCost,
		CalculatedAnnualCost:  m.AnnualLaborCost,
		PotentialSavings30:    m.PotentialSavings30Percent,
		PotentialSavings50:    m.PotentialSavings50Percent,

		ProcessingStatus: db.ProcessingStatusProcessing,
		RawPayload:       rawJSON(p.RawPayload),
	})
	if err == nil {
		return row.ID, nil
	}

	// ON CONFLICT DO NOTHING returns no row; a concurrent insert that lost
	// the race surfaces as a unique violation instead.
	if errors.Is(err, sql.ErrNoRows) || isUniqueViolation(err) {
		existing, getErr := s.q.GetAuditSubmissionByResponseToken(ctx, p.ResponseToken)
		if getErr != nil {
			return uuid.Nil, &PersistenceError{
				Op:  "Create",
				Err: fmt.Errorf("load existing submission after conflict: %w", getErr),
			}
		}
		return existing.ID, ErrDuplicateSubmission
	}
	return uuid.Nil, &PersistenceError{Op: "Create", Err: err}
}

// Update merges u into the submission with the given id.
func (s *Store) Update(ctx context.Context, id uuid.UUID, u Update) error {
	arg := db.UpdateAuditSubmissionParams{
		ID:               id,
		AiStrategy:       nullString(u.AIStrategy),
		AiImplementation: nullString(u.AIImplementation),
		AiSavings:        nullString(u.AISavings),
		EmailMessageID:   nullString(u.EmailMessageID),
		ErrorMessage:     nullString(u.ErrorMessage),
	}
	if u.EmailSent != nil {
		arg.EmailSent = sql.NullBool{Bool: *u.EmailSent, Valid: true}
	}
	if u.EmailSentAt != nil {
		arg.EmailSentAt = sql.NullTime{Time: *u.EmailSentAt, Valid: true}
	}
	if u.Status != nil {
		arg.ProcessingStatus = sql.NullString{String: string(*u.Status), Valid: true}
	}

	if _, err := s.q.UpdateAuditSubmission(ctx, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &PersistenceError{Op: "Update", Err: fmt.Errorf("%w: %s", ErrSubmissionNotFound, id)}
		}
		return &PersistenceError{Op: "Update", Err: err}
	}
	return nil
}

// FindByResponseToken returns the submission for token, or nil when none
// exists.
func (s *Store) FindByResponseToken(ctx context.Context, token string) (*db.AuditSubmission, error) {
	row, err := s.q.GetAuditSubmissionByResponseToken(ctx, token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &PersistenceError{Op: "FindByResponseToken", Err: err}
	}
	return &row, nil
}

// Get returns the submission with the given id. An unknown id yields a
// PersistenceError wrapping ErrSubmissionNotFound.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (db.AuditSubmission, error) {
	row, err := s.q.GetAuditSubmissionByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return db.AuditSubmission{}, &PersistenceError{Op: "Get", Err: fmt.Errorf("%w: %s", ErrSubmissionNotFound, id)}
	}
	if err != nil {
		return db.AuditSubmission{}, &PersistenceError{Op: "Get", Err: err}
	}
	return row, nil
}

// ListStale returns up to limit submissions still pending or processing whose
// last update is older than olderThan.
func (s *Store) ListStale(ctx context.Context, olderThan time.Time, limit int) ([]db.StaleSubmission, error) {
	rows, err := s.q.ListStaleSubmissions(ctx, db.ListStaleSubmissionsParams{
		UpdatedBefore: olderThan,
		Limit:         int32(limit),
	})
	if err != nil {
		return nil, &PersistenceError{Op: "ListStale", Err: err}
	}
	return rows, nil
}

// ─── HELPERS ─────────────────────────────────────────────────────────────────

// String, Bool, Time and Status return pointers for building an Update.
func String(s string) *string { return &s }

func Bool(b bool) *bool { return &b }

func Time(t time.Time) *time.Time { return &t }

func Status(s db.ProcessingStatus) *db.ProcessingStatus { return &s }

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// clampInt32 saturates n to the range of a Postgres integer column.
func clampInt32(n int) int32 {
	switch {
	case n > math.MaxInt32:
		return math.MaxInt32
	case n < math.MinInt32:
		return math.MinInt32
	}
	return int32(n)
}

func rawJSON(b []byte) pqtype.NullRawMessage {
	if len(b) == 0 || !json.Valid(b) {
		return pqtype.NullRawMessage{}
	}
	return pqtype.NullRawMessage{RawMessage: json.RawMessage(b), Valid: true}
}
