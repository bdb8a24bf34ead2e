// Package dbtest provides an in-memory db.Querier for tests of packages that
// sit above the store.
package dbtest

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nyashahama/roi-audit-backend/internal/db"
)

// Memory is a goroutine-safe db.Querier backed by a map. It mirrors the
// Postgres statements: ON CONFLICT DO NOTHING on response_token and
// COALESCE-style partial updates.
type Memory struct {
	mu   sync.Mutex
	rows map[uuid.UUID]db.AuditSubmission

	// Error injection. A non-nil error is returned by every call of that
	// statement until reset.
	CreateErr error
	UpdateErr error
	GetErr    error
	ListErr   error

	// FailUpdateAfter, when positive, lets that many updates succeed and then
	// returns UpdateErr.
	FailUpdateAfter int

	Creates int
	Updates int

	now func() time.Time
}

var _ db.Querier = (*Memory)(nil)

// NewMemory returns an empty Memory.
func NewMemory() *Memory {
	return &Memory{
		rows: make(map[uuid.UUID]db.AuditSubmission),
		now:  time.Now,
	}
}

// SetClock replaces the clock used for created_at and updated_at.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Rows returns a snapshot of every stored submission.
func (m *Memory) Rows() []db.AuditSubmission {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]db.AuditSubmission, 0, len(m.rows))
	for _, r := range m.rows {
		out = append(out, r)
	}
	return out
}

// Row returns the submission with id and whether it exists.
func (m *Memory) Row(id uuid.UUID) (db.AuditSubmission, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	return r, ok
}

func (m *Memory) CreateAuditSubmission(_ context.Context, arg db.CreateAuditSubmissionParams) (db.AuditSubmission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Creates++
	if m.CreateErr != nil {
		return db.AuditSubmission{}, m.CreateErr
	}
	for _, r := range m.rows {
		if r.ResponseToken == arg.ResponseToken {
			return db.AuditSubmission{}, sql.ErrNoRows
		}
	}

	now := m.now()
	row := db.AuditSubmission{
		ID:                         uuid.New(),
		ResponseToken:              arg.ResponseToken,
		EventID:                    arg.EventID,
		FormID:                     arg.FormID,
		SubmittedAt:                arg.SubmittedAt,
		CompanyName:                arg.CompanyName,
		Industry:                   arg.Industry,
		CompanySize:                arg.CompanySize,
		AnnualRevenue:              arg.AnnualRevenue,
		Email:                      arg.Email,
		Phone:                      arg.Phone,
		PrimaryChallenges:          arg.PrimaryChallenges,
		TimeConsumingProcesses:     arg.TimeConsumingProcesses,
		HoursPerWeekManual:         arg.HoursPerWeekManual,
		EmployeesOnRepetitiveTasks: arg.EmployeesOnRepetitiveTasks,
		HourlyCostPerEmployee:      arg.HourlyCostPerEmployee,
		MonthlyOperatingCosts:      arg.MonthlyOperatingCosts,
		CurrentTechStack:           arg.CurrentTechStack,
		DesiredOutcomes:            arg.DesiredOutcomes,
		ExpectedRoiTimeline:        arg.ExpectedRoiTimeline,
		ImplementationBudget:       arg.ImplementationBudget,
		BestTimeToContact:          arg.BestTimeToContact,
		HourlyRate:                 arg.HourlyRate,
		TotalWeeklyHours:           arg.TotalWeeklyHours,
		CalculatedWeeklyCost:       arg.CalculatedWeeklyCost,
		CalculatedMonthlyCost:      arg.CalculatedMonthlyCost,
		CalculatedAnnualCost:       arg.CalculatedAnnualCost,
		PotentialSavings30:         arg.PotentialSavings30,
		PotentialSavings50:         arg.PotentialSavings50,
		ProcessingStatus:           arg.ProcessingStatus,
		RawPayload:                 arg.RawPayload,
		CreatedAt:                  now,
		UpdatedAt:                  now,
	}
	if row.ProcessingStatus == "" {
		row.ProcessingStatus = db.ProcessingStatusPending
	}
	m.rows[row.ID] = row
	return row, nil
}

func (m *Memory) UpdateAuditSubmission(_ context.Context, arg db.UpdateAuditSubmissionParams) (db.AuditSubmission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Updates++
	if m.UpdateErr != nil && (m.FailUpdateAfter <= 0 || m.Updates > m.FailUpdateAfter) {
		return db.AuditSubmission{}, m.UpdateErr
	}
	row, ok := m.rows[arg.ID]
	if !ok {
		return db.AuditSubmission{}, sql.ErrNoRows
	}

	if arg.AiStrategy.Valid {
		row.AiStrategy = arg.AiStrategy
	}
	if arg.AiImplementation.Valid {
		row.AiImplementation = arg.AiImplementation
	}
	if arg.AiSavings.Valid {
		row.AiSavings = arg.AiSavings
	}
	if arg.EmailSent.Valid {
		row.EmailSent = arg.EmailSent.Bool
	}
	if arg.EmailSentAt.Valid {
		row.EmailSentAt = arg.EmailSentAt
	}
	if arg.EmailMessageID.Valid {
		row.EmailMessageID = arg.EmailMessageID
	}
	if arg.ErrorMessage.Valid {
		row.ErrorMessage = arg.ErrorMessage
	}
	if arg.ProcessingStatus.Valid {
		row.ProcessingStatus = db.ProcessingStatus(arg.ProcessingStatus.String)
	}
	row.UpdatedAt = m.now()
	m.rows[row.ID] = row
	return row, nil
}

func (m *Memory) GetAuditSubmissionByID(_ context.Context, id uuid.UUID) (db.AuditSubmission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return db.AuditSubmission{}, m.GetErr
	}
	row, ok := m.rows[id]
	if !ok {
		return db.AuditSubmission{}, sql.ErrNoRows
	}
	return row, nil
}

func (m *Memory) GetAuditSubmissionByResponseToken(_ context.Context, token string) (db.AuditSubmission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return db.AuditSubmission{}, m.GetErr
	}
	for _, r := range m.rows {
		if r.ResponseToken == token {
			return r, nil
		}
	}
	return db.AuditSubmission{}, sql.ErrNoRows
}

func (m *Memory) ListStaleSubmissions(_ context.Context, arg db.ListStaleSubmissionsParams) ([]db.StaleSubmission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	var out []db.StaleSubmission
	for _, r := range m.rows {
		if r.ProcessingStatus.Terminal() || !r.UpdatedAt.Before(arg.UpdatedBefore) {
			continue
		}
		out = append(out, db.StaleSubmission{
			ID:               r.ID,
			ResponseToken:    r.ResponseToken,
			ProcessingStatus: r.ProcessingStatus,
			CreatedAt:        r.CreatedAt,
			UpdatedAt:        r.UpdatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	if arg.Limit > 0 && len(out) > int(arg.Limit) {
		out = out[:arg.Limit]
	}
	return out, nil
}
