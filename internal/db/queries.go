package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sqlc-dev/pqtype"
)

const auditSubmissionColumns = `id, response_token, event_id, form_id, submitted_at,
	company_name, industry, company_size, annual_revenue, email, phone,
	primary_challenges, time_consuming_processes, hours_per_week_manual,
	employees_on_repetitive_tasks, hourly_cost_per_employee, monthly_operating_costs,
	current_tech_stack, desired_outcomes, expected_roi_timeline, implementation_budget,
	best_time_to_contact,
	hourly_rate, total_weekly_hours, calculated_weekly_cost, calculated_monthly_cost,
	calculated_annual_cost, potential_savings_30, potential_savings_50,
	ai_strategy, ai_implementation, ai_savings,
	email_sent, email_sent_at, email_message_id, error_message, processing_status,
	raw_payload, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAuditSubmission(row rowScanner) (AuditSubmission, error) {
	var i AuditSubmission
	err := row.Scan(
		&i.ID,
		&i.ResponseToken,
		&i.EventID,
		&i.FormID,
		&i.SubmittedAt,
		&i.CompanyName,
		&i.Industry,
		&i.CompanySize,
		&i.AnnualRevenue,
		&i.Email,
		&i.Phone,
		pq.Array(&i.PrimaryChallenges),
		pq.Array(&i.TimeConsumingProcesses),
		&i.HoursPerWeekManual,
		&i.EmployeesOnRepetitiveTasks,
		&i.HourlyCostPerEmployee,
		&i.MonthlyOperatingCosts,
		pq.Array(&i.CurrentTechStack),
		pq.Array(&i.DesiredOutcomes),
		&i.ExpectedRoiTimeline,
		&i.ImplementationBudget,
		&i.BestTimeToContact,
		&i.HourlyRate,
		&i.TotalWeeklyHours,
		&i.CalculatedWeeklyCost,
		&i.CalculatedMonthlyCost,
		&i.CalculatedAnnualCost,
		&i.PotentialSavings30,
		&i.PotentialSavings50,
		&i.AiStrategy,
		&i.AiImplementation,
		&i.AiSavings,
		&i.EmailSent,
		&i.EmailSentAt,
		&i.EmailMessageID,
		&i.ErrorMessage,
		&i.ProcessingStatus,
		&i.RawPayload,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

// ── Create ────────────────────────────────────────────────────────────────────

const createAuditSubmission = `
INSERT INTO audit_submissions (
	response_token, event_id, form_id, submitted_at,
	company_name, industry, company_size, annual_revenue, email, phone,
	primary_challenges, time_consuming_processes, hours_per_week_manual,
	employees_on_repetitive_tasks, hourly_cost_per_employee, monthly_operating_costs,
	current_tech_stack, desired_outcomes, expected_roi_timeline, implementation_budget,
	best_time_to_contact,
	hourly_rate, total_weekly_hours, calculated_weekly_cost, calculated_monthly_cost,
	calculated_annual_cost, potential_savings_30, potential_savings_50,
	processing_status, raw_payload
) VALUES (
	$1, $2, $3, $4,
	$5, $6, $7, $8, $9, $10,
	$11, $12, $13,
	$14, $15, $16,
	$17, $18, $19, $20,
	$21,
	$22, $23, $24, $25,
	$26, $27, $28,
	$29, $30
)
ON CONFLICT (response_token) DO NOTHING
RETURNING ` + auditSubmissionColumns

type CreateAuditSubmissionParams struct {
	ResponseToken string
	EventID       string
	FormID        string
	SubmittedAt   sql.NullTime

	CompanyName                string
	Industry                   string
	CompanySize                string
	AnnualRevenue              sql.NullString
	Email                      string
	Phone                      sql.NullString
	PrimaryChallenges          []string
	TimeConsumingProcesses     []string
	HoursPerWeekManual         float64
	EmployeesOnRepetitiveTasks int32
	HourlyCostPerEmployee      string
	MonthlyOperatingCosts      sql.NullString
	CurrentTechStack           []string
	DesiredOutcomes            []string
	ExpectedRoiTimeline        sql.NullString
	ImplementationBudget       sql.NullString
	BestTimeToContact          sql.NullString

	HourlyRate            float64
	TotalWeeklyHours      float64
	CalculatedWeeklyCost  float64
	CalculatedMonthlyCost float64
	CalculatedAnnualCost  float64
	PotentialSavings30    float64
	PotentialSavings50    float64

	ProcessingStatus ProcessingStatus
	RawPayload       pqtype.NullRawMessage
}

func (q *Queries) CreateAuditSubmission(ctx context.Context, arg CreateAuditSubmissionParams) (AuditSubmission, error) {
	row := q.db.QueryRowContext(ctx, createAuditSubmission,
		arg.ResponseToken,
		arg.EventID,
		arg.FormID,
		arg.SubmittedAt,
		arg.CompanyName,
		arg.Industry,
		arg.CompanySize,
		arg.AnnualRevenue,
		arg.Email,
		arg.Phone,
		pq.Array(nonNil(arg.PrimaryChallenges)),
		pq.Array(nonNil(arg.TimeConsumingProcesses)),
		arg.HoursPerWeekManual,
		arg.EmployeesOnRepetitiveTasks,
		arg.HourlyCostPerEmployee,
		arg.MonthlyOperatingCosts,
		pq.Array(nonNil(arg.CurrentTechStack)),
		pq.Array(nonNil(arg.DesiredOutcomes)),
		arg.ExpectedRoiTimeline,
		arg.ImplementationBudget,
		arg.BestTimeToContact,
		arg.HourlyRate,
		arg.TotalWeeklyHours,
		arg.CalculatedWeeklyCost,
		arg.CalculatedMonthlyCost,
		arg.CalculatedAnnualCost,
		arg.PotentialSavings30,
		arg.PotentialSavings50,
		arg.ProcessingStatus,
		arg.RawPayload,
	)
	return scanAuditSubmission(row)
}

// ── Update ────────────────────────────────────────────────────────────────────

const updateAuditSubmission = `
UPDATE audit_submissions SET
	ai_strategy       = COALESCE($2, ai_strategy),
	ai_implementation = COALESCE($3, ai_implementation),
	ai_savings        = COALESCE($4, ai_savings),
	email_sent        = COALESCE($5, email_sent),
	email_sent_at     = COALESCE($6, email_sent_at),
	email_message_id  = COALESCE($7, email_message_id),
	error_message     = COALESCE($8, error_message),
	processing_status = COALESCE($9::processing_status, processing_status),
	updated_at        = now()
WHERE id = $1
RETURNING ` + auditSubmissionColumns

// UpdateAuditSubmissionParams carries a partial update; an invalid (zero)
// Null* field leaves the column unchanged.
type UpdateAuditSubmissionParams struct {
	ID               uuid.UUID
	AiStrategy       sql.NullString
	AiImplementation sql.NullString
	AiSavings        sql.NullString
	EmailSent        sql.NullBool
	EmailSentAt      sql.NullTime
	EmailMessageID   sql.NullString
	ErrorMessage     sql.NullString
	ProcessingStatus sql.NullString
}

func (q *Queries) UpdateAuditSubmission(ctx context.Context, arg UpdateAuditSubmissionParams) (AuditSubmission, error) {
	row := q.db.QueryRowContext(ctx, updateAuditSubmission,
		arg.ID,
		arg.AiStrategy,
		arg.AiImplementation,
		arg.AiSavings,
		arg.EmailSent,
		arg.EmailSentAt,
		arg.EmailMessageID,
		arg.ErrorMessage,
		arg.ProcessingStatus,
	)
	return scanAuditSubmission(row)
}

// ── Reads ─────────────────────────────────────────────────────────────────────

const getAuditSubmissionByID = `SELECT ` + auditSubmissionColumns + `
FROM audit_submissions
WHERE id = $1`

func (q *Queries) GetAuditSubmissionByID(ctx context.Context, id uuid.UUID) (AuditSubmission, error) {
	return scanAuditSubmission(q.db.QueryRowContext(ctx, getAuditSubmissionByID, id))
}

const getAuditSubmissionByResponseToken = `SELECT ` + auditSubmissionColumns + `
FROM audit_submissions
WHERE response_token = $1`

func (q *Queries) GetAuditSubmissionByResponseToken(ctx context.Context, responseToken string) (AuditSubmission, error) {
	return scanAuditSubmission(q.db.QueryRowContext(ctx, getAuditSubmissionByResponseToken, responseToken))
}

const listStaleSubmissions = `SELECT id, response_token, processing_status, created_at, updated_at
FROM audit_submissions
WHERE processing_status IN ('pending', 'processing')
  AND updated_at < $1
ORDER BY updated_at
LIMIT $2`

// StaleSubmission is the narrow projection returned by ListStaleSubmissions.
type StaleSubmission struct {
	ID               uuid.UUID
	ResponseToken    string
	ProcessingStatus ProcessingStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type ListStaleSubmissionsParams struct {
	UpdatedBefore time.Time
	Limit         int32
}

func (q *Queries) ListStaleSubmissions(ctx context.Context, arg ListStaleSubmissionsParams) ([]StaleSubmission, error) {
	rows, err := q.db.QueryContext(ctx, listStaleSubmissions, arg.UpdatedBefore, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []StaleSubmission
	for rows.Next() {
		var i StaleSubmission
		if err := rows.Scan(&i.ID, &i.ResponseToken, &i.ProcessingStatus, &i.CreatedAt, &i.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}

// nonNil keeps NOT NULL text[] columns from receiving a NULL array.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// NullTimeFrom wraps t, treating the zero time as NULL.
func NullTimeFrom(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// NullStringFrom wraps s, treating the empty string as NULL.
func NullStringFrom(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
