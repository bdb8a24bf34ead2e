package db

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

// ProcessingStatus mirrors the processing_status Postgres enum.
type ProcessingStatus string

const (
	ProcessingStatusPending    ProcessingStatus = "pending"
	ProcessingStatusProcessing ProcessingStatus = "processing"
	ProcessingStatusCompleted  ProcessingStatus = "completed"
	ProcessingStatusFailed     ProcessingStatus = "failed"
)

// Terminal reports whether no further pipeline step will touch the row.
func (s ProcessingStatus) Terminal() bool {
	return s == ProcessingStatusCompleted || s == ProcessingStatusFailed
}

// AuditSubmission is one row of audit_submissions.
type AuditSubmission struct {
	ID            uuid.UUID
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

	AiStrategy       sql.NullString
	AiImplementation sql.NullString
	AiSavings        sql.NullString

	EmailSent        bool
	EmailSentAt      sql.NullTime
	EmailMessageID   sql.NullString
	ErrorMessage     sql.NullString
	ProcessingStatus ProcessingStatus
	RawPayload       pqtype.NullRawMessage

	CreatedAt time.Time
	UpdatedAt time.Time
}
