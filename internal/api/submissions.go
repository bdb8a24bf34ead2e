package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nyashahama/roi-audit-backend/internal/db"
	"github.com/nyashahama/roi-audit-backend/internal/store"
)

// ─── GET /api/submissions/:submissionID ──────────────────────────────────────

type metricsResponse struct {
	HourlyRate         float64 `json:"hourly_rate"`
	TotalWeeklyHours   float64 `json:"total_weekly_hours"`
	WeeklyLaborCost    float64 `json:"weekly_labor_cost"`
	MonthlyLaborCost   float64 `json:"monthly_labor_cost"`
	AnnualLaborCost    float64 `json:"annual_labor_cost"`
	PotentialSavings30 float64 `json:"potential_savings_30"`
	PotentialSavings50 float64 `json:"potential_savings_50"`
}

type recommendationResponse struct {
	Strategy       string `json:"strategy"`
	Implementation string `json:"implementation"`
	Savings        string `json:"savings"`
}

type submissionResponse struct {
	SubmissionID   string                  `json:"submission_id"`
	Status         string                  `json:"status"`
	CompanyName    string                  `json:"company_name"`
	Industry       string                  `json:"industry,omitempty"`
	CompanySize    string                  `json:"company_size,omitempty"`
	Metrics        metricsResponse         `json:"metrics"`
	Recommendation *recommendationResponse `json:"recommendation,omitempty"`
	EmailSent      bool                    `json:"email_sent"`
	EmailSentAt    string                  `json:"email_sent_at,omitempty"`
	Error          string                  `json:"error,omitempty"`
	SubmittedAt    string                  `json:"submitted_at,omitempty"`
	CreatedAt      string                  `json:"created_at"`
}

// handleGetSubmission serves the stored result of one submission. The raw
// webhook payload and contact details are never returned.
//
// Returns 404 for an unknown id. Returns 202 Accepted while the submission is
// still pending or processing so the frontend can poll.
func (s *Server) handleGetSubmission(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "submissionID"))
	if err != nil {
		respondErr(w, http.StatusNotFound, "submission not found")
		return
	}

	row, err := s.store.Get(r.Context(), id)
	if errors.Is(err, store.ErrSubmissionNotFound) {
		respondErr(w, http.StatusNotFound, "submission not found")
		return
	}
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("get submission: %w", err))
		return
	}

	if !row.ProcessingStatus.Terminal() {
		respond(w, http.StatusAccepted, map[string]string{
			"status":  string(row.ProcessingStatus),
			"message": "audit is being generated, please check back shortly",
		})
		return
	}

	respond(w, http.StatusOK, toSubmissionResponse(row))
}

func toSubmissionResponse(row db.AuditSubmission) submissionResponse {
	resp := submissionResponse{
		SubmissionID: row.ID.String(),
		Status:       string(row.ProcessingStatus),
		CompanyName:  row.CompanyName,
		Industry:     row.Industry,
		CompanySize:  row.CompanySize,
		Metrics: metricsResponse{
			HourlyRate:         row.HourlyRate,
			TotalWeeklyHours:   row.TotalWeeklyHours,
			WeeklyLaborCost:    row.CalculatedWeeklyCost,
			MonthlyLaborCost:   row.CalculatedMonthlyCost,
			AnnualLaborCost:    row.CalculatedAnnualCost,
			PotentialSavings30: row.PotentialSavings30,
			PotentialSavings50: row.PotentialSavings50,
		},
		EmailSent: row.EmailSent,
		Error:     row.ErrorMessage.String,
		CreatedAt: row.CreatedAt.UTC().Format(time.RFC3339),
	}
	if row.AiStrategy.Valid {
		resp.Recommendation = &recommendationResponse{
			Strategy:       row.AiStrategy.String,
			Implementation: row.AiImplementation.String,
			Savings:        row.AiSavings.String,
		}
	}
	if row.EmailSentAt.Valid {
		resp.EmailSentAt = row.EmailSentAt.Time.UTC().Format(time.RFC3339)
	}
	if row.SubmittedAt.Valid {
		resp.SubmittedAt = row.SubmittedAt.Time.UTC().Format(time.RFC3339)
	}
	return resp
}
