package api

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/nyashahama/roi-audit-backend/internal/pipeline"
	"github.com/nyashahama/roi-audit-backend/internal/typeform"
)

// webhookResponse is the envelope every webhook delivery receives.
type webhookResponse struct {
	Success      bool   `json:"success"`
	SubmissionID string `json:"submissionId,omitempty"`
	EmailSent    *bool  `json:"emailSent,omitempty"`
	Message      string `json:"message,omitempty"`
	Error        string `json:"error,omitempty"`
}

// ─── POST /api/webhooks/typeform ──────────────────────────────────────────────

// handleTypeformWebhook is the entry point for all Typeform deliveries.
//
// Typeform retries any non-2xx response, so everything except a rejected
// signature is answered with 200 and the outcome is carried in the body.
// Redeliveries are answered from the stored record by the pipeline.
func (s *Server) handleTypeformWebhook(w http.ResponseWriter, r *http.Request) {
	// ── 1. Read and size-limit the body ───────────────────────────────────────
	// The signature covers the exact bytes Typeform sent, so the body is read
	// raw before any decoding.
	body, err := readBody(w, r)
	if err != nil {
		s.logger.Warn("webhook: could not read body", "error", err, logField(r))
		respond(w, http.StatusOK, webhookResponse{Success: false, Error: err.Error()})
		return
	}

	// ── 2. Run the pipeline ───────────────────────────────────────────────────
	out := s.pipeline.Process(r.Context(), pipeline.Delivery{
		Body:      body,
		Signature: r.Header.Get(typeform.SignatureHeader),
	})

	// ── 3. Map the outcome ────────────────────────────────────────────────────
	status, resp := webhookResult(out)
	if status != http.StatusOK {
		s.logger.Warn("webhook: delivery rejected", "error", out.Err, logField(r))
	}
	respond(w, status, resp)
}

// webhookResult maps a pipeline outcome to the status code and envelope sent
// back to Typeform.
func webhookResult(out pipeline.Outcome) (int, webhookResponse) {
	resp := webhookResponse{}
	if out.SubmissionID != uuid.Nil {
		resp.SubmissionID = out.SubmissionID.String()
	}

	switch out.Kind {
	case pipeline.Rejected:
		return http.StatusUnauthorized, webhookResponse{Success: false, Error: "Invalid signature"}

	case pipeline.Invalid:
		resp.Error = out.Err.Error()

	case pipeline.Duplicate:
		resp.Success = true
		resp.EmailSent = boolPtr(out.EmailSent)
		resp.Message = "Submission already processed"

	case pipeline.Completed:
		resp.Success = true
		resp.EmailSent = boolPtr(true)
		resp.Message = "Audit generated and emailed"

	case pipeline.Failed:
		if errors.Is(out.Err, pipeline.ErrDelivery) {
			// The record exists and is marked failed; the email can be resent
			// by hand, so Typeform is told the delivery was accepted.
			resp.Success = true
			resp.EmailSent = boolPtr(false)
			resp.Error = out.Err.Error()
			break
		}
		resp.Error = "Processing failed"
	}
	return http.StatusOK, resp
}

func boolPtr(b bool) *bool { return &b }
