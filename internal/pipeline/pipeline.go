// Package pipeline turns one Typeform webhook delivery into a stored,
// emailed audit result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/nyashahama/roi-audit-backend/internal/ai"
	"github.com/nyashahama/roi-audit-backend/internal/db"
	"github.com/nyashahama/roi-audit-backend/internal/email"
	"github.com/nyashahama/roi-audit-backend/internal/roi"
	"github.com/nyashahama/roi-audit-backend/internal/store"
	"github.com/nyashahama/roi-audit-backend/internal/typeform"
)

// Store is the subset of *store.Store the pipeline writes through.
type Store interface {
	FindByResponseToken(ctx context.Context, token string) (*db.AuditSubmission, error)
	Create(ctx context.Context, p store.CreateParams) (uuid.UUID, error)
	Update(ctx context.Context, id uuid.UUID, u store.Update) error
}

var _ Store = (*store.Store)(nil)

// Delivery is one inbound webhook request.
type Delivery struct {
	Body      []byte // raw, unparsed request body
	Signature string // Typeform-Signature header value
}

// Config bounds the external calls of one delivery. Zero fields take the
// values from DefaultConfig.
type Config struct {
	// AITimeout is the total budget for the recommendation step, across
	// every provider in the chain. Default: 60s.
	AITimeout time.Duration

	// EmailTimeout bounds the results email. The send runs on a context the
	// request deadline cannot cancel, so a slow AI step never costs the
	// email its budget. Default: 15s.
	EmailTimeout time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		AITimeout:    60 * time.Second,
		EmailTimeout: 15 * time.Second,
	}
}

// Pipeline holds the collaborators shared by every delivery. It keeps no
// per-request state and is safe for concurrent use.
type Pipeline struct {
	verifier    *typeform.Verifier
	parser      *typeform.Parser
	store       Store
	recommender ai.Recommender
	mailer      email.Sender
	cfg         Config
	logger      *slog.Logger
	now         func() time.Time
}

// New constructs a Pipeline with all required dependencies.
func New(
	verifier *typeform.Verifier,
	parser *typeform.Parser,
	st Store,
	recommender ai.Recommender,
	mailer email.Sender,
	cfg Config,
	logger *slog.Logger,
) *Pipeline {
	def := DefaultConfig()
	if cfg.AITimeout <= 0 {
		cfg.AITimeout = def.AITimeout
	}
	if cfg.EmailTimeout <= 0 {
		cfg.EmailTimeout = def.EmailTimeout
	}
	return &Pipeline{
		verifier:    verifier,
		parser:      parser,
		store:       st,
		recommender: recommender,
		mailer:      mailer,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
	}
}

// Process runs one delivery to completion:
//
//  1. Verify the signature.
//  2. Look the response token up; a stored token short-circuits.
//  3. Parse the answers into an AuditInput.
//  4. Compute ROI metrics.
//  5. Create the record in the processing state.
//  6. Ask the model for a recommendation within AITimeout, falling back to
//     the canned one.
//  7. Store the recommendation (best effort).
//  8. Send the results email within EmailTimeout.
//  9. Store the final status: completed after a send, failed otherwise.
//
// Process never returns an error. Everything the caller needs is in the
// Outcome, and only Rejected is meant to reach the webhook provider as a
// non-2xx response.
func (p *Pipeline) Process(ctx context.Context, d Delivery) (out Outcome) {
	// ── 1. Signature ──────────────────────────────────────────────────────────
	if err := p.verifier.Verify(d.Body, d.Signature); err != nil {
		p.logger.Warn("pipeline: signature rejected", "error", err)
		return Outcome{Kind: Rejected, Err: err}
	}

	payload, err := typeform.DecodePayload(d.Body)
	if err != nil {
		p.logger.Warn("pipeline: undecodable payload", "error", err)
		return Outcome{Kind: Invalid, Err: err}
	}
	token, err := typeform.ResponseToken(payload)
	if err != nil {
		p.logger.Warn("pipeline: payload has no response token", "event_id", payload.EventID)
		return Outcome{Kind: Invalid, Err: err}
	}

	log := p.logger.With("response_token", token, "event_id", payload.EventID)

	// ── 2. Dedupe ─────────────────────────────────────────────────────────────
	existing, err := p.store.FindByResponseToken(ctx, token)
	if err != nil {
		log.Error("pipeline: lookup by response token failed", "error", err)
		return Outcome{Kind: Failed, Err: fmt.Errorf("pipeline: lookup: %w", err)}
	}
	if existing != nil {
		log.Info("pipeline: already processed", "submission_id", existing.ID, "status", existing.ProcessingStatus)
		return Outcome{Kind: Duplicate, SubmissionID: existing.ID, EmailSent: existing.EmailSent}
	}

	var id uuid.UUID
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("pipeline: panic: %v", r)
			log.Error("pipeline: recovered panic", "panic", r, "stack", string(debug.Stack()))
			if id != uuid.Nil {
				p.finish(ctx, log, id, store.Update{
					ErrorMessage: store.String(err.Error()),
					Status:       store.Status(db.ProcessingStatusFailed),
				})
			}
			out = Outcome{Kind: Failed, SubmissionID: id, Err: err}
		}
	}()

	// ── 3. Parse ──────────────────────────────────────────────────────────────
	in, err := p.parser.Parse(payload)
	if err != nil {
		log.Warn("pipeline: invalid submission", "error", err)
		return Outcome{Kind: Invalid, Err: err}
	}

	// ── 4. Metrics ────────────────────────────────────────────────────────────
	metrics := roi.Compute(roi.Input{
		HoursPerWeek: in.HoursPerWeekOnManualTasks,
		Employees:    in.EmployeesOnRepetitiveTasks,
		HourlyCost:   in.HourlyCostPerEmployee,
	})

	// ── 5. Initial record ─────────────────────────────────────────────────────
	created, err := p.store.Create(ctx, store.CreateParams{
		ResponseToken: token,
		EventID:       payload.EventID,
		FormID:        payload.FormResponse.FormID,
		SubmittedAt:   typeform.SubmittedAt(payload),
		Input:         in,
		Metrics:       metrics,
		RawPayload:    d.Body,
	})
	if errors.Is(err, store.ErrDuplicateSubmission) {
		// A concurrent delivery of the same token inserted first.
		log.Info("pipeline: lost insert race to concurrent delivery", "submission_id", created)
		return Outcome{Kind: Duplicate, SubmissionID: created}
	}
	if err != nil {
		log.Error("pipeline: create submission failed", "error", err)
		return Outcome{Kind: Failed, Err: fmt.Errorf("pipeline: create submission: %w", err)}
	}

	id = created
	log = log.With("submission_id", id)
	log.Info("pipeline: submission stored",
		"company", in.CompanyName,
		"annual_cost", metrics.AnnualLaborCost,
	)

	// ── 6. Recommendation ─────────────────────────────────────────────────────
	degraded := false
	aiCtx, cancelAI := context.WithTimeout(ctx, p.cfg.AITimeout)
	rec, err := p.recommender.Recommend(aiCtx, in, metrics)
	cancelAI()
	if err != nil {
		// Non-fatal: the canned recommendation is built from the metrics alone.
		log.Warn("pipeline: AI recommendation failed, using fallback", "error", err)
		rec = ai.Fallback(metrics)
		degraded = true
	}

	// ── 7. Store recommendation ───────────────────────────────────────────────
	if err := p.store.Update(context.WithoutCancel(ctx), id, store.Update{
		AIStrategy:       store.String(rec.Strategy),
		AIImplementation: store.String(rec.Implementation),
		AISavings:        store.String(rec.Savings),
	}); err != nil {
		log.Error("pipeline: storing recommendation failed, continuing to email", "error", err)
	}

	// ── 8. Email ──────────────────────────────────────────────────────────────
	// A request deadline spent by the AI step must not fail the send.
	mailCtx, cancelMail := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.EmailTimeout)
	res := p.mailer.SendAuditResults(mailCtx, email.AuditResultsParams{
		To:             in.Email,
		CompanyName:    in.CompanyName,
		Input:          in,
		Metrics:        metrics,
		Recommendation: rec,
	})
	cancelMail()

	// ── 9. Final status ───────────────────────────────────────────────────────
	if !res.Success {
		log.Error("pipeline: results email failed", "to", in.Email, "error", res.Error)
		p.finish(ctx, log, id, store.Update{
			ErrorMessage: store.String(res.Error),
			Status:       store.Status(db.ProcessingStatusFailed),
		})
		return Outcome{
			Kind:         Failed,
			SubmissionID: id,
			Degraded:     degraded,
			Err:          fmt.Errorf("%w: %s", ErrDelivery, res.Error),
		}
	}

	messageID := res.MessageID
	if messageID == "" {
		messageID = email.DefaultMessageID
	}
	p.finish(ctx, log, id, store.Update{
		EmailSent:      store.Bool(true),
		EmailSentAt:    store.Time(p.now().UTC()),
		EmailMessageID: store.String(messageID),
		Status:         store.Status(db.ProcessingStatusCompleted),
	})

	log.Info("pipeline: completed", "message_id", messageID, "degraded", degraded)
	return Outcome{Kind: Completed, SubmissionID: id, EmailSent: true, Degraded: degraded}
}

// finish writes a final update. It runs even when the request context has
// been cancelled; a failure leaves the record in processing and is only
// logged.
func (p *Pipeline) finish(ctx context.Context, log *slog.Logger, id uuid.UUID, u store.Update) {
	if err := p.store.Update(context.WithoutCancel(ctx), id, u); err != nil {
		log.Error("pipeline: storing final status failed, record left in processing", "error", err)
	}
}
