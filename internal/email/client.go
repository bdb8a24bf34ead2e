// Package email delivers the audit results email through SendGrid or Resend.
package email

import (
	"context"
	"sync"

	"github.com/nyashahama/roi-audit-backend/internal/ai"
	"github.com/nyashahama/roi-audit-backend/internal/roi"
	"github.com/nyashahama/roi-audit-backend/internal/typeform"
)

// DefaultMessageID is recorded when the provider accepts a message without
// returning an identifier.
const DefaultMessageID = "sent"

// AuditResultsParams holds everything the results email shows.
type AuditResultsParams struct {
	To             string // recipient email address
	CompanyName    string // subject line and greeting
	Input          typeform.AuditInput
	Metrics        roi.Metrics
	Recommendation ai.Recommendation
}

// Result is the outcome of one send. Failures are reported here, never as a
// Go error or a panic.
type Result struct {
	Success   bool
	MessageID string
	Error     string
}

func failed(err error) Result {
	return Result{Success: false, Error: err.Error()}
}

// Sender is the interface the pipeline uses to send the results email.
// Tests inject a stub that records calls without hitting the network.
type Sender interface {
	SendAuditResults(ctx context.Context, p AuditResultsParams) Result
}

// Config is shared by every provider.
type Config struct {
	FromAddr   string // e.g. "phil@nukode.co.uk"
	FromName   string // e.g. "Phil Shields"
	CTAURL     string // booking link shown in the email
	TemplateID string // SendGrid dynamic template; empty sends the rendered bodies
}

// ─── UNCONFIGURED / LAZY ──────────────────────────────────────────────────────

type unconfigured struct{}

// Unconfigured returns a Sender that reports every send as failed.
func Unconfigured() Sender { return unconfigured{} }

func (unconfigured) SendAuditResults(context.Context, AuditResultsParams) Result {
	return Result{Success: false, Error: "email: not configured"}
}

type lazySender struct {
	get func() (Sender, error)
}

// NewLazy returns a Sender built by build on first use. A build error turns
// every send into a failed Result.
func NewLazy(build func() (Sender, error)) Sender {
	return &lazySender{get: sync.OnceValues(build)}
}

func (l *lazySender) SendAuditResults(ctx context.Context, p AuditResultsParams) Result {
	s, err := l.get()
	if err != nil {
		return failed(err)
	}
	if s == nil {
		return Unconfigured().SendAuditResults(ctx, p)
	}
	return s.SendAuditResults(ctx, p)
}
