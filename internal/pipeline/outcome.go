package pipeline

import (
	"errors"

	"github.com/google/uuid"
)

// Kind classifies how a delivery ended.
type Kind int

const (
	// Rejected: the signature check failed. Nothing was read or written.
	Rejected Kind = iota
	// Invalid: the payload could not become an AuditInput. Nothing was written.
	Invalid
	// Duplicate: the response token was already stored. SubmissionID is the
	// existing record.
	Duplicate
	// Completed: the record was stored and the results email was sent.
	Completed
	// Failed: an unrecoverable step failed. SubmissionID is set when a
	// record exists, in which case it has been marked failed.
	Failed
)

func (k Kind) String() string {
	switch k {
	case Rejected:
		return "rejected"
	case Invalid:
		return "invalid"
	case Duplicate:
		return "duplicate"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the result of processing one delivery.
type Outcome struct {
	Kind         Kind
	SubmissionID uuid.UUID // uuid.Nil when no record exists
	EmailSent    bool
	Degraded     bool  // the canned recommendation replaced the model's
	Err          error // set for Rejected, Invalid and Failed
}

// Success reports whether the submission is, or already was, fully handled.
func (o Outcome) Success() bool {
	return o.Kind == Completed || o.Kind == Duplicate
}

// ErrDelivery wraps the error text of a failed email send.
var ErrDelivery = errors.New("pipeline: email delivery failed")
