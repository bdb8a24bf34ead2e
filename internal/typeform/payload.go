// Package typeform decodes Typeform webhook deliveries into typed audit input,
// verifies their signatures, and talks to the Typeform webhook admin API.
package typeform

import (
	"encoding/json"
	"fmt"
	"time"
)

// ─── TYPES ────────────────────────────────────────────────────────────────────

// Payload is the body of a Typeform form_response webhook.
type Payload struct {
	EventID      string       `json:"event_id"`
	EventType    string       `json:"event_type"`
	FormResponse FormResponse `json:"form_response"`
}

// FormResponse is the submission itself.
type FormResponse struct {
	FormID      string   `json:"form_id"`
	Token       string   `json:"token"`
	LandedAt    string   `json:"landed_at,omitempty"`
	SubmittedAt string   `json:"submitted_at"`
	Answers     []Answer `json:"answers"`
}

// Answer is one answered question. Only the value field matching Type is set.
type Answer struct {
	Field       Field    `json:"field"`
	Type        string   `json:"type"`
	Text        string   `json:"text,omitempty"`
	Email       string   `json:"email,omitempty"`
	PhoneNumber string   `json:"phone_number,omitempty"`
	Number      *float64 `json:"number,omitempty"`
	Boolean     *bool    `json:"boolean,omitempty"`
	Date        string   `json:"date,omitempty"`
	URL         string   `json:"url,omitempty"`
	Choice      *Choice  `json:"choice,omitempty"`
	Choices     *Choices `json:"choices,omitempty"`
}

// Field identifies the question an answer belongs to.
type Field struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Ref  string `json:"ref"`
}

// Choice is a single-select answer.
type Choice struct {
	Label string `json:"label"`
}

// Choices is a multi-select answer.
type Choices struct {
	Labels []string `json:"labels"`
}

// ─── ERRORS ───────────────────────────────────────────────────────────────────

// ValidationError reports a payload that cannot become an AuditInput.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "typeform: invalid payload: " + e.Reason
	}
	return fmt.Sprintf("typeform: %s: %s", e.Field, e.Reason)
}

// ─── HELPERS ──────────────────────────────────────────────────────────────────

// DecodePayload unmarshals a raw webhook body. Malformed JSON is reported as a
// *ValidationError so callers classify it the same way as a missing field.
func DecodePayload(raw []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Payload{}, &ValidationError{Reason: fmt.Sprintf("malformed JSON: %v", err)}
	}
	return p, nil
}

// ResponseToken returns form_response.token, the idempotency key of a
// submission.
func ResponseToken(p Payload) (string, error) {
	if p.FormResponse.Token == "" {
		return "", &ValidationError{Field: "form_response.token", Reason: "missing"}
	}
	return p.FormResponse.Token, nil
}

// SubmittedAt returns the submission timestamp, or the zero time when it is
// absent or not RFC 3339.
func SubmittedAt(p Payload) time.Time {
	if p.FormResponse.SubmittedAt == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, p.FormResponse.SubmittedAt)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
