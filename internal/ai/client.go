// Package ai generates a short automation recommendation for an audit
// submission using a generative model, with a canned fallback when no model
// is reachable.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nyashahama/roi-audit-backend/internal/roi"
	"github.com/nyashahama/roi-audit-backend/internal/typeform"
)

// Recommendation is the model's proposal. All three fields are non-empty.
type Recommendation struct {
	// Strategy is a short title for the proposed solution (about six words).
	Strategy string `json:"strategy"`

	// Implementation is a 2–3 sentence description of what would be built.
	Implementation string `json:"implementation"`

	// Savings estimates time and money saved, e.g.
	// "40 hours/week saved, approximately £5,000/month".
	Savings string `json:"savings"`
}

// Recommender is the interface the pipeline uses to obtain a recommendation.
// Implementations must be safe to call concurrently. A non-nil error is always
// a *ServiceError; the pipeline then falls back to Fallback(metrics).
type Recommender interface {
	Recommend(ctx context.Context, in typeform.AuditInput, m roi.Metrics) (Recommendation, error)
}

// ProviderConfig configures one model provider.
type ProviderConfig struct {
	APIKey  string
	Model   string
	BaseURL string        // empty selects the provider's public endpoint
	Timeout time.Duration // zero selects 90s
}

func (c ProviderConfig) timeout() time.Duration {
	if c.Timeout <= 0 {
		return 90 * time.Second
	}
	return c.Timeout
}

// ─── ERRORS ───────────────────────────────────────────────────────────────────

// ErrNotConfigured is returned by Unconfigured and by a lazy Recommender whose
// construction failed.
var ErrNotConfigured = errors.New("ai: no provider configured")

// ServiceError reports a failed, unreachable, or schema-invalid generation.
type ServiceError struct {
	Provider string
	Err      error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("ai: %s: %v", e.Provider, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

func serviceErr(provider string, format string, args ...any) error {
	return &ServiceError{Provider: provider, Err: fmt.Errorf(format, args...)}
}

// ─── UNCONFIGURED ─────────────────────────────────────────────────────────────

type unconfigured struct{}

// Unconfigured returns a Recommender that always fails with ErrNotConfigured.
func Unconfigured() Recommender { return unconfigured{} }

func (unconfigured) Recommend(context.Context, typeform.AuditInput, roi.Metrics) (Recommendation, error) {
	return Recommendation{}, &ServiceError{Provider: "none", Err: ErrNotConfigured}
}

// ─── DECODING ─────────────────────────────────────────────────────────────────

// decodeRecommendation parses a model's JSON output and checks every field is
// present and non-empty.
func decodeRecommendation(provider, raw string) (Recommendation, error) {
	// Strip any accidental markdown fences the model may have added.
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var rec Recommendation
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return Recommendation{}, serviceErr(provider, "parse response JSON: %w (raw: %.200s)", err, raw)
	}
	if err := rec.validate(); err != nil {
		return Recommendation{}, &ServiceError{Provider: provider, Err: err}
	}
	return rec, nil
}

func (r Recommendation) validate() error {
	var missing []string
	if strings.TrimSpace(r.Strategy) == "" {
		missing = append(missing, "strategy")
	}
	if strings.TrimSpace(r.Implementation) == "" {
		missing = append(missing, "implementation")
	}
	if strings.TrimSpace(r.Savings) == "" {
		missing = append(missing, "savings")
	}
	if len(missing) > 0 {
		return fmt.Errorf("incomplete recommendation: missing %s", strings.Join(missing, ", "))
	}
	return nil
}
