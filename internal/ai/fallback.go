package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/nyashahama/roi-audit-backend/internal/roi"
	"github.com/nyashahama/roi-audit-backend/internal/typeform"
)

// fallbackRecommender wraps two Recommender implementations. It calls the
// primary first; if that returns an error it logs the failure and tries the
// secondary.
type fallbackRecommender struct {
	primary   Recommender
	secondary Recommender
	logger    *slog.Logger
}

// NewFallbackRecommender returns a Recommender that calls primary and, on
// failure, falls back to secondary. If primary is nil it goes straight to
// secondary; if secondary is nil and primary fails, the primary error is
// returned. With both nil it behaves like Unconfigured.
func NewFallbackRecommender(primary, secondary Recommender, logger *slog.Logger) Recommender {
	if primary == nil && secondary == nil {
		return Unconfigured()
	}
	return &fallbackRecommender{
		primary:   primary,
		secondary: secondary,
		logger:    logger,
	}
}

// Chain folds providers into nested fallbacks in order, skipping nils.
func Chain(logger *slog.Logger, providers ...Recommender) Recommender {
	var chain Recommender
	for i := len(providers) - 1; i >= 0; i-- {
		if providers[i] == nil {
			continue
		}
		if chain == nil {
			chain = providers[i]
			continue
		}
		chain = NewFallbackRecommender(providers[i], chain, logger)
	}
	if chain == nil {
		return Unconfigured()
	}
	return chain
}

func (f *fallbackRecommender) Recommend(ctx context.Context, in typeform.AuditInput, m roi.Metrics) (Recommendation, error) {
	if f.primary != nil {
		rec, err := f.primary.Recommend(ctx, in, m)
		if err == nil {
			return rec, nil
		}
		f.logger.Warn("ai: primary recommender failed, trying secondary",
			"error", err,
			"company", in.CompanyName,
		)
		if f.secondary == nil {
			return Recommendation{}, &ServiceError{
				Provider: "fallback",
				Err:      fmt.Errorf("primary failed and no secondary configured: %w", err),
			}
		}
	}

	return f.secondary.Recommend(ctx, in, m)
}

// ─── CANNED FALLBACK ──────────────────────────────────────────────────────────

const (
	FallbackStrategy       = "Custom AI Automation Solution"
	FallbackImplementation = "Our team will analyze your specific challenges and design a tailored automation solution to reduce manual work and improve efficiency."
)

// Fallback builds a recommendation from the metrics alone, for use when no
// model produced one.
func Fallback(m roi.Metrics) Recommendation {
	return Recommendation{
		Strategy:       FallbackStrategy,
		Implementation: FallbackImplementation,
		Savings: fmt.Sprintf("Estimated %s-%s GBP annually",
			wholePounds(m.PotentialSavings30Percent),
			wholePounds(m.PotentialSavings50Percent),
		),
	}
}

// wholePounds rounds to the nearest pound, half away from zero, without
// grouping: 46800.4 → "46800".
func wholePounds(v float64) string {
	return strconv.FormatInt(decimal.NewFromFloat(v).Round(0).IntPart(), 10)
}
