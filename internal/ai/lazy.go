package ai

import (
	"context"
	"sync"

	"github.com/nyashahama/roi-audit-backend/internal/roi"
	"github.com/nyashahama/roi-audit-backend/internal/typeform"
)

// lazyRecommender builds its Recommender on first use and reuses it for the
// life of the process.
type lazyRecommender struct {
	get func() (Recommender, error)
}

// NewLazy returns a Recommender that calls build once, on the first
// Recommend call. A build error is returned as a *ServiceError from that call
// and every later one.
func NewLazy(build func() (Recommender, error)) Recommender {
	return &lazyRecommender{get: sync.OnceValues(build)}
}

func (l *lazyRecommender) Recommend(ctx context.Context, in typeform.AuditInput, m roi.Metrics) (Recommendation, error) {
	r, err := l.get()
	if err != nil {
		return Recommendation{}, &ServiceError{Provider: "lazy", Err: err}
	}
	if r == nil {
		return Recommendation{}, &ServiceError{Provider: "lazy", Err: ErrNotConfigured}
	}
	return r.Recommend(ctx, in, m)
}
