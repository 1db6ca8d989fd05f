package cache

import (
	"context"
	"time"

	"github.com/spec-kit/aftersales-service/internal/domain"
)

// AnalyticsCache stores quality analytics per tenant. Invalidate drops every
// entry of a tenant at once by moving it to a new generation.
//
// Get returns nil, nil on a miss. Set only stores value when the tenant is
// still at generation, the one read before value was computed, so a result
// loaded across an invalidation is never cached.
type AnalyticsCache interface {
	Get(ctx context.Context, tenantID, key string) (*domain.QualityAnalytics, error)
	Generation(ctx context.Context, tenantID string) (int64, error)
	Set(ctx context.Context, tenantID, key string, generation int64, value *domain.QualityAnalytics, ttl time.Duration) error
	Invalidate(ctx context.Context, tenantID string) error
}

// RangeKey names the cache slot for a date range.
func RangeKey(rng domain.AnalyticsRange) string {
	return formatBound(rng.Start) + ".." + formatBound(rng.End)
}

func formatBound(t *time.Time) string {
	if t == nil {
		return "*"
	}
	return t.UTC().Format(time.RFC3339)
}
