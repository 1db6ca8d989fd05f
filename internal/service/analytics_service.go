package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/spec-kit/aftersales-service/internal/cache"
	"github.com/spec-kit/aftersales-service/internal/domain"
	"github.com/spec-kit/aftersales-service/internal/events"
	"github.com/spec-kit/aftersales-service/internal/repository"
	apperrors "github.com/spec-kit/aftersales-service/pkg/util/errorutil"
)

// AnalyticsService serves the quality dashboard rollups.
type AnalyticsService struct {
	db      repository.DBTX
	tickets repository.TicketRepository
	notices repository.LiabilityNoticeRepository
	cache   cache.AnalyticsCache
	ttl     time.Duration
	group   singleflight.Group
	logger  *zap.Logger
	clock   func() time.Time
}

// NewAnalyticsService builds the service. A nil cache disables caching.
func NewAnalyticsService(deps Dependencies, analyticsCache cache.AnalyticsCache, ttl time.Duration) *AnalyticsService {
	deps = deps.withDefaults()
	return &AnalyticsService{
		db:      deps.DB,
		tickets: deps.Tickets,
		notices: deps.Notices,
		cache:   analyticsCache,
		ttl:     ttl,
		logger:  deps.Logger,
		clock:   deps.Clock,
	}
}

// GetQualityAnalytics returns the tenant's rollups for rng.
func (s *AnalyticsService) GetQualityAnalytics(ctx context.Context, session *domain.Session, rng domain.AnalyticsRange) (Result[*domain.QualityAnalytics], error) {
	if derr := requireSession(session); derr != nil {
		return Fail[*domain.QualityAnalytics](derr), nil
	}
	if rng.Start != nil && rng.End != nil && rng.End.Before(*rng.Start) {
		return Fail[*domain.QualityAnalytics](apperrors.NewValidationError("end date must not be before start date", nil)), nil
	}

	key := cache.RangeKey(rng)
	generation, cacheable := s.generation(ctx, session.TenantID)
	if cacheable {
		if cached := s.fromCache(ctx, session.TenantID, key); cached != nil {
			return OK(cached), nil
		}
	}

	// callers that arrive after an invalidation never join a load that
	// started before it
	flightKey := fmt.Sprintf("%s|%d|%s", session.TenantID, generation, key)
	value, err, _ := s.group.Do(flightKey, func() (any, error) {
		analytics, err := s.load(ctx, session.TenantID, rng)
		if err != nil {
			return nil, err
		}
		if cacheable {
			if err := s.cache.Set(ctx, session.TenantID, key, generation, analytics, s.ttl); err != nil {
				s.logger.Warn("analytics cache write failed", zap.String("tenant_id", session.TenantID), zap.Error(err))
			}
		}
		return analytics, nil
	})
	if err != nil {
		s.logger.Error("load quality analytics failed", zap.String("tenant_id", session.TenantID), zap.Error(err))
		return Result[*domain.QualityAnalytics]{}, apperrors.NewInternalError(err)
	}
	// shared callers get their own copy of the top-level struct
	analytics := *value.(*domain.QualityAnalytics)
	return OK(&analytics), nil
}

// generation reads the tenant's cache generation before anything is loaded.
// The second result is false when there is no usable cache.
func (s *AnalyticsService) generation(ctx context.Context, tenantID string) (int64, bool) {
	if s.cache == nil {
		return 0, false
	}
	gen, err := s.cache.Generation(ctx, tenantID)
	if err != nil {
		s.logger.Warn("analytics cache generation read failed", zap.String("tenant_id", tenantID), zap.Error(err))
		return 0, false
	}
	return gen, true
}

func (s *AnalyticsService) fromCache(ctx context.Context, tenantID, key string) *domain.QualityAnalytics {
	if s.cache == nil {
		return nil
	}
	cached, err := s.cache.Get(ctx, tenantID, key)
	if err != nil {
		s.logger.Warn("analytics cache read failed", zap.String("tenant_id", tenantID), zap.Error(err))
		return nil
	}
	return cached
}

func (s *AnalyticsService) load(ctx context.Context, tenantID string, rng domain.AnalyticsRange) (*domain.QualityAnalytics, error) {
	analytics := &domain.QualityAnalytics{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.notices.SummarizeConfirmedByParty(gctx, s.db, tenantID, rng)
		analytics.ByParty = rows
		return err
	})
	g.Go(func() error {
		rows, err := s.tickets.CountByType(gctx, s.db, tenantID)
		analytics.ByType = rows
		return err
	})
	g.Go(func() error {
		rows, err := s.tickets.CountByStatus(gctx, s.db, tenantID)
		analytics.ByStatus = rows
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if analytics.ByParty == nil {
		analytics.ByParty = []domain.PartyLiabilityRow{}
	}
	if analytics.ByType == nil {
		analytics.ByType = []domain.TicketTypeRow{}
	}
	if analytics.ByStatus == nil {
		analytics.ByStatus = []domain.TicketStatusRow{}
	}
	analytics.Summarize()
	analytics.GeneratedAt = s.clock()
	return analytics, nil
}

// RegisterInvalidation drops a tenant's cached rollups on every mutation.
func (s *AnalyticsService) RegisterInvalidation(dispatcher events.Dispatcher) {
	if dispatcher == nil || s.cache == nil {
		return
	}
	for _, eventType := range events.MutationEvents() {
		dispatcher.Subscribe(eventType, s.invalidate)
	}
}

func (s *AnalyticsService) invalidate(ctx context.Context, event events.Event) error {
	if event.TenantID == "" {
		return nil
	}
	return s.cache.Invalidate(ctx, event.TenantID)
}
