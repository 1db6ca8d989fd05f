package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/aftersales-service/internal/domain"
	"github.com/spec-kit/aftersales-service/internal/events"
	"github.com/spec-kit/aftersales-service/internal/finance"
	"github.com/spec-kit/aftersales-service/internal/observability"
	"github.com/spec-kit/aftersales-service/internal/repository"
)

// FinanceSyncWarning is returned alongside a successful confirmation whose
// finance projection could not be written.
const FinanceSyncWarning = "liability notice confirmed, but finance sync failed; manual reconciliation in the finance module is required"

// FinanceSyncSaga projects confirmed FACTORY notices into finance after the
// confirmation has committed. It never undoes the confirmation; the outcome
// is recorded as the notice's finance status instead.
type FinanceSyncSaga struct {
	db         repository.DBTX
	notices    repository.LiabilityNoticeRepository
	client     finance.StatementClient
	timeout    time.Duration
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	clock      func() time.Time
}

// NewFinanceSyncSaga builds the saga.
func NewFinanceSyncSaga(deps Dependencies) *FinanceSyncSaga {
	deps = deps.withDefaults()
	return &FinanceSyncSaga{
		db:         deps.DB,
		notices:    deps.Notices,
		client:     deps.Finance,
		timeout:    deps.FinanceTimeout,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		clock:      deps.Clock,
	}
}

// Sync runs the external call for notice and records the outcome on it. It
// returns a warning for the caller when the sync did not succeed, or "" when
// it succeeded or was not required.
func (s *FinanceSyncSaga) Sync(ctx context.Context, session *domain.Session, notice *domain.LiabilityNotice) string {
	if !notice.RequiresFinanceSync() {
		s.metrics.RecordFinanceSync(observability.FinanceSyncSkipped)
		return ""
	}

	callErr := s.call(ctx, notice)
	// the outcome must be recorded even if the request was cancelled meanwhile
	persistCtx := context.WithoutCancel(ctx)
	if callErr == nil {
		now := s.clock()
		if err := s.notices.SetFinanceStatus(persistCtx, s.db, notice.TenantID, notice.ID, domain.FinanceStatusSynced, &now); err != nil {
			// finance has the statement; the idempotency key makes a retry safe
			s.logger.Error("record finance sync success failed",
				zap.String("tenant_id", notice.TenantID),
				zap.String("notice_id", notice.ID),
				zap.Error(err))
			s.metrics.RecordFinanceSync(observability.FinanceSyncFailed)
			return FinanceSyncWarning
		}
		notice.FinanceStatus = domain.FinanceStatusSynced
		notice.FinanceSyncedAt = &now
		s.metrics.RecordFinanceSync(observability.FinanceSyncSucceeded)
		publishEvent(ctx, s.dispatcher, session, events.Event{
			Type:     events.EventFinanceSyncSucceeded,
			TicketID: notice.TicketID,
			NoticeID: notice.ID,
			Payload:  events.FinanceSyncPayload{NoticeNo: notice.NoticeNo},
		})
		return ""
	}

	s.logger.Warn("finance sync failed",
		zap.String("tenant_id", notice.TenantID),
		zap.String("notice_id", notice.ID),
		zap.String("ticket_id", notice.TicketID),
		zap.Error(callErr))
	s.metrics.RecordFinanceSync(observability.FinanceSyncFailed)

	if err := s.notices.SetFinanceStatus(persistCtx, s.db, notice.TenantID, notice.ID, domain.FinanceStatusFailed, nil); err != nil {
		s.logger.Error("record finance sync failure failed",
			zap.String("tenant_id", notice.TenantID),
			zap.String("notice_id", notice.ID),
			zap.Error(err))
	} else {
		notice.FinanceStatus = domain.FinanceStatusFailed
	}
	publishEvent(ctx, s.dispatcher, session, events.Event{
		Type:     events.EventFinanceSyncFailed,
		TicketID: notice.TicketID,
		NoticeID: notice.ID,
		Payload:  events.FinanceSyncPayload{NoticeNo: notice.NoticeNo, Error: callErr.Error()},
	})
	return FinanceSyncWarning
}

// call bounds the external request; a timeout counts as a failure.
func (s *FinanceSyncSaga) call(ctx context.Context, notice *domain.LiabilityNotice) error {
	if s.client == nil {
		return finance.ErrNotConfigured
	}
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	// the client runs on its own goroutine so an implementation that ignores
	// its context still cannot hold the caller past the timeout
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("finance client panicked", zap.Any("panic", r), zap.String("notice_id", notice.ID))
				done <- finance.ErrClientPanic
			}
		}()
		done <- s.client.CreateSupplierLiabilityStatement(callCtx, finance.StatementRequest{
			TenantID:   notice.TenantID,
			NoticeID:   notice.ID,
			NoticeNo:   notice.NoticeNo,
			TicketID:   notice.TicketID,
			SupplierID: *notice.LiablePartyID,
			Amount:     notice.Amount,
		})
	}()

	select {
	case err := <-done:
		return err
	case <-callCtx.Done():
		return callCtx.Err()
	}
}
