package worker

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/aftersales-service/internal/observability"
	"github.com/spec-kit/aftersales-service/internal/repository"
)

const sweepTimeout = 30 * time.Second

// ReconciliationWorker periodically counts confirmed FACTORY notices that
// have not reached finance. It reports the backlog and never retries; retries
// stay a manual decision.
type ReconciliationWorker struct {
	db      repository.DBTX
	notices repository.LiabilityNoticeRepository
	metrics *observability.Metrics
	logger  *zap.Logger
	spec    string
	cron    *cron.Cron
}

// NewReconciliationWorker builds the worker. spec is a six-field cron
// expression (with seconds).
func NewReconciliationWorker(db repository.DBTX, notices repository.LiabilityNoticeRepository, metrics *observability.Metrics, logger *zap.Logger, spec string, loc *time.Location) *ReconciliationWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &ReconciliationWorker{
		db:      db,
		notices: notices,
		metrics: metrics,
		logger:  logger,
		spec:    spec,
		cron:    cron.New(cron.WithLocation(loc), cron.WithSeconds()),
	}
}

// Start registers the sweep and starts the scheduler.
func (w *ReconciliationWorker) Start() error {
	if _, err := w.cron.AddFunc(w.spec, w.sweep); err != nil {
		return fmt.Errorf("register reconciliation sweep %q: %w", w.spec, err)
	}
	w.cron.Start()
	w.logger.Info("reconciliation worker started", zap.String("schedule", w.spec))
	return nil
}

// Stop waits for a running sweep or ctx, whichever ends first.
func (w *ReconciliationWorker) Stop(ctx context.Context) {
	done := w.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

func (w *ReconciliationWorker) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()
	if _, err := w.RunOnce(ctx); err != nil {
		w.logger.Error("reconciliation sweep failed", zap.Error(err))
	}
}

// RunOnce performs one sweep and returns the backlog per tenant.
func (w *ReconciliationWorker) RunOnce(ctx context.Context) (map[string]int64, error) {
	backlog, err := w.notices.CountUnsyncedFactoryByTenant(ctx, w.db)
	if err != nil {
		return nil, fmt.Errorf("count unsynced notices: %w", err)
	}

	w.metrics.ResetUnsyncedNotices()
	tenants := make([]string, 0, len(backlog))
	for tenantID := range backlog {
		tenants = append(tenants, tenantID)
	}
	sort.Strings(tenants)
	for _, tenantID := range tenants {
		count := backlog[tenantID]
		w.metrics.SetUnsyncedNotices(tenantID, count)
		w.logger.Warn("liability notices awaiting finance reconciliation",
			zap.String("tenant_id", tenantID),
			zap.Int64("count", count))
	}
	return backlog, nil
}
