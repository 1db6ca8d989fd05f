package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/aftersales-service/internal/domain"
	"github.com/spec-kit/aftersales-service/internal/repository"
)

// AuditRecorder appends audit entries after the business transaction has
// committed. A failing sink is logged and never fails the caller.
type AuditRecorder struct {
	repo   repository.AuditRepository
	db     repository.DBTX
	logger *zap.Logger
}

// NewAuditRecorder builds the recorder.
func NewAuditRecorder(repo repository.AuditRepository, db repository.DBTX, logger *zap.Logger) *AuditRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditRecorder{repo: repo, db: db, logger: logger}
}

// Record writes one entry for table/recordID.
func (a *AuditRecorder) Record(ctx context.Context, session *domain.Session, table, recordID string, action domain.AuditAction, oldValues, newValues map[string]any) {
	if a == nil || a.repo == nil {
		return
	}
	entry := &domain.AuditLogEntry{
		TableName: table,
		RecordID:  recordID,
		Action:    action,
		OldValues: oldValues,
		NewValues: newValues,
		ActorID:   session.UserID,
		TenantID:  session.TenantID,
	}
	if err := a.repo.Create(ctx, a.db, entry); err != nil {
		a.logger.Warn("audit write failed",
			zap.String("table", table),
			zap.String("record_id", recordID),
			zap.String("action", string(action)),
			zap.String("tenant_id", session.TenantID),
			zap.Error(err))
	}
}
