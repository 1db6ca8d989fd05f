package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/aftersales-service/internal/domain"
	"github.com/spec-kit/aftersales-service/internal/events"
	"github.com/spec-kit/aftersales-service/internal/finance"
	"github.com/spec-kit/aftersales-service/internal/observability"
	"github.com/spec-kit/aftersales-service/internal/repository"
	"github.com/spec-kit/aftersales-service/internal/sequence"
	apperrors "github.com/spec-kit/aftersales-service/pkg/util/errorutil"
)

// Dependencies bundles collaborators shared by the after-sales services.
type Dependencies struct {
	DB             repository.Database
	Tickets        repository.TicketRepository
	Notices        repository.LiabilityNoticeRepository
	Ledger         repository.DebtLedgerRepository
	Audit          repository.AuditRepository
	Sequences      *sequence.Generator
	Finance        finance.StatementClient
	FinanceTimeout time.Duration
	Dispatcher     events.Dispatcher
	Metrics        *observability.Metrics
	Logger         *zap.Logger
	Clock          func() time.Time
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.FinanceTimeout <= 0 {
		d.FinanceTimeout = 5 * time.Second
	}
	return d
}

func requireSession(session *domain.Session) *apperrors.DomainError {
	if !session.Valid() {
		return apperrors.NewUnauthorized("login required")
	}
	return nil
}

// validID keeps malformed ids from reaching a uuid column, where they would
// surface as a database error instead of not-found.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func publishEvent(ctx context.Context, dispatcher events.Dispatcher, session *domain.Session, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if session != nil {
		event.TenantID = session.TenantID
		event.Actor = events.Actor{UserID: session.UserID, TenantID: session.TenantID}
	}
	_ = dispatcher.Publish(ctx, event)
}

func stringPtr(s string) *string {
	return &s
}

func timePtr(t time.Time) *time.Time {
	return &t
}
