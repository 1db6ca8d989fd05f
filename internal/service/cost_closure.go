package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/spec-kit/aftersales-service/internal/domain"
	"github.com/spec-kit/aftersales-service/internal/events"
	"github.com/spec-kit/aftersales-service/internal/repository"
	apperrors "github.com/spec-kit/aftersales-service/pkg/util/errorutil"
)

// ComputeInternalLoss is the cost not recovered through confirmed deductions.
// A missing cost counts as zero. The result can be negative when deductions
// exceed the cost.
func ComputeInternalLoss(totalActualCost decimal.NullDecimal, actualDeduction decimal.Decimal) decimal.Decimal {
	cost := decimal.Zero
	if totalActualCost.Valid {
		cost = totalActualCost.Decimal
	}
	return cost.Sub(actualDeduction)
}

// CostClosureService performs the final cost reconciliation of a ticket.
type CostClosureService struct {
	db         repository.Database
	tickets    repository.TicketRepository
	audit      *AuditRecorder
	dispatcher events.Dispatcher
	logger     *zap.Logger
	clock      func() time.Time
}

// NewCostClosureService builds the service.
func NewCostClosureService(deps Dependencies) *CostClosureService {
	deps = deps.withDefaults()
	return &CostClosureService{
		db:         deps.DB,
		tickets:    deps.Tickets,
		audit:      NewAuditRecorder(deps.Audit, deps.DB, deps.Logger),
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		clock:      deps.Clock,
	}
}

// CloseResolutionCostClosure closes the ticket and records its internal loss.
// totalActualCost, when given, replaces the stored cost first. Finance sync
// state is not checked here; see LiabilityService.CheckTicketFinancialClosure.
func (s *CostClosureService) CloseResolutionCostClosure(ctx context.Context, session *domain.Session, ticketID string, totalActualCost *decimal.Decimal) (Result[*domain.AfterSalesTicket], error) {
	if derr := requireSession(session); derr != nil {
		return Fail[*domain.AfterSalesTicket](derr), nil
	}
	if !validID(ticketID) {
		return Fail[*domain.AfterSalesTicket](apperrors.NewNotFound("ticket", nil)), nil
	}
	if totalActualCost != nil {
		if totalActualCost.IsNegative() {
			return Fail[*domain.AfterSalesTicket](apperrors.NewValidationError("total actual cost must not be negative", nil)), nil
		}
		if !totalActualCost.Equal(totalActualCost.Truncate(2)) || totalActualCost.GreaterThan(maxAmount) {
			return Fail[*domain.AfterSalesTicket](apperrors.NewValidationError("total actual cost is not a valid amount", nil)), nil
		}
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return s.internal("begin cost closure", err, session, ticketID)
	}
	defer tx.Rollback(ctx)

	ticket, err := s.tickets.GetForUpdate(ctx, tx, session.TenantID, ticketID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Fail[*domain.AfterSalesTicket](apperrors.NewNotFound("ticket", nil)), nil
	}
	if err != nil {
		return s.internal("lock ticket", err, session, ticketID)
	}
	if derr := domain.ValidateTransition(ticket.Status, domain.TicketStatusClosed); derr != nil {
		return Fail[*domain.AfterSalesTicket](derr), nil
	}

	before := map[string]any{
		"status":          ticket.Status,
		"totalActualCost": nullDecimalValue(ticket.TotalActualCost),
		"actualDeduction": ticket.ActualDeduction.String(),
		"internalLoss":    nullDecimalValue(ticket.InternalLoss),
	}
	if totalActualCost != nil {
		ticket.TotalActualCost = decimal.NewNullDecimal(*totalActualCost)
	}
	loss := ComputeInternalLoss(ticket.TotalActualCost, ticket.ActualDeduction)
	ticket.InternalLoss = decimal.NewNullDecimal(loss)
	ticket.Status = domain.TicketStatusClosed
	ticket.ClosedAt = timePtr(s.clock())

	if err := s.tickets.CloseCost(ctx, tx, ticket); err != nil {
		return s.internal("write cost closure", err, session, ticketID)
	}
	if err := tx.Commit(ctx); err != nil {
		return s.internal("commit cost closure", err, session, ticketID)
	}

	s.audit.Record(ctx, session, domain.AuditTableTickets, ticket.ID, domain.AuditActionCloseCost, before, map[string]any{
		"status":          ticket.Status,
		"totalActualCost": nullDecimalValue(ticket.TotalActualCost),
		"actualDeduction": ticket.ActualDeduction.String(),
		"internalLoss":    loss.String(),
	})
	publishEvent(ctx, s.dispatcher, session, events.Event{
		Type:     events.EventTicketCostClosed,
		TicketID: ticket.ID,
		Payload: events.TicketCostClosedPayload{
			TotalActualCost: ticket.TotalActualCost,
			ActualDeduction: ticket.ActualDeduction,
			InternalLoss:    loss,
		},
	})
	return OK(ticket), nil
}

func (s *CostClosureService) internal(op string, err error, session *domain.Session, ticketID string) (Result[*domain.AfterSalesTicket], error) {
	s.logger.Error("cost closure failed",
		zap.String("op", op),
		zap.String("tenant_id", session.TenantID),
		zap.String("ticket_id", ticketID),
		zap.Error(err))
	return Result[*domain.AfterSalesTicket]{}, apperrors.NewInternalError(err)
}

func nullDecimalValue(v decimal.NullDecimal) any {
	if !v.Valid {
		return nil
	}
	return v.Decimal.String()
}
