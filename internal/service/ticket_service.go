package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/aftersales-service/internal/domain"
	"github.com/spec-kit/aftersales-service/internal/events"
	"github.com/spec-kit/aftersales-service/internal/repository"
	"github.com/spec-kit/aftersales-service/internal/sequence"
	apperrors "github.com/spec-kit/aftersales-service/pkg/util/errorutil"
)

// TicketService coordinates ticket workflows.
type TicketService struct {
	db         repository.Database
	tickets    repository.TicketRepository
	notices    repository.LiabilityNoticeRepository
	auditLogs  repository.AuditRepository
	sequences  *sequence.Generator
	audit      *AuditRecorder
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	OrderID     string
	CustomerID  string
	Type        domain.TicketType
	Priority    domain.TicketPriority
	Description string
	Photos      []string
	AssigneeID  *string
}

// TicketListFilter describes listing filters.
type TicketListFilter struct {
	Statuses    []domain.TicketStatus
	Types       []domain.TicketType
	AssigneeID  *string
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// TicketPage is one page of tickets plus the unpaged total.
type TicketPage struct {
	Items []domain.AfterSalesTicket
	Total int64
}

// TicketDetail is a ticket with its notices and audit trail.
type TicketDetail struct {
	Ticket      *domain.AfterSalesTicket
	Notices     []domain.LiabilityNotice
	AuditTrail  []domain.AuditLogEntry
	Transitions []domain.TicketStatus
}

// NewTicketService constructs the service.
func NewTicketService(deps Dependencies) *TicketService {
	deps = deps.withDefaults()
	return &TicketService{
		db:         deps.DB,
		tickets:    deps.Tickets,
		notices:    deps.Notices,
		auditLogs:  deps.Audit,
		sequences:  deps.Sequences,
		audit:      NewAuditRecorder(deps.Audit, deps.DB, deps.Logger),
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// CreateTicket opens a PENDING ticket with a freshly allocated number.
func (s *TicketService) CreateTicket(ctx context.Context, session *domain.Session, input TicketCreateInput) (Result[*domain.AfterSalesTicket], error) {
	if derr := requireSession(session); derr != nil {
		return Fail[*domain.AfterSalesTicket](derr), nil
	}
	input.OrderID = strings.TrimSpace(input.OrderID)
	input.CustomerID = strings.TrimSpace(input.CustomerID)
	input.Description = strings.TrimSpace(input.Description)
	if input.Priority == "" {
		input.Priority = domain.TicketPriorityMedium
	}
	if derr := validateTicketInput(input); derr != nil {
		return Fail[*domain.AfterSalesTicket](derr), nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return s.internal("begin create ticket", err, session)
	}
	defer tx.Rollback(ctx)

	number, err := s.sequences.Next(ctx, tx, session.TenantID, sequence.KindTicket)
	if err != nil {
		return s.internal("allocate ticket number", err, session)
	}
	ticket := &domain.AfterSalesTicket{
		TenantID:    session.TenantID,
		TicketNo:    number,
		OrderID:     input.OrderID,
		CustomerID:  input.CustomerID,
		Type:        input.Type,
		Status:      domain.TicketStatusPending,
		Priority:    input.Priority,
		Description: input.Description,
		Photos:      input.Photos,
		AssigneeID:  normalizeOptional(input.AssigneeID),
		CreatedBy:   session.UserID,
	}
	if err := s.tickets.Create(ctx, tx, ticket); err != nil {
		return s.internal("insert ticket", err, session)
	}
	if err := tx.Commit(ctx); err != nil {
		return s.internal("commit create ticket", err, session)
	}

	s.audit.Record(ctx, session, domain.AuditTableTickets, ticket.ID, domain.AuditActionCreate, nil, map[string]any{
		"ticketNo": ticket.TicketNo,
		"type":     ticket.Type,
		"status":   ticket.Status,
		"priority": ticket.Priority,
	})
	publishEvent(ctx, s.dispatcher, session, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Payload: events.TicketCreatedPayload{
			TicketNo: ticket.TicketNo,
			Type:     ticket.Type,
			Priority: ticket.Priority,
		},
	})
	return OK(ticket), nil
}

// ListTickets returns the caller's tenant tickets, newest first.
func (s *TicketService) ListTickets(ctx context.Context, session *domain.Session, filter TicketListFilter) (Result[TicketPage], error) {
	if derr := requireSession(session); derr != nil {
		return Fail[TicketPage](derr), nil
	}
	for _, status := range filter.Statuses {
		if !status.IsValid() {
			return Fail[TicketPage](apperrors.NewValidationError("unknown ticket status", map[string]any{"status": status})), nil
		}
	}
	for _, ticketType := range filter.Types {
		if !ticketType.IsValid() {
			return Fail[TicketPage](apperrors.NewValidationError("unknown ticket type", map[string]any{"type": ticketType})), nil
		}
	}
	items, total, err := s.tickets.ListWithFilter(ctx, s.db, repository.TicketFilter{
		TenantID:    session.TenantID,
		Statuses:    filter.Statuses,
		Types:       filter.Types,
		AssigneeID:  filter.AssigneeID,
		SearchTerm:  filter.SearchTerm,
		CreatedFrom: filter.CreatedFrom,
		CreatedTo:   filter.CreatedTo,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	})
	if err != nil {
		s.logger.Error("list tickets failed", zap.String("tenant_id", session.TenantID), zap.Error(err))
		return Result[TicketPage]{}, apperrors.NewInternalError(err)
	}
	return OK(TicketPage{Items: items, Total: total}), nil
}

// GetTicketDetail loads a ticket, its notices and the audit entries of both.
func (s *TicketService) GetTicketDetail(ctx context.Context, session *domain.Session, ticketID string) (Result[TicketDetail], error) {
	if derr := requireSession(session); derr != nil {
		return Fail[TicketDetail](derr), nil
	}
	if !validID(ticketID) {
		return Fail[TicketDetail](apperrors.NewNotFound("ticket", nil)), nil
	}
	ticket, err := s.tickets.GetByID(ctx, s.db, session.TenantID, ticketID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Fail[TicketDetail](apperrors.NewNotFound("ticket", nil)), nil
	}
	if err != nil {
		s.logger.Error("load ticket failed", zap.String("tenant_id", session.TenantID), zap.String("ticket_id", ticketID), zap.Error(err))
		return Result[TicketDetail]{}, apperrors.NewInternalError(err)
	}
	notices, err := s.notices.ListByTicket(ctx, s.db, session.TenantID, ticketID)
	if err != nil {
		s.logger.Error("list ticket notices failed", zap.String("ticket_id", ticketID), zap.Error(err))
		return Result[TicketDetail]{}, apperrors.NewInternalError(err)
	}

	recordIDs := make([]string, 0, len(notices)+1)
	recordIDs = append(recordIDs, ticket.ID)
	for _, notice := range notices {
		recordIDs = append(recordIDs, notice.ID)
	}
	trail, err := s.auditLogs.ListByRecords(ctx, s.db, session.TenantID, recordIDs)
	if err != nil {
		// the trail is supplementary; the ticket itself is still served
		s.logger.Warn("load audit trail failed", zap.String("ticket_id", ticketID), zap.Error(err))
		trail = []domain.AuditLogEntry{}
	}

	return OK(TicketDetail{
		Ticket:      ticket,
		Notices:     notices,
		AuditTrail:  trail,
		Transitions: domain.AvailableTransitions(ticket.Status),
	}), nil
}

// UpdateTicketStatus moves a ticket along the state machine.
func (s *TicketService) UpdateTicketStatus(ctx context.Context, session *domain.Session, ticketID string, next domain.TicketStatus, resolution *string) (Result[*domain.AfterSalesTicket], error) {
	if derr := requireSession(session); derr != nil {
		return Fail[*domain.AfterSalesTicket](derr), nil
	}
	if !validID(ticketID) {
		return Fail[*domain.AfterSalesTicket](apperrors.NewNotFound("ticket", nil)), nil
	}
	// closing derives internal loss, which only cost closure does
	if next == domain.TicketStatusClosed {
		return Fail[*domain.AfterSalesTicket](apperrors.NewIllegalState(
			"tickets are closed through cost closure (POST /tickets/:id/cost-closure)",
			map[string]any{"ticket_id": ticketID})), nil
	}
	resolution = normalizeOptional(resolution)
	if resolution != nil && len(*resolution) > MaxNoteLength {
		return Fail[*domain.AfterSalesTicket](apperrors.NewValidationError("resolution is too long", nil)), nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return s.internal("begin update status", err, session, zap.String("ticket_id", ticketID))
	}
	defer tx.Rollback(ctx)

	ticket, err := s.tickets.GetForUpdate(ctx, tx, session.TenantID, ticketID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Fail[*domain.AfterSalesTicket](apperrors.NewNotFound("ticket", nil)), nil
	}
	if err != nil {
		return s.internal("load ticket", err, session, zap.String("ticket_id", ticketID))
	}
	if derr := domain.ValidateTransition(ticket.Status, next); derr != nil {
		return Fail[*domain.AfterSalesTicket](derr), nil
	}

	oldStatus := ticket.Status
	ticket.Status = next
	if resolution != nil {
		ticket.Resolution = resolution
	}
	if err := s.tickets.UpdateStatus(ctx, tx, ticket); err != nil {
		return s.internal("update ticket status", err, session, zap.String("ticket_id", ticketID))
	}
	if err := tx.Commit(ctx); err != nil {
		return s.internal("commit update status", err, session, zap.String("ticket_id", ticketID))
	}

	newValues := map[string]any{"status": next}
	if ticket.Resolution != nil {
		newValues["resolution"] = *ticket.Resolution
	}
	s.audit.Record(ctx, session, domain.AuditTableTickets, ticket.ID, domain.AuditActionUpdate,
		map[string]any{"status": oldStatus}, newValues)
	comment := ""
	if resolution != nil {
		comment = *resolution
	}
	publishEvent(ctx, s.dispatcher, session, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: next,
			Comment:   comment,
		},
	})
	return OK(ticket), nil
}

func (s *TicketService) internal(op string, err error, session *domain.Session, fields ...zap.Field) (Result[*domain.AfterSalesTicket], error) {
	fields = append(fields, zap.String("op", op), zap.String("tenant_id", session.TenantID), zap.Error(err))
	s.logger.Error("ticket operation failed", fields...)
	return Result[*domain.AfterSalesTicket]{}, apperrors.NewInternalError(fmt.Errorf("%s: %w", op, err))
}

func validateTicketInput(input TicketCreateInput) *apperrors.DomainError {
	if input.OrderID == "" {
		return apperrors.NewValidationError("order id is required", nil)
	}
	if input.CustomerID == "" {
		return apperrors.NewValidationError("customer id is required", nil)
	}
	if !input.Type.IsValid() {
		return apperrors.NewValidationError("unknown ticket type", map[string]any{"type": input.Type})
	}
	if !input.Priority.IsValid() {
		return apperrors.NewValidationError("unknown ticket priority", map[string]any{"priority": input.Priority})
	}
	if input.Description == "" {
		return apperrors.NewValidationError("description is required", nil)
	}
	if len(input.Description) > MaxNoteLength {
		return apperrors.NewValidationError("description is too long", nil)
	}
	return validateReferences("photos", input.Photos)
}
