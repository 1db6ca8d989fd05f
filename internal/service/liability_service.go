package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/spec-kit/aftersales-service/internal/domain"
	"github.com/spec-kit/aftersales-service/internal/events"
	"github.com/spec-kit/aftersales-service/internal/repository"
	"github.com/spec-kit/aftersales-service/internal/sequence"
	apperrors "github.com/spec-kit/aftersales-service/pkg/util/errorutil"
)

// Evidence and amount limits enforced before any transaction opens.
const (
	MaxEvidenceItems  = 20
	MaxEvidenceLength = 512
	MaxReasonLength   = 1000
	MaxNoteLength     = 2000
)

// maxAmount matches NUMERIC(12,2).
var maxAmount = decimal.RequireFromString("9999999999.99")

// LiabilityService runs the liability notice workflow.
type LiabilityService struct {
	db         repository.Database
	tickets    repository.TicketRepository
	notices    repository.LiabilityNoticeRepository
	sequences  *sequence.Generator
	aggregator *DeductionAggregator
	ledger     *DebtLedgerRecorder
	saga       *FinanceSyncSaga
	audit      *AuditRecorder
	dispatcher events.Dispatcher
	logger     *zap.Logger
	clock      func() time.Time
}

// NewLiabilityService constructs the service.
func NewLiabilityService(deps Dependencies) *LiabilityService {
	deps = deps.withDefaults()
	return &LiabilityService{
		db:         deps.DB,
		tickets:    deps.Tickets,
		notices:    deps.Notices,
		sequences:  deps.Sequences,
		aggregator: NewDeductionAggregator(deps.Tickets, deps.Notices),
		ledger:     NewDebtLedgerRecorder(deps.Ledger),
		saga:       NewFinanceSyncSaga(deps),
		audit:      NewAuditRecorder(deps.Audit, deps.DB, deps.Logger),
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		clock:      deps.Clock,
	}
}

// NoticeCreateInput describes a new liability finding.
type NoticeCreateInput struct {
	PartyType      domain.LiablePartyType
	PartyID        *string
	Reason         string
	ReasonCategory *domain.ReasonCategory
	Amount         decimal.Decimal
	Evidence       []string
}

// NoticeRevision changes a DRAFT notice. Nil fields stay untouched.
type NoticeRevision struct {
	PartyType      *domain.LiablePartyType
	PartyID        *string
	Reason         *string
	ReasonCategory *domain.ReasonCategory
	Amount         *decimal.Decimal
	Evidence       *[]string
}

// ConfirmOutcome is what a confirmation committed.
type ConfirmOutcome struct {
	Notice          *domain.LiabilityNotice
	ActualDeduction decimal.Decimal
	LedgerEntry     *domain.DebtLedgerEntry
}

// FinancialClosure reports whether every notice of a ticket reached finance.
type FinancialClosure struct {
	TicketID      string
	IsClosed      bool
	TotalNotices  int64
	UnsyncedCount int64
	Message       string
}

// CreateNotice drafts a notice against a ticket of the caller's tenant. The
// ticket lookup, number allocation and insert share one transaction, and the
// ticket row stays locked so a concurrent closure cannot slip in between.
func (s *LiabilityService) CreateNotice(ctx context.Context, session *domain.Session, ticketID string, input NoticeCreateInput) (Result[*domain.LiabilityNotice], error) {
	if derr := requireSession(session); derr != nil {
		return Fail[*domain.LiabilityNotice](derr), nil
	}
	if !validID(ticketID) {
		return Fail[*domain.LiabilityNotice](apperrors.NewNotFound("ticket", nil)), nil
	}
	input.Reason = strings.TrimSpace(input.Reason)
	input.PartyID = normalizeOptional(input.PartyID)
	if derr := validateNoticeFields(input.PartyType, input.Reason, input.ReasonCategory, input.Amount, input.Evidence); derr != nil {
		return Fail[*domain.LiabilityNotice](derr), nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return s.internal("begin create notice", err, session, zap.String("ticket_id", ticketID))
	}
	defer tx.Rollback(ctx)

	ticket, err := s.tickets.GetForUpdate(ctx, tx, session.TenantID, ticketID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Fail[*domain.LiabilityNotice](apperrors.NewNotFound("ticket", nil)), nil
	}
	if err != nil {
		return s.internal("load ticket for notice", err, session, zap.String("ticket_id", ticketID))
	}
	if ticket.Status == domain.TicketStatusClosed {
		return Fail[*domain.LiabilityNotice](apperrors.NewIllegalState(
			"cannot create a liability notice for a closed ticket",
			map[string]any{"ticketId": ticket.ID, "status": ticket.Status})), nil
	}

	number, err := s.sequences.Next(ctx, tx, session.TenantID, sequence.KindNotice)
	if err != nil {
		return s.internal("allocate notice number", err, session, zap.String("ticket_id", ticketID))
	}

	notice := &domain.LiabilityNotice{
		TenantID:        session.TenantID,
		NoticeNo:        number,
		TicketID:        ticket.ID,
		LiablePartyType: input.PartyType,
		LiablePartyID:   input.PartyID,
		Reason:          input.Reason,
		ReasonCategory:  input.ReasonCategory,
		Amount:          input.Amount,
		Evidence:        input.Evidence,
		Status:          domain.NoticeStatusDraft,
		FinanceStatus:   domain.FinanceStatusNone,
		CreatedBy:       session.UserID,
	}
	if err := s.notices.Create(ctx, tx, notice); err != nil {
		return s.internal("insert notice", err, session, zap.String("ticket_id", ticketID))
	}
	if err := tx.Commit(ctx); err != nil {
		return s.internal("commit create notice", err, session, zap.String("ticket_id", ticketID))
	}

	s.audit.Record(ctx, session, domain.AuditTableNotices, notice.ID, domain.AuditActionCreate, nil, noticeSnapshot(notice))
	publishEvent(ctx, s.dispatcher, session, events.Event{
		Type:     events.EventNoticeCreated,
		TicketID: notice.TicketID,
		NoticeID: notice.ID,
		Payload: events.NoticeCreatedPayload{
			NoticeNo:  notice.NoticeNo,
			PartyType: notice.LiablePartyType,
			Amount:    notice.Amount,
		},
	})
	return OK(notice), nil
}

// ReviseDraft edits a notice that has not left DRAFT. Once submitted or
// confirmed the amount is authoritative and cannot change.
func (s *LiabilityService) ReviseDraft(ctx context.Context, session *domain.Session, noticeID string, rev NoticeRevision) (Result[*domain.LiabilityNotice], error) {
	if derr := requireSession(session); derr != nil {
		return Fail[*domain.LiabilityNotice](derr), nil
	}
	if !validID(noticeID) {
		return Fail[*domain.LiabilityNotice](apperrors.NewNotFound("liability notice", nil)), nil
	}
	if rev.PartyType == nil && rev.PartyID == nil && rev.Reason == nil && rev.ReasonCategory == nil && rev.Amount == nil && rev.Evidence == nil {
		return Fail[*domain.LiabilityNotice](apperrors.NewValidationError("nothing to update", nil)), nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return s.internal("begin revise notice", err, session, zap.String("notice_id", noticeID))
	}
	defer tx.Rollback(ctx)

	notice, err := s.notices.GetForUpdate(ctx, tx, session.TenantID, noticeID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Fail[*domain.LiabilityNotice](apperrors.NewNotFound("liability notice", nil)), nil
	}
	if err != nil {
		return s.internal("load notice for revision", err, session, zap.String("notice_id", noticeID))
	}
	if notice.Status != domain.NoticeStatusDraft {
		return Fail[*domain.LiabilityNotice](apperrors.NewIllegalState(
			"only draft notices can be revised",
			map[string]any{"status": notice.Status})), nil
	}

	before := noticeSnapshot(notice)
	if rev.PartyType != nil {
		notice.LiablePartyType = *rev.PartyType
	}
	if rev.PartyID != nil {
		notice.LiablePartyID = normalizeOptional(rev.PartyID)
	}
	if rev.Reason != nil {
		notice.Reason = strings.TrimSpace(*rev.Reason)
	}
	if rev.ReasonCategory != nil {
		notice.ReasonCategory = rev.ReasonCategory
	}
	if rev.Amount != nil {
		notice.Amount = *rev.Amount
	}
	if rev.Evidence != nil {
		notice.Evidence = *rev.Evidence
	}
	if derr := validateNoticeFields(notice.LiablePartyType, notice.Reason, notice.ReasonCategory, notice.Amount, notice.Evidence); derr != nil {
		return Fail[*domain.LiabilityNotice](derr), nil
	}

	if err := s.notices.UpdateDraft(ctx, tx, notice); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Fail[*domain.LiabilityNotice](apperrors.NewIllegalState("only draft notices can be revised", nil)), nil
		}
		return s.internal("update draft notice", err, session, zap.String("notice_id", noticeID))
	}
	if err := tx.Commit(ctx); err != nil {
		return s.internal("commit revise notice", err, session, zap.String("notice_id", noticeID))
	}

	s.audit.Record(ctx, session, domain.AuditTableNotices, notice.ID, domain.AuditActionUpdate, before, noticeSnapshot(notice))
	publishEvent(ctx, s.dispatcher, session, events.Event{
		Type:     events.EventNoticeRevised,
		TicketID: notice.TicketID,
		NoticeID: notice.ID,
	})
	return OK(notice), nil
}

// SubmitNotice moves DRAFT to PENDING_CONFIRM.
func (s *LiabilityService) SubmitNotice(ctx context.Context, session *domain.Session, noticeID string) (Result[*domain.LiabilityNotice], error) {
	return s.transition(ctx, session, noticeID, domain.NoticeStatusPendingConfirm, nil)
}

// DisputeNotice moves PENDING_CONFIRM to DISPUTED with the party's reason.
func (s *LiabilityService) DisputeNotice(ctx context.Context, session *domain.Session, noticeID, reason string) (Result[*domain.LiabilityNotice], error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Fail[*domain.LiabilityNotice](apperrors.NewValidationError("dispute reason is required", nil)), nil
	}
	if len(reason) > MaxNoteLength {
		return Fail[*domain.LiabilityNotice](apperrors.NewValidationError("dispute reason is too long", nil)), nil
	}
	return s.transition(ctx, session, noticeID, domain.NoticeStatusDisputed, func(n *domain.LiabilityNotice, _ time.Time) {
		n.DisputeReason = &reason
	})
}

// ArbitrateNotice moves DISPUTED to ARBITRATED and records the arbiter.
func (s *LiabilityService) ArbitrateNotice(ctx context.Context, session *domain.Session, noticeID, result string) (Result[*domain.LiabilityNotice], error) {
	result = strings.TrimSpace(result)
	if result == "" {
		return Fail[*domain.LiabilityNotice](apperrors.NewValidationError("arbitration result is required", nil)), nil
	}
	if len(result) > MaxNoteLength {
		return Fail[*domain.LiabilityNotice](apperrors.NewValidationError("arbitration result is too long", nil)), nil
	}
	return s.transition(ctx, session, noticeID, domain.NoticeStatusArbitrated, func(n *domain.LiabilityNotice, now time.Time) {
		n.ArbitrationResult = &result
		n.ArbitratedBy = stringPtr(session.UserID)
		n.ArbitratedAt = timePtr(now)
	})
}

// transition applies a status change that touches only the notice row.
func (s *LiabilityService) transition(ctx context.Context, session *domain.Session, noticeID string, target domain.NoticeStatus, mutate func(*domain.LiabilityNotice, time.Time)) (Result[*domain.LiabilityNotice], error) {
	if derr := requireSession(session); derr != nil {
		return Fail[*domain.LiabilityNotice](derr), nil
	}
	if !validID(noticeID) {
		return Fail[*domain.LiabilityNotice](apperrors.NewNotFound("liability notice", nil)), nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return s.internal("begin notice transition", err, session, zap.String("notice_id", noticeID))
	}
	defer tx.Rollback(ctx)

	notice, err := s.notices.GetForUpdate(ctx, tx, session.TenantID, noticeID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Fail[*domain.LiabilityNotice](apperrors.NewNotFound("liability notice", nil)), nil
	}
	if err != nil {
		return s.internal("load notice", err, session, zap.String("notice_id", noticeID))
	}
	if !domain.CanTransitionNotice(notice.Status, target) {
		return Fail[*domain.LiabilityNotice](apperrors.NewIllegalState(
			domain.NoticePrecondition(target),
			map[string]any{"current": notice.Status, "requested": target})), nil
	}

	before := noticeSnapshot(notice)
	oldStatus := notice.Status
	notice.Status = target
	if mutate != nil {
		mutate(notice, s.clock())
	}
	if err := s.notices.UpdateStatus(ctx, tx, notice); err != nil {
		return s.internal("update notice status", err, session, zap.String("notice_id", noticeID))
	}
	if err := tx.Commit(ctx); err != nil {
		return s.internal("commit notice transition", err, session, zap.String("notice_id", noticeID))
	}

	s.audit.Record(ctx, session, domain.AuditTableNotices, notice.ID, domain.AuditActionUpdate, before, noticeSnapshot(notice))
	publishEvent(ctx, s.dispatcher, session, events.Event{
		Type:     events.EventNoticeStatusChanged,
		TicketID: notice.TicketID,
		NoticeID: notice.ID,
		Payload:  events.NoticeStatusChangedPayload{OldStatus: oldStatus, NewStatus: target},
	})
	return OK(notice), nil
}

// ConfirmNotice makes a notice binding. Inside one transaction it locks the
// ticket, marks the notice CONFIRMED, re-derives the ticket's deduction from
// all confirmed notices and books the debt. Only after commit does it try
// the finance sync, whose failure is reported as a warning on a successful
// result.
func (s *LiabilityService) ConfirmNotice(ctx context.Context, session *domain.Session, noticeID string) (Result[ConfirmOutcome], error) {
	if derr := requireSession(session); derr != nil {
		return Fail[ConfirmOutcome](derr), nil
	}
	if !validID(noticeID) {
		return Fail[ConfirmOutcome](apperrors.NewNotFound("liability notice", nil)), nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return s.internalConfirm("begin confirm", err, session, noticeID)
	}
	defer tx.Rollback(ctx)

	probe, err := s.notices.GetByID(ctx, tx, session.TenantID, noticeID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Fail[ConfirmOutcome](apperrors.NewNotFound("liability notice", nil)), nil
	}
	if err != nil {
		return s.internalConfirm("load notice", err, session, noticeID)
	}

	// lock order is ticket then notice everywhere
	ticket, err := s.tickets.GetForUpdate(ctx, tx, session.TenantID, probe.TicketID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Fail[ConfirmOutcome](apperrors.NewNotFound("ticket", nil)), nil
	}
	if err != nil {
		return s.internalConfirm("lock ticket", err, session, noticeID)
	}
	notice, err := s.notices.GetForUpdate(ctx, tx, session.TenantID, noticeID)
	if err != nil {
		return s.internalConfirm("lock notice", err, session, noticeID)
	}

	if !domain.CanTransitionNotice(notice.Status, domain.NoticeStatusConfirmed) {
		return Fail[ConfirmOutcome](apperrors.NewIllegalState(
			domain.NoticePrecondition(domain.NoticeStatusConfirmed),
			map[string]any{"current": notice.Status, "requested": domain.NoticeStatusConfirmed})), nil
	}
	if ticket.IsTerminal() {
		return Fail[ConfirmOutcome](apperrors.NewIllegalState(
			"cannot confirm a liability notice on a closed or rejected ticket",
			map[string]any{"ticketId": ticket.ID, "status": ticket.Status})), nil
	}

	before := noticeSnapshot(notice)
	oldStatus := notice.Status
	previousDeduction := ticket.ActualDeduction
	now := s.clock()
	notice.Status = domain.NoticeStatusConfirmed
	notice.ConfirmedAt = &now
	notice.ConfirmedBy = stringPtr(session.UserID)

	if err := s.notices.UpdateStatus(ctx, tx, notice); err != nil {
		return s.internalConfirm("mark notice confirmed", err, session, noticeID)
	}
	total, err := s.aggregator.Recompute(ctx, tx, session.TenantID, ticket.ID)
	if errors.Is(err, ErrDeductionOverflow) {
		return Fail[ConfirmOutcome](apperrors.NewValidationError(
			"confirming this notice would exceed the ticket's maximum deduction",
			map[string]any{"ticketId": ticket.ID, "max": maxDeduction.StringFixed(2)})), nil
	}
	if err != nil {
		return s.internalConfirm("recompute deduction", err, session, noticeID)
	}
	entry, err := s.ledger.Record(ctx, tx, notice, session.UserID)
	if err != nil {
		return s.internalConfirm("book debt", err, session, noticeID)
	}
	if err := tx.Commit(ctx); err != nil {
		return s.internalConfirm("commit confirm", err, session, noticeID)
	}

	s.audit.Record(ctx, session, domain.AuditTableNotices, notice.ID, domain.AuditActionUpdate, before, noticeSnapshot(notice))
	s.audit.Record(ctx, session, domain.AuditTableTickets, ticket.ID, domain.AuditActionUpdate,
		map[string]any{"actualDeduction": previousDeduction.String()},
		map[string]any{"actualDeduction": total.String(), "noticeId": notice.ID})
	publishEvent(ctx, s.dispatcher, session, events.Event{
		Type:     events.EventNoticeStatusChanged,
		TicketID: notice.TicketID,
		NoticeID: notice.ID,
		Payload:  events.NoticeStatusChangedPayload{OldStatus: oldStatus, NewStatus: notice.Status},
	})
	publishEvent(ctx, s.dispatcher, session, events.Event{
		Type:     events.EventNoticeConfirmed,
		TicketID: notice.TicketID,
		NoticeID: notice.ID,
		Payload: events.NoticeConfirmedPayload{
			PartyType:       notice.LiablePartyType,
			Amount:          notice.Amount,
			ActualDeduction: total,
		},
	})

	outcome := ConfirmOutcome{Notice: notice, ActualDeduction: total, LedgerEntry: entry}
	if warning := s.saga.Sync(ctx, session, notice); warning != "" {
		return OKWithWarning(outcome, warning), nil
	}
	return OK(outcome), nil
}

// RetryFinanceSync is the manual recovery entry point for confirmed FACTORY
// notices whose projection failed or never ran.
func (s *LiabilityService) RetryFinanceSync(ctx context.Context, session *domain.Session, noticeID string) (Result[*domain.LiabilityNotice], error) {
	if derr := requireSession(session); derr != nil {
		return Fail[*domain.LiabilityNotice](derr), nil
	}
	if !validID(noticeID) {
		return Fail[*domain.LiabilityNotice](apperrors.NewNotFound("liability notice", nil)), nil
	}

	notice, err := s.notices.GetByID(ctx, s.db, session.TenantID, noticeID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Fail[*domain.LiabilityNotice](apperrors.NewNotFound("liability notice", nil)), nil
	}
	if err != nil {
		return s.internal("load notice for retry", err, session, zap.String("notice_id", noticeID))
	}
	if notice.Status != domain.NoticeStatusConfirmed {
		return Fail[*domain.LiabilityNotice](apperrors.NewIllegalState(
			"only confirmed notices can be synced to finance",
			map[string]any{"status": notice.Status})), nil
	}
	if !notice.RequiresFinanceSync() {
		return Fail[*domain.LiabilityNotice](apperrors.NewIllegalState(
			"only factory notices with a liable party id are synced to finance", nil)), nil
	}
	if notice.FinanceStatus == domain.FinanceStatusSynced {
		return Result[*domain.LiabilityNotice]{Success: true, Data: notice, Message: "finance sync already completed"}, nil
	}

	before := map[string]any{"financeStatus": notice.FinanceStatus}
	warning := s.saga.Sync(ctx, session, notice)
	s.audit.Record(ctx, session, domain.AuditTableNotices, notice.ID, domain.AuditActionUpdate,
		before, map[string]any{"financeStatus": notice.FinanceStatus, "manualRetry": true})
	if warning != "" {
		return OKWithWarning(notice, warning), nil
	}
	return OK(notice), nil
}

// CheckTicketFinancialClosure reports whether every notice of the ticket has
// been synced to finance. A ticket without notices is closed.
func (s *LiabilityService) CheckTicketFinancialClosure(ctx context.Context, session *domain.Session, ticketID string) (Result[FinancialClosure], error) {
	if derr := requireSession(session); derr != nil {
		return Fail[FinancialClosure](derr), nil
	}
	if !validID(ticketID) {
		return Fail[FinancialClosure](apperrors.NewNotFound("ticket", nil)), nil
	}
	if _, err := s.tickets.GetByID(ctx, s.db, session.TenantID, ticketID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Fail[FinancialClosure](apperrors.NewNotFound("ticket", nil)), nil
		}
		s.logger.Error("load ticket for financial closure failed", zap.String("ticket_id", ticketID), zap.Error(err))
		return Result[FinancialClosure]{}, apperrors.NewInternalError(err)
	}

	counts, err := s.notices.CountFinanceClosure(ctx, s.db, session.TenantID, ticketID)
	if err != nil {
		s.logger.Error("count finance closure failed", zap.String("ticket_id", ticketID), zap.Error(err))
		return Result[FinancialClosure]{}, apperrors.NewInternalError(err)
	}

	closure := FinancialClosure{
		TicketID:      ticketID,
		TotalNotices:  counts.Total,
		UnsyncedCount: counts.Unsynced,
		IsClosed:      counts.Total == 0 || counts.Unsynced == 0,
	}
	if closure.IsClosed {
		closure.Message = "all liability notices are synced to finance"
	} else {
		closure.Message = fmt.Sprintf("%d liability notice(s) have not completed finance sync", counts.Unsynced)
	}
	return Result[FinancialClosure]{Success: true, Data: closure, Message: closure.Message}, nil
}

// ListByTicket returns a ticket's notices in creation order.
func (s *LiabilityService) ListByTicket(ctx context.Context, session *domain.Session, ticketID string) (Result[[]domain.LiabilityNotice], error) {
	if derr := requireSession(session); derr != nil {
		return Fail[[]domain.LiabilityNotice](derr), nil
	}
	if !validID(ticketID) {
		return Fail[[]domain.LiabilityNotice](apperrors.NewNotFound("ticket", nil)), nil
	}
	notices, err := s.notices.ListByTicket(ctx, s.db, session.TenantID, ticketID)
	if err != nil {
		s.logger.Error("list liability notices failed", zap.String("tenant_id", session.TenantID), zap.String("ticket_id", ticketID), zap.Error(err))
		return Result[[]domain.LiabilityNotice]{}, apperrors.NewInternalError(err)
	}
	if notices == nil {
		notices = []domain.LiabilityNotice{}
	}
	return OK(notices), nil
}

func (s *LiabilityService) internal(op string, err error, session *domain.Session, fields ...zap.Field) (Result[*domain.LiabilityNotice], error) {
	fields = append(fields, zap.String("op", op), zap.String("tenant_id", session.TenantID), zap.Error(err))
	s.logger.Error("liability notice operation failed", fields...)
	return Result[*domain.LiabilityNotice]{}, apperrors.NewInternalError(fmt.Errorf("%s: %w", op, err))
}

func (s *LiabilityService) internalConfirm(op string, err error, session *domain.Session, noticeID string) (Result[ConfirmOutcome], error) {
	s.logger.Error("confirm liability notice failed",
		zap.String("op", op),
		zap.String("tenant_id", session.TenantID),
		zap.String("notice_id", noticeID),
		zap.Error(err))
	return Result[ConfirmOutcome]{}, apperrors.NewInternalError(fmt.Errorf("%s: %w", op, err))
}

func validateNoticeFields(partyType domain.LiablePartyType, reason string, category *domain.ReasonCategory, amount decimal.Decimal, evidence []string) *apperrors.DomainError {
	if !partyType.IsValid() {
		return apperrors.NewValidationError("unknown liable party type", map[string]any{"partyType": partyType})
	}
	if reason == "" {
		return apperrors.NewValidationError("reason is required", nil)
	}
	if len(reason) > MaxReasonLength {
		return apperrors.NewValidationError("reason is too long", map[string]any{"max": MaxReasonLength})
	}
	if category != nil && !category.IsValid() {
		return apperrors.NewValidationError("unknown reason category", map[string]any{"reasonCategory": *category})
	}
	if amount.IsNegative() {
		return apperrors.NewValidationError("amount must not be negative", nil)
	}
	if !amount.Equal(amount.Truncate(2)) {
		return apperrors.NewValidationError("amount supports at most two decimal places", nil)
	}
	if amount.GreaterThan(maxAmount) {
		return apperrors.NewValidationError("amount is too large", nil)
	}
	return validateReferences("evidence", evidence)
}

func validateReferences(field string, refs []string) *apperrors.DomainError {
	if len(refs) > MaxEvidenceItems {
		return apperrors.NewValidationError(field+" has too many items", map[string]any{"max": MaxEvidenceItems})
	}
	for i, ref := range refs {
		if strings.TrimSpace(ref) == "" {
			return apperrors.NewValidationError(field+" items must not be empty", map[string]any{"index": i})
		}
		if len(ref) > MaxEvidenceLength {
			return apperrors.NewValidationError(field+" item is too long", map[string]any{"index": i, "max": MaxEvidenceLength})
		}
	}
	return nil
}

func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func noticeSnapshot(n *domain.LiabilityNotice) map[string]any {
	snapshot := map[string]any{
		"status":          n.Status,
		"liablePartyType": n.LiablePartyType,
		"amount":          n.Amount.String(),
		"financeStatus":   n.FinanceStatus,
	}
	if n.LiablePartyID != nil {
		snapshot["liablePartyId"] = *n.LiablePartyID
	}
	if n.DisputeReason != nil {
		snapshot["disputeReason"] = *n.DisputeReason
	}
	if n.ArbitrationResult != nil {
		snapshot["arbitrationResult"] = *n.ArbitrationResult
	}
	return snapshot
}
