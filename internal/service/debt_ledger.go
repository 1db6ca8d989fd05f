package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/spec-kit/aftersales-service/internal/domain"
	"github.com/spec-kit/aftersales-service/internal/repository"
	apperrors "github.com/spec-kit/aftersales-service/pkg/util/errorutil"
)

// DebtLedgerRecorder books binding liability amounts. It only appends.
type DebtLedgerRecorder struct {
	repo repository.DebtLedgerRepository
}

// NewDebtLedgerRecorder builds the recorder.
func NewDebtLedgerRecorder(repo repository.DebtLedgerRepository) *DebtLedgerRecorder {
	return &DebtLedgerRecorder{repo: repo}
}

// Record appends an entry for notice when its amount is positive. It must be
// given the confirmation transaction so the booking commits or rolls back
// with it. The returned entry is nil when nothing was booked.
func (r *DebtLedgerRecorder) Record(ctx context.Context, tx repository.DBTX, notice *domain.LiabilityNotice, actorID string) (*domain.DebtLedgerEntry, error) {
	if !notice.BooksDebt() {
		return nil, nil
	}
	entry := &domain.DebtLedgerEntry{
		TenantID:        notice.TenantID,
		LiablePartyType: notice.LiablePartyType,
		LiablePartyID:   notice.LiablePartyID,
		Amount:          notice.Amount,
		TicketID:        notice.TicketID,
		NoticeID:        notice.ID,
		CreatedBy:       actorID,
	}
	if err := r.repo.Append(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("append debt ledger: %w", err)
	}
	return entry, nil
}

// DeductionLimits returns the configured cap for a party type.
type DeductionLimits interface {
	Limit(partyType string) (decimal.Decimal, bool)
}

// DebtLedgerService answers per-party ledger questions.
type DebtLedgerService struct {
	db     repository.DBTX
	repo   repository.DebtLedgerRepository
	limits DeductionLimits
	logger *zap.Logger
}

// NewDebtLedgerService builds the service.
func NewDebtLedgerService(deps Dependencies, limits DeductionLimits) *DebtLedgerService {
	deps = deps.withDefaults()
	return &DebtLedgerService{db: deps.DB, repo: deps.Ledger, limits: limits, logger: deps.Logger}
}

// LedgerSummaryView pairs the totals with the most recent entries.
type LedgerSummaryView struct {
	Summary domain.DebtLedgerSummary
	Entries []domain.DebtLedgerEntry
}

// GetSummary totals a party's ledger and grades it against its cap.
func (s *DebtLedgerService) GetSummary(ctx context.Context, session *domain.Session, partyType domain.LiablePartyType, partyID string) (Result[LedgerSummaryView], error) {
	if derr := requireSession(session); derr != nil {
		return Fail[LedgerSummaryView](derr), nil
	}
	partyType = domain.LiablePartyType(strings.ToUpper(string(partyType)))
	if !partyType.IsValid() {
		return Fail[LedgerSummaryView](apperrors.NewValidationError("unknown liable party type", map[string]any{"partyType": partyType})), nil
	}
	partyID = strings.TrimSpace(partyID)
	if partyID == "" {
		return Fail[LedgerSummaryView](apperrors.NewValidationError("liable party id is required", nil)), nil
	}

	totals, err := s.repo.SummarizeByParty(ctx, s.db, session.TenantID, partyType, partyID)
	if err != nil {
		s.logger.Error("summarize debt ledger failed",
			zap.String("tenant_id", session.TenantID),
			zap.String("party_type", string(partyType)),
			zap.String("party_id", partyID),
			zap.Error(err))
		return Result[LedgerSummaryView]{}, apperrors.NewInternalError(err)
	}
	entries, err := s.repo.ListByParty(ctx, s.db, session.TenantID, partyType, partyID, 20)
	if err != nil {
		s.logger.Error("list debt ledger failed", zap.String("tenant_id", session.TenantID), zap.Error(err))
		return Result[LedgerSummaryView]{}, apperrors.NewInternalError(err)
	}

	summary := domain.DebtLedgerSummary{
		LiablePartyType: partyType,
		LiablePartyID:   partyID,
		TotalBooked:     totals.Total,
		EntryCount:      totals.Count,
	}
	if s.limits != nil {
		if limit, ok := s.limits.Limit(string(partyType)); ok {
			summary.MaxAllowed = decimal.NewNullDecimal(limit)
			remaining := limit.Sub(totals.Total)
			if remaining.IsNegative() {
				remaining = decimal.Zero
			}
			summary.RemainingQuota = decimal.NewNullDecimal(remaining)
		}
	}
	summary.Status = domain.GradeDeduction(summary.TotalBooked, summary.MaxAllowed)

	return OK(LedgerSummaryView{Summary: summary, Entries: entries}), nil
}
