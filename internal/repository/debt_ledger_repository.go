package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/spec-kit/aftersales-service/internal/domain"
)

// LedgerTotals is the booked total of one liable party.
type LedgerTotals struct {
	Total decimal.Decimal
	Count int64
}

// DebtLedgerRepository is append-only: there is deliberately no update or
// delete, and the table trigger rejects both.
type DebtLedgerRepository interface {
	Append(ctx context.Context, q DBTX, entry *domain.DebtLedgerEntry) error
	ListByParty(ctx context.Context, q DBTX, tenantID string, partyType domain.LiablePartyType, partyID string, limit int) ([]domain.DebtLedgerEntry, error)
	SummarizeByParty(ctx context.Context, q DBTX, tenantID string, partyType domain.LiablePartyType, partyID string) (LedgerTotals, error)
}

type debtLedgerRepository struct{}

// NewDebtLedgerRepository builds repository.
func NewDebtLedgerRepository() DebtLedgerRepository {
	return &debtLedgerRepository{}
}

func (r *debtLedgerRepository) Append(ctx context.Context, q DBTX, entry *domain.DebtLedgerEntry) error {
	const query = `
        INSERT INTO debt_ledger_entries (tenant_id, liable_party_type, liable_party_id, amount, ticket_id, notice_id, created_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at`
	return q.QueryRow(ctx, query,
		entry.TenantID,
		entry.LiablePartyType,
		entry.LiablePartyID,
		entry.Amount,
		entry.TicketID,
		entry.NoticeID,
		entry.CreatedBy,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *debtLedgerRepository) ListByParty(ctx context.Context, q DBTX, tenantID string, partyType domain.LiablePartyType, partyID string, limit int) ([]domain.DebtLedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
        SELECT id, tenant_id, liable_party_type, liable_party_id, amount, ticket_id, notice_id, created_by, created_at
        FROM debt_ledger_entries
        WHERE tenant_id=$1 AND liable_party_type=$2 AND liable_party_id=$3
        ORDER BY created_at DESC LIMIT $4`
	rows, err := q.Query(ctx, query, tenantID, partyType, partyID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.DebtLedgerEntry
	for rows.Next() {
		var entry domain.DebtLedgerEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.TenantID,
			&entry.LiablePartyType,
			&entry.LiablePartyID,
			&entry.Amount,
			&entry.TicketID,
			&entry.NoticeID,
			&entry.CreatedBy,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

func (r *debtLedgerRepository) SummarizeByParty(ctx context.Context, q DBTX, tenantID string, partyType domain.LiablePartyType, partyID string) (LedgerTotals, error) {
	const query = `
        SELECT COALESCE(SUM(amount), 0), COUNT(*) FROM debt_ledger_entries
        WHERE tenant_id=$1 AND liable_party_type=$2 AND liable_party_id=$3`
	var totals LedgerTotals
	err := q.QueryRow(ctx, query, tenantID, partyType, partyID).Scan(&totals.Total, &totals.Count)
	return totals, err
}
