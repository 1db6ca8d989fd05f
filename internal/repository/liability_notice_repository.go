package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/spec-kit/aftersales-service/internal/domain"
)

// FinanceClosureCounts tallies a ticket's notices by sync state.
type FinanceClosureCounts struct {
	Total    int64
	Unsynced int64
}

// LiabilityNoticeRepository persists liability notices.
type LiabilityNoticeRepository interface {
	Create(ctx context.Context, q DBTX, notice *domain.LiabilityNotice) error
	GetByID(ctx context.Context, q DBTX, tenantID, id string) (*domain.LiabilityNotice, error)
	GetForUpdate(ctx context.Context, q DBTX, tenantID, id string) (*domain.LiabilityNotice, error)
	ListByTicket(ctx context.Context, q DBTX, tenantID, ticketID string) ([]domain.LiabilityNotice, error)
	UpdateDraft(ctx context.Context, q DBTX, notice *domain.LiabilityNotice) error
	UpdateStatus(ctx context.Context, q DBTX, notice *domain.LiabilityNotice) error
	SetFinanceStatus(ctx context.Context, q DBTX, tenantID, id string, status domain.FinanceStatus, syncedAt *time.Time) error
	SumConfirmedByTicket(ctx context.Context, q DBTX, tenantID, ticketID string) (decimal.Decimal, error)
	CountFinanceClosure(ctx context.Context, q DBTX, tenantID, ticketID string) (FinanceClosureCounts, error)
	SummarizeConfirmedByParty(ctx context.Context, q DBTX, tenantID string, rng domain.AnalyticsRange) ([]domain.PartyLiabilityRow, error)
	CountUnsyncedFactoryByTenant(ctx context.Context, q DBTX) (map[string]int64, error)
}

type liabilityNoticeRepository struct{}

// NewLiabilityNoticeRepository builds repository.
func NewLiabilityNoticeRepository() LiabilityNoticeRepository {
	return &liabilityNoticeRepository{}
}

const noticeColumns = `id, tenant_id, notice_no, ticket_id, liable_party_type, liable_party_id, reason, reason_category,
               amount, evidence, status, finance_status, finance_synced_at, confirmed_at, confirmed_by,
               dispute_reason, arbitration_result, arbitrated_by, arbitrated_at, created_by, created_at, updated_at`

func (r *liabilityNoticeRepository) Create(ctx context.Context, q DBTX, notice *domain.LiabilityNotice) error {
	const query = `
        INSERT INTO liability_notices (tenant_id, notice_no, ticket_id, liable_party_type, liable_party_id, reason,
            reason_category, amount, evidence, status, finance_status, created_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        RETURNING id, created_at, updated_at`
	return q.QueryRow(ctx, query,
		notice.TenantID,
		notice.NoticeNo,
		notice.TicketID,
		notice.LiablePartyType,
		notice.LiablePartyID,
		notice.Reason,
		notice.ReasonCategory,
		notice.Amount,
		evidenceOrEmpty(notice.Evidence),
		notice.Status,
		notice.FinanceStatus,
		notice.CreatedBy,
	).Scan(&notice.ID, &notice.CreatedAt, &notice.UpdatedAt)
}

func (r *liabilityNoticeRepository) GetByID(ctx context.Context, q DBTX, tenantID, id string) (*domain.LiabilityNotice, error) {
	query := `SELECT ` + noticeColumns + ` FROM liability_notices WHERE id=$1 AND tenant_id=$2`
	return scanNotice(q.QueryRow(ctx, query, id, tenantID))
}

// GetForUpdate locks the notice row so concurrent transitions on one notice
// serialize.
func (r *liabilityNoticeRepository) GetForUpdate(ctx context.Context, q DBTX, tenantID, id string) (*domain.LiabilityNotice, error) {
	query := `SELECT ` + noticeColumns + ` FROM liability_notices WHERE id=$1 AND tenant_id=$2 FOR UPDATE`
	return scanNotice(q.QueryRow(ctx, query, id, tenantID))
}

func (r *liabilityNoticeRepository) ListByTicket(ctx context.Context, q DBTX, tenantID, ticketID string) ([]domain.LiabilityNotice, error) {
	query := `SELECT ` + noticeColumns + ` FROM liability_notices
        WHERE ticket_id=$1 AND tenant_id=$2 ORDER BY created_at ASC`
	rows, err := q.Query(ctx, query, ticketID, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.LiabilityNotice
	for rows.Next() {
		notice, err := scanNotice(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *notice)
	}
	return result, rows.Err()
}

// UpdateDraft rewrites editable fields; the status guard keeps amounts
// immutable once a notice leaves DRAFT even if a caller skips the check.
func (r *liabilityNoticeRepository) UpdateDraft(ctx context.Context, q DBTX, notice *domain.LiabilityNotice) error {
	const query = `
        UPDATE liability_notices SET liable_party_type=$1, liable_party_id=$2, reason=$3, reason_category=$4,
            amount=$5, evidence=$6, updated_at=NOW()
        WHERE id=$7 AND tenant_id=$8 AND status='DRAFT'
        RETURNING updated_at`
	return q.QueryRow(ctx, query,
		notice.LiablePartyType,
		notice.LiablePartyID,
		notice.Reason,
		notice.ReasonCategory,
		notice.Amount,
		evidenceOrEmpty(notice.Evidence),
		notice.ID,
		notice.TenantID,
	).Scan(&notice.UpdatedAt)
}

func (r *liabilityNoticeRepository) UpdateStatus(ctx context.Context, q DBTX, notice *domain.LiabilityNotice) error {
	const query = `
        UPDATE liability_notices SET status=$1, confirmed_at=$2, confirmed_by=$3, dispute_reason=$4,
            arbitration_result=$5, arbitrated_by=$6, arbitrated_at=$7, updated_at=NOW()
        WHERE id=$8 AND tenant_id=$9
        RETURNING updated_at`
	return q.QueryRow(ctx, query,
		notice.Status,
		notice.ConfirmedAt,
		notice.ConfirmedBy,
		notice.DisputeReason,
		notice.ArbitrationResult,
		notice.ArbitratedBy,
		notice.ArbitratedAt,
		notice.ID,
		notice.TenantID,
	).Scan(&notice.UpdatedAt)
}

func (r *liabilityNoticeRepository) SetFinanceStatus(ctx context.Context, q DBTX, tenantID, id string, status domain.FinanceStatus, syncedAt *time.Time) error {
	const query = `
        UPDATE liability_notices SET finance_status=$1, finance_synced_at=$2, updated_at=NOW()
        WHERE id=$3 AND tenant_id=$4`
	cmd, err := q.Exec(ctx, query, status, syncedAt, id, tenantID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// SumConfirmedByTicket aggregates in the database so the result reflects
// every committed confirmation visible to the statement.
func (r *liabilityNoticeRepository) SumConfirmedByTicket(ctx context.Context, q DBTX, tenantID, ticketID string) (decimal.Decimal, error) {
	const query = `
        SELECT COALESCE(SUM(amount), 0) FROM liability_notices
        WHERE ticket_id=$1 AND tenant_id=$2 AND status='CONFIRMED'`
	var total decimal.Decimal
	if err := q.QueryRow(ctx, query, ticketID, tenantID).Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

func (r *liabilityNoticeRepository) CountFinanceClosure(ctx context.Context, q DBTX, tenantID, ticketID string) (FinanceClosureCounts, error) {
	const query = `
        SELECT COUNT(*), COUNT(*) FILTER (WHERE finance_status <> 'SYNCED')
        FROM liability_notices WHERE ticket_id=$1 AND tenant_id=$2`
	var counts FinanceClosureCounts
	err := q.QueryRow(ctx, query, ticketID, tenantID).Scan(&counts.Total, &counts.Unsynced)
	return counts, err
}

func (r *liabilityNoticeRepository) SummarizeConfirmedByParty(ctx context.Context, q DBTX, tenantID string, rng domain.AnalyticsRange) ([]domain.PartyLiabilityRow, error) {
	query := `
        SELECT liable_party_type, COUNT(*), COALESCE(SUM(amount), 0)
        FROM liability_notices
        WHERE tenant_id=$1 AND status='CONFIRMED'`
	args := []any{tenantID}
	if rng.Start != nil {
		args = append(args, *rng.Start)
		query += ` AND confirmed_at >= $2`
	}
	if rng.End != nil {
		args = append(args, *rng.End)
		if len(args) == 2 {
			query += ` AND confirmed_at <= $2`
		} else {
			query += ` AND confirmed_at <= $3`
		}
	}
	query += ` GROUP BY liable_party_type ORDER BY liable_party_type`

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.PartyLiabilityRow
	for rows.Next() {
		var row domain.PartyLiabilityRow
		if err := rows.Scan(&row.PartyType, &row.Count, &row.TotalAmount); err != nil {
			return nil, err
		}
		row.PartyLabel = row.PartyType.Label()
		result = append(result, row)
	}
	return result, rows.Err()
}

// CountUnsyncedFactoryByTenant feeds the reconciliation sweep.
func (r *liabilityNoticeRepository) CountUnsyncedFactoryByTenant(ctx context.Context, q DBTX) (map[string]int64, error) {
	const query = `
        SELECT tenant_id, COUNT(*) FROM liability_notices
        WHERE status='CONFIRMED' AND liable_party_type='FACTORY'
          AND liable_party_id IS NOT NULL AND finance_status <> 'SYNCED'
        GROUP BY tenant_id`
	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]int64)
	for rows.Next() {
		var (
			tenantID string
			count    int64
		)
		if err := rows.Scan(&tenantID, &count); err != nil {
			return nil, err
		}
		result[tenantID] = count
	}
	return result, rows.Err()
}

func evidenceOrEmpty(evidence []string) []string {
	if evidence == nil {
		return []string{}
	}
	return evidence
}

func scanNotice(row pgx.Row) (*domain.LiabilityNotice, error) {
	var notice domain.LiabilityNotice
	if err := row.Scan(
		&notice.ID,
		&notice.TenantID,
		&notice.NoticeNo,
		&notice.TicketID,
		&notice.LiablePartyType,
		&notice.LiablePartyID,
		&notice.Reason,
		&notice.ReasonCategory,
		&notice.Amount,
		&notice.Evidence,
		&notice.Status,
		&notice.FinanceStatus,
		&notice.FinanceSyncedAt,
		&notice.ConfirmedAt,
		&notice.ConfirmedBy,
		&notice.DisputeReason,
		&notice.ArbitrationResult,
		&notice.ArbitratedBy,
		&notice.ArbitratedAt,
		&notice.CreatedBy,
		&notice.CreatedAt,
		&notice.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &notice, nil
}
