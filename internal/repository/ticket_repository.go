package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/spec-kit/aftersales-service/internal/domain"
)

// TicketFilter captures list parameters. TenantID is mandatory.
type TicketFilter struct {
	TenantID    string
	Statuses    []domain.TicketStatus
	Types       []domain.TicketType
	AssigneeID  *string
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// TicketRepository encapsulates after-sales ticket persistence. Every read and
// write is scoped by tenant.
type TicketRepository interface {
	Create(ctx context.Context, q DBTX, ticket *domain.AfterSalesTicket) error
	GetByID(ctx context.Context, q DBTX, tenantID, id string) (*domain.AfterSalesTicket, error)
	GetForUpdate(ctx context.Context, q DBTX, tenantID, id string) (*domain.AfterSalesTicket, error)
	UpdateStatus(ctx context.Context, q DBTX, ticket *domain.AfterSalesTicket) error
	SetActualDeduction(ctx context.Context, q DBTX, tenantID, id string, amount decimal.Decimal) error
	CloseCost(ctx context.Context, q DBTX, ticket *domain.AfterSalesTicket) error
	ListWithFilter(ctx context.Context, q DBTX, filter TicketFilter) ([]domain.AfterSalesTicket, int64, error)
	CountByType(ctx context.Context, q DBTX, tenantID string) ([]domain.TicketTypeRow, error)
	CountByStatus(ctx context.Context, q DBTX, tenantID string) ([]domain.TicketStatusRow, error)
}

type ticketRepository struct{}

// NewTicketRepository instantiates repository.
func NewTicketRepository() TicketRepository {
	return &ticketRepository{}
}

const ticketColumns = `id, tenant_id, ticket_no, order_id, customer_id, type, status, priority, description,
               photos, resolution, assignee_id, total_actual_cost, actual_deduction, internal_loss,
               created_by, created_at, updated_at, closed_at`

func (r *ticketRepository) Create(ctx context.Context, q DBTX, ticket *domain.AfterSalesTicket) error {
	const query = `
        INSERT INTO after_sales_tickets (tenant_id, ticket_no, order_id, customer_id, type, status, priority,
            description, photos, assignee_id, created_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, actual_deduction, created_at, updated_at`
	photos := ticket.Photos
	if photos == nil {
		photos = []string{}
	}
	return q.QueryRow(ctx, query,
		ticket.TenantID,
		ticket.TicketNo,
		ticket.OrderID,
		ticket.CustomerID,
		ticket.Type,
		ticket.Status,
		ticket.Priority,
		ticket.Description,
		photos,
		ticket.AssigneeID,
		ticket.CreatedBy,
	).Scan(&ticket.ID, &ticket.ActualDeduction, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, q DBTX, tenantID, id string) (*domain.AfterSalesTicket, error) {
	query := `SELECT ` + ticketColumns + ` FROM after_sales_tickets WHERE id=$1 AND tenant_id=$2`
	return scanTicket(q.QueryRow(ctx, query, id, tenantID))
}

// GetForUpdate locks the ticket row until the surrounding transaction ends.
func (r *ticketRepository) GetForUpdate(ctx context.Context, q DBTX, tenantID, id string) (*domain.AfterSalesTicket, error) {
	query := `SELECT ` + ticketColumns + ` FROM after_sales_tickets WHERE id=$1 AND tenant_id=$2 FOR UPDATE`
	return scanTicket(q.QueryRow(ctx, query, id, tenantID))
}

func (r *ticketRepository) UpdateStatus(ctx context.Context, q DBTX, ticket *domain.AfterSalesTicket) error {
	const query = `
        UPDATE after_sales_tickets SET status=$1, resolution=$2, assignee_id=$3, closed_at=$4, updated_at=NOW()
        WHERE id=$5 AND tenant_id=$6
        RETURNING updated_at`
	return q.QueryRow(ctx, query,
		ticket.Status,
		ticket.Resolution,
		ticket.AssigneeID,
		ticket.ClosedAt,
		ticket.ID,
		ticket.TenantID,
	).Scan(&ticket.UpdatedAt)
}

// SetActualDeduction overwrites the derived total. Only the deduction
// aggregator calls it.
func (r *ticketRepository) SetActualDeduction(ctx context.Context, q DBTX, tenantID, id string, amount decimal.Decimal) error {
	const query = `
        UPDATE after_sales_tickets SET actual_deduction=$1, updated_at=NOW()
        WHERE id=$2 AND tenant_id=$3`
	cmd, err := q.Exec(ctx, query, amount, id, tenantID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) CloseCost(ctx context.Context, q DBTX, ticket *domain.AfterSalesTicket) error {
	const query = `
        UPDATE after_sales_tickets SET total_actual_cost=$1, internal_loss=$2, status=$3, closed_at=$4, updated_at=NOW()
        WHERE id=$5 AND tenant_id=$6
        RETURNING updated_at`
	return q.QueryRow(ctx, query,
		ticket.TotalActualCost,
		ticket.InternalLoss,
		ticket.Status,
		ticket.ClosedAt,
		ticket.ID,
		ticket.TenantID,
	).Scan(&ticket.UpdatedAt)
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, q DBTX, filter TicketFilter) ([]domain.AfterSalesTicket, int64, error) {
	clauses := []string{"tenant_id=$1"}
	args := []any{filter.TenantID}

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Types) > 0 {
		placeholders := make([]string, len(filter.Types))
		for i, tt := range filter.Types {
			args = append(args, tt)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("type IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("assignee_id=$%d", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		args = append(args, containsPattern(strings.TrimSpace(*filter.SearchTerm)))
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(
			`(ticket_no ILIKE %[1]s ESCAPE '\' OR description ILIKE %[1]s ESCAPE '\')`, placeholder))
	}

	where := strings.Join(clauses, " AND ")

	var total int64
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM after_sales_tickets WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM after_sales_tickets WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, where, limit, offset)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []domain.AfterSalesTicket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *ticket)
	}
	return result, total, rows.Err()
}

func (r *ticketRepository) CountByType(ctx context.Context, q DBTX, tenantID string) ([]domain.TicketTypeRow, error) {
	const query = `
        SELECT type, COUNT(*) FROM after_sales_tickets
        WHERE tenant_id=$1 GROUP BY type ORDER BY type`
	rows, err := q.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketTypeRow
	for rows.Next() {
		var row domain.TicketTypeRow
		if err := rows.Scan(&row.Type, &row.Count); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func (r *ticketRepository) CountByStatus(ctx context.Context, q DBTX, tenantID string) ([]domain.TicketStatusRow, error) {
	const query = `
        SELECT status, COUNT(*) FROM after_sales_tickets
        WHERE tenant_id=$1 GROUP BY status ORDER BY status`
	rows, err := q.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketStatusRow
	for rows.Next() {
		var row domain.TicketStatusRow
		if err := rows.Scan(&row.Status, &row.Count); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func scanTicket(row pgx.Row) (*domain.AfterSalesTicket, error) {
	var ticket domain.AfterSalesTicket
	if err := row.Scan(
		&ticket.ID,
		&ticket.TenantID,
		&ticket.TicketNo,
		&ticket.OrderID,
		&ticket.CustomerID,
		&ticket.Type,
		&ticket.Status,
		&ticket.Priority,
		&ticket.Description,
		&ticket.Photos,
		&ticket.Resolution,
		&ticket.AssigneeID,
		&ticket.TotalActualCost,
		&ticket.ActualDeduction,
		&ticket.InternalLoss,
		&ticket.CreatedBy,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ClosedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}
