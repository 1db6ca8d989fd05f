package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// DocumentTable names a table whose numbers are allocated by prefix.
type DocumentTable string

const (
	DocumentTableTickets DocumentTable = "after_sales_tickets"
	DocumentTableNotices DocumentTable = "liability_notices"
)

// numberColumns whitelists the identifier interpolated into the seed query.
var numberColumns = map[DocumentTable]string{
	DocumentTableTickets: "ticket_no",
	DocumentTableNotices: "notice_no",
}

// SequenceRepository manages per-tenant counters keyed by dated prefix.
type SequenceRepository interface {
	// Increment bumps the counter and returns the new value. It returns
	// pgx.ErrNoRows when the counter row does not exist yet.
	Increment(ctx context.Context, q DBTX, tenantID, prefix string) (int64, error)
	// MaxNumber returns the greatest issued number starting with prefix, or
	// "" when none exists. Longer numbers sort first so five digit suffixes
	// beat 9999.
	MaxNumber(ctx context.Context, q DBTX, table DocumentTable, tenantID, prefix string) (string, error)
	// Seed creates the counter row at lastValue unless it already exists.
	Seed(ctx context.Context, q DBTX, tenantID, prefix string, lastValue int64) error
}

type sequenceRepository struct{}

// NewSequenceRepository builds repository.
func NewSequenceRepository() SequenceRepository {
	return &sequenceRepository{}
}

// Increment holds the counter row lock until the caller's transaction ends,
// serializing concurrent allocators for the same tenant and day.
func (r *sequenceRepository) Increment(ctx context.Context, q DBTX, tenantID, prefix string) (int64, error) {
	const query = `
        UPDATE document_sequences SET last_value = last_value + 1, updated_at = NOW()
        WHERE tenant_id=$1 AND prefix=$2
        RETURNING last_value`
	var value int64
	if err := q.QueryRow(ctx, query, tenantID, prefix).Scan(&value); err != nil {
		return 0, err
	}
	return value, nil
}

func (r *sequenceRepository) MaxNumber(ctx context.Context, q DBTX, table DocumentTable, tenantID, prefix string) (string, error) {
	column, ok := numberColumns[table]
	if !ok {
		return "", fmt.Errorf("unknown document table %q", table)
	}
	query := fmt.Sprintf(
		`SELECT %[1]s FROM %[2]s WHERE tenant_id=$1 AND %[1]s LIKE $2 ESCAPE '\' ORDER BY LENGTH(%[1]s) DESC, %[1]s DESC LIMIT 1`,
		column, table)
	var number string
	err := q.QueryRow(ctx, query, tenantID, EscapeLikePattern(prefix)+"%").Scan(&number)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return number, nil
}

func (r *sequenceRepository) Seed(ctx context.Context, q DBTX, tenantID, prefix string, lastValue int64) error {
	const query = `
        INSERT INTO document_sequences (tenant_id, prefix, last_value)
        VALUES ($1,$2,$3)
        ON CONFLICT (tenant_id, prefix) DO NOTHING`
	_, err := q.Exec(ctx, query, tenantID, prefix, lastValue)
	return err
}
