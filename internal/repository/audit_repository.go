package repository

import (
	"context"

	"github.com/spec-kit/aftersales-service/internal/domain"
)

// AuditRepository stores audit entries.
type AuditRepository interface {
	Create(ctx context.Context, q DBTX, entry *domain.AuditLogEntry) error
	ListByRecords(ctx context.Context, q DBTX, tenantID string, recordIDs []string) ([]domain.AuditLogEntry, error)
}

type auditRepository struct{}

// NewAuditRepository builds repository.
func NewAuditRepository() AuditRepository {
	return &auditRepository{}
}

func (r *auditRepository) Create(ctx context.Context, q DBTX, entry *domain.AuditLogEntry) error {
	const query = `
        INSERT INTO audit_logs (table_name, record_id, action, old_values, new_values, actor_id, tenant_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at`
	return q.QueryRow(ctx, query,
		entry.TableName,
		entry.RecordID,
		entry.Action,
		entry.OldValues,
		entry.NewValues,
		entry.ActorID,
		entry.TenantID,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *auditRepository) ListByRecords(ctx context.Context, q DBTX, tenantID string, recordIDs []string) ([]domain.AuditLogEntry, error) {
	if len(recordIDs) == 0 {
		return nil, nil
	}
	const query = `
        SELECT id, table_name, record_id, action, old_values, new_values, actor_id, tenant_id, created_at
        FROM audit_logs WHERE tenant_id=$1 AND record_id = ANY($2) ORDER BY created_at ASC`
	rows, err := q.Query(ctx, query, tenantID, recordIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AuditLogEntry
	for rows.Next() {
		var entry domain.AuditLogEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.TableName,
			&entry.RecordID,
			&entry.Action,
			&entry.OldValues,
			&entry.NewValues,
			&entry.ActorID,
			&entry.TenantID,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
