package domain

import "time"

// AuditAction captures what happened to a record.
type AuditAction string

const (
	AuditActionCreate    AuditAction = "CREATE"
	AuditActionUpdate    AuditAction = "UPDATE"
	AuditActionCloseCost AuditAction = "CLOSE_COST"
)

// Audited table names.
const (
	AuditTableTickets = "after_sales_tickets"
	AuditTableNotices = "liability_notices"
)

// AuditLogEntry is an immutable audit trail entry.
type AuditLogEntry struct {
	ID        string
	TableName string
	RecordID  string
	Action    AuditAction
	OldValues map[string]any
	NewValues map[string]any
	ActorID   string
	TenantID  string
	CreatedAt time.Time
}
