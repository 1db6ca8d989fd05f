package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateTicketRequest payload for POST /tickets.
type CreateTicketRequest struct {
	OrderID     string   `json:"orderId" validate:"required,max=64"`
	CustomerID  string   `json:"customerId" validate:"required,max=64"`
	Type        string   `json:"type" validate:"required,oneof=REPAIR RETURN EXCHANGE COMPLAINT REINSTALL OTHER"`
	Priority    string   `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
	Description string   `json:"description" validate:"required,max=2000"`
	Photos      []string `json:"photos" validate:"max=20,dive,required,max=512"`
	AssigneeID  *string  `json:"assigneeId" validate:"omitempty,max=64"`
}

// UpdateTicketStatusRequest payload for PATCH /tickets/:id/status.
type UpdateTicketStatusRequest struct {
	Status     string  `json:"status" validate:"required"`
	Resolution *string `json:"resolution" validate:"omitempty,max=2000"`
}

// CostClosureRequest payload for POST /tickets/:id/cost-closure.
type CostClosureRequest struct {
	TotalActualCost *decimal.Decimal `json:"totalActualCost"`
}

// TicketResponse is the API view of a ticket.
type TicketResponse struct {
	ID              string     `json:"id"`
	TicketNo        string     `json:"ticketNo"`
	OrderID         string     `json:"orderId"`
	CustomerID      string     `json:"customerId"`
	Type            string     `json:"type"`
	Status          string     `json:"status"`
	Priority        string     `json:"priority"`
	Description     string     `json:"description"`
	Photos          []string   `json:"photos"`
	Resolution      *string    `json:"resolution,omitempty"`
	AssigneeID      *string    `json:"assigneeId,omitempty"`
	TotalActualCost *string    `json:"totalActualCost"`
	ActualDeduction string     `json:"actualDeduction"`
	InternalLoss    *string    `json:"internalLoss"`
	CreatedBy       string     `json:"createdBy"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
	ClosedAt        *time.Time `json:"closedAt,omitempty"`
}

// AuditEntryResponse is one audit trail row.
type AuditEntryResponse struct {
	Action    string         `json:"action"`
	TableName string         `json:"tableName"`
	RecordID  string         `json:"recordId"`
	OldValues map[string]any `json:"oldValues,omitempty"`
	NewValues map[string]any `json:"newValues,omitempty"`
	ActorID   string         `json:"actorId"`
	CreatedAt time.Time      `json:"createdAt"`
}

// TicketDetailResponse bundles a ticket with its notices and history.
type TicketDetailResponse struct {
	Ticket           TicketResponse       `json:"ticket"`
	LiabilityNotices []NoticeResponse     `json:"liabilityNotices"`
	AuditTrail       []AuditEntryResponse `json:"auditTrail"`
	Transitions      []string             `json:"availableTransitions"`
}

// FinancialClosureResponse answers GET /tickets/:id/financial-closure.
type FinancialClosureResponse struct {
	TicketID      string `json:"ticketId"`
	IsClosed      bool   `json:"isClosed"`
	TotalNotices  int64  `json:"totalNotices"`
	UnsyncedCount int64  `json:"unsyncedCount"`
	Message       string `json:"message"`
}
