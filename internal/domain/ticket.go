package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TicketType classifies the after-sales case.
type TicketType string

const (
	TicketTypeRepair    TicketType = "REPAIR"
	TicketTypeReturn    TicketType = "RETURN"
	TicketTypeExchange  TicketType = "EXCHANGE"
	TicketTypeComplaint TicketType = "COMPLAINT"
	TicketTypeReinstall TicketType = "REINSTALL"
	TicketTypeOther     TicketType = "OTHER"
)

// IsValid reports whether t is a known ticket type.
func (t TicketType) IsValid() bool {
	switch t {
	case TicketTypeRepair, TicketTypeReturn, TicketTypeExchange, TicketTypeComplaint, TicketTypeReinstall, TicketTypeOther:
		return true
	}
	return false
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
)

// IsValid reports whether p is a known priority.
func (p TicketPriority) IsValid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh:
		return true
	}
	return false
}

// AfterSalesTicket is the aggregate for an after-sales service case.
//
// ActualDeduction is derived: it always equals the sum of the amounts of the
// ticket's CONFIRMED liability notices and is only written by the deduction
// aggregator. InternalLoss is derived at cost closure.
type AfterSalesTicket struct {
	ID              string
	TenantID        string
	TicketNo        string
	OrderID         string
	CustomerID      string
	Type            TicketType
	Status          TicketStatus
	Priority        TicketPriority
	Description     string
	Photos          []string
	Resolution      *string
	AssigneeID      *string
	TotalActualCost decimal.NullDecimal
	ActualDeduction decimal.Decimal
	InternalLoss    decimal.NullDecimal
	CreatedBy       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ClosedAt        *time.Time
}

// IsTerminal reports whether the ticket reached a terminal status.
func (t *AfterSalesTicket) IsTerminal() bool {
	return IsTerminal(t.Status)
}
