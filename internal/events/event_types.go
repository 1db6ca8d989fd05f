package events

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/spec-kit/aftersales-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated        EventType = "ticket_created"
	EventTicketStatusChanged  EventType = "ticket_status_changed"
	EventTicketCostClosed     EventType = "ticket_cost_closed"
	EventNoticeCreated        EventType = "notice_created"
	EventNoticeRevised        EventType = "notice_revised"
	EventNoticeStatusChanged  EventType = "notice_status_changed"
	EventNoticeConfirmed      EventType = "notice_confirmed"
	EventFinanceSyncFailed    EventType = "finance_sync_failed"
	EventFinanceSyncSucceeded EventType = "finance_sync_succeeded"
)

// MutationEvents lists every event that changes ticket or notice data.
func MutationEvents() []EventType {
	return []EventType{
		EventTicketCreated,
		EventTicketStatusChanged,
		EventTicketCostClosed,
		EventNoticeCreated,
		EventNoticeRevised,
		EventNoticeStatusChanged,
		EventNoticeConfirmed,
		EventFinanceSyncFailed,
		EventFinanceSyncSucceeded,
	}
}

// Actor encapsulates actor metadata for an event.
type Actor struct {
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TenantID  string      `json:"tenant_id"`
	TicketID  string      `json:"ticket_id"`
	NoticeID  string      `json:"notice_id,omitempty"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TicketNo string                `json:"ticket_no"`
	Type     domain.TicketType     `json:"type"`
	Priority domain.TicketPriority `json:"priority"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Comment   string              `json:"comment,omitempty"`
}

// TicketCostClosedPayload payload.
type TicketCostClosedPayload struct {
	TotalActualCost decimal.NullDecimal `json:"total_actual_cost"`
	ActualDeduction decimal.Decimal     `json:"actual_deduction"`
	InternalLoss    decimal.Decimal     `json:"internal_loss"`
}

// NoticeCreatedPayload payload.
type NoticeCreatedPayload struct {
	NoticeNo  string                 `json:"notice_no"`
	PartyType domain.LiablePartyType `json:"party_type"`
	Amount    decimal.Decimal        `json:"amount"`
}

// NoticeStatusChangedPayload payload.
type NoticeStatusChangedPayload struct {
	OldStatus domain.NoticeStatus `json:"old_status"`
	NewStatus domain.NoticeStatus `json:"new_status"`
}

// NoticeConfirmedPayload payload.
type NoticeConfirmedPayload struct {
	PartyType       domain.LiablePartyType `json:"party_type"`
	Amount          decimal.Decimal        `json:"amount"`
	ActualDeduction decimal.Decimal        `json:"actual_deduction"`
}

// FinanceSyncPayload payload for both sync outcomes.
type FinanceSyncPayload struct {
	NoticeNo string `json:"notice_no"`
	Error    string `json:"error,omitempty"`
}
