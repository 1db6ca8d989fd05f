package domain

import (
	apperrors "github.com/spec-kit/aftersales-service/pkg/util/errorutil"
)

// TicketStatus enumerates lifecycle states for after-sales tickets.
type TicketStatus string

const (
	TicketStatusPending         TicketStatus = "PENDING"
	TicketStatusInvestigating   TicketStatus = "INVESTIGATING"
	TicketStatusProcessing      TicketStatus = "PROCESSING"
	TicketStatusPendingVisit    TicketStatus = "PENDING_VISIT"
	TicketStatusPendingCallback TicketStatus = "PENDING_CALLBACK"
	TicketStatusPendingVerify   TicketStatus = "PENDING_VERIFY"
	TicketStatusClosed          TicketStatus = "CLOSED"
	TicketStatusRejected        TicketStatus = "REJECTED"
)

// ticketTransitions is directed; reverse edges are never implied.
var ticketTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusPending:         {TicketStatusInvestigating, TicketStatusProcessing, TicketStatusRejected},
	TicketStatusInvestigating:   {TicketStatusProcessing, TicketStatusPendingVisit, TicketStatusPendingCallback, TicketStatusRejected},
	TicketStatusProcessing:      {TicketStatusPendingVerify, TicketStatusClosed},
	TicketStatusPendingVisit:    {TicketStatusProcessing},
	TicketStatusPendingCallback: {TicketStatusProcessing},
	TicketStatusPendingVerify:   {TicketStatusClosed, TicketStatusProcessing},
	TicketStatusRejected:        {},
	TicketStatusClosed:          {},
}

// TicketStatuses lists every state known to the transition table.
func TicketStatuses() []TicketStatus {
	return []TicketStatus{
		TicketStatusPending,
		TicketStatusInvestigating,
		TicketStatusProcessing,
		TicketStatusPendingVisit,
		TicketStatusPendingCallback,
		TicketStatusPendingVerify,
		TicketStatusClosed,
		TicketStatusRejected,
	}
}

// IsValid reports whether s is a key of the transition table.
func (s TicketStatus) IsValid() bool {
	_, ok := ticketTransitions[s]
	return ok
}

// IsValidTransition reports whether from -> to is an edge of the table.
// Unknown states are never valid.
func IsValidTransition(from, to TicketStatus) bool {
	for _, candidate := range ticketTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// AvailableTransitions returns a copy of the targets reachable from state.
func AvailableTransitions(state TicketStatus) []TicketStatus {
	targets := ticketTransitions[state]
	out := make([]TicketStatus, len(targets))
	copy(out, targets)
	return out
}

// IsTerminal reports whether state has no outgoing transitions.
func IsTerminal(state TicketStatus) bool {
	targets, ok := ticketTransitions[state]
	return ok && len(targets) == 0
}

// ValidateTransition returns an INVALID_TRANSITION error naming both states,
// or nil when the edge exists.
func ValidateTransition(from, to TicketStatus) *apperrors.DomainError {
	if IsValidTransition(from, to) {
		return nil
	}
	return apperrors.NewInvalidTransition("ticket", string(from), string(to))
}
