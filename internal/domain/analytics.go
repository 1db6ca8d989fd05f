package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AnalyticsRange bounds the confirmation date of liability rollups.
type AnalyticsRange struct {
	Start *time.Time
	End   *time.Time
}

// PartyLiabilityRow is the confirmed liability total for one party type.
type PartyLiabilityRow struct {
	PartyType   LiablePartyType `json:"partyType"`
	PartyLabel  string          `json:"partyLabel"`
	Count       int64           `json:"count"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

// TicketTypeRow counts tickets of one type.
type TicketTypeRow struct {
	Type  TicketType `json:"type"`
	Count int64      `json:"count"`
}

// TicketStatusRow counts tickets in one status.
type TicketStatusRow struct {
	Status TicketStatus `json:"status"`
	Count  int64        `json:"count"`
}

// AnalyticsSummary totals are summed from the grouped rows so the displayed
// totals always agree with the breakdown.
type AnalyticsSummary struct {
	TotalLiabilityAmount decimal.Decimal `json:"totalLiabilityAmount"`
	TotalLiabilityCount  int64           `json:"totalLiabilityCount"`
	TotalTickets         int64           `json:"totalTickets"`
}

// QualityAnalytics is the dashboard read model.
type QualityAnalytics struct {
	ByParty     []PartyLiabilityRow `json:"byResponsibleParty"`
	ByType      []TicketTypeRow     `json:"byTicketType"`
	ByStatus    []TicketStatusRow   `json:"byStatus"`
	Summary     AnalyticsSummary    `json:"summary"`
	GeneratedAt time.Time           `json:"generatedAt"`
}

// Summarize recomputes Summary from the row slices.
func (q *QualityAnalytics) Summarize() {
	amount := decimal.Zero
	var count, tickets int64
	for _, row := range q.ByParty {
		amount = amount.Add(row.TotalAmount)
		count += row.Count
	}
	for _, row := range q.ByStatus {
		tickets += row.Count
	}
	q.Summary = AnalyticsSummary{
		TotalLiabilityAmount: amount,
		TotalLiabilityCount:  count,
		TotalTickets:         tickets,
	}
}
