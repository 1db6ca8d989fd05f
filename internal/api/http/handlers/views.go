package handlers

import (
	"github.com/shopspring/decimal"

	"github.com/spec-kit/aftersales-service/internal/api/dto"
	"github.com/spec-kit/aftersales-service/internal/domain"
	"github.com/spec-kit/aftersales-service/internal/service"
)

func nullDecimalString(v decimal.NullDecimal) *string {
	if !v.Valid {
		return nil
	}
	s := v.Decimal.StringFixed(2)
	return &s
}

func ticketResponse(t *domain.AfterSalesTicket) dto.TicketResponse {
	photos := t.Photos
	if photos == nil {
		photos = []string{}
	}
	return dto.TicketResponse{
		ID:              t.ID,
		TicketNo:        t.TicketNo,
		OrderID:         t.OrderID,
		CustomerID:      t.CustomerID,
		Type:            string(t.Type),
		Status:          string(t.Status),
		Priority:        string(t.Priority),
		Description:     t.Description,
		Photos:          photos,
		Resolution:      t.Resolution,
		AssigneeID:      t.AssigneeID,
		TotalActualCost: nullDecimalString(t.TotalActualCost),
		ActualDeduction: t.ActualDeduction.StringFixed(2),
		InternalLoss:    nullDecimalString(t.InternalLoss),
		CreatedBy:       t.CreatedBy,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
		ClosedAt:        t.ClosedAt,
	}
}

func noticeResponse(n *domain.LiabilityNotice) dto.NoticeResponse {
	evidence := n.Evidence
	if evidence == nil {
		evidence = []string{}
	}
	var category *string
	if n.ReasonCategory != nil {
		c := string(*n.ReasonCategory)
		category = &c
	}
	return dto.NoticeResponse{
		ID:                n.ID,
		NoticeNo:          n.NoticeNo,
		TicketID:          n.TicketID,
		LiablePartyType:   string(n.LiablePartyType),
		LiablePartyLabel:  n.LiablePartyType.Label(),
		LiablePartyID:     n.LiablePartyID,
		Reason:            n.Reason,
		ReasonCategory:    category,
		Amount:            n.Amount.StringFixed(2),
		Evidence:          evidence,
		Status:            string(n.Status),
		FinanceStatus:     string(n.FinanceStatus),
		FinanceSyncedAt:   n.FinanceSyncedAt,
		ConfirmedAt:       n.ConfirmedAt,
		ConfirmedBy:       n.ConfirmedBy,
		DisputeReason:     n.DisputeReason,
		ArbitrationResult: n.ArbitrationResult,
		ArbitratedBy:      n.ArbitratedBy,
		ArbitratedAt:      n.ArbitratedAt,
		CreatedBy:         n.CreatedBy,
		CreatedAt:         n.CreatedAt,
		UpdatedAt:         n.UpdatedAt,
	}
}

func noticeResponses(notices []domain.LiabilityNotice) []dto.NoticeResponse {
	out := make([]dto.NoticeResponse, 0, len(notices))
	for i := range notices {
		out = append(out, noticeResponse(&notices[i]))
	}
	return out
}

func ticketDetailResponse(d service.TicketDetail) dto.TicketDetailResponse {
	trail := make([]dto.AuditEntryResponse, 0, len(d.AuditTrail))
	for _, entry := range d.AuditTrail {
		trail = append(trail, dto.AuditEntryResponse{
			Action:    string(entry.Action),
			TableName: entry.TableName,
			RecordID:  entry.RecordID,
			OldValues: entry.OldValues,
			NewValues: entry.NewValues,
			ActorID:   entry.ActorID,
			CreatedAt: entry.CreatedAt,
		})
	}
	transitions := make([]string, 0, len(d.Transitions))
	for _, s := range d.Transitions {
		transitions = append(transitions, string(s))
	}
	return dto.TicketDetailResponse{
		Ticket:           ticketResponse(d.Ticket),
		LiabilityNotices: noticeResponses(d.Notices),
		AuditTrail:       trail,
		Transitions:      transitions,
	}
}

func ledgerSummaryResponse(v service.LedgerSummaryView) dto.DebtLedgerSummaryResponse {
	entries := make([]dto.LedgerEntryResponse, 0, len(v.Entries))
	for _, e := range v.Entries {
		entries = append(entries, dto.LedgerEntryResponse{
			ID:        e.ID,
			Amount:    e.Amount.StringFixed(2),
			TicketID:  e.TicketID,
			NoticeID:  e.NoticeID,
			CreatedBy: e.CreatedBy,
			CreatedAt: e.CreatedAt,
		})
	}
	s := v.Summary
	return dto.DebtLedgerSummaryResponse{
		LiablePartyType:  string(s.LiablePartyType),
		LiablePartyLabel: s.LiablePartyType.Label(),
		LiablePartyID:    s.LiablePartyID,
		TotalBooked:      s.TotalBooked.StringFixed(2),
		EntryCount:       s.EntryCount,
		MaxAllowed:       nullDecimalString(s.MaxAllowed),
		RemainingQuota:   nullDecimalString(s.RemainingQuota),
		Status:           string(s.Status),
		RecentEntries:    entries,
	}
}
