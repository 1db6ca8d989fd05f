package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateNoticeRequest payload for POST /tickets/:id/liability-notices.
type CreateNoticeRequest struct {
	LiablePartyType string           `json:"liablePartyType" validate:"required,oneof=FACTORY INSTALLER LOGISTICS CUSTOMER SALESPERSON OTHER"`
	LiablePartyID   *string          `json:"liablePartyId" validate:"omitempty,max=64"`
	Reason          string           `json:"reason" validate:"required,max=1000"`
	ReasonCategory  *string          `json:"reasonCategory" validate:"omitempty,oneof=PRODUCTION_QUALITY CONSTRUCTION_ERROR DATA_ERROR SALES_ERROR LOGISTICS_ISSUE CUSTOMER_REASON"`
	Amount          *decimal.Decimal `json:"amount" validate:"required"`
	Evidence        []string         `json:"evidence" validate:"max=20,dive,required,max=512"`
}

// ReviseNoticeRequest payload for PATCH /liability-notices/:id.
type ReviseNoticeRequest struct {
	LiablePartyType *string          `json:"liablePartyType" validate:"omitempty,oneof=FACTORY INSTALLER LOGISTICS CUSTOMER SALESPERSON OTHER"`
	LiablePartyID   *string          `json:"liablePartyId" validate:"omitempty,max=64"`
	Reason          *string          `json:"reason" validate:"omitempty,max=1000"`
	ReasonCategory  *string          `json:"reasonCategory" validate:"omitempty,oneof=PRODUCTION_QUALITY CONSTRUCTION_ERROR DATA_ERROR SALES_ERROR LOGISTICS_ISSUE CUSTOMER_REASON"`
	Amount          *decimal.Decimal `json:"amount"`
	Evidence        *[]string        `json:"evidence" validate:"omitempty,max=20,dive,required,max=512"`
}

// DisputeNoticeRequest payload for POST /liability-notices/:id/dispute.
type DisputeNoticeRequest struct {
	Reason string `json:"reason" validate:"required,max=2000"`
}

// ArbitrateNoticeRequest payload for POST /liability-notices/:id/arbitrate.
type ArbitrateNoticeRequest struct {
	Result string `json:"result" validate:"required,max=2000"`
}

// NoticeResponse is the API view of a liability notice.
type NoticeResponse struct {
	ID                string     `json:"id"`
	NoticeNo          string     `json:"noticeNo"`
	TicketID          string     `json:"ticketId"`
	LiablePartyType   string     `json:"liablePartyType"`
	LiablePartyLabel  string     `json:"liablePartyLabel"`
	LiablePartyID     *string    `json:"liablePartyId,omitempty"`
	Reason            string     `json:"reason"`
	ReasonCategory    *string    `json:"reasonCategory,omitempty"`
	Amount            string     `json:"amount"`
	Evidence          []string   `json:"evidence"`
	Status            string     `json:"status"`
	FinanceStatus     string     `json:"financeStatus"`
	FinanceSyncedAt   *time.Time `json:"financeSyncedAt,omitempty"`
	ConfirmedAt       *time.Time `json:"confirmedAt,omitempty"`
	ConfirmedBy       *string    `json:"confirmedBy,omitempty"`
	DisputeReason     *string    `json:"disputeReason,omitempty"`
	ArbitrationResult *string    `json:"arbitrationResult,omitempty"`
	ArbitratedBy      *string    `json:"arbitratedBy,omitempty"`
	ArbitratedAt      *time.Time `json:"arbitratedAt,omitempty"`
	CreatedBy         string     `json:"createdBy"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// ConfirmNoticeResponse adds the recomputed ticket total to the notice.
type ConfirmNoticeResponse struct {
	Notice          NoticeResponse `json:"notice"`
	ActualDeduction string         `json:"actualDeduction"`
	LedgerEntryID   *string        `json:"ledgerEntryId,omitempty"`
}

// LedgerEntryResponse is one booked debt.
type LedgerEntryResponse struct {
	ID        string    `json:"id"`
	Amount    string    `json:"amount"`
	TicketID  string    `json:"ticketId"`
	NoticeID  string    `json:"noticeId"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

// DebtLedgerSummaryResponse answers GET /debt-ledger/:party_type/:party_id.
type DebtLedgerSummaryResponse struct {
	LiablePartyType  string                `json:"liablePartyType"`
	LiablePartyLabel string                `json:"liablePartyLabel"`
	LiablePartyID    string                `json:"liablePartyId"`
	TotalBooked      string                `json:"totalBooked"`
	EntryCount       int64                 `json:"entryCount"`
	MaxAllowed       *string               `json:"maxAllowed"`
	RemainingQuota   *string               `json:"remainingQuota"`
	Status           string                `json:"status"`
	RecentEntries    []LedgerEntryResponse `json:"recentEntries"`
}
