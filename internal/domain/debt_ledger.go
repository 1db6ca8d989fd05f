package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DebtLedgerEntry is an append-only booking of a binding liability amount.
// Corrections are offsetting entries; rows are never edited.
type DebtLedgerEntry struct {
	ID              string
	TenantID        string
	LiablePartyType LiablePartyType
	LiablePartyID   *string
	Amount          decimal.Decimal
	TicketID        string
	NoticeID        string
	CreatedBy       string
	CreatedAt       time.Time
}

// DeductionStatus grades a party's booked total against its cap.
type DeductionStatus string

const (
	DeductionStatusNormal  DeductionStatus = "NORMAL"
	DeductionStatusWarning DeductionStatus = "WARNING"
	DeductionStatusBlocked DeductionStatus = "BLOCKED"
)

// DeductionWarningRatio is the share of the cap at which WARNING starts.
var DeductionWarningRatio = decimal.RequireFromString("0.9")

// DebtLedgerSummary totals a party's ledger.
type DebtLedgerSummary struct {
	LiablePartyType LiablePartyType
	LiablePartyID   string
	TotalBooked     decimal.Decimal
	EntryCount      int64
	MaxAllowed      decimal.NullDecimal
	Status          DeductionStatus
	RemainingQuota  decimal.NullDecimal
}

// GradeDeduction returns the status for total against an optional cap.
func GradeDeduction(total decimal.Decimal, limit decimal.NullDecimal) DeductionStatus {
	if !limit.Valid || !limit.Decimal.IsPositive() {
		return DeductionStatusNormal
	}
	if total.GreaterThanOrEqual(limit.Decimal) {
		return DeductionStatusBlocked
	}
	if total.GreaterThanOrEqual(limit.Decimal.Mul(DeductionWarningRatio)) {
		return DeductionStatusWarning
	}
	return DeductionStatusNormal
}
