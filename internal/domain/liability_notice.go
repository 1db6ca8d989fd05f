package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LiablePartyType identifies who is held responsible for a notice's amount.
type LiablePartyType string

const (
	LiablePartyFactory     LiablePartyType = "FACTORY"
	LiablePartyInstaller   LiablePartyType = "INSTALLER"
	LiablePartyLogistics   LiablePartyType = "LOGISTICS"
	LiablePartyCustomer    LiablePartyType = "CUSTOMER"
	LiablePartySalesperson LiablePartyType = "SALESPERSON"
	LiablePartyOther       LiablePartyType = "OTHER"
)

var liablePartyLabels = map[LiablePartyType]string{
	LiablePartyFactory:     "Factory",
	LiablePartyInstaller:   "Installer",
	LiablePartyLogistics:   "Logistics",
	LiablePartyCustomer:    "Customer",
	LiablePartySalesperson: "Salesperson",
	LiablePartyOther:       "Other",
}

// LiablePartyTypes lists the known party types in display order.
func LiablePartyTypes() []LiablePartyType {
	return []LiablePartyType{
		LiablePartyFactory,
		LiablePartyInstaller,
		LiablePartyLogistics,
		LiablePartyCustomer,
		LiablePartySalesperson,
		LiablePartyOther,
	}
}

func (p LiablePartyType) IsValid() bool {
	_, ok := liablePartyLabels[p]
	return ok
}

// Label returns the display label, falling back to the raw value.
func (p LiablePartyType) Label() string {
	if label, ok := liablePartyLabels[p]; ok {
		return label
	}
	return string(p)
}

// ReasonCategory groups liability reasons for reporting.
type ReasonCategory string

const (
	ReasonProductionQuality ReasonCategory = "PRODUCTION_QUALITY"
	ReasonConstructionError ReasonCategory = "CONSTRUCTION_ERROR"
	ReasonDataError         ReasonCategory = "DATA_ERROR"
	ReasonSalesError        ReasonCategory = "SALES_ERROR"
	ReasonLogisticsIssue    ReasonCategory = "LOGISTICS_ISSUE"
	ReasonCustomerReason    ReasonCategory = "CUSTOMER_REASON"
)

func (c ReasonCategory) IsValid() bool {
	switch c {
	case ReasonProductionQuality, ReasonConstructionError, ReasonDataError,
		ReasonSalesError, ReasonLogisticsIssue, ReasonCustomerReason:
		return true
	}
	return false
}

// NoticeStatus enumerates liability notice states.
type NoticeStatus string

const (
	NoticeStatusDraft          NoticeStatus = "DRAFT"
	NoticeStatusPendingConfirm NoticeStatus = "PENDING_CONFIRM"
	NoticeStatusConfirmed      NoticeStatus = "CONFIRMED"
	NoticeStatusDisputed       NoticeStatus = "DISPUTED"
	NoticeStatusArbitrated     NoticeStatus = "ARBITRATED"
)

// noticeTransitions drives the notice workflow. CONFIRMED has no outgoing
// edge but is not final for finance status, which changes after commit.
var noticeTransitions = map[NoticeStatus][]NoticeStatus{
	NoticeStatusDraft:          {NoticeStatusPendingConfirm, NoticeStatusConfirmed},
	NoticeStatusPendingConfirm: {NoticeStatusConfirmed, NoticeStatusDisputed},
	NoticeStatusDisputed:       {NoticeStatusArbitrated},
	NoticeStatusConfirmed:      {},
	NoticeStatusArbitrated:     {},
}

// CanTransitionNotice reports whether from -> to is a workflow edge.
func CanTransitionNotice(from, to NoticeStatus) bool {
	for _, candidate := range noticeTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// NoticePrecondition is the message returned when a notice is not in a state
// that allows moving to target.
func NoticePrecondition(target NoticeStatus) string {
	switch target {
	case NoticeStatusPendingConfirm:
		return "illegal state operation: only draft notices can be submitted"
	case NoticeStatusConfirmed:
		return "only draft or pending-confirmation notices can be confirmed"
	case NoticeStatusDisputed:
		return "only notices pending confirmation can be disputed"
	case NoticeStatusArbitrated:
		return "only disputed notices can be arbitrated"
	default:
		return "illegal state operation"
	}
}

// FinanceStatus tracks projection of a notice into the finance module.
type FinanceStatus string

const (
	FinanceStatusNone   FinanceStatus = "NONE"
	FinanceStatusSynced FinanceStatus = "SYNCED"
	FinanceStatusFailed FinanceStatus = "FAILED"
)

// LiabilityNotice is a monetary finding against one ticket. Amount is
// immutable once Status leaves DRAFT.
type LiabilityNotice struct {
	ID                string
	TenantID          string
	NoticeNo          string
	TicketID          string
	LiablePartyType   LiablePartyType
	LiablePartyID     *string
	Reason            string
	ReasonCategory    *ReasonCategory
	Amount            decimal.Decimal
	Evidence          []string
	Status            NoticeStatus
	FinanceStatus     FinanceStatus
	FinanceSyncedAt   *time.Time
	ConfirmedAt       *time.Time
	ConfirmedBy       *string
	DisputeReason     *string
	ArbitrationResult *string
	ArbitratedBy      *string
	ArbitratedAt      *time.Time
	CreatedBy         string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// RequiresFinanceSync reports whether confirming the notice must project a
// supplier statement into finance.
func (n *LiabilityNotice) RequiresFinanceSync() bool {
	return n.LiablePartyType == LiablePartyFactory && n.LiablePartyID != nil && *n.LiablePartyID != ""
}

// BooksDebt reports whether a binding amount must be appended to the ledger.
func (n *LiabilityNotice) BooksDebt() bool {
	return n.Amount.IsPositive()
}
