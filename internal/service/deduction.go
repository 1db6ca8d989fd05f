package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/spec-kit/aftersales-service/internal/repository"
)

// maxDeduction matches after_sales_tickets.actual_deduction NUMERIC(14,2).
var maxDeduction = decimal.RequireFromString("999999999999.99")

// ErrDeductionOverflow means the confirmed total no longer fits the ticket.
var ErrDeductionOverflow = errors.New("actual deduction exceeds the supported maximum")

// DeductionAggregator keeps a ticket's actual deduction equal to the sum of
// its CONFIRMED notices.
//
// Recompute must run inside the transaction that confirmed the notice, after
// the caller has locked the ticket row. The value is re-derived from the
// notices table and written as an absolute value, never as a delta, so the
// last committer always leaves the correct total.
type DeductionAggregator struct {
	tickets repository.TicketRepository
	notices repository.LiabilityNoticeRepository
}

// NewDeductionAggregator builds the aggregator.
func NewDeductionAggregator(tickets repository.TicketRepository, notices repository.LiabilityNoticeRepository) *DeductionAggregator {
	return &DeductionAggregator{tickets: tickets, notices: notices}
}

// Recompute sums confirmed notice amounts in the database and stores the sum
// on the ticket, scoped by tenant and id.
func (a *DeductionAggregator) Recompute(ctx context.Context, tx repository.DBTX, tenantID, ticketID string) (decimal.Decimal, error) {
	total, err := a.notices.SumConfirmedByTicket(ctx, tx, tenantID, ticketID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum confirmed notices: %w", err)
	}
	if total.GreaterThan(maxDeduction) {
		return decimal.Zero, ErrDeductionOverflow
	}
	if err := a.tickets.SetActualDeduction(ctx, tx, tenantID, ticketID, total); err != nil {
		return decimal.Zero, fmt.Errorf("write actual deduction: %w", err)
	}
	return total, nil
}
