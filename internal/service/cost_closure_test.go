package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/aftersales-service/internal/domain"
	apperrors "github.com/spec-kit/aftersales-service/pkg/util/errorutil"
)

func TestComputeInternalLoss(t *testing.T) {
	cost := decimal.NewNullDecimal(decimal.RequireFromString("500.00"))
	assert.Equal(t, "150", ComputeInternalLoss(cost, decimal.RequireFromString("350.00")).String())
	assert.Equal(t, "0", ComputeInternalLoss(decimal.NullDecimal{}, decimal.RequireFromString("0.00")).String())
	assert.Equal(t, "-20", ComputeInternalLoss(decimal.NullDecimal{}, decimal.RequireFromString("20")).String())
}

func TestCloseResolutionCostClosure_ComputesLossAndCloses(t *testing.T) {
	store := newMemStore()
	deps, pool := newTestDeps(store, nil)
	svc := NewCostClosureService(deps)
	ticket := store.addTicket(tenantA, domain.TicketStatusPendingVerify)
	store.tickets[ticket.ID].TotalActualCost = decimal.NewNullDecimal(decimal.RequireFromString("500.00"))
	store.tickets[ticket.ID].ActualDeduction = decimal.RequireFromString("350.00")

	res, err := svc.CloseResolutionCostClosure(context.Background(), sessionFor(tenantA), ticket.ID, nil)
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)

	stored := store.ticket(ticket.ID)
	assert.Equal(t, domain.TicketStatusClosed, stored.Status)
	require.True(t, stored.InternalLoss.Valid)
	assert.Equal(t, "150", stored.InternalLoss.Decimal.String())
	assert.Equal(t, fixedNow, *stored.ClosedAt)
	assert.Equal(t, 1, store.auditCount(domain.AuditActionCloseCost))
	assert.True(t, pool.last().committed)
}

func TestCloseResolutionCostClosure_NullCostIsZero(t *testing.T) {
	store := newMemStore()
	deps, _ := newTestDeps(store, nil)
	svc := NewCostClosureService(deps)
	ticket := store.addTicket(tenantA, domain.TicketStatusProcessing)

	res, err := svc.CloseResolutionCostClosure(context.Background(), sessionFor(tenantA), ticket.ID, nil)
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, "0", store.ticket(ticket.ID).InternalLoss.Decimal.String())
}

func TestCloseResolutionCostClosure_RecordsGivenCost(t *testing.T) {
	store := newMemStore()
	deps, _ := newTestDeps(store, nil)
	svc := NewCostClosureService(deps)
	ticket := store.addTicket(tenantA, domain.TicketStatusProcessing)
	store.tickets[ticket.ID].ActualDeduction = decimal.RequireFromString("80")

	res, err := svc.CloseResolutionCostClosure(context.Background(), sessionFor(tenantA), ticket.ID, ptr(decimal.RequireFromString("120.40")))
	require.NoError(t, err)
	require.True(t, res.Success)

	stored := store.ticket(ticket.ID)
	assert.Equal(t, "120.4", stored.TotalActualCost.Decimal.String())
	assert.Equal(t, "40.4", stored.InternalLoss.Decimal.String())
}

func TestCloseResolutionCostClosure_RejectsInvalidTransitions(t *testing.T) {
	for _, status := range []domain.TicketStatus{domain.TicketStatusPending, domain.TicketStatusClosed, domain.TicketStatusRejected} {
		t.Run(string(status), func(t *testing.T) {
			store := newMemStore()
			deps, _ := newTestDeps(store, nil)
			svc := NewCostClosureService(deps)
			ticket := store.addTicket(tenantA, status)

			res, err := svc.CloseResolutionCostClosure(context.Background(), sessionFor(tenantA), ticket.ID, nil)
			require.NoError(t, err)
			assert.Equal(t, apperrors.CodeInvalidTransition, res.Code())
			assert.Equal(t, status, store.ticket(ticket.ID).Status)
			assert.Zero(t, store.auditCount(domain.AuditActionCloseCost))
		})
	}
}

func TestCloseResolutionCostClosure_NegativeCost(t *testing.T) {
	store := newMemStore()
	deps, pool := newTestDeps(store, nil)
	svc := NewCostClosureService(deps)
	ticket := store.addTicket(tenantA, domain.TicketStatusProcessing)

	res, err := svc.CloseResolutionCostClosure(context.Background(), sessionFor(tenantA), ticket.ID, ptr(decimal.RequireFromString("-1")))
	require.NoError(t, err)
	assert.Equal(t, apperrors.CodeValidation, res.Code())
	assert.Nil(t, pool.last())
}
