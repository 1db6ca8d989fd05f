package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/spec-kit/aftersales-service/pkg/util/errorutil"
)

func TestTicketTransitionsHaveNoDanglingTargets(t *testing.T) {
	for from, targets := range ticketTransitions {
		for _, to := range targets {
			_, ok := ticketTransitions[to]
			assert.True(t, ok, "%s -> %s targets a state missing from the table", from, to)
		}
	}
}

func TestTicketStatusesCoverTable(t *testing.T) {
	assert.Len(t, TicketStatuses(), len(ticketTransitions))
	for _, s := range TicketStatuses() {
		assert.True(t, s.IsValid(), s)
	}
}

func TestIsValidTransitionMatchesTableExactly(t *testing.T) {
	states := append(TicketStatuses(), TicketStatus("UNKNOWN"))
	for _, from := range states {
		for _, to := range states {
			expected := false
			for _, candidate := range ticketTransitions[from] {
				if candidate == to {
					expected = true
				}
			}
			assert.Equal(t, expected, IsValidTransition(from, to), "%s -> %s", from, to)
		}
	}
	assert.False(t, IsValidTransition("UNKNOWN", "UNKNOWN"))
	assert.False(t, IsValidTransition(TicketStatusPending, TicketStatusClosed))
	assert.False(t, IsValidTransition(TicketStatusProcessing, TicketStatusPending))
}

func TestTerminalIffNoTransitions(t *testing.T) {
	var terminal []TicketStatus
	for _, s := range TicketStatuses() {
		assert.Equal(t, len(AvailableTransitions(s)) == 0, IsTerminal(s), s)
		if IsTerminal(s) {
			terminal = append(terminal, s)
		}
	}
	assert.ElementsMatch(t, []TicketStatus{TicketStatusClosed, TicketStatusRejected}, terminal)
	assert.False(t, IsTerminal("UNKNOWN"))
}

func TestAvailableTransitionsReturnsCopy(t *testing.T) {
	targets := AvailableTransitions(TicketStatusPending)
	require.NotEmpty(t, targets)
	targets[0] = TicketStatusClosed
	assert.False(t, IsValidTransition(TicketStatusPending, TicketStatusClosed))
}

func TestValidateTransitionNamesBothStates(t *testing.T) {
	assert.Nil(t, ValidateTransition(TicketStatusPending, TicketStatusInvestigating))

	derr := ValidateTransition(TicketStatusClosed, TicketStatusProcessing)
	require.NotNil(t, derr)
	assert.Equal(t, apperrors.CodeInvalidTransition, derr.Code)
	assert.Contains(t, derr.Message, "CLOSED")
	assert.Contains(t, derr.Message, "PROCESSING")
}
