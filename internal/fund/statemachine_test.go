package fund

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "fundgate/pkg/domain-errors"
)

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusGenerated, StatusHeld, true},
		{StatusHeld, StatusPendingVerification, true},
		{StatusPendingVerification, StatusApproved, true},
		{StatusPendingVerification, StatusRejected, true},
		{StatusPendingVerification, StatusBlocked, true},
		{StatusApproved, StatusReleased, true},
		{StatusApproved, StatusBlocked, true},
		{StatusBlocked, StatusPendingVerification, true},

		{StatusHeld, StatusApproved, false},
		{StatusHeld, StatusReleased, false},
		{StatusGenerated, StatusReleased, false},
		{StatusApproved, StatusPendingVerification, false},
		{StatusApproved, StatusHeld, false},
		{StatusBlocked, StatusApproved, false},
		{StatusPendingVerification, StatusReleased, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.allowed, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestTerminalStatesAcceptNoTransition(t *testing.T) {
	all := []Status{
		StatusGenerated, StatusHeld, StatusPendingVerification,
		StatusApproved, StatusReleased, StatusBlocked, StatusRejected,
	}
	for _, terminal := range []Status{StatusReleased, StatusRejected} {
		require.True(t, terminal.IsTerminal())
		assert.Empty(t, ValidTargets(terminal))
		for _, to := range all {
			record := Record{Status: terminal}
			err := Transition(&record, to)
			require.Error(t, err, "%s -> %s must fail", terminal, to)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
			assert.Equal(t, terminal, record.Status, "record untouched on failure")
		}
	}
}

func TestTransitionKeepsPreviousStatus(t *testing.T) {
	record := Record{Status: StatusHeld}
	require.NoError(t, Transition(&record, StatusPendingVerification))
	assert.Equal(t, StatusPendingVerification, record.Status)
	assert.Equal(t, StatusHeld, record.PreviousStatus)
}

func TestInvalidTransitionReportsValidTargets(t *testing.T) {
	record := Record{Status: StatusPendingVerification}
	err := Transition(&record, StatusReleased)
	require.Error(t, err)
	assert.ElementsMatch(t, []string{"APPROVED", "REJECTED", "BLOCKED"}, dErrors.Details(err))
}

func TestBlockedReturnsToReview(t *testing.T) {
	// The single backward edge: unblock goes through re-review, never
	// straight back to APPROVED.
	record := Record{Status: StatusApproved}
	require.NoError(t, Transition(&record, StatusBlocked))
	require.NoError(t, Transition(&record, StatusPendingVerification))
	assert.Equal(t, StatusPendingVerification, record.Status)
	assert.False(t, CanTransition(StatusBlocked, StatusApproved))
}
