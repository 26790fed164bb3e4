package fund

import (
	dErrors "fundgate/pkg/domain-errors"
)

// transitions is the full status table. BLOCKED -> PENDING_VERIFICATION is the
// single backward edge: an unblocked fund always goes back through re-review.
var transitions = map[Status][]Status{
	StatusGenerated:           {StatusHeld},
	StatusHeld:                {StatusPendingVerification},
	StatusPendingVerification: {StatusApproved, StatusRejected, StatusBlocked},
	StatusApproved:            {StatusReleased, StatusBlocked},
	StatusBlocked:             {StatusPendingVerification},
	StatusReleased:            {},
	StatusRejected:            {},
}

// ValidTargets returns the statuses reachable from the given one.
func ValidTargets(from Status) []Status {
	targets := transitions[from]
	out := make([]Status, len(targets))
	copy(out, targets)
	return out
}

// CanTransition is a pure table lookup.
func CanTransition(from, to Status) bool {
	for _, target := range transitions[from] {
		if target == to {
			return true
		}
	}
	return false
}

// Transition applies a status change to the record, keeping PreviousStatus. It
// fails without mutating the record when the move is not in the table,
// reporting the valid target set for the current status.
func Transition(record *Record, to Status) error {
	if !CanTransition(record.Status, to) {
		targets := transitions[record.Status]
		details := make([]string, len(targets))
		for i, t := range targets {
			details[i] = string(t)
		}
		return dErrors.Newf(dErrors.CodeInvalidTransition,
			"cannot transition fund from %s to %s", record.Status, to).WithDetails(details...)
	}
	record.PreviousStatus = record.Status
	record.Status = to
	return nil
}
