// Package fund holds the canonical fund record, its status state machine and
// the release checklist gate.
package fund

import (
	"time"

	"github.com/google/uuid"
)

// Status is the canonical life cycle state of a fund record.
type Status string

const (
	StatusGenerated           Status = "GENERATED"
	StatusHeld                Status = "HELD"
	StatusPendingVerification Status = "PENDING_VERIFICATION"
	StatusApproved            Status = "APPROVED"
	StatusReleased            Status = "RELEASED"
	StatusBlocked             Status = "BLOCKED"
	StatusRejected            Status = "REJECTED"
)

// IsTerminal reports whether no further transition may leave the status.
func (s Status) IsTerminal() bool {
	return s == StatusReleased || s == StatusRejected
}

// SourceType names the event that generated the money.
type SourceType string

const (
	SourceDonation   SourceType = "DONATION"
	SourcePrize      SourceType = "PRIZE"
	SourceWithdrawal SourceType = "WITHDRAWAL"
)

// Record is a unit of money whose path to release is tracked by the engine.
// Amount is in minor currency units. Once the status is terminal the record is
// immutable except for audit linkage; records are never deleted.
type Record struct {
	ID         uuid.UUID
	UserID     string
	CauseID    string
	PrizeID    string
	SourceType SourceType
	SourceID   string
	Amount     int64
	Currency   string

	Status         Status
	PreviousStatus Status
	BlockedReason  string
	TransactionRef string

	ApprovedBy string
	ApprovedAt *time.Time
	ReleasedBy string
	ReleasedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Checklist is the five-item release gate, one per fund record. PrizeDelivered
// is tri-state: nil means not applicable (not every fund is prize-related) and
// counts as satisfied; an explicit false blocks.
type Checklist struct {
	FundID            uuid.UUID
	UserVerified      bool
	CauseValidated    bool
	PrizeDelivered    *bool
	EvidenceConfirmed bool
	FraudCheckPassed  bool
	Notes             string
	UpdatedBy         string
	UpdatedAt         time.Time
}
