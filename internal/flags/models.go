package flags

import (
	"time"

	"github.com/google/uuid"
)

// EntityType scopes a flag to the kind of record it marks.
type EntityType string

const (
	EntityUser  EntityType = "USER"
	EntityCause EntityType = "CAUSE"
	EntityPrize EntityType = "PRIZE"
	EntityFund  EntityType = "FUND"
)

// FlagCode names a condition attached to an entity.
type FlagCode string

const (
	FlagKYCRequired          FlagCode = "KYC_REQUIRED"
	FlagKYCRejected          FlagCode = "KYC_REJECTED"
	FlagPrizeDeliveryDispute FlagCode = "PRIZE_DELIVERY_DISPUTE"
	FlagCauseNotVerified     FlagCode = "CAUSE_NOT_VERIFIED"
	FlagSuspiciousActivity   FlagCode = "SUSPICIOUS_ACTIVITY"
	FlagManualReviewRequired FlagCode = "MANUAL_REVIEW_REQUIRED"
	FlagFundsHold            FlagCode = "FUNDS_HOLD"
	FlagAccountSuspended     FlagCode = "ACCOUNT_SUSPENDED"
	FlagAccountBlocked       FlagCode = "ACCOUNT_BLOCKED"
)

// MoneyBlockingFlags is the fixed set of codes that, while active on any
// entity involved in a fund, prevent money release.
var MoneyBlockingFlags = []FlagCode{
	FlagKYCRequired,
	FlagKYCRejected,
	FlagPrizeDeliveryDispute,
	FlagCauseNotVerified,
	FlagSuspiciousActivity,
	FlagManualReviewRequired,
	FlagFundsHold,
	FlagAccountSuspended,
	FlagAccountBlocked,
}

// RaffleBlockingFlags is the narrower set gating raffle execution, the other
// irreversible action on the platform.
var RaffleBlockingFlags = []FlagCode{
	FlagAccountSuspended,
	FlagAccountBlocked,
	FlagSuspiciousActivity,
	FlagCauseNotVerified,
}

// descriptions are the reviewer-facing blocker texts (the platform's admin
// UI language is Spanish).
var descriptions = map[FlagCode]string{
	FlagKYCRequired:          "Verificación KYC pendiente",
	FlagKYCRejected:          "Verificación KYC rechazada",
	FlagPrizeDeliveryDispute: "Disputa sobre la entrega del premio",
	FlagCauseNotVerified:     "Causa no verificada",
	FlagSuspiciousActivity:   "Actividad sospechosa detectada",
	FlagManualReviewRequired: "Revisión manual requerida",
	FlagFundsHold:            "Fondos retenidos",
	FlagAccountSuspended:     "Cuenta suspendida",
	FlagAccountBlocked:       "Cuenta bloqueada",
}

// Description returns the human-readable blocker text for the code.
func (c FlagCode) Description() string {
	if d, ok := descriptions[c]; ok {
		return d
	}
	return string(c)
}

// EntityFlag is one condition raised against an entity. History is retained
// forever: resolution flips Active and stamps the resolver, it never deletes.
// At most one active flag exists per (EntityType, EntityID, Code) triple.
type EntityFlag struct {
	ID         uuid.UUID
	EntityType EntityType
	EntityID   string
	Code       FlagCode
	Active     bool
	Reason     string
	IncidentID string

	CreatedBy string
	CreatedAt time.Time

	ResolvedBy      string
	ResolvedAt      *time.Time
	ResolutionNotes string
}

// Decision is the outcome of a release or raffle gating check.
type Decision struct {
	CanProceed bool
	Blockers   []string
}

// EntityRef identifies one scope to check for active blocking flags.
type EntityRef struct {
	Type EntityType
	ID   string
}
