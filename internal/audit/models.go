package audit

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Category classifies audit entries for retention and routing. The audit
// table is the legal record of every fund's life cycle, so categories map
// directly to retention obligations.
type Category string

const (
	CategoryFinancial   Category = "FINANCIAL"
	CategoryLegal       Category = "LEGAL"
	CategorySecurity    Category = "SECURITY"
	CategoryOperational Category = "OPERATIONAL"
)

// RetentionPolicy returns how long entries of this category must be kept.
func (c Category) RetentionPolicy() time.Duration {
	switch c {
	case CategoryFinancial, CategoryLegal:
		return 10 * 365 * 24 * time.Hour
	case CategorySecurity:
		return 2 * 365 * 24 * time.Hour
	default:
		return 365 * 24 * time.Hour
	}
}

// ActorType identifies who caused an entry.
type ActorType string

const (
	ActorSystem ActorType = "SYSTEM"
	ActorUser   ActorType = "USER"
	ActorAdmin  ActorType = "ADMIN"
)

// SystemActorID is the default actor when none is supplied.
const SystemActorID = "SYSTEM"

// Entry is an immutable record of a state-changing action. Once written no
// field is ever updated and the row is never deleted; the storage layer
// enforces this with a database trigger, not just by omitting methods.
type Entry struct {
	ID         uuid.UUID
	EventType  string
	EntityType string
	EntityID   string
	ActorID    string
	ActorType  ActorType
	Category   Category
	Metadata   map[string]any
	CreatedAt  time.Time
}

// Event types emitted by the engine. Handlers elsewhere in the platform emit
// their own types; InferCategory keeps classification consistent for all of
// them.
const (
	EventMoneyGenerated        = "MONEY_GENERATED"
	EventMoneyReleaseRequested = "MONEY_RELEASE_REQUESTED"
	EventMoneyApproved         = "MONEY_APPROVED"
	EventMoneyReleased         = "MONEY_RELEASED"
	EventMoneyBlocked          = "MONEY_BLOCKED"
	EventMoneyUnblocked        = "MONEY_UNBLOCKED"
	EventMoneyRejected         = "MONEY_REJECTED"
	EventMoneyReleaseDenied    = "MONEY_RELEASE_DENIED"
	EventChecklistVerified     = "MONEY_CHECKLIST_VERIFIED"
	EventFlagAdded             = "FLAG_ADDED"
	EventFlagResolved          = "FLAG_RESOLVED"
)

var legalMarkers = []string{"CONSENT", "KYC", "WINNER", "PARTICIPATION", "PRIZE_EVIDENCE"}
var securityMarkers = []string{"LOGIN", "PASSWORD", "SUSPENDED", "LOGOUT"}

// InferCategory derives the category from the event type when the emitter
// does not supply one. Money movement is FINANCIAL; consent, KYC and
// prize-evidence trails are LEGAL; account security events are SECURITY;
// everything else is OPERATIONAL.
func InferCategory(eventType string) Category {
	upper := strings.ToUpper(eventType)
	if strings.HasPrefix(upper, "MONEY_") || strings.HasPrefix(upper, "DONATION_") {
		return CategoryFinancial
	}
	for _, marker := range legalMarkers {
		if strings.Contains(upper, marker) {
			return CategoryLegal
		}
	}
	for _, marker := range securityMarkers {
		if strings.Contains(upper, marker) {
			return CategorySecurity
		}
	}
	return CategoryOperational
}
