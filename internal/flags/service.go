package flags

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fundgate/internal/audit"
	dErrors "fundgate/pkg/domain-errors"
	platformstrings "fundgate/pkg/platform/strings"
)

// AuditLogger is the slice of the audit trail the registry needs.
type AuditLogger interface {
	Log(ctx context.Context, entry audit.Entry) error
}

// Registry is the cross-entity flag registry. Incident tooling and admin
// flows raise flags here; the money release authorizer and the raffle
// executor consult it before irreversible actions.
type Registry struct {
	store Store
	audit AuditLogger
	clock func() time.Time
}

// Option configures a Registry instance.
type Option func(*Registry)

// WithClock sets the clock function for testability.
func WithClock(clock func() time.Time) Option {
	return func(r *Registry) {
		if clock != nil {
			r.clock = clock
		}
	}
}

func NewRegistry(store Store, auditLog AuditLogger, opts ...Option) *Registry {
	r := &Registry{store: store, audit: auditLog, clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// AddFlag raises a flag on an entity. It is idempotent: when an active flag
// with the same (entityType, entityID, code) triple exists it is returned
// unchanged instead of duplicated.
func (r *Registry) AddFlag(ctx context.Context, entityType EntityType, entityID string, code FlagCode, reason, createdBy, incidentID string) (*EntityFlag, error) {
	if entityID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "entity id is required")
	}
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "flag reason is required")
	}

	existing, err := r.store.FindActive(ctx, entityType, entityID, code)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) && !dErrors.HasCode(err, dErrors.CodeNotFound) {
		return nil, fmt.Errorf("check existing flag: %w", err)
	}

	flag := EntityFlag{
		ID:         uuid.New(),
		EntityType: entityType,
		EntityID:   entityID,
		Code:       code,
		Active:     true,
		Reason:     reason,
		IncidentID: incidentID,
		CreatedBy:  createdBy,
		CreatedAt:  r.clock(),
	}
	if err := r.store.Insert(ctx, flag); err != nil {
		return nil, fmt.Errorf("insert flag: %w", err)
	}

	if err := r.audit.Log(ctx, audit.Entry{
		EventType:  audit.EventFlagAdded,
		EntityType: string(entityType),
		EntityID:   entityID,
		ActorID:    createdBy,
		ActorType:  audit.ActorAdmin,
		Metadata: map[string]any{
			"flagCode":   string(code),
			"reason":     reason,
			"incidentId": incidentID,
		},
	}); err != nil {
		return nil, fmt.Errorf("audit flag addition: %w", err)
	}
	return &flag, nil
}

// ResolveFlag deactivates a flag, stamping the resolver and notes. The
// original FLAG_ADDED audit entry stays untouched; resolution only appends a
// FLAG_RESOLVED entry.
func (r *Registry) ResolveFlag(ctx context.Context, flagID uuid.UUID, resolvedBy, notes string) (*EntityFlag, error) {
	resolved, err := r.store.Resolve(ctx, flagID, resolvedBy, notes, r.clock())
	if err != nil {
		if errors.Is(err, ErrNotFound) || dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "active flag not found")
		}
		return nil, fmt.Errorf("resolve flag: %w", err)
	}

	if err := r.audit.Log(ctx, audit.Entry{
		EventType:  audit.EventFlagResolved,
		EntityType: string(resolved.EntityType),
		EntityID:   resolved.EntityID,
		ActorID:    resolvedBy,
		ActorType:  audit.ActorAdmin,
		Metadata: map[string]any{
			"flagCode": string(resolved.Code),
			"notes":    notes,
		},
	}); err != nil {
		return nil, fmt.Errorf("audit flag resolution: %w", err)
	}
	return resolved, nil
}

// ListFlags returns the full flag history for an entity, active and resolved.
func (r *Registry) ListFlags(ctx context.Context, entityType EntityType, entityID string) ([]EntityFlag, error) {
	return r.store.ListByEntity(ctx, entityType, entityID)
}

// CanReleaseMoney unions active money-blocking flags across every entity
// involved in a fund. Optional ids may be empty when the fund has no cause or
// prize linkage.
func (r *Registry) CanReleaseMoney(ctx context.Context, userID, causeID, prizeID, fundID string) (*Decision, error) {
	scopes := buildScopes(userID, causeID, prizeID, fundID)
	return r.decide(ctx, scopes, MoneyBlockingFlags)
}

// CanExecuteRaffle checks the narrower raffle-blocking set over the
// organizer and cause scopes. The same registry gates both irreversible
// actions on the platform.
func (r *Registry) CanExecuteRaffle(ctx context.Context, userID, causeID string) (*Decision, error) {
	scopes := buildScopes(userID, causeID, "", "")
	return r.decide(ctx, scopes, RaffleBlockingFlags)
}

func (r *Registry) decide(ctx context.Context, scopes []EntityRef, codes []FlagCode) (*Decision, error) {
	if len(scopes) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "at least one entity id is required")
	}
	active, err := r.store.ListActiveMatching(ctx, scopes, codes)
	if err != nil {
		return nil, fmt.Errorf("list blocking flags: %w", err)
	}

	blockers := make([]string, 0, len(active))
	for _, flag := range active {
		blockers = append(blockers, flag.Code.Description())
	}
	blockers = platformstrings.DedupeAndTrim(blockers)
	return &Decision{CanProceed: len(blockers) == 0, Blockers: blockers}, nil
}

func buildScopes(userID, causeID, prizeID, fundID string) []EntityRef {
	var scopes []EntityRef
	if userID != "" {
		scopes = append(scopes, EntityRef{Type: EntityUser, ID: userID})
	}
	if causeID != "" {
		scopes = append(scopes, EntityRef{Type: EntityCause, ID: causeID})
	}
	if prizeID != "" {
		scopes = append(scopes, EntityRef{Type: EntityPrize, ID: prizeID})
	}
	if fundID != "" {
		scopes = append(scopes, EntityRef{Type: EntityFund, ID: fundID})
	}
	return scopes
}
