package flags

import (
	"context"
	"time"

	"github.com/google/uuid"

	dErrors "fundgate/pkg/domain-errors"
)

// ErrNotFound keeps store-level 404s consistent across implementations.
var ErrNotFound = dErrors.New(dErrors.CodeNotFound, "flag not found")

// Store persists entity flags. Rows are never deleted; resolution only flips
// Active.
type Store interface {
	Insert(ctx context.Context, flag EntityFlag) error
	FindByID(ctx context.Context, id uuid.UUID) (*EntityFlag, error)
	// FindActive returns the single active flag for the triple, or
	// ErrNotFound.
	FindActive(ctx context.Context, entityType EntityType, entityID string, code FlagCode) (*EntityFlag, error)
	// Resolve flips Active to false and stamps the resolver and resolution
	// time. It fails with ErrNotFound when the flag does not exist or is
	// already resolved. The caller supplies resolvedAt so both
	// implementations stamp from the same clock.
	Resolve(ctx context.Context, id uuid.UUID, resolvedBy, notes string, resolvedAt time.Time) (*EntityFlag, error)
	ListByEntity(ctx context.Context, entityType EntityType, entityID string) ([]EntityFlag, error)
	// ListActiveMatching returns active flags in any of the scopes whose code
	// is in codes.
	ListActiveMatching(ctx context.Context, scopes []EntityRef, codes []FlagCode) ([]EntityFlag, error)
}
