package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Filter narrows audit queries. Zero values mean "no constraint".
type Filter struct {
	EntityType string
	EntityID   string
	EventType  string
	ActorID    string
	Category   Category
	DateFrom   time.Time
	DateTo     time.Time
	Limit      int
	Offset     int
}

// Store persists audit entries. Implementations expose inserts and read-only
// projections; there is deliberately no update or delete surface, and the
// PostgreSQL implementation is additionally guarded by a trigger.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	Query(ctx context.Context, filter Filter) ([]Entry, error)
	// ListByEntity returns the complete history for an entity in ascending
	// creation order, suitable for the legal export bundle.
	ListByEntity(ctx context.Context, entityType, entityID string) ([]Entry, error)
	ListByActor(ctx context.Context, actorID string, limit int) ([]Entry, error)
	CountByCategory(ctx context.Context) (map[Category]int64, error)
	// ListAfter returns entries whose (created_at, id) tuple sorts strictly
	// after the cursor, ascending. The id tie-break keeps entries sharing a
	// timestamp from being skipped across batch boundaries; the Kafka mirror
	// uses it to stream committed rows.
	ListAfter(ctx context.Context, after time.Time, afterID uuid.UUID, limit int) ([]Entry, error)
}
