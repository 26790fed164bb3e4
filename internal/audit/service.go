package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fundgate/internal/platform/metrics"
)

// StatsCache caches category aggregates for dashboards. Reads may be stale;
// the aggregates are informational and never gate money.
type StatsCache interface {
	GetStats(ctx context.Context) (map[Category]int64, bool)
	SetStats(ctx context.Context, stats map[Category]int64)
}

// Service is the write and read surface of the audit trail. Every
// state-changing action across the platform logs through it; the underlying
// store is append-only.
type Service struct {
	store   Store
	cache   StatsCache
	metrics *metrics.Metrics
	clock   func() time.Time
}

// Option configures a Service instance.
type Option func(*Service)

// WithClock sets the clock function for testability.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithStatsCache enables dashboard aggregate caching.
func WithStatsCache(cache StatsCache) Option {
	return func(s *Service) { s.cache = cache }
}

func NewService(store Store, m *metrics.Metrics, opts ...Option) *Service {
	s := &Service{store: store, metrics: m, clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Log appends an entry, inferring category and defaulting the actor when the
// emitter left them empty. When the context carries a transaction the write
// joins it, so a failed state change never leaves a stray audit row and a
// failed audit write fails the state change.
func (s *Service) Log(ctx context.Context, entry Entry) error {
	if entry.EventType == "" {
		return fmt.Errorf("audit entry requires an event type")
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Category == "" {
		entry.Category = InferCategory(entry.EventType)
	}
	if entry.ActorID == "" {
		entry.ActorID = SystemActorID
		entry.ActorType = ActorSystem
	}
	if entry.ActorType == "" {
		entry.ActorType = ActorUser
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.clock()
	}

	if err := s.store.Append(ctx, entry); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	s.metrics.RecordAuditEvent(string(entry.Category))
	return nil
}

// Query returns entries matching the filter, newest first.
func (s *Service) Query(ctx context.Context, filter Filter) ([]Entry, error) {
	if filter.Limit <= 0 || filter.Limit > maxQueryLimit {
		filter.Limit = defaultQueryLimit
	}
	return s.store.Query(ctx, filter)
}

// GetEntityHistory returns the complete trail for one entity, oldest first.
func (s *Service) GetEntityHistory(ctx context.Context, entityType, entityID string) ([]Entry, error) {
	return s.store.ListByEntity(ctx, entityType, entityID)
}

// GetActorHistory returns the most recent entries caused by one actor.
func (s *Service) GetActorHistory(ctx context.Context, actorID string, limit int) ([]Entry, error) {
	if limit <= 0 || limit > maxQueryLimit {
		limit = defaultQueryLimit
	}
	return s.store.ListByActor(ctx, actorID, limit)
}

// ExportBundle is the legal record of an entity's life cycle. It is complete:
// every event for the entity, ascending by time.
type ExportBundle struct {
	EntityType  string    `json:"entityType"`
	EntityID    string    `json:"entityId"`
	ExportedAt  time.Time `json:"exportedAt"`
	TotalEvents int       `json:"totalEvents"`
	Events      []Entry   `json:"events"`
}

// ExportForAudit assembles the export bundle for an entity.
func (s *Service) ExportForAudit(ctx context.Context, entityType, entityID string) (*ExportBundle, error) {
	events, err := s.store.ListByEntity(ctx, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("export audit trail: %w", err)
	}
	return &ExportBundle{
		EntityType:  entityType,
		EntityID:    entityID,
		ExportedAt:  s.clock(),
		TotalEvents: len(events),
		Events:      events,
	}, nil
}

// GetStatsByCategory aggregates entry counts for dashboards, served from the
// cache when fresh.
func (s *Service) GetStatsByCategory(ctx context.Context) (map[Category]int64, error) {
	if s.cache != nil {
		if stats, ok := s.cache.GetStats(ctx); ok {
			return stats, nil
		}
	}
	stats, err := s.store.CountByCategory(ctx)
	if err != nil {
		return nil, fmt.Errorf("aggregate audit stats: %w", err)
	}
	if s.cache != nil {
		s.cache.SetStats(ctx, stats)
	}
	return stats, nil
}

const (
	defaultQueryLimit = 100
	maxQueryLimit     = 1000
)
