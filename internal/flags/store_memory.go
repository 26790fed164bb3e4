package flags

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps flags in memory for tests and local development.
type MemoryStore struct {
	mu    sync.RWMutex
	byID  map[uuid.UUID]*EntityFlag
	order []uuid.UUID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID: make(map[uuid.UUID]*EntityFlag),
	}
}

func (s *MemoryStore) Insert(ctx context.Context, flag EntityFlag) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := flag
	s.byID[flag.ID] = &copied
	s.order = append(s.order, flag.ID)
	return nil
}

func (s *MemoryStore) FindByID(ctx context.Context, id uuid.UUID) (*EntityFlag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	flag, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *flag
	return &copied, nil
}

func (s *MemoryStore) FindActive(ctx context.Context, entityType EntityType, entityID string, code FlagCode) (*EntityFlag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.order {
		flag := s.byID[id]
		if flag.Active && flag.EntityType == entityType && flag.EntityID == entityID && flag.Code == code {
			copied := *flag
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) Resolve(ctx context.Context, id uuid.UUID, resolvedBy, notes string, resolvedAt time.Time) (*EntityFlag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	flag, ok := s.byID[id]
	if !ok || !flag.Active {
		return nil, ErrNotFound
	}
	flag.Active = false
	flag.ResolvedBy = resolvedBy
	flag.ResolvedAt = &resolvedAt
	flag.ResolutionNotes = notes
	copied := *flag
	return &copied, nil
}

func (s *MemoryStore) ListByEntity(ctx context.Context, entityType EntityType, entityID string) ([]EntityFlag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []EntityFlag
	for _, id := range s.order {
		flag := s.byID[id]
		if flag.EntityType == entityType && flag.EntityID == entityID {
			out = append(out, *flag)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) ListActiveMatching(ctx context.Context, scopes []EntityRef, codes []FlagCode) ([]EntityFlag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	codeSet := make(map[FlagCode]struct{}, len(codes))
	for _, c := range codes {
		codeSet[c] = struct{}{}
	}

	var out []EntityFlag
	for _, id := range s.order {
		flag := s.byID[id]
		if !flag.Active {
			continue
		}
		if _, ok := codeSet[flag.Code]; !ok {
			continue
		}
		for _, scope := range scopes {
			if flag.EntityType == scope.Type && flag.EntityID == scope.ID {
				out = append(out, *flag)
				break
			}
		}
	}
	return out, nil
}
