package fund

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore keeps fund records in memory for tests and local development.
type MemoryStore struct {
	mu         sync.RWMutex
	records    map[uuid.UUID]*Record
	checklists map[uuid.UUID]*Checklist
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:    make(map[uuid.UUID]*Record),
		checklists: make(map[uuid.UUID]*Checklist),
	}
}

func (s *MemoryStore) Insert(ctx context.Context, record Record, checklist Checklist) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := record
	chk := checklist
	s.records[record.ID] = &rec
	s.checklists[record.ID] = &chk
	return nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id uuid.UUID) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *record
	return &copied, nil
}

// GetForUpdate has no row lock in memory; the memory transaction runner
// serializes writers instead.
func (s *MemoryStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*Record, error) {
	return s.GetByID(ctx, id)
}

func (s *MemoryStore) Update(ctx context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[record.ID]; !ok {
		return ErrNotFound
	}
	copied := record
	s.records[record.ID] = &copied
	return nil
}

func (s *MemoryStore) GetChecklist(ctx context.Context, fundID uuid.UUID) (*Checklist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	checklist, ok := s.checklists[fundID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *checklist
	return &copied, nil
}

func (s *MemoryStore) SaveChecklist(ctx context.Context, checklist Checklist) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[checklist.FundID]; !ok {
		return ErrNotFound
	}
	copied := checklist
	s.checklists[checklist.FundID] = &copied
	return nil
}

func (s *MemoryStore) ListByUser(ctx context.Context, userID string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Record
	for _, record := range s.records {
		if record.UserID == userID {
			out = append(out, *record)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
