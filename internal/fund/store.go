package fund

import (
	"context"

	"github.com/google/uuid"

	dErrors "fundgate/pkg/domain-errors"
)

// ErrNotFound keeps store-level 404s consistent across implementations.
var ErrNotFound = dErrors.New(dErrors.CodeNotFound, "fund not found")

// Store persists fund records and their checklists. Implementations resolve
// the executor from the context so all operations join an ambient transaction.
type Store interface {
	// Insert writes a new record and its initial checklist together.
	Insert(ctx context.Context, record Record, checklist Checklist) error
	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)
	// GetForUpdate reads the record holding a row lock for the rest of the
	// ambient transaction. Callers must be inside one.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Record, error)
	Update(ctx context.Context, record Record) error
	GetChecklist(ctx context.Context, fundID uuid.UUID) (*Checklist, error)
	// SaveChecklist overwrites the checklist snapshot for its fund.
	SaveChecklist(ctx context.Context, checklist Checklist) error
	ListByUser(ctx context.Context, userID string) ([]Record, error)
}
