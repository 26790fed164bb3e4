package service

import (
	"context"
	"sync"
)

// TxRunner wraps an operation in one atomic unit. The production runner opens
// a database transaction and puts it in the context so every store call inside
// fn joins it; if fn returns an error nothing is committed.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// MemoryTxRunner serializes mutating operations with a process-wide mutex. It
// backs tests and local development, where the memory stores have no row
// locks.
type MemoryTxRunner struct {
	mu sync.Mutex
}

func NewMemoryTxRunner() *MemoryTxRunner { return &MemoryTxRunner{} }

func (r *MemoryTxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(ctx)
}
