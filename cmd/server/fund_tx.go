package main

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	dErrors "fundgate/pkg/domain-errors"
	txcontext "fundgate/pkg/platform/tx"
)

const defaultTxTimeout = 5 * time.Second

// postgresTxRunner implements the authorizer's TxRunner on database/sql. The
// transaction rides the context, so every store call inside fn joins it and
// the audit write commits or rolls back together with the state change.
type postgresTxRunner struct {
	db      *sql.DB
	timeout time.Duration
}

func newPostgresTxRunner(db *sql.DB) *postgresTxRunner {
	return &postgresTxRunner{db: db}
}

func (t *postgresTxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		return mapTxError(err)
	}

	if err := tx.Commit(); err != nil {
		return mapTxError(err)
	}
	return nil
}

// Postgres error codes for serialization failure, deadlock and lock timeout.
// Anything else passes through untouched.
var concurrencyConflictCodes = map[string]struct{}{
	"40001": {},
	"40P01": {},
	"55P03": {},
}

func mapTxError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if _, ok := concurrencyConflictCodes[pgErr.Code]; ok {
			return dErrors.Wrap(err, dErrors.CodeConcurrentModification, "transaction conflicted with a concurrent update")
		}
	}
	return err
}
