// Package postgres persists fund records and their checklists. All methods
// resolve the executor from the context, so calls made inside a transaction
// join it; GetForUpdate is only meaningful there.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"fundgate/internal/fund"
	txcontext "fundgate/pkg/platform/tx"
)

// Store implements fund.Store on PostgreSQL.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL-backed fund store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const fundColumns = `id, user_id, cause_id, prize_id, source_type, source_id, amount, currency,
	status, previous_status, blocked_reason, transaction_ref,
	approved_by, approved_at, released_by, released_at, created_at, updated_at`

const checklistColumns = `fund_id, user_verified, cause_validated, prize_delivered,
	evidence_confirmed, fraud_check_passed, notes, updated_by, updated_at`

func (s *Store) Insert(ctx context.Context, record fund.Record, checklist fund.Checklist) error {
	exec := txcontext.Resolve(ctx, s.db)

	fundQuery := `
		INSERT INTO funds (` + fundColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	_, err := exec.ExecContext(ctx, fundQuery,
		record.ID,
		record.UserID,
		nullable(record.CauseID),
		nullable(record.PrizeID),
		string(record.SourceType),
		record.SourceID,
		record.Amount,
		record.Currency,
		string(record.Status),
		string(record.PreviousStatus),
		nullable(record.BlockedReason),
		nullable(record.TransactionRef),
		nullable(record.ApprovedBy),
		record.ApprovedAt,
		nullable(record.ReleasedBy),
		record.ReleasedAt,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert fund: %w", err)
	}

	checklistQuery := `
		INSERT INTO release_checklists (` + checklistColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = exec.ExecContext(ctx, checklistQuery,
		checklist.FundID,
		checklist.UserVerified,
		checklist.CauseValidated,
		checklist.PrizeDelivered,
		checklist.EvidenceConfirmed,
		checklist.FraudCheckPassed,
		checklist.Notes,
		checklist.UpdatedBy,
		checklist.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert checklist: %w", err)
	}
	return nil
}

func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*fund.Record, error) {
	query := `SELECT ` + fundColumns + ` FROM funds WHERE id = $1`
	return s.getOne(ctx, query, id)
}

// GetForUpdate locks the fund row for the rest of the ambient transaction so
// concurrent admin actions on the same fund serialize instead of racing a
// stale read.
func (s *Store) GetForUpdate(ctx context.Context, id uuid.UUID) (*fund.Record, error) {
	query := `SELECT ` + fundColumns + ` FROM funds WHERE id = $1 FOR UPDATE`
	return s.getOne(ctx, query, id)
}

func (s *Store) getOne(ctx context.Context, query string, id uuid.UUID) (*fund.Record, error) {
	row := txcontext.Resolve(ctx, s.db).QueryRowContext(ctx, query, id)
	record, err := scanFund(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fund.ErrNotFound
		}
		return nil, fmt.Errorf("get fund: %w", err)
	}
	return record, nil
}

func (s *Store) Update(ctx context.Context, record fund.Record) error {
	query := `
		UPDATE funds
		SET status = $2, previous_status = $3, blocked_reason = $4, transaction_ref = $5,
			approved_by = $6, approved_at = $7, released_by = $8, released_at = $9, updated_at = $10
		WHERE id = $1
	`
	res, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx, query,
		record.ID,
		string(record.Status),
		string(record.PreviousStatus),
		nullable(record.BlockedReason),
		nullable(record.TransactionRef),
		nullable(record.ApprovedBy),
		record.ApprovedAt,
		nullable(record.ReleasedBy),
		record.ReleasedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update fund: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update fund: %w", err)
	}
	if affected == 0 {
		return fund.ErrNotFound
	}
	return nil
}

func (s *Store) GetChecklist(ctx context.Context, fundID uuid.UUID) (*fund.Checklist, error) {
	query := `SELECT ` + checklistColumns + ` FROM release_checklists WHERE fund_id = $1`
	row := txcontext.Resolve(ctx, s.db).QueryRowContext(ctx, query, fundID)

	var checklist fund.Checklist
	err := row.Scan(
		&checklist.FundID,
		&checklist.UserVerified,
		&checklist.CauseValidated,
		&checklist.PrizeDelivered,
		&checklist.EvidenceConfirmed,
		&checklist.FraudCheckPassed,
		&checklist.Notes,
		&checklist.UpdatedBy,
		&checklist.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fund.ErrNotFound
		}
		return nil, fmt.Errorf("get checklist: %w", err)
	}
	return &checklist, nil
}

func (s *Store) SaveChecklist(ctx context.Context, checklist fund.Checklist) error {
	query := `
		UPDATE release_checklists
		SET user_verified = $2, cause_validated = $3, prize_delivered = $4,
			evidence_confirmed = $5, fraud_check_passed = $6, notes = $7,
			updated_by = $8, updated_at = $9
		WHERE fund_id = $1
	`
	res, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx, query,
		checklist.FundID,
		checklist.UserVerified,
		checklist.CauseValidated,
		checklist.PrizeDelivered,
		checklist.EvidenceConfirmed,
		checklist.FraudCheckPassed,
		checklist.Notes,
		checklist.UpdatedBy,
		checklist.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save checklist: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save checklist: %w", err)
	}
	if affected == 0 {
		return fund.ErrNotFound
	}
	return nil
}

func (s *Store) ListByUser(ctx context.Context, userID string) ([]fund.Record, error) {
	query := `SELECT ` + fundColumns + ` FROM funds WHERE user_id = $1 ORDER BY created_at ASC`
	rows, err := txcontext.Resolve(ctx, s.db).QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list funds: %w", err)
	}
	defer rows.Close()

	var out []fund.Record
	for rows.Next() {
		record, err := scanFund(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fund: %w", err)
		}
		out = append(out, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate funds: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFund(row rowScanner) (*fund.Record, error) {
	var (
		record         fund.Record
		causeID        sql.NullString
		prizeID        sql.NullString
		sourceType     string
		status         string
		previousStatus string
		blockedReason  sql.NullString
		transactionRef sql.NullString
		approvedBy     sql.NullString
		approvedAt     sql.NullTime
		releasedBy     sql.NullString
		releasedAt     sql.NullTime
	)
	err := row.Scan(
		&record.ID,
		&record.UserID,
		&causeID,
		&prizeID,
		&sourceType,
		&record.SourceID,
		&record.Amount,
		&record.Currency,
		&status,
		&previousStatus,
		&blockedReason,
		&transactionRef,
		&approvedBy,
		&approvedAt,
		&releasedBy,
		&releasedAt,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	record.CauseID = causeID.String
	record.PrizeID = prizeID.String
	record.SourceType = fund.SourceType(sourceType)
	record.Status = fund.Status(status)
	record.PreviousStatus = fund.Status(previousStatus)
	record.BlockedReason = blockedReason.String
	record.TransactionRef = transactionRef.String
	record.ApprovedBy = approvedBy.String
	record.ReleasedBy = releasedBy.String
	if approvedAt.Valid {
		t := approvedAt.Time
		record.ApprovedAt = &t
	}
	if releasedAt.Valid {
		t := releasedAt.Time
		record.ReleasedAt = &t
	}
	return &record, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
