// Package postgres persists entity flags. A partial unique index on
// (entity_type, entity_id, flag_code) WHERE active enforces the single
// active flag invariant at the schema level (db/migrations).
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"fundgate/internal/flags"
	txcontext "fundgate/pkg/platform/tx"
)

// Store implements flags.Store on PostgreSQL.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL-backed flag store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const flagColumns = `id, entity_type, entity_id, flag_code, active, reason, incident_id,
	created_by, created_at, resolved_by, resolved_at, resolution_notes`

func (s *Store) Insert(ctx context.Context, flag flags.EntityFlag) error {
	query := `
		INSERT INTO entity_flags (` + flagColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx, query,
		flag.ID,
		string(flag.EntityType),
		flag.EntityID,
		string(flag.Code),
		flag.Active,
		flag.Reason,
		nullable(flag.IncidentID),
		flag.CreatedBy,
		flag.CreatedAt,
		nullable(flag.ResolvedBy),
		flag.ResolvedAt,
		nullable(flag.ResolutionNotes),
	)
	if err != nil {
		return fmt.Errorf("insert entity flag: %w", err)
	}
	return nil
}

func (s *Store) FindByID(ctx context.Context, id uuid.UUID) (*flags.EntityFlag, error) {
	query := `SELECT ` + flagColumns + ` FROM entity_flags WHERE id = $1`
	row := txcontext.Resolve(ctx, s.db).QueryRowContext(ctx, query, id)
	flag, err := scanFlag(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, flags.ErrNotFound
		}
		return nil, fmt.Errorf("find flag: %w", err)
	}
	return flag, nil
}

func (s *Store) FindActive(ctx context.Context, entityType flags.EntityType, entityID string, code flags.FlagCode) (*flags.EntityFlag, error) {
	query := `
		SELECT ` + flagColumns + `
		FROM entity_flags
		WHERE entity_type = $1 AND entity_id = $2 AND flag_code = $3 AND active
	`
	row := txcontext.Resolve(ctx, s.db).QueryRowContext(ctx, query, string(entityType), entityID, string(code))
	flag, err := scanFlag(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, flags.ErrNotFound
		}
		return nil, fmt.Errorf("find active flag: %w", err)
	}
	return flag, nil
}

func (s *Store) Resolve(ctx context.Context, id uuid.UUID, resolvedBy, notes string, resolvedAt time.Time) (*flags.EntityFlag, error) {
	query := `
		UPDATE entity_flags
		SET active = FALSE, resolved_by = $2, resolved_at = $3, resolution_notes = $4
		WHERE id = $1 AND active
		RETURNING ` + flagColumns
	row := txcontext.Resolve(ctx, s.db).QueryRowContext(ctx, query, id, resolvedBy, resolvedAt, notes)
	flag, err := scanFlag(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, flags.ErrNotFound
		}
		return nil, fmt.Errorf("resolve flag: %w", err)
	}
	return flag, nil
}

func (s *Store) ListByEntity(ctx context.Context, entityType flags.EntityType, entityID string) ([]flags.EntityFlag, error) {
	query := `
		SELECT ` + flagColumns + `
		FROM entity_flags
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC
	`
	rows, err := txcontext.Resolve(ctx, s.db).QueryContext(ctx, query, string(entityType), entityID)
	if err != nil {
		return nil, fmt.Errorf("list entity flags: %w", err)
	}
	defer rows.Close()
	return scanFlags(rows)
}

// ListActiveMatching unions active flags across all scopes in one query. The
// blocking set travels as a text[] parameter.
func (s *Store) ListActiveMatching(ctx context.Context, scopes []flags.EntityRef, codes []flags.FlagCode) ([]flags.EntityFlag, error) {
	if len(scopes) == 0 || len(codes) == 0 {
		return nil, nil
	}

	codeStrings := make([]string, len(codes))
	for i, c := range codes {
		codeStrings[i] = string(c)
	}

	args := []any{pq.Array(codeStrings)}
	scopeConds := make([]string, 0, len(scopes))
	for _, scope := range scopes {
		args = append(args, string(scope.Type), scope.ID)
		scopeConds = append(scopeConds, fmt.Sprintf("(entity_type = $%d AND entity_id = $%d)", len(args)-1, len(args)))
	}

	query := `
		SELECT ` + flagColumns + `
		FROM entity_flags
		WHERE active
		  AND flag_code = ANY($1::text[])
		  AND (` + strings.Join(scopeConds, " OR ") + `)
		ORDER BY created_at ASC
	`
	rows, err := txcontext.Resolve(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list blocking flags: %w", err)
	}
	defer rows.Close()
	return scanFlags(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFlag(row rowScanner) (*flags.EntityFlag, error) {
	var (
		flag            flags.EntityFlag
		entityType      string
		code            string
		incidentID      sql.NullString
		resolvedBy      sql.NullString
		resolvedAt      sql.NullTime
		resolutionNotes sql.NullString
	)
	err := row.Scan(
		&flag.ID,
		&entityType,
		&flag.EntityID,
		&code,
		&flag.Active,
		&flag.Reason,
		&incidentID,
		&flag.CreatedBy,
		&flag.CreatedAt,
		&resolvedBy,
		&resolvedAt,
		&resolutionNotes,
	)
	if err != nil {
		return nil, err
	}
	flag.EntityType = flags.EntityType(entityType)
	flag.Code = flags.FlagCode(code)
	flag.IncidentID = incidentID.String
	flag.ResolvedBy = resolvedBy.String
	flag.ResolutionNotes = resolutionNotes.String
	if resolvedAt.Valid {
		t := resolvedAt.Time
		flag.ResolvedAt = &t
	}
	return &flag, nil
}

func scanFlags(rows *sql.Rows) ([]flags.EntityFlag, error) {
	var out []flags.EntityFlag
	for rows.Next() {
		flag, err := scanFlag(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entity flag: %w", err)
		}
		out = append(out, *flag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entity flags: %w", err)
	}
	return out, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
