// Package postgres persists audit entries in the audit_entries table. The
// table is WORM at the schema level: a trigger rejects UPDATE and DELETE
// unconditionally (db/migrations), so immutability does not depend on this
// package simply lacking mutation methods.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"fundgate/internal/audit"
	txcontext "fundgate/pkg/platform/tx"
)

// Store implements audit.Store on PostgreSQL.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL-backed audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const entryColumns = `id, event_type, entity_type, entity_id, actor_id, actor_type, category, metadata, created_at`

// Append inserts an audit entry. When the context carries a transaction the
// insert joins it, so the entry commits atomically with the state change it
// records.
func (s *Store) Append(ctx context.Context, entry audit.Entry) error {
	metadata, err := marshalMetadata(entry.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO audit_entries (` + entryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = txcontext.Resolve(ctx, s.db).ExecContext(ctx, query,
		entry.ID,
		entry.EventType,
		entry.EntityType,
		entry.EntityID,
		entry.ActorID,
		string(entry.ActorType),
		string(entry.Category),
		metadata,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// Query returns entries matching the filter, newest first.
func (s *Store) Query(ctx context.Context, filter audit.Filter) ([]audit.Entry, error) {
	var (
		conditions []string
		args       []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		conditions = append(conditions, column+" = $"+strconv.Itoa(len(args)))
	}

	if filter.EntityType != "" {
		add("entity_type", filter.EntityType)
	}
	if filter.EntityID != "" {
		add("entity_id", filter.EntityID)
	}
	if filter.EventType != "" {
		add("event_type", filter.EventType)
	}
	if filter.ActorID != "" {
		add("actor_id", filter.ActorID)
	}
	if filter.Category != "" {
		add("category", string(filter.Category))
	}
	if !filter.DateFrom.IsZero() {
		args = append(args, filter.DateFrom)
		conditions = append(conditions, "created_at >= $"+strconv.Itoa(len(args)))
	}
	if !filter.DateTo.IsZero() {
		args = append(args, filter.DateTo)
		conditions = append(conditions, "created_at <= $"+strconv.Itoa(len(args)))
	}

	query := `SELECT ` + entryColumns + ` FROM audit_entries`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	args = append(args, filter.Limit)
	query += " LIMIT $" + strconv.Itoa(len(args))
	args = append(args, filter.Offset)
	query += " OFFSET $" + strconv.Itoa(len(args))

	rows, err := txcontext.Resolve(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// ListByEntity returns the complete trail for an entity, oldest first.
func (s *Store) ListByEntity(ctx context.Context, entityType, entityID string) ([]audit.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM audit_entries
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at ASC
	`
	rows, err := txcontext.Resolve(ctx, s.db).QueryContext(ctx, query, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("query entity history: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// ListByActor returns recent entries caused by one actor, newest first.
func (s *Store) ListByActor(ctx context.Context, actorID string, limit int) ([]audit.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM audit_entries
		WHERE actor_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := txcontext.Resolve(ctx, s.db).QueryContext(ctx, query, actorID, limit)
	if err != nil {
		return nil, fmt.Errorf("query actor history: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// CountByCategory aggregates entry counts per category.
func (s *Store) CountByCategory(ctx context.Context) (map[audit.Category]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT category, COUNT(*) FROM audit_entries GROUP BY category`)
	if err != nil {
		return nil, fmt.Errorf("count audit entries: %w", err)
	}
	defer rows.Close()

	counts := make(map[audit.Category]int64)
	for rows.Next() {
		var (
			category string
			count    int64
		)
		if err := rows.Scan(&category, &count); err != nil {
			return nil, fmt.Errorf("scan audit count: %w", err)
		}
		counts[audit.Category(category)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit counts: %w", err)
	}
	return counts, nil
}

// ListAfter returns entries whose (created_at, id) tuple sorts strictly
// after the cursor, oldest first. The id tie-break keeps same-timestamp
// entries from being skipped at batch boundaries.
func (s *Store) ListAfter(ctx context.Context, after time.Time, afterID uuid.UUID, limit int) ([]audit.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM audit_entries
		WHERE (created_at, id) > ($1, $2)
		ORDER BY created_at ASC, id ASC
		LIMIT $3
	`
	rows, err := s.db.QueryContext(ctx, query, after, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit entries after cursor: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]audit.Entry, error) {
	var entries []audit.Entry
	for rows.Next() {
		var (
			entry     audit.Entry
			actorType string
			category  string
			metadata  []byte
		)
		err := rows.Scan(
			&entry.ID,
			&entry.EventType,
			&entry.EntityType,
			&entry.EntityID,
			&entry.ActorID,
			&actorType,
			&category,
			&metadata,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entry.ActorType = audit.ActorType(actorType)
		entry.Category = audit.Category(category)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &entry.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal audit metadata: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}

func marshalMetadata(metadata map[string]any) ([]byte, error) {
	if metadata == nil {
		return []byte("{}"), nil
	}
	payload, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal audit metadata: %w", err)
	}
	return payload, nil
}
