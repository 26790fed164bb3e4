//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"fundgate/internal/audit"
	"fundgate/internal/audit/store/postgres"
	"fundgate/pkg/testutil/containers"
)

type AuditStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *postgres.Store
}

func TestAuditStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(AuditStoreSuite))
}

func (s *AuditStoreSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = postgres.New(s.pg.DB)
}

func (s *AuditStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateTables(context.Background(), "audit_entries"))
}

func (s *AuditStoreSuite) appendEntry(eventType, entityID string, at time.Time) audit.Entry {
	entry := audit.Entry{
		ID:         uuid.New(),
		EventType:  eventType,
		EntityType: "FUND",
		EntityID:   entityID,
		ActorID:    "admin-1",
		ActorType:  audit.ActorAdmin,
		Category:   audit.InferCategory(eventType),
		Metadata:   map[string]any{"note": "test"},
		CreatedAt:  at,
	}
	s.Require().NoError(s.store.Append(context.Background(), entry))
	return entry
}

func (s *AuditStoreSuite) TestAppendAndEntityHistoryAscending() {
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)

	s.appendEntry(audit.EventMoneyReleased, "fund-1", base.Add(2*time.Second))
	s.appendEntry(audit.EventMoneyGenerated, "fund-1", base)
	s.appendEntry(audit.EventMoneyApproved, "fund-1", base.Add(time.Second))
	s.appendEntry(audit.EventMoneyGenerated, "fund-2", base)

	history, err := s.store.ListByEntity(ctx, "FUND", "fund-1")
	s.Require().NoError(err)
	s.Require().Len(history, 3)
	s.Equal(audit.EventMoneyGenerated, history[0].EventType)
	s.Equal(audit.EventMoneyApproved, history[1].EventType)
	s.Equal(audit.EventMoneyReleased, history[2].EventType)
	s.Equal("test", history[0].Metadata["note"])
}

func (s *AuditStoreSuite) TestQueryFilters() {
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)

	s.appendEntry(audit.EventMoneyGenerated, "fund-1", base)
	s.appendEntry("LOGIN_FAILED", "user-1", base.Add(time.Second))

	byCategory, err := s.store.Query(ctx, audit.Filter{Category: audit.CategorySecurity, Limit: 10})
	s.Require().NoError(err)
	s.Require().Len(byCategory, 1)
	s.Equal("LOGIN_FAILED", byCategory[0].EventType)

	byWindow, err := s.store.Query(ctx, audit.Filter{
		DateFrom: base.Add(500 * time.Millisecond),
		DateTo:   base.Add(2 * time.Second),
		Limit:    10,
	})
	s.Require().NoError(err)
	s.Len(byWindow, 1)
}

func (s *AuditStoreSuite) TestUpdateAndDeleteAreRejected() {
	ctx := context.Background()
	entry := s.appendEntry(audit.EventMoneyGenerated, "fund-1", time.Now().UTC())

	_, err := s.pg.DB.ExecContext(ctx,
		"UPDATE audit_entries SET actor_id = 'tampered' WHERE id = $1", entry.ID)
	s.Require().Error(err, "trigger must reject UPDATE")
	s.Contains(err.Error(), "append-only")

	_, err = s.pg.DB.ExecContext(ctx,
		"DELETE FROM audit_entries WHERE id = $1", entry.ID)
	s.Require().Error(err, "trigger must reject DELETE")
	s.Contains(err.Error(), "append-only")

	history, err := s.store.ListByEntity(ctx, "FUND", "fund-1")
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.Equal("admin-1", history[0].ActorID)
}

func (s *AuditStoreSuite) TestCountByCategory() {
	base := time.Now().UTC()
	s.appendEntry(audit.EventMoneyGenerated, "fund-1", base)
	s.appendEntry(audit.EventMoneyReleased, "fund-1", base.Add(time.Second))
	s.appendEntry("KYC_SUBMITTED", "user-1", base)

	counts, err := s.store.CountByCategory(context.Background())
	s.Require().NoError(err)
	s.Equal(int64(2), counts[audit.CategoryFinancial])
	s.Equal(int64(1), counts[audit.CategoryLegal])
}

func (s *AuditStoreSuite) TestListAfterCursor() {
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)
	first := s.appendEntry(audit.EventMoneyGenerated, "fund-1", base)
	second := s.appendEntry(audit.EventMoneyApproved, "fund-1", base.Add(time.Second))

	entries, err := s.store.ListAfter(ctx, first.CreatedAt, first.ID, 100)
	s.Require().NoError(err)
	s.Require().Len(entries, 1, "strictly after the cursor")
	s.Equal(second.ID, entries[0].ID)
}

func (s *AuditStoreSuite) TestListAfterBreaksTimestampTies() {
	ctx := context.Background()
	at := time.Now().UTC().Truncate(time.Millisecond)

	// One transaction stamps every entry it writes with the same clock read.
	s.appendEntry(audit.EventMoneyApproved, "fund-1", at)
	s.appendEntry(audit.EventMoneyReleased, "fund-1", at)
	s.appendEntry(audit.EventChecklistVerified, "fund-1", at)

	all, err := s.store.ListAfter(ctx, at.Add(-time.Second), uuid.Nil, 100)
	s.Require().NoError(err)
	s.Require().Len(all, 3)

	// Resuming from the first entry's tuple returns the rest, none skipped.
	rest, err := s.store.ListAfter(ctx, all[0].CreatedAt, all[0].ID, 100)
	s.Require().NoError(err)
	s.Require().Len(rest, 2)
	s.Equal(all[1].ID, rest[0].ID)
	s.Equal(all[2].ID, rest[1].ID)
}
