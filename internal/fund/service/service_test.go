package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"fundgate/internal/audit"
	"fundgate/internal/flags"
	"fundgate/internal/fund"
	dErrors "fundgate/pkg/domain-errors"
)

type AuthorizerSuite struct {
	suite.Suite

	ctx        context.Context
	store      *fund.MemoryStore
	auditStore *audit.MemoryStore
	registry   *flags.Registry
	authorizer *Authorizer
}

func TestAuthorizerSuite(t *testing.T) {
	suite.Run(t, new(AuthorizerSuite))
}

func (s *AuthorizerSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = fund.NewMemoryStore()
	s.auditStore = audit.NewMemoryStore()

	auditSvc := audit.NewService(s.auditStore, nil)
	s.registry = flags.NewRegistry(flags.NewMemoryStore(), auditSvc)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.authorizer = NewAuthorizer(s.store, s.registry, auditSvc, NewMemoryTxRunner(), logger, nil)
}

func (s *AuthorizerSuite) createFund() *fund.Record {
	record, err := s.authorizer.CreateFund(s.ctx, CreateParams{
		UserID:     "user-1",
		CauseID:    "cause-1",
		SourceType: fund.SourceDonation,
		SourceID:   "donation-1",
		Amount:     100,
		Currency:   "EUR",
	})
	s.Require().NoError(err)
	return record
}

func (s *AuthorizerSuite) fullChecklist() ChecklistUpdate {
	delivered := true
	return ChecklistUpdate{
		UserVerified:      true,
		CauseValidated:    true,
		PrizeDelivered:    &delivered,
		EvidenceConfirmed: true,
		FraudCheckPassed:  true,
	}
}

func (s *AuthorizerSuite) approveFund(id uuid.UUID) *fund.Record {
	_, err := s.authorizer.RequestRelease(s.ctx, id, "user-1")
	s.Require().NoError(err)
	_, err = s.authorizer.VerifyChecklist(s.ctx, id, "admin-1", s.fullChecklist())
	s.Require().NoError(err)
	record, err := s.authorizer.AdminApprove(s.ctx, id, "admin-1")
	s.Require().NoError(err)
	return record
}

func (s *AuthorizerSuite) auditEvents(fundID uuid.UUID, eventType string) []audit.Entry {
	entries, err := s.auditStore.Query(s.ctx, audit.Filter{
		EntityType: "FUND",
		EntityID:   fundID.String(),
		EventType:  eventType,
	})
	s.Require().NoError(err)
	return entries
}

func (s *AuthorizerSuite) TestFullReleaseScenario() {
	record := s.createFund()
	s.Equal(fund.StatusHeld, record.Status)
	s.Equal(int64(100), record.Amount)
	s.Equal("EUR", record.Currency)
	s.Len(s.auditEvents(record.ID, audit.EventMoneyGenerated), 1)

	gaps, err := s.authorizer.RequestRelease(s.ctx, record.ID, "user-1")
	s.Require().NoError(err)
	s.NotEmpty(gaps, "fresh checklist reports its gaps")

	current, err := s.authorizer.GetFund(s.ctx, record.ID)
	s.Require().NoError(err)
	s.Equal(fund.StatusPendingVerification, current.Status)

	// All items pass except the prize was not delivered.
	update := s.fullChecklist()
	notDelivered := false
	update.PrizeDelivered = &notDelivered
	_, err = s.authorizer.VerifyChecklist(s.ctx, record.ID, "admin-1", update)
	s.Require().NoError(err)

	_, err = s.authorizer.AdminApprove(s.ctx, record.ID, "admin-1")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeChecklistIncomplete))
	s.Contains(dErrors.Details(err), "Premio no entregado")

	// Not a prize fund after all: nil means not applicable.
	update.PrizeDelivered = nil
	_, err = s.authorizer.VerifyChecklist(s.ctx, record.ID, "admin-1", update)
	s.Require().NoError(err)

	approved, err := s.authorizer.AdminApprove(s.ctx, record.ID, "admin-1")
	s.Require().NoError(err)
	s.Equal(fund.StatusApproved, approved.Status)
	s.Equal("admin-1", approved.ApprovedBy)
	s.Require().NotNil(approved.ApprovedAt)

	released, err := s.authorizer.AdminRelease(s.ctx, record.ID, "admin-1", "TX-1")
	s.Require().NoError(err)
	s.Equal(fund.StatusReleased, released.Status)
	s.Equal("TX-1", released.TransactionRef)
	s.Require().NotNil(released.ReleasedAt)

	_, err = s.authorizer.AdminRelease(s.ctx, record.ID, "admin-1", "TX-2")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeAlreadyReleased))

	releasedEvents := s.auditEvents(record.ID, audit.EventMoneyReleased)
	s.Require().Len(releasedEvents, 1, "a repeated release never writes a second RELEASED entry")
	s.Equal("TX-1", releasedEvents[0].Metadata["transactionRef"])
}

func (s *AuthorizerSuite) TestTerminalFundsAreImmutable() {
	record := s.createFund()
	s.approveFund(record.ID)
	_, err := s.authorizer.AdminRelease(s.ctx, record.ID, "admin-1", "TX-1")
	s.Require().NoError(err)

	_, err = s.authorizer.RequestRelease(s.ctx, record.ID, "user-1")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))

	_, err = s.authorizer.AdminApprove(s.ctx, record.ID, "admin-1")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))

	_, err = s.authorizer.AdminBlock(s.ctx, record.ID, "admin-1", "fraud investigation ongoing")
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden), "released funds cannot be retroactively blocked")

	_, err = s.authorizer.VerifyChecklist(s.ctx, record.ID, "admin-1", s.fullChecklist())
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *AuthorizerSuite) TestRejectedFundsAreImmutable() {
	record := s.createFund()
	_, err := s.authorizer.RequestRelease(s.ctx, record.ID, "user-1")
	s.Require().NoError(err)
	_, err = s.authorizer.AdminReject(s.ctx, record.ID, "admin-1", "documentation is forged")
	s.Require().NoError(err)

	_, err = s.authorizer.AdminApprove(s.ctx, record.ID, "admin-1")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	_, err = s.authorizer.RequestRelease(s.ctx, record.ID, "user-1")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
}

func (s *AuthorizerSuite) TestBlockUnblockRoundTrip() {
	record := s.createFund()
	s.approveFund(record.ID)

	blocked, err := s.authorizer.AdminBlock(s.ctx, record.ID, "admin-2", "chargeback dispute opened")
	s.Require().NoError(err)
	s.Equal(fund.StatusBlocked, blocked.Status)
	s.Equal("chargeback dispute opened", blocked.BlockedReason)

	unblocked, err := s.authorizer.AdminUnblock(s.ctx, record.ID, "admin-2", "dispute resolved in favor")
	s.Require().NoError(err)
	s.Equal(fund.StatusPendingVerification, unblocked.Status, "re-review is mandatory, never straight back to APPROVED")
	s.Empty(unblocked.BlockedReason)

	s.Len(s.auditEvents(record.ID, audit.EventMoneyBlocked), 1)
	s.Len(s.auditEvents(record.ID, audit.EventMoneyUnblocked), 1)
}

func (s *AuthorizerSuite) TestBlockGuards() {
	record := s.createFund()
	s.approveFund(record.ID)

	_, err := s.authorizer.AdminBlock(s.ctx, record.ID, "admin-1", "too short")
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))

	_, err = s.authorizer.AdminBlock(s.ctx, record.ID, "admin-1", "chargeback dispute opened")
	s.Require().NoError(err)
	_, err = s.authorizer.AdminBlock(s.ctx, record.ID, "admin-1", "chargeback dispute opened")
	s.True(dErrors.HasCode(err, dErrors.CodeAlreadyBlocked))
}

func (s *AuthorizerSuite) TestUnblockRequiresBlockedStatus() {
	record := s.createFund()
	_, err := s.authorizer.AdminUnblock(s.ctx, record.ID, "admin-1", "was never blocked anyway")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
}

func (s *AuthorizerSuite) TestSuspendedOwnerBlocksRelease() {
	record := s.createFund()
	s.approveFund(record.ID)

	_, err := s.registry.AddFlag(s.ctx, flags.EntityUser, "user-1", flags.FlagAccountSuspended, "abuse report", "admin-2", "")
	s.Require().NoError(err)

	_, err = s.authorizer.AdminRelease(s.ctx, record.ID, "admin-1", "TX-1")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeChecklistIncomplete))
	s.Contains(dErrors.Details(err), "Cuenta suspendida")

	current, err := s.authorizer.GetFund(s.ctx, record.ID)
	s.Require().NoError(err)
	s.Equal(fund.StatusApproved, current.Status, "denied release leaves the fund untouched")

	denied := s.auditEvents(record.ID, audit.EventMoneyReleaseDenied)
	s.Require().Len(denied, 1)
	s.Equal(audit.CategoryOperational, denied[0].Category)
	s.Contains(denied[0].Metadata["requirements"], "Cuenta suspendida")
}

func (s *AuthorizerSuite) TestApproveRequiresReview() {
	record := s.createFund()
	_, err := s.authorizer.AdminApprove(s.ctx, record.ID, "admin-1")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	s.Contains(dErrors.Details(err), string(fund.StatusPendingVerification))
}

func (s *AuthorizerSuite) TestRequestReleaseOwnership() {
	record := s.createFund()
	_, err := s.authorizer.RequestRelease(s.ctx, record.ID, "user-2")
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *AuthorizerSuite) TestCreateFundValidation() {
	cases := []struct {
		name   string
		params CreateParams
	}{
		{"missing owner", CreateParams{SourceType: fund.SourceDonation, Amount: 100, Currency: "EUR"}},
		{"zero amount", CreateParams{UserID: "u", SourceType: fund.SourceDonation, Amount: 0, Currency: "EUR"}},
		{"bad currency", CreateParams{UserID: "u", SourceType: fund.SourceDonation, Amount: 100, Currency: "EURO"}},
		{"bad source", CreateParams{UserID: "u", SourceType: "LOTTERY", Amount: 100, Currency: "EUR"}},
	}
	for _, tc := range cases {
		_, err := s.authorizer.CreateFund(s.ctx, tc.params)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest), tc.name)
	}
}

func (s *AuthorizerSuite) TestReleaseRequirementsView() {
	record := s.createFund()

	view, err := s.authorizer.ReleaseRequirements(s.ctx, record.ID)
	s.Require().NoError(err)
	s.Equal(fund.StatusHeld, view.CurrentStatus)
	s.False(view.CanRelease)
	s.NotEmpty(view.Missing)

	s.approveFund(record.ID)
	view, err = s.authorizer.ReleaseRequirements(s.ctx, record.ID)
	s.Require().NoError(err)
	s.Equal(fund.StatusApproved, view.CurrentStatus)
	s.True(view.CanRelease)
	s.Empty(view.Missing)
}

func (s *AuthorizerSuite) TestUnknownFund() {
	_, err := s.authorizer.GetFund(s.ctx, uuid.New())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.authorizer.AdminApprove(s.ctx, uuid.New(), "admin-1")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *AuthorizerSuite) TestEveryTransitionIsAudited() {
	record := s.createFund()
	s.approveFund(record.ID)
	_, err := s.authorizer.AdminRelease(s.ctx, record.ID, "admin-1", "TX-9")
	s.Require().NoError(err)

	history, err := s.auditStore.ListByEntity(s.ctx, "FUND", record.ID.String())
	s.Require().NoError(err)

	var events []string
	for _, entry := range history {
		events = append(events, entry.EventType)
	}
	s.Equal([]string{
		audit.EventMoneyGenerated,
		audit.EventMoneyReleaseRequested,
		audit.EventChecklistVerified,
		audit.EventMoneyApproved,
		audit.EventMoneyReleased,
	}, events, "complete trail, ascending by time")

	for _, entry := range history {
		s.Equal(audit.CategoryFinancial, entry.Category, entry.EventType)
	}
}

type stubKYC struct{ verified bool }

func (s stubKYC) IsUserVerified(ctx context.Context, userID string) (bool, error) {
	return s.verified, nil
}

func (s *AuthorizerSuite) TestCreateFundSeedsChecklistFromKYC() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	auditSvc := audit.NewService(s.auditStore, nil)
	authorizer := NewAuthorizer(s.store, s.registry, auditSvc, NewMemoryTxRunner(), logger, nil,
		WithKYCProvider(stubKYC{verified: true}))

	record, err := authorizer.CreateFund(s.ctx, CreateParams{
		UserID:     "user-7",
		SourceType: fund.SourceDonation,
		SourceID:   "donation-7",
		Amount:     500,
		Currency:   "eur",
	})
	s.Require().NoError(err)
	s.Equal("EUR", record.Currency)

	checklist, err := s.store.GetChecklist(s.ctx, record.ID)
	s.Require().NoError(err)
	s.True(checklist.UserVerified)
	s.Nil(checklist.PrizeDelivered, "non-prize fund has no delivery item")
}
