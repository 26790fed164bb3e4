// Package service hosts the money release authorizer, the single mutation
// path for fund records. It orchestrates the state machine, the checklist
// gate, the flag registry and the audit trail; every mutating operation runs
// its precondition checks, the status change and the audit write inside one
// transaction.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"fundgate/internal/audit"
	"fundgate/internal/flags"
	"fundgate/internal/fund"
	"fundgate/internal/platform/metrics"
	dErrors "fundgate/pkg/domain-errors"
)

// FlagGate is the slice of the flag registry the authorizer consults. At
// release time it is called inside the fund's transaction so a flag added
// after approval still blocks.
type FlagGate interface {
	CanReleaseMoney(ctx context.Context, userID, causeID, prizeID, fundID string) (*flags.Decision, error)
}

// AuditLogger is the slice of the audit trail the authorizer needs.
type AuditLogger interface {
	Log(ctx context.Context, entry audit.Entry) error
}

// Authorizer answers "can this fund move forward now?" and performs the
// transition when it can.
type Authorizer struct {
	store    fund.Store
	flags    FlagGate
	audit    AuditLogger
	tx       TxRunner
	kyc      KYCProvider
	delivery DeliveryEvidenceProvider
	metrics  *metrics.Metrics
	logger   *slog.Logger
	tracer   trace.Tracer
	clock    func() time.Time
}

// Option configures an Authorizer instance.
type Option func(*Authorizer)

// WithClock sets the clock function for testability.
func WithClock(clock func() time.Time) Option {
	return func(a *Authorizer) {
		if clock != nil {
			a.clock = clock
		}
	}
}

// WithKYCProvider seeds userVerified from the identity collaborator on fund
// creation.
func WithKYCProvider(p KYCProvider) Option {
	return func(a *Authorizer) { a.kyc = p }
}

// WithDeliveryEvidence seeds the prize items from the delivery collaborator on
// fund creation.
func WithDeliveryEvidence(p DeliveryEvidenceProvider) Option {
	return func(a *Authorizer) { a.delivery = p }
}

func NewAuthorizer(
	store fund.Store,
	flagGate FlagGate,
	auditLog AuditLogger,
	tx TxRunner,
	logger *slog.Logger,
	m *metrics.Metrics,
	opts ...Option) *Authorizer {
	a := &Authorizer{
		store:   store,
		flags:   flagGate,
		audit:   auditLog,
		tx:      tx,
		metrics: m,
		logger:  logger,
		tracer:  otel.Tracer("fundgate/fund"),
		clock:   time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// CreateParams describes a money-generating event.
type CreateParams struct {
	UserID     string
	CauseID    string
	PrizeID    string
	SourceType fund.SourceType
	SourceID   string
	Amount     int64
	Currency   string
}

// CreateFund registers newly generated money. The record starts HELD (the
// conceptual GENERATED -> HELD move happens inside creation) with a fresh
// checklist, seeded from the identity and delivery collaborators when wired.
func (a *Authorizer) CreateFund(ctx context.Context, params CreateParams) (*fund.Record, error) {
	ctx, done := a.begin(ctx, "create_fund")
	defer done()

	if params.UserID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "fund owner is required")
	}
	if params.Amount <= 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "fund amount must be positive")
	}
	if len(params.Currency) != 3 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "currency must be a three-letter code")
	}
	switch params.SourceType {
	case fund.SourceDonation, fund.SourcePrize, fund.SourceWithdrawal:
	default:
		return nil, dErrors.New(dErrors.CodeBadRequest, "unknown fund source type")
	}

	now := a.clock()
	record := fund.Record{
		ID:             uuid.New(),
		UserID:         params.UserID,
		CauseID:        params.CauseID,
		PrizeID:        params.PrizeID,
		SourceType:     params.SourceType,
		SourceID:       params.SourceID,
		Amount:         params.Amount,
		Currency:       strings.ToUpper(params.Currency),
		Status:         fund.StatusHeld,
		PreviousStatus: fund.StatusGenerated,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	checklist := a.seedChecklist(ctx, record)

	err := a.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := a.store.Insert(ctx, record, checklist); err != nil {
			return fmt.Errorf("insert fund: %w", err)
		}
		return a.audit.Log(ctx, audit.Entry{
			EventType:  audit.EventMoneyGenerated,
			EntityType: "FUND",
			EntityID:   record.ID.String(),
			ActorType:  audit.ActorSystem,
			Metadata: map[string]any{
				"amount":     record.Amount,
				"currency":   record.Currency,
				"sourceType": string(record.SourceType),
				"sourceId":   record.SourceID,
				"userId":     record.UserID,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	a.metrics.RecordTransition(string(fund.StatusGenerated), string(fund.StatusHeld))
	return &record, nil
}

func (a *Authorizer) seedChecklist(ctx context.Context, record fund.Record) fund.Checklist {
	checklist := fund.Checklist{
		FundID:    record.ID,
		UpdatedBy: audit.SystemActorID,
		UpdatedAt: record.CreatedAt,
	}
	if a.kyc != nil {
		verified, err := a.kyc.IsUserVerified(ctx, record.UserID)
		if err != nil {
			a.logger.WarnContext(ctx, "kyc lookup failed, checklist item left unset",
				"user_id", record.UserID, "error", err.Error())
		} else {
			checklist.UserVerified = verified
		}
	}
	if record.PrizeID != "" && a.delivery != nil {
		delivered, err := a.delivery.PrizeDelivered(ctx, record.PrizeID)
		if err != nil {
			a.logger.WarnContext(ctx, "delivery lookup failed, checklist item left unset",
				"prize_id", record.PrizeID, "error", err.Error())
		} else {
			checklist.PrizeDelivered = delivered
		}
		confirmed, err := a.delivery.EvidenceConfirmed(ctx, record.PrizeID)
		if err == nil {
			checklist.EvidenceConfirmed = confirmed
		}
	}
	return checklist
}

// GetFund returns a fund record by id.
func (a *Authorizer) GetFund(ctx context.Context, fundID uuid.UUID) (*fund.Record, error) {
	return a.store.GetByID(ctx, fundID)
}

// ListUserFunds returns every fund owned by the user, oldest first.
func (a *Authorizer) ListUserFunds(ctx context.Context, userID string) ([]fund.Record, error) {
	return a.store.ListByUser(ctx, userID)
}

// RequestRelease moves a HELD fund into review at its owner's request and
// returns the current checklist gaps so the caller knows what is still
// missing.
func (a *Authorizer) RequestRelease(ctx context.Context, fundID uuid.UUID, userID string) ([]string, error) {
	ctx, done := a.begin(ctx, "request_release")
	defer done()

	var gaps []string
	err := a.tx.RunInTx(ctx, func(ctx context.Context) error {
		record, err := a.store.GetForUpdate(ctx, fundID)
		if err != nil {
			return err
		}
		if record.UserID != userID {
			return dErrors.New(dErrors.CodeForbidden, "fund belongs to another user")
		}
		if err := fund.Transition(record, fund.StatusPendingVerification); err != nil {
			return err
		}
		record.UpdatedAt = a.clock()
		if err := a.store.Update(ctx, *record); err != nil {
			return fmt.Errorf("update fund: %w", err)
		}

		checklist, err := a.store.GetChecklist(ctx, fundID)
		if err != nil {
			return fmt.Errorf("load checklist: %w", err)
		}
		gaps = checklist.Missing()

		return a.audit.Log(ctx, audit.Entry{
			EventType:  audit.EventMoneyReleaseRequested,
			EntityType: "FUND",
			EntityID:   fundID.String(),
			ActorID:    userID,
			ActorType:  audit.ActorUser,
			Metadata:   map[string]any{"pendingRequirements": gaps},
		})
	})
	if err != nil {
		return nil, err
	}
	a.metrics.RecordTransition(string(fund.StatusHeld), string(fund.StatusPendingVerification))
	return gaps, nil
}

// Requirements is the read-only release view for one fund.
type Requirements struct {
	CurrentStatus fund.Status
	Checklist     fund.Checklist
	Missing       []string
	CanRelease    bool
}

// ReleaseRequirements reports where a fund stands on its way to release. It
// runs outside any transaction; the verdict is advisory and is re-derived
// under lock by the mutating operations.
func (a *Authorizer) ReleaseRequirements(ctx context.Context, fundID uuid.UUID) (*Requirements, error) {
	record, err := a.store.GetByID(ctx, fundID)
	if err != nil {
		return nil, err
	}
	checklist, err := a.store.GetChecklist(ctx, fundID)
	if err != nil {
		return nil, fmt.Errorf("load checklist: %w", err)
	}
	missing := checklist.Missing()
	return &Requirements{
		CurrentStatus: record.Status,
		Checklist:     *checklist,
		Missing:       missing,
		CanRelease:    record.Status == fund.StatusApproved && len(missing) == 0,
	}, nil
}

// ChecklistUpdate is a reviewer's new checklist snapshot.
type ChecklistUpdate struct {
	UserVerified      bool
	CauseValidated    bool
	PrizeDelivered    *bool
	EvidenceConfirmed bool
	FraudCheckPassed  bool
	Notes             string
}

// VerifyChecklist writes a reviewer's checklist snapshot. The verdict is
// always re-derived from the items; terminal funds are immutable.
func (a *Authorizer) VerifyChecklist(ctx context.Context, fundID uuid.UUID, adminID string, update ChecklistUpdate) (*fund.Checklist, error) {
	ctx, done := a.begin(ctx, "verify_checklist")
	defer done()

	var checklist fund.Checklist
	err := a.tx.RunInTx(ctx, func(ctx context.Context) error {
		record, err := a.store.GetForUpdate(ctx, fundID)
		if err != nil {
			return err
		}
		if record.Status.IsTerminal() {
			return dErrors.Newf(dErrors.CodeForbidden, "fund is %s and can no longer change", record.Status)
		}

		checklist = fund.Checklist{
			FundID:            fundID,
			UserVerified:      update.UserVerified,
			CauseValidated:    update.CauseValidated,
			PrizeDelivered:    update.PrizeDelivered,
			EvidenceConfirmed: update.EvidenceConfirmed,
			FraudCheckPassed:  update.FraudCheckPassed,
			Notes:             update.Notes,
			UpdatedBy:         adminID,
			UpdatedAt:         a.clock(),
		}
		if err := a.store.SaveChecklist(ctx, checklist); err != nil {
			return fmt.Errorf("save checklist: %w", err)
		}

		return a.audit.Log(ctx, audit.Entry{
			EventType:  audit.EventChecklistVerified,
			EntityType: "FUND",
			EntityID:   fundID.String(),
			ActorID:    adminID,
			ActorType:  audit.ActorAdmin,
			Metadata: map[string]any{
				"allPassed": checklist.AllPassed(),
				"missing":   checklist.Missing(),
				"notes":     update.Notes,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return &checklist, nil
}

// AdminApprove moves a reviewed fund to APPROVED. A fund approved without its
// evidence in place is the platform's cardinal bug class, so the checklist
// gate is checked under the same lock as the transition.
func (a *Authorizer) AdminApprove(ctx context.Context, fundID uuid.UUID, adminID string) (*fund.Record, error) {
	ctx, done := a.begin(ctx, "admin_approve")
	defer done()

	var approved fund.Record
	err := a.tx.RunInTx(ctx, func(ctx context.Context) error {
		record, err := a.store.GetForUpdate(ctx, fundID)
		if err != nil {
			return err
		}
		if record.Status != fund.StatusPendingVerification {
			return dErrors.Newf(dErrors.CodeInvalidTransition,
				"cannot approve fund in status %s", record.Status).
				WithDetails(string(fund.StatusPendingVerification))
		}
		checklist, err := a.store.GetChecklist(ctx, fundID)
		if err != nil {
			return fmt.Errorf("load checklist: %w", err)
		}
		if missing := checklist.Missing(); len(missing) > 0 {
			return dErrors.New(dErrors.CodeChecklistIncomplete, "release requirements not met").
				WithDetails(missing...)
		}
		if err := fund.Transition(record, fund.StatusApproved); err != nil {
			return err
		}

		now := a.clock()
		record.ApprovedBy = adminID
		record.ApprovedAt = &now
		record.UpdatedAt = now
		if err := a.store.Update(ctx, *record); err != nil {
			return fmt.Errorf("update fund: %w", err)
		}
		approved = *record

		return a.audit.Log(ctx, audit.Entry{
			EventType:  audit.EventMoneyApproved,
			EntityType: "FUND",
			EntityID:   fundID.String(),
			ActorID:    adminID,
			ActorType:  audit.ActorAdmin,
			Metadata: map[string]any{
				"amount":   record.Amount,
				"currency": record.Currency,
			},
		})
	})
	if err != nil {
		a.recordDenied(ctx, fundID, adminID, "admin_approve", err)
		return nil, err
	}
	a.metrics.RecordTransition(string(approved.PreviousStatus), string(approved.Status))
	return &approved, nil
}

// AdminRelease performs the irreversible move to RELEASED. The checklist and
// the flag registry are both re-read inside the fund's transaction: a flag
// raised after approval still blocks, and a release that raced another one
// fails AlreadyReleased instead of double-releasing.
func (a *Authorizer) AdminRelease(ctx context.Context, fundID uuid.UUID, adminID, transactionRef string) (*fund.Record, error) {
	ctx, done := a.begin(ctx, "admin_release")
	defer done()

	var released fund.Record
	err := a.tx.RunInTx(ctx, func(ctx context.Context) error {
		record, err := a.store.GetForUpdate(ctx, fundID)
		if err != nil {
			return err
		}
		if record.Status == fund.StatusReleased {
			return dErrors.New(dErrors.CodeAlreadyReleased, "fund is already released")
		}
		if record.Status != fund.StatusApproved {
			return dErrors.Newf(dErrors.CodeInvalidTransition,
				"cannot release fund in status %s", record.Status).
				WithDetails(string(fund.StatusApproved))
		}

		checklist, err := a.store.GetChecklist(ctx, fundID)
		if err != nil {
			return fmt.Errorf("load checklist: %w", err)
		}
		gaps := checklist.Missing()

		decision, err := a.flags.CanReleaseMoney(ctx, record.UserID, record.CauseID, record.PrizeID, record.ID.String())
		if err != nil {
			return fmt.Errorf("check blocking flags: %w", err)
		}
		gaps = append(gaps, decision.Blockers...)
		if len(gaps) > 0 {
			return dErrors.New(dErrors.CodeChecklistIncomplete, "release requirements not met").
				WithDetails(gaps...)
		}

		if err := fund.Transition(record, fund.StatusReleased); err != nil {
			return err
		}
		now := a.clock()
		record.ReleasedBy = adminID
		record.ReleasedAt = &now
		record.TransactionRef = transactionRef
		record.UpdatedAt = now
		if err := a.store.Update(ctx, *record); err != nil {
			return fmt.Errorf("update fund: %w", err)
		}
		released = *record

		return a.audit.Log(ctx, audit.Entry{
			EventType:  audit.EventMoneyReleased,
			EntityType: "FUND",
			EntityID:   fundID.String(),
			ActorID:    adminID,
			ActorType:  audit.ActorAdmin,
			Metadata: map[string]any{
				"amount":         record.Amount,
				"currency":       record.Currency,
				"transactionRef": transactionRef,
			},
		})
	})
	if err != nil {
		a.recordDenied(ctx, fundID, adminID, "admin_release", err)
		return nil, err
	}
	a.metrics.RecordTransition(string(released.PreviousStatus), string(released.Status))
	return &released, nil
}

const minReasonLength = 10

// AdminBlock freezes a fund pending investigation. Released funds are
// irreversible and can never be retroactively blocked.
func (a *Authorizer) AdminBlock(ctx context.Context, fundID uuid.UUID, adminID, reason string) (*fund.Record, error) {
	ctx, done := a.begin(ctx, "admin_block")
	defer done()

	if len(strings.TrimSpace(reason)) < minReasonLength {
		return nil, dErrors.Newf(dErrors.CodeBadRequest, "block reason must be at least %d characters", minReasonLength)
	}

	var blocked fund.Record
	err := a.tx.RunInTx(ctx, func(ctx context.Context) error {
		record, err := a.store.GetForUpdate(ctx, fundID)
		if err != nil {
			return err
		}
		if record.Status == fund.StatusReleased {
			return dErrors.New(dErrors.CodeForbidden, "released funds cannot be blocked")
		}
		if record.Status == fund.StatusBlocked {
			return dErrors.New(dErrors.CodeAlreadyBlocked, "fund is already blocked")
		}
		if err := fund.Transition(record, fund.StatusBlocked); err != nil {
			return err
		}

		record.BlockedReason = reason
		record.UpdatedAt = a.clock()
		if err := a.store.Update(ctx, *record); err != nil {
			return fmt.Errorf("update fund: %w", err)
		}
		blocked = *record

		return a.audit.Log(ctx, audit.Entry{
			EventType:  audit.EventMoneyBlocked,
			EntityType: "FUND",
			EntityID:   fundID.String(),
			ActorID:    adminID,
			ActorType:  audit.ActorAdmin,
			Metadata:   map[string]any{"reason": reason},
		})
	})
	if err != nil {
		return nil, err
	}
	a.metrics.RecordTransition(string(blocked.PreviousStatus), string(blocked.Status))
	return &blocked, nil
}

// AdminUnblock sends a blocked fund back to review. It never restores the
// pre-block status: re-review is mandatory, not a bypass.
func (a *Authorizer) AdminUnblock(ctx context.Context, fundID uuid.UUID, adminID, reason string) (*fund.Record, error) {
	ctx, done := a.begin(ctx, "admin_unblock")
	defer done()

	if len(strings.TrimSpace(reason)) < minReasonLength {
		return nil, dErrors.Newf(dErrors.CodeBadRequest, "unblock reason must be at least %d characters", minReasonLength)
	}

	var unblocked fund.Record
	err := a.tx.RunInTx(ctx, func(ctx context.Context) error {
		record, err := a.store.GetForUpdate(ctx, fundID)
		if err != nil {
			return err
		}
		if record.Status != fund.StatusBlocked {
			return dErrors.Newf(dErrors.CodeInvalidTransition, "cannot unblock fund in status %s", record.Status).
				WithDetails(string(fund.StatusBlocked))
		}
		if err := fund.Transition(record, fund.StatusPendingVerification); err != nil {
			return err
		}

		record.BlockedReason = ""
		record.UpdatedAt = a.clock()
		if err := a.store.Update(ctx, *record); err != nil {
			return fmt.Errorf("update fund: %w", err)
		}
		unblocked = *record

		return a.audit.Log(ctx, audit.Entry{
			EventType:  audit.EventMoneyUnblocked,
			EntityType: "FUND",
			EntityID:   fundID.String(),
			ActorID:    adminID,
			ActorType:  audit.ActorAdmin,
			Metadata:   map[string]any{"reason": reason},
		})
	})
	if err != nil {
		return nil, err
	}
	a.metrics.RecordTransition(string(fund.StatusBlocked), string(fund.StatusPendingVerification))
	return &unblocked, nil
}

// AdminReject permanently refuses a fund under review.
func (a *Authorizer) AdminReject(ctx context.Context, fundID uuid.UUID, adminID, reason string) (*fund.Record, error) {
	ctx, done := a.begin(ctx, "admin_reject")
	defer done()

	if len(strings.TrimSpace(reason)) < minReasonLength {
		return nil, dErrors.Newf(dErrors.CodeBadRequest, "rejection reason must be at least %d characters", minReasonLength)
	}

	var rejected fund.Record
	err := a.tx.RunInTx(ctx, func(ctx context.Context) error {
		record, err := a.store.GetForUpdate(ctx, fundID)
		if err != nil {
			return err
		}
		if err := fund.Transition(record, fund.StatusRejected); err != nil {
			return err
		}

		record.UpdatedAt = a.clock()
		if err := a.store.Update(ctx, *record); err != nil {
			return fmt.Errorf("update fund: %w", err)
		}
		rejected = *record

		return a.audit.Log(ctx, audit.Entry{
			EventType:  audit.EventMoneyRejected,
			EntityType: "FUND",
			EntityID:   fundID.String(),
			ActorID:    adminID,
			ActorType:  audit.ActorAdmin,
			Metadata:   map[string]any{"reason": reason},
		})
	})
	if err != nil {
		return nil, err
	}
	a.metrics.RecordTransition(string(rejected.PreviousStatus), string(rejected.Status))
	return &rejected, nil
}

// recordDenied writes the denied-attempt entry after the failed transaction
// rolled back, so the legal trail keeps rejected attempts too. Gating denials
// are operational noise, not financial events, and a failure to record one
// never masks the original error.
func (a *Authorizer) recordDenied(ctx context.Context, fundID uuid.UUID, actorID, operation string, cause error) {
	if !isGatingFailure(cause) {
		return
	}
	a.metrics.RecordDenial(operation)

	var de *dErrors.DomainError
	message := cause.Error()
	if errors.As(cause, &de) {
		message = de.Message
	}
	err := a.audit.Log(ctx, audit.Entry{
		EventType:  audit.EventMoneyReleaseDenied,
		EntityType: "FUND",
		EntityID:   fundID.String(),
		ActorID:    actorID,
		ActorType:  audit.ActorAdmin,
		Category:   audit.CategoryOperational,
		Metadata: map[string]any{
			"operation":    operation,
			"reason":       message,
			"requirements": dErrors.Details(cause),
		},
	})
	if err != nil {
		a.logger.WarnContext(ctx, "failed to record denied attempt",
			"fund_id", fundID.String(), "operation", operation, "error", err.Error())
	}
}

func isGatingFailure(err error) bool {
	return dErrors.HasCode(err, dErrors.CodeChecklistIncomplete) ||
		dErrors.HasCode(err, dErrors.CodeInvalidTransition) ||
		dErrors.HasCode(err, dErrors.CodeAlreadyReleased)
}

func (a *Authorizer) begin(ctx context.Context, operation string) (context.Context, func()) {
	start := time.Now()
	ctx, span := a.tracer.Start(ctx, "authorizer."+operation)
	return ctx, func() {
		span.End()
		a.metrics.ObserveAuthorizeLatency(operation, time.Since(start).Seconds())
	}
}
