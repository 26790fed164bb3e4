// Package handler exposes the money release authorizer over HTTP. Fund owners
// get the request-release and read endpoints; every transition beyond that is
// admin-gated.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"fundgate/internal/fund"
	"fundgate/internal/fund/service"
	"fundgate/internal/platform/metrics"
	"fundgate/internal/platform/middleware"
	dErrors "fundgate/pkg/domain-errors"
	"fundgate/pkg/platform/httputil"
)

type Handler struct {
	logger       *slog.Logger
	authorizer   *service.Authorizer
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

func New(
	authorizer *service.Authorizer,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		authorizer:   authorizer,
		metrics:      metrics,
		jwtValidator: jwtValidator,
	}
}

// Register registers the fund routes with the chi router. Routes are added
// in a group so the middleware chain stays scoped to this feature; the fund,
// flags and audit handlers all share one parent router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(fr chi.Router) {
		fr.Use(middleware.Recovery(h.logger))
		fr.Use(middleware.RequestID)
		fr.Use(middleware.Logger(h.logger))
		fr.Use(middleware.Timeout(30 * time.Second))
		fr.Use(middleware.ContentTypeJSON)
		fr.Use(middleware.LatencyMiddleware(h.metrics))
		fr.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

		fr.Get("/funds", h.handleListMine)
		fr.Get("/funds/{fundID}", h.handleGet)
		fr.Get("/funds/{fundID}/release-requirements", h.handleRequirements)
		fr.Post("/funds/{fundID}/request-release", h.handleRequestRelease)

		fr.Group(func(admin chi.Router) {
			admin.Use(middleware.RequireAdmin(h.logger))
			admin.Post("/admin/funds", h.handleCreate)
			admin.Post("/admin/funds/{fundID}/checklist/verify", h.handleVerifyChecklist)
			admin.Post("/admin/funds/{fundID}/approve", h.handleApprove)
			admin.Post("/admin/funds/{fundID}/release", h.handleRelease)
			admin.Post("/admin/funds/{fundID}/block", h.handleBlock)
			admin.Post("/admin/funds/{fundID}/unblock", h.handleUnblock)
			admin.Post("/admin/funds/{fundID}/reject", h.handleReject)
		})
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createFundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	record, err := h.authorizer.CreateFund(ctx, service.CreateParams{
		UserID:     req.UserID,
		CauseID:    req.CauseID,
		PrizeID:    req.PrizeID,
		SourceType: fund.SourceType(req.SourceType),
		SourceID:   req.SourceID,
		Amount:     req.Amount,
		Currency:   req.Currency,
	})
	if err != nil {
		h.writeOpError(w, r, "create fund", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toFundResponse(*record))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	fundID, ok := h.fundID(w, r)
	if !ok {
		return
	}

	record, err := h.authorizer.GetFund(ctx, fundID)
	if err != nil {
		h.writeOpError(w, r, "get fund", err)
		return
	}
	if record.UserID != middleware.GetUserID(ctx) && middleware.GetRole(ctx) != middleware.RoleAdmin {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "fund belongs to another user"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toFundResponse(*record))
}

func (h *Handler) handleListMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	records, err := h.authorizer.ListUserFunds(ctx, middleware.GetUserID(ctx))
	if err != nil {
		h.writeOpError(w, r, "list funds", err)
		return
	}
	out := make([]fundResponse, 0, len(records))
	for _, record := range records {
		out = append(out, toFundResponse(record))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"total": len(out),
		"funds": out,
	})
}

func (h *Handler) handleRequestRelease(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	fundID, ok := h.fundID(w, r)
	if !ok {
		return
	}

	gaps, err := h.authorizer.RequestRelease(ctx, fundID, middleware.GetUserID(ctx))
	if err != nil {
		h.writeOpError(w, r, "request release", err)
		return
	}

	message := "release requested, fund is pending verification"
	httputil.WriteJSON(w, http.StatusOK, requestReleaseResponse{
		Success:      true,
		Message:      message,
		Requirements: gaps,
	})
}

func (h *Handler) handleRequirements(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	fundID, ok := h.fundID(w, r)
	if !ok {
		return
	}

	view, err := h.authorizer.ReleaseRequirements(ctx, fundID)
	if err != nil {
		h.writeOpError(w, r, "release requirements", err)
		return
	}

	missing := view.Missing
	if missing == nil {
		missing = []string{}
	}
	httputil.WriteJSON(w, http.StatusOK, requirementsResponse{
		CurrentStatus: string(view.CurrentStatus),
		Checklist:     toChecklistResponse(view.Checklist),
		CanRelease:    view.CanRelease,
		Missing:       missing,
	})
}

func (h *Handler) handleVerifyChecklist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	fundID, ok := h.fundID(w, r)
	if !ok {
		return
	}

	var req verifyChecklistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	checklist, err := h.authorizer.VerifyChecklist(ctx, fundID, middleware.GetUserID(ctx), service.ChecklistUpdate{
		UserVerified:      req.UserVerified,
		CauseValidated:    req.CauseValidated,
		PrizeDelivered:    req.PrizeDelivered,
		EvidenceConfirmed: req.EvidenceConfirmed,
		FraudCheckPassed:  req.FraudCheckPassed,
		Notes:             req.Notes,
	})
	if err != nil {
		h.writeOpError(w, r, "verify checklist", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toChecklistResponse(*checklist))
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	fundID, ok := h.fundID(w, r)
	if !ok {
		return
	}

	record, err := h.authorizer.AdminApprove(ctx, fundID, middleware.GetUserID(ctx))
	if err != nil {
		h.writeOpError(w, r, "approve fund", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toFundResponse(*record))
}

func (h *Handler) handleRelease(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	fundID, ok := h.fundID(w, r)
	if !ok {
		return
	}

	var req releaseRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	record, err := h.authorizer.AdminRelease(ctx, fundID, middleware.GetUserID(ctx), req.TransactionRef)
	if err != nil {
		h.writeOpError(w, r, "release fund", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toFundResponse(*record))
}

func (h *Handler) handleBlock(w http.ResponseWriter, r *http.Request) {
	h.handleReasoned(w, r, "block fund", h.authorizer.AdminBlock)
}

func (h *Handler) handleUnblock(w http.ResponseWriter, r *http.Request) {
	h.handleReasoned(w, r, "unblock fund", h.authorizer.AdminUnblock)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	h.handleReasoned(w, r, "reject fund", h.authorizer.AdminReject)
}

func (h *Handler) handleReasoned(
	w http.ResponseWriter,
	r *http.Request,
	operation string,
	call func(ctx context.Context, fundID uuid.UUID, adminID, reason string) (*fund.Record, error)) {
	ctx := r.Context()
	fundID, ok := h.fundID(w, r)
	if !ok {
		return
	}

	var req reasonedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	record, err := call(ctx, fundID, middleware.GetUserID(ctx), req.Reason)
	if err != nil {
		h.writeOpError(w, r, operation, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toFundResponse(*record))
}

func (h *Handler) fundID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "fundID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid fund id"))
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) writeOpError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	ctx := r.Context()
	if dErrors.ToHTTPStatus(codeOf(err)) >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, operation+" failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
	}
	httputil.WriteError(w, err)
}

func codeOf(err error) dErrors.Code {
	var de *dErrors.DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return dErrors.CodeInternal
}

// decodeOptionalBody tolerates an empty body; release metadata is optional.
func decodeOptionalBody(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
