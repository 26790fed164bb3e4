// Package handler exposes the flag registry over HTTP. Raising and resolving
// flags is admin-only; the gating checks are read endpoints used by incident
// tooling and the raffle executor.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"fundgate/internal/flags"
	"fundgate/internal/platform/metrics"
	"fundgate/internal/platform/middleware"
	dErrors "fundgate/pkg/domain-errors"
	"fundgate/pkg/platform/httputil"
)

type Handler struct {
	logger       *slog.Logger
	registry     *flags.Registry
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

func New(
	registry *flags.Registry,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		registry:     registry,
		metrics:      metrics,
		jwtValidator: jwtValidator,
	}
}

// Register registers the flag routes with the chi router. Routes are added
// in a group so the middleware chain stays scoped to this feature.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(fr chi.Router) {
		fr.Use(middleware.Recovery(h.logger))
		fr.Use(middleware.RequestID)
		fr.Use(middleware.Logger(h.logger))
		fr.Use(middleware.Timeout(30 * time.Second))
		fr.Use(middleware.ContentTypeJSON)
		fr.Use(middleware.LatencyMiddleware(h.metrics))
		fr.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		fr.Use(middleware.RequireAdmin(h.logger))
		fr.Post("/admin/flags", h.handleAdd)
		fr.Post("/admin/flags/{flagID}/resolve", h.handleResolve)
		fr.Get("/admin/flags/{entityType}/{entityID}", h.handleList)
		fr.Get("/admin/entities/can-release", h.handleCanRelease)
		fr.Get("/admin/entities/can-execute-raffle", h.handleCanExecuteRaffle)
	})
}

func (h *Handler) handleAdd(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req addFlagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	entityType, ok := parseEntityType(req.EntityType)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "unknown entity type"))
		return
	}

	flag, err := h.registry.AddFlag(ctx, entityType, req.EntityID, flags.FlagCode(req.FlagCode), req.Reason, middleware.GetUserID(ctx), req.IncidentID)
	if err != nil {
		h.logger.ErrorContext(ctx, "add flag failed",
			"request_id", middleware.GetRequestID(ctx),
			"entity_type", req.EntityType,
			"entity_id", req.EntityID,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toFlagResponse(*flag))
}

func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	flagID, err := uuid.Parse(chi.URLParam(r, "flagID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid flag id"))
		return
	}

	var req resolveFlagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	flag, err := h.registry.ResolveFlag(ctx, flagID, middleware.GetUserID(ctx), req.Notes)
	if err != nil {
		h.logger.ErrorContext(ctx, "resolve flag failed",
			"request_id", middleware.GetRequestID(ctx),
			"flag_id", flagID.String(),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toFlagResponse(*flag))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	entityType, ok := parseEntityType(chi.URLParam(r, "entityType"))
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "unknown entity type"))
		return
	}
	entityID := chi.URLParam(r, "entityID")

	history, err := h.registry.ListFlags(ctx, entityType, entityID)
	if err != nil {
		h.logger.ErrorContext(ctx, "list flags failed",
			"request_id", middleware.GetRequestID(ctx),
			"entity_type", string(entityType),
			"entity_id", entityID,
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "list flags failed"))
		return
	}

	out := make([]flagResponse, 0, len(history))
	for _, flag := range history {
		out = append(out, toFlagResponse(flag))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"total": len(out),
		"flags": out,
	})
}

func (h *Handler) handleCanRelease(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	decision, err := h.registry.CanReleaseMoney(ctx, q.Get("userId"), q.Get("causeId"), q.Get("prizeId"), q.Get("fundId"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toDecisionResponse(decision))
}

func (h *Handler) handleCanExecuteRaffle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	decision, err := h.registry.CanExecuteRaffle(ctx, q.Get("userId"), q.Get("causeId"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toDecisionResponse(decision))
}

func parseEntityType(raw string) (flags.EntityType, bool) {
	switch flags.EntityType(raw) {
	case flags.EntityUser, flags.EntityCause, flags.EntityPrize, flags.EntityFund:
		return flags.EntityType(raw), true
	default:
		return "", false
	}
}
