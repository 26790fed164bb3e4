package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"fundgate/internal/audit"
	"fundgate/internal/platform/metrics"
	"fundgate/internal/platform/middleware"
	"fundgate/pkg/platform/httputil"
	dErrors "fundgate/pkg/domain-errors"
)

// Handler serves the admin audit-log endpoints. All routes require the admin
// role; the audit trail is the platform's legal record and is read-only over
// HTTP.
type Handler struct {
	logger       *slog.Logger
	service      *audit.Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

func New(
	service *audit.Service,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		service:      service,
		metrics:      metrics,
		jwtValidator: jwtValidator,
	}
}

// Register registers the audit routes with the chi router. Routes are added
// in a group so the middleware chain stays scoped to this feature.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(ar chi.Router) {
		ar.Use(middleware.Recovery(h.logger))
		ar.Use(middleware.RequestID)
		ar.Use(middleware.Logger(h.logger))
		ar.Use(middleware.Timeout(30 * time.Second))
		ar.Use(middleware.LatencyMiddleware(h.metrics))
		ar.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		ar.Use(middleware.RequireAdmin(h.logger))
		ar.Get("/admin/audit-logs", h.handleQuery)
		ar.Get("/admin/audit-logs/stats", h.handleStats)
		ar.Get("/admin/audit-logs/export/{entityType}/{entityID}", h.handleExport)
	})
}

func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	filter := audit.Filter{
		EntityType: q.Get("entityType"),
		EntityID:   q.Get("entityId"),
		EventType:  q.Get("eventType"),
		ActorID:    q.Get("actorId"),
		Category:   audit.Category(q.Get("category")),
	}

	var err error
	if filter.DateFrom, err = parseTime(q.Get("dateFrom")); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid dateFrom"))
		return
	}
	if filter.DateTo, err = parseTime(q.Get("dateTo")); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid dateTo"))
		return
	}
	filter.Limit = parseInt(q.Get("limit"))
	filter.Offset = parseInt(q.Get("offset"))

	entries, err := h.service.Query(ctx, filter)
	if err != nil {
		h.logger.ErrorContext(ctx, "audit query failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "audit query failed"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"total":  len(entries),
		"events": toEntryResponses(entries),
	})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entityType := chi.URLParam(r, "entityType")
	entityID := chi.URLParam(r, "entityID")

	bundle, err := h.service.ExportForAudit(ctx, entityType, entityID)
	if err != nil {
		h.logger.ErrorContext(ctx, "audit export failed",
			"request_id", middleware.GetRequestID(ctx),
			"entity_type", entityType,
			"entity_id", entityID,
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "audit export failed"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, exportResponse{
		EntityType:  bundle.EntityType,
		EntityID:    bundle.EntityID,
		ExportedAt:  bundle.ExportedAt,
		TotalEvents: bundle.TotalEvents,
		Events:      toEntryResponses(bundle.Events),
	})
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats, err := h.service.GetStatsByCategory(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "audit stats failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "audit stats failed"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"byCategory": stats})
}

func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, raw)
}

func parseInt(raw string) int {
	if raw == "" {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0
	}
	return v
}
