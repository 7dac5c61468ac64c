package audithandler

import (
	"encoding/csv"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"hrminsights/internal/domain/audit"
	"hrminsights/internal/domain/auth"
	"hrminsights/internal/transport/http/api"
	"hrminsights/internal/transport/http/middleware"
	"hrminsights/internal/transport/http/shared"
)

const exportLimit = 10000

type Handler struct {
	Store audit.Store
	Perms middleware.PermissionChecker
	// Loc is the zone from and to days are read in.
	Loc *time.Location
}

func NewHandler(store audit.Store, perms middleware.PermissionChecker, loc *time.Location) *Handler {
	return &Handler{Store: store, Perms: perms, Loc: loc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/audit", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermAuditRead, h.Perms)).Get("/events", h.handleListEvents)
		r.With(middleware.RequirePermission(auth.PermAuditRead, h.Perms)).Get("/events/export", h.handleExportEvents)
	})
}

// query reads the listing filter and window. from and to are calendar days,
// both inclusive.
func (h *Handler) query(v *shared.Validator, r *http.Request) (audit.Filter, shared.Pagination) {
	q := r.URL.Query()
	filter := audit.Filter{
		Action:     q.Get("action"),
		EntityType: q.Get("entityType"),
		ActorID:    q.Get("actorUserId"),
		From:       v.Day("from", q.Get("from"), h.Loc),
		To:         v.Day("to", q.Get("to"), h.Loc),
	}
	v.DayRange("from", filter.From, "to", filter.To)
	if !filter.To.IsZero() {
		filter.To = filter.To.AddDate(0, 0, 1)
	}
	return filter, v.Page(q, 100, 500)
}

func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	validator := shared.NewValidator()
	filter, page := h.query(validator, r)
	if validator.Reject(w, requestID) {
		return
	}
	includeDetails := r.URL.Query().Get("includeDetails") == "true"

	events, total, err := h.Store.List(r.Context(), filter, includeDetails, page.Limit, page.Offset)
	if err != nil {
		slog.Warn("audit list failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "audit_list_failed", "failed to list audit events", requestID)
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	api.Paged(w, page.Window(events, total), requestID)
}

func (h *Handler) handleExportEvents(w http.ResponseWriter, r *http.Request) {
	validator := shared.NewValidator()
	filter, _ := h.query(validator, r)
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	events, _, err := h.Store.List(r.Context(), filter, false, exportLimit, 0)
	if err != nil {
		slog.Warn("audit export failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "audit_export_failed", "failed to export audit events", middleware.GetRequestID(r.Context()))
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=audit-events.csv")
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"id", "actor_user_id", "action", "entity_type", "entity_id", "request_id", "ip", "created_at"}); err != nil {
		slog.Warn("audit export header failed", "err", err)
	}
	for _, evt := range events {
		row := []string{evt.ID, evt.ActorID, evt.Action, evt.EntityType, evt.EntityID, evt.RequestID, evt.IP, evt.CreatedAt.Format(time.RFC3339)}
		if err := writer.Write(row); err != nil {
			slog.Warn("audit export row failed", "err", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		slog.Warn("audit export flush failed", "err", err)
	}
}
