package dashboardshandler

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"hrminsights/internal/domain/auth"
	"hrminsights/internal/domain/dashboards"
	"hrminsights/internal/transport/http/api"
	"hrminsights/internal/transport/http/middleware"
	"hrminsights/internal/transport/http/shared"
)

type Handler struct {
	Service *dashboards.Service
	Perms   middleware.PermissionChecker
}

func NewHandler(service *dashboards.Service, perms middleware.PermissionChecker) *Handler {
	return &Handler{Service: service, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/dashboards", func(r chi.Router) {
		r.Use(middleware.RequirePermission(auth.PermDashboardsRead, h.Perms))
		r.Get("/submissions", screen(dashboards.ParseSubmissionsQuery, dashboards.SubmissionsQuery.WithEmployee, h.Service.Submissions))
		r.Get("/heatmap", screen(dashboards.ParseHeatmapQuery, dashboards.HeatmapQuery.WithEmployee, h.Service.Heatmap))
		r.Get("/performance", screen(dashboards.ParsePerformanceQuery, dashboards.PerformanceQuery.WithEmployee, h.Service.Performance))
		r.Get("/productivity", screen(dashboards.ParseProductivityQuery, dashboards.ProductivityQuery.WithEmployee, h.Service.Productivity))
		r.Get("/sla", screen(dashboards.ParseSLAQuery, dashboards.SLAQuery.WithEmployee, h.Service.SLA))
		r.Get("/projects", screen(dashboards.ParseProjectsQuery, nil, h.Service.Projects))
		r.Get("/bottlenecks", screen(dashboards.ParseProjectsQuery, nil, h.Service.Bottlenecks))
		r.Get("/roles", h.handleRoles)
	})
}

// screen builds a GET handler for one dashboard. Callers without team scope
// are pinned to their own employee id when scope is non-nil.
func screen[Q, R any](
	parse func(url.Values) (Q, error),
	scope func(Q, string) Q,
	build func(context.Context, Q) (R, error),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := middleware.GetRequestID(r.Context())
		q, err := parse(r.URL.Query())
		if err != nil {
			shared.FailError(w, err, requestID)
			return
		}
		if user, ok := middleware.GetUser(r.Context()); ok && scope != nil && auth.SelfScoped(user.Role) {
			q = scope(q, user.UserID)
		}
		result, err := build(r.Context(), q)
		if err != nil {
			shared.FailError(w, err, requestID)
			return
		}
		api.Success(w, result, requestID)
	}
}

func (h *Handler) handleRoles(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	result, err := h.Service.Roles(r.Context())
	if err != nil {
		shared.FailError(w, err, requestID)
		return
	}
	api.Success(w, result, requestID)
}
