package reportshandler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"hrminsights/internal/domain/auth"
	"hrminsights/internal/domain/dashboards"
	"hrminsights/internal/domain/records"
	"hrminsights/internal/domain/reports"
	"hrminsights/internal/transport/http/api"
	"hrminsights/internal/transport/http/middleware"
	"hrminsights/internal/transport/http/shared"
)

type Handler struct {
	Service *reports.Service
	Perms   middleware.PermissionChecker
}

func NewHandler(service *reports.Service, perms middleware.PermissionChecker) *Handler {
	return &Handler{Service: service, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reports/exports", func(r chi.Router) {
		r.Use(middleware.RequirePermission(auth.PermReportsExport, h.Perms))
		r.Post("/", h.handleCreate)
		r.Get("/", h.handleList)
		r.Get("/{id}", h.handleGet)
		r.Get("/{id}/download", h.handleDownload)
	})
}

type exportRequest struct {
	Kind   string            `json:"kind" validate:"required,oneof=submissions performance productivity sla projects bottlenecks"`
	Format string            `json:"format" validate:"required,oneof=pdf xlsx csv"`
	Params map[string]string `json:"params"`
	Notify bool              `json:"notify"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	var payload exportRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}
	if err := records.Check(payload); err != nil {
		shared.FailValidation(w, requestID, shared.FieldIssues(err))
		return
	}

	params := url.Values{}
	for k, v := range payload.Params {
		params.Set(k, v)
	}
	table, err := dashboards.ParseTableRequest(payload.Kind, params)
	if err != nil {
		shared.FailError(w, err, requestID)
		return
	}
	if auth.SelfScoped(user.Role) {
		table = table.ScopedTo(user.UserID)
	}

	req := reports.ExportRequest{
		Table:       table,
		Format:      payload.Format,
		Params:      params,
		RequestedBy: user.UserID,
	}
	if payload.Notify {
		req.Email = user.Email
	}
	run, err := h.Service.Request(r.Context(), req)
	if err != nil {
		shared.FailError(w, err, requestID)
		return
	}
	api.Accepted(w, run, requestID)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	q := r.URL.Query()
	validator := shared.NewValidator()
	status := q.Get("status")
	validator.OneOf("status", status, reports.Statuses)
	kind := q.Get("kind")
	validator.OneOf("kind", kind, dashboards.TableKinds)
	page := validator.Page(q, 20, 100)
	if validator.Reject(w, requestID) {
		return
	}

	filter := reports.RunFilter{Status: status, Kind: kind}
	if !h.seesAll(user) {
		filter.RequestedBy = user.UserID
	}
	runs, total, err := h.Service.List(r.Context(), filter, page.Limit, page.Offset)
	if err != nil {
		shared.FailError(w, err, requestID)
		return
	}
	if runs == nil {
		runs = []reports.ExportRun{}
	}
	api.Paged(w, page.Window(runs, total), requestID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	run, err := h.Service.Get(r.Context(), chi.URLParam(r, "id"))
	if err == nil && !h.visible(r, run) {
		err = reports.ErrNotFound
	}
	if err != nil {
		shared.FailError(w, err, requestID)
		return
	}
	api.Success(w, run, requestID)
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	id := chi.URLParam(r, "id")

	run, err := h.Service.Get(r.Context(), id)
	if err == nil && !h.visible(r, run) {
		err = reports.ErrNotFound
	}
	if err != nil {
		shared.FailError(w, err, requestID)
		return
	}
	run, body, err := h.Service.Open(r.Context(), id)
	if err != nil {
		shared.FailError(w, err, requestID)
		return
	}

	w.Header().Set("Content-Type", reports.ContentType(run.Format))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", run.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *Handler) seesAll(user auth.UserContext) bool {
	return h.Perms.HasPermission(user.Role, auth.PermDashboardsTeam)
}

func (h *Handler) visible(r *http.Request, run reports.ExportRun) bool {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		return false
	}
	return run.RequestedBy == user.UserID || h.seesAll(user)
}
