package recordshandler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"hrminsights/internal/domain/audit"
	"hrminsights/internal/domain/auth"
	"hrminsights/internal/domain/records"
	"hrminsights/internal/platform/backend"
	"hrminsights/internal/transport/http/api"
	"hrminsights/internal/transport/http/middleware"
	"hrminsights/internal/transport/http/shared"
)

// Mutator forwards writes to the backend.
type Mutator interface {
	Apply(ctx context.Context, m backend.Mutation, payload json.RawMessage) (json.RawMessage, error)
}

// Recorder keeps the audit trail of forwarded writes.
type Recorder interface {
	Record(ctx context.Context, evt audit.Event) error
}

type Handler struct {
	Backend Mutator
	Audit   Recorder
	Perms   middleware.PermissionChecker
}

func NewHandler(b Mutator, recorder Recorder, perms middleware.PermissionChecker) *Handler {
	return &Handler{Backend: b, Audit: recorder, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequirePermission(auth.PermRecordsWrite, h.Perms))
		r.Post("/employees", h.forward(route{
			action: "employee.create", entity: "employee",
			mutation: func(*http.Request) backend.Mutation { return backend.CreateEmployee() },
			input:    func() any { return &employeeInput{} },
		}))
		r.Put("/employees/{id}", h.forward(route{
			action: "employee.update", entity: "employee",
			mutation: func(r *http.Request) backend.Mutation { return backend.UpdateEmployee(chi.URLParam(r, "id")) },
			input:    func() any { return &employeeUpdate{} },
		}))
		r.Post("/projects", h.forward(route{
			action: "project.create", entity: "project",
			mutation: func(*http.Request) backend.Mutation { return backend.CreateProject() },
			input:    func() any { return &projectInput{} },
		}))
		r.Post("/tasks", h.forward(route{
			action: "task.assign", entity: "task",
			mutation: func(*http.Request) backend.Mutation { return backend.AssignTask() },
			input:    func() any { return &taskInput{} },
		}))
		r.Put("/roles/{id}/assign", h.forward(route{
			action: "role.assign", entity: "role",
			mutation: func(r *http.Request) backend.Mutation { return backend.AssignRole(chi.URLParam(r, "id")) },
			input:    func() any { return &roleAssignment{} },
		}))
		r.Post("/announcements", h.forward(route{
			action: "announcement.publish", entity: "announcement",
			mutation: func(*http.Request) backend.Mutation { return backend.PublishAnnouncement() },
			input:    func() any { return &announcementInput{} },
		}))
	})
}

type employeeInput struct {
	Name        string           `json:"name" validate:"required"`
	Email       string           `json:"email" validate:"required,email"`
	Designation string           `json:"designation" validate:"required"`
	Salary      *decimal.Decimal `json:"salary"`
}

type employeeUpdate struct {
	Name        string           `json:"name"`
	Email       string           `json:"email" validate:"omitempty,email"`
	Designation string           `json:"designation"`
	Salary      *decimal.Decimal `json:"salary"`
}

type projectInput struct {
	Name      string          `json:"name" validate:"required"`
	ManagerID string          `json:"managerId" validate:"required"`
	StartDate string          `json:"startDate" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string          `json:"endDate" validate:"omitempty,datetime=2006-01-02"`
	Budget    decimal.Decimal `json:"budget"`
}

type taskInput struct {
	Title      string `json:"title" validate:"required"`
	AssignedTo string `json:"assignedTo" validate:"required"`
	ProjectID  string `json:"projectId"`
	DueAt      string `json:"dueAt" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

type roleAssignment struct {
	Users []string `json:"users" validate:"required,min=1,dive,required"`
}

type announcementInput struct {
	Title   string `json:"title" validate:"required"`
	Message string `json:"message" validate:"required"`
}

type route struct {
	action   string
	entity   string
	mutation func(*http.Request) backend.Mutation
	input    func() any
}

// forward validates the body against a typed input and sends the original
// bytes on unchanged, so fields the console adds reach the backend.
func (h *Handler) forward(rt route) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := middleware.GetRequestID(r.Context())
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			api.Fail(w, http.StatusRequestEntityTooLarge, "invalid_payload", "request body too large or unreadable", requestID)
			return
		}
		target := rt.input()
		if err := json.Unmarshal(raw, target); err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
			return
		}
		if err := records.Check(target); err != nil {
			shared.FailValidation(w, requestID, shared.FieldIssues(err))
			return
		}

		m := rt.mutation(r)
		body, err := h.Backend.Apply(r.Context(), m, raw)
		if err != nil {
			shared.FailError(w, err, requestID)
			return
		}
		h.record(r, rt, raw, body)
		if m.Method == http.MethodPost {
			api.Created(w, body, requestID)
			return
		}
		api.Success(w, body, requestID)
	}
}

func (h *Handler) record(r *http.Request, rt route, payload, response json.RawMessage) {
	if h.Audit == nil {
		return
	}
	user, _ := middleware.GetUser(r.Context())
	evt := audit.Event{
		ActorID:    user.UserID,
		Action:     rt.action,
		EntityType: rt.entity,
		EntityID:   entityID(r, response),
		RequestID:  middleware.GetRequestID(r.Context()),
		IP:         middleware.ClientIP(r),
		Payload:    payload,
	}
	if err := h.Audit.Record(r.Context(), evt); err != nil {
		slog.Warn("audit record failed", "action", rt.action, "err", err)
	}
}

// entityID prefers the route id, then the id the backend returned.
func entityID(r *http.Request, response json.RawMessage) string {
	if id := chi.URLParam(r, "id"); id != "" {
		return id
	}
	var created struct {
		ID      string `json:"id"`
		MongoID string `json:"_id"`
	}
	if err := json.Unmarshal(response, &created); err != nil {
		return ""
	}
	if created.ID != "" {
		return created.ID
	}
	return created.MongoID
}
