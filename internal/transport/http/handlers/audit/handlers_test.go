package audithandler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrminsights/internal/domain/audit"
	"hrminsights/internal/domain/auth"
	"hrminsights/internal/transport/http/middleware"
)

func seeded(t *testing.T) *audit.MemoryStore {
	t.Helper()
	store := audit.NewMemoryStore()
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, evt := range []audit.Event{
		{ActorID: "admin-1", Action: "employee.create", EntityType: "employee", EntityID: "e1", Payload: json.RawMessage(`{"name":"Esha"}`)},
		{ActorID: "admin-1", Action: "project.create", EntityType: "project", EntityID: "p1"},
		{ActorID: "admin-2", Action: "employee.update", EntityType: "employee", EntityID: "e1"},
	} {
		evt.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, store.Record(context.Background(), evt))
	}
	return store
}

func serve(store audit.Store, role, target string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	NewHandler(store, auth.StaticPermissions{}, time.UTC).RegisterRoutes(r)
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req = req.WithContext(middleware.WithUser(req.Context(), auth.UserContext{UserID: "u1", Role: role}))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestListEventsFiltersAndCounts(t *testing.T) {
	rec := serve(seeded(t), auth.RoleAdministrator, "/audit/events?entityType=employee")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "2", rec.Header().Get("X-Total-Count"))

	var body struct {
		Data struct {
			Items []audit.Event `json:"items"`
			Total int           `json:"total"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data.Items, 2)
	assert.Equal(t, 2, body.Data.Total)
	for _, evt := range body.Data.Items {
		assert.Equal(t, "employee", evt.EntityType)
		assert.Empty(t, evt.Payload)
	}
}

func TestListEventsIncludesDetailsOnRequest(t *testing.T) {
	rec := serve(seeded(t), auth.RoleAdministrator, "/audit/events?action=employee.create&includeDetails=true")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"payload":{"name":"Esha"}`)
}

func TestAuditRequiresPermission(t *testing.T) {
	rec := serve(seeded(t), auth.RoleManager, "/audit/events")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestExportEventsCSV(t *testing.T) {
	rec := serve(seeded(t), auth.RoleAdministrator, "/audit/events/export?actorUserId=admin-1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "id,actor_user_id,action"))
	assert.Contains(t, rec.Body.String(), "project.create")
	assert.NotContains(t, rec.Body.String(), "employee.update")
}

func TestListEventsDateRange(t *testing.T) {
	store := seeded(t)
	require.NoError(t, store.Record(context.Background(), audit.Event{
		ActorID: "admin-1", Action: "task.assign", EntityType: "task",
		CreatedAt: time.Date(2024, 3, 5, 18, 0, 0, 0, time.UTC),
	}))

	rec := serve(store, auth.RoleAdministrator, "/audit/events?from=2024-03-02&to=2024-03-05")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "1", rec.Header().Get("X-Total-Count"))
	assert.Contains(t, rec.Body.String(), "task.assign")

	rec = serve(store, auth.RoleAdministrator, "/audit/events?from=2024-03-09&to=2024-03-01")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "validation_error")

	rec = serve(store, auth.RoleAdministrator, "/audit/events?from=yesterday")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
