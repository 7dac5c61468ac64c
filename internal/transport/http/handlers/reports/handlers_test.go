package reportshandler

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

	"hrminsights/internal/domain/auth"
	"hrminsights/internal/domain/dashboards"
	"hrminsights/internal/domain/reports"
	"hrminsights/internal/platform/crypto"
	"hrminsights/internal/platform/jobs"
	"hrminsights/internal/transport/http/middleware"
)

type recordingTables struct {
	got []dashboards.TableRequest
}

func (t *recordingTables) Table(_ context.Context, req dashboards.TableRequest) (dashboards.Table, error) {
	t.got = append(t.got, req)
	return dashboards.Table{
		Kind:        req.Kind,
		Title:       "SLA",
		Columns:     []string{"Task", "Tier"},
		Rows:        [][]string{{"t1", "P1"}},
		GeneratedAt: time.Date(2024, 3, 10, 6, 0, 0, 0, time.UTC),
	}, nil
}

type inlineQueue struct{}

func (inlineQueue) Enqueue(_, _ string, run jobs.Runner) bool {
	_, _ = run(context.Background())
	return true
}

func newRouter(t *testing.T) (http.Handler, *recordingTables) {
	t.Helper()
	crypt, err := crypto.New("")
	require.NoError(t, err)
	tables := &recordingTables{}
	svc := reports.NewService(reports.NewMemoryStore(), tables, inlineQueue{}, crypt, nil, nil, reports.Options{Dir: t.TempDir()})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	NewHandler(svc, auth.StaticPermissions{}).RegisterRoutes(r)
	return r, tables
}

func do(h http.Handler, method, path, body string, user *auth.UserContext) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if user != nil {
		req = req.WithContext(middleware.WithUser(req.Context(), *user))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type runEnvelope struct {
	Data  reports.ExportRun `json:"data"`
	Error *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func TestCreateDownloadAndVisibility(t *testing.T) {
	h, tables := newRouter(t)
	employee := &auth.UserContext{UserID: "e1", Role: auth.RoleEmployee}

	rec := do(h, http.MethodPost, "/reports/exports", `{"kind":"sla","format":"csv","params":{"tier":"P2"}}`, employee)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var created runEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	id := created.Data.ID
	require.NotEmpty(t, id)

	require.Len(t, tables.got, 1)
	assert.Equal(t, "e1", tables.got[0].SLA.EmployeeID)
	assert.Equal(t, "P2", tables.got[0].SLA.Tier)

	rec = do(h, http.MethodGet, "/reports/exports/"+id, "", employee)
	require.Equal(t, http.StatusOK, rec.Code)
	var fetched runEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fetched))
	assert.Equal(t, reports.StatusCompleted, fetched.Data.Status)

	rec = do(h, http.MethodGet, "/reports/exports/"+id+"/download", "", employee)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "sla-")
	assert.Equal(t, "Task,Tier\nt1,P1\n", rec.Body.String())

	other := &auth.UserContext{UserID: "e2", Role: auth.RoleEmployee}
	rec = do(h, http.MethodGet, "/reports/exports/"+id, "", other)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	manager := &auth.UserContext{UserID: "m1", Role: auth.RoleManager}
	rec = do(h, http.MethodGet, "/reports/exports/"+id+"/download", "", manager)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateValidation(t *testing.T) {
	h, _ := newRouter(t)
	admin := &auth.UserContext{UserID: "a1", Role: auth.RoleAdministrator}

	rec := do(h, http.MethodPost, "/reports/exports", `{"kind":"payroll","format":"docx"}`, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"kind"`)
	assert.Contains(t, rec.Body.String(), `"field":"format"`)

	rec = do(h, http.MethodPost, "/reports/exports", `{"kind":"sla","format":"pdf","params":{"tier":"P9"}}`, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(h, http.MethodPost, "/reports/exports", `not json`, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	intern := &auth.UserContext{UserID: "i1", Role: auth.RoleIntern}
	rec = do(h, http.MethodPost, "/reports/exports", `{"kind":"sla","format":"pdf"}`, intern)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestListScopesToOwner(t *testing.T) {
	h, _ := newRouter(t)
	e1 := &auth.UserContext{UserID: "e1", Role: auth.RoleEmployee}
	e2 := &auth.UserContext{UserID: "e2", Role: auth.RoleEmployee}
	admin := &auth.UserContext{UserID: "a1", Role: auth.RoleAdministrator}

	for _, u := range []*auth.UserContext{e1, e2, e2} {
		rec := do(h, http.MethodPost, "/reports/exports", `{"kind":"performance","format":"csv"}`, u)
		require.Equal(t, http.StatusAccepted, rec.Code)
	}

	type listEnvelope struct {
		Data struct {
			Items []reports.ExportRun `json:"items"`
			Total int                 `json:"total"`
		} `json:"data"`
	}
	var list listEnvelope
	rec := do(h, http.MethodGet, "/reports/exports", "", e2)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 2, list.Data.Total)

	rec = do(h, http.MethodGet, "/reports/exports?limit=1", "", admin)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 3, list.Data.Total)
	assert.Len(t, list.Data.Items, 1)

	rec = do(h, http.MethodGet, "/reports/exports?status=stuck", "", admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
