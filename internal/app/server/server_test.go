package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrminsights/internal/domain/audit"
	"hrminsights/internal/domain/auth"
	"hrminsights/internal/platform/backend"
	"hrminsights/internal/platform/config"
	"hrminsights/internal/platform/metrics"
)

const secret = "router-test-secret"

func testConfig(backendURL string) config.Config {
	return config.Config{
		Environment:        "test",
		Timezone:           "Asia/Kolkata",
		BackendURL:         backendURL,
		BackendTimeout:     time.Second,
		JWTSecret:          secret,
		CacheStaleTTL:      time.Hour,
		MaxBodyBytes:       1 << 20,
		RateLimitPerMinute: 100,
		MetricsEnabled:     true,
	}
}

func fakeBackend(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/health":
			_, _ = w.Write([]byte(`{"ok":true}`))
		case "/employees":
			_, _ = w.Write([]byte(`[{"id":"e1","name":"Esha","designation":{"name":"Employee"}},{"id":"e2","name":"Ravi"}]`))
		case "/roles":
			_, _ = w.Write([]byte(`{"data":[{"id":"r1","name":"Reviewers","users":["e1"],"permissionCount":3}]}`))
		default:
			_, _ = w.Write([]byte(`[]`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestApp(t *testing.T) (*App, *httptest.Server) {
	t.Helper()
	upstream := fakeBackend(t)
	cfg := testConfig(upstream.URL)
	cfg.ExportDir = t.TempDir()
	app, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { app.Close(context.Background()) })
	return app, upstream
}

func bearer(t *testing.T, role string) string {
	t.Helper()
	token, err := auth.GenerateToken(secret, auth.Claims{UserID: "u1", Role: role}, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestHealthReadyAndMetrics(t *testing.T) {
	app, _ := newTestApp(t)

	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = httptest.NewRecorder()
	app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "requestsTotal")
}

func TestReadyzReportsFailedCheck(t *testing.T) {
	router := NewRouter(Deps{
		Config:  testConfig("http://unused"),
		Metrics: metrics.New(),
		Ready: map[string]Check{
			"backend": func(context.Context) error { return errors.New("connection refused") },
		},
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestDashboardRequiresToken(t *testing.T) {
	app, _ := newTestApp(t)

	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/dashboards/roles", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboards/roles", nil)
	req.Header.Set("Authorization", bearer(t, auth.RoleManager))
	rec = httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var env struct {
		Success bool `json:"success"`
		Data    struct {
			Roles []struct {
				Name      string `json:"name"`
				UserCount int    `json:"userCount"`
			} `json:"roles"`
			Unassigned int `json:"unassigned"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.True(t, env.Success)
	require.Len(t, env.Data.Roles, 1)
	assert.Equal(t, 1, env.Data.Roles[0].UserCount)
	assert.Equal(t, 1, env.Data.Unassigned)
}

func TestRecordsRouteForwardsToBackend(t *testing.T) {
	var got string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Method + " " + r.URL.Path
		_, _ = w.Write([]byte(`{"id":"a1"}`))
	}))
	defer upstream.Close()

	client, err := backend.New(backend.Options{BaseURL: upstream.URL}, nil, nil)
	require.NoError(t, err)
	trail := audit.NewMemoryStore()
	router := NewRouter(Deps{Config: testConfig(upstream.URL), Records: client, Audit: trail, Metrics: metrics.New()})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/announcements", strings.NewReader(`{"title":"Hi","message":"Hello"}`))
	req.Header.Set("Authorization", bearer(t, auth.RoleAdministrator))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "POST /announcements", got)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/audit/events", nil)
	req.Header.Set("Authorization", bearer(t, auth.RoleAdministrator))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "1", rec.Header().Get("X-Total-Count"))
	assert.Contains(t, rec.Body.String(), `"action":"announcement.publish"`)
	assert.Contains(t, rec.Body.String(), `"entityId":"a1"`)
}


func TestRecordsRouteWrapsPlainTextReply(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("Employee created"))
	}))
	defer upstream.Close()

	client, err := backend.New(backend.Options{BaseURL: upstream.URL}, nil, nil)
	require.NoError(t, err)
	router := NewRouter(Deps{Config: testConfig(upstream.URL), Records: client, Audit: audit.NewMemoryStore(), Metrics: metrics.New()})

	body := `{"name":"Esha","email":"esha@example.com","designation":"Employee"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/employees", strings.NewReader(body))
	req.Header.Set("Authorization", bearer(t, auth.RoleAdministrator))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var env struct {
		Success bool   `json:"success"`
		Data    string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.True(t, env.Success)
	assert.Equal(t, "Employee created", env.Data)
}

func TestStartReleasesOpenedResourcesOnFailure(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Timezone = "Nowhere/Invalid"

	closed := 0
	app := &App{Config: cfg}
	app.closers = append(app.closers, func(context.Context) error { closed++; return nil })

	got, err := start(context.Background(), app)
	require.Error(t, err)
	assert.Nil(t, got)
	assert.Equal(t, 1, closed)
}
