package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"hrminsights/internal/domain/audit"
	"hrminsights/internal/domain/auth"
	"hrminsights/internal/domain/dashboards"
	"hrminsights/internal/domain/daykey"
	"hrminsights/internal/domain/reports"
	"hrminsights/internal/platform/backend"
	"hrminsights/internal/platform/cache"
	"hrminsights/internal/platform/config"
	"hrminsights/internal/platform/crypto"
	"hrminsights/internal/platform/db"
	"hrminsights/internal/platform/email"
	"hrminsights/internal/platform/jobs"
	"hrminsights/internal/platform/metrics"
	"hrminsights/internal/platform/telemetry"
	"hrminsights/internal/transport/http/api"
	audithandler "hrminsights/internal/transport/http/handlers/audit"
	dashboardshandler "hrminsights/internal/transport/http/handlers/dashboards"
	recordshandler "hrminsights/internal/transport/http/handlers/records"
	reportshandler "hrminsights/internal/transport/http/handlers/reports"
	"hrminsights/internal/transport/http/middleware"
)

const serviceName = "hrminsights"

// Check is one readiness probe.
type Check func(ctx context.Context) error

// Deps are the services the router serves.
type Deps struct {
	Config     config.Config
	Dashboards *dashboards.Service
	Reports    *reports.Service
	Records    recordshandler.Mutator
	Audit      audit.Store
	Location   *time.Location
	Metrics    *metrics.Collector
	Ready      map[string]Check
}

type App struct {
	Config  config.Config
	Router  http.Handler
	Jobs    *jobs.Service
	closers []func(context.Context) error
}

// New wires every component from cfg. Postgres and Redis are optional.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	return start(ctx, &App{Config: cfg})
}

// start wires app and releases whatever was already opened when a later step
// fails.
func start(ctx context.Context, app *App) (*App, error) {
	if err := app.wire(ctx); err != nil {
		app.Close(ctx)
		return nil, err
	}
	return app, nil
}

func (app *App) wire(ctx context.Context) error {
	cfg := app.Config
	collector := metrics.New()
	ready := map[string]Check{}

	app.closers = append(app.closers, telemetry.Setup(ctx, telemetry.Options{
		ServiceName: serviceName,
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    cfg.OTLPInsecure,
		Environment: cfg.Environment,
	}))

	var store backend.SnapshotStore
	redisCache, err := cache.NewRedis(ctx, cfg.RedisAddress, cfg.RedisPassword, cfg.CacheStaleTTL)
	if err != nil {
		slog.Warn("redis unavailable, snapshot cache disabled", "err", err)
	}
	if redisCache != nil {
		store = redisCache
		ready["redis"] = redisCache.Ping
		app.closers = append(app.closers, func(context.Context) error { return redisCache.Close() })
	}

	client, err := backend.New(backend.Options{
		BaseURL:    cfg.BackendURL,
		Token:      cfg.BackendToken,
		Timeout:    cfg.BackendTimeout,
		Retries:    cfg.BackendRetries,
		CacheTTL:   cfg.CacheTTL,
		StaleTTL:   cfg.CacheStaleTTL,
		HealthPath: cfg.BackendHealthPath,
	}, store, collector)
	if err != nil {
		return err
	}
	ready["backend"] = client.Ping

	var runs reports.StoreAPI = reports.NewMemoryStore()
	var trail audit.Store = audit.NewMemoryStore()
	if cfg.DatabaseURL != "" {
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		app.closers = append(app.closers, func(context.Context) error { pool.Close(); return nil })
		if cfg.RunMigrations {
			if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
				return err
			}
		}
		runs = reports.NewPostgresStore(pool)
		trail = audit.NewPostgresStore(pool)
		ready["database"] = pingPool(pool)
	} else {
		slog.Warn("DATABASE_URL not set, export runs and audit events are kept in memory")
	}

	norm, err := daykey.New(cfg.Timezone)
	if err != nil {
		return err
	}
	dash := dashboards.NewService(client, norm)

	crypt, err := crypto.New(cfg.DataEncryptionKey)
	if err != nil {
		return err
	}
	queue := jobs.New(jobs.DefaultQueueSize, jobs.DefaultWorkers)
	exports := reports.NewService(runs, dash, queue, crypt, email.New(email.Settings{
		Enabled:  cfg.EmailEnabled,
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		StartTLS: cfg.SMTPUseTLS,
	}), collector, reports.Options{
		Dir:      cfg.ExportDir,
		MailFrom: cfg.EmailFrom,
	})
	queue.Every(reports.JobRetention, cfg.RetentionInterval, func(ctx context.Context) (any, error) {
		cutoff := time.Now().Add(-cfg.ExportRetention)
		removed, err := exports.Cleanup(ctx, cutoff)
		return map[string]any{"cutoff": cutoff, "removed": removed}, err
	})
	app.Jobs = queue

	app.Router = NewRouter(Deps{
		Config:     cfg,
		Dashboards: dash,
		Reports:    exports,
		Records:    client,
		Audit:      trail,
		Location:   norm.Location(),
		Metrics:    collector,
		Ready:      ready,
	})
	return nil
}

// Close releases resources in reverse order of acquisition.
func (app *App) Close(ctx context.Context) {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](ctx); err != nil {
			slog.Warn("shutdown step failed", "err", err)
		}
	}
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	perms := auth.StaticPermissions{}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(deps.Metrics))
	router.Use(chimw.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Get("/readyz", readyHandler(deps.Ready))
	if cfg.MetricsEnabled {
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, deps.Metrics.Snapshot(), middleware.GetRequestID(r.Context()))
		})
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
		r.Use(middleware.MutationRateLimit(cfg.RateLimitPerMinute, time.Minute))

		dashboardshandler.NewHandler(deps.Dashboards, perms).RegisterRoutes(r)
		reportshandler.NewHandler(deps.Reports, perms).RegisterRoutes(r)
		var recorder recordshandler.Recorder
		if deps.Audit != nil {
			recorder = deps.Audit
			audithandler.NewHandler(deps.Audit, perms, deps.Location).RegisterRoutes(r)
		}
		recordshandler.NewHandler(deps.Records, recorder, perms).RegisterRoutes(r)
	})

	return otelhttp.NewHandler(router, serviceName)
}

func readyHandler(checks map[string]Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		results := map[string]string{}
		failed := false
		for name, check := range checks {
			if err := check(ctx); err != nil {
				results[name] = err.Error()
				failed = true
				continue
			}
			results[name] = "ok"
		}
		requestID := middleware.GetRequestID(r.Context())
		if failed {
			api.FailWithDetails(w, http.StatusServiceUnavailable, "not_ready", "dependency check failed", results, requestID)
			return
		}
		api.Success(w, results, requestID)
	}
}

func pingPool(pool *pgxpool.Pool) Check {
	return func(ctx context.Context) error { return pool.Ping(ctx) }
}

// Run starts the service and blocks until SIGINT or SIGTERM.
func Run() {
	cfg := config.Load()
	setupLogger(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := New(ctx, cfg)
	if err != nil {
		slog.Error("startup failed", "err", err)
		os.Exit(1)
	}
	app.Jobs.Start(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("hrminsights listening", "addr", cfg.Addr, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http shutdown failed", "err", err)
	}
	app.Jobs.Wait()
	app.Close(shutdownCtx)
}

func setupLogger(level string) {
	var lvl slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})))
}
