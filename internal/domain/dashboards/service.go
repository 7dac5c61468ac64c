// Package dashboards composes the analytics screens. Each screen fetches the
// collections it needs concurrently, runs the pure aggregators and reports
// any fetch it had to do without.
package dashboards

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"hrminsights/internal/domain/daykey"
	"hrminsights/internal/domain/records"
)

const (
	CollectionEmployees    = "employees"
	CollectionTasks        = "tasks"
	CollectionDailyReports = "dailyReports"
	CollectionMetrics      = "metrics"
	CollectionAttendance   = "attendance"
	CollectionScores       = "performanceScores"
	CollectionProjects     = "projects"
	CollectionRoles        = "roles"
)

// Source is the read side of the HR backend.
type Source interface {
	Employees(ctx context.Context) ([]records.Employee, error)
	Tasks(ctx context.Context) ([]records.Task, error)
	DailyReports(ctx context.Context) ([]records.DailyReport, error)
	Metrics(ctx context.Context) ([]records.Metric, error)
	Attendance(ctx context.Context) ([]records.Attendance, error)
	PerformanceScores(ctx context.Context) ([]records.PerformanceScore, error)
	Projects(ctx context.Context) ([]records.Project, error)
	Roles(ctx context.Context) ([]records.Role, error)
}

// Warning describes a collection the screen was built without, or built from
// a stale copy of.
type Warning struct {
	Collection string `json:"collection"`
	Message    string `json:"message"`
	Stale      bool   `json:"stale"`
}

// Meta is attached to every screen.
type Meta struct {
	GeneratedAt time.Time `json:"generatedAt"`
	Today       string    `json:"today"`
	Timezone    string    `json:"timezone"`
	Warnings    []Warning `json:"warnings"`
	Skipped     int       `json:"skipped"`
}

type Service struct {
	Source Source
	Norm   *daykey.Normalizer
}

func NewService(source Source, norm *daykey.Normalizer) *Service {
	return &Service{Source: source, Norm: norm}
}

// staleError is implemented by source errors that still returned usable,
// older data.
type staleError interface {
	Stale() bool
}

// batch runs one screen's fetches. A failed fetch never fails the batch;
// only cancellation of the caller's context does.
type batch struct {
	g        *errgroup.Group
	ctx      context.Context
	mu       sync.Mutex
	warnings []Warning
}

func newBatch(ctx context.Context) *batch {
	g, gctx := errgroup.WithContext(ctx)
	return &batch{g: g, ctx: gctx}
}

func fetch[T any](b *batch, collection string, dst *[]T, load func(context.Context) ([]T, error)) {
	b.g.Go(func() error {
		items, err := load(b.ctx)
		if err == nil {
			*dst = items
			return nil
		}
		if cerr := b.ctx.Err(); cerr != nil {
			return cerr
		}

		var stale staleError
		isStale := errors.As(err, &stale) && stale.Stale() && items != nil
		if isStale {
			*dst = items
		} else {
			*dst = []T{}
		}
		slog.Warn("dashboard fetch failed", "collection", collection, "stale", isStale, "err", err)

		b.mu.Lock()
		b.warnings = append(b.warnings, Warning{Collection: collection, Message: err.Error(), Stale: isStale})
		b.mu.Unlock()
		return nil
	})
}

func (b *batch) wait() ([]Warning, error) {
	if err := b.g.Wait(); err != nil {
		return nil, err
	}
	sort.Slice(b.warnings, func(i, j int) bool { return b.warnings[i].Collection < b.warnings[j].Collection })
	if b.warnings == nil {
		return []Warning{}, nil
	}
	return b.warnings, nil
}

func (s *Service) meta(warnings []Warning, skipped int) Meta {
	return Meta{
		GeneratedAt: s.Norm.Now(),
		Today:       s.Norm.Today(),
		Timezone:    s.Norm.Location().String(),
		Warnings:    warnings,
		Skipped:     skipped,
	}
}
