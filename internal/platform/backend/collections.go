package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"hrminsights/internal/domain/dashboards"
	"hrminsights/internal/domain/records"
)

// Paths of the list endpoints, keyed by collection name.
var collectionPaths = map[string]string{
	dashboards.CollectionEmployees:    "/employees",
	dashboards.CollectionTasks:        "/tasks",
	dashboards.CollectionDailyReports: "/daily-reports",
	dashboards.CollectionMetrics:      "/metrics",
	dashboards.CollectionAttendance:   "/attendance",
	dashboards.CollectionScores:       "/performance-scores",
	dashboards.CollectionProjects:     "/projects",
	dashboards.CollectionRoles:        "/roles",
}

var _ dashboards.Source = (*Client)(nil)

// list decodes a collection and drops records that fail validation. A
// StaleError is returned together with the decoded stale records.
func list[T any](ctx context.Context, c *Client, collection string) ([]T, error) {
	body, fetchErr := c.collectionBody(ctx, collection, collectionPaths[collection])
	var stale *StaleError
	if fetchErr != nil && !errors.As(fetchErr, &stale) {
		return nil, fetchErr
	}

	items, malformed, err := records.DecodeList[T](body)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", collection, err)
	}
	kept, dropped := records.Keep(items)
	dropped += malformed
	if dropped > 0 {
		c.metrics.RecordsDropped(dropped)
		slog.Warn("invalid records dropped", "collection", collection, "dropped", dropped)
	}
	return kept, fetchErr
}

func (c *Client) Employees(ctx context.Context) ([]records.Employee, error) {
	return list[records.Employee](ctx, c, dashboards.CollectionEmployees)
}

func (c *Client) Tasks(ctx context.Context) ([]records.Task, error) {
	return list[records.Task](ctx, c, dashboards.CollectionTasks)
}

func (c *Client) DailyReports(ctx context.Context) ([]records.DailyReport, error) {
	return list[records.DailyReport](ctx, c, dashboards.CollectionDailyReports)
}

func (c *Client) Metrics(ctx context.Context) ([]records.Metric, error) {
	return list[records.Metric](ctx, c, dashboards.CollectionMetrics)
}

func (c *Client) Attendance(ctx context.Context) ([]records.Attendance, error) {
	return list[records.Attendance](ctx, c, dashboards.CollectionAttendance)
}

func (c *Client) PerformanceScores(ctx context.Context) ([]records.PerformanceScore, error) {
	return list[records.PerformanceScore](ctx, c, dashboards.CollectionScores)
}

func (c *Client) Projects(ctx context.Context) ([]records.Project, error) {
	return list[records.Project](ctx, c, dashboards.CollectionProjects)
}

func (c *Client) Roles(ctx context.Context) ([]records.Role, error) {
	return list[records.Role](ctx, c, dashboards.CollectionRoles)
}
