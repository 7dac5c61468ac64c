package shared

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"hrminsights/internal/domain/dashboards"
	"hrminsights/internal/domain/records"
	"hrminsights/internal/domain/reports"
	"hrminsights/internal/platform/backend"
	"hrminsights/internal/transport/http/api"
)

// FailError maps a service error to an envelope response.
func FailError(w http.ResponseWriter, err error, requestID string) {
	var status *backend.StatusError
	switch {
	case errors.Is(err, dashboards.ErrInvalidQuery),
		errors.Is(err, dashboards.ErrUnknownTable),
		errors.Is(err, reports.ErrInvalidFormat):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), requestID)
	case errors.Is(err, reports.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "resource not found", requestID)
	case errors.Is(err, reports.ErrNotReady):
		api.Fail(w, http.StatusConflict, "not_ready", err.Error(), requestID)
	case errors.Is(err, reports.ErrQueueFull):
		api.Fail(w, http.StatusServiceUnavailable, "unavailable", err.Error(), requestID)
	case errors.As(err, &status):
		api.FailWithDetails(w, http.StatusBadGateway, "upstream_error", "backend request failed",
			map[string]any{"status": status.StatusCode, "path": status.Path}, requestID)
	case errors.Is(err, context.DeadlineExceeded):
		api.Fail(w, http.StatusGatewayTimeout, "upstream_error", "backend request timed out", requestID)
	case errors.Is(err, context.Canceled):
		api.Fail(w, http.StatusServiceUnavailable, "canceled", "request canceled", requestID)
	default:
		slog.Warn("request failed", "requestId", requestID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "internal error", requestID)
	}
}

// FieldIssues converts record validation failures to response issues.
func FieldIssues(err error) []ValidationIssue {
	issues := records.Issues(err)
	out := make([]ValidationIssue, 0, len(issues))
	for _, issue := range issues {
		out = append(out, ValidationIssue{Field: issue.Field, Reason: issue.Reason})
	}
	return out
}
