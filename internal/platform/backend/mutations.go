package backend

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"

	"hrminsights/internal/domain/dashboards"
)

// Mutation is a write forwarded to the backend. Affects names the
// collection whose snapshot is replaced once the write succeeds.
type Mutation struct {
	Method  string
	Path    string
	Affects string
}

func CreateEmployee() Mutation {
	return Mutation{Method: http.MethodPost, Path: "/employees", Affects: dashboards.CollectionEmployees}
}

func UpdateEmployee(id string) Mutation {
	return Mutation{Method: http.MethodPut, Path: "/employees/" + url.PathEscape(id), Affects: dashboards.CollectionEmployees}
}

func CreateProject() Mutation {
	return Mutation{Method: http.MethodPost, Path: "/projects", Affects: dashboards.CollectionProjects}
}

func AssignTask() Mutation {
	return Mutation{Method: http.MethodPost, Path: "/tasks", Affects: dashboards.CollectionTasks}
}

func AssignRole(roleID string) Mutation {
	return Mutation{Method: http.MethodPut, Path: "/roles/" + url.PathEscape(roleID) + "/assign", Affects: dashboards.CollectionRoles}
}

// PublishAnnouncement touches no collection the dashboards read.
func PublishAnnouncement() Mutation {
	return Mutation{Method: http.MethodPost, Path: "/announcements"}
}

// Apply forwards payload and returns the backend's response body. A body that
// is not JSON comes back as a JSON string. Writes are never retried.
func (c *Client) Apply(ctx context.Context, m Mutation, payload json.RawMessage) (json.RawMessage, error) {
	body, err := c.do(ctx, m.Method, m.Path, payload)
	if err != nil {
		return nil, err
	}
	if m.Affects != "" {
		c.Refresh(ctx, m.Affects)
	}
	if len(body) == 0 {
		return json.RawMessage("null"), nil
	}
	if !json.Valid(body) {
		quoted, err := json.Marshal(string(body))
		if err != nil {
			return nil, err
		}
		return quoted, nil
	}
	return json.RawMessage(body), nil
}

// Refresh drops a collection's snapshot and fetches it again so the next
// screen sees the write. Failures are logged; the next read retries.
func (c *Client) Refresh(ctx context.Context, collection string) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Delete(ctx, collection); err != nil {
		slog.Warn("snapshot invalidate failed", "collection", collection, "err", err)
	}
	path, ok := collectionPaths[collection]
	if !ok {
		return
	}
	if _, err := c.fetch(ctx, collection, path); err != nil {
		slog.Warn("snapshot refetch failed", "collection", collection, "err", err)
	}
}
