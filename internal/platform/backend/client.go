// Package backend is the HTTP client for the HR backend that owns every
// record the dashboards read.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"hrminsights/internal/platform/cache"
	"hrminsights/internal/platform/metrics"
)

const maxErrorBody = 512

// StatusError is a non-2xx backend response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("backend %s %s: status %d", e.Method, e.Path, e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Temporary reports whether retrying could help.
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// StaleError wraps a failed fetch that was answered from an older snapshot.
type StaleError struct {
	Collection string
	Age        time.Duration
	Err        error
}

func (e *StaleError) Error() string {
	return fmt.Sprintf("%s served from snapshot %s old: %v", e.Collection, e.Age.Round(time.Second), e.Err)
}

func (e *StaleError) Unwrap() error { return e.Err }

func (e *StaleError) Stale() bool { return true }

// SnapshotStore holds collection snapshots between fetches.
type SnapshotStore interface {
	Get(ctx context.Context, collection string) (cache.Snapshot, bool, error)
	Set(ctx context.Context, collection string, snap cache.Snapshot) error
	Delete(ctx context.Context, collections ...string) error
}

type Options struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	// Retries is the number of extra attempts for a failed GET.
	Retries  int
	CacheTTL time.Duration
	StaleTTL time.Duration
	// HealthPath is probed by Ping.
	HealthPath string
}

type Client struct {
	base     *url.URL
	token    string
	http     *http.Client
	retries  int
	cache    SnapshotStore
	ttl      time.Duration
	staleTTL time.Duration
	health   string
	metrics  *metrics.Collector
	now      func() time.Time
	backoff  time.Duration
}

// New builds a client. store may be nil to disable snapshot caching.
func New(opts Options, store SnapshotStore, m *metrics.Collector) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid backend url %q", opts.BaseURL)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	health := opts.HealthPath
	if health == "" {
		health = "/health"
	}
	return &Client{
		base:  base,
		token: opts.Token,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		retries:  max(opts.Retries, 0),
		cache:    store,
		ttl:      opts.CacheTTL,
		staleTTL: opts.StaleTTL,
		health:   health,
		metrics:  m,
		now:      time.Now,
		backoff:  200 * time.Millisecond,
	}, nil
}

func (c *Client) endpoint(path string) string {
	return c.base.String() + path
}

// do sends one request and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.RecordUpstream(true, time.Since(start))
		return nil, fmt.Errorf("backend %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	c.metrics.RecordUpstream(err != nil || resp.StatusCode >= 400, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("backend %s %s: read body: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := strings.TrimSpace(string(payload))
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return nil, &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: snippet}
	}
	return payload, nil
}

// get retries transport failures and temporary statuses.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.backoff * time.Duration(attempt)):
			}
		}
		body, err := c.do(ctx, http.MethodGet, path, nil)
		if err == nil {
			return body, nil
		}
		lastErr = err
		var statusErr *StatusError
		if errors.As(err, &statusErr) && !statusErr.Temporary() {
			break
		}
		if ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

// Ping reports whether the backend answers its health path below 500.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, c.health, nil)
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode < 500 {
		return nil
	}
	return err
}

// collectionBody returns the JSON array for a collection, preferring a fresh
// snapshot and falling back to a stale one when the fetch fails.
func (c *Client) collectionBody(ctx context.Context, collection, path string) ([]byte, error) {
	snap, cached := c.cached(ctx, collection)
	if cached && c.ttl > 0 && snap.Age(c.now()) < c.ttl {
		c.metrics.CacheHit()
		return snap.Data, nil
	}
	if c.cache != nil {
		c.metrics.CacheMiss()
	}

	body, err := c.fetch(ctx, collection, path)
	if err == nil {
		return body, nil
	}
	if cached && ctx.Err() == nil {
		age := snap.Age(c.now())
		if c.staleTTL <= 0 || age < c.staleTTL {
			c.metrics.CacheStale()
			return snap.Data, &StaleError{Collection: collection, Age: age, Err: err}
		}
	}
	return nil, err
}

func (c *Client) cached(ctx context.Context, collection string) (cache.Snapshot, bool) {
	if c.cache == nil {
		return cache.Snapshot{}, false
	}
	snap, ok, err := c.cache.Get(ctx, collection)
	if err != nil {
		slog.Warn("snapshot read failed", "collection", collection, "err", err)
		return cache.Snapshot{}, false
	}
	return snap, ok
}

// fetch always goes to the backend and stores the result as a snapshot.
func (c *Client) fetch(ctx context.Context, collection, path string) ([]byte, error) {
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	data, err := unwrapList(body)
	if err != nil {
		return nil, fmt.Errorf("backend %s: %w", path, err)
	}
	if c.cache != nil {
		if err := c.cache.Set(ctx, collection, cache.Snapshot{FetchedAt: c.now(), Data: data}); err != nil {
			slog.Warn("snapshot write failed", "collection", collection, "err", err)
		}
	}
	return data, nil
}

// unwrapList accepts a bare JSON array or an object carrying the array under
// "data" or "items".
func unwrapList(body []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return json.RawMessage("[]"), nil
	}
	if trimmed[0] == '[' {
		return json.RawMessage(trimmed), nil
	}
	if trimmed[0] != '{' {
		return nil, errors.New("expected a JSON array")
	}
	var wrapper struct {
		Data  json.RawMessage `json:"data"`
		Items json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(trimmed, &wrapper); err != nil {
		return nil, err
	}
	for _, candidate := range []json.RawMessage{wrapper.Data, wrapper.Items} {
		if c := bytes.TrimSpace(candidate); len(c) > 0 && c[0] == '[' {
			return json.RawMessage(c), nil
		}
	}
	return nil, errors.New("expected a JSON array under data or items")
}
