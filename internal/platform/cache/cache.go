// Package cache keeps backend collection snapshots in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "hrminsights:snapshot:"

// Snapshot is one collection body as the backend returned it.
type Snapshot struct {
	FetchedAt time.Time       `json:"fetchedAt"`
	Data      json.RawMessage `json:"data"`
}

// Age is the time since the snapshot was fetched.
func (s Snapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.FetchedAt)
}

type Redis struct {
	client *redis.Client
	// Keep is how long Redis holds a snapshot before evicting it.
	Keep time.Duration
}

// NewRedis connects and pings. An empty address returns nil, which every
// method treats as a disabled cache.
func NewRedis(ctx context.Context, addr, password string, keep time.Duration) (*Redis, error) {
	if addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
		PoolSize: 20,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Redis{client: client, Keep: keep}, nil
}

func (r *Redis) Get(ctx context.Context, collection string) (Snapshot, bool, error) {
	if r == nil {
		return Snapshot{}, false, nil
	}
	val, err := r.client.Get(ctx, keyPrefix+collection).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, err
	}
	var snap Snapshot
	if err := json.Unmarshal(val, &snap); err != nil {
		return Snapshot{}, false, err
	}
	return snap, true, nil
}

func (r *Redis) Set(ctx context.Context, collection string, snap Snapshot) error {
	if r == nil {
		return nil
	}
	body, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, keyPrefix+collection, body, r.Keep).Err()
}

func (r *Redis) Delete(ctx context.Context, collections ...string) error {
	if r == nil || len(collections) == 0 {
		return nil
	}
	keys := make([]string, 0, len(collections))
	for _, c := range collections {
		keys = append(keys, keyPrefix+c)
	}
	return r.client.Del(ctx, keys...).Err()
}

func (r *Redis) Ping(ctx context.Context) error {
	if r == nil {
		return nil
	}
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	if r == nil {
		return nil
	}
	return r.client.Close()
}

// Memory is an in-process snapshot store with the same contract as Redis.
type Memory struct {
	mu    sync.Mutex
	items map[string]Snapshot
}

func NewMemory() *Memory {
	return &Memory{items: map[string]Snapshot{}}
}

func (m *Memory) Get(_ context.Context, collection string) (Snapshot, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.items[collection]
	return snap, ok, nil
}

func (m *Memory) Set(_ context.Context, collection string, snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[collection] = snap
	return nil
}

func (m *Memory) Delete(_ context.Context, collections ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range collections {
		delete(m.items, c)
	}
	return nil
}
