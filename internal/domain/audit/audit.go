package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"hrminsights/internal/platform/querier"
)

// Event is one write forwarded to the backend on a user's behalf.
type Event struct {
	ID         string          `json:"id"`
	ActorID    string          `json:"actorId"`
	Action     string          `json:"action"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	RequestID  string          `json:"requestId"`
	IP         string          `json:"ip"`
	CreatedAt  time.Time       `json:"createdAt"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// Filter narrows a listing. From is inclusive and To exclusive; zero bounds are open.
type Filter struct {
	Action     string
	EntityType string
	ActorID    string
	From       time.Time
	To         time.Time
}

func (f Filter) match(evt Event) bool {
	return (f.Action == "" || evt.Action == f.Action) &&
		(f.EntityType == "" || evt.EntityType == f.EntityType) &&
		(f.ActorID == "" || evt.ActorID == f.ActorID) &&
		(f.From.IsZero() || !evt.CreatedAt.Before(f.From)) &&
		(f.To.IsZero() || evt.CreatedAt.Before(f.To))
}

type Store interface {
	Record(ctx context.Context, evt Event) error
	List(ctx context.Context, filter Filter, includePayload bool, limit, offset int) ([]Event, int, error)
}

// Stamp fills the id and time of a new event.
func Stamp(evt Event, now time.Time) Event {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.CreatedAt.IsZero() {
		evt.CreatedAt = now.UTC()
	}
	return evt
}

type PostgresStore struct {
	DB querier.Querier
}

func NewPostgresStore(db querier.Querier) *PostgresStore {
	return &PostgresStore{DB: db}
}

func (s *PostgresStore) Record(ctx context.Context, evt Event) error {
	evt = Stamp(evt, time.Now())
	var payload []byte
	if len(evt.Payload) > 0 {
		payload = evt.Payload
	}
	_, err := s.DB.Exec(ctx, `
    INSERT INTO audit_events (id, actor_user_id, action, entity_type, entity_id, request_id, ip, payload_json, created_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
  `, evt.ID, evt.ActorID, evt.Action, evt.EntityType, evt.EntityID, evt.RequestID, evt.IP, payload, evt.CreatedAt)
	return err
}

func (s *PostgresStore) List(ctx context.Context, filter Filter, includePayload bool, limit, offset int) ([]Event, int, error) {
	where, args := buildFilter(filter)

	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM audit_events"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	selectCols := "id, actor_user_id, action, entity_type, entity_id, request_id, ip, created_at"
	if includePayload {
		selectCols += ", payload_json"
	}
	query := "SELECT " + selectCols + " FROM audit_events" + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var evt Event
		dest := []any{&evt.ID, &evt.ActorID, &evt.Action, &evt.EntityType, &evt.EntityID, &evt.RequestID, &evt.IP, &evt.CreatedAt}
		if includePayload {
			dest = append(dest, &evt.Payload)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, 0, err
		}
		out = append(out, evt)
	}
	return out, total, rows.Err()
}

func buildFilter(filter Filter) (string, []any) {
	var clauses []string
	var args []any
	if filter.Action != "" {
		args = append(args, filter.Action)
		clauses = append(clauses, fmt.Sprintf("action = $%d", len(args)))
	}
	if filter.EntityType != "" {
		args = append(args, filter.EntityType)
		clauses = append(clauses, fmt.Sprintf("entity_type = $%d", len(args)))
	}
	if filter.ActorID != "" {
		args = append(args, filter.ActorID)
		clauses = append(clauses, fmt.Sprintf("actor_user_id = $%d", len(args)))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		clauses = append(clauses, fmt.Sprintf("created_at < $%d", len(args)))
	}
	where := ""
	for i, c := range clauses {
		if i == 0 {
			where = " WHERE " + c
			continue
		}
		where += " AND " + c
	}
	return where, args
}

// MemoryStore keeps the trail in process when no database is configured.
type MemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Record(_ context.Context, evt Event) error {
	evt = Stamp(evt, time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evt)
	return nil
}

func (s *MemoryStore) List(_ context.Context, filter Filter, includePayload bool, limit, offset int) ([]Event, int, error) {
	s.mu.RLock()
	var matched []Event
	for _, evt := range s.events {
		if !filter.match(evt) {
			continue
		}
		if !includePayload {
			evt.Payload = nil
		}
		matched = append(matched, evt)
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	total := len(matched)
	if offset >= total {
		return []Event{}, total, nil
	}
	end := total
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return matched[offset:end], total, nil
}
