package reports

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"hrminsights/internal/platform/querier"
)

// StoreAPI persists export runs.
type StoreAPI interface {
	Create(ctx context.Context, run ExportRun) error
	Update(ctx context.Context, run ExportRun) error
	Get(ctx context.Context, id string) (ExportRun, error)
	List(ctx context.Context, filter RunFilter, limit, offset int) ([]ExportRun, int, error)
	OlderThan(ctx context.Context, cutoff time.Time) ([]ExportRun, error)
	Delete(ctx context.Context, id string) error
}

type PostgresStore struct {
	DB querier.Querier
}

func NewPostgresStore(db querier.Querier) *PostgresStore {
	return &PostgresStore{DB: db}
}

const runColumns = "id, kind, format, status, requested_by, requested_email, params_json, file_name, file_path, encrypted, size_bytes, row_count, error, created_at, started_at, completed_at"

func (s *PostgresStore) Create(ctx context.Context, run ExportRun) error {
	params, err := json.Marshal(run.Params)
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(ctx, `
		INSERT INTO export_runs (`+runColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
	`, run.ID, run.Kind, run.Format, run.Status, run.RequestedBy, run.RequestedEmail, params,
		run.FileName, run.FilePath, run.Encrypted, run.SizeBytes, run.RowCount, run.Error,
		run.CreatedAt, run.StartedAt, run.CompletedAt)
	return err
}

func (s *PostgresStore) Update(ctx context.Context, run ExportRun) error {
	tag, err := s.DB.Exec(ctx, `
		UPDATE export_runs
		SET status = $2, file_name = $3, file_path = $4, encrypted = $5, size_bytes = $6,
		    row_count = $7, error = $8, started_at = $9, completed_at = $10
		WHERE id = $1
	`, run.ID, run.Status, run.FileName, run.FilePath, run.Encrypted, run.SizeBytes,
		run.RowCount, run.Error, run.StartedAt, run.CompletedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (ExportRun, error) {
	run, err := scanRun(s.DB.QueryRow(ctx, "SELECT "+runColumns+" FROM export_runs WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return ExportRun{}, ErrNotFound
	}
	return run, err
}

func (s *PostgresStore) List(ctx context.Context, filter RunFilter, limit, offset int) ([]ExportRun, int, error) {
	where, args := buildRunFilter(filter)

	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM export_runs"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := "SELECT " + runColumns + " FROM export_runs" + where +
		" ORDER BY created_at DESC LIMIT $" + strconv.Itoa(len(args)+1) + " OFFSET $" + strconv.Itoa(len(args)+2)
	args = append(args, limit, offset)
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var runs []ExportRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, 0, err
		}
		runs = append(runs, run)
	}
	return runs, total, rows.Err()
}

func (s *PostgresStore) OlderThan(ctx context.Context, cutoff time.Time) ([]ExportRun, error) {
	rows, err := s.DB.Query(ctx, "SELECT "+runColumns+" FROM export_runs WHERE created_at < $1 ORDER BY created_at", cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []ExportRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	_, err := s.DB.Exec(ctx, "DELETE FROM export_runs WHERE id = $1", id)
	return err
}

func buildRunFilter(filter RunFilter) (string, []any) {
	where := ""
	var args []any
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		if where == "" {
			where = " WHERE "
		} else {
			where += " AND "
		}
		where += column + " = $" + strconv.Itoa(len(args))
	}
	add("requested_by", filter.RequestedBy)
	add("status", filter.Status)
	add("kind", filter.Kind)
	return where, args
}

func scanRun(row pgx.Row) (ExportRun, error) {
	var run ExportRun
	var params []byte
	if err := row.Scan(&run.ID, &run.Kind, &run.Format, &run.Status, &run.RequestedBy, &run.RequestedEmail,
		&params, &run.FileName, &run.FilePath, &run.Encrypted, &run.SizeBytes, &run.RowCount, &run.Error,
		&run.CreatedAt, &run.StartedAt, &run.CompletedAt); err != nil {
		return ExportRun{}, err
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &run.Params); err != nil {
			return ExportRun{}, err
		}
	}
	return run, nil
}

// MemoryStore keeps runs in process. Used when DATABASE_URL is unset and in tests.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string]ExportRun
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]ExportRun)}
}

func (s *MemoryStore) Create(_ context.Context, run ExportRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run
	return nil
}

func (s *MemoryStore) Update(_ context.Context, run ExportRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[run.ID]; !ok {
		return ErrNotFound
	}
	s.runs[run.ID] = run
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (ExportRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return ExportRun{}, ErrNotFound
	}
	return run, nil
}

func (s *MemoryStore) List(_ context.Context, filter RunFilter, limit, offset int) ([]ExportRun, int, error) {
	s.mu.RLock()
	var matched []ExportRun
	for _, run := range s.runs {
		if filter.RequestedBy != "" && run.RequestedBy != filter.RequestedBy {
			continue
		}
		if filter.Status != "" && run.Status != filter.Status {
			continue
		}
		if filter.Kind != "" && run.Kind != filter.Kind {
			continue
		}
		matched = append(matched, run)
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	total := len(matched)
	if offset >= total {
		return []ExportRun{}, total, nil
	}
	end := total
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return matched[offset:end], total, nil
}

func (s *MemoryStore) OlderThan(_ context.Context, cutoff time.Time) ([]ExportRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var runs []ExportRun
	for _, run := range s.runs {
		if run.CreatedAt.Before(cutoff) {
			runs = append(runs, run)
		}
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].CreatedAt.Before(runs[j].CreatedAt) })
	return runs, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, id)
	return nil
}
