package reports

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"hrminsights/internal/domain/dashboards"
	"hrminsights/internal/platform/crypto"
	"hrminsights/internal/platform/email"
	"hrminsights/internal/platform/jobs"
	"hrminsights/internal/platform/metrics"
)

// TableSource builds the table an export renders.
type TableSource interface {
	Table(ctx context.Context, req dashboards.TableRequest) (dashboards.Table, error)
}

// Enqueuer runs export work in the background.
type Enqueuer interface {
	Enqueue(jobType, owner string, run jobs.Runner) bool
}

type Options struct {
	Dir      string
	MailFrom string
}

type Service struct {
	Store   StoreAPI
	Tables  TableSource
	Jobs    Enqueuer
	Crypto  *crypto.Service
	Mailer  email.Mailer
	Metrics *metrics.Collector
	opts    Options
	now     func() time.Time
}

func NewService(store StoreAPI, tables TableSource, queue Enqueuer, crypt *crypto.Service, mailer email.Mailer, m *metrics.Collector, opts Options) *Service {
	return &Service{
		Store:   store,
		Tables:  tables,
		Jobs:    queue,
		Crypto:  crypt,
		Mailer:  mailer,
		Metrics: m,
		opts:    opts,
		now:     time.Now,
	}
}

// ExportRequest asks for one table in one format.
type ExportRequest struct {
	Table       dashboards.TableRequest
	Format      string
	Params      url.Values
	RequestedBy string
	Email       string
}

// Request records a queued run and hands it to the job queue. The returned
// run is in status queued, or failed with ErrQueueFull when the queue
// rejected it.
func (s *Service) Request(ctx context.Context, req ExportRequest) (ExportRun, error) {
	if !ValidFormat(req.Format) {
		return ExportRun{}, fmt.Errorf("%w: %q", ErrInvalidFormat, req.Format)
	}
	run := ExportRun{
		ID:             uuid.NewString(),
		Kind:           req.Table.Kind,
		Format:         req.Format,
		Status:         StatusQueued,
		RequestedBy:    req.RequestedBy,
		RequestedEmail: req.Email,
		Params:         flattenParams(req.Params),
		CreatedAt:      s.now().UTC(),
	}
	if err := s.Store.Create(ctx, run); err != nil {
		return ExportRun{}, err
	}

	table := req.Table
	ok := s.Jobs.Enqueue(JobExport, run.RequestedBy, func(ctx context.Context) (any, error) {
		return s.run(ctx, run.ID, table)
	})
	if !ok {
		run = s.fail(ctx, run, ErrQueueFull)
		return run, ErrQueueFull
	}
	return run, nil
}

func (s *Service) run(ctx context.Context, id string, req dashboards.TableRequest) (any, error) {
	run, err := s.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	started := s.now().UTC()
	run.Status = StatusRunning
	run.StartedAt = &started
	if err := s.Store.Update(ctx, run); err != nil {
		return nil, err
	}

	run, err = s.produce(ctx, run, req)
	if err != nil {
		run = s.fail(ctx, run, err)
		return map[string]any{"exportId": run.ID, "kind": run.Kind}, err
	}
	s.Metrics.ExportFinished(false)
	s.notify(ctx, run)
	return map[string]any{
		"exportId":  run.ID,
		"kind":      run.Kind,
		"format":    run.Format,
		"rows":      run.RowCount,
		"sizeBytes": run.SizeBytes,
	}, nil
}

func (s *Service) produce(ctx context.Context, run ExportRun, req dashboards.TableRequest) (ExportRun, error) {
	table, err := s.Tables.Table(ctx, req)
	if err != nil {
		return run, err
	}
	rendered, err := Render(table, run.Format)
	if err != nil {
		return run, err
	}
	body, err := s.Crypto.Encrypt(rendered.Body)
	if err != nil {
		return run, err
	}

	encrypted := s.Crypto.Configured()
	name := run.ID + "." + rendered.Extension
	if encrypted {
		name += ".enc"
	}
	if err := os.MkdirAll(s.opts.Dir, 0o700); err != nil {
		return run, err
	}
	path := filepath.Join(s.opts.Dir, name)
	if err := os.WriteFile(path, body, 0o600); err != nil {
		return run, err
	}

	completed := s.now().UTC()
	run.Status = StatusCompleted
	run.FileName = fmt.Sprintf("%s-%s.%s", run.Kind, run.CreatedAt.Format("20060102-150405"), rendered.Extension)
	run.FilePath = path
	run.Encrypted = encrypted
	run.SizeBytes = int64(len(body))
	run.RowCount = len(table.Rows)
	run.CompletedAt = &completed
	if err := s.Store.Update(ctx, run); err != nil {
		_ = os.Remove(path)
		return run, err
	}
	return run, nil
}

func (s *Service) fail(ctx context.Context, run ExportRun, cause error) ExportRun {
	completed := s.now().UTC()
	run.Status = StatusFailed
	run.Error = cause.Error()
	run.CompletedAt = &completed
	if err := s.Store.Update(ctx, run); err != nil {
		slog.Warn("export run update failed", "exportId", run.ID, "err", err)
	}
	s.Metrics.ExportFinished(true)
	return run
}

func (s *Service) notify(ctx context.Context, run ExportRun) {
	if s.Mailer == nil || run.RequestedEmail == "" {
		return
	}
	msg := email.Message{
		From:    s.opts.MailFrom,
		To:      run.RequestedEmail,
		Subject: fmt.Sprintf("Your %s export is ready", run.Kind),
		Text: fmt.Sprintf("The %s export you requested (%s, %d rows) is ready.\n\nDownload it from /api/v1/reports/exports/%s/download\n",
			run.Kind, run.Format, run.RowCount, run.ID),
	}
	if err := s.Mailer.Send(ctx, msg); err != nil {
		slog.Warn("export notification failed", "exportId", run.ID, "err", err)
	}
}

func (s *Service) Get(ctx context.Context, id string) (ExportRun, error) {
	return s.Store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filter RunFilter, limit, offset int) ([]ExportRun, int, error) {
	return s.Store.List(ctx, filter, limit, offset)
}

// Open returns the decrypted file body of a completed run.
func (s *Service) Open(ctx context.Context, id string) (ExportRun, []byte, error) {
	run, err := s.Store.Get(ctx, id)
	if err != nil {
		return ExportRun{}, nil, err
	}
	if run.Status != StatusCompleted {
		return run, nil, ErrNotReady
	}
	body, err := os.ReadFile(run.FilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return run, nil, ErrNotFound
		}
		return run, nil, err
	}
	if !run.Encrypted {
		return run, body, nil
	}
	if !s.Crypto.Configured() {
		return run, nil, errors.New("export is encrypted but DATA_ENCRYPTION_KEY is not set")
	}
	plain, err := s.Crypto.Decrypt(body)
	if err != nil {
		return run, nil, err
	}
	return run, plain, nil
}

// Cleanup removes finished runs created before cutoff together with their
// files. Queued and running exports are left alone.
func (s *Service) Cleanup(ctx context.Context, cutoff time.Time) (int, error) {
	runs, err := s.Store.OlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, run := range runs {
		if !run.Done() {
			continue
		}
		if run.FilePath != "" {
			if err := os.Remove(run.FilePath); err != nil && !errors.Is(err, os.ErrNotExist) {
				slog.Warn("export file removal failed", "exportId", run.ID, "err", err)
				continue
			}
		}
		if err := s.Store.Delete(ctx, run.ID); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func flattenParams(params url.Values) map[string]string {
	out := make(map[string]string, len(params))
	for k := range params {
		if v := params.Get(k); v != "" {
			out[k] = v
		}
	}
	return out
}
