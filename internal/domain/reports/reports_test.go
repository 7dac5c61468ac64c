package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"net/url"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"hrminsights/internal/domain/dashboards"
	"hrminsights/internal/platform/crypto"
	"hrminsights/internal/platform/email"
	"hrminsights/internal/platform/jobs"
	"hrminsights/internal/platform/metrics"
)

var generated = time.Date(2024, 3, 10, 6, 0, 0, 0, time.UTC)

func sampleTable() dashboards.Table {
	return dashboards.Table{
		Kind:        dashboards.TablePerformance,
		Title:       "Performance",
		Columns:     []string{"Employee", "Designation", "Score"},
		Rows:        [][]string{{"Esha Rao", "Engineer", "82"}, {"Ravi, K", "Analyst", "67.5"}},
		GeneratedAt: generated,
	}
}

type fakeTables struct {
	table dashboards.Table
	err   error
	got   []dashboards.TableRequest
}

func (f *fakeTables) Table(_ context.Context, req dashboards.TableRequest) (dashboards.Table, error) {
	f.got = append(f.got, req)
	return f.table, f.err
}

// syncQueue runs jobs inline so tests observe the finished run.
type syncQueue struct {
	reject bool
	types  []string
}

func (q *syncQueue) Enqueue(jobType, _ string, run jobs.Runner) bool {
	q.types = append(q.types, jobType)
	if q.reject {
		return false
	}
	_, _ = run(context.Background())
	return true
}


type recordingMailer struct {
	mu   sync.Mutex
	sent []email.Message
}

func (m *recordingMailer) Send(_ context.Context, msg email.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func newTestService(t *testing.T, secret string, tables *fakeTables, queue Enqueuer) (*Service, *recordingMailer, *metrics.Collector) {
	t.Helper()
	crypt, err := crypto.New(secret)
	require.NoError(t, err)
	mailer := &recordingMailer{}
	m := metrics.New()
	svc := NewService(NewMemoryStore(), tables, queue, crypt, mailer, m, Options{Dir: t.TempDir(), MailFrom: "reports@example.com"})
	svc.now = func() time.Time { return generated }
	return svc, mailer, m
}

func TestRenderCSV(t *testing.T) {
	out, err := Render(sampleTable(), FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "csv", out.Extension)

	records, err := csv.NewReader(bytes.NewReader(out.Body)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"Employee", "Designation", "Score"}, records[0])
	assert.Equal(t, "Ravi, K", records[2][0])
}

func TestRenderXLSX(t *testing.T) {
	out, err := Render(sampleTable(), FormatXLSX)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out.Body))
	require.NoError(t, err)
	defer f.Close()

	header, err := f.GetCellValue(sheetName, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Employee", header)
	name, err := f.GetCellValue(sheetName, "A2")
	require.NoError(t, err)
	assert.Equal(t, "Esha Rao", name)
	score, err := f.GetCellValue(sheetName, "C3")
	require.NoError(t, err)
	assert.Equal(t, "67.5", score)
}

func TestRenderPDF(t *testing.T) {
	out, err := Render(sampleTable(), FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", out.ContentType)
	assert.True(t, bytes.HasPrefix(out.Body, []byte("%PDF-")))
}

func TestRenderRejectsUnknownFormat(t *testing.T) {
	_, err := Render(sampleTable(), "docx")
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestCellValueKeepsNumbersNumeric(t *testing.T) {
	assert.Equal(t, 82.0, cellValue("82"))
	assert.Equal(t, "1e5", cellValue("1e5"))
	assert.Equal(t, "2024-03-10", cellValue("2024-03-10"))
}

func TestRequestCompletesEncryptedExport(t *testing.T) {
	tables := &fakeTables{table: sampleTable()}
	queue := &syncQueue{}
	svc, mailer, m := newTestService(t, "a-sufficiently-long-secret-value", tables, queue)

	req := dashboards.TableRequest{Kind: dashboards.TablePerformance}
	run, err := svc.Request(context.Background(), ExportRequest{
		Table:       req,
		Format:      FormatCSV,
		Params:      url.Values{"designation": {"Engineer"}, "empty": {""}},
		RequestedBy: "u-1",
		Email:       "esha@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, run.Status)
	assert.Equal(t, map[string]string{"designation": "Engineer"}, run.Params)
	assert.Equal(t, []string{JobExport}, queue.types)
	require.Len(t, tables.got, 1)

	stored, err := svc.Get(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, stored.Status)
	assert.True(t, stored.Encrypted)
	assert.Equal(t, 2, stored.RowCount)
	assert.Equal(t, "performance-20240310-060000.csv", stored.FileName)
	require.NotNil(t, stored.StartedAt)
	require.NotNil(t, stored.CompletedAt)

	raw, err := os.ReadFile(stored.FilePath)
	require.NoError(t, err)
	assert.False(t, bytes.Contains(raw, []byte("Esha")))

	_, body, err := svc.Open(context.Background(), run.ID)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(body, []byte("Employee,Designation,Score\n")))

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "esha@example.com", mailer.sent[0].To)
	assert.Contains(t, mailer.sent[0].Text, run.ID)
	assert.EqualValues(t, 1, m.Snapshot()["exportsCompletedTotal"])
}

func TestRequestWithoutKeyStoresPlainFile(t *testing.T) {
	svc, mailer, _ := newTestService(t, "", &fakeTables{table: sampleTable()}, &syncQueue{})
	run, err := svc.Request(context.Background(), ExportRequest{
		Table:  dashboards.TableRequest{Kind: dashboards.TablePerformance},
		Format: FormatXLSX,
	})
	require.NoError(t, err)

	stored, body, err := svc.Open(context.Background(), run.ID)
	require.NoError(t, err)
	assert.False(t, stored.Encrypted)
	assert.Equal(t, int64(len(body)), stored.SizeBytes)
	assert.Empty(t, mailer.sent)
}

func TestRequestRecordsFailure(t *testing.T) {
	boom := errors.New("backend down")
	svc, mailer, m := newTestService(t, "", &fakeTables{err: boom}, &syncQueue{})
	run, err := svc.Request(context.Background(), ExportRequest{
		Table:  dashboards.TableRequest{Kind: dashboards.TableSLA},
		Format: FormatPDF,
		Email:  "x@example.com",
	})
	require.NoError(t, err)

	stored, err := svc.Get(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, stored.Status)
	assert.Equal(t, "backend down", stored.Error)
	assert.Empty(t, mailer.sent)
	assert.EqualValues(t, 1, m.Snapshot()["exportsFailedTotal"])

	_, _, err = svc.Open(context.Background(), run.ID)
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestRequestValidationAndFullQueue(t *testing.T) {
	svc, _, _ := newTestService(t, "", &fakeTables{table: sampleTable()}, &syncQueue{reject: true})

	_, err := svc.Request(context.Background(), ExportRequest{Format: "docx"})
	assert.ErrorIs(t, err, ErrInvalidFormat)

	run, err := svc.Request(context.Background(), ExportRequest{
		Table:  dashboards.TableRequest{Kind: dashboards.TableProjects},
		Format: FormatCSV,
	})
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, StatusFailed, run.Status)
}

func TestOpenUnknownRun(t *testing.T) {
	svc, _, _ := newTestService(t, "", &fakeTables{}, &syncQueue{})
	_, _, err := svc.Open(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCleanupRemovesFinishedRuns(t *testing.T) {
	svc, _, _ := newTestService(t, "", &fakeTables{table: sampleTable()}, &syncQueue{})
	ctx := context.Background()

	old, err := svc.Request(ctx, ExportRequest{Table: dashboards.TableRequest{Kind: dashboards.TablePerformance}, Format: FormatCSV})
	require.NoError(t, err)
	stored, err := svc.Get(ctx, old.ID)
	require.NoError(t, err)

	pending := ExportRun{ID: "pending", Status: StatusQueued, CreatedAt: generated.Add(-48 * time.Hour)}
	require.NoError(t, svc.Store.Create(ctx, pending))

	svc.now = func() time.Time { return generated.Add(72 * time.Hour) }
	fresh, err := svc.Request(ctx, ExportRequest{Table: dashboards.TableRequest{Kind: dashboards.TablePerformance}, Format: FormatCSV})
	require.NoError(t, err)

	removed, err := svc.Cleanup(ctx, generated.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = svc.Get(ctx, old.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = os.Stat(stored.FilePath)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	_, err = svc.Get(ctx, pending.ID)
	assert.NoError(t, err)
	_, err = svc.Get(ctx, fresh.ID)
	assert.NoError(t, err)
}

func TestMemoryStoreListFiltersAndPages(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	for i, owner := range []string{"a", "b", "a", "a"} {
		require.NoError(t, store.Create(ctx, ExportRun{
			ID:          string(rune('1' + i)),
			RequestedBy: owner,
			Status:      StatusCompleted,
			CreatedAt:   generated.Add(time.Duration(i) * time.Minute),
		}))
	}

	runs, total, err := store.List(ctx, RunFilter{RequestedBy: "a"}, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, runs, 2)
	assert.Equal(t, "4", runs[0].ID)
	assert.Equal(t, "3", runs[1].ID)

	runs, _, err = store.List(ctx, RunFilter{RequestedBy: "a"}, 2, 5)
	require.NoError(t, err)
	assert.Empty(t, runs)

	assert.ErrorIs(t, store.Update(ctx, ExportRun{ID: "nope"}), ErrNotFound)
}

func TestBuildRunFilter(t *testing.T) {
	where, args := buildRunFilter(RunFilter{RequestedBy: "u1", Kind: "sla"})
	assert.Equal(t, " WHERE requested_by = $1 AND kind = $2", where)
	assert.Equal(t, []any{"u1", "sla"}, args)

	where, args = buildRunFilter(RunFilter{})
	assert.Empty(t, where)
	assert.Empty(t, args)
}
