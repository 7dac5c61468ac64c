package reports

import (
	"errors"
	"time"
)

const (
	FormatPDF  = "pdf"
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"

	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"

	JobExport    = "report_export"
	JobRetention = "export_retention"
)

var (
	Formats  = []string{FormatPDF, FormatXLSX, FormatCSV}
	Statuses = []string{StatusQueued, StatusRunning, StatusCompleted, StatusFailed}

	ErrNotFound      = errors.New("export run not found")
	ErrInvalidFormat = errors.New("unsupported export format")
	ErrNotReady      = errors.New("export is not completed")
	ErrQueueFull     = errors.New("export queue is full")
)

// ExportRun tracks one asynchronous export from request to file.
type ExportRun struct {
	ID             string            `json:"id"`
	Kind           string            `json:"kind"`
	Format         string            `json:"format"`
	Status         string            `json:"status"`
	RequestedBy    string            `json:"requestedBy"`
	RequestedEmail string            `json:"-"`
	Params         map[string]string `json:"params"`
	FileName       string            `json:"fileName,omitempty"`
	FilePath       string            `json:"-"`
	Encrypted      bool              `json:"encrypted"`
	SizeBytes      int64             `json:"sizeBytes"`
	RowCount       int               `json:"rowCount"`
	Error          string            `json:"error,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
	StartedAt      *time.Time        `json:"startedAt,omitempty"`
	CompletedAt    *time.Time        `json:"completedAt,omitempty"`
}

// Done reports whether the run reached a terminal status.
func (r ExportRun) Done() bool {
	return r.Status == StatusCompleted || r.Status == StatusFailed
}

type RunFilter struct {
	RequestedBy string
	Status      string
	Kind        string
}

func ValidFormat(format string) bool {
	for _, f := range Formats {
		if f == format {
			return true
		}
	}
	return false
}
