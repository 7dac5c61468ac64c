package records

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	DesignationAdministrator = "Administrator"
	DesignationManager       = "Manager"
	DesignationEmployee      = "Employee"
	DesignationIntern        = "Intern"

	TaskStatusCompleted = "completed"

	SeverityLow      = "Low"
	SeverityMedium   = "Medium"
	SeverityHigh     = "High"
	SeverityCritical = "Critical"

	RiskStatusRaised   = "Raised"
	RiskStatusResolved = "Resolved"

	ProgressPending   = "Pending"
	ProgressOngoing   = "Ongoing"
	ProgressCompleted = "Completed"
)

type Designation struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

type Salary struct {
	Amount decimal.Decimal `json:"amount"`
	Status string          `json:"status,omitempty"`
}

type BankDetails struct {
	AccountName   string `json:"accountName,omitempty"`
	AccountNumber string `json:"accountNumber,omitempty"`
	IFSC          string `json:"ifsc,omitempty"`
	BankName      string `json:"bankName,omitempty"`
}

type Employee struct {
	ID               string       `json:"id" validate:"required"`
	Name             string       `json:"name"`
	Email            string       `json:"email,omitempty" validate:"omitempty,email"`
	Designation      Designation  `json:"designation"`
	Salary           Salary       `json:"salary"`
	BankDetails      *BankDetails `json:"bankDetails,omitempty"`
	OnboardingStatus string       `json:"onboardingStatus,omitempty"`
	ProfilePicture   string       `json:"profilePicture,omitempty"`
	CreatedAt        Timestamp    `json:"createdAt"`
}

// HasDesignation compares designation names case-insensitively.
func (e Employee) HasDesignation(name string) bool {
	return strings.EqualFold(strings.TrimSpace(e.Designation.Name), name)
}

type Task struct {
	ID          string    `json:"id" validate:"required"`
	Title       string    `json:"title,omitempty"`
	AssignedTo  string    `json:"assignedTo"`
	ProjectID   string    `json:"projectId,omitempty"`
	Status      string    `json:"status"`
	Priority    string    `json:"priority,omitempty"`
	CreatedAt   Timestamp `json:"createdAt"`
	DueAt       Timestamp `json:"dueAt"`
	CompletedAt Timestamp `json:"completedAt"`
}

func (t Task) IsCompleted() bool {
	return strings.EqualFold(strings.TrimSpace(t.Status), TaskStatusCompleted)
}

type DailyReport struct {
	ID     string            `json:"id" validate:"required"`
	UserID string            `json:"userId" validate:"required"`
	Date   Timestamp         `json:"date"`
	Tasks  []json.RawMessage `json:"tasks"`
}

type Metric struct {
	Date             Timestamp `json:"date"`
	TasksCompleted   int       `json:"tasksCompleted" validate:"gte=0"`
	ReportsSubmitted int       `json:"reportsSubmitted" validate:"gte=0"`
}

type Attendance struct {
	ID        string    `json:"id,omitempty"`
	UserID    string    `json:"user"`
	Date      Timestamp `json:"date"`
	TimeSpent float64   `json:"timespent" validate:"gte=0"`
}

type PerformanceScore struct {
	ID         string    `json:"id,omitempty"`
	UserID     string    `json:"userId" validate:"required"`
	TotalScore float64   `json:"totalScore" validate:"gte=0,lte=100"`
	CreatedAt  Timestamp `json:"createdAt"`
}

type TeamMember struct {
	UserID string `json:"userId" validate:"required"`
	Role   string `json:"role,omitempty"`
}

type Timeline struct {
	Start Timestamp `json:"start"`
	End   Timestamp `json:"end"`
}

type Progress struct {
	Percent float64 `json:"percent" validate:"gte=0,lte=100"`
	Status  string  `json:"status,omitempty"`
}

type Risk struct {
	ID         string    `json:"id,omitempty"`
	Severity   string    `json:"severity"`
	Category   string    `json:"category,omitempty"`
	Type       string    `json:"type,omitempty"`
	Status     string    `json:"status,omitempty"`
	RaisedOn   Timestamp `json:"raisedon"`
	ResolvedOn Timestamp `json:"resolvedon"`
	RaisedBy   string    `json:"raisedby,omitempty"`
}

func (r Risk) IsCritical() bool {
	return strings.EqualFold(strings.TrimSpace(r.Severity), SeverityCritical)
}

// Label is the risk's category, falling back to its type.
func (r Risk) Label() string {
	if strings.TrimSpace(r.Category) != "" {
		return r.Category
	}
	return r.Type
}

type Project struct {
	ID        string          `json:"id" validate:"required"`
	Name      string          `json:"name"`
	ManagerID string          `json:"manager"`
	Team      []TeamMember    `json:"team" validate:"dive"`
	Timeline  Timeline        `json:"timeline"`
	Progress  Progress        `json:"progress"`
	Budget    decimal.Decimal `json:"budget"`
	Risks     []Risk          `json:"risks"`
	CreatedAt Timestamp       `json:"createdAt"`
}

type Role struct {
	ID              string   `json:"id" validate:"required"`
	Name            string   `json:"name" validate:"required"`
	Details         string   `json:"details,omitempty"`
	Users           []string `json:"users"`
	PermissionCount int      `json:"permissionCount" validate:"gte=0"`
}

type Audience struct {
	Teams []string `json:"teams,omitempty"`
	Users []string `json:"users,omitempty"`
}

type Announcement struct {
	ID          string    `json:"id,omitempty"`
	Title       string    `json:"title" validate:"required"`
	Message     string    `json:"message" validate:"required"`
	Type        string    `json:"type,omitempty"`
	Priority    string    `json:"priority,omitempty"`
	Audience    Audience  `json:"audience"`
	Channels    []string  `json:"channels,omitempty"`
	ScheduledAt Timestamp `json:"scheduledAt"`
	CreatedAt   Timestamp `json:"createdAt"`
	ReadByCount int       `json:"readByCount,omitempty"`
}

type RedFlag struct {
	ID       string    `json:"id,omitempty"`
	UserID   string    `json:"userId" validate:"required"`
	Severity string    `json:"severity"`
	Types    []string  `json:"types,omitempty"`
	Date     Timestamp `json:"date"`
	Reason   string    `json:"reason,omitempty"`
}
