package dashboards

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"hrminsights/internal/domain/productivity"
)

const (
	TableSubmissions  = "submissions"
	TablePerformance  = "performance"
	TableProductivity = "productivity"
	TableSLA          = "sla"
	TableProjects     = "projects"
	TableBottlenecks  = "bottlenecks"
)

var TableKinds = []string{TableSubmissions, TablePerformance, TableProductivity, TableSLA, TableProjects, TableBottlenecks}

var ErrUnknownTable = errors.New("unknown table kind")

// Table is a screen flattened to text cells for export.
type Table struct {
	Kind        string     `json:"kind"`
	Title       string     `json:"title"`
	Columns     []string   `json:"columns"`
	Rows        [][]string `json:"rows"`
	GeneratedAt time.Time  `json:"generatedAt"`
	Warnings    []Warning  `json:"warnings,omitempty"`
}

// TableRequest selects a table and carries the screen query it is built
// from. Only the query matching Kind is read.
type TableRequest struct {
	Kind         string            `json:"kind"`
	Submissions  SubmissionsQuery  `json:"submissions"`
	Performance  PerformanceQuery  `json:"performance"`
	Productivity ProductivityQuery `json:"productivity"`
	SLA          SLAQuery          `json:"sla"`
	Projects     ProjectsQuery     `json:"projects"`
}

// ParseTableRequest reads the query for kind from params using the same
// names as the dashboard endpoints.
func ParseTableRequest(kind string, params url.Values) (TableRequest, error) {
	req := TableRequest{Kind: strings.ToLower(strings.TrimSpace(kind))}
	var err error
	switch req.Kind {
	case TableSubmissions:
		req.Submissions, err = ParseSubmissionsQuery(params)
	case TablePerformance:
		req.Performance, err = ParsePerformanceQuery(params)
	case TableProductivity:
		if params.Get("limit") == "" {
			params = cloneValues(params)
			params.Set("limit", strconv.Itoa(MaxPageSize))
		}
		req.Productivity, err = ParseProductivityQuery(params)
	case TableSLA:
		req.SLA, err = ParseSLAQuery(params)
	case TableProjects, TableBottlenecks:
		req.Projects, err = ParseProjectsQuery(params)
	default:
		return req, fmt.Errorf("%w: %q", ErrUnknownTable, kind)
	}
	return req, err
}

func cloneValues(v url.Values) url.Values {
	out := url.Values{}
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}

// ScopedTo restricts every employee-scoped query to one employee.
func (r TableRequest) ScopedTo(employeeID string) TableRequest {
	r.Submissions = r.Submissions.WithEmployee(employeeID)
	r.Performance = r.Performance.WithEmployee(employeeID)
	r.Productivity = r.Productivity.WithEmployee(employeeID)
	r.SLA = r.SLA.WithEmployee(employeeID)
	return r
}

// Table builds the export table for req.
func (s *Service) Table(ctx context.Context, req TableRequest) (Table, error) {
	switch req.Kind {
	case TableSubmissions:
		screen, err := s.Submissions(ctx, req.Submissions)
		if err != nil {
			return Table{}, err
		}
		t := newTable(req.Kind, "Daily report submissions", screen.Meta, "Date", "Submitted", "Expected", "Rate %")
		for _, d := range screen.Daily {
			t.Rows = append(t.Rows, []string{d.Date, itoa(d.Submitted), itoa(d.Expected), itoa(d.Pct)})
		}
		return t, nil

	case TablePerformance:
		screen, err := s.Performance(ctx, req.Performance)
		if err != nil {
			return Table{}, err
		}
		t := newTable(req.Kind, "Performance comparison", screen.Meta, "Employee", "Designation", "Tenure", "Score", "Previous", "Change")
		for _, r := range screen.Rows {
			prev := "-"
			if r.PrevScore != nil {
				prev = ftoa(*r.PrevScore)
			}
			t.Rows = append(t.Rows, []string{r.Name, r.Designation, r.Tenure, ftoa(r.Score), prev, ftoa(r.Diff)})
		}
		return t, nil

	case TableProductivity:
		screen, err := s.Productivity(ctx, req.Productivity)
		if err != nil {
			return Table{}, err
		}
		t := newTable(req.Kind, "Task productivity", screen.Meta, "Employee", "Designation", "Assigned", "Completed", "Avg completion")
		for _, r := range screen.Rows {
			avg := r.AvgDuration
			if avg == "" {
				avg = productivity.NoCompletion
			}
			t.Rows = append(t.Rows, []string{r.Name, r.Designation, itoa(r.Assigned), itoa(r.Completed), avg})
		}
		return t, nil

	case TableSLA:
		screen, err := s.SLA(ctx, req.SLA)
		if err != nil {
			return Table{}, err
		}
		t := newTable(req.Kind, "Task SLA", screen.Meta, "Task", "Project", "Assignee", "Tier", "Overdue h", "Target h", "Actual h", "SLA %")
		for _, r := range screen.Report.Tasks {
			tier, pct := r.Tier, "-"
			if tier == "" {
				tier = "On time"
			}
			if r.SLAPercent != nil {
				pct = itoa(*r.SLAPercent)
			}
			title := r.Title
			if title == "" {
				title = r.TaskID
			}
			t.Rows = append(t.Rows, []string{
				title, r.ProjectID, r.AssignedTo, tier,
				strconv.FormatFloat(r.OverdueHours, 'f', 1, 64),
				itoa(r.TargetHours), itoa(r.ActualHours), pct,
			})
		}
		return t, nil

	case TableProjects:
		screen, err := s.Projects(ctx, req.Projects)
		if err != nil {
			return Table{}, err
		}
		t := newTable(req.Kind, "Project health", screen.Meta, "Project", "Manager", "Team", "Progress %", "Health", "Open risks", "Budget", "Used", "Used %", "Remaining")
		for _, c := range screen.Cards {
			manager := c.Manager
			if manager == "" {
				manager = c.ManagerID
			}
			t.Rows = append(t.Rows, []string{
				c.Name, manager, itoa(c.TeamSize), ftoa(c.Progress), c.Health, itoa(c.OpenRisks),
				c.Budget.Total.StringFixed(2), c.Budget.Used.StringFixed(2), itoa(c.Budget.UsedPct), c.Budget.Remaining.StringFixed(2),
			})
		}
		return t, nil

	case TableBottlenecks:
		screen, err := s.Bottlenecks(ctx, req.Projects)
		if err != nil {
			return Table{}, err
		}
		t := newTable(req.Kind, "Project bottlenecks", screen.Meta, "Project", "Risk", "Severity", "Delay days", "Critical", "Warning", "Minor")
		for _, r := range screen.Rows {
			t.Rows = append(t.Rows, []string{
				r.ProjectName, r.Label, r.Severity, itoa(r.DelayDays), itoa(r.Critical), itoa(r.Warning), itoa(r.Minor),
			})
		}
		return t, nil
	}
	return Table{}, fmt.Errorf("%w: %q", ErrUnknownTable, req.Kind)
}

func newTable(kind, title string, meta Meta, columns ...string) Table {
	return Table{
		Kind:        kind,
		Title:       title,
		Columns:     columns,
		Rows:        [][]string{},
		GeneratedAt: meta.GeneratedAt,
		Warnings:    meta.Warnings,
	}
}

func itoa(v int) string { return strconv.Itoa(v) }

func ftoa(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
