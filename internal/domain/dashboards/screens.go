package dashboards

import (
	"context"
	"sort"

	"github.com/samber/lo"

	"hrminsights/internal/domain/daykey"
	"hrminsights/internal/domain/heatmap"
	"hrminsights/internal/domain/performance"
	"hrminsights/internal/domain/productivity"
	"hrminsights/internal/domain/projects"
	"hrminsights/internal/domain/records"
	"hrminsights/internal/domain/sla"
	"hrminsights/internal/domain/submission"
)

type SubmissionsScreen struct {
	Meta           Meta                 `json:"meta"`
	Query          SubmissionsQuery     `json:"query"`
	ExpectedPerDay int                  `json:"expectedPerDay"`
	Daily          []submission.DayRate `json:"daily"`
	Summary        submission.Summary   `json:"summary"`
	// Weekly is set when the screen is scoped to one employee.
	Weekly        []submission.WeekRate `json:"weekly,omitempty"`
	WeeklySummary *submission.Summary   `json:"weeklySummary,omitempty"`
}

// Submissions builds the company daily submission series and, for a scoped
// employee, that employee's weekly series over the same days. The company
// series comes from the daily metric rollup; when the rollup is empty the
// report records themselves are counted.
func (s *Service) Submissions(ctx context.Context, q SubmissionsQuery) (SubmissionsScreen, error) {
	var (
		emps    []records.Employee
		metrics []records.Metric
		reports []records.DailyReport
	)
	b := newBatch(ctx)
	fetch(b, CollectionEmployees, &emps, s.Source.Employees)
	fetch(b, CollectionMetrics, &metrics, s.Source.Metrics)
	fetch(b, CollectionDailyReports, &reports, s.Source.DailyReports)
	warnings, err := b.wait()
	if err != nil {
		return SubmissionsScreen{}, err
	}

	days := s.Norm.LastNDays(q.Days)
	expected := submission.ExpectedPerDay(emps, records.DesignationAdministrator, records.DesignationManager)

	byDay, skipped := submission.MetricsByDay(metrics, s.Norm)
	if len(metrics) == 0 {
		byDay, skipped = submission.ReportsByDay(reports, "", s.Norm)
	}
	daily := submission.Daily(days, byDay, expected)

	screen := SubmissionsScreen{
		Query:          q,
		ExpectedPerDay: expected,
		Daily:          daily,
		Summary:        submission.Summarize(daily),
	}
	if q.EmployeeID != "" {
		reportDays, n := submission.ReportDays(reports, q.EmployeeID, days, s.Norm)
		skipped += n
		screen.Weekly = submission.EmployeeWeekly(reportDays, daykey.WeekBuckets(days))
		sum := submission.SummarizeWeeks(screen.Weekly)
		screen.WeeklySummary = &sum
	}
	screen.Meta = s.meta(warnings, skipped)
	return screen, nil
}

type HeatmapScreen struct {
	Meta  Meta           `json:"meta"`
	Query HeatmapQuery   `json:"query"`
	Map   heatmap.Result `json:"heatmap"`
}

func (s *Service) Heatmap(ctx context.Context, q HeatmapQuery) (HeatmapScreen, error) {
	var (
		emps    []records.Employee
		reports []records.DailyReport
	)
	b := newBatch(ctx)
	fetch(b, CollectionEmployees, &emps, s.Source.Employees)
	fetch(b, CollectionDailyReports, &reports, s.Source.DailyReports)
	warnings, err := b.wait()
	if err != nil {
		return HeatmapScreen{}, err
	}

	result := heatmap.Build(heatmap.Input{
		Reports:       reports,
		Range:         q.Range,
		EmployeeID:    q.EmployeeID,
		EmployeeCount: len(emps),
	}, s.Norm)
	return HeatmapScreen{Meta: s.meta(warnings, result.Skipped), Query: q, Map: result}, nil
}

type PerformanceScreen struct {
	Meta         Meta                `json:"meta"`
	Query        PerformanceQuery    `json:"query"`
	Rows         []performance.Row   `json:"rows"`
	TopPerformer *performance.Row    `json:"topPerformer"`
	Summary      performance.Summary `json:"summary"`
	Designations []string            `json:"designations"`
}

func (s *Service) Performance(ctx context.Context, q PerformanceQuery) (PerformanceScreen, error) {
	var (
		emps   []records.Employee
		scores []records.PerformanceScore
	)
	b := newBatch(ctx)
	fetch(b, CollectionEmployees, &emps, s.Source.Employees)
	fetch(b, CollectionScores, &scores, s.Source.PerformanceScores)
	warnings, err := b.wait()
	if err != nil {
		return PerformanceScreen{}, err
	}

	rows, skipped := performance.Compare(scores, emps, s.Norm)
	if q.EmployeeID != "" {
		rows = lo.Filter(rows, func(r performance.Row, _ int) bool { return r.EmployeeID == q.EmployeeID })
	}
	rows = performance.Filter{Designation: q.Designation, ScoreRange: q.ScoreRange}.Apply(rows)
	rows = performance.SortByScore(rows)

	screen := PerformanceScreen{
		Meta:         s.meta(warnings, skipped),
		Query:        q,
		Rows:         rows,
		Summary:      performance.Summarize(rows),
		Designations: designations(performance.ValidEmployees(emps)),
	}
	if top, ok := performance.TopPerformer(rows); ok {
		screen.TopPerformer = &top
	}
	return screen, nil
}

func designations(emps []records.Employee) []string {
	names := lo.Uniq(lo.FilterMap(emps, func(e records.Employee, _ int) (string, bool) {
		return e.Designation.Name, e.Designation.Name != ""
	}))
	sort.Strings(names)
	return names
}

type ProductivityScreen struct {
	Meta       Meta                     `json:"meta"`
	Query      ProductivityQuery        `json:"query"`
	Total      int                      `json:"total"`
	Rows       []productivity.Row       `json:"rows"`
	Completed  []productivity.BarPoint  `json:"completedSeries"`
	Attendance []productivity.AreaPoint `json:"attendanceSeries"`
}

func (s *Service) Productivity(ctx context.Context, q ProductivityQuery) (ProductivityScreen, error) {
	var (
		emps       []records.Employee
		tasks      []records.Task
		metrics    []records.Metric
		attendance []records.Attendance
	)
	b := newBatch(ctx)
	fetch(b, CollectionEmployees, &emps, s.Source.Employees)
	fetch(b, CollectionTasks, &tasks, s.Source.Tasks)
	fetch(b, CollectionMetrics, &metrics, s.Source.Metrics)
	fetch(b, CollectionAttendance, &attendance, s.Source.Attendance)
	warnings, err := b.wait()
	if err != nil {
		return ProductivityScreen{}, err
	}

	if q.EmployeeID != "" {
		emps = lo.Filter(emps, func(e records.Employee, _ int) bool { return e.ID == q.EmployeeID })
		attendance = lo.Filter(attendance, func(a records.Attendance, _ int) bool { return a.UserID == q.EmployeeID })
	}
	page := lo.Subset(emps, q.Offset, uint(q.Limit))

	days := s.Norm.LastNDays(productivity.SeriesDays)
	bars, skippedBars := productivity.CompletedSeries(metrics, days, s.Norm)
	area, skippedArea := productivity.AttendanceSeries(attendance, days, s.Norm)

	return ProductivityScreen{
		Meta:       s.meta(warnings, skippedBars+skippedArea),
		Query:      q,
		Total:      len(emps),
		Rows:       productivity.Table(page, tasks),
		Completed:  bars,
		Attendance: area,
	}, nil
}

type ProjectOption struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type SLAScreen struct {
	Meta     Meta            `json:"meta"`
	Query    SLAQuery        `json:"query"`
	Report   sla.Report      `json:"report"`
	Tiers    []sla.Tier      `json:"tiers"`
	Projects []ProjectOption `json:"projects"`
}

func (s *Service) SLA(ctx context.Context, q SLAQuery) (SLAScreen, error) {
	var (
		tasks []records.Task
		projs []records.Project
	)
	b := newBatch(ctx)
	fetch(b, CollectionTasks, &tasks, s.Source.Tasks)
	fetch(b, CollectionProjects, &projs, s.Source.Projects)
	warnings, err := b.wait()
	if err != nil {
		return SLAScreen{}, err
	}

	if q.EmployeeID != "" {
		tasks = lo.Filter(tasks, func(t records.Task, _ int) bool { return t.AssignedTo == q.EmployeeID })
	}
	report := sla.Build(tasks, sla.Query{ProjectID: q.ProjectID, Tier: q.Tier})
	return SLAScreen{
		Meta:   s.meta(warnings, 0),
		Query:  q,
		Report: report,
		Tiers:  sla.Tiers,
		Projects: lo.Map(projs, func(p records.Project, _ int) ProjectOption {
			return ProjectOption{ID: p.ID, Name: p.Name}
		}),
	}, nil
}

type ProjectsScreen struct {
	Meta    Meta             `json:"meta"`
	Query   ProjectsQuery    `json:"query"`
	Cards   []projects.Card  `json:"projects"`
	Summary projects.Summary `json:"summary"`
}

func (s *Service) Projects(ctx context.Context, q ProjectsQuery) (ProjectsScreen, error) {
	var (
		emps  []records.Employee
		projs []records.Project
	)
	b := newBatch(ctx)
	fetch(b, CollectionEmployees, &emps, s.Source.Employees)
	fetch(b, CollectionProjects, &projs, s.Source.Projects)
	warnings, err := b.wait()
	if err != nil {
		return ProjectsScreen{}, err
	}

	cards, summary := projects.Board(projs, emps, q.filter(), s.Norm.Now())
	return ProjectsScreen{Meta: s.meta(warnings, 0), Query: q, Cards: cards, Summary: summary}, nil
}

type BottlenecksScreen struct {
	Meta  Meta                  `json:"meta"`
	Query ProjectsQuery         `json:"query"`
	Rows  []projects.Bottleneck `json:"rows"`
}

func (s *Service) Bottlenecks(ctx context.Context, q ProjectsQuery) (BottlenecksScreen, error) {
	var projs []records.Project
	b := newBatch(ctx)
	fetch(b, CollectionProjects, &projs, s.Source.Projects)
	warnings, err := b.wait()
	if err != nil {
		return BottlenecksScreen{}, err
	}

	now := s.Norm.Now()
	rows, skipped := projects.Bottlenecks(q.filter().Apply(projs, now), now)
	return BottlenecksScreen{Meta: s.meta(warnings, skipped), Query: q, Rows: rows}, nil
}

type RolesScreen struct {
	Meta       Meta          `json:"meta"`
	Roles      []RoleSummary `json:"roles"`
	Unassigned int           `json:"unassigned"`
}

func (s *Service) Roles(ctx context.Context) (RolesScreen, error) {
	var (
		emps  []records.Employee
		roles []records.Role
	)
	b := newBatch(ctx)
	fetch(b, CollectionEmployees, &emps, s.Source.Employees)
	fetch(b, CollectionRoles, &roles, s.Source.Roles)
	warnings, err := b.wait()
	if err != nil {
		return RolesScreen{}, err
	}

	summaries, unassigned := RolesOverview(roles, emps)
	return RolesScreen{Meta: s.meta(warnings, 0), Roles: summaries, Unassigned: unassigned}, nil
}
