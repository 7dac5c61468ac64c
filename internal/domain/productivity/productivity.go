// Package productivity builds the per-employee task throughput table and the
// short completion and attendance series shown beside it.
package productivity

import (
	"fmt"
	"math"

	"github.com/samber/lo"

	"hrminsights/internal/domain/daykey"
	"hrminsights/internal/domain/records"
)

const (
	SeriesDays   = 6
	NoCompletion = "-"
)

type Row struct {
	EmployeeID   string `json:"employeeId"`
	Name         string `json:"name"`
	Designation  string `json:"designation"`
	Assigned     int    `json:"assigned"`
	Completed    int    `json:"completed"`
	TotalMinutes int    `json:"totalMinutes"`
	AvgMinutes   int    `json:"avgMinutes"`
	AvgDuration  string `json:"avgDuration"`
}

type BarPoint struct {
	Date           string `json:"date"`
	TasksCompleted int    `json:"tasksCompleted"`
}

type AreaPoint struct {
	Date  string `json:"date"`
	Hours int    `json:"hours"`
}

// Table computes task counts and average completion time for each employee
// in the page.
func Table(page []records.Employee, tasks []records.Task) []Row {
	byAssignee := lo.GroupBy(tasks, func(t records.Task) string { return t.AssignedTo })
	rows := make([]Row, 0, len(page))
	for _, emp := range page {
		assigned := byAssignee[emp.ID]
		completed := lo.Filter(assigned, func(t records.Task, _ int) bool { return t.IsCompleted() })

		total := 0
		for _, t := range completed {
			if minutes, ok := completionMinutes(t); ok {
				total += minutes
			}
		}
		avg := 0
		if len(completed) > 0 {
			avg = roundHalfUp(float64(total) / float64(len(completed)))
		}

		row := Row{
			EmployeeID:   emp.ID,
			Name:         emp.Name,
			Designation:  emp.Designation.Name,
			Assigned:     len(assigned),
			Completed:    len(completed),
			TotalMinutes: total,
			AvgMinutes:   avg,
			AvgDuration:  NoCompletion,
		}
		if len(completed) > 0 {
			row.AvgDuration = FormatMinutes(avg)
		}
		rows = append(rows, row)
	}
	return rows
}

func completionMinutes(t records.Task) (int, bool) {
	created, err := t.CreatedAt.Instant()
	if err != nil {
		return 0, false
	}
	done, err := t.CompletedAt.Instant()
	if err != nil {
		return 0, false
	}
	if !done.After(created) {
		return 0, false
	}
	return roundHalfUp(float64(done.Sub(created).Milliseconds()) / 60000), true
}

// FormatMinutes renders minutes as "{h}h {m}m", or "{m}m" under an hour.
func FormatMinutes(minutes int) string {
	if minutes >= 60 {
		return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
	}
	return fmt.Sprintf("%dm", minutes)
}

// CompletedSeries joins the daily tasksCompleted rollup onto days.
func CompletedSeries(metrics []records.Metric, days []string, norm *daykey.Normalizer) ([]BarPoint, int) {
	byDay := map[string]int{}
	skipped := 0
	for _, m := range metrics {
		key, err := norm.Key(m.Date)
		if err != nil {
			skipped++
			continue
		}
		byDay[key] += m.TasksCompleted
	}
	return lo.Map(days, func(d string, _ int) BarPoint {
		return BarPoint{Date: d, TasksCompleted: byDay[d]}
	}), skipped
}

// AttendanceSeries sums attendance minutes per day and reports whole hours.
func AttendanceSeries(attendance []records.Attendance, days []string, norm *daykey.Normalizer) ([]AreaPoint, int) {
	minutes := map[string]float64{}
	skipped := 0
	for _, a := range attendance {
		key, err := norm.Key(a.Date)
		if err != nil {
			skipped++
			continue
		}
		minutes[key] += a.TimeSpent
	}
	return lo.Map(days, func(d string, _ int) AreaPoint {
		return AreaPoint{Date: d, Hours: roundHalfUp(minutes[d] / 60)}
	}), skipped
}

func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}
