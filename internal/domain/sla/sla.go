// Package sla classifies completed tasks by how many hours past due they
// finished and rolls the result up per project scope.
package sla

import (
	"math"
	"time"

	"github.com/samber/lo"

	"hrminsights/internal/domain/records"
)

type Tier struct {
	Name string  `json:"name"`
	Min  float64 `json:"min"`
	// Max is inclusive; +Inf for the last tier.
	Max float64 `json:"-"`
}

// Tiers are ordered, contiguous (Min, Max] ranges of overdue hours. Upper
// bounds are inclusive: exactly 10 hours late is P1, not P2.
var Tiers = []Tier{
	{Name: "P1", Min: 0, Max: 10},
	{Name: "P2", Min: 10, Max: 22},
	{Name: "P3", Min: 22, Max: 30},
	{Name: "F4", Min: 30, Max: 48},
	{Name: "F5", Min: 48, Max: 72},
	{Name: "F6", Min: 72, Max: math.Inf(1)},
}

// Classify returns the tier for a positive overdue duration, or "" when the
// task finished on time.
func Classify(overdueHours float64) string {
	if overdueHours <= 0 || math.IsNaN(overdueHours) {
		return ""
	}
	for _, t := range Tiers {
		if overdueHours > t.Min && overdueHours <= t.Max {
			return t.Name
		}
	}
	return ""
}

// TaskSLA is the timing breakdown of one completed task.
type TaskSLA struct {
	TaskID       string  `json:"taskId"`
	Title        string  `json:"title,omitempty"`
	ProjectID    string  `json:"projectId,omitempty"`
	AssignedTo   string  `json:"assignedTo,omitempty"`
	OverdueHours float64 `json:"overdueHours"`
	Tier         string  `json:"tier,omitempty"`
	OnTime       bool    `json:"onTime"`
	TargetHours  int     `json:"targetHours"`
	ActualHours  int     `json:"actualHours"`
	SLAPercent   *int    `json:"slaPercent"`
}

// Evaluate returns the breakdown for a task that has created, due and
// completed timestamps that all parse; ok is false otherwise.
func Evaluate(t records.Task) (TaskSLA, bool) {
	created, err := t.CreatedAt.Instant()
	if err != nil {
		return TaskSLA{}, false
	}
	due, err := t.DueAt.Instant()
	if err != nil {
		return TaskSLA{}, false
	}
	completed, err := t.CompletedAt.Instant()
	if err != nil {
		return TaskSLA{}, false
	}

	overdue := hours(completed.Sub(due))
	target := max(0, roundHalfUp(hours(due.Sub(created))))
	actual := max(0, roundHalfUp(hours(completed.Sub(created))))

	return TaskSLA{
		TaskID:       t.ID,
		Title:        t.Title,
		ProjectID:    t.ProjectID,
		AssignedTo:   t.AssignedTo,
		OverdueHours: overdue,
		Tier:         Classify(overdue),
		OnTime:       !completed.After(due),
		TargetHours:  target,
		ActualHours:  actual,
		SLAPercent:   slaPercent(target, actual),
	}, true
}

func slaPercent(target, actual int) *int {
	if target <= 0 {
		return nil
	}
	pct := 100
	if actual > target {
		pct = roundHalfUp(float64(target) / float64(actual) * 100)
	}
	return &pct
}

type Query struct {
	ProjectID string
	Tier      string
}

type Bar struct {
	Tier    string  `json:"tier"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

type Report struct {
	Tasks      []TaskSLA `json:"tasks"`
	InScope    int       `json:"inScope"`
	OnTime     int       `json:"onTime"`
	OnTimePct  int       `json:"onTimePct"`
	Bars       []Bar     `json:"bars"`
	Incomplete int       `json:"incomplete"`
}

// Build evaluates the tasks of the selected project. The donut and the bar
// denominators both use every timing-complete task in the project scope, so
// a tier filter narrows the bars without renormalizing them.
func Build(tasks []records.Task, q Query) Report {
	scoped := tasks
	if q.ProjectID != "" {
		scoped = lo.Filter(tasks, func(t records.Task, _ int) bool { return t.ProjectID == q.ProjectID })
	}

	evaluated := make([]TaskSLA, 0, len(scoped))
	for _, t := range scoped {
		if s, ok := Evaluate(t); ok {
			evaluated = append(evaluated, s)
		}
	}

	onTime := lo.CountBy(evaluated, func(s TaskSLA) bool { return s.OnTime })
	filtered := evaluated
	if q.Tier != "" {
		filtered = lo.Filter(evaluated, func(s TaskSLA, _ int) bool { return s.Tier == q.Tier })
	}

	bars := make([]Bar, 0, len(Tiers))
	for _, tier := range Tiers {
		count := lo.CountBy(filtered, func(s TaskSLA) bool { return s.Tier == tier.Name })
		bars = append(bars, Bar{Tier: tier.Name, Count: count, Percent: ratio2(count, len(evaluated))})
	}

	return Report{
		Tasks:      filtered,
		InScope:    len(evaluated),
		OnTime:     onTime,
		OnTimePct:  percent(onTime, len(evaluated)),
		Bars:       bars,
		Incomplete: len(scoped) - len(evaluated),
	}
}

// ValidTier reports whether name is one of Tiers.
func ValidTier(name string) bool {
	return lo.ContainsBy(Tiers, func(t Tier) bool { return t.Name == name })
}

func hours(d time.Duration) float64 {
	return float64(d.Milliseconds()) / 3_600_000
}

func percent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return roundHalfUp(float64(part) / float64(whole) * 100)
}

func ratio2(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return math.Round(float64(part)/float64(whole)*100*100) / 100
}

func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}
