// Package heatmap buckets daily report task volume into intensity levels.
package heatmap

import (
	"hrminsights/internal/domain/daykey"
	"hrminsights/internal/domain/records"
	"hrminsights/internal/domain/submission"
)

const MaxLevel = 4

type Cell struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
	Level int    `json:"level"`
}

type Result struct {
	Cells          []Cell `json:"cells"`
	TotalExpected  int    `json:"totalExpected"`
	TotalSubmitted int    `json:"totalSubmitted"`
	Missing        int    `json:"missing"`
	Percent        int    `json:"percent"`
	Skipped        int    `json:"skipped"`
}

type Input struct {
	Reports []records.DailyReport
	// Range is the window length in calendar days, today included.
	Range int
	// EmployeeID scopes the map to one employee when set.
	EmployeeID    string
	EmployeeCount int
}

// Level maps a per-day task count to an intensity from 0 to MaxLevel.
func Level(count int) int {
	switch {
	case count <= 0:
		return 0
	case count == 1:
		return 1
	case count == 2:
		return 2
	case count <= 4:
		return 3
	default:
		return MaxLevel
	}
}

func Build(in Input, norm *daykey.Normalizer) Result {
	days := norm.LastNDays(in.Range)
	counts := make(map[string]int, len(days))
	for _, d := range days {
		counts[d] = 0
	}

	submitted := 0
	skipped := 0
	for _, r := range in.Reports {
		if in.EmployeeID != "" && r.UserID != in.EmployeeID {
			continue
		}
		key, err := norm.Key(r.Date)
		if err != nil {
			skipped++
			continue
		}
		if _, ok := counts[key]; !ok {
			continue
		}
		counts[key] += len(r.Tasks)
		submitted++
	}

	cells := make([]Cell, 0, len(days))
	for _, d := range days {
		cells = append(cells, Cell{Date: d, Count: counts[d], Level: Level(counts[d])})
	}

	perDay := in.EmployeeCount
	if in.EmployeeID != "" {
		perDay = 1
	}
	expected := max(in.Range, 0) * perDay

	return Result{
		Cells:          cells,
		TotalExpected:  expected,
		TotalSubmitted: submitted,
		Missing:        expected - submitted,
		Percent:        submission.Percent(submitted, expected),
		Skipped:        skipped,
	}
}
