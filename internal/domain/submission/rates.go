// Package submission computes report submission rates against an expected
// per-day baseline.
package submission

import (
	"math"

	"github.com/samber/lo"

	"hrminsights/internal/domain/daykey"
	"hrminsights/internal/domain/records"
)

type DayRate struct {
	Date      string `json:"date"`
	Submitted int    `json:"submitted"`
	Expected  int    `json:"expected"`
	Pct       int    `json:"pct"`
}

type WeekRate struct {
	Label     string `json:"label"`
	Submitted int    `json:"submitted"`
	Expected  int    `json:"expected"`
	Pct       int    `json:"pct"`
}

type Summary struct {
	TotalSubmitted int `json:"totalSubmitted"`
	TotalExpected  int `json:"totalExpected"`
	AvgPct         int `json:"avgPct"`
	Missing        int `json:"missing"`
}

// Percent is round(part/whole*100), or 0 when whole is not positive.
func Percent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return int(math.Floor(float64(part)/float64(whole)*100 + 0.5))
}

// ExpectedPerDay is the number of employees expected to submit each day:
// everyone except the excluded designations, never less than one.
func ExpectedPerDay(employees []records.Employee, excluded ...string) int {
	count := lo.CountBy(employees, func(e records.Employee) bool {
		return !lo.SomeBy(excluded, func(d string) bool { return e.HasDesignation(d) })
	})
	return max(count, 1)
}

// Daily joins per-day submitted counts against the expected baseline.
func Daily(days []string, submitted map[string]int, expected int) []DayRate {
	out := make([]DayRate, 0, len(days))
	for _, day := range days {
		count := submitted[day]
		out = append(out, DayRate{
			Date:      day,
			Submitted: count,
			Expected:  expected,
			Pct:       Percent(count, expected),
		})
	}
	return out
}

// EmployeeWeekly counts one employee's report days per week bucket. Each day
// in a bucket expects one report.
func EmployeeWeekly(reportDays []string, buckets []daykey.WeekBucket) []WeekRate {
	out := make([]WeekRate, 0, len(buckets))
	for _, bucket := range buckets {
		inBucket := lo.SliceToMap(bucket.Days, func(d string) (string, struct{}) { return d, struct{}{} })
		submitted := lo.CountBy(reportDays, func(d string) bool {
			_, ok := inBucket[d]
			return ok
		})
		expected := len(bucket.Days)
		out = append(out, WeekRate{
			Label:     bucket.Label,
			Submitted: submitted,
			Expected:  expected,
			Pct:       Percent(submitted, expected),
		})
	}
	return out
}

// Summarize totals a daily series.
func Summarize(series []DayRate) Summary {
	submitted := lo.SumBy(series, func(r DayRate) int { return r.Submitted })
	expected := lo.SumBy(series, func(r DayRate) int { return r.Expected })
	return summary(submitted, expected)
}

// SummarizeWeeks totals a weekly series.
func SummarizeWeeks(series []WeekRate) Summary {
	submitted := lo.SumBy(series, func(r WeekRate) int { return r.Submitted })
	expected := lo.SumBy(series, func(r WeekRate) int { return r.Expected })
	return summary(submitted, expected)
}

func summary(submitted, expected int) Summary {
	return Summary{
		TotalSubmitted: submitted,
		TotalExpected:  expected,
		AvgPct:         Percent(submitted, expected),
		Missing:        max(0, expected-submitted),
	}
}

// MetricsByDay sums the reportsSubmitted rollup per day key. Rows with
// unparseable dates are counted in skipped.
func MetricsByDay(metrics []records.Metric, norm *daykey.Normalizer) (map[string]int, int) {
	out := map[string]int{}
	skipped := 0
	for _, m := range metrics {
		key, err := norm.Key(m.Date)
		if err != nil {
			skipped++
			continue
		}
		out[key] += m.ReportsSubmitted
	}
	return out, skipped
}

// ReportsByDay counts report records per day key, optionally for one user.
func ReportsByDay(reports []records.DailyReport, userID string, norm *daykey.Normalizer) (map[string]int, int) {
	out := map[string]int{}
	skipped := 0
	for _, r := range reports {
		if userID != "" && r.UserID != userID {
			continue
		}
		key, err := norm.Key(r.Date)
		if err != nil {
			skipped++
			continue
		}
		out[key]++
	}
	return out, skipped
}

// ReportDays lists the day keys of one user's reports that fall inside days.
func ReportDays(reports []records.DailyReport, userID string, days []string, norm *daykey.Normalizer) ([]string, int) {
	inRange := lo.SliceToMap(days, func(d string) (string, struct{}) { return d, struct{}{} })
	out := []string{}
	skipped := 0
	for _, r := range reports {
		if r.UserID != userID {
			continue
		}
		key, err := norm.Key(r.Date)
		if err != nil {
			skipped++
			continue
		}
		if _, ok := inRange[key]; ok {
			out = append(out, key)
		}
	}
	return out, skipped
}
