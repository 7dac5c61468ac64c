package performance

import (
	"math"
	"sort"
	"strings"

	"github.com/samber/lo"

	"hrminsights/internal/domain/daykey"
	"hrminsights/internal/domain/records"
)

// ValidEmployees drops administrators and managers from score comparisons.
func ValidEmployees(employees []records.Employee) []records.Employee {
	return lo.Filter(employees, func(e records.Employee, _ int) bool {
		return !e.HasDesignation(records.DesignationAdministrator) && !e.HasDesignation(records.DesignationManager)
	})
}

// Compare joins today's scores with valid employees and yesterday's scores.
// Scores without a matching valid employee are dropped; scores whose
// timestamp does not parse are counted in skipped.
func Compare(scores []records.PerformanceScore, employees []records.Employee, norm *daykey.Normalizer) ([]Row, int) {
	today := norm.Today()
	yesterday := norm.Yesterday()
	now := norm.Now()

	valid := lo.KeyBy(ValidEmployees(employees), func(e records.Employee) string { return e.ID })

	skipped := 0
	todays := make([]records.PerformanceScore, 0, len(scores))
	previous := map[string]float64{}
	for _, s := range scores {
		key, err := norm.Key(s.CreatedAt)
		if err != nil {
			skipped++
			continue
		}
		switch key {
		case today:
			todays = append(todays, s)
		case yesterday:
			if _, seen := previous[s.UserID]; !seen {
				previous[s.UserID] = s.TotalScore
			}
		}
	}

	rows := make([]Row, 0, len(todays))
	for _, s := range todays {
		emp, ok := valid[s.UserID]
		if !ok {
			continue
		}
		row := Row{
			EmployeeID:     emp.ID,
			Name:           emp.Name,
			Designation:    emp.Designation.Name,
			ProfilePicture: emp.ProfilePicture,
			Score:          s.TotalScore,
		}
		if created, err := emp.CreatedAt.Instant(); err == nil {
			row.Tenure = Tenure(created, now)
		}
		if prev, ok := previous[s.UserID]; ok {
			p := prev
			row.PrevScore = &p
			row.Diff = s.TotalScore - prev
		}
		rows = append(rows, row)
	}
	return rows, skipped
}

type Filter struct {
	Designation string
	ScoreRange  string
}

// Apply keeps rows matching the designation name exactly and the score range.
func (f Filter) Apply(rows []Row) []Row {
	return lo.Filter(rows, func(r Row, _ int) bool {
		if f.Designation != "" && r.Designation != f.Designation {
			return false
		}
		return InRange(r.Score, f.ScoreRange)
	})
}

// InRange reports whether score falls in the named bucket. An empty bucket
// matches everything.
func InRange(score float64, scoreRange string) bool {
	switch strings.TrimSpace(scoreRange) {
	case "":
		return true
	case ScoreRangeHigh:
		return score > 70
	case ScoreRangeMid:
		return score >= 40 && score <= 70
	case ScoreRangeLow:
		return score < 40
	default:
		return false
	}
}

// SortByScore returns a copy ordered by score, highest first.
func SortByScore(rows []Row) []Row {
	out := make([]Row, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// TopPerformer is the first row of a filtered, sorted list.
func TopPerformer(sorted []Row) (Row, bool) {
	if len(sorted) == 0 {
		return Row{}, false
	}
	return sorted[0], true
}

func Summarize(rows []Row) Summary {
	summary := Summary{
		Employees:         len(rows),
		RangeDistribution: map[string]int{},
	}
	for _, r := range ScoreRanges {
		summary.RangeDistribution[r] = 0
	}
	total := 0.0
	for _, row := range rows {
		total += row.Score
		for _, r := range ScoreRanges {
			if InRange(row.Score, r) {
				summary.RangeDistribution[r]++
				break
			}
		}
		if row.PrevScore == nil {
			continue
		}
		if row.Diff > 0 {
			summary.Improved++
		} else if row.Diff < 0 {
			summary.Declined++
		}
	}
	if len(rows) > 0 {
		summary.AverageScore = math.Round(total/float64(len(rows))*100) / 100
	}
	return summary
}
