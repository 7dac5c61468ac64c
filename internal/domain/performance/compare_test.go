package performance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrminsights/internal/domain/daykey"
	"hrminsights/internal/domain/records"
)

var testNow = time.Date(2024, 6, 15, 6, 0, 0, 0, time.UTC) // 11:30 IST

func normalizer(t *testing.T) *daykey.Normalizer {
	t.Helper()
	n, err := daykey.New("Asia/Kolkata")
	require.NoError(t, err)
	return n.WithClock(func() time.Time { return testNow })
}

func employee(id, designation string) records.Employee {
	return records.Employee{
		ID:          id,
		Name:        "emp " + id,
		Designation: records.Designation{Name: designation},
		CreatedAt:   records.At(testNow.AddDate(0, 0, -10)),
	}
}

func score(user string, value float64, at time.Time) records.PerformanceScore {
	return records.PerformanceScore{UserID: user, TotalScore: value, CreatedAt: records.At(at)}
}

func TestCompareJoinsTodayAndYesterday(t *testing.T) {
	n := normalizer(t)
	emps := []records.Employee{
		employee("e1", "Employee"),
		employee("e2", "Intern"),
		employee("m1", "Manager"),
		employee("a1", "Administrator"),
	}
	today := testNow
	yesterday := testNow.AddDate(0, 0, -1)
	scores := []records.PerformanceScore{
		score("e1", 82, today),
		score("e1", 70, yesterday),
		score("e2", 35, today),
		score("m1", 99, today),
		score("a1", 98, today),
		score("ghost", 50, today),
		score("e2", 10, testNow.AddDate(0, 0, -5)),
		{UserID: "e1", TotalScore: 1, CreatedAt: records.Raw("broken")},
	}

	rows, skipped := Compare(scores, emps, n)
	assert.Equal(t, 1, skipped)
	require.Len(t, rows, 2)

	byID := map[string]Row{}
	for _, r := range rows {
		byID[r.EmployeeID] = r
		assert.NotEqual(t, "Manager", r.Designation)
		assert.NotEqual(t, "Administrator", r.Designation)
	}
	require.NotNil(t, byID["e1"].PrevScore)
	assert.Equal(t, 70.0, *byID["e1"].PrevScore)
	assert.Equal(t, 12.0, byID["e1"].Diff)
	assert.Nil(t, byID["e2"].PrevScore)
	assert.Equal(t, 0.0, byID["e2"].Diff)
	assert.Equal(t, "10 days", byID["e1"].Tenure)
}

func TestCompareNeverIncludesExcludedDesignations(t *testing.T) {
	n := normalizer(t)
	designations := []string{"Administrator", "Manager", "Employee", "Intern", ""}
	var emps []records.Employee
	var scores []records.PerformanceScore
	for i, d := range designations {
		id := string(rune('a' + i))
		emps = append(emps, employee(id, d))
		scores = append(scores, score(id, float64(10*i), testNow))
	}
	rows, _ := Compare(scores, emps, n)
	assert.Len(t, rows, 3)
	for _, r := range rows {
		assert.NotContains(t, []string{"Administrator", "Manager"}, r.Designation)
	}
}

func TestFilterSortAndTopPerformer(t *testing.T) {
	rows := []Row{
		{EmployeeID: "a", Designation: "Employee", Score: 40},
		{EmployeeID: "b", Designation: "Intern", Score: 91},
		{EmployeeID: "c", Designation: "Employee", Score: 70},
		{EmployeeID: "d", Designation: "Employee", Score: 71},
		{EmployeeID: "e", Designation: "Employee", Score: 39.5},
	}

	mid := Filter{ScoreRange: ScoreRangeMid}.Apply(rows)
	assert.Equal(t, []string{"a", "c"}, ids(mid))

	high := Filter{ScoreRange: ScoreRangeHigh}.Apply(rows)
	assert.Equal(t, []string{"b", "d"}, ids(high))

	low := Filter{ScoreRange: ScoreRangeLow}.Apply(rows)
	assert.Equal(t, []string{"e"}, ids(low))

	employees := SortByScore(Filter{Designation: "Employee"}.Apply(rows))
	assert.Equal(t, []string{"d", "c", "a", "e"}, ids(employees))

	top, ok := TopPerformer(employees)
	require.True(t, ok)
	assert.Equal(t, "d", top.EmployeeID)

	_, ok = TopPerformer(nil)
	assert.False(t, ok)

	assert.Equal(t, "a", rows[0].EmployeeID, "sort must not mutate input")
}

func TestSummarize(t *testing.T) {
	prev := 50.0
	rows := []Row{
		{Score: 80, PrevScore: &prev, Diff: 30},
		{Score: 45, PrevScore: &prev, Diff: -5},
		{Score: 20},
	}
	s := Summarize(rows)
	assert.Equal(t, 3, s.Employees)
	assert.Equal(t, 48.33, s.AverageScore)
	assert.Equal(t, 1, s.Improved)
	assert.Equal(t, 1, s.Declined)
	assert.Equal(t, map[string]int{">70": 1, "40-70": 1, "<40": 1}, s.RangeDistribution)

	empty := Summarize(nil)
	assert.Equal(t, 0.0, empty.AverageScore)
}

func ids(rows []Row) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.EmployeeID)
	}
	return out
}
