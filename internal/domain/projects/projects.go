// Package projects derives budget usage, health and risk bottlenecks for the
// project board.
package projects

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"hrminsights/internal/domain/records"
)

const (
	HealthHealthy = "Healthy"
	HealthWarning = "Warning"
	HealthAtRisk  = "At Risk"

	DelayCritical = "Critical"
	DelayWarning  = "Warning"
	DelayMinor    = "Minor"

	Timeframe30d = "30d"
	Timeframe90d = "90d"
)

var HealthStatuses = []string{HealthHealthy, HealthWarning, HealthAtRisk}

type Budget struct {
	Total     decimal.Decimal `json:"total"`
	Used      decimal.Decimal `json:"used"`
	UsedPct   int             `json:"usedPercent"`
	Remaining decimal.Decimal `json:"remaining"`
}

// BudgetOf approximates spend as the manager's salary plus every team
// member's salary. Unknown ids contribute nothing.
func BudgetOf(p records.Project, salaries map[string]decimal.Decimal) Budget {
	used := salaries[p.ManagerID]
	for _, m := range p.Team {
		used = used.Add(salaries[m.UserID])
	}

	b := Budget{Total: p.Budget, Used: used, Remaining: decimal.Zero}
	if p.Budget.IsPositive() {
		b.UsedPct = int(used.Div(p.Budget).Mul(decimal.NewFromInt(100)).Round(0).IntPart())
	}
	if rem := p.Budget.Sub(used); rem.IsPositive() {
		b.Remaining = rem
	}
	return b
}

// SalaryIndex maps employee id to salary amount.
func SalaryIndex(emps []records.Employee) map[string]decimal.Decimal {
	return lo.SliceToMap(emps, func(e records.Employee) (string, decimal.Decimal) {
		return e.ID, e.Salary.Amount
	})
}

// Health classifies a project. An open critical risk wins over completion.
func Health(p records.Project) string {
	if lo.SomeBy(p.Risks, func(r records.Risk) bool { return r.IsCritical() && !r.ResolvedOn.Present() }) {
		return HealthAtRisk
	}
	switch {
	case p.Progress.Percent >= 80:
		return HealthHealthy
	case p.Progress.Percent >= 50:
		return HealthWarning
	default:
		return HealthAtRisk
	}
}

// Bottleneck is one risk row with its delay placed in exactly one of the
// three severity columns.
type Bottleneck struct {
	ProjectID   string `json:"projectId"`
	ProjectName string `json:"projectName"`
	RiskID      string `json:"riskId,omitempty"`
	Label       string `json:"label"`
	Severity    string `json:"severity"`
	Resolved    bool   `json:"resolved"`
	DelayDays   int    `json:"delayDays"`
	Bucket      string `json:"bucket"`
	Critical    int    `json:"critical"`
	Warning     int    `json:"warning"`
	Minor       int    `json:"minor"`
}

// DelayBucket names the severity column for a delay in days.
func DelayBucket(days int) string {
	switch {
	case days >= 10:
		return DelayCritical
	case days >= 5:
		return DelayWarning
	default:
		return DelayMinor
	}
}

// Bottlenecks lists every risk with a parseable raised date, most delayed
// first. Open risks are measured up to now. The second return value counts
// risks skipped for unparseable dates.
func Bottlenecks(projects []records.Project, now time.Time) ([]Bottleneck, int) {
	rows := []Bottleneck{}
	skipped := 0
	for _, p := range projects {
		for _, r := range p.Risks {
			if !r.RaisedOn.Present() {
				continue
			}
			raised, err := r.RaisedOn.Instant()
			if err != nil {
				skipped++
				continue
			}
			end := now
			if r.ResolvedOn.Present() {
				resolved, err := r.ResolvedOn.Instant()
				if err != nil {
					skipped++
					continue
				}
				end = resolved
			}

			delay := max(0, int(math.Floor(float64(end.Sub(raised).Milliseconds())/86_400_000+0.5)))
			row := Bottleneck{
				ProjectID:   p.ID,
				ProjectName: p.Name,
				RiskID:      r.ID,
				Label:       r.Label(),
				Severity:    r.Severity,
				Resolved:    r.ResolvedOn.Present(),
				DelayDays:   delay,
				Bucket:      DelayBucket(delay),
			}
			switch row.Bucket {
			case DelayCritical:
				row.Critical = delay
			case DelayWarning:
				row.Warning = delay
			default:
				row.Minor = delay
			}
			rows = append(rows, row)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].DelayDays > rows[j].DelayDays })
	return rows, skipped
}

// Filter narrows the project board. Zero values leave a dimension open.
type Filter struct {
	Status    string
	OwnerID   string
	Timeframe string
}

// ValidTimeframe accepts "", 30d and 90d.
func ValidTimeframe(tf string) bool {
	return tf == "" || tf == Timeframe30d || tf == Timeframe90d
}

// ValidStatus accepts "" or one of HealthStatuses, case-insensitively.
func ValidStatus(s string) bool {
	return s == "" || lo.ContainsBy(HealthStatuses, func(h string) bool { return strings.EqualFold(h, s) })
}

func (f Filter) Apply(projects []records.Project, now time.Time) []records.Project {
	var cutoff time.Time
	switch f.Timeframe {
	case Timeframe30d:
		cutoff = now.AddDate(0, 0, -30)
	case Timeframe90d:
		cutoff = now.AddDate(0, 0, -90)
	}

	return lo.Filter(projects, func(p records.Project, _ int) bool {
		if f.Status != "" && !strings.EqualFold(Health(p), f.Status) {
			return false
		}
		if f.OwnerID != "" && p.ManagerID != f.OwnerID {
			return false
		}
		if !cutoff.IsZero() {
			started, ok := startedAt(p)
			if !ok || started.Before(cutoff) {
				return false
			}
		}
		return true
	})
}

func startedAt(p records.Project) (time.Time, bool) {
	if t, err := p.CreatedAt.Instant(); err == nil {
		return t, true
	}
	if t, err := p.Timeline.Start.Instant(); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// Card is the board row for one project.
type Card struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	ManagerID string  `json:"managerId"`
	Manager   string  `json:"manager,omitempty"`
	TeamSize  int     `json:"teamSize"`
	Progress  float64 `json:"progress"`
	Status    string  `json:"status,omitempty"`
	Health    string  `json:"health"`
	OpenRisks int     `json:"openRisks"`
	Budget    Budget  `json:"budget"`
}

// Summary counts projects per health class.
type Summary struct {
	Total       int            `json:"total"`
	ByHealth    map[string]int `json:"byHealth"`
	AvgProgress int            `json:"avgProgress"`
}

// Board builds cards for the filtered projects and a health summary.
func Board(projects []records.Project, emps []records.Employee, f Filter, now time.Time) ([]Card, Summary) {
	salaries := SalaryIndex(emps)
	names := lo.SliceToMap(emps, func(e records.Employee) (string, string) { return e.ID, e.Name })

	kept := f.Apply(projects, now)
	cards := lo.Map(kept, func(p records.Project, _ int) Card {
		return Card{
			ID:        p.ID,
			Name:      p.Name,
			ManagerID: p.ManagerID,
			Manager:   names[p.ManagerID],
			TeamSize:  len(p.Team),
			Progress:  p.Progress.Percent,
			Status:    p.Progress.Status,
			Health:    Health(p),
			OpenRisks: lo.CountBy(p.Risks, func(r records.Risk) bool { return !r.ResolvedOn.Present() }),
			Budget:    BudgetOf(p, salaries),
		}
	})

	sum := Summary{Total: len(cards), ByHealth: map[string]int{}}
	for _, h := range HealthStatuses {
		sum.ByHealth[h] = 0
	}
	for _, c := range cards {
		sum.ByHealth[c.Health]++
	}
	if len(cards) > 0 {
		total := lo.SumBy(cards, func(c Card) float64 { return c.Progress })
		sum.AvgProgress = int(math.Floor(total/float64(len(cards)) + 0.5))
	}
	return cards, sum
}
