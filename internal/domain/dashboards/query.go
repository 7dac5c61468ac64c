package dashboards

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"hrminsights/internal/domain/performance"
	"hrminsights/internal/domain/projects"
	"hrminsights/internal/domain/sla"
)

var ErrInvalidQuery = errors.New("invalid dashboard query")

const (
	DefaultDays      = 30
	MaxDays          = 365
	DefaultPageSize  = 20
	MaxPageSize      = 100
	DefaultHeatRange = 30
	SortByScoreDesc  = performance.SortScoreDesc
)

// HeatmapRanges are the selectable window lengths.
var HeatmapRanges = []int{7, DefaultHeatRange, 90, 365}

type SubmissionsQuery struct {
	Days       int    `json:"days"`
	EmployeeID string `json:"employeeId,omitempty"`
}

func DefaultSubmissionsQuery() SubmissionsQuery {
	return SubmissionsQuery{Days: DefaultDays}
}

func (q SubmissionsQuery) WithDays(days int) SubmissionsQuery {
	q.Days = days
	return q
}

func (q SubmissionsQuery) WithEmployee(id string) SubmissionsQuery {
	q.EmployeeID = strings.TrimSpace(id)
	return q
}

func (q SubmissionsQuery) Validate() error {
	if q.Days < 1 || q.Days > MaxDays {
		return fmt.Errorf("%w: days must be between 1 and %d", ErrInvalidQuery, MaxDays)
	}
	return nil
}

type HeatmapQuery struct {
	Range      int    `json:"range"`
	EmployeeID string `json:"employeeId,omitempty"`
}

func DefaultHeatmapQuery() HeatmapQuery {
	return HeatmapQuery{Range: DefaultHeatRange}
}

func (q HeatmapQuery) WithRange(days int) HeatmapQuery {
	q.Range = days
	return q
}

func (q HeatmapQuery) WithEmployee(id string) HeatmapQuery {
	q.EmployeeID = strings.TrimSpace(id)
	return q
}

func (q HeatmapQuery) Validate() error {
	for _, r := range HeatmapRanges {
		if q.Range == r {
			return nil
		}
	}
	return fmt.Errorf("%w: range must be one of 7, 30, 90, 365", ErrInvalidQuery)
}

type PerformanceQuery struct {
	Designation string `json:"designation,omitempty"`
	ScoreRange  string `json:"scoreRange,omitempty"`
	Sort        string `json:"sort"`
	EmployeeID  string `json:"employeeId,omitempty"`
}

func DefaultPerformanceQuery() PerformanceQuery {
	return PerformanceQuery{Sort: SortByScoreDesc}
}

func (q PerformanceQuery) WithDesignation(name string) PerformanceQuery {
	q.Designation = strings.TrimSpace(name)
	return q
}

func (q PerformanceQuery) WithScoreRange(r string) PerformanceQuery {
	q.ScoreRange = strings.TrimSpace(r)
	return q
}

func (q PerformanceQuery) WithEmployee(id string) PerformanceQuery {
	q.EmployeeID = strings.TrimSpace(id)
	return q
}

func (q PerformanceQuery) Validate() error {
	if q.ScoreRange != "" && !validScoreRange(q.ScoreRange) {
		return fmt.Errorf("%w: scoreRange must be one of >70, 40-70, <40", ErrInvalidQuery)
	}
	if q.Sort != "" && q.Sort != SortByScoreDesc {
		return fmt.Errorf("%w: sort must be %q", ErrInvalidQuery, SortByScoreDesc)
	}
	return nil
}

func validScoreRange(r string) bool {
	for _, candidate := range performance.ScoreRanges {
		if candidate == r {
			return true
		}
	}
	return false
}

type ProductivityQuery struct {
	Limit      int    `json:"limit"`
	Offset     int    `json:"offset"`
	EmployeeID string `json:"employeeId,omitempty"`
}

func DefaultProductivityQuery() ProductivityQuery {
	return ProductivityQuery{Limit: DefaultPageSize}
}

func (q ProductivityQuery) WithPage(limit, offset int) ProductivityQuery {
	q.Limit = limit
	q.Offset = offset
	return q
}

func (q ProductivityQuery) WithEmployee(id string) ProductivityQuery {
	q.EmployeeID = strings.TrimSpace(id)
	return q
}

func (q ProductivityQuery) Validate() error {
	if q.Limit < 1 || q.Limit > MaxPageSize {
		return fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidQuery, MaxPageSize)
	}
	if q.Offset < 0 {
		return fmt.Errorf("%w: offset must not be negative", ErrInvalidQuery)
	}
	return nil
}

type SLAQuery struct {
	ProjectID  string `json:"projectId,omitempty"`
	Tier       string `json:"tier,omitempty"`
	EmployeeID string `json:"employeeId,omitempty"`
}

func (q SLAQuery) WithProject(id string) SLAQuery {
	q.ProjectID = strings.TrimSpace(id)
	return q
}

// WithTier narrows the table and bars; the donut keeps the project scope.
func (q SLAQuery) WithTier(tier string) SLAQuery {
	q.Tier = strings.ToUpper(strings.TrimSpace(tier))
	return q
}

func (q SLAQuery) WithEmployee(id string) SLAQuery {
	q.EmployeeID = strings.TrimSpace(id)
	return q
}

func (q SLAQuery) Validate() error {
	if q.Tier != "" && !sla.ValidTier(q.Tier) {
		return fmt.Errorf("%w: tier must be one of P1, P2, P3, F4, F5, F6", ErrInvalidQuery)
	}
	return nil
}

type ProjectsQuery struct {
	Status    string `json:"status,omitempty"`
	OwnerID   string `json:"ownerId,omitempty"`
	Timeframe string `json:"timeframe,omitempty"`
}

func (q ProjectsQuery) WithStatus(status string) ProjectsQuery {
	q.Status = strings.TrimSpace(status)
	return q
}

func (q ProjectsQuery) WithOwner(id string) ProjectsQuery {
	q.OwnerID = strings.TrimSpace(id)
	return q
}

func (q ProjectsQuery) WithTimeframe(tf string) ProjectsQuery {
	q.Timeframe = strings.ToLower(strings.TrimSpace(tf))
	return q
}

func (q ProjectsQuery) Validate() error {
	if !projects.ValidStatus(q.Status) {
		return fmt.Errorf("%w: status must be one of Healthy, Warning, At Risk", ErrInvalidQuery)
	}
	if !projects.ValidTimeframe(q.Timeframe) {
		return fmt.Errorf("%w: timeframe must be 30d or 90d", ErrInvalidQuery)
	}
	return nil
}

func (q ProjectsQuery) filter() projects.Filter {
	return projects.Filter{Status: q.Status, OwnerID: q.OwnerID, Timeframe: q.Timeframe}
}

// ParseSubmissionsQuery reads days and employeeId.
func ParseSubmissionsQuery(v url.Values) (SubmissionsQuery, error) {
	q := DefaultSubmissionsQuery()
	if raw := v.Get("days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil {
			return q, fmt.Errorf("%w: days must be a number", ErrInvalidQuery)
		}
		q = q.WithDays(days)
	}
	q = q.WithEmployee(v.Get("employeeId"))
	return q, q.Validate()
}

// ParseHeatmapQuery reads range and employeeId.
func ParseHeatmapQuery(v url.Values) (HeatmapQuery, error) {
	q := DefaultHeatmapQuery()
	if raw := v.Get("range"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil {
			return q, fmt.Errorf("%w: range must be a number", ErrInvalidQuery)
		}
		q = q.WithRange(days)
	}
	q = q.WithEmployee(v.Get("employeeId"))
	return q, q.Validate()
}

// ParsePerformanceQuery reads designation, scoreRange and sort.
func ParsePerformanceQuery(v url.Values) (PerformanceQuery, error) {
	q := DefaultPerformanceQuery().
		WithDesignation(v.Get("designation")).
		WithScoreRange(v.Get("scoreRange"))
	if raw := strings.TrimSpace(v.Get("sort")); raw != "" {
		q.Sort = raw
	}
	return q, q.Validate()
}

// ParseProductivityQuery reads limit, offset and employeeId.
func ParseProductivityQuery(v url.Values) (ProductivityQuery, error) {
	q := DefaultProductivityQuery()
	limit, offset := q.Limit, 0
	if raw := v.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return q, fmt.Errorf("%w: limit must be a number", ErrInvalidQuery)
		}
		limit = n
	}
	if raw := v.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return q, fmt.Errorf("%w: offset must be a number", ErrInvalidQuery)
		}
		offset = n
	}
	q = q.WithPage(limit, offset).WithEmployee(v.Get("employeeId"))
	return q, q.Validate()
}

// ParseSLAQuery reads projectId and tier.
func ParseSLAQuery(v url.Values) (SLAQuery, error) {
	q := SLAQuery{}.WithProject(v.Get("projectId")).WithTier(v.Get("tier"))
	return q, q.Validate()
}

// ParseProjectsQuery reads status, ownerId and timeframe.
func ParseProjectsQuery(v url.Values) (ProjectsQuery, error) {
	q := ProjectsQuery{}.
		WithStatus(v.Get("status")).
		WithOwner(v.Get("ownerId")).
		WithTimeframe(v.Get("timeframe"))
	return q, q.Validate()
}
