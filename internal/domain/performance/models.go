package performance

const (
	ScoreRangeHigh = ">70"
	ScoreRangeMid  = "40-70"
	ScoreRangeLow  = "<40"

	SortScoreDesc = "score"
)

var ScoreRanges = []string{ScoreRangeHigh, ScoreRangeMid, ScoreRangeLow}

// Row compares one employee's score today with yesterday's.
type Row struct {
	EmployeeID     string   `json:"employeeId"`
	Name           string   `json:"name"`
	Designation    string   `json:"designation"`
	ProfilePicture string   `json:"profilePicture,omitempty"`
	Tenure         string   `json:"tenure"`
	Score          float64  `json:"score"`
	PrevScore      *float64 `json:"prevScore"`
	Diff           float64  `json:"diff"`
}

type Summary struct {
	Employees         int            `json:"employees"`
	AverageScore      float64        `json:"averageScore"`
	Improved          int            `json:"improved"`
	Declined          int            `json:"declined"`
	RangeDistribution map[string]int `json:"rangeDistribution"`
}
