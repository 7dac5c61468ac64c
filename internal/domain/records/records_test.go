package records

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrminsights/internal/domain/daykey"
)

func TestTimestampDecodesStringsNumbersAndNull(t *testing.T) {
	var task Task
	payload := `{"id":"t1","assignedTo":"u1","status":"Completed","createdAt":"2024-01-01T00:00:00Z","dueAt":1704153600000,"completedAt":null}`
	require.NoError(t, json.Unmarshal([]byte(payload), &task))

	created, err := task.CreatedAt.Instant()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), created)

	due, err := task.DueAt.Instant()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), due)

	assert.False(t, task.CompletedAt.Present())
	assert.True(t, task.IsCompleted())
}

func TestTimestampDefersParseErrors(t *testing.T) {
	var score PerformanceScore
	require.NoError(t, json.Unmarshal([]byte(`{"userId":"u1","totalScore":50,"createdAt":"yesterday-ish"}`), &score))
	assert.True(t, score.CreatedAt.Present())
	assert.False(t, score.CreatedAt.Valid())

	_, err := score.CreatedAt.Instant()
	var parseErr *daykey.ParseError
	assert.True(t, errors.As(err, &parseErr))
}

func TestTimestampRoundTripsRawValue(t *testing.T) {
	ts := Raw("2024-02-03T04:05:06Z")
	out, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.JSONEq(t, `"2024-02-03T04:05:06Z"`, string(out))

	out, err = json.Marshal(Timestamp{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(out))
}

func TestKeepDropsInvalidRecords(t *testing.T) {
	scores := []PerformanceScore{
		{UserID: "u1", TotalScore: 80},
		{UserID: "", TotalScore: 50},
		{UserID: "u2", TotalScore: 140},
	}
	kept, dropped := Keep(scores)
	assert.Len(t, kept, 1)
	assert.Equal(t, 2, dropped)
}

func TestIssuesFlattensValidationErrors(t *testing.T) {
	err := Check(Announcement{})
	require.Error(t, err)
	issues := Issues(err)
	fields := []string{}
	for _, issue := range issues {
		fields = append(fields, issue.Field)
	}
	assert.ElementsMatch(t, []string{"title", "message"}, fields)
}

func TestEmployeeSalaryDecodesDecimal(t *testing.T) {
	var emp Employee
	require.NoError(t, json.Unmarshal([]byte(`{"id":"e1","designation":{"name":"manager"},"salary":{"amount":"1250.50","status":"paid"}}`), &emp))
	assert.Equal(t, "1250.5", emp.Salary.Amount.String())
	assert.True(t, emp.HasDesignation(DesignationManager))
}

func TestDecodeList(t *testing.T) {
	roles, malformed, err := DecodeList[Role]([]byte(`[{"id":"r1","name":"Support","users":["u1"],"permissionCount":2}]`))
	require.NoError(t, err)
	assert.Zero(t, malformed)
	require.Len(t, roles, 1)
	assert.Equal(t, []string{"u1"}, roles[0].Users)

	empty, _, err := DecodeList[Role]([]byte(`null`))
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	_, _, err = DecodeList[Role]([]byte(`{"id":"r1"}`))
	assert.Error(t, err)
}

func TestDecodeListSkipsMistypedElements(t *testing.T) {
	roles, malformed, err := DecodeList[Role]([]byte(`[
		{"id":"r1","name":"Support","users":["u1"]},
		{"id":"r2","name":"Ops","users":"u2"},
		{"id":"r3","name":"Sales","users":[]}
	]`))
	require.NoError(t, err)
	assert.Equal(t, 1, malformed)
	require.Len(t, roles, 2)
	assert.Equal(t, "r1", roles[0].ID)
	assert.Equal(t, "r3", roles[1].ID)
}
