// Package daykey turns timestamps into calendar-day keys (YYYY-MM-DD) in a
// fixed time zone. Every per-day join in the dashboards goes through here.
package daykey

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/samber/lo"
)

const (
	DefaultTimezone = "Asia/Kolkata"
	Layout          = "2006-01-02"
)

var ErrUnparseable = errors.New("unparseable timestamp")

// ParseError reports a timestamp that could not be normalized.
type ParseError struct {
	Input any
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("daykey: cannot parse %v: %v", e.Input, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Instant is implemented by record types that carry their own timestamp.
type Instant interface {
	Instant() (time.Time, error)
}

var stringLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	Layout,
}

// ParseTime accepts time values, ISO-8601 strings and epoch milliseconds.
// Zone-less strings are read as UTC.
func ParseTime(v any) (time.Time, error) {
	switch value := v.(type) {
	case time.Time:
		if value.IsZero() {
			return time.Time{}, &ParseError{Input: v, Err: ErrUnparseable}
		}
		return value, nil
	case *time.Time:
		if value == nil || value.IsZero() {
			return time.Time{}, &ParseError{Input: v, Err: ErrUnparseable}
		}
		return *value, nil
	case Instant:
		return value.Instant()
	case string:
		return parseString(value)
	case json.Number:
		ms, err := value.Float64()
		if err != nil {
			return time.Time{}, &ParseError{Input: v, Err: err}
		}
		return fromMillis(v, ms)
	case int:
		return time.UnixMilli(int64(value)).UTC(), nil
	case int64:
		return time.UnixMilli(value).UTC(), nil
	case float64:
		return fromMillis(v, value)
	case nil:
		return time.Time{}, &ParseError{Input: v, Err: ErrUnparseable}
	default:
		return time.Time{}, &ParseError{Input: v, Err: fmt.Errorf("unsupported type %T", v)}
	}
}

func parseString(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, &ParseError{Input: raw, Err: ErrUnparseable}
	}
	for _, layout := range stringLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, &ParseError{Input: raw, Err: ErrUnparseable}
}

func fromMillis(input any, ms float64) (time.Time, error) {
	if math.IsNaN(ms) || math.IsInf(ms, 0) || math.Abs(ms) >= math.MaxInt64 {
		return time.Time{}, &ParseError{Input: input, Err: ErrUnparseable}
	}
	return time.UnixMilli(int64(ms)).UTC(), nil
}

// Normalizer maps instants to day keys in one location.
type Normalizer struct {
	loc *time.Location
	now func() time.Time
}

func New(timezone string) (*Normalizer, error) {
	if strings.TrimSpace(timezone) == "" {
		timezone = DefaultTimezone
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
	}
	return &Normalizer{loc: loc, now: time.Now}, nil
}

// WithClock returns a copy that reads "now" from clock.
func (n *Normalizer) WithClock(clock func() time.Time) *Normalizer {
	return &Normalizer{loc: n.loc, now: clock}
}

func (n *Normalizer) Location() *time.Location { return n.loc }

func (n *Normalizer) Now() time.Time { return n.now().In(n.loc) }

// Key returns the day key of v in the normalizer's location.
func (n *Normalizer) Key(v any) (string, error) {
	t, err := ParseTime(v)
	if err != nil {
		return "", err
	}
	return n.KeyOf(t), nil
}

func (n *Normalizer) KeyOf(t time.Time) string {
	return t.In(n.loc).Format(Layout)
}

func (n *Normalizer) Today() string {
	return n.KeyOf(n.now())
}

func (n *Normalizer) Yesterday() string {
	return n.midnight().AddDate(0, 0, -1).Format(Layout)
}

// LastNDays returns n day keys ending today, oldest first.
func (n *Normalizer) LastNDays(count int) []string {
	if count <= 0 {
		return []string{}
	}
	today := n.midnight()
	keys := make([]string, 0, count)
	for i := count - 1; i >= 0; i-- {
		keys = append(keys, today.AddDate(0, 0, -i).Format(Layout))
	}
	return keys
}

// DaysBetween counts calendar days from one key to another. Both keys must be
// in Layout.
func (n *Normalizer) DaysBetween(fromKey, toKey string) (int, error) {
	from, err := time.ParseInLocation(Layout, fromKey, n.loc)
	if err != nil {
		return 0, &ParseError{Input: fromKey, Err: err}
	}
	to, err := time.ParseInLocation(Layout, toKey, n.loc)
	if err != nil {
		return 0, &ParseError{Input: toKey, Err: err}
	}
	// noon anchors keep DST shifts from skewing the count
	from = time.Date(from.Year(), from.Month(), from.Day(), 12, 0, 0, 0, time.UTC)
	to = time.Date(to.Year(), to.Month(), to.Day(), 12, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24), nil
}

func (n *Normalizer) midnight() time.Time {
	now := n.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, n.loc)
}

// WeekBucket is a run of up to seven consecutive day keys.
type WeekBucket struct {
	Label string   `json:"label"`
	Days  []string `json:"days"`
}

// WeekBuckets splits keys into chunks of seven, preserving order.
func WeekBuckets(keys []string) []WeekBucket {
	chunks := lo.Chunk(keys, 7)
	buckets := make([]WeekBucket, 0, len(chunks))
	for i, days := range chunks {
		buckets = append(buckets, WeekBucket{
			Label: fmt.Sprintf("W%d(%s→%s)", i+1, monthDay(days[0]), monthDay(days[len(days)-1])),
			Days:  days,
		})
	}
	return buckets
}

func monthDay(key string) string {
	t, err := time.Parse(Layout, key)
	if err != nil {
		return key
	}
	return t.Format("Jan 2")
}
