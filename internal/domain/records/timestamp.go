package records

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"

	"hrminsights/internal/domain/daykey"
)

var ErrMissingTimestamp = errors.New("timestamp not set")

// Timestamp keeps the backend's raw value and parses it on demand, so a bad
// value fails at normalization instead of at decode time.
type Timestamp struct {
	raw any
	set bool
}

// At wraps an already parsed time.
func At(t time.Time) Timestamp {
	return Timestamp{raw: t, set: true}
}

// Raw wraps an unparsed value such as an ISO string or epoch millis.
func Raw(v any) Timestamp {
	if v == nil {
		return Timestamp{}
	}
	return Timestamp{raw: v, set: true}
}

func (t Timestamp) Present() bool { return t.set }

func (t Timestamp) Instant() (time.Time, error) {
	if !t.set {
		return time.Time{}, &daykey.ParseError{Input: nil, Err: ErrMissingTimestamp}
	}
	return daykey.ParseTime(t.raw)
}

// Valid reports whether the timestamp is present and parses.
func (t Timestamp) Valid() bool {
	if !t.set {
		return false
	}
	_, err := t.Instant()
	return err == nil
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*t = Timestamp{}
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	if s, ok := v.(string); ok && s == "" {
		*t = Timestamp{}
		return nil
	}
	*t = Timestamp{raw: v, set: true}
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if !t.set {
		return []byte("null"), nil
	}
	return json.Marshal(t.raw)
}
