package records

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Check validates a single record against its struct tags.
func Check(v any) error {
	return validate.Struct(v)
}

// Keep returns the records that pass validation and the number dropped.
func Keep[T any](items []T) ([]T, int) {
	kept := make([]T, 0, len(items))
	dropped := 0
	for _, item := range items {
		if err := validate.Struct(item); err != nil {
			dropped++
			continue
		}
		kept = append(kept, item)
	}
	return kept, dropped
}

// FieldIssue is one failed validation rule.
type FieldIssue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Issues flattens a validator error into field/reason pairs.
func Issues(err error) []FieldIssue {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		if err == nil {
			return nil
		}
		return []FieldIssue{{Field: "", Reason: err.Error()}}
	}
	out := make([]FieldIssue, 0, len(verrs))
	for _, fe := range verrs {
		reason := "failed " + fe.Tag()
		if fe.Param() != "" {
			reason += "=" + fe.Param()
		}
		out = append(out, FieldIssue{Field: lowerFirst(fe.Field()), Reason: reason})
	}
	return out
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// DecodeList decodes a JSON array of records one element at a time. Elements
// that do not fit T are skipped and counted in malformed; only a body that is
// not an array fails. Null decodes to an empty list.
func DecodeList[T any](data []byte) (items []T, malformed int, err error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, 0, err
	}
	items = make([]T, 0, len(raw))
	for _, elem := range raw {
		var item T
		if err := json.Unmarshal(elem, &item); err != nil {
			malformed++
			continue
		}
		items = append(items, item)
	}
	return items, malformed, nil
}
