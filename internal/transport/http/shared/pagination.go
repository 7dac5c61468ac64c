package shared

import (
	"net/url"
	"strconv"

	"hrminsights/internal/transport/http/api"
)

type Pagination struct {
	Limit  int
	Offset int
}

// Page reads limit and offset. Limits above max are clamped; malformed or
// negative values are issues.
func (v *Validator) Page(q url.Values, defaultLimit, maxLimit int) Pagination {
	p := Pagination{Limit: defaultLimit}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			v.Add("limit", "must be a positive integer")
		} else {
			p.Limit = n
		}
	}
	if raw := q.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			v.Add("offset", "must be a non-negative integer")
		} else {
			p.Offset = n
		}
	}
	if maxLimit > 0 && p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	return p
}

// Window wraps items for api.Paged.
func (p Pagination) Window(items any, total int) api.Page {
	return api.Page{Items: items, Total: total, Limit: p.Limit, Offset: p.Offset}
}
