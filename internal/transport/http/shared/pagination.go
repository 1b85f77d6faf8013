package shared

import (
	"net/http"
	"strconv"
)

// Pagination is the resolved window for a list endpoint. Callers may page
// with limit/offset directly or with a 1-based page parameter; page wins when
// both are present.
type Pagination struct {
	Limit  int
	Offset int
}

func ParsePagination(r *http.Request, defaultLimit, maxLimit int) Pagination {
	q := r.URL.Query()

	limit := positiveInt(q.Get("limit"), defaultLimit)
	if maxLimit > 0 && limit > maxLimit {
		limit = maxLimit
	}

	offset := 0
	if v, err := strconv.Atoi(q.Get("offset")); err == nil && v > 0 {
		offset = v
	}
	if page := positiveInt(q.Get("page"), 0); page > 1 {
		offset = (page - 1) * limit
	}

	return Pagination{Limit: limit, Offset: offset}
}

func positiveInt(raw string, fallback int) int {
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
