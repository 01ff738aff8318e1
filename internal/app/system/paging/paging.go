// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/waffle/pantry/query"
)

// DefaultLimit is used when the request gives no (or a non-positive) limit.
const DefaultLimit = 10

// MaxLimit is the largest page a client may request.
const MaxLimit = 100

// Params is a 1-based page number and a page size.
type Params struct {
	Page  int
	Limit int
}

// Clamp forces page ≥ 1 and limit into 1..MaxLimit, substituting
// DefaultLimit when limit ≤ 0.
func Clamp(page, limit int) Params {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return Params{Page: page, Limit: limit}
}

// Parse reads "page" and "limit" from the query string. Missing or
// malformed values fall back to the defaults.
func Parse(r *http.Request) Params {
	return Clamp(atoi(query.Get(r, "page")), atoi(query.Get(r, "limit")))
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// Skip is the number of documents before this page.
func (p Params) Skip() int64 {
	return int64(p.Page-1) * int64(p.Limit)
}

// TotalPages is ceil(total/limit); zero when there are no rows.
func TotalPages(total int64, limit int) int64 {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return (total + int64(limit) - 1) / int64(limit)
}
