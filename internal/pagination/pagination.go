// Package pagination slices filtered result sets by limit and offset.
package pagination

import "strconv"

// Params selects a window of a result set.
type Params struct {
	Limit  int
	Offset int
}

// Meta describes the returned window relative to the filtered total.
type Meta struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"hasMore"`
}

// Parse reads limit and offset query values, falling back to defaultLimit and 0
// when a value is absent, non-numeric or negative.
func Parse(limit, offset string, defaultLimit int) Params {
	p := Params{Limit: defaultLimit}
	if n, err := strconv.Atoi(limit); err == nil && n >= 0 {
		p.Limit = n
	}
	if n, err := strconv.Atoi(offset); err == nil && n >= 0 {
		p.Offset = n
	}
	return p
}

// Apply returns the contiguous window of items selected by p.
// The returned slice is never nil.
func Apply[T any](items []T, p Params) ([]T, Meta) {
	total := len(items)
	start := min(p.Offset, total)
	end := start + min(p.Limit, total-start)

	window := make([]T, end-start)
	copy(window, items[start:end])

	return window, Meta{
		Total:   total,
		Limit:   p.Limit,
		Offset:  p.Offset,
		HasMore: p.Offset < total && p.Limit < total-p.Offset,
	}
}
