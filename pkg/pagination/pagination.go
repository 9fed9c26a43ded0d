package pagination

import (
	"errors"
	"net/http"
	"strconv"
)

// DefaultPerPage and MaxPerPage bound page sizes across the service.
const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Params holds pagination parameters extracted from query strings.
type Params struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Offset  int `json:"-"`
}

// DefaultParams returns sensible pagination defaults.
func DefaultParams() Params {
	return Params{
		Page:    1,
		PerPage: DefaultPerPage,
		Offset:  0,
	}
}

// FromRequest extracts pagination parameters from an HTTP request. Malformed
// integers are an error so typos do not silently page through the whole set;
// out-of-range values fall back to defaults, with per_page clamped to
// MaxPerPage.
func FromRequest(r *http.Request) (Params, error) {
	p := DefaultParams()

	if page := r.URL.Query().Get("page"); page != "" {
		v, err := strconv.Atoi(page)
		if err != nil {
			return Params{}, errors.New("page must be a valid integer")
		}
		if v > 0 {
			p.Page = v
		}
	}

	if perPage := r.URL.Query().Get("per_page"); perPage != "" {
		v, err := strconv.Atoi(perPage)
		if err != nil {
			return Params{}, errors.New("per_page must be a valid integer")
		}
		if v > 0 {
			if v > MaxPerPage {
				v = MaxPerPage
			}
			p.PerPage = v
		}
	}

	p.Offset = (p.Page - 1) * p.PerPage
	return p, nil
}

// Result wraps a paginated response.
type Result[T any] struct {
	Data       []T  `json:"data"`
	TotalCount int  `json:"total_count"`
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// NewResult creates a paginated result for the given page of data.
func NewResult[T any](data []T, totalCount, page, perPage int) Result[T] {
	if perPage < 1 {
		perPage = 1
	}
	totalPages := totalCount / perPage
	if totalCount%perPage > 0 {
		totalPages++
	}

	return Result[T]{
		Data:       data,
		TotalCount: totalCount,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}
