package domain

import (
	"strings"
)

// SortKey identifies one of the fixed orderings a search may request.
type SortKey string

// Recognized sort tokens. Tokens are matched case-insensitively; anything
// unrecognized falls back to SortName.
const (
	SortName        SortKey = "name"
	SortNameDesc    SortKey = "name_desc"
	SortPrice       SortKey = "price"
	SortPriceDesc   SortKey = "price_desc"
	SortCreated     SortKey = "created"
	SortCreatedDesc SortKey = "created_desc"
	SortStock       SortKey = "stock"
	SortStockDesc   SortKey = "stock_desc"
)

// Pagination bounds applied during normalization.
const (
	DefaultPage    = 1
	DefaultPerPage = 20
	MaxPerPage     = 100
)

var sortKeys = map[SortKey]struct{}{
	SortName:        {},
	SortNameDesc:    {},
	SortPrice:       {},
	SortPriceDesc:   {},
	SortCreated:     {},
	SortCreatedDesc: {},
	SortStock:       {},
	SortStockDesc:   {},
}

// ParseSortKey maps a raw sort token to a SortKey. Unrecognized tokens map
// to SortName rather than erroring; the permissive fallback is deliberate.
func ParseSortKey(raw string) SortKey {
	key := SortKey(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := sortKeys[key]; ok {
		return key
	}
	return SortName
}

// SearchCriteria is a normalized, immutable description of a search request.
// Values produced by Normalize are safe to use for filtering, ordering, and
// cache-key derivation without further cleanup.
//
// When Keyword is non-empty the Sort field is ignored and results are
// ordered by relevance tier instead. This override is specified behavior:
// a keyword search answers "what matches best", not "what matches in price
// order".
type SearchCriteria struct {
	Keyword  string
	MinPrice *int64
	MaxPrice *int64
	InStock  *bool
	Page     int
	PerPage  int
	Sort     SortKey
}

// Normalize returns a canonical copy of the criteria: keyword trimmed and
// case-folded (empty meaning absent), page and page size defaulted and
// clamped, sort token resolved against the fixed set. It is pure, never
// fails, and is idempotent: Normalize(Normalize(c)) == Normalize(c).
func (c SearchCriteria) Normalize() SearchCriteria {
	n := c

	n.Keyword = FoldKeyword(c.Keyword)

	if n.Page < 1 {
		n.Page = DefaultPage
	}
	if n.PerPage <= 0 {
		n.PerPage = DefaultPerPage
	}
	if n.PerPage > MaxPerPage {
		n.PerPage = MaxPerPage
	}

	n.Sort = ParseSortKey(string(c.Sort))

	return n
}

// HasKeyword reports whether a keyword filter is present.
func (c SearchCriteria) HasKeyword() bool {
	return c.Keyword != ""
}

// Offset returns the number of records to skip for the current page.
func (c SearchCriteria) Offset() int {
	return (c.Page - 1) * c.PerPage
}

// FoldKeyword canonicalizes a raw keyword: surrounding whitespace is
// stripped and the remainder lower-cased. The folded form is used both for
// matching and for cache-key derivation so the two can never disagree.
func FoldKeyword(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
