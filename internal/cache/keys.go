package cache

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/tidewell/catalog-search/internal/domain"
)

// Cache key namespaces. Search-result entries and single-item entries live
// under distinct prefixes so a write can sweep all search results without
// disturbing item lookups.
const (
	SearchNamespace = "search:"
	ItemNamespace   = "item:"
)

// SearchKey derives the canonical cache key for normalized search criteria.
// Every criteria field appears in a fixed order with explicit separators,
// and the keyword is URL-escaped so arbitrary input can never collide with
// the separator syntax. The key is reversible rather than hashed: field-wise
// equal criteria always produce equal keys, and distinct criteria always
// produce syntactically distinct keys.
func SearchKey(c domain.SearchCriteria) string {
	return fmt.Sprintf("%skw=%s|min=%s|max=%s|stock=%s|page=%d|pp=%d|sort=%s",
		SearchNamespace,
		url.QueryEscape(c.Keyword),
		optInt64(c.MinPrice),
		optInt64(c.MaxPrice),
		optBool(c.InStock),
		c.Page,
		c.PerPage,
		c.Sort,
	)
}

// ItemKey derives the cache key for a single-product lookup.
func ItemKey(id string) string {
	return ItemNamespace + id
}

func optInt64(v *int64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatInt(*v, 10)
}

func optBool(v *bool) string {
	if v == nil {
		return "-"
	}
	if *v {
		return "1"
	}
	return "0"
}
