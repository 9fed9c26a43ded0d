package domain

import (
	"strings"
)

// Relevance tiers for keyword searches. Lower is more relevant; tier 1 is
// an exact name match and tier 5 is any record that matched the filter
// predicate some other way (typically via its description).
const (
	TierNameExact      = 1
	TierNamePrefix     = 2
	TierCategoryExact  = 3
	TierCategoryPrefix = 4
	TierResidual       = 5
)

// Rank assigns the relevance tier for a product against a folded keyword.
// Checks run in priority order and the first match wins. The keyword must
// already be canonicalized with FoldKeyword.
func Rank(keyword string, p *Product) int {
	name := strings.ToLower(p.Name)
	category := strings.ToLower(p.Category)

	switch {
	case name == keyword:
		return TierNameExact
	case strings.HasPrefix(name, keyword):
		return TierNamePrefix
	case category == keyword:
		return TierCategoryExact
	case strings.HasPrefix(category, keyword):
		return TierCategoryPrefix
	default:
		return TierResidual
	}
}

// MatchesKeyword reports whether the folded keyword occurs as a
// case-insensitive substring of the product's name, description, or
// category. OR semantics across the three fields.
func MatchesKeyword(keyword string, p *Product) bool {
	if keyword == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Name), keyword) ||
		strings.Contains(strings.ToLower(p.Description), keyword) ||
		strings.Contains(strings.ToLower(p.Category), keyword)
}

// Matches evaluates the full predicate conjunction of the criteria against
// a product: keyword substring (OR across fields), price bounds, and the
// tri-state stock filter.
func Matches(c SearchCriteria, p *Product) bool {
	if !MatchesKeyword(c.Keyword, p) {
		return false
	}
	if c.MinPrice != nil && p.Price < *c.MinPrice {
		return false
	}
	if c.MaxPrice != nil && p.Price > *c.MaxPrice {
		return false
	}
	if c.InStock != nil {
		if *c.InStock && p.Stock <= 0 {
			return false
		}
		if !*c.InStock && p.Stock > 0 {
			return false
		}
	}
	return true
}

// Less is the deterministic ordering for search results. With a keyword
// present the primary key is the relevance tier; otherwise it is the
// explicit sort key. Name ascending breaks primary-key ties and the id
// breaks name ties, so repeated searches paginate identically.
func Less(c SearchCriteria, a, b *Product) bool {
	if c.HasKeyword() {
		ta, tb := Rank(c.Keyword, a), Rank(c.Keyword, b)
		if ta != tb {
			return ta < tb
		}
		return lessByNameThenID(a, b)
	}

	switch c.Sort {
	case SortNameDesc:
		an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name)
		if an != bn {
			return an > bn
		}
	case SortPrice:
		if a.Price != b.Price {
			return a.Price < b.Price
		}
	case SortPriceDesc:
		if a.Price != b.Price {
			return a.Price > b.Price
		}
	case SortCreated:
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
	case SortCreatedDesc:
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
	case SortStock:
		if a.Stock != b.Stock {
			return a.Stock < b.Stock
		}
	case SortStockDesc:
		if a.Stock != b.Stock {
			return a.Stock > b.Stock
		}
	default: // SortName
		an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name)
		if an != bn {
			return an < bn
		}
	}

	return lessByNameThenID(a, b)
}

func lessByNameThenID(a, b *Product) bool {
	an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name)
	if an != bn {
		return an < bn
	}
	return a.ID < b.ID
}
