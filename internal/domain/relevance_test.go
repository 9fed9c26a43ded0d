package domain

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func mkProduct(id, name, description, category string, price int64, stock int) Product {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	return Product{
		ID:          id,
		Name:        name,
		Description: description,
		Category:    category,
		Price:       price,
		Stock:       stock,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestRank_Tiers(t *testing.T) {
	tests := []struct {
		name     string
		product  Product
		expected int
	}{
		{"exact name match", mkProduct("1", "Laptop", "", "Electronics", 0, 0), TierNameExact},
		{"exact name match ignores case", mkProduct("1", "LAPTOP", "", "Electronics", 0, 0), TierNameExact},
		{"name prefix match", mkProduct("2", "Laptop Pro", "", "Electronics", 0, 0), TierNamePrefix},
		{"category exact match", mkProduct("3", "ThinkBook", "", "laptop", 0, 0), TierCategoryExact},
		{"category prefix match", mkProduct("4", "USB Cable", "", "Laptop Accessories", 0, 0), TierCategoryPrefix},
		{"description only match", mkProduct("5", "Backpack", "fits any laptop", "Bags", 0, 0), TierResidual},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Rank("laptop", &tt.product))
		})
	}
}

func TestMatchesKeyword_ORAcrossFields(t *testing.T) {
	p := mkProduct("1", "Widget", "a laptop sleeve", "Bags", 0, 0)

	assert.True(t, MatchesKeyword("laptop", &p), "description substring")
	assert.True(t, MatchesKeyword("widget", &p), "name substring")
	assert.True(t, MatchesKeyword("bag", &p), "category substring")
	assert.False(t, MatchesKeyword("phone", &p))
	assert.True(t, MatchesKeyword("", &p), "absent keyword matches everything")
}

func TestMatches_PredicateConjunction(t *testing.T) {
	p := mkProduct("1", "Laptop", "", "Electronics", 10000, 5)

	match := SearchCriteria{Keyword: "laptop", MinPrice: int64Ptr(5000), MaxPrice: int64Ptr(20000), InStock: boolPtr(true)}
	assert.True(t, Matches(match, &p))

	tooExpensiveMin := SearchCriteria{Keyword: "laptop", MinPrice: int64Ptr(15000)}
	assert.False(t, Matches(tooExpensiveMin, &p))

	tooCheapMax := SearchCriteria{Keyword: "laptop", MaxPrice: int64Ptr(5000)}
	assert.False(t, Matches(tooCheapMax, &p))

	wrongKeyword := SearchCriteria{Keyword: "phone", MinPrice: int64Ptr(5000)}
	assert.False(t, Matches(wrongKeyword, &p))
}

func TestMatches_StockTriState(t *testing.T) {
	inStock := mkProduct("1", "A", "", "C", 0, 5)
	outOfStock := mkProduct("2", "B", "", "C", 0, 0)

	none := SearchCriteria{}
	assert.True(t, Matches(none, &inStock))
	assert.True(t, Matches(none, &outOfStock))

	wantStock := SearchCriteria{InStock: boolPtr(true)}
	assert.True(t, Matches(wantStock, &inStock))
	assert.False(t, Matches(wantStock, &outOfStock))

	wantEmpty := SearchCriteria{InStock: boolPtr(false)}
	assert.False(t, Matches(wantEmpty, &inStock))
	assert.True(t, Matches(wantEmpty, &outOfStock))
}

func TestLess_KeywordOverridesSort(t *testing.T) {
	// An explicit price sort must be ignored when a keyword is present.
	exact := mkProduct("1", "Laptop", "", "Electronics", 99999, 0)
	prefix := mkProduct("2", "Laptop Pro", "", "Electronics", 1, 0)

	c := SearchCriteria{Keyword: "laptop", Sort: SortPrice}.Normalize()

	assert.True(t, Less(c, &exact, &prefix), "tier 1 sorts before tier 2 despite higher price")
	assert.False(t, Less(c, &prefix, &exact))
}

func TestLess_SortKeys(t *testing.T) {
	cheapB := mkProduct("1", "Bravo", "", "C", 100, 1)
	priceyA := mkProduct("2", "Alpha", "", "C", 200, 9)

	tests := []struct {
		sort  SortKey
		first *Product
	}{
		{SortName, &priceyA},
		{SortNameDesc, &cheapB},
		{SortPrice, &cheapB},
		{SortPriceDesc, &priceyA},
		{SortStock, &cheapB},
		{SortStockDesc, &priceyA},
	}

	for _, tt := range tests {
		t.Run(string(tt.sort), func(t *testing.T) {
			c := SearchCriteria{Sort: tt.sort}.Normalize()
			second := &cheapB
			if tt.first == &cheapB {
				second = &priceyA
			}
			assert.True(t, Less(c, tt.first, second))
			assert.False(t, Less(c, second, tt.first))
		})
	}
}

func TestLess_TieBreaksByNameThenID(t *testing.T) {
	// Same price: name ascending decides.
	a := mkProduct("9", "Alpha", "", "C", 100, 0)
	b := mkProduct("1", "Bravo", "", "C", 100, 0)
	c := SearchCriteria{Sort: SortPrice}.Normalize()

	assert.True(t, Less(c, &a, &b))
	assert.False(t, Less(c, &b, &a))

	// Same price and name: id decides, so ordering is fully deterministic.
	x := mkProduct("1", "Same", "", "C", 100, 0)
	y := mkProduct("2", "Same", "", "C", 100, 0)
	assert.True(t, Less(c, &x, &y))
	assert.False(t, Less(c, &y, &x))
}

func TestLess_RankingScenario(t *testing.T) {
	// The canonical tier ordering: exact name, name prefix, category match,
	// description-only, with the sort parameter overridden throughout.
	records := []Product{
		mkProduct("d", "Backpack", "padded laptop compartment", "Bags", 1, 0),
		mkProduct("c", "USB Cable", "", "Laptop Accessories", 2, 0),
		mkProduct("b", "Laptop Pro", "", "Electronics", 3, 0),
		mkProduct("a", "Laptop", "", "Electronics", 4, 0),
	}

	c := SearchCriteria{Keyword: "Laptop", Sort: SortPriceDesc}.Normalize()

	sort.SliceStable(records, func(i, j int) bool {
		return Less(c, &records[i], &records[j])
	})

	names := make([]string, len(records))
	for i, r := range records {
		names[i] = r.Name
	}
	assert.Equal(t, []string{"Laptop", "Laptop Pro", "USB Cable", "Backpack"}, names)
}
