package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprintIgnoresPageIndex(t *testing.T) {
	d := Descriptor{PageIndex: 0, PageSize: 20, Category: "Books", Search: "go", Sort: SortPriceAsc}
	assert.Equal(t, d.Fingerprint(), d.AtPage(3).Fingerprint())
	assert.True(t, d.Equivalent(d.AtPage(7)))
	assert.Equal(t, 3, d.AtPage(3).Page())
	assert.Equal(t, 0, d.Page())
}

func TestFingerprintDistinguishesFilters(t *testing.T) {
	base := Default()
	variants := []Descriptor{
		{PageSize: 20, Category: "Books", Sort: DefaultSort},
		{PageSize: 20, Category: CategoryAll, Search: "lamp", Sort: DefaultSort},
		{PageSize: 20, Category: CategoryAll, Sort: SortPriceDesc},
		{PageSize: 10, Category: CategoryAll, Sort: DefaultSort},
	}
	for _, v := range variants {
		assert.NotEqual(t, base.Fingerprint(), v.Fingerprint(), "%+v", v)
	}
}

func TestNormalize(t *testing.T) {
	got := Descriptor{PageIndex: -2, Category: "  ", Search: "  lamp ", Sort: "bogus"}.Normalize()
	assert.Equal(t, Descriptor{PageIndex: 0, PageSize: DefaultPageSize, Category: CategoryAll, Search: "lamp", Sort: DefaultSort}, got)

	assert.True(t, Descriptor{Search: "x "}.Equivalent(Descriptor{Search: " x", PageSize: 20}))
}

func TestFiltered(t *testing.T) {
	assert.False(t, Default().Filtered())
	assert.True(t, Descriptor{Search: "a"}.Filtered())
	assert.True(t, Descriptor{Category: "Home"}.Filtered())
	assert.True(t, Descriptor{Sort: SortMostReviewed}.Filtered())
}

func TestSortKeys(t *testing.T) {
	k, ok := ParseSort(" price,desc ")
	assert.True(t, ok)
	assert.Equal(t, SortPriceDesc, k)

	_, ok = ParseSort("price")
	assert.False(t, ok)

	assert.Equal(t, "Most Reviewed", SortMostReviewed.Label())
	assert.Equal(t, "weird", SortKey("weird").Label())
	assert.Equal(t, SortNameDesc, SortNameAsc.Next())
	assert.Equal(t, SortNameAsc, SortMostReviewed.Next())
	assert.Equal(t, DefaultSort, SortKey("weird").Next())
	assert.Len(t, SortKeys, 7)
}

func TestReviewQueryFingerprint(t *testing.T) {
	q := ReviewQuery{ProductID: "42", PageSize: 10, Rating: 4}
	assert.Equal(t, q.Fingerprint(), q.AtPage(2).Fingerprint())
	assert.NotEqual(t, q.Fingerprint(), ReviewQuery{ProductID: "42", PageSize: 10}.Fingerprint())
	assert.NotEqual(t, q.Fingerprint(), ReviewQuery{ProductID: "43", PageSize: 10, Rating: 4}.Fingerprint())
	assert.Equal(t,
		ReviewQuery{ProductID: "1", Rating: 9}.Fingerprint(),
		ReviewQuery{ProductID: "1", PageSize: DefaultPageSize}.Fingerprint())
}
