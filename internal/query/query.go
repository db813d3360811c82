// Package query defines the descriptors the fetch coordinator pages through.
// Two descriptors are equivalent when they differ only in page index; the
// fingerprint is the equivalence key.
package query

import (
	"net/url"
	"strconv"
	"strings"
)

// DefaultPageSize matches the catalog endpoint's page size.
const DefaultPageSize = 20

// CategoryAll disables category filtering.
const CategoryAll = "All"

// SortKey is a "field,direction" pair understood by the catalog endpoint.
type SortKey string

const (
	SortNameAsc      SortKey = "name,asc"
	SortNameDesc     SortKey = "name,desc"
	SortRatingDesc   SortKey = "averageRating,desc"
	SortRatingAsc    SortKey = "averageRating,asc"
	SortPriceAsc     SortKey = "price,asc"
	SortPriceDesc    SortKey = "price,desc"
	SortMostReviewed SortKey = "reviewCount,desc"
)

// DefaultSort is used when no valid preference is stored.
const DefaultSort = SortNameAsc

// SortKeys lists the supported keys in display order.
var SortKeys = []SortKey{
	SortNameAsc,
	SortNameDesc,
	SortRatingDesc,
	SortRatingAsc,
	SortPriceAsc,
	SortPriceDesc,
	SortMostReviewed,
}

var sortLabels = map[SortKey]string{
	SortNameAsc:      "Name (A-Z)",
	SortNameDesc:     "Name (Z-A)",
	SortRatingDesc:   "Highest Rated",
	SortRatingAsc:    "Lowest Rated",
	SortPriceAsc:     "Price: Low to High",
	SortPriceDesc:    "Price: High to Low",
	SortMostReviewed: "Most Reviewed",
}

// ParseSort returns the key for s, or false if s is not supported.
func ParseSort(s string) (SortKey, bool) {
	k := SortKey(strings.TrimSpace(s))
	_, ok := sortLabels[k]
	return k, ok
}

// Valid reports whether k is a supported key.
func (k SortKey) Valid() bool {
	_, ok := sortLabels[k]
	return ok
}

// Label is the human-readable name of k.
func (k SortKey) Label() string {
	if l, ok := sortLabels[k]; ok {
		return l
	}
	return string(k)
}

// Next returns the key after k in SortKeys, wrapping around.
func (k SortKey) Next() SortKey {
	for i, candidate := range SortKeys {
		if candidate == k {
			return SortKeys[(i+1)%len(SortKeys)]
		}
	}
	return DefaultSort
}

// Descriptor selects one page of the product catalog.
type Descriptor struct {
	PageIndex int
	PageSize  int
	Category  string
	Search    string
	Sort      SortKey
}

// Default returns the first page with no filters.
func Default() Descriptor {
	return Descriptor{PageSize: DefaultPageSize, Category: CategoryAll, Sort: DefaultSort}
}

// Normalize trims the search term and replaces blank or unsupported fields
// with their defaults.
func (d Descriptor) Normalize() Descriptor {
	if d.PageIndex < 0 {
		d.PageIndex = 0
	}
	if d.PageSize <= 0 {
		d.PageSize = DefaultPageSize
	}
	d.Category = strings.TrimSpace(d.Category)
	if d.Category == "" {
		d.Category = CategoryAll
	}
	d.Search = strings.TrimSpace(d.Search)
	if !d.Sort.Valid() {
		d.Sort = DefaultSort
	}
	return d
}

// Fingerprint identifies the result list d belongs to.
func (d Descriptor) Fingerprint() string {
	n := d.Normalize()
	v := url.Values{}
	v.Set("category", n.Category)
	v.Set("search", n.Search)
	v.Set("size", strconv.Itoa(n.PageSize))
	v.Set("sort", string(n.Sort))
	return "products?" + v.Encode()
}

// Page returns the zero-based page index.
func (d Descriptor) Page() int { return d.PageIndex }

// AtPage returns a copy of d for page i.
func (d Descriptor) AtPage(i int) Descriptor {
	d.PageIndex = i
	return d
}

// Equivalent reports whether d and o describe the same result list.
func (d Descriptor) Equivalent(o Descriptor) bool {
	return d.Fingerprint() == o.Fingerprint()
}

// Filtered reports whether any filter differs from the defaults.
func (d Descriptor) Filtered() bool {
	n := d.Normalize()
	return n.Category != CategoryAll || n.Search != "" || n.Sort != DefaultSort
}

// ReviewQuery selects one page of a product's reviews. Rating 0 means all
// ratings; 1..5 filters to that star count.
type ReviewQuery struct {
	ProductID string
	PageIndex int
	PageSize  int
	Rating    int
}

// Fingerprint identifies the review list q belongs to.
func (q ReviewQuery) Fingerprint() string {
	size := q.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	rating := q.Rating
	if rating < 0 || rating > 5 {
		rating = 0
	}
	v := url.Values{}
	v.Set("rating", strconv.Itoa(rating))
	v.Set("size", strconv.Itoa(size))
	return "reviews/" + url.PathEscape(strings.TrimSpace(q.ProductID)) + "?" + v.Encode()
}

// Page returns the zero-based page index.
func (q ReviewQuery) Page() int { return q.PageIndex }

// AtPage returns a copy of q for page i.
func (q ReviewQuery) AtPage(i int) ReviewQuery {
	q.PageIndex = i
	return q
}
