// Package catalog answers the public product listing: it turns query
// parameters into a typed Filter, the Filter into a pure Predicate, and runs
// the Predicate against the product table.
package catalog

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

// Pagination defaults.
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100

	// MaxPage keeps (page-1)*limit inside 32 bits. Later pages are empty.
	MaxPage = math.MaxInt32 / MaxLimit
)

// YogyakartaLocation is the stored value matched by the DIY filter.
const YogyakartaLocation = "Yogyakarta"

// PriceBucket is one of the fixed price ranges offered by the catalog.
type PriceBucket int

const (
	PriceAny PriceBucket = iota
	PriceUnder50k
	Price50kTo100k
	Price100kTo150k
	PriceOver150k
)

// ParsePriceBucket accepts both the descriptive and the legacy spellings.
func ParsePriceBucket(s string) PriceBucket {
	switch strings.TrimSpace(s) {
	case "<50000", "50001":
		return PriceUnder50k
	case "50000-100000":
		return Price50kTo100k
	case "100000-150000":
		return Price100kTo150k
	case ">150000", "150001":
		return PriceOver150k
	}
	return PriceAny
}

// String returns the canonical query value.
func (b PriceBucket) String() string {
	switch b {
	case PriceUnder50k:
		return "<50000"
	case Price50kTo100k:
		return "50000-100000"
	case Price100kTo150k:
		return "100000-150000"
	case PriceOver150k:
		return ">150000"
	}
	return ""
}

// LocationFilter narrows listings by seller location.
type LocationFilter int

const (
	LocationAny LocationFilter = iota
	LocationDIY
	LocationOther
)

func ParseLocation(s string) LocationFilter {
	switch strings.TrimSpace(s) {
	case "DIY":
		return LocationDIY
	case "other":
		return LocationOther
	}
	return LocationAny
}

func (l LocationFilter) String() string {
	switch l {
	case LocationDIY:
		return "DIY"
	case LocationOther:
		return "other"
	}
	return ""
}

// SortOrder orders the listing. SortNatural is insertion order.
type SortOrder int

const (
	SortNatural SortOrder = iota
	SortPriceAsc
	SortPriceDesc
)

func ParseSort(s string) SortOrder {
	switch strings.TrimSpace(s) {
	case "low_price":
		return SortPriceAsc
	case "high_price":
		return SortPriceDesc
	}
	return SortNatural
}

func (o SortOrder) String() string {
	switch o {
	case SortPriceAsc:
		return "low_price"
	case SortPriceDesc:
		return "high_price"
	}
	return ""
}

// Filter is a validated catalog query. Zero values mean "not filtered".
type Filter struct {
	Search     string
	CategoryID *uint
	Price      PriceBucket
	Location   LocationFilter
	Sort       SortOrder
	Page       int
	Limit      int
}

// ParseFilter reads a Filter from query parameters. Unknown or malformed
// values are ignored rather than rejected.
func ParseFilter(q url.Values) Filter {
	f := Filter{
		Search:   strings.TrimSpace(q.Get("search")),
		Price:    ParsePriceBucket(q.Get("price")),
		Location: ParseLocation(q.Get("location")),
		Sort:     ParseSort(q.Get("sort")),
		Page:     positiveOr(q.Get("page"), DefaultPage),
		Limit:    positiveOr(q.Get("limit"), DefaultLimit),
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	if f.Page > MaxPage {
		f.Page = MaxPage
	}
	if id, err := strconv.ParseUint(strings.TrimSpace(q.Get("category")), 10, 0); err == nil && id > 0 {
		cid := uint(id)
		f.CategoryID = &cid
	}
	return f
}

func positiveOr(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// Offset is the number of rows skipped before the current page.
func (f Filter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// Query renders f back into query parameters, omitting defaults. page is
// written explicitly so templates can link to neighbouring pages.
func (f Filter) Query(page int) url.Values {
	q := url.Values{}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.CategoryID != nil {
		q.Set("category", strconv.FormatUint(uint64(*f.CategoryID), 10))
	}
	if s := f.Price.String(); s != "" {
		q.Set("price", s)
	}
	if s := f.Location.String(); s != "" {
		q.Set("location", s)
	}
	if s := f.Sort.String(); s != "" {
		q.Set("sort", s)
	}
	if f.Limit != DefaultLimit && f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}
	return q
}

// SelectedCategory returns the category filter or 0.
func (f Filter) SelectedCategory() uint {
	if f.CategoryID == nil {
		return 0
	}
	return *f.CategoryID
}
