package catalog

import (
	"reflect"
	"testing"
)

func TestBuild_AlwaysVerifiedOnly(t *testing.T) {
	p := Build(Filter{Page: 1, Limit: 10})
	if len(p.Where) != 1 || p.Where[0].Query != "is_verified = ?" || p.Where[0].Args[0] != true {
		t.Fatalf("Where = %+v", p.Where)
	}
	if !reflect.DeepEqual(p.Order, []string{"id ASC"}) {
		t.Errorf("natural order = %v", p.Order)
	}
}

func TestBuild_Window(t *testing.T) {
	p := Build(Filter{Page: 3, Limit: 20})
	if p.Offset != 40 || p.Limit != 20 {
		t.Errorf("offset/limit = %d/%d", p.Offset, p.Limit)
	}
}

func TestBuild_PriceBounds(t *testing.T) {
	tests := []struct {
		bucket PriceBucket
		query  string
		args   []any
	}{
		{PriceUnder50k, "price < ?", []any{50000}},
		{Price50kTo100k, "price >= ? AND price <= ?", []any{50000, 100000}},
		{Price100kTo150k, "price >= ? AND price <= ?", []any{100000, 150000}},
		{PriceOver150k, "price > ?", []any{150000}},
	}
	for _, tt := range tests {
		p := Build(Filter{Page: 1, Limit: 10, Price: tt.bucket})
		last := p.Where[len(p.Where)-1]
		if last.Query != tt.query || !reflect.DeepEqual(last.Args, tt.args) {
			t.Errorf("%v: clause = %+v", tt.bucket, last)
		}
	}
}

func TestBuild_SearchEscapesWildcards(t *testing.T) {
	p := Build(Filter{Page: 1, Limit: 10, Search: "100%_Cotton"})
	c := p.Where[1]
	want := `%100\%\_cotton%`
	if c.Args[0] != want || c.Args[1] != want {
		t.Errorf("pattern = %v, want %q", c.Args, want)
	}
}

func TestBuild_SortTieBreak(t *testing.T) {
	if got := Build(Filter{Page: 1, Limit: 10, Sort: SortPriceAsc}).Order; !reflect.DeepEqual(got, []string{"price ASC", "id ASC"}) {
		t.Errorf("asc order = %v", got)
	}
	if got := Build(Filter{Page: 1, Limit: 10, Sort: SortPriceDesc}).Order; !reflect.DeepEqual(got, []string{"price DESC", "id ASC"}) {
		t.Errorf("desc order = %v", got)
	}
}

func TestBuild_IsPure(t *testing.T) {
	cid := uint(4)
	f := Filter{Page: 2, Limit: 5, Search: "x", CategoryID: &cid, Price: PriceOver150k, Location: LocationOther}
	if !reflect.DeepEqual(Build(f), Build(f)) {
		t.Error("Build is not deterministic")
	}
}
