package catalog

import (
	"net/url"
	"testing"
)

func TestParseFilter_Defaults(t *testing.T) {
	f := ParseFilter(url.Values{})
	if f.Page != DefaultPage || f.Limit != DefaultLimit {
		t.Errorf("page/limit = %d/%d", f.Page, f.Limit)
	}
	if f.Search != "" || f.CategoryID != nil || f.Price != PriceAny || f.Location != LocationAny || f.Sort != SortNatural {
		t.Errorf("unexpected filter %+v", f)
	}
}

func TestParseFilter_PageAndLimit(t *testing.T) {
	tests := []struct {
		page, limit         string
		wantPage, wantLimit int
	}{
		{"0", "0", 1, 10},
		{"-3", "-1", 1, 10},
		{"abc", "x", 1, 10},
		{"4", "25", 4, 25},
		{"2", "1000", 2, MaxLimit},
		{"21474837", "10", MaxPage, 10},
		{"9223372036854775807", "100", MaxPage, MaxLimit},
		{"99999999999999999999", "10", 1, 10},
	}
	for _, tt := range tests {
		f := ParseFilter(url.Values{"page": {tt.page}, "limit": {tt.limit}})
		if f.Page != tt.wantPage || f.Limit != tt.wantLimit {
			t.Errorf("page=%q limit=%q -> %d/%d, want %d/%d", tt.page, tt.limit, f.Page, f.Limit, tt.wantPage, tt.wantLimit)
		}
	}
}

func TestParseFilter_Enums(t *testing.T) {
	tests := []struct {
		name  string
		query url.Values
		check func(Filter) bool
	}{
		{"legacy under", url.Values{"price": {"50001"}}, func(f Filter) bool { return f.Price == PriceUnder50k }},
		{"under", url.Values{"price": {"<50000"}}, func(f Filter) bool { return f.Price == PriceUnder50k }},
		{"mid", url.Values{"price": {"50000-100000"}}, func(f Filter) bool { return f.Price == Price50kTo100k }},
		{"legacy over", url.Values{"price": {"150001"}}, func(f Filter) bool { return f.Price == PriceOver150k }},
		{"unknown price ignored", url.Values{"price": {"cheap"}}, func(f Filter) bool { return f.Price == PriceAny }},
		{"DIY", url.Values{"location": {"DIY"}}, func(f Filter) bool { return f.Location == LocationDIY }},
		{"other", url.Values{"location": {"other"}}, func(f Filter) bool { return f.Location == LocationOther }},
		{"unknown location ignored", url.Values{"location": {"Jakarta"}}, func(f Filter) bool { return f.Location == LocationAny }},
		{"low", url.Values{"sort": {"low_price"}}, func(f Filter) bool { return f.Sort == SortPriceAsc }},
		{"high", url.Values{"sort": {"high_price"}}, func(f Filter) bool { return f.Sort == SortPriceDesc }},
		{"unknown sort ignored", url.Values{"sort": {"newest"}}, func(f Filter) bool { return f.Sort == SortNatural }},
		{"category", url.Values{"category": {"7"}}, func(f Filter) bool { return f.SelectedCategory() == 7 }},
		{"bad category ignored", url.Values{"category": {"shoes"}}, func(f Filter) bool { return f.CategoryID == nil }},
		{"zero category ignored", url.Values{"category": {"0"}}, func(f Filter) bool { return f.CategoryID == nil }},
		{"search trimmed", url.Values{"search": {"  shirt "}}, func(f Filter) bool { return f.Search == "shirt" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if f := ParseFilter(tt.query); !tt.check(f) {
				t.Errorf("ParseFilter(%v) = %+v", tt.query, f)
			}
		})
	}
}

func TestFilterQueryRoundTrip(t *testing.T) {
	in := url.Values{"search": {"lamp"}, "category": {"3"}, "price": {"50000-100000"}, "location": {"DIY"}, "sort": {"high_price"}, "limit": {"20"}}
	f := ParseFilter(in)
	q := f.Query(3)
	if q.Get("page") != "3" {
		t.Errorf("page = %q", q.Get("page"))
	}
	if back := ParseFilter(q); back.Search != "lamp" || back.SelectedCategory() != 3 || back.Price != Price50kTo100k ||
		back.Location != LocationDIY || back.Sort != SortPriceDesc || back.Limit != 20 || back.Page != 3 {
		t.Errorf("round trip = %+v", back)
	}
	if got := ParseFilter(url.Values{}).Query(1).Encode(); got != "" {
		t.Errorf("default filter should encode empty, got %q", got)
	}
}

func TestFilterOffsetNeverWraps(t *testing.T) {
	for _, page := range []string{"9223372036854775807", "1844674407370955162", "922337203685477581"} {
		f := ParseFilter(url.Values{"page": {page}, "limit": {"100"}})
		if f.Offset() != (f.Page-1)*f.Limit || f.Offset() <= 0 {
			t.Errorf("page=%s: offset %d for page %d", page, f.Offset(), f.Page)
		}
	}
}
