package catalog

import (
	"strings"

	"gorm.io/gorm"
)

// Clause is one parameterised WHERE condition.
type Clause struct {
	Query string
	Args  []any
}

// Predicate is the store-neutral form of a Filter.
type Predicate struct {
	Where  []Clause
	Order  []string
	Offset int
	Limit  int
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Build translates f into a Predicate. It always restricts to verified products.
//
// Price buckets keep their historical inclusive bounds, so adjacent buckets
// share their edge values: 100000 matches both middle buckets.
func Build(f Filter) Predicate {
	p := Predicate{
		Where:  []Clause{{Query: "is_verified = ?", Args: []any{true}}},
		Offset: f.Offset(),
		Limit:  f.Limit,
	}

	if f.Search != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(f.Search)) + "%"
		p.Where = append(p.Where, Clause{
			Query: `(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\')`,
			Args:  []any{pattern, pattern},
		})
	}
	if f.CategoryID != nil {
		p.Where = append(p.Where, Clause{Query: "category_id = ?", Args: []any{*f.CategoryID}})
	}

	switch f.Price {
	case PriceUnder50k:
		p.Where = append(p.Where, Clause{Query: "price < ?", Args: []any{50000}})
	case Price50kTo100k:
		p.Where = append(p.Where, Clause{Query: "price >= ? AND price <= ?", Args: []any{50000, 100000}})
	case Price100kTo150k:
		p.Where = append(p.Where, Clause{Query: "price >= ? AND price <= ?", Args: []any{100000, 150000}})
	case PriceOver150k:
		p.Where = append(p.Where, Clause{Query: "price > ?", Args: []any{150000}})
	}

	switch f.Location {
	case LocationDIY:
		p.Where = append(p.Where, Clause{Query: "location = ?", Args: []any{YogyakartaLocation}})
	case LocationOther:
		p.Where = append(p.Where, Clause{Query: "(location IS NULL OR location <> ?)", Args: []any{YogyakartaLocation}})
	}

	switch f.Sort {
	case SortPriceAsc:
		p.Order = []string{"price ASC", "id ASC"}
	case SortPriceDesc:
		p.Order = []string{"price DESC", "id ASC"}
	default:
		p.Order = []string{"id ASC"}
	}
	return p
}

// Filters applies only the WHERE clauses, for counting.
func (p Predicate) Filters(db *gorm.DB) *gorm.DB {
	for _, c := range p.Where {
		db = db.Where(c.Query, c.Args...)
	}
	return db
}

// Scope applies the whole predicate: filters, order and page window.
func (p Predicate) Scope(db *gorm.DB) *gorm.DB {
	db = p.Filters(db)
	for _, o := range p.Order {
		db = db.Order(o)
	}
	return db.Offset(p.Offset).Limit(p.Limit)
}
