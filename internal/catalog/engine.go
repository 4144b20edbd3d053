package catalog

import (
	"context"
	"time"

	"github.com/diewo77/go-katalog/internal/apperr"
	"github.com/diewo77/go-katalog/internal/metrics"
	"github.com/diewo77/go-katalog/internal/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

// Page is one page of catalog results.
type Page struct {
	Items       []models.Product
	CurrentPage int
	TotalPages  int
	Limit       int
	Total       int64
}

func (p *Page) HasPrev() bool { return p.CurrentPage > 1 }
func (p *Page) HasNext() bool { return p.CurrentPage < p.TotalPages }
func (p *Page) PrevPage() int { return p.CurrentPage - 1 }
func (p *Page) NextPage() int { return p.CurrentPage + 1 }

// pagerSpan is how many page links the pager shows on each side of the
// current page.
const pagerSpan = 2

// Pages lists the page numbers the pager links to: a window around the
// current page, clipped to [1, TotalPages].
func (p *Page) Pages() []int {
	if p.TotalPages <= 0 {
		return nil
	}
	center := min(max(p.CurrentPage, 1), p.TotalPages)
	lo := max(1, center-pagerSpan)
	hi := min(p.TotalPages, center+pagerSpan)
	out := make([]int, 0, hi-lo+1)
	for n := lo; n <= hi; n++ {
		out = append(out, n)
	}
	return out
}

// Engine runs catalog queries. It never writes.
type Engine struct {
	db         *gorm.DB
	categories *CategoryCache
	tracer     trace.Tracer
	metrics    *metrics.Metrics
}

// NewEngine returns an Engine over db. A nil tracer uses the global provider.
func NewEngine(db *gorm.DB, categories *CategoryCache, tracer trace.Tracer, m *metrics.Metrics) *Engine {
	if tracer == nil {
		tracer = otel.Tracer("github.com/diewo77/go-katalog/internal/catalog")
	}
	return &Engine{db: db, categories: categories, tracer: tracer, metrics: m}
}

func normalize(f Filter) Filter {
	if f.Page <= 0 {
		f.Page = DefaultPage
	}
	if f.Page > MaxPage {
		f.Page = MaxPage
	}
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	return f
}

// Search returns the requested page of verified products. On failure no
// partial page is returned.
func (e *Engine) Search(ctx context.Context, f Filter) (page *Page, err error) {
	f = normalize(f)
	ctx, span := e.tracer.Start(ctx, "catalog.Search", trace.WithAttributes(
		attribute.String("catalog.search", f.Search),
		attribute.String("catalog.price", f.Price.String()),
		attribute.String("catalog.location", f.Location.String()),
		attribute.String("catalog.sort", f.Sort.String()),
		attribute.Int("catalog.page", f.Page),
		attribute.Int("catalog.limit", f.Limit),
	))
	start := time.Now()
	defer func() {
		e.metrics.ObserveCatalogQuery(time.Since(start), err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "catalog search failed")
		}
		span.End()
	}()

	pred := Build(f)
	db := e.db.WithContext(ctx)

	var total int64
	if err := pred.Filters(db.Model(&models.Product{})).Count(&total).Error; err != nil {
		return nil, apperr.Store("catalog.count", err)
	}

	items := []models.Product{}
	if err := pred.Scope(db.Model(&models.Product{})).Preload("Category").Find(&items).Error; err != nil {
		return nil, apperr.Store("catalog.find", err)
	}

	totalPages := 0
	if total > 0 {
		totalPages = int((total + int64(f.Limit) - 1) / int64(f.Limit))
	}
	span.SetAttributes(attribute.Int64("catalog.total", total))

	return &Page{
		Items:       items,
		CurrentPage: f.Page,
		TotalPages:  totalPages,
		Limit:       f.Limit,
		Total:       total,
	}, nil
}

// Categories returns the category list shown beside the catalog.
func (e *Engine) Categories(ctx context.Context) ([]models.Category, error) {
	ctx, span := e.tracer.Start(ctx, "catalog.Categories")
	defer span.End()
	cats, err := e.categories.Get(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "category lookup failed")
		return nil, err
	}
	return cats, nil
}
