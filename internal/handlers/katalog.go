package handlers

import (
	"net/http"

	"github.com/diewo77/go-katalog/internal/apperr"
	"github.com/diewo77/go-katalog/internal/auth"
	"github.com/diewo77/go-katalog/internal/catalog"
	"github.com/diewo77/go-katalog/internal/logger"
	"github.com/diewo77/go-katalog/internal/services"
	"github.com/diewo77/go-katalog/internal/store"
	"github.com/diewo77/go-katalog/internal/view"
	"go.uber.org/zap"
)

// KatalogHandler serves the buyer-facing catalog.
type KatalogHandler struct {
	store  *store.Store
	engine *catalog.Engine
	market *services.MarketService
	view   view.Renderer
}

func NewKatalogHandler(s *store.Store, engine *catalog.Engine, market *services.MarketService, v view.Renderer) *KatalogHandler {
	return &KatalogHandler{store: s, engine: engine, market: market, view: v}
}

// Index renders one page of verified products.
func (h *KatalogHandler) Index(w http.ResponseWriter, r *http.Request) {
	f := catalog.ParseFilter(r.URL.Query())
	page, err := h.engine.Search(r.Context(), f)
	if err != nil {
		fail(w, r, err, "An error occurred while fetching products.", "/")
		return
	}
	cats, err := h.engine.Categories(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Warn("categories unavailable", zap.Error(err))
	}
	render(h.view, w, r, "katalog/index.html", map[string]any{
		"Page":       page,
		"Categories": cats,
		"Filter":     f,
	})
}

// Detail shows a verified product. Sellers are sent to their own view.
func (h *KatalogHandler) Detail(w http.ResponseWriter, r *http.Request) {
	const notFound = "Product not found."
	id, ok := pathID(r, "id")
	if !ok {
		denied(w, r, notFound, "/katalog")
		return
	}
	p, err := h.store.Products.ByID(r.Context(), id)
	if err != nil {
		if apperr.IsNotFound(err) {
			denied(w, r, notFound, "/katalog")
			return
		}
		fail(w, r, err, "An error occurred while fetching the product.", "/katalog")
		return
	}
	if uid, _ := auth.UserIDFromContext(r.Context()); uid == p.UserID {
		http.Redirect(w, r, idPath("/profile/product/", p.ID), http.StatusSeeOther)
		return
	}
	if !p.IsVerified {
		denied(w, r, notFound, "/katalog")
		return
	}
	render(h.view, w, r, "katalog/detail.html", map[string]any{
		"Product": p,
		"Seller":  p.User,
	})
}

// MakeOffer records a bid on the product.
func (h *KatalogHandler) MakeOffer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		denied(w, r, "Product not found.", "/katalog")
		return
	}
	back := idPath("/katalog/", id)
	uid, _ := auth.UserIDFromContext(r.Context())

	_, err := h.market.MakeOffer(r.Context(), uid, id, r.FormValue("offerPrice"))
	switch {
	case err == nil:
		done(w, r, "Offer made successfully.", back)
	case apperr.IsNotFound(err):
		fail(w, r, err, "Product not found.", "/katalog")
	default:
		fail(w, r, err, "An error occurred while making the offer.", back)
	}
}
