package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/diewo77/go-katalog/internal/apperr"
	"github.com/diewo77/go-katalog/internal/auth"
	"github.com/diewo77/go-katalog/internal/gate"
	"github.com/diewo77/go-katalog/internal/models"
	"github.com/diewo77/go-katalog/internal/policy"
	"github.com/diewo77/go-katalog/internal/services"
	"github.com/diewo77/go-katalog/internal/store"
	"github.com/diewo77/go-katalog/internal/view"
)

const noProductAccess = "You do not have permission to access this product"

// ProductHandler serves the seller side: the sell flow and the owner's
// product pages.
type ProductHandler struct {
	store    *store.Store
	listings *services.ListingService
	gate     *policy.AuthGate
	view     view.Renderer
}

func NewProductHandler(s *store.Store, listings *services.ListingService, g *policy.AuthGate, v view.Renderer) *ProductHandler {
	return &ProductHandler{store: s, listings: listings, gate: g, view: v}
}

// owned loads the product named by raw and checks the caller may perform
// action on it. Existence is reported before ownership.
func (h *ProductHandler) owned(w http.ResponseWriter, r *http.Request, raw string, action gate.Action, fallback string) (*models.Product, bool) {
	n, err := strconv.ParseUint(raw, 10, 0)
	if err != nil || n == 0 {
		denied(w, r, "Product not found", fallback)
		return nil, false
	}
	p, err := h.store.Products.ByID(r.Context(), uint(n))
	if err != nil {
		if apperr.IsNotFound(err) {
			denied(w, r, "Product not found", fallback)
			return nil, false
		}
		fail(w, r, err, "An error occurred", fallback)
		return nil, false
	}
	if err := h.gate.Authorize(r.Context(), action, policy.ResourceProduct, p); err != nil {
		denied(w, r, noProductAccess, fallback)
		return nil, false
	}
	return p, true
}

func listingInput(r *http.Request) (services.ListingInput, error) {
	in := services.ListingInput{
		Name:             strings.TrimSpace(r.FormValue("productName")),
		CategoryID:       formUint(r, "category"),
		Condition:        r.FormValue("condition"),
		ReasonForSelling: strings.TrimSpace(r.FormValue("reasonForSelling")),
		Description:      strings.TrimSpace(r.FormValue("description")),
		Location:         strings.TrimSpace(r.FormValue("location")),
		FullAddress:      strings.TrimSpace(r.FormValue("fullAddress")),
	}
	price, err := strconv.ParseInt(strings.TrimSpace(r.FormValue("price")), 10, 64)
	if err != nil || price < 0 {
		return in, apperr.Validation("listing.form", "Invalid price.")
	}
	in.Price = price
	return in, nil
}

// Show is the owner's view of a listing.
func (h *ProductHandler) Show(w http.ResponseWriter, r *http.Request) {
	p, ok := h.owned(w, r, r.PathValue("id"), gate.ActionView, "/profile")
	if !ok {
		return
	}
	render(h.view, w, r, "profile/product.html", map[string]any{"Product": p})
}

// Subpage dispatches /profile/product/edit/{id} and
// /profile/product/{id}/daftar-penawaran, which overlap as mux patterns.
func (h *ProductHandler) Subpage(w http.ResponseWriter, r *http.Request) {
	first, second := r.PathValue("first"), r.PathValue("second")
	switch {
	case first == "edit":
		h.EditForm(w, r, second)
	case second == "daftar-penawaran":
		h.Offers(w, r, first)
	default:
		http.NotFound(w, r)
	}
}

func (h *ProductHandler) EditForm(w http.ResponseWriter, r *http.Request, rawID string) {
	p, ok := h.owned(w, r, rawID, gate.ActionUpdate, "/profile")
	if !ok {
		return
	}
	cats, err := h.store.Categories.List(r.Context())
	if err != nil {
		fail(w, r, err, "An error occurred", "/profile")
		return
	}
	render(h.view, w, r, "profile/edit_product.html", map[string]any{
		"Product":    p,
		"Categories": cats,
	})
}

// Offers lists the bids on an owned product.
func (h *ProductHandler) Offers(w http.ResponseWriter, r *http.Request, rawID string) {
	p, ok := h.owned(w, r, rawID, gate.ActionList, "/profile")
	if !ok {
		return
	}
	offers, err := h.store.Offers.ByProduct(r.Context(), p.ID)
	if err != nil {
		fail(w, r, err, "An error occurred", "/profile")
		return
	}
	render(h.view, w, r, "profile/offers.html", map[string]any{
		"Product": p,
		"Offers":  offers,
	})
}

// Update saves the edit form. New images replace the old ones.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	if err := parseMultipart(r); err != nil {
		fail(w, r, err, "An error occurred", "/profile")
		return
	}
	p, ok := h.owned(w, r, r.PathValue("id"), gate.ActionUpdate, "/profile")
	if !ok {
		return
	}
	back := idPath("/profile/product/edit/", p.ID)
	in, err := listingInput(r)
	if err != nil {
		fail(w, r, err, "An error occurred", back)
		return
	}
	if err := h.listings.Update(r.Context(), p, in, formFiles(r, "productImages")); err != nil {
		fail(w, r, err, "An error occurred", back)
		return
	}
	done(w, r, "Product updated successfully", idPath("/profile/product/", p.ID))
}

// SellForm renders the listing form.
func (h *ProductHandler) SellForm(w http.ResponseWriter, r *http.Request) {
	cats, err := h.store.Categories.List(r.Context())
	if err != nil {
		fail(w, r, err, "An error occurred", "/profile")
		return
	}
	render(h.view, w, r, "jual/index.html", map[string]any{"Categories": cats})
}

// Sell creates an unverified listing and moves on to the fee payment.
func (h *ProductHandler) Sell(w http.ResponseWriter, r *http.Request) {
	if err := parseMultipart(r); err != nil {
		fail(w, r, err, "An error occurred", "/jual")
		return
	}
	in, err := listingInput(r)
	if err != nil {
		fail(w, r, err, "An error occurred", "/jual")
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())
	p, err := h.listings.Create(r.Context(), uid, in, formFiles(r, "productImages"))
	if err != nil {
		fail(w, r, err, "An error occurred", "/jual")
		return
	}
	done(w, r, "Product added successfully", idPath("/finish-payment/", p.ID))
}

func (h *ProductHandler) PaymentForm(w http.ResponseWriter, r *http.Request) {
	p, ok := h.owned(w, r, r.PathValue("productId"), gate.ActionView, "/jual")
	if !ok {
		return
	}
	render(h.view, w, r, "jual/payment.html", map[string]any{"Product": p})
}

// Payment stores the listing fee receipt.
func (h *ProductHandler) Payment(w http.ResponseWriter, r *http.Request) {
	if err := parseMultipart(r); err != nil {
		fail(w, r, err, "An error occurred", "/jual")
		return
	}
	p, ok := h.owned(w, r, r.PathValue("productId"), gate.ActionUpdate, "/jual")
	if !ok {
		return
	}
	back := idPath("/finish-payment/", p.ID)
	up, ok := formFile(r, "paymentProof")
	if !ok {
		denied(w, r, "Please upload the payment proof.", back)
		return
	}
	if err := h.listings.AttachPaymentProof(r.Context(), p, up); err != nil {
		fail(w, r, err, "An error occurred", back)
		return
	}
	done(w, r, "Payment proof uploaded successfully", idPath("/selesai/", p.ID))
}

func (h *ProductHandler) Finished(w http.ResponseWriter, r *http.Request) {
	p, ok := h.owned(w, r, r.PathValue("productId"), gate.ActionView, "/jual")
	if !ok {
		return
	}
	render(h.view, w, r, "jual/selesai.html", map[string]any{"Product": p})
}
