package handlers

import (
	"net/http"

	"github.com/diewo77/go-katalog/internal/apperr"
	"github.com/diewo77/go-katalog/internal/auth"
	"github.com/diewo77/go-katalog/internal/models"
	"github.com/diewo77/go-katalog/internal/services"
	"github.com/diewo77/go-katalog/internal/store"
	"github.com/diewo77/go-katalog/internal/view"
)

// ProfileHandler serves the user's own profile and other sellers' pages.
type ProfileHandler struct {
	store    *store.Store
	accounts *services.AccountService
	view     view.Renderer
}

func NewProfileHandler(s *store.Store, accounts *services.AccountService, v view.Renderer) *ProfileHandler {
	return &ProfileHandler{store: s, accounts: accounts, view: v}
}

// Show renders the caller's profile with their listings and offers.
func (h *ProfileHandler) Show(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	u, err := h.store.Users.ByID(r.Context(), uid)
	if err != nil {
		if apperr.IsNotFound(err) {
			denied(w, r, "User not found", "/login")
			return
		}
		fail(w, r, err, "An error occurred", "/login")
		return
	}
	products, err := h.store.Products.ByUser(r.Context(), uid)
	if err != nil {
		fail(w, r, err, "An error occurred", "/")
		return
	}
	offers, err := h.store.Offers.ByUser(r.Context(), uid)
	if err != nil {
		fail(w, r, err, "An error occurred", "/")
		return
	}
	render(h.view, w, r, "profile/index.html", map[string]any{
		"User":     u,
		"Products": products,
		"Offers":   offers,
	})
}

// Public renders another user's page with their verified listings.
func (h *ProfileHandler) Public(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		denied(w, r, "User not found", "/profile")
		return
	}
	if uid, _ := auth.UserIDFromContext(r.Context()); uid == id {
		http.Redirect(w, r, "/profile", http.StatusSeeOther)
		return
	}
	u, err := h.store.Users.ByID(r.Context(), id)
	if err != nil {
		if apperr.IsNotFound(err) {
			denied(w, r, "User not found", "/profile")
			return
		}
		fail(w, r, err, "An error occurred", "/profile")
		return
	}
	all, err := h.store.Products.ByUser(r.Context(), id)
	if err != nil {
		fail(w, r, err, "An error occurred", "/profile")
		return
	}
	products := make([]models.Product, 0, len(all))
	for _, p := range all {
		if p.IsVerified {
			products = append(products, p)
		}
	}
	render(h.view, w, r, "profile/public.html", map[string]any{
		"User":     u,
		"Products": products,
	})
}

// Update saves the profile form.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	err := h.accounts.UpdateProfile(r.Context(), uid, services.ProfileInput{
		Username:  r.FormValue("username"),
		Phone:     r.FormValue("phone"),
		Address:   r.FormValue("address"),
		Birthdate: r.FormValue("birthdate"),
	})
	if err != nil {
		fail(w, r, err, "An error occurred", "/profile")
		return
	}
	done(w, r, "Profile updated successfully", "/profile")
}

// UpdatePicture replaces the profile picture.
func (h *ProfileHandler) UpdatePicture(w http.ResponseWriter, r *http.Request) {
	if err := parseMultipart(r); err != nil {
		fail(w, r, err, "An error occurred", "/profile")
		return
	}
	up, ok := formFile(r, "profilePicture")
	if !ok {
		denied(w, r, "Please choose a picture to upload.", "/profile")
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())
	if err := h.accounts.UpdatePicture(r.Context(), uid, up); err != nil {
		fail(w, r, err, "An error occurred", "/profile")
		return
	}
	done(w, r, "Profile picture updated successfully", "/profile")
}
