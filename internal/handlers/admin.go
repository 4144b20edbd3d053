package handlers

import (
	"net/http"

	"github.com/diewo77/go-katalog/internal/models"
	"github.com/diewo77/go-katalog/internal/policy"
	"github.com/diewo77/go-katalog/internal/services"
	"github.com/diewo77/go-katalog/internal/view"
)

const adminHome = "/admin-dashboard"

// AdminHandler serves the administrator dashboard. Every route sits
// behind the admin gate, which attaches the user to the context.
type AdminHandler struct {
	admin       *services.AdminService
	listings    *services.ListingService
	memberships *services.MembershipService
	view        view.Renderer
}

func NewAdminHandler(admin *services.AdminService, listings *services.ListingService, ms *services.MembershipService, v view.Renderer) *AdminHandler {
	return &AdminHandler{admin: admin, listings: listings, memberships: ms, view: v}
}

func (h *AdminHandler) page(w http.ResponseWriter, r *http.Request, name string, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	u, _ := policy.UserFromContext(r.Context())
	data["User"] = u
	render(h.view, w, r, "admin/"+name+".html", data)
}

func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.admin.Stats(r.Context())
	if err != nil {
		fail(w, r, err, "An error occurred while loading the dashboard.", "/")
		return
	}
	h.page(w, r, "dashboard", map[string]any{"Stats": stats})
}

func (h *AdminHandler) Products(w http.ResponseWriter, r *http.Request) {
	products, err := h.admin.Products(r.Context())
	if err != nil {
		fail(w, r, err, "An error occurred while loading products.", adminHome)
		return
	}
	h.page(w, r, "products", map[string]any{"Products": products})
}

func (h *AdminHandler) VerifyProduct(w http.ResponseWriter, r *http.Request) {
	const to = adminHome + "/products"
	id, ok := pathID(r, "id")
	if !ok {
		denied(w, r, "Product not found.", to)
		return
	}
	if err := h.listings.Verify(r.Context(), id); err != nil {
		fail(w, r, err, "An error occurred while verifying the product.", to)
		return
	}
	done(w, r, "Product verified successfully.", to)
}

func (h *AdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	const to = adminHome + "/products"
	id, ok := pathID(r, "id")
	if !ok {
		denied(w, r, "Product not found.", to)
		return
	}
	if err := h.listings.Delete(r.Context(), id); err != nil {
		fail(w, r, err, "An error occurred while deleting the product.", to)
		return
	}
	done(w, r, "Product deleted successfully.", to)
}

func (h *AdminHandler) Memberships(w http.ResponseWriter, r *http.Request) {
	payments, err := h.memberships.List(r.Context())
	if err != nil {
		fail(w, r, err, "An error occurred while loading memberships.", adminHome)
		return
	}
	h.page(w, r, "memberships", map[string]any{
		"Payments":  payments,
		"Tiers":     models.Tiers,
		"Durations": []string{services.DurationOneMonth, services.DurationPermanent},
	})
}

func (h *AdminHandler) ApproveMembership(w http.ResponseWriter, r *http.Request) {
	const to = adminHome + "/memberships"
	id, ok := pathID(r, "id")
	if !ok {
		denied(w, r, "Membership payment not found.", to)
		return
	}
	err := h.memberships.Approve(r.Context(), id, r.FormValue("membershipType"), r.FormValue("duration"))
	if err != nil {
		fail(w, r, err, "An error occurred while approving the membership.", to)
		return
	}
	done(w, r, "Membership approved successfully.", to)
}

func (h *AdminHandler) DeleteMembership(w http.ResponseWriter, r *http.Request) {
	const to = adminHome + "/memberships"
	id, ok := pathID(r, "id")
	if !ok {
		denied(w, r, "Membership payment not found.", to)
		return
	}
	if err := h.memberships.Delete(r.Context(), id); err != nil {
		fail(w, r, err, "An error occurred while deleting the membership payment.", to)
		return
	}
	done(w, r, "Membership payment deleted successfully.", to)
}

func (h *AdminHandler) Users(w http.ResponseWriter, r *http.Request) {
	users, err := h.admin.Users(r.Context())
	if err != nil {
		fail(w, r, err, "An error occurred while loading users.", adminHome)
		return
	}
	h.page(w, r, "users", map[string]any{"Users": users})
}

// DeleteUser removes a user with their products, offers and payments.
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	const to = adminHome + "/users"
	id, ok := pathID(r, "id")
	if !ok {
		denied(w, r, "User not found", to)
		return
	}
	actor, _ := policy.UserFromContext(r.Context())
	var actorID uint
	if actor != nil {
		actorID = actor.ID
	}
	if err := h.admin.DeleteUser(r.Context(), actorID, id); err != nil {
		fail(w, r, err, "An error occurred while deleting the user.", to)
		return
	}
	done(w, r, "User and associated data deleted successfully.", to)
}

func (h *AdminHandler) Categories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.admin.Categories(r.Context())
	if err != nil {
		fail(w, r, err, "An error occurred while loading categories.", adminHome)
		return
	}
	h.page(w, r, "categories", map[string]any{"Categories": cats})
}

func (h *AdminHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	const to = adminHome + "/categories"
	if _, err := h.admin.CreateCategory(r.Context(), r.FormValue("name")); err != nil {
		fail(w, r, err, "An error occurred while creating the category.", to)
		return
	}
	done(w, r, "Category created successfully.", to)
}

func (h *AdminHandler) EditCategory(w http.ResponseWriter, r *http.Request) {
	const to = adminHome + "/categories"
	id, ok := pathID(r, "id")
	if !ok {
		denied(w, r, "Category not found.", to)
		return
	}
	if err := h.admin.RenameCategory(r.Context(), id, r.FormValue("name")); err != nil {
		fail(w, r, err, "An error occurred while updating the category.", to)
		return
	}
	done(w, r, "Category updated successfully.", to)
}

func (h *AdminHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	const to = adminHome + "/categories"
	id, ok := pathID(r, "id")
	if !ok {
		denied(w, r, "Category not found.", to)
		return
	}
	if err := h.admin.DeleteCategory(r.Context(), id); err != nil {
		fail(w, r, err, "An error occurred while deleting the category.", to)
		return
	}
	done(w, r, "Category deleted successfully.", to)
}
