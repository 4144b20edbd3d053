package handlers

import (
	"net/http"

	"github.com/diewo77/go-katalog/internal/apperr"
	"github.com/diewo77/go-katalog/internal/auth"
	"github.com/diewo77/go-katalog/internal/gate"
	"github.com/diewo77/go-katalog/internal/models"
	"github.com/diewo77/go-katalog/internal/policy"
	"github.com/diewo77/go-katalog/internal/services"
	"github.com/diewo77/go-katalog/internal/store"
	"github.com/diewo77/go-katalog/internal/view"
)

// MembershipHandler runs the tier purchase pages.
type MembershipHandler struct {
	store       *store.Store
	memberships *services.MembershipService
	gate        *policy.AuthGate
	view        view.Renderer
}

func NewMembershipHandler(s *store.Store, ms *services.MembershipService, g *policy.AuthGate, v view.Renderer) *MembershipHandler {
	return &MembershipHandler{store: s, memberships: ms, gate: g, view: v}
}

func (h *MembershipHandler) currentUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	uid, _ := auth.UserIDFromContext(r.Context())
	u, err := h.store.Users.ByID(r.Context(), uid)
	if err != nil {
		if apperr.IsNotFound(err) {
			denied(w, r, "User not found", "/login")
			return nil, false
		}
		fail(w, r, err, "An error occurred", "/")
		return nil, false
	}
	return u, true
}

// payment loads the payment in the path and checks the caller owns it.
func (h *MembershipHandler) payment(w http.ResponseWriter, r *http.Request, action gate.Action) (*models.MembershipPayment, bool) {
	id, ok := pathID(r, "id")
	if !ok {
		denied(w, r, "Payment not found", "/membership")
		return nil, false
	}
	m, err := h.memberships.Payment(r.Context(), id)
	if err != nil {
		if apperr.IsNotFound(err) {
			denied(w, r, "Payment not found", "/membership")
			return nil, false
		}
		fail(w, r, err, "An error occurred", "/membership")
		return nil, false
	}
	if err := h.gate.Authorize(r.Context(), action, policy.ResourceMembershipPayment, m); err != nil {
		denied(w, r, "You do not have permission to access this payment", "/membership")
		return nil, false
	}
	return m, true
}

// Index lists the tiers and the caller's payments.
func (h *MembershipHandler) Index(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	payments, err := h.store.Memberships.ByUser(r.Context(), u.ID)
	if err != nil {
		fail(w, r, err, "An error occurred", "/profile")
		return
	}
	render(h.view, w, r, "membership/index.html", map[string]any{
		"User":     u,
		"Tiers":    models.Tiers,
		"Payments": payments,
	})
}

// Form renders the buyer details form for one tier.
func (h *MembershipHandler) Form(w http.ResponseWriter, r *http.Request) {
	tier, ok := models.LookupTier(r.PathValue("tier"))
	if !ok {
		denied(w, r, "Invalid membership type.", "/membership")
		return
	}
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	render(h.view, w, r, "membership/form.html", map[string]any{
		"User": u,
		"Tier": tier,
	})
}

// Apply opens a payment and moves on to the transfer instructions.
func (h *MembershipHandler) Apply(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	tierKey := r.PathValue("tier")
	m, err := h.memberships.Apply(r.Context(), uid, tierKey, services.ApplyInput{
		FirstName:  r.FormValue("namaDepan"),
		LastName:   r.FormValue("namaBelakang"),
		Phone:      r.FormValue("nomorTelepon"),
		Address:    r.FormValue("alamatDomisili"),
		Province:   r.FormValue("provinsiDomisili"),
		City:       r.FormValue("kotaKabupatenDomisili"),
		District:   r.FormValue("kecamatanDomisili"),
		PostalCode: r.FormValue("kodePosDomisili"),
	})
	if err != nil {
		to := "/membership"
		if _, known := models.LookupTier(tierKey); known && apperr.IsValidation(err) {
			to = "/membership/" + tierKey
		}
		fail(w, r, err, "An error occurred during the process", to)
		return
	}
	http.Redirect(w, r, idPath("/membership/pembayaran/", m.ID), http.StatusSeeOther)
}

// Payment shows the transfer instructions and the proof upload form.
func (h *MembershipHandler) Payment(w http.ResponseWriter, r *http.Request) {
	m, ok := h.payment(w, r, gate.ActionView)
	if !ok {
		return
	}
	tier, _ := models.LookupTier(m.Tier)
	render(h.view, w, r, "membership/payment.html", map[string]any{
		"Payment": m,
		"Tier":    tier,
	})
}

// Upload attaches the transfer receipt.
func (h *MembershipHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := parseMultipart(r); err != nil {
		fail(w, r, err, "An error occurred during the upload", "/membership")
		return
	}
	m, ok := h.payment(w, r, gate.ActionUpdate)
	if !ok {
		return
	}
	back := idPath("/membership/pembayaran/", m.ID)
	up, ok := formFile(r, "paymentProof")
	if !ok {
		denied(w, r, "Please upload the payment proof.", back)
		return
	}
	if err := h.memberships.AttachProof(r.Context(), m, up); err != nil {
		fail(w, r, err, "An error occurred during the upload", back)
		return
	}
	done(w, r, "Payment proof uploaded successfully", idPath("/membership/invoice/", m.ID))
}

// Invoice renders the payment summary.
func (h *MembershipHandler) Invoice(w http.ResponseWriter, r *http.Request) {
	m, ok := h.payment(w, r, gate.ActionView)
	if !ok {
		return
	}
	tier, _ := models.LookupTier(m.Tier)
	render(h.view, w, r, "membership/invoice.html", map[string]any{
		"Payment": m,
		"Tier":    tier,
		"User":    m.User,
	})
}
