package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/diewo77/go-katalog/internal/apperr"
	"github.com/diewo77/go-katalog/internal/auth"
	"github.com/diewo77/go-katalog/internal/services"
	"github.com/diewo77/go-katalog/internal/view"
)

// AuthHandler serves login, registration and password reset.
type AuthHandler struct {
	accounts *services.AccountService
	sessions *auth.Sessions
	view     view.Renderer
}

func NewAuthHandler(accounts *services.AccountService, sessions *auth.Sessions, v view.Renderer) *AuthHandler {
	return &AuthHandler{accounts: accounts, sessions: sessions, view: v}
}

// redirectLoggedIn sends an existing session to its profile.
func redirectLoggedIn(w http.ResponseWriter, r *http.Request) bool {
	if _, ok := auth.UserIDFromContext(r.Context()); ok {
		http.Redirect(w, r, "/profile", http.StatusSeeOther)
		return true
	}
	return false
}

func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if redirectLoggedIn(w, r) {
		return
	}
	render(h.view, w, r, "auth/login.html", nil)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	u, err := h.accounts.Authenticate(r.Context(), r.FormValue("email"), r.FormValue("password"))
	if err != nil {
		fail(w, r, err, "An error occurred", "/login")
		return
	}
	if err := h.sessions.Issue(w, u.ID); err != nil {
		fail(w, r, err, "An error occurred", "/login")
		return
	}
	if u.IsAdmin {
		http.Redirect(w, r, "/admin-dashboard", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/profile", http.StatusSeeOther)
}

func (h *AuthHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	if redirectLoggedIn(w, r) {
		return
	}
	render(h.view, w, r, "auth/register.html", nil)
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	birth, err := services.ParseDate(r.FormValue("birthdate"))
	if err != nil {
		denied(w, r, "Invalid birthdate.", "/register")
		return
	}
	_, err = h.accounts.Register(r.Context(), services.RegisterInput{
		Username:        r.FormValue("username"),
		Email:           r.FormValue("email"),
		Password:        r.FormValue("password"),
		ConfirmPassword: r.FormValue("confirm_password"),
		Phone:           strings.TrimSpace(r.FormValue("phone")),
		Address:         strings.TrimSpace(r.FormValue("address")),
		Birthdate:       birth,
	})
	if err != nil {
		fail(w, r, err, "An error occurred", "/register")
		return
	}
	done(w, r, "Registration successful. Please log in.", "/login")
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *AuthHandler) ForgotForm(w http.ResponseWriter, r *http.Request) {
	render(h.view, w, r, "auth/forgot.html", nil)
}

func (h *AuthHandler) Forgot(w http.ResponseWriter, r *http.Request) {
	if err := h.accounts.RequestPasswordReset(r.Context(), r.FormValue("email")); err != nil {
		fail(w, r, err, "An error occurred", "/forgot-password")
		return
	}
	done(w, r, "Password reset email sent", "/forgot-password")
}

func (h *AuthHandler) ResetForm(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if _, err := h.accounts.CheckResetToken(r.Context(), token); err != nil {
		fail(w, r, err, "Invalid token", "/forgot-password")
		return
	}
	render(h.view, w, r, "auth/reset.html", map[string]any{"Token": token})
}

func (h *AuthHandler) Reset(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	err := h.accounts.ResetPassword(r.Context(), token, r.FormValue("password"), r.FormValue("confirmPassword"))
	switch {
	case err == nil:
		done(w, r, "Your password has been reset. Please log in.", "/login")
	case apperr.IsNotFound(err) || apperr.MessageOf(err, "") == "Invalid token":
		fail(w, r, err, "Invalid token", "/forgot-password")
	default:
		fail(w, r, err, "An error occurred", "/reset/"+url.PathEscape(token))
	}
}
