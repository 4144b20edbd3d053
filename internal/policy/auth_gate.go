package policy

import (
	"context"
	"net/http"

	"github.com/diewo77/go-katalog/internal/apperr"
	"github.com/diewo77/go-katalog/internal/auth"
	"github.com/diewo77/go-katalog/internal/gate"
	"github.com/diewo77/go-katalog/internal/logger"
	"github.com/diewo77/go-katalog/internal/metrics"
	"github.com/diewo77/go-katalog/internal/models"
	"go.uber.org/zap"
)

// Resource types registered on the gate.
const (
	ResourceProduct           = "product"
	ResourceOffer             = "offer"
	ResourceMembershipPayment = "membership_payment"
)

// LoginPath is where every denied request is sent.
const LoginPath = "/login"

// Capability is what a route requires of the caller.
type Capability string

const (
	// CapabilitySession admits any request carrying a valid session.
	CapabilitySession Capability = "session"
	// CapabilityAdmin admits sessions whose user exists and is an administrator.
	CapabilityAdmin Capability = "admin"
)

// UserFinder loads a user by ID.
type UserFinder interface {
	ByID(ctx context.Context, id uint) (*models.User, error)
}

type userCtxKey struct{}

// WithUser stores the resolved user in ctx.
func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext returns the user attached by the admin gate.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(userCtxKey{}).(*models.User)
	return u, ok && u != nil
}

// AuthGate is the central authorization point: route middleware for
// session/admin capabilities plus resource-level ownership checks.
type AuthGate struct {
	users   UserFinder
	gate    *gate.Gate[uint]
	metrics *metrics.Metrics
}

// NewAuthGate creates the gate with the ownership policies registered.
// Membership payments may also be read by administrators.
func NewAuthGate(users UserFinder, m *metrics.Metrics) *AuthGate {
	ag := &AuthGate{users: users, gate: gate.New[uint](), metrics: m}

	ownership := NewOwnershipPolicy()
	ag.RegisterPolicy(ResourceProduct, ownership)
	ag.RegisterPolicy(ResourceOffer, ownership)
	ag.RegisterPolicy(ResourceMembershipPayment, NewAdminBypassPolicy(ownership, ag.IsAdmin))
	return ag
}

// RegisterPolicy sets the policy for a resource type.
func (ag *AuthGate) RegisterPolicy(resourceType string, p gate.Policy[uint]) {
	ag.gate.Register(resourceType, p)
}

// IsAdmin reports whether userID resolves to an administrator. Lookup
// failures count as not admin.
func (ag *AuthGate) IsAdmin(ctx context.Context, userID uint) bool {
	u, err := ag.users.ByID(ctx, userID)
	return err == nil && u.IsAdmin
}

// Authorize checks that the session user may perform action on resource.
// Callers load the resource first so a missing entity is reported before
// an ownership mismatch.
func (ag *AuthGate) Authorize(ctx context.Context, action gate.Action, resourceType string, resource any) error {
	userID, _ := auth.UserIDFromContext(ctx)
	if err := ag.gate.Authorize(ctx, userID, action, resourceType, resource); err != nil {
		return &apperr.Error{Kind: apperr.KindUnauthorized, Op: "authorize " + resourceType, Err: err}
	}
	return nil
}

// Require returns middleware admitting only callers holding c. Every denial
// is the same 303 to the login page; the wrapped handler never runs.
func (ag *AuthGate) Require(c Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := auth.UserIDFromContext(r.Context())
			if !ok {
				ag.deny(w, r, c, "no_session")
				return
			}
			if c == CapabilitySession {
				next.ServeHTTP(w, r)
				return
			}

			u, err := ag.users.ByID(r.Context(), userID)
			if err != nil {
				if !apperr.IsNotFound(err) {
					logger.FromContext(r.Context()).Warn("admin gate lookup failed",
						zap.Uint("user_id", userID), zap.Error(err))
				}
				ag.deny(w, r, c, "lookup")
				return
			}
			if !u.IsAdmin {
				ag.deny(w, r, c, "role")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}

// RequireSession is Require(CapabilitySession).
func (ag *AuthGate) RequireSession() func(http.Handler) http.Handler {
	return ag.Require(CapabilitySession)
}

// RequireAdmin is Require(CapabilityAdmin).
func (ag *AuthGate) RequireAdmin() func(http.Handler) http.Handler {
	return ag.Require(CapabilityAdmin)
}

func (ag *AuthGate) deny(w http.ResponseWriter, r *http.Request, c Capability, reason string) {
	ag.metrics.GateDenied(string(c), reason)
	http.Redirect(w, r, LoginPath, http.StatusSeeOther)
}
