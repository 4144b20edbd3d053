package policy_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/diewo77/go-katalog/internal/apperr"
	"github.com/diewo77/go-katalog/internal/auth"
	"github.com/diewo77/go-katalog/internal/gate"
	"github.com/diewo77/go-katalog/internal/metrics"
	"github.com/diewo77/go-katalog/internal/models"
	"github.com/diewo77/go-katalog/internal/policy"
	"github.com/prometheus/client_golang/prometheus"
)

type fakeUsers struct {
	users map[uint]*models.User
	err   error
}

func (f *fakeUsers) ByID(_ context.Context, id uint) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperr.NotFound("user.get", "User not found")
	}
	return u, nil
}

func newGate(t *testing.T, users *fakeUsers) *policy.AuthGate {
	t.Helper()
	m, err := metrics.New(prometheus.NewRegistry(), "test")
	if err != nil {
		t.Fatal(err)
	}
	return policy.NewAuthGate(users, m)
}

func serve(h http.Handler, uid uint) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/admin-dashboard", nil)
	if uid != 0 {
		req = req.WithContext(auth.WithUserID(req.Context(), uid))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRequireAdmin(t *testing.T) {
	users := &fakeUsers{users: map[uint]*models.User{
		1: {ID: 1, Username: "root", IsAdmin: true},
		2: {ID: 2, Username: "buyer"},
	}}
	ag := newGate(t, users)

	tests := []struct {
		name    string
		uid     uint
		reached bool
	}{
		{"no session", 0, false},
		{"unknown user", 404, false},
		{"not admin", 2, false},
		{"admin", 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reached := false
			var attached *models.User
			h := ag.RequireAdmin()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				reached = true
				attached, _ = policy.UserFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}))
			rec := serve(h, tt.uid)

			if reached != tt.reached {
				t.Fatalf("handler reached = %v, want %v", reached, tt.reached)
			}
			if !tt.reached {
				if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != policy.LoginPath {
					t.Errorf("got %d -> %q, want 303 -> /login", rec.Code, rec.Header().Get("Location"))
				}
				return
			}
			if attached == nil || attached.ID != tt.uid {
				t.Errorf("attached user = %+v", attached)
			}
		})
	}
}

func TestRequireAdminLookupFailure(t *testing.T) {
	ag := newGate(t, &fakeUsers{err: apperr.Store("user.get", errors.New("connection refused"))})
	reached := false
	h := ag.RequireAdmin()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { reached = true }))
	rec := serve(h, 1)
	if reached || rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != policy.LoginPath {
		t.Errorf("store failure must redirect like any other denial: %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestRequireSessionSkipsLookup(t *testing.T) {
	// A failing finder proves the session gate never touches the store.
	ag := newGate(t, &fakeUsers{err: errors.New("must not be called")})
	reached := false
	h := ag.RequireSession()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { reached = true }))

	if rec := serve(h, 0); reached || rec.Code != http.StatusSeeOther {
		t.Fatalf("anonymous request: reached=%v code=%d", reached, rec.Code)
	}
	serve(h, 5)
	if !reached {
		t.Error("session request did not reach the handler")
	}
}

func TestAuthorize(t *testing.T) {
	users := &fakeUsers{users: map[uint]*models.User{1: {ID: 1, IsAdmin: true}, 2: {ID: 2}}}
	ag := newGate(t, users)
	product := &models.Product{UserID: 2}
	payment := &models.MembershipPayment{UserID: 2}

	ctxOwner := auth.WithUserID(context.Background(), 2)
	ctxAdmin := auth.WithUserID(context.Background(), 1)
	ctxStranger := auth.WithUserID(context.Background(), 3)

	if err := ag.Authorize(ctxOwner, gate.ActionView, policy.ResourceProduct, product); err != nil {
		t.Errorf("owner denied: %v", err)
	}
	err := ag.Authorize(ctxStranger, gate.ActionView, policy.ResourceProduct, product)
	if !apperr.IsUnauthorized(err) || !errors.Is(err, gate.ErrForbidden) {
		t.Errorf("stranger: err = %v", err)
	}
	if err := ag.Authorize(ctxAdmin, gate.ActionView, policy.ResourceProduct, product); err == nil {
		t.Error("admins do not bypass product ownership")
	}
	if err := ag.Authorize(ctxAdmin, gate.ActionView, policy.ResourceMembershipPayment, payment); err != nil {
		t.Errorf("admin should read any payment: %v", err)
	}
	err = ag.Authorize(context.Background(), gate.ActionView, policy.ResourceProduct, product)
	if !errors.Is(err, gate.ErrUnauthenticated) {
		t.Errorf("no session: err = %v", err)
	}
	if ag.Can(ctxOwner, gate.ActionView, "invoice", product) {
		t.Error("unregistered resource type should be denied")
	}
}
