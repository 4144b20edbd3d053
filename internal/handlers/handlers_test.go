package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/diewo77/go-katalog/internal/auth"
	"github.com/diewo77/go-katalog/internal/catalog"
	"github.com/diewo77/go-katalog/internal/db/dbtest"
	"github.com/diewo77/go-katalog/internal/flash"
	"github.com/diewo77/go-katalog/internal/mailer"
	"github.com/diewo77/go-katalog/internal/models"
	"github.com/diewo77/go-katalog/internal/policy"
	"github.com/diewo77/go-katalog/internal/services"
	"github.com/diewo77/go-katalog/internal/storage"
	"github.com/diewo77/go-katalog/internal/store"
)

// recordingView captures the last render instead of executing templates.
type recordingView struct {
	name string
	data map[string]any
}

func (v *recordingView) Render(w http.ResponseWriter, _ *http.Request, name string, data map[string]any) error {
	v.name, v.data = name, data
	w.WriteHeader(http.StatusOK)
	return nil
}

type env struct {
	store    *store.Store
	view     *recordingView
	katalog  *KatalogHandler
	products *ProductHandler
	profile  *ProfileHandler
	admin    *AdminHandler
	gate     *policy.AuthGate

	seller, buyer, root models.User
	category            models.Category
}

func newEnv(t *testing.T) *env {
	t.Helper()
	s := store.New(dbtest.Open(t))
	files := storage.NewLocal(t.TempDir(), 1<<20)
	v := &recordingView{}
	cache := catalog.NewCategoryCache(s.Categories, 0, nil, nil)
	g := policy.NewAuthGate(s.Users, nil)
	listings := services.NewListingService(s, files)
	memberships := services.NewMembershipService(s, files)
	accounts := services.NewAccountService(s, mailer.LogMailer{}, files, "http://localhost:8080")

	e := &env{
		store:    s,
		view:     v,
		gate:     g,
		katalog:  NewKatalogHandler(s, catalog.NewEngine(s.DB(), cache, nil, nil), services.NewMarketService(s, nil), v),
		products: NewProductHandler(s, listings, g, v),
		profile:  NewProfileHandler(s, accounts, v),
		admin:    NewAdminHandler(services.NewAdminService(s, files, cache), listings, memberships, v),
	}
	e.seller = models.User{Username: "seller", Email: "seller@example.com", Password: "x"}
	e.buyer = models.User{Username: "buyer", Email: "buyer@example.com", Password: "x"}
	e.root = models.User{Username: "root", Email: "root@example.com", Password: "x", IsAdmin: true}
	e.category = models.Category{Name: "Fashion"}
	for _, v := range []any{&e.seller, &e.buyer, &e.root, &e.category} {
		if err := s.DB().Create(v).Error; err != nil {
			t.Fatal(err)
		}
	}
	return e
}

func (e *env) product(t *testing.T, verified bool) models.Product {
	t.Helper()
	p := models.Product{UserID: e.seller.ID, Name: "Kemeja", CategoryID: e.category.ID, Price: 60000, Condition: models.ConditionUsed, IsVerified: verified}
	if err := e.store.DB().Create(&p).Error; err != nil {
		t.Fatal(err)
	}
	return p
}

func (e *env) offers(t *testing.T) int64 {
	t.Helper()
	var n int64
	if err := e.store.DB().Model(&models.Offer{}).Count(&n).Error; err != nil {
		t.Fatal(err)
	}
	return n
}

func as(r *http.Request, userID uint) *http.Request {
	return r.WithContext(auth.WithUserID(r.Context(), userID))
}

func postForm(target string, form url.Values) *http.Request {
	r := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

func id(n uint) string { return strconv.FormatUint(uint64(n), 10) }

// flashes decodes the messages set on the response.
func flashes(t *testing.T, w *httptest.ResponseRecorder) []flash.Message {
	t.Helper()
	// A browser keeps the last Set-Cookie of each name.
	last := map[string]*http.Cookie{}
	for _, c := range w.Result().Cookies() {
		last[c.Name] = c
	}
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range last {
		if c.MaxAge >= 0 {
			r.AddCookie(c)
		}
	}
	return flash.Pop(httptest.NewRecorder(), r)
}

func assertRedirect(t *testing.T, w *httptest.ResponseRecorder, to string) {
	t.Helper()
	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != to {
		t.Fatalf("Location = %q, want %q", loc, to)
	}
}

func assertFlash(t *testing.T, w *httptest.ResponseRecorder, kind, text string) {
	t.Helper()
	for _, m := range flashes(t, w) {
		if m.Kind == kind && m.Text == text {
			return
		}
	}
	t.Errorf("flash %s %q not set; got %+v", kind, text, flashes(t, w))
}

func TestKatalogIndexRendersVerifiedOnly(t *testing.T) {
	e := newEnv(t)
	e.product(t, true)
	e.product(t, false)

	w := httptest.NewRecorder()
	e.katalog.Index(w, httptest.NewRequest(http.MethodGet, "/katalog?limit=5&sort=bogus", nil))
	if e.view.name != "katalog/index.html" {
		t.Fatalf("rendered %q", e.view.name)
	}
	page := e.view.data["Page"].(*catalog.Page)
	if page.Total != 1 || page.Limit != 5 {
		t.Errorf("page = %+v", page)
	}
	if f := e.view.data["Filter"].(catalog.Filter); f.Sort != catalog.SortNatural {
		t.Errorf("unknown sort should be ignored, got %v", f.Sort)
	}
}

func TestKatalogDetail(t *testing.T) {
	e := newEnv(t)
	verified := e.product(t, true)
	hidden := e.product(t, false)

	t.Run("owner is sent to own view", func(t *testing.T) {
		r := as(httptest.NewRequest(http.MethodGet, "/katalog/"+id(hidden.ID), nil), e.seller.ID)
		r.SetPathValue("id", id(hidden.ID))
		w := httptest.NewRecorder()
		e.katalog.Detail(w, r)
		assertRedirect(t, w, "/profile/product/"+id(hidden.ID))
	})
	t.Run("unverified is not found", func(t *testing.T) {
		r := as(httptest.NewRequest(http.MethodGet, "/", nil), e.buyer.ID)
		r.SetPathValue("id", id(hidden.ID))
		w := httptest.NewRecorder()
		e.katalog.Detail(w, r)
		assertRedirect(t, w, "/katalog")
		assertFlash(t, w, flash.KindError, "Product not found.")
	})
	t.Run("verified renders", func(t *testing.T) {
		r := as(httptest.NewRequest(http.MethodGet, "/", nil), e.buyer.ID)
		r.SetPathValue("id", id(verified.ID))
		w := httptest.NewRecorder()
		e.katalog.Detail(w, r)
		if w.Code != http.StatusOK || e.view.name != "katalog/detail.html" {
			t.Fatalf("status %d rendered %q", w.Code, e.view.name)
		}
	})
}

func TestMakeOfferRejectsBadPrices(t *testing.T) {
	e := newEnv(t)
	p := e.product(t, true)

	for _, price := range []string{"0", "abc", "-5", ""} {
		t.Run("price="+price, func(t *testing.T) {
			r := as(postForm("/katalog/"+id(p.ID), url.Values{"offerPrice": {price}}), e.buyer.ID)
			r.SetPathValue("id", id(p.ID))
			w := httptest.NewRecorder()
			e.katalog.MakeOffer(w, r)
			assertRedirect(t, w, "/katalog/"+id(p.ID))
			assertFlash(t, w, flash.KindError, "Invalid offer price.")
		})
	}
	if n := e.offers(t); n != 0 {
		t.Fatalf("%d offers stored", n)
	}

	r := as(postForm("/", url.Values{"offerPrice": {"55000"}}), e.buyer.ID)
	r.SetPathValue("id", id(p.ID))
	w := httptest.NewRecorder()
	e.katalog.MakeOffer(w, r)
	assertFlash(t, w, flash.KindSuccess, "Offer made successfully.")
	if n := e.offers(t); n != 1 {
		t.Fatalf("%d offers stored, want 1", n)
	}
}

func TestProductOwnership(t *testing.T) {
	e := newEnv(t)
	p := e.product(t, true)

	t.Run("other user is refused", func(t *testing.T) {
		r := as(httptest.NewRequest(http.MethodGet, "/", nil), e.buyer.ID)
		r.SetPathValue("id", id(p.ID))
		w := httptest.NewRecorder()
		e.products.Show(w, r)
		assertRedirect(t, w, "/profile")
		assertFlash(t, w, flash.KindError, "You do not have permission to access this product")
	})
	t.Run("missing before forbidden", func(t *testing.T) {
		r := as(httptest.NewRequest(http.MethodGet, "/", nil), e.buyer.ID)
		r.SetPathValue("id", "9999")
		w := httptest.NewRecorder()
		e.products.Show(w, r)
		assertFlash(t, w, flash.KindError, "Product not found")
	})
	t.Run("owner sees offers", func(t *testing.T) {
		r := as(httptest.NewRequest(http.MethodGet, "/", nil), e.seller.ID)
		r.SetPathValue("first", id(p.ID))
		r.SetPathValue("second", "daftar-penawaran")
		w := httptest.NewRecorder()
		e.products.Subpage(w, r)
		if e.view.name != "profile/offers.html" {
			t.Fatalf("rendered %q (status %d)", e.view.name, w.Code)
		}
	})
	t.Run("edit form through dispatcher", func(t *testing.T) {
		r := as(httptest.NewRequest(http.MethodGet, "/", nil), e.seller.ID)
		r.SetPathValue("first", "edit")
		r.SetPathValue("second", id(p.ID))
		w := httptest.NewRecorder()
		e.products.Subpage(w, r)
		if e.view.name != "profile/edit_product.html" {
			t.Fatalf("rendered %q (status %d)", e.view.name, w.Code)
		}
	})
	t.Run("unknown subpage", func(t *testing.T) {
		r := as(httptest.NewRequest(http.MethodGet, "/", nil), e.seller.ID)
		r.SetPathValue("first", id(p.ID))
		r.SetPathValue("second", "nope")
		w := httptest.NewRecorder()
		e.products.Subpage(w, r)
		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d", w.Code)
		}
	})
}

func TestSellCreatesUnverifiedListing(t *testing.T) {
	e := newEnv(t)
	form := url.Values{
		"productName": {"Sepatu"}, "category": {id(e.category.ID)}, "price": {"120000"},
		"condition": {"baru"}, "location": {"Yogyakarta"},
	}
	w := httptest.NewRecorder()
	e.products.Sell(w, as(postForm("/jual", form), e.seller.ID))

	var p models.Product
	if err := e.store.DB().Where("name = ?", "Sepatu").First(&p).Error; err != nil {
		t.Fatalf("listing not stored: %v", err)
	}
	assertRedirect(t, w, "/finish-payment/"+id(p.ID))
	if p.IsVerified || p.Condition != models.ConditionNew || p.UserID != e.seller.ID {
		t.Errorf("stored %+v", p)
	}

	bad := url.Values{"productName": {"X"}, "category": {id(e.category.ID)}, "price": {"murah"}, "condition": {"new"}}
	w = httptest.NewRecorder()
	e.products.Sell(w, as(postForm("/jual", bad), e.seller.ID))
	assertRedirect(t, w, "/jual")
	assertFlash(t, w, flash.KindError, "Invalid price.")
}

func TestPublicProfileOfSelfRedirects(t *testing.T) {
	e := newEnv(t)
	r := as(httptest.NewRequest(http.MethodGet, "/", nil), e.seller.ID)
	r.SetPathValue("id", id(e.seller.ID))
	w := httptest.NewRecorder()
	e.profile.Public(w, r)
	assertRedirect(t, w, "/profile")
}

func TestAdminRoutesBehindGate(t *testing.T) {
	e := newEnv(t)
	h := e.gate.RequireAdmin()(http.HandlerFunc(e.admin.Dashboard))

	for name, uid := range map[string]uint{"anonymous": 0, "regular user": e.buyer.ID} {
		t.Run(name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/admin-dashboard", nil)
			if uid != 0 {
				r = as(r, uid)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			assertRedirect(t, w, "/login")
		})
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, as(httptest.NewRequest(http.MethodGet, "/admin-dashboard", nil), e.root.ID))
	if e.view.name != "admin/dashboard.html" {
		t.Fatalf("rendered %q", e.view.name)
	}
	if u, _ := e.view.data["User"].(*models.User); u == nil || u.ID != e.root.ID {
		t.Errorf("admin user not injected: %+v", e.view.data["User"])
	}
	if stats := e.view.data["Stats"].(services.Stats); stats.Users != 3 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestAdminCannotDeleteSelf(t *testing.T) {
	e := newEnv(t)
	h := e.gate.RequireAdmin()(http.HandlerFunc(e.admin.DeleteUser))
	r := as(httptest.NewRequest(http.MethodPost, "/admin-dashboard/users/delete/"+id(e.root.ID), nil), e.root.ID)
	r.SetPathValue("id", id(e.root.ID))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assertRedirect(t, w, "/admin-dashboard/users")
	assertFlash(t, w, flash.KindError, "You cannot delete your own account.")
	if _, err := e.store.Users.ByID(context.Background(), e.root.ID); err != nil {
		t.Errorf("admin deleted: %v", err)
	}
}
