package main

import (
	"context"
	"net/http"
	"time"

	"github.com/diewo77/go-katalog/internal/auth"
	"github.com/diewo77/go-katalog/internal/catalog"
	"github.com/diewo77/go-katalog/internal/config"
	"github.com/diewo77/go-katalog/internal/flash"
	"github.com/diewo77/go-katalog/internal/handlers"
	"github.com/diewo77/go-katalog/internal/httpx"
	"github.com/diewo77/go-katalog/internal/logger"
	"github.com/diewo77/go-katalog/internal/mailer"
	"github.com/diewo77/go-katalog/internal/metrics"
	"github.com/diewo77/go-katalog/internal/middleware"
	"github.com/diewo77/go-katalog/internal/policy"
	"github.com/diewo77/go-katalog/internal/services"
	"github.com/diewo77/go-katalog/internal/storage"
	"github.com/diewo77/go-katalog/internal/store"
	"github.com/diewo77/go-katalog/internal/telemetry"
	"github.com/diewo77/go-katalog/internal/view"
	"github.com/go-redis/redis_rate/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps are the process-wide collaborators the app is built from.
// Redis, Tracer and Mailer are optional.
type Deps struct {
	Config   *config.Config
	DB       *gorm.DB
	Redis    *redis.Client
	Log      *zap.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Tracer   trace.Tracer
	Mailer   mailer.Mailer
}

// App is the main application handler that sets up all routes.
type App struct {
	mux      *http.ServeMux
	handler  http.Handler
	deps     Deps
	store    *store.Store
	view     *view.HTML
	sessions *auth.Sessions
	gate     *policy.AuthGate
	accounts *services.AccountService
}

// NewApp wires the services and handlers and registers every route.
func NewApp(d Deps) *App {
	if d.Mailer == nil {
		d.Mailer = mailer.LogMailer{}
	}
	cfg := d.Config
	flash.Configure([]byte(cfg.Session.Secret), cfg.Session.SecureCookie)
	st := store.New(d.DB)
	files := storage.NewLocal(cfg.Uploads.Dir, cfg.Uploads.MaxBytes)

	a := &App{
		mux:      http.NewServeMux(),
		deps:     d,
		store:    st,
		sessions: auth.New(cfg.Session.Secret, cfg.Session.TTL, cfg.Session.SecureCookie),
		gate:     policy.NewAuthGate(st.Users, d.Metrics),
		accounts: services.NewAccountService(st, d.Mailer, files, cfg.App.BaseURL),
	}
	a.setupRoutes(st, files)
	a.handler = middleware.Chain(a.mux,
		middleware.RequestID,
		telemetry.Middleware(d.Tracer),
		logger.Middleware(d.Log),
		middleware.Recover,
		a.sessions.Middleware,
		d.Metrics.Middleware,
	)
	return a
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}

// Preload parses every page template so a broken page fails startup.
func (a *App) Preload() error { return a.view.Preload() }

// Accounts exposes the account service for startup tasks.
func (a *App) Accounts() *services.AccountService { return a.accounts }

func (a *App) setupRoutes(st *store.Store, files *storage.Local) {
	cfg := a.deps.Config
	v := view.New(view.Templates(), cfg.App.Dev)
	a.view = v

	cache := catalog.NewCategoryCache(st.Categories, cfg.Catalog.CategoryCacheTTL, a.deps.Redis, a.deps.Metrics)
	engine := catalog.NewEngine(st.DB(), cache, a.deps.Tracer, a.deps.Metrics)
	listings := services.NewListingService(st, files)
	memberships := services.NewMembershipService(st, files)

	pages := handlers.NewPagesHandler(v)
	ah := handlers.NewAuthHandler(a.accounts, a.sessions, v)
	kh := handlers.NewKatalogHandler(st, engine, services.NewMarketService(st, a.deps.Metrics), v)
	prh := handlers.NewProfileHandler(st, a.accounts, v)
	ph := handlers.NewProductHandler(st, listings, a.gate, v)
	mh := handlers.NewMembershipHandler(st, memberships, a.gate, v)
	adh := handlers.NewAdminHandler(services.NewAdminService(st, files, cache), listings, memberships, v)

	limit := a.credentialLimiter()

	// ─────────────────────────────────────────────────────────────────────────
	// Public routes
	// ─────────────────────────────────────────────────────────────────────────
	a.mux.HandleFunc("GET /{$}", pages.Page("index"))
	a.mux.HandleFunc("GET /faq", pages.Page("faq"))
	a.mux.HandleFunc("GET /privacy", pages.Page("privacy"))
	a.mux.HandleFunc("GET /tos", pages.Page("tos"))

	a.mux.HandleFunc("GET /login", ah.LoginForm)
	a.mux.Handle("POST /login", limit(http.HandlerFunc(ah.Login)))
	a.mux.HandleFunc("GET /register", ah.RegisterForm)
	a.mux.Handle("POST /register", limit(http.HandlerFunc(ah.Register)))
	a.mux.HandleFunc("GET /logout", ah.Logout)
	a.mux.HandleFunc("GET /forgot-password", ah.ForgotForm)
	a.mux.Handle("POST /forgot-password", limit(http.HandlerFunc(ah.Forgot)))
	a.mux.HandleFunc("GET /reset/{token}", ah.ResetForm)
	a.mux.HandleFunc("POST /reset/{token}", ah.Reset)

	a.mux.HandleFunc("GET /health", a.health)
	a.mux.HandleFunc("GET /healthz", a.ready)
	if a.deps.Registry != nil {
		a.mux.Handle("GET /metrics", metrics.Handler(a.deps.Registry))
	}
	a.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.App.StaticDir))))
	a.mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(files.Root()))))

	// ─────────────────────────────────────────────────────────────────────────
	// Session routes
	// ─────────────────────────────────────────────────────────────────────────
	session := a.gate.RequireSession()
	private := func(pattern string, h http.HandlerFunc) { a.mux.Handle(pattern, session(h)) }

	private("GET /katalog", kh.Index)
	private("GET /katalog/{id}", kh.Detail)
	private("POST /katalog/{id}/make-offer", kh.MakeOffer)

	private("GET /profile", prh.Show)
	private("GET /profile/{id}", prh.Public)
	private("POST /profile/update", prh.Update)
	private("POST /profile/update-picture", prh.UpdatePicture)
	private("GET /profile/product/{id}", ph.Show)
	// Serves /profile/product/edit/{id} and /profile/product/{id}/daftar-penawaran.
	private("GET /profile/product/{first}/{second}", ph.Subpage)
	private("POST /profile/product/edit/{id}", ph.Update)

	private("GET /jual", ph.SellForm)
	private("POST /jual", ph.Sell)
	private("GET /finish-payment/{productId}", ph.PaymentForm)
	private("POST /finish-payment/{productId}", ph.Payment)
	private("GET /selesai/{productId}", ph.Finished)

	private("GET /membership", mh.Index)
	private("GET /membership/{tier}", mh.Form)
	private("POST /membership/{tier}", mh.Apply)
	private("GET /membership/pembayaran/{id}", mh.Payment)
	private("POST /membership/pembayaran/{id}/upload", mh.Upload)
	private("GET /membership/invoice/{id}", mh.Invoice)

	// ─────────────────────────────────────────────────────────────────────────
	// Admin routes
	// ─────────────────────────────────────────────────────────────────────────
	adminOnly := a.gate.RequireAdmin()
	admin := func(pattern string, h http.HandlerFunc) { a.mux.Handle(pattern, adminOnly(h)) }

	admin("GET /admin-dashboard", adh.Dashboard)
	admin("GET /admin-dashboard/products", adh.Products)
	admin("POST /admin-dashboard/products/verify/{id}", adh.VerifyProduct)
	admin("POST /admin-dashboard/products/delete/{id}", adh.DeleteProduct)
	admin("GET /admin-dashboard/memberships", adh.Memberships)
	admin("POST /admin-dashboard/memberships/approve/{id}", adh.ApproveMembership)
	admin("POST /admin-dashboard/memberships/delete/{id}", adh.DeleteMembership)
	admin("GET /admin-dashboard/users", adh.Users)
	admin("POST /admin-dashboard/users/delete/{id}", adh.DeleteUser)
	admin("GET /admin-dashboard/categories", adh.Categories)
	admin("POST /admin-dashboard/categories/create", adh.CreateCategory)
	admin("POST /admin-dashboard/categories/edit/{id}", adh.EditCategory)
	admin("POST /admin-dashboard/categories/delete/{id}", adh.DeleteCategory)
}

// credentialLimiter throttles the login, register and password reset posts
// per client and path. A limited form gets the flash and its page again.
func (a *App) credentialLimiter() func(http.Handler) http.Handler {
	rc := a.deps.Config.RateLimit
	rl := middleware.NewRateLimiter(a.deps.Redis, middleware.RateLimitConfig{
		Limit: middleware.PerWindow(rc.Requests, rc.Burst, rc.Window),
		KeyFunc: func(r *http.Request) string {
			return middleware.KeyByIP(r) + ":" + r.URL.Path
		},
		OnLimited: func(w http.ResponseWriter, r *http.Request, _ *redis_rate.Result) {
			flash.Error(w, r, "Too many attempts. Please try again later.")
			http.Redirect(w, r, r.URL.Path, http.StatusSeeOther)
		},
	}, a.deps.Metrics)
	return rl.Handler
}

func (a *App) health(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ready reports whether the database (and Redis when configured) answer.
func (a *App) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{"database": "ok"}
	status := http.StatusOK
	if err := a.store.Ping(ctx); err != nil {
		logger.FromContext(ctx).Warn("readiness: database", zap.Error(err))
		checks["database"] = "unavailable"
		status = http.StatusServiceUnavailable
	}
	if a.deps.Redis != nil {
		checks["redis"] = "ok"
		if err := a.deps.Redis.Ping(ctx).Err(); err != nil {
			logger.FromContext(ctx).Warn("readiness: redis", zap.Error(err))
			checks["redis"] = "unavailable"
			status = http.StatusServiceUnavailable
		}
	}
	httpx.JSON(w, status, checks)
}
