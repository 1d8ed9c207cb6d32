// Package storefront assembles the public HTTP API from the catalog, cart
// and session packages.
package storefront

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"MarketID/internal/cart"
	"MarketID/internal/catalog"
	"MarketID/internal/session"
	"MarketID/pkg/kit"
)

type HTTPDeps struct {
	Log      *zap.Logger
	Service  string
	Registry *prometheus.Registry

	MetricsEnabled bool
	MetricsToken   string

	// ExposeErrors puts error text into 500 responses. Off in production.
	ExposeErrors   bool
	AllowedOrigins []string

	// CheckoutLimit is checkouts per client IP per minute; 0 disables.
	CheckoutLimit int
}

type Deps struct {
	Catalog catalog.Store
	Carts   cart.Store

	// Sessions is nil when every client shares one cart.
	Sessions *session.Manager
}

const readyTimeout = 2 * time.Second

func NewHandler(deps Deps, httpDeps HTTPDeps) http.Handler {
	log := httpDeps.Log
	if log == nil {
		log = zap.NewNop()
	}

	var cartMetrics *cart.Metrics
	if httpDeps.Registry != nil {
		cartMetrics = cart.NewMetrics(httpDeps.Registry, deps.Carts)
	}

	products := &catalog.Server{Store: deps.Catalog, Log: log}
	carts := &cart.Server{
		Store:   deps.Carts,
		Catalog: deps.Catalog,
		Log:     log,
		Metrics: cartMetrics,
	}

	r := chi.NewRouter()
	setupMiddleware(r, httpDeps, log)
	setupMetrics(r, httpDeps)

	r.Get("/healthz", healthz)
	r.Get("/readyz", readyz(deps, log))

	limiter := kit.NewIPRateLimiter(httpDeps.CheckoutLimit, time.Minute)

	r.Route("/api", func(api chi.Router) {
		if deps.Sessions != nil {
			api.Use(session.Middleware(deps.Sessions, log))
		} else {
			api.Use(session.Shared)
		}

		products.Register(api)
		carts.Register(api)
		api.With(limiter.Middleware).Post("/checkout", carts.CheckoutHandler())
	})

	return r
}

func setupMiddleware(r *chi.Mux, deps HTTPDeps, log *zap.Logger) {
	r.Use(chimw.RequestID)
	r.Use(kit.ErrorDetail(deps.ExposeErrors))
	r.Use(kit.Recoverer(log))
	r.Use(kit.Logging(log))

	if len(deps.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   deps.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", session.HeaderToken},
			ExposedHeaders:   []string{session.HeaderToken},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
}

func setupMetrics(r *chi.Mux, deps HTTPDeps) {
	if deps.Registry == nil {
		return
	}

	metrics := kit.NewMetrics(deps.Registry)
	r.Use(metrics.Middleware(deps.Service, kit.ChiRoutePatternOrPath))

	if !deps.MetricsEnabled {
		return
	}

	r.With(kit.MetricsAuth(deps.MetricsToken)).
		Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func readyz(deps Deps, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		if err := deps.Catalog.Ping(ctx); err != nil {
			log.Warn("readyz failed: catalog", zap.Error(err))
			kit.WriteError(w, r, http.StatusServiceUnavailable, "catalog not ready", nil)
			return
		}

		if err := deps.Carts.Ping(ctx); err != nil {
			log.Warn("readyz failed: cart", zap.Error(err))
			kit.WriteError(w, r, http.StatusServiceUnavailable, "cart store not ready", nil)
			return
		}

		w.WriteHeader(http.StatusOK)
	}
}
