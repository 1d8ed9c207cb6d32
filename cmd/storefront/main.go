package main

import (
	"context"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"MarketID/internal/cart"
	"MarketID/internal/catalog"
	"MarketID/internal/config"
	"MarketID/internal/session"
	"MarketID/internal/storefront"
	"MarketID/pkg/kit"
)

func main() {
	service := "storefront"

	cfg, err := config.Load(os.Args[1:], os.Getenv)
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}

	log, err := kit.NewLogger(service, cfg.Log.Level)
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}
	defer func() { _ = log.Sync() }()

	ctx := context.Background()

	products, closeCatalog, err := openCatalog(ctx, cfg, log)
	if err != nil {
		log.Fatal("init catalog failed", zap.Error(err))
	}
	defer closeCatalog()

	carts, closeCarts, err := openCarts(ctx, cfg, log)
	if err != nil {
		log.Fatal("init cart store failed", zap.Error(err))
	}
	defer closeCarts()

	deps := storefront.Deps{Catalog: products, Carts: carts}
	if cfg.Session.Enabled {
		deps.Sessions = session.NewManager(cfg.Session.Secret, cfg.Session.TTL)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	h := storefront.NewHandler(deps, storefront.HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       reg,
		MetricsEnabled: cfg.Metrics.Enabled,
		MetricsToken:   cfg.Metrics.Token,
		ExposeErrors:   !cfg.Production(),
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		CheckoutLimit:  cfg.Checkout.RateLimit,
	})

	log.Info("storefront configured",
		zap.String("environment", string(cfg.Environment)),
		zap.String("catalog_backend", cfg.Catalog.Backend),
		zap.String("cart_backend", cfg.Cart.Backend),
		zap.Bool("sessions", cfg.Session.Enabled),
	)

	err = kit.RunHTTPServer(ctx, cfg.Addr(), h, log, kit.ServerOptions{
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		ShutdownTimeout:   cfg.HTTP.ShutdownTimeout,
	})
	if err != nil {
		log.Error("http server stopped", zap.Error(err))
	}
}

func openCatalog(ctx context.Context, cfg *config.Config, log *zap.Logger) (catalog.Store, func(), error) {
	if cfg.Catalog.Backend == config.BackendPostgres {
		db, err := catalog.OpenPostgres(ctx, cfg.Catalog.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		log.Info("catalog: postgres")
		return catalog.NewPostgresStore(db), func() { _ = db.Close() }, nil
	}

	if cfg.Catalog.File != "" {
		ps, err := catalog.LoadFile(cfg.Catalog.File)
		if err != nil {
			return nil, nil, err
		}
		s, err := catalog.NewMemStore(ps)
		if err != nil {
			return nil, nil, err
		}
		log.Info("catalog: file", zap.String("path", cfg.Catalog.File), zap.Int("products", len(ps)))
		return s, func() {}, nil
	}

	s, err := catalog.NewDefaultStore()
	if err != nil {
		return nil, nil, err
	}
	log.Info("catalog: bundled")
	return s, func() {}, nil
}

func openCarts(ctx context.Context, cfg *config.Config, log *zap.Logger) (cart.Store, func(), error) {
	if cfg.Cart.Backend == config.BackendRedis {
		client, err := cart.OpenRedis(ctx, cfg.Cart.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		log.Info("carts: redis")
		return cart.NewRedisStore(client, cfg.Cart.TTL), func() { _ = client.Close() }, nil
	}

	log.Info("carts: memory")
	return cart.NewMemStore(cfg.Cart.TTL), func() {}, nil
}
