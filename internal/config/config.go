// Package config loads storefront server settings.
//
// Sources are applied in order, later ones winning:
//   - built-in defaults
//   - a YAML file (--config or STOREFRONT_CONFIG)
//   - environment variables
//   - command-line flags
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// minSecretLen matches what HS256 needs to be worth signing with.
const minSecretLen = 32

type Config struct {
	Environment Environment `yaml:"environment"`

	HTTP     HTTPConfig     `yaml:"http"`
	Log      LogConfig      `yaml:"log"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Cart     CartConfig     `yaml:"cart"`
	Session  SessionConfig  `yaml:"session"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Checkout CheckoutConfig `yaml:"checkout"`
}

type HTTPConfig struct {
	Port              string        `yaml:"port"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`

	// AllowedOrigins feeds CORS. Empty disables cross-origin access.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type CatalogConfig struct {
	// Backend is "memory" or "postgres".
	Backend string `yaml:"backend"`

	// File replaces the bundled catalog for the memory backend.
	File        string `yaml:"file"`
	DatabaseURL string `yaml:"database_url"`
}

type CartConfig struct {
	// Backend is "memory" or "redis".
	Backend  string        `yaml:"backend"`
	RedisURL string        `yaml:"redis_url"`
	TTL      time.Duration `yaml:"ttl"`
}

type SessionConfig struct {
	// Enabled gives every client its own cart. When false all clients
	// share one.
	Enabled bool          `yaml:"enabled"`
	Secret  string        `yaml:"secret"`
	TTL     time.Duration `yaml:"ttl"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
}

type CheckoutConfig struct {
	// RateLimit is checkouts per client IP per minute; 0 turns it off.
	RateLimit int `yaml:"rate_limit"`
}

func Default() *Config {
	return &Config{
		Environment: Development,
		HTTP: HTTPConfig{
			Port:              "5000",
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   10 * time.Second,
		},
		Log:     LogConfig{Level: "info"},
		Catalog: CatalogConfig{Backend: BackendMemory},
		Cart: CartConfig{
			Backend: BackendMemory,
			TTL:     7 * 24 * time.Hour,
		},
		Session: SessionConfig{
			Enabled: true,
			TTL:     7 * 24 * time.Hour,
		},
		Metrics:  MetricsConfig{Enabled: true},
		Checkout: CheckoutConfig{RateLimit: 30},
	}
}

func (c *Config) Production() bool { return c.Environment == Production }

func (c *Config) Addr() string { return ":" + c.HTTP.Port }

// LoadFile merges the YAML file at path into c. Keys missing from the file
// keep their current value.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read config")
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.Wrapf(err, "parse %s", path)
	}
	return nil
}

// ApplyEnv overrides settings from environment variables looked up with
// getenv. A DATABASE_URL or REDIS_URL alone switches the matching backend.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	if v := getenv("STOREFRONT_ENV"); v != "" {
		c.Environment = Environment(strings.ToLower(v))
	}
	str("PORT", &c.HTTP.Port)
	str("LOG_LEVEL", &c.Log.Level)

	if v := getenv("DATABASE_URL"); v != "" {
		c.Catalog.DatabaseURL = v
		c.Catalog.Backend = BackendPostgres
	}
	str("CATALOG_BACKEND", &c.Catalog.Backend)
	str("CATALOG_FILE", &c.Catalog.File)

	if v := getenv("REDIS_URL"); v != "" {
		c.Cart.RedisURL = v
		c.Cart.Backend = BackendRedis
	}
	str("CART_BACKEND", &c.Cart.Backend)

	str("SESSION_SECRET", &c.Session.Secret)
	if v := getenv("SESSIONS_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrap(err, "SESSIONS_ENABLED")
		}
		c.Session.Enabled = b
	}

	str("METRICS_TOKEN", &c.Metrics.Token)

	if v := getenv("CORS_ORIGINS"); v != "" {
		c.HTTP.AllowedOrigins = splitList(v)
	}
	if v := getenv("CHECKOUT_RATE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(err, "CHECKOUT_RATE_LIMIT")
		}
		c.Checkout.RateLimit = n
	}
	return nil
}

// BindFlags registers flags that write straight into c, so they must be
// bound after the file and environment have been applied.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.HTTP.Port, "port", c.HTTP.Port, "listen port")
	fs.StringVar(&c.Log.Level, "log-level", c.Log.Level, "log level (debug, info, warn, error)")
	fs.StringVar(&c.Catalog.Backend, "catalog-backend", c.Catalog.Backend, "catalog backend: memory or postgres")
	fs.StringVar(&c.Catalog.File, "catalog-file", c.Catalog.File, "JSON/JSONC catalog replacing the bundled one")
	fs.StringVar(&c.Cart.Backend, "cart-backend", c.Cart.Backend, "cart backend: memory or redis")
	fs.BoolVar(&c.Session.Enabled, "sessions", c.Session.Enabled, "give every client its own cart")
	fs.StringSliceVar(&c.HTTP.AllowedOrigins, "cors-origin", c.HTTP.AllowedOrigins, "allowed CORS origin (repeatable)")
	fs.IntVar(&c.Checkout.RateLimit, "checkout-rate-limit", c.Checkout.RateLimit, "checkouts per IP per minute, 0 to disable")
}

func (c *Config) Validate() error {
	var errs []string

	switch c.Environment {
	case Development, Production:
	default:
		errs = append(errs, "invalid environment: "+string(c.Environment))
	}

	if n, err := strconv.Atoi(c.HTTP.Port); err != nil || n <= 0 || n > 65535 {
		errs = append(errs, "invalid http.port: "+c.HTTP.Port)
	}

	switch c.Catalog.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Catalog.DatabaseURL == "" {
			errs = append(errs, "catalog.database_url is required for the postgres backend")
		}
	default:
		errs = append(errs, "unknown catalog.backend: "+c.Catalog.Backend)
	}

	switch c.Cart.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Cart.RedisURL == "" {
			errs = append(errs, "cart.redis_url is required for the redis backend")
		}
	default:
		errs = append(errs, "unknown cart.backend: "+c.Cart.Backend)
	}

	if c.Session.Enabled {
		if len(c.Session.Secret) < minSecretLen {
			errs = append(errs, "session.secret must be at least 32 chars")
		}
		if c.Session.TTL <= 0 {
			errs = append(errs, "session.ttl must be positive")
		}
	}

	if c.Metrics.Enabled && c.Production() && c.Metrics.Token == "" {
		errs = append(errs, "metrics.token is required in production")
	}
	if c.Checkout.RateLimit < 0 {
		errs = append(errs, "checkout.rate_limit must not be negative")
	}

	if len(errs) > 0 {
		return errors.New("invalid config: " + strings.Join(errs, "; "))
	}
	return nil
}

// Load builds the server configuration from every source. args are the
// command-line arguments without the program name.
func Load(args []string, getenv func(string) string) (*Config, error) {
	cfg := Default()

	path := getenv("STOREFRONT_CONFIG")
	if p, ok := configFlag(args); ok {
		path = p
	}

	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(getenv); err != nil {
		return nil, err
	}

	fs := pflag.NewFlagSet("storefront", pflag.ContinueOnError)
	fs.String("config", path, "YAML config file")
	cfg.BindFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// configFlag finds --config ahead of the full flag parse, which has to
// wait until the file has been read.
func configFlag(args []string) (string, bool) {
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			break
		}
		if v, ok := strings.CutPrefix(a, "--config="); ok {
			return v, true
		}
		if a == "--config" && i+1 < len(args) {
			return args[i+1], true
		}
	}
	return "", false
}
