// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP API listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// HealthGRPCAddr is the address of the gRPC health service; empty disables it.
	HealthGRPCAddr string `mapstructure:"HEALTH_GRPC_ADDR"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
	// Debug enables debug level logging.
	Debug bool `mapstructure:"DEBUG"`

	// Store selects the user/audit backend: "postgres" or "memory".
	Store string `mapstructure:"STORE"`
	// SessionStore overrides the session backend; "redis" or empty to follow Store.
	SessionStore string `mapstructure:"SESSION_STORE"`

	// DatabaseURL is the Postgres DSN. Required when Store is postgres.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`
	// AutoMigrate runs pending migrations at startup.
	AutoMigrate bool `mapstructure:"AUTO_MIGRATE"`

	RedisAddr      string `mapstructure:"REDIS_ADDR"`
	RedisPassword  string `mapstructure:"REDIS_PASSWORD"`
	RedisDB        int    `mapstructure:"REDIS_DB"`
	RedisKeyPrefix string `mapstructure:"REDIS_KEY_PREFIX"`

	// JWTSecret is the HS256 shared secret. Ignored when JWT_PRIVATE_KEY is set.
	JWTSecret string `mapstructure:"JWT_SECRET"`
	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file; used with JWT_PUBLIC_KEY for RS256/ES256.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file; used with JWT_PRIVATE_KEY.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	JWTIssuer    string `mapstructure:"JWT_ISSUER"`
	JWTAudience  string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the access token lifetime (e.g. "20m").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// SessionTTLRaw is the session (and refresh token) lifetime (e.g. "72h").
	SessionTTLRaw string `mapstructure:"SESSION_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// DefaultRole is assigned to every newly registered user.
	DefaultRole string `mapstructure:"DEFAULT_ROLE"`
	// RBACRulesFile is an optional YAML file overriding the built-in operation rules.
	RBACRulesFile string `mapstructure:"RBAC_RULES_FILE"`

	// CORSOrigins is a comma-separated list of allowed browser origins.
	CORSOrigins string `mapstructure:"CORS_ORIGINS"`
	// TrustedProxies is a comma-separated list of proxy IPs or CIDRs whose forwarding headers are believed.
	// Empty means the client IP is always the TCP peer.
	TrustedProxies string `mapstructure:"TRUSTED_PROXIES"`
	// CookieSecure sets the Secure attribute on the refresh cookie.
	CookieSecure bool `mapstructure:"COOKIE_SECURE"`
	// CookieDomain is the Domain attribute of the refresh cookie; empty means host-only.
	CookieDomain       string `mapstructure:"COOKIE_DOMAIN"`
	LoginRatePerMinute int    `mapstructure:"LOGIN_RATE_PER_MINUTE"`
	LoginRateBurst     int    `mapstructure:"LOGIN_RATE_BURST"`

	// OTelEndpoint is the OTLP gRPC collector endpoint; empty disables export.
	OTelEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelInsecure bool   `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit env file path.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("HEALTH_GRPC_ADDR", ":8081")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("DEBUG", false)
	v.SetDefault("STORE", StorePostgres)
	v.SetDefault("SESSION_STORE", "")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("AUTO_MIGRATE", false)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_KEY_PREFIX", "mentorhub:")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_PRIVATE_KEY", "")
	v.SetDefault("JWT_PUBLIC_KEY", "")
	v.SetDefault("JWT_ISSUER", "mentorhub-auth")
	v.SetDefault("JWT_AUDIENCE", "mentorhub-api")
	v.SetDefault("JWT_ACCESS_TTL", "20m")
	v.SetDefault("SESSION_TTL", "72h")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("DEFAULT_ROLE", "User")
	v.SetDefault("RBAC_RULES_FILE", "")
	v.SetDefault("CORS_ORIGINS", "")
	v.SetDefault("TRUSTED_PROXIES", "")
	v.SetDefault("COOKIE_SECURE", true)
	v.SetDefault("COOKIE_DOMAIN", "")
	v.SetDefault("LOGIN_RATE_PER_MINUTE", 10)
	v.SetDefault("LOGIN_RATE_BURST", 5)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPAddr == "" {
		return errors.New("config: HTTP_ADDR must be set")
	}
	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL must be set when STORE=postgres")
		}
	default:
		return errors.New("config: STORE must be memory or postgres")
	}
	if c.SessionStore != "" && c.SessionStore != StoreRedis {
		return errors.New("config: SESSION_STORE must be empty or redis")
	}
	if c.SessionStore == StoreRedis && c.RedisAddr == "" {
		return errors.New("config: REDIS_ADDR must be set when SESSION_STORE=redis")
	}
	if c.JWTSecret == "" && (c.JWTPrivateKey == "" || c.JWTPublicKey == "") {
		return errors.New("config: JWT_SECRET or JWT_PRIVATE_KEY and JWT_PUBLIC_KEY must be set")
	}
	if c.JWTSecret != "" && c.Env == "production" && len(c.JWTSecret) < 32 {
		return errors.New("config: JWT_SECRET must be at least 32 bytes when APP_ENV=production")
	}
	if c.BcryptCost == 0 {
		c.BcryptCost = 12
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	if strings.TrimSpace(c.DefaultRole) == "" {
		return errors.New("config: DEFAULT_ROLE must be set")
	}
	if !c.CookieSecure && c.Env == "production" {
		return errors.New("config: COOKIE_SECURE must not be false when APP_ENV=production")
	}
	if c.Env == "production" {
		origins := c.CORSOriginList()
		if len(origins) == 0 || slices.Contains(origins, "*") {
			return errors.New("config: CORS_ORIGINS must list explicit origins when APP_ENV=production")
		}
	}
	if _, err := c.TrustedProxyList(); err != nil {
		return err
	}
	return nil
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 20m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTAccessTTL)
	if err != nil || d <= 0 {
		return 20 * time.Minute
	}
	return d
}

// SessionTTL parses SessionTTLRaw as a time.Duration. Returns 72h if unset or invalid.
func (c *Config) SessionTTL() time.Duration {
	d, err := time.ParseDuration(c.SessionTTLRaw)
	if err != nil || d <= 0 {
		return 72 * time.Hour
	}
	return d
}

// CORSOriginList returns allowed origins from the comma-separated config.
func (c *Config) CORSOriginList() []string {
	return splitList(c.CORSOrigins)
}

// TrustedProxyList parses TrustedProxies. A bare address becomes a single-host prefix.
func (c *Config) TrustedProxyList() ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, s := range splitList(c.TrustedProxies) {
		if strings.Contains(s, "/") {
			p, err := netip.ParsePrefix(s)
			if err != nil {
				return nil, fmt.Errorf("config: TRUSTED_PROXIES entry %q is not an IP or CIDR", s)
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(s)
		if err != nil {
			return nil, fmt.Errorf("config: TRUSTED_PROXIES entry %q is not an IP or CIDR", s)
		}
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

// SessionBackend returns the effective session backend.
func (c *Config) SessionBackend() string {
	if c.SessionStore != "" {
		return c.SessionStore
	}
	return c.Store
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
