package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	ServerPort              string
	ServerReadHeaderTimeout time.Duration
	ServerWriteTimeout      time.Duration
	ServerIdleTimeout       time.Duration
	RequestTimeout          time.Duration

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// UserJWTSecret and AdminJWTSecret sign tokens for their role only.
	UserJWTSecret  string
	AdminJWTSecret string
	// AdminSecret is the pre-shared value required by admin self-registration.
	AdminSecret string
	TokenTTL    time.Duration
	BcryptCost  int

	TokenRevocation           bool
	RevocationCleanupInterval time.Duration

	CORSOrigins      []string
	RateLimitRPM     int
	AuthRateLimitRPM int
	// TrustedProxies are the peers whose forwarding headers name the client.
	TrustedProxies []netip.Prefix

	LogLevel  slog.Level
	LogFormat string
}

// Load reads the environment (and .env when present). A variable that is set
// but cannot be parsed is an error rather than a silent fallback.
func Load() (*Config, error) {
	_ = godotenv.Load()

	env := &envReader{}
	cfg := &Config{
		ServerPort:                env.str("SERVER_PORT", "8080"),
		ServerReadHeaderTimeout:   env.duration("SERVER_READ_HEADER_TIMEOUT", 10*time.Second),
		ServerWriteTimeout:        env.duration("SERVER_WRITE_TIMEOUT", 30*time.Second),
		ServerIdleTimeout:         env.duration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		RequestTimeout:            env.duration("REQUEST_TIMEOUT", 30*time.Second),
		DatabaseURL:               strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxConns:                int32(env.integer("DB_MAX_CONNS", 10)),
		DBMinConns:                int32(env.integer("DB_MIN_CONNS", 1)),
		UserJWTSecret:             os.Getenv("JWT_SECRET"),
		AdminJWTSecret:            os.Getenv("ADMIN_JWT_SECRET"),
		AdminSecret:               os.Getenv("ADMIN_SECRET"),
		TokenTTL:                  env.duration("TOKEN_TTL", 7*24*time.Hour),
		BcryptCost:                env.integer("BCRYPT_COST", 12),
		TokenRevocation:           env.boolean("TOKEN_REVOCATION", false),
		RevocationCleanupInterval: env.duration("REVOCATION_CLEANUP_INTERVAL", time.Hour),
		CORSOrigins:               splitCSV(env.str("CORS_ORIGINS", "*")),
		RateLimitRPM:              env.integer("RATE_LIMIT_RPM", 100),
		AuthRateLimitRPM:          env.integer("AUTH_RATE_LIMIT_RPM", 10),
		TrustedProxies:            env.prefixes("TRUSTED_PROXIES"),
		LogLevel:                  env.level("LOG_LEVEL", slog.LevelInfo),
		LogFormat:                 strings.ToLower(env.str("LOG_FORMAT", "pretty")),
	}

	if err := errors.Join(env.errs...); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT cannot be empty")
	}

	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if strings.TrimSpace(c.UserJWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if strings.TrimSpace(c.AdminJWTSecret) == "" {
		return fmt.Errorf("ADMIN_JWT_SECRET is required")
	}

	if c.UserJWTSecret == c.AdminJWTSecret {
		return fmt.Errorf("ADMIN_JWT_SECRET must differ from JWT_SECRET")
	}

	if strings.TrimSpace(c.AdminSecret) == "" {
		return fmt.Errorf("ADMIN_SECRET is required")
	}

	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}

	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS/DB_MAX_CONNS are out of range")
	}

	if c.TokenRevocation && c.RevocationCleanupInterval <= 0 {
		return fmt.Errorf("REVOCATION_CLEANUP_INTERVAL must be positive")
	}

	for _, proxy := range c.TrustedProxies {
		if !proxy.IsValid() {
			return fmt.Errorf("TRUSTED_PROXIES contains an invalid prefix")
		}
	}

	if c.LogFormat != "pretty" && c.LogFormat != "json" {
		return fmt.Errorf("LOG_FORMAT must be pretty or json")
	}

	return nil
}

// envReader records every malformed variable so Load can report them together.
type envReader struct {
	errs []error
}

func (e *envReader) lookup(key string) (string, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	return raw, raw != ""
}

func (e *envReader) fail(key string, raw string, err error) {
	e.errs = append(e.errs, fmt.Errorf("%s=%q: %w", key, raw, err))
}

func (e *envReader) str(key string, fallback string) string {
	if raw, ok := e.lookup(key); ok {
		return raw
	}
	return fallback
}

func (e *envReader) integer(key string, fallback int) int {
	raw, ok := e.lookup(key)
	if !ok {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		e.fail(key, raw, errors.New("not an integer"))
		return fallback
	}
	return v
}

func (e *envReader) boolean(key string, fallback bool) bool {
	raw, ok := e.lookup(key)
	if !ok {
		return fallback
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		e.fail(key, raw, errors.New("not a boolean"))
		return fallback
	}
	return v
}

func (e *envReader) duration(key string, fallback time.Duration) time.Duration {
	raw, ok := e.lookup(key)
	if !ok {
		return fallback
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		e.fail(key, raw, errors.New("not a duration"))
		return fallback
	}
	return v
}

func (e *envReader) level(key string, fallback slog.Level) slog.Level {
	raw, ok := e.lookup(key)
	if !ok {
		return fallback
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		e.fail(key, raw, errors.New("not a log level"))
		return fallback
	}
	return level
}

// prefixes accepts single addresses as well as CIDR ranges.
func (e *envReader) prefixes(key string) []netip.Prefix {
	raw, ok := e.lookup(key)
	if !ok {
		return nil
	}

	var out []netip.Prefix
	for _, part := range splitCSV(raw) {
		if prefix, err := netip.ParsePrefix(part); err == nil {
			out = append(out, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(part)
		if err != nil {
			e.fail(key, part, errors.New("not an IP address or CIDR"))
			continue
		}
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}

	return out
}
