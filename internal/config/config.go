package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrMissingSecretCode is fatal: the server must not start without a code to reveal.
var ErrMissingSecretCode = errors.New("SECRET_CODE is required")

type Config struct {
	Port  string
	Env   string
	Debug bool

	RedisURL  string
	RedisPass string
	RedisDB   int

	DatabaseURL string

	SecretCode string

	RecaptchaSecret    string
	RecaptchaVerifyURL string

	AdminJWTSecret string

	MarketPollInterval time.Duration
	TokenMint          string
	PriceAPIURL        string
	SolanaRPCURL       string

	RequireFullReveal bool
	RequestTimeout    time.Duration

	IPRateRPS   int
	IPRateBurst int

	// TrustedProxies are the reverse proxies whose X-Forwarded-For is
	// believed when resolving the client IP. Empty trusts none.
	TrustedProxies []string
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:  getenv("PORT", "8080"),
		Env:   getenv("ENV", "development"),
		Debug: getenvBool("DEBUG", false),

		RedisURL:  getenv("REDIS_URL", "localhost:6379"),
		RedisPass: os.Getenv("REDIS_PASSWORD"),
		RedisDB:   getenvInt("REDIS_DB", 0),

		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),

		SecretCode: os.Getenv("SECRET_CODE"),

		RecaptchaSecret:    os.Getenv("RECAPTCHA_SECRET_KEY"),
		RecaptchaVerifyURL: getenv("RECAPTCHA_VERIFY_URL", "https://www.google.com/recaptcha/api/siteverify"),

		AdminJWTSecret: os.Getenv("ADMIN_JWT_SECRET"),

		MarketPollInterval: getenvDuration("MARKET_POLL_INTERVAL", 30*time.Second),
		TokenMint:          getenv("TOKEN_MINT", "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"),
		PriceAPIURL:        getenv("PRICE_API_URL", "https://api-v3.raydium.io"),
		SolanaRPCURL:       getenv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com"),

		RequireFullReveal: getenvBool("REQUIRE_FULL_REVEAL", false),
		RequestTimeout:    getenvDuration("REQUEST_TIMEOUT", 5*time.Second),

		IPRateRPS:   getenvInt("IP_RATE_RPS", 2),
		IPRateBurst: getenvInt("IP_RATE_BURST", 5),

		TrustedProxies: getenvList("TRUSTED_PROXIES", []string{"127.0.0.1", "::1"}),
	}

	if cfg.SecretCode == "" {
		return nil, ErrMissingSecretCode
	}

	if err := validateTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}

	if cfg.DatabaseURL != "" {
		if err := validateDatabaseURL(cfg.DatabaseURL); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// DebugString returns a printable configuration summary with secrets masked.
func (c *Config) DebugString() string {
	return fmt.Sprintf(
		"env=%s port=%s trusted_proxies=%s redis=%s db=%s poll=%s mint=%s require_full_reveal=%t captcha_configured=%t admin_enabled=%t",
		c.Env,
		c.Port,
		strings.Join(c.TrustedProxies, ","),
		c.RedisURL,
		maskDSN(c.DatabaseURL),
		c.MarketPollInterval,
		c.TokenMint,
		c.RequireFullReveal,
		c.RecaptchaSecret != "",
		c.AdminJWTSecret != "",
	)
}

func validateTrustedProxies(proxies []string) error {
	for _, p := range proxies {
		if net.ParseIP(p) != nil {
			continue
		}
		if _, _, err := net.ParseCIDR(p); err != nil {
			return fmt.Errorf("TRUSTED_PROXIES: %q is not an IP or CIDR", p)
		}
	}
	return nil
}

func validateDatabaseURL(databaseURL string) error {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return fmt.Errorf("invalid DATABASE_URL: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "postgres", "postgresql":
		return nil
	default:
		return fmt.Errorf("unsupported DATABASE_URL scheme: %s", u.Scheme)
	}
}

func maskDSN(dsn string) string {
	if dsn == "" {
		return ""
	}
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" {
		return "***"
	}
	if u.User != nil {
		u.User = url.User(u.User.Username())
	}
	return u.String()
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

// getenvList splits a comma separated value. "none" yields an empty list.
func getenvList(key string, def []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if v == "none" {
		return []string{}
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
