// Package config reads process configuration from the environment.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr       string
	DBDSN      string
	DBTimeout  time.Duration
	EnableHSTS bool

	RedisAddr        string
	MetadataCacheTTL time.Duration

	ProviderTimeout    time.Duration
	ProviderRPS        int
	ProviderMaxRetries int
	UserAgent          string
	GoogleBooksAPIKey  string

	PriceVendors        []string
	PriceScraperEnabled bool
	RefreshInterval     time.Duration
	RefreshMaxAge       time.Duration

	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
	MaxBodyBytes       int64

	LogLevel  slog.Level
	LogFormat string
}

// LoadEnvFiles reads .env and .env.local into the environment. Variables that
// are already set win.
func LoadEnvFiles() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")
}

// Load builds a Config from the environment. Malformed values are reported
// rather than silently replaced by defaults.
func Load() (Config, error) {
	p := &parser{}
	cfg := Config{
		Addr:       getEnv("APP_ADDR", ":8080"),
		DBDSN:      os.Getenv("DB_DSN"),
		DBTimeout:  p.duration("DB_TIMEOUT", 3*time.Second),
		EnableHSTS: p.boolean("ENABLE_HSTS", false),

		RedisAddr:        os.Getenv("REDIS_ADDR"),
		MetadataCacheTTL: p.duration("METADATA_CACHE_TTL", 7*24*time.Hour),

		ProviderTimeout:    p.duration("PROVIDER_TIMEOUT", 5*time.Second),
		ProviderRPS:        p.integer("PROVIDER_RPS", 5),
		ProviderMaxRetries: p.integer("PROVIDER_MAX_RETRIES", 1),
		UserAgent:          getEnv("USER_AGENT", "bookresale/1.0"),
		GoogleBooksAPIKey:  os.Getenv("GOOGLE_BOOKS_API_KEY"),

		PriceVendors:        splitList(os.Getenv("PRICE_VENDORS")),
		PriceScraperEnabled: p.boolean("PRICE_SCRAPER_ENABLED", false),
		RefreshInterval:     p.duration("PRICE_REFRESH_INTERVAL", 0),
		RefreshMaxAge:       p.duration("PRICE_REFRESH_MAX_AGE", 24*time.Hour),

		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		RateLimitRPS:       p.float("RATE_LIMIT_RPS", 10),
		RateLimitBurst:     p.integer("RATE_LIMIT_BURST", 20),
		MaxBodyBytes:       int64(p.integer("MAX_BODY_BYTES", 1<<20)),

		LogLevel:  p.level("LOG_LEVEL", slog.LevelInfo),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}
	if cfg.ProviderTimeout <= 0 {
		p.fail("PROVIDER_TIMEOUT", "must be positive")
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		p.fail("LOG_FORMAT", "must be text or json")
	}
	if p.err != nil {
		return Config{}, p.err
	}
	return cfg, nil
}

// NewLogger builds the process logger for the configured level and format.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
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

// parser keeps the first malformed variable so Load can report it.
type parser struct {
	err error
}

func (p *parser) fail(key, msg string) {
	if p.err == nil {
		p.err = fmt.Errorf("config: %s %s", key, msg)
	}
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, fmt.Sprintf("is not a duration: %q", v))
		return def
	}
	return d
}

func (p *parser) integer(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, fmt.Sprintf("is not an integer: %q", v))
		return def
	}
	return n
}

func (p *parser) float(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, fmt.Sprintf("is not a number: %q", v))
		return def
	}
	return f
}

func (p *parser) boolean(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, fmt.Sprintf("is not a boolean: %q", v))
		return def
	}
	return b
}

func (p *parser) level(key string, def slog.Level) slog.Level {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(v)); err != nil {
		p.fail(key, fmt.Sprintf("is not a log level: %q", v))
		return def
	}
	return l
}
