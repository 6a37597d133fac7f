// Package config provides application configuration loaded from environment
// variables with defaults and validation. The resulting Config is built once
// at process start and handed to every component; nothing else in the module
// reads the environment.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
	Environment string  // OTEL_DEPLOYMENT_ENVIRONMENT (defaults to GIN_MODE)
}

// DBConfig selects the persistence backend.
type DBConfig struct {
	Driver string // sqlite|postgres
	Path   string // SQLite file path
	DSN    string // Postgres DSN (DATABASE_URL)
}

// StripeConfig holds payment processor credentials and redirect settings.
type StripeConfig struct {
	SecretKey     string // STRIPE_SECRET_KEY
	WebhookSecret string // STRIPE_WEBHOOK_SECRET
	// FrontendURL is used for success/cancel redirects when the request
	// carries no Origin header.
	FrontendURL string
	// APIBaseURL overrides the Stripe API endpoint (stripe-mock, tests).
	APIBaseURL string
}

// GroqConfig holds settings for the OpenAI-compatible completion API.
type GroqConfig struct {
	APIKey         string // GROQ_API_KEY
	BaseURL        string
	Model          string
	MaxTokens      int
	Temperature    float32
	MaxPromptRunes int
	Timeout        time.Duration
}

// AuthConfig configures bearer token verification.
type AuthConfig struct {
	JWKSURL  string // AUTH_JWKS_URL
	Issuer   string // AUTH_ISSUER
	Audience string // AUTH_AUDIENCE
	// Disabled injects a fixed local identity. Only honoured in debug mode.
	Disabled bool
}

// RewardsConfig controls promotional credit grants.
type RewardsConfig struct {
	AdCredits  int           // credits granted per watched ad
	AdCooldown time.Duration // minimum gap between two claims by one user
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 45s (covers completion calls)
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	DB DBConfig

	// Rate limiting for cost-bearing routes
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	Stripe  StripeConfig
	Groq    GroqConfig
	Auth    AuthConfig
	Rewards RewardsConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 45*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		DB: DBConfig{
			Driver: strings.ToLower(getenv("DB_DRIVER", "sqlite")),
			Path:   getenv("DB_PATH", "promptpolish.db"),
			DSN:    getenv("DATABASE_URL", ""),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 2.0),
		RateBurst: getint("RATE_BURST", 5),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		Stripe: StripeConfig{
			SecretKey:     getenv("STRIPE_SECRET_KEY", ""),
			WebhookSecret: getenv("STRIPE_WEBHOOK_SECRET", ""),
			FrontendURL:   strings.TrimRight(getenv("FRONTEND_URL", ""), "/"),
			APIBaseURL:    getenv("STRIPE_API_BASE_URL", ""),
		},
		Groq: GroqConfig{
			APIKey:         getenv("GROQ_API_KEY", ""),
			BaseURL:        getenv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
			Model:          getenv("GROQ_MODEL", "llama3-8b-8192"),
			MaxTokens:      getint("GROQ_MAX_TOKENS", 1000),
			Temperature:    float32(getfloat("GROQ_TEMPERATURE", 0.7)),
			MaxPromptRunes: getint("POLISH_MAX_PROMPT_RUNES", 4000),
			Timeout:        getdur("GROQ_TIMEOUT", 30*time.Second),
		},
		Auth: AuthConfig{
			JWKSURL:  getenv("AUTH_JWKS_URL", ""),
			Issuer:   getenv("AUTH_ISSUER", ""),
			Audience: getenv("AUTH_AUDIENCE", "authenticated"),
			Disabled: getbool("AUTH_DISABLED", false),
		},
		Rewards: RewardsConfig{
			AdCredits:  getint("AD_REWARD_CREDITS", 3),
			AdCooldown: getdur("AD_REWARD_COOLDOWN", 30*time.Second),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "promptpolish-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
			Environment: getenv("OTEL_DEPLOYMENT_ENVIRONMENT", ""),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if cfg.OTEL.Environment == "" {
		cfg.OTEL.Environment = cfg.GinMode
	}
	if cfg.DB.Driver == "postgresql" || cfg.DB.Driver == "pg" {
		cfg.DB.Driver = "postgres"
	}
	// The local identity shortcut must never reach production.
	if cfg.GinMode == "release" {
		cfg.Auth.Disabled = false
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	switch cfg.DB.Driver {
	case "sqlite":
		if strings.TrimSpace(cfg.DB.Path) == "" {
			return cfg, errors.New("DB_PATH must not be empty")
		}
	case "postgres":
		if strings.TrimSpace(cfg.DB.DSN) == "" {
			return cfg, errors.New("DATABASE_URL must be set when DB_DRIVER=postgres")
		}
	default:
		return cfg, errors.New("DB_DRIVER must be one of: sqlite, postgres")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.Groq.MaxTokens <= 0 {
		return cfg, errors.New("GROQ_MAX_TOKENS must be > 0")
	}
	if cfg.Groq.Temperature < 0 || cfg.Groq.Temperature > 2 {
		return cfg, errors.New("GROQ_TEMPERATURE must be in [0,2]")
	}
	if cfg.Groq.MaxPromptRunes <= 0 {
		return cfg, errors.New("POLISH_MAX_PROMPT_RUNES must be > 0")
	}
	if cfg.Groq.Timeout <= 0 {
		return cfg, errors.New("GROQ_TIMEOUT must be > 0")
	}
	if !cfg.Auth.Disabled && strings.TrimSpace(cfg.Auth.JWKSURL) == "" {
		return cfg, errors.New("AUTH_JWKS_URL must be set unless AUTH_DISABLED in debug mode")
	}
	if cfg.Rewards.AdCredits < 0 {
		return cfg, errors.New("AD_REWARD_CREDITS must be >= 0")
	}
	if cfg.Rewards.AdCooldown < 0 {
		return cfg, errors.New("AD_REWARD_COOLDOWN must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
