package config

import (
	"os"
	"reflect"
	"strings"
	"testing"
	"time"
)

// requiredEnv sets the minimum environment for a valid Load().
func requiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("AUTH_JWKS_URL", "https://auth.example/.well-known/jwks.json")
}

// --- MustLoad ---

func TestMustLoad_PanicsOnInvalidConfig(t *testing.T) {
	requiredEnv(t)
	t.Setenv("LOG_LEVEL", "verbose") // invalid -> Load() error
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("MustLoad should panic on invalid config")
		}
	}()
	_ = MustLoad()
}

func TestMustLoad_Success_NoPanic(t *testing.T) {
	requiredEnv(t)
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("MustLoad should not panic on valid defaults, got: %v", r)
		}
	}()
	cfg := MustLoad()
	if cfg.APIBasePath == "" {
		t.Fatalf("unexpected empty config from MustLoad")
	}
}

// --- Load success + normalization + parsing ---

func TestLoad_Success_DefaultsAndOverrides(t *testing.T) {
	requiredEnv(t)
	t.Setenv("PORT", "8088")
	t.Setenv("READ_TIMEOUT", "2s")
	t.Setenv("READ_HEADER_TIMEOUT", "1s")
	t.Setenv("WRITE_TIMEOUT", "3s")
	t.Setenv("IDLE_TIMEOUT", "4s")
	t.Setenv("MAX_HEADER_BYTES", "8192")
	t.Setenv("GIN_MODE", "weird") // will normalize to "release"

	t.Setenv("LOG_LEVEL", "warning") // will normalize to "warn"
	t.Setenv("LOG_PRETTY", "yes")
	t.Setenv("SWAGGER_ENABLED", "on")
	t.Setenv("API_BASE_PATH", "functions/v1/")

	t.Setenv("DB_DRIVER", "pg")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/pp?sslmode=disable")

	t.Setenv("RATE_RPS", "x")      // -> default 2.0
	t.Setenv("RATE_BURST", "nope") // -> default 5

	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.com , , http://b ")
	t.Setenv("ENABLE_HSTS", "TRUE")
	t.Setenv("HSTS_MAX_AGE", "24h")
	t.Setenv("IDEMPOTENCY_TTL", "48h")

	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_abc")
	t.Setenv("FRONTEND_URL", "https://promptpolish.app/")
	t.Setenv("GROQ_API_KEY", "gsk_1")
	t.Setenv("GROQ_MODEL", "llama-3.1-8b-instant")
	t.Setenv("GROQ_TEMPERATURE", "0.2")
	t.Setenv("AUTH_ISSUER", "https://proj.supabase.co/auth/v1")
	t.Setenv("AUTH_DISABLED", "true") // ignored in release mode
	t.Setenv("AD_REWARD_CREDITS", "5")
	t.Setenv("AD_REWARD_COOLDOWN", "1m")

	t.Setenv("OTEL_ENABLED", "1")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "otel:4317")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "0")
	t.Setenv("OTEL_SERVICE_NAME", "svc")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.75")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != "8088" ||
		cfg.ReadTimeout != 2*time.Second ||
		cfg.ReadHeaderTimeout != 1*time.Second ||
		cfg.WriteTimeout != 3*time.Second ||
		cfg.IdleTimeout != 4*time.Second ||
		cfg.MaxHeaderBytes != 8192 ||
		cfg.GinMode != "release" {
		t.Fatalf("server fields unexpected: %+v", cfg)
	}
	if cfg.LogLevel != "warn" || !cfg.LogPretty || !cfg.SwaggerEnabled || cfg.APIBasePath != "/functions/v1" {
		t.Fatalf("logging/docs unexpected: %+v", cfg)
	}
	if cfg.DB.Driver != "postgres" || !strings.HasPrefix(cfg.DB.DSN, "postgres://") {
		t.Fatalf("db unexpected: %+v", cfg.DB)
	}
	if cfg.RateRPS != 2.0 || cfg.RateBurst != 5 {
		t.Fatalf("rate limiting unexpected: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.CORS.AllowedOrigins, []string{"https://a.com", "http://b"}) {
		t.Fatalf("cors origins unexpected: %#v", cfg.CORS.AllowedOrigins)
	}
	if !cfg.Security.EnableHSTS || cfg.Security.HSTSMaxAge != 24*time.Hour {
		t.Fatalf("security unexpected: %+v", cfg.Security)
	}
	if cfg.IdempotencyTTL != 48*time.Hour {
		t.Fatalf("idempotency ttl unexpected: %v", cfg.IdempotencyTTL)
	}
	if cfg.Stripe.SecretKey != "sk_test_123" || cfg.Stripe.WebhookSecret != "whsec_abc" || cfg.Stripe.FrontendURL != "https://promptpolish.app" {
		t.Fatalf("stripe unexpected: %+v", cfg.Stripe)
	}
	if cfg.Groq.APIKey != "gsk_1" || cfg.Groq.Model != "llama-3.1-8b-instant" || cfg.Groq.Temperature != 0.2 || cfg.Groq.MaxTokens != 1000 {
		t.Fatalf("groq unexpected: %+v", cfg.Groq)
	}
	if cfg.Auth.Disabled {
		t.Fatalf("AUTH_DISABLED must be ignored in release mode")
	}
	if cfg.Auth.Audience != "authenticated" || cfg.Auth.Issuer == "" {
		t.Fatalf("auth unexpected: %+v", cfg.Auth)
	}
	if cfg.Rewards.AdCredits != 5 || cfg.Rewards.AdCooldown != time.Minute {
		t.Fatalf("rewards unexpected: %+v", cfg.Rewards)
	}
	if !cfg.OTEL.Enabled || cfg.OTEL.Endpoint != "otel:4317" || cfg.OTEL.Insecure || cfg.OTEL.ServiceName != "svc" || cfg.OTEL.SampleRatio != 0.75 {
		t.Fatalf("otel unexpected: %+v", cfg.OTEL)
	}
}

func TestLoad_Defaults(t *testing.T) {
	requiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.APIBasePath != "/api/v1" {
		t.Fatalf("API_BASE_PATH default expected '/api/v1', got %q", cfg.APIBasePath)
	}
	if cfg.DB.Driver != "sqlite" || cfg.DB.Path == "" {
		t.Fatalf("db defaults unexpected: %+v", cfg.DB)
	}
	if cfg.Groq.BaseURL != "https://api.groq.com/openai/v1" || cfg.Groq.Model != "llama3-8b-8192" {
		t.Fatalf("groq defaults unexpected: %+v", cfg.Groq)
	}
	if cfg.Groq.MaxTokens != 1000 || cfg.Groq.Temperature != 0.7 {
		t.Fatalf("completion parameters unexpected: %+v", cfg.Groq)
	}
	if cfg.Rewards.AdCredits != 3 || cfg.Rewards.AdCooldown != 30*time.Second {
		t.Fatalf("reward defaults unexpected: %+v", cfg.Rewards)
	}
	if cfg.Stripe.SecretKey != "" {
		t.Fatalf("stripe key must default to empty")
	}
	if cfg.OTEL.Environment != cfg.GinMode {
		t.Fatalf("otel environment should follow gin mode, got %q vs %q", cfg.OTEL.Environment, cfg.GinMode)
	}
}

func TestLoad_AuthDisabledInDebug(t *testing.T) {
	t.Setenv("AUTH_JWKS_URL", "")
	t.Setenv("GIN_MODE", "debug")
	t.Setenv("AUTH_DISABLED", "1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !cfg.Auth.Disabled {
		t.Fatalf("expected auth disabled in debug mode")
	}
}

// --- Load validations (each case triggers exactly one validation error) ---

func TestLoad_ValidationErrors(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"invalid LOG_LEVEL", map[string]string{"LOG_LEVEL": "verbose"}, "LOG_LEVEL"},
		{"empty PORT via spaces", map[string]string{"PORT": "   "}, "PORT must not be empty"},
		{"non-positive timeouts", map[string]string{"READ_TIMEOUT": "0s"}, "timeouts must be positive"},
		{"max header bytes <= 0", map[string]string{"MAX_HEADER_BYTES": "0"}, "MAX_HEADER_BYTES"},
		{"empty DB_PATH", map[string]string{"DB_PATH": "   "}, "DB_PATH must not be empty"},
		{"postgres without dsn", map[string]string{"DB_DRIVER": "postgres"}, "DATABASE_URL"},
		{"unknown driver", map[string]string{"DB_DRIVER": "mongo"}, "DB_DRIVER"},
		{"rate rps negative", map[string]string{"RATE_RPS": "-1"}, "RATE_RPS"},
		{"rate burst < 1", map[string]string{"RATE_BURST": "0"}, "RATE_BURST"},
		{"hsts max age negative", map[string]string{"HSTS_MAX_AGE": "-1s"}, "HSTS_MAX_AGE"},
		{"idempotency ttl non-positive", map[string]string{"IDEMPOTENCY_TTL": "0s"}, "IDEMPOTENCY_TTL"},
		{"max tokens", map[string]string{"GROQ_MAX_TOKENS": "0"}, "GROQ_MAX_TOKENS"},
		{"temperature", map[string]string{"GROQ_TEMPERATURE": "3"}, "GROQ_TEMPERATURE"},
		{"prompt runes", map[string]string{"POLISH_MAX_PROMPT_RUNES": "-1"}, "POLISH_MAX_PROMPT_RUNES"},
		{"missing jwks", map[string]string{"AUTH_JWKS_URL": ""}, "AUTH_JWKS_URL"},
		{"negative reward", map[string]string{"AD_REWARD_CREDITS": "-3"}, "AD_REWARD_CREDITS"},
		{"negative cooldown", map[string]string{"AD_REWARD_COOLDOWN": "-1s"}, "AD_REWARD_COOLDOWN"},
		{"otel sample ratio out of range", map[string]string{"OTEL_TRACES_SAMPLER_ARG": "1.5"}, "OTEL_TRACES_SAMPLER_ARG"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			requiredEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil || !containsErr(err, tc.want) {
				t.Fatalf("expected %s validation error, got: %v", tc.want, err)
			}
		})
	}
}

// --- helpers ---

func TestHelpers_getenv(t *testing.T) {
	t.Setenv("X_EMPTY", "")
	if getenv("X_EMPTY", "d") != "d" {
		t.Fatalf("getenv should fall back to default on empty var")
	}
	t.Setenv("X_SET", "val")
	if getenv("X_SET", "d") != "val" {
		t.Fatalf("getenv should read set value")
	}
}

func TestHelpers_getfloat_getint_getdur(t *testing.T) {
	t.Setenv("F_VALID", "3.14")
	if getfloat("F_VALID", 0) != 3.14 {
		t.Fatalf("getfloat parse failed")
	}
	t.Setenv("F_BAD", "nope")
	if getfloat("F_BAD", 1.23) != 1.23 {
		t.Fatalf("getfloat default on bad parse failed")
	}

	t.Setenv("I_VALID", "42")
	if getint("I_VALID", 0) != 42 {
		t.Fatalf("getint parse failed")
	}
	t.Setenv("I_BAD", "x")
	if getint("I_BAD", 7) != 7 {
		t.Fatalf("getint default on bad parse failed")
	}

	t.Setenv("D_VALID", "150ms")
	if getdur("D_VALID", time.Second) != 150*time.Millisecond {
		t.Fatalf("getdur parse failed")
	}
	t.Setenv("D_BAD", "zzz")
	if getdur("D_BAD", 2*time.Second) != 2*time.Second {
		t.Fatalf("getdur default on bad parse failed")
	}
}

func TestHelpers_getbool(t *testing.T) {
	for i, v := range []string{"1", "true", "TRUE", " yes ", "Y", "on", "On"} {
		k := "B_T_" + string(rune('a'+i))
		t.Setenv(k, v)
		if !getbool(k, false) {
			t.Fatalf("getbool(%q) = false; want true", v)
		}
	}
	for i, v := range []string{"0", "false", "FALSE", " no ", "N", "off", "Off"} {
		k := "B_F_" + string(rune('a'+i))
		t.Setenv(k, v)
		if getbool(k, true) {
			t.Fatalf("getbool(%q) = true; want false", v)
		}
	}
	t.Setenv("B_EMPTY", "")
	if !getbool("B_EMPTY", true) || getbool("B_EMPTY", false) {
		t.Fatalf("getbool default behavior unexpected")
	}
}

func TestHelpers_splitCSV_and_normalizeBasePath(t *testing.T) {
	if out := splitCSV(""); out != nil {
		t.Fatalf("splitCSV empty should return nil")
	}
	if got := splitCSV(" a, ,b ,  c  ,"); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("splitCSV mismatch: got %#v", got)
	}

	if normalizeBasePath("") != "/" {
		t.Fatalf("normalizeBasePath empty -> '/' failed")
	}
	if normalizeBasePath("v1") != "/v1" {
		t.Fatalf("normalizeBasePath missing leading slash failed")
	}
	if normalizeBasePath("/v1/") != "/v1" {
		t.Fatalf("normalizeBasePath trailing slash trim failed")
	}
	if normalizeBasePath(" / ") != "/" {
		t.Fatalf("normalizeBasePath whitespace failed")
	}
}

func TestMain(m *testing.M) {
	for _, k := range []string{"PORT", "GIN_MODE", "AUTH_DISABLED", "DB_DRIVER", "STRIPE_SECRET_KEY", "GROQ_API_KEY", "OTEL_DEPLOYMENT_ENVIRONMENT"} {
		os.Unsetenv(k)
	}
	os.Exit(m.Run())
}

// containsErr reports whether err's message contains the given substring.
func containsErr(err error, want string) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), want)
}
