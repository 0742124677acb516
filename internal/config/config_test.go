package config

import (
	"strings"
	"testing"
	"time"
)

// clearEnv unsets the variables a test might inherit from the machine.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "GIN_MODE", "PRODUCTION", "LOG_LEVEL", "LOG_PRETTY",
		"SWAGGER_ENABLED", "API_BASE_PATH", "DB_PATH", "MAX_MESSAGE_RUNES",
		"JWT_SECRET", "TOKEN_TTL", "AUTH_COOKIE_NAME", "AUTH_COOKIE_DOMAIN",
		"AUTH_COOKIE_SECURE", "AUTH_COOKIE_SAMESITE",
		"OPENAI_API_KEY", "OPENAI_BASE_URL", "OPENAI_MODEL", "COMPLETION_TIMEOUT",
		"RATE_RPS", "RATE_BURST", "CORS_ALLOWED_ORIGINS",
		"ENABLE_HSTS", "HSTS_MAX_AGE", "IDEMPOTENCY_TTL", "OTEL_ENABLED",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != "8080" {
		t.Fatalf("Port = %q", cfg.Port)
	}
	if cfg.APIBasePath != "/api/v1" {
		t.Fatalf("APIBasePath = %q", cfg.APIBasePath)
	}
	if cfg.Auth.CookieName != "auth_token" || cfg.Auth.SameSite != "strict" {
		t.Fatalf("auth defaults: %+v", cfg.Auth)
	}
	if cfg.Auth.TokenTTL != 7*24*time.Hour {
		t.Fatalf("TokenTTL = %v", cfg.Auth.TokenTTL)
	}
	if cfg.LLM.Model != "gpt-4o-mini" {
		t.Fatalf("Model = %q", cfg.LLM.Model)
	}
	if cfg.MaxMessageRunes != 4000 {
		t.Fatalf("MaxMessageRunes = %d", cfg.MaxMessageRunes)
	}
	// Write timeout must comfortably cover the completion ceiling.
	if cfg.WriteTimeout < cfg.LLM.Timeout {
		t.Fatalf("WriteTimeout %v < completion timeout %v", cfg.WriteTimeout, cfg.LLM.Timeout)
	}
}

func TestLoad_MissingJWTSecret(t *testing.T) {
	clearEnv(t)

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Fatalf("expected JWT_SECRET error, got %v", err)
	}
}

func TestLoad_SameSiteNoneRequiresSecure(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("AUTH_COOKIE_SAMESITE", "none")
	t.Setenv("AUTH_COOKIE_SECURE", "false")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for SameSite=None without Secure")
	}

	t.Setenv("AUTH_COOKIE_SECURE", "true")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load with secure cookie: %v", err)
	}
	if !cfg.Auth.CookieSecure {
		t.Fatalf("expected Secure cookie, got %+v", cfg.Auth)
	}
}

func TestLoad_ProductionHardensCookie(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("PRODUCTION", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Production || !cfg.Auth.CookieSecure {
		t.Fatalf("production must default the cookie to Secure: %+v", cfg.Auth)
	}
}

func TestLoad_BasePathNormalized(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("API_BASE_PATH", "api/v2/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIBasePath != "/api/v2" {
		t.Fatalf("APIBasePath = %q", cfg.APIBasePath)
	}
}
