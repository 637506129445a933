package config

import "testing"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	t.Setenv("MAX_BODY_BYTES", "")
	t.Setenv("OTEL_ENABLED", "")

	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("want port 8080, got %s", cfg.Port)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Errorf("want [*], got %v", cfg.CORSAllowedOrigins)
	}
	if cfg.MaxBodyBytes != 1<<20 {
		t.Errorf("want 1MiB, got %d", cfg.MaxBodyBytes)
	}
	if cfg.OtelEnabled {
		t.Error("want otel disabled by default")
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_SAMPLING_RATE", "0.25")
	t.Setenv("JWT_ISSUER", "issuer-a")

	cfg := Load()

	if cfg.Port != "9090" {
		t.Errorf("want port 9090, got %s", cfg.Port)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Errorf("unexpected origins %v", cfg.CORSAllowedOrigins)
	}
	if !cfg.OtelEnabled {
		t.Error("want otel enabled")
	}
	if cfg.OtelSamplingRate != 0.25 {
		t.Errorf("want 0.25, got %v", cfg.OtelSamplingRate)
	}
	if cfg.JWTIssuer != "issuer-a" {
		t.Errorf("want issuer-a, got %s", cfg.JWTIssuer)
	}
}
