package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.AppEnv != "development" {
		t.Errorf("AppEnv = %q, want development", cfg.AppEnv)
	}
	if cfg.CreditCost != 5 {
		t.Errorf("CreditCost = %d, want 5", cfg.CreditCost)
	}
	if cfg.SignupCredits != 100 {
		t.Errorf("SignupCredits = %d, want 100", cfg.SignupCredits)
	}
	if cfg.RefundOnFailure {
		t.Error("RefundOnFailure should default to false")
	}
	if cfg.ProviderTimeout != 120*time.Second {
		t.Errorf("ProviderTimeout = %v, want 120s", cfg.ProviderTimeout)
	}
}

func TestLoadConfigRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("LoadConfig() should fail without JWT_SECRET")
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("CREDIT_COST", "10")
	t.Setenv("REFUND_ON_FAILURE", "true")
	t.Setenv("PROVIDER_TIMEOUT_SECONDS", "5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.CreditCost != 10 {
		t.Errorf("CreditCost = %d, want 10", cfg.CreditCost)
	}
	if !cfg.RefundOnFailure {
		t.Error("RefundOnFailure should be true")
	}
	if cfg.ProviderTimeout != 5*time.Second {
		t.Errorf("ProviderTimeout = %v, want 5s", cfg.ProviderTimeout)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[0] != "https://a.example" {
		t.Errorf("CORSAllowedOrigins = %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadConfigRejectsNonPositiveCost(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("CREDIT_COST", "0")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("LoadConfig() should reject CREDIT_COST=0")
	}
}
