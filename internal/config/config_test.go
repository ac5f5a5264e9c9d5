package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
)

func setEnvWithCleanup(t *testing.T, key string, value string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			os.Setenv(key, prev)
		} else {
			os.Unsetenv(key)
		}
	})
}

func TestLoadConfig_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ServerPort != "8080" {
		t.Fatalf("expected default server port 8080, got %q", cfg.ServerPort)
	}
	if cfg.OpenBankingProvider != "truelayer" {
		t.Fatalf("expected default provider truelayer, got %q", cfg.OpenBankingProvider)
	}
	if cfg.VerificationMode != "simulated" {
		t.Fatalf("expected default verification mode simulated, got %q", cfg.VerificationMode)
	}
	if cfg.ValidationRateLimit != 30 {
		t.Fatalf("expected default rate limit 30, got %d", cfg.ValidationRateLimit)
	}
}

func TestLoadConfig_EnvOverridesDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "OPEN_BANKING_PROVIDER", "yapily")
	setEnvWithCleanup(t, "VERIFICATION_MODE", "live")
	setEnvWithCleanup(t, "SERVER_PORT", "9090")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.OpenBankingProvider != "yapily" {
		t.Fatalf("expected provider yapily, got %q", cfg.OpenBankingProvider)
	}
	if cfg.VerificationMode != "live" {
		t.Fatalf("expected live verification mode, got %q", cfg.VerificationMode)
	}
	if cfg.ServerPort != "9090" {
		t.Fatalf("expected server port 9090, got %q", cfg.ServerPort)
	}
}

func TestLoadConfig_RejectsUnknownVerificationMode(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "VERIFICATION_MODE", "sandbox")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for unknown verification mode")
	}
}
