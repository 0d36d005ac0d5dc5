package config

import (
	"os"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Assistants.URL == "" {
		t.Error("Assistants URL should not be empty")
	}
	if cfg.Assistants.Model == "" {
		t.Error("Assistants Model should not be empty")
	}
	if cfg.Assistants.NameScope == "" {
		t.Error("Assistants NameScope should not be empty")
	}

	if cfg.Speech.Speed < 0.25 || cfg.Speech.Speed > 4.0 {
		t.Error("Speech Speed default should be within clamp range")
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		t.Error("Server Port should be valid")
	}
	if cfg.Server.Host == "" {
		t.Error("Server Host should not be empty")
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}

	cfg.Server.Port = 0
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid port")
	}
	if !strings.Contains(err.Error(), "port") {
		t.Errorf("error should mention port: %v", err)
	}

	cfg = DefaultConfig()
	cfg.Assistants.URL = "not a url"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for invalid assistants URL")
	}

	cfg = DefaultConfig()
	cfg.Speech.Speed = 9
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for out-of-range speed")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ADVISIM_CONFIG", "/nonexistent/config.json")
	t.Setenv("ADVISIM_ASSISTANTS_URL", "http://assistants.test/v1")
	t.Setenv("ADVISIM_ASSISTANTS_MODEL", "test-model")
	t.Setenv("ADVISIM_SERVER_PORT", "9090")
	t.Setenv("ADVISIM_CORS_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("ADVISIM_SPEECH_SPEED", "1.5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Assistants.URL != "http://assistants.test/v1" {
		t.Errorf("assistants URL override not applied: %s", cfg.Assistants.URL)
	}
	if cfg.Assistants.Model != "test-model" {
		t.Errorf("model override not applied: %s", cfg.Assistants.Model)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port override not applied: %d", cfg.Server.Port)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "http://b.test" {
		t.Errorf("cors override not applied: %v", cfg.Server.CORSOrigins)
	}
	if cfg.Speech.Speed != 1.5 {
		t.Errorf("speed override not applied: %v", cfg.Speech.Speed)
	}
}

func TestEnvIntIgnoresInvalid(t *testing.T) {
	t.Setenv("ADVISIM_TEST_INT", "not-a-number")
	target := 42
	envInt("ADVISIM_TEST_INT", &target)
	if target != 42 {
		t.Errorf("invalid int should leave target unchanged, got %d", target)
	}
	os.Unsetenv("ADVISIM_TEST_INT")
}
