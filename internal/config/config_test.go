package config

import (
	"testing"
	"time"

	env "github.com/Netflix/go-env"
)

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadConfigFromEnv(env.EnvSet{"MASTER_SECRET": "x"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Port != 3000 {
		t.Fatalf("expected default port 3000, got %d", cfg.Port)
	}
	if cfg.GinMode != "release" {
		t.Fatalf("expected default gin mode release, got %q", cfg.GinMode)
	}
	if cfg.TokenExpiry != 720*time.Hour {
		t.Fatalf("unexpected default token expiry %v", cfg.TokenExpiry)
	}
	if cfg.DataDir != "" {
		t.Fatalf("expected in-memory default, got %q", cfg.DataDir)
	}
}

func TestLoadConfigFromEnv_MissingSecret(t *testing.T) {
	_, err := LoadConfigFromEnv(env.EnvSet{})
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestLoadConfigFromEnv_Overrides(t *testing.T) {
	cfg, err := LoadConfigFromEnv(env.EnvSet{
		"MASTER_SECRET": "x",
		"PORT":          "1234",
		"TOKEN_EXPIRY":  "1h",
		"DATA_DIR":      "/tmp/chat",
		"LOG_DEBUG":     "true",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Port != 1234 || cfg.TokenExpiry != time.Hour || cfg.DataDir != "/tmp/chat" || !cfg.LogDebug {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadConfigFromEnv_InvalidPort(t *testing.T) {
	if _, err := LoadConfigFromEnv(env.EnvSet{"MASTER_SECRET": "x", "PORT": "70000"}); err == nil {
		t.Fatalf("expected error for out of range port")
	}
	if _, err := LoadConfigFromEnv(env.EnvSet{"MASTER_SECRET": "x", "PORT": "abc"}); err == nil {
		t.Fatalf("expected error for non-numeric port")
	}
}

func TestLoadConfigFromEnv_HalfTLS(t *testing.T) {
	_, err := LoadConfigFromEnv(env.EnvSet{"MASTER_SECRET": "x", "TLS_CERT_FILE": "cert.pem"})
	if err == nil {
		t.Fatalf("expected error when only the cert is set")
	}
}

func TestLoadClientConfigFromEnv(t *testing.T) {
	cfg, err := LoadClientConfigFromEnv(env.EnvSet{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.BaseURL != "http://localhost:3000" || cfg.PollInterval != 7*time.Second || cfg.HTTPTimeout != 10*time.Second {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}

	cfg, err = LoadClientConfigFromEnv(env.EnvSet{"CHAT_BASE_URL": "https://chat.example/", "CHAT_POLL_INTERVAL": "2s"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.BaseURL != "https://chat.example" || cfg.PollInterval != 2*time.Second {
		t.Fatalf("unexpected overrides: %+v", cfg)
	}

	if _, err := LoadClientConfigFromEnv(env.EnvSet{"CHAT_POLL_INTERVAL": "0s"}); err == nil {
		t.Fatalf("expected error for zero poll interval")
	}
}
