package config

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		KBBaseURL:       "https://europe-1.rag.example.cloud/api/v1",
		KBID:            "kb-123",
		KBToken:         "secret-service-token-value",
		ModelName:       DefaultModelName,
		GeminiAPIKey:    "gemini-key-value-long-enough",
		Vectorset:       DefaultVectorset,
		DownloadTTL:     DefaultDownloadTTL,
		MetadataTimeout: 30 * time.Second,
		SearchTimeout:   60 * time.Second,
		StreamTimeout:   60 * time.Second,
		ListenAddr:      "127.0.0.1:8080",
	}
}

func TestValidateOK(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestValidateNil(t *testing.T) {
	var cfg *Config
	if err := cfg.Validate(); !errors.Is(err, ErrConfigNil) {
		t.Fatalf("Validate() error = %v, want %v", err, ErrConfigNil)
	}
}

func TestValidateSentinels(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"missing base url", func(c *Config) { c.KBBaseURL = "" }, ErrMissingKBBaseURL},
		{"base url without scheme", func(c *Config) { c.KBBaseURL = "example.com/api" }, ErrInvalidKBBaseURL},
		{"base url bad scheme", func(c *Config) { c.KBBaseURL = "ftp://example.com" }, ErrInvalidKBBaseURL},
		{"missing kb id", func(c *Config) { c.KBID = "" }, ErrMissingKBID},
		{"missing token", func(c *Config) { c.KBToken = "" }, ErrMissingKBToken},
		{"missing api key", func(c *Config) { c.GeminiAPIKey = "" }, ErrMissingAPIKey},
		{"blank model name", func(c *Config) { c.ModelName = "   " }, ErrInvalidModelName},
		{"ttl too short", func(c *Config) { c.DownloadTTL = 59 }, ErrInvalidDownloadTTL},
		{"ttl too long", func(c *Config) { c.DownloadTTL = 86401 }, ErrInvalidDownloadTTL},
		{"zero metadata timeout", func(c *Config) { c.MetadataTimeout = 0 }, ErrInvalidTimeout},
		{"negative search timeout", func(c *Config) { c.SearchTimeout = -time.Second }, ErrInvalidTimeout},
		{"zero stream timeout", func(c *Config) { c.StreamTimeout = 0 }, ErrInvalidTimeout},
		{"empty listen addr", func(c *Config) { c.ListenAddr = "" }, ErrInvalidListenAddr},
	}

	for _, tt := range tests {
		cfg := validConfig()
		tt.mutate(cfg)
		if err := cfg.Validate(); !errors.Is(err, tt.want) {
			t.Errorf("%s: Validate() error = %v, want %v", tt.name, err, tt.want)
		}
	}
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"short", maskedValue},
		{"12345678", maskedValue},
		{"abcdefghijkl", "ab" + maskedValue + "kl"},
	}
	for _, tt := range tests {
		if got := maskSecret(tt.in); got != tt.want {
			t.Errorf("maskSecret(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMarshalJSONMasksSecrets(t *testing.T) {
	cfg := validConfig()
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	out := string(data)
	if strings.Contains(out, cfg.KBToken) {
		t.Error("serialized config contains the raw service token")
	}
	if strings.Contains(out, cfg.GeminiAPIKey) {
		t.Error("serialized config contains the raw API key")
	}
	if !strings.Contains(out, maskedValue) {
		t.Error("serialized config carries no masked placeholder")
	}
	// Non-sensitive fields pass through untouched.
	if !strings.Contains(out, cfg.KBBaseURL) {
		t.Error("serialized config lost the base URL")
	}
}
