// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.sabio/config.yaml or ./config.yaml)
//  3. Default values
//
// Security: credentials (knowledge-box token, Gemini API key) are never
// logged and are masked in MarshalJSON. Validation is fail-fast with
// sentinel errors usable via errors.Is().
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Default model and knowledge-box settings.
const (
	// DefaultModelName is the Gemini model used to generate answers.
	DefaultModelName = "gemini-2.5-flash"

	// DefaultVectorset is the knowledge-box vector set used for
	// semantic search.
	DefaultVectorset = "multilingual-2024-05-06"

	// DefaultDownloadTTL is the validity window, in seconds, requested
	// for temporary signed download URLs.
	DefaultDownloadTTL = 3600
)

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
type Config struct {
	// Knowledge-box service connection
	KBBaseURL string `mapstructure:"kb_base_url" json:"kb_base_url"` // e.g. "https://europe-1.rag.example.cloud/api/v1"
	KBID      string `mapstructure:"kb_id" json:"kb_id"`             // knowledge-box identifier
	KBToken   string `mapstructure:"kb_token" json:"kb_token"`       // SENSITIVE: masked in MarshalJSON

	// LLM configuration
	ModelName    string `mapstructure:"model_name" json:"model_name"`
	GeminiAPIKey string `mapstructure:"gemini_api_key" json:"gemini_api_key"` // SENSITIVE: masked in MarshalJSON
	Instructions string `mapstructure:"instructions" json:"instructions"`     // system prompt override

	// Search configuration
	Vectorset   string `mapstructure:"vectorset" json:"vectorset"`
	DownloadTTL int    `mapstructure:"download_ttl" json:"download_ttl"` // seconds

	// Upstream call timeouts
	MetadataTimeout time.Duration `mapstructure:"metadata_timeout" json:"metadata_timeout"` // detail fetch, temporary URL
	SearchTimeout   time.Duration `mapstructure:"search_timeout" json:"search_timeout"`     // search and ask calls
	StreamTimeout   time.Duration `mapstructure:"stream_timeout" json:"stream_timeout"`     // file download relay

	// HTTP server
	ListenAddr  string   `mapstructure:"listen_addr" json:"listen_addr"`
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"`
	TrustProxy  bool     `mapstructure:"trust_proxy" json:"trust_proxy"` // trust X-Real-IP/X-Forwarded-For (behind reverse proxy)
	RateBurst   int      `mapstructure:"rate_burst" json:"rate_burst"`   // per-IP rate limiter burst (0 = default)

	// Tracing configuration (see tracing.go)
	Tracing TracingConfig `mapstructure:"tracing" json:"tracing"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".sabio")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".") // also support current directory

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is not an error; defaults plus
		// environment variables are a complete configuration.
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	viper.SetDefault("model_name", DefaultModelName)
	viper.SetDefault("vectorset", DefaultVectorset)
	viper.SetDefault("download_ttl", DefaultDownloadTTL)

	viper.SetDefault("metadata_timeout", 30*time.Second)
	viper.SetDefault("search_timeout", 60*time.Second)
	viper.SetDefault("stream_timeout", 60*time.Second)

	viper.SetDefault("listen_addr", "127.0.0.1:8080")
	viper.SetDefault("cors_origins", []string{"http://localhost:4200"})
	viper.SetDefault("trust_proxy", false)
	viper.SetDefault("rate_burst", 0)

	viper.SetDefault("tracing.agent_host", "")
	viper.SetDefault("tracing.environment", "dev")
	viper.SetDefault("tracing.service_name", "sabio")
}

// bindEnvVariables binds environment variables explicitly.
// Secrets are only ever supplied through the environment; they have no
// config-file default.
func bindEnvVariables() {
	// Hardcoded keys cannot fail to bind; a panic here is a bug.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("kb_base_url", "KB_BASE_URL")
	mustBind("kb_id", "KB_ID")
	mustBind("kb_token", "KB_TOKEN")

	mustBind("gemini_api_key", "GEMINI_API_KEY")
	mustBind("model_name", "SABIO_MODEL_NAME")

	mustBind("listen_addr", "SABIO_LISTEN_ADDR")
	mustBind("cors_origins", "SABIO_CORS_ORIGINS")
	mustBind("trust_proxy", "SABIO_TRUST_PROXY")
	mustBind("rate_burst", "SABIO_RATE_BURST")

	mustBind("tracing.agent_host", "OTEL_AGENT_HOST")
	mustBind("tracing.environment", "SABIO_ENV")
}

// maskedValue is the placeholder for masked sensitive data.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging. Secrets of 8 chars
// or fewer are fully masked to prevent substring matching; longer secrets
// show the first and last 2 characters for debug utility.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + maskedValue + s[len(s)-2:]
}

// MarshalJSON masks sensitive fields so a Config can be logged safely.
func (c *Config) MarshalJSON() ([]byte, error) {
	type alias Config // avoid recursion
	masked := alias(*c)
	masked.KBToken = maskSecret(c.KBToken)
	masked.GeminiAPIKey = maskSecret(c.GeminiAPIKey)
	return json.Marshal(masked)
}

// TracingConfig configures the optional OTLP trace export.
// An empty AgentHost disables tracing entirely.
type TracingConfig struct {
	AgentHost   string `mapstructure:"agent_host" json:"agent_host"`
	Environment string `mapstructure:"environment" json:"environment"`
	ServiceName string `mapstructure:"service_name" json:"service_name"`
}
