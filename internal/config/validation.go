package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Sentinel errors for configuration validation.
// Check with errors.Is(); wrapped errors carry field context.
var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingKBBaseURL indicates no knowledge-box base URL was configured.
	ErrMissingKBBaseURL = errors.New("missing knowledge-box base URL")

	// ErrInvalidKBBaseURL indicates the knowledge-box base URL is malformed.
	ErrInvalidKBBaseURL = errors.New("invalid knowledge-box base URL")

	// ErrMissingKBID indicates no knowledge-box identifier was configured.
	ErrMissingKBID = errors.New("missing knowledge-box id")

	// ErrMissingKBToken indicates no service credential was configured.
	ErrMissingKBToken = errors.New("missing knowledge-box token")

	// ErrMissingAPIKey indicates the Gemini API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidDownloadTTL indicates the download TTL is out of range.
	ErrInvalidDownloadTTL = errors.New("invalid download TTL")

	// ErrInvalidTimeout indicates a timeout value is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout")

	// ErrInvalidListenAddr indicates the listen address is empty.
	ErrInvalidListenAddr = errors.New("invalid listen address")
)

// Validate checks the configuration for serve mode.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if c.KBBaseURL == "" {
		return fmt.Errorf("%w: set KB_BASE_URL", ErrMissingKBBaseURL)
	}
	u, err := url.Parse(c.KBBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidKBBaseURL, c.KBBaseURL)
	}

	if c.KBID == "" {
		return fmt.Errorf("%w: set KB_ID", ErrMissingKBID)
	}
	if c.KBToken == "" {
		return fmt.Errorf("%w: set KB_TOKEN", ErrMissingKBToken)
	}

	if c.GeminiAPIKey == "" {
		return fmt.Errorf("%w: set GEMINI_API_KEY", ErrMissingAPIKey)
	}
	if strings.TrimSpace(c.ModelName) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidModelName)
	}

	if c.DownloadTTL < 60 || c.DownloadTTL > 86400 {
		return fmt.Errorf("%w: %d (must be 60-86400 seconds)", ErrInvalidDownloadTTL, c.DownloadTTL)
	}

	if c.MetadataTimeout <= 0 {
		return fmt.Errorf("%w: metadata_timeout", ErrInvalidTimeout)
	}
	if c.SearchTimeout <= 0 {
		return fmt.Errorf("%w: search_timeout", ErrInvalidTimeout)
	}
	if c.StreamTimeout <= 0 {
		return fmt.Errorf("%w: stream_timeout", ErrInvalidTimeout)
	}

	if c.ListenAddr == "" {
		return ErrInvalidListenAddr
	}

	return nil
}
