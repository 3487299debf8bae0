// Package config provides configuration management for ducktest services.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"
)

// RuntimeAPIConfig holds configuration for the gRPC runtime service.
type RuntimeAPIConfig struct {
	Host           string
	Port           int
	RootClass      string
	MaxSessions    int
	SessionTTL     time.Duration
	RequestTimeout time.Duration
	DataDir        string
	Tracing        TracingConfig
}

// TracingConfig selects the span exporter.
type TracingConfig struct {
	Enabled      bool
	Exporter     string // none, stdout, otlp
	OTLPEndpoint string
	SampleRate   float64
	ServiceName  string
}

// DefaultRuntimeAPIConfig returns configuration with default values.
func DefaultRuntimeAPIConfig() *RuntimeAPIConfig {
	return &RuntimeAPIConfig{
		Host:           "0.0.0.0",
		Port:           12345,
		RootClass:      "DuckTester",
		MaxSessions:    1000,
		SessionTTL:     10 * time.Minute,
		RequestTimeout: 30 * time.Second,
		DataDir:        "./data",
		Tracing: TracingConfig{
			Enabled:      false,
			Exporter:     "stdout",
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
			ServiceName:  "ducktest",
		},
	}
}

// HMACSecrets extracts HMAC secrets from environment variables.
// Supports DT_HMAC_SECRET (single) and DT_HMAC_SECRET_N (rotation).
// Returns map of secret_id -> decoded secret bytes.
func HMACSecrets() (map[string][]byte, error) {
	secrets := make(map[string][]byte)

	add := func(key, val string) error {
		secretID, decoded, err := ParseHMACSecretWithID(val)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if _, exists := secrets[secretID]; exists {
			return fmt.Errorf("duplicate secret_id '%s' found in environment variables (check DT_HMAC_SECRET and DT_HMAC_SECRET_* for conflicts)", secretID)
		}
		secrets[secretID] = decoded
		return nil
	}

	// Format: <secret_id>:<base64_secret>
	if val := os.Getenv("DT_HMAC_SECRET"); val != "" {
		if err := add("DT_HMAC_SECRET", val); err != nil {
			return nil, err
		}
	}

	// Numbered secrets keep old and new keys valid during rotation
	for i := 1; ; i++ {
		key := fmt.Sprintf("DT_HMAC_SECRET_%d", i)
		val := os.Getenv(key)
		if val == "" {
			break
		}
		if err := add(key, val); err != nil {
			return nil, err
		}
	}

	return secrets, nil
}

// ParseHMACSecretWithID parses secret_id:base64_secret format.
// Secret ID must be 32 hex chars (UUIDv7 without hyphens).
func ParseHMACSecretWithID(envValue string) (secretID string, secret []byte, err error) {
	parts := strings.SplitN(strings.TrimSpace(envValue), ":", 2)
	if len(parts) != 2 {
		return "", nil, fmt.Errorf("format must be <secret_id>:<base64_secret>")
	}

	secretID = parts[0]
	if len(secretID) != 32 {
		return "", nil, fmt.Errorf("secret_id must be 32 hex chars (UUIDv7 without hyphens)")
	}
	if !isLowerHex(secretID) {
		return "", nil, fmt.Errorf("secret_id must be hex chars only")
	}

	secret, err = base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", nil, fmt.Errorf("invalid base64 encoding: %w", err)
	}
	if len(secret) < 32 {
		return "", nil, fmt.Errorf("secret must be at least 32 bytes, got %d", len(secret))
	}

	return secretID, secret, nil
}

func isLowerHex(s string) bool {
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return false
		}
	}
	return true
}
