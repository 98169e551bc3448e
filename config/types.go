package config

import (
	"errors"
	"fmt"
	"time"
)

type Config struct {
	Service        ServiceConfig        `mapstructure:"service"`
	Store          StoreConfig          `mapstructure:"store"`
	Authentication AuthenticationConfig `mapstructure:"authentication"`
	Password       PasswordConfig       `mapstructure:"password"`
	Drafter        DrafterConfig        `mapstructure:"drafter"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	Observability  ObservabilityConfig  `mapstructure:"observability"`
}

type ServiceConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type StoreConfig struct {
	// Path of the encrypted record file.
	Path string `mapstructure:"path"`
	// KeyPath of the hex-encoded AES-256 key. Generated on first use.
	// Must never live inside the record file.
	KeyPath string `mapstructure:"key_path"`
	// LockTimeoutMS bounds how long a writer waits for the transaction
	// lock before failing busy.
	LockTimeoutMS int `mapstructure:"lock_timeout_ms"`
}

func (c StoreConfig) LockTimeout() time.Duration {
	return time.Duration(c.LockTimeoutMS) * time.Millisecond
}

type AuthenticationConfig struct {
	Token TokenConfig `mapstructure:"token"`
	// RequireAssignmentDefault seeds the per-hospital assignment
	// restriction flag at hospital creation. The flag itself lives in the
	// document and is changed per hospital by its admin.
	RequireAssignmentDefault bool `mapstructure:"require_assignment_default"`
}

type TokenConfig struct {
	// LocalKeyHex is the 32-byte symmetric PASETO key, hex encoded.
	LocalKeyHex      string `mapstructure:"local_key_hex"`
	Issuer           string `mapstructure:"issuer"`
	Audience         string `mapstructure:"audience"`
	AccessTTLMinutes int    `mapstructure:"access_ttl_minutes"`
}

func (c TokenConfig) AccessTTL() time.Duration {
	return time.Duration(c.AccessTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	MemoryKiB   uint32 `mapstructure:"memory_kib"`
	Iterations  uint32 `mapstructure:"iterations"`
	Parallelism uint8  `mapstructure:"parallelism"`
	SaltLength  uint32 `mapstructure:"salt_length"`
	KeyLength   uint32 `mapstructure:"key_length"`
}

type DrafterConfig struct {
	// Provider selects the feedback drafter: "template" or "anthropic".
	Provider  string `mapstructure:"provider"`
	APIKey    string `mapstructure:"api_key"`
	Model     string `mapstructure:"model"`
	MaxTokens int64  `mapstructure:"max_tokens"`
	// PollIntervalSeconds is how often the draft worker looks for feedback
	// requests without text.
	PollIntervalSeconds int `mapstructure:"poll_interval_seconds"`
}

func (c DrafterConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

type LoggingConfig struct {
	Level  string        `mapstructure:"level"`
	Format string        `mapstructure:"format"`
	Output LoggingOutput `mapstructure:"output"`
}

type LoggingOutput struct {
	Stdout bool              `mapstructure:"stdout"`
	File   LoggingFileOutput `mapstructure:"file"`
	Loki   LoggingLokiOutput `mapstructure:"loki"`
}

type LoggingFileOutput struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type LoggingLokiOutput struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type ObservabilityConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Tracing TracingConfig `mapstructure:"tracing"`
}

type TracingConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

func (c *Config) Validate() error {
	if c.Store.Path == "" {
		return errors.New("store.path is required")
	}
	if c.Store.KeyPath == "" {
		return errors.New("store.key_path is required")
	}
	if c.Authentication.Token.LocalKeyHex == "" {
		return errors.New("authentication.token.local_key_hex is required")
	}
	if len(c.Authentication.Token.LocalKeyHex) != 64 {
		return fmt.Errorf("authentication.token.local_key_hex must be 64 hex chars, got %d", len(c.Authentication.Token.LocalKeyHex))
	}
	switch c.Drafter.Provider {
	case "", "template":
	case "anthropic":
		if c.Drafter.APIKey == "" {
			return errors.New("drafter.api_key is required for the anthropic provider")
		}
	default:
		return fmt.Errorf("unknown drafter provider: %q", c.Drafter.Provider)
	}
	return nil
}
