package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	configName   = "config"
	configFormat = "yaml"
)

func ReadConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType(configFormat)
	v.AddConfigPath(configPath)

	// Allow env vars to override config values.
	// e.g. CARELOG_STORE_PATH overrides store.path
	v.SetEnvPrefix("CARELOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file is optional when everything comes from env vars.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.name", "carelog_backend")
	v.SetDefault("service.version", "dev")
	v.SetDefault("service.environment", "development")

	v.SetDefault("store.path", "records.enc")
	v.SetDefault("store.key_path", "secret.key")
	v.SetDefault("store.lock_timeout_ms", 3000)

	v.SetDefault("authentication.token.issuer", "carelog")
	v.SetDefault("authentication.token.audience", "carelog-clients")
	v.SetDefault("authentication.token.access_ttl_minutes", 30)
	v.SetDefault("authentication.require_assignment_default", true)

	v.SetDefault("password.memory_kib", 64*1024)
	v.SetDefault("password.iterations", 3)
	v.SetDefault("password.parallelism", 2)
	v.SetDefault("password.salt_length", 16)
	v.SetDefault("password.key_length", 32)

	v.SetDefault("drafter.provider", "template")
	v.SetDefault("drafter.model", "claude-sonnet-4-20250514")
	v.SetDefault("drafter.max_tokens", 1024)
	v.SetDefault("drafter.poll_interval_seconds", 30)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output.stdout", true)

	v.SetDefault("observability.tracing.sampling_rate", 1.0)
}
