// Package config provides configuration management for the race-features pipeline.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	envPrefix         = "RACE_FEATURES"
	defaultConfigPath = "config/config.yaml"
)

// Load reads and parses the configuration from file and environment variables
// It expands environment variable placeholders in the YAML file (${VAR_NAME})
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v := newViper()
	setDefaults(v)
	if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// LoadWithDefaults loads configuration with default values for optional fields.
// A missing file is not an error: defaults and environment variables apply.
func LoadWithDefaults(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	v := newViper()
	setDefaults(v)

	if data, err := os.ReadFile(configPath); err == nil {
		if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "race-features")
	v.SetDefault("app.environment", DefaultEnvironment)
	v.SetDefault("app.log_level", "info")
	v.SetDefault("dataset.source", "postgres")
	v.SetDefault("features.left_table", "participants")
	v.SetDefault("features.right_table", "races")
	v.SetDefault("features.join_key", "race_id")
	v.SetDefault("features.flag_column", "is_valid")
	v.SetDefault("features.rank_column", "rank")
	v.SetDefault("features.date_column", "date")
	v.SetDefault("features.roles", []string{"horse", "jockey", "owner", "coach"})
	v.SetDefault("features.last_n_window", 3)
	v.SetDefault("transform.category_column", "category_id")
	v.SetDefault("transform.excluded_columns", []string{
		"race_id", "participant_id", "category_id", "horse_id", "jockey_id", "owner_id", "coach_id",
		"date", "rank", "is_valid", "target",
	})
	v.SetDefault("transform.encoder.min_samples", 5)
	v.SetDefault("transform.encoder.smoothing", 5)
	v.SetDefault("split.test_duration_days", 30)
	v.SetDefault("model.type", "RandomForestClassifier")
	v.SetDefault("model.results_dir", "results")
	v.SetDefault("metrics.job", "race_features")
}
