package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads base.yaml plus an optional environment-specific overlay
// (<env>.yaml) from configDir, then applies environment variables.
// env comes from CONFIG_ENV and defaults to "local".
func Load(env string, configDir string) (*Config, error) {
	if configDir == "" {
		configDir = "config"
	}

	cfg := defaults()

	if err := loadYAMLFile(filepath.Join(configDir, "base.yaml"), cfg); err != nil {
		return nil, fmt.Errorf("failed to load base.yaml: %w", err)
	}

	if env != "" && env != "base" {
		envFile := filepath.Join(configDir, fmt.Sprintf("%s.yaml", env))
		if _, err := os.Stat(envFile); err == nil {
			if err := loadYAMLFile(envFile, cfg); err != nil {
				return nil, fmt.Errorf("failed to load %s.yaml: %w", env, err)
			}
		}
	}

	cfg.OverrideFromEnv()
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{Port: ":8080"},
		Log:    LogConfig{Level: "info"},
		Dispatch: DispatchConfig{
			PollInterval:      1 * time.Second,
			SchedulerInterval: 1 * time.Second,
			BatchSize:         100,
		},
		Inbound: InboundConfig{
			Interval: 1 * time.Minute,
			DedupTTL: 24 * time.Hour,
		},
	}
}

func loadYAMLFile(path string, into *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, into)
}

// GetEnv returns an environment variable or the given default.
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// ConfigEnv returns the active configuration environment (CONFIG_ENV,
// default "local").
func ConfigEnv() string {
	return GetEnv("CONFIG_ENV", "local")
}
