package main

import (
	"fmt"
	"os"
	"time"

	"github.com/marcoraddatz/komodo/internal/auth"
	"gopkg.in/yaml.v3"
)

// Config is the core daemon's yaml configuration. Every field can also
// be set through the environment, which wins over the file.
type Config struct {
	Addr             string            `yaml:"addr"`
	Database         string            `yaml:"database"`
	JwtSecret        string            `yaml:"jwt_secret"`
	TokenExpiry      time.Duration     `yaml:"token_expiry"`
	PeripheryPasskey string            `yaml:"periphery_passkey"`
	PeripheryTimeout time.Duration     `yaml:"periphery_timeout"`
	KeyFile          string            `yaml:"key_file"`
	OAuth            *auth.OAuthConfig `yaml:"oauth,omitempty"`
}

func defaultConfig() Config {
	return Config{
		Addr:     ":9120",
		Database: "komodo.db",
		KeyFile:  "komodo.key",
	}
}

// LoadConfig reads the yaml file named by KOMODO_CONFIG (or the default
// path), then applies environment overrides.
func LoadConfig() (Config, error) {
	cfg := defaultConfig()

	path := os.Getenv("KOMODO_CONFIG")
	if path == "" {
		path = "core.config.yaml"
	}
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// Running on defaults plus environment is fine.
	default:
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if value := os.Getenv("KOMODO_ADDR"); value != "" {
		cfg.Addr = value
	}
	if value := os.Getenv("KOMODO_DATABASE"); value != "" {
		cfg.Database = value
	}
	if value := os.Getenv("KOMODO_JWT_SECRET"); value != "" {
		cfg.JwtSecret = value
	}
	if value := os.Getenv("KOMODO_PERIPHERY_PASSKEY"); value != "" {
		cfg.PeripheryPasskey = value
	}
	if value := os.Getenv("KOMODO_PERIPHERY_TIMEOUT"); value != "" {
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return Config{}, fmt.Errorf("invalid KOMODO_PERIPHERY_TIMEOUT: %s", value)
		}
		cfg.PeripheryTimeout = parsed
	}

	if cfg.JwtSecret == "" {
		return Config{}, fmt.Errorf("jwt_secret is required (file %s or KOMODO_JWT_SECRET)", path)
	}
	return cfg, nil
}
