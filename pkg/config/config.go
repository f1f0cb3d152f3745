package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// HTTPConfig contains HTTP API related settings.
type HTTPConfig struct {
	Addr   string `yaml:"addr" envconfig:"ADDR"`
	APIKey string `yaml:"api_key" envconfig:"API_KEY"`
}

// ExecutionConfig tunes how operations run.
type ExecutionConfig struct {
	// MaxRecursionDepth bounds nested call-argument resolution.
	MaxRecursionDepth int `yaml:"max_recursion_depth" envconfig:"MAX_RECURSION_DEPTH"`

	// CompressThreshold is the response size in bytes above which a
	// compression-enabled operation gets a gzipped HTTP response.
	CompressThreshold int `yaml:"compress_threshold" envconfig:"COMPRESS_THRESHOLD"`

	// OffloadThreshold is the serialized result size in bytes above which
	// results move to the response store. Zero disables offloading.
	OffloadThreshold int `yaml:"offload_threshold" envconfig:"OFFLOAD_THRESHOLD"`
}

// StorageConfig locates the response store.
type StorageConfig struct {
	Dir string `yaml:"dir" envconfig:"DIR"`
}

// NetworkConfig configures the network troubleshooting endpoints.
type NetworkConfig struct {
	// OutboundIPURL is the echo service used to discover the agent's
	// public outbound address.
	OutboundIPURL string `yaml:"outbound_ip_url" envconfig:"OUTBOUND_IP_URL"`
}

// Config is the root configuration structure.
type Config struct {
	// LogLevel controls structured logging verbosity (DEBUG, INFO, WARNING, ERROR).
	LogLevel string `yaml:"log_level" envconfig:"LOG_LEVEL"`

	HTTP      HTTPConfig      `yaml:"http" envconfig:"HTTP"`
	Execution ExecutionConfig `yaml:"execution" envconfig:"EXECUTION"`
	Storage   StorageConfig   `yaml:"storage" envconfig:"STORAGE"`
	Network   NetworkConfig   `yaml:"network" envconfig:"NETWORK"`
}

const (
	defaultAddr              = ":8081"
	defaultMaxRecursionDepth = 50
	defaultCompressThreshold = 512 * 1024
	defaultOffloadThreshold  = 4 * 1024 * 1024
	defaultOutboundIPURL     = "https://checkip.amazonaws.com"
)

// Load reads configuration from the specified path, or defaults if path is empty.
// Priority: Env Vars > Config File > Defaults
func Load(path string) (*Config, error) {
	// Try loading .env files (ignore error if not present)
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	if path == "" {
		// Try default locations
		home, err := os.UserHomeDir()
		if err == nil {
			defaultPath := filepath.Join(home, ".lumber-agent", "config.yaml")
			if _, err := os.Stat(defaultPath); err == nil {
				path = defaultPath
			}
		}

		// Try local directory config.yaml
		localPath := "config.yaml"
		if _, err := os.Stat(localPath); err == nil {
			path = localPath
		}
	}

	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Process Env Vars (AGENT_ prefix)
	// This will override values from config file if set in Env
	if err := envconfig.Process("AGENT", cfg); err != nil {
		return nil, fmt.Errorf("failed to process env vars: %w", err)
	}

	// Apply Defaults
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = defaultAddr
	}
	if cfg.Execution.MaxRecursionDepth == 0 {
		cfg.Execution.MaxRecursionDepth = defaultMaxRecursionDepth
	}
	if cfg.Execution.CompressThreshold == 0 {
		cfg.Execution.CompressThreshold = defaultCompressThreshold
	}
	if cfg.Execution.OffloadThreshold == 0 {
		cfg.Execution.OffloadThreshold = defaultOffloadThreshold
	}
	if cfg.Storage.Dir == "" {
		cfg.Storage.Dir = filepath.Join(".", "data")
	}
	if cfg.Network.OutboundIPURL == "" {
		cfg.Network.OutboundIPURL = defaultOutboundIPURL
	}

	return cfg, nil
}
