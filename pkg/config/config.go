// Package config loads the Core's process configuration: a YAML file
// on disk, overridden by a small set of environment variables for the
// values operators most often need to change per-deployment without
// editing the file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds everything SwarmCore needs to start.
type Config struct {
	DataDir  string `yaml:"data_dir"`
	CoreAPI  string `yaml:"core_api_url"`
	UDP      UDPConfig `yaml:"udp"`
	GRPC     GRPCConfig `yaml:"grpc"`
	Metrics  MetricsConfig `yaml:"metrics"`
	Log      LogConfig `yaml:"log"`
	Archive  ArchiveConfig `yaml:"archive"`
}

// UDPConfig configures the Dispatcher's heartbeat listener.
type UDPConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// GRPCConfig configures the corebridge health/command service.
type GRPCConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// MetricsConfig configures the Prometheus /metrics HTTP server.
type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// LogConfig configures the ambient zerolog sink.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// ArchiveConfig configures the TaskArchive retention horizon.
type ArchiveConfig struct {
	RetentionDays int `yaml:"retention_days"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		DataDir: "./data",
		CoreAPI: "http://localhost:9090",
		UDP:     UDPConfig{ListenAddr: ":5001"},
		GRPC:    GRPCConfig{ListenAddr: "0.0.0.0:9191"},
		Metrics: MetricsConfig{ListenAddr: ":9090"},
		Log:     LogConfig{Level: "info", JSON: false},
		Archive: ArchiveConfig{RetentionDays: 30},
	}
}

// Load reads path (if non-empty) over the defaults, then applies
// environment variable overrides for DATABASE_URL and CORE_API_URL.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if dataDir := os.Getenv("DATABASE_URL"); dataDir != "" {
		cfg.DataDir = dataDir
	}
	if coreAPI := os.Getenv("CORE_API_URL"); coreAPI != "" {
		cfg.CoreAPI = coreAPI
	}

	if cfg.Archive.RetentionDays <= 0 {
		return nil, fmt.Errorf("archive.retention_days must be positive, got %d", cfg.Archive.RetentionDays)
	}

	return cfg, nil
}
