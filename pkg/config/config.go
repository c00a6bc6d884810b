// Package config handles configuration via environment variables and an
// optional YAML file.
//
// Configuration is loaded in three layers: built-in defaults, then an
// optional YAML file, then SKULD_-prefixed environment variables. The
// environment always wins, which keeps containerized deployments simple.
//
// Example Usage:
//
//	cfg, err := config.Load(os.Getenv("SKULD_CONFIG"))
//	if err != nil {
//		log.Fatalf("Invalid config: %v", err)
//	}
//
//	fmt.Printf("HTTP server: %s:%d\n", cfg.Server.Address, cfg.Server.Port)
//
// Environment Variables:
//
//   - SKULD_STORAGE_BACKEND="memory" or "badger"
//   - SKULD_DATA_DIR="./data"
//   - SKULD_SYNC_WRITES=true
//   - SKULD_READ_ONLY=false
//   - SKULD_HTTP_ADDRESS="0.0.0.0"
//   - SKULD_HTTP_PORT=7400
//   - SKULD_AUTH_TOKEN="secret" (empty disables auth)
//   - SKULD_STAGE_GATING=false
//   - SKULD_NODE_CACHE_SIZE=1000
//   - SKULD_TRAVERSAL_CACHE_SIZE=100
//   - SKULD_CACHE_EVICTION_BATCH=100
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Storage backend names accepted by StorageConfig.Backend.
const (
	BackendMemory = "memory"
	BackendBadger = "badger"
)

// Config holds all configuration.
//
// Use Load to build one from defaults, an optional YAML file, and the
// environment.
type Config struct {
	Storage  StorageConfig  `yaml:"storage"`
	Server   ServerConfig   `yaml:"server"`
	Cache    CacheConfig    `yaml:"cache"`
	Features FeaturesConfig `yaml:"features"`
}

// FeaturesConfig holds optional behavior toggles.
type FeaturesConfig struct {
	// StageGating refuses queries the graph's developmental stage cannot
	// yet support. Off by default: small graphs answer everything.
	StageGating bool `yaml:"stageGating"`
}

// StorageConfig selects and tunes the graph store backend.
type StorageConfig struct {
	// Backend is "memory" or "badger".
	Backend string `yaml:"backend"`
	// DataDir is the directory for persistent data. Required for badger.
	DataDir string `yaml:"dataDir"`
	// SyncWrites forces fsync after each write.
	SyncWrites bool `yaml:"syncWrites"`
	// ReadOnly opens the store for reads only.
	ReadOnly bool `yaml:"readOnly"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
	// AuthToken enables bearer token auth when non-empty. The token is
	// never logged.
	AuthToken string `yaml:"authToken"`
}

// CacheConfig tunes the node and traversal caches.
type CacheConfig struct {
	NodeCapacity      int `yaml:"nodeCapacity"`
	TraversalCapacity int `yaml:"traversalCapacity"`
	EvictionBatch     int `yaml:"evictionBatch"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend: BackendMemory,
			DataDir: "./data",
		},
		Server: ServerConfig{
			Address: "0.0.0.0",
			Port:    7400,
		},
		Cache: CacheConfig{
			NodeCapacity:      1000,
			TraversalCapacity: 100,
			EvictionBatch:     100,
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path if
// path is non-empty, and finally the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv builds the configuration from defaults and the environment
// only. It never fails to load; call Validate before use.
func LoadFromEnv() *Config {
	cfg := Default()
	cfg.applyEnv()
	return cfg
}

func (c *Config) applyEnv() {
	c.Storage.Backend = getEnv("SKULD_STORAGE_BACKEND", c.Storage.Backend)
	c.Storage.DataDir = getEnv("SKULD_DATA_DIR", c.Storage.DataDir)
	c.Storage.SyncWrites = getEnvBool("SKULD_SYNC_WRITES", c.Storage.SyncWrites)
	c.Storage.ReadOnly = getEnvBool("SKULD_READ_ONLY", c.Storage.ReadOnly)

	c.Server.Address = getEnv("SKULD_HTTP_ADDRESS", c.Server.Address)
	c.Server.Port = getEnvInt("SKULD_HTTP_PORT", c.Server.Port)
	c.Server.AuthToken = getEnv("SKULD_AUTH_TOKEN", c.Server.AuthToken)

	c.Features.StageGating = getEnvBool("SKULD_STAGE_GATING", c.Features.StageGating)

	c.Cache.NodeCapacity = getEnvInt("SKULD_NODE_CACHE_SIZE", c.Cache.NodeCapacity)
	c.Cache.TraversalCapacity = getEnvInt("SKULD_TRAVERSAL_CACHE_SIZE", c.Cache.TraversalCapacity)
	c.Cache.EvictionBatch = getEnvInt("SKULD_CACHE_EVICTION_BATCH", c.Cache.EvictionBatch)
}

// Validate returns nil if the configuration is usable, or an error
// describing the first problem found.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory, BackendBadger:
	default:
		return fmt.Errorf("unknown storage backend: %q", c.Storage.Backend)
	}

	if c.Storage.Backend == BackendBadger && c.Storage.DataDir == "" {
		return fmt.Errorf("badger backend requires a data directory")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid http port: %d", c.Server.Port)
	}

	if c.Cache.NodeCapacity <= 0 {
		return fmt.Errorf("invalid node cache size: %d", c.Cache.NodeCapacity)
	}
	if c.Cache.TraversalCapacity <= 0 {
		return fmt.Errorf("invalid traversal cache size: %d", c.Cache.TraversalCapacity)
	}
	if c.Cache.EvictionBatch <= 0 {
		return fmt.Errorf("invalid cache eviction batch: %d", c.Cache.EvictionBatch)
	}

	return nil
}

// String returns a representation safe for logging. The auth token is
// reported only as present or absent.
func (c *Config) String() string {
	auth := "off"
	if c.Server.AuthToken != "" {
		auth = "on"
	}
	return fmt.Sprintf(
		"Config{Backend: %s, DataDir: %s, HTTP: %s:%d, Auth: %s}",
		c.Storage.Backend, c.Storage.DataDir,
		c.Server.Address, c.Server.Port, auth,
	)
}

// Helper functions for environment variable parsing

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(val)
		return val == "true" || val == "1" || val == "yes" || val == "on"
	}
	return defaultVal
}
