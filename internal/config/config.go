package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines server configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Store  StoreConfig  `yaml:"store"`
	Collab CollabConfig `yaml:"collab"`
	Log    LogConfig    `yaml:"log"`
}

type ServerConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	CORSOrigins string `yaml:"cors_origins"`
}

type StoreConfig struct {
	// Backend selects the snapshot store: "fs" (directory per project)
	// or "sqlite" (single database file).
	Backend string `yaml:"backend"`
	// Root is the project directory root for the fs backend.
	Root string `yaml:"root"`
	// DBPath is the database file for the sqlite backend.
	DBPath string `yaml:"db_path"`
	// LockTimeout bounds the wait for a project's write lock.
	LockTimeout time.Duration `yaml:"lock_timeout"`
}

type CollabConfig struct {
	// StrictVersioning rejects updates whose last-seen version is stale
	// instead of applying last-writer-wins.
	StrictVersioning bool `yaml:"strict_versioning"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			CORSOrigins: "*",
		},
		Store: StoreConfig{
			Backend:     "fs",
			Root:        "shared_projects",
			DBPath:      "gridsync.db",
			LockTimeout: 5 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
	}

	if path := os.Getenv("GRIDSYNC_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if host := os.Getenv("GRIDSYNC_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("GRIDSYNC_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid GRIDSYNC_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if origins := os.Getenv("GRIDSYNC_CORS_ORIGINS"); origins != "" {
		cfg.Server.CORSOrigins = origins
	}
	if backend := os.Getenv("GRIDSYNC_STORE_BACKEND"); backend != "" {
		cfg.Store.Backend = backend
	}
	if root := os.Getenv("GRIDSYNC_STORE_ROOT"); root != "" {
		cfg.Store.Root = root
	}
	if dbPath := os.Getenv("GRIDSYNC_DB_PATH"); dbPath != "" {
		cfg.Store.DBPath = dbPath
	}
	if timeoutStr := os.Getenv("GRIDSYNC_LOCK_TIMEOUT"); timeoutStr != "" {
		timeout, err := time.ParseDuration(timeoutStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid GRIDSYNC_LOCK_TIMEOUT: %w", err)
		}
		cfg.Store.LockTimeout = timeout
	}
	if strictStr := os.Getenv("GRIDSYNC_STRICT_VERSIONING"); strictStr != "" {
		strict, err := strconv.ParseBool(strictStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid GRIDSYNC_STRICT_VERSIONING: %w", err)
		}
		cfg.Collab.StrictVersioning = strict
	}
	if level := os.Getenv("GRIDSYNC_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}

	switch cfg.Store.Backend {
	case "fs", "sqlite":
	default:
		return Config{}, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
