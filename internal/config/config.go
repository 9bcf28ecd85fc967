package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ganot/atelier/internal/domain/viewed"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. ATELIER_SERVER_PORT.
const EnvPrefix = "ATELIER"

// Config defines configuration for the mirror server and the storefront CLI.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	DB       DBConfig       `yaml:"db"`
	Log      LogConfig      `yaml:"log"`
	Auth     AuthConfig     `yaml:"auth"`
	Storage  StorageConfig  `yaml:"storage"`
	Remote   RemoteConfig   `yaml:"remote"`
	Tracking TrackingConfig `yaml:"tracking"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path"`
}

type AuthConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Storage backends for the storefront session.
const (
	BackendMemory = "memory"
	BackendDir    = "dir"
	BackendSQLite = "sqlite"
)

type StorageConfig struct {
	Backend string `yaml:"backend"`
	Dir     string `yaml:"dir"`
	SQLite  string `yaml:"sqlite" envconfig:"sqlite"`
}

// Relays carry change signals between storefront processes.
const (
	RelayNone   = "none"
	RelayFile   = "file"
	RelaySocket = "socket"
)

type RemoteConfig struct {
	BaseURL string        `yaml:"base_url" envconfig:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
	Relay   string        `yaml:"relay"`
}

type TrackingConfig struct {
	MaxItems int `yaml:"max_items" envconfig:"max_items"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		DB: DBConfig{
			Path: "atelier.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Auth: AuthConfig{
			Enabled: true,
		},
		Storage: StorageConfig{
			Backend: BackendDir,
			Dir:     defaultStorageDir(),
		},
		Remote: RemoteConfig{
			Timeout: 5 * time.Second,
			Relay:   RelayFile,
		},
		Tracking: TrackingConfig{
			MaxItems: viewed.MaxItems,
		},
	}
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv(EnvPrefix + "_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values no component can run with.
func (c Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory, BackendDir, BackendSQLite:
	default:
		return fmt.Errorf("invalid storage backend %q", c.Storage.Backend)
	}
	switch c.Remote.Relay {
	case RelayNone, RelayFile, RelaySocket:
	default:
		return fmt.Errorf("invalid relay %q", c.Remote.Relay)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Tracking.MaxItems < 1 || c.Tracking.MaxItems > viewed.MaxItems {
		return fmt.Errorf("invalid tracking max_items %d: must be 1..%d", c.Tracking.MaxItems, viewed.MaxItems)
	}
	return nil
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

func defaultStorageDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return dir + string(os.PathSeparator) + "atelier"
	}
	return ".atelier"
}
