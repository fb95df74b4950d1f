// Package config loads the server configuration: an optional .env file, a
// YAML file, then environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/edirooss/gst-architect/internal/repo"
	"github.com/edirooss/gst-architect/pkg/avurl"
	"github.com/edirooss/gst-architect/pkg/ctlscript"
)

const (
	DefaultConfigFile = "gst-architect.yaml"
	DefaultEnvFile    = ".env"

	EnvConfigPath  = "GST_ARCHITECT_CONFIG"
	EnvRedisAddr   = "GST_ARCHITECT_REDIS_ADDR"
	EnvPostgresDSN = "GST_ARCHITECT_POSTGRES_DSN"
	EnvStore       = "GST_ARCHITECT_STORE"
	EnvMode        = "ENV"
)

// Store backends.
const (
	StoreRedis    = "redis"
	StorePostgres = "postgres"
	StoreMemory   = "memory" // process-local, lost on restart
)

// Config is the server configuration.
type Config struct {
	RedisAddr string              `yaml:"redis_address"`
	RedisDB   int                 `yaml:"redis_db"`
	Address   string              `yaml:"address"`
	Port      string              `yaml:"port"`
	Store     string              `yaml:"store"` // redis | postgres | memory
	Postgres  repo.PostgresConfig `yaml:"postgres"`
	Generator ctlscript.Options   `yaml:"generator"`

	// Dev enables CORS for local frontends instead of the proxy hardening.
	Dev            bool     `yaml:"-"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		RedisAddr: "127.0.0.1:6379",
		Address:   "127.0.0.1",
		Port:      "8080",
		Store:     StoreRedis,
		Postgres:  repo.PostgresConfig{ApplicationName: "gst-architect"},
		AllowedOrigins: []string{
			"http://localhost:5173",
			"http://localhost:4173",
			"http://localhost:3000",
		},
	}
}

// Load reads DefaultEnvFile when present, then the YAML file named by
// GST_ARCHITECT_CONFIG (or DefaultConfigFile), then environment overrides.
// A missing YAML file is not an error; the defaults apply.
func Load() (*Config, error) {
	if err := godotenv.Load(DefaultEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", DefaultEnvFile, err)
	}

	path := os.Getenv(EnvConfigPath)
	if path == "" {
		path = DefaultConfigFile
	}
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	cfg.applyEnv()
	return cfg, cfg.Validate()
}

// LoadFile decodes path over Default(). A missing file yields the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvRedisAddr); v != "" {
		c.RedisAddr = v
	}
	if v := os.Getenv(EnvPostgresDSN); v != "" {
		c.Postgres.DSN = v
	}
	if v := os.Getenv(EnvStore); v != "" {
		c.Store = strings.ToLower(v)
	}
	c.Dev = os.Getenv(EnvMode) == "dev"
}

// Validate checks cross-field requirements.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreRedis:
		if c.RedisAddr == "" {
			return errors.New("redis_address is required for the redis store")
		}
	case StorePostgres:
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			return errors.New("postgres.dsn is required for the postgres store")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown store %q (want %s, %s or %s)", c.Store, StoreRedis, StorePostgres, StoreMemory)
	}
	if err := avurl.ValidateHost(c.Address); err != nil {
		return fmt.Errorf("address: %w", err)
	}
	if p, err := strconv.Atoi(c.Port); err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("port: %q is not a TCP port", c.Port)
	}
	if _, err := ctlscript.ParseAdvanceMode(string(c.Generator.Advance)); err != nil {
		return fmt.Errorf("generator.advance: %w", err)
	}
	return nil
}

// ListenAddr is Address:Port.
func (c *Config) ListenAddr() string {
	return c.Address + ":" + c.Port
}
