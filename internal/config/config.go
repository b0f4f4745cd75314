package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Database drivers.
const (
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Config holds the entidex configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`
	Search   SearchConfig   `yaml:"search"`
	Bulk     BulkConfig     `yaml:"bulk"`
	Entities []EntityConfig `yaml:"entities"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
	// DefaultKind is served under /api/projects (default: first entity).
	DefaultKind string `yaml:"default_kind"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // sqlite, redis (default: sqlite)
	Path             string   `yaml:"path"`   // sqlite file
	Addrs            []string `yaml:"addrs"`  // redis
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// StorageConfig names where documents live.
type StorageConfig struct {
	KeyPrefix       string `yaml:"key_prefix"`
	EntityContainer string `yaml:"entity_container"`
	IndexContainer  string `yaml:"index_container"`
}

// SearchConfig holds search and pagination settings.
type SearchConfig struct {
	// DefaultPageSize applies when a request has none; 0 returns everything.
	DefaultPageSize  int    `yaml:"default_page_size"`
	MaxPageSize      int    `yaml:"max_page_size"`
	FieldPrefix      string `yaml:"field_prefix"`
	CompileCacheSize int    `yaml:"compile_cache_size"` // < 0 disables
}

// BulkConfig holds bulk create settings.
type BulkConfig struct {
	Concurrency  int `yaml:"concurrency"`
	MaxBatchSize int `yaml:"max_batch_size"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(Path(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse decodes, defaults and validates YAML configuration.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.DefaultKind == "" && len(c.Entities) > 0 {
		c.HTTP.DefaultKind = c.Entities[0].Name
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverSQLite
	}
	if c.Database.Driver == DriverSQLite && c.Database.Path == "" {
		c.Database.Path = "entidex.db"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "entidex:"
	}
	if c.Storage.EntityContainer == "" {
		c.Storage.EntityContainer = "projects"
	}
	if c.Storage.IndexContainer == "" {
		c.Storage.IndexContainer = "index"
	}
	if c.Search.MaxPageSize <= 0 {
		c.Search.MaxPageSize = 1000
	}
	if c.Search.FieldPrefix == "" {
		c.Search.FieldPrefix = "index."
	}
	if c.Search.CompileCacheSize == 0 {
		c.Search.CompileCacheSize = 512
	}
	if c.Bulk.Concurrency <= 0 {
		c.Bulk.Concurrency = 16
	}
	if c.Bulk.MaxBatchSize <= 0 {
		c.Bulk.MaxBatchSize = 1000
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	case DriverRedis:
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for redis")
		}
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverSQLite, DriverRedis, c.Database.Driver)
	}
	if c.Storage.EntityContainer == c.Storage.IndexContainer {
		return fmt.Errorf("storage.entity_container and storage.index_container must differ")
	}
	if c.Search.DefaultPageSize < 0 || c.Search.DefaultPageSize > c.Search.MaxPageSize {
		return fmt.Errorf("search.default_page_size must be between 0 and %d, got %d",
			c.Search.MaxPageSize, c.Search.DefaultPageSize)
	}
	if !fieldPrefixRegex.MatchString(c.Search.FieldPrefix) {
		return fmt.Errorf("search.field_prefix must be dot-separated names ending in a dot, got %q", c.Search.FieldPrefix)
	}
	if len(c.Entities) == 0 {
		return fmt.Errorf("at least one entity kind is required")
	}
	seen := make(map[string]bool, len(c.Entities))
	for i, e := range c.Entities {
		if e.Name == "" {
			return fmt.Errorf("entities[%d].name is required", i)
		}
		if seen[e.Name] {
			return fmt.Errorf("entities[%d]: duplicate kind %q", i, e.Name)
		}
		seen[e.Name] = true
	}
	if !seen[c.HTTP.DefaultKind] {
		return fmt.Errorf("http.default_kind %q is not a configured entity kind", c.HTTP.DefaultKind)
	}
	if _, err := c.Registry(); err != nil {
		return err
	}
	return nil
}

// Path locates the config file of an environment.
func Path(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

var fieldPrefixRegex = regexp.MustCompile(`^([A-Za-z0-9_]+\.)+$`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
// Only upper-case names are expanded; lower-case transform placeholders
// such as ${id} pass through.
var envVarRegex = regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*(?::-[^}]*)?)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
