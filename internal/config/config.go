package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	CurrentVersion = 1
	DefaultPath    = "~/.vtable/vtable.yaml"

	DefaultMaxConnections = 10
	MaxConnectionsLimit   = 50
	DefaultPageSize       = 50
	DefaultPort           = 8230
)

// Config is the top-level configuration.
type Config struct {
	Version int          `yaml:"version"`
	Store   StoreConfig  `yaml:"store"`
	Export  ExportConfig `yaml:"export,omitempty"`
	Server  ServerConfig `yaml:"server,omitempty"`
	Logging LogConfig    `yaml:"logging,omitempty"`
}

// StoreConfig defines the PostgreSQL database holding the virtual tables.
type StoreConfig struct {
	DSN            string `yaml:"dsn"`
	MaxConnections int    `yaml:"max_connections,omitempty"` // default 10, max 50
	PageSize       int    `yaml:"page_size,omitempty"`       // entities per backfill batch, default 50
}

// ExportConfig defines the MongoDB database schemas are exported to.
type ExportConfig struct {
	ConnectionString string `yaml:"connection_string,omitempty"`
	Database         string `yaml:"database,omitempty"`
}

// ServerConfig defines the HTTP API listener.
type ServerConfig struct {
	Port    int  `yaml:"port,omitempty"`
	DevMode bool `yaml:"dev_mode,omitempty"` // permissive CORS
}

// LogConfig defines logging settings.
type LogConfig struct {
	Level         string `yaml:"level,omitempty"`          // debug, info, warn, error
	Directory     string `yaml:"directory,omitempty"`      // default ~/.vtable/logs/
	RetentionDays int    `yaml:"retention_days,omitempty"` // default 30
}

// Load reads and parses the config file from the given path.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ExpandHome(DefaultPath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentVersion)
	}

	if err := cfg.resolveSecrets(); err != nil {
		return nil, fmt.Errorf("resolving secrets: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

// Save writes the config to the given path.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ExpandHome(DefaultPath)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(path, data, 0o600)
}

// Validate reports every missing or out-of-range setting.
func (c *Config) Validate() error {
	var problems []error
	if c.Store.DSN == "" {
		problems = append(problems, errors.New("store.dsn is required"))
	}
	if c.Store.PageSize < 0 {
		problems = append(problems, fmt.Errorf("store.page_size must be positive, got %d", c.Store.PageSize))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Export.ConnectionString != "" && c.Export.Database == "" {
		problems = append(problems, errors.New("export.database is required with export.connection_string"))
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}
	return errors.Join(problems...)
}

// Redacted returns a copy safe to print, with credentials masked.
func (c *Config) Redacted() *Config {
	out := *c
	out.Store.DSN = redact(c.Store.DSN)
	out.Export.ConnectionString = redact(c.Export.ConnectionString)
	return &out
}

var credentialPattern = regexp.MustCompile(`(://[^:/@]+:)[^@]+@`)

func redact(s string) string {
	return credentialPattern.ReplaceAllString(s, "${1}****@")
}

func (c *Config) applyDefaults() {
	if c.Store.MaxConnections == 0 {
		c.Store.MaxConnections = DefaultMaxConnections
	}
	if c.Store.MaxConnections > MaxConnectionsLimit {
		c.Store.MaxConnections = MaxConnectionsLimit
	}
	if c.Store.PageSize == 0 {
		c.Store.PageSize = DefaultPageSize
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Directory == "" {
		c.Logging.Directory = ExpandHome("~/.vtable/logs/")
	}
	if c.Logging.RetentionDays == 0 {
		c.Logging.RetentionDays = 30
	}
}

var secretPattern = regexp.MustCompile(`\$\{(ENV|VAULT|AWS_SM):([^}]+)\}`)

func (c *Config) resolveSecrets() error {
	var err error
	c.Store.DSN, err = ResolveValue(c.Store.DSN)
	if err != nil {
		return fmt.Errorf("store dsn: %w", err)
	}
	c.Export.ConnectionString, err = ResolveValue(c.Export.ConnectionString)
	if err != nil {
		return fmt.Errorf("export connection string: %w", err)
	}
	return nil
}

// ResolveValue resolves secret references in a string value.
func ResolveValue(val string) (string, error) {
	matches := secretPattern.FindStringSubmatch(val)
	if matches == nil {
		return val, nil
	}

	provider := matches[1]
	ref := matches[2]

	switch provider {
	case "ENV":
		v := os.Getenv(ref)
		if v == "" {
			return "", fmt.Errorf("environment variable %s not set", ref)
		}
		return v, nil
	case "VAULT":
		return resolveVault(ref)
	case "AWS_SM":
		return resolveAWSSecretsManager(ref)
	default:
		return "", fmt.Errorf("unknown secrets provider: %s", provider)
	}
}

// ExpandHome expands ~ to the user's home directory.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
