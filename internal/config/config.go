package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/localrivet/configurator"
)

// Config represents the resourcemcp configuration
type Config struct {
	// Store selects and configures the backend behind the operation contract.
	Store struct {
		// Backend is the backend name ("memory" or "sqlite").
		Backend string `json:"backend" env:"STORE_BACKEND" validate:"required"`

		// SQLitePath is the path to the SQLite database file.
		SQLitePath string `json:"sqlite_path" env:"SQLITE_PATH"`
	} `json:"store"`

	// Server contains gateway-related configuration.
	Server struct {
		// Name is the implementation name announced to MCP clients.
		Name string `json:"name" env:"SERVER_NAME" validate:"required"`

		// Version is the implementation version announced to MCP clients.
		Version string `json:"version" env:"SERVER_VERSION"`

		// Transport is "stdio" or "http".
		Transport string `json:"transport" env:"TRANSPORT" validate:"required"`

		// Addr is the listen address of the HTTP transport.
		Addr string `json:"addr" env:"ADDR"`

		// AllowedOrigins is a comma-separated CORS allow-list for the HTTP transport.
		AllowedOrigins string `json:"allowed_origins" env:"ALLOWED_ORIGINS"`

		// AllowedHosts is a comma-separated Host header allow-list, enforced
		// when DNSRebindingProtection is on.
		AllowedHosts string `json:"allowed_hosts" env:"ALLOWED_HOSTS"`

		// DNSRebindingProtection rejects requests whose Host is not allowed.
		DNSRebindingProtection bool `json:"dns_rebinding_protection" env:"DNS_REBINDING_PROTECTION"`
	} `json:"server"`

	// Resources configures the URI-addressable collections.
	Resources struct {
		// Collections is a comma-separated list of collection types exposed
		// as T://list and T://{id}.
		Collections string `json:"collections" env:"COLLECTIONS"`
	} `json:"resources"`

	// Logging contains logging-related configuration.
	Logging struct {
		// Level is the minimum log level to display ("debug", "info", "warn", "error").
		Level string `json:"level" env:"LOG_LEVEL" validate:"required"`

		// Format is the log format to use ("text", "json").
		Format string `json:"format" env:"LOG_FORMAT"`
	} `json:"logging"`

	// Internal state (not saved to config file)
	configPath     string       `json:"-"`
	mutex          sync.RWMutex `json:"-"`
	lastModifiedAt time.Time    `json:"-"`
}

// Default configuration values
const (
	DefaultConfigFilename = ".resourcemcpconfig"
	DefaultEnvPrefix      = "RESOURCEMCP"
	DefaultBackend        = "memory"
	DefaultSQLitePath     = ".resourcemcp.db"
	DefaultServerName     = "resourcemcp"
	DefaultServerVersion  = "1.0.0"
	DefaultTransport      = "stdio"
	DefaultAddr           = ":3000"
	DefaultAllowedOrigins = "http://localhost:3000,http://localhost:6274,https://claude.ai"
	DefaultAllowedHosts   = "localhost,127.0.0.1,localhost:3000,localhost:6274"
	DefaultCollections    = "users,products,orders"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
)

// Transport names
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// NewConfig creates a new Config instance with default values
func NewConfig() *Config {
	config := &Config{}
	config.Store.Backend = DefaultBackend
	config.Store.SQLitePath = DefaultSQLitePath
	config.Server.Name = DefaultServerName
	config.Server.Version = DefaultServerVersion
	config.Server.Transport = DefaultTransport
	config.Server.Addr = DefaultAddr
	config.Server.AllowedOrigins = DefaultAllowedOrigins
	config.Server.AllowedHosts = DefaultAllowedHosts
	config.Resources.Collections = DefaultCollections
	config.Logging.Level = DefaultLogLevel
	config.Logging.Format = DefaultLogFormat
	return config
}

// LoadConfig loads the configuration from the default path
func LoadConfig() (*Config, error) {
	return LoadConfigWithPath(DefaultConfigFilename)
}

// LoadConfigWithPath loads the configuration from a specific path. A missing
// file yields the defaults overlaid with environment variables.
func LoadConfigWithPath(configPath string) (*Config, error) {
	// stdout belongs to the stdio transport
	stdLogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	cfg := NewConfig()

	if configPath == "" {
		configPath = DefaultConfigFilename
	}
	if configPath == DefaultConfigFilename {
		foundPath, err := configurator.FindConfigFile(configPath)
		if err == nil {
			configPath = foundPath
			stdLogger.Debug("Found config file at " + foundPath)
		}
	}

	loader := configurator.New(stdLogger).
		WithProvider(configurator.NewDefaultProvider())

	if _, err := os.Stat(configPath); err == nil {
		stdLogger.Info("Loading configuration", "path", configPath)
		loader = loader.WithProvider(configurator.NewFileProvider(configPath))
	} else {
		stdLogger.Info("Config file not found, using default configuration", "path", configPath)
	}

	loader = loader.
		WithProvider(configurator.NewEnvProvider(DefaultEnvPrefix)).
		WithValidator(configurator.NewDefaultValidator())

	if err := loader.Load(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.configPath = configPath
	cfg.lastModifiedAt = time.Now()

	return cfg, nil
}

// Validate checks the values the providers cannot check by tag.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("unsupported store backend %q", c.Store.Backend)
	}
	if c.Store.Backend == "sqlite" && c.Store.SQLitePath == "" {
		return fmt.Errorf("store.sqlite_path is required for the sqlite backend")
	}
	switch c.Server.Transport {
	case TransportStdio, TransportHTTP:
	default:
		return fmt.Errorf("unsupported transport %q", c.Server.Transport)
	}
	if c.Server.Transport == TransportHTTP && c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required for the http transport")
	}
	return nil
}

// SaveToFile saves the configuration to the specified file
func (c *Config) SaveToFile(path string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := configurator.SaveToFile(c, path, configurator.FormatJSON); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	c.configPath = path
	c.lastModifiedAt = time.Now()

	return nil
}

// Save saves the configuration to the last used file path
func (c *Config) Save() error {
	if c.configPath == "" {
		c.configPath = DefaultConfigFilename
	}
	return c.SaveToFile(c.configPath)
}

// GetConfigPath returns the path of the currently loaded configuration file
func (c *Config) GetConfigPath() string {
	return c.configPath
}

// Collections returns the configured collection types.
func (c *Config) Collections() []string {
	return splitList(c.Resources.Collections)
}

// Origins returns the configured CORS allow-list.
func (c *Config) Origins() []string {
	return splitList(c.Server.AllowedOrigins)
}

// Hosts returns the configured Host allow-list.
func (c *Config) Hosts() []string {
	return splitList(c.Server.AllowedHosts)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
