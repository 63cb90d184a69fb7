// Package resourcemcp exposes a generic resource CRUD API as MCP tools and
// URI-addressable resources. It can run as a standalone server or be
// embedded in another program.
package resourcemcp

import (
	"context"
	"log/slog"

	"github.com/localrivet/resourcemcp/internal/api"
	"github.com/localrivet/resourcemcp/internal/config"
	"github.com/localrivet/resourcemcp/internal/errortypes"
	"github.com/localrivet/resourcemcp/internal/record"
	"github.com/localrivet/resourcemcp/internal/resolver"
	"github.com/localrivet/resourcemcp/internal/server"
	"github.com/localrivet/resourcemcp/internal/telemetry"
)

// Config represents the configuration for the resourcemcp service.
type Config = config.Config

// API is the operation contract every backend satisfies.
type API = api.API

// Record is a single schemaless record.
type Record = record.Record

// Query holds exact-match filter criteria.
type Query = record.Query

// CreateResult is returned by Create.
type CreateResult = api.CreateResult

// ReadResult is the result of reading a resource URI.
type ReadResult = resolver.ReadResult

// Server represents the resourcemcp service.
type Server struct {
	config     *config.Config
	api        *api.InstrumentedAPI
	resolver   *resolver.Resolver
	gateway    *server.Gateway
	toolServer server.ResourceToolServer
	logger     *slog.Logger
}

// ServerOptions defines the options for creating a new Server.
type ServerOptions struct {
	Config     *Config      // Pre-filled config. If nil, ConfigPath is used.
	ConfigPath string       // Path to config file. Used if Config is nil. If both are empty, DefaultConfig() is used.
	Logger     *slog.Logger // External logger. If nil, slog.Default() is used.

	// API replaces the backend selected by the configuration. This is the
	// swap point for a real HTTP client or database implementation.
	API API
}

// NewServer creates a new resourcemcp Server with the given options.
// If opts.Config is provided, it will be used directly.
// Otherwise, if opts.ConfigPath is provided, configuration will be loaded from that path.
// If neither is provided, DefaultConfig() will be used.
func NewServer(opts ServerOptions) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var cfg *Config
	var err error

	if opts.Config != nil {
		cfg = opts.Config
		logger.Info("Using provided Config object for server initialization")
	} else if opts.ConfigPath != "" {
		logger.Info("Loading configuration for server initialization", "path", opts.ConfigPath)
		cfg, err = config.LoadConfigWithPath(opts.ConfigPath)
		if err != nil {
			return nil, errortypes.ConfigError(err, "Failed to load configuration from path: "+opts.ConfigPath)
		}
	} else {
		logger.Warn("No Config object or ConfigPath provided, using default configuration for server initialization")
		cfg = DefaultConfig()
	}

	if err := cfg.Validate(); err != nil {
		return nil, errortypes.ConfigError(err, "invalid configuration")
	}

	backend := opts.API
	if backend == nil {
		backend, err = CreateAPI(cfg, logger)
		if err != nil {
			return nil, err
		}
	}

	instrumented := api.NewInstrumentedAPI(backend, logger, telemetry.NewMetricsCollector())
	res := resolver.New(instrumented, cfg.Collections()...)
	gateway := server.NewGateway(instrumented, res, logger)

	var toolServer server.ResourceToolServer
	switch cfg.Server.Transport {
	case config.TransportHTTP:
		toolServer = server.NewHTTPServer(gateway, server.HTTPOptions{
			Addr:                   cfg.Server.Addr,
			Name:                   cfg.Server.Name,
			Version:                cfg.Server.Version,
			AllowedOrigins:         cfg.Origins(),
			AllowedHosts:           cfg.Hosts(),
			DNSRebindingProtection: cfg.Server.DNSRebindingProtection,
			Metrics:                instrumented.Metrics(),
		}, logger)
	default:
		toolServer = server.NewStdioServer(gateway, cfg.Server.Name, logger)
	}

	if err := toolServer.Initialize(); err != nil {
		api.Close(backend)
		return nil, errortypes.ConfigError(err, "Failed to initialize MCP resource server component")
	}

	logger.Info("resourcemcp server successfully initialized",
		"transport", cfg.Server.Transport, "backend", cfg.Store.Backend, "collections", res.Collections())
	return &Server{
		config:     cfg,
		api:        instrumented,
		resolver:   res,
		gateway:    gateway,
		toolServer: toolServer,
		logger:     logger,
	}, nil
}

// DefaultConfig returns the default configuration for the resourcemcp service.
func DefaultConfig() *Config {
	return config.NewConfig()
}

// CreateAPI creates the backend selected by cfg without creating a server.
// This is useful for programs that need direct access to the operations.
func CreateAPI(cfg *Config, logger *slog.Logger) (API, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("Initializing resource backend", "backend", cfg.Store.Backend)
	a, err := api.New(cfg.Store.Backend, cfg.Store.SQLitePath)
	if err != nil {
		if errortypes.IsDatabaseError(err) {
			return nil, err
		}
		return nil, errortypes.ConfigError(err, "Failed to initialize resource backend").
			WithField("backend", cfg.Store.Backend)
	}
	return a, nil
}

// Start starts the resourcemcp service. It blocks until the transport stops.
func (s *Server) Start() error {
	s.logger.Info("Starting resourcemcp service")
	return s.toolServer.Start()
}

// Stop stops the resourcemcp service and releases the backend.
func (s *Server) Stop() error {
	s.logger.Info("Stopping resourcemcp service")
	if err := s.toolServer.Stop(); err != nil {
		s.logger.Error("Error stopping tool server", "error", err)
		return err
	}

	if err := s.api.Close(); err != nil {
		s.logger.Error("Failed to close backend", "error", err)
		return err
	}

	s.logger.Info("resourcemcp service stopped", "metrics", s.api.Metrics().GetReport())
	return nil
}

// Create inserts data into collection and returns the generated id.
func (s *Server) Create(ctx context.Context, collection string, data Record) (CreateResult, error) {
	return s.api.Create(ctx, collection, data)
}

// Get returns the record of collection stored under id.
func (s *Server) Get(ctx context.Context, collection, id string) (Record, error) {
	return s.api.Get(ctx, collection, id)
}

// List returns the records of collection matching query.
func (s *Server) List(ctx context.Context, collection string, query Query) ([]Record, error) {
	return s.api.List(ctx, collection, query)
}

// Update shallow-merges data over the record stored under id.
func (s *Server) Update(ctx context.Context, collection, id string, data Record) error {
	return s.api.Update(ctx, collection, id, data)
}

// Delete removes the record stored under id.
func (s *Server) Delete(ctx context.Context, collection, id string) error {
	return s.api.Delete(ctx, collection, id)
}

// ReadResource resolves a T://list or T://{id} locator.
func (s *Server) ReadResource(ctx context.Context, uri string) (ReadResult, error) {
	return s.gateway.ReadResource(ctx, uri)
}

// GetAPI returns the instrumented API used by the server.
func (s *Server) GetAPI() API {
	return s.api
}

// GetConfig returns the configuration the server was built from.
func (s *Server) GetConfig() *Config {
	return s.config
}

// Collections returns the collection types exposed as resources.
func (s *Server) Collections() []string {
	return s.resolver.Collections()
}

// MetricsReport returns a human-readable report of the operation metrics.
func (s *Server) MetricsReport() string {
	return s.api.Metrics().GetReport()
}

// IsNotFound reports whether err is a NOT_FOUND resource error.
func IsNotFound(err error) bool {
	return errortypes.IsNotFound(err)
}

// IsInvalidURI reports whether err is an INVALID_URI resource error.
func IsInvalidURI(err error) bool {
	return errortypes.IsInvalidURI(err)
}

// StatusCodeOf returns the status hint carried by err.
func StatusCodeOf(err error) int {
	return errortypes.StatusCodeOf(err)
}
