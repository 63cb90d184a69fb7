// Package server exposes the resource operations to MCP clients over stdio
// and streamable HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/localrivet/gomcp/server"
	"github.com/localrivet/resourcemcp/internal/errortypes"
	"github.com/localrivet/resourcemcp/internal/resolver"
	"github.com/localrivet/resourcemcp/internal/tools"
)

// Common server error types
var (
	ErrServerNotInitialized = errors.New("server not initialized")
	ErrMissingDependencies  = errors.New("one or more required dependencies are nil")
)

// StdioServer implements ResourceToolServer on the gomcp stdio transport.
type StdioServer struct {
	gateway   *Gateway
	name      string
	logger    *slog.Logger
	mcpServer server.Server

	ctx    context.Context
	cancel context.CancelFunc
}

// NewStdioServer creates a new StdioServer instance.
func NewStdioServer(gateway *Gateway, name string, logger *slog.Logger) *StdioServer {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &StdioServer{
		gateway: gateway,
		name:    name,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Initialize registers the CRUD tools and the per-collection resources.
func (s *StdioServer) Initialize() error {
	s.logger.Info("Initializing MCP resource server", "transport", "stdio")

	if s.gateway == nil {
		return errortypes.ConfigError(ErrMissingDependencies, "server initialization failed")
	}

	srv := server.NewServer(s.name)

	srv = srv.Tool(tools.ToolCreate, "Creates a new resource in the specified collection",
		func(ctx *server.Context, req tools.CreateRequest) (tools.Response, error) {
			return s.gateway.Create(s.ctx, req), nil
		})

	srv = srv.Tool(tools.ToolGet, "Retrieves a specific resource by ID",
		func(ctx *server.Context, req tools.GetRequest) (tools.Response, error) {
			return s.gateway.Get(s.ctx, req), nil
		})

	srv = srv.Tool(tools.ToolList, "Lists all resources of a type with optional filtering",
		func(ctx *server.Context, req tools.ListRequest) (tools.Response, error) {
			return s.gateway.List(s.ctx, req), nil
		})

	srv = srv.Tool(tools.ToolUpdate, "Updates an existing resource",
		func(ctx *server.Context, req tools.UpdateRequest) (tools.Response, error) {
			return s.gateway.Update(s.ctx, req), nil
		})

	srv = srv.Tool(tools.ToolDelete, "Deletes a resource by ID",
		func(ctx *server.Context, req tools.DeleteRequest) (tools.Response, error) {
			return s.gateway.Delete(s.ctx, req), nil
		})

	collections := s.gateway.Resolver().Collections()
	for _, collection := range collections {
		listURI := resolver.ListURI(collection)
		srv = srv.Resource(listURI, fmt.Sprintf("Returns all %s in the collection", collection),
			func(ctx *server.Context, args struct{}) (string, error) {
				return s.readText(listURI)
			})

		name := collection
		srv = srv.Resource(resolver.TemplateURI(collection), fmt.Sprintf("Returns a specific %s by its ID", collection),
			func(ctx *server.Context, args struct {
				ID string `path:"id"`
			}) (string, error) {
				return s.readText(resolver.ItemURI(name, args.ID))
			})
	}

	s.mcpServer = srv
	s.logger.Info("MCP resource server initialized successfully",
		"tool_count", len(tools.All()), "resource_count", 2*len(collections))
	return nil
}

// Start serves MCP over stdin/stdout until stdin is closed.
func (s *StdioServer) Start() error {
	if s.mcpServer == nil {
		return errortypes.ConfigError(ErrServerNotInitialized, "cannot start server")
	}

	s.logger.Info("Starting MCP resource server", "transport", "stdio")
	return s.mcpServer.AsStdio().Run()
}

// Stop cancels in-flight operations. The transport exits when stdin is closed.
func (s *StdioServer) Stop() error {
	s.logger.Info("Stopping MCP resource server", "transport", "stdio")
	s.cancel()
	return nil
}

func (s *StdioServer) readText(uri string) (string, error) {
	result, err := s.gateway.ReadResource(s.ctx, uri)
	if err != nil {
		return "", err
	}
	if len(result.Contents) == 0 {
		return "", nil
	}
	return result.Contents[0].Text, nil
}
