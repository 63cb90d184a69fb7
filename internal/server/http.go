package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	sdkjsonrpc "github.com/modelcontextprotocol/go-sdk/jsonrpc"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/localrivet/resourcemcp/internal/api"
	"github.com/localrivet/resourcemcp/internal/errortypes"
	"github.com/localrivet/resourcemcp/internal/telemetry"
	"github.com/localrivet/resourcemcp/internal/tools"
)

// HTTP endpoint paths
const (
	PathMCP    = "/mcp"
	PathHealth = "/health"
	PathStatus = "/status"
)

const (
	maxRequestBody  = 4 << 20
	shutdownTimeout = 10 * time.Second
)

// HTTPOptions configures an HTTPServer.
type HTTPOptions struct {
	Addr    string
	Name    string
	Version string

	// AllowedOrigins is the CORS allow-list. A single "*" allows any origin.
	AllowedOrigins []string

	// AllowedHosts is enforced only when DNSRebindingProtection is set.
	AllowedHosts           []string
	DNSRebindingProtection bool

	// Metrics backs the /status report. Without it /status is not served.
	Metrics *telemetry.MetricsCollector
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

// HTTPServer implements ResourceToolServer on the stateless streamable HTTP
// transport of the MCP go-sdk.
type HTTPServer struct {
	gateway *Gateway
	opts    HTTPOptions
	logger  *slog.Logger

	mu         sync.Mutex
	mcpServer  *sdkmcp.Server
	httpServer *http.Server
}

// NewHTTPServer creates a new HTTPServer instance.
func NewHTTPServer(gateway *Gateway, opts HTTPOptions, logger *slog.Logger) *HTTPServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPServer{
		gateway: gateway,
		opts:    opts,
		logger:  logger,
	}
}

// Initialize registers the CRUD tools and the per-collection resources on
// the go-sdk server and builds the HTTP handler tree.
func (s *HTTPServer) Initialize() error {
	s.logger.Info("Initializing MCP resource server", "transport", "http", "addr", s.opts.Addr)

	if s.gateway == nil {
		return errortypes.ConfigError(ErrMissingDependencies, "server initialization failed")
	}

	srv := sdkmcp.NewServer(&sdkmcp.Implementation{Name: s.opts.Name, Version: s.opts.Version}, nil)

	for _, tool := range tools.All() {
		srv.AddTool(&sdkmcp.Tool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		}, s.toolHandler(tool.Name))
	}

	r := s.gateway.Resolver()
	for _, res := range r.Resources() {
		srv.AddResource(&sdkmcp.Resource{
			Name:        res.Name,
			URI:         res.URI,
			Description: res.Description,
			MIMEType:    res.MIMEType,
		}, s.resourceHandler)
	}
	for _, tmpl := range r.Templates() {
		srv.AddResourceTemplate(&sdkmcp.ResourceTemplate{
			Name:        tmpl.Name,
			URITemplate: tmpl.URITemplate,
			Description: tmpl.Description,
			MIMEType:    tmpl.MIMEType,
		}, s.resourceHandler)
	}

	s.mu.Lock()
	s.mcpServer = srv
	s.httpServer = &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Unlock()

	s.logger.Info("MCP resource server initialized successfully",
		"tool_count", len(tools.All()), "collections", r.Collections())
	return nil
}

// Handler returns the HTTP handler tree: /mcp and /health behind the host
// check and CORS.
func (s *HTTPServer) Handler() http.Handler {
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(func(*http.Request) *sdkmcp.Server {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.mcpServer
	}, &sdkmcp.StreamableHTTPOptions{Stateless: true})

	mux := http.NewServeMux()
	mux.HandleFunc(PathHealth, s.handleHealth)
	if s.opts.Metrics != nil {
		mux.HandleFunc(PathStatus, s.handleStatus)
	}
	mux.Handle(PathMCP, validateJSONRPC(mcpHandler))

	var h http.Handler = mux
	h = corsMiddleware(h, s.opts.AllowedOrigins)
	if s.opts.DNSRebindingProtection {
		h = hostMiddleware(h, s.opts.AllowedHosts)
	}
	return h
}

// Start listens on the configured address. It returns nil after Stop.
func (s *HTTPServer) Start() error {
	s.mu.Lock()
	httpServer := s.httpServer
	s.mu.Unlock()
	if httpServer == nil {
		return errortypes.ConfigError(ErrServerNotInitialized, "cannot start server")
	}

	s.logger.Info("Starting MCP resource server", "transport", "http", "addr", httpServer.Addr,
		"mcp_endpoint", PathMCP, "health_endpoint", PathHealth, "allowed_origins", s.opts.AllowedOrigins)

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errortypes.NetworkError(err, "http server failed").WithField("addr", httpServer.Addr)
	}
	return nil
}

// Stop gracefully shuts down the HTTP listener.
func (s *HTTPServer) Stop() error {
	s.mu.Lock()
	httpServer := s.httpServer
	s.mu.Unlock()
	if httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping MCP resource server", "transport", "http")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(ctx)
}

func (s *HTTPServer) toolHandler(name string) sdkmcp.ToolHandler {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest) (*sdkmcp.CallToolResult, error) {
		var arguments []byte
		if req != nil && req.Params != nil {
			arguments = req.Params.Arguments
		}
		resp := s.gateway.CallTool(ctx, name, arguments)

		return &sdkmcp.CallToolResult{
			IsError:           resp.IsError(),
			Content:           []sdkmcp.Content{&sdkmcp.TextContent{Text: resp.Message}},
			StructuredContent: resp,
		}, nil
	}
}

func (s *HTTPServer) resourceHandler(ctx context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
	uri := ""
	if req != nil && req.Params != nil {
		uri = req.Params.URI
	}

	result, err := s.gateway.ReadResource(ctx, uri)
	if err != nil {
		return nil, toProtocolError(uri, err)
	}

	out := &sdkmcp.ReadResourceResult{}
	for _, c := range result.Contents {
		out.Contents = append(out.Contents, &sdkmcp.ResourceContents{
			URI:      c.URI,
			MIMEType: c.MIMEType,
			Text:     c.Text,
		})
	}
	return out, nil
}

// toProtocolError maps resource failures onto MCP error codes.
func toProtocolError(uri string, err error) error {
	switch errortypes.KindOf(err) {
	case errortypes.KindNotFound:
		return sdkmcp.ResourceNotFoundError(uri)
	case errortypes.KindInvalidURI:
		return &sdkjsonrpc.Error{Code: sdkjsonrpc.CodeInvalidParams, Message: err.Error()}
	default:
		return err
	}
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		HandleError(w, errortypes.ValidationError(errors.New(r.Method+" not allowed"), "method not allowed"))
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Service:   s.opts.Name,
		Version:   s.opts.Version,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (s *HTTPServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	report, err := telemetry.CreateHealthReport(s.opts.Metrics, s.opts.Version, api.Operations...)
	if err != nil {
		HandleError(w, errortypes.InternalError(err, "failed to build status report"))
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// validateJSONRPC rejects POST bodies that are neither a JSON-RPC 2.0
// message nor a batch of them. Other methods pass through.
func validateJSONRPC(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			next.ServeHTTP(w, r)
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
		r.Body.Close()
		if err != nil {
			WriteJSONRPCError(w, http.StatusBadRequest, JSONRPCInvalidRequest, "Invalid Request: unreadable body", nil)
			return
		}

		if !isJSONRPCMessage(body) {
			WriteJSONRPCError(w, http.StatusBadRequest, JSONRPCInvalidRequest, "Invalid Request: Not a valid JSON-RPC request", nil)
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(body))
		r.ContentLength = int64(len(body))
		next.ServeHTTP(w, r)
	})
}

type jsonrpcEnvelope struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   json.RawMessage `json:"error"`
}

func isJSONRPCMessage(body []byte) bool {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return false
	}

	if body[0] == '[' {
		var batch []json.RawMessage
		if err := json.Unmarshal(body, &batch); err != nil || len(batch) == 0 {
			return false
		}
		for _, item := range batch {
			if !isJSONRPCMessage(item) {
				return false
			}
		}
		return true
	}

	var env jsonrpcEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return false
	}
	if env.JSONRPC != "2.0" {
		return false
	}
	// requests and notifications carry a method; responses carry an id and
	// a result or error
	return env.Method != "" || (len(env.ID) > 0 && (len(env.Result) > 0 || len(env.Error) > 0))
}

func corsMiddleware(next http.Handler, allowedOrigins []string) http.Handler {
	allowAll := len(allowedOrigins) == 1 && allowedOrigins[0] == "*"

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && !allowAll && !contains(allowedOrigins, origin) {
			HandleForbidden(w, "origin not allowed: "+origin)
			return
		}

		if allowAll {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		} else if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Mcp-Session-Id, Mcp-Protocol-Version")
		w.Header().Set("Access-Control-Expose-Headers", "Mcp-Session-Id, X-Request-Id")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func hostMiddleware(next http.Handler, allowedHosts []string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := r.Host
		bare := host
		if h, _, err := net.SplitHostPort(host); err == nil {
			bare = h
		}
		if !contains(allowedHosts, host) && !contains(allowedHosts, bare) {
			HandleForbidden(w, "host not allowed: "+host)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(strings.TrimSpace(item), v) {
			return true
		}
	}
	return false
}
