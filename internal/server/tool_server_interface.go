package server

// ResourceToolServer defines the interface for a transport that serves the
// CRUD tools and collection resources to MCP clients.
type ResourceToolServer interface {
	// Initialize registers tools and resources with the protocol library.
	Initialize() error

	// Start serves requests. It blocks until the transport stops.
	Start() error

	// Stop gracefully shuts down the transport.
	Stop() error
}

var (
	_ ResourceToolServer = (*StdioServer)(nil)
	_ ResourceToolServer = (*HTTPServer)(nil)
)
