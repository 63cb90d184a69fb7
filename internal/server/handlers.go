package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/localrivet/resourcemcp/internal/api"
	"github.com/localrivet/resourcemcp/internal/errortypes"
	"github.com/localrivet/resourcemcp/internal/record"
	"github.com/localrivet/resourcemcp/internal/resolver"
	"github.com/localrivet/resourcemcp/internal/tools"
)

// Gateway translates CRUD tool calls and resource reads into calls on an
// api.API. It does not depend on any transport; the stdio and HTTP servers
// bind it to their protocol libraries.
type Gateway struct {
	api      api.API
	resolver *resolver.Resolver
	logger   *slog.Logger
}

// NewGateway creates a Gateway over a. A nil resolver registers the default
// collection types; a nil logger uses slog.Default.
func NewGateway(a api.API, r *resolver.Resolver, logger *slog.Logger) *Gateway {
	if r == nil {
		r = resolver.New(a)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		api:      a,
		resolver: r,
		logger:   logger,
	}
}

// Resolver returns the resolver used for resource reads.
func (g *Gateway) Resolver() *resolver.Resolver {
	return g.resolver
}

// Create handles the create tool.
func (g *Gateway) Create(ctx context.Context, req tools.CreateRequest) tools.Response {
	g.logger.Info("Processing create request", "resource", req.Resource)

	if err := requireFields(req.Resource, "", false, req.Data != nil, true); err != nil {
		return g.errorResponse(fmt.Sprintf("Error creating %s: ", req.Resource), err)
	}

	result, err := g.api.Create(ctx, req.Resource, record.Record(req.Data))
	if err != nil {
		return g.errorResponse(fmt.Sprintf("Error creating %s: ", req.Resource), err)
	}

	g.logger.Info("Successfully created resource", "resource", req.Resource, "id", result.ID)
	return tools.Response{
		Status:  tools.StatusSuccess,
		Message: fmt.Sprintf("Created %s with id: %s", req.Resource, result.ID),
		ID:      result.ID,
	}
}

// Get handles the get tool.
func (g *Gateway) Get(ctx context.Context, req tools.GetRequest) tools.Response {
	g.logger.Info("Processing get request", "resource", req.Resource, "id", req.ID)

	if err := requireFields(req.Resource, req.ID, true, false, false); err != nil {
		return g.errorResponse("Error: ", err)
	}

	item, err := g.api.Get(ctx, req.Resource, req.ID)
	if err != nil {
		return g.errorResponse("Error: ", err)
	}

	return g.jsonResponse(item, req.ID)
}

// List handles the list tool.
func (g *Gateway) List(ctx context.Context, req tools.ListRequest) tools.Response {
	g.logger.Info("Processing list request", "resource", req.Resource, "filters", len(req.Query))

	if err := requireFields(req.Resource, "", false, false, false); err != nil {
		return g.errorResponse(fmt.Sprintf("Error listing %s: ", req.Resource), err)
	}

	items, err := g.api.List(ctx, req.Resource, record.Query(req.Query))
	if err != nil {
		return g.errorResponse(fmt.Sprintf("Error listing %s: ", req.Resource), err)
	}

	g.logger.Debug("Listed resources", "resource", req.Resource, "count", len(items))
	return g.jsonResponse(items, "")
}

// Update handles the update tool.
func (g *Gateway) Update(ctx context.Context, req tools.UpdateRequest) tools.Response {
	g.logger.Info("Processing update request", "resource", req.Resource, "id", req.ID)

	if err := requireFields(req.Resource, req.ID, true, req.Data != nil, true); err != nil {
		return g.errorResponse("Error: ", err)
	}

	if err := g.api.Update(ctx, req.Resource, req.ID, record.Record(req.Data)); err != nil {
		return g.errorResponse("Error: ", err)
	}

	g.logger.Info("Successfully updated resource", "resource", req.Resource, "id", req.ID)
	return tools.Response{
		Status:  tools.StatusSuccess,
		Message: fmt.Sprintf("Successfully updated %s with id: %s", req.Resource, req.ID),
		ID:      req.ID,
	}
}

// Delete handles the delete tool.
func (g *Gateway) Delete(ctx context.Context, req tools.DeleteRequest) tools.Response {
	g.logger.Info("Processing delete request", "resource", req.Resource, "id", req.ID)

	if err := requireFields(req.Resource, req.ID, true, false, false); err != nil {
		return g.errorResponse("Error: ", err)
	}

	if err := g.api.Delete(ctx, req.Resource, req.ID); err != nil {
		return g.errorResponse("Error: ", err)
	}

	g.logger.Info("Successfully deleted resource", "resource", req.Resource, "id", req.ID)
	return tools.Response{
		Status:  tools.StatusSuccess,
		Message: fmt.Sprintf("Successfully deleted %s with id: %s", req.Resource, req.ID),
		ID:      req.ID,
	}
}

// ReadResource resolves uri. Errors keep their kind so each transport can
// map them onto its own error codes.
func (g *Gateway) ReadResource(ctx context.Context, uri string) (resolver.ReadResult, error) {
	g.logger.Debug("Reading resource", "uri", uri)

	result, err := g.resolver.Resolve(ctx, uri)
	if err != nil {
		errortypes.LogError(g.logger, err)
		return resolver.ReadResult{}, err
	}
	return result, nil
}

// CallTool decodes raw JSON arguments for the named tool and runs it.
func (g *Gateway) CallTool(ctx context.Context, name string, arguments []byte) tools.Response {
	if len(arguments) == 0 {
		arguments = []byte("{}")
	}

	decode := func(v any) error {
		if err := json.Unmarshal(arguments, v); err != nil {
			return errortypes.ValidationError(err, "invalid arguments").WithField("tool", name)
		}
		return nil
	}

	switch name {
	case tools.ToolCreate:
		var req tools.CreateRequest
		if err := decode(&req); err != nil {
			return g.errorResponse("Error: ", err)
		}
		return g.Create(ctx, req)
	case tools.ToolGet:
		var req tools.GetRequest
		if err := decode(&req); err != nil {
			return g.errorResponse("Error: ", err)
		}
		return g.Get(ctx, req)
	case tools.ToolList:
		var req tools.ListRequest
		if err := decode(&req); err != nil {
			return g.errorResponse("Error: ", err)
		}
		return g.List(ctx, req)
	case tools.ToolUpdate:
		var req tools.UpdateRequest
		if err := decode(&req); err != nil {
			return g.errorResponse("Error: ", err)
		}
		return g.Update(ctx, req)
	case tools.ToolDelete:
		var req tools.DeleteRequest
		if err := decode(&req); err != nil {
			return g.errorResponse("Error: ", err)
		}
		return g.Delete(ctx, req)
	default:
		err := errortypes.ValidationError(fmt.Errorf("unknown tool %q", name), "invalid tool call")
		return g.errorResponse("Error: ", err)
	}
}

func (g *Gateway) jsonResponse(data any, id string) tools.Response {
	text, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return g.errorResponse("Error: ", errortypes.InternalError(err, "failed to encode result"))
	}
	return tools.Response{
		Status:  tools.StatusSuccess,
		Message: string(text),
		ID:      id,
		Data:    data,
	}
}

func (g *Gateway) errorResponse(prefix string, err error) tools.Response {
	errortypes.LogError(g.logger, err)

	return tools.Response{
		Status:     tools.StatusError,
		Message:    prefix + err.Error(),
		Error:      err.Error(),
		Kind:       string(errortypes.KindOf(err)),
		StatusCode: errortypes.StatusCodeOf(err),
	}
}

// requireFields checks the argument shape shared by the CRUD tools.
func requireFields(resource, id string, needID, hasData, needData bool) error {
	var missing error
	switch {
	case resource == "":
		missing = errors.New("resource is required")
	case needID && id == "":
		missing = errors.New("id is required")
	case needData && !hasData:
		missing = errors.New("data is required")
	}
	if missing != nil {
		return errortypes.ValidationError(missing, "invalid request")
	}
	return nil
}
