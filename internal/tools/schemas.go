// Package tools defines the names, request and response shapes of the CRUD
// tools exposed by the resourcemcp gateway.
package tools

const (
	// ToolCreate is the name of the create MCP tool
	ToolCreate = "create"

	// ToolGet is the name of the get MCP tool
	ToolGet = "get"

	// ToolList is the name of the list MCP tool
	ToolList = "list"

	// ToolUpdate is the name of the update MCP tool
	ToolUpdate = "update"

	// ToolDelete is the name of the delete MCP tool
	ToolDelete = "delete"
)

// Response status values
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Tool describes one tool for registration on a transport.
type Tool struct {
	Name        string
	Title       string
	Description string
	InputSchema map[string]any
}

// All returns the five CRUD tools in registration order.
func All() []Tool {
	return []Tool{
		{ToolCreate, "Create Resource", "Creates a new resource in the specified collection", CreateSchema()},
		{ToolGet, "Get Resource", "Retrieves a specific resource by ID", GetSchema()},
		{ToolList, "List Resources", "Lists all resources of a type with optional filtering", ListSchema()},
		{ToolUpdate, "Update Resource", "Updates an existing resource", UpdateSchema()},
		{ToolDelete, "Delete Resource", "Deletes a resource by ID", DeleteSchema()},
	}
}

// CreateRequest defines the input schema for create tool
type CreateRequest struct {
	// Resource is the collection name, e.g. "users" or "products"
	Resource string `json:"resource" description:"Resource type (e.g., 'users', 'products')" required:"true"`

	// Data is the record to create. Any id field is replaced by the generated id.
	Data map[string]any `json:"data" description:"Resource data to create" required:"true"`
}

// GetRequest defines the input schema for get tool
type GetRequest struct {
	Resource string `json:"resource" description:"Resource type" required:"true"`
	ID       string `json:"id" description:"Resource ID" required:"true"`
}

// ListRequest defines the input schema for list tool
type ListRequest struct {
	Resource string `json:"resource" description:"Resource type" required:"true"`

	// Query holds exact-match filter criteria. Omitted or empty lists everything.
	Query map[string]any `json:"query,omitempty" description:"Optional filter criteria"`
}

// UpdateRequest defines the input schema for update tool
type UpdateRequest struct {
	Resource string         `json:"resource" description:"Resource type" required:"true"`
	ID       string         `json:"id" description:"Resource ID" required:"true"`
	Data     map[string]any `json:"data" description:"Data to update" required:"true"`
}

// DeleteRequest defines the input schema for delete tool
type DeleteRequest struct {
	Resource string `json:"resource" description:"Resource type" required:"true"`
	ID       string `json:"id" description:"Resource ID" required:"true"`
}

// Response defines the output of every CRUD tool
type Response struct {
	// Status indicates the result of the operation ("success" or "error")
	Status string `json:"status"`

	// Message is the human-readable outcome shown to the caller
	Message string `json:"message"`

	// ID is the identifier of the record created, updated or deleted
	ID string `json:"id,omitempty"`

	// Data holds the record returned by get or the records returned by list
	Data any `json:"data,omitempty"`

	// Error contains an error message if Status is "error"
	Error string `json:"error,omitempty"`

	// Kind is the machine-readable error kind, e.g. "NOT_FOUND"
	Kind string `json:"kind,omitempty"`

	// StatusCode is the status hint of the error
	StatusCode int `json:"statusCode,omitempty"`
}

// IsError reports whether the response describes a failure.
func (r Response) IsError() bool {
	return r.Status == StatusError
}

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func objectProp(description string) map[string]any {
	return map[string]any{"type": "object", "description": description, "additionalProperties": true}
}

// CreateSchema is the JSON schema of CreateRequest.
func CreateSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"resource": stringProp("Resource type (e.g., 'users', 'products')"),
			"data":     objectProp("Resource data to create"),
		},
		"required": []string{"resource", "data"},
	}
}

// GetSchema is the JSON schema of GetRequest.
func GetSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"resource": stringProp("Resource type"),
			"id":       stringProp("Resource ID"),
		},
		"required": []string{"resource", "id"},
	}
}

// ListSchema is the JSON schema of ListRequest.
func ListSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"resource": stringProp("Resource type"),
			"query":    objectProp("Optional filter criteria"),
		},
		"required": []string{"resource"},
	}
}

// UpdateSchema is the JSON schema of UpdateRequest.
func UpdateSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"resource": stringProp("Resource type"),
			"id":       stringProp("Resource ID"),
			"data":     objectProp("Data to update"),
		},
		"required": []string{"resource", "id", "data"},
	}
}

// DeleteSchema is the JSON schema of DeleteRequest.
func DeleteSchema() map[string]any {
	return GetSchema()
}
