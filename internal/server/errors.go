package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/localrivet/resourcemcp/internal/errortypes"
)

// ErrorResponse represents the structure of plain HTTP error responses
type ErrorResponse struct {
	Status     string         `json:"status"`
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	StatusCode int            `json:"statusCode"`
	Details    map[string]any `json:"details,omitempty"`
}

// Error response codes for failures outside the resource kinds
const (
	StatusCodeValidationError = "VALIDATION_ERROR"
	StatusCodeDatabaseError   = "DATABASE_ERROR"
	StatusCodeNetworkError    = "NETWORK_ERROR"
	StatusCodeConfigError     = "CONFIG_ERROR"
	StatusCodeInternalError   = "INTERNAL_ERROR"
	StatusCodeForbidden       = "FORBIDDEN"
)

// JSON-RPC 2.0 error codes
const (
	JSONRPCInvalidRequest = -32600
	JSONRPCInternalError  = -32603
)

// JSONRPCError is the error member of a JSON-RPC 2.0 response.
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// JSONRPCErrorResponse is a JSON-RPC 2.0 response carrying an error.
type JSONRPCErrorResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Error   JSONRPCError    `json:"error"`
	ID      json.RawMessage `json:"id"`
}

// WriteJSONRPCError writes a JSON-RPC error envelope. A nil id is encoded
// as JSON null.
func WriteJSONRPCError(w http.ResponseWriter, status, code int, message string, id json.RawMessage) {
	if len(id) == 0 {
		id = json.RawMessage("null")
	}
	writeJSON(w, status, JSONRPCErrorResponse{
		JSONRPC: "2.0",
		Error:   JSONRPCError{Code: code, Message: message},
		ID:      id,
	})
}

// HandleError writes err as a structured HTTP error. The status comes from
// the error kind; the code names the kind or the AppError type.
func HandleError(w http.ResponseWriter, err error) {
	resp := errorToResponse(err)
	if err != nil {
		errortypes.LogError(nil, err)
	}
	writeJSON(w, resp.StatusCode, resp)
}

// HandleForbidden writes a 403 for requests rejected before dispatch.
func HandleForbidden(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusForbidden, ErrorResponse{
		Status:     "error",
		Code:       StatusCodeForbidden,
		Message:    message,
		StatusCode: http.StatusForbidden,
	})
}

// errorToResponse converts an error to a standardized ErrorResponse
func errorToResponse(err error) ErrorResponse {
	resp := ErrorResponse{
		Status:     "error",
		Code:       StatusCodeInternalError,
		StatusCode: errortypes.StatusCodeOf(err),
	}
	if err == nil {
		resp.StatusCode = http.StatusInternalServerError
		resp.Message = "unknown error"
		return resp
	}
	resp.Message = err.Error()

	if kind := errortypes.KindOf(err); kind != "" {
		resp.Code = string(kind)
		return resp
	}

	var appErr *errortypes.AppError
	if errors.As(err, &appErr) {
		resp.Details = appErr.Fields
		switch appErr.Type {
		case errortypes.ErrorTypeValidation:
			resp.Code = StatusCodeValidationError
		case errortypes.ErrorTypeDatabase:
			resp.Code = StatusCodeDatabaseError
		case errortypes.ErrorTypeNetwork:
			resp.Code = StatusCodeNetworkError
		case errortypes.ErrorTypeConfig:
			resp.Code = StatusCodeConfigError
		}
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode JSON response", "error", err, "status", status)
	}
}
