package errortypes

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"testing"
)

func TestNotFound(t *testing.T) {
	err := NotFound("users", "u1")

	if err.Kind != KindNotFound {
		t.Errorf("Expected kind %s, got %s", KindNotFound, err.Kind)
	}
	if err.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status %d, got %d", http.StatusNotFound, err.StatusCode)
	}
	if err.Error() != "users with id u1 not found" {
		t.Errorf("Unexpected message: %s", err.Error())
	}
}

func TestInvalidURI(t *testing.T) {
	err := InvalidURI("users-42")

	if err.Kind != KindInvalidURI {
		t.Errorf("Expected kind %s, got %s", KindInvalidURI, err.Kind)
	}
	if err.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status %d, got %d", http.StatusBadRequest, err.StatusCode)
	}
	if !strings.Contains(err.Error(), "users-42") {
		t.Errorf("Expected message to mention the uri, got: %s", err.Error())
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	wrapped := fmt.Errorf("gateway: %w", NotFound("orders", "missing"))

	if !IsNotFound(wrapped) {
		t.Error("Expected wrapped error to be NOT_FOUND")
	}
	if IsInvalidURI(wrapped) {
		t.Error("Did not expect wrapped error to be INVALID_URI")
	}
	if got := StatusCodeOf(wrapped); got != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", got)
	}
	if !errors.Is(wrapped, &APIError{Kind: KindNotFound}) {
		t.Error("Expected errors.Is to match on kind")
	}
	if errors.Is(wrapped, &APIError{Kind: KindInvalidURI}) {
		t.Error("Did not expect errors.Is to match a different kind")
	}
}

func TestStatusCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"not found", NotFound("a", "b"), http.StatusNotFound},
		{"invalid uri", InvalidURI("x"), http.StatusBadRequest},
		{"validation", ValidationError(errors.New("bad"), "invalid"), http.StatusBadRequest},
		{"database", DatabaseError(errors.New("disk"), "write failed"), http.StatusInternalServerError},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusCodeOf(tt.err); got != tt.want {
				t.Errorf("StatusCodeOf() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestKindOfPlainError(t *testing.T) {
	if got := KindOf(errors.New("plain")); got != "" {
		t.Errorf("Expected empty kind, got %q", got)
	}
}

func TestAppError(t *testing.T) {
	baseErr := errors.New("base error")
	appErr := ConfigError(baseErr, "config failed").WithField("path", "/tmp/x")

	if appErr.Type != ErrorTypeConfig {
		t.Errorf("Expected type %s, got %s", ErrorTypeConfig, appErr.Type)
	}
	if !strings.Contains(appErr.Error(), "config failed") || !strings.Contains(appErr.Error(), "base error") {
		t.Errorf("Error message incorrect: %s", appErr.Error())
	}
	if !errors.Is(appErr, baseErr) {
		t.Error("Expected AppError to unwrap to the base error")
	}
	if appErr.Fields["path"] != "/tmp/x" {
		t.Errorf("Expected field path, got %v", appErr.Fields)
	}
	if !IsConfigError(appErr) || IsDatabaseError(appErr) {
		t.Error("Type predicates disagree with error type")
	}
}

func TestNilUnderlyingError(t *testing.T) {
	appErr := InternalError(nil, "something")
	if appErr.Err == nil {
		t.Fatal("Expected placeholder underlying error")
	}
}

func TestLogError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	LogError(logger, NotFound("users", "u9"))
	if !strings.Contains(buf.String(), "kind=NOT_FOUND") || !strings.Contains(buf.String(), "status_code=404") {
		t.Errorf("Expected kind and status in log output, got: %s", buf.String())
	}

	buf.Reset()
	LogError(logger, DatabaseError(errors.New("locked"), "insert failed").WithField("collection", "users"))
	out := buf.String()
	if !strings.Contains(out, "insert failed") || !strings.Contains(out, "type=database") || !strings.Contains(out, "collection=users") {
		t.Errorf("Expected structured AppError in log output, got: %s", out)
	}

	buf.Reset()
	LogError(logger, errors.New("plain failure"))
	if !strings.Contains(buf.String(), "plain failure") {
		t.Errorf("Expected plain error in log output, got: %s", buf.String())
	}
}
