package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/localrivet/resourcemcp/internal/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resourcemcp.json")

	out, err := execute(t, "config", "init", path)
	if err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	if !strings.Contains(out, path) {
		t.Errorf("Expected output to name %s, got %q", path, out)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("Expected config file to exist: %v", err)
	}

	if _, err := execute(t, "config", "init", path); err == nil {
		t.Error("Expected second init without --force to fail")
	}
	if _, err := execute(t, "config", "init", "--force", path); err != nil {
		t.Errorf("Expected --force to overwrite, got %v", err)
	}
}

func TestConfigShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.json")

	out, err := execute(t, "config", "show", "--config", path)
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}

	var shown map[string]any
	if err := json.Unmarshal([]byte(out), &shown); err != nil {
		t.Fatalf("config show did not print JSON: %v\n%s", err, out)
	}
	store, _ := shown["store"].(map[string]any)
	if store["backend"] != config.DefaultBackend {
		t.Errorf("Expected default backend, got %v", store["backend"])
	}
}

func TestApplyOverrides(t *testing.T) {
	cmd := newServeCmd()
	if err := cmd.ParseFlags([]string{"--transport", "http", "--addr", ":8080", "--backend", "sqlite"}); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}

	cfg := config.NewConfig()
	opts := &serveOptions{transport: "http", addr: ":8080", backend: "sqlite"}
	applyOverrides(cmd, cfg, opts)

	if cfg.Server.Transport != "http" || cfg.Server.Addr != ":8080" || cfg.Store.Backend != "sqlite" {
		t.Errorf("Flags not applied: %+v %+v", cfg.Server, cfg.Store)
	}
	if cfg.Logging.Level != config.DefaultLogLevel {
		t.Errorf("Unchanged flags must not override config, got level %q", cfg.Logging.Level)
	}
}
