package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/localrivet/resourcemcp/internal/errortypes"
	"github.com/localrivet/resourcemcp/internal/record"
	"github.com/localrivet/resourcemcp/internal/telemetry"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSQLiteAPI(t *testing.T) *SQLiteAPI {
	t.Helper()
	s := NewSQLiteAPI()
	if err := s.Initialize(filepath.Join(t.TempDir(), "resources.db")); err != nil {
		t.Fatalf("Failed to initialize sqlite backend: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMemoryAPIIDFormat(t *testing.T) {
	m := NewMemoryAPI()
	m.now = func() time.Time { return time.UnixMilli(1700000000000) }

	res, err := m.Create(context.Background(), "users", record.Record{"name": "Alice"})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if !strings.HasPrefix(res.ID, "users-1700000000000-") {
		t.Errorf("Unexpected id format: %s", res.ID)
	}
}

func TestMemoryAPIReadsDoNotCreateCollections(t *testing.T) {
	m := NewMemoryAPI()
	ctx := context.Background()

	m.Get(ctx, "ghost", "x")
	m.List(ctx, "ghost", nil)
	m.Delete(ctx, "ghost", "x")

	if got := m.Collections(); len(got) != 0 {
		t.Errorf("Expected no collections, got %v", got)
	}

	if _, err := m.Create(ctx, "users", nil); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if got := m.Collections(); len(got) != 1 || got[0] != "users" {
		t.Errorf("Expected [users], got %v", got)
	}
}

func TestMemoryAPICreateRejectsNonJSON(t *testing.T) {
	m := NewMemoryAPI()
	_, err := m.Create(context.Background(), "users", record.Record{"fn": func() {}})
	if !errortypes.IsValidationError(err) {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestMemoryAPIConcurrentCreates(t *testing.T) {
	m := NewMemoryAPI()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := m.Create(ctx, "users", record.Record{"n": i}); err != nil {
				t.Errorf("Create returned error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	items, err := m.List(ctx, "users", nil)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(items) != 50 {
		t.Errorf("Expected 50 records, got %d", len(items))
	}
}

func TestSQLiteAPIPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()

	first := NewSQLiteAPI()
	if err := first.Initialize(path); err != nil {
		t.Fatalf("Initialize returned error: %v", err)
	}
	res, err := first.Create(ctx, "orders", record.Record{"total": 12.5})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	second := NewSQLiteAPI()
	if err := second.Initialize(path); err != nil {
		t.Fatalf("Initialize returned error: %v", err)
	}
	defer second.Close()

	got, err := second.Get(ctx, "orders", res.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got["total"] != 12.5 {
		t.Errorf("Expected total 12.5, got %v", got["total"])
	}
}

func TestSQLiteAPIUninitialized(t *testing.T) {
	s := NewSQLiteAPI()
	_, err := s.Get(context.Background(), "users", "x")
	if !errortypes.IsDatabaseError(err) {
		t.Errorf("Expected database error, got %v", err)
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		path    string
		wantErr bool
	}{
		{"default", "", "", false},
		{"memory", BackendMemory, "", false},
		{"sqlite", BackendSQLite, filepath.Join(t.TempDir(), "f.db"), false},
		{"sqlite without path", BackendSQLite, "", true},
		{"unknown", "redis", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := New(tt.backend, tt.path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if a != nil {
				if err := Close(a); err != nil {
					t.Errorf("Close returned error: %v", err)
				}
			}
		})
	}
}

func TestInstrumentedAPIRecordsMetrics(t *testing.T) {
	metrics := telemetry.NewMetricsCollector()
	a := NewInstrumentedAPI(NewMemoryAPI(), discardLogger(), metrics)
	ctx := context.Background()

	res, err := a.Create(ctx, "users", record.Record{"name": "Alice"})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	a.Create(ctx, "orders", nil)
	a.Get(ctx, "users", res.ID)
	a.Get(ctx, "users", "missing")
	a.List(ctx, "users", nil)

	checks := map[string]int64{
		"api.calls.create":    2,
		"api.calls.get":       2,
		"api.calls.list":      1,
		"api.failures.get":    1,
		"api.not_found.get":   1,
		"api.failures.create": 0,
	}
	for name, want := range checks {
		if got := metrics.GetCounter(name); got != want {
			t.Errorf("counter %s = %d, want %d", name, got, want)
		}
	}
	if got := metrics.GetGauge(telemetry.MetricCollections); got != 2 {
		t.Errorf("Expected 2 collections, got %v", got)
	}
	if a.Metrics() != metrics {
		t.Error("Expected Metrics() to return the injected collector")
	}
}

// failingAPI returns the same error from every operation.
type failingAPI struct {
	err error
}

func (f failingAPI) Create(context.Context, string, record.Record) (CreateResult, error) {
	return CreateResult{}, f.err
}
func (f failingAPI) Get(context.Context, string, string) (record.Record, error) { return nil, f.err }
func (f failingAPI) List(context.Context, string, record.Query) ([]record.Record, error) {
	return nil, f.err
}
func (f failingAPI) Update(context.Context, string, string, record.Record) error { return f.err }
func (f failingAPI) Delete(context.Context, string, string) error { return f.err }

func TestInstrumentedAPIPassesErrorsThrough(t *testing.T) {
	boom := errors.New("boom")
	a := NewInstrumentedAPI(failingAPI{err: boom}, discardLogger(), nil)
	ctx := context.Background()

	if _, err := a.Create(ctx, "users", nil); err != boom {
		t.Errorf("Create error = %v, want %v", err, boom)
	}
	if err := a.Update(ctx, "users", "x", nil); err != boom {
		t.Errorf("Update error = %v, want %v", err, boom)
	}
	if err := a.Delete(ctx, "users", "x"); err != boom {
		t.Errorf("Delete error = %v, want %v", err, boom)
	}
	if got := a.Metrics().GetCounter("api.failures.delete"); got != 1 {
		t.Errorf("Expected 1 delete failure, got %d", got)
	}
	if a.Unwrap() == nil {
		t.Error("Expected Unwrap to return the decorated API")
	}
}
