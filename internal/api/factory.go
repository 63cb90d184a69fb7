package api

import (
	"fmt"
)

// Backend names accepted by New.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// New creates an API based on the backend name.
//
// Supported backends:
//
//	"memory" - in-memory reference backend (default)
//	"sqlite" - SQLite database at sqlitePath
func New(backend, sqlitePath string) (API, error) {
	switch backend {
	case BackendMemory, "":
		return NewMemoryAPI(), nil
	case BackendSQLite:
		if sqlitePath == "" {
			return nil, fmt.Errorf("sqlite backend requires a database path")
		}
		s := NewSQLiteAPI()
		if err := s.Initialize(sqlitePath); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store backend: %q (supported: memory, sqlite)", backend)
	}
}
