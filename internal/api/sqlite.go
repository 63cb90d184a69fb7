package api

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"crawshaw.io/sqlite"

	"github.com/localrivet/resourcemcp/internal/errortypes"
	"github.com/localrivet/resourcemcp/internal/record"
	"github.com/localrivet/resourcemcp/internal/util"
)

// SQLiteAPI is an implementation of API that stores records as JSON documents
// in a single SQLite table. Insertion order is kept by an autoincrement column.
type SQLiteAPI struct {
	mu     sync.Mutex
	conn   *sqlite.Conn
	dbPath string
	now    func() time.Time
}

// NewSQLiteAPI creates a new SQLiteAPI instance. Initialize must be called
// before use.
func NewSQLiteAPI() *SQLiteAPI {
	return &SQLiteAPI{now: time.Now}
}

// Initialize opens the database at dbPath and creates the schema.
func (s *SQLiteAPI) Initialize(dbPath string) error {
	s.dbPath = dbPath

	conn, err := sqlite.OpenConn(dbPath, sqlite.SQLITE_OPEN_CREATE|sqlite.SQLITE_OPEN_READWRITE)
	if err != nil {
		return fmt.Errorf("failed to open SQLite database: %w", err)
	}
	s.conn = conn

	if err := s.createTable(); err != nil {
		s.conn.Close()
		s.conn = nil
		return fmt.Errorf("failed to create table: %w", err)
	}

	return nil
}

// createTable creates the resources table if it doesn't exist.
func (s *SQLiteAPI) createTable() error {
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS resources (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		data TEXT NOT NULL,
		UNIQUE (collection, id)
	);`

	stmt, err := s.conn.Prepare(createTableSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare create table statement: %w", err)
	}
	defer stmt.Reset()

	if _, err := stmt.Step(); err != nil {
		return fmt.Errorf("failed to execute create table statement: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteAPI) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		err := s.conn.Close()
		s.conn = nil
		return err
	}
	return nil
}

func (s *SQLiteAPI) ready() error {
	if s.conn == nil {
		return errortypes.DatabaseError(fmt.Errorf("database %q is not open", s.dbPath), "sqlite backend not initialized")
	}
	return nil
}

// load returns the record stored under collection/id. found is false when
// the row does not exist.
func (s *SQLiteAPI) load(collection, id string) (rec record.Record, found bool, err error) {
	stmt, err := s.conn.Prepare(`SELECT data FROM resources WHERE collection = ? AND id = ?;`)
	if err != nil {
		return nil, false, fmt.Errorf("failed to prepare select statement: %w", err)
	}
	defer stmt.Reset()

	stmt.BindText(1, collection)
	stmt.BindText(2, id)

	hasRow, err := stmt.Step()
	if err != nil {
		return nil, false, fmt.Errorf("failed to execute select statement: %w", err)
	}
	if !hasRow {
		return nil, false, nil
	}

	rec, err = decode(stmt.ColumnText(0))
	if err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

func decode(text string) (record.Record, error) {
	var rec record.Record
	if err := json.Unmarshal([]byte(text), &rec); err != nil {
		return nil, fmt.Errorf("failed to decode stored record: %w", err)
	}
	return rec, nil
}

func encode(rec record.Record) (string, error) {
	b, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("failed to encode record: %w", err)
	}
	return string(b), nil
}

func (s *SQLiteAPI) Create(ctx context.Context, collection string, data record.Record) (CreateResult, error) {
	if err := ctx.Err(); err != nil {
		return CreateResult{}, err
	}
	normalized, err := record.Normalize(data)
	if err != nil {
		return CreateResult{}, errortypes.ValidationError(err, "invalid record data").WithField("collection", collection)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return CreateResult{}, err
	}

	var id string
	for {
		id = util.GenerateID(collection, s.now())
		_, taken, err := s.load(collection, id)
		if err != nil {
			return CreateResult{}, errortypes.DatabaseError(err, "failed to check id").WithField("collection", collection)
		}
		if !taken {
			break
		}
	}

	text, err := encode(normalized.WithID(id))
	if err != nil {
		return CreateResult{}, errortypes.InternalError(err, "failed to encode record").WithField("collection", collection)
	}

	stmt, err := s.conn.Prepare(`INSERT INTO resources (collection, id, data) VALUES (?, ?, ?);`)
	if err != nil {
		return CreateResult{}, errortypes.DatabaseError(err, "failed to prepare insert statement")
	}
	defer stmt.Reset()

	stmt.BindText(1, collection)
	stmt.BindText(2, id)
	stmt.BindText(3, text)

	if _, err := stmt.Step(); err != nil {
		return CreateResult{}, errortypes.DatabaseError(err, "failed to insert record").
			WithField("collection", collection).
			WithField("id", id)
	}
	return CreateResult{ID: id}, nil
}

func (s *SQLiteAPI) Get(ctx context.Context, collection, id string) (record.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return nil, err
	}

	rec, found, err := s.load(collection, id)
	if err != nil {
		return nil, errortypes.DatabaseError(err, "failed to load record").
			WithField("collection", collection).
			WithField("id", id)
	}
	if !found {
		return nil, errortypes.NotFound(collection, id)
	}
	return rec, nil
}

func (s *SQLiteAPI) List(ctx context.Context, collection string, query record.Query) ([]record.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q, err := record.NormalizeQuery(query)
	if err != nil {
		return nil, errortypes.ValidationError(err, "invalid query").WithField("collection", collection)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return nil, err
	}

	stmt, err := s.conn.Prepare(`SELECT data FROM resources WHERE collection = ? ORDER BY seq;`)
	if err != nil {
		return nil, errortypes.DatabaseError(err, "failed to prepare list statement")
	}
	defer stmt.Reset()

	stmt.BindText(1, collection)

	items := []record.Record{}
	for {
		hasRow, err := stmt.Step()
		if err != nil {
			return nil, errortypes.DatabaseError(err, "failed to execute list statement").WithField("collection", collection)
		}
		if !hasRow {
			break
		}

		rec, err := decode(stmt.ColumnText(0))
		if err != nil {
			return nil, errortypes.DatabaseError(err, "failed to decode record").WithField("collection", collection)
		}
		if rec.Matches(q) {
			items = append(items, rec)
		}
	}
	return items, nil
}

func (s *SQLiteAPI) Update(ctx context.Context, collection, id string, data record.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	patch, err := record.Normalize(data)
	if err != nil {
		return errortypes.ValidationError(err, "invalid record data").WithField("collection", collection)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return err
	}

	existing, found, err := s.load(collection, id)
	if err != nil {
		return errortypes.DatabaseError(err, "failed to load record").
			WithField("collection", collection).
			WithField("id", id)
	}
	if !found {
		return errortypes.NotFound(collection, id)
	}

	text, err := encode(existing.Merge(patch))
	if err != nil {
		return errortypes.InternalError(err, "failed to encode record").WithField("collection", collection)
	}

	stmt, err := s.conn.Prepare(`UPDATE resources SET data = ? WHERE collection = ? AND id = ?;`)
	if err != nil {
		return errortypes.DatabaseError(err, "failed to prepare update statement")
	}
	defer stmt.Reset()

	stmt.BindText(1, text)
	stmt.BindText(2, collection)
	stmt.BindText(3, id)

	if _, err := stmt.Step(); err != nil {
		return errortypes.DatabaseError(err, "failed to update record").
			WithField("collection", collection).
			WithField("id", id)
	}
	return nil
}

func (s *SQLiteAPI) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return err
	}

	stmt, err := s.conn.Prepare(`DELETE FROM resources WHERE collection = ? AND id = ?;`)
	if err != nil {
		return errortypes.DatabaseError(err, "failed to prepare delete statement")
	}
	defer stmt.Reset()

	stmt.BindText(1, collection)
	stmt.BindText(2, id)

	if _, err := stmt.Step(); err != nil {
		return errortypes.DatabaseError(err, "failed to delete record").
			WithField("collection", collection).
			WithField("id", id)
	}
	if s.conn.Changes() == 0 {
		return errortypes.NotFound(collection, id)
	}
	return nil
}
