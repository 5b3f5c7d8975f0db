package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/brandpulse-ai/brandpulse/internal/types"
)

// Config holds SQLite store configuration options.
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	BusyTimeout     time.Duration
}

// DefaultConfig returns sensible defaults for the given database path.
func DefaultConfig(path string) Config {
	return Config{
		Path:            path,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
		BusyTimeout:     5 * time.Second,
	}
}

// SQLiteStore keeps records as JSON documents in a single table, one
// row per record, tagged with their collection.
type SQLiteStore struct {
	conn *sql.DB
	path string
}

const documentsSchema = `
CREATE TABLE IF NOT EXISTS documents (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	collection TEXT NOT NULL,
	body       TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection);
`

// Open creates a SQLite-backed store at path with default settings.
func Open(path string) (*SQLiteStore, error) {
	return OpenWithConfig(DefaultConfig(path))
}

// OpenWithConfig creates a SQLite-backed store with custom settings.
// WAL journal mode and a busy timeout keep concurrent writers from
// tripping over each other.
func OpenWithConfig(cfg Config) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=%d",
		cfg.Path,
		int(cfg.BusyTimeout.Milliseconds()),
	)

	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, types.WrapError(types.STORE_OPEN_FAILED, "open database", err)
	}

	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, types.WrapError(types.STORE_OPEN_FAILED, "ping database", err)
	}

	if _, err := conn.ExecContext(ctx, documentsSchema); err != nil {
		conn.Close()
		return nil, types.WrapError(types.STORE_OPEN_FAILED, "initialize schema", err)
	}

	return &SQLiteStore{conn: conn, path: cfg.Path}, nil
}

// Save appends records to a collection inside one transaction.
func (s *SQLiteStore) Save(ctx context.Context, collection string, records ...Record) error {
	if collection == "" {
		return types.NewError(types.STORE_SAVE_FAILED, "collection name cannot be empty")
	}
	if len(records) == 0 {
		return nil
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return types.WrapError(types.STORE_SAVE_FAILED, "begin transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO documents (collection, body) VALUES (?, ?)")
	if err != nil {
		return types.WrapError(types.STORE_SAVE_FAILED, "prepare insert", err)
	}
	defer stmt.Close()

	for _, record := range records {
		body, err := json.Marshal(record)
		if err != nil {
			return types.WrapError(types.STORE_SAVE_FAILED, "marshal record", err)
		}
		if _, err := stmt.ExecContext(ctx, collection, string(body)); err != nil {
			return types.WrapError(types.STORE_SAVE_FAILED, "insert record", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return types.WrapError(types.STORE_SAVE_FAILED, "commit transaction", err)
	}
	return nil
}

// Query returns records from a collection matching the filter. Filter
// matching happens after unmarshalling so values compare by their JSON
// representation.
func (s *SQLiteStore) Query(ctx context.Context, collection string, filter Filter, opts QueryOptions) ([]Record, error) {
	order := "ASC"
	if opts.Newest {
		order = "DESC"
	}
	query := fmt.Sprintf("SELECT body FROM documents WHERE collection = ? ORDER BY id %s", order)

	rows, err := s.conn.QueryContext(ctx, query, collection)
	if err != nil {
		return nil, types.WrapError(types.STORE_QUERY_FAILED, "query documents", err)
	}
	defer rows.Close()

	var results []Record
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, types.WrapError(types.STORE_QUERY_FAILED, "scan row", err)
		}

		var record Record
		if err := json.Unmarshal([]byte(body), &record); err != nil {
			return nil, types.WrapError(types.STORE_QUERY_FAILED, "unmarshal record", err)
		}

		if !matches(record, filter) {
			continue
		}
		results = append(results, record)
		if opts.Limit > 0 && len(results) >= opts.Limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, types.WrapError(types.STORE_QUERY_FAILED, "iterate rows", err)
	}
	return results, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Health checks that the database still answers queries.
func (s *SQLiteStore) Health(ctx context.Context) error {
	var result int
	if err := s.conn.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return types.WrapError(types.STORE_QUERY_FAILED, "health query", err)
	}
	return nil
}

func matches(record Record, filter Filter) bool {
	for key, want := range filter {
		got, ok := record[key]
		if !ok {
			return false
		}
		// Normalize both sides through JSON so numeric types compare.
		gotJSON, err1 := json.Marshal(got)
		wantJSON, err2 := json.Marshal(want)
		if err1 != nil || err2 != nil || string(gotJSON) != string(wantJSON) {
			return false
		}
	}
	return true
}
