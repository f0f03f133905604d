package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported driver names, as registered with database/sql.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Store is an open audit database plus the driver it speaks.
type Store struct {
	DB     *sql.DB
	Driver string
}

// Connect opens the database, checks it is reachable and applies the schema.
func Connect(driver, dsn string) (*Store, error) {
	switch driver {
	case DriverPostgres:
	case DriverSQLite:
		if dsn != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
				return nil, fmt.Errorf("creating db directory: %w", err)
			}
		}
	default:
		return nil, fmt.Errorf("unsupported db driver %q", driver)
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	if driver == DriverSQLite {
		// One writer; also keeps ":memory:" on a single shared database.
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, err
	}

	s := &Store{DB: conn, Driver: driver}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.DB.Close()
}

// Rebind rewrites "?" placeholders into "$n" for Postgres.
func (s *Store) Rebind(query string) string {
	if s.Driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS prediction_events (
		id TEXT PRIMARY KEY,
		created_at_ms BIGINT NOT NULL,
		request_id TEXT,
		user_id INTEGER,
		session_id TEXT,
		platform TEXT NOT NULL,
		app_version TEXT,
		device_locale TEXT,
		snapshot TEXT NOT NULL,
		predicted_view TEXT,
		predicted_status_filter TEXT,
		predicted_priority_filter TEXT,
		error TEXT,
		latency_ms DOUBLE PRECISION NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_prediction_events_created_at ON prediction_events (created_at_ms)`,
}

func (s *Store) migrate() error {
	for i, stmt := range migrations {
		if _, err := s.DB.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
