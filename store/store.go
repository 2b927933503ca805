// Package store provides durable interpretation records.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/ZaguanLabs/slanger"
)

// Supported SQL drivers.
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite3"
)

var schemas = map[string]string{
	DriverMySQL: `
CREATE TABLE IF NOT EXISTS interpretations (
	id         BIGINT AUTO_INCREMENT PRIMARY KEY,
	term       VARCHAR(100) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL,
	meaning    TEXT NOT NULL,
	example    TEXT NOT NULL,
	created_at DATETIME(6) NOT NULL,
	INDEX idx_interpretations_term_created (term, created_at)
) DEFAULT CHARSET = utf8mb4`,
	DriverSQLite: `
CREATE TABLE IF NOT EXISTS interpretations (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	term       TEXT NOT NULL,
	meaning    TEXT NOT NULL,
	example    TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_interpretations_term_created ON interpretations(term, created_at);`,
}

// SQLStore implements slanger.RecordStore on MySQL or SQLite.
type SQLStore struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewSQLStore wraps an open database handle.
func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db, now: time.Now}
}

// Open connects to driver/dsn and returns a store. The schema is not
// created; call EnsureSchema for that.
func Open(driver, dsn string) (*SQLStore, error) {
	switch driver {
	case DriverMySQL:
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("mysql.ParseDSN() > %w", err)
		}
		cfg.ParseTime = true
		cfg.Loc = time.UTC
		dsn = cfg.FormatDSN()
	case DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlx.Open() > %w", err)
	}
	if driver == DriverSQLite {
		// database/sql would give every pooled connection its own :memory: database.
		db.SetMaxOpenConns(1)
	}
	return NewSQLStore(db), nil
}

// EnsureSchema creates the interpretations table if it does not exist.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	schema, ok := schemas[s.db.DriverName()]
	if !ok {
		return fmt.Errorf("no schema for driver %q", s.db.DriverName())
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return &slanger.StoreError{Op: "ensure schema", Cause: err}
	}
	return nil
}

// FindLatestByTerm returns the most recently created record for term,
// or nil if there is none.
func (s *SQLStore) FindLatestByTerm(ctx context.Context, term string) (*slanger.Record, error) {
	var rec slanger.Record
	err := s.db.GetContext(ctx, &rec,
		`SELECT id, term, meaning, example, created_at FROM interpretations
		 WHERE term = ? ORDER BY created_at DESC, id DESC LIMIT 1`, term)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &slanger.StoreError{Op: "find latest", Term: term, Cause: err}
	}
	return &rec, nil
}

// Append inserts a new record. Existing records are never modified.
func (s *SQLStore) Append(ctx context.Context, term, meaning, example string) (*slanger.Record, error) {
	rec := slanger.Record{
		Term:      term,
		Meaning:   meaning,
		Example:   example,
		CreatedAt: s.now().UTC().Truncate(time.Microsecond),
	}

	res, err := s.db.NamedExecContext(ctx,
		`INSERT INTO interpretations (term, meaning, example, created_at)
		 VALUES (:term, :meaning, :example, :created_at)`, &rec)
	if err != nil {
		return nil, &slanger.StoreError{Op: "append", Term: term, Cause: err}
	}
	if id, err := res.LastInsertId(); err == nil {
		rec.ID = id
	}
	return &rec, nil
}

// Terms returns every distinct term, sorted.
func (s *SQLStore) Terms(ctx context.Context) ([]string, error) {
	var terms []string
	if err := s.db.SelectContext(ctx, &terms, "SELECT DISTINCT term FROM interpretations ORDER BY term"); err != nil {
		return nil, &slanger.StoreError{Op: "terms", Cause: err}
	}
	return terms, nil
}

// Close closes the database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

var _ slanger.RecordStore = (*SQLStore)(nil)
