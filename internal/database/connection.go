package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// DB is the global database connection
var DB *sqlx.DB

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("not found")

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
)

// Config selects the driver and data source
type Config struct {
	Driver string
	// DSN is a connection string for postgres/pgx or a file path for sqlite.
	// ":memory:" opens a private in-memory sqlite database.
	DSN string
}

// Connect establishes a connection to the database and creates the schema
func Connect(cfg Config) error {
	db, err := Open(cfg)
	if err != nil {
		return err
	}
	DB = db
	return initializeSchema()
}

// Open opens a connection without touching the global handle
func Open(cfg Config) (*sqlx.DB, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverSQLite
	}

	switch driver {
	case DriverSQLite:
		dsn := cfg.DSN
		if dsn == "" {
			dsn = filepath.Join("data", "studyquiz.db")
		}
		if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
			if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}

		db, err := sqlx.Connect(driver, dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		// SQLite doesn't support multiple writers, and an in-memory
		// database lives only as long as its single connection
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)

		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
		return db, nil

	case DriverPostgres, DriverPgx:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("database URL is required for driver %s", driver)
		}
		db, err := sqlx.Connect(driver, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		return db, nil

	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Close closes the database connection
func Close() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}

// initializeSchema creates necessary tables if they don't exist.
// The statements are valid for both SQLite and PostgreSQL.
func initializeSchema() error {
	// Create categories table
	_, err := DB.Exec(`
		CREATE TABLE IF NOT EXISTS categories (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create categories table: %w", err)
	}

	// Create questions table
	_, err = DB.Exec(`
		CREATE TABLE IF NOT EXISTS questions (
			id TEXT PRIMARY KEY,
			category_id TEXT NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
			type TEXT NOT NULL,
			question_text TEXT NOT NULL,
			image_url TEXT NOT NULL DEFAULT '',
			correct_answer TEXT NOT NULL,
			options TEXT NOT NULL DEFAULT '[]',
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create questions table: %w", err)
	}

	_, err = DB.Exec(`CREATE INDEX IF NOT EXISTS idx_questions_category ON questions(category_id)`)
	if err != nil {
		return fmt.Errorf("failed to create questions index: %w", err)
	}

	// Create learning_log table. One row per user and question, overwritten
	// by the most recent outcome.
	_, err = DB.Exec(`
		CREATE TABLE IF NOT EXISTS learning_log (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			question_id TEXT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
			is_correct BOOLEAN NOT NULL,
			answered_at TIMESTAMP NOT NULL,
			UNIQUE(user_id, question_id)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create learning_log table: %w", err)
	}

	return nil
}
