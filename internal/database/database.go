package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tomventa/sqlwarden/internal/config"
	"github.com/tomventa/sqlwarden/internal/dialect"
	"github.com/tomventa/sqlwarden/internal/logging"
	"github.com/tomventa/sqlwarden/internal/schema"
)

// ErrUnavailable is returned when the database cannot be reached at startup.
var ErrUnavailable = errors.New("database unavailable")

const (
	maxOpenConns    = 10
	maxIdleConns    = 5
	connMaxLifetime = 30 * time.Minute
)

// Database represents the database connection and the engine behind it
type Database struct {
	db      *sql.DB
	dialect dialect.Dialect
	dsn     string
}

// Open connects to the configured database and verifies it answers.
func Open(ctx context.Context, cfg *config.Config) (*Database, error) {
	d, err := cfg.ResolveDialect()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(d.DriverName(), cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to database: %s", ErrUnavailable, logging.Mask(err.Error()))
	}

	if isMemorySQLite(d, cfg.DatabaseURL) {
		// Every new connection to :memory: is a fresh, empty database.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(maxOpenConns)
		db.SetMaxIdleConns(maxIdleConns)
	}
	db.SetConnMaxLifetime(connMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to ping database: %s", ErrUnavailable, logging.Mask(err.Error()))
	}

	return &Database{db: db, dialect: d, dsn: cfg.DatabaseURL}, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}

// DB exposes the pool for the executor.
func (d *Database) DB() *sql.DB { return d.db }

// Dialect is the engine adapter in use.
func (d *Database) Dialect() dialect.Dialect { return d.dialect }

// Info describes the connection for display. It never carries the password.
func (d *Database) Info() dialect.Info { return d.dialect.Info(d.dsn) }

// Whitelist reads the schema catalog. Failure here is fatal for the caller:
// no statement can be checked without it.
func (d *Database) Whitelist(ctx context.Context, opts schema.Options) (*schema.Whitelist, error) {
	w, err := schema.Load(ctx, d.db, d.dialect, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get schema: %w", err)
	}
	return w, nil
}

func isMemorySQLite(d dialect.Dialect, dsn string) bool {
	return d.Name() == "sqlite3" && strings.Contains(dsn, ":memory:")
}
