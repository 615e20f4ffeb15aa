// Package dialect adapts the handful of engine-specific behaviours the query
// path depends on: catalog queries for the schema whitelist, read-only
// hardening of a connection, and classification of driver errors.
//
// Three engines are supported, each through its database/sql driver:
//   - sqlite3 (github.com/mattn/go-sqlite3)
//   - mysql (github.com/go-sql-driver/mysql)
//   - postgres (github.com/jackc/pgx/v5/stdlib)
package dialect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Dialect describes one database engine.
type Dialect interface {
	// Name is the configuration name ("sqlite3", "mysql", "postgres").
	Name() string

	// DriverName is the database/sql driver to open.
	DriverName() string

	// SchemaNameQuery returns a query yielding one row with the current schema/database name.
	SchemaNameQuery() string

	// TablesQuery returns a query yielding one table name per row, ordered by name.
	TablesQuery() string

	// ColumnsQuery returns a query yielding (name, type, not_null, primary_key) per column.
	ColumnsQuery(table string) (string, []any)

	// ForeignKeysQuery returns a query yielding (column, ref_table, ref_column) per foreign key.
	ForeignKeysQuery(table string) (string, []any)

	// PrepareConn hardens a freshly acquired connection before a read transaction.
	PrepareConn(ctx context.Context, conn *sql.Conn) error

	// TxOptions returns the options every query transaction is opened with.
	TxOptions() *sql.TxOptions

	// IsReadOnlyViolation reports whether err is the engine refusing a write.
	IsReadOnlyViolation(err error) bool

	// EngineMessage extracts the engine's own error text from a driver error.
	EngineMessage(err error) string

	// Info extracts display information from a DSN.
	Info(dsn string) Info
}

// ChangeCounter is implemented by dialects that can report how many rows a
// connection has modified. The executor compares the counter before and
// after a query and treats any change as a write.
type ChangeCounter interface {
	ChangeCountQuery() string
}

// Info is connection metadata safe to show to a user.
type Info struct {
	Engine   string
	User     string
	Host     string
	Port     string
	Database string
}

var registry = map[string]Dialect{
	"sqlite3":  SQLite{},
	"mysql":    MySQL{},
	"postgres": Postgres{},
}

// Names lists the supported dialect names.
func Names() []string {
	return []string{"sqlite3", "mysql", "postgres"}
}

// Lookup returns the dialect registered under name. "sqlite" and "postgresql"
// are accepted as aliases.
func Lookup(name string) (Dialect, error) {
	switch n := strings.ToLower(strings.TrimSpace(name)); n {
	case "sqlite":
		return registry["sqlite3"], nil
	case "postgresql", "pgx":
		return registry["postgres"], nil
	default:
		if d, ok := registry[n]; ok {
			return d, nil
		}
	}
	return nil, fmt.Errorf("unknown dialect %q: must be one of %v", name, Names())
}

// Detect guesses the dialect from a DSN. MySQL's user:pass@tcp(host)/db form
// has no scheme, so it is the fallback.
func Detect(dsn string) Dialect {
	lower := strings.ToLower(strings.TrimSpace(dsn))

	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return registry["postgres"]
	case strings.HasPrefix(lower, "file:"),
		lower == ":memory:",
		strings.HasSuffix(lower, ".db"),
		strings.HasSuffix(lower, ".sqlite"),
		strings.HasSuffix(lower, ".sqlite3"):
		return registry["sqlite3"]
	case strings.HasPrefix(lower, "mysql://"):
		return registry["mysql"]
	}
	return registry["mysql"]
}

// Resolve returns the named dialect, or the detected one when name is empty.
func Resolve(name, dsn string) (Dialect, error) {
	if strings.TrimSpace(name) == "" {
		return Detect(dsn), nil
	}
	return Lookup(name)
}

// readOnlyTx is shared by every dialect: the query path never writes.
func readOnlyTx() *sql.TxOptions {
	return &sql.TxOptions{ReadOnly: true}
}
