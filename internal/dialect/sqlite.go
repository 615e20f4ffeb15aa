package dialect

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/mattn/go-sqlite3"
)

// SQLite is the sqlite3 dialect.
type SQLite struct{}

func (SQLite) Name() string       { return "sqlite3" }
func (SQLite) DriverName() string { return "sqlite3" }

func (SQLite) SchemaNameQuery() string { return "SELECT 'main'" }

func (SQLite) TablesQuery() string {
	return `SELECT name FROM sqlite_master
		WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%'
		ORDER BY name`
}

func (SQLite) ColumnsQuery(table string) (string, []any) {
	return `SELECT name, type, "notnull", CASE WHEN pk > 0 THEN 1 ELSE 0 END
		FROM pragma_table_info(?) ORDER BY cid`, []any{table}
}

func (SQLite) ForeignKeysQuery(table string) (string, []any) {
	return `SELECT "from", "table", COALESCE("to", '')
		FROM pragma_foreign_key_list(?) ORDER BY id, seq`, []any{table}
}

// PrepareConn switches the connection to query_only so the engine itself
// refuses writes, whatever the transaction options say.
func (SQLite) PrepareConn(ctx context.Context, conn *sql.Conn) error {
	_, err := conn.ExecContext(ctx, "PRAGMA query_only = ON")
	return err
}

func (SQLite) TxOptions() *sql.TxOptions { return readOnlyTx() }

func (SQLite) ChangeCountQuery() string { return "SELECT total_changes()" }

func (SQLite) IsReadOnlyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrReadonly
	}
	return false
}

func (SQLite) EngineMessage(err error) string {
	return err.Error()
}

func (SQLite) Info(dsn string) Info {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	return Info{Engine: "sqlite3", Database: path}
}
