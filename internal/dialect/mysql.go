package dialect

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// erReadOnlyTransaction is ER_CANT_EXECUTE_IN_READ_ONLY_TRANSACTION.
const erReadOnlyTransaction = 1792

// MySQL is the mysql dialect. DSNs use the driver's native format,
// user:password@tcp(host:port)/dbname.
type MySQL struct{}

func (MySQL) Name() string       { return "mysql" }
func (MySQL) DriverName() string { return "mysql" }

func (MySQL) SchemaNameQuery() string { return "SELECT DATABASE()" }

func (MySQL) TablesQuery() string {
	return `SELECT table_name FROM information_schema.tables
		WHERE table_schema = DATABASE()
		ORDER BY table_name`
}

func (MySQL) ColumnsQuery(table string) (string, []any) {
	return `SELECT column_name, column_type,
			CASE WHEN is_nullable = 'YES' THEN 0 ELSE 1 END,
			CASE WHEN column_key = 'PRI' THEN 1 ELSE 0 END
		FROM information_schema.columns
		WHERE table_schema = DATABASE() AND table_name = ?
		ORDER BY ordinal_position`, []any{table}
}

func (MySQL) ForeignKeysQuery(table string) (string, []any) {
	return `SELECT column_name, referenced_table_name, referenced_column_name
		FROM information_schema.key_column_usage
		WHERE table_schema = DATABASE() AND table_name = ?
			AND referenced_table_name IS NOT NULL
		ORDER BY ordinal_position`, []any{table}
}

// PrepareConn is a no-op: START TRANSACTION READ ONLY is issued by the driver
// from TxOptions.
func (MySQL) PrepareConn(context.Context, *sql.Conn) error { return nil }

func (MySQL) TxOptions() *sql.TxOptions { return readOnlyTx() }

func (MySQL) IsReadOnlyViolation(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == erReadOnlyTransaction
	}
	return false
}

func (MySQL) EngineMessage(err error) string {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Message
	}
	return err.Error()
}

func (MySQL) Info(dsn string) Info {
	info := Info{Engine: "mysql", User: "?", Host: "?", Port: "?", Database: "?"}

	cfg, err := mysql.ParseDSN(strings.TrimPrefix(dsn, "mysql://"))
	if err != nil {
		return info
	}
	if cfg.User != "" {
		info.User = cfg.User
	}
	if cfg.DBName != "" {
		info.Database = cfg.DBName
	}
	if host, port, err := net.SplitHostPort(cfg.Addr); err == nil {
		info.Host, info.Port = host, port
	} else if cfg.Addr != "" {
		info.Host = cfg.Addr
	}
	return info
}
