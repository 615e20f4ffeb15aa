package dialect

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// sqlStateReadOnlyTransaction is read_only_sql_transaction.
const sqlStateReadOnlyTransaction = "25006"

// Postgres is the postgres dialect, served by pgx's database/sql driver.
type Postgres struct{}

func (Postgres) Name() string       { return "postgres" }
func (Postgres) DriverName() string { return "pgx" }

func (Postgres) SchemaNameQuery() string { return "SELECT current_schema()" }

func (Postgres) TablesQuery() string {
	return `SELECT table_name FROM information_schema.tables
		WHERE table_schema = current_schema()
		ORDER BY table_name`
}

func (Postgres) ColumnsQuery(table string) (string, []any) {
	return `SELECT c.column_name, c.data_type,
			CASE WHEN c.is_nullable = 'YES' THEN 0 ELSE 1 END,
			CASE WHEN EXISTS (
				SELECT 1
				FROM information_schema.table_constraints tc
				JOIN information_schema.key_column_usage k
					ON tc.constraint_name = k.constraint_name AND tc.table_schema = k.table_schema
				WHERE tc.constraint_type = 'PRIMARY KEY'
					AND tc.table_schema = c.table_schema
					AND tc.table_name = c.table_name
					AND k.column_name = c.column_name
			) THEN 1 ELSE 0 END
		FROM information_schema.columns c
		WHERE c.table_schema = current_schema() AND c.table_name = $1
		ORDER BY c.ordinal_position`, []any{table}
}

func (Postgres) ForeignKeysQuery(table string) (string, []any) {
	return `SELECT kcu.column_name, ccu.table_name, ccu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
			ON ccu.constraint_name = tc.constraint_name AND ccu.table_schema = tc.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
			AND tc.table_schema = current_schema() AND tc.table_name = $1
		ORDER BY kcu.ordinal_position`, []any{table}
}

// PrepareConn is a no-op: pgx's driver issues BEGIN READ ONLY from TxOptions.
func (Postgres) PrepareConn(context.Context, *sql.Conn) error { return nil }

func (Postgres) TxOptions() *sql.TxOptions { return readOnlyTx() }

func (Postgres) IsReadOnlyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == sqlStateReadOnlyTransaction
	}
	return false
}

func (Postgres) EngineMessage(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Message + " (SQLSTATE " + pgErr.Code + ")"
	}
	return err.Error()
}

func (Postgres) Info(dsn string) Info {
	info := Info{Engine: "postgres", User: "?", Host: "?", Port: "?", Database: "?"}

	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return info
	}
	if cfg.User != "" {
		info.User = cfg.User
	}
	if cfg.Host != "" {
		info.Host = cfg.Host
	}
	if cfg.Port != 0 {
		info.Port = strconv.Itoa(int(cfg.Port))
	}
	if cfg.Database != "" {
		info.Database = cfg.Database
	}
	return info
}
