package pipeline

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomventa/sqlwarden/internal/dialect"
	"github.com/tomventa/sqlwarden/internal/executor"
	"github.com/tomventa/sqlwarden/internal/guard"
	"github.com/tomventa/sqlwarden/internal/logging"
	"github.com/tomventa/sqlwarden/internal/reason"
	"github.com/tomventa/sqlwarden/internal/schema"
)

// recordingRunner counts calls and returns a canned result.
type recordingRunner struct {
	calls  int
	result executor.Result
	err    error
}

func (r *recordingRunner) Execute(_ context.Context, d guard.Decision) (executor.Result, error) {
	r.calls++
	if !d.Approved() {
		return executor.Result{}, executor.ErrNotApproved
	}
	return r.result, r.err
}

func newGuard(t *testing.T) *guard.Guard {
	t.Helper()
	w := schema.New("main", []schema.Table{{Name: "students"}})
	g, err := guard.New(guard.Config{RowLimit: 100, CheckTables: true, Dialect: "sqlite3"}, w)
	require.NoError(t, err)
	return g
}

func TestRun_RejectionSkipsExecutor(t *testing.T) {
	runner := &recordingRunner{}
	p := New(newGuard(t), runner, nil)

	for _, q := range []string{
		"DELETE FROM students WHERE id=1",
		"SELECT * FROM students; DROP TABLE students;",
		"",
		"SELECT * FROM secret_table",
	} {
		env, err := p.Run(context.Background(), q)
		require.NoError(t, err)
		assert.False(t, env.OK, q)
		assert.NotEmpty(t, env.ErrorCode, q)
		assert.Nil(t, env.Rows, q)
	}
	assert.Zero(t, runner.calls)
}

func TestRun_Approved(t *testing.T) {
	runner := &recordingRunner{result: executor.Result{
		Columns: []string{"name"},
		Rows:    [][]executor.Value{{executor.Text("Ada")}},
	}}
	p := New(newGuard(t), runner, nil)

	env, err := p.Run(context.Background(), "SELECT name FROM students")
	require.NoError(t, err)
	assert.True(t, env.OK)
	assert.Equal(t, "SELECT name FROM students LIMIT 100", env.Executed)
	assert.Equal(t, 1, env.RowCount())
	assert.Equal(t, 1, runner.calls)

	id, err := uuid.Parse(env.RequestID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
}

func TestRun_ExecutionFailure(t *testing.T) {
	runner := &recordingRunner{result: executor.Result{Failure: &executor.Failure{
		Code: reason.ExecutionError, Message: "no such column: nme",
	}}}
	p := New(newGuard(t), runner, nil)

	env, err := p.Run(context.Background(), "SELECT nme FROM students")
	require.NoError(t, err)
	assert.False(t, env.OK)
	assert.Equal(t, reason.ExecutionError, env.ErrorCode)
}

func TestRun_HardError(t *testing.T) {
	runner := &recordingRunner{err: executor.ErrUnavailable}
	p := New(newGuard(t), runner, nil)

	_, err := p.Run(context.Background(), "SELECT name FROM students")
	assert.True(t, errors.Is(err, executor.ErrUnavailable))
}

func TestRun_LogsOneLinePerRequest(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New("info", "json", &buf)
	require.NoError(t, err)

	p := New(newGuard(t), &recordingRunner{}, logger)
	_, err = p.Run(context.Background(), "DROP TABLE students")
	require.NoError(t, err)

	out := strings.TrimSpace(buf.String())
	assert.Equal(t, 1, strings.Count(out, "\n")+1)
	assert.Contains(t, out, "FORBIDDEN_KEYWORD")
	assert.NotContains(t, out, "DROP TABLE", "statements are only logged at debug level")
}

func TestRun_EndToEnd(t *testing.T) {
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "e2e.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(`CREATE TABLE students (id INTEGER PRIMARY KEY, name TEXT);
INSERT INTO students (name) VALUES ('Ada'), ('Grace'), ('Edsger');`)
	require.NoError(t, err)

	w, err := schema.Load(context.Background(), db, dialect.SQLite{}, schema.Options{})
	require.NoError(t, err)
	g, err := guard.New(guard.Config{RowLimit: 2, CheckTables: true, Dialect: "sqlite3"}, w)
	require.NoError(t, err)
	e, err := executor.New(db, dialect.SQLite{}, executor.Options{})
	require.NoError(t, err)

	p := New(g, e, nil)

	env, err := p.Run(context.Background(), "SELECT name FROM students ORDER BY id")
	require.NoError(t, err)
	require.True(t, env.OK, env.ErrorMessage)
	assert.Equal(t, 2, env.RowCount())
	assert.Equal(t, "Ada", env.Rows[0][0].Text)

	env, err = p.Run(context.Background(), "SELECT * FROM students LIMIT 5")
	require.NoError(t, err)
	assert.Equal(t, 3, env.RowCount())

	env, err = p.Run(context.Background(), "UPDATE students SET name = 'x'")
	require.NoError(t, err)
	assert.Equal(t, reason.ForbiddenKeyword, env.ErrorCode)
}

func TestRun_ExcludedTableStaysHidden(t *testing.T) {
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "hidden.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(`CREATE TABLE students (id INTEGER PRIMARY KEY, name TEXT);
CREATE TABLE secret_table (value TEXT);
INSERT INTO students (name) VALUES ('Ada'), ('Grace');
INSERT INTO secret_table (value) VALUES ('s3cr3t');`)
	require.NoError(t, err)

	w, err := schema.Load(context.Background(), db, dialect.SQLite{}, schema.Options{Include: []string{"students"}})
	require.NoError(t, err)
	g, err := guard.New(guard.Config{RowLimit: 100, CheckTables: true, Dialect: "sqlite3"}, w)
	require.NoError(t, err)
	e, err := executor.New(db, dialect.SQLite{}, executor.Options{})
	require.NoError(t, err)
	p := New(g, e, nil)

	for _, stmt := range []string{
		"SELECT * FROM secret_table",
		"SELECT * FROM [secret_table]",
		"SELECT * FROM 'secret_table'",
		"SELECT * FROM students JOIN 'secret_table' ON 1=1",
		"SELECT * FROM students JOIN students s2 ON 1=1, secret_table",
	} {
		t.Run(stmt, func(t *testing.T) {
			env, err := p.Run(context.Background(), stmt)
			require.NoError(t, err)
			assert.False(t, env.OK)
			assert.Equal(t, reason.UnknownTable, env.ErrorCode)
			assert.Empty(t, env.Executed)
		})
	}
}
