package executor

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomventa/sqlwarden/internal/dialect"
	"github.com/tomventa/sqlwarden/internal/guard"
	"github.com/tomventa/sqlwarden/internal/reason"
	"github.com/tomventa/sqlwarden/internal/schema"
)

const studentCount = 150

func openSchoolDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "school.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
CREATE TABLE students (id INTEGER PRIMARY KEY, name TEXT NOT NULL, gpa REAL);
CREATE TABLE courses (id INTEGER PRIMARY KEY, title TEXT NOT NULL);`)
	require.NoError(t, err)

	tx, err := db.Begin()
	require.NoError(t, err)
	for i := 1; i <= studentCount; i++ {
		_, err := tx.Exec(`INSERT INTO students (id, name, gpa) VALUES (?, ?, ?)`,
			i, fmt.Sprintf("student-%03d", i), 2.0+float64(i%20)/10)
		require.NoError(t, err)
	}
	require.NoError(t, tx.Commit())
	return db
}

type fixture struct {
	db    *sql.DB
	guard *guard.Guard
	exec  *Executor
}

func newFixture(t *testing.T, opts Options) fixture {
	t.Helper()
	db := openSchoolDB(t)

	w, err := schema.Load(context.Background(), db, dialect.SQLite{}, schema.Options{})
	require.NoError(t, err)

	g, err := guard.New(guard.Config{RowLimit: guard.DefaultRowLimit, CheckTables: true, Dialect: "sqlite3"}, w)
	require.NoError(t, err)

	e, err := New(db, dialect.SQLite{}, opts)
	require.NoError(t, err)
	return fixture{db: db, guard: g, exec: e}
}

func (f fixture) execute(t *testing.T, candidate string) (Result, error) {
	t.Helper()
	d := f.guard.Check(candidate)
	require.True(t, d.Approved(), d.String())
	return f.exec.Execute(context.Background(), d)
}

func assertReleased(t *testing.T, db *sql.DB) {
	t.Helper()
	assert.Eventually(t, func() bool { return db.Stats().InUse == 0 },
		time.Second, 10*time.Millisecond, "connection not released")
}

func TestExecute_DefaultBound(t *testing.T) {
	f := newFixture(t, Options{})

	res, err := f.execute(t, "SELECT name FROM students")
	require.NoError(t, err)
	require.True(t, res.OK())
	assert.Equal(t, []string{"name"}, res.Columns)
	assert.Equal(t, 100, res.RowCount())
	assert.False(t, res.Truncated)
	assert.Equal(t, Text("student-001"), res.Rows[0][0])
	assertReleased(t, f.db)
}

func TestExecute_ExplicitBound(t *testing.T) {
	f := newFixture(t, Options{})

	res, err := f.execute(t, "SELECT id FROM students ORDER BY id LIMIT 5")
	require.NoError(t, err)
	assert.Equal(t, 5, res.RowCount())
	assert.Equal(t, Integer(5), res.Rows[4][0])
}

func TestExecute_MaxRowsBackstop(t *testing.T) {
	f := newFixture(t, Options{MaxRows: 120})

	res, err := f.execute(t, "SELECT id FROM students LIMIT 500")
	require.NoError(t, err)
	assert.Equal(t, 120, res.RowCount())
	assert.True(t, res.Truncated)
	assertReleased(t, f.db)
}

func TestExecute_EmptyResult(t *testing.T) {
	f := newFixture(t, Options{})

	res, err := f.execute(t, "SELECT id, title FROM courses")
	require.NoError(t, err)
	require.True(t, res.OK())
	assert.Equal(t, []string{"id", "title"}, res.Columns)
	assert.NotNil(t, res.Rows)
	assert.Zero(t, res.RowCount())
}

func TestExecute_ValueKinds(t *testing.T) {
	f := newFixture(t, Options{})

	res, err := f.execute(t, "SELECT id, name, gpa, NULL AS missing FROM students WHERE id = 1")
	require.NoError(t, err)
	require.True(t, res.OK(), "%+v", res.Failure)
	require.Equal(t, 1, res.RowCount())
	assert.Equal(t, []string{"id", "name", "gpa", "missing"}, res.Columns)

	row := res.Rows[0]
	assert.Equal(t, KindInteger, row[0].Kind)
	assert.Equal(t, int64(1), row[0].Int)
	assert.Equal(t, KindText, row[1].Kind)
	assert.Equal(t, "student-001", row[1].Text)
	assert.Equal(t, KindReal, row[2].Kind)
	assert.InDelta(t, 2.1, row[2].Real, 1e-9)
	assert.True(t, row[3].IsNull())
}

func TestExecute_ExecutionError(t *testing.T) {
	f := newFixture(t, Options{})

	res, err := f.execute(t, "SELECT nme FROM students WHERE name = 'student-001'")
	require.NoError(t, err)
	require.False(t, res.OK())
	assert.Equal(t, reason.ExecutionError, res.Failure.Code)
	assert.Contains(t, res.Failure.Message, "no such column: nme")
	assert.NotContains(t, res.Failure.Message, "student-001")
	assert.Nil(t, res.Rows)
	assertReleased(t, f.db)
}

func TestExecute_Timeout(t *testing.T) {
	f := newFixture(t, Options{Timeout: 100 * time.Millisecond})

	start := time.Now()
	res, err := f.execute(t, "WITH RECURSIVE c(x) AS (SELECT 1 UNION ALL SELECT x + 1 FROM c) SELECT count(*) FROM c")
	require.NoError(t, err)
	require.False(t, res.OK())
	assert.Equal(t, reason.Timeout, res.Failure.Code)
	assert.Less(t, time.Since(start), 5*time.Second)
	assertReleased(t, f.db)

	// The pool is still usable afterwards.
	res, err = f.execute(t, "SELECT count(*) FROM students")
	require.NoError(t, err)
	require.True(t, res.OK())
	assert.Equal(t, Integer(studentCount), res.Rows[0][0])
}

func TestExecute_NotApproved(t *testing.T) {
	f := newFixture(t, Options{})

	d := f.guard.Check("DELETE FROM students")
	require.False(t, d.Approved())

	_, err := f.exec.Execute(context.Background(), d)
	assert.ErrorIs(t, err, ErrNotApproved)
	assert.Zero(t, f.db.Stats().InUse)
}

func TestRun_ReadOnlyConnection(t *testing.T) {
	f := newFixture(t, Options{})

	_, err := f.exec.run(context.Background(), "INSERT INTO students (name) VALUES ('intruder')", 10, nil)
	assert.ErrorIs(t, err, ErrWriteDetected)
	assertReleased(t, f.db)

	var n int
	require.NoError(t, f.db.QueryRow("SELECT count(*) FROM students").Scan(&n))
	assert.Equal(t, studentCount, n)
}

// permissiveSQLite skips connection hardening so only the change counter
// stands between a write and the database.
type permissiveSQLite struct{ dialect.SQLite }

func (permissiveSQLite) PrepareConn(context.Context, *sql.Conn) error { return nil }
func (permissiveSQLite) IsReadOnlyViolation(error) bool               { return false }

func TestRun_ChangeCounter(t *testing.T) {
	db := openSchoolDB(t)
	e, err := New(db, permissiveSQLite{}, Options{})
	require.NoError(t, err)

	_, err = e.run(context.Background(), "UPDATE students SET gpa = 4.0 WHERE id = 1", 10, nil)
	assert.ErrorIs(t, err, ErrWriteDetected)

	var gpa float64
	require.NoError(t, db.QueryRow("SELECT gpa FROM students WHERE id = 1").Scan(&gpa))
	assert.InDelta(t, 2.1, gpa, 1e-9, "write must be rolled back")
}

func TestExecute_Unavailable(t *testing.T) {
	f := newFixture(t, Options{})
	d := f.guard.Check("SELECT 1")
	require.True(t, d.Approved())

	require.NoError(t, f.db.Close())
	_, err := f.exec.Execute(context.Background(), d)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestExecute_Cancelled(t *testing.T) {
	f := newFixture(t, Options{})
	d := f.guard.Check("SELECT name FROM students")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.exec.Execute(ctx, d)
	assert.ErrorIs(t, err, context.Canceled)
	assertReleased(t, f.db)
}

func TestExecute_NeverExceedsBound(t *testing.T) {
	f := newFixture(t, Options{MaxRows: 50})

	for _, q := range []string{
		"SELECT * FROM students",
		"SELECT * FROM students LIMIT 10",
		"SELECT * FROM students LIMIT 1000",
		"SELECT a.id FROM students a, students b",
		"SELECT * FROM students FETCH FIRST 3 ROWS ONLY",
	} {
		d := f.guard.Check(q)
		require.True(t, d.Approved(), q)

		res, err := f.exec.Execute(context.Background(), d)
		require.NoError(t, err, q)
		if res.OK() {
			assert.LessOrEqual(t, res.RowCount(), d.Bound(), q)
			assert.LessOrEqual(t, res.RowCount(), 50, q)
		}
	}
}

func TestExecute_Concurrent(t *testing.T) {
	f := newFixture(t, Options{})
	f.db.SetMaxOpenConns(4)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			q := "SELECT name FROM students WHERE id = " + fmt.Sprint(i+1)
			if i%4 == 0 {
				q = "SELECT missing FROM students"
			}
			d := f.guard.Check(q)
			res, err := f.exec.Execute(context.Background(), d)
			assert.NoError(t, err)
			if i%4 == 0 {
				assert.False(t, res.OK())
			} else {
				assert.Equal(t, 1, res.RowCount())
			}
		}(i)
	}
	wg.Wait()
	assertReleased(t, f.db)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, dialect.SQLite{}, Options{})
	assert.Error(t, err)

	db := openSchoolDB(t)
	_, err = New(db, nil, Options{})
	assert.Error(t, err)

	_, err = New(db, dialect.SQLite{}, Options{Timeout: -time.Second})
	assert.Error(t, err)

	e, err := New(db, dialect.SQLite{}, Options{})
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeout, e.Timeout())
	assert.Equal(t, DefaultMaxRows, e.MaxRows())
}
