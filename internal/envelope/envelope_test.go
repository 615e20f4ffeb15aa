package envelope

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomventa/sqlwarden/internal/executor"
	"github.com/tomventa/sqlwarden/internal/guard"
	"github.com/tomventa/sqlwarden/internal/reason"
	"github.com/tomventa/sqlwarden/internal/schema"
)

func newGuard(t *testing.T) *guard.Guard {
	t.Helper()
	w := schema.New("main", []schema.Table{{Name: "students"}, {Name: "courses"}})
	g, err := guard.New(guard.Config{RowLimit: 100, CheckTables: true, Dialect: "sqlite3"}, w)
	require.NoError(t, err)
	return g
}

func marshal(t *testing.T, e Envelope) []byte {
	t.Helper()
	b, err := json.MarshalIndent(e, "", "  ")
	require.NoError(t, err)
	return append(b, '\n')
}

func decode(t *testing.T, e Envelope) map[string]any {
	t.Helper()
	b, err := json.Marshal(e)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	return m
}

func TestEnvelope_Golden(t *testing.T) {
	g := newGuard(t)
	gold := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	t.Run("approved", func(t *testing.T) {
		const q = "SELECT id, name FROM students"
		res := executor.Result{
			Columns: []string{"id", "name"},
			Rows: [][]executor.Value{
				{executor.Integer(1), executor.Text("Ada")},
				{executor.Integer(2), executor.Null()},
			},
		}
		env := Executed(q, g.Check(q), res).WithRequestID("req-1")
		gold.Assert(t, "approved", marshal(t, env))
	})

	t.Run("rejected", func(t *testing.T) {
		const q = "DELETE FROM students WHERE id=1"
		env := Rejected(q, g.Check(q)).WithRequestID("req-2")
		gold.Assert(t, "rejected", marshal(t, env))
	})

	t.Run("timeout", func(t *testing.T) {
		const q = "SELECT * FROM students"
		res := executor.Result{Failure: &executor.Failure{
			Code:    reason.Timeout,
			Message: "statement exceeded the time limit and was cancelled",
		}}
		env := Executed(q, g.Check(q), res)
		gold.Assert(t, "timeout", marshal(t, env))
	})
}

func TestEnvelope_OKInvariant(t *testing.T) {
	g := newGuard(t)
	const q = "SELECT title FROM courses"

	env := Executed(q, g.Check(q), executor.Result{Columns: []string{"title"}})
	require.True(t, env.OK)

	m := decode(t, env)
	assert.Equal(t, true, m["ok"])
	assert.Equal(t, []any{}, m["rows"])
	assert.Equal(t, []any{"title"}, m["columns"])
	assert.Equal(t, float64(0), m["rowCount"])
	assert.NotContains(t, m, "errorCode")
	assert.NotContains(t, m, "errorMessage")
}

func TestEnvelope_FailureInvariant(t *testing.T) {
	g := newGuard(t)

	for _, q := range []string{"", "DROP TABLE students", "SELECT 1; SELECT 2", "SELECT * FROM secret_table", "VALUES (1)"} {
		d := g.Check(q)
		require.False(t, d.Approved(), q)

		m := decode(t, Rejected(q, d))
		assert.Equal(t, false, m["ok"], q)
		assert.Equal(t, string(d.Code()), m["errorCode"], q)
		assert.NotEmpty(t, m["errorMessage"], q)
		assert.Equal(t, q, m["statement"], q)
		assert.NotContains(t, m, "rows", q)
		assert.NotContains(t, m, "columns", q)
		assert.NotContains(t, m, "rowCount", q)
		assert.NotContains(t, m, "executed", q)
	}
}

func TestEnvelope_HandBuiltValuesStayConsistent(t *testing.T) {
	// A failed envelope that somehow carries rows never leaks them.
	m := decode(t, Envelope{
		Statement: "SELECT 1",
		Rows:      [][]executor.Value{{executor.Integer(1)}},
		ErrorCode: reason.ExecutionError,
	})
	assert.NotContains(t, m, "rows")

	// An OK envelope without rows still reports an empty set.
	m = decode(t, Envelope{OK: true, Statement: "SELECT 1"})
	assert.Equal(t, []any{}, m["rows"])
	assert.Equal(t, []any{}, m["columns"])
}

func TestEnvelope_Truncated(t *testing.T) {
	g := newGuard(t)
	const q = "SELECT id FROM students"
	env := Executed(q, g.Check(q), executor.Result{
		Columns:   []string{"id"},
		Rows:      [][]executor.Value{{executor.Integer(1)}},
		Truncated: true,
	})
	assert.Equal(t, 1, env.RowCount())
	assert.Equal(t, true, decode(t, env)["truncated"])
}
