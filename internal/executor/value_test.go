package executor

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvert(t *testing.T) {
	id := uuid.MustParse("0191b3c4-8a2e-7c3d-9f10-1234567890ab")
	ts := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

	tests := []struct {
		name   string
		raw    any
		dbType string
		want   Value
	}{
		{"nil", nil, "TEXT", Null()},
		{"int64", int64(42), "INTEGER", Integer(42)},
		{"int32", int32(-7), "INT4", Integer(-7)},
		{"uint64 overflow", uint64(1 << 63), "UNSIGNED BIGINT", Text("9223372036854775808")},
		{"float", 2.5, "REAL", Real(2.5)},
		{"bool", true, "BOOLEAN", Integer(1)},
		{"mysql int bytes", []byte("17"), "UNSIGNED INT", Integer(17)},
		{"mysql decimal bytes", []byte("3.25"), "DECIMAL", Real(3.25)},
		{"decimal with precision", "1.5", "decimal(10,2)", Real(1.5)},
		{"text bytes", []byte("hello"), "VARCHAR", Text("hello")},
		{"numeric-looking text", "007", "TEXT", Text("007")},
		{"point is not int", []byte("POINT(1 2)"), "POINT", Text("POINT(1 2)")},
		{"uuid bytes", id[:], "UUID", Text(id.String())},
		{"uuid array", [16]byte(id), "UUID", Text(id.String())},
		{"time", ts, "TIMESTAMP", Text("2024-03-01T12:30:00Z")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, convert(tt.raw, tt.dbType))
		})
	}
}

func TestValue_JSON(t *testing.T) {
	row := []Value{Integer(1), Real(2.5), Text("a\"b"), Null()}
	b, err := json.Marshal(row)
	require.NoError(t, err)
	assert.JSONEq(t, `[1, 2.5, "a\"b", null]`, string(b))
}

func TestValue_String(t *testing.T) {
	assert.Equal(t, "NULL", Null().String())
	assert.Equal(t, "3", Integer(3).String())
	assert.Equal(t, "0.1", Real(0.1).String())
	assert.Equal(t, "x", Text("x").String())
	assert.Equal(t, "integer", KindInteger.String())
}

func TestSanitize(t *testing.T) {
	stmt := "SELECT * FROM students WHERE name = 'Alice Secret' LIMIT 100"

	t.Run("statement removed", func(t *testing.T) {
		got := sanitize(`near "`+stmt+`": syntax error`, stmt, nil)
		assert.Equal(t, `near "<statement>": syntax error`, got)
	})

	t.Run("literals redacted", func(t *testing.T) {
		got := sanitize("invalid input value 'Alice Secret' for column", stmt, []string{"Alice Secret"})
		assert.Equal(t, "invalid input value '***' for column", got)
	})

	t.Run("credentials masked", func(t *testing.T) {
		got := sanitize("dial postgres://app:hunter2@db/app: refused", "", nil)
		assert.NotContains(t, got, "hunter2")
	})

	t.Run("single line", func(t *testing.T) {
		got := sanitize("ERROR: bad\n  DETAIL:\tthing", "", nil)
		assert.Equal(t, "ERROR: bad DETAIL: thing", got)
	})

	t.Run("bounded", func(t *testing.T) {
		got := sanitize(strings.Repeat("é", 400), "", nil)
		assert.LessOrEqual(t, len(got), maxMessageLen+len("..."))
		assert.True(t, strings.HasSuffix(got, "..."))
	})

	t.Run("never empty", func(t *testing.T) {
		assert.Equal(t, "query failed", sanitize("  ", "", nil))
	})
}
