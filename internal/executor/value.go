package executor

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind is the closed set of value kinds a result cell can hold. Callers never
// see driver-specific types.
type Kind int

const (
	KindNull Kind = iota
	KindInteger
	KindReal
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindReal:
		return "real"
	case KindText:
		return "text"
	default:
		return "null"
	}
}

// Value is one result cell.
type Value struct {
	Kind Kind
	Int  int64
	Real float64
	Text string
}

func Null() Value            { return Value{Kind: KindNull} }
func Integer(i int64) Value  { return Value{Kind: KindInteger, Int: i} }
func Real(f float64) Value   { return Value{Kind: KindReal, Real: f} }
func Text(s string) Value    { return Value{Kind: KindText, Text: s} }
func (v Value) IsNull() bool { return v.Kind == KindNull }

// Interface returns the value as nil, int64, float64 or string.
func (v Value) Interface() any {
	switch v.Kind {
	case KindInteger:
		return v.Int
	case KindReal:
		return v.Real
	case KindText:
		return v.Text
	default:
		return nil
	}
}

// String renders the value for display; NULL for nulls.
func (v Value) String() string {
	switch v.Kind {
	case KindInteger:
		return strconv.FormatInt(v.Int, 10)
	case KindReal:
		return strconv.FormatFloat(v.Real, 'g', -1, 64)
	case KindText:
		return v.Text
	default:
		return "NULL"
	}
}

// MarshalJSON encodes the value as a plain JSON scalar.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

var (
	integerTypes = map[string]bool{
		"INT": true, "INTEGER": true, "TINYINT": true, "SMALLINT": true, "MEDIUMINT": true,
		"BIGINT": true, "INT2": true, "INT4": true, "INT8": true, "SERIAL": true, "BIGSERIAL": true,
		"YEAR": true,
	}
	realTypes = map[string]bool{
		"FLOAT": true, "DOUBLE": true, "REAL": true, "DECIMAL": true, "NUMERIC": true,
		"FLOAT4": true, "FLOAT8": true, "DOUBLE PRECISION": true,
	}
)

// baseType reduces a driver type name to the bare type: "UNSIGNED BIGINT",
// "decimal(10,2)" -> "BIGINT", "DECIMAL".
func baseType(dbType string) string {
	t := strings.ToUpper(strings.TrimSpace(dbType))
	t = strings.TrimPrefix(t, "UNSIGNED ")
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	return t
}

// convert maps a scanned driver value onto a Value. dbType is the column's
// database type name and decides how textual numbers are read.
func convert(raw any, dbType string) Value {
	switch v := raw.(type) {
	case nil:
		return Null()
	case int64:
		return Integer(v)
	case int32:
		return Integer(int64(v))
	case int16:
		return Integer(int64(v))
	case int8:
		return Integer(int64(v))
	case int:
		return Integer(int64(v))
	case uint8:
		return Integer(int64(v))
	case uint16:
		return Integer(int64(v))
	case uint32:
		return Integer(int64(v))
	case uint64:
		if v > 1<<63-1 {
			return Text(strconv.FormatUint(v, 10))
		}
		return Integer(int64(v))
	case float64:
		return Real(v)
	case float32:
		return Real(float64(v))
	case bool:
		if v {
			return Integer(1)
		}
		return Integer(0)
	case []byte:
		if len(v) == 16 && baseType(dbType) == "UUID" {
			if id, err := uuid.FromBytes(v); err == nil {
				return Text(id.String())
			}
		}
		return fromText(string(v), dbType)
	case string:
		return fromText(v, dbType)
	case [16]byte:
		return Text(uuid.UUID(v).String())
	case time.Time:
		return Text(v.Format(time.RFC3339Nano))
	case fmt.Stringer:
		return Text(v.String())
	default:
		return Text(fmt.Sprint(v))
	}
}

func fromText(s, dbType string) Value {
	t := baseType(dbType)
	switch {
	case integerTypes[t]:
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return Integer(i)
		}
	case realTypes[t]:
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return Real(f)
		}
	}
	return Text(s)
}
