// Package envelope merges guard rejections and execution results into the
// one shape callers consume, so they never branch on where a request failed.
package envelope

import (
	"encoding/json"

	"github.com/tomventa/sqlwarden/internal/executor"
	"github.com/tomventa/sqlwarden/internal/guard"
	"github.com/tomventa/sqlwarden/internal/reason"
)

// Envelope is the outward-facing result of one request.
//
// OK implies Columns and Rows are set (Rows possibly empty) and ErrorCode is
// empty. !OK implies Columns and Rows are nil.
type Envelope struct {
	OK           bool
	RequestID    string
	Statement    string // the candidate, echoed back
	Executed     string // the statement actually run, if any
	Columns      []string
	Rows         [][]executor.Value
	Truncated    bool
	ErrorCode    reason.Code
	ErrorMessage string
}

// RowCount is the number of rows carried.
func (e Envelope) RowCount() int { return len(e.Rows) }

// Rejected builds the envelope for a decision the guard refused.
func Rejected(candidate string, d guard.Decision) Envelope {
	return Envelope{
		Statement:    candidate,
		ErrorCode:    d.Code(),
		ErrorMessage: d.Message(),
	}
}

// Executed builds the envelope for an approved decision and its result.
func Executed(candidate string, d guard.Decision, r executor.Result) Envelope {
	env := Envelope{
		Statement: candidate,
		Executed:  d.SQL(),
	}
	if r.Failure != nil {
		env.ErrorCode = r.Failure.Code
		env.ErrorMessage = r.Failure.Message
		return env
	}

	env.OK = true
	env.Columns = r.Columns
	if env.Columns == nil {
		env.Columns = []string{}
	}
	env.Rows = r.Rows
	if env.Rows == nil {
		env.Rows = [][]executor.Value{}
	}
	env.Truncated = r.Truncated
	return env
}

// WithRequestID returns a copy tagged with id.
func (e Envelope) WithRequestID(id string) Envelope {
	e.RequestID = id
	return e
}

type wire struct {
	OK           bool                `json:"ok"`
	RequestID    string              `json:"requestId,omitempty"`
	Statement    string              `json:"statement"`
	Executed     string              `json:"executed,omitempty"`
	Columns      *[]string           `json:"columns,omitempty"`
	Rows         *[][]executor.Value `json:"rows,omitempty"`
	RowCount     *int                `json:"rowCount,omitempty"`
	Truncated    bool                `json:"truncated,omitempty"`
	ErrorCode    reason.Code         `json:"errorCode,omitempty"`
	ErrorMessage string              `json:"errorMessage,omitempty"`
}

// MarshalJSON enforces the envelope invariants on the wire regardless of
// how the value was assembled.
func (e Envelope) MarshalJSON() ([]byte, error) {
	w := wire{
		OK:        e.OK,
		RequestID: e.RequestID,
		Statement: e.Statement,
		Executed:  e.Executed,
	}
	if e.OK {
		cols, rows, n := e.Columns, e.Rows, len(e.Rows)
		if cols == nil {
			cols = []string{}
		}
		if rows == nil {
			rows = [][]executor.Value{}
		}
		w.Columns, w.Rows, w.RowCount = &cols, &rows, &n
		w.Truncated = e.Truncated
	} else {
		w.ErrorCode = e.ErrorCode
		w.ErrorMessage = e.ErrorMessage
	}
	return json.Marshal(w)
}
