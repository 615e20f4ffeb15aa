// Package executor runs guard-approved statements against the database on
// an isolated read-only connection and returns bounded, normalized results.
package executor

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"github.com/tomventa/sqlwarden/internal/dialect"
	"github.com/tomventa/sqlwarden/internal/guard"
	"github.com/tomventa/sqlwarden/internal/reason"
)

const (
	DefaultTimeout = 5 * time.Second
	DefaultMaxRows = 1000
)

var (
	// ErrNotApproved is returned when Execute is handed a rejected decision.
	ErrNotApproved = errors.New("statement was not approved by the guard")

	// ErrWriteDetected is returned when the engine reports a write on the
	// read-only path. Seeing it means a guard rule has a hole.
	ErrWriteDetected = errors.New("write detected on the read-only path")

	// ErrUnavailable wraps failures to reach the database at all.
	ErrUnavailable = errors.New("database unavailable")
)

// Failure describes a statement that ran but did not produce rows.
type Failure struct {
	Code    reason.Code
	Message string
}

// Result is the outcome of one execution. Exactly one of Failure and the
// row fields is meaningful.
type Result struct {
	Columns   []string
	Rows      [][]Value
	Truncated bool
	Failure   *Failure
}

// OK reports whether the statement produced rows.
func (r Result) OK() bool { return r.Failure == nil }

// RowCount is the number of rows returned.
func (r Result) RowCount() int { return len(r.Rows) }

// Options configures an Executor.
type Options struct {
	Timeout time.Duration
	MaxRows int
}

// Executor runs approved statements. It is safe for concurrent use; every
// call acquires and releases its own connection.
type Executor struct {
	db      *sql.DB
	dialect dialect.Dialect
	timeout time.Duration
	maxRows int
}

// New creates an executor over an open database handle.
func New(db *sql.DB, d dialect.Dialect, opts Options) (*Executor, error) {
	if db == nil {
		return nil, errors.New("executor: nil database handle")
	}
	if d == nil {
		return nil, errors.New("executor: nil dialect")
	}
	if opts.Timeout < 0 || opts.MaxRows < 0 {
		return nil, fmt.Errorf("executor: invalid options %+v", opts)
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxRows == 0 {
		opts.MaxRows = DefaultMaxRows
	}
	return &Executor{db: db, dialect: d, timeout: opts.Timeout, maxRows: opts.MaxRows}, nil
}

// Timeout returns the per-statement time limit.
func (e *Executor) Timeout() time.Duration { return e.timeout }

// MaxRows returns the hard cap on rows returned by any statement.
func (e *Executor) MaxRows() int { return e.maxRows }

// Execute runs an approved decision. Engine errors and timeouts come back as
// a Result with a Failure; the returned error is reserved for rejected
// input, write detection, cancellation and an unreachable database.
func (e *Executor) Execute(ctx context.Context, d guard.Decision) (Result, error) {
	if !d.Approved() {
		return Result{}, fmt.Errorf("%w: %s", ErrNotApproved, d.Code())
	}
	limit := d.Bound()
	if limit <= 0 || limit > e.maxRows {
		limit = e.maxRows
	}
	return e.run(ctx, d.SQL(), limit, d.Literals())
}

func (e *Executor) run(ctx context.Context, query string, limit int, literals []string) (Result, error) {
	qctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	conn, err := e.db.Conn(qctx)
	if err != nil {
		return e.infraFailure(ctx, qctx, err)
	}
	defer conn.Close()

	if err := e.dialect.PrepareConn(qctx, conn); err != nil {
		return e.infraFailure(ctx, qctx, err)
	}

	tx, err := conn.BeginTx(qctx, e.dialect.TxOptions())
	if err != nil {
		return e.infraFailure(ctx, qctx, err)
	}
	// Nothing on this path is ever committed.
	defer tx.Rollback()

	counter, counting := e.dialect.(dialect.ChangeCounter)
	var before int64
	if counting {
		if err := tx.QueryRowContext(qctx, counter.ChangeCountQuery()).Scan(&before); err != nil {
			return e.infraFailure(ctx, qctx, err)
		}
	}

	res, err := e.read(qctx, tx, query, limit)
	if err != nil {
		return e.queryFailure(ctx, qctx, err, query, literals)
	}

	if counting {
		var after int64
		if err := tx.QueryRowContext(qctx, counter.ChangeCountQuery()).Scan(&after); err != nil {
			return e.queryFailure(ctx, qctx, err, query, literals)
		}
		if after != before {
			return Result{}, fmt.Errorf("%w: %d row(s) changed", ErrWriteDetected, after-before)
		}
	}
	return res, nil
}

// read streams at most limit rows and marks the result truncated when more
// were available.
func (e *Executor) read(ctx context.Context, tx *sql.Tx, query string, limit int) (Result, error) {
	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return Result{}, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return Result{}, err
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		return Result{}, err
	}

	res := Result{Columns: columns, Rows: [][]Value{}}
	raw := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range raw {
		ptrs[i] = &raw[i]
	}

	for rows.Next() {
		if len(res.Rows) == limit {
			res.Truncated = true
			break
		}
		if err := rows.Scan(ptrs...); err != nil {
			return Result{}, err
		}
		row := make([]Value, len(columns))
		for i, v := range raw {
			row[i] = convert(v, types[i].DatabaseTypeName())
		}
		res.Rows = append(res.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return Result{}, err
	}
	return res, rows.Close()
}

// infraFailure classifies errors raised before the statement itself ran.
func (e *Executor) infraFailure(parent, qctx context.Context, err error) (Result, error) {
	if r, ok := timedOut(qctx); ok {
		return r, nil
	}
	if parent.Err() != nil {
		return Result{}, parent.Err()
	}
	return Result{}, fmt.Errorf("%w: %s", ErrUnavailable, sanitize(err.Error(), "", nil))
}

// queryFailure classifies errors raised by the statement.
func (e *Executor) queryFailure(parent, qctx context.Context, err error, query string, literals []string) (Result, error) {
	if e.dialect.IsReadOnlyViolation(err) {
		return Result{}, fmt.Errorf("%w: %s", ErrWriteDetected, sanitize(e.dialect.EngineMessage(err), query, literals))
	}
	if r, ok := timedOut(qctx); ok {
		return r, nil
	}
	if parent.Err() != nil {
		return Result{}, parent.Err()
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return Result{}, fmt.Errorf("%w: %s", ErrUnavailable, sanitize(err.Error(), query, literals))
	}
	return Result{Failure: &Failure{
		Code:    reason.ExecutionError,
		Message: sanitize(e.dialect.EngineMessage(err), query, literals),
	}}, nil
}

func timedOut(qctx context.Context) (Result, bool) {
	if !errors.Is(qctx.Err(), context.DeadlineExceeded) {
		return Result{}, false
	}
	return Result{Failure: &Failure{
		Code:    reason.Timeout,
		Message: "statement exceeded the time limit and was cancelled",
	}}, true
}
