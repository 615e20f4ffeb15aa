// Package pipeline runs one candidate statement through the guard and the
// executor and reports the outcome as an envelope.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pterm/pterm"

	"github.com/tomventa/sqlwarden/internal/envelope"
	"github.com/tomventa/sqlwarden/internal/executor"
	"github.com/tomventa/sqlwarden/internal/guard"
	"github.com/tomventa/sqlwarden/internal/logging"
)

// Checker decides whether a candidate may run. *guard.Guard satisfies it.
type Checker interface {
	Check(candidate string) guard.Decision
}

// Runner executes approved decisions. *executor.Executor satisfies it.
type Runner interface {
	Execute(ctx context.Context, d guard.Decision) (executor.Result, error)
}

// Pipeline holds no per-request state and is safe for concurrent use.
type Pipeline struct {
	checker Checker
	runner  Runner
	logger  *pterm.Logger
}

func New(checker Checker, runner Runner, logger *pterm.Logger) *Pipeline {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Pipeline{checker: checker, runner: runner, logger: logger}
}

// Check runs the guard only.
func (p *Pipeline) Check(candidate string) guard.Decision {
	return p.checker.Check(candidate)
}

// Run validates and, when approved, executes candidate. Rejections and
// execution failures are reported in the envelope; the error is non-nil
// only for infrastructure problems and invariant violations.
func (p *Pipeline) Run(ctx context.Context, candidate string) (envelope.Envelope, error) {
	id := requestID()
	start := time.Now()

	p.logger.Debug("checking statement", p.logger.Args("request", id, "statement", logging.Mask(candidate)))

	d := p.checker.Check(candidate)
	if !d.Approved() {
		p.logger.Info("statement rejected", p.logger.Args(
			"request", id,
			"code", string(d.Code()),
			"rule", d.Rule(),
			"elapsed", time.Since(start).String(),
		))
		return envelope.Rejected(candidate, d).WithRequestID(id), nil
	}

	res, err := p.runner.Execute(ctx, d)
	if err != nil {
		p.logger.Error("execution aborted", p.logger.Args("request", id, "error", logging.Mask(err.Error())))
		return envelope.Envelope{}, fmt.Errorf("request %s: %w", id, err)
	}

	env := envelope.Executed(candidate, d, res).WithRequestID(id)
	if env.OK {
		p.logger.Info("statement executed", p.logger.Args(
			"request", id,
			"rows", env.RowCount(),
			"truncated", env.Truncated,
			"elapsed", time.Since(start).String(),
		))
	} else {
		p.logger.Warn("statement failed", p.logger.Args(
			"request", id,
			"code", string(env.ErrorCode),
			"elapsed", time.Since(start).String(),
		))
	}
	return env, nil
}

func requestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
