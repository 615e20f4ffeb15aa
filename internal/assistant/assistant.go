// Package assistant turns natural-language questions into SQL with a
// translator, runs the result through the pipeline and re-asks the
// translator with the failure when a statement is rejected or fails.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/tomventa/sqlwarden/internal/envelope"
	"github.com/tomventa/sqlwarden/internal/guard"
	"github.com/tomventa/sqlwarden/internal/utils"
)

// ErrGaveUp is returned when no attempt produced rows.
var ErrGaveUp = errors.New("failed to generate working SQL")

// Translator turns a prompt into SQL text.
type Translator interface {
	Query(ctx context.Context, prompt string) (string, error)
}

// Runner validates and executes candidates. *pipeline.Pipeline satisfies it.
type Runner interface {
	Check(candidate string) guard.Decision
	Run(ctx context.Context, candidate string) (envelope.Envelope, error)
}

// ConfirmFunc is asked before an approved statement runs. Returning false
// cancels the question.
type ConfirmFunc func(statement string) (bool, error)

// Options configures an Assistant.
type Options struct {
	Dialect     string
	Schema      string // human-readable schema text
	MaxAttempts int
	Confirm     ConfirmFunc // nil runs without asking
	Out         io.Writer   // progress messages; nil discards them
}

// Answer is the outcome of one question.
type Answer struct {
	Envelope  envelope.Envelope
	Attempts  int
	Cancelled bool
}

// Assistant is safe for concurrent use when its Translator and Runner are.
type Assistant struct {
	translator Translator
	runner     Runner
	opts       Options
}

func New(translator Translator, runner Runner, opts Options) *Assistant {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	return &Assistant{translator: translator, runner: runner, opts: opts}
}

// Ask answers question. Confirmation is only requested on the first
// attempt; automatic fixes of a failed statement run without asking since
// the guard has approved them.
func (a *Assistant) Ask(ctx context.Context, question string) (Answer, error) {
	engine := engineName(a.opts.Dialect)
	out := a.opts.Out

	var (
		sqlQuery  string
		lastError string
		last      envelope.Envelope
	)

	for attempt := 1; attempt <= a.opts.MaxAttempts; attempt++ {
		fmt.Fprintf(out, "🤖 Generating SQL query (attempt %d/%d)...\n", attempt, a.opts.MaxAttempts)

		var prompt string
		if attempt == 1 {
			prompt = firstPrompt(engine, a.opts.Schema, question)
		} else {
			prompt = retryPrompt(engine, a.opts.Schema, question, sqlQuery, lastError)
		}

		generated, err := a.translator.Query(ctx, prompt)
		if err != nil {
			return Answer{Envelope: last, Attempts: attempt}, fmt.Errorf("failed to query translator on attempt %d: %w", attempt, err)
		}

		sqlQuery = utils.CleanSQLResponse(generated)
		fmt.Fprintf(out, "📝 Generated SQL: %s\n\n", sqlQuery)

		if attempt == 1 && a.opts.Confirm != nil && a.runner.Check(sqlQuery).Approved() {
			ok, err := a.opts.Confirm(sqlQuery)
			if err != nil {
				return Answer{Attempts: attempt}, fmt.Errorf("failed to read confirmation: %w", err)
			}
			if !ok {
				fmt.Fprintf(out, "❌ Query execution cancelled.\n\n")
				return Answer{Attempts: attempt, Cancelled: true}, nil
			}
		} else if attempt > 1 {
			fmt.Fprintln(out, "🔄 Auto-executing read-only retry query...")
		}

		env, err := a.runner.Run(ctx, sqlQuery)
		if err != nil {
			return Answer{Attempts: attempt}, err
		}
		if env.OK {
			return Answer{Envelope: env, Attempts: attempt}, nil
		}

		last = env
		lastError = fmt.Sprintf("%s: %s", env.ErrorCode, env.ErrorMessage)
		fmt.Fprintf(out, "❌ Query failed: %s\n", lastError)

		if attempt < a.opts.MaxAttempts {
			fmt.Fprintf(out, "🔄 Trying to auto-fix the issue...\n\n")
		}
	}

	return Answer{Envelope: last, Attempts: a.opts.MaxAttempts},
		fmt.Errorf("%w after %d attempts. Last error: %s", ErrGaveUp, a.opts.MaxAttempts, lastError)
}
