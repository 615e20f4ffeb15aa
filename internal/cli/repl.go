package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/tomventa/sqlwarden/internal/assistant"
	"github.com/tomventa/sqlwarden/internal/executor"
)

const (
	mainPrompt    = "💬 Enter your query: "
	confirmPrompt = "❓ Execute this query? (y/N): "
)

const replHelp = `Type a question in plain language, or:
  :sql <statement>     check and run a SQL statement
  :check <statement>   show the guard's decision without running it
  :schema              list the tables statements may read
  :help                show this help
  exit | quit          leave
`

// NewREPLCommand creates the repl command.
func NewREPLCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "repl",
		Short:         "Start the interactive prompt (default)",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runREPL(rootOpts, cmd)
		},
	}
	return cmd
}

// repl dispatches one input line at a time.
type repl struct {
	app       *app
	assistant *assistant.Assistant // nil when no translator is available

	// fatal ends the session with an error once the read-only invariant breaks.
	fatal error
}

// handle processes one line and reports whether the session should end.
// Errors are printed, never returned: one bad line does not end the session,
// except a detected write, which is recorded in fatal.
func (r *repl) handle(ctx context.Context, line string) (quit bool) {
	out := r.app.out
	query := strings.TrimSpace(line)
	if query == "" {
		return false
	}

	lower := strings.ToLower(query)
	if lower == "exit" || lower == "quit" {
		fmt.Fprintln(out.Writer, "👋 Goodbye!")
		return true
	}

	var err error
	switch {
	case lower == ":help":
		fmt.Fprint(out.Writer, replHelp)
	case lower == ":schema":
		fmt.Fprint(out.Writer, r.app.whitelist.Describe())
	case strings.HasPrefix(lower, ":check "):
		stmt := strings.TrimSpace(query[len(":check "):])
		err = out.Decision(stmt, r.app.pipeline.Check(stmt))
	case strings.HasPrefix(lower, ":sql "):
		err = r.app.runStatement(ctx, strings.TrimSpace(query[len(":sql "):]))
	case strings.HasPrefix(lower, ":"):
		fmt.Fprintf(out.Writer, "Unknown command %q. Type :help for help.\n", query)
	case r.assistant == nil:
		fmt.Fprintln(out.Writer, "Questions are unavailable without a translator; use :sql <statement>.")
	default:
		err = askAndPrint(ctx, r.assistant, out, query)
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Code == ExitFailure {
		// Already shown in the envelope.
		return false
	}
	if errors.Is(err, executor.ErrWriteDetected) {
		r.fatal = err
		return true
	}
	if err != nil {
		fmt.Fprintf(out.Writer, "❌ Error: %v\n\n", err)
	}
	return false
}

// runREPL starts the interactive CLI loop
func runREPL(opts *RootOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	a, err := openApp(ctx, opts, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          mainPrompt,
		HistoryFile:     a.cfg.HistoryFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to initialize readline", err)
	}
	defer rl.Close()

	fmt.Fprintln(a.out.Writer, "🗄️  Palude - Natural Language Database Query Tool")
	PrintDatabaseInfo(a.out.Writer, a.db.Info())

	r := &repl{app: a}
	if tr, err := newTranslator(a.cfg); err != nil {
		fmt.Fprintf(a.out.Writer, "⚠️  Translator unavailable: %v\n\n", err)
	} else {
		CheckTranslatorStatus(ctx, a.out.Writer, tr)
		r.assistant = assistant.New(tr, a.pipeline, assistant.Options{
			Dialect:     a.db.Dialect().Name(),
			Schema:      a.whitelist.Describe(),
			MaxAttempts: a.cfg.MaxAttempts,
			Confirm:     readlineConfirm(rl),
			Out:         a.out.Writer,
		})
	}
	fmt.Fprint(a.out.Writer, "Type :help for commands, 'exit' to quit\n\n")

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				break
			}
			continue
		} else if err == io.EOF {
			break
		}

		if r.handle(ctx, line) {
			break
		}
	}
	return r.fatal
}

// readlineConfirm asks for confirmation on the same terminal session.
func readlineConfirm(rl *readline.Instance) assistant.ConfirmFunc {
	return func(string) (bool, error) {
		rl.SetPrompt(confirmPrompt)
		defer rl.SetPrompt(mainPrompt)

		answer, err := rl.Readline()
		if err != nil {
			return false, err
		}
		return isYes(answer), nil
	}
}
