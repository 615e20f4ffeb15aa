package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tomventa/sqlwarden/internal/assistant"
	"github.com/tomventa/sqlwarden/internal/executor"
)

// AskOptions holds flags for the ask command.
type AskOptions struct {
	Yes bool
}

// NewAskCommand creates the ask command.
func NewAskCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AskOptions{}

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Translate a question into SQL and run it",
		Long: `Ask the configured translator (Ollama or Anthropic) to write a SELECT
for the question, then run it through the safety guard. Rejected or failing
statements are sent back to the translator with the reason, up to
max_attempts times.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(rootOpts, opts, strings.Join(args, " "), cmd)
		},
	}

	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "run the generated statement without asking")

	return cmd
}

func runAsk(rootOpts *RootOptions, opts *AskOptions, question string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	a, err := openApp(ctx, rootOpts, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	tr, err := newTranslator(a.cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to set up translator", err)
	}

	progress := a.out.Writer
	if rootOpts.Format == "json" {
		progress = a.out.GetErrWriter()
	}

	var confirm assistant.ConfirmFunc
	if !opts.Yes {
		confirm = promptConfirm(cmd.InOrStdin(), a.out.GetErrWriter())
	}

	asst := assistant.New(tr, a.pipeline, assistant.Options{
		Dialect:     a.db.Dialect().Name(),
		Schema:      a.whitelist.Describe(),
		MaxAttempts: a.cfg.MaxAttempts,
		Confirm:     confirm,
		Out:         progress,
	})
	return askAndPrint(ctx, asst, a.out, question)
}

// askAndPrint asks one question and prints the final envelope.
func askAndPrint(ctx context.Context, asst *assistant.Assistant, out *OutputFormatter, question string) error {
	ans, err := asst.Ask(ctx, question)
	switch {
	case ans.Cancelled:
		return nil
	case err == nil:
		if err := out.Envelope(ans.Envelope); err != nil {
			return WrapExitError(ExitCommandError, "failed to write output", err)
		}
		return nil
	case errors.Is(err, assistant.ErrGaveUp):
		if err := out.Envelope(ans.Envelope); err != nil {
			return WrapExitError(ExitCommandError, "failed to write output", err)
		}
		return WrapExitError(ExitFailure, "no working statement", err)
	case errors.Is(err, executor.ErrWriteDetected), errors.Is(err, executor.ErrUnavailable):
		return hardError(err)
	default:
		return WrapExitError(ExitCommandError, "question failed", err)
	}
}

// promptConfirm asks on w and reads the answer from r.
func promptConfirm(r io.Reader, w io.Writer) assistant.ConfirmFunc {
	scanner := bufio.NewScanner(r)
	return func(statement string) (bool, error) {
		fmt.Fprint(w, "❓ Execute this query? (y/N): ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return false, err
			}
			return false, errors.New("no answer on input")
		}
		return isYes(scanner.Text()), nil
	}
}

func isYes(answer string) bool {
	a := strings.ToLower(strings.TrimSpace(answer))
	return a == "y" || a == "yes"
}
