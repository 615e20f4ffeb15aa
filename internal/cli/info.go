package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/tomventa/sqlwarden/internal/anthropic"
	"github.com/tomventa/sqlwarden/internal/assistant"
	"github.com/tomventa/sqlwarden/internal/config"
	"github.com/tomventa/sqlwarden/internal/dialect"
	"github.com/tomventa/sqlwarden/internal/ollama"
)

// translator is a provider that can also name itself.
type translator interface {
	assistant.Translator
	Name() string
}

// statusChecker is implemented by providers that can be probed cheaply.
type statusChecker interface {
	Status(ctx context.Context) error
}

// newTranslator builds the configured provider.
func newTranslator(cfg *config.Config) (translator, error) {
	switch cfg.Provider {
	case config.ProviderAnthropic:
		return anthropic.New(cfg)
	default:
		return ollama.New(cfg), nil
	}
}

// PrintDatabaseInfo prints parsed database connection info
func PrintDatabaseInfo(w io.Writer, info dialect.Info) {
	orUnknown := func(s string) string {
		if s == "" {
			return "?"
		}
		return s
	}
	fmt.Fprintf(w, "\n📦 Database connection info:\n")
	fmt.Fprintf(w, "  Engine:   %s\n", orUnknown(info.Engine))
	fmt.Fprintf(w, "  User:     %s\n", orUnknown(info.User))
	fmt.Fprintf(w, "  Host:     %s\n", orUnknown(info.Host))
	fmt.Fprintf(w, "  Port:     %s\n", orUnknown(info.Port))
	fmt.Fprintf(w, "  Database: %s\n\n", orUnknown(info.Database))
}

// CheckTranslatorStatus checks if the translator is reachable and prints status
func CheckTranslatorStatus(ctx context.Context, w io.Writer, t translator) {
	sc, ok := t.(statusChecker)
	if !ok {
		fmt.Fprintf(w, "🤖 Translator: %s\n\n", t.Name())
		return
	}
	if err := sc.Status(ctx); err != nil {
		fmt.Fprintf(w, "⚠️  Translator status (%s): %v\n\n", t.Name(), err)
		return
	}
	fmt.Fprintf(w, "🤖 Translator status (%s): running\n\n", t.Name())
}
