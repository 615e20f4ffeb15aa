package tableprint

import (
	"fmt"
	"io"

	"github.com/pterm/pterm"

	"github.com/tomventa/sqlwarden/internal/envelope"
)

// Table renders headers and rows as an aligned table.
func Table(headers []string, rows [][]string) (string, error) {
	data := make(pterm.TableData, 0, len(rows)+1)
	data = append(data, headers)
	data = append(data, rows...)

	return pterm.DefaultTable.
		WithHasHeader().
		WithHeaderRowSeparator("-").
		WithData(data).
		Srender()
}

// Render prints an envelope the way the interactive tool shows results:
// a table plus a summary line, or the reason the statement did not run.
func Render(w io.Writer, env envelope.Envelope) error {
	if !env.OK {
		verb := "failed"
		if env.ErrorCode.IsGuard() {
			verb = "rejected"
		}
		fmt.Fprintf(w, "❌ Query %s [%s]: %s\n", verb, env.ErrorCode, env.ErrorMessage)
		if env.Executed != "" {
			fmt.Fprintf(w, "   Statement: %s\n", env.Executed)
		}
		fmt.Fprintln(w)
		return nil
	}

	fmt.Fprintln(w, "📊 Results:")
	if len(env.Rows) == 0 {
		fmt.Fprintln(w, "  (no rows)")
	} else {
		rows := make([][]string, len(env.Rows))
		for i, row := range env.Rows {
			cells := make([]string, len(row))
			for j, v := range row {
				cells[j] = v.String()
			}
			rows[i] = cells
		}
		out, err := Table(env.Columns, rows)
		if err != nil {
			return err
		}
		fmt.Fprint(w, out)
		if len(out) > 0 && out[len(out)-1] != '\n' {
			fmt.Fprintln(w)
		}
	}

	fmt.Fprintf(w, "\n✅ Query executed successfully. %d rows returned.\n", env.RowCount())
	if env.Truncated {
		fmt.Fprintf(w, "⚠️  More rows were available; output stopped at %d.\n", env.RowCount())
	}
	fmt.Fprintln(w)
	return nil
}
