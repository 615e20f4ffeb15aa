package executor

import (
	"strings"
	"unicode/utf8"

	"github.com/tomventa/sqlwarden/internal/logging"
)

// maxMessageLen bounds failure messages shown to users.
const maxMessageLen = 300

// sanitize turns an engine error message into something safe to display:
// the statement and its string literals are cut out, secrets are masked,
// and the result is a single bounded line.
func sanitize(msg, statement string, literals []string) string {
	if statement != "" {
		msg = strings.ReplaceAll(msg, statement, "<statement>")
	}
	for _, lit := range literals {
		msg = strings.ReplaceAll(msg, lit, "***")
	}
	msg = logging.Mask(msg)
	msg = strings.Join(strings.Fields(msg), " ")

	if len(msg) > maxMessageLen {
		cut := maxMessageLen
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		msg = msg[:cut] + "..."
	}
	if msg == "" {
		msg = "query failed"
	}
	return msg
}
