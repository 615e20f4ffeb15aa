package utils

import (
	"regexp"
	"strings"
)

var (
	fencedBlock = regexp.MustCompile("(?s)```(?:[A-Za-z]+[ \\t]*\\r?\\n|[ \\t]*\\r?\\n?)(.*?)```")
	sqlLabel    = regexp.MustCompile(`(?i)^(?:corrected\s+)?sql\s*:\s*`)
)

// CleanSQLResponse removes markdown formatting from generated SQL. When the
// model wrapped the statement in a fenced block surrounded by prose, only
// the first block is kept.
func CleanSQLResponse(sqlQuery string) string {
	// Clean up the response
	cleaned := strings.TrimSpace(sqlQuery)
	if m := fencedBlock.FindStringSubmatch(cleaned); m != nil {
		cleaned = m[1]
	} else {
		cleaned = strings.TrimPrefix(cleaned, "```sql")
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(cleaned, "```")
	}
	cleaned = strings.TrimSpace(cleaned)
	cleaned = sqlLabel.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(cleaned)
}
