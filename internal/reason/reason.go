// Package reason defines the closed set of codes a query can be rejected or
// failed with. The codes are part of the library contract: callers branch on
// them and the CLI prints them verbatim.
package reason

// Code is a machine-readable rejection or failure category.
type Code string

const (
	// Empty indicates the candidate held nothing but whitespace, comments or terminators.
	Empty Code = "EMPTY"

	// NotSelect indicates the statement is not a plain read (SELECT or a CTE resolving to one),
	// or is not well-formed enough to classify.
	NotSelect Code = "NOT_SELECT"

	// ForbiddenKeyword indicates a denylisted verb appears as a whole word anywhere in the text.
	ForbiddenKeyword Code = "FORBIDDEN_KEYWORD"

	// MultiStatement indicates a statement separator followed by more content.
	MultiStatement Code = "MULTI_STATEMENT"

	// UnknownTable indicates a referenced table outside the schema whitelist.
	UnknownTable Code = "UNKNOWN_TABLE"

	// ExecutionError indicates the database rejected an approved statement.
	ExecutionError Code = "EXECUTION_ERROR"

	// Timeout indicates execution exceeded its wall-clock bound.
	Timeout Code = "TIMEOUT"
)

// GuardCodes lists the codes the guard can produce, in chain order.
var GuardCodes = []Code{Empty, ForbiddenKeyword, MultiStatement, NotSelect, UnknownTable}

// IsGuard reports whether c is produced at validation time (before execution).
func (c Code) IsGuard() bool {
	for _, g := range GuardCodes {
		if g == c {
			return true
		}
	}
	return false
}

func (c Code) String() string { return string(c) }
