package guard

import (
	"fmt"

	"github.com/tomventa/sqlwarden/internal/reason"
)

// Decision is the outcome of Check: approved with the statement to run, or
// rejected with a reason code and a message safe to show a user.
//
// Only the guard creates approved decisions, so holding one proves the
// statement went through the chain.
type Decision struct {
	code     reason.Code
	rule     string
	message  string
	sql      string
	bound    int
	capped   bool
	literals []string
}

func reject(rule string, code reason.Code, msg string) Decision {
	return Decision{code: code, rule: rule, message: msg}
}

// Approved reports whether the statement may run.
func (d Decision) Approved() bool { return d.code == "" }

// Code is the rejection reason; empty when approved.
func (d Decision) Code() reason.Code { return d.code }

// Rule names the rule that rejected the statement; empty when approved.
func (d Decision) Rule() string { return d.rule }

// Message is the human-readable rejection message; empty when approved.
func (d Decision) Message() string { return d.message }

// SQL is the statement to execute; empty when rejected.
func (d Decision) SQL() string { return d.sql }

// Bound is the row bound in force: the statement's own numeric bound, or the
// configured default.
func (d Decision) Bound() int { return d.bound }

// Capped reports whether the guard appended the default LIMIT.
func (d Decision) Capped() bool { return d.capped }

// Literals returns the string literals of the statement, for redaction.
func (d Decision) Literals() []string { return append([]string(nil), d.literals...) }

func (d Decision) String() string {
	if d.Approved() {
		return fmt.Sprintf("Approved(%s)", d.sql)
	}
	return fmt.Sprintf("Rejected(%s, %s)", d.code, d.message)
}
