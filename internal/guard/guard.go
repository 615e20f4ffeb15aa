// Package guard decides whether an untrusted SQL string may run.
//
// Check is a pure function of the candidate text, the schema whitelist and
// the configuration. It runs an ordered rule chain and stops at the first
// rule that fails; the order, and therefore which reason code wins when a
// statement breaks several rules, is fixed:
//
//  1. empty                EMPTY
//  2. well-formed          NOT_SELECT
//  3. forbidden keyword    FORBIDDEN_KEYWORD
//  4. single statement     MULTI_STATEMENT
//  5. select only          NOT_SELECT
//  6. known tables         UNKNOWN_TABLE
//  7. grammar (mysql)      NOT_SELECT / UNKNOWN_TABLE
//
// An approved statement has comments and its trailing terminator removed,
// and gets a LIMIT added when the outermost query has no bound of its own.
// The LIMIT goes before a trailing locking clause, at the end otherwise.
package guard

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/tomventa/sqlwarden/internal/reason"
)

// DefaultRowLimit is the bound appended to statements that declare none.
const DefaultRowLimit = 100

// DefaultMaxLength caps candidate text length in bytes.
const DefaultMaxLength = 64 * 1024

// ForbiddenKeywords are rejected as whole words anywhere in a statement,
// string literals and comments included.
var ForbiddenKeywords = []string{
	// data mutation
	"insert", "update", "delete", "merge", "replace",
	// schema mutation
	"create", "alter", "drop", "truncate",
	// privileges and procedures
	"grant", "revoke", "exec", "execute", "call",
	// transaction control
	"commit", "rollback", "begin",
	// writes and side channels reachable from a SELECT
	"into", "outfile", "dumpfile", "attach", "detach", "pragma", "vacuum",
}

// ErrNoWhitelist is returned by New when table checks are on but no
// whitelist was supplied.
var ErrNoWhitelist = errors.New("guard: table check enabled without a schema whitelist")

// TableSet is the read-only view of the schema whitelist the guard needs.
type TableSet interface {
	Schema() string
	HasTable(name string) bool
}

// Config controls the guard.
type Config struct {
	// RowLimit is appended as LIMIT when a statement has no bound.
	RowLimit int

	// CheckTables enables the table whitelist rule.
	CheckTables bool

	// ExtraKeywords extends ForbiddenKeywords.
	ExtraKeywords []string

	// MaxLength rejects longer candidates. Zero means DefaultMaxLength.
	MaxLength int

	// Dialect enables engine-specific rules; "mysql" adds the grammar check.
	Dialect string
}

// Guard validates candidate statements. It is immutable and safe for
// concurrent use.
type Guard struct {
	cfg       Config
	tables    TableSet
	forbidden *regexp.Regexp
	mode      lexMode
	rules     []rule
}

var wordPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// New builds a Guard. tables may be nil only when cfg.CheckTables is false.
func New(cfg Config, tables TableSet) (*Guard, error) {
	if cfg.RowLimit <= 0 {
		return nil, fmt.Errorf("guard: row limit must be positive, got %d", cfg.RowLimit)
	}
	if cfg.MaxLength <= 0 {
		cfg.MaxLength = DefaultMaxLength
	}
	if cfg.CheckTables && tables == nil {
		return nil, ErrNoWhitelist
	}

	words := append([]string(nil), ForbiddenKeywords...)
	for _, w := range cfg.ExtraKeywords {
		if !wordPattern.MatchString(w) {
			return nil, fmt.Errorf("guard: invalid forbidden keyword %q", w)
		}
		words = append(words, strings.ToLower(w))
	}
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}

	g := &Guard{
		cfg:       cfg,
		tables:    tables,
		forbidden: regexp.MustCompile(`(?i)\b(?:` + strings.Join(words, "|") + `)\b`),
		mode:      modeFor(cfg.Dialect),
	}
	g.rules = g.chain()
	return g, nil
}

// Config returns the configuration the guard was built with.
func (g *Guard) Config() Config {
	return g.cfg
}

// Check classifies candidate. It never panics or errors on bad input: every
// outcome is a Decision.
func (g *Guard) Check(candidate string) Decision {
	if len(candidate) > g.cfg.MaxLength {
		return reject("length", reason.NotSelect,
			fmt.Sprintf("statement exceeds %d bytes", g.cfg.MaxLength))
	}

	s := analyze(norm.NFKC.String(candidate), g.mode)
	ctx := &checkContext{}

	for _, r := range g.rules {
		if msg, ok := r.check(s, ctx); !ok {
			return reject(r.name, r.code, msg)
		}
	}

	sql := s.stripped()
	explicit, n := rowBound(s.body())
	bound := g.cfg.RowLimit
	if explicit && n > 0 {
		bound = n
	}
	if !explicit {
		sql = s.withLimit(g.cfg.RowLimit)
	}

	return Decision{
		sql:      sql,
		bound:    bound,
		capped:   !explicit,
		literals: s.literals(),
	}
}

// Rules lists the rule chain in evaluation order as name/code pairs.
func (g *Guard) Rules() []RuleInfo {
	out := make([]RuleInfo, len(g.rules))
	for i, r := range g.rules {
		out[i] = RuleInfo{Name: r.name, Code: r.code}
	}
	return out
}
