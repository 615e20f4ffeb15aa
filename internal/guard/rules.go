package guard

import (
	"fmt"
	"strings"

	"github.com/tomventa/sqlwarden/internal/reason"
)

// rule is one link of the chain: a predicate and the code it rejects with.
type rule struct {
	name  string
	code  reason.Code
	check func(s *statement, ctx *checkContext) (msg string, ok bool)
}

// RuleInfo describes a rule for callers that document or test the chain.
type RuleInfo struct {
	Name string
	Code reason.Code
}

// checkContext carries facts earlier rules discovered to later ones.
type checkContext struct {
	ctes   []string
	parsed *parsedQuery
}

func (g *Guard) chain() []rule {
	rules := []rule{
		{"empty", reason.Empty, checkEmpty},
		{"well-formed", reason.NotSelect, checkWellFormed},
		{"forbidden-keyword", reason.ForbiddenKeyword, g.checkForbidden},
		{"single-statement", reason.MultiStatement, checkSingleStatement},
		{"select-only", reason.NotSelect, checkSelect},
	}
	if g.cfg.CheckTables {
		rules = append(rules, rule{"known-tables", reason.UnknownTable, g.checkTables})
	}
	if strings.EqualFold(g.cfg.Dialect, "mysql") {
		rules = append(rules, rule{"grammar-select", reason.NotSelect, checkGrammarSelect})
		if g.cfg.CheckTables {
			rules = append(rules, rule{"grammar-tables", reason.UnknownTable, g.checkGrammarTables})
		}
	}
	return rules
}

func checkEmpty(s *statement, _ *checkContext) (string, bool) {
	if strings.TrimSpace(s.text) == "" {
		return "statement is empty", false
	}
	if s.lexErr != nil {
		// unclassifiable text is not empty; the next rule reports it
		return "", true
	}
	for _, t := range s.code {
		if !t.punct(";") {
			return "", true
		}
	}
	return "statement is empty", false
}

func checkWellFormed(s *statement, _ *checkContext) (string, bool) {
	const prefix = "statement is not a well-formed single SQL statement"
	if s.lexErr != nil {
		return prefix + ": " + s.lexErr.Error(), false
	}
	if strings.IndexByte(s.text, 0) >= 0 {
		return prefix + ": contains a NUL byte", false
	}
	if !balanced(s.code) {
		return prefix + ": unbalanced parentheses", false
	}
	return "", true
}

// checkForbidden scans the whole text, comments and literals included, so
// nothing a comment hides from one rule can be hidden from this one.
func (g *Guard) checkForbidden(s *statement, _ *checkContext) (string, bool) {
	if word := g.forbidden.FindString(s.text); word != "" {
		return fmt.Sprintf("statement contains forbidden keyword %s", strings.ToUpper(word)), false
	}
	return "", true
}

// checkSingleStatement allows one terminator, and only as the last thing in
// the text. Terminators inside comments count.
func checkSingleStatement(s *statement, _ *checkContext) (string, bool) {
	const msg = "statement contains more than one SQL statement"
	seen := false
	for _, t := range s.toks {
		switch {
		case seen && t.kind != tokSpace:
			return msg, false
		case t.punct(";"):
			seen = true
		case t.kind == tokComment && strings.Contains(t.text, ";"):
			return msg, false
		}
	}
	return "", true
}

func checkSelect(s *statement, ctx *checkContext) (string, bool) {
	ok, ctes := leadingSelect(s.body())
	if !ok {
		return "only SELECT statements are allowed", false
	}
	ctx.ctes = ctes
	return "", true
}

func (g *Guard) checkTables(s *statement, ctx *checkContext) (string, bool) {
	for _, ref := range tableRefs(s.body()) {
		if msg, ok := g.allowRef(ref, ctx.ctes); !ok {
			return msg, false
		}
	}
	return "", true
}

func checkGrammarSelect(s *statement, ctx *checkContext) (string, bool) {
	ctx.parsed = parseMySQL(s.stripped())
	if ctx.parsed != nil && !ctx.parsed.isSelect() {
		return "only SELECT statements are allowed", false
	}
	return "", true
}

func (g *Guard) checkGrammarTables(_ *statement, ctx *checkContext) (string, bool) {
	if ctx.parsed == nil {
		return "", true
	}
	for _, ref := range ctx.parsed.tables() {
		if msg, ok := g.allowRef(ref, nil); !ok {
			return msg, false
		}
	}
	return "", true
}

func (g *Guard) allowRef(ref tableRef, ctes []string) (string, bool) {
	if ref.function {
		return fmt.Sprintf("statement reads from table function %q", ref.String()), false
	}

	switch len(ref.qualifier) {
	case 0:
		if strings.EqualFold(ref.name, "dual") {
			return "", true
		}
		for _, c := range ctes {
			if strings.EqualFold(c, ref.name) {
				return "", true
			}
		}
		if g.tables.HasTable(ref.name) {
			return "", true
		}
	case 1:
		if strings.EqualFold(ref.qualifier[0], g.tables.Schema()) && g.tables.HasTable(ref.name) {
			return "", true
		}
	}
	return fmt.Sprintf("statement references unknown table %q", ref.String()), false
}
