package guard

import (
	"strings"
)

// tableRef is one table reference found after FROM or JOIN.
type tableRef struct {
	qualifier []string
	name      string
	function  bool
}

func (r tableRef) String() string {
	if len(r.qualifier) == 0 {
		return r.name
	}
	return strings.Join(r.qualifier, ".") + "." + r.name
}

// clauseWords end a table reference: none of them can be an alias.
var clauseWords = map[string]bool{
	"WHERE": true, "GROUP": true, "ORDER": true, "HAVING": true, "LIMIT": true,
	"OFFSET": true, "UNION": true, "INTERSECT": true, "EXCEPT": true, "MINUS": true,
	"JOIN": true, "INNER": true, "LEFT": true, "RIGHT": true, "FULL": true,
	"CROSS": true, "NATURAL": true, "OUTER": true, "ON": true, "USING": true,
	"WINDOW": true, "FETCH": true, "FOR": true, "QUALIFY": true, "STRAIGHT_JOIN": true,
	"USE": true, "FORCE": true, "IGNORE": true, "TABLESAMPLE": true, "SELECT": true,
	"FROM": true, "AS": true, "WITH": true, "VALUES": true, "LATERAL": true,
	"INTO": true, "PARTITION": true, "RETURNING": true,
}

func isClauseWord(t token) bool {
	return t.kind == tokWord && clauseWords[strings.ToUpper(t.text)]
}

// frame tracks one parenthesis level while scanning.
type frame struct {
	query bool // a SELECT appeared at this level
}

// tableRefs returns every table reference in code. FROM inside a function
// call (EXTRACT(YEAR FROM d), TRIM(x FROM y)) and IS DISTINCT FROM are not
// table references; subqueries are scanned like the outer query.
func tableRefs(code []token) []tableRef {
	var refs []tableRef
	stack := []frame{{query: true}}

	for i, t := range code {
		top := &stack[len(stack)-1]

		switch {
		case t.punct("("):
			stack = append(stack, frame{})
		case t.punct(")"):
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
		case t.is("SELECT"):
			top.query = true
		case t.is("FROM"):
			if !top.query || (i > 0 && code[i-1].is("DISTINCT")) {
				continue
			}
			refs = collectList(code, i+1, true, refs)
		case t.is("JOIN") || t.is("STRAIGHT_JOIN"):
			refs = collectList(code, i+1, false, refs)
		}
	}

	return refs
}

// collectList reads the table reference at i and, in a FROM list, every
// comma-separated reference after it. Join conditions, index hints and other
// clutter between a reference and the next comma are skipped, so a comma
// anywhere before the end of the FROM clause starts another reference.
func collectList(code []token, i int, list bool, refs []tableRef) []tableRef {
	for {
		var ref *tableRef
		ref, i, refs = parseRef(code, i, refs)
		if ref != nil {
			refs = append(refs, *ref)
		}
		i = skipAlias(code, i)
		if !list {
			return refs
		}

		i = nextListItem(code, i)
		if i < 0 {
			return refs
		}
	}
}

// fromEnd are words that always end a FROM clause.
var fromEnd = map[string]bool{
	"WHERE": true, "GROUP": true, "ORDER": true, "HAVING": true, "LIMIT": true,
	"UNION": true, "INTERSECT": true, "EXCEPT": true, "SELECT": true, "VALUES": true,
	"RETURNING": true, "INTO": true,
}

// softEnd are words that end a FROM clause unless used as an alias, which
// SQLite allows.
var softEnd = map[string]bool{
	"OFFSET": true, "FOR": true, "WINDOW": true, "FETCH": true, "QUALIFY": true,
	"MINUS": true, "LOCK": true,
}

// continuesFrom are words that can follow an alias inside a FROM clause.
var continuesFrom = map[string]bool{
	"JOIN": true, "INNER": true, "LEFT": true, "RIGHT": true, "FULL": true,
	"CROSS": true, "NATURAL": true, "STRAIGHT_JOIN": true, "ON": true,
	"USING": true, "INDEXED": true, "NOT": true,
}

// nextListItem returns the index just after the next comma of the FROM list
// that starts at or after i, or -1 when the clause ends first.
func nextListItem(code []token, i int) int {
	for i < len(code) {
		t := code[i]
		switch {
		case t.punct(","):
			return i + 1
		case t.punct("("):
			i = matchParen(code, i) + 1
			continue
		case t.punct(")"), t.punct(";"):
			return -1
		case t.kind == tokWord:
			w := strings.ToUpper(t.text)
			if fromEnd[w] {
				return -1
			}
			if softEnd[w] && !(i+1 < len(code) && (code[i+1].punct(",") || continuesFrom[strings.ToUpper(code[i+1].text)])) {
				return -1
			}
		}
		i++
	}
	return -1
}

// parseRef reads one table reference at i. Whatever stands in table
// position is taken as a name, so tokens no engine would read as a table
// still reach the whitelist and fail there.
func parseRef(code []token, i int, refs []tableRef) (*tableRef, int, []tableRef) {
	for i < len(code) && (code[i].is("LATERAL") || code[i].is("ONLY")) {
		i++
	}
	if i >= len(code) {
		return nil, i, refs
	}

	if code[i].punct("(") {
		end := matchParen(code, i)
		next := skipOpenParens(code, i+1)
		if next < len(code) && !(code[next].is("SELECT") || code[next].is("WITH") || code[next].is("VALUES")) {
			// parenthesized join: (a JOIN b ON ...)
			refs = collectList(code, i+1, true, refs)
		}
		return nil, end + 1, refs
	}

	if !code[i].tableName() {
		return &tableRef{name: code[i].text}, i + 1, refs
	}

	parts := []string{code[i].name()}
	i++
	for i+1 < len(code) && code[i].punct(".") && code[i+1].tableName() {
		parts = append(parts, code[i+1].name())
		i += 2
	}

	ref := &tableRef{qualifier: parts[:len(parts)-1], name: parts[len(parts)-1]}
	if i < len(code) && code[i].punct("(") {
		ref.function = true
		i = matchParen(code, i) + 1
	}
	return ref, i, refs
}

// skipAlias steps over "[AS] alias [(col, ...)]". SQLite also takes a
// string literal as an alias.
func skipAlias(code []token, i int) int {
	if i < len(code) && code[i].is("AS") {
		i++
		if i < len(code) && code[i].tableName() {
			i++
		}
	} else if i < len(code) && code[i].tableName() && !isClauseWord(code[i]) {
		i++
	}
	if i < len(code) && code[i].punct("(") {
		i = matchParen(code, i) + 1
	}
	return i
}
