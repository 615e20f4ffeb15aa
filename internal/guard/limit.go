package guard

import (
	"strconv"
	"strings"
)

// rowBound looks for a bound on the outermost query: LIMIT n, LIMIT off, n
// (MySQL) or FETCH FIRST n ROWS ONLY. Bounds inside subqueries and CTE bodies
// do not count. explicit is true when a bound clause exists at all; n is 0
// when it exists but is not a plain number (LIMIT ALL, LIMIT ?).
func rowBound(code []token) (explicit bool, n int) {
	depth := 0
	for i, t := range code {
		switch {
		case t.punct("("):
			depth++
			continue
		case t.punct(")"):
			depth--
			continue
		}
		if depth != 0 {
			continue
		}

		switch {
		case t.is("LIMIT"):
			n = numberAt(code, i+1)
			if i+3 < len(code) && code[i+2].punct(",") {
				n = numberAt(code, i+3)
			}
			return true, n
		case t.is("FETCH"):
			if i+1 < len(code) && (code[i+1].is("FIRST") || code[i+1].is("NEXT")) {
				if n = numberAt(code, i+2); n == 0 && i+2 < len(code) && code[i+2].is("ROW") {
					n = 1
				}
				return true, n
			}
		}
	}
	return false, 0
}

func numberAt(code []token, i int) int {
	if i >= len(code) || code[i].kind != tokNumber {
		return 0
	}
	n, err := strconv.Atoi(code[i].text)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// appendLimit adds the default bound to sql.
func appendLimit(sql string, limit int) string {
	return sql + limitSeparator(sql) + "LIMIT " + strconv.Itoa(limit)
}

// limitSeparator is the whitespace put around an added LIMIT. A '#' anywhere
// in the text may start a comment on MySQL, so the bound goes on its own line
// there.
func limitSeparator(sql string) string {
	if strings.ContainsRune(sql, '#') {
		return "\n"
	}
	return " "
}
