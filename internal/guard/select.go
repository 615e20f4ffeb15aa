package guard

// leadingSelect reports whether code is a SELECT, possibly wrapped in
// parentheses or preceded by a WITH list, and returns the CTE names the
// WITH list defines.
func leadingSelect(code []token) (bool, []string) {
	i := skipOpenParens(code, 0)
	if i >= len(code) {
		return false, nil
	}
	if code[i].is("SELECT") {
		return true, nil
	}
	if !code[i].is("WITH") {
		return false, nil
	}

	i++
	if i < len(code) && code[i].is("RECURSIVE") {
		i++
	}

	var names []string
	for {
		if i >= len(code) || !code[i].ident() {
			return false, nil
		}
		names = append(names, code[i].name())
		i++

		// optional column list: name (a, b) AS (...)
		if i < len(code) && code[i].punct("(") {
			i = matchParen(code, i) + 1
		}
		if i >= len(code) || !code[i].is("AS") {
			return false, nil
		}
		i++
		if i < len(code) && code[i].is("NOT") {
			i++
		}
		if i < len(code) && code[i].is("MATERIALIZED") {
			i++
		}
		if i >= len(code) || !code[i].punct("(") {
			return false, nil
		}
		i = matchParen(code, i) + 1

		if i < len(code) && code[i].punct(",") {
			i++
			continue
		}
		break
	}

	i = skipOpenParens(code, i)
	return i < len(code) && code[i].is("SELECT"), names
}

func skipOpenParens(code []token, i int) int {
	for i < len(code) && code[i].punct("(") {
		i++
	}
	return i
}
