package guard

import (
	"strconv"
	"strings"
)

// statement is one candidate after normalization and lexing. Rules read it;
// none of them mutate it.
type statement struct {
	// text is the NFKC-normalized candidate.
	text string

	// toks is every token of text, comments and whitespace included.
	toks []token

	// code is toks without whitespace and comments.
	code []token

	// pos maps each code token to its index in toks.
	pos []int

	// lexErr is set when text could not be tokenized.
	lexErr error
}

func analyze(text string, mode lexMode) *statement {
	s := &statement{text: text}
	s.toks, s.lexErr = lex(text, mode)
	if s.lexErr != nil {
		return s
	}
	for i, t := range s.toks {
		if t.kind != tokSpace && t.kind != tokComment {
			s.code = append(s.code, t)
			s.pos = append(s.pos, i)
		}
	}
	return s
}

// body returns the code tokens without a trailing terminator.
func (s *statement) body() []token {
	code := s.code
	if n := len(code); n > 0 && code[n-1].punct(";") {
		return code[:n-1]
	}
	return code
}

// stripped rebuilds the statement as it will be executed: comments removed,
// a trailing terminator removed, surrounding whitespace trimmed. Everything
// left was seen by every rule.
func (s *statement) stripped() string {
	return strings.TrimSpace(s.render(0, len(s.toks)))
}

// withLimit is stripped with a LIMIT clause added. The clause goes before a
// top-level locking clause (FOR SHARE, LOCK IN SHARE MODE), which must come
// last, and at the end otherwise.
func (s *statement) withLimit(limit int) string {
	at := s.lockingClause()
	if at < 0 {
		return appendLimit(s.stripped(), limit)
	}

	head := strings.TrimSpace(s.render(0, at))
	tail := strings.TrimSpace(s.render(at, len(s.toks)))
	sep := limitSeparator(head + " " + tail)
	return head + sep + "LIMIT " + strconv.Itoa(limit) + sep + tail
}

// render writes toks[from:to] with comments replaced by a space and the
// trailing terminator dropped.
func (s *statement) render(from, to int) string {
	last := -1
	for i := len(s.toks) - 1; i >= 0; i-- {
		if s.toks[i].kind == tokSpace || s.toks[i].kind == tokComment {
			continue
		}
		if s.toks[i].punct(";") {
			last = i
		}
		break
	}

	var b strings.Builder
	for i := from; i < to; i++ {
		t := s.toks[i]
		if i == last {
			continue
		}
		if t.kind == tokComment {
			if out := b.String(); len(out) > 0 && !isSpace(out[len(out)-1]) {
				b.WriteByte(' ')
			}
			continue
		}
		b.WriteString(t.text)
	}
	return b.String()
}

// lockingClause returns the toks index where a top-level FOR UPDATE/SHARE
// (with NO KEY, KEY SHARE variants) or LOCK IN SHARE MODE clause starts, or
// -1 when there is none.
func (s *statement) lockingClause() int {
	code := s.body()
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
		if depth != 0 || i+1 >= len(code) {
			continue
		}
		next := code[i+1]
		switch {
		case t.is("FOR") && (next.is("UPDATE") || next.is("SHARE") || next.is("NO") || next.is("KEY")):
			return s.pos[i]
		case t.is("LOCK") && next.is("IN"):
			return s.pos[i]
		}
	}
	return -1
}

// literals returns the string literal contents long enough to be worth
// redacting from engine error messages.
func (s *statement) literals() []string {
	var out []string
	for _, t := range s.code {
		if t.kind != tokString {
			continue
		}
		if lit := t.literal(); len(lit) >= 3 {
			out = append(out, lit)
		}
	}
	return out
}

// balanced reports whether parentheses in code tokens nest properly.
func balanced(code []token) bool {
	depth := 0
	for _, t := range code {
		switch {
		case t.punct("("):
			depth++
		case t.punct(")"):
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}

// matchParen returns the index of the ')' closing the '(' at i, or len(code)
// when there is none.
func matchParen(code []token, i int) int {
	depth := 0
	for j := i; j < len(code); j++ {
		switch {
		case code[j].punct("("):
			depth++
		case code[j].punct(")"):
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return len(code)
}
