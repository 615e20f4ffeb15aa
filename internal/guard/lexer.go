package guard

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokSpace   tokenKind = iota
	tokComment           // -- line or /* block */
	tokWord              // unquoted identifier or keyword
	tokQuoted            // "identifier", `identifier` or [identifier]
	tokString            // 'literal'
	tokNumber
	tokPunct // any other single character
)

type token struct {
	kind tokenKind
	text string
}

func (t token) is(word string) bool {
	return t.kind == tokWord && strings.EqualFold(t.text, word)
}

func (t token) punct(p string) bool {
	return t.kind == tokPunct && t.text == p
}

// ident reports whether the token can name a table or alias.
func (t token) ident() bool {
	return t.kind == tokWord || t.kind == tokQuoted
}

// tableName reports whether the token can name a table: an identifier, or a
// string literal, which SQLite accepts in that position.
func (t token) tableName() bool {
	return t.ident() || t.kind == tokString
}

// name returns the identifier with quoting removed. A string literal in
// table position names a table on SQLite, so it unquotes the same way.
func (t token) name() string {
	switch {
	case t.kind == tokString:
		return t.literal()
	case t.kind != tokQuoted || len(t.text) < 2:
		return t.text
	case t.text[0] == '[':
		return t.text[1 : len(t.text)-1]
	}
	q := t.text[:1]
	return strings.ReplaceAll(t.text[1:len(t.text)-1], q+q, q)
}

// literal returns the contents of a string literal.
func (t token) literal() string {
	if t.kind != tokString || len(t.text) < 2 {
		return ""
	}
	return strings.ReplaceAll(t.text[1:len(t.text)-1], "''", "'")
}

var (
	errUnterminatedString  = errors.New("unterminated string literal")
	errUnterminatedQuote   = errors.New("unterminated quoted identifier")
	errUnterminatedComment = errors.New("unterminated block comment")
	errUnterminatedBracket = errors.New("unterminated bracket identifier")
	errBackslashQuote      = errors.New("backslash-escaped quote inside a literal")
)

// lexMode holds the engine-dependent parts of lexing.
type lexMode struct {
	// strictBackslash refuses a backslash before a closing quote in every
	// literal. Without it only E'...' strings are treated that way.
	strictBackslash bool

	// brackets reads [name] as a quoted identifier.
	brackets bool
}

// modeFor returns the lexing rules for a dialect name. Unknown dialects get
// the strictest rules.
func modeFor(dialect string) lexMode {
	switch strings.ToLower(dialect) {
	case "sqlite3", "sqlite":
		return lexMode{brackets: true}
	case "postgres", "postgresql", "pgx":
		return lexMode{}
	default:
		return lexMode{strictBackslash: true, brackets: true}
	}
}

// lex splits src into tokens. The lexer is deliberately small and only
// distinguishes what matters for boundaries: comments, literals, quoted
// identifiers and everything else.
//
// '#' is not treated as a comment and backslash is not an escape. Where an
// engine disagrees, it sees less code than the guard did, never more, with
// one exception: a backslash before a closing quote in a dialect where
// backslash may escape. That case is refused.
func lex(src string, mode lexMode) ([]token, error) {
	var toks []token
	i := 0

	for i < len(src) {
		c := src[i]
		start := i

		switch {
		case isSpace(c):
			for i < len(src) && isSpace(src[i]) {
				i++
			}
			toks = append(toks, token{tokSpace, src[start:i]})

		case c == '-' && i+1 < len(src) && src[i+1] == '-':
			if end := strings.IndexByte(src[i:], '\n'); end >= 0 {
				i += end
			} else {
				i = len(src)
			}
			toks = append(toks, token{tokComment, src[start:i]})

		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				return nil, errUnterminatedComment
			}
			i += 2 + end + 2
			toks = append(toks, token{tokComment, src[start:i]})

		case c == '\'':
			strict := mode.strictBackslash || escapeString(toks)
			end, err := scanQuoted(src, i, '\'', strict)
			if err != nil {
				if err == errUnterminatedQuote {
					err = errUnterminatedString
				}
				return nil, err
			}
			i = end
			toks = append(toks, token{tokString, src[start:i]})

		case c == '"' || c == '`':
			end, err := scanQuoted(src, i, c, mode.strictBackslash)
			if err != nil {
				return nil, err
			}
			i = end
			toks = append(toks, token{tokQuoted, src[start:i]})

		case c == '[' && mode.brackets:
			end := strings.IndexByte(src[i+1:], ']')
			if end < 0 {
				return nil, errUnterminatedBracket
			}
			i += 1 + end + 1
			toks = append(toks, token{tokQuoted, src[start:i]})

		case isDigit(c) || (c == '.' && i+1 < len(src) && isDigit(src[i+1])):
			i++
			for i < len(src) && (isDigit(src[i]) || isASCIILetter(src[i]) || src[i] == '.' || src[i] == '_' ||
				((src[i] == '+' || src[i] == '-') && (src[i-1] == 'e' || src[i-1] == 'E'))) {
				i++
			}
			toks = append(toks, token{tokNumber, src[start:i]})

		default:
			r, size := utf8.DecodeRuneInString(src[i:])
			if r == '_' || unicode.IsLetter(r) {
				i += size
				for i < len(src) {
					r, size = utf8.DecodeRuneInString(src[i:])
					if r != '_' && r != '$' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
						break
					}
					i += size
				}
				toks = append(toks, token{tokWord, src[start:i]})
				continue
			}
			i += size
			toks = append(toks, token{tokPunct, src[start:i]})
		}
	}

	return toks, nil
}

// escapeString reports whether the literal about to start is a PostgreSQL
// E'...' string, where backslash escapes.
func escapeString(toks []token) bool {
	if len(toks) == 0 {
		return false
	}
	prev := toks[len(toks)-1]
	return prev.kind == tokWord && strings.EqualFold(prev.text, "E")
}

// scanQuoted returns the index just past the closing quote q of the literal
// starting at i. A doubled quote is an escaped quote. With strict set, a
// backslash before q is refused.
func scanQuoted(src string, i int, q byte, strict bool) (int, error) {
	j := i + 1
	for j < len(src) {
		switch src[j] {
		case '\\':
			if strict && j+1 < len(src) && src[j+1] == q {
				return 0, errBackslashQuote
			}
		case q:
			if j+1 < len(src) && src[j+1] == q {
				j += 2
				continue
			}
			return j + 1, nil
		}
		j++
	}
	return 0, errUnterminatedQuote
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
