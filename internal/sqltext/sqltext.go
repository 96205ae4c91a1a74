// Package sqltext holds quote-aware helpers for reading and rewriting the DDL
// text the engine stores in its catalog.
//
// Four identifier quoting conventions are understood: "double", `backtick`,
// [bracket] and 'single'. Double, backtick and single quotes escape an
// embedded quote by doubling it; brackets have no escaping.
package sqltext

import (
	"strings"
)

// Unquote strips one level of identifier quoting from s.
func Unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return s
	}
	switch first, last := s[0], s[len(s)-1]; {
	case first == '"' && last == '"':
		return strings.ReplaceAll(s[1:len(s)-1], `""`, `"`)
	case first == '`' && last == '`':
		return strings.ReplaceAll(s[1:len(s)-1], "``", "`")
	case first == '\'' && last == '\'':
		return strings.ReplaceAll(s[1:len(s)-1], "''", "'")
	case first == '[' && last == ']':
		return s[1 : len(s)-1]
	}
	return s
}

// UnquoteList splits a comma separated identifier list and unquotes each part.
func UnquoteList(s string) []string {
	parts := SplitTopLevel(s, ',')
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = Unquote(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// closingQuote returns the closing rune for an opening quote, or 0.
func closingQuote(c byte) byte {
	switch c {
	case '"', '`', '\'':
		return c
	case '[':
		return ']'
	}
	return 0
}

// skipQuoted returns the index just past the quoted section starting at i.
// Unterminated sections run to the end of s.
func skipQuoted(s string, i int) int {
	closer := closingQuote(s[i])
	for j := i + 1; j < len(s); j++ {
		if s[j] != closer {
			continue
		}
		if closer != ']' && j+1 < len(s) && s[j+1] == closer {
			j++
			continue
		}
		return j + 1
	}
	return len(s)
}

// skipComment returns the index just past a "--" or "/* */" comment starting
// at i. ok is false when no comment starts there. A line comment ends at the
// newline; an unterminated block comment runs to the end of s.
func skipComment(s string, i int) (end int, ok bool) {
	if i+1 >= len(s) {
		return i, false
	}
	switch {
	case s[i] == '-' && s[i+1] == '-':
		if j := strings.IndexByte(s[i+2:], '\n'); j >= 0 {
			return i + 2 + j, true
		}
		return len(s), true
	case s[i] == '/' && s[i+1] == '*':
		if j := strings.Index(s[i+2:], "*/"); j >= 0 {
			return i + 2 + j + 2, true
		}
		return len(s), true
	}
	return i, false
}

// StripComments replaces every comment outside quoted sections with a single
// space.
func StripComments(s string) string {
	if !strings.Contains(s, "--") && !strings.Contains(s, "/*") {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); {
		if closingQuote(s[i]) != 0 {
			j := skipQuoted(s, i)
			sb.WriteString(s[i:j])
			i = j
			continue
		}
		if j, ok := skipComment(s, i); ok {
			sb.WriteByte(' ')
			i = j
			continue
		}
		sb.WriteByte(s[i])
		i++
	}
	return sb.String()
}

// SplitTopLevel splits s on sep, ignoring separators inside quotes,
// comments or parentheses. Comments are removed from the parts. Parts are
// trimmed; empty parts are dropped.
func SplitTopLevel(s string, sep byte) []string {
	var parts []string
	depth, start := 0, 0
	emit := func(p string) {
		if p = strings.TrimSpace(StripComments(p)); p != "" {
			parts = append(parts, p)
		}
	}
	for i := 0; i < len(s); {
		c := s[i]
		if closingQuote(c) != 0 {
			i = skipQuoted(s, i)
			continue
		}
		if j, ok := skipComment(s, i); ok {
			i = j
			continue
		}
		switch {
		case c == '(':
			depth++
		case c == ')':
			if depth > 0 {
				depth--
			}
		case c == sep && depth == 0:
			emit(s[start:i])
			start = i + 1
		}
		i++
	}
	emit(s[start:])
	return parts
}

// BodyBounds returns the indexes of the first top-level opening parenthesis
// and its matching closing parenthesis.
func BodyBounds(s string) (open, end int, ok bool) {
	depth := 0
	open = -1
	for i := 0; i < len(s); {
		c := s[i]
		if closingQuote(c) != 0 {
			i = skipQuoted(s, i)
			continue
		}
		if j, ok := skipComment(s, i); ok {
			i = j
			continue
		}
		switch c {
		case '(':
			if depth == 0 && open < 0 {
				open = i
			}
			depth++
		case ')':
			depth--
			if depth == 0 && open >= 0 {
				return open, i, true
			}
		}
		i++
	}
	return -1, -1, false
}

// Body returns the text between the outer parentheses of a CREATE statement.
func Body(createSQL string) (string, bool) {
	open, end, ok := BodyBounds(createSQL)
	if !ok {
		return "", false
	}
	return createSQL[open+1 : end], true
}

// Tokenize splits s into words, quoted identifiers or strings, parenthesized
// groups and single punctuation characters. Whitespace and comments
// separate tokens and are dropped. Token text is kept verbatim.
func Tokenize(s string) []string {
	var toks []string
	for i := 0; i < len(s); {
		c := s[i]
		if j, ok := skipComment(s, i); ok {
			i = j
			continue
		}
		switch {
		case isSpace(c):
			i++
		case closingQuote(c) != 0:
			j := skipQuoted(s, i)
			toks = append(toks, s[i:j])
			i = j
		case c == '(':
			j := matchParen(s, i)
			toks = append(toks, s[i:j])
			i = j
		case isWord(c):
			j := i
			for j < len(s) && isWord(s[j]) {
				j++
			}
			toks = append(toks, s[i:j])
			i = j
		default:
			toks = append(toks, s[i:i+1])
			i++
		}
	}
	return toks
}

// matchParen returns the index just past the group opened at s[i].
func matchParen(s string, i int) int {
	depth := 0
	for j := i; j < len(s); {
		c := s[j]
		if closingQuote(c) != 0 {
			j = skipQuoted(s, j)
			continue
		}
		if end, ok := skipComment(s, j); ok {
			j = end
			continue
		}
		switch c {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return j + 1
			}
		}
		j++
	}
	return len(s)
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func isWord(c byte) bool {
	return c == '_' || c == '$' || c == '.' ||
		(c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

// IsKeyword reports whether tok is the bare (unquoted) keyword kw.
func IsKeyword(tok, kw string) bool {
	return strings.EqualFold(tok, kw)
}

// MentionsIdentifier reports whether sql mentions name as an identifier
// token, quoted or bare, or as the table part of a qualified name.
func MentionsIdentifier(sql, name string) bool {
	for _, tok := range Tokenize(sql) {
		if strings.HasPrefix(tok, "(") {
			if MentionsIdentifier(tok[1:max(1, len(tok)-1)], name) {
				return true
			}
			continue
		}
		if tok[0] == '\'' {
			continue
		}
		if strings.EqualFold(Unquote(tok), name) {
			return true
		}
		if head, _, ok := strings.Cut(tok, "."); ok && strings.EqualFold(Unquote(head), name) {
			return true
		}
	}
	return false
}
