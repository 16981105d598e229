// Package placeholder implements the lexical-region-aware '?' normaliser
// (spec §4.B). Query fragments produced throughout folding are always
// authored with a single "?" placeholder style; this package rewrites them
// to a target dialect's native style right before a fragment is handed
// back as a NativeFragment, walking the SQL text char-by-char so that
// quoted strings, quoted identifiers, line/block comments, and Postgres
// dollar-quoted bodies are never mistaken for placeholders. It is
// grounded on the teacher's internal/sql_helpers.go template-rendering
// style: a single forward scan building an output buffer, no regexp.
package placeholder

import (
	"strconv"
	"strings"
)

// Style is the target placeholder syntax.
type Style string

const (
	StylePositionalDollar Style = "dollar" // $1, $2, ... (Postgres)
	StylePositionalAt     Style = "at"     // @p1, @p2, ... (SQL Server)
	StyleQuestion         Style = "question" // ?, ?, ... (MySQL, SQLite) — a no-op rewrite
)

// Normalize rewrites every lexically-real '?' in sql to the placeholder
// style, starting numbering at startIndex+1, and returns the rewritten SQL
// plus the count of placeholders it rewrote. The count lets the caller
// detect a mismatch against the expected parameter count (a fatal
// condition per spec §7, never a soft miss).
func Normalize(sql string, style Style, startIndex int) (string, int) {
	if style == StyleQuestion {
		return sql, countRealPlaceholders(sql)
	}

	var out strings.Builder
	out.Grow(len(sql) + 16)
	n := startIndex

	runes := []rune(sql)
	i := 0
	for i < len(runes) {
		c := runes[i]

		switch {
		case c == '\'':
			j := scanQuoted(runes, i, '\'')
			out.WriteString(string(runes[i:j]))
			i = j
			continue
		case c == '"':
			j := scanQuoted(runes, i, '"')
			out.WriteString(string(runes[i:j]))
			i = j
			continue
		case c == '`':
			j := scanQuoted(runes, i, '`')
			out.WriteString(string(runes[i:j]))
			i = j
			continue
		case c == '[' && style == StylePositionalAt:
			j := scanQuoted(runes, i, ']')
			out.WriteString(string(runes[i:j]))
			i = j
			continue
		case c == '-' && i+1 < len(runes) && runes[i+1] == '-':
			j := scanLineComment(runes, i)
			out.WriteString(string(runes[i:j]))
			i = j
			continue
		case c == '/' && i+1 < len(runes) && runes[i+1] == '*':
			j := scanBlockComment(runes, i)
			out.WriteString(string(runes[i:j]))
			i = j
			continue
		case c == '$' && isDollarQuoteStart(runes, i):
			j, tag := scanDollarQuoted(runes, i)
			out.WriteString(string(runes[i:j]))
			_ = tag
			i = j
			continue
		case c == '?':
			// The PostgreSQL JSON operators ?| and ?& pass through
			// unchanged. A bare '?' is always rewritten as a placeholder,
			// including where it is the JSON key-exists operator.
			if i+1 < len(runes) && (runes[i+1] == '|' || runes[i+1] == '&') {
				out.WriteRune(c)
				i++
				continue
			}
			n++
			out.WriteString(render(style, n))
			i++
			continue
		default:
			out.WriteRune(c)
			i++
		}
	}

	return out.String(), n - startIndex
}

func render(style Style, n int) string {
	switch style {
	case StylePositionalDollar:
		return "$" + strconv.Itoa(n)
	case StylePositionalAt:
		return "@p" + strconv.Itoa(n)
	default:
		return "?"
	}
}

func scanQuoted(runes []rune, start int, quote rune) int {
	i := start + 1
	for i < len(runes) {
		if runes[i] == quote {
			if i+1 < len(runes) && runes[i+1] == quote {
				i += 2
				continue
			}
			return i + 1
		}
		i++
	}
	return i
}

func scanLineComment(runes []rune, start int) int {
	i := start
	for i < len(runes) && runes[i] != '\n' {
		i++
	}
	return i
}

func scanBlockComment(runes []rune, start int) int {
	i := start + 2
	for i+1 < len(runes) {
		if runes[i] == '*' && runes[i+1] == '/' {
			return i + 2
		}
		i++
	}
	return len(runes)
}

// isDollarQuoteStart reports whether runes[i:] begins a Postgres
// dollar-quoted string: "$tag$" where tag is alphanumeric/underscore (and
// may be empty).
func isDollarQuoteStart(runes []rune, i int) bool {
	j := i + 1
	for j < len(runes) && runes[j] != '$' && isTagChar(runes[j]) {
		j++
	}
	return j < len(runes) && runes[j] == '$'
}

func isTagChar(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func scanDollarQuoted(runes []rune, start int) (int, string) {
	j := start + 1
	for j < len(runes) && runes[j] != '$' {
		j++
	}
	tag := string(runes[start : j+1]) // includes both '$'
	bodyStart := j + 1
	closeIdx := indexFrom(runes, bodyStart, tag)
	if closeIdx < 0 {
		return len(runes), tag
	}
	return closeIdx + len(tag), tag
}

func indexFrom(runes []rune, from int, tag string) int {
	s := string(runes[from:])
	idx := strings.Index(s, tag)
	if idx < 0 {
		return -1
	}
	return from + len([]rune(s[:idx]))
}

// countRealPlaceholders counts lexically-real '?' occurrences without
// rewriting, used for the no-op question-mark dialects where Normalize
// still must report a count to check against the expected parameter list.
func countRealPlaceholders(sql string) int {
	_, n := Normalize(sql, StylePositionalDollar, 0)
	return n
}
