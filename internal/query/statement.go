package query

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrPlaceholderMismatch is returned when a statement's argument count does
// not match its positional placeholders.
var ErrPlaceholderMismatch = errors.New("query: placeholder count does not match arguments")

// Statement is a SQL text with positional "?" placeholders and their values.
type Statement struct {
	Text string
	Args []any
}

// NewStatement builds a statement and verifies its placeholder count.
func NewStatement(text string, args ...any) (Statement, error) {
	stmt := Statement{Text: text, Args: args}
	if err := stmt.Check(); err != nil {
		return Statement{}, err
	}
	return stmt, nil
}

// Check verifies that the number of placeholders equals the number of args.
func (s Statement) Check() error {
	if n := CountPlaceholders(s.Text); n != len(s.Args) {
		return fmt.Errorf("%w: %d placeholders, %d args", ErrPlaceholderMismatch, n, len(s.Args))
	}
	return nil
}

// Dollar rewrites "?" placeholders into the $1..$n form used by PostgreSQL drivers.
func (s Statement) Dollar() Statement {
	n := 0
	text := rewrite(s.Text, func(b *strings.Builder) {
		n++
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(n))
	})
	return Statement{Text: text, Args: s.Args}
}

// CountPlaceholders counts "?" placeholders outside quoted literals,
// quoted identifiers and comments.
func CountPlaceholders(text string) int {
	n := 0
	rewrite(text, func(*strings.Builder) { n++ })
	return n
}

// rewrite copies text and calls emit in place of every placeholder.
func rewrite(text string, emit func(*strings.Builder)) string {
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); i++ {
		ch := text[i]
		switch {
		case ch == '\'' || ch == '"':
			end := closingQuote(text, i)
			b.WriteString(text[i:end])
			i = end - 1
		case ch == '-' && i+1 < len(text) && text[i+1] == '-':
			end := strings.IndexByte(text[i:], '\n')
			if end < 0 {
				end = len(text) - i
			}
			b.WriteString(text[i : i+end])
			i += end - 1
		case ch == '/' && i+1 < len(text) && text[i+1] == '*':
			end := strings.Index(text[i+2:], "*/")
			stop := len(text)
			if end >= 0 {
				stop = i + 2 + end + 2
			}
			b.WriteString(text[i:stop])
			i = stop - 1
		case ch == '?':
			emit(&b)
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}

// closingQuote returns the index just past the quoted section starting at
// start. Doubled quotes inside the section are escapes.
func closingQuote(text string, start int) int {
	quote := text[start]
	for i := start + 1; i < len(text); i++ {
		if text[i] != quote {
			continue
		}
		if i+1 < len(text) && text[i+1] == quote {
			i++
			continue
		}
		return i + 1
	}
	return len(text)
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
