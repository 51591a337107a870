package dronescript

import (
	"fmt"
	"strings"
)

// SourceLine is one logical line of a program: comments stripped, physical
// lines inside open brackets joined, leading indentation removed.
type SourceLine struct {
	// Number is the 1-based physical line the logical line starts on.
	Number int
	// Indent counts leading whitespace characters. A tab counts as one.
	Indent int
	Text   string
}

// Pos returns the position of the first character of Text.
func (l SourceLine) Pos() Position {
	return Position{Line: l.Number, Column: l.Indent + 1}
}

var closingBracket = map[rune]rune{'(': ')', '[': ']', '{': '}'}

// Scan splits source into logical lines. Blank and comment-only lines are
// dropped and never influence indentation. The only errors reported here are
// unterminated strings and unbalanced brackets; indentation consistency is
// checked when the lines are nested into blocks.
func Scan(source string) ([]SourceLine, error) {
	physical := strings.Split(strings.ReplaceAll(source, "\r\n", "\n"), "\n")

	var (
		lines    []SourceLine
		current  *SourceLine
		text     strings.Builder
		brackets []bracketMark
	)

	for idx, raw := range physical {
		lineNo := idx + 1
		raw = strings.TrimRight(raw, "\r")

		start := 0
		if current == nil {
			for start < len(raw) && (raw[start] == ' ' || raw[start] == '\t') {
				start++
			}
		}

		content, err := stripComment(raw[start:], lineNo, start, &brackets)
		if err != nil {
			return nil, err.withSource(source)
		}

		if current == nil {
			if strings.TrimSpace(content) == "" {
				continue
			}
			current = &SourceLine{Number: lineNo, Indent: start}
		} else {
			text.WriteByte(' ')
			content = strings.TrimSpace(content)
		}
		text.WriteString(content)

		if len(brackets) > 0 {
			continue
		}
		current.Text = strings.TrimSpace(text.String())
		lines = append(lines, *current)
		current = nil
		text.Reset()
	}

	if len(brackets) > 0 {
		open := brackets[len(brackets)-1]
		return nil, newStructuralError(open.pos, fmt.Sprintf("%s was never closed", quoteRune(open.ch)), source)
	}
	return lines, nil
}

type bracketMark struct {
	ch  rune
	pos Position
}

// stripComment removes a trailing # comment that is not inside a string and
// tracks bracket nesting across physical lines.
func stripComment(s string, lineNo, colBase int, brackets *[]bracketMark) (string, *SyntaxError) {
	var quote rune
	escaped := false
	column := colBase
	for i, r := range s {
		column++
		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == quote:
				quote = 0
			}
			continue
		}
		switch r {
		case '#':
			return s[:i], nil
		case '"', '\'':
			quote = r
		case '(', '[', '{':
			*brackets = append(*brackets, bracketMark{ch: r, pos: Position{Line: lineNo, Column: column}})
		case ')', ']', '}':
			pos := Position{Line: lineNo, Column: column}
			if len(*brackets) == 0 {
				return "", &SyntaxError{Kind: StructuralError, Pos: pos, Message: fmt.Sprintf("unmatched %s", quoteRune(r))}
			}
			open := (*brackets)[len(*brackets)-1]
			if closingBracket[open.ch] != r {
				return "", &SyntaxError{Kind: StructuralError, Pos: pos, Message: fmt.Sprintf("closing %s does not match %s on line %d", quoteRune(r), quoteRune(open.ch), open.pos.Line)}
			}
			*brackets = (*brackets)[:len(*brackets)-1]
		}
	}
	if quote != 0 {
		return "", &SyntaxError{Kind: StructuralError, Pos: Position{Line: lineNo}, Message: "unterminated string"}
	}
	return s, nil
}
