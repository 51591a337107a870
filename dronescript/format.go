package dronescript

import (
	"math"
	"strings"
)

const formatIndent = "    "

// Format re-serializes source in canonical form: four-space indentation and
// no blank lines except one blank line around top-level defs. Comments are
// kept. A comment on its own line moves to the indentation of the statement
// that follows it, and a trailing comment stays on its statement's line.
// Formatting never changes the block structure.
func Format(source string) (string, error) {
	lines, err := Scan(source)
	if err != nil {
		return "", err
	}
	stmts, err := structure(lines, source)
	if err != nil {
		return "", err
	}
	f := &formatter{comments: collectComments(source)}
	f.statements(stmts)
	f.flush(math.MaxInt, 0)
	return f.b.String(), nil
}

// Format re-serializes the program's statement tree. Comments are not part of
// a compiled program.
func (p *Program) Format() string {
	f := &formatter{}
	f.statements(p.statements)
	return f.b.String()
}

type sourceComment struct {
	line     int
	text     string
	trailing bool
}

// collectComments lists every # comment in source in line order. Source must
// already have scanned cleanly.
func collectComments(source string) []sourceComment {
	var (
		comments []sourceComment
		brackets []bracketMark
	)
	for idx, raw := range strings.Split(strings.ReplaceAll(source, "\r\n", "\n"), "\n") {
		raw = strings.TrimRight(raw, "\r")
		content, err := stripComment(raw, idx+1, 0, &brackets)
		if err != nil || len(content) == len(raw) {
			continue
		}
		comments = append(comments, sourceComment{
			line:     idx + 1,
			text:     strings.TrimSpace(raw[len(content):]),
			trailing: strings.TrimSpace(content) != "",
		})
	}
	return comments
}

type formatter struct {
	b        strings.Builder
	comments []sourceComment
	next     int
}

func (f *formatter) statements(stmts []*Statement) {
	for i, stmt := range stmts {
		if i > 0 && (stmt.Kind == StmtDef || stmts[i-1].Kind == StmtDef) {
			f.b.WriteString("\n")
		}
		f.statement(stmt, 0)
	}
}

func (f *formatter) statement(stmt *Statement, level int) {
	f.flush(stmt.Line, level)
	f.b.WriteString(strings.Repeat(formatIndent, level))
	f.b.WriteString(statementHeader(stmt))
	if f.next < len(f.comments) && f.comments[f.next].line == stmt.Line && f.comments[f.next].trailing {
		f.b.WriteString("  ")
		f.b.WriteString(f.comments[f.next].text)
		f.next++
	}
	f.b.WriteString("\n")
	for _, child := range stmt.Body {
		f.statement(child, level+1)
	}
	for _, branch := range stmt.Branches {
		f.statement(branch, level)
	}
}

// flush writes the pending comments from lines before line on their own
// lines at level.
func (f *formatter) flush(line, level int) {
	for f.next < len(f.comments) && f.comments[f.next].line < line {
		f.b.WriteString(strings.Repeat(formatIndent, level))
		f.b.WriteString(f.comments[f.next].text)
		f.b.WriteString("\n")
		f.next++
	}
}

func statementHeader(stmt *Statement) string {
	switch stmt.Kind {
	case StmtIf, StmtElif, StmtWhile:
		return stmt.Kind.String() + " " + stmt.Expr + ":"
	case StmtElse:
		return "else:"
	case StmtFor:
		return "for " + stmt.Target + " in " + stmt.Expr + ":"
	case StmtDef:
		return "def " + stmt.Target + "(" + strings.Join(stmt.Params, ", ") + "):"
	case StmtAssign:
		return stmt.Target + " " + stmt.Op + " " + stmt.Expr
	case StmtReturn:
		if stmt.Expr == "" {
			return "return"
		}
		return "return " + stmt.Expr
	case StmtPass, StmtBreak, StmtContinue:
		return stmt.Kind.String()
	default:
		return stmt.Expr
	}
}
