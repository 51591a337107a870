package dronescript

import (
	"fmt"
	"regexp"
	"strings"
)

// StatementKind tags a Statement.
type StatementKind int

const (
	StmtExpr StatementKind = iota
	StmtCall
	StmtAssign
	StmtIf
	StmtElif
	StmtElse
	StmtFor
	StmtWhile
	StmtDef
	StmtPass
	StmtBreak
	StmtContinue
	StmtReturn
)

func (k StatementKind) String() string {
	switch k {
	case StmtExpr:
		return "expression"
	case StmtCall:
		return "call"
	case StmtAssign:
		return "assignment"
	case StmtIf:
		return "if"
	case StmtElif:
		return "elif"
	case StmtElse:
		return "else"
	case StmtFor:
		return "for"
	case StmtWhile:
		return "while"
	case StmtDef:
		return "def"
	case StmtPass:
		return "pass"
	case StmtBreak:
		return "break"
	case StmtContinue:
		return "continue"
	case StmtReturn:
		return "return"
	default:
		return fmt.Sprintf("statement(%d)", int(k))
	}
}

// IsHeader reports whether the statement opens a block.
func (k StatementKind) IsHeader() bool {
	switch k {
	case StmtIf, StmtElif, StmtElse, StmtFor, StmtWhile, StmtDef:
		return true
	}
	return false
}

// Statement is one classified line. Expressions are kept as raw text here
// and translated when the plan is built. The tree is immutable once the
// structurer has finished with it.
type Statement struct {
	Kind StatementKind
	Line int
	// Column is where Expr starts, for error positions.
	Column int

	// Target is the assigned name, the for binding, the def name or the
	// callee of a call statement.
	Target string
	// Op is "=" or an augmented operator for assignments.
	Op     string
	Params []string
	// Expr is the condition, iterable, assigned value, returned value or
	// the whole call/expression text.
	Expr string

	Body []*Statement
	// Branches holds the elif/else statements chained to an if, in order.
	Branches []*Statement
}

var (
	defHeader    = regexp.MustCompile(`^def\s+([A-Za-z_]\w*)\s*\((.*)\)\s*:$`)
	forHeader    = regexp.MustCompile(`^for\s+(.+?)\s+in\s+(.+):$`)
	augAssign    = regexp.MustCompile(`^([A-Za-z_]\w*)\s*(\+=|-=|\*=)\s*(.*)$`)
	badAugAssign = regexp.MustCompile(`^([A-Za-z_][\w.\[\]]*)\s*(//=|\*\*=|/=|%=|&=|\|=|\^=|>>=|<<=)`)
	callShape    = regexp.MustCompile(`^([A-Za-z_]\w*(?:\.[A-Za-z_]\w*)*)\s*\(`)
	identifier   = regexp.MustCompile(`^[A-Za-z_]\w*$`)
	leadingWord  = regexp.MustCompile(`^([A-Za-z_]\w*)`)
)

// unsupportedKeywords start statements the language deliberately lacks.
var unsupportedKeywords = map[string]string{
	"class":    "classes are not supported",
	"lambda":   "lambda functions are not supported; use def",
	"try":      "exception handling is not supported",
	"except":   "exception handling is not supported",
	"finally":  "exception handling is not supported",
	"raise":    "exception handling is not supported",
	"with":     "with blocks are not supported",
	"import":   "imports are not supported; the drone is always available",
	"from":     "imports are not supported; the drone is always available",
	"global":   "global declarations are not supported",
	"nonlocal": "nonlocal declarations are not supported",
	"del":      "del is not supported",
	"yield":    "generators are not supported",
	"async":    "async code is not supported",
	"await":    "async code is not supported",
	"assert":   "assert is not supported; use if and print",
	"match":    "match statements are not supported; use if/elif",
}

// parseLine parses one logical line into the statements it holds. Simple
// statements may be separated by ';', and a header may carry a body of
// simple statements after its ':'. Such a header comes back with Body set.
func parseLine(line SourceLine, source string) ([]*Statement, error) {
	text := line.Text
	word := firstWord(text)
	if !isHeaderKeyword(word) || !keywordAt(text, word) {
		return parseSimpleStatements(line, 0, source)
	}

	colon := topLevelIndex(text, ':')
	if colon < 0 || colon == len(text)-1 {
		stmt, err := parseStatement(line, source)
		if err != nil {
			return nil, err
		}
		return []*Statement{stmt}, nil
	}
	header, err := parseStatement(segment(line, 0, colon+1), source)
	if err != nil {
		return nil, err
	}
	body, err := parseSimpleStatements(line, colon+1, source)
	if err != nil {
		return nil, err
	}
	header.Body = body
	return []*Statement{header}, nil
}

// parseSimpleStatements splits line.Text[from:] on top-level ';'. A single
// trailing ';' is allowed.
func parseSimpleStatements(line SourceLine, from int, source string) ([]*Statement, error) {
	var stmts []*Statement
	offset := from
	rest := line.Text[from:]
	for {
		end := topLevelIndex(rest, ';')
		part := rest
		if end >= 0 {
			part = rest[:end]
		}
		if strings.TrimSpace(part) == "" {
			if end < 0 && len(stmts) > 0 {
				return stmts, nil
			}
			pos := Position{Line: line.Number, Column: line.Indent + offset + 1}
			return nil, newStructuralError(pos, "empty statement", source)
		}

		sub := segment(line, offset, offset+len(part))
		if word := firstWord(sub.Text); isHeaderKeyword(word) && keywordAt(sub.Text, word) {
			return nil, newStructuralError(sub.Pos(), fmt.Sprintf("a %s block must start on its own line", word), source)
		}
		stmt, err := parseStatement(sub, source)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)

		if end < 0 {
			return stmts, nil
		}
		rest = rest[end+1:]
		offset += end + 1
	}
}

// segment returns line.Text[from:to] as a line of its own, trimmed, with
// Indent moved so positions still point into the physical line.
func segment(line SourceLine, from, to int) SourceLine {
	part := line.Text[from:to]
	trimmed := strings.TrimLeft(part, " \t")
	return SourceLine{
		Number: line.Number,
		Indent: line.Indent + from + len(part) - len(trimmed),
		Text:   strings.TrimRight(trimmed, " \t"),
	}
}

func firstWord(text string) string {
	if m := leadingWord.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

// keywordAt reports whether word, found at the start of text, stands alone
// as a keyword rather than prefixing a longer expression.
func keywordAt(text, word string) bool {
	rest := text[len(word):]
	return rest == "" || rest[0] == ' ' || rest[0] == '\t' || rest[0] == ':' || rest[0] == '(' || rest[0] == '['
}

// parseStatement classifies one statement.
func parseStatement(line SourceLine, source string) (*Statement, error) {
	text := line.Text
	pos := line.Pos()
	stmt := &Statement{Line: line.Number, Column: pos.Column}

	word := firstWord(text)
	keywordFollows := func() bool { return keywordAt(text, word) }
	if msg, ok := unsupportedKeywords[word]; ok && keywordFollows() && !isAssignmentTo(text, word) {
		return nil, newTranslationError(pos, msg, source)
	}

	if strings.HasSuffix(text, ":") && isHeaderKeyword(word) && keywordFollows() {
		return parseHeader(stmt, word, line, source)
	}
	if isHeaderKeyword(word) && keywordFollows() {
		return nil, newStructuralError(pos, fmt.Sprintf("%s header must end with ':'", word), source)
	}
	if strings.HasSuffix(text, ":") {
		return nil, newStructuralError(pos, fmt.Sprintf("unknown block header %q", text), source)
	}

	switch {
	case text == "pass":
		stmt.Kind = StmtPass
		return stmt, nil
	case text == "break":
		stmt.Kind = StmtBreak
		return stmt, nil
	case text == "continue":
		stmt.Kind = StmtContinue
		return stmt, nil
	case word == "return" && keywordFollows():
		stmt.Kind = StmtReturn
		stmt.Expr = strings.TrimSpace(text[len("return"):])
		stmt.Column = pos.Column + len(text) - len(strings.TrimLeft(text[len("return"):], " \t"))
		return stmt, nil
	}

	if m := augAssign.FindStringSubmatchIndex(text); m != nil {
		stmt.Kind = StmtAssign
		stmt.Target = text[m[2]:m[3]]
		stmt.Op = text[m[4]:m[5]]
		stmt.Expr = text[m[6]:m[7]]
		stmt.Column = pos.Column + m[6]
		if stmt.Expr == "" {
			return nil, newTranslationError(pos, fmt.Sprintf("missing value after %s", stmt.Op), source)
		}
		return stmt, nil
	}
	if m := badAugAssign.FindStringSubmatch(text); m != nil {
		return nil, newTranslationError(pos, fmt.Sprintf("the %s operator is not supported; only +=, -= and *= are", m[2]), source)
	}

	if eq := topLevelIndex(text, '='); eq >= 0 {
		target := strings.TrimSpace(text[:eq])
		value := text[eq+1:]
		switch {
		case topLevelIndex(target, ',') >= 0:
			return nil, newTranslationError(pos, "assigning to multiple targets is not supported", source)
		case topLevelIndex(value, '=') >= 0:
			return nil, newTranslationError(pos, "chained assignment is not supported", source)
		case !identifier.MatchString(target):
			return nil, newTranslationError(pos, fmt.Sprintf("cannot assign to %q; only plain names can be assigned", target), source)
		case isReservedName(target):
			return nil, newTranslationError(pos, fmt.Sprintf("cannot assign to %q", target), source)
		}
		trimmed := strings.TrimLeft(value, " \t")
		stmt.Kind = StmtAssign
		stmt.Target = target
		stmt.Op = "="
		stmt.Expr = strings.TrimSpace(value)
		stmt.Column = pos.Column + eq + 1 + len(value) - len(trimmed)
		if stmt.Expr == "" {
			return nil, newTranslationError(pos, fmt.Sprintf("missing value in assignment to %s", target), source)
		}
		return stmt, nil
	}

	stmt.Expr = text
	if m := callShape.FindStringSubmatchIndex(text); m != nil {
		open := m[1] - 1
		if matchingParen(text, open) == len(text)-1 {
			stmt.Kind = StmtCall
			stmt.Target = text[m[2]:m[3]]
			return stmt, nil
		}
	}
	stmt.Kind = StmtExpr
	return stmt, nil
}

func parseHeader(stmt *Statement, word string, line SourceLine, source string) (*Statement, error) {
	text := line.Text
	pos := line.Pos()
	inner := strings.TrimSpace(strings.TrimSuffix(text[len(word):], ":"))
	stmt.Column = pos.Column + len(text) - len(strings.TrimLeft(text[len(word):], " \t"))

	switch word {
	case "if", "elif", "while":
		if inner == "" {
			return nil, newStructuralError(pos, fmt.Sprintf("%s needs a condition", word), source)
		}
		stmt.Kind = map[string]StatementKind{"if": StmtIf, "elif": StmtElif, "while": StmtWhile}[word]
		stmt.Expr = inner
	case "else":
		if inner != "" {
			return nil, newStructuralError(pos, "else takes no condition; did you mean elif?", source)
		}
		stmt.Kind = StmtElse
	case "for":
		m := forHeader.FindStringSubmatchIndex(text)
		if m == nil {
			return nil, newStructuralError(pos, "for header must look like 'for name in iterable:'", source)
		}
		binding := text[m[2]:m[3]]
		if strings.Contains(binding, ",") {
			return nil, newTranslationError(pos, "unpacking several loop variables is not supported", source)
		}
		if !identifier.MatchString(binding) || isReservedName(binding) {
			return nil, newTranslationError(pos, fmt.Sprintf("loop variable %q must be a plain name", binding), source)
		}
		stmt.Kind = StmtFor
		stmt.Target = binding
		stmt.Expr = strings.TrimSpace(text[m[4]:m[5]])
		stmt.Column = pos.Column + m[4]
	case "def":
		m := defHeader.FindStringSubmatch(text)
		if m == nil {
			return nil, newStructuralError(pos, "def header must look like 'def name(params):'", source)
		}
		params, err := parseParams(m[2])
		if err != nil {
			return nil, newTranslationError(pos, err.Error(), source)
		}
		stmt.Kind = StmtDef
		stmt.Target = m[1]
		stmt.Params = params
	}
	return stmt, nil
}

func parseParams(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var params []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		name := strings.TrimSpace(part)
		switch {
		case strings.Contains(name, "="):
			return nil, fmt.Errorf("default parameter values are not supported")
		case strings.HasPrefix(name, "*"):
			return nil, fmt.Errorf("variadic parameters are not supported")
		case !identifier.MatchString(name) || isReservedName(name):
			return nil, fmt.Errorf("invalid parameter name %q", name)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("duplicate parameter %q", name)
		}
		seen[name] = struct{}{}
		params = append(params, name)
	}
	return params, nil
}

func isHeaderKeyword(word string) bool {
	switch word {
	case "if", "elif", "else", "for", "while", "def":
		return true
	}
	return false
}

func isReservedName(name string) bool {
	switch name {
	case "True", "False", "None", "and", "or", "not", "in", "is", "if", "elif", "else",
		"for", "while", "def", "return", "pass", "break", "continue", "lambda", "drone":
		return true
	}
	_, unsupported := unsupportedKeywords[name]
	return unsupported
}

// isAssignmentTo reports whether text assigns to a name that happens to be a
// soft keyword such as match.
func isAssignmentTo(text, word string) bool {
	if word != "match" {
		return false
	}
	rest := strings.TrimLeft(text[len(word):], " \t")
	return strings.HasPrefix(rest, "=") && !strings.HasPrefix(rest, "==")
}

// topLevelIndex returns the index of the first ch outside strings and
// brackets. For '=' it skips ==, !=, <= and >=.
func topLevelIndex(text string, ch byte) int {
	depth := 0
	var quote byte
	for i := 0; i < len(text); i++ {
		c := text[i]
		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		default:
			if c != ch || depth != 0 {
				continue
			}
			if ch == '=' {
				if i+1 < len(text) && text[i+1] == '=' {
					i++
					continue
				}
				if i > 0 && strings.IndexByte("!<>=+-*/%", text[i-1]) >= 0 {
					continue
				}
			}
			return i
		}
	}
	return -1
}

// matchingParen returns the index of the bracket closing the one at open.
func matchingParen(text string, open int) int {
	depth := 0
	var quote byte
	for i := open; i < len(text); i++ {
		c := text[i]
		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
