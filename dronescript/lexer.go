package dronescript

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// lexer tokenizes a single logical line. Positions are reported against the
// original source: line is fixed and columns are shifted by colBase.
type lexer struct {
	input string

	offset int
	width  int

	line    int
	column  int
	colBase int

	ch rune
}

func newLexer(input string, pos Position) *lexer {
	base := pos.Column - 1
	if base < 0 {
		base = 0
	}
	l := &lexer{input: input, line: pos.Line, colBase: base}
	l.readRune()
	return l
}

func (l *lexer) readRune() {
	if l.offset >= len(l.input) {
		l.width = 0
		l.ch = 0
		l.column++
		return
	}

	r, w := utf8.DecodeRuneInString(l.input[l.offset:])
	l.width = w
	l.offset += w
	l.column++
	l.ch = r
}

func (l *lexer) peekRune() rune {
	if l.offset >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.offset:])
	return r
}

func (l *lexer) peekRuneN(n int) rune {
	idx := l.offset
	for i := 0; ; i++ {
		if idx >= len(l.input) {
			return 0
		}
		r, w := utf8.DecodeRuneInString(l.input[idx:])
		if i == n {
			return r
		}
		idx += w
	}
}

func (l *lexer) position() Position {
	return Position{Line: l.line, Column: l.colBase + l.column}
}

func (l *lexer) NextToken() Token {
	l.skipWhitespace()

	tok := Token{Pos: l.position()}

	switch l.ch {
	case 0:
		tok.Type = tokenEOF
	case '+', '-':
		tok = l.operatorOrAugmented(string(l.ch))
	case '*':
		if l.peekRune() == '*' {
			tok = l.twoRune(tokenPower)
		} else {
			tok = l.operatorOrAugmented("*")
		}
	case '/':
		if l.peekRune() == '/' {
			tok = l.twoRune(tokenFloorDiv)
		} else {
			tok = l.operatorOrAugmented("/")
		}
	case '%':
		tok = l.operatorOrAugmented("%")
	case '(':
		tok = l.oneRune(tokenLParen)
	case ')':
		tok = l.oneRune(tokenRParen)
	case '{':
		tok = l.oneRune(tokenLBrace)
	case '}':
		tok = l.oneRune(tokenRBrace)
	case '[':
		tok = l.oneRune(tokenLBracket)
	case ']':
		tok = l.oneRune(tokenRBracket)
	case ',':
		tok = l.oneRune(tokenComma)
	case ':':
		tok = l.oneRune(tokenColon)
	case ';':
		tok = l.oneRune(tokenSemicolon)
	case '.':
		if unicode.IsDigit(l.peekRune()) {
			literal, _ := l.readNumber()
			tok.Type = tokenFloat
			tok.Literal = literal
			return tok
		}
		tok = l.oneRune(tokenDot)
	case '=':
		if l.peekRune() == '=' {
			tok = l.twoRune(tokenEQ)
		} else {
			tok = l.oneRune(tokenAssign)
		}
	case '!':
		if l.peekRune() == '=' {
			tok = l.twoRune(tokenNotEQ)
		} else {
			tok = l.illegal("'!' is not an operator here; use 'not'")
		}
	case '<':
		if l.peekRune() == '=' {
			tok = l.twoRune(tokenLTE)
		} else {
			tok = l.oneRune(tokenLT)
		}
	case '>':
		if l.peekRune() == '=' {
			tok = l.twoRune(tokenGTE)
		} else {
			tok = l.oneRune(tokenGT)
		}
	case '"', '\'':
		if l.peekRune() == l.ch && l.peekRuneN(1) == l.ch {
			tok = l.illegal("triple-quoted strings are not supported")
			l.offset = len(l.input)
			l.readRune()
			return tok
		}
		literal, errMsg := l.readString(l.ch)
		if errMsg != "" {
			tok.Type = tokenIllegal
			tok.Literal = errMsg
		} else {
			tok.Type = tokenString
			tok.Literal = literal
		}
	default:
		switch {
		case isIdentifierStart(l.ch):
			literal := l.readIdentifier()
			if (l.ch == '"' || l.ch == '\'') && isStringPrefix(literal) {
				tok.Type = tokenIllegal
				if strings.ContainsAny(literal, "fF") {
					tok.Literal = "f-strings are not supported; build the text with str() and +"
				} else {
					tok.Literal = "string prefixes like " + literal + "'' are not supported"
				}
				l.offset = len(l.input)
				l.readRune()
				return tok
			}
			tok.Type = lookupIdent(literal)
			tok.Literal = literal
		case unicode.IsDigit(l.ch):
			literal, isFloat := l.readNumber()
			tok.Literal = literal
			if isFloat {
				tok.Type = tokenFloat
			} else {
				tok.Type = tokenInt
			}
		default:
			tok = l.illegal("unexpected character " + quoteRune(l.ch))
		}
	}

	return tok
}

func (l *lexer) oneRune(tt TokenType) Token {
	tok := Token{Type: tt, Literal: string(l.ch), Pos: l.position()}
	l.readRune()
	return tok
}

func (l *lexer) twoRune(tt TokenType) Token {
	pos := l.position()
	first := l.ch
	l.readRune()
	tok := Token{Type: tt, Literal: string(first) + string(l.ch), Pos: pos}
	l.readRune()
	return tok
}

// operatorOrAugmented returns op, or op= as an augmented assignment token so
// the parser can reject it inside expressions.
func (l *lexer) operatorOrAugmented(op string) Token {
	if l.peekRune() == '=' {
		return l.twoRune(tokenAugmentedOp)
	}
	return l.oneRune(TokenType(op))
}

func (l *lexer) illegal(msg string) Token {
	tok := Token{Type: tokenIllegal, Literal: msg, Pos: l.position()}
	l.readRune()
	return tok
}

func (l *lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\n' {
		l.readRune()
	}
}

func (l *lexer) currentOffset() int {
	return l.offset - l.width
}

// readIdentifier consumes an identifier and leaves l.ch on the rune after it.
func (l *lexer) readIdentifier() string {
	start := l.currentOffset()
	for isIdentifierRune(l.peekRune()) {
		l.readRune()
	}
	literal := l.input[start:l.offset]
	l.readRune()
	return literal
}

func (l *lexer) readNumber() (string, bool) {
	var sb strings.Builder
	hasDot := l.ch == '.'

	sb.WriteRune(l.ch)

	for {
		r := l.peekRune()
		switch {
		case r == '_' && unicode.IsDigit(l.ch) && unicode.IsDigit(l.peekRuneN(1)):
			l.readRune()
		case r == '.' && !hasDot:
			hasDot = true
			l.readRune()
			sb.WriteRune('.')
		case unicode.IsDigit(r):
			l.readRune()
			sb.WriteRune(r)
		default:
			l.readRune()
			return sb.String(), hasDot
		}
	}
}

func (l *lexer) readString(quote rune) (string, string) {
	var sb strings.Builder

	for {
		l.readRune()
		switch l.ch {
		case 0:
			return "", "unterminated string"
		case quote:
			l.readRune()
			return sb.String(), ""
		case '\\':
			next := l.peekRune()
			l.readRune()
			switch next {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 0:
				return "", "unterminated string"
			default:
				sb.WriteRune(next)
			}
		default:
			sb.WriteRune(l.ch)
		}
	}
}

func isIdentifierStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

func isIdentifierRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func isStringPrefix(ident string) bool {
	switch strings.ToLower(ident) {
	case "f", "r", "b", "u", "rb", "br", "fr", "rf":
		return true
	}
	return false
}

func quoteRune(r rune) string {
	return "'" + string(r) + "'"
}

func lookupIdent(ident string) TokenType {
	switch ident {
	case "and":
		return tokenAnd
	case "or":
		return tokenOr
	case "not":
		return tokenNot
	case "in":
		return tokenIn
	case "is":
		return tokenIs
	case "if":
		return tokenIf
	case "else":
		return tokenElse
	case "for":
		return tokenFor
	case "lambda":
		return tokenLambda
	case "True":
		return tokenTrue
	case "False":
		return tokenFalse
	case "None":
		return tokenNone
	}
	return tokenIdent
}
