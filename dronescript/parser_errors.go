package dronescript

import (
	"fmt"
	"strings"
)

// SyntaxErrorKind separates layout problems from unsupported language.
type SyntaxErrorKind int

const (
	// StructuralError covers indentation, block nesting, dangling elif/else,
	// unknown block headers and unbalanced brackets.
	StructuralError SyntaxErrorKind = iota
	// SemanticTranslationError covers constructs the language does not
	// support and callees that resolve to nothing.
	SemanticTranslationError
)

func (k SyntaxErrorKind) String() string {
	switch k {
	case StructuralError:
		return "structural error"
	case SemanticTranslationError:
		return "translation error"
	default:
		return fmt.Sprintf("syntax error(%d)", int(k))
	}
}

// SyntaxError is returned by Compile. No part of a program that fails to
// compile is ever run.
type SyntaxError struct {
	Kind      SyntaxErrorKind
	Pos       Position
	Message   string
	CodeFrame string
}

func (e *SyntaxError) Error() string {
	var b strings.Builder
	if e.Pos.Column > 0 {
		fmt.Fprintf(&b, "%s at %d:%d: %s", e.Kind, e.Pos.Line, e.Pos.Column, e.Message)
	} else {
		fmt.Fprintf(&b, "%s on line %d: %s", e.Kind, e.Pos.Line, e.Message)
	}
	if e.CodeFrame != "" {
		b.WriteString("\n")
		b.WriteString(e.CodeFrame)
	}
	return b.String()
}

// Line returns the source line the error points at.
func (e *SyntaxError) Line() int { return e.Pos.Line }

func (e *SyntaxError) withSource(source string) *SyntaxError {
	if e.CodeFrame == "" {
		e.CodeFrame = formatCodeFrame(source, e.Pos)
	}
	return e
}

func newStructuralError(pos Position, msg string, source string) *SyntaxError {
	return (&SyntaxError{Kind: StructuralError, Pos: pos, Message: msg}).withSource(source)
}

func newTranslationError(pos Position, msg string, source string) *SyntaxError {
	return (&SyntaxError{Kind: SemanticTranslationError, Pos: pos, Message: msg}).withSource(source)
}

func tokenLabel(tok Token) string {
	switch tok.Type {
	case tokenIllegal:
		return "invalid token"
	case tokenEOF:
		return "end of line"
	case tokenIdent:
		return fmt.Sprintf("identifier %q", tok.Literal)
	case tokenInt, tokenFloat:
		return "number " + tok.Literal
	case tokenString:
		return "string"
	default:
		return "'" + tok.Literal + "'"
	}
}
