package dronescript

import (
	"fmt"
	"strconv"
	"strings"
)

type (
	prefixParseFn func() Expression
	infixParseFn  func(Expression) Expression
)

const (
	lowestPrec = iota
	precOr
	precAnd
	precNot
	precComparison
	precSum
	precProduct
	precPrefix
	precPower
	precCall
)

var precedences = map[TokenType]int{
	tokenIf:       precOr,
	tokenOr:       precOr,
	tokenAnd:      precAnd,
	tokenEQ:       precComparison,
	tokenNotEQ:    precComparison,
	tokenLT:       precComparison,
	tokenLTE:      precComparison,
	tokenGT:       precComparison,
	tokenGTE:      precComparison,
	tokenIn:       precComparison,
	tokenIs:       precComparison,
	tokenPlus:     precSum,
	tokenMinus:    precSum,
	tokenAsterisk: precProduct,
	tokenSlash:    precProduct,
	tokenFloorDiv: precProduct,
	tokenPercent:  precProduct,
	tokenPower:    precPower,
	tokenLParen:   precCall,
	tokenDot:      precCall,
	tokenLBracket: precCall,
}

func isComparison(tt TokenType) bool {
	switch tt {
	case tokenEQ, tokenNotEQ, tokenLT, tokenLTE, tokenGT, tokenGTE:
		return true
	}
	return false
}

// exprParser is a Pratt parser over one logical line. It stops at the first
// error.
type exprParser struct {
	l      *lexer
	source string

	curToken  Token
	peekToken Token

	err *SyntaxError

	prefixFns map[TokenType]prefixParseFn
	infixFns  map[TokenType]infixParseFn
}

func newExprParser(text string, pos Position, source string) *exprParser {
	p := &exprParser{l: newLexer(text, pos), source: source}

	p.prefixFns = map[TokenType]prefixParseFn{
		tokenIdent:    p.parseIdentifier,
		tokenInt:      p.parseIntegerLiteral,
		tokenFloat:    p.parseFloatLiteral,
		tokenString:   p.parseStringLiteral,
		tokenTrue:     p.parseBooleanLiteral,
		tokenFalse:    p.parseBooleanLiteral,
		tokenNone:     p.parseNoneLiteral,
		tokenLParen:   p.parseGroupedExpression,
		tokenLBracket: p.parseListLiteral,
		tokenMinus:    p.parsePrefixExpression,
		tokenPlus:     p.parsePrefixExpression,
		tokenNot:      p.parseNotExpression,
		tokenLBrace:   p.rejectPrefix("dict and set literals are not supported; use a list"),
		tokenLambda:   p.rejectPrefix("lambda functions are not supported; use def"),
		tokenIllegal:  p.parseIllegal,
	}

	p.infixFns = map[TokenType]infixParseFn{
		tokenPlus:     p.parseInfixExpression,
		tokenMinus:    p.parseInfixExpression,
		tokenAsterisk: p.parseInfixExpression,
		tokenSlash:    p.parseInfixExpression,
		tokenFloorDiv: p.parseInfixExpression,
		tokenPercent:  p.parseInfixExpression,
		tokenAnd:      p.parseInfixExpression,
		tokenOr:       p.parseInfixExpression,
		tokenEQ:       p.parseComparison,
		tokenNotEQ:    p.parseComparison,
		tokenLT:       p.parseComparison,
		tokenLTE:      p.parseComparison,
		tokenGT:       p.parseComparison,
		tokenGTE:      p.parseComparison,
		tokenLParen:   p.parseCallExpression,
		tokenDot:      p.parseAttributeExpression,
		tokenLBracket: p.parseIndexExpression,
		tokenPower:    p.rejectInfix("the ** operator is not supported; multiply instead"),
		tokenIn:       p.rejectInfix("the 'in' operator is not supported; loop over the list instead"),
		tokenIs:       p.rejectInfix("the 'is' operator is not supported; use =="),
		tokenIf:       p.rejectInfix("conditional expressions are not supported; use an if statement"),
	}

	p.nextToken()
	p.nextToken()
	return p
}

// parseExpression translates one expression. The whole text must be
// consumed.
func parseExpression(text string, pos Position, source string) (Expression, error) {
	p := newExprParser(text, pos, source)
	expr := p.parseExpression(lowestPrec)
	if p.err == nil && p.peekToken.Type != tokenEOF {
		p.errorTrailing(p.peekToken)
	}
	if p.err != nil {
		return nil, p.err
	}
	return expr, nil
}

func (p *exprParser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *exprParser) peekPrecedence() int {
	if prec, ok := precedences[p.peekToken.Type]; ok {
		return prec
	}
	return lowestPrec
}

func (p *exprParser) fail(pos Position, msg string) {
	if p.err == nil {
		p.err = newTranslationError(pos, msg, p.source)
	}
}

func (p *exprParser) expectPeek(tt TokenType, what string) bool {
	if p.peekToken.Type == tt {
		p.nextToken()
		return true
	}
	if p.peekToken.Type == tokenIllegal {
		p.fail(p.peekToken.Pos, p.peekToken.Literal)
		return false
	}
	p.fail(p.peekToken.Pos, fmt.Sprintf("expected %s, got %s", what, tokenLabel(p.peekToken)))
	return false
}

func (p *exprParser) errorTrailing(tok Token) {
	switch tok.Type {
	case tokenIllegal:
		p.fail(tok.Pos, tok.Literal)
	case tokenAssign:
		p.fail(tok.Pos, "unexpected '='; use '==' to compare values")
	case tokenAugmentedOp:
		p.fail(tok.Pos, fmt.Sprintf("%s can only start an assignment statement", tok.Literal))
	case tokenComma:
		p.fail(tok.Pos, "tuples and multiple values are not supported")
	case tokenFor:
		p.fail(tok.Pos, "comprehensions are not supported; use a for loop")
	case tokenColon:
		p.fail(tok.Pos, "unexpected ':'")
	case tokenNot:
		p.fail(tok.Pos, "the 'not in' operator is not supported")
	default:
		p.fail(tok.Pos, fmt.Sprintf("unexpected %s", tokenLabel(tok)))
	}
}

func (p *exprParser) parseExpression(precedence int) Expression {
	prefix := p.prefixFns[p.curToken.Type]
	if prefix == nil {
		if p.curToken.Type == tokenEOF {
			p.fail(p.curToken.Pos, "expected an expression")
		} else {
			p.errorTrailing(p.curToken)
		}
		return nil
	}

	left := prefix()
	if left == nil {
		return nil
	}

	for p.peekToken.Type != tokenEOF && precedence < p.peekPrecedence() {
		infix := p.infixFns[p.peekToken.Type]
		if infix == nil {
			return left
		}
		p.nextToken()
		left = infix(left)
		if left == nil {
			return nil
		}
	}

	return left
}

func (p *exprParser) rejectPrefix(msg string) prefixParseFn {
	return func() Expression {
		p.fail(p.curToken.Pos, msg)
		return nil
	}
}

func (p *exprParser) rejectInfix(msg string) infixParseFn {
	return func(Expression) Expression {
		p.fail(p.curToken.Pos, msg)
		return nil
	}
}

func (p *exprParser) parseIllegal() Expression {
	p.fail(p.curToken.Pos, p.curToken.Literal)
	return nil
}

func (p *exprParser) parseIdentifier() Expression {
	return &Identifier{Name: p.curToken.Literal, position: p.curToken.Pos}
}

func (p *exprParser) parseIntegerLiteral() Expression {
	value, err := strconv.ParseInt(p.curToken.Literal, 10, 64)
	if err != nil {
		p.fail(p.curToken.Pos, "invalid integer literal")
		return nil
	}
	return &IntegerLiteral{Value: value, position: p.curToken.Pos}
}

func (p *exprParser) parseFloatLiteral() Expression {
	value, err := strconv.ParseFloat(p.curToken.Literal, 64)
	if err != nil {
		p.fail(p.curToken.Pos, "invalid float literal")
		return nil
	}
	return &FloatLiteral{Value: value, position: p.curToken.Pos}
}

func (p *exprParser) parseStringLiteral() Expression {
	return &StringLiteral{Value: p.curToken.Literal, position: p.curToken.Pos}
}

func (p *exprParser) parseBooleanLiteral() Expression {
	return &BoolLiteral{Value: p.curToken.Type == tokenTrue, position: p.curToken.Pos}
}

func (p *exprParser) parseNoneLiteral() Expression {
	return &NoneLiteral{position: p.curToken.Pos}
}

func (p *exprParser) parseGroupedExpression() Expression {
	pos := p.curToken.Pos
	if p.peekToken.Type == tokenRParen {
		p.fail(pos, "empty tuples are not supported")
		return nil
	}
	p.nextToken()
	expr := p.parseExpression(lowestPrec)
	if expr == nil {
		return nil
	}
	switch p.peekToken.Type {
	case tokenComma:
		p.fail(p.peekToken.Pos, "tuples are not supported; use a list")
		return nil
	case tokenFor:
		p.fail(p.peekToken.Pos, "generator expressions are not supported; use a for loop")
		return nil
	}
	if !p.expectPeek(tokenRParen, "')'") {
		return nil
	}
	return expr
}

func (p *exprParser) parseListLiteral() Expression {
	pos := p.curToken.Pos
	elements := []Expression{}
	if p.peekToken.Type == tokenRBracket {
		p.nextToken()
		return &ListLiteral{Elements: elements, position: pos}
	}
	for {
		p.nextToken()
		elem := p.parseExpression(lowestPrec)
		if elem == nil {
			return nil
		}
		elements = append(elements, elem)
		if p.peekToken.Type == tokenFor {
			p.fail(p.peekToken.Pos, "list comprehensions are not supported; use a for loop")
			return nil
		}
		if p.peekToken.Type != tokenComma {
			break
		}
		p.nextToken()
		if p.peekToken.Type == tokenRBracket {
			break
		}
	}
	if !p.expectPeek(tokenRBracket, "']'") {
		return nil
	}
	return &ListLiteral{Elements: elements, position: pos}
}

func (p *exprParser) parsePrefixExpression() Expression {
	tok := p.curToken
	p.nextToken()
	right := p.parseExpression(precPrefix)
	if right == nil {
		return nil
	}
	return &UnaryExpr{Operator: tok.Type, Right: right, position: tok.Pos}
}

func (p *exprParser) parseNotExpression() Expression {
	tok := p.curToken
	p.nextToken()
	right := p.parseExpression(precNot)
	if right == nil {
		return nil
	}
	return &UnaryExpr{Operator: tokenNot, Right: right, position: tok.Pos}
}

func (p *exprParser) parseInfixExpression(left Expression) Expression {
	tok := p.curToken
	prec := precedences[tok.Type]
	p.nextToken()
	right := p.parseExpression(prec)
	if right == nil {
		return nil
	}
	return &BinaryExpr{Left: left, Operator: tok.Type, Right: right, position: tok.Pos}
}

func (p *exprParser) parseComparison(left Expression) Expression {
	expr := p.parseInfixExpression(left)
	if expr == nil {
		return nil
	}
	if isComparison(p.peekToken.Type) {
		p.fail(p.peekToken.Pos, "chained comparisons are not supported; combine them with 'and'")
		return nil
	}
	return expr
}

func (p *exprParser) parseCallExpression(fn Expression) Expression {
	pos := p.curToken.Pos
	callee, ok := calleeName(fn)
	if !ok {
		p.fail(pos, "only named functions can be called")
		return nil
	}
	call := &CallExpr{Callee: callee, position: fn.Pos()}
	if p.peekToken.Type == tokenRParen {
		p.nextToken()
		return call
	}
	for {
		p.nextToken()
		switch {
		case p.curToken.Type == tokenIdent && p.peekToken.Type == tokenAssign:
			p.fail(p.curToken.Pos, "keyword arguments are not supported")
			return nil
		case p.curToken.Type == tokenAsterisk || p.curToken.Type == tokenPower:
			p.fail(p.curToken.Pos, "argument unpacking is not supported")
			return nil
		}
		arg := p.parseExpression(lowestPrec)
		if arg == nil {
			return nil
		}
		call.Args = append(call.Args, arg)
		if p.peekToken.Type == tokenFor {
			p.fail(p.peekToken.Pos, "generator expressions are not supported; use a for loop")
			return nil
		}
		if p.peekToken.Type != tokenComma {
			break
		}
		p.nextToken()
		if p.peekToken.Type == tokenRParen {
			break
		}
	}
	if !p.expectPeek(tokenRParen, "')'") {
		return nil
	}
	return call
}

func calleeName(expr Expression) (string, bool) {
	switch e := expr.(type) {
	case *Identifier:
		return e.Name, true
	case *AttributeExpr:
		base, ok := calleeName(e.Object)
		if !ok {
			return "", false
		}
		return base + "." + e.Name, true
	default:
		return "", false
	}
}

func (p *exprParser) parseAttributeExpression(object Expression) Expression {
	if p.peekToken.Type != tokenIdent {
		p.fail(p.peekToken.Pos, fmt.Sprintf("expected attribute name after '.', got %s", tokenLabel(p.peekToken)))
		return nil
	}
	p.nextToken()
	return &AttributeExpr{Object: object, Name: p.curToken.Literal, position: object.Pos()}
}

func (p *exprParser) parseIndexExpression(object Expression) Expression {
	pos := p.curToken.Pos
	if p.peekToken.Type == tokenColon {
		p.fail(p.peekToken.Pos, "slicing is not supported")
		return nil
	}
	if p.peekToken.Type == tokenRBracket {
		p.fail(p.peekToken.Pos, "missing index")
		return nil
	}
	p.nextToken()
	index := p.parseExpression(lowestPrec)
	if index == nil {
		return nil
	}
	switch p.peekToken.Type {
	case tokenColon:
		p.fail(p.peekToken.Pos, "slicing is not supported")
		return nil
	case tokenComma:
		p.fail(p.peekToken.Pos, "multiple indexes are not supported")
		return nil
	}
	if !p.expectPeek(tokenRBracket, "']'") {
		return nil
	}
	return &IndexExpr{Object: object, Index: index, position: pos}
}

// describeExpr renders an expression for error messages.
func describeExpr(expr Expression) string {
	switch e := expr.(type) {
	case *Identifier:
		return e.Name
	case *AttributeExpr:
		return describeExpr(e.Object) + "." + e.Name
	case *PropertyExpr:
		return "drone." + e.Name
	case *CallExpr:
		return e.Callee + "()"
	case *StringLiteral:
		return strconv.Quote(e.Value)
	case *IntegerLiteral:
		return strconv.FormatInt(e.Value, 10)
	case *IndexExpr:
		return describeExpr(e.Object) + "[" + describeExpr(e.Index) + "]"
	default:
		return strings.ToLower(strings.TrimPrefix(fmt.Sprintf("%T", expr), "*dronescript."))
	}
}
