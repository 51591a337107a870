package dronescript

// TokenType identifies the lexical category of a token.
type TokenType string

const (
	tokenIllegal TokenType = "ILLEGAL"
	tokenEOF     TokenType = "EOF"

	tokenIdent  TokenType = "IDENT"
	tokenInt    TokenType = "INT"
	tokenFloat  TokenType = "FLOAT"
	tokenString TokenType = "STRING"

	tokenAssign      TokenType = "="
	tokenPlus        TokenType = "+"
	tokenMinus       TokenType = "-"
	tokenAsterisk    TokenType = "*"
	tokenPower       TokenType = "**"
	tokenSlash       TokenType = "/"
	tokenFloorDiv    TokenType = "//"
	tokenPercent     TokenType = "%"
	tokenLT          TokenType = "<"
	tokenGT          TokenType = ">"
	tokenLTE         TokenType = "<="
	tokenGTE         TokenType = ">="
	tokenEQ          TokenType = "=="
	tokenNotEQ       TokenType = "!="
	tokenComma       TokenType = ","
	tokenColon       TokenType = ":"
	tokenSemicolon   TokenType = ";"
	tokenDot         TokenType = "."
	tokenLParen      TokenType = "("
	tokenRParen      TokenType = ")"
	tokenLBrace      TokenType = "{"
	tokenRBrace      TokenType = "}"
	tokenLBracket    TokenType = "["
	tokenRBracket    TokenType = "]"
	tokenAugmentedOp TokenType = "AUGMENTED"

	tokenAnd    TokenType = "AND"
	tokenOr     TokenType = "OR"
	tokenNot    TokenType = "NOT"
	tokenIn     TokenType = "IN"
	tokenIs     TokenType = "IS"
	tokenIf     TokenType = "IF"
	tokenElse   TokenType = "ELSE"
	tokenFor    TokenType = "FOR"
	tokenLambda TokenType = "LAMBDA"
	tokenTrue   TokenType = "TRUE"
	tokenFalse  TokenType = "FALSE"
	tokenNone   TokenType = "NONE"
)

// Token captures lexical information for the parser.
type Token struct {
	Type    TokenType
	Literal string
	Pos     Position
}

// Position identifies a line and column in the source program. Both are
// 1-based; a zero Column means the whole line.
type Position struct {
	Line   int
	Column int
}
