package dronescript

// Expression is a translated expression, ready to evaluate.
type Expression interface {
	Pos() Position
	exprNode()
}

type Identifier struct {
	Name     string
	position Position
}

func (e *Identifier) exprNode()     {}
func (e *Identifier) Pos() Position { return e.position }

type IntegerLiteral struct {
	Value    int64
	position Position
}

func (e *IntegerLiteral) exprNode()     {}
func (e *IntegerLiteral) Pos() Position { return e.position }

type FloatLiteral struct {
	Value    float64
	position Position
}

func (e *FloatLiteral) exprNode()     {}
func (e *FloatLiteral) Pos() Position { return e.position }

type StringLiteral struct {
	Value    string
	position Position
}

func (e *StringLiteral) exprNode()     {}
func (e *StringLiteral) Pos() Position { return e.position }

type BoolLiteral struct {
	Value    bool
	position Position
}

func (e *BoolLiteral) exprNode()     {}
func (e *BoolLiteral) Pos() Position { return e.position }

type NoneLiteral struct {
	position Position
}

func (e *NoneLiteral) exprNode()     {}
func (e *NoneLiteral) Pos() Position { return e.position }

type ListLiteral struct {
	Elements []Expression
	position Position
}

func (e *ListLiteral) exprNode()     {}
func (e *ListLiteral) Pos() Position { return e.position }

// UnaryExpr is -x or not x.
type UnaryExpr struct {
	Operator TokenType
	Right    Expression
	position Position
}

func (e *UnaryExpr) exprNode()     {}
func (e *UnaryExpr) Pos() Position { return e.position }

// BinaryExpr covers arithmetic, comparisons and the short-circuit and/or.
type BinaryExpr struct {
	Left     Expression
	Operator TokenType
	Right    Expression
	position Position
}

func (e *BinaryExpr) exprNode()     {}
func (e *BinaryExpr) Pos() Position { return e.position }

type IndexExpr struct {
	Object   Expression
	Index    Expression
	position Position
}

func (e *IndexExpr) exprNode()     {}
func (e *IndexExpr) Pos() Position { return e.position }

// AttributeExpr is object.name outside a call. The plan builder turns
// drone attributes into PropertyExpr and rejects the rest.
type AttributeExpr struct {
	Object   Expression
	Name     string
	position Position
}

func (e *AttributeExpr) exprNode()     {}
func (e *AttributeExpr) Pos() Position { return e.position }

// PropertyExpr is a pure read from the drone, such as drone.battery.
type PropertyExpr struct {
	Name     string
	position Position
}

func (e *PropertyExpr) exprNode()     {}
func (e *PropertyExpr) Pos() Position { return e.position }

// CallKind says how a call was resolved.
type CallKind int

const (
	callUnresolved CallKind = iota
	// CallEffect is a paced drone action.
	CallEffect
	// CallBuiltin is a pure builtin such as print or len.
	CallBuiltin
	// CallFunction is a user-defined function.
	CallFunction
)

func (k CallKind) String() string {
	switch k {
	case CallEffect:
		return "effect"
	case CallBuiltin:
		return "builtin"
	case CallFunction:
		return "function"
	default:
		return "unresolved"
	}
}

// CallExpr calls a named function. Callee is the name as written, which
// may be dotted (drone.right). Kind and Name are filled in by the plan
// builder; Name is the canonical target.
type CallExpr struct {
	Callee   string
	Args     []Expression
	Kind     CallKind
	Name     string
	position Position
}

func (e *CallExpr) exprNode()     {}
func (e *CallExpr) Pos() Position { return e.position }

// Effectful reports whether evaluating the call performs a drone action.
func (e *CallExpr) Effectful() bool { return e.Kind == CallEffect }
