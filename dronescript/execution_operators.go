package dronescript

import (
	"math"
	"strings"
)

func (exec *Execution) evalExpression(expr Expression, env *Env) (Value, error) {
	switch e := expr.(type) {
	case *IntegerLiteral:
		return NewInt(e.Value), nil
	case *FloatLiteral:
		return NewFloat(e.Value), nil
	case *StringLiteral:
		return NewString(e.Value), nil
	case *BoolLiteral:
		return NewBool(e.Value), nil
	case *NoneLiteral:
		return NewNone(), nil
	case *Identifier:
		val, ok := env.Get(e.Name)
		if !ok {
			return NewNone(), exec.nameError(e.Pos(), e.Name)
		}
		return val, nil
	case *ListLiteral:
		items := make([]Value, len(e.Elements))
		for i, elem := range e.Elements {
			val, err := exec.evalExpression(elem, env)
			if err != nil {
				return NewNone(), err
			}
			items[i] = val
		}
		return NewList(items), nil
	case *UnaryExpr:
		return exec.evalUnary(e, env)
	case *BinaryExpr:
		return exec.evalBinary(e, env)
	case *IndexExpr:
		return exec.evalIndex(e, env)
	case *PropertyExpr:
		return droneProperties[e.Name](exec.drone), nil
	case *CallExpr:
		return exec.evalCall(e, env)
	default:
		return NewNone(), exec.errorAt(expr.Pos(), "cannot evaluate %s", describeExpr(expr))
	}
}

func (exec *Execution) nameError(pos Position, name string) error {
	msg := "name '" + name + "' is not defined"
	if _, ok := resolveCapability(name); ok {
		msg += "; call it as " + name + "()"
	}
	return exec.newRuntimeError(NameError, msg, pos, nil)
}

func (exec *Execution) evalCall(call *CallExpr, env *Env) (Value, error) {
	args := make([]Value, len(call.Args))
	for i, arg := range call.Args {
		val, err := exec.evalExpression(arg, env)
		if err != nil {
			return NewNone(), err
		}
		args[i] = val
	}

	switch call.Kind {
	case CallEffect:
		return exec.invokeEffect(call)
	case CallBuiltin:
		return exec.program.engine.builtins[call.Name](exec, args, call.Pos())
	case CallFunction:
		fn, ok := exec.program.functions[call.Name]
		if !ok {
			return NewNone(), exec.errorAt(call.Pos(), "function %s is not defined", call.Name)
		}
		return exec.callFunction(fn, args, call.Pos())
	default:
		return NewNone(), exec.errorAt(call.Pos(), "unresolved call to %s", call.Callee)
	}
}

func (exec *Execution) evalUnary(e *UnaryExpr, env *Env) (Value, error) {
	right, err := exec.evalExpression(e.Right, env)
	if err != nil {
		return NewNone(), err
	}
	switch e.Operator {
	case tokenNot:
		return NewBool(!right.Truthy()), nil
	case tokenMinus:
		switch right.Kind() {
		case KindInt:
			if right.Int() == math.MinInt64 {
				return NewNone(), exec.overflowError(e.Pos())
			}
			return NewInt(-right.Int()), nil
		case KindFloat:
			return NewFloat(-right.Float()), nil
		}
	case tokenPlus:
		if right.isNumber() {
			return right, nil
		}
	}
	return NewNone(), exec.typeError(e.Pos(), "bad operand type for unary %s: '%s'", e.Operator, right.Kind())
}

func (exec *Execution) evalBinary(e *BinaryExpr, env *Env) (Value, error) {
	left, err := exec.evalExpression(e.Left, env)
	if err != nil {
		return NewNone(), err
	}

	// and/or short-circuit and yield an operand, not a bool.
	switch e.Operator {
	case tokenAnd:
		if !left.Truthy() {
			return left, nil
		}
		return exec.evalExpression(e.Right, env)
	case tokenOr:
		if left.Truthy() {
			return left, nil
		}
		return exec.evalExpression(e.Right, env)
	}

	right, err := exec.evalExpression(e.Right, env)
	if err != nil {
		return NewNone(), err
	}
	return exec.binaryOp(e.Operator, left, right, e.Pos())
}

func (exec *Execution) binaryOp(op TokenType, left, right Value, pos Position) (Value, error) {
	switch op {
	case tokenEQ, tokenNotEQ:
		equal, ok := left.Equal(right)
		if !ok {
			return NewNone(), exec.typeError(pos, "cannot compare %s with %s", describeValue(left), describeValue(right))
		}
		return NewBool(equal == (op == tokenEQ)), nil
	case tokenLT, tokenLTE, tokenGT, tokenGTE:
		return exec.compareOrdered(op, left, right, pos)
	case tokenPlus:
		switch {
		case left.Kind() == KindString && right.Kind() == KindString:
			return NewString(left.Str() + right.Str()), nil
		case left.Kind() == KindList && right.Kind() == KindList:
			items := make([]Value, 0, len(left.List())+len(right.List()))
			items = append(items, left.List()...)
			return NewList(append(items, right.List()...)), nil
		}
		return exec.arithmetic(op, left, right, pos)
	case tokenAsterisk:
		if rep, ok, err := exec.repeat(left, right, pos); ok {
			return rep, err
		}
		if rep, ok, err := exec.repeat(right, left, pos); ok {
			return rep, err
		}
		return exec.arithmetic(op, left, right, pos)
	case tokenMinus, tokenSlash, tokenFloorDiv, tokenPercent:
		return exec.arithmetic(op, left, right, pos)
	default:
		return NewNone(), exec.errorAt(pos, "unsupported operator %s", op)
	}
}

func (exec *Execution) arithmetic(op TokenType, left, right Value, pos Position) (Value, error) {
	if !left.isNumber() || !right.isNumber() {
		return NewNone(), exec.typeError(pos, "unsupported operand types for %s: '%s' and '%s'", op, left.Kind(), right.Kind())
	}

	if left.Kind() == KindInt && right.Kind() == KindInt && op != tokenSlash {
		a, b := left.Int(), right.Int()
		var (
			n  int64
			ok = true
		)
		switch op {
		case tokenPlus:
			n, ok = addInt(a, b)
		case tokenMinus:
			n, ok = subInt(a, b)
		case tokenAsterisk:
			n, ok = mulInt(a, b)
		case tokenFloorDiv, tokenPercent:
			if b == 0 {
				return NewNone(), exec.errorAt(pos, "division by zero")
			}
			if op == tokenFloorDiv && a == math.MinInt64 && b == -1 {
				return NewNone(), exec.overflowError(pos)
			}
			q, r := a/b, a%b
			// Round towards negative infinity like the language learners know.
			if r != 0 && (r < 0) != (b < 0) {
				q--
				r += b
			}
			if op == tokenFloorDiv {
				return NewInt(q), nil
			}
			return NewInt(r), nil
		}
		if !ok {
			return NewNone(), exec.overflowError(pos)
		}
		return NewInt(n), nil
	}

	a, b := left.Float(), right.Float()
	switch op {
	case tokenPlus:
		return NewFloat(a + b), nil
	case tokenMinus:
		return NewFloat(a - b), nil
	case tokenAsterisk:
		return NewFloat(a * b), nil
	}
	if b == 0 {
		return NewNone(), exec.errorAt(pos, "division by zero")
	}
	switch op {
	case tokenSlash:
		return NewFloat(a / b), nil
	case tokenFloorDiv:
		return NewFloat(math.Floor(a / b)), nil
	default:
		return NewFloat(a - b*math.Floor(a/b)), nil
	}
}

func (exec *Execution) overflowError(pos Position) error {
	return exec.errorAt(pos, "integer overflow")
}

// addInt, subInt and mulInt report ok=false when the result does not fit
// in an int64.
func addInt(a, b int64) (int64, bool) {
	c := a + b
	return c, (b >= 0) == (c >= a)
}

func subInt(a, b int64) (int64, bool) {
	c := a - b
	return c, (b >= 0) == (c <= a)
}

func mulInt(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, false
	}
	c := a * b
	return c, c/b == a
}

// repeat implements sequence * int. ok is false when the operands are not a
// sequence and an int.
func (exec *Execution) repeat(seq, count Value, pos Position) (Value, bool, error) {
	if count.Kind() != KindInt || (seq.Kind() != KindString && seq.Kind() != KindList) {
		return Value{}, false, nil
	}
	n := max(count.Int(), 0)
	// Compare by division: length*n can overflow int64.
	tooLong := func(length int) bool {
		return n > 0 && int64(length) > int64(exec.maxRange)/n
	}
	if seq.Kind() == KindString {
		if n == 0 || seq.Str() == "" {
			return NewString(""), true, nil
		}
		if tooLong(len(seq.Str())) {
			return NewNone(), true, exec.errorAt(pos, "string longer than %d characters", exec.maxRange)
		}
		return NewString(strings.Repeat(seq.Str(), int(n))), true, nil
	}
	src := seq.List()
	if n == 0 || len(src) == 0 {
		return NewList(nil), true, nil
	}
	if tooLong(len(src)) {
		return NewNone(), true, exec.errorAt(pos, "list longer than %d items", exec.maxRange)
	}
	items := make([]Value, 0, len(src)*int(n))
	for i := int64(0); i < n; i++ {
		items = append(items, src...)
	}
	return NewList(items), true, nil
}

func (exec *Execution) compareOrdered(op TokenType, left, right Value, pos Position) (Value, error) {
	var cmp int
	switch {
	case left.isNumber() && right.isNumber():
		a, b := left.Float(), right.Float()
		if left.Kind() == KindInt && right.Kind() == KindInt {
			a, b = float64(left.Int()), float64(right.Int())
		}
		switch {
		case a < b:
			cmp = -1
		case a > b:
			cmp = 1
		}
	case left.Kind() == KindString && right.Kind() == KindString:
		cmp = strings.Compare(left.Str(), right.Str())
	default:
		return NewNone(), exec.typeError(pos, "'%s' not supported between %s and %s", op, describeValue(left), describeValue(right))
	}
	switch op {
	case tokenLT:
		return NewBool(cmp < 0), nil
	case tokenLTE:
		return NewBool(cmp <= 0), nil
	case tokenGT:
		return NewBool(cmp > 0), nil
	default:
		return NewBool(cmp >= 0), nil
	}
}

func (exec *Execution) evalIndex(e *IndexExpr, env *Env) (Value, error) {
	object, err := exec.evalExpression(e.Object, env)
	if err != nil {
		return NewNone(), err
	}
	index, err := exec.evalExpression(e.Index, env)
	if err != nil {
		return NewNone(), err
	}
	if index.Kind() != KindInt {
		return NewNone(), exec.typeError(e.Index.Pos(), "indices must be integers, not '%s'", index.Kind())
	}

	var length int
	switch object.Kind() {
	case KindList:
		length = len(object.List())
	case KindString:
		length = len([]rune(object.Str()))
	default:
		return NewNone(), exec.typeError(e.Pos(), "'%s' object is not subscriptable", object.Kind())
	}
	i := index.Int()
	if i < 0 {
		i += int64(length)
	}
	if i < 0 || i >= int64(length) {
		return NewNone(), exec.errorAt(e.Pos(), "%s index %d out of range", object.Kind(), index.Int())
	}
	if object.Kind() == KindList {
		return object.List()[i], nil
	}
	return NewString(string([]rune(object.Str())[i])), nil
}

// describeValue renders a value with its kind for error messages.
func describeValue(v Value) string {
	switch v.Kind() {
	case KindNone:
		return "None"
	case KindString, KindEntity:
		return v.Kind().String() + " " + v.Repr()
	case KindList:
		return "list"
	default:
		return v.Kind().String() + " " + v.String()
	}
}
