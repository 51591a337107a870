package dronescript

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Op is one node of an execution plan.
type Op interface {
	Line() int
	opNode()
}

type opBase struct {
	line int
}

func (o opBase) Line() int { return o.line }
func (opBase) opNode()     {}

// AssignOp binds Target. Operator is "=", "+=", "-=" or "*=".
type AssignOp struct {
	opBase
	Target   string
	Operator string
	Value    Expression
}

// ExprOp evaluates an expression for its effect, usually a call.
type ExprOp struct {
	opBase
	Expr Expression
}

// CondBranch is one arm of an IfOp. Cond is nil for else.
type CondBranch struct {
	Line int
	Cond Expression
	Body []Op
}

type IfOp struct {
	opBase
	Branches []CondBranch
}

// ForOp iterates Iterable, or counts through Range when the header was
// written as range(...). Range loops never build a list.
type ForOp struct {
	opBase
	Binding  string
	Iterable Expression
	Range    []Expression
	Body     []Op
}

type WhileOp struct {
	opBase
	Cond Expression
	Body []Op
}

type PassOp struct{ opBase }
type BreakOp struct{ opBase }
type ContinueOp struct{ opBase }

type ReturnOp struct {
	opBase
	Value Expression
}

// Function is a hoisted def.
type Function struct {
	Name   string
	Params []string
	Body   []Op
	Line   int
}

type planBuilder struct {
	source    string
	builtins  map[string]builtinFunc
	functions map[string]*Function
	current   *Function
	loopDepth int
}

// buildPlan hoists every top-level def, then translates the statement tree
// into ops with every call resolved.
func buildPlan(stmts []*Statement, source string, builtins map[string]builtinFunc) ([]Op, map[string]*Function, error) {
	b := &planBuilder{source: source, builtins: builtins, functions: make(map[string]*Function)}

	var defs []*Statement
	for _, stmt := range stmts {
		if stmt.Kind != StmtDef {
			continue
		}
		pos := Position{Line: stmt.Line}
		if _, exists := b.functions[stmt.Target]; exists {
			return nil, nil, newTranslationError(pos, fmt.Sprintf("function %s is defined twice", stmt.Target), source)
		}
		if _, ok := resolveCapability(stmt.Target); ok {
			return nil, nil, newTranslationError(pos, fmt.Sprintf("%s is a drone action and cannot be redefined", stmt.Target), source)
		}
		if _, ok := builtins[stmt.Target]; ok {
			return nil, nil, newTranslationError(pos, fmt.Sprintf("%s is a built-in function and cannot be redefined", stmt.Target), source)
		}
		b.functions[stmt.Target] = &Function{Name: stmt.Target, Params: stmt.Params, Line: stmt.Line}
		defs = append(defs, stmt)
	}

	ops, err := b.buildTopLevel(stmts)
	if err != nil {
		return nil, nil, err
	}
	for _, def := range defs {
		fn := b.functions[def.Target]
		b.current, b.loopDepth = fn, 0
		fn.Body, err = b.buildBlock(def.Body)
		if err != nil {
			return nil, nil, err
		}
	}
	return ops, b.functions, nil
}

// buildTopLevel builds the main program. Its defs were hoisted already.
func (b *planBuilder) buildTopLevel(stmts []*Statement) ([]Op, error) {
	ops := make([]Op, 0, len(stmts))
	for _, stmt := range stmts {
		if stmt.Kind == StmtDef {
			continue
		}
		op, err := b.buildStatement(stmt)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func (b *planBuilder) buildBlock(stmts []*Statement) ([]Op, error) {
	ops := make([]Op, 0, len(stmts))
	for _, stmt := range stmts {
		if stmt.Kind == StmtDef {
			return nil, newTranslationError(Position{Line: stmt.Line}, "functions can only be defined at the top level", b.source)
		}
		op, err := b.buildStatement(stmt)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func (b *planBuilder) buildStatement(stmt *Statement) (Op, error) {
	base := opBase{line: stmt.Line}
	pos := Position{Line: stmt.Line}

	switch stmt.Kind {
	case StmtCall, StmtExpr:
		expr, err := b.expression(stmt)
		if err != nil {
			return nil, err
		}
		return &ExprOp{opBase: base, Expr: expr}, nil
	case StmtAssign:
		expr, err := b.expression(stmt)
		if err != nil {
			return nil, err
		}
		return &AssignOp{opBase: base, Target: stmt.Target, Operator: stmt.Op, Value: expr}, nil
	case StmtIf:
		op := &IfOp{opBase: base}
		for _, branch := range append([]*Statement{stmt}, stmt.Branches...) {
			var cond Expression
			if branch.Kind != StmtElse {
				var err error
				if cond, err = b.expression(branch); err != nil {
					return nil, err
				}
			}
			body, err := b.buildBlock(branch.Body)
			if err != nil {
				return nil, err
			}
			op.Branches = append(op.Branches, CondBranch{Line: branch.Line, Cond: cond, Body: body})
		}
		return op, nil
	case StmtFor:
		iterable, err := b.expression(stmt)
		if err != nil {
			return nil, err
		}
		op := &ForOp{opBase: base, Binding: stmt.Target, Iterable: iterable}
		if call, ok := iterable.(*CallExpr); ok && call.Kind == CallBuiltin && call.Name == "range" {
			if len(call.Args) < 1 || len(call.Args) > 3 {
				return nil, newTranslationError(call.Pos(), fmt.Sprintf("range expects 1 to 3 arguments, got %d", len(call.Args)), b.source)
			}
			op.Range = call.Args
		}
		b.loopDepth++
		op.Body, err = b.buildBlock(stmt.Body)
		b.loopDepth--
		if err != nil {
			return nil, err
		}
		return op, nil
	case StmtWhile:
		cond, err := b.expression(stmt)
		if err != nil {
			return nil, err
		}
		op := &WhileOp{opBase: base, Cond: cond}
		b.loopDepth++
		op.Body, err = b.buildBlock(stmt.Body)
		b.loopDepth--
		if err != nil {
			return nil, err
		}
		return op, nil
	case StmtPass:
		return &PassOp{opBase: base}, nil
	case StmtBreak, StmtContinue:
		if b.loopDepth == 0 {
			return nil, newTranslationError(pos, fmt.Sprintf("%s outside a loop", stmt.Kind), b.source)
		}
		if stmt.Kind == StmtBreak {
			return &BreakOp{opBase: base}, nil
		}
		return &ContinueOp{opBase: base}, nil
	case StmtReturn:
		if b.current == nil {
			return nil, newTranslationError(pos, "return outside a function", b.source)
		}
		op := &ReturnOp{opBase: base}
		if stmt.Expr != "" {
			expr, err := b.expression(stmt)
			if err != nil {
				return nil, err
			}
			op.Value = expr
		}
		return op, nil
	case StmtElif, StmtElse:
		return nil, newStructuralError(pos, fmt.Sprintf("%s without a matching if", stmt.Kind), b.source)
	default:
		return nil, newTranslationError(pos, fmt.Sprintf("unsupported statement %s", stmt.Kind), b.source)
	}
}

func (b *planBuilder) expression(stmt *Statement) (Expression, error) {
	expr, err := parseExpression(stmt.Expr, Position{Line: stmt.Line, Column: stmt.Column}, b.source)
	if err != nil {
		return nil, err
	}
	return b.resolve(expr)
}

// resolve walks an expression, binding every call and drone attribute.
func (b *planBuilder) resolve(expr Expression) (Expression, error) {
	switch e := expr.(type) {
	case *Identifier:
		if e.Name == "drone" {
			return nil, newTranslationError(e.Pos(), "drone is not a value; use one of its actions or drone.battery", b.source)
		}
		return e, nil
	case *ListLiteral:
		for i, elem := range e.Elements {
			resolved, err := b.resolve(elem)
			if err != nil {
				return nil, err
			}
			e.Elements[i] = resolved
		}
		return e, nil
	case *UnaryExpr:
		right, err := b.resolve(e.Right)
		if err != nil {
			return nil, err
		}
		e.Right = right
		return e, nil
	case *BinaryExpr:
		left, err := b.resolve(e.Left)
		if err != nil {
			return nil, err
		}
		right, err := b.resolve(e.Right)
		if err != nil {
			return nil, err
		}
		e.Left, e.Right = left, right
		return e, nil
	case *IndexExpr:
		object, err := b.resolve(e.Object)
		if err != nil {
			return nil, err
		}
		index, err := b.resolve(e.Index)
		if err != nil {
			return nil, err
		}
		e.Object, e.Index = object, index
		return e, nil
	case *AttributeExpr:
		return b.resolveAttribute(e)
	case *CallExpr:
		for i, arg := range e.Args {
			resolved, err := b.resolve(arg)
			if err != nil {
				return nil, err
			}
			e.Args[i] = resolved
		}
		return e, b.resolveCall(e)
	default:
		return expr, nil
	}
}

func (b *planBuilder) resolveAttribute(e *AttributeExpr) (Expression, error) {
	ident, ok := e.Object.(*Identifier)
	if !ok || ident.Name != "drone" {
		return nil, newTranslationError(e.Pos(), fmt.Sprintf("attribute access is only supported on drone, not %s", describeExpr(e.Object)), b.source)
	}
	if _, ok := droneProperties[e.Name]; ok {
		return &PropertyExpr{Name: e.Name, position: e.Pos()}, nil
	}
	if name, ok := resolveCapability(e.Name); ok {
		return nil, newTranslationError(e.Pos(), fmt.Sprintf("drone.%s is an action; call it as drone.%s()", e.Name, name), b.source)
	}
	msg := fmt.Sprintf("drone has no attribute %q", e.Name)
	if hint := suggest(e.Name, sortedKeys(droneProperties)); hint != "" {
		msg += fmt.Sprintf("; did you mean drone.%s?", hint)
	}
	return nil, newTranslationError(e.Pos(), msg, b.source)
}

func (b *planBuilder) resolveCall(call *CallExpr) error {
	if name, ok := resolveCapability(call.Callee); ok {
		if len(call.Args) > 0 {
			return newTranslationError(call.Pos(), fmt.Sprintf("%s() takes no arguments", call.Callee), b.source)
		}
		call.Kind, call.Name = CallEffect, name
		return nil
	}
	if _, ok := b.builtins[call.Callee]; ok {
		call.Kind, call.Name = CallBuiltin, call.Callee
		return nil
	}
	if fn, ok := b.functions[call.Callee]; ok {
		if len(call.Args) != len(fn.Params) {
			return newTranslationError(call.Pos(), fmt.Sprintf("%s() takes %d argument(s) but %d were given", fn.Name, len(fn.Params), len(call.Args)), b.source)
		}
		call.Kind, call.Name = CallFunction, fn.Name
		return nil
	}

	msg := fmt.Sprintf("unknown function %s()", call.Callee)
	if hint := suggest(call.Callee, b.callables(strings.HasPrefix(call.Callee, "drone."))); hint != "" {
		msg += fmt.Sprintf("; did you mean %s()?", hint)
	}
	return newTranslationError(call.Pos(), msg, b.source)
}

// callables lists every name a call can resolve to.
func (b *planBuilder) callables(dotted bool) []string {
	var names []string
	for name := range capabilities {
		if dotted {
			names = append(names, "drone."+name)
		} else {
			names = append(names, name)
		}
	}
	if !dotted {
		names = append(names, sortedKeys(b.builtins)...)
		names = append(names, sortedKeys(b.functions)...)
	}
	sort.Strings(names)
	return names
}

// suggest returns the candidate closest to name, or "" when nothing is
// close enough to be a plausible typo.
func suggest(name string, candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}
	limit := max(2, len(name)/3)

	ranks := fuzzy.RankFindFold(name, candidates)
	sort.Sort(ranks)
	if len(ranks) > 0 && ranks[0].Distance <= limit {
		return ranks[0].Target
	}

	best, bestDist := "", limit+1
	lowered := strings.ToLower(name)
	for _, candidate := range candidates {
		if d := fuzzy.LevenshteinDistance(lowered, strings.ToLower(candidate)); d < bestDist {
			best, bestDist = candidate, d
		}
	}
	return best
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
