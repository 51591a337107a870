package dronescript

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mgomes/dronelab/internal/ctxlog"
)

// State is the lifecycle of one run.
type State int

const (
	Idle State = iota
	Running
	Completed
	Failed
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether the state ends a run.
func (s State) Terminal() bool {
	return s == Completed || s == Failed || s == Cancelled
}

// Result is the outcome of Program.Run.
type Result struct {
	State State
	// Err is a *RuntimeError when Failed and ErrCancelled when Cancelled.
	Err error
	// Line is the source line of the statement the run stopped at.
	Line int
	// Steps counts executed statements and loop iterations.
	Steps int
	// Effects counts drone actions dispatched.
	Effects int
}

// RunOptions configures a single run.
type RunOptions struct {
	Drone Drone
	// Pacing overrides the engine's delay before each drone action.
	Pacing time.Duration
	// Globals are predefined before the first statement.
	Globals map[string]Value
}

// Execution is the state of one run. It is not safe for concurrent use.
type Execution struct {
	program      *Program
	ctx          context.Context
	drone        Drone
	pacing       time.Duration
	quota        int
	recursionCap int
	maxRange     int
	steps        int
	effects      int
	line         int
	callStack    []callFrame
	root         *Env
}

// Run interprets the program against opts.Drone until it completes, fails
// or ctx is cancelled. Drone actions are dispatched strictly in program
// order, each after the pacing delay. Nothing is rolled back on failure or
// cancellation.
func (p *Program) Run(ctx context.Context, opts RunOptions) Result {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Drone == nil {
		return Result{State: Failed, Err: errors.New("dronescript: run without a drone")}
	}
	cfg := p.engine.config
	pacing := opts.Pacing
	if pacing <= 0 {
		pacing = cfg.Pacing
	}

	exec := &Execution{
		program:      p,
		ctx:          ctx,
		drone:        opts.Drone,
		pacing:       pacing,
		quota:        cfg.StepQuota,
		recursionCap: cfg.RecursionLimit,
		maxRange:     cfg.MaxRangeLength,
		root:         newEnv(nil),
	}
	for name, val := range opts.Globals {
		exec.root.Define(name, val)
	}

	logger := ctxlog.FromContext(ctx)
	logger.Debug("Program run started.", "pacing", pacing, "step_quota", exec.quota)

	_, _, err := exec.evalOps(p.ops, exec.root)
	result := Result{Steps: exec.steps, Effects: exec.effects, Line: exec.line}
	var re *RuntimeError
	switch {
	case err == nil:
		result.State = Completed
	case errors.Is(err, ErrCancelled):
		result.State = Cancelled
		result.Err = ErrCancelled
	case errors.As(err, &re):
		result.State = Failed
		result.Err = re
		result.Line = re.Line
	default:
		result.State = Failed
		result.Err = err
	}

	logger.Debug("Program run finished.", "state", result.State.String(), "steps", result.Steps, "effects", result.Effects, "line", result.Line)
	return result
}

// evalOps runs a block. returned is true once a return statement fired.
func (exec *Execution) evalOps(ops []Op, env *Env) (Value, bool, error) {
	for _, op := range ops {
		exec.line = op.Line()
		if err := exec.step(); err != nil {
			return NewNone(), false, exec.wrapError(err, Position{Line: op.Line()})
		}
		val, returned, err := exec.evalOp(op, env)
		if err != nil {
			return NewNone(), false, err
		}
		if returned {
			return val, true, nil
		}
	}
	return NewNone(), false, nil
}

func (exec *Execution) evalOp(op Op, env *Env) (Value, bool, error) {
	switch o := op.(type) {
	case *ExprOp:
		_, err := exec.evalExpression(o.Expr, env)
		return NewNone(), false, err
	case *AssignOp:
		return NewNone(), false, exec.evalAssign(o, env)
	case *IfOp:
		for _, branch := range o.Branches {
			if branch.Cond != nil {
				cond, err := exec.evalExpression(branch.Cond, env)
				if err != nil {
					return NewNone(), false, err
				}
				if !cond.Truthy() {
					continue
				}
			}
			return exec.evalOps(branch.Body, env)
		}
		return NewNone(), false, nil
	case *ForOp:
		return exec.evalFor(o, env)
	case *WhileOp:
		return exec.evalWhile(o, env)
	case *PassOp:
		return NewNone(), false, nil
	case *BreakOp:
		return NewNone(), false, errLoopBreak
	case *ContinueOp:
		return NewNone(), false, errLoopContinue
	case *ReturnOp:
		if o.Value == nil {
			return NewNone(), true, nil
		}
		val, err := exec.evalExpression(o.Value, env)
		if err != nil {
			return NewNone(), false, err
		}
		return val, true, nil
	default:
		return NewNone(), false, exec.errorAt(Position{Line: op.Line()}, "unsupported operation %T", op)
	}
}

func (exec *Execution) evalAssign(op *AssignOp, env *Env) error {
	val, err := exec.evalExpression(op.Value, env)
	if err != nil {
		return err
	}
	if op.Operator != "=" {
		current, ok := env.Get(op.Target)
		if !ok {
			return exec.nameError(Position{Line: op.Line()}, op.Target)
		}
		var operator TokenType
		switch op.Operator {
		case "+=":
			operator = tokenPlus
		case "-=":
			operator = tokenMinus
		case "*=":
			operator = tokenAsterisk
		}
		val, err = exec.binaryOp(operator, current, val, op.Value.Pos())
		if err != nil {
			return err
		}
	}
	env.Define(op.Target, val)
	return nil
}

// runBody runs one loop iteration. stop is true when the loop must end.
func (exec *Execution) runBody(body []Op, env *Env) (val Value, returned bool, stop bool, err error) {
	val, returned, err = exec.evalOps(body, env)
	switch {
	case errors.Is(err, errLoopBreak):
		return NewNone(), false, true, nil
	case errors.Is(err, errLoopContinue):
		return NewNone(), false, false, nil
	case err != nil:
		return NewNone(), false, true, err
	case returned:
		return val, true, true, nil
	}
	return NewNone(), false, false, nil
}

func (exec *Execution) evalFor(op *ForOp, env *Env) (Value, bool, error) {
	if op.Range != nil {
		start, stop, step, err := exec.rangeBounds(op.Range, env)
		if err != nil {
			return NewNone(), false, err
		}
		for i, ok := start, inRange(start, stop, step); ok; i, ok = nextInRange(i, stop, step) {
			if err := exec.iterate(op.Line()); err != nil {
				return NewNone(), false, err
			}
			env.Define(op.Binding, NewInt(i))
			val, returned, done, err := exec.runBody(op.Body, env)
			if err != nil || returned {
				return val, returned, err
			}
			if done {
				break
			}
		}
		return NewNone(), false, nil
	}

	iterable, err := exec.evalExpression(op.Iterable, env)
	if err != nil {
		return NewNone(), false, err
	}
	var items []Value
	switch iterable.Kind() {
	case KindList:
		items = append([]Value(nil), iterable.List()...)
	case KindString:
		for _, r := range iterable.Str() {
			items = append(items, NewString(string(r)))
		}
	default:
		return NewNone(), false, exec.typeError(op.Iterable.Pos(), "'%s' object is not iterable", iterable.Kind())
	}
	for _, item := range items {
		if err := exec.iterate(op.Line()); err != nil {
			return NewNone(), false, err
		}
		env.Define(op.Binding, item)
		val, returned, done, err := exec.runBody(op.Body, env)
		if err != nil || returned {
			return val, returned, err
		}
		if done {
			break
		}
	}
	return NewNone(), false, nil
}

func (exec *Execution) evalWhile(op *WhileOp, env *Env) (Value, bool, error) {
	for {
		if err := exec.iterate(op.Line()); err != nil {
			return NewNone(), false, err
		}
		cond, err := exec.evalExpression(op.Cond, env)
		if err != nil {
			return NewNone(), false, err
		}
		if !cond.Truthy() {
			return NewNone(), false, nil
		}
		val, returned, done, err := exec.runBody(op.Body, env)
		if err != nil || returned {
			return val, returned, err
		}
		if done {
			return NewNone(), false, nil
		}
	}
}

// iterate counts a loop pass and polls for cancellation.
func (exec *Execution) iterate(line int) error {
	exec.line = line
	return exec.wrapError(exec.step(), Position{Line: line})
}

func (exec *Execution) rangeBounds(args []Expression, env *Env) (start, stop, step int64, err error) {
	vals := make([]Value, len(args))
	for i, arg := range args {
		if vals[i], err = exec.evalExpression(arg, env); err != nil {
			return 0, 0, 0, err
		}
	}
	return exec.rangeArgs(vals, args[0].Pos())
}

// invokeEffect dispatches one drone action: poll for cancellation, wait out
// the pacing delay, poll again, then call the world.
func (exec *Execution) invokeEffect(call *CallExpr) (Value, error) {
	if err := exec.checkCancelled(); err != nil {
		return NewNone(), err
	}
	if err := exec.pace(); err != nil {
		return NewNone(), err
	}
	if err := exec.checkCancelled(); err != nil {
		return NewNone(), err
	}

	exec.effects++
	val, err := capabilities[call.Name].call(exec.ctx, exec.drone)
	if err != nil {
		return NewNone(), exec.newRuntimeError(DomainError, err.Error(), call.Pos(), err)
	}
	return val, nil
}

func (exec *Execution) pace() error {
	if exec.pacing <= 0 {
		return nil
	}
	timer := time.NewTimer(exec.pacing)
	defer timer.Stop()
	select {
	case <-exec.ctx.Done():
		return ErrCancelled
	case <-timer.C:
		return nil
	}
}

func (exec *Execution) callFunction(fn *Function, args []Value, pos Position) (Value, error) {
	if len(exec.callStack) >= exec.recursionCap {
		return NewNone(), exec.errorAt(pos, "maximum recursion depth exceeded (%d)", exec.recursionCap)
	}
	env := newEnv(exec.root)
	for i, name := range fn.Params {
		env.Define(name, args[i])
	}

	exec.callStack = append(exec.callStack, callFrame{Function: fn.Name, Pos: pos})
	defer func() {
		exec.callStack = exec.callStack[:len(exec.callStack)-1]
	}()

	val, returned, err := exec.evalOps(fn.Body, env)
	if err != nil {
		return NewNone(), err
	}
	if !returned {
		return NewNone(), nil
	}
	return val, nil
}
