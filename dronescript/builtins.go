package dronescript

import (
	"math"
	"strconv"
	"strings"
)

// builtinFunc is a pure function callable from scripts. print is the only
// builtin that reaches the drone, and only through its unpaced Log.
type builtinFunc func(exec *Execution, args []Value, pos Position) (Value, error)

func builtinPrint(exec *Execution, args []Value, pos Position) (Value, error) {
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = arg.String()
	}
	exec.drone.Log(strings.Join(parts, " "))
	return NewNone(), nil
}

func builtinRange(exec *Execution, args []Value, pos Position) (Value, error) {
	start, stop, step, err := exec.rangeArgs(args, pos)
	if err != nil {
		return NewNone(), err
	}
	var items []Value
	for i, ok := start, inRange(start, stop, step); ok; i, ok = nextInRange(i, stop, step) {
		if len(items) >= exec.maxRange {
			return NewNone(), exec.errorAt(pos, "range() longer than %d items; loop over it with for instead", exec.maxRange)
		}
		items = append(items, NewInt(i))
	}
	return NewList(items), nil
}

// rangeArgs interprets range(stop), range(start, stop) and
// range(start, stop, step).
func (exec *Execution) rangeArgs(args []Value, pos Position) (start, stop, step int64, err error) {
	if len(args) < 1 || len(args) > 3 {
		return 0, 0, 0, exec.typeError(pos, "range expected 1 to 3 arguments, got %d", len(args))
	}
	ints := make([]int64, len(args))
	for i, arg := range args {
		if arg.Kind() != KindInt {
			return 0, 0, 0, exec.typeError(pos, "range() arguments must be integers, got '%s'", arg.Kind())
		}
		ints[i] = arg.Int()
	}
	step = 1
	switch len(ints) {
	case 1:
		stop = ints[0]
	case 2:
		start, stop = ints[0], ints[1]
	case 3:
		start, stop, step = ints[0], ints[1], ints[2]
	}
	if step == 0 {
		return 0, 0, 0, exec.errorAt(pos, "range() step must not be zero")
	}
	return start, stop, step, nil
}

func inRange(i, stop, step int64) bool {
	return (step > 0 && i < stop) || (step < 0 && i > stop)
}

// nextInRange advances i, which must be in range, by step. Distances are
// compared as unsigned so a step past the int64 bounds ends the range
// instead of wrapping.
func nextInRange(i, stop, step int64) (int64, bool) {
	if step > 0 {
		if uint64(stop)-uint64(i) <= uint64(step) {
			return i, false
		}
		return i + step, true
	}
	if uint64(i)-uint64(stop) <= uint64(0)-uint64(step) {
		return i, false
	}
	return i + step, true
}

func builtinLen(exec *Execution, args []Value, pos Position) (Value, error) {
	if len(args) != 1 {
		return NewNone(), exec.typeError(pos, "len() takes exactly one argument (%d given)", len(args))
	}
	switch args[0].Kind() {
	case KindList:
		return NewInt(int64(len(args[0].List()))), nil
	case KindString:
		return NewInt(int64(len([]rune(args[0].Str())))), nil
	}
	return NewNone(), exec.typeError(pos, "object of type '%s' has no len()", args[0].Kind())
}

func builtinStr(exec *Execution, args []Value, pos Position) (Value, error) {
	switch len(args) {
	case 0:
		return NewString(""), nil
	case 1:
		return NewString(args[0].String()), nil
	}
	return NewNone(), exec.typeError(pos, "str() takes at most one argument (%d given)", len(args))
}

func builtinInt(exec *Execution, args []Value, pos Position) (Value, error) {
	if len(args) != 1 {
		return NewNone(), exec.typeError(pos, "int() takes exactly one argument (%d given)", len(args))
	}
	arg := args[0]
	switch arg.Kind() {
	case KindInt:
		return arg, nil
	case KindFloat:
		f := arg.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return NewNone(), exec.errorAt(pos, "cannot convert %v to int", f)
		}
		if f >= math.MaxInt64 || f < math.MinInt64 {
			return NewNone(), exec.overflowError(pos)
		}
		return NewInt(int64(f)), nil
	case KindBool:
		if arg.Bool() {
			return NewInt(1), nil
		}
		return NewInt(0), nil
	case KindString:
		n, err := strconv.ParseInt(strings.TrimSpace(arg.Str()), 10, 64)
		if err != nil {
			return NewNone(), exec.errorAt(pos, "invalid literal for int(): %s", arg.Repr())
		}
		return NewInt(n), nil
	}
	return NewNone(), exec.typeError(pos, "int() argument must be a number or string, not '%s'", arg.Kind())
}

func builtinAbs(exec *Execution, args []Value, pos Position) (Value, error) {
	if len(args) != 1 {
		return NewNone(), exec.typeError(pos, "abs() takes exactly one argument (%d given)", len(args))
	}
	switch args[0].Kind() {
	case KindInt:
		n := args[0].Int()
		if n == math.MinInt64 {
			return NewNone(), exec.overflowError(pos)
		}
		if n < 0 {
			n = -n
		}
		return NewInt(n), nil
	case KindFloat:
		return NewFloat(math.Abs(args[0].Float())), nil
	}
	return NewNone(), exec.typeError(pos, "bad operand type for abs(): '%s'", args[0].Kind())
}

func builtinMin(exec *Execution, args []Value, pos Position) (Value, error) {
	return exec.extreme("min", tokenLT, args, pos)
}

func builtinMax(exec *Execution, args []Value, pos Position) (Value, error) {
	return exec.extreme("max", tokenGT, args, pos)
}

// extreme implements min and max over either one list or several values.
func (exec *Execution) extreme(name string, better TokenType, args []Value, pos Position) (Value, error) {
	items := args
	if len(args) == 1 {
		if args[0].Kind() != KindList {
			return NewNone(), exec.typeError(pos, "'%s' object is not iterable", args[0].Kind())
		}
		items = args[0].List()
	}
	if len(items) == 0 {
		return NewNone(), exec.errorAt(pos, "%s() arg is an empty sequence", name)
	}
	best := items[0]
	for _, item := range items[1:] {
		wins, err := exec.compareOrdered(better, item, best, pos)
		if err != nil {
			return NewNone(), err
		}
		if wins.Bool() {
			best = item
		}
	}
	return best, nil
}
