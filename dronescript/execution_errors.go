package dronescript

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCancelled is reported when a run stops because its context was
// cancelled. It is not a failure.
var ErrCancelled = errors.New("run cancelled")

var (
	errLoopBreak         = errors.New("loop break")
	errLoopContinue      = errors.New("loop continue")
	errStepQuotaExceeded = errors.New("step quota exceeded")
)

// RuntimeErrorType classifies a RuntimeError.
type RuntimeErrorType string

const (
	// RuntimeTypeError is an operator or builtin applied to values of the
	// wrong kind.
	RuntimeTypeError RuntimeErrorType = "RuntimeTypeError"
	// DomainError is a drone action the world refused, such as a move off
	// the field.
	DomainError RuntimeErrorType = "DomainError"
	// NameError is a read of a name that was never assigned.
	NameError RuntimeErrorType = "NameError"
	// GeneralError covers everything else: division by zero, index out of
	// range, step quota and recursion limits.
	GeneralError RuntimeErrorType = "RuntimeError"
)

const (
	runtimeErrorFrameHead = 8
	runtimeErrorFrameTail = 8
)

type StackFrame struct {
	Function string
	Pos      Position
}

type callFrame struct {
	Function string
	Pos      Position
}

// RuntimeError stops a run in the Failed state.
type RuntimeError struct {
	Type      RuntimeErrorType
	Message   string
	Line      int
	CodeFrame string
	Frames    []StackFrame
	cause     error
}

func (re *RuntimeError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", re.Type, re.Message)
	if re.CodeFrame != "" {
		b.WriteString("\n")
		b.WriteString(re.CodeFrame)
	}
	renderFrame := func(frame StackFrame) {
		if frame.Pos.Line > 0 {
			fmt.Fprintf(&b, "\n  at %s (line %d)", frame.Function, frame.Pos.Line)
		} else {
			fmt.Fprintf(&b, "\n  at %s", frame.Function)
		}
	}

	if len(re.Frames) <= runtimeErrorFrameHead+runtimeErrorFrameTail {
		for _, frame := range re.Frames {
			renderFrame(frame)
		}
		return b.String()
	}

	for _, frame := range re.Frames[:runtimeErrorFrameHead] {
		renderFrame(frame)
	}
	omitted := len(re.Frames) - (runtimeErrorFrameHead + runtimeErrorFrameTail)
	fmt.Fprintf(&b, "\n  ... %d frames omitted ...", omitted)
	for _, frame := range re.Frames[len(re.Frames)-runtimeErrorFrameTail:] {
		renderFrame(frame)
	}
	return b.String()
}

// Unwrap exposes the world's error for DomainErrors, so callers can use
// errors.As to reach a *farm.BoundsError.
func (re *RuntimeError) Unwrap() error {
	return re.cause
}

func (exec *Execution) step() error {
	exec.steps++
	if exec.quota > 0 && exec.steps > exec.quota {
		return fmt.Errorf("%w (%d)", errStepQuotaExceeded, exec.quota)
	}
	return exec.checkCancelled()
}

func (exec *Execution) checkCancelled() error {
	select {
	case <-exec.ctx.Done():
		return ErrCancelled
	default:
		return nil
	}
}

func (exec *Execution) typeError(pos Position, format string, args ...any) error {
	return exec.newRuntimeError(RuntimeTypeError, fmt.Sprintf(format, args...), pos, nil)
}

func (exec *Execution) errorAt(pos Position, format string, args ...any) error {
	return exec.newRuntimeError(GeneralError, fmt.Sprintf(format, args...), pos, nil)
}

func (exec *Execution) newRuntimeError(kind RuntimeErrorType, message string, pos Position, cause error) error {
	frames := make([]StackFrame, 0, len(exec.callStack)+1)
	if len(exec.callStack) > 0 {
		current := exec.callStack[len(exec.callStack)-1]
		frames = append(frames, StackFrame{Function: current.Function, Pos: pos})
		for i := len(exec.callStack) - 1; i >= 0; i-- {
			frames = append(frames, StackFrame(exec.callStack[i]))
		}
	} else {
		frames = append(frames, StackFrame{Function: "<script>", Pos: pos})
	}
	return &RuntimeError{
		Type:      kind,
		Message:   message,
		Line:      pos.Line,
		CodeFrame: formatCodeFrame(exec.program.source, pos),
		Frames:    frames,
		cause:     cause,
	}
}

// wrapError turns a plain error into a RuntimeError at pos. Control
// signals and cancellation pass through untouched.
func (exec *Execution) wrapError(err error, pos Position) error {
	if err == nil || isControlSignal(err) {
		return err
	}
	var re *RuntimeError
	if errors.As(err, &re) {
		return err
	}
	return exec.newRuntimeError(GeneralError, err.Error(), pos, err)
}

func isControlSignal(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, errLoopBreak) || errors.Is(err, errLoopContinue)
}
