package dronescript

import (
	"fmt"
	"time"
)

// Config bounds program execution.
type Config struct {
	// StepQuota caps the number of statements and loop iterations a run
	// may execute.
	StepQuota int
	// RecursionLimit caps the depth of user function calls.
	RecursionLimit int
	// MaxRangeLength caps the length of lists built by range() and by list
	// repetition. for-range loops are not affected.
	MaxRangeLength int
	// Pacing is the delay before every drone action when RunOptions does
	// not set one. Zero runs actions back to back.
	Pacing time.Duration
}

// Engine compiles programs. It is safe for concurrent use.
type Engine struct {
	config   Config
	builtins map[string]builtinFunc
}

// NewEngine constructs an Engine with defaults filled in.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.StepQuota <= 0 {
		cfg.StepQuota = 100000
	}
	if cfg.RecursionLimit <= 0 {
		cfg.RecursionLimit = 64
	}
	if cfg.MaxRangeLength <= 0 {
		cfg.MaxRangeLength = 10000
	}
	if cfg.Pacing < 0 {
		return nil, fmt.Errorf("dronescript: pacing must not be negative, got %s", cfg.Pacing)
	}

	engine := &Engine{config: cfg, builtins: make(map[string]builtinFunc)}
	engine.registerBuiltin("print", builtinPrint)
	engine.registerBuiltin("range", builtinRange)
	engine.registerBuiltin("len", builtinLen)
	engine.registerBuiltin("str", builtinStr)
	engine.registerBuiltin("int", builtinInt)
	engine.registerBuiltin("abs", builtinAbs)
	engine.registerBuiltin("min", builtinMin)
	engine.registerBuiltin("max", builtinMax)
	return engine, nil
}

// MustNewEngine is NewEngine for configurations known to be valid.
func MustNewEngine(cfg Config) *Engine {
	engine, err := NewEngine(cfg)
	if err != nil {
		panic(err)
	}
	return engine
}

// Config returns the engine's effective configuration.
func (e *Engine) Config() Config { return e.config }

func (e *Engine) registerBuiltin(name string, fn builtinFunc) {
	e.builtins[name] = fn
}

// Compile turns source text into a Program. It has no side effects; any
// error is a *SyntaxError.
func (e *Engine) Compile(source string) (*Program, error) {
	lines, err := Scan(source)
	if err != nil {
		return nil, err
	}
	stmts, err := structure(lines, source)
	if err != nil {
		return nil, err
	}
	ops, functions, err := buildPlan(stmts, source, e.builtins)
	if err != nil {
		return nil, err
	}
	return &Program{engine: e, source: source, statements: stmts, ops: ops, functions: functions}, nil
}

// Program is a compiled, runnable plan. A Program holds no run state and
// can be run any number of times, including concurrently against
// different drones.
type Program struct {
	engine     *Engine
	source     string
	statements []*Statement
	ops        []Op
	functions  map[string]*Function
}

// Source returns the text the program was compiled from.
func (p *Program) Source() string { return p.source }

// Statements returns the structured statement tree.
func (p *Program) Statements() []*Statement { return p.statements }

// Ops returns the top-level plan.
func (p *Program) Ops() []Op { return p.ops }

// Function returns a hoisted function by name.
func (p *Program) Function(name string) (*Function, bool) {
	fn, ok := p.functions[name]
	return fn, ok
}
