package lab

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mgomes/dronelab/dronescript"
	"github.com/mgomes/dronelab/farm"
	"github.com/mgomes/dronelab/internal/ctxlog"
)

const (
	// DefaultPacing is the delay before each drone action at speed 1.
	DefaultPacing = time.Second
	MinSpeed      = 0.25
	MaxSpeed      = 10
)

// Config configures a Lab.
type Config struct {
	Level *farm.Level
	// Engine compiles programs. Defaults to an engine with default limits.
	Engine *dronescript.Engine
	// Pacing is the delay before each drone action at speed 1. Zero runs
	// actions back to back.
	Pacing time.Duration
	// Speed divides Pacing. Defaults to 1.
	Speed float64
	// Advisor is consulted once per failed run and for questions. Defaults
	// to a HintAdvisor built from the level's hint.
	Advisor Advisor
	// Observer, when set, sees every world event after it has been logged.
	Observer farm.Observer
	Logger   *slog.Logger
}

// Lab runs programs against one level, one session at a time.
type Lab struct {
	engine   *dronescript.Engine
	observer farm.Observer
	logger   *slog.Logger
	log      *Log

	// advisorMu is separate from mu: sessions consult the advisor while Run
	// holds mu waiting for them to finish.
	advisorMu sync.RWMutex
	advisor   Advisor

	mu      sync.Mutex
	level   *farm.Level
	pacing  time.Duration
	speed   float64
	current *Session
	source  string
	nextID  int
}

// New validates cfg and returns a Lab.
func New(cfg Config) (*Lab, error) {
	if cfg.Level == nil {
		return nil, errors.New("lab: level is required")
	}
	if err := cfg.Level.Validate(); err != nil {
		return nil, fmt.Errorf("lab: %w", err)
	}
	if cfg.Pacing < 0 {
		return nil, fmt.Errorf("lab: pacing must not be negative, got %s", cfg.Pacing)
	}
	if cfg.Speed == 0 {
		cfg.Speed = 1
	}
	if err := checkSpeed(cfg.Speed); err != nil {
		return nil, err
	}
	if cfg.Engine == nil {
		engine, err := dronescript.NewEngine(dronescript.Config{})
		if err != nil {
			return nil, fmt.Errorf("lab: %w", err)
		}
		cfg.Engine = engine
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Lab{
		engine:   cfg.Engine,
		advisor:  cfg.Advisor,
		observer: cfg.Observer,
		logger:   cfg.Logger,
		log:      NewLog(),
		level:    cfg.Level,
		pacing:   cfg.Pacing,
		speed:    cfg.Speed,
	}, nil
}

func checkSpeed(speed float64) error {
	if speed < MinSpeed || speed > MaxSpeed {
		return fmt.Errorf("lab: speed must be between %g and %g, got %g", float64(MinSpeed), float64(MaxSpeed), speed)
	}
	return nil
}

// Log returns the lab's session log.
func (l *Lab) Log() *Log { return l.log }

// Level returns the current level.
func (l *Lab) Level() *farm.Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// Current returns the most recent session, or nil before the first run.
func (l *Lab) Current() *Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

// Speed returns the current speed multiplier.
func (l *Lab) Speed() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.speed
}

// SetSpeed changes the speed used by the next run.
func (l *Lab) SetSpeed(speed float64) error {
	if err := checkSpeed(speed); err != nil {
		return err
	}
	l.mu.Lock()
	l.speed = speed
	l.mu.Unlock()
	return nil
}

// SetLevel stops any active session and switches to level.
func (l *Lab) SetLevel(level *farm.Level) error {
	if level == nil {
		return errors.New("lab: level is required")
	}
	if err := level.Validate(); err != nil {
		return fmt.Errorf("lab: %w", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopLocked()
	l.level = level
	l.logger.Info("Level selected.", "level", level.ID, "slug", level.Slug)
	return nil
}

func (l *Lab) pacingLocked() time.Duration {
	if l.pacing == 0 {
		return 0
	}
	return time.Duration(float64(l.pacing) / l.speed)
}

// Run compiles source and starts a session on a fresh copy of the level.
// Any session still running is cancelled and awaited first. A compile error
// is logged along with one piece of advice and returned without touching the
// previous session.
func (l *Lab) Run(ctx context.Context, source string) (*Session, error) {
	program, err := l.engine.Compile(source)
	if err != nil {
		l.log.Append(EntryError, 0, err.Error())
		l.logger.Info("Program rejected.", "error", err)
		l.mu.Lock()
		level := l.level
		l.mu.Unlock()
		l.adviseRejected(ctx, level, source, err)
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.current != nil && !l.current.State().Terminal() {
		l.logger.Info("Superseding running session.", "session", l.current.ID)
	}
	l.stopLocked()

	world, err := l.level.NewWorld()
	if err != nil {
		return nil, fmt.Errorf("lab: %w", err)
	}

	l.nextID++
	logger := l.logger.With("session", l.nextID, "level", l.level.ID)
	sctx, cancel := context.WithCancel(ctxlog.WithLogger(ctx, logger))
	s := &Session{
		ID:      l.nextID,
		Level:   l.level,
		world:   world,
		program: program,
		pacing:  l.pacingLocked(),
		cancel:  cancel,
		done:    make(chan struct{}),
		state:   dronescript.Running,
		lab:     l,
		logger:  logger,
	}
	world.SetObserver(s.observe)
	l.current = s
	l.source = source

	l.log.Append(EntryInfo, s.ID, fmt.Sprintf("Run started on level %d: %s.", l.level.ID, l.level.Name))
	logger.Info("Session started.", "pacing", s.pacing)
	go s.run(sctx)
	return s, nil
}

// adviseRejected asks the advisor once about a program that did not compile.
func (l *Lab) adviseRejected(ctx context.Context, level *farm.Level, source string, cause error) {
	advice, err := l.advise(ctx, level, AdviceRequest{Source: source, Failure: cause.Error(), Goal: goalOf(level)})
	if err != nil {
		l.logger.Debug("No advice for rejected program.", "error", err)
		return
	}
	l.log.Append(EntryAdvice, 0, advice)
}

// Stop cancels the active session, if any, and waits for it to finish.
func (l *Lab) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopLocked()
}

func (l *Lab) stopLocked() {
	if l.current == nil {
		return
	}
	l.current.cancel()
	<-l.current.done
}

// Ask logs a learner's question and the advisor's answer.
func (l *Lab) Ask(ctx context.Context, question string) (string, error) {
	l.mu.Lock()
	source, level := l.source, l.level
	l.mu.Unlock()

	l.log.Append(EntryUser, 0, question)
	advice, err := l.advise(ctx, level, AdviceRequest{Source: source, Question: question, Goal: goalOf(level)})
	if err != nil {
		l.log.Append(EntryError, 0, "The assistant is unavailable right now.")
		return "", err
	}
	l.log.Append(EntryAdvice, 0, advice)
	return advice, nil
}

// SetAdvisor replaces the advisor used for later failures and questions.
// A nil advisor falls back to the level hint.
func (l *Lab) SetAdvisor(advisor Advisor) {
	l.advisorMu.Lock()
	l.advisor = advisor
	l.advisorMu.Unlock()
}

func (l *Lab) advise(ctx context.Context, level *farm.Level, req AdviceRequest) (string, error) {
	l.advisorMu.RLock()
	advisor := l.advisor
	l.advisorMu.RUnlock()
	if advisor == nil {
		advisor = HintAdvisor{Hint: level.Hint}
	}
	return advisor.Advise(ctx, req)
}

func goalOf(level *farm.Level) string {
	if level.Description != "" {
		return level.Description
	}
	return level.Win.Describe()
}

// Outcome is the final report of a session.
type Outcome struct {
	Result dronescript.Result
	// Win is set only for Completed runs.
	Win *farm.WinReport
	// Advice is the advisor's answer for Failed runs, if any.
	Advice string
}

// Won reports whether the run completed and met the win condition.
func (o Outcome) Won() bool {
	return o.Result.State == dronescript.Completed && o.Win != nil && o.Win.Won
}

// Session is one run of a program against a fresh world.
type Session struct {
	ID    int
	Level *farm.Level

	world   *farm.World
	program *dronescript.Program
	pacing  time.Duration
	cancel  context.CancelFunc
	done    chan struct{}
	lab     *Lab
	logger  *slog.Logger

	mu      sync.Mutex
	state   dronescript.State
	outcome Outcome
}

// World returns the session's world. Snapshots are safe while running.
func (s *Session) World() *farm.World { return s.world }

// State returns the session state.
func (s *Session) State() dronescript.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Done is closed when the session has finished, including its advice
// lookup.
func (s *Session) Done() <-chan struct{} { return s.done }

// Stop requests cancellation without waiting.
func (s *Session) Stop() { s.cancel() }

// Wait blocks until the session finishes and returns its outcome.
func (s *Session) Wait() Outcome {
	<-s.done
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)
	defer s.cancel()

	result := s.program.Run(ctx, dronescript.RunOptions{Drone: s.world, Pacing: s.pacing})
	outcome := Outcome{Result: result}
	log := s.lab.log

	switch result.State {
	case dronescript.Completed:
		report := s.Level.Win.Evaluate(s.world)
		outcome.Win = &report
		if report.Won {
			log.Append(EntrySuccess, s.ID, "Mission complete!")
		} else {
			log.Append(EntryError, s.ID, "Mission failed: "+report.String()+".")
		}
	case dronescript.Cancelled:
		log.Append(EntryCancelled, s.ID, "Emergency stop.")
	default:
		message := "Runtime error"
		if result.Err != nil {
			message += ": " + result.Err.Error()
		}
		log.Append(EntryError, s.ID, message)
		outcome.Advice = s.lookupAdvice(ctx, result)
	}

	s.mu.Lock()
	s.state = result.State
	s.outcome = outcome
	s.mu.Unlock()

	s.logger.Info("Session finished.", "state", result.State.String(), "line", result.Line, "steps", result.Steps, "effects", result.Effects, "won", outcome.Won())
}

// lookupAdvice asks the advisor exactly once about a failure.
func (s *Session) lookupAdvice(ctx context.Context, result dronescript.Result) string {
	failure := ""
	if result.Err != nil {
		failure = result.Err.Error()
	}
	advice, err := s.lab.advise(ctx, s.Level, AdviceRequest{
		Source:  s.program.Source(),
		Failure: failure,
		Goal:    goalOf(s.Level),
	})
	if err != nil {
		s.logger.Debug("No advice for failed run.", "error", err)
		return ""
	}
	s.lab.log.Append(EntryAdvice, s.ID, advice)
	return advice
}

// observe turns world events into log entries.
func (s *Session) observe(ev farm.Event) {
	switch ev.Kind {
	case farm.EventHarvested:
		s.lab.log.Append(EntrySuccess, s.ID, ev.Message)
	case farm.EventNothingToHarvest, farm.EventWatered, farm.EventLog:
		s.lab.log.Append(EntryInfo, s.ID, ev.Message)
	}
	if s.lab.observer != nil {
		s.lab.observer(ev)
	}
}
