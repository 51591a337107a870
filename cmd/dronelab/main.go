package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/mgomes/dronelab/dronescript"
	"github.com/mgomes/dronelab/farm"
	"github.com/mgomes/dronelab/internal/ctxlog"
	"github.com/mgomes/dronelab/lab"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := runCLI(ctx, os.Args)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCLI(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("dronelab", flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	logLevel := fs.String("log-level", "warn", "log level: debug, info, warn or error")
	logFormat := fs.String("log-format", "text", "log format: text or json")
	if len(args) < 1 {
		return usageError()
	}
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) == 0 {
		return usageError()
	}

	logger := newLogger(*logLevel, *logFormat, os.Stderr)
	slog.SetDefault(logger)
	ctx = ctxlog.WithLogger(ctx, logger)

	switch rest[0] {
	case "run":
		return runCommand(ctx, rest[1:])
	case "check":
		return checkCommand(rest[1:])
	case "fmt":
		return fmtCommand(rest[1:])
	case "levels":
		return levelsCommand(ctx, rest[1:])
	case "play":
		return playCommand(ctx, rest[1:])
	case "help", "-h", "--help":
		printUsage()
		return nil
	default:
		return usageError()
	}
}

func runCommand(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	var sel levelSelection
	sel.register(fs)
	speed := fs.Float64("speed", 1, "speed multiplier applied to -pacing")
	pacing := fs.Duration("pacing", 0, "delay before each drone action at speed 1")
	advise := fs.Bool("advise", false, "ask the tutoring endpoint from "+lab.EnvAdvisorURL+" when the run fails")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("dronelab run: script path required")
	}
	source, err := readScript(fs.Arg(0))
	if err != nil {
		return err
	}
	level, err := sel.resolve(ctx)
	if err != nil {
		return err
	}

	l, err := lab.New(lab.Config{
		Level:   level,
		Pacing:  *pacing,
		Speed:   *speed,
		Advisor: advisorFor(*advise, level),
		Logger:  ctxlog.FromContext(ctx),
	})
	if err != nil {
		return err
	}

	session, err := l.Run(ctx, source)
	if err != nil {
		printEntries(l.Log().Entries())
		return errors.New("compile failed")
	}
	outcome := session.Wait()
	printEntries(l.Log().Entries())

	switch {
	case outcome.Won():
		return nil
	case outcome.Result.State == dronescript.Cancelled:
		return errors.New("run cancelled")
	case outcome.Result.State == dronescript.Failed:
		return fmt.Errorf("run failed on line %d", outcome.Result.Line)
	default:
		return errors.New("mission failed")
	}
}

func checkCommand(args []string) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("dronelab check: script path required")
	}
	for _, path := range fs.Args() {
		source, err := readScript(path)
		if err != nil {
			return err
		}
		if _, err := dronescript.MustNewEngine(dronescript.Config{}).Compile(source); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		fmt.Printf("%s: ok\n", path)
	}
	return nil
}

func levelsCommand(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("levels", flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	if err := fs.Parse(args); err != nil {
		return err
	}

	var levels []*farm.Level
	var err error
	if fs.NArg() > 0 {
		levels, err = farm.Load(ctx, fs.Args()...)
	} else {
		levels, err = farm.Curriculum()
	}
	if err != nil {
		return err
	}
	for _, level := range levels {
		fmt.Printf("%s %s %s\n",
			headerStyle.Render(fmt.Sprintf("%2d", level.ID)),
			level.Name,
			mutedStyle.Render("("+level.Win.Describe()+")"))
	}
	return nil
}

func advisorFor(remote bool, level *farm.Level) lab.Advisor {
	hint := lab.HintAdvisor{Hint: level.Hint}
	if !remote {
		return hint
	}
	httpAdvisor, ok := lab.NewHTTPAdvisorFromEnv()
	if !ok {
		return hint
	}
	return lab.WithFallback(httpAdvisor, hint)
}

func readScript(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve script path: %w", err)
	}
	input, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Errorf("read script: %w", err)
	}
	return string(input), nil
}

// levelSelection is the -level / -level-file pair shared by run and play.
type levelSelection struct {
	id   int
	file string
}

func (s *levelSelection) register(fs *flag.FlagSet) {
	fs.IntVar(&s.id, "level", 1, "curriculum level to play")
	fs.StringVar(&s.file, "level-file", "", "load the level from an HCL file instead of the curriculum")
}

func (s *levelSelection) resolve(ctx context.Context) (*farm.Level, error) {
	if s.file == "" {
		return farm.CurriculumLevel(s.id)
	}
	levels, err := farm.Load(ctx, s.file)
	if err != nil {
		return nil, err
	}
	switch {
	case len(levels) == 0:
		return nil, fmt.Errorf("no levels found in %s", s.file)
	case len(levels) == 1:
		return levels[0], nil
	}
	for _, level := range levels {
		if level.ID == s.id {
			return level, nil
		}
	}
	return nil, fmt.Errorf("%s has no level with id %d", s.file, s.id)
}

func printEntries(entries []lab.Entry) {
	for _, entry := range entries {
		fmt.Println(renderEntry(entry))
	}
}

func usageError() error {
	printUsage()
	return errors.New("invalid command")
}

func printUsage() {
	prog := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr, "Usage: %s [-log-level level] [-log-format text|json] <command> [flags] [args]\n", prog)
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  run [-level N|-level-file f.hcl] [-speed x] [-pacing d] [-advise] <script>")
	fmt.Fprintln(os.Stderr, "    run a script against a level and print the session log")
	fmt.Fprintln(os.Stderr, "  check <script>...")
	fmt.Fprintln(os.Stderr, "    compile scripts without running them")
	fmt.Fprintln(os.Stderr, "  fmt [-w] [-check] <path>...")
	fmt.Fprintln(os.Stderr, "    print scripts in canonical form")
	fmt.Fprintln(os.Stderr, "  levels [file.hcl|dir]...")
	fmt.Fprintln(os.Stderr, "    list the curriculum or the levels in the given files")
	fmt.Fprintln(os.Stderr, "  play [-level N|-level-file f.hcl] [-speed x] [script]")
	fmt.Fprintln(os.Stderr, "    open the interactive player")
}

type flagErrorSink struct{}

func (flagErrorSink) Write(p []byte) (int, error) {
	return len(p), nil
}
