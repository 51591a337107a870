package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mgomes/dronelab/dronescript"
	"github.com/mgomes/dronelab/farm"
	"github.com/mgomes/dronelab/internal/ctxlog"
	"github.com/mgomes/dronelab/lab"
)

var (
	accentColor    = lipgloss.Color("#3B82F6")
	successColor   = lipgloss.Color("#10B981")
	errorColor     = lipgloss.Color("#EF4444")
	mutedColor     = lipgloss.Color("#6B7280")
	highlightColor = lipgloss.Color("#F59E0B")
	adviceColor    = lipgloss.Color("#A855F7")

	promptStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(successColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	adviceStyle = lipgloss.NewStyle().
			Foreground(adviceColor)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	headerStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true).
			Padding(0, 1)

	cancelledStyle = lipgloss.NewStyle().
			Foreground(highlightColor)

	droneStyle = lipgloss.NewStyle().
			Foreground(highlightColor).
			Bold(true)

	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accentColor).
			Padding(0, 1)
)

const (
	playTick      = 100 * time.Millisecond
	logViewHeight = 12
	speedStep     = 0.5
)

var entityGlyphs = map[farm.EntityKind]string{
	farm.Empty:     "·",
	farm.Wheat:     "w",
	farm.Sunflower: "f",
	farm.Rock:      "#",
	farm.Charging:  "+",
	farm.Water:     "~",
	farm.Goal:      "G",
}

type keyMap struct {
	Run    key.Binding
	Stop   key.Binding
	Next   key.Binding
	Prev   key.Binding
	Faster key.Binding
	Slower key.Binding
	Ask    key.Binding
	Enter  key.Binding
	Escape key.Binding
	Help   key.Binding
	Quit   key.Binding
}

var keys = keyMap{
	Run: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "run"),
	),
	Stop: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "emergency stop"),
	),
	Next: key.NewBinding(
		key.WithKeys("n"),
		key.WithHelp("n", "next level"),
	),
	Prev: key.NewBinding(
		key.WithKeys("p"),
		key.WithHelp("p", "previous level"),
	),
	Faster: key.NewBinding(
		key.WithKeys("+", "="),
		key.WithHelp("+", "faster"),
	),
	Slower: key.NewBinding(
		key.WithKeys("-"),
		key.WithHelp("-", "slower"),
	),
	Ask: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "ask for help"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "send"),
	),
	Escape: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "cancel"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "toggle help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Run, k.Stop, k.Next, k.Ask, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Run, k.Stop},
		{k.Next, k.Prev},
		{k.Faster, k.Slower},
		{k.Ask, k.Help, k.Quit},
	}
}

type (
	tickMsg        time.Time
	sessionDoneMsg struct{ id int }
	adviceMsg      struct{ err error }
)

type playModel struct {
	ctx        context.Context
	lab        *lab.Lab
	levels     []*farm.Level
	levelIdx   int
	scriptPath string
	advisor    func(*farm.Level) lab.Advisor
	input      textinput.Model
	logView    viewport.Model
	help       help.Model
	asking     bool
	width      int
	height     int
	quitting   bool
	status     string
}

// newPlayModel builds a player over levels, starting at levelIdx. Programs
// are read from scriptPath on every run so edits made in another editor are
// picked up; with no path the level's starter code is used.
func newPlayModel(ctx context.Context, levels []*farm.Level, levelIdx int, scriptPath string, speed float64, pacing time.Duration, advisor func(*farm.Level) lab.Advisor) (playModel, error) {
	if len(levels) == 0 {
		return playModel{}, errors.New("no levels to play")
	}
	if levelIdx < 0 || levelIdx >= len(levels) {
		return playModel{}, fmt.Errorf("level index %d out of range", levelIdx)
	}
	if advisor == nil {
		advisor = func(level *farm.Level) lab.Advisor { return lab.HintAdvisor{Hint: level.Hint} }
	}
	l, err := lab.New(lab.Config{
		Level:   levels[levelIdx],
		Pacing:  pacing,
		Speed:   speed,
		Advisor: advisor(levels[levelIdx]),
		Logger:  ctxlog.FromContext(ctx),
	})
	if err != nil {
		return playModel{}, err
	}

	ti := textinput.New()
	ti.Placeholder = "ask the drone tutor..."
	ti.CharLimit = 300
	ti.Width = 60
	ti.PromptStyle = promptStyle
	ti.Prompt = "? "

	return playModel{
		ctx:        ctx,
		lab:        l,
		levels:     levels,
		levelIdx:   levelIdx,
		scriptPath: scriptPath,
		advisor:    advisor,
		input:      ti,
		logView:    viewport.New(80, logViewHeight),
		help:       help.New(),
	}, nil
}

func tick() tea.Cmd {
	return tea.Tick(playTick, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func waitSession(s *lab.Session) tea.Cmd {
	return func() tea.Msg {
		<-s.Done()
		return sessionDoneMsg{id: s.ID}
	}
}

func (m playModel) Init() tea.Cmd {
	return tea.Batch(tick(), tea.EnterAltScreen)
}

func (m playModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	m, cmd := m.update(msg)
	return m.syncLog(), cmd
}

// syncLog copies the session log into the viewport, following new entries
// unless the user has scrolled up.
func (m playModel) syncLog() playModel {
	follow := m.logView.AtBottom()
	entries := m.lab.Log().Entries()
	lines := make([]string, len(entries))
	for i, entry := range entries {
		lines[i] = renderEntry(entry)
	}
	m.logView.SetContent(strings.Join(lines, "\n"))
	if follow {
		m.logView.GotoBottom()
	}
	return m
}

func (m playModel) update(msg tea.Msg) (playModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(msg.Width-10, 20)
		m.logView.Width = max(msg.Width-4, 20)
		m.help.Width = msg.Width
		return m, nil

	case tickMsg:
		if m.quitting {
			return m, nil
		}
		return m, tick()

	case sessionDoneMsg:
		if s := m.lab.Current(); s != nil && s.ID == msg.id {
			m.status = s.State().String()
		}
		return m, nil

	case adviceMsg:
		if msg.err != nil {
			m.status = "tutor unavailable"
		}
		return m, nil

	case tea.KeyMsg:
		if m.asking {
			return m.updateAsking(msg)
		}
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			m.lab.Stop()
			return m, tea.Quit

		case key.Matches(msg, keys.Run):
			return m.run()

		case key.Matches(msg, keys.Stop):
			if s := m.lab.Current(); s != nil {
				s.Stop()
			}
			return m, nil

		case key.Matches(msg, keys.Next):
			return m.switchLevel(m.levelIdx + 1), nil

		case key.Matches(msg, keys.Prev):
			return m.switchLevel(m.levelIdx - 1), nil

		case key.Matches(msg, keys.Faster):
			return m.adjustSpeed(speedStep), nil

		case key.Matches(msg, keys.Slower):
			return m.adjustSpeed(-speedStep), nil

		case key.Matches(msg, keys.Ask):
			m.asking = true
			m.input.SetValue("")
			cmd := m.input.Focus()
			return m, cmd

		case key.Matches(msg, keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		}
		var cmd tea.Cmd
		m.logView, cmd = m.logView.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m playModel) updateAsking(msg tea.KeyMsg) (playModel, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyCtrlC:
		m.quitting = true
		m.lab.Stop()
		return m, tea.Quit

	case key.Matches(msg, keys.Escape):
		m.asking = false
		m.input.Blur()
		return m, nil

	case key.Matches(msg, keys.Enter):
		question := strings.TrimSpace(m.input.Value())
		m.asking = false
		m.input.Blur()
		m.input.SetValue("")
		if question == "" {
			return m, nil
		}
		l, ctx := m.lab, m.ctx
		return m, func() tea.Msg {
			_, err := l.Ask(ctx, question)
			return adviceMsg{err: err}
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m playModel) run() (playModel, tea.Cmd) {
	source, err := m.source()
	if err != nil {
		m.status = err.Error()
		return m, nil
	}
	session, err := m.lab.Run(m.ctx, source)
	if err != nil {
		m.status = "compile error"
		return m, nil
	}
	m.status = dronescript.Running.String()
	return m, waitSession(session)
}

func (m playModel) source() (string, error) {
	if m.scriptPath == "" {
		return m.levels[m.levelIdx].DefaultCode, nil
	}
	return readScript(m.scriptPath)
}

func (m playModel) switchLevel(idx int) playModel {
	if idx < 0 || idx >= len(m.levels) || idx == m.levelIdx {
		return m
	}
	level := m.levels[idx]
	if err := m.lab.SetLevel(level); err != nil {
		m.status = err.Error()
		return m
	}
	m.lab.SetAdvisor(m.advisor(level))
	m.levelIdx = idx
	m.status = ""
	return m
}

func (m playModel) adjustSpeed(delta float64) playModel {
	speed := min(max(m.lab.Speed()+delta, lab.MinSpeed), lab.MaxSpeed)
	if err := m.lab.SetSpeed(speed); err != nil {
		m.status = err.Error()
	}
	return m
}

func (m playModel) View() string {
	if m.quitting {
		return mutedStyle.Render("Drone grounded. Goodbye!\n")
	}

	level := m.levels[m.levelIdx]
	var b strings.Builder

	header := headerStyle.Render(fmt.Sprintf("Level %d: %s", level.ID, level.Name))
	speed := mutedStyle.Render(fmt.Sprintf("speed %.2gx", m.lab.Speed()))
	b.WriteString(header + " " + speed + "\n")
	if level.Description != "" {
		b.WriteString(mutedStyle.Render("  "+level.Description) + "\n")
	}
	b.WriteString(mutedStyle.Render("  Goal: "+level.Win.Describe()) + "\n\n")

	snap, state := m.snapshot()
	b.WriteString(borderStyle.Render(renderGrid(snap)) + "\n")
	b.WriteString(fmt.Sprintf("  energy %d  harvested %d  %s\n\n",
		snap.Drone.Energy, snap.Harvested, mutedStyle.Render(state)))

	b.WriteString(m.logView.View() + "\n\n")

	if m.asking {
		b.WriteString(m.input.View() + "\n\n")
	}
	b.WriteString(m.help.View(keys))
	return b.String()
}

// snapshot shows the current session's world, or the level's starting
// field when nothing has run on this level yet.
func (m playModel) snapshot() (farm.Snapshot, string) {
	if s := m.lab.Current(); s != nil && s.Level == m.levels[m.levelIdx] {
		status := s.State().String()
		if m.status != "" && m.status != status {
			status = m.status
		}
		return s.World().Snapshot(), status
	}
	world, err := m.levels[m.levelIdx].NewWorld()
	if err != nil {
		return farm.Snapshot{}, err.Error()
	}
	status := dronescript.Idle.String()
	if m.status != "" {
		status = m.status
	}
	return world.Snapshot(), status
}

func renderGrid(snap farm.Snapshot) string {
	rows := make([]string, 0, len(snap.Cells))
	for y, row := range snap.Cells {
		cells := make([]string, 0, len(row))
		for x, cell := range row {
			cells = append(cells, renderCell(cell, x == snap.Drone.X && y == snap.Drone.Y))
		}
		rows = append(rows, strings.Join(cells, " "))
	}
	return strings.Join(rows, "\n")
}

func renderCell(cell farm.Cell, drone bool) string {
	if drone {
		return droneStyle.Render("D")
	}
	glyph, ok := entityGlyphs[cell.Kind]
	if !ok {
		glyph = "?"
	}
	switch {
	case cell.Harvested:
		return mutedStyle.Render("_")
	case cell.Kind.Harvestable():
		return successStyle.Render(glyph)
	case cell.Kind == farm.Rock:
		return mutedStyle.Render(glyph)
	default:
		return glyph
	}
}

func renderEntry(entry lab.Entry) string {
	tag := fmt.Sprintf("[%s]", entry.Kind)
	switch entry.Kind {
	case lab.EntryError:
		return errorStyle.Render(tag + " " + entry.Message)
	case lab.EntrySuccess:
		return successStyle.Render(tag + " " + entry.Message)
	case lab.EntryAdvice:
		return adviceStyle.Render(tag + " " + entry.Message)
	case lab.EntryUser:
		return promptStyle.Render(tag) + " " + entry.Message
	case lab.EntryCancelled:
		return cancelledStyle.Render(tag + " " + entry.Message)
	default:
		return mutedStyle.Render(tag) + " " + entry.Message
	}
}

func playCommand(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("play", flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	var sel levelSelection
	sel.register(fs)
	speed := fs.Float64("speed", 1, "initial speed multiplier")
	pacing := fs.Duration("pacing", lab.DefaultPacing, "delay before each drone action at speed 1")
	advise := fs.Bool("advise", false, "use the tutoring endpoint from "+lab.EnvAdvisorURL)
	if err := fs.Parse(args); err != nil {
		return err
	}

	var levels []*farm.Level
	var err error
	if sel.file != "" {
		levels, err = farm.Load(ctx, sel.file)
	} else {
		levels, err = farm.Curriculum()
	}
	if err != nil {
		return err
	}
	idx := 0
	for i, level := range levels {
		if level.ID == sel.id {
			idx = i
		}
	}

	m, err := newPlayModel(ctx, levels, idx, fs.Arg(0), *speed, *pacing, func(level *farm.Level) lab.Advisor {
		return advisorFor(*advise, level)
	})
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(m, tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
