package main

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mgomes/dronelab/dronescript"
	"github.com/mgomes/dronelab/farm"
	"github.com/mgomes/dronelab/lab"
)

func newTestPlayModel(t *testing.T, scriptPath string) playModel {
	t.Helper()
	levels, err := farm.Curriculum()
	if err != nil {
		t.Fatalf("load curriculum: %v", err)
	}
	m, err := newPlayModel(context.Background(), levels, 0, scriptPath, 1, 0, nil)
	if err != nil {
		t.Fatalf("new play model: %v", err)
	}
	t.Cleanup(m.lab.Stop)
	return m
}

func pressKey(t *testing.T, m playModel, msg tea.Msg) (playModel, tea.Cmd) {
	t.Helper()
	model, cmd := m.Update(msg)
	pm, ok := model.(playModel)
	if !ok {
		t.Fatalf("unexpected model type %T", model)
	}
	return pm, cmd
}

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestPlayQuitStopsAndReturnsQuit(t *testing.T) {
	m := newTestPlayModel(t, "")

	m, cmd := pressKey(t, m, runeKey('q'))
	if !m.quitting {
		t.Fatalf("quitting flag not set")
	}
	if cmd == nil {
		t.Fatalf("expected tea.Quit command")
	}
	if msg := cmd(); msg != nil {
		if _, ok := msg.(tea.QuitMsg); !ok {
			t.Fatalf("expected QuitMsg, got %T", msg)
		}
	}
	if !strings.Contains(m.View(), "Goodbye") {
		t.Fatalf("unexpected quit view: %q", m.View())
	}
}

func TestPlayRunUsesStarterCode(t *testing.T) {
	m := newTestPlayModel(t, "")

	m, cmd := pressKey(t, m, runeKey('r'))
	if cmd == nil {
		t.Fatalf("expected a session wait command")
	}
	done, ok := cmd().(sessionDoneMsg)
	if !ok {
		t.Fatalf("expected sessionDoneMsg")
	}
	m, _ = pressKey(t, m, done)

	session := m.lab.Current()
	if session == nil || session.ID != done.id {
		t.Fatalf("unexpected current session %+v", session)
	}
	if !session.Wait().Won() {
		t.Fatalf("starter code should win level 1, log: %v", m.lab.Log().Entries())
	}
	if m.status != dronescript.Completed.String() {
		t.Fatalf("unexpected status %q", m.status)
	}
	if !strings.Contains(m.View(), "Mission complete!") {
		t.Fatalf("view missing success entry:\n%s", m.View())
	}
}

func TestPlayRunReadsScriptFile(t *testing.T) {
	m := newTestPlayModel(t, writeScript(t, "drone.harvst()\n"))

	m, cmd := pressKey(t, m, runeKey('r'))
	if cmd != nil {
		t.Fatalf("compile errors should not start a session")
	}
	if m.status != "compile error" {
		t.Fatalf("unexpected status %q", m.status)
	}
	if m.lab.Current() != nil {
		t.Fatalf("no session should exist")
	}
	entries := m.lab.Log().Entries()
	if len(entries) != 2 || entries[0].Kind != lab.EntryError || entries[1].Kind != lab.EntryAdvice {
		t.Fatalf("expected the error followed by advice, got %v", entries)
	}
	if !strings.Contains(entries[1].Message, "Check the spelling") {
		t.Fatalf("expected the spelling tip, got %q", entries[1].Message)
	}
}

func TestPlayLevelNavigationStaysInRange(t *testing.T) {
	m := newTestPlayModel(t, "")

	m, _ = pressKey(t, m, runeKey('p'))
	if m.levelIdx != 0 {
		t.Fatalf("previous from the first level moved to %d", m.levelIdx)
	}
	m, _ = pressKey(t, m, runeKey('n'))
	if m.levelIdx != 1 || m.lab.Level().ID != m.levels[1].ID {
		t.Fatalf("next level not selected: idx %d, lab level %d", m.levelIdx, m.lab.Level().ID)
	}
	for range len(m.levels) + 2 {
		m, _ = pressKey(t, m, runeKey('n'))
	}
	if m.levelIdx != len(m.levels)-1 {
		t.Fatalf("next past the last level moved to %d", m.levelIdx)
	}
}

func TestPlaySpeedKeysClamp(t *testing.T) {
	m := newTestPlayModel(t, "")

	m, _ = pressKey(t, m, runeKey('+'))
	if got := m.lab.Speed(); got != 1.5 {
		t.Fatalf("expected speed 1.5, got %g", got)
	}
	for range 10 {
		m, _ = pressKey(t, m, runeKey('-'))
	}
	if got := m.lab.Speed(); got != lab.MinSpeed {
		t.Fatalf("expected speed clamped to %g, got %g", float64(lab.MinSpeed), got)
	}
}

func TestPlayAskSendsQuestionToAdvisor(t *testing.T) {
	m := newTestPlayModel(t, "")

	m, _ = pressKey(t, m, runeKey('a'))
	if !m.asking {
		t.Fatalf("ask mode not entered")
	}
	// Keys are text while asking.
	m, _ = pressKey(t, m, runeKey('q'))
	if m.quitting {
		t.Fatalf("q should be typed, not quit")
	}
	if got := m.input.Value(); got != "q" {
		t.Fatalf("expected typed q, got %q", got)
	}
	m.input.SetValue("how do I move?")

	m, cmd := pressKey(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.asking {
		t.Fatalf("ask mode should end after enter")
	}
	if cmd == nil {
		t.Fatalf("expected an advice command")
	}
	if msg, ok := cmd().(adviceMsg); !ok || msg.err != nil {
		t.Fatalf("unexpected advice result %#v", msg)
	}

	entries := m.lab.Log().Entries()
	if len(entries) != 2 {
		t.Fatalf("expected question and answer, got %v", entries)
	}
	if entries[0].Kind != lab.EntryUser || entries[0].Message != "how do I move?" {
		t.Fatalf("unexpected question entry %+v", entries[0])
	}
	if entries[1].Kind != lab.EntryAdvice || !strings.Contains(entries[1].Message, "drone.right()") {
		t.Fatalf("unexpected advice entry %+v", entries[1])
	}
}

func TestPlayAskEscapeCancels(t *testing.T) {
	m := newTestPlayModel(t, "")

	m, _ = pressKey(t, m, runeKey('a'))
	m.input.SetValue("never mind")
	m, cmd := pressKey(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.asking || cmd != nil {
		t.Fatalf("escape should leave ask mode without a command")
	}
	if m.lab.Log().Len() != 0 {
		t.Fatalf("nothing should be logged")
	}
}

func TestPlayViewShowsLevelAndField(t *testing.T) {
	m := newTestPlayModel(t, "")
	m, _ = pressKey(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})

	view := m.View()
	for _, want := range []string{"Level 1: Lesson 1: Movement", "Goal: harvest 3 crops", "Get to know", "energy", "idle"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
}

func TestRenderGridMarksDroneAndCrops(t *testing.T) {
	world, err := farm.NewWorld(3, [][]farm.EntityKind{
		{farm.Empty, farm.Wheat, farm.Rock},
		{farm.Empty, farm.Empty, farm.Empty},
		{farm.Water, farm.Empty, farm.Goal},
	}, farm.DroneState{X: 0, Y: 0, Energy: 5})
	if err != nil {
		t.Fatalf("new world: %v", err)
	}

	want := "D w #\n· · ·\n~ · G"
	if got := renderGrid(world.Snapshot()); got != want {
		t.Fatalf("unexpected grid:\n%s\nwant:\n%s", got, want)
	}
}
