package lab

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mgomes/dronelab/dronescript"
	"github.com/mgomes/dronelab/farm"
)

func testLevel() *farm.Level {
	layout := [][]farm.EntityKind{{farm.Empty, farm.Wheat, farm.Wheat, farm.Wheat, farm.Empty}}
	return &farm.Level{
		ID:     1,
		Slug:   "row",
		Name:   "Row",
		Size:   5,
		Layout: layout,
		Start:  farm.DroneState{Energy: 20},
		Win:    farm.WinCondition{Wheat: 3},
		Hint:   "Move right, then harvest.",
	}
}

func newTestLab(t *testing.T, cfg Config) *Lab {
	t.Helper()
	if cfg.Level == nil {
		cfg.Level = testLevel()
	}
	l, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(l.Stop)
	return l
}

func kinds(entries []Entry) []EntryKind {
	out := make([]EntryKind, len(entries))
	for i, entry := range entries {
		out[i] = entry.Kind
	}
	return out
}

const winningScript = "for i in range(3):\n    right()\n    harvest()\n"

func TestRunCompletesAndWins(t *testing.T) {
	l := newTestLab(t, Config{})

	session, err := l.Run(context.Background(), winningScript)
	require.NoError(t, err)
	outcome := session.Wait()

	require.Equal(t, dronescript.Completed, outcome.Result.State)
	require.True(t, outcome.Won())
	require.Equal(t, 3, session.World().Harvested())
	require.Equal(t, dronescript.Completed, session.State())

	entries := l.Log().Session(session.ID)
	require.Equal(t, []EntryKind{EntryInfo, EntrySuccess, EntrySuccess, EntrySuccess, EntrySuccess}, kinds(entries))
	require.Equal(t, "Mission complete!", entries[len(entries)-1].Message)
}

func TestRunCompletedButNotWon(t *testing.T) {
	l := newTestLab(t, Config{})

	session, err := l.Run(context.Background(), "right()\nharvest()\n")
	require.NoError(t, err)
	outcome := session.Wait()

	require.Equal(t, dronescript.Completed, outcome.Result.State)
	require.False(t, outcome.Won())
	last := l.Log().Entries()[l.Log().Len()-1]
	require.Equal(t, EntryError, last.Kind)
	require.Contains(t, last.Message, "harvested 1 of 3 crops")
}

func TestRunCompileErrorStartsNothing(t *testing.T) {
	var calls atomic.Int32
	var seen AdviceRequest
	advisor := AdvisorFunc(func(_ context.Context, req AdviceRequest) (string, error) {
		calls.Add(1)
		seen = req
		return "Line elif up under its if.", nil
	})
	l := newTestLab(t, Config{Advisor: advisor})

	source := "right()\nelif True:\n    harvest()\n"
	session, err := l.Run(context.Background(), source)
	require.Nil(t, session)
	var syntaxErr *dronescript.SyntaxError
	require.ErrorAs(t, err, &syntaxErr)
	require.Equal(t, dronescript.StructuralError, syntaxErr.Kind)
	require.Nil(t, l.Current())

	require.EqualValues(t, 1, calls.Load())
	require.Equal(t, source, seen.Source)
	require.Equal(t, err.Error(), seen.Failure)
	require.Empty(t, seen.Question)

	entries := l.Log().Entries()
	require.Len(t, entries, 2)
	require.Equal(t, EntryError, entries[0].Kind)
	require.Equal(t, EntryAdvice, entries[1].Kind)
	require.Equal(t, "Line elif up under its if.", entries[1].Message)
	for _, entry := range entries {
		require.Equal(t, 0, entry.Session)
	}
}

func TestRunCompileErrorWithoutAdviceLogsOnlyTheError(t *testing.T) {
	advisor := AdvisorFunc(func(context.Context, AdviceRequest) (string, error) {
		return "", ErrNoAdvice
	})
	l := newTestLab(t, Config{Advisor: advisor})

	_, err := l.Run(context.Background(), "if True:\n")
	require.Error(t, err)

	entries := l.Log().Entries()
	require.Len(t, entries, 1)
	require.Equal(t, EntryError, entries[0].Kind)
}

func TestRunFailureAsksAdvisorOnce(t *testing.T) {
	var calls atomic.Int32
	var seen AdviceRequest
	advisor := AdvisorFunc(func(_ context.Context, req AdviceRequest) (string, error) {
		calls.Add(1)
		seen = req
		return "Count the steps.", nil
	})
	l := newTestLab(t, Config{Advisor: advisor})

	source := "for i in range(9):\n    right()\n"
	session, err := l.Run(context.Background(), source)
	require.NoError(t, err)
	outcome := session.Wait()

	require.Equal(t, dronescript.Failed, outcome.Result.State)
	require.Equal(t, int32(1), calls.Load())
	require.Equal(t, "Count the steps.", outcome.Advice)
	require.Equal(t, source, seen.Source)
	require.Contains(t, seen.Failure, "DomainError")
	require.False(t, seen.Chat())

	var bounds *farm.BoundsError
	require.ErrorAs(t, outcome.Result.Err, &bounds)
	require.Equal(t, 4, session.World().Drone().X)

	entries := l.Log().Session(session.ID)
	require.Equal(t, []EntryKind{EntryInfo, EntryError, EntryAdvice}, kinds(entries))
}

func TestRunSupersedesPreviousSession(t *testing.T) {
	var calls atomic.Int32
	advisor := AdvisorFunc(func(context.Context, AdviceRequest) (string, error) {
		calls.Add(1)
		return "", ErrNoAdvice
	})
	l := newTestLab(t, Config{Pacing: time.Hour, Advisor: advisor})

	first, err := l.Run(context.Background(), winningScript)
	require.NoError(t, err)
	require.Equal(t, dronescript.Running, first.State())

	second, err := l.Run(context.Background(), "print('again')\n")
	require.NoError(t, err)

	select {
	case <-first.Done():
	default:
		t.Fatalf("the first session must be finished before the second starts")
	}
	require.Equal(t, dronescript.Cancelled, first.State())
	require.Equal(t, 0, first.Wait().Result.Effects)
	require.Equal(t, 0, first.World().Drone().X)

	require.Equal(t, dronescript.Completed, second.Wait().Result.State)
	require.Same(t, second, l.Current())
	require.Equal(t, int32(0), calls.Load())

	require.Equal(t, []EntryKind{EntryInfo, EntryCancelled}, kinds(l.Log().Session(first.ID)))
}

func TestStopCancelsWithoutRollback(t *testing.T) {
	moved := make(chan struct{}, 8)
	l := newTestLab(t, Config{
		Pacing: 30 * time.Millisecond,
		Observer: func(ev farm.Event) {
			if ev.Kind == farm.EventMoved {
				moved <- struct{}{}
			}
		},
	})

	session, err := l.Run(context.Background(), "for i in range(4):\n    right()\n")
	require.NoError(t, err)
	<-moved
	l.Stop()

	outcome := session.Wait()
	require.Equal(t, dronescript.Cancelled, outcome.Result.State)
	require.ErrorIs(t, outcome.Result.Err, dronescript.ErrCancelled)
	x := session.World().Drone().X
	require.GreaterOrEqual(t, x, 1)
	require.Equal(t, outcome.Result.Effects, x)
	require.Nil(t, outcome.Win)
}

func TestEachRunStartsFromPristineLevel(t *testing.T) {
	l := newTestLab(t, Config{})
	for i := 0; i < 2; i++ {
		session, err := l.Run(context.Background(), "right()\nharvest()\n")
		require.NoError(t, err)
		session.Wait()
		require.Equal(t, 1, session.World().Drone().X)
		require.Equal(t, 1, session.World().Harvested())
		require.Equal(t, 18, session.World().Energy())
	}
}

func TestSpeedDividesPacing(t *testing.T) {
	l := newTestLab(t, Config{Pacing: time.Second})
	require.NoError(t, l.SetSpeed(4))
	require.Equal(t, 250*time.Millisecond, l.pacingLocked())

	require.Error(t, l.SetSpeed(0))
	require.Error(t, l.SetSpeed(MaxSpeed+1))
	require.Equal(t, 4.0, l.Speed())
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)

	_, err = New(Config{Level: testLevel(), Pacing: -time.Second})
	require.Error(t, err)

	_, err = New(Config{Level: testLevel(), Speed: 100})
	require.Error(t, err)

	bad := testLevel()
	bad.Start.X = 9
	_, err = New(Config{Level: bad})
	require.Error(t, err)
}

func TestSetLevelStopsSession(t *testing.T) {
	l := newTestLab(t, Config{Pacing: time.Hour})
	session, err := l.Run(context.Background(), "right()\n")
	require.NoError(t, err)

	next := testLevel()
	next.ID = 2
	require.NoError(t, l.SetLevel(next))
	require.Equal(t, dronescript.Cancelled, session.State())
	require.Equal(t, 2, l.Level().ID)
}

func TestAskLogsQuestionAndAnswer(t *testing.T) {
	l := newTestLab(t, Config{})
	_, err := l.Run(context.Background(), "right()\n")
	require.NoError(t, err)
	l.Current().Wait()

	answer, err := l.Ask(context.Background(), "How do I harvest?")
	require.NoError(t, err)
	require.Equal(t, "Hint: Move right, then harvest.", answer)

	tail := l.Log().Since(l.Log().Len() - 2)
	require.Equal(t, []EntryKind{EntryUser, EntryAdvice}, kinds(tail))
	require.Equal(t, "How do I harvest?", tail[0].Message)
}

func TestSetAdvisorReplacesAndResets(t *testing.T) {
	l := newTestLab(t, Config{})
	l.SetAdvisor(AdvisorFunc(func(_ context.Context, req AdviceRequest) (string, error) {
		return "custom: " + req.Question, nil
	}))

	answer, err := l.Ask(context.Background(), "why?")
	require.NoError(t, err)
	require.Equal(t, "custom: why?", answer)

	l.SetAdvisor(nil)
	answer, err = l.Ask(context.Background(), "and now?")
	require.NoError(t, err)
	require.Equal(t, "Hint: Move right, then harvest.", answer)
}

func TestAskReportsAdvisorFailure(t *testing.T) {
	failing := AdvisorFunc(func(context.Context, AdviceRequest) (string, error) {
		return "", errors.New("offline")
	})
	l := newTestLab(t, Config{Advisor: failing})
	_, err := l.Ask(context.Background(), "help")
	require.Error(t, err)
	require.Equal(t, []EntryKind{EntryUser, EntryError}, kinds(l.Log().Entries()))
}

func TestLogSequence(t *testing.T) {
	log := NewLog()
	log.Append(EntryInfo, 1, "a")
	log.Append(EntryError, 2, "b")
	log.Append(EntryAdvice, 1, "c")

	require.Equal(t, 3, log.Len())
	require.Equal(t, []string{"b", "c"}, messages(log.Since(1)))
	require.Empty(t, log.Since(3))
	require.Equal(t, []string{"a", "c"}, messages(log.Session(1)))
	for i, entry := range log.Entries() {
		require.Equal(t, i+1, entry.Seq)
	}
	require.Equal(t, "cancelled", EntryCancelled.String())
}

func messages(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, entry := range entries {
		out[i] = entry.Message
	}
	return out
}
