package farm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func rowWorld(t *testing.T, size int, row []EntityKind, start DroneState) *World {
	t.Helper()
	w, err := NewWorld(size, [][]EntityKind{row}, start)
	require.NoError(t, err)
	return w
}

func TestMoveAtBoundaryFailsAndKeepsPosition(t *testing.T) {
	ctx := context.Background()
	w := rowWorld(t, 3, nil, DroneState{X: 0, Y: 0, Energy: 10})

	for _, dir := range []Direction{Up, Left} {
		err := w.Move(ctx, dir)
		var bounds *BoundsError
		require.True(t, errors.As(err, &bounds), "move %s: expected BoundsError, got %v", dir, err)
		require.Equal(t, dir, bounds.Direction)
	}
	require.Equal(t, DroneState{X: 0, Y: 0, Energy: 10}, w.Drone())

	require.NoError(t, w.Move(ctx, Right))
	require.NoError(t, w.Move(ctx, Right))
	require.Error(t, w.Move(ctx, Right))
	require.Equal(t, 2, w.Drone().X)
	require.Equal(t, 8, w.Drone().Energy)
}

func TestHarvestTwiceIsInformationalSecondTime(t *testing.T) {
	ctx := context.Background()
	w := rowWorld(t, 4, []EntityKind{Empty, Wheat}, DroneState{Energy: 10})

	outcome, err := w.Harvest(ctx)
	require.NoError(t, err)
	require.Equal(t, HarvestNothing, outcome)

	require.NoError(t, w.Move(ctx, Right))
	outcome, err = w.Harvest(ctx)
	require.NoError(t, err)
	require.Equal(t, HarvestCollected, outcome)
	require.Equal(t, 1, w.Harvested())

	outcome, err = w.Harvest(ctx)
	require.NoError(t, err)
	require.Equal(t, HarvestAlreadyDone, outcome)
	require.Equal(t, 1, w.Harvested())

	cell, ok := w.CellAt(1, 0)
	require.True(t, ok)
	require.True(t, cell.Harvested)
}

func TestEnergyIsNotGated(t *testing.T) {
	ctx := context.Background()
	w := rowWorld(t, 4, nil, DroneState{Energy: 1})

	require.NoError(t, w.Move(ctx, Right))
	require.NoError(t, w.Move(ctx, Right))
	_, err := w.Harvest(ctx)
	require.NoError(t, err)
	require.Equal(t, -2, w.Energy())
}

func TestScanReadsCurrentCell(t *testing.T) {
	ctx := context.Background()
	w := rowWorld(t, 4, []EntityKind{Empty, Rock}, DroneState{})

	kind, err := w.Scan(ctx)
	require.NoError(t, err)
	require.Equal(t, Empty, kind)

	require.NoError(t, w.Move(ctx, Right))
	kind, err = w.Scan(ctx)
	require.NoError(t, err)
	require.Equal(t, Rock, kind)
}

func TestObserverSeesEffectsInOrder(t *testing.T) {
	ctx := context.Background()
	w := rowWorld(t, 4, []EntityKind{Empty, Wheat}, DroneState{})

	var got []EventKind
	w.SetObserver(func(ev Event) { got = append(got, ev.Kind) })

	require.NoError(t, w.Move(ctx, Right))
	_, _ = w.Harvest(ctx)
	require.NoError(t, w.Water(ctx))
	_, _ = w.Scan(ctx)
	w.Log("hello")
	_, _ = w.Harvest(ctx)

	require.Equal(t, []EventKind{EventMoved, EventHarvested, EventWatered, EventScanned, EventLog, EventNothingToHarvest}, got)
}

func TestSnapshotIsACopy(t *testing.T) {
	w := rowWorld(t, 2, []EntityKind{Wheat}, DroneState{})
	snap := w.Snapshot()
	snap.Cells[0][0].Kind = Rock

	cell, _ := w.CellAt(0, 0)
	require.Equal(t, Wheat, cell.Kind)
}

func TestNewWorldRejectsStartOutsideField(t *testing.T) {
	_, err := NewWorld(4, nil, DroneState{X: 4})
	require.Error(t, err)
	_, err = NewWorld(0, nil, DroneState{})
	require.Error(t, err)
}

func TestParseEntityKindAliases(t *testing.T) {
	for name, want := range map[string]EntityKind{
		"wheat":    Wheat,
		"ROCK":     Rock,
		"obstacle": Rock,
		"charger":  Charging,
		" goal ":   Goal,
	} {
		got, ok := ParseEntityKind(name)
		require.True(t, ok, name)
		require.Equal(t, want, got, name)
	}
	_, ok := ParseEntityKind("lava")
	require.False(t, ok)
}

func TestWinConditionEvaluate(t *testing.T) {
	ctx := context.Background()
	w := rowWorld(t, 4, []EntityKind{Empty, Wheat, Goal}, DroneState{Energy: 5})
	minimum := 2

	cond := WinCondition{Wheat: 1, ReachGoal: true, EnergyMin: &minimum}
	report := cond.Evaluate(w)
	require.False(t, report.Won)
	require.Len(t, report.Unmet, 2)

	require.NoError(t, w.Move(ctx, Right))
	_, err := w.Harvest(ctx)
	require.NoError(t, err)
	require.NoError(t, w.Move(ctx, Right))

	report = cond.Evaluate(w)
	require.True(t, report.Won, report.String())
	require.True(t, report.OnGoal)
	require.Equal(t, 1, report.Harvested)
	require.Equal(t, 2, report.Energy)

	report = WinCondition{EnergyMin: new(int)}.Evaluate(w)
	require.True(t, report.Won)
	*cond.EnergyMin = 10
	require.False(t, cond.Evaluate(w).Won)
}
