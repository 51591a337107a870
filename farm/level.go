package farm

import (
	"fmt"
	"strings"
)

// DefaultEnergy is the energy a drone starts with when a level doesn't say.
const DefaultEnergy = 100

// WinCondition is a level's success predicate, evaluated once after a script
// completes. Zero values disable a clause.
type WinCondition struct {
	// Wheat is the minimum number of harvested crops.
	Wheat int
	// ReachGoal requires the drone to end on a goal cell.
	ReachGoal bool
	// EnergyMin, when set, is the minimum energy left at the end.
	EnergyMin *int
}

// WinReport is the evaluated win condition.
type WinReport struct {
	Won       bool
	Harvested int
	OnGoal    bool
	Energy    int
	// Unmet describes each failed clause.
	Unmet []string
}

func (r WinReport) String() string {
	if r.Won {
		return "mission complete"
	}
	return "mission incomplete: " + strings.Join(r.Unmet, "; ")
}

// Evaluate checks the condition against the world's current state.
func (c WinCondition) Evaluate(w *World) WinReport {
	snap := w.Snapshot()
	report := WinReport{
		Harvested: snap.Harvested,
		Energy:    snap.Drone.Energy,
		OnGoal:    snap.Cells[snap.Drone.Y][snap.Drone.X].Kind == Goal,
	}
	if c.Wheat > 0 && report.Harvested < c.Wheat {
		report.Unmet = append(report.Unmet, fmt.Sprintf("harvested %d of %d crops", report.Harvested, c.Wheat))
	}
	if c.ReachGoal && !report.OnGoal {
		report.Unmet = append(report.Unmet, fmt.Sprintf("drone ended at (%d, %d), not on the goal", snap.Drone.X, snap.Drone.Y))
	}
	if c.EnergyMin != nil && report.Energy < *c.EnergyMin {
		report.Unmet = append(report.Unmet, fmt.Sprintf("energy %d is below %d", report.Energy, *c.EnergyMin))
	}
	report.Won = len(report.Unmet) == 0
	return report
}

// Level is an immutable level configuration.
type Level struct {
	ID          int
	Slug        string
	Name        string
	Description string
	Size        int
	// Layout is indexed [y][x].
	Layout      [][]EntityKind
	Start       DroneState
	Win         WinCondition
	Hint        string
	DefaultCode string
}

// NewWorld returns a pristine world for one run of the level.
func (l *Level) NewWorld() (*World, error) {
	return NewWorld(l.Size, l.Layout, l.Start)
}

// Validate checks that the level is internally consistent.
func (l *Level) Validate() error {
	if l.Size <= 0 {
		return fmt.Errorf("level %q: size must be positive, got %d", l.Slug, l.Size)
	}
	if !inBounds(l.Size, l.Start.X, l.Start.Y) {
		return fmt.Errorf("level %q: drone start (%d, %d) is outside the %dx%d field", l.Slug, l.Start.X, l.Start.Y, l.Size, l.Size)
	}
	if len(l.Layout) > l.Size {
		return fmt.Errorf("level %q: layout has %d rows for a field of size %d", l.Slug, len(l.Layout), l.Size)
	}
	for y, row := range l.Layout {
		if len(row) > l.Size {
			return fmt.Errorf("level %q: layout row %d has %d cells for a field of size %d", l.Slug, y, len(row), l.Size)
		}
	}
	if l.Win.Wheat < 0 {
		return fmt.Errorf("level %q: win wheat must not be negative", l.Slug)
	}
	return nil
}

// Describe renders the win condition for display.
func (c WinCondition) Describe() string {
	var parts []string
	if c.Wheat > 0 {
		parts = append(parts, fmt.Sprintf("harvest %d crops", c.Wheat))
	}
	if c.ReachGoal {
		parts = append(parts, "end on the goal")
	}
	if c.EnergyMin != nil {
		parts = append(parts, fmt.Sprintf("keep at least %d energy", *c.EnergyMin))
	}
	if len(parts) == 0 {
		return "finish without errors"
	}
	return strings.Join(parts, ", ")
}
