package farm

import (
	"fmt"
	"strings"
)

// EntityKind names what occupies a grid cell.
type EntityKind string

const (
	Empty     EntityKind = "empty"
	Wheat     EntityKind = "wheat"
	Sunflower EntityKind = "sunflower"
	Rock      EntityKind = "rock"
	Charging  EntityKind = "charging"
	Water     EntityKind = "water"
	Goal      EntityKind = "goal"
)

// EntityKinds lists every kind in display order.
var EntityKinds = []EntityKind{Empty, Wheat, Sunflower, Rock, Charging, Water, Goal}

var entityAliases = map[string]EntityKind{
	"obstacle": Rock,
	"charger":  Charging,
	"crop":     Wheat,
}

// ParseEntityKind resolves a kind name, accepting the obstacle/charger
// aliases used by level authors. Matching is case-insensitive.
func ParseEntityKind(name string) (EntityKind, bool) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for _, kind := range EntityKinds {
		if string(kind) == normalized {
			return kind, true
		}
	}
	if kind, ok := entityAliases[normalized]; ok {
		return kind, true
	}
	return "", false
}

// Harvestable reports whether the kind is a crop.
func (k EntityKind) Harvestable() bool {
	return k == Wheat || k == Sunflower
}

func (k EntityKind) String() string { return string(k) }

// Direction is a single grid step.
type Direction int

const (
	Up Direction = iota
	Down
	Left
	Right
)

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// delta returns the x/y offset of one step. y grows downwards.
func (d Direction) delta() (int, int) {
	switch d {
	case Up:
		return 0, -1
	case Down:
		return 0, 1
	case Left:
		return -1, 0
	case Right:
		return 1, 0
	default:
		return 0, 0
	}
}

// HarvestOutcome describes what a harvest attempt did.
type HarvestOutcome int

const (
	// HarvestNothing means the cell holds no crop.
	HarvestNothing HarvestOutcome = iota
	// HarvestCollected means a crop was collected and the counter advanced.
	HarvestCollected
	// HarvestAlreadyDone means the crop on this cell was collected earlier.
	HarvestAlreadyDone
)

func (o HarvestOutcome) String() string {
	switch o {
	case HarvestCollected:
		return "collected"
	case HarvestAlreadyDone:
		return "already harvested"
	default:
		return "nothing to harvest"
	}
}
