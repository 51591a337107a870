package farm

import (
	"context"
	"fmt"
	"sync"

	"github.com/mgomes/dronelab/internal/ctxlog"
)

// MovementCost is the energy consumed by every move and every harvest.
const MovementCost = 1

// Cell is one square of the field.
type Cell struct {
	X, Y      int
	Kind      EntityKind
	Harvested bool
	Watered   bool
}

// DroneState is the drone's position and remaining energy. Energy is allowed
// to go negative; nothing in the world refuses a move for lack of energy.
type DroneState struct {
	X, Y   int
	Energy int
}

// EventKind identifies an applied effect.
type EventKind int

const (
	EventMoved EventKind = iota
	EventHarvested
	EventNothingToHarvest
	EventWatered
	EventScanned
	EventLog
)

func (k EventKind) String() string {
	switch k {
	case EventMoved:
		return "moved"
	case EventHarvested:
		return "harvested"
	case EventNothingToHarvest:
		return "nothing_to_harvest"
	case EventWatered:
		return "watered"
	case EventScanned:
		return "scanned"
	case EventLog:
		return "log"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is delivered to an Observer after each effect has been applied, in
// the exact order the effects happened.
type Event struct {
	Kind      EventKind
	Drone     DroneState
	Cell      Cell
	Harvested int
	Message   string
}

// Observer receives world events. It is called synchronously from the
// goroutine applying the effect and must not call back into the World's
// effect handlers.
type Observer func(Event)

// World owns the grid and the drone. Effect handlers are the only mutators;
// Snapshot and the other query methods are safe to call concurrently with a
// running script.
type World struct {
	mu        sync.RWMutex
	size      int
	cells     [][]Cell
	drone     DroneState
	harvested int
	observer  Observer
}

// NewWorld builds a world from a layout indexed [y][x]. Missing or short
// rows are filled with empty cells.
func NewWorld(size int, layout [][]EntityKind, start DroneState) (*World, error) {
	if size <= 0 {
		return nil, fmt.Errorf("farm: grid size must be positive, got %d", size)
	}
	if !inBounds(size, start.X, start.Y) {
		return nil, fmt.Errorf("farm: drone start (%d, %d) is outside the %dx%d field", start.X, start.Y, size, size)
	}
	cells := make([][]Cell, size)
	for y := range cells {
		cells[y] = make([]Cell, size)
		for x := range cells[y] {
			kind := Empty
			if y < len(layout) && x < len(layout[y]) && layout[y][x] != "" {
				kind = layout[y][x]
			}
			cells[y][x] = Cell{X: x, Y: y, Kind: kind}
		}
	}
	return &World{size: size, cells: cells, drone: start}, nil
}

// SetObserver installs the event callback. Pass nil to remove it.
func (w *World) SetObserver(obs Observer) {
	w.mu.Lock()
	w.observer = obs
	w.mu.Unlock()
}

// Size returns the side length of the square field.
func (w *World) Size() int { return w.size }

// Move steps the drone one cell. A move that would leave the field returns a
// *BoundsError and changes nothing.
func (w *World) Move(ctx context.Context, dir Direction) error {
	w.mu.Lock()
	dx, dy := dir.delta()
	nx, ny := w.drone.X+dx, w.drone.Y+dy
	if !inBounds(w.size, nx, ny) {
		err := &BoundsError{Direction: dir, X: w.drone.X, Y: w.drone.Y, Size: w.size}
		w.mu.Unlock()
		return err
	}
	w.drone.X, w.drone.Y = nx, ny
	w.drone.Energy -= MovementCost
	ev := Event{Kind: EventMoved, Drone: w.drone, Cell: w.cells[ny][nx], Harvested: w.harvested}
	obs := w.observer
	w.mu.Unlock()

	ctxlog.FromContext(ctx).Debug("Drone moved.", "direction", dir.String(), "x", nx, "y", ny, "energy", ev.Drone.Energy)
	notify(obs, ev)
	return nil
}

// Harvest collects the crop under the drone if there is an unharvested one.
// Otherwise it is an informational no-op. Either way it costs energy.
func (w *World) Harvest(ctx context.Context) (HarvestOutcome, error) {
	w.mu.Lock()
	cell := &w.cells[w.drone.Y][w.drone.X]
	w.drone.Energy -= MovementCost
	var outcome HarvestOutcome
	var ev Event
	switch {
	case cell.Kind.Harvestable() && !cell.Harvested:
		cell.Harvested = true
		w.harvested++
		outcome = HarvestCollected
		ev = Event{Kind: EventHarvested, Message: "Harvested!"}
	case cell.Kind.Harvestable():
		outcome = HarvestAlreadyDone
		ev = Event{Kind: EventNothingToHarvest, Message: "Already harvested here."}
	default:
		outcome = HarvestNothing
		ev = Event{Kind: EventNothingToHarvest, Message: "Nothing to harvest."}
	}
	ev.Drone, ev.Cell, ev.Harvested = w.drone, *cell, w.harvested
	obs := w.observer
	w.mu.Unlock()

	ctxlog.FromContext(ctx).Debug("Drone harvested.", "outcome", outcome.String(), "x", ev.Cell.X, "y", ev.Cell.Y, "harvested", ev.Harvested)
	notify(obs, ev)
	return outcome, nil
}

// Water marks the current cell as watered. It has no other effect.
func (w *World) Water(ctx context.Context) error {
	w.mu.Lock()
	cell := &w.cells[w.drone.Y][w.drone.X]
	cell.Watered = true
	ev := Event{Kind: EventWatered, Drone: w.drone, Cell: *cell, Harvested: w.harvested, Message: "Watered."}
	obs := w.observer
	w.mu.Unlock()

	ctxlog.FromContext(ctx).Debug("Drone watered.", "x", ev.Cell.X, "y", ev.Cell.Y)
	notify(obs, ev)
	return nil
}

// Scan reports the kind of the cell the drone is standing on, not the cell
// ahead of it.
func (w *World) Scan(ctx context.Context) (EntityKind, error) {
	w.mu.RLock()
	cell := w.cells[w.drone.Y][w.drone.X]
	ev := Event{Kind: EventScanned, Drone: w.drone, Cell: cell, Harvested: w.harvested}
	obs := w.observer
	w.mu.RUnlock()

	ctxlog.FromContext(ctx).Debug("Drone scanned.", "kind", cell.Kind.String(), "x", cell.X, "y", cell.Y)
	notify(obs, ev)
	return cell.Kind, nil
}

// Energy returns the drone's remaining energy.
func (w *World) Energy() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.drone.Energy
}

// Log forwards a script message to the observer.
func (w *World) Log(message string) {
	w.mu.RLock()
	ev := Event{Kind: EventLog, Drone: w.drone, Harvested: w.harvested, Message: message}
	obs := w.observer
	w.mu.RUnlock()
	notify(obs, ev)
}

// Drone returns the current drone state.
func (w *World) Drone() DroneState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.drone
}

// Harvested returns how many crops have been collected.
func (w *World) Harvested() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.harvested
}

// CellAt returns the cell at x, y.
func (w *World) CellAt(x, y int) (Cell, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if !inBounds(w.size, x, y) {
		return Cell{}, false
	}
	return w.cells[y][x], true
}

// Snapshot is a consistent copy of the world used by renderers.
type Snapshot struct {
	Size      int
	Cells     [][]Cell
	Drone     DroneState
	Harvested int
}

// Snapshot copies the current state.
func (w *World) Snapshot() Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	cells := make([][]Cell, len(w.cells))
	for y, row := range w.cells {
		cells[y] = append([]Cell(nil), row...)
	}
	return Snapshot{Size: w.size, Cells: cells, Drone: w.drone, Harvested: w.harvested}
}

func notify(obs Observer, ev Event) {
	if obs != nil {
		obs(ev)
	}
}

func inBounds(size, x, y int) bool {
	return x >= 0 && y >= 0 && x < size && y < size
}
