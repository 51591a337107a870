package dronescript

import (
	"context"
	"strings"

	"github.com/mgomes/dronelab/farm"
)

// Drone is the world a program acts on. *farm.World implements it.
// Effect methods are called one at a time, after the pacing delay, from the
// goroutine running the program.
type Drone interface {
	Move(ctx context.Context, dir farm.Direction) error
	Harvest(ctx context.Context) (farm.HarvestOutcome, error)
	Water(ctx context.Context) error
	Scan(ctx context.Context) (farm.EntityKind, error)
	Energy() int
	Log(message string)
}

var _ Drone = (*farm.World)(nil)

// capability is a resolved drone action.
type capability struct {
	name string
	call func(ctx context.Context, d Drone) (Value, error)
}

func moveCapability(name string, dir farm.Direction) capability {
	return capability{name: name, call: func(ctx context.Context, d Drone) (Value, error) {
		return NewNone(), d.Move(ctx, dir)
	}}
}

var capabilities = map[string]capability{
	"up":    moveCapability("up", farm.Up),
	"down":  moveCapability("down", farm.Down),
	"left":  moveCapability("left", farm.Left),
	"right": moveCapability("right", farm.Right),
	"harvest": {name: "harvest", call: func(ctx context.Context, d Drone) (Value, error) {
		outcome, err := d.Harvest(ctx)
		return NewBool(outcome == farm.HarvestCollected), err
	}},
	"water": {name: "water", call: func(ctx context.Context, d Drone) (Value, error) {
		return NewNone(), d.Water(ctx)
	}},
	"scan": {name: "scan", call: func(ctx context.Context, d Drone) (Value, error) {
		kind, err := d.Scan(ctx)
		return NewEntity(kind), err
	}},
}

// capabilityAliases maps alternative spellings to capability names.
var capabilityAliases = map[string]string{
	"move_up":    "up",
	"move_down":  "down",
	"move_left":  "left",
	"move_right": "right",
	"moveUp":     "up",
	"moveDown":   "down",
	"moveLeft":   "left",
	"moveRight":  "right",
}

// droneProperties are pure reads exposed as drone.<name>.
var droneProperties = map[string]func(d Drone) Value{
	"battery": func(d Drone) Value { return NewInt(int64(d.Energy())) },
	"energy":  func(d Drone) Value { return NewInt(int64(d.Energy())) },
}

// resolveCapability maps a callee as written to a capability name.
func resolveCapability(callee string) (string, bool) {
	name := callee
	if rest, ok := strings.CutPrefix(callee, "drone."); ok {
		name = rest
	}
	if alias, ok := capabilityAliases[name]; ok {
		name = alias
	}
	if _, ok := capabilities[name]; ok {
		return name, true
	}
	return "", false
}
