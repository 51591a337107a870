package farm

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/mgomes/dronelab/internal/ctxlog"
)

// fileRoot decodes every level block of a file.
type fileRoot struct {
	Levels []*levelBlock `hcl:"level,block"`
}

type levelBlock struct {
	Slug        string       `hcl:"slug,label"`
	ID          int          `hcl:"id"`
	Name        string       `hcl:"name"`
	Description string       `hcl:"description,optional"`
	Size        int          `hcl:"size"`
	Hint        string       `hcl:"hint,optional"`
	DefaultCode string       `hcl:"default_code,optional"`
	Drone       *droneBlock  `hcl:"drone,block"`
	Win         *winBlock    `hcl:"win,block"`
	Cells       []*cellBlock `hcl:"cell,block"`
	Rows        []*rowBlock  `hcl:"row,block"`
}

type droneBlock struct {
	X      int       `hcl:"x"`
	Y      int       `hcl:"y"`
	Energy cty.Value `hcl:"energy,optional"`
}

type winBlock struct {
	Wheat     int       `hcl:"wheat,optional"`
	ReachGoal bool      `hcl:"reach_goal,optional"`
	EnergyMin cty.Value `hcl:"energy_min,optional"`
}

type cellBlock struct {
	X    int    `hcl:"x"`
	Y    int    `hcl:"y"`
	Kind string `hcl:"kind"`
}

// rowBlock fills cells from..to (inclusive) of row y, every step columns.
type rowBlock struct {
	Y    int    `hcl:"y"`
	From int    `hcl:"from,optional"`
	To   int    `hcl:"to"`
	Step int    `hcl:"step,optional"`
	Kind string `hcl:"kind"`
}

// evalContext exposes `entity.<kind>` so level files can write
// `kind = entity.wheat` instead of a bare string.
func evalContext() *hcl.EvalContext {
	kinds := make(map[string]cty.Value, len(EntityKinds)+len(entityAliases))
	for _, kind := range EntityKinds {
		kinds[string(kind)] = cty.StringVal(string(kind))
	}
	for alias, kind := range entityAliases {
		kinds[alias] = cty.StringVal(string(kind))
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"entity": cty.ObjectVal(kinds),
		},
	}
}

// Load reads every level defined in the given .hcl files or directories and
// returns them ordered by ID. Paths that don't exist are skipped.
func Load(ctx context.Context, paths ...string) ([]*Level, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Level loader started.", "path_count", len(paths))

	files, err := findLevelFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered level files.", "count", len(files))

	var levels []*Level
	for _, file := range files {
		src, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read level file %s: %w", file, err)
		}
		parsed, err := Parse(src, file)
		if err != nil {
			return nil, err
		}
		levels = append(levels, parsed...)
	}
	if err := checkUniqueIDs(levels); err != nil {
		return nil, err
	}
	sortLevels(levels)

	logger.Debug("Level loading complete.", "levels", len(levels))
	return levels, nil
}

// Parse decodes the level blocks of one HCL document.
func Parse(src []byte, filename string) ([]*Level, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse level file %s: %w", filename, diags)
	}

	var root fileRoot
	diags = gohcl.DecodeBody(file.Body, evalContext(), &root)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode level file %s: %w", filename, diags)
	}

	levels := make([]*Level, 0, len(root.Levels))
	for _, block := range root.Levels {
		level, err := translateLevel(block)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		levels = append(levels, level)
	}
	return levels, nil
}

func translateLevel(b *levelBlock) (*Level, error) {
	level := &Level{
		ID:          b.ID,
		Slug:        b.Slug,
		Name:        b.Name,
		Description: b.Description,
		Size:        b.Size,
		Hint:        b.Hint,
		DefaultCode: b.DefaultCode,
		Start:       DroneState{Energy: DefaultEnergy},
	}
	if level.Size <= 0 {
		return nil, fmt.Errorf("level %q: size must be positive, got %d", b.Slug, b.Size)
	}

	if b.Drone != nil {
		level.Start.X, level.Start.Y = b.Drone.X, b.Drone.Y
		energy, ok, err := optionalInt(b.Drone.Energy)
		if err != nil {
			return nil, fmt.Errorf("level %q: drone energy: %w", b.Slug, err)
		}
		if ok {
			level.Start.Energy = energy
		}
	}

	if b.Win != nil {
		level.Win.Wheat = b.Win.Wheat
		level.Win.ReachGoal = b.Win.ReachGoal
		minimum, ok, err := optionalInt(b.Win.EnergyMin)
		if err != nil {
			return nil, fmt.Errorf("level %q: win energy_min: %w", b.Slug, err)
		}
		if ok {
			level.Win.EnergyMin = &minimum
		}
	}

	level.Layout = make([][]EntityKind, level.Size)
	for y := range level.Layout {
		level.Layout[y] = make([]EntityKind, level.Size)
		for x := range level.Layout[y] {
			level.Layout[y][x] = Empty
		}
	}
	place := func(x, y int, name string) error {
		kind, ok := ParseEntityKind(name)
		if !ok {
			return fmt.Errorf("level %q: unknown entity kind %q at (%d, %d)", b.Slug, name, x, y)
		}
		if !inBounds(level.Size, x, y) {
			return fmt.Errorf("level %q: cell (%d, %d) is outside the %dx%d field", b.Slug, x, y, level.Size, level.Size)
		}
		level.Layout[y][x] = kind
		return nil
	}

	// Rows first so individual cells can override them.
	for _, row := range b.Rows {
		step := row.Step
		if step <= 0 {
			step = 1
		}
		for x := row.From; x <= row.To; x += step {
			if err := place(x, row.Y, row.Kind); err != nil {
				return nil, err
			}
		}
	}
	for _, cell := range b.Cells {
		if err := place(cell.X, cell.Y, cell.Kind); err != nil {
			return nil, err
		}
	}

	if err := level.Validate(); err != nil {
		return nil, err
	}
	return level, nil
}

func optionalInt(v cty.Value) (int, bool, error) {
	if v.IsNull() {
		return 0, false, nil
	}
	var out int
	if err := gocty.FromCtyValue(v, &out); err != nil {
		return 0, false, err
	}
	return out, true, nil
}

func findLevelFiles(paths []string) ([]string, error) {
	var files []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		files = append(files, p)
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}
		if !info.IsDir() {
			add(path)
			continue
		}
		err = filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() && filepath.Ext(p) == ".hcl" {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

func checkUniqueIDs(levels []*Level) error {
	seen := make(map[int]string, len(levels))
	for _, level := range levels {
		if prev, ok := seen[level.ID]; ok {
			return fmt.Errorf("duplicate level id %d (%q and %q)", level.ID, prev, level.Slug)
		}
		seen[level.ID] = level.Slug
	}
	return nil
}

func sortLevels(levels []*Level) {
	sort.SliceStable(levels, func(i, j int) bool { return levels[i].ID < levels[j].ID })
}
