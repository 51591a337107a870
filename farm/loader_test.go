package farm

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleLevel = `
level "sample" {
  id   = 42
  name = "Sample"
  size = 5

  default_code = <<-EOT
    for i in range(2):
        right()
  EOT

  drone {
    x      = 1
    y      = 2
    energy = 7
  }

  win {
    wheat      = 2
    energy_min = 0
  }

  row {
    y    = 2
    from = 2
    to   = 4
    kind = entity.wheat
  }

  cell {
    x    = 4
    y    = 2
    kind = "goal"
  }

  cell {
    x    = 0
    y    = 0
    kind = entity.obstacle
  }
}
`

func TestParseLevel(t *testing.T) {
	levels, err := Parse([]byte(sampleLevel), "sample.hcl")
	require.NoError(t, err)
	require.Len(t, levels, 1)

	level := levels[0]
	require.Equal(t, 42, level.ID)
	require.Equal(t, "sample", level.Slug)
	require.Equal(t, 5, level.Size)
	require.Equal(t, DroneState{X: 1, Y: 2, Energy: 7}, level.Start)
	require.Equal(t, 2, level.Win.Wheat)
	require.NotNil(t, level.Win.EnergyMin)
	require.Equal(t, 0, *level.Win.EnergyMin)
	require.Equal(t, []EntityKind{Empty, Empty, Wheat, Wheat, Goal}, level.Layout[2])
	require.Equal(t, Rock, level.Layout[0][0])
	require.Equal(t, "for i in range(2):\n    right()\n", level.DefaultCode)

	world, err := level.NewWorld()
	require.NoError(t, err)
	require.Equal(t, level.Start, world.Drone())
}

func TestParseLevelDefaults(t *testing.T) {
	levels, err := Parse([]byte(`
level "bare" {
  id   = 1
  name = "Bare"
  size = 3
}
`), "bare.hcl")
	require.NoError(t, err)
	require.Equal(t, DroneState{Energy: DefaultEnergy}, levels[0].Start)
	require.Nil(t, levels[0].Win.EnergyMin)
}

func TestParseLevelErrors(t *testing.T) {
	cases := map[string]string{
		"unknown kind": `level "x" {
  id = 1
  name = "x"
  size = 3
  cell {
    x = 0
    y = 0
    kind = "lava"
  }
}`,
		"cell outside": `level "x" {
  id = 1
  name = "x"
  size = 3
  cell {
    x = 3
    y = 0
    kind = "rock"
  }
}`,
		"start outside": `level "x" {
  id = 1
  name = "x"
  size = 3
  drone {
    x = 0
    y = 9
  }
}`,
		"missing size": `level "x" {
  id = 1
  name = "x"
}`,
		"bad syntax": `level "x" {`,
		"unknown entity variable": `level "x" {
  id = 1
  name = "x"
  size = 3
  cell {
    x = 0
    y = 0
    kind = entity.lava
  }
}`,
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(src), "bad.hcl")
			require.Error(t, err)
		})
	}
}

func TestLoadWalksDirectoriesAndSortsByID(t *testing.T) {
	dir := t.TempDir()
	write := func(name, slug string, id int) {
		src := fmt.Sprintf("level %q {\n  id = %d\n  name = %q\n  size = 2\n}\n", slug, id, slug)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644))
	}
	write("b.hcl", "second", 2)
	write("a.hcl", "third", 3)
	write("c.hcl", "first", 1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	levels, err := Load(context.Background(), dir, filepath.Join(dir, "missing"))
	require.NoError(t, err)
	require.Len(t, levels, 3)
	require.Equal(t, []string{"first", "second", "third"}, []string{levels[0].Slug, levels[1].Slug, levels[2].Slug})
}

func TestLoadRejectsDuplicateIDs(t *testing.T) {
	dir := t.TempDir()
	src := "level \"a\" {\n  id = 1\n  name = \"a\"\n  size = 2\n}\nlevel \"b\" {\n  id = 1\n  name = \"b\"\n  size = 2\n}\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dup.hcl"), []byte(src), 0o644))

	_, err := Load(context.Background(), dir)
	require.ErrorContains(t, err, "duplicate level id 1")
}

func TestCurriculum(t *testing.T) {
	levels, err := Curriculum()
	require.NoError(t, err)
	require.Len(t, levels, 8)
	for i, level := range levels {
		require.Equal(t, i+1, level.ID)
		require.NotEmpty(t, level.DefaultCode, level.Slug)
		require.NotEmpty(t, level.Hint, level.Slug)
	}

	second, err := CurriculumLevel(2)
	require.NoError(t, err)
	require.Equal(t, DroneState{X: 0, Y: 2, Energy: DefaultEnergy}, second.Start)
	require.Equal(t, 6, second.Win.Wheat)
	require.Equal(t, []EntityKind{Empty, Wheat, Wheat, Wheat, Wheat, Wheat, Wheat, Empty}, second.Layout[2])

	functions, err := CurriculumLevel(8)
	require.NoError(t, err)
	require.Equal(t, 10, functions.Size)
	require.Equal(t, Wheat, functions.Layout[1][6])
	require.Equal(t, Rock, functions.Layout[1][7])

	_, err = CurriculumLevel(99)
	require.Error(t, err)
}
