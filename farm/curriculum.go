package farm

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sync"
)

//go:embed levels/*.hcl
var curriculumFS embed.FS

var (
	curriculumOnce   sync.Once
	curriculumLevels []*Level
	curriculumErr    error
)

// Curriculum returns the built-in lessons ordered by ID. The slice is shared;
// callers must not modify the levels.
func Curriculum() ([]*Level, error) {
	curriculumOnce.Do(func() {
		curriculumLevels, curriculumErr = loadEmbedded(curriculumFS, "levels")
	})
	return curriculumLevels, curriculumErr
}

// CurriculumLevel returns the built-in level with the given ID.
func CurriculumLevel(id int) (*Level, error) {
	levels, err := Curriculum()
	if err != nil {
		return nil, err
	}
	for _, level := range levels {
		if level.ID == id {
			return level, nil
		}
	}
	return nil, fmt.Errorf("no curriculum level with id %d", id)
}

func loadEmbedded(fsys fs.FS, dir string) ([]*Level, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}
	var levels []*Level
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".hcl" {
			continue
		}
		name := path.Join(dir, entry.Name())
		src, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, err
		}
		parsed, err := Parse(src, name)
		if err != nil {
			return nil, err
		}
		levels = append(levels, parsed...)
	}
	if err := checkUniqueIDs(levels); err != nil {
		return nil, err
	}
	sortLevels(levels)
	return levels, nil
}
