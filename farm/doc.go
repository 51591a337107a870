// Package farm models the grid world a drone script acts on: the cells of a
// level, the drone's position and energy, and the effect handlers that are
// the only way either of them changes.
//
// Levels are authored as HCL files (see Load and Parse) and the built-in
// curriculum ships embedded in the binary (see Curriculum). A World is
// created fresh from a Level for every run, so a level's configuration is
// never mutated.
package farm
