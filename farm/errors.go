package farm

import "fmt"

// BoundsError is returned by a move that would leave the grid. The drone's
// position is unchanged when it is returned.
type BoundsError struct {
	Direction Direction
	X, Y      int
	Size      int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("cannot move %s from (%d, %d): the drone would leave the %dx%d field", e.Direction, e.X, e.Y, e.Size, e.Size)
}
