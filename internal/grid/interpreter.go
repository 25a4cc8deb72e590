// Package grid is the pure simulation core: it interprets movement commands
// on a bounded square board and folds a command sequence into a trajectory.
//
// Nothing in this package blocks, logs, or keeps state between calls.
package grid

import "github.com/evolvecode/gridtutor/internal/types"

// TurnRight rotates o by +90 degrees.
func TurnRight(o types.Orientation) types.Orientation {
	return (o + 90).Normalize()
}

// TurnLeft rotates o by -90 degrees.
func TurnLeft(o types.Orientation) types.Orientation {
	return (o - 90 + 360).Normalize()
}

// Offset returns the unit (row, col) delta for facing o.
func Offset(o types.Orientation) (dRow, dCol int) {
	switch o.Normalize() {
	case types.Up:
		return -1, 0
	case types.Down:
		return 1, 0
	case types.Right:
		return 0, 1
	case types.Left:
		return 0, -1
	}
	return 0, 0
}

// Translate moves pos by n cells in direction o.
func Translate(pos types.Cell, o types.Orientation, n int) types.Cell {
	dr, dc := Offset(o)
	return types.Cell{Row: pos.Row + dr*n, Col: pos.Col + dc*n}
}

// Apply computes the avatar state after cmd. It is total: the returned cell
// may lie outside the board, bounds are the caller's concern.
//
// Expectations:
//   - TurnRight/TurnLeft rotate by 90 degrees and never move
//   - MoveForward moves exactly one cell in the current facing
//   - RepeatForward(n) moves exactly n cells in one jump
//   - Unknown command kinds leave the state unchanged
func Apply(pos types.Cell, o types.Orientation, cmd types.Command) (types.Cell, types.Orientation) {
	switch cmd.Kind {
	case types.TurnRight:
		return pos, TurnRight(o)
	case types.TurnLeft:
		return pos, TurnLeft(o)
	case types.MoveForward, types.RepeatForward:
		return Translate(pos, o, cmd.Distance()), o
	}
	return pos, o
}
