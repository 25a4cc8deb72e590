package grid

import (
	"errors"
	"fmt"

	"github.com/evolvecode/gridtutor/internal/types"
)

// ErrInvalidGrid wraps every structural grid error.
var ErrInvalidGrid = errors.New("invalid grid")

// Validate checks the structural invariants of g. The planner must never be
// handed a grid that fails this check.
//
// Expectations:
//   - Rejects a non-positive size
//   - Rejects start, goal or any obstacle outside [0,size)x[0,size)
//   - Rejects a goal or start that is also an obstacle
//   - Every returned error wraps ErrInvalidGrid
func Validate(g types.GridConfig) error {
	if g.Size <= 0 {
		return fmt.Errorf("%w: size must be positive, got %d", ErrInvalidGrid, g.Size)
	}
	if !g.InBounds(g.Start) {
		return fmt.Errorf("%w: start %s outside %dx%d grid", ErrInvalidGrid, g.Start, g.Size, g.Size)
	}
	if !g.InBounds(g.Goal) {
		return fmt.Errorf("%w: goal %s outside %dx%d grid", ErrInvalidGrid, g.Goal, g.Size, g.Size)
	}
	for i, o := range g.Obstacles {
		if !g.InBounds(o) {
			return fmt.Errorf("%w: obstacles[%d] %s outside %dx%d grid", ErrInvalidGrid, i, o, g.Size, g.Size)
		}
		if o == g.Goal {
			return fmt.Errorf("%w: obstacles[%d] %s is the goal", ErrInvalidGrid, i, o)
		}
		if o == g.Start {
			return fmt.Errorf("%w: obstacles[%d] %s is the start", ErrInvalidGrid, i, o)
		}
	}
	return nil
}
