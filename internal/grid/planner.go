package grid

import "github.com/evolvecode/gridtutor/internal/types"

type planOptions struct {
	stepwiseRepeat bool
}

// Option tunes Plan.
type Option func(*planOptions)

// WithStepwiseRepeat makes RepeatForward(n) move one cell at a time with a
// bounds and obstacle check after each cell. Without it the jump is atomic
// and only the destination is checked.
func WithStepwiseRepeat() Option {
	return func(o *planOptions) { o.stepwiseRepeat = true }
}

// Plan folds commands over g starting at g.Start facing right and returns the
// whole trajectory with its outcome. It is a pure function of its inputs.
//
// Expectations:
//   - Leaving the board stops the fold with OBSTACLE_HIT; the offending step
//     is not recorded and the final position is the last valid cell
//   - Landing on an obstacle stops the fold with OBSTACLE_HIT; the crash step
//     is recorded so the trajectory ends on the obstacle cell
//   - Otherwise every command contributes exactly one step
//   - Without a terminal mistake, reaching the goal succeeds and anything
//     else is UNDERSHOOT
//   - An empty sequence yields an empty trajectory at the start cell
func Plan(commands []types.Command, g types.GridConfig, opts ...Option) types.SimulationResult {
	var po planOptions
	for _, opt := range opts {
		opt(&po)
	}
	blocked := make(map[types.Cell]struct{}, len(g.Obstacles))
	for _, o := range g.Obstacles {
		blocked[o] = struct{}{}
	}

	pos, facing := g.Start, types.InitialOrientation
	trajectory := make([]types.TrajectoryStep, 0, len(commands))
	mistake := types.NoMistake

	for i, cmd := range commands {
		next, nextFacing := Apply(pos, facing, cmd)
		if po.stepwiseRepeat && cmd.Kind == types.RepeatForward {
			next = walk(pos, facing, cmd.Count, g, blocked)
		}

		if !g.InBounds(next) {
			mistake = types.MistakeObstacleHit
			break
		}
		pos, facing = next, nextFacing
		trajectory = append(trajectory, types.TrajectoryStep{Position: pos, Orientation: facing, SourceIndex: i})
		if _, hit := blocked[pos]; hit {
			mistake = types.MistakeObstacleHit
			break
		}
	}

	res := types.SimulationResult{
		Trajectory:       trajectory,
		FinalPosition:    pos,
		FinalOrientation: facing,
		Mistake:          mistake,
	}
	if mistake == types.NoMistake {
		if pos == g.Goal {
			res.Succeeded = true
		} else {
			res.Mistake = types.MistakeUndershoot
		}
	}
	return res
}

// walk advances one cell at a time for n cells and returns the first cell
// that is off the board or blocked, or the destination if none is.
func walk(pos types.Cell, facing types.Orientation, n int, g types.GridConfig, blocked map[types.Cell]struct{}) types.Cell {
	for k := 0; k < n; k++ {
		pos = Translate(pos, facing, 1)
		if !g.InBounds(pos) {
			return pos
		}
		if _, hit := blocked[pos]; hit {
			return pos
		}
	}
	return pos
}
