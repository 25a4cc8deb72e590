package blocks

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/evolvecode/gridtutor/internal/types"
)

// ErrUnknownCommand is returned by Parse for tokens that name no block.
var ErrUnknownCommand = errors.New("blocks: unknown command")

var aliases = map[string]types.CommandKind{
	"f":            types.MoveForward,
	"fwd":          types.MoveForward,
	"forward":      types.MoveForward,
	"move":         types.MoveForward,
	"move forward": types.MoveForward,
	"r":            types.TurnRight,
	"right":        types.TurnRight,
	"turn right":   types.TurnRight,
	"l":            types.TurnLeft,
	"left":         types.TurnLeft,
	"turn left":    types.TurnLeft,
	"loop":         types.RepeatForward,
	"repeat":       types.RepeatForward,
}

// Normalize folds a typed token to its canonical form: NFKC (so full-width
// input from IME keyboards matches), lower case, single spaces.
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Parse maps one typed token to a command. Repeat tokens use repeatCount,
// the lesson's loop length; "Repeat 3 Times" style labels are also accepted
// as long as their count matches.
//
// Expectations:
//   - Accepts short aliases (f, r, l), words, and toolbox labels
//   - Is insensitive to case, extra spaces and full-width characters
//   - Returns ErrUnknownCommand for anything else
func Parse(token string, repeatCount int) (types.Command, error) {
	s := Normalize(token)
	if kind, ok := aliases[s]; ok {
		if kind == types.RepeatForward {
			return types.Repeat(repeatCount), nil
		}
		return types.Command{Kind: kind}, nil
	}
	if rest, ok := strings.CutPrefix(s, "repeat "); ok {
		rest = strings.TrimSuffix(rest, " times")
		var n int
		if _, err := fmt.Sscanf(rest, "%d", &n); err == nil && n == repeatCount {
			return types.Repeat(repeatCount), nil
		}
	}
	return types.Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, token)
}
