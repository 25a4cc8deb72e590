// Package tutor turns simulation results into learner-facing feedback and
// runs one learner's session: command edits, playback, hints and questions.
package tutor

import (
	"sync"

	"github.com/evolvecode/gridtutor/internal/types"
)

// Banner texts shown over the board.
const (
	BannerThinking = "Thinking..."
	BannerSuccess  = "🎉 Success!"
	BannerMistake  = "💥 Ouch!"
	BannerUnsolved = "🤔 ..."
)

const (
	genericFeedback   = "Not quite! Check your logic and try again."
	fallbackHint      = "Keep trying! You can do it."
	defaultSuccessMsg = "Great job!"
)

// Outcome is the classification of one finished run.
type Outcome struct {
	Banner    string
	MistakeID types.MistakeID
	Succeeded bool
}

// Terminal reports whether the run stopped on a mistake that ends a run
// early, as opposed to the catch-all for an unreached goal.
func (o Outcome) Terminal() bool {
	return o.MistakeID != types.NoMistake && o.MistakeID != types.MistakeUndershoot
}

// Classify maps a result to its banner and mistake id.
//
// Expectations:
//   - Success yields the success banner and no mistake
//   - UNDERSHOOT yields the unsolved banner
//   - Every other mistake yields the crash banner
func Classify(res types.SimulationResult) Outcome {
	switch {
	case res.Succeeded:
		return Outcome{Banner: BannerSuccess, Succeeded: true}
	case res.Mistake == types.MistakeUndershoot || res.Mistake == types.NoMistake:
		return Outcome{Banner: BannerUnsolved, MistakeID: types.MistakeUndershoot}
	default:
		return Outcome{Banner: BannerMistake, MistakeID: res.Mistake}
	}
}

// ResolveFeedback returns the authored feedback for id, or a generic
// encouragement with the level's first hint as a tip.
//
// Expectations:
//   - A matching common mistake is returned verbatim
//   - No id, or an id the level does not know, falls back to the generic text
//   - The generic text carries " Tip: <first hint>" when the level has hints
func ResolveFeedback(level types.LevelConfig, id types.MistakeID) string {
	if text, ok := level.Feedback(id); ok {
		return text
	}
	if len(level.StepHints) > 0 {
		return genericFeedback + " Tip: " + level.StepHints[0]
	}
	return genericFeedback
}

// SuccessMessage returns the level's success text or a default.
func SuccessMessage(level types.LevelConfig) string {
	if level.SuccessMessage != "" {
		return level.SuccessMessage
	}
	return defaultSuccessMsg
}

// HintCycler rotates through a level's step hints.
//
// Expectations:
//   - Each Next advances by one and wraps after the last hint
//   - The first call returns the second hint, matching the tutor UI where
//     the first hint is already shown as the tip
//   - With no hints, Next always returns the fallback
//   - Safe for concurrent use
type HintCycler struct {
	mu    sync.Mutex
	hints []string
	index int
}

// NewHintCycler returns a cycler positioned on the first hint.
func NewHintCycler(hints []string) *HintCycler {
	cp := make([]string, len(hints))
	copy(cp, hints)
	return &HintCycler{hints: cp}
}

// Next advances and returns the hint at the new index.
func (h *HintCycler) Next() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.hints) == 0 {
		return fallbackHint
	}
	h.index = (h.index + 1) % len(h.hints)
	return h.hints[h.index]
}
