// Package anim replays a planned trajectory one step at a time.
//
// Exactly one run is live per Animator. Every run owns a generation number;
// starting a new run bumps the generation and cancels the old run's timers,
// and a step is applied only by the goroutine that owns the current
// generation. Superseded runs therefore never touch the observable state and
// never report completion.
package anim

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/evolvecode/gridtutor/internal/types"
)

const (
	DefaultInterval = 600 * time.Millisecond
	DefaultSettle   = 400 * time.Millisecond

	frameBufSize = 64
)

// Frame is one observable avatar state. Index is -1 for the reset frame that
// precedes the first step.
type Frame struct {
	Generation  uint64            `json:"generation"`
	Position    types.Cell        `json:"position"`
	Orientation types.Orientation `json:"orientation"`
	Index       int               `json:"index"`
	Playing     bool              `json:"playing"`
}

// Option configures an Animator.
type Option func(*Animator)

// WithInterval sets the delay between steps.
func WithInterval(d time.Duration) Option { return func(a *Animator) { a.interval = d } }

// WithSettle sets the pause between the reset frame and the first step.
func WithSettle(d time.Duration) Option { return func(a *Animator) { a.settle = d } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(a *Animator) { a.logger = l } }

// Animator is the scheduler for trajectory playback.
//
// Expectations:
//   - Play supersedes any in-flight run before starting its own
//   - A superseded or cancelled run applies no further steps and never calls done
//   - Frames are published in the order they are applied
//   - Close cancels the live run and waits for its goroutine to exit
type Animator struct {
	interval time.Duration
	settle   time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	gen     uint64
	cancel  context.CancelFunc
	pos     types.Cell
	facing  types.Orientation
	index   int
	playing bool
	closed  bool

	frames chan Frame
	wg     sync.WaitGroup
}

// New creates an idle Animator positioned at start.
func New(start types.Cell, opts ...Option) *Animator {
	a := &Animator{
		interval: DefaultInterval,
		settle:   DefaultSettle,
		logger:   zap.NewNop(),
		pos:      start,
		facing:   types.InitialOrientation,
		index:    -1,
		frames:   make(chan Frame, frameBufSize),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Frames returns the read-only frame channel. Frames are dropped when the
// consumer falls behind; Snapshot is always authoritative.
func (a *Animator) Frames() <-chan Frame {
	return a.frames
}

// Play resets the avatar to start, then replays steps after the settle delay.
// done runs on the animator goroutine with the run's generation once the last
// step has been shown, and only if the run is still current. The returned
// generation is 0 if the Animator is closed.
func (a *Animator) Play(ctx context.Context, start types.Cell, steps []types.TrajectoryStep, done func(gen uint64)) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return 0
	}
	a.supersedeLocked()
	a.gen++
	gen := a.gen
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.pos, a.facing, a.index, a.playing = start, types.InitialOrientation, -1, true
	a.publishLocked()

	a.logger.Debug("[ANIM] run started", zap.Uint64("gen", gen), zap.Int("steps", len(steps)))
	a.wg.Add(1)
	go a.run(runCtx, gen, steps, done)
	return gen
}

// Reset cancels any live run and puts the avatar back at start.
func (a *Animator) Reset(start types.Cell) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.supersedeLocked()
	a.gen++
	a.pos, a.facing, a.index, a.playing = start, types.InitialOrientation, -1, false
	a.publishLocked()
}

// Cancel abandons the live run, leaving the avatar where it is.
func (a *Animator) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.supersedeLocked()
	a.gen++
	a.playing = false
}

// Close cancels the live run and waits until no animator goroutine remains.
// Safe to call more than once.
func (a *Animator) Close() {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		a.supersedeLocked()
		a.gen++
		a.playing = false
	}
	a.mu.Unlock()
	a.wg.Wait()
}

// Snapshot returns the current observable state.
func (a *Animator) Snapshot() Frame {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.frameLocked()
}

func (a *Animator) run(ctx context.Context, gen uint64, steps []types.TrajectoryStep, done func(uint64)) {
	defer a.wg.Done()

	if !sleep(ctx, a.settle) {
		return
	}
	for i, step := range steps {
		if !a.apply(gen, i, step) {
			return
		}
		if !sleep(ctx, a.interval) {
			return
		}
	}
	if !a.finish(gen) {
		return
	}
	if done != nil {
		done(gen)
	}
}

// apply shows step i if gen still owns the animator.
func (a *Animator) apply(gen uint64, i int, step types.TrajectoryStep) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.gen != gen {
		return false
	}
	a.pos, a.facing, a.index = step.Position, step.Orientation, i
	a.publishLocked()
	return true
}

func (a *Animator) finish(gen uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.gen != gen {
		return false
	}
	a.playing = false
	a.cancel()
	a.cancel = nil
	a.publishLocked()
	a.logger.Debug("[ANIM] run finished", zap.Uint64("gen", gen))
	return true
}

func (a *Animator) supersedeLocked() {
	if a.cancel != nil {
		a.logger.Debug("[ANIM] run superseded", zap.Uint64("gen", a.gen))
		a.cancel()
		a.cancel = nil
	}
}

func (a *Animator) frameLocked() Frame {
	return Frame{
		Generation:  a.gen,
		Position:    a.pos,
		Orientation: a.facing,
		Index:       a.index,
		Playing:     a.playing,
	}
}

// publishLocked sends the current frame without blocking. Sending under the
// lock keeps frames in application order.
func (a *Animator) publishLocked() {
	select {
	case a.frames <- a.frameLocked():
	default:
		a.logger.Debug("[ANIM] frame channel full, frame dropped", zap.Uint64("gen", a.gen))
	}
}

// sleep waits for d or until ctx is done. It reports whether the wait
// completed without cancellation.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
