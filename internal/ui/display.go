// Package ui renders a tutor session to a terminal.
package ui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/evolvecode/gridtutor/internal/anim"
	"github.com/evolvecode/gridtutor/internal/tutor"
	"github.com/evolvecode/gridtutor/internal/types"
)

// Source is the session surface the display reads.
type Source interface {
	Frames() <-chan anim.Frame
	Updates() <-chan struct{}
	View() tutor.View
}

var spinRunes = []rune("⠋⠙⠹⠸⠼⠴⠦⠧⠇⠏")

// Display streams playback and chat to w. It prints one trace line per
// animation step, a board when a run settles, and every new chat entry.
//
// Expectations:
//   - Each chat entry is printed exactly once, in order
//   - A run opens with a header and closes with the board and banner
//   - Frames from a superseded run close its box without a board
//   - While Run is active, all writes happen on the Run goroutine
type Display struct {
	w     io.Writer
	src   Source
	style Style
	spin  bool

	shows chan showReq

	mu       sync.Mutex
	lastSeen string        // id of the newest printed chat entry
	quit     chan struct{} // closed when Run returns; nil before Run
	gen      uint64
	inRun    bool
	started  time.Time
	steps    int
	spinIdx  int
}

// Option configures a Display.
type Option func(*Display)

// WithColor enables ANSI colours.
func WithColor(on bool) Option { return func(d *Display) { d.style.Color = on } }

// WithSpinner animates a status spinner while a run plays.
func WithSpinner(on bool) Option { return func(d *Display) { d.spin = on } }

// New creates a Display for src.
func New(w io.Writer, src Source, opts ...Option) *Display {
	d := &Display{w: w, src: src, shows: make(chan showReq)}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// MarkSeen suppresses every chat entry currently in the view, for callers
// that have already rendered a snapshot.
func (d *Display) MarkSeen() {
	chat := d.src.View().Chat
	d.mu.Lock()
	defer d.mu.Unlock()
	if n := len(chat); n > 0 {
		d.lastSeen = chat[n-1].ID
	}
}

type showReq struct {
	fn   func() error
	done chan error
}

// Show runs fn and then renders a full snapshot, marking its chat as
// printed. While Run is active both happen on the Run goroutine, so no
// update triggered by fn is printed twice. fn may be nil; if it fails,
// nothing is rendered.
func (d *Display) Show(fn func() error) error {
	d.mu.Lock()
	quit := d.quit
	d.mu.Unlock()
	if quit != nil {
		req := showReq{fn: fn, done: make(chan error, 1)}
		select {
		case d.shows <- req:
			return <-req.done
		case <-quit:
		}
	}
	return d.show(fn)
}

func (d *Display) show(fn func() error) error {
	if fn != nil {
		if err := fn(); err != nil {
			return err
		}
	}
	d.clearSpin()
	v := d.src.View()
	Render(d.w, v, d.style)
	d.mu.Lock()
	if n := len(v.Chat); n > 0 {
		d.lastSeen = v.Chat[n-1].ID
	}
	d.mu.Unlock()
	return nil
}

// Run is the display goroutine. It returns when ctx is done.
func (d *Display) Run(ctx context.Context) {
	quit := make(chan struct{})
	d.mu.Lock()
	d.quit = quit
	d.mu.Unlock()
	defer close(quit)

	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()

	frames := d.src.Frames()
	updates := d.src.Updates()
	for {
		select {
		case <-ctx.Done():
			if d.spin {
				fmt.Fprint(d.w, "\r\033[K")
			}
			return

		case f := <-frames:
			d.onFrame(f)

		case <-updates:
			d.drain(frames)
			d.onUpdate(d.src.View())

		case req := <-d.shows:
			req.done <- d.show(req.fn)

		case <-ticker.C:
			if !d.spin || !d.inRun {
				continue
			}
			r := spinRunes[d.spinIdx%len(spinRunes)]
			d.spinIdx++
			fmt.Fprintf(d.w, "\r%s %s", d.style.paint(ansiCyan, string(r)), tutor.BannerThinking)
		}
	}
}

// Flush applies queued frames and the current view. Call it only after Run
// has returned, so a run that settled just before shutdown still prints its
// board.
func (d *Display) Flush() {
	d.drain(d.src.Frames())
	d.onUpdate(d.src.View())
}

// drain applies frames already queued so a settled run's steps print before
// its board.
func (d *Display) drain(frames <-chan anim.Frame) {
	for {
		select {
		case f := <-frames:
			d.onFrame(f)
		default:
			return
		}
	}
}

func (d *Display) onFrame(f anim.Frame) {
	if d.inRun && f.Generation != d.gen {
		d.clearSpin()
		d.closeBox("⏭  superseded")
	}
	switch {
	case f.Playing && f.Index < 0:
		d.openBox(f.Generation)
	case d.inRun && f.Index >= 0 && f.Generation == d.gen && f.Playing:
		d.steps++
		d.clearSpin()
		fmt.Fprintf(d.w, "  ▶ step %d  %s facing %s %s\n",
			f.Index+1, f.Position, facingArrow[f.Orientation], f.Orientation)
	}
}

func (d *Display) onUpdate(v tutor.View) {
	d.printNewChat(v.Chat)
	if d.inRun && !v.Playing && v.Banner != "" && v.Banner != tutor.BannerThinking {
		d.clearSpin()
		fmt.Fprint(d.w, indent(Board(v.Grid, v.Position)))
		d.closeBox(d.style.paint(bannerColor(v.Banner), v.Banner))
	}
}

func (d *Display) printNewChat(chat []types.ChatEntry) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, e := range chat {
		if e.ID <= d.lastSeen {
			continue
		}
		d.clearSpin()
		fmt.Fprintln(d.w, ChatLine(e, chatWidth, d.style))
		d.lastSeen = e.ID
	}
}

func (d *Display) openBox(gen uint64) {
	d.gen = gen
	d.inRun = true
	d.steps = 0
	d.started = time.Now()
	fmt.Fprintf(d.w, "%s\n", d.style.paint(ansiDim, "┌─── ▶ run "+strings.Repeat("─", 40)))
}

func (d *Display) closeBox(label string) {
	d.inRun = false
	elapsed := time.Since(d.started).Round(time.Millisecond)
	fmt.Fprintf(d.w, "%s %s %s\n", d.style.paint(ansiDim, "└───"), label,
		d.style.paint(ansiDim, fmt.Sprintf("%d steps, %v", d.steps, elapsed)))
}

func (d *Display) clearSpin() {
	if d.spin {
		fmt.Fprint(d.w, "\r\033[K")
	}
}

func indent(s string) string {
	lines := strings.SplitAfter(s, "\n")
	var sb strings.Builder
	for _, l := range lines {
		if l == "" {
			continue
		}
		sb.WriteString("│ ")
		sb.WriteString(l)
	}
	return sb.String()
}
