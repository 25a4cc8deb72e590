package ui

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evolvecode/gridtutor/internal/anim"
	"github.com/evolvecode/gridtutor/internal/tutor"
	"github.com/evolvecode/gridtutor/internal/types"
)

// syncBuffer is a bytes.Buffer safe for one writer and one reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type fakeSource struct {
	frames  chan anim.Frame
	updates chan struct{}

	mu   sync.Mutex
	view tutor.View
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		frames:  make(chan anim.Frame, 16),
		updates: make(chan struct{}, 1),
		view:    tutor.View{Grid: board()},
	}
}

func (f *fakeSource) Frames() <-chan anim.Frame { return f.frames }
func (f *fakeSource) Updates() <-chan struct{}  { return f.updates }

func (f *fakeSource) View() tutor.View {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.view
}

func (f *fakeSource) set(fn func(v *tutor.View)) {
	f.mu.Lock()
	fn(&f.view)
	f.mu.Unlock()
	select {
	case f.updates <- struct{}{}:
	default:
	}
}

func runDisplay(t *testing.T, src Source) (*syncBuffer, func()) {
	t.Helper()
	out := &syncBuffer{}
	d := New(out, src)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()
	return out, func() {
		cancel()
		<-done
	}
}

func TestDisplay_RunBoxWithStepsAndBoard(t *testing.T) {
	// A run prints its header, one line per step, then the board and banner
	src := newFakeSource()
	out, stop := runDisplay(t, src)
	defer stop()

	src.frames <- anim.Frame{Generation: 1, Position: types.Cell{}, Orientation: types.Right, Index: -1, Playing: true}
	src.frames <- anim.Frame{Generation: 1, Position: types.Cell{Row: 0, Col: 1}, Orientation: types.Right, Index: 0, Playing: true}
	src.frames <- anim.Frame{Generation: 1, Position: types.Cell{Row: 0, Col: 2}, Orientation: types.Right, Index: 1, Playing: true}
	src.set(func(v *tutor.View) {
		v.Position = types.Cell{Row: 0, Col: 2}
		v.Banner = tutor.BannerSuccess
		v.Playing = false
	})

	require.Eventually(t, func() bool { return strings.Contains(out.String(), "└───") }, time.Second, 5*time.Millisecond)
	got := out.String()
	assert.Contains(t, got, "┌─── ▶ run")
	assert.Contains(t, got, "▶ step 1  (0,1) facing → right")
	assert.Contains(t, got, "▶ step 2  (0,2)")
	assert.Contains(t, got, tutor.BannerSuccess)
	assert.Contains(t, got, "2 steps")
	assert.Less(t, strings.Index(got, "step 2"), strings.Index(got, "└───"))
}

func TestDisplay_SupersededRunClosesBox(t *testing.T) {
	// A frame from a newer generation closes the old box as superseded
	src := newFakeSource()
	out, stop := runDisplay(t, src)
	defer stop()

	src.frames <- anim.Frame{Generation: 1, Index: -1, Playing: true}
	src.frames <- anim.Frame{Generation: 2, Index: -1, Playing: true}

	require.Eventually(t, func() bool { return strings.Count(out.String(), "┌───") == 2 }, time.Second, 5*time.Millisecond)
	assert.Contains(t, out.String(), "superseded")
}

func TestDisplay_ChatPrintedOnce(t *testing.T) {
	// Chat entries are printed once even when the view is re-read
	src := newFakeSource()
	out, stop := runDisplay(t, src)
	defer stop()

	goal := types.ChatEntry{ID: "01A", Role: types.ChatTutor, Kind: types.EntryText, Content: "🎯 Reach the flower"}
	src.set(func(v *tutor.View) { v.Chat = []types.ChatEntry{goal} })
	hint := types.ChatEntry{ID: "01B", Role: types.ChatTutor, Kind: types.EntryText, Content: "💡 Count squares"}
	src.set(func(v *tutor.View) { v.Chat = []types.ChatEntry{goal, hint} })

	require.Eventually(t, func() bool { return strings.Contains(out.String(), "Count squares") }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, strings.Count(out.String(), "Reach the flower"))
}

func TestDisplay_MarkSeenSkipsExistingChat(t *testing.T) {
	// Entries present at MarkSeen time are not printed again
	src := newFakeSource()
	src.view.Chat = []types.ChatEntry{{ID: "01A", Role: types.ChatTutor, Content: "old"}}
	out := &syncBuffer{}
	d := New(out, src)
	d.MarkSeen()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { d.Run(ctx); close(done) }()

	src.set(func(v *tutor.View) {
		v.Chat = append(v.Chat, types.ChatEntry{ID: "01B", Role: types.ChatTutor, Content: "new"})
	})
	require.Eventually(t, func() bool { return strings.Contains(out.String(), "new") }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
	assert.NotContains(t, out.String(), "old")
}

func TestDisplay_FlushAfterRun(t *testing.T) {
	// Flush prints frames and the settled board left over after Run returns
	src := newFakeSource()
	out := &syncBuffer{}
	d := New(out, src)

	src.frames <- anim.Frame{Generation: 1, Index: -1, Playing: true}
	src.frames <- anim.Frame{Generation: 1, Position: types.Cell{Row: 0, Col: 1}, Orientation: types.Right, Index: 0, Playing: true}
	src.view.Position = types.Cell{Row: 0, Col: 1}
	src.view.Banner = tutor.BannerUnsolved
	d.Flush()

	got := out.String()
	assert.Contains(t, got, "▶ step 1")
	assert.Contains(t, got, tutor.BannerUnsolved)
	assert.Contains(t, got, "1 steps")
}

func TestDisplay_SpinnerWhileRunInFlight(t *testing.T) {
	// With the spinner on, an open run shows a spinning Thinking status
	src := newFakeSource()
	out := &syncBuffer{}
	d := New(out, src, WithSpinner(true))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { d.Run(ctx); close(done) }()
	defer func() { cancel(); <-done }()

	src.frames <- anim.Frame{Generation: 1, Index: -1, Playing: true}
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "\r⠋ "+tutor.BannerThinking)
	}, time.Second, 5*time.Millisecond)
}

func TestDisplay_SpinnerOffByDefault(t *testing.T) {
	// Without the spinner no carriage-return status is written
	src := newFakeSource()
	out, stop := runDisplay(t, src)
	src.frames <- anim.Frame{Generation: 1, Index: -1, Playing: true}
	require.Eventually(t, func() bool { return strings.Contains(out.String(), "┌───") }, time.Second, 5*time.Millisecond)
	time.Sleep(200 * time.Millisecond)
	stop()
	assert.NotContains(t, out.String(), "\r")
}

func TestDisplay_ShowPrintsChatOnce(t *testing.T) {
	// Chat added by the Show action is rendered once, not again by its update
	src := newFakeSource()
	out := &syncBuffer{}
	d := New(out, src)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { d.Run(ctx); close(done) }()
	defer func() { cancel(); <-done }()

	require.Eventually(t, func() bool {
		d.mu.Lock()
		defer d.mu.Unlock()
		return d.quit != nil
	}, time.Second, time.Millisecond)

	err := d.Show(func() error {
		src.set(func(v *tutor.View) {
			v.Chat = []types.ChatEntry{{ID: "01A", Role: types.ChatTutor, Content: "🎯 New goal"}}
		})
		return nil
	})
	require.NoError(t, err)
	src.set(func(v *tutor.View) {
		v.Chat = append(v.Chat, types.ChatEntry{ID: "01B", Role: types.ChatTutor, Content: "after"})
	})
	require.Eventually(t, func() bool { return strings.Contains(out.String(), "after") }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, strings.Count(out.String(), "🎯 New goal"))
}

func TestDisplay_ShowWithoutRun(t *testing.T) {
	// Before Run starts, Show renders inline; a failing action renders nothing
	src := newFakeSource()
	out := &syncBuffer{}
	d := New(out, src)

	assert.EqualError(t, d.Show(func() error { return assert.AnError }), assert.AnError.Error())
	assert.Empty(t, out.String())
	require.NoError(t, d.Show(nil))
	assert.Contains(t, out.String(), "facing")
}
