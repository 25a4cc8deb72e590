package tutor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/evolvecode/gridtutor/internal/anim"
	"github.com/evolvecode/gridtutor/internal/blocks"
	"github.com/evolvecode/gridtutor/internal/chatlog"
	"github.com/evolvecode/gridtutor/internal/curriculum"
	"github.com/evolvecode/gridtutor/internal/grid"
	"github.com/evolvecode/gridtutor/internal/types"
)

var (
	ErrClosed      = errors.New("tutor: session closed")
	ErrNotEditable = errors.New("tutor: only the latest batch can be edited")
	ErrNotPlayable = errors.New("tutor: lesson has no grid")
)

// DefaultQuietBelow is the block count under which an unreached goal gets a
// banner but no tutor message.
const DefaultQuietBelow = 3

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(s *Session) { s.logger = l } }

// WithBackend sets the tutor backend used by Ask and Mission.
func WithBackend(b Backend) Option { return func(s *Session) { s.backend = b } }

// WithTiming sets the animation step interval and settle delay.
func WithTiming(interval, settle time.Duration) Option {
	return func(s *Session) { s.interval, s.settle = interval, settle }
}

// WithChatLimit sets the chat window size.
func WithChatLimit(n int) Option { return func(s *Session) { s.chatLimit = n } }

// WithQuietBelow sets the block count under which unreached goals are not
// commented on.
func WithQuietBelow(n int) Option { return func(s *Session) { s.quietBelow = n } }

// WithStepwiseRepeat plans RepeatForward one cell at a time.
func WithStepwiseRepeat() Option {
	return func(s *Session) { s.planOpts = append(s.planOpts, grid.WithStepwiseRepeat()) }
}

// WithTranscript writes a JSONL transcript to <dir>/<session id>.jsonl on fs.
func WithTranscript(fs afero.Fs, dir string) Option {
	return func(s *Session) { s.transcriptFs, s.transcriptDir = fs, dir }
}

// run is the bookkeeping of the in-flight playback.
type run struct {
	gen    uint64
	result types.SimulationResult
	blocks int
}

// View is the read model consumed by the view layer.
type View struct {
	SessionID   string
	Lesson      curriculum.Lesson
	Grid        types.GridConfig
	Position    types.Cell
	Orientation types.Orientation
	Step        int
	Playing     bool
	Banner      string
	Mission     string
	Chat        []types.ChatEntry
	Blocks      []blocks.Block
	LastResult  *types.SimulationResult
}

// Session is one learner's tutoring context. It owns the command sequence,
// chat log, hint cycler and animator of the current lesson.
//
// Expectations:
//   - Every change to the command sequence supersedes the in-flight run
//   - An empty sequence resets the avatar without any chat entry
//   - Only the current run's completion updates banner and chat
//   - Only the latest batch entry accepts block removal
//   - Backend failures degrade to fixed fallback texts
//   - Close stops playback and leaves no goroutines behind
type Session struct {
	id            string
	logger        *zap.Logger
	backend       Backend
	interval      time.Duration
	settle        time.Duration
	chatLimit     int
	quietBelow    int
	planOpts      []grid.Option
	transcriptFs  afero.Fs
	transcriptDir string

	ctx        context.Context
	cancel     context.CancelFunc
	anim       *anim.Animator
	transcript *chatlog.Transcript
	updates    chan struct{}

	mu      sync.Mutex
	closed  bool
	lesson  curriculum.Lesson
	level   types.LevelConfig
	program *blocks.Program
	chat    *chatlog.Log
	hints   *HintCycler
	banner  string
	mission string
	pending *run
	last    *types.SimulationResult
	idle    chan struct{}
}

// New starts a session on lesson and announces the level goal.
func New(lesson curriculum.Lesson, level types.LevelConfig, opts ...Option) (*Session, error) {
	if err := checkLesson(lesson); err != nil {
		return nil, err
	}
	s := &Session{
		id:         uuid.NewString(),
		logger:     zap.NewNop(),
		interval:   anim.DefaultInterval,
		settle:     anim.DefaultSettle,
		chatLimit:  chatlog.DefaultLimit,
		quietBelow: DefaultQuietBelow,
		updates:    make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("session", s.id))

	if s.transcriptFs != nil && s.transcriptDir != "" {
		tr, err := chatlog.OpenTranscript(s.transcriptFs, s.transcriptDir, s.id, lesson.ID, s.logger)
		if err != nil {
			return nil, err
		}
		s.transcript = tr
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.anim = anim.New(lesson.Grid.Start,
		anim.WithInterval(s.interval),
		anim.WithSettle(s.settle),
		anim.WithLogger(s.logger))
	s.loadLocked(lesson, level)
	s.logger.Info("[SESSION] started", zap.String("lesson", lesson.ID))
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Frames streams avatar states as the animator applies them.
func (s *Session) Frames() <-chan anim.Frame { return s.anim.Frames() }

// Updates receives a signal whenever the banner or chat changes. Signals
// coalesce; readers should re-read View.
func (s *Session) Updates() <-chan struct{} { return s.updates }

// SwitchLesson abandons the current lesson and starts lesson with a fresh
// command sequence, chat log and hint cycle.
func (s *Session) SwitchLesson(lesson curriculum.Lesson, level types.LevelConfig) error {
	if err := checkLesson(lesson); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.loadLocked(lesson, level)
	s.logger.Info("[SESSION] lesson switched", zap.String("lesson", lesson.ID))
	return nil
}

// checkLesson rejects lessons without a board or with a malformed one.
func checkLesson(lesson curriculum.Lesson) error {
	if !lesson.Playable() {
		return fmt.Errorf("%w: %s", ErrNotPlayable, lesson.ID)
	}
	if err := grid.Validate(*lesson.Grid); err != nil {
		return fmt.Errorf("tutor: lesson %s: %w", lesson.ID, err)
	}
	return nil
}

func (s *Session) loadLocked(lesson curriculum.Lesson, level types.LevelConfig) {
	s.lesson, s.level = lesson, level
	s.program = blocks.New()
	s.chat = chatlog.New(s.chatLimit, chatlog.WithTranscript(s.transcript))
	s.hints = NewHintCycler(level.StepHints)
	s.banner, s.mission, s.pending, s.last = "", "", nil, nil
	s.anim.Reset(lesson.Grid.Start)
	s.markIdleLocked()
	s.chat.Tutor("🎯 " + level.GoalText)
	s.notify()
}

// AddBlock appends cmd and replays the whole sequence.
func (s *Session) AddBlock(cmd types.Command) (blocks.ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	id := s.program.Append(cmd)
	s.commitLocked()
	return id, nil
}

// AddBlocks appends cmds as one edit: a single batch entry and a single run.
func (s *Session) AddBlocks(cmds ...types.Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if len(cmds) == 0 {
		return nil
	}
	for _, cmd := range cmds {
		s.program.Append(cmd)
	}
	s.commitLocked()
	return nil
}

// RemoveBlock removes the block at index from the batch shown by entryID,
// which must be the latest batch.
func (s *Session) RemoveBlock(entryID string, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if !s.chat.Editable(entryID) {
		return fmt.Errorf("%w: entry %s", ErrNotEditable, entryID)
	}
	if _, err := s.program.RemoveAt(index); err != nil {
		return err
	}
	s.commitLocked()
	return nil
}

// RemoveBlockByID removes the block with handle id.
func (s *Session) RemoveBlockByID(id blocks.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, err := s.program.Remove(id); err != nil {
		return err
	}
	s.commitLocked()
	return nil
}

// Clear empties the command sequence and resets the avatar.
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.program.Clear()
	s.commitLocked()
	return nil
}

// commitLocked reacts to a sequence change: an empty sequence resets, any
// other sequence is logged as a batch, planned and replayed.
func (s *Session) commitLocked() {
	start := s.lesson.Grid.Start
	if s.program.Len() == 0 {
		s.anim.Reset(start)
		s.banner, s.pending = "", nil
		s.markIdleLocked()
		s.notify()
		s.logger.Debug("[SESSION] sequence empty, avatar reset")
		return
	}

	payload, err := s.program.MarshalBatch()
	if err != nil {
		s.logger.Error("[SESSION] marshal batch", zap.Error(err))
		return
	}
	s.chat.Batch(payload)
	s.banner = BannerThinking

	res := grid.Plan(s.program.Commands(), *s.lesson.Grid, s.planOpts...)
	gen := s.anim.Play(s.ctx, start, res.Trajectory, s.onDone)
	s.pending = &run{gen: gen, result: res, blocks: s.program.Len()}
	if s.idle == nil || isClosed(s.idle) {
		s.idle = make(chan struct{})
	}
	s.notify()
	s.logger.Debug("[SESSION] run started",
		zap.Uint64("gen", gen),
		zap.Int("blocks", s.program.Len()),
		zap.Int("steps", len(res.Trajectory)))
}

// onDone runs on the animator goroutine when a run finishes. Results of
// superseded runs are discarded.
func (s *Session) onDone(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.pending == nil || s.pending.gen != gen {
		s.logger.Debug("[SESSION] stale run ignored", zap.Uint64("gen", gen))
		return
	}
	r := s.pending
	s.pending = nil
	s.last = &r.result

	out := Classify(r.result)
	s.banner = out.Banner
	switch {
	case out.Succeeded:
		s.chat.Tutor("⭐ " + SuccessMessage(s.level))
	case out.Terminal():
		s.chat.Tutor(ResolveFeedback(s.level, out.MistakeID))
	case r.blocks >= s.quietBelow:
		s.chat.Tutor(ResolveFeedback(s.level, out.MistakeID))
	}
	s.transcript.Outcome(r.blocks, r.result)
	s.markIdleLocked()
	s.notify()

	s.logger.Info("[SESSION] run finished",
		zap.Uint64("gen", gen),
		zap.Bool("succeeded", r.result.Succeeded),
		zap.String("mistake", string(r.result.Mistake)),
		zap.Stringer("final", r.result.FinalPosition))
}

// Settle blocks until no run is in flight or ctx is done.
func (s *Session) Settle(ctx context.Context) error {
	s.mu.Lock()
	ch := s.idle
	s.mu.Unlock()
	if ch == nil {
		return nil
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NextHint advances the hint cycle and posts the hint to the chat.
func (s *Session) NextHint() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrClosed
	}
	hint := s.hints.Next()
	s.chat.Tutor("💡 " + hint)
	s.notify()
	return hint, nil
}

// Ask posts question to the chat, asks the backend and posts its reply.
// Backend problems never surface as errors; the reply is a fallback text.
func (s *Session) Ask(ctx context.Context, question string) (string, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", ErrClosed
	}
	s.chat.UserText(question)
	req := s.requestLocked()
	req.Question = question
	s.notify()
	s.mu.Unlock()

	reply := s.reply(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrClosed
	}
	s.chat.Tutor(reply)
	s.notify()
	return reply, nil
}

func (s *Session) reply(ctx context.Context, req Request) string {
	if s.backend == nil || !s.backend.Ready() {
		return FallbackNoKey
	}
	text, err := s.backend.Reply(ctx, req)
	if err != nil {
		s.logger.Warn("[TUTOR] reply failed", zap.Error(err))
		return FallbackReply
	}
	return text
}

// Mission asks the backend for a short mission for the current lesson and
// stores it for the view and later questions.
func (s *Session) Mission(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", ErrClosed
	}
	req := s.requestLocked()
	lessonID := s.lesson.ID
	s.mu.Unlock()

	mission := FallbackMission
	if s.backend != nil && s.backend.Ready() {
		text, err := s.backend.Mission(ctx, req)
		if err != nil {
			s.logger.Warn("[TUTOR] mission failed", zap.Error(err))
		} else {
			mission = text
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrClosed
	}
	if s.lesson.ID == lessonID {
		s.mission = mission
		s.notify()
	}
	return mission, nil
}

func (s *Session) requestLocked() Request {
	return Request{
		Stage:   s.lesson.Stage,
		Mission: s.mission,
		Lesson:  s.lesson,
		Program: s.program.Labels(),
	}
}

// View returns a consistent snapshot of the read model.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.anim.Snapshot()
	v := View{
		SessionID:   s.id,
		Lesson:      s.lesson,
		Grid:        *s.lesson.Grid,
		Position:    f.Position,
		Orientation: f.Orientation,
		Step:        f.Index,
		Playing:     f.Playing,
		Banner:      s.banner,
		Mission:     s.mission,
		Chat:        s.chat.Entries(),
		Blocks:      s.program.Blocks(),
	}
	if s.last != nil {
		res := *s.last
		v.LastResult = &res
	}
	return v
}

// LatestBatch returns the id of the editable batch entry, if any.
func (s *Session) LatestBatch() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.chat.Latest()
	return e.ID, ok
}

// Close stops playback and ends the transcript. Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.pending = nil
	s.cancel()
	s.markIdleLocked()
	s.mu.Unlock()

	// onDone takes s.mu, so the animator must be drained without holding it.
	s.anim.Close()
	s.transcript.Close("closed")
	s.logger.Info("[SESSION] closed")
}

func (s *Session) markIdleLocked() {
	if s.idle != nil && !isClosed(s.idle) {
		close(s.idle)
	}
}

// notify signals Updates without blocking.
func (s *Session) notify() {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}

func isClosed(ch chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
