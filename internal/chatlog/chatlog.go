// Package chatlog is the tutor session transcript that drives the chat view.
//
// The log is a sliding window: once it holds more than its limit, the oldest
// entries are evicted except the first one, which announces the session goal.
// Only the most recent user batch is marked IsLatest, so only that batch is
// eligible for block removal.
package chatlog

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/evolvecode/gridtutor/internal/types"
)

// DefaultLimit is the window size observed in the tutor UI.
const DefaultLimit = 10

// Option configures a Log.
type Option func(*Log)

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option { return func(l *Log) { l.now = now } }

// WithTranscript mirrors every appended entry to t.
func WithTranscript(t *Transcript) Option { return func(l *Log) { l.transcript = t } }

// Log is the bounded chat history of one session.
//
// Expectations:
//   - Len never exceeds the limit after Append returns
//   - The first entry ever appended is never evicted
//   - Remaining entries keep chronological order
//   - Appending a batch entry clears IsLatest on every earlier batch
//   - Entry IDs are ULIDs, strictly increasing within a Log
//   - Safe for concurrent use
type Log struct {
	mu         sync.Mutex
	limit      int
	entries    []types.ChatEntry
	entropy    io.Reader
	now        func() time.Time
	transcript *Transcript
}

// New creates an empty Log holding at most limit entries. Limits below 2 are
// raised to 2 so the goal entry and the newest entry always fit.
func New(limit int, opts ...Option) *Log {
	if limit < 2 {
		limit = 2
	}
	l := &Log{
		limit:   limit,
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append stores e, filling in ID and Timestamp when empty, and returns the
// stored entry.
func (l *Log) Append(e types.ChatEntry) types.ChatEntry {
	l.mu.Lock()
	if e.Timestamp.IsZero() {
		e.Timestamp = l.now()
	}
	if e.ID == "" {
		e.ID = ulid.MustNew(ulid.Timestamp(e.Timestamp), l.entropy).String()
	}
	if e.Kind == types.EntryBlocks {
		for i := range l.entries {
			l.entries[i].IsLatest = false
		}
		e.IsLatest = true
	}
	l.entries = append(l.entries, e)
	if len(l.entries) > l.limit {
		kept := make([]types.ChatEntry, 0, l.limit)
		kept = append(kept, l.entries[0])
		kept = append(kept, l.entries[len(l.entries)-(l.limit-1):]...)
		l.entries = kept
	}
	l.mu.Unlock()

	l.transcript.Entry(e)
	return e
}

// Tutor appends a tutor text entry.
func (l *Log) Tutor(text string) types.ChatEntry {
	return l.Append(types.ChatEntry{Role: types.ChatTutor, Kind: types.EntryText, Content: text})
}

// UserText appends a free-text learner entry, such as a question.
func (l *Log) UserText(text string) types.ChatEntry {
	return l.Append(types.ChatEntry{Role: types.ChatUser, Kind: types.EntryText, Content: text})
}

// Batch appends a learner command batch. payload is a JSON array of block
// labels.
func (l *Log) Batch(payload string) types.ChatEntry {
	return l.Append(types.ChatEntry{Role: types.ChatUser, Kind: types.EntryBlocks, Content: payload})
}

// Entries returns a copy of the window in chronological order.
func (l *Log) Entries() []types.ChatEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]types.ChatEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries in the window.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Latest returns the batch entry currently marked IsLatest. It may have been
// evicted from the window, in which case ok is false.
func (l *Log) Latest() (types.ChatEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].IsLatest {
			return l.entries[i], true
		}
	}
	return types.ChatEntry{}, false
}

// Editable reports whether the entry with id is the latest batch.
func (l *Log) Editable(id string) bool {
	e, ok := l.Latest()
	return ok && e.ID == id
}
