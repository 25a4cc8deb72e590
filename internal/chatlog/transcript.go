package chatlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/evolvecode/gridtutor/internal/types"
)

// EventKind labels one line of a transcript file.
type EventKind string

const (
	KindSessionBegin EventKind = "session_begin"
	KindSessionEnd   EventKind = "session_end"
	KindChatEntry    EventKind = "chat_entry"
	KindRunOutcome   EventKind = "run_outcome"
)

// Event is one JSONL line. Fields are omitempty so each kind only carries
// what it needs.
type Event struct {
	Kind      EventKind `json:"kind"`
	Timestamp string    `json:"ts"`

	// session_begin / session_end
	SessionID string `json:"session_id,omitempty"`
	LessonID  string `json:"lesson_id,omitempty"`
	Status    string `json:"status,omitempty"`
	ElapsedMs int64  `json:"elapsed_ms,omitempty"`
	Runs      int    `json:"runs,omitempty"`
	Successes int    `json:"successes,omitempty"`

	// chat_entry
	Entry *types.ChatEntry `json:"entry,omitempty"`

	// run_outcome
	Blocks    int             `json:"blocks,omitempty"`
	Succeeded *bool           `json:"succeeded,omitempty"` // pointer: false must be serialised
	Mistake   types.MistakeID `json:"mistake,omitempty"`
	Final     *types.Cell     `json:"final,omitempty"`
}

// Transcript appends session events to one JSONL file.
//
// Expectations:
//   - All methods are nil-safe (no-op on nil receiver), so callers never
//     check whether transcripts are enabled
//   - OpenTranscript writes session_begin as the first line
//   - Close writes session_end with run and success counts, then closes the file
//   - Writes after Close are dropped
type Transcript struct {
	sessionID string
	started   time.Time
	logger    *zap.Logger

	mu        sync.Mutex
	f         afero.File
	runs      int
	successes int
}

// OpenTranscript creates dir on fs if needed and opens <dir>/<sessionID>.jsonl
// for appending.
func OpenTranscript(fs afero.Fs, dir, sessionID, lessonID string, logger *zap.Logger) (*Transcript, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("chatlog: create transcript dir: %w", err)
	}
	path := filepath.Join(dir, sessionID+".jsonl")
	f, err := fs.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("chatlog: open transcript: %w", err)
	}
	t := &Transcript{sessionID: sessionID, started: time.Now(), logger: logger, f: f}
	t.write(Event{Kind: KindSessionBegin, SessionID: sessionID, LessonID: lessonID})
	return t, nil
}

// Entry records one chat entry.
func (t *Transcript) Entry(e types.ChatEntry) {
	if t == nil {
		return
	}
	t.write(Event{Kind: KindChatEntry, Entry: &e})
}

// Outcome records the result of one completed run.
func (t *Transcript) Outcome(blocks int, res types.SimulationResult) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.runs++
	if res.Succeeded {
		t.successes++
	}
	t.mu.Unlock()
	ok := res.Succeeded
	final := res.FinalPosition
	t.write(Event{
		Kind:      KindRunOutcome,
		Blocks:    blocks,
		Succeeded: &ok,
		Mistake:   res.Mistake,
		Final:     &final,
	})
}

// Close writes session_end and closes the file.
func (t *Transcript) Close(status string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	runs, successes := t.runs, t.successes
	t.mu.Unlock()
	t.write(Event{
		Kind:      KindSessionEnd,
		SessionID: t.sessionID,
		Status:    status,
		ElapsedMs: time.Since(t.started).Milliseconds(),
		Runs:      runs,
		Successes: successes,
	})

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.f != nil {
		if err := t.f.Close(); err != nil {
			t.logger.Warn("[TRANSCRIPT] close", zap.Error(err))
		}
		t.f = nil
	}
}

func (t *Transcript) write(e Event) {
	e.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	data, err := json.Marshal(e)
	if err != nil {
		t.logger.Error("[TRANSCRIPT] marshal event", zap.Error(err))
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.f == nil {
		return
	}
	if _, err := fmt.Fprintf(t.f, "%s\n", data); err != nil {
		t.logger.Error("[TRANSCRIPT] write event", zap.Error(err))
	}
}
