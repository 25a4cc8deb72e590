package types

import (
	"fmt"
	"time"
)

// Stage identifies one of the four complexity tiers of the tutor.
type Stage string

const (
	StageKids  Stage = "KIDS"  // block based
	StageTween Stage = "TWEEN" // scratch-like with preview
	StageTeen  Stage = "TEEN"  // simplified code
	StagePro   Stage = "PRO"   // full IDE
)

// Stages lists the tiers in progression order.
var Stages = []Stage{StageKids, StageTween, StageTeen, StagePro}

// Cell is a grid coordinate. Row grows downward, Col grows to the right.
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
}

// Orientation is the avatar's facing in degrees clockwise from up.
type Orientation int

const (
	Up    Orientation = 0
	Right Orientation = 90
	Down  Orientation = 180
	Left  Orientation = 270
)

// InitialOrientation is the facing every run starts with.
const InitialOrientation = Right

// Normalize folds any multiple of 90 into [0,360).
func (o Orientation) Normalize() Orientation {
	v := int(o) % 360
	if v < 0 {
		v += 360
	}
	return Orientation(v)
}

// Valid reports whether o is exactly one of the four cardinal values.
func (o Orientation) Valid() bool {
	switch o {
	case Up, Right, Down, Left:
		return true
	}
	return false
}

func (o Orientation) String() string {
	switch o {
	case Up:
		return "up"
	case Right:
		return "right"
	case Down:
		return "down"
	case Left:
		return "left"
	}
	return fmt.Sprintf("orientation(%d)", int(o))
}

// CommandKind tags a Command.
type CommandKind string

const (
	MoveForward   CommandKind = "move_forward"
	TurnRight     CommandKind = "turn_right"
	TurnLeft      CommandKind = "turn_left"
	RepeatForward CommandKind = "repeat_forward"
)

// Command is one learner-authored instruction. Count is only meaningful
// for RepeatForward.
type Command struct {
	Kind  CommandKind `json:"kind"`
	Count int         `json:"count,omitempty"`
}

// Forward returns a MoveForward command.
func Forward() Command { return Command{Kind: MoveForward} }

// TurnRightCmd returns a TurnRight command.
func TurnRightCmd() Command { return Command{Kind: TurnRight} }

// TurnLeftCmd returns a TurnLeft command.
func TurnLeftCmd() Command { return Command{Kind: TurnLeft} }

// Repeat returns a RepeatForward(n) command.
func Repeat(n int) Command { return Command{Kind: RepeatForward, Count: n} }

// Distance is the number of cells the command translates the avatar by.
func (c Command) Distance() int {
	switch c.Kind {
	case MoveForward:
		return 1
	case RepeatForward:
		return c.Count
	}
	return 0
}

// Label is the toolbox caption of the command.
func (c Command) Label() string {
	switch c.Kind {
	case MoveForward:
		return "Move Forward"
	case TurnRight:
		return "Turn Right"
	case TurnLeft:
		return "Turn Left"
	case RepeatForward:
		return fmt.Sprintf("Repeat %d Times", c.Count)
	}
	return string(c.Kind)
}

// GridConfig describes one lesson's board. Avatar, GoalEmoji and Theme are
// visual tags only.
type GridConfig struct {
	Size      int    `json:"size"`
	Start     Cell   `json:"start"`
	Goal      Cell   `json:"goal"`
	Obstacles []Cell `json:"obstacles,omitempty"`
	Avatar    string `json:"avatar,omitempty"`
	GoalEmoji string `json:"goal_emoji,omitempty"`
	Theme     string `json:"theme,omitempty"`
}

// InBounds reports whether c lies inside [0,Size)x[0,Size).
func (g GridConfig) InBounds(c Cell) bool {
	return c.Row >= 0 && c.Row < g.Size && c.Col >= 0 && c.Col < g.Size
}

// IsObstacle reports whether c is one of the configured obstacle cells.
func (g GridConfig) IsObstacle(c Cell) bool {
	for _, o := range g.Obstacles {
		if o == c {
			return true
		}
	}
	return false
}

// MistakeID classifies why a run did not succeed. The zero value means no
// mistake.
type MistakeID string

const (
	NoMistake          MistakeID = ""
	MistakeObstacleHit MistakeID = "OBSTACLE_HIT"
	MistakeOvershoot   MistakeID = "OVERSHOOT"
	MistakeUndershoot  MistakeID = "UNDERSHOOT"
	MistakeWrongTurn   MistakeID = "WRONG_TURN"
	MistakeEarlyTurn   MistakeID = "EARLY_TURN"
	MistakeLoopForever MistakeID = "LOOP_INFINITE"
)

// CommonMistake is authored feedback for one mistake id.
type CommonMistake struct {
	ID           MistakeID `json:"id"`
	Description  string    `json:"description"`
	FeedbackText string    `json:"feedback_text"`
}

// LevelConfig is the static pedagogical metadata of one lesson.
type LevelConfig struct {
	ID             string          `json:"id"`
	Stage          Stage           `json:"stage"`
	GoalText       string          `json:"goal_text"`
	StepHints      []string        `json:"step_hints"`
	CommonMistakes []CommonMistake `json:"common_mistakes"`
	SuccessMessage string          `json:"success_message"`
}

// Feedback returns the authored feedback for id, if any.
func (l LevelConfig) Feedback(id MistakeID) (string, bool) {
	if id == NoMistake {
		return "", false
	}
	for _, m := range l.CommonMistakes {
		if m.ID == id {
			return m.FeedbackText, true
		}
	}
	return "", false
}

// TrajectoryStep is the avatar state after one applied command.
type TrajectoryStep struct {
	Position    Cell        `json:"position"`
	Orientation Orientation `json:"orientation"`
	SourceIndex int         `json:"source_index"` // index into the command sequence
}

// SimulationResult is derived whole from one (commands, grid) pair.
type SimulationResult struct {
	Trajectory       []TrajectoryStep `json:"trajectory"`
	FinalPosition    Cell             `json:"final_position"`
	FinalOrientation Orientation      `json:"final_orientation"`
	Succeeded        bool             `json:"succeeded"`
	Mistake          MistakeID        `json:"mistake,omitempty"`
}

// ChatRole identifies the author of a chat entry.
type ChatRole string

const (
	ChatTutor ChatRole = "tutor"
	ChatUser  ChatRole = "user"
)

// EntryKind tells the view how to read ChatEntry.Content.
type EntryKind string

const (
	EntryText   EntryKind = "text"
	EntryBlocks EntryKind = "blocks" // JSON array of block labels
)

// ChatEntry is one line of the tutor transcript.
type ChatEntry struct {
	ID        string    `json:"id"`
	Role      ChatRole  `json:"role"`
	Kind      EntryKind `json:"kind"`
	Content   string    `json:"content"`
	IsLatest  bool      `json:"is_latest,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
