// Package curriculum provides lesson and level content to tutor sessions.
//
// Content is read-only once loaded. Every grid is validated at load time so a
// session can never be started against a malformed board.
package curriculum

import (
	"errors"
	"fmt"

	"github.com/evolvecode/gridtutor/internal/types"
)

// ErrUnknownLesson is returned when a lesson id is not in the content.
var ErrUnknownLesson = errors.New("curriculum: unknown lesson")

// DefaultRepeatCount is the loop length of the Repeat block when a lesson
// does not set its own.
const DefaultRepeatCount = 3

// Lesson is one entry of the curriculum. Only lessons with a Grid are
// playable.
type Lesson struct {
	ID          string
	Stage       types.Stage
	ModuleID    string
	Title       string
	Description string
	Task        string
	Explanation string
	RepeatCount int
	Grid        *types.GridConfig
}

// Playable reports whether the lesson has a board.
func (l Lesson) Playable() bool { return l.Grid != nil }

// Module groups lessons under a stage.
type Module struct {
	ID      string
	Title   string
	Stage   types.Stage
	Lessons []Lesson
}

// Content is a loaded, validated curriculum.
type Content struct {
	Modules      []Module
	DefaultLevel string

	levels  map[string]types.LevelConfig
	lessons map[string]Lesson
	order   []string
}

// Lesson returns the lesson with id.
func (c *Content) Lesson(id string) (Lesson, error) {
	l, ok := c.lessons[id]
	if !ok {
		return Lesson{}, fmt.Errorf("%w: %q", ErrUnknownLesson, id)
	}
	return l, nil
}

// Level returns the level config for a lesson id, falling back to the
// default level when the lesson has none of its own.
func (c *Content) Level(id string) types.LevelConfig {
	if lv, ok := c.levels[id]; ok {
		return lv
	}
	return c.levels[c.DefaultLevel]
}

// Lessons returns every lesson in curriculum order.
func (c *Content) Lessons() []Lesson {
	out := make([]Lesson, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.lessons[id])
	}
	return out
}

// Playable returns the lessons that have a grid, in curriculum order.
func (c *Content) Playable() []Lesson {
	var out []Lesson
	for _, id := range c.order {
		if l := c.lessons[id]; l.Playable() {
			out = append(out, l)
		}
	}
	return out
}

// Next returns the playable lesson following id, if any.
func (c *Content) Next(id string) (Lesson, bool) {
	found := false
	for _, l := range c.Playable() {
		if found {
			return l, true
		}
		found = l.ID == id
	}
	return Lesson{}, false
}
