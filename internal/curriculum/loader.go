package curriculum

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/evolvecode/gridtutor/internal/grid"
	"github.com/evolvecode/gridtutor/internal/types"
)

//go:embed content/lessons.yaml
var defaultContent []byte

// File is the on-disk shape of curriculum content.
type File struct {
	DefaultLevel string               `yaml:"default_level"`
	Stages       []StageFile          `yaml:"stages"`
	Levels       map[string]LevelFile `yaml:"levels"`
}

type StageFile struct {
	Stage   types.Stage  `yaml:"stage"`
	Modules []ModuleFile `yaml:"modules"`
}

type ModuleFile struct {
	ID      string       `yaml:"id"`
	Title   string       `yaml:"title"`
	Lessons []LessonFile `yaml:"lessons"`
}

type LessonFile struct {
	ID          string    `yaml:"id"`
	Title       string    `yaml:"title"`
	Description string    `yaml:"description"`
	Task        string    `yaml:"task"`
	Explanation string    `yaml:"explanation"`
	RepeatCount *int      `yaml:"repeat_count"`
	Grid        *GridFile `yaml:"grid"`
}

// GridFile stores cells as [row, col] pairs.
type GridFile struct {
	Size      int      `yaml:"size"`
	Start     [2]int   `yaml:"start"`
	Goal      [2]int   `yaml:"goal"`
	Obstacles [][2]int `yaml:"obstacles"`
	Avatar    string   `yaml:"avatar"`
	GoalEmoji string   `yaml:"goal_emoji"`
	Theme     string   `yaml:"theme"`
}

type LevelFile struct {
	GoalText       string        `yaml:"goal_text"`
	StepHints      []string      `yaml:"step_hints"`
	CommonMistakes []MistakeFile `yaml:"common_mistakes"`
	SuccessMessage string        `yaml:"success_message"`
}

type MistakeFile struct {
	ID          types.MistakeID `yaml:"id"`
	Description string          `yaml:"description"`
	Feedback    string          `yaml:"feedback"`
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) LoaderOption { return func(ld *Loader) { ld.logger = l } }

// Loader reads curriculum content from a filesystem.
type Loader struct {
	fs     afero.Fs
	logger *zap.Logger
}

// NewLoader returns a Loader over fs.
func NewLoader(fs afero.Fs, opts ...LoaderOption) *Loader {
	ld := &Loader{fs: fs, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(ld)
	}
	return ld
}

// Load reads and validates the content at path. An empty path loads the
// built-in curriculum.
func (ld *Loader) Load(path string) (*Content, error) {
	if path == "" {
		ld.logger.Debug("[CURRICULUM] using built-in content")
		return Parse(defaultContent)
	}
	data, err := afero.ReadFile(ld.fs, path)
	if err != nil {
		return nil, fmt.Errorf("curriculum: read: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, err
	}
	ld.logger.Info("[CURRICULUM] loaded",
		zap.String("path", path),
		zap.Int("lessons", len(c.order)),
		zap.Int("playable", len(c.Playable())))
	return c, nil
}

// Default returns the built-in curriculum.
func Default() *Content {
	c, err := Parse(defaultContent)
	if err != nil {
		panic(fmt.Sprintf("curriculum: built-in content is invalid: %v", err))
	}
	return c
}

// Parse decodes YAML content with strict field checking and validates it.
//
// Expectations:
//   - Unknown YAML fields are rejected
//   - Duplicate lesson or module ids are rejected
//   - Invalid grids are rejected with an error naming the lesson and
//     wrapping grid.ErrInvalidGrid
//   - Unknown stages, unknown mistake ids, non-positive repeat counts and an
//     unknown default_level are rejected
//   - Lessons without repeat_count get DefaultRepeatCount
func Parse(data []byte) (*Content, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("curriculum: parse: empty content")
		}
		return nil, fmt.Errorf("curriculum: parse: %w", err)
	}
	return build(f)
}

func build(f File) (*Content, error) {
	c := &Content{
		DefaultLevel: strings.TrimSpace(f.DefaultLevel),
		levels:       make(map[string]types.LevelConfig, len(f.Levels)),
		lessons:      make(map[string]Lesson),
	}

	for id, lf := range f.Levels {
		lv, err := buildLevel(id, lf)
		if err != nil {
			return nil, err
		}
		c.levels[id] = lv
	}
	if c.DefaultLevel == "" {
		return nil, errors.New(`curriculum: "default_level" is required`)
	}
	if _, ok := c.levels[c.DefaultLevel]; !ok {
		return nil, fmt.Errorf("curriculum: default_level %q has no entry in levels", c.DefaultLevel)
	}

	modules := make(map[string]struct{})
	for si, sf := range f.Stages {
		if !validStage(sf.Stage) {
			return nil, fmt.Errorf("curriculum: stages[%d]: unknown stage %q (allowed=%v)", si, sf.Stage, types.Stages)
		}
		for mi, mf := range sf.Modules {
			path := fmt.Sprintf("stages[%d].modules[%d]", si, mi)
			if strings.TrimSpace(mf.ID) == "" {
				return nil, fmt.Errorf(`curriculum: %s: "id" is required`, path)
			}
			if _, dup := modules[mf.ID]; dup {
				return nil, fmt.Errorf("curriculum: %s: duplicate module id %q", path, mf.ID)
			}
			modules[mf.ID] = struct{}{}

			m := Module{ID: mf.ID, Title: mf.Title, Stage: sf.Stage}
			for li, lf := range mf.Lessons {
				l, err := buildLesson(fmt.Sprintf("%s.lessons[%d]", path, li), sf.Stage, mf.ID, lf)
				if err != nil {
					return nil, err
				}
				if _, dup := c.lessons[l.ID]; dup {
					return nil, fmt.Errorf("curriculum: lessons[%s]: duplicate lesson id", l.ID)
				}
				c.lessons[l.ID] = l
				c.order = append(c.order, l.ID)
				m.Lessons = append(m.Lessons, l)
			}
			c.Modules = append(c.Modules, m)
		}
	}
	for id, lv := range c.levels {
		if l, ok := c.lessons[id]; ok {
			lv.Stage = l.Stage
			c.levels[id] = lv
		}
	}
	return c, nil
}

func buildLesson(path string, stage types.Stage, moduleID string, lf LessonFile) (Lesson, error) {
	if strings.TrimSpace(lf.ID) == "" {
		return Lesson{}, fmt.Errorf(`curriculum: %s: "id" is required`, path)
	}
	l := Lesson{
		ID:          lf.ID,
		Stage:       stage,
		ModuleID:    moduleID,
		Title:       lf.Title,
		Description: lf.Description,
		Task:        lf.Task,
		Explanation: lf.Explanation,
		RepeatCount: DefaultRepeatCount,
	}
	if lf.RepeatCount != nil {
		if *lf.RepeatCount <= 0 {
			return Lesson{}, fmt.Errorf("curriculum: lessons[%s].repeat_count: must be positive, got %d", lf.ID, *lf.RepeatCount)
		}
		l.RepeatCount = *lf.RepeatCount
	}
	if lf.Grid != nil {
		g := lf.Grid.config()
		if err := grid.Validate(g); err != nil {
			return Lesson{}, fmt.Errorf("curriculum: lessons[%s].grid: %w", lf.ID, err)
		}
		l.Grid = &g
	}
	return l, nil
}

func buildLevel(id string, lf LevelFile) (types.LevelConfig, error) {
	lv := types.LevelConfig{
		ID:             id,
		GoalText:       lf.GoalText,
		StepHints:      lf.StepHints,
		SuccessMessage: lf.SuccessMessage,
	}
	for i, mf := range lf.CommonMistakes {
		if !knownMistake(mf.ID) {
			return types.LevelConfig{}, fmt.Errorf("curriculum: levels[%s].common_mistakes[%d]: unknown mistake id %q", id, i, mf.ID)
		}
		lv.CommonMistakes = append(lv.CommonMistakes, types.CommonMistake{
			ID:           mf.ID,
			Description:  strings.TrimSpace(mf.Description),
			FeedbackText: mf.Feedback,
		})
	}
	return lv, nil
}

func (g GridFile) config() types.GridConfig {
	cfg := types.GridConfig{
		Size:      g.Size,
		Start:     types.Cell{Row: g.Start[0], Col: g.Start[1]},
		Goal:      types.Cell{Row: g.Goal[0], Col: g.Goal[1]},
		Avatar:    g.Avatar,
		GoalEmoji: g.GoalEmoji,
		Theme:     g.Theme,
	}
	for _, o := range g.Obstacles {
		cfg.Obstacles = append(cfg.Obstacles, types.Cell{Row: o[0], Col: o[1]})
	}
	return cfg
}

func validStage(s types.Stage) bool {
	for _, st := range types.Stages {
		if st == s {
			return true
		}
	}
	return false
}

func knownMistake(id types.MistakeID) bool {
	switch id {
	case types.MistakeObstacleHit, types.MistakeOvershoot, types.MistakeUndershoot,
		types.MistakeWrongTurn, types.MistakeEarlyTurn, types.MistakeLoopForever:
		return true
	}
	return false
}
