package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/evolvecode/gridtutor/internal/config"
	"github.com/evolvecode/gridtutor/internal/curriculum"
	"github.com/evolvecode/gridtutor/internal/llm"
	"github.com/evolvecode/gridtutor/internal/logging"
	"github.com/evolvecode/gridtutor/internal/tutor"
)

// app carries everything the commands share. It is built once in
// PersistentPreRunE.
type app struct {
	fs     afero.Fs
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	cfg     *config.Config
	logger  *zap.Logger
	content *curriculum.Content

	lesson         string
	contentPath    string
	step           time.Duration
	stepwiseRepeat bool
	verbose        bool
	noColor        bool
}

func newApp() *app {
	return &app{fs: afero.NewOsFs(), in: os.Stdin, out: os.Stdout, errOut: os.Stderr, logger: zap.NewNop()}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "gridtutor",
		Short: "Grid-world coding tutor",
		Long: `gridtutor runs block-coding lessons in the terminal.

Place Move / Turn / Repeat blocks, watch the avatar walk the grid, and get
feedback on what went wrong. Run without arguments for the interactive tutor.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return a.setup(cmd) },
		PersistentPostRun: func(cmd *cobra.Command, args []string) { _ = a.logger.Sync() },
		RunE: func(cmd *cobra.Command, args []string) error {
			return runREPL(cmd.Context(), a)
		},
	}
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	pf := root.PersistentFlags()
	pf.StringVar(&a.lesson, "lesson", "", "lesson id (default from GRIDTUTOR_LESSON)")
	pf.StringVar(&a.contentPath, "content", "", "curriculum YAML file (default: built-in)")
	pf.DurationVar(&a.step, "step", 0, "animation step interval (default from GRIDTUTOR_STEP_INTERVAL)")
	pf.BoolVar(&a.stepwiseRepeat, "stepwise-repeat", false, "check every cell a Repeat block crosses")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")
	pf.BoolVar(&a.noColor, "no-color", os.Getenv("NO_COLOR") != "", "disable ANSI colours")

	root.AddCommand(newPlayCmd(a), newLessonsCmd(a), newValidateCmd(a))
	return root
}

// setup loads .env, configuration, the logger and curriculum content, with
// flags taking precedence over the environment.
func (a *app) setup(cmd *cobra.Command) error {
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("lesson") {
		cfg.Lesson = a.lesson
	}
	if flags.Changed("content") {
		cfg.ContentPath = a.contentPath
	}
	if flags.Changed("step") {
		cfg.StepInterval = a.step
	}
	if flags.Changed("stepwise-repeat") {
		cfg.StepwiseRepeat = a.stepwiseRepeat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Verbose: a.verbose, Path: cfg.LogPath()})
	if err != nil {
		return err
	}
	a.logger = logger

	content, err := curriculum.NewLoader(a.fs, curriculum.WithLogger(logger)).Load(cfg.ContentPath)
	if err != nil {
		return err
	}
	a.content = content
	logger.Debug("[CLI] initialised",
		zap.String("command", cmd.Name()),
		zap.String("lesson", cfg.Lesson),
		zap.Duration("step", cfg.StepInterval))
	return nil
}

// newSession starts a tutor session on lessonID with the configured options.
func (a *app) newSession(lessonID string) (*tutor.Session, error) {
	lesson, err := a.content.Lesson(lessonID)
	if err != nil {
		return nil, err
	}
	opts := []tutor.Option{
		tutor.WithLogger(a.logger),
		tutor.WithTiming(a.cfg.StepInterval, a.cfg.SettleDelay),
		tutor.WithChatLimit(a.cfg.ChatLimit),
		tutor.WithQuietBelow(a.cfg.QuietBelow),
		tutor.WithBackend(tutor.NewLLMBackend(llm.NewTier("TUTOR", llm.WithLogger(a.logger)))),
	}
	if a.cfg.StepwiseRepeat {
		opts = append(opts, tutor.WithStepwiseRepeat())
	}
	if a.cfg.TranscriptDir != "" {
		opts = append(opts, tutor.WithTranscript(a.fs, a.cfg.TranscriptDir))
	}
	s, err := tutor.New(lesson, a.content.Level(lessonID), opts...)
	if err != nil {
		return nil, fmt.Errorf("start lesson %s: %w", lessonID, err)
	}
	return s, nil
}
