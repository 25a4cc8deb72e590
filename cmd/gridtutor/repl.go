package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/chzyer/readline"
	"go.uber.org/zap"

	"github.com/evolvecode/gridtutor/internal/blocks"
	"github.com/evolvecode/gridtutor/internal/tutor"
	"github.com/evolvecode/gridtutor/internal/types"
	"github.com/evolvecode/gridtutor/internal/ui"
)

// errQuit ends the REPL loop without an error exit.
var errQuit = errors.New("quit")

const helpText = `blocks:   forward (f)  right (r)  left (l)  repeat (loop)
          several at once: "f f r f"
editing:  remove <n>   drop block n from the latest batch
          clear        empty the program
tutor:    hint         next step hint
          ask <text>   ask the tutor
          mission      ask for a short mission
lessons:  lessons      list lessons
          lesson <id>  switch lesson
          next         go to the next playable lesson
other:    show  help  exit
`

// repl executes one typed line at a time against a session.
type repl struct {
	app     *app
	session *tutor.Session
	display *ui.Display
	out     io.Writer
	style   ui.Style
	lesson  string
}

func runREPL(ctx context.Context, a *app) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := a.newSession(a.cfg.Lesson)
	if err != nil {
		return err
	}
	defer s.Close()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "gridtutor> ",
		HistoryFile:     historyPath(),
		AutoComplete:    completer(a),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("readline: %w", err)
	}
	defer rl.Close()

	r := newREPL(a, s, rl.Stdout(), ui.WithSpinner(true))
	dctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.display.Run(dctx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	if err := r.show(); err != nil {
		return err
	}
	fmt.Fprintln(r.out, `type "help" for commands`)
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if err != nil {
			return nil
		}
		if err := r.handleLine(ctx, line); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			fmt.Fprintln(r.out, r.style.Error(err.Error()))
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// newREPL builds a repl writing to out. The display and the command handlers
// share one locked writer.
func newREPL(a *app, s *tutor.Session, out io.Writer, opts ...ui.Option) *repl {
	style := ui.Style{Color: !a.noColor}
	out = &lockedWriter{w: out}
	opts = append([]ui.Option{ui.WithColor(style.Color)}, opts...)
	return &repl{
		app:     a,
		session: s,
		display: ui.New(out, s, opts...),
		out:     out,
		style:   style,
		lesson:  s.View().Lesson.ID,
	}
}

// handleLine runs one REPL command. Block tokens are the default: a line that
// is not a known command is parsed as one block, or as one block per word.
func (r *repl) handleLine(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	word, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch blocks.Normalize(word) {
	case "help", "?":
		fmt.Fprint(r.out, helpText)
	case "exit", "quit":
		return errQuit
	case "show":
		return r.show()
	case "clear":
		return r.session.Clear()
	case "hint":
		_, err := r.session.NextHint()
		return err
	case "ask":
		if rest == "" {
			return errors.New("usage: ask <question>")
		}
		_, err := r.session.Ask(ctx, rest)
		return err
	case "mission":
		m, err := r.session.Mission(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(r.out, "🚀 %s\n", m)
	case "lessons":
		printLessons(r.out, r.app.content, r.lesson)
	case "lesson":
		if rest == "" {
			return errors.New("usage: lesson <id>")
		}
		return r.switchTo(rest)
	case "next":
		next, ok := r.app.content.Next(r.lesson)
		if !ok {
			return errors.New("no more playable lessons")
		}
		return r.switchTo(next.ID)
	case "remove", "rm":
		return r.remove(rest)
	default:
		return r.addBlocks(line)
	}
	return nil
}

func (r *repl) addBlocks(line string) error {
	lesson, err := r.app.content.Lesson(r.lesson)
	if err != nil {
		return err
	}
	var cmds []types.Command
	if cmd, err := blocks.Parse(line, lesson.RepeatCount); err == nil {
		cmds = append(cmds, cmd)
	} else {
		for _, tok := range strings.Fields(line) {
			cmd, err := blocks.Parse(tok, lesson.RepeatCount)
			if err != nil {
				return fmt.Errorf("%w (type \"help\")", err)
			}
			cmds = append(cmds, cmd)
		}
	}
	for _, cmd := range cmds {
		if _, err := r.session.AddBlock(cmd); err != nil {
			return err
		}
	}
	r.app.logger.Debug("[REPL] blocks added", zap.Int("count", len(cmds)))
	return nil
}

func (r *repl) remove(arg string) error {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return errors.New("usage: remove <n>")
	}
	entry, ok := r.session.LatestBatch()
	if !ok {
		return errors.New("nothing to remove")
	}
	return r.session.RemoveBlock(entry, n)
}

func (r *repl) switchTo(id string) error {
	lesson, err := r.app.content.Lesson(id)
	if err != nil {
		return err
	}
	err = r.display.Show(func() error {
		return r.session.SwitchLesson(lesson, r.app.content.Level(id))
	})
	if err != nil {
		return err
	}
	r.lesson = id
	return nil
}

// show renders a snapshot through the display.
func (r *repl) show() error {
	return r.display.Show(nil)
}

// lockedWriter serialises writes from the display goroutine and the prompt.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func completer(a *app) *readline.PrefixCompleter {
	lessonIDs := func(string) []string {
		var ids []string
		for _, l := range a.content.Playable() {
			ids = append(ids, l.ID)
		}
		return ids
	}
	return readline.NewPrefixCompleter(
		readline.PcItem("forward"),
		readline.PcItem("right"),
		readline.PcItem("left"),
		readline.PcItem("repeat"),
		readline.PcItem("remove"),
		readline.PcItem("clear"),
		readline.PcItem("hint"),
		readline.PcItem("ask"),
		readline.PcItem("mission"),
		readline.PcItem("lessons"),
		readline.PcItem("lesson", readline.PcItemDynamic(lessonIDs)),
		readline.PcItem("next"),
		readline.PcItem("show"),
		readline.PcItem("help"),
		readline.PcItem("exit"),
	)
}

func historyPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	dir = filepath.Join(dir, "gridtutor")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ""
	}
	return filepath.Join(dir, "history")
}
