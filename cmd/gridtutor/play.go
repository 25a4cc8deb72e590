package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/evolvecode/gridtutor/internal/blocks"
	"github.com/evolvecode/gridtutor/internal/types"
	"github.com/evolvecode/gridtutor/internal/ui"
)

func newPlayCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "play <block>...",
		Short: "Run one program on a lesson and exit",
		Long: `Run one program on the selected lesson, print the animation trace and
the tutor's feedback, then exit 0 if the goal was reached and 2 otherwise.`,
		Example: `  gridtutor play --lesson k-l1 f f f
  gridtutor play --lesson k-l4 "repeat 3 times"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd.Context(), a, cmd.OutOrStdout(), args)
		},
	}
}

// runPlay plays args as one batch and waits for the outcome.
func runPlay(ctx context.Context, a *app, out io.Writer, args []string) error {
	lesson, err := a.content.Lesson(a.cfg.Lesson)
	if err != nil {
		return err
	}
	cmds := make([]types.Command, 0, len(args))
	for _, tok := range args {
		cmd, err := blocks.Parse(tok, lesson.RepeatCount)
		if err != nil {
			return err
		}
		cmds = append(cmds, cmd)
	}

	s, err := a.newSession(lesson.ID)
	if err != nil {
		return err
	}
	defer s.Close()

	style := ui.Style{Color: !a.noColor}
	d := ui.New(out, s, ui.WithColor(style.Color))
	ui.Render(out, s.View(), style)
	d.MarkSeen()

	dctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		d.Run(dctx)
	}()

	err = s.AddBlocks(cmds...)
	if err == nil {
		err = s.Settle(ctx)
	}
	cancel()
	<-done
	if err != nil {
		return err
	}
	d.Flush()

	res := s.View().LastResult
	if res == nil {
		return fmt.Errorf("play: no result")
	}
	a.logger.Info("[PLAY] finished",
		zap.String("lesson", lesson.ID),
		zap.Int("blocks", len(cmds)),
		zap.Bool("succeeded", res.Succeeded),
		zap.String("mistake", string(res.Mistake)))
	if !res.Succeeded {
		return &exitError{code: 2}
	}
	return nil
}
