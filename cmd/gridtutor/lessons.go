package main

import (
	"fmt"
	"io"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/evolvecode/gridtutor/internal/curriculum"
)

func newLessonsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lessons",
		Short: "List the curriculum",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printLessons(cmd.OutOrStdout(), a.content, a.cfg.Lesson)
			return nil
		},
	}
}

// printLessons lists modules and lessons by stage. Playable lessons are
// marked with ▶ and the current one with *.
func printLessons(w io.Writer, c *curriculum.Content, current string) {
	var stage string
	for _, m := range c.Modules {
		if string(m.Stage) != stage {
			stage = string(m.Stage)
			fmt.Fprintf(w, "%s\n", stage)
		}
		fmt.Fprintf(w, "  %s\n", m.Title)
		for _, l := range m.Lessons {
			mark := " "
			if l.Playable() {
				mark = "▶"
			}
			if l.ID == current {
				mark = "*"
			}
			fmt.Fprintf(w, "   %s %s %s\n", mark, runewidth.FillRight(l.ID, 8), l.Title)
		}
	}
}
