package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evolvecode/gridtutor/internal/curriculum"
)

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Check a curriculum file",
		Long: `Load a curriculum YAML file (or the configured content when no file is
given) and report every structural or grid problem.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content := a.content
			if len(args) == 1 {
				c, err := curriculum.NewLoader(a.fs, curriculum.WithLogger(a.logger)).Load(args[0])
				if err != nil {
					return err
				}
				content = c
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d lessons, %d playable, default level %s\n",
				len(content.Lessons()), len(content.Playable()), content.DefaultLevel)
			return nil
		},
	}
}
