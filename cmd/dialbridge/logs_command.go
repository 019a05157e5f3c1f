package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"dialbridge/internal/logtail"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent daemon log output",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			if cfg == nil {
				return fmt.Errorf("configuration unavailable")
			}
			logPath := filepath.Join(cfg.Paths.LogDir, "dialbridged.log")
			stdout := cmd.OutOrStdout()

			recent, offset, err := logtail.Last(logPath, lines)
			if err != nil {
				return err
			}
			for _, line := range recent {
				fmt.Fprintln(stdout, line)
			}

			if !follow {
				return nil
			}
			return logtail.Follow(cmd.Context(), logPath, offset, func(line string) {
				fmt.Fprintln(stdout, line)
			})
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 20, "Number of trailing lines to print")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines as they are written")
	return cmd
}
