package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"dialbridge/internal/ipc"
)

func newResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Zero the accumulated dial position and baselines",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Reset()
				if err != nil {
					return err
				}
				if resp.Reset {
					fmt.Fprintln(stdout, "Position record reset")
				}
				return nil
			})
		},
	}
}
