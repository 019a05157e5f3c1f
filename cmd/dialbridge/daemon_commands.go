package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"dialbridge/internal/ipc"
	"dialbridge/internal/preflight"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	var startWait bool
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the bridge engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			err := ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Start()
				if err != nil {
					return err
				}
				if !resp.Started {
					fmt.Fprintln(stdout, resp.Message)
					return nil
				}
				fmt.Fprintln(stdout, "Engine started")
				return nil
			})
			if err != nil {
				return err
			}
			if startWait {
				if err := waitForTick(ctx, 5*time.Second); err != nil {
					return err
				}
				fmt.Fprintln(stdout, "Engine ticking")
			}
			return nil
		},
	}
	startCmd.Flags().BoolVar(&startWait, "wait", false, "Block until the engine completes its first poll tick")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the bridge engine (the daemon process keeps running)",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Stop()
				if err != nil {
					return err
				}
				if resp.Stopped {
					fmt.Fprintln(stdout, "Engine stopped")
				}
				return nil
			})
		},
	}

	var includeRaw bool
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and engine status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			for _, line := range renderSectionHeader("Preflight", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, result := range preflight.RunAll(cmd.Context(), cfg) {
				kind := statusOK
				if !result.Passed {
					kind = statusWarn
				}
				fmt.Fprintln(stdout, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}
			fmt.Fprintln(stdout)

			var status *ipc.StatusResponse
			err := ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Status(includeRaw)
				if err != nil {
					return err
				}
				status = resp
				return nil
			})
			if err != nil {
				for _, line := range renderSectionHeader("Daemon", colorize) {
					fmt.Fprintln(stdout, line)
				}
				fmt.Fprintln(stdout, renderStatusLine("Daemon", statusError, err.Error(), colorize))
				return nil
			}

			for _, line := range renderSectionHeader("Daemon", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range daemonStatusLines(status, colorize) {
				fmt.Fprintln(stdout, line)
			}

			fmt.Fprintln(stdout)
			for _, line := range renderSectionHeader("Navigator", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range navigatorStatusLines(status.Navigator, colorize) {
				fmt.Fprintln(stdout, line)
			}

			if includeRaw && len(status.Raw) > 0 {
				fmt.Fprintln(stdout)
				for _, line := range renderSectionHeader("Raw State", colorize) {
					fmt.Fprintln(stdout, line)
				}
				rows := make([][]string, 0, len(status.Raw))
				for kind, payload := range status.Raw {
					rows = append(rows, []string{kind, payload})
				}
				fmt.Fprintln(stdout, renderTable([]string{"Kind", "Payload"}, rows))
			}
			return nil
		},
	}
	statusCmd.Flags().BoolVar(&includeRaw, "raw", false, "Include the last raw payload per state record kind")

	return []*cobra.Command{startCmd, stopCmd, statusCmd}
}

func daemonStatusLines(status *ipc.StatusResponse, colorize bool) []string {
	runningKind := statusWarn
	runningMessage := "engine idle"
	if status.EngineRunning {
		runningKind = statusOK
		runningMessage = fmt.Sprintf("polling (run %s)", status.RunID)
	}

	lines := []string{
		renderStatusLine("Daemon", statusOK, fmt.Sprintf("pid %d", status.PID), colorize),
		renderStatusLine("Engine", runningKind, runningMessage, colorize),
		renderStatusLine("Ticks", statusInfo, strconv.FormatUint(status.Ticks, 10), colorize),
	}
	if status.LastTick != "" {
		lines = append(lines, renderStatusLine("Last tick", statusInfo, status.LastTick, colorize))
	}
	if status.LastError != "" {
		lines = append(lines, renderStatusLine("Last error", statusWarn, status.LastError, colorize))
	}
	lines = append(lines,
		renderStatusLine("Mapping store", statusInfo, status.MappingDBPath, colorize),
		renderStatusLine("Device monitor", statusInfo, fmt.Sprintf("enabled=%s attached=%s", yesNo(status.DeviceMonitor), yesNo(status.DeviceAttached)), colorize),
	)
	return lines
}

func navigatorStatusLines(nav ipc.NavigatorStatus, colorize bool) []string {
	lines := []string{
		renderStatusLine("State", statusInfo, nav.State, colorize),
	}
	if nav.Container != "" {
		lines = append(lines, renderStatusLine("Container", statusInfo, nav.Container, colorize))
	}
	if nav.Entity != "" {
		detail := nav.Entity
		if nav.EntityCount > 1 {
			detail = fmt.Sprintf("%s (of %d)", nav.Entity, nav.EntityCount)
		}
		lines = append(lines, renderStatusLine("Entity", statusInfo, detail, colorize))
	}
	if nav.Property != "" {
		lines = append(lines, renderStatusLine("Property", statusInfo, nav.Property, colorize))
	}
	return lines
}

// waitForTick is a small helper for scripts: it blocks until the engine
// advances at least one tick or the deadline expires.
func waitForTick(ctx *commandContext, deadline time.Duration) error {
	var initial uint64
	err := ctx.withClient(func(client *ipc.Client) error {
		resp, err := client.Status(false)
		if err != nil {
			return err
		}
		initial = resp.Ticks
		return nil
	})
	if err != nil {
		return err
	}

	stop := time.Now().Add(deadline)
	for time.Now().Before(stop) {
		time.Sleep(50 * time.Millisecond)
		var ticks uint64
		err := ctx.withClient(func(client *ipc.Client) error {
			resp, err := client.Status(false)
			if err != nil {
				return err
			}
			ticks = resp.Ticks
			return nil
		})
		if err != nil {
			return err
		}
		if ticks > initial {
			return nil
		}
	}
	return fmt.Errorf("engine did not tick within %s", deadline)
}
