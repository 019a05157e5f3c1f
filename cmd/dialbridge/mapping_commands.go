package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"dialbridge/internal/ipc"
)

func newMappingCommand(ctx *commandContext) *cobra.Command {
	mappingCmd := &cobra.Command{
		Use:   "mapping",
		Short: "Manage persisted button-to-property mappings",
	}

	mappingCmd.AddCommand(newMappingListCommand(ctx))
	mappingCmd.AddCommand(newMappingShowCommand(ctx))
	mappingCmd.AddCommand(newMappingAssignCommand(ctx))
	mappingCmd.AddCommand(newMappingUnassignCommand(ctx))
	mappingCmd.AddCommand(newMappingExportCommand(ctx))
	mappingCmd.AddCommand(newMappingImportCommand(ctx))

	return mappingCmd
}

func newMappingListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List identities with persisted mappings",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.MappingList()
				if err != nil {
					return err
				}
				if len(resp.Identities) == 0 {
					fmt.Fprintln(stdout, "No mappings stored")
					return nil
				}
				rows := make([][]string, 0, len(resp.Identities))
				for _, identity := range resp.Identities {
					rows = append(rows, []string{identity})
				}
				fmt.Fprintln(stdout, renderTable([]string{"Identity"}, rows))
				return nil
			})
		},
	}
}

func newMappingShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <identity>",
		Short: "Show the button assignments for an identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.MappingShow(args[0])
				if err != nil {
					return err
				}
				if len(resp.Assignments) == 0 {
					fmt.Fprintf(stdout, "No assignments for %s\n", resp.Identity)
					return nil
				}
				rows := make([][]string, 0, len(resp.Assignments))
				for _, a := range resp.Assignments {
					rows = append(rows, []string{strconv.Itoa(a.Button), a.PropertyID, a.PropertyName})
				}
				fmt.Fprintf(stdout, "Identity: %s\n", resp.Identity)
				fmt.Fprintln(stdout, renderTable([]string{"Button", "Property ID", "Property"}, rows, 1))
				return nil
			})
		},
	}
}

func newMappingAssignCommand(ctx *commandContext) *cobra.Command {
	var propertyName string
	cmd := &cobra.Command{
		Use:   "assign <identity> <button> <property-id>",
		Short: "Bind a numbered button to a property for an identity",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			button, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("button must be a number: %w", err)
			}
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.MappingAssign(ipc.MappingAssignRequest{
					Identity:     args[0],
					Button:       button,
					PropertyID:   args[2],
					PropertyName: propertyName,
				})
				if err != nil {
					return err
				}
				if resp.Assigned {
					fmt.Fprintf(stdout, "Button %d -> %s for %s\n", button, args[2], args[0])
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&propertyName, "name", "", "Display name stored with the assignment")
	return cmd
}

func newMappingUnassignCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "unassign <identity> <button>",
		Short: "Remove a button binding for an identity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			button, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("button must be a number: %w", err)
			}
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.MappingUnassign(args[0], button)
				if err != nil {
					return err
				}
				if resp.Removed {
					fmt.Fprintf(stdout, "Removed button %d for %s\n", button, args[0])
				}
				return nil
			})
		},
	}
}

func newMappingExportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "export <identity> <path>",
		Short: "Write an identity's mapping to a JSON file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.MappingExport(args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(stdout, "Exported %s to %s\n", args[0], resp.Path)
				return nil
			})
		},
	}
}

func newMappingImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <path>",
		Short: "Read a mapping JSON file and persist it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.MappingImport(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(stdout, "Imported %d assignments for %s\n", resp.Assignments, resp.Identity)
				return nil
			})
		},
	}
}
