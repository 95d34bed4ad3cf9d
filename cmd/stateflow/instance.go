package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/stateflow/internal/cli"
	"github.com/aretw0/stateflow/internal/presentation/tui"
	"github.com/aretw0/stateflow/pkg/domain"
	"github.com/spf13/cobra"
)

var instanceCmd = &cobra.Command{
	Use:     "instance",
	Aliases: []string{"inst"},
	Short:   "Start and drive workflow instances",
}

var instanceStartCmd = &cobra.Command{
	Use:   "start <definition-id>",
	Short: "Start a new instance at the definition's initial state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		warnEphemeral(cmd)
		return withApp(cmd.Context(), func(app *cli.App) error {
			inst, err := app.Service.StartInstance(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printInstance(cmd, app, inst)
		})
	},
}

var instanceExecCmd = &cobra.Command{
	Use:   "exec <instance-id> <action>",
	Short: "Execute an action (by name, ignoring case, or by ID) on an instance",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		warnEphemeral(cmd)
		return withApp(cmd.Context(), func(app *cli.App) error {
			inst, err := app.Service.ExecuteAction(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return printInstance(cmd, app, inst)
		})
	},
}

var instanceShowCmd = &cobra.Command{
	Use:   "show <instance-id>",
	Short: "Show an instance with its history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		warnEphemeral(cmd)
		return withApp(cmd.Context(), func(app *cli.App) error {
			inst, err := app.Service.GetInstance(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printInstance(cmd, app, inst)
		})
	},
}

var instanceListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List instances",
	RunE: func(cmd *cobra.Command, args []string) error {
		warnEphemeral(cmd)
		definitionID, _ := cmd.Flags().GetString("definition")

		return withApp(cmd.Context(), func(app *cli.App) error {
			var (
				insts []*domain.Instance
				err   error
			)
			if definitionID != "" {
				insts, err = app.Service.ListInstancesByDefinition(cmd.Context(), definitionID)
			} else {
				insts, err = app.Service.ListInstances(cmd.Context())
			}
			if err != nil {
				return err
			}

			var sb strings.Builder
			sb.WriteString("# Instances\n\n")
			if len(insts) == 0 {
				sb.WriteString("No instances found.\n")
			} else {
				sb.WriteString("| ID | Definition | State | Actions taken | Last updated |\n|---|---|---|---|---|\n")
				for _, i := range insts {
					fmt.Fprintf(&sb, "| %s | %s | %s | %d | %s |\n",
						i.ID, i.DefinitionID, i.CurrentStateID, len(i.History), i.LastUpdated.Format("2006-01-02 15:04:05"))
				}
			}
			return outputFor(cmd).Print(insts, sb.String())
		})
	},
}

func printInstance(cmd *cobra.Command, app *cli.App, inst *domain.Instance) error {
	out := outputFor(cmd)
	if out.JSON {
		return out.Print(inst, "")
	}
	def, err := app.Service.GetDefinition(cmd.Context(), inst.DefinitionID)
	if err != nil {
		return err
	}
	return out.Print(inst, tui.InstanceMarkdown(inst, def))
}

func init() {
	rootCmd.AddCommand(instanceCmd)
	instanceCmd.AddCommand(instanceStartCmd, instanceExecCmd, instanceShowCmd, instanceListCmd)
	instanceCmd.PersistentFlags().Bool("json", false, "Print JSON instead of rendered markdown")
	instanceListCmd.Flags().String("definition", "", "Only list instances of this definition")
}
