package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/stateflow/internal/cli"
	"github.com/aretw0/stateflow/internal/presentation/graph"
	"github.com/aretw0/stateflow/internal/presentation/tui"
	"github.com/aretw0/stateflow/pkg/definition"
	"github.com/aretw0/stateflow/pkg/domain"
	"github.com/aretw0/stateflow/pkg/service"
	"github.com/spf13/cobra"
)

var definitionCmd = &cobra.Command{
	Use:     "definition",
	Aliases: []string{"def"},
	Short:   "Manage stored workflow definitions",
}

var definitionCreateCmd = &cobra.Command{
	Use:   "create <file>",
	Short: "Validate and store a definition file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		warnEphemeral(cmd)
		draft, err := definition.Load(args[0])
		if err != nil {
			return err
		}

		return withApp(cmd.Context(), func(app *cli.App) error {
			def, err := app.Service.CreateDefinition(cmd.Context(), service.CreateDefinitionRequest{
				Name:        draft.Name,
				Description: draft.Description,
				States:      draft.States,
				Actions:     draft.Actions,
			})
			if err != nil {
				var ve *domain.ValidationError
				if errors.As(err, &ve) {
					printProblems(cmd, ve.Result.Errors)
					return errInvalidDefinition
				}
				return err
			}
			return outputFor(cmd).Print(def, tui.DefinitionMarkdown(def))
		})
	},
}

var definitionListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List stored definitions, oldest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		warnEphemeral(cmd)
		return withApp(cmd.Context(), func(app *cli.App) error {
			defs, err := app.Service.ListDefinitions(cmd.Context())
			if err != nil {
				return err
			}

			var sb strings.Builder
			sb.WriteString("# Definitions\n\n")
			if len(defs) == 0 {
				sb.WriteString("No definitions stored.\n")
			} else {
				sb.WriteString("| ID | Name | States | Actions | Created |\n|---|---|---|---|---|\n")
				for _, d := range defs {
					fmt.Fprintf(&sb, "| %s | %s | %d | %d | %s |\n",
						d.ID, d.Name, len(d.States), len(d.Actions), d.CreatedAt.Format("2006-01-02 15:04:05"))
				}
			}
			return outputFor(cmd).Print(defs, sb.String())
		})
	},
}

var definitionShowCmd = &cobra.Command{
	Use:   "show <definition-id>",
	Short: "Show a stored definition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		warnEphemeral(cmd)
		return withApp(cmd.Context(), func(app *cli.App) error {
			def, err := app.Service.GetDefinition(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return outputFor(cmd).Print(def, tui.DefinitionMarkdown(def))
		})
	},
}

var definitionGraphCmd = &cobra.Command{
	Use:   "graph <definition-id>",
	Short: "Export a stored definition as a Mermaid diagram",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		warnEphemeral(cmd)
		instanceID, _ := cmd.Flags().GetString("instance")

		return withApp(cmd.Context(), func(app *cli.App) error {
			def, err := app.Service.GetDefinition(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			var overlay *graph.GraphOverlay
			if instanceID != "" {
				inst, err := app.Service.GetInstance(cmd.Context(), instanceID)
				if err != nil {
					return err
				}
				if inst.DefinitionID != def.ID {
					return fmt.Errorf("instance '%s' does not belong to definition '%s'", inst.ID, def.ID)
				}
				overlay = graph.OverlayFor(inst)
			}

			fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(def, overlay))
			return nil
		})
	},
}

// outputFor honours the --json flag of the command.
func outputFor(cmd *cobra.Command) cli.Output {
	forceJSON, _ := cmd.Flags().GetBool("json")
	out := cli.NewOutput(forceJSON)
	out.W = cmd.OutOrStdout()
	return out
}

func init() {
	rootCmd.AddCommand(definitionCmd)
	definitionCmd.AddCommand(definitionCreateCmd, definitionListCmd, definitionShowCmd, definitionGraphCmd)
	definitionCmd.PersistentFlags().Bool("json", false, "Print JSON instead of rendered markdown")
	definitionGraphCmd.Flags().String("instance", "", "Highlight the path of this instance")
}
