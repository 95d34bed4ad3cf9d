package main

import (
	"fmt"

	"github.com/aretw0/stateflow/internal/presentation/graph"
	"github.com/aretw0/stateflow/pkg/definition"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph <file>",
	Short: "Export a definition file as a Mermaid diagram",
	Long:  `Reads a YAML or JSON definition file and outputs a Mermaid diagram (graph TD) of its states and actions.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := definition.Load(args[0])
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(def, nil))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
