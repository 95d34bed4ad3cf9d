package main

import (
	"errors"
	"fmt"

	"github.com/aretw0/stateflow"
	"github.com/aretw0/stateflow/pkg/definition"
	"github.com/spf13/cobra"
)

var errInvalidDefinition = errors.New("definition is invalid")

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a definition file for consistency",
	Long:  `Checks the shape of a YAML or JSON definition file, then its structure (one initial state, known state references, unique IDs), and reports every problem at once.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		def, err := definition.Load(args[0])
		if err != nil {
			var schemaErr *definition.SchemaError
			if errors.As(err, &schemaErr) {
				printProblems(cmd, schemaErr.Messages())
				return errInvalidDefinition
			}
			return err
		}

		result := stateflow.ValidateDefinition(def)
		if !result.IsValid {
			printProblems(cmd, result.Errors)
			return errInvalidDefinition
		}

		fmt.Fprintf(out, "Definition '%s' is valid: %d states, %d actions\n", def.Name, len(def.States), len(def.Actions))
		return nil
	},
}

func printProblems(cmd *cobra.Command, problems []string) {
	w := cmd.ErrOrStderr()
	fmt.Fprintf(w, "Validation failed with %d problem(s):\n", len(problems))
	for _, p := range problems {
		fmt.Fprintf(w, "  - %s\n", p)
	}
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
