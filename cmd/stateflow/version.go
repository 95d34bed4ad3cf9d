package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/stateflow"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of stateflow",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "stateflow version %s\n", strings.TrimSpace(stateflow.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
