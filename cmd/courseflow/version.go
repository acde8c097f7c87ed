package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/courseflow"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of courseflow",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "courseflow version %s\n", strings.TrimSpace(courseflow.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
