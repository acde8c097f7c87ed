package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/courseflow/pkg/content"
	"github.com/aretw0/courseflow/pkg/flow"
)

var validateCmd = &cobra.Command{
	Use:   "validate [content.yaml]",
	Short: "Check a course content document",
	Long:  `Parses the content document and builds the dialogue flow from it, reporting missing reference text, empty instructions and duplicate topics.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("content")
		if len(args) > 0 {
			path = args[0]
		}

		c, err := content.Load(path)
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		f, err := flow.New(c)
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Content is valid! ✅ %s, %d topics\n", c.ServiceName(), f.Catalog().Len())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
