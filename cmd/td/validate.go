package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/trackdownhq/trackdown/internal/debug"
	"github.com/trackdownhq/trackdown/internal/ui"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check relationship integrity across all work items",
	Long: `Scan every work item for structural defects: orphaned epic/issue
references, epic mismatches between a task/PR and its parent issue,
circular dependencies, and incomplete state metadata.

Exits non-zero when errors are found; warnings alone exit zero.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := resolver.ValidateRelationships(rootCtx)
		if err != nil {
			return err
		}
		if jsonOutput {
			if err := json.NewEncoder(os.Stdout).Encode(result); err != nil {
				return err
			}
		} else {
			for _, p := range result.Errors {
				fmt.Printf("%s %s\n", ui.FailStyle.Render(ui.IconFail), p.Message)
			}
			for _, p := range result.Warnings {
				fmt.Printf("%s %s\n", ui.WarnStyle.Render(ui.IconWarn), p.Message)
			}
			if result.Valid && len(result.Warnings) == 0 {
				debug.PrintNormal("%s all relationships valid\n", ui.PassStyle.Render(ui.IconPass))
			}
		}
		if !result.Valid {
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
