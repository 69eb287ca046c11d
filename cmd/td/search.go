package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/trackdownhq/trackdown/internal/debug"
	"github.com/trackdownhq/trackdown/internal/hierarchy"
	"github.com/trackdownhq/trackdown/internal/state"
	"github.com/trackdownhq/trackdown/internal/timeparsing"
	"github.com/trackdownhq/trackdown/internal/types"
	"github.com/trackdownhq/trackdown/internal/ui"
)

var (
	searchKind          string
	searchStatus        string
	searchState         string
	searchPriority      int
	searchAssignee      string
	searchTags          []string
	searchCreatedAfter  string
	searchCreatedBefore string
	searchUpdatedAfter  string
	searchUpdatedBefore string
)

var searchCmd = &cobra.Command{
	Use:   "search [text]",
	Short: "Search work items across all kinds",
	Long: `Search work items with predicate filters.

Date flags accept compact durations (-2w, +6h), natural language
("last monday", "yesterday"), or absolute dates (2026-01-15).`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filters := hierarchy.Filters{
			Status:   searchStatus,
			State:    types.UnifiedState(searchState),
			Assignee: searchAssignee,
			Tags:     searchTags,
		}
		if len(args) > 0 {
			filters.Text = args[0]
		}
		if searchKind != "" {
			kind := types.Kind(searchKind)
			if !kind.IsValid() {
				return fmt.Errorf("invalid kind: %s (epic|issue|task|pr)", searchKind)
			}
			filters.Kinds = []types.Kind{kind}
		}
		if cmd.Flags().Changed("priority") {
			p := searchPriority
			filters.Priority = &p
		}
		var err error
		now := time.Now()
		if filters.CreatedAfter, err = parseDateFlag(searchCreatedAfter, now); err != nil {
			return err
		}
		if filters.CreatedBefore, err = parseDateFlag(searchCreatedBefore, now); err != nil {
			return err
		}
		if filters.UpdatedAfter, err = parseDateFlag(searchUpdatedAfter, now); err != nil {
			return err
		}
		if filters.UpdatedBefore, err = parseDateFlag(searchUpdatedBefore, now); err != nil {
			return err
		}

		result, err := resolver.Search(rootCtx, filters)
		if err != nil {
			return err
		}
		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(result)
		}
		for _, item := range result.Items {
			s := state.EffectiveState(item)
			fmt.Printf("%s  %s  %s\n",
				ui.AccentStyle.Render(item.ID),
				ui.StateStyle(s, fmt.Sprintf("%-21s", s)),
				item.Title)
		}
		debug.PrintNormal("%s\n", ui.MutedStyle.Render(
			fmt.Sprintf("%d items (%s)", result.Count, result.Elapsed.Round(time.Microsecond))))
		return nil
	},
}

func parseDateFlag(value string, now time.Time) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := timeparsing.Parse(value, now)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func init() {
	searchCmd.Flags().StringVar(&searchKind, "kind", "", "limit to one kind (epic|issue|task|pr)")
	searchCmd.Flags().StringVar(&searchStatus, "status", "", "match legacy status")
	searchCmd.Flags().StringVar(&searchState, "state", "", "match effective unified state")
	searchCmd.Flags().IntVar(&searchPriority, "priority", 2, "match priority (0-4)")
	searchCmd.Flags().StringVar(&searchAssignee, "assignee", "", "match assignee")
	searchCmd.Flags().StringSliceVar(&searchTags, "tag", nil, "require tag (repeatable)")
	searchCmd.Flags().StringVar(&searchCreatedAfter, "created-after", "", "created after date")
	searchCmd.Flags().StringVar(&searchCreatedBefore, "created-before", "", "created before date")
	searchCmd.Flags().StringVar(&searchUpdatedAfter, "updated-after", "", "updated after date")
	searchCmd.Flags().StringVar(&searchUpdatedBefore, "updated-before", "", "updated before date")
	rootCmd.AddCommand(searchCmd)
}
