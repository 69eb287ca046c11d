package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/trackdownhq/trackdown/internal/state"
	"github.com/trackdownhq/trackdown/internal/types"
	"github.com/trackdownhq/trackdown/internal/ui"
)

var (
	stateReason   string
	stateReviewer string
)

var stateCmd = &cobra.Command{
	Use:   "state [id] [to-state]",
	Short: "Transition a work item's unified lifecycle state",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, target := args[0], types.UnifiedState(args[1])
		kind, ok := types.KindForID(id)
		if !ok {
			return fmt.Errorf("unrecognized item ID: %s", id)
		}
		if kind == types.KindPR {
			return fmt.Errorf("use 'td pr status' for pull request transitions")
		}

		item := resolverItem(kind, id)
		if item == nil {
			return fmt.Errorf("%s not found", id)
		}

		next, err := state.Apply(item, state.Transition{
			To:       target,
			Actor:    actor,
			Reviewer: stateReviewer,
			Reason:   stateReason,
		}, time.Now().UTC())
		if err != nil {
			return err
		}

		path, err := store.FindPath(kind, id)
		if err != nil {
			return err
		}
		updated, err := store.UpdateFile(path, map[string]interface{}{
			"state":          string(next.State),
			"state_metadata": next.StateMetadata,
		})
		if err != nil {
			return err
		}
		// Mutate then rebuild: two required, non-atomic steps.
		if err := resolver.Cache().Rebuild(rootCtx); err != nil {
			return err
		}

		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(updated)
		}
		fmt.Printf("%s %s: %s -> %s\n",
			ui.PassStyle.Render(ui.IconPass), id,
			next.StateMetadata.PreviousState,
			ui.StateStyle(next.State, string(next.State)))
		return nil
	},
}

var stateAllowedCmd = &cobra.Command{
	Use:   "allowed [id]",
	Short: "List the transitions allowed from an item's current state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, ok := types.KindForID(args[0])
		if !ok {
			return fmt.Errorf("unrecognized item ID: %s", args[0])
		}
		item := resolverItem(kind, args[0])
		if item == nil {
			return fmt.Errorf("%s not found", args[0])
		}
		current := state.EffectiveState(item)
		allowed := state.AllowedTransitions(current)
		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
				"current": current,
				"allowed": allowed,
			})
		}
		fmt.Printf("%s is %s\n", args[0], ui.StateStyle(current, string(current)))
		for _, s := range allowed {
			fmt.Printf("  -> %s\n", s)
		}
		if len(allowed) == 0 {
			fmt.Println(ui.MutedStyle.Render("  (resolution state, no transitions)"))
		}
		return nil
	},
}

func init() {
	stateCmd.Flags().StringVar(&stateReason, "reason", "", "human-readable transition reason")
	stateCmd.Flags().StringVar(&stateReviewer, "reviewer", "", "reviewer who signed off")
	stateCmd.AddCommand(stateAllowedCmd)
	rootCmd.AddCommand(stateCmd)
}
