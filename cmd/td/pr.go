package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/trackdownhq/trackdown/internal/debug"
	"github.com/trackdownhq/trackdown/internal/prstate"
	"github.com/trackdownhq/trackdown/internal/types"
	"github.com/trackdownhq/trackdown/internal/ui"
)

var prCmd = &cobra.Command{
	Use:   "pr",
	Short: "Manage pull request review status",
}

var prStatusCmd = &cobra.Command{
	Use:   "status [pr-id] [to-status]",
	Short: "Transition a PR to a new review status",
	Long: `Transition a pull request along the review state machine
(draft -> open -> review -> approved -> merged). The document is moved
into the directory the new status dictates.

Approval rules: a PR with reviewers cannot reach approved with zero
approvals, and merging requires approved first.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, target := args[0], types.PRStatus(args[1])
		pr := resolverItem(types.KindPR, id)
		if pr == nil {
			return fmt.Errorf("%s not found", id)
		}

		res := prstate.ValidateStatusTransition(pr, target)
		if !res.Valid {
			for _, e := range res.Errors {
				fmt.Fprintf(os.Stderr, "%s %s\n", ui.FailStyle.Render(ui.IconFail), e)
			}
			os.Exit(1)
		}
		for _, w := range res.Warnings {
			fmt.Fprintf(os.Stderr, "%s %s\n", ui.WarnStyle.Render(ui.IconWarn), w)
		}

		updated, err := transitionPR(pr, target)
		if err != nil {
			return err
		}
		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(updated)
		}
		fmt.Printf("%s %s: %s -> %s\n",
			ui.PassStyle.Render(ui.IconPass), id,
			pr.PRStatus, ui.PRStatusStyle(target, string(target)))
		return nil
	},
}

var prNextCmd = &cobra.Command{
	Use:   "next [pr-id]",
	Short: "Recommend the next review status for a PR",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pr := resolverItem(types.KindPR, args[0])
		if pr == nil {
			return fmt.Errorf("%s not found", args[0])
		}
		next, ok := prstate.NextRecommendedStatus(pr)
		if jsonOutput {
			out := map[string]interface{}{"current": pr.PRStatus}
			if ok {
				out["recommended"] = next
			}
			return json.NewEncoder(os.Stdout).Encode(out)
		}
		if !ok {
			if pr.PRStatus.IsTerminal() {
				fmt.Printf("%s is %s, nothing further to recommend\n",
					pr.ID, ui.PRStatusStyle(pr.PRStatus, string(pr.PRStatus)))
			} else {
				fmt.Printf("%s is %s, reopen it explicitly to continue\n",
					pr.ID, ui.PRStatusStyle(pr.PRStatus, string(pr.PRStatus)))
			}
			return nil
		}
		fmt.Printf("%s is %s, next: %s\n",
			pr.ID,
			ui.PRStatusStyle(pr.PRStatus, string(pr.PRStatus)),
			ui.PRStatusStyle(next, string(next)))
		return nil
	},
}

var prAutoCmd = &cobra.Command{
	Use:   "auto [pr-id]",
	Short: "Advance a PR to approved when every reviewer has approved",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var prs []*types.Item
		if len(args) == 1 {
			pr := resolverItem(types.KindPR, args[0])
			if pr == nil {
				return fmt.Errorf("%s not found", args[0])
			}
			prs = []*types.Item{pr}
		} else {
			if err := resolver.Cache().EnsureFresh(rootCtx); err != nil {
				return err
			}
			prs = resolver.Cache().All(types.KindPR)
		}

		advanced := 0
		for _, pr := range prs {
			target, ok := prstate.AutoStatusTransition(pr)
			if !ok {
				continue
			}
			if _, err := transitionPR(pr, target); err != nil {
				fmt.Fprintf(os.Stderr, "%s %s: %v\n", ui.FailStyle.Render(ui.IconFail), pr.ID, err)
				continue
			}
			fmt.Printf("%s %s: %s -> %s\n",
				ui.PassStyle.Render(ui.IconPass), pr.ID,
				pr.PRStatus, ui.PRStatusStyle(target, string(target)))
			advanced++
		}
		if advanced == 0 && !debug.IsQuiet() {
			fmt.Println(ui.MutedStyle.Render("no PRs eligible for auto-approval"))
		}
		return nil
	},
}

// transitionPR persists a validated status change: frontmatter update, then
// the file move into the status directory, then a cache rebuild. The move
// happens second so a crash between the steps leaves the status field as the
// source of truth for where the file belongs.
func transitionPR(pr *types.Item, to types.PRStatus) (*types.Item, error) {
	next, err := prstate.Apply(pr, to, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	path, err := store.FindPath(types.KindPR, pr.ID)
	if err != nil {
		return nil, err
	}
	updated, err := store.UpdateFile(path, map[string]interface{}{
		"pr_status": string(next.PRStatus),
	})
	if err != nil {
		return nil, err
	}
	if _, err := store.MovePR(next, to); err != nil {
		return nil, err
	}
	if err := resolver.Cache().Rebuild(rootCtx); err != nil {
		return nil, err
	}
	return updated, nil
}

func init() {
	prCmd.AddCommand(prStatusCmd)
	prCmd.AddCommand(prNextCmd)
	prCmd.AddCommand(prAutoCmd)
	rootCmd.AddCommand(prCmd)
}
