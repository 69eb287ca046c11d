package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/trackdownhq/trackdown/internal/hierarchy"
	"github.com/trackdownhq/trackdown/internal/state"
	"github.com/trackdownhq/trackdown/internal/types"
	"github.com/trackdownhq/trackdown/internal/ui"
)

var treeCmd = &cobra.Command{
	Use:   "tree [epic-id]",
	Short: "Show an epic's full hierarchy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := resolver.GetEpicHierarchy(rootCtx, args[0])
		if err != nil {
			return err
		}
		if h == nil {
			return fmt.Errorf("epic %s not found", args[0])
		}
		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(h)
		}
		renderEpicTree(os.Stdout, h)
		return nil
	},
}

func renderEpicTree(w io.Writer, h *hierarchy.EpicHierarchy) {
	fmt.Fprintf(w, "%s %s\n", ui.CategoryStyle.Render(h.Epic.ID), h.Epic.Title)

	inEpic := make(map[string]bool, len(h.Issues))
	for _, issue := range h.Issues {
		inEpic[issue.ID] = true
	}

	// Tasks and PRs hang under their issue. Items whose issue is not among
	// this epic's issues still belong to the epic and render after the
	// issues, attached straight to it.
	tasksByIssue := make(map[string][]*types.Item)
	prsByIssue := make(map[string][]*types.Item)
	var stragglers []*types.Item
	for _, t := range h.Tasks {
		if inEpic[t.IssueID] {
			tasksByIssue[t.IssueID] = append(tasksByIssue[t.IssueID], t)
		} else {
			stragglers = append(stragglers, t)
		}
	}
	for _, pr := range h.PRs {
		if inEpic[pr.IssueID] {
			prsByIssue[pr.IssueID] = append(prsByIssue[pr.IssueID], pr)
		} else {
			stragglers = append(stragglers, pr)
		}
	}
	sort.Slice(stragglers, func(i, j int) bool { return stragglers[i].ID < stragglers[j].ID })

	for i, issue := range h.Issues {
		last := i == len(h.Issues)-1 && len(stragglers) == 0
		fmt.Fprintf(w, "%s %s\n", connector(last), itemLine(issue))
		children := append(append([]*types.Item{}, tasksByIssue[issue.ID]...), prsByIssue[issue.ID]...)
		for j, child := range children {
			prefix := "│   "
			if last {
				prefix = "    "
			}
			fmt.Fprintf(w, "%s%s %s\n", prefix, connector(j == len(children)-1), itemLine(child))
		}
	}
	for i, item := range stragglers {
		fmt.Fprintf(w, "%s %s %s\n", connector(i == len(stragglers)-1), itemLine(item),
			ui.MutedStyle.Render("(issue outside this epic)"))
	}
}

func connector(last bool) string {
	if last {
		return "└──"
	}
	return "├──"
}

func itemLine(item *types.Item) string {
	s := state.EffectiveState(item)
	line := fmt.Sprintf("%s: %s [P%d] (%s)", item.ID, item.Title, item.Priority, s)
	if item.Kind == types.KindPR {
		line += fmt.Sprintf(" %s", ui.PRStatusStyle(item.PRStatus, string(item.PRStatus)))
	}
	return line
}

func init() {
	rootCmd.AddCommand(treeCmd)
}
