package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/trackdownhq/trackdown/internal/debug"
	"github.com/trackdownhq/trackdown/internal/docstore"
	"github.com/trackdownhq/trackdown/internal/state"
	"github.com/trackdownhq/trackdown/internal/types"
	"github.com/trackdownhq/trackdown/internal/ui"
)

var (
	showFull  bool
	showWatch bool
)

var showCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show a work item with its hierarchy and relationships",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		if _, ok := types.KindForID(id); !ok {
			return fmt.Errorf("unrecognized item ID: %s", id)
		}
		if err := renderShow(id); err != nil {
			return err
		}
		if showWatch {
			return watchAndRerender(id)
		}
		return nil
	},
}

func renderShow(id string) error {
	kind, _ := types.KindForID(id)
	item := resolverItem(kind, id)
	if item == nil {
		return fmt.Errorf("%s not found", id)
	}

	if jsonOutput {
		related, err := resolver.GetRelatedItems(rootCtx, id)
		if err != nil {
			return err
		}
		return json.NewEncoder(os.Stdout).Encode(related)
	}

	header := fmt.Sprintf("%s: %s", item.ID, item.Title)
	fmt.Println(ui.CategoryStyle.Render(header))
	fmt.Printf("%s %s  [P%d]",
		ui.MutedStyle.Render("state:"),
		ui.StateStyle(state.EffectiveState(item), string(state.EffectiveState(item))),
		item.Priority)
	if item.Kind == types.KindPR {
		fmt.Printf("  %s %s", ui.MutedStyle.Render("pr:"),
			ui.PRStatusStyle(item.PRStatus, string(item.PRStatus)))
	}
	if item.Assignee != "" {
		fmt.Printf("  %s %s", ui.MutedStyle.Render("assignee:"), item.Assignee)
	}
	fmt.Println()

	if err := printParents(item); err != nil {
		return err
	}
	printEdges(item)

	if item.Description != "" {
		body := item.Description
		if !showFull {
			body = ui.TruncateLines(body, ui.DefaultMaxLines, ui.DefaultContextLines)
		}
		fmt.Println()
		fmt.Print(ui.RenderMarkdown(body))
	}
	return nil
}

func resolverItem(kind types.Kind, id string) *types.Item {
	if err := resolver.Cache().EnsureFresh(rootCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return resolver.Cache().Get(kind, id)
}

func printParents(item *types.Item) error {
	parent, err := resolver.GetParent(rootCtx, item.ID, item.Kind)
	if err != nil {
		return err
	}
	if parent != nil {
		fmt.Printf("%s %s: %s\n", ui.MutedStyle.Render("parent:"), parent.ID, parent.Title)
	}
	return nil
}

func printEdges(item *types.Item) {
	printIDList("depends on", item.Dependencies)
	printIDList("blocked by", item.BlockedBy)
	printIDList("blocks", item.Blocks)
	if item.Kind == types.KindPR {
		fmt.Printf("%s %d/%d approvals\n", ui.MutedStyle.Render("review:"),
			len(item.Approvals), len(item.Reviewers))
	}
}

func printIDList(label string, ids []string) {
	if len(ids) == 0 {
		return
	}
	fmt.Printf("%s %v\n", ui.MutedStyle.Render(label+":"), ids)
}

// watchAndRerender re-renders the item whenever its backing document (or
// any document of its kind) changes on disk.
func watchAndRerender(id string) error {
	kind, _ := types.KindForID(id)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(store.KindDir(kind)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", docstore.ErrNotInitialized, store.KindDir(kind))
		}
		return err
	}

	debug.PrintlnNormal(ui.MutedStyle.Render(ui.IconInfo + " watching for changes, ctrl-c to stop"))
	return watchLoop(rootCtx, watcher.Events, watcher.Errors, func() {
		if err := resolver.Cache().Rebuild(rootCtx); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
			return
		}
		fmt.Print("\033[H\033[2J") // clear screen
		if err := renderShow(id); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	})
}

// watchLoop coalesces event bursts: each relevant event re-arms a short
// timer and the rerender runs when the timer fires, so the last write of an
// editor save burst always produces a render.
func watchLoop(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error, rerender func()) error {
	const debounceWindow = 200 * time.Millisecond
	timer := time.NewTimer(debounceWindow)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(debounceWindow)
		case <-timer.C:
			rerender()
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "Warning: watch error: %v\n", err)
		}
	}
}

func init() {
	showCmd.Flags().BoolVar(&showFull, "full", false, "show complete text without truncation")
	showCmd.Flags().BoolVarP(&showWatch, "watch", "w", false, "re-render when the item changes on disk")
	rootCmd.AddCommand(showCmd)
}
