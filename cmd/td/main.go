// Package main implements td, a local markdown-backed work tracker.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/trackdownhq/trackdown/internal/cache"
	"github.com/trackdownhq/trackdown/internal/config"
	"github.com/trackdownhq/trackdown/internal/debug"
	"github.com/trackdownhq/trackdown/internal/docstore"
	"github.com/trackdownhq/trackdown/internal/hierarchy"
	"github.com/trackdownhq/trackdown/internal/telemetry"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	workspaceDir string
	actor        string
	jsonOutput   bool
	verboseFlag  bool
	quietFlag    bool

	cfg      *config.Config
	store    *docstore.FileStore
	resolver *hierarchy.Resolver

	// Signal-aware context for graceful cancellation
	rootCtx    context.Context
	rootCancel context.CancelFunc
)

var rootCmd = &cobra.Command{
	Use:     "td",
	Short:   "Track epics, issues, tasks, and pull requests as markdown files",
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		debug.SetVerbose(verboseFlag)
		debug.SetQuiet(quietFlag)

		var err error
		cfg, err = config.Load(workspaceDir)
		if err != nil {
			return err
		}
		if actor == "" {
			actor = cfg.DefaultActor
		}
		if actor == "" {
			actor = os.Getenv("USER")
		}

		store = docstore.NewFileStore(cfg.Root)
		resolver = hierarchy.New(cache.New(store, cache.WithTTL(cfg.CacheTTL)))

		if err := telemetry.Init(rootCtx, "td", Version); err != nil {
			debug.Logf("telemetry init failed: %v\n", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		telemetry.Shutdown(ctx)
	},
}

func main() {
	rootCtx, rootCancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer rootCancel()

	rootCmd.PersistentFlags().StringVarP(&workspaceDir, "dir", "d", ".", "workspace directory")
	rootCmd.PersistentFlags().StringVar(&actor, "actor", "", "actor recorded on transitions")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "JSON output")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "suppress non-essential output")

	if err := rootCmd.ExecuteContext(rootCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
