package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/trackdownhq/trackdown/internal/debug"
	"github.com/trackdownhq/trackdown/internal/migration"
	"github.com/trackdownhq/trackdown/internal/types"
	"github.com/trackdownhq/trackdown/internal/ui"
)

var (
	migrateDryRun   bool
	migrateYes      bool
	migrateRollback string
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate items from the legacy status field to unified states",
	Long: `Convert every item still carrying only a legacy status to the unified
state representation. Migration is best-effort: one item's failure never
blocks the rest, and the migration log is written next to the workspace so
a rollback plan can be derived from it later.

Exits non-zero when any item fails to migrate.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if migrateRollback != "" {
			return runRollback(migrateRollback)
		}

		items := allItems()
		preview := migration.PreviewMigration(items)
		pending := 0
		for _, p := range preview {
			if p.NeedsMigration {
				pending++
			}
		}

		if migrateDryRun {
			if jsonOutput {
				return json.NewEncoder(os.Stdout).Encode(preview)
			}
			for _, p := range preview {
				if !p.NeedsMigration {
					continue
				}
				fmt.Printf("%s: %q -> %s\n", p.ItemID, p.CurrentStatus, p.TargetState)
			}
			debug.PrintNormal("%s\n", ui.MutedStyle.Render(fmt.Sprintf("%d of %d items need migration", pending, len(preview))))
			return nil
		}

		if pending == 0 {
			debug.PrintlnNormal(ui.PassStyle.Render(ui.IconPass) + " nothing to migrate")
			return nil
		}

		if !migrateYes && !ui.IsAgentMode() {
			confirmed := false
			form := huh.NewForm(huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Migrate %d items to unified states?", pending)).
					Description("A rollback plan can be derived from the migration log.").
					Value(&confirmed),
			))
			if err := form.Run(); err != nil {
				return err
			}
			if !confirmed {
				fmt.Println("aborted")
				return nil
			}
		}

		result := migration.MigrateItems(items, actor, time.Now().UTC())
		for _, r := range result.Results {
			if err := persistMigrated(r.Item); err != nil {
				return err
			}
		}
		if err := resolver.Cache().Rebuild(rootCtx); err != nil {
			return err
		}
		if err := writeMigrationLog(result.Log); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not write migration log: %v\n", err)
		}

		// Post-migration consistency check over the reloaded documents.
		if report := migration.ValidateMigration(allItems()); !report.Valid {
			for _, p := range report.Problems {
				fmt.Fprintf(os.Stderr, "%s %s\n", ui.WarnStyle.Render(ui.IconWarn), p)
			}
		}

		if jsonOutput {
			if err := json.NewEncoder(os.Stdout).Encode(result); err != nil {
				return err
			}
		} else {
			fmt.Printf("%s migrated %d, skipped %d, failed %d\n",
				ui.PassStyle.Render(ui.IconPass),
				result.MigratedCount, result.SkippedCount, result.FailedCount)
			for _, e := range result.Errors {
				fmt.Printf("%s %s\n", ui.FailStyle.Render(ui.IconFail), e)
			}
		}
		// The caller decides what a partial failure means; for the CLI it
		// means a non-zero exit.
		if result.FailedCount > 0 {
			os.Exit(1)
		}
		return nil
	},
}

func allItems() []*types.Item {
	if err := resolver.Cache().EnsureFresh(rootCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	var items []*types.Item
	for _, kind := range types.Kinds {
		items = append(items, resolver.Cache().All(kind)...)
	}
	return items
}

func persistMigrated(item *types.Item) error {
	path, err := store.FindPath(item.Kind, item.ID)
	if err != nil {
		return err
	}
	_, err = store.UpdateFile(path, map[string]interface{}{
		"state":          string(item.State),
		"state_metadata": item.StateMetadata,
	})
	return err
}

func migrationLogPath() string {
	return filepath.Join(cfg.Root, ".trackdown", "migration.log.json")
}

func writeMigrationLog(log []migration.LogEntry) error {
	data, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(migrationLogPath()), 0o755); err != nil {
		return err
	}
	return os.WriteFile(migrationLogPath(), data, 0o644)
}

func runRollback(logPath string) error {
	data, err := os.ReadFile(logPath)
	if err != nil {
		return fmt.Errorf("reading migration log: %w", err)
	}
	var log []migration.LogEntry
	if err := json.Unmarshal(data, &log); err != nil {
		return fmt.Errorf("parsing migration log: %w", err)
	}

	plan := migration.CreateRollbackPlan(log)
	reverted := 0
	for _, op := range plan {
		if op.Action != migration.ActionRemoveStateFields {
			continue
		}
		kind, ok := types.KindForID(op.ItemID)
		if !ok {
			fmt.Fprintf(os.Stderr, "Warning: skipping unknown ID %s\n", op.ItemID)
			continue
		}
		path, err := store.FindPath(kind, op.ItemID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
			continue
		}
		fields := map[string]interface{}{
			"state":          nil,
			"state_metadata": nil,
		}
		if op.OriginalStatus != "" {
			fields["status"] = op.OriginalStatus
		}
		if _, err := store.UpdateFile(path, fields); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: rollback of %s failed: %v\n", op.ItemID, err)
			continue
		}
		reverted++
	}
	if err := resolver.Cache().Rebuild(rootCtx); err != nil {
		return err
	}
	fmt.Printf("%s rolled back %d items\n", ui.PassStyle.Render(ui.IconPass), reverted)
	return nil
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "preview without writing")
	migrateCmd.Flags().BoolVarP(&migrateYes, "yes", "y", false, "skip the confirmation prompt")
	migrateCmd.Flags().StringVar(&migrateRollback, "rollback", "", "apply a rollback plan derived from the given migration log")
	rootCmd.AddCommand(migrateCmd)
}
