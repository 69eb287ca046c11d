// Package migration converts items from the legacy single-status field to
// the unified state representation.
//
// Migration is best-effort and partial-tolerant: one item's failure never
// blocks the rest of a batch. Every function here is pure; callers persist
// the results through the document store and decide whether a non-zero
// failure count aborts the overall operation.
package migration

import (
	"fmt"
	"time"

	"github.com/trackdownhq/trackdown/internal/state"
	"github.com/trackdownhq/trackdown/internal/types"
)

// MigrationReason is recorded on every synthesized state metadata.
const MigrationReason = "migrated from legacy status"

// Rollback plan actions
const (
	ActionRemoveStateFields = "remove_state_fields"
	ActionNone              = "no_action"
)

// NeedsMigration returns true iff the item still relies solely on the legacy
// status field.
func NeedsMigration(item *types.Item) bool {
	return !item.HasState()
}

// LogEntry records the outcome of migrating a single item.
type LogEntry struct {
	ItemID    string             `json:"item_id"`
	OldStatus string             `json:"old_status"`
	NewState  types.UnifiedState `json:"new_state,omitempty"`
	Success   bool               `json:"success"`
	Skipped   bool               `json:"skipped,omitempty"`
	Error     string             `json:"error,omitempty"`
}

// MigrateItem derives the item's effective state from its legacy status and
// returns a copy carrying the new state plus synthesized metadata. The
// migration is state-preserving: the migrated item's state equals the
// pre-migration effective state exactly.
func MigrateItem(item *types.Item, actor string, now time.Time) (*types.Item, LogEntry, error) {
	if item == nil || item.ID == "" {
		entry := LogEntry{Success: false, Error: "item has no id"}
		if item != nil {
			entry.OldStatus = item.Status
		}
		return nil, entry, fmt.Errorf("cannot migrate item without an id")
	}
	entry := LogEntry{ItemID: item.ID, OldStatus: item.Status}
	if !NeedsMigration(item) {
		entry.Skipped = true
		entry.NewState = item.State
		return item, entry, nil
	}
	if actor == "" {
		entry.Error = "migration requires an actor"
		return nil, entry, fmt.Errorf("migration of %s requires an actor", item.ID)
	}

	newState := state.EffectiveState(item)
	migrated := item.Clone()
	migrated.State = newState
	migrated.StateMetadata = &types.StateMetadata{
		TransitionedAt:   now,
		TransitionedBy:   actor,
		TransitionReason: MigrationReason,
		PreviousState:    item.Status,
	}
	migrated.UpdatedDate = now

	entry.NewState = newState
	entry.Success = true
	return migrated, entry, nil
}

// ItemResult pairs a migrated item with its log entry.
type ItemResult struct {
	Item  *types.Item `json:"item"`
	Entry LogEntry    `json:"entry"`
}

// BatchResult aggregates a batch migration.
type BatchResult struct {
	MigratedCount int          `json:"migrated_count"`
	FailedCount   int          `json:"failed_count"`
	SkippedCount  int          `json:"skipped_count"`
	Log           []LogEntry   `json:"migration_log"`
	Results       []ItemResult `json:"-"`
	Errors        []string     `json:"errors,omitempty"`
}

// MigrateItems applies MigrateItem to each item. Failures are captured per
// item and never abort the batch.
func MigrateItems(items []*types.Item, actor string, now time.Time) *BatchResult {
	res := &BatchResult{}
	for _, item := range items {
		migrated, entry, err := MigrateItem(item, actor, now)
		res.Log = append(res.Log, entry)
		switch {
		case err != nil:
			res.FailedCount++
			res.Errors = append(res.Errors, err.Error())
		case entry.Skipped:
			res.SkippedCount++
		default:
			res.MigratedCount++
			res.Results = append(res.Results, ItemResult{Item: migrated, Entry: entry})
		}
	}
	return res
}

// PreviewEntry describes what migrating one item would do.
type PreviewEntry struct {
	ItemID         string             `json:"item_id"`
	CurrentStatus  string             `json:"current_status"`
	TargetState    types.UnifiedState `json:"target_state"`
	NeedsMigration bool               `json:"needs_migration"`
}

// PreviewMigration is a read-only dry run over the items.
func PreviewMigration(items []*types.Item) []PreviewEntry {
	preview := make([]PreviewEntry, 0, len(items))
	for _, item := range items {
		preview = append(preview, PreviewEntry{
			ItemID:         item.ID,
			CurrentStatus:  item.Status,
			TargetState:    state.EffectiveState(item),
			NeedsMigration: NeedsMigration(item),
		})
	}
	return preview
}

// RollbackOp is one reverse operation in a rollback plan.
type RollbackOp struct {
	ItemID         string `json:"item_id"`
	Action         string `json:"action"`
	OriginalStatus string `json:"original_status,omitempty"`
}

// CreateRollbackPlan derives reverse operations from a migration log: every
// successful entry gets a remove_state_fields op restoring the original
// status; failed or skipped entries get no_action.
func CreateRollbackPlan(log []LogEntry) []RollbackOp {
	plan := make([]RollbackOp, 0, len(log))
	for _, entry := range log {
		op := RollbackOp{ItemID: entry.ItemID, Action: ActionNone}
		if entry.Success {
			op.Action = ActionRemoveStateFields
			op.OriginalStatus = entry.OldStatus
		}
		plan = append(plan, op)
	}
	return plan
}

// ApplyRollbackPlan applies a rollback plan to the given items, returning
// copies with state fields removed and the legacy status restored. Items
// without a matching remove_state_fields op pass through untouched.
func ApplyRollbackPlan(items []*types.Item, plan []RollbackOp) []*types.Item {
	ops := make(map[string]RollbackOp, len(plan))
	for _, op := range plan {
		if op.Action == ActionRemoveStateFields {
			ops[op.ItemID] = op
		}
	}
	out := make([]*types.Item, 0, len(items))
	for _, item := range items {
		op, ok := ops[item.ID]
		if !ok {
			out = append(out, item)
			continue
		}
		restored := item.Clone()
		restored.State = ""
		restored.StateMetadata = nil
		restored.Status = op.OriginalStatus
		out = append(out, restored)
	}
	return out
}

// ValidationReport lists migration consistency problems across items.
type ValidationReport struct {
	Valid    bool     `json:"valid"`
	Problems []string `json:"problems,omitempty"`
}

// ValidateMigration cross-checks every item: state and metadata must be
// self-consistent, and a retained legacy status must remain backward
// compatible with the state derived from it.
func ValidateMigration(items []*types.Item) *ValidationReport {
	report := &ValidationReport{Valid: true}
	for _, item := range items {
		if !item.HasState() {
			continue
		}
		if md := state.ValidateStateMetadata(item.StateMetadata); !md.Valid {
			report.Valid = false
			for _, e := range md.Errors {
				report.Problems = append(report.Problems, fmt.Sprintf("%s: %s", item.ID, e))
			}
		}
		if item.Status != "" && state.FromLegacyStatus(item.Status) != item.State {
			report.Valid = false
			report.Problems = append(report.Problems,
				fmt.Sprintf("%s: legacy status %q derives to %s but state is %s",
					item.ID, item.Status, state.FromLegacyStatus(item.Status), item.State))
		}
	}
	return report
}
