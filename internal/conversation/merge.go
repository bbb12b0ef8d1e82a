package conversation

import (
	"slices"

	"github.com/MereWhiplash/jobmatch/internal/types"
)

// Extraction is what one extraction pass found in the conversation so far
type Extraction struct {
	Preferences types.Preferences
	// Retract lists fields the user explicitly withdrew
	Retract []types.PreferenceField
}

// MergeResult describes how a merge changed the preferences
type MergeResult struct {
	Preferences types.Preferences
	Changed     []types.PreferenceField
	Retracted   []types.PreferenceField
	// Contradiction is set when a retraction or an overwrite of an already
	// present value happened
	Contradiction bool
}

// Merge folds an extraction into the current preferences. Present fields
// overwrite, absent fields keep their value, and retracted fields are cleared
// unless the same extraction states them again. It never mutates its inputs.
func Merge(current types.Preferences, ext Extraction) MergeResult {
	incoming := ext.Preferences.Normalized()
	res := MergeResult{Preferences: current.Clone()}

	for _, f := range ext.Retract {
		if incoming.Has(f) || !res.Preferences.Has(f) || slices.Contains(res.Retracted, f) {
			continue
		}
		res.Preferences.Clear(f)
		res.Retracted = append(res.Retracted, f)
		res.Contradiction = true
	}

	for _, f := range incoming.Fields() {
		// Re-extraction from the full history may list the same values in
		// another order; that keeps the current value and its display order.
		if res.Preferences.SameValue(f, incoming) {
			continue
		}
		if res.Preferences.Has(f) {
			res.Contradiction = true
		}
		res.Preferences.Set(f, incoming)
		res.Changed = append(res.Changed, f)
	}

	return res
}

// NextState decides the lifecycle state after a merge. Closed is terminal.
//
// A contradiction reopens eliciting even when every required field is still
// present: a retraction or a changed value is something the user should see
// played back before the session confirms again. The next turn that changes
// nothing returns to confirming.
func NextState(current types.SessionState, prefs types.Preferences, contradiction bool, required []types.PreferenceField) types.SessionState {
	if current == types.StateClosed {
		return types.StateClosed
	}
	if contradiction {
		return types.StateEliciting
	}
	if len(Missing(prefs, required)) == 0 {
		return types.StateConfirming
	}
	return types.StateEliciting
}

// Missing returns the required fields not yet present
func Missing(prefs types.Preferences, required []types.PreferenceField) []types.PreferenceField {
	var out []types.PreferenceField
	for _, f := range required {
		if !prefs.Has(f) {
			out = append(out, f)
		}
	}
	return out
}
