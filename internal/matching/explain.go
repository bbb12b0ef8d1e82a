package matching

import (
	"fmt"
	"slices"
	"strings"

	"github.com/MereWhiplash/jobmatch/internal/types"
)

const skillPrefix = "skill:"

// evaluate lists the hard filters a hit satisfied plus the profile skills it
// shares (matched) or lacks (failed). Lacking a skill is a soft miss; only
// hard filters exclude.
func evaluate(filters types.HardFilters, profileSkills []string, attrs types.Attributes) (matched, failed []string) {
	matched, failed = filters.Evaluate(attrs)
	have := types.NormalizeSkills(attrs.Skills)
	for _, s := range profileSkills {
		if slices.Contains(have, s) {
			matched = append(matched, skillPrefix+s)
		} else {
			failed = append(failed, skillPrefix+s)
		}
	}
	if matched == nil {
		matched = []string{}
	}
	if failed == nil {
		failed = []string{}
	}
	return matched, failed
}

// Explain renders a human-readable rationale from the result's score and filter lists
func Explain(r types.MatchResult) string {
	var satisfied, failed, shared, missing []string
	for _, m := range r.Matched {
		if s, ok := strings.CutPrefix(m, skillPrefix); ok {
			shared = append(shared, s)
		} else {
			satisfied = append(satisfied, m)
		}
	}
	for _, f := range r.Failed {
		if s, ok := strings.CutPrefix(f, skillPrefix); ok {
			missing = append(missing, s)
		} else {
			failed = append(failed, f)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s semantic match (similarity %.2f).", strength(r.Score), r.Score)
	if len(satisfied) > 0 {
		fmt.Fprintf(&b, " Hard filters satisfied: %s.", strings.Join(satisfied, ", "))
	}
	if len(failed) > 0 {
		fmt.Fprintf(&b, " Hard filters failed: %s.", strings.Join(failed, ", "))
	}
	if len(shared) > 0 {
		fmt.Fprintf(&b, " Shared skills: %s.", strings.Join(shared, ", "))
	}
	if len(missing) > 0 {
		fmt.Fprintf(&b, " Missing skills: %s.", strings.Join(missing, ", "))
	}
	if len(shared) == 0 && len(satisfied) == 0 && len(failed) == 0 {
		b.WriteString(" Ranked on text similarity alone.")
	}
	return b.String()
}

func strength(score float64) string {
	switch {
	case score >= 0.8:
		return "Strong"
	case score >= 0.6:
		return "Moderate"
	default:
		return "Weak"
	}
}
