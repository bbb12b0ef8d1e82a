package types

import (
	"fmt"
	"slices"
	"strings"
)

// Filter labels reported in MatchResult.Matched / Failed
const (
	FilterLocation       = "location"
	FilterSalary         = "salary"
	FilterSkills         = "skills"
	FilterExcludedSkills = "excluded_skills"
	FilterEmploymentType = "employment_type"
	FilterRemote         = "remote"
)

// HardFilters are structured predicates applied before ranking.
// A zero value field is not applied.
type HardFilters struct {
	// Locations matches when any entry matches. "remote" matches remote
	// entities, "onsite" matches non-remote ones, "any" matches everything,
	// other values compare case-insensitively with Attributes.Location.
	Locations       []string `json:"locations,omitempty"`
	MinSalary       int      `json:"min_salary,omitempty"`
	MaxSalary       int      `json:"max_salary,omitempty"`
	RequiredSkills  []string `json:"required_skills,omitempty"`
	ExcludedSkills  []string `json:"excluded_skills,omitempty"`
	EmploymentTypes []string `json:"employment_types,omitempty"`
	RemoteOnly      bool     `json:"remote_only,omitempty"`
}

// Match reports whether the attributes satisfy every filter
func (f HardFilters) Match(a Attributes) bool {
	_, failed := f.Evaluate(a)
	return len(failed) == 0
}

// Evaluate returns the labels of applied filters that passed and failed
func (f HardFilters) Evaluate(a Attributes) (matched, failed []string) {
	check := func(label string, ok bool) {
		if ok {
			matched = append(matched, label)
		} else {
			failed = append(failed, label)
		}
	}

	if len(f.Locations) > 0 {
		check(FilterLocation, locationMatches(f.Locations, a))
	}
	if f.MinSalary > 0 || f.MaxSalary > 0 {
		check(FilterSalary, salaryMatches(f.MinSalary, f.MaxSalary, a))
	}
	if len(f.RequiredSkills) > 0 {
		check(FilterSkills, containsAll(NormalizeSkills(a.Skills), NormalizeSkills(f.RequiredSkills)))
	}
	if len(f.ExcludedSkills) > 0 {
		check(FilterExcludedSkills, !containsAny(NormalizeSkills(a.Skills), NormalizeSkills(f.ExcludedSkills)))
	}
	if len(f.EmploymentTypes) > 0 {
		ok := false
		for _, t := range f.EmploymentTypes {
			if strings.EqualFold(strings.TrimSpace(t), a.EmploymentType) {
				ok = true
				break
			}
		}
		check(FilterEmploymentType, ok)
	}
	if f.RemoteOnly {
		check(FilterRemote, a.Remote)
	}
	return matched, failed
}

// Validate rejects filters that can never match
func (f HardFilters) Validate() error {
	if f.MinSalary < 0 || f.MaxSalary < 0 {
		return fmt.Errorf("%w: salary filters must not be negative", ErrValidation)
	}
	if f.MinSalary > 0 && f.MaxSalary > 0 && f.MinSalary > f.MaxSalary {
		return fmt.Errorf("%w: min_salary %d exceeds max_salary %d", ErrValidation, f.MinSalary, f.MaxSalary)
	}
	return nil
}

// IsZero reports whether no filter is applied
func (f HardFilters) IsZero() bool {
	return len(f.Locations) == 0 && f.MinSalary == 0 && f.MaxSalary == 0 &&
		len(f.RequiredSkills) == 0 && len(f.ExcludedSkills) == 0 &&
		len(f.EmploymentTypes) == 0 && !f.RemoteOnly
}

func locationMatches(locations []string, a Attributes) bool {
	for _, l := range locations {
		switch l = strings.ToLower(strings.TrimSpace(l)); l {
		case "any":
			return true
		case "remote":
			if a.Remote {
				return true
			}
		case "onsite", "on-site":
			if !a.Remote {
				return true
			}
		default:
			if strings.EqualFold(l, strings.TrimSpace(a.Location)) {
				return true
			}
		}
	}
	return false
}

// salaryMatches requires a known range that reaches floor and starts at or below ceiling.
// Entities without salary data cannot be verified and fail.
func salaryMatches(floor, ceiling int, a Attributes) bool {
	upper := a.SalaryMax
	if upper == 0 {
		upper = a.SalaryMin
	}
	lower := a.SalaryMin
	if lower == 0 {
		lower = a.SalaryMax
	}
	if upper == 0 {
		return false
	}
	if floor > 0 && upper < floor {
		return false
	}
	if ceiling > 0 && lower > ceiling {
		return false
	}
	return true
}

func containsAll(have, want []string) bool {
	for _, w := range want {
		if !slices.Contains(have, w) {
			return false
		}
	}
	return true
}

func containsAny(have, want []string) bool {
	for _, w := range want {
		if slices.Contains(have, w) {
			return true
		}
	}
	return false
}
