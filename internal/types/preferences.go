package types

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// PreferenceField names one field of Preferences
type PreferenceField string

const (
	FieldLocation       PreferenceField = "location"
	FieldSalaryMin      PreferenceField = "salary_min"
	FieldSalaryMax      PreferenceField = "salary_max"
	FieldSkills         PreferenceField = "skills"
	FieldEmploymentType PreferenceField = "employment_type"
	FieldJobCategory    PreferenceField = "job_category"
	FieldExcludedSkills PreferenceField = "excluded_skills"
)

// AllPreferenceFields lists every field in a stable order
var AllPreferenceFields = []PreferenceField{
	FieldLocation,
	FieldSalaryMin,
	FieldSalaryMax,
	FieldSkills,
	FieldEmploymentType,
	FieldJobCategory,
	FieldExcludedSkills,
}

// ParsePreferenceField maps a field name to a PreferenceField
func ParsePreferenceField(s string) (PreferenceField, error) {
	f := PreferenceField(strings.ToLower(strings.TrimSpace(s)))
	if f == "locations" {
		f = FieldLocation
	}
	if slices.Contains(AllPreferenceFields, f) {
		return f, nil
	}
	return "", fmt.Errorf("%w: unknown preference field %q", ErrValidation, s)
}

// Preferences is a partial record of what a user is looking for.
// A nil field is absent; absence never erases a previously confirmed value.
type Preferences struct {
	Locations      []string `json:"locations,omitempty" bson:"locations,omitempty"`
	SalaryMin      *int     `json:"salary_min,omitempty" bson:"salary_min,omitempty"`
	SalaryMax      *int     `json:"salary_max,omitempty" bson:"salary_max,omitempty"`
	Skills         []string `json:"skills,omitempty" bson:"skills,omitempty"`
	EmploymentType *string  `json:"employment_type,omitempty" bson:"employment_type,omitempty"`
	JobCategory    *string  `json:"job_category,omitempty" bson:"job_category,omitempty"`
	ExcludedSkills []string `json:"excluded_skills,omitempty" bson:"excluded_skills,omitempty"`
}

// Has reports whether the field is present
func (p Preferences) Has(f PreferenceField) bool {
	switch f {
	case FieldLocation:
		return len(p.Locations) > 0
	case FieldSalaryMin:
		return p.SalaryMin != nil
	case FieldSalaryMax:
		return p.SalaryMax != nil
	case FieldSkills:
		return len(p.Skills) > 0
	case FieldEmploymentType:
		return p.EmploymentType != nil
	case FieldJobCategory:
		return p.JobCategory != nil
	case FieldExcludedSkills:
		return len(p.ExcludedSkills) > 0
	}
	return false
}

// Fields returns the present fields in stable order
func (p Preferences) Fields() []PreferenceField {
	var out []PreferenceField
	for _, f := range AllPreferenceFields {
		if p.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

// IsEmpty reports whether no field is present
func (p Preferences) IsEmpty() bool {
	return len(p.Fields()) == 0
}

// Value renders a field in canonical form; empty when absent.
// Multi-valued fields are joined with "-or-" (e.g. "remote-or-onsite").
func (p Preferences) Value(f PreferenceField) string {
	switch f {
	case FieldLocation:
		return strings.Join(p.Locations, "-or-")
	case FieldSalaryMin:
		if p.SalaryMin != nil {
			return strconv.Itoa(*p.SalaryMin)
		}
	case FieldSalaryMax:
		if p.SalaryMax != nil {
			return strconv.Itoa(*p.SalaryMax)
		}
	case FieldSkills:
		return strings.Join(p.Skills, ",")
	case FieldEmploymentType:
		if p.EmploymentType != nil {
			return *p.EmploymentType
		}
	case FieldJobCategory:
		if p.JobCategory != nil {
			return *p.JobCategory
		}
	case FieldExcludedSkills:
		return strings.Join(p.ExcludedSkills, ",")
	}
	return ""
}

// SameValue reports whether field f holds the same value in p and o.
// List fields compare as sets, so order does not matter.
func (p Preferences) SameValue(f PreferenceField, o Preferences) bool {
	switch f {
	case FieldLocation:
		return sameSet(p.Locations, o.Locations)
	case FieldSkills:
		return sameSet(p.Skills, o.Skills)
	case FieldExcludedSkills:
		return sameSet(p.ExcludedSkills, o.ExcludedSkills)
	}
	return p.Has(f) == o.Has(f) && p.Value(f) == o.Value(f)
}

// Set copies field f from src into p
func (p *Preferences) Set(f PreferenceField, src Preferences) {
	switch f {
	case FieldLocation:
		p.Locations = slices.Clone(src.Locations)
	case FieldSalaryMin:
		p.SalaryMin = cloneInt(src.SalaryMin)
	case FieldSalaryMax:
		p.SalaryMax = cloneInt(src.SalaryMax)
	case FieldSkills:
		p.Skills = slices.Clone(src.Skills)
	case FieldEmploymentType:
		p.EmploymentType = cloneString(src.EmploymentType)
	case FieldJobCategory:
		p.JobCategory = cloneString(src.JobCategory)
	case FieldExcludedSkills:
		p.ExcludedSkills = slices.Clone(src.ExcludedSkills)
	}
}

// Clear removes field f
func (p *Preferences) Clear(f PreferenceField) {
	p.Set(f, Preferences{})
}

// Clone returns a deep copy
func (p Preferences) Clone() Preferences {
	var out Preferences
	for _, f := range AllPreferenceFields {
		out.Set(f, p)
	}
	return out
}

// Normalized lower-cases and dedupes list fields
func (p Preferences) Normalized() Preferences {
	out := p.Clone()
	out.Locations = normalizeLocations(out.Locations)
	out.Skills = NormalizeSkills(out.Skills)
	out.ExcludedSkills = NormalizeSkills(out.ExcludedSkills)
	if out.EmploymentType != nil {
		v := strings.ToLower(strings.TrimSpace(*out.EmploymentType))
		if v == "" {
			out.EmploymentType = nil
		} else {
			out.EmploymentType = &v
		}
	}
	if out.JobCategory != nil {
		v := strings.TrimSpace(*out.JobCategory)
		if v == "" {
			out.JobCategory = nil
		} else {
			out.JobCategory = &v
		}
	}
	if len(out.Locations) == 0 {
		out.Locations = nil
	}
	if len(out.Skills) == 0 {
		out.Skills = nil
	}
	if len(out.ExcludedSkills) == 0 {
		out.ExcludedSkills = nil
	}
	return out
}

// Filters turns preferences into hard filters. Skills and job category are
// soft signals and go into the query text instead.
func (p Preferences) Filters() HardFilters {
	f := HardFilters{
		Locations:      slices.Clone(p.Locations),
		ExcludedSkills: slices.Clone(p.ExcludedSkills),
	}
	if p.SalaryMin != nil {
		f.MinSalary = *p.SalaryMin
	}
	if p.EmploymentType != nil {
		f.EmploymentTypes = []string{*p.EmploymentType}
	}
	return f
}

// QueryText builds the text embedded to search with these preferences.
// Category and skills are repeated to weight them; exclusions are left out
// because they are applied as filters.
func (p Preferences) QueryText() string {
	var parts []string
	if p.JobCategory != nil {
		parts = append(parts, "Role: "+*p.JobCategory, *p.JobCategory)
	}
	if len(p.Skills) > 0 {
		skills := strings.Join(p.Skills, ", ")
		parts = append(parts, "Skills: "+skills, skills)
	}
	if len(p.Locations) > 0 {
		parts = append(parts, "Location: "+strings.Join(p.Locations, " or "))
	}
	if p.EmploymentType != nil {
		parts = append(parts, "Employment: "+*p.EmploymentType)
	}
	if len(parts) == 0 {
		return "job search"
	}
	return strings.Join(parts, "\n")
}

func normalizeLocations(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, l := range in {
		l = strings.ToLower(strings.TrimSpace(l))
		if l == "" || slices.Contains(out, l) {
			continue
		}
		out = append(out, l)
	}
	return out
}

func sameSet(a, b []string) bool {
	a, b = slices.Clone(a), slices.Clone(b)
	slices.Sort(a)
	slices.Sort(b)
	return slices.Equal(slices.Compact(a), slices.Compact(b))
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
