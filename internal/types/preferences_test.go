package types

import (
	"errors"
	"slices"
	"testing"
)

func ptr[T any](v T) *T { return &v }

func TestParsePreferenceField(t *testing.T) {
	tests := []struct {
		in   string
		want PreferenceField
	}{
		{"location", FieldLocation},
		{" Locations ", FieldLocation},
		{"SALARY_MIN", FieldSalaryMin},
		{"excluded_skills", FieldExcludedSkills},
	}
	for _, tt := range tests {
		got, err := ParsePreferenceField(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParsePreferenceField(%q) = %q, %v", tt.in, got, err)
		}
	}

	if _, err := ParsePreferenceField("shoe_size"); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestPreferences_HasAndFields(t *testing.T) {
	p := Preferences{Locations: []string{"remote"}, SalaryMin: ptr(0), Skills: []string{}}

	if !p.Has(FieldSalaryMin) {
		t.Error("a zero salary is still present")
	}
	if p.Has(FieldSkills) {
		t.Error("an empty skill list is absent")
	}
	if got := p.Fields(); !slices.Equal(got, []PreferenceField{FieldLocation, FieldSalaryMin}) {
		t.Errorf("Fields() = %v", got)
	}
	if !(Preferences{}).IsEmpty() {
		t.Error("zero preferences should be empty")
	}
}

func TestPreferences_Value(t *testing.T) {
	p := Preferences{
		Locations:      []string{"remote", "onsite"},
		SalaryMin:      ptr(70000),
		Skills:         []string{"go", "sql"},
		EmploymentType: ptr("full-time"),
	}

	tests := map[PreferenceField]string{
		FieldLocation:       "remote-or-onsite",
		FieldSalaryMin:      "70000",
		FieldSalaryMax:      "",
		FieldSkills:         "go,sql",
		FieldEmploymentType: "full-time",
		FieldJobCategory:    "",
	}
	for f, want := range tests {
		if got := p.Value(f); got != want {
			t.Errorf("Value(%s) = %q, want %q", f, got, want)
		}
	}
}

func TestPreferences_CloneIsDeep(t *testing.T) {
	p := Preferences{Locations: []string{"remote"}, SalaryMin: ptr(1), JobCategory: ptr("backend")}
	c := p.Clone()

	c.Locations[0] = "onsite"
	*c.SalaryMin = 2
	*c.JobCategory = "frontend"

	if p.Locations[0] != "remote" || *p.SalaryMin != 1 || *p.JobCategory != "backend" {
		t.Errorf("clone shares memory with original: %+v", p)
	}
}

func TestPreferences_SetAndClear(t *testing.T) {
	var p Preferences
	p.Set(FieldSkills, Preferences{Skills: []string{"go"}})
	if !p.Has(FieldSkills) {
		t.Fatal("Set did not copy skills")
	}
	p.Clear(FieldSkills)
	if p.Has(FieldSkills) {
		t.Error("Clear did not remove skills")
	}
}

func TestPreferences_Normalized(t *testing.T) {
	p := Preferences{
		Locations:      []string{" Remote", "remote", ""},
		Skills:         []string{"Go", "go ", "SQL"},
		EmploymentType: ptr("  "),
		JobCategory:    ptr(" Backend "),
	}.Normalized()

	if !slices.Equal(p.Locations, []string{"remote"}) {
		t.Errorf("Locations = %v", p.Locations)
	}
	if !slices.Equal(p.Skills, []string{"go", "sql"}) {
		t.Errorf("Skills = %v", p.Skills)
	}
	if p.EmploymentType != nil {
		t.Errorf("blank employment type should be absent, got %q", *p.EmploymentType)
	}
	if p.JobCategory == nil || *p.JobCategory != "Backend" {
		t.Errorf("JobCategory = %v", p.JobCategory)
	}
}

func TestPreferences_Filters(t *testing.T) {
	p := Preferences{
		Locations:      []string{"remote"},
		SalaryMin:      ptr(90000),
		Skills:         []string{"go"},
		EmploymentType: ptr("contract"),
		ExcludedSkills: []string{"php"},
	}
	f := p.Filters()

	if !slices.Equal(f.Locations, []string{"remote"}) || f.MinSalary != 90000 {
		t.Errorf("unexpected filters %+v", f)
	}
	if len(f.RequiredSkills) != 0 {
		t.Error("skills are soft signals, not filters")
	}
	if !slices.Equal(f.EmploymentTypes, []string{"contract"}) || !slices.Equal(f.ExcludedSkills, []string{"php"}) {
		t.Errorf("unexpected filters %+v", f)
	}
}

func TestPreferences_QueryText(t *testing.T) {
	if got := (Preferences{}).QueryText(); got != "job search" {
		t.Errorf("empty QueryText = %q", got)
	}

	got := Preferences{JobCategory: ptr("backend"), Skills: []string{"go"}, ExcludedSkills: []string{"php"}}.QueryText()
	want := "Role: backend\nbackend\nSkills: go\ngo"
	if got != want {
		t.Errorf("QueryText = %q, want %q", got, want)
	}
}

func TestPreferences_SameValue(t *testing.T) {
	a := Preferences{Locations: []string{"remote", "onsite"}, SalaryMin: ptr(100)}
	b := Preferences{Locations: []string{"onsite", "remote"}, SalaryMin: ptr(100)}

	tests := []struct {
		name  string
		field PreferenceField
		other Preferences
		want  bool
	}{
		{"reordered locations", FieldLocation, b, true},
		{"equal salary", FieldSalaryMin, b, true},
		{"both absent", FieldSkills, b, true},
		{"different locations", FieldLocation, Preferences{Locations: []string{"remote"}}, false},
		{"absent salary", FieldSalaryMin, Preferences{}, false},
	}
	for _, tt := range tests {
		if got := a.SameValue(tt.field, tt.other); got != tt.want {
			t.Errorf("%s: SameValue = %v, want %v", tt.name, got, tt.want)
		}
	}
	if !slices.Equal(a.Locations, []string{"remote", "onsite"}) {
		t.Errorf("inputs were reordered: %v", a.Locations)
	}
}
