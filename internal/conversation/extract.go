package conversation

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/MereWhiplash/jobmatch/internal/generator"
	"github.com/MereWhiplash/jobmatch/internal/types"
)

const extractionPrompt = `You are a recruiting assistant. From the whole conversation, extract the job
preferences the user has stated so far. Return ONLY a JSON object:
{
  "location": ["<place, or remote, or onsite>", ...] or null,
  "salary_min": <integer annual amount> or null,
  "salary_max": <integer annual amount> or null,
  "skills": ["<skill or technology>", ...] or null,
  "employment_type": "<full-time|part-time|contract|internship>" or null,
  "job_category": "<role family, e.g. backend engineer>" or null,
  "excluded_skills": ["<skill the user wants to avoid>", ...] or null,
  "retract": ["<field name the user explicitly withdrew>", ...]
}
Rules:
- Statements such as "I don't want X" or "anything but X" go into excluded_skills.
- When the user widens a choice ("onsite too"), return the full new list.
- Use null for anything not mentioned. Never guess.
- Put a field in "retract" only when the user takes it back without replacing it.`

const replyPrompt = `You are a friendly career advisor helping the user find a job.
Keep replies short. Ask one clear follow-up question at a time.
Current preferences: %s
State: %s
%s`

// parseExtraction reads the extractor's JSON. Unknown retract names are ignored.
func parseExtraction(out string) (Extraction, error) {
	raw := generator.ExtractJSON(out)
	if !gjson.Valid(raw) || !gjson.Parse(raw).IsObject() {
		return Extraction{}, fmt.Errorf("%w: preference extraction is not a JSON object", types.ErrProviderUnavailable)
	}
	doc := gjson.Parse(raw)

	var p types.Preferences
	p.Locations = stringList(doc.Get("location"))
	if p.Locations == nil {
		p.Locations = stringList(doc.Get("locations"))
	}
	p.SalaryMin = intValue(doc.Get("salary_min"))
	p.SalaryMax = intValue(doc.Get("salary_max"))
	p.Skills = stringList(doc.Get("skills"))
	p.EmploymentType = stringValue(doc.Get("employment_type"))
	p.JobCategory = stringValue(doc.Get("job_category"))
	p.ExcludedSkills = stringList(doc.Get("excluded_skills"))

	var retract []types.PreferenceField
	for _, r := range doc.Get("retract").Array() {
		if f, err := types.ParsePreferenceField(r.String()); err == nil {
			retract = append(retract, f)
		}
	}

	return Extraction{Preferences: p.Normalized(), Retract: retract}, nil
}

func stringList(r gjson.Result) []string {
	var out []string
	switch {
	case r.IsArray():
		for _, v := range r.Array() {
			if s := strings.TrimSpace(v.String()); s != "" {
				out = append(out, s)
			}
		}
	case r.Type == gjson.String:
		if s := strings.TrimSpace(r.String()); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func intValue(r gjson.Result) *int {
	if r.Type != gjson.Number {
		return nil
	}
	v := int(r.Int())
	return &v
}

func stringValue(r gjson.Result) *string {
	if r.Type != gjson.String {
		return nil
	}
	s := strings.TrimSpace(r.String())
	if s == "" {
		return nil
	}
	return &s
}

func describe(p types.Preferences) string {
	fields := p.Fields()
	if len(fields) == 0 {
		return "none yet"
	}
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, string(f)+"="+p.Value(f))
	}
	return strings.Join(parts, "; ")
}

func replySystem(p types.Preferences, state types.SessionState, missing []types.PreferenceField) string {
	var guidance string
	switch {
	case state == types.StateConfirming:
		guidance = "All required preferences are known. Summarize them and ask the user to confirm before searching."
	case len(missing) > 0:
		names := make([]string, len(missing))
		for i, f := range missing {
			names[i] = string(f)
		}
		guidance = "Still missing: " + strings.Join(names, ", ") + ". Ask about one of them."
	default:
		guidance = "The user changed their mind. Acknowledge the change and check what else is different."
	}
	return fmt.Sprintf(replyPrompt, describe(p), state, guidance)
}
