package matching

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/MereWhiplash/jobmatch/internal/embedcache"
	"github.com/MereWhiplash/jobmatch/internal/generator"
	"github.com/MereWhiplash/jobmatch/internal/logger"
	"github.com/MereWhiplash/jobmatch/internal/types"
)

const analyzePrompt = `You extract structured attributes from a job posting or résumé.
Return ONLY a JSON object with this schema:
{
  "title": "<job title or headline>",
  "summary": "<one sentence summary>",
  "seniority": "<junior|mid|senior|lead|unknown>",
  "location": "<city or region, empty if not stated>",
  "remote": <true|false>,
  "salary_min": <annual amount as integer, 0 if not stated>,
  "salary_max": <annual amount as integer, 0 if not stated>,
  "skills": ["<skill>", ...],
  "employment_type": "<full-time|part-time|contract|internship|empty>"
}
Do not invent values that the text does not support.`

// Analyze extracts normalized attributes from free text. The result is memoized
// by content hash, so the same text yields the same analysis for one model call
// while it stays among the most recent analyses.
func (e *Engine) Analyze(ctx context.Context, text string) (*types.JobAnalysis, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text is empty", types.ErrValidation)
	}
	if e.gen == nil {
		return nil, fmt.Errorf("%w: no generation provider configured", types.ErrProviderUnavailable)
	}

	hash := embedcache.Key(text)
	if a, ok := e.analyses.get(hash); ok {
		return cloneAnalysis(a), nil
	}

	detached := context.WithoutCancel(ctx)
	ch := e.analyzing.DoChan(hash, func() (any, error) {
		if a, ok := e.analyses.get(hash); ok {
			return a, nil
		}

		out, err := e.gen.Generate(detached, generator.Request{
			System:   analyzePrompt,
			Messages: []types.Message{{Role: types.RoleUser, Content: embedcache.Normalize(text)}},
			JSON:     true,
		})
		if err != nil {
			if !errors.Is(err, types.ErrProviderUnavailable) {
				err = fmt.Errorf("%w: %w", types.ErrProviderUnavailable, err)
			}
			return nil, err
		}

		a, err := parseAnalysis(out)
		if err != nil {
			e.log.Warn("unparseable analysis", zap.String("output", logger.Truncate(out, 200)), zap.Error(err))
			return nil, err
		}
		a.ContentHash = hash
		e.analyses.put(hash, a)
		return a, nil
	})

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w", types.ErrProviderUnavailable, ctx.Err())
		}
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return cloneAnalysis(res.Val.(types.JobAnalysis)), nil
	}
}

func parseAnalysis(out string) (types.JobAnalysis, error) {
	raw := generator.ExtractJSON(out)
	if !gjson.Valid(raw) || !gjson.Parse(raw).IsObject() {
		return types.JobAnalysis{}, fmt.Errorf("%w: analysis is not a JSON object", types.ErrProviderUnavailable)
	}
	doc := gjson.Parse(raw)

	var skills []string
	for _, s := range doc.Get("skills").Array() {
		skills = append(skills, s.String())
	}
	if skills == nil {
		skills = []string{}
	}

	seniority := strings.ToLower(strings.TrimSpace(doc.Get("seniority").String()))
	if seniority == "" {
		seniority = "unknown"
	}

	return types.JobAnalysis{
		Title:     strings.TrimSpace(doc.Get("title").String()),
		Summary:   strings.TrimSpace(doc.Get("summary").String()),
		Seniority: seniority,
		Attributes: types.Attributes{
			Location:       doc.Get("location").String(),
			Remote:         doc.Get("remote").Bool(),
			SalaryMin:      int(doc.Get("salary_min").Int()),
			SalaryMax:      int(doc.Get("salary_max").Int()),
			Skills:         skills,
			EmploymentType: doc.Get("employment_type").String(),
		}.Normalized(),
	}, nil
}

func cloneAnalysis(a types.JobAnalysis) *types.JobAnalysis {
	a.Attributes.Skills = append([]string{}, a.Attributes.Skills...)
	return &a
}
