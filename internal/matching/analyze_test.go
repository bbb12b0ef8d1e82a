package matching

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MereWhiplash/jobmatch/internal/generator"
	"github.com/MereWhiplash/jobmatch/internal/types"
)

const analysisJSON = "```json\n" + `{
  "title": "Senior Backend Engineer",
  "summary": "Builds payment APIs",
  "seniority": "Senior",
  "location": " Berlin ",
  "remote": true,
  "salary_min": 120000,
  "salary_max": 90000,
  "skills": ["Go", "PostgreSQL", "go", " Kafka "],
  "employment_type": "Full-Time"
}` + "\n```"

func TestAnalyze_NormalizesAndMemoizes(t *testing.T) {
	var calls atomic.Int64
	gen := generator.Func(func(ctx context.Context, req generator.Request) (string, error) {
		calls.Add(1)
		assert.True(t, req.JSON)
		assert.Len(t, req.Messages, 1)
		return analysisJSON, nil
	})
	e, _, _, _ := newTestEngine(t, vectors{}, gen)

	a, err := e.Analyze(context.Background(), "We need a senior Go engineer in Berlin")
	require.NoError(t, err)

	assert.Equal(t, "Senior Backend Engineer", a.Title)
	assert.Equal(t, "senior", a.Seniority)
	assert.Equal(t, "Berlin", a.Attributes.Location)
	assert.True(t, a.Attributes.Remote)
	assert.Equal(t, 90000, a.Attributes.SalaryMin)
	assert.Equal(t, 120000, a.Attributes.SalaryMax)
	assert.Equal(t, []string{"go", "kafka", "postgresql"}, a.Attributes.Skills)
	assert.Equal(t, "full-time", a.Attributes.EmploymentType)
	assert.NotEmpty(t, a.ContentHash)

	again, err := e.Analyze(context.Background(), "We need a  senior Go engineer in Berlin ")
	require.NoError(t, err)
	assert.Equal(t, a, again)
	assert.EqualValues(t, 1, calls.Load())

	again.Attributes.Skills[0] = "mutated"
	third, err := e.Analyze(context.Background(), "We need a senior Go engineer in Berlin")
	require.NoError(t, err)
	assert.Equal(t, "go", third.Attributes.Skills[0])
}

func TestAnalyze_ConcurrentSameTextOneCall(t *testing.T) {
	var calls atomic.Int64
	release := make(chan struct{})
	gen := generator.Func(func(ctx context.Context, req generator.Request) (string, error) {
		calls.Add(1)
		<-release
		return analysisJSON, nil
	})
	e, _, _, _ := newTestEngine(t, vectors{}, gen)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.Analyze(context.Background(), "same posting")
			assert.NoError(t, err)
		}()
	}
	require.Eventually(t, func() bool { return calls.Load() == 1 }, timeout, tick)
	close(release)
	wg.Wait()
	assert.EqualValues(t, 1, calls.Load())
}

func TestAnalyze_Failures(t *testing.T) {
	ctx := context.Background()

	e, _, _, _ := newTestEngine(t, vectors{}, nil)
	_, err := e.Analyze(ctx, "")
	assert.ErrorIs(t, err, types.ErrValidation)
	_, err = e.Analyze(ctx, "text")
	assert.ErrorIs(t, err, types.ErrProviderUnavailable, "no generator configured")

	down := generator.Func(func(ctx context.Context, req generator.Request) (string, error) {
		return "", errors.New("503")
	})
	e, _, _, _ = newTestEngine(t, vectors{}, down)
	_, err = e.Analyze(ctx, "text")
	assert.ErrorIs(t, err, types.ErrProviderUnavailable)

	garbage := generator.Func(func(ctx context.Context, req generator.Request) (string, error) {
		return "I cannot help with that", nil
	})
	e, _, _, _ = newTestEngine(t, vectors{}, garbage)
	_, err = e.Analyze(ctx, "text")
	assert.ErrorIs(t, err, types.ErrProviderUnavailable)
}

func TestAnalyze_MemoIsBounded(t *testing.T) {
	var calls atomic.Int64
	gen := generator.Func(func(ctx context.Context, req generator.Request) (string, error) {
		calls.Add(1)
		return analysisJSON, nil
	})
	e, _, _, _ := newTestEngine(t, vectors{}, gen, WithAnalysisMemo(2))
	ctx := context.Background()

	for _, text := range []string{"first", "second", "third"} {
		_, err := e.Analyze(ctx, text)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, e.analyses.len())

	_, err := e.Analyze(ctx, "third")
	require.NoError(t, err)
	assert.EqualValues(t, 3, calls.Load(), "recent text stays memoized")

	_, err = e.Analyze(ctx, "first")
	require.NoError(t, err)
	assert.EqualValues(t, 4, calls.Load(), "oldest text was evicted")
}
