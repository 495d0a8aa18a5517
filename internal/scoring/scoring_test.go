package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/prepstack/interview-client/internal/model"
)

func results(passed ...bool) []model.TestCaseResult {
	out := make([]model.TestCaseResult, len(passed))
	for i, p := range passed {
		out[i].Passed = p
	}
	return out
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name   string
		in     []model.TestCaseResult
		passed int
		total  int
		score  int
	}{
		{"all passing", results(true, true, true), 3, 3, 100},
		{"none passing", results(false, false), 0, 2, 0},
		{"two of three", results(true, true, false), 2, 3, 67},
		{"one of three", results(true, false, false), 1, 3, 33},
		{"one of one", results(true), 1, 1, 100},
		{"empty list never divides by zero", nil, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Summarize(tt.in)
			assert.Equal(t, tt.passed, s.Passed)
			assert.Equal(t, tt.total, s.Total)
			assert.Equal(t, tt.score, s.Score)
		})
	}
}

func TestFromResultNil(t *testing.T) {
	assert.Equal(t, Summary{}, FromResult(nil))
}

func TestFromResultIgnoresEmbeddedSummary(t *testing.T) {
	// The judge's own summary field is advisory; the per-case verdicts
	// are authoritative.
	res := &model.ExecutionResult{
		TestResults: results(true, false),
		Summary:     model.ResultSummary{Passed: 99, Total: 99, Percentage: 99},
	}
	s := FromResult(res)
	assert.Equal(t, 1, s.Passed)
	assert.Equal(t, 2, s.Total)
	assert.Equal(t, 50, s.Score)
}
