// Package scoring derives progress scores from judge verdicts. The same
// derivation is applied no matter which channel delivered the result, so
// a REST response and a pushed socket event always agree.
package scoring

import (
	"math"

	"github.com/prepstack/interview-client/internal/model"
)

// Summary holds the derived pass counts and 0–100 score.
type Summary struct {
	Passed int
	Total  int
	Score  int
}

// Summarize folds per-test-case outcomes into a Summary.
// Score is 0 when there are no test cases; never divides by zero.
func Summarize(results []model.TestCaseResult) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		if r.Passed {
			s.Passed++
		}
	}
	if s.Total > 0 {
		s.Score = int(math.Round(100 * float64(s.Passed) / float64(s.Total)))
	}
	return s
}

// FromResult summarizes an ExecutionResult, preferring the embedded
// per-case verdicts over the judge's own summary so a malformed summary
// field can never skew the score.
func FromResult(res *model.ExecutionResult) Summary {
	if res == nil {
		return Summary{}
	}
	return Summarize(res.TestResults)
}
