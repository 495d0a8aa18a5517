package stub

import (
	"strings"
	"time"

	"github.com/prepstack/interview-client/internal/model"
	"github.com/prepstack/interview-client/internal/scoring"
)

// Evaluate is the stub's stand-in for the execution sandbox. It is a
// contract double, not a runner: a test case passes when the submitted
// source mentions the expected output verbatim. Scoring goes through the
// same aggregator the client uses, so both ends derive identical numbers.
func Evaluate(code, language string, cases []model.TestCase) model.ExecutionResult {
	start := time.Now()
	results := make([]model.TestCaseResult, 0, len(cases))
	for _, tc := range cases {
		passed := strings.Contains(code, tc.ExpectedOutput)
		r := model.TestCaseResult{
			TestCase: tc,
			Passed:   passed,
			Expected: tc.ExpectedOutput,
		}
		if passed {
			r.Actual = tc.ExpectedOutput
		} else {
			r.Actual = ""
			r.Error = "output mismatch"
		}
		results = append(results, r)
	}

	summary := scoring.Summarize(results)
	return model.ExecutionResult{
		Success:     summary.Passed == summary.Total && summary.Total > 0,
		TestResults: results,
		Summary: model.ResultSummary{
			Passed:     summary.Passed,
			Total:      summary.Total,
			Percentage: summary.Score,
		},
		ExecutionTimeMs: time.Since(start).Milliseconds() + 1,
	}
}
