package model

// ExecutionResult is the judge's verdict for one run of submitted code.
// It is ephemeral: never persisted as its own entity, only folded into a
// ProgressRecord via the scoring aggregator.
type ExecutionResult struct {
	// Success is false when the program errored or failed compilation.
	// That is still a successful transport call, not a transport error.
	Success            bool             `json:"success"`
	TestResults        []TestCaseResult `json:"test_results"`
	Summary            ResultSummary    `json:"summary"`
	ExecutionTimeMs    int64            `json:"execution_time_ms"`
	ComplexityAnalysis string           `json:"complexity_analysis,omitempty"`
	Error              string           `json:"error,omitempty"`
}

// TestCaseResult is the outcome of one test case.
type TestCaseResult struct {
	TestCase TestCase `json:"test_case"`
	Passed   bool     `json:"passed"`
	Expected string   `json:"expected"`
	Actual   string   `json:"actual"`
	Error    string   `json:"error,omitempty"`
}

// ResultSummary aggregates the per-case outcomes.
type ResultSummary struct {
	Passed     int `json:"passed"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}
