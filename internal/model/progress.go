package model

// ProgressRecord is the durable snapshot of a buffer plus derived score,
// keyed by (SessionID, QuestionID). Each save supersedes the previous
// record wholesale — last write wins, records are never merged.
type ProgressRecord struct {
	SessionID   string `json:"session_id"`
	QuestionID  string `json:"question_id"`
	Code        string `json:"code"`
	Language    string `json:"language"`
	Score       int    `json:"score"`
	TestsPassed int    `json:"tests_passed"`
	TotalTests  int    `json:"total_tests"`
	TimeElapsed int    `json:"time_elapsed_seconds"`
}
