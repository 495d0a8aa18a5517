package model

// Difficulty enumerates question difficulty levels.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// QuestionType distinguishes coding exercises from other formats.
type QuestionType string

const (
	QuestionTypeCoding QuestionType = "coding"
	QuestionTypeOther  QuestionType = "other"
)

// Question represents a single exercise within a session.
type Question struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Difficulty  Difficulty   `json:"difficulty"`
	Type        QuestionType `json:"type"`
	Description string       `json:"description"`
	Examples    []Example    `json:"examples"`
	Constraints []string     `json:"constraints"`
	// TestCases is ordered; hidden cases are scored but never shown.
	TestCases []TestCase `json:"test_cases"`
	// StarterCode maps language identifier to a template source.
	StarterCode map[string]string `json:"starter_code"`
}

// Example is one worked input/output pair shown with the problem statement.
type Example struct {
	Input       string `json:"input"`
	Output      string `json:"output"`
	Explanation string `json:"explanation,omitempty"`
}

// TestCase is one judge input with its expected output.
type TestCase struct {
	Input          string `json:"input"`
	ExpectedOutput string `json:"expected_output"`
	IsHidden       bool   `json:"is_hidden"`
}

// VisibleTestCases returns the test cases a client may display.
func (q *Question) VisibleTestCases() []TestCase {
	visible := make([]TestCase, 0, len(q.TestCases))
	for _, tc := range q.TestCases {
		if !tc.IsHidden {
			visible = append(visible, tc)
		}
	}
	return visible
}

// Starter returns the starter template for a language, falling back to a
// language-generic scratch template when none is configured.
func (q *Question) Starter(language string) string {
	if code, ok := q.StarterCode[language]; ok {
		return code
	}
	return "// Write your solution for \"" + q.Title + "\" here.\n"
}
