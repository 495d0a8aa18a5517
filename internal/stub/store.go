package stub

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prepstack/interview-client/internal/model"
)

type progressKey struct {
	sessionID  string
	questionID string
}

// Store is the in-memory session store backing the stub backend. Progress
// writes are last-write-wins on the (session, question) key, matching the
// product's conflict-resolution assumption for concurrent tabs.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*model.Session
	progress map[progressKey]model.ProgressRecord
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*model.Session),
		progress: make(map[progressKey]model.ProgressRecord),
	}
}

// GetSession returns a deep-enough copy of the session for serialization.
func (s *Store) GetSession(id string) (*model.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	cp := *sess
	cp.Questions = append([]model.Question(nil), sess.Questions...)
	cp.Responses = append([]model.Response(nil), sess.Responses...)
	return &cp, true
}

// PutSession stores or replaces a session.
func (s *Store) PutSession(sess *model.Session) {
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
}

// SaveProgress overwrites the progress record for its key.
func (s *Store) SaveProgress(rec model.ProgressRecord) {
	s.mu.Lock()
	s.progress[progressKey{rec.SessionID, rec.QuestionID}] = rec
	s.mu.Unlock()
}

// GetProgress returns the last saved record for a question, if any.
func (s *Store) GetProgress(sessionID, questionID string) (model.ProgressRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.progress[progressKey{sessionID, questionID}]
	return rec, ok
}

// PutResponse records a submitted answer, overwriting any previous
// response for the same question — submit is idempotent, never
// duplicating. It reports whether every question is now answered and, if
// so, marks the session completed.
func (s *Store) PutResponse(sessionID string, resp model.Response) (model.SessionStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return "", false
	}

	replaced := false
	for i := range sess.Responses {
		if sess.Responses[i].QuestionID == resp.QuestionID {
			sess.Responses[i] = resp
			replaced = true
			break
		}
	}
	if !replaced {
		sess.Responses = append(sess.Responses, resp)
	}

	if len(sess.Responses) == len(sess.Questions) && sess.Status.CanTransitionTo(model.SessionStatusCompleted) {
		sess.Status = model.SessionStatusCompleted
	} else if sess.Status.CanTransitionTo(model.SessionStatusInProgress) && sess.Status != model.SessionStatusCompleted {
		sess.Status = model.SessionStatusInProgress
	}
	return sess.Status, true
}

// SeedDemoSession creates the classic two-sum warmup session used by the
// dev server and the e2e suite.
func (s *Store) SeedDemoSession() *model.Session {
	sess := &model.Session{
		ID:                 uuid.New().String(),
		Status:             model.SessionStatusCreated,
		StartTime:          time.Now(),
		ConfiguredDuration: model.DurationSeconds(45 * time.Minute),
		Questions: []model.Question{
			{
				ID:          uuid.New().String(),
				Title:       "Two Sum",
				Difficulty:  model.DifficultyEasy,
				Type:        model.QuestionTypeCoding,
				Description: "Given an array of integers and a target, return the indices of the two numbers that add up to the target.",
				Examples: []model.Example{
					{Input: "[2,7,11,15], 9", Output: "[0,1]", Explanation: "nums[0] + nums[1] == 9"},
				},
				Constraints: []string{"2 <= nums.length <= 10^4", "exactly one valid answer exists"},
				TestCases: []model.TestCase{
					{Input: "[2,7,11,15], 9", ExpectedOutput: "[0,1]"},
					{Input: "[3,2,4], 6", ExpectedOutput: "[1,2]", IsHidden: true},
				},
				StarterCode: map[string]string{
					"javascript": "function twoSum(nums, target) {\n  // your code here\n}\n",
					"python":     "def two_sum(nums, target):\n    pass\n",
				},
			},
		},
	}
	s.PutSession(sess)
	return sess
}
