package model

import (
	"encoding/json"
	"time"
)

// SessionStatus enumerates interview session states. Transitions are
// monotonic: created → in_progress → completed, never backwards.
type SessionStatus string

const (
	SessionStatusCreated    SessionStatus = "created"
	SessionStatusInProgress SessionStatus = "in_progress"
	SessionStatusCompleted  SessionStatus = "completed"
)

// rank orders statuses for monotonicity checks.
func (s SessionStatus) rank() int {
	switch s {
	case SessionStatusCreated:
		return 0
	case SessionStatusInProgress:
		return 1
	case SessionStatusCompleted:
		return 2
	}
	return -1
}

// CanTransitionTo reports whether moving to next would keep the status
// monotonic. Equal statuses are allowed (idempotent updates).
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	return next.rank() >= s.rank()
}

// DurationSeconds is a duration carried as integer seconds on the wire,
// so non-Go peers exchange plain seconds rather than nanosecond counts.
type DurationSeconds time.Duration

// Duration returns the value as a time.Duration.
func (d DurationSeconds) Duration() time.Duration { return time.Duration(d) }

func (d DurationSeconds) MarshalJSON() ([]byte, error) {
	return json.Marshal(int64(time.Duration(d) / time.Second))
}

func (d *DurationSeconds) UnmarshalJSON(data []byte) error {
	var secs int64
	if err := json.Unmarshal(data, &secs); err != nil {
		return err
	}
	*d = DurationSeconds(time.Duration(secs) * time.Second)
	return nil
}

// Session represents one timed interview attempt.
type Session struct {
	ID string `json:"id"`
	// Status never regresses; see SessionStatus.CanTransitionTo.
	Status    SessionStatus `json:"status"`
	StartTime time.Time     `json:"start_time"`
	// ConfiguredDuration is the total time budget for the attempt.
	ConfiguredDuration DurationSeconds `json:"configured_duration_seconds"`
	// Questions are ordered; the order determines navigation sequence.
	Questions []Question `json:"questions"`
	// Responses is append-only, at most one per question. Presence of a
	// response marks that question answered.
	Responses []Response `json:"responses"`
}

// Remaining derives the time left at the given instant. It is always
// computed from the wall-clock anchor, never stored as a counter that
// could drift from independent decrements.
func (s *Session) Remaining(now time.Time) time.Duration {
	left := s.ConfiguredDuration.Duration() - now.Sub(s.StartTime)
	if left < 0 {
		return 0
	}
	return left
}

// Answered reports whether a response has been recorded for questionID.
func (s *Session) Answered(questionID string) bool {
	for i := range s.Responses {
		if s.Responses[i].QuestionID == questionID {
			return true
		}
	}
	return false
}

// Response is one submitted answer for a question.
type Response struct {
	QuestionID  string    `json:"question_id"`
	Code        string    `json:"code"`
	Language    string    `json:"language"`
	FinalScore  int       `json:"final_score"`
	SubmittedAt time.Time `json:"submitted_at"`
}
