package socket

import (
	"encoding/json"
	"time"

	"github.com/prepstack/interview-client/internal/model"
)

// Event names the session-scoped realtime events. The same catalogue is
// used in both directions; the server relays client emissions to other
// participants in the session.
type Event string

const (
	// ─── Client → Server ───────────────────────────────────────────────
	EventJoinInterview   Event = "join-interview"
	EventLeaveInterview  Event = "leave-interview"
	EventCodeUpdate      Event = "code-update"
	EventTypingIndicator Event = "typing-indicator"

	// ─── Server → Client ───────────────────────────────────────────────
	EventExecutionResult Event = "code-execution-result"
	EventLiveFeedback    Event = "live-feedback"
	EventProgressSaved   Event = "progress-saved"

	// ─── Bidirectional ─────────────────────────────────────────────────
	EventInterviewProgress   Event = "interview-progress"
	EventSessionStatusUpdate Event = "session-status-update"
)

// Frame is the wire envelope for every socket message. SessionID is
// mandatory; inbound frames whose SessionID does not match the currently
// joined session are dropped before dispatch.
type Frame struct {
	Event      Event           `json:"event"`
	SessionID  string          `json:"session_id"`
	QuestionID string          `json:"question_id,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// NewFrame builds a frame with an encoded payload. Marshal failures are
// programmer errors on our own types and surface as an empty payload.
func NewFrame(event Event, sessionID, questionID string, payload any) Frame {
	f := Frame{Event: event, SessionID: sessionID, QuestionID: questionID}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err == nil {
			f.Payload = raw
		}
	}
	return f
}

// ─── Payload shapes ─────────────────────────────────────────────────────

// CodeUpdatePayload broadcasts the current buffer for collaborative viewing.
type CodeUpdatePayload struct {
	Code     string `json:"code"`
	Language string `json:"language"`
}

// TypingPayload signals typing activity to other session participants.
type TypingPayload struct {
	Typing bool `json:"typing"`
}

// ExecutionResultPayload carries a judge verdict pushed asynchronously.
// It reconciles into the same shape as the REST response. Seq echoes the
// issue-order sequence of the run that produced the verdict.
type ExecutionResultPayload struct {
	Result model.ExecutionResult `json:"result"`
	Seq    uint64                `json:"seq,omitempty"`
}

// LiveFeedbackPayload is interviewer/AI commentary on the current code.
type LiveFeedbackPayload struct {
	Message string `json:"message"`
	Hint    bool   `json:"hint,omitempty"`
}

// ProgressSavedPayload acknowledges an autosave.
type ProgressSavedPayload struct {
	QuestionID string    `json:"question_id"`
	SavedAt    time.Time `json:"saved_at"`
}

// InterviewProgressPayload mirrors the stored progress counters.
type InterviewProgressPayload struct {
	QuestionID  string `json:"question_id"`
	Score       int    `json:"score"`
	TestsPassed int    `json:"tests_passed"`
	TotalTests  int    `json:"total_tests"`
}

// SessionStatusPayload carries monotonic session status transitions.
type SessionStatusPayload struct {
	Status model.SessionStatus `json:"status"`
}
