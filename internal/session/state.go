package session

import (
	"context"
	"time"

	"github.com/prepstack/interview-client/internal/model"
	"github.com/prepstack/interview-client/internal/scoring"
	"github.com/prepstack/interview-client/internal/socket"
	"github.com/prepstack/interview-client/internal/transport"
)

// State is the client's lifecycle phase. Executing and saving are
// transient flags over StateReady, not states of their own — a save may
// overlap an in-flight execution.
type State string

const (
	StateIdle      State = "idle"
	StateLoading   State = "loading"
	StateReady     State = "ready"
	StateFailed    State = "failed" // Terminal for this load; retriable via Load.
	StateSubmitted State = "submitted"
)

// SaveState tracks the most recent persistence outcome.
type SaveState string

const (
	SaveStateIdle   SaveState = "idle"
	SaveStateSaving SaveState = "saving"
	SaveStateSaved  SaveState = "saved"
	SaveStateFailed SaveState = "failed"
)

// RestChannel is the request/response side of the transport layer
// consumed by the session client. *transport.Client satisfies it.
type RestChannel interface {
	GetSession(ctx context.Context, sessionID string) (*model.Session, error)
	GetProgress(ctx context.Context, sessionID, questionID string) (*model.ProgressRecord, error)
	Execute(ctx context.Context, req transport.ExecuteRequest) (*model.ExecutionResult, error)
	SaveProgress(ctx context.Context, rec model.ProgressRecord) error
	Submit(ctx context.Context, req transport.SubmitRequest) error
	WakeBackend(ctx context.Context) error
}

// EventChannel is the socket side of the transport layer consumed by the
// session client. *socket.Client satisfies it.
type EventChannel interface {
	Connect(ctx context.Context) error
	JoinSession(sessionID string) error
	LeaveSession() error
	EmitCodeUpdate(sessionID, questionID, code, language string) error
	EmitTypingIndicator(sessionID, questionID string, typing bool) error
	Subscribe(event socket.Event, fn socket.Handler) *socket.Subscription
}

// bufferKey identifies one editor buffer. Buffers are kept per question
// and per language so a language switch never loses a keystroke.
type bufferKey struct {
	questionID string
	language   string
}

// Snapshot is the immutable view handed to the UI layer.
type Snapshot struct {
	State      State
	SaveState  SaveState
	SessionID  string
	Question   *model.Question
	Language   string
	Buffer     string
	Result     *model.ExecutionResult
	Summary    scoring.Summary
	Feedback   string
	LastError  error
	Remaining  time.Duration
	Answered   bool
	LastSaved  time.Time
	QuestionAt int // Index into the session's question order.
}
