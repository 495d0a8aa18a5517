// Package session implements the coding-interview session state machine:
// the in-memory owner of the active session, its editor buffers, the last
// judge verdict and the save status. It mediates between the transport
// layer and the UI, enforcing response ordering and idempotence.
package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/prepstack/interview-client/internal/config"
	"github.com/prepstack/interview-client/internal/model"
	"github.com/prepstack/interview-client/internal/scoring"
	"github.com/prepstack/interview-client/internal/socket"
	"github.com/prepstack/interview-client/internal/transport"
)

// Client is the session state machine. All exported methods are safe for
// concurrent use; the mutex is released around every network call so the
// UI stays responsive while requests are outstanding.
type Client struct {
	cfg  *config.Config
	rest RestChannel
	evts EventChannel
	log  zerolog.Logger

	mu        sync.Mutex
	state     State
	saveState SaveState
	sess      *model.Session
	qIdx      int
	language  string
	// buffers is the (questionID, language) → text arena. Only Edit and
	// ChangeLanguage/SelectQuestion write here — never network callbacks,
	// so a delayed response cannot clobber what the user is typing.
	buffers map[bufferKey]string

	lastResult *model.ExecutionResult
	summary    scoring.Summary
	feedback   string
	lastError  error
	lastSaved  time.Time

	// execSeq numbers execute() calls at issue time; appliedSeq is the
	// newest sequence whose result has been applied. A response for an
	// older sequence than one already applied is discarded.
	execSeq    uint64
	appliedSeq uint64

	lastTyping time.Time
	subs       []*socket.Subscription
	editHooks  []func()
}

// NewClient wires a session client onto an injected transport layer.
func NewClient(cfg *config.Config, rest RestChannel, evts EventChannel, log zerolog.Logger) *Client {
	return &Client{
		cfg:       cfg,
		rest:      rest,
		evts:      evts,
		log:       log.With().Str("component", "session").Logger(),
		state:     StateIdle,
		saveState: SaveStateIdle,
		buffers:   make(map[bufferKey]string),
	}
}

// OnEdit registers a hook invoked after every Edit. The autosave
// controller uses this to rearm its debounce timer.
func (c *Client) OnEdit(fn func()) {
	c.mu.Lock()
	c.editHooks = append(c.editHooks, fn)
	c.mu.Unlock()
}

// Load fetches the session, selects the current question and restores any
// saved buffer. On failure no partial state is committed: the client
// stays failed with a retriable error.
func (c *Client) Load(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return transport.NewValidation(transport.ErrValidation, "session id must not be empty")
	}

	c.mu.Lock()
	c.state = StateLoading
	c.lastError = nil
	c.mu.Unlock()

	sess, err := c.fetchSession(ctx, sessionID)
	if err != nil {
		c.fail(err)
		return err
	}

	// Resume at the first unanswered question, in question order.
	qIdx := 0
	for i := range sess.Questions {
		if !sess.Answered(sess.Questions[i].ID) {
			qIdx = i
			break
		}
	}
	question := &sess.Questions[qIdx]

	language := defaultLanguage(question)
	buffer := question.Starter(language)

	rec, err := c.rest.GetProgress(ctx, sessionID, question.ID)
	if err != nil {
		c.fail(err)
		return err
	}
	if rec != nil && rec.Code != "" {
		language = rec.Language
		buffer = rec.Code
	}

	// Commit atomically only now that every fetch succeeded.
	c.mu.Lock()
	c.sess = sess
	c.qIdx = qIdx
	c.language = language
	c.buffers = map[bufferKey]string{{question.ID, language}: buffer}
	c.lastResult = nil
	c.summary = scoring.Summary{}
	c.execSeq = 0
	c.appliedSeq = 0
	c.state = StateReady
	c.saveState = SaveStateIdle
	c.mu.Unlock()

	c.attachRealtime(ctx, sessionID)
	c.log.Info().Str("session_id", sessionID).Int("questions", len(sess.Questions)).Msg("Session loaded")
	return nil
}

// fetchSession retrieves the session, running the shared wake sequence
// once when the first attempt looks like a cold start.
func (c *Client) fetchSession(ctx context.Context, sessionID string) (*model.Session, error) {
	sess, err := c.rest.GetSession(ctx, sessionID)
	if err == nil {
		return sess, nil
	}
	if !transport.IsTransient(err) {
		return nil, err
	}
	c.log.Info().Msg("Backend looks asleep, starting wake sequence")
	if werr := c.rest.WakeBackend(ctx); werr != nil {
		return nil, werr
	}
	return c.rest.GetSession(ctx, sessionID)
}

// attachRealtime connects the event channel and joins the session room.
// Realtime is an enhancement: failures are logged, never fatal to Load.
func (c *Client) attachRealtime(ctx context.Context, sessionID string) {
	if c.evts == nil {
		return
	}
	if err := c.evts.Connect(ctx); err != nil {
		c.log.Warn().Err(err).Msg("Realtime channel unavailable")
		return
	}
	if err := c.evts.JoinSession(sessionID); err != nil {
		c.log.Warn().Err(err).Msg("Join session failed")
		return
	}

	c.mu.Lock()
	c.subs = append(c.subs,
		c.evts.Subscribe(socket.EventExecutionResult, c.handleExecutionResult),
		c.evts.Subscribe(socket.EventProgressSaved, c.handleProgressSaved),
		c.evts.Subscribe(socket.EventLiveFeedback, c.handleLiveFeedback),
		c.evts.Subscribe(socket.EventSessionStatusUpdate, c.handleSessionStatus),
	)
	c.mu.Unlock()
}

// Close leaves the session room and releases every subscription taken at
// load. Each subscribe has a matching unsubscribe; listener counts return
// to their pre-load baseline.
func (c *Client) Close() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, s := range subs {
		s.Unsubscribe()
	}
	if c.evts != nil {
		if err := c.evts.LeaveSession(); err != nil {
			c.log.Debug().Err(err).Msg("Leave session failed")
		}
	}
}

// ChangeLanguage swaps the active language. The old buffer is preserved
// under its key; the new one is restored or synthesized from starter
// code. Stale execution results are cleared — they are not meaningful
// across languages. Never touches the network.
func (c *Client) ChangeLanguage(next string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil || next == c.language {
		return
	}
	q := c.question()
	// The current buffer is already under its (question, language) key —
	// Edit writes through — so snapshotting is a no-op; just retarget.
	key := bufferKey{q.ID, next}
	if _, ok := c.buffers[key]; !ok {
		c.buffers[key] = q.Starter(next)
	}
	c.language = next
	c.lastResult = nil
	c.summary = scoring.Summary{}
	c.lastError = nil
}

// Edit replaces the buffer for the active (question, language) key, arms
// the autosave debounce and emits a throttled typing indicator.
func (c *Client) Edit(text string) {
	c.mu.Lock()
	if c.sess == nil {
		c.mu.Unlock()
		return
	}
	q := c.question()
	c.buffers[bufferKey{q.ID, c.language}] = text

	var hooks []func()
	hooks = append(hooks, c.editHooks...)

	emitTyping := false
	now := time.Now()
	if now.Sub(c.lastTyping) >= c.cfg.TypingThrottle {
		c.lastTyping = now
		emitTyping = true
	}
	sessionID := c.sess.ID
	questionID := q.ID
	c.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
	if emitTyping && c.evts != nil {
		if err := c.evts.EmitTypingIndicator(sessionID, questionID, true); err != nil {
			c.log.Debug().Err(err).Msg("Typing indicator dropped")
		}
	}
}

// SelectQuestion moves to another question by its position in the
// session's question order. The buffer for the newly selected question is
// restored or synthesized; execution results are cleared.
func (c *Client) SelectQuestion(idx int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil || idx < 0 || idx >= len(c.sess.Questions) || idx == c.qIdx {
		return
	}
	c.qIdx = idx
	q := c.question()
	key := bufferKey{q.ID, c.language}
	if _, ok := c.buffers[key]; !ok {
		c.buffers[key] = q.Starter(c.language)
	}
	c.lastResult = nil
	c.summary = scoring.Summary{}
	c.lastError = nil
	if c.state == StateSubmitted {
		c.state = StateReady
	}
}

// Execute runs the current buffer against the judge. Concurrent calls may
// overlap at the transport level; responses apply last-issued-wins using
// a sequence number compared at apply time.
func (c *Client) Execute(ctx context.Context) (*model.ExecutionResult, error) {
	c.mu.Lock()
	if c.sess == nil {
		c.mu.Unlock()
		return nil, transport.NewValidation(transport.ErrValidation, "no session loaded")
	}
	q := c.question()
	code := c.buffers[bufferKey{q.ID, c.language}]
	if code == "" {
		c.mu.Unlock()
		return nil, transport.NewValidation(transport.ErrEmptySubmission, "empty submission")
	}
	c.execSeq++
	seq := c.execSeq
	req := transport.ExecuteRequest{
		SessionID:  c.sess.ID,
		QuestionID: q.ID,
		Code:       code,
		Language:   c.language,
		TestCases:  q.TestCases,
		Seq:        seq,
	}
	c.mu.Unlock()

	res, err := c.rest.Execute(ctx, req)
	if err != nil {
		// Keep the prior result visible; surface the failure.
		c.mu.Lock()
		c.lastError = err
		c.mu.Unlock()
		return nil, err
	}

	c.applyResult(seq, req.QuestionID, res, "rest")
	return res, nil
}

// applyResult is the single reconciliation point for judge verdicts, no
// matter which channel delivered them. Both paths derive the same score
// for the same payload. Returns false when the result was stale.
func (c *Client) applyResult(seq uint64, questionID string, res *model.ExecutionResult, via string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil || c.question().ID != questionID {
		c.log.Debug().Str("question_id", questionID).Msg("Result for inactive question dropped")
		return false
	}
	if seq <= c.appliedSeq {
		c.log.Debug().
			Uint64("seq", seq).
			Uint64("applied", c.appliedSeq).
			Str("via", via).
			Msg("Stale execution result discarded")
		return false
	}
	c.appliedSeq = seq
	c.lastResult = res
	c.summary = scoring.FromResult(res)
	c.lastError = nil
	return true
}

// Save persists the current buffer and derived counters as a progress
// record. Explicit saves surface their outcome; background saves must not
// interrupt typing, so failures only mark the save state and are retried
// on the next autosave tick.
func (c *Client) Save(ctx context.Context, explicit bool) error {
	c.mu.Lock()
	if c.sess == nil {
		c.mu.Unlock()
		return transport.NewValidation(transport.ErrValidation, "no session loaded")
	}
	q := c.question()
	rec := model.ProgressRecord{
		SessionID:   c.sess.ID,
		QuestionID:  q.ID,
		Code:        c.buffers[bufferKey{q.ID, c.language}],
		Language:    c.language,
		Score:       c.summary.Score,
		TestsPassed: c.summary.Passed,
		TotalTests:  c.summary.Total,
		TimeElapsed: int(time.Since(c.sess.StartTime).Seconds()),
	}
	c.saveState = SaveStateSaving
	c.mu.Unlock()

	err := c.rest.SaveProgress(ctx, rec)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.saveState = SaveStateFailed
		if explicit {
			c.lastError = err
			return err
		}
		// Background failure: silent, retried on the next tick.
		c.log.Warn().Err(err).Str("question_id", rec.QuestionID).Msg("Autosave failed")
		return err
	}
	c.saveState = SaveStateSaved
	c.lastSaved = time.Now()
	return nil
}

// Submit records the final answer for the current question. Submissions
// below the configured minimum score are rejected locally with a
// corrective message and never sent. Submit is idempotent: repeating it
// re-sends the same payload and the server overwrites, not duplicates.
func (c *Client) Submit(ctx context.Context) error {
	c.mu.Lock()
	if c.sess == nil {
		c.mu.Unlock()
		return transport.NewValidation(transport.ErrValidation, "no session loaded")
	}
	if c.summary.Score < c.cfg.SubmitMinScore {
		c.mu.Unlock()
		return transport.NewValidation(transport.ErrScoreTooLow,
			"run your code against the test cases before submitting")
	}
	q := c.question()
	req := transport.SubmitRequest{
		ProgressRecord: model.ProgressRecord{
			SessionID:   c.sess.ID,
			QuestionID:  q.ID,
			Code:        c.buffers[bufferKey{q.ID, c.language}],
			Language:    c.language,
			Score:       c.summary.Score,
			TestsPassed: c.summary.Passed,
			TotalTests:  c.summary.Total,
			TimeElapsed: int(time.Since(c.sess.StartTime).Seconds()),
		},
		FinalScore: c.summary.Score,
	}
	c.mu.Unlock()

	if err := c.rest.Submit(ctx, req); err != nil {
		c.mu.Lock()
		c.lastError = err
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// Overwrite any existing response for this question — never append a
	// duplicate.
	resp := model.Response{
		QuestionID:  req.QuestionID,
		Code:        req.Code,
		Language:    req.Language,
		FinalScore:  req.FinalScore,
		SubmittedAt: time.Now(),
	}
	replaced := false
	for i := range c.sess.Responses {
		if c.sess.Responses[i].QuestionID == req.QuestionID {
			c.sess.Responses[i] = resp
			replaced = true
			break
		}
	}
	if !replaced {
		c.sess.Responses = append(c.sess.Responses, resp)
	}
	c.state = StateSubmitted
	c.lastError = nil
	c.log.Info().Str("question_id", req.QuestionID).Int("final_score", req.FinalScore).Msg("Question submitted")
	return nil
}

// Snapshot returns an immutable view of the current state for the UI.
func (c *Client) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := Snapshot{
		State:     c.state,
		SaveState: c.saveState,
		Language:  c.language,
		Summary:   c.summary,
		Feedback:  c.feedback,
		LastError: c.lastError,
		LastSaved: c.lastSaved,
	}
	if c.sess != nil {
		q := c.question()
		qCopy := *q
		snap.SessionID = c.sess.ID
		snap.Question = &qCopy
		snap.QuestionAt = c.qIdx
		snap.Buffer = c.buffers[bufferKey{q.ID, c.language}]
		snap.Remaining = c.sess.Remaining(time.Now())
		snap.Answered = c.sess.Answered(q.ID)
	}
	if c.lastResult != nil {
		resCopy := *c.lastResult
		snap.Result = &resCopy
	}
	return snap
}

// Buffer returns the active buffer text. Empty when nothing is loaded.
func (c *Client) Buffer() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		return ""
	}
	return c.buffers[bufferKey{c.question().ID, c.language}]
}

// BroadcastCode pushes the current buffer over the event channel for
// collaborative viewing.
func (c *Client) BroadcastCode() error {
	c.mu.Lock()
	if c.sess == nil || c.evts == nil {
		c.mu.Unlock()
		return nil
	}
	q := c.question()
	sessionID := c.sess.ID
	questionID := q.ID
	code := c.buffers[bufferKey{q.ID, c.language}]
	language := c.language
	c.mu.Unlock()
	return c.evts.EmitCodeUpdate(sessionID, questionID, code, language)
}

// ─── Inbound event handlers ─────────────────────────────────────────────

// handleExecutionResult reconciles a pushed judge verdict through the
// same apply path as the REST response. The push echoes the sequence of
// the run that produced it, so a push for an older run can never preempt
// a newer run's verdict.
func (c *Client) handleExecutionResult(frame socket.Frame) {
	var payload socket.ExecutionResultPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		c.log.Debug().Err(err).Msg("Malformed execution-result payload")
		return
	}
	seq := payload.Seq
	if seq == 0 {
		// Unsequenced push from a server that does not echo the run
		// sequence: it can only stand in for the newest run, and only
		// while no verdict has been applied yet.
		c.mu.Lock()
		if c.appliedSeq == 0 {
			seq = c.execSeq
		}
		c.mu.Unlock()
	}
	c.applyResult(seq, frame.QuestionID, &payload.Result, "socket")
}

func (c *Client) handleProgressSaved(frame socket.Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil || frame.QuestionID != c.question().ID {
		return
	}
	c.saveState = SaveStateSaved
	c.lastSaved = time.Now()
}

func (c *Client) handleLiveFeedback(frame socket.Frame) {
	var payload socket.LiveFeedbackPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		return
	}
	c.mu.Lock()
	c.feedback = payload.Message
	c.mu.Unlock()
}

// handleSessionStatus applies status pushes, enforcing monotonicity: a
// completed session never regresses to in-progress.
func (c *Client) handleSessionStatus(frame socket.Frame) {
	var payload socket.SessionStatusPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		return
	}
	if !c.sess.Status.CanTransitionTo(payload.Status) {
		c.log.Debug().
			Str("from", string(c.sess.Status)).
			Str("to", string(payload.Status)).
			Msg("Ignoring status regression")
		return
	}
	c.sess.Status = payload.Status
}

// fail records a load failure without committing partial state.
func (c *Client) fail(err error) {
	c.mu.Lock()
	c.state = StateFailed
	c.lastError = err
	c.mu.Unlock()
}

// question returns the active question. Callers must hold c.mu and have
// checked c.sess != nil.
func (c *Client) question() *model.Question {
	return &c.sess.Questions[c.qIdx]
}

// defaultLanguage picks the initial language for a question: the first
// configured starter language, falling back to javascript.
func defaultLanguage(q *model.Question) string {
	for _, lang := range []string{"javascript", "python", "go", "java"} {
		if _, ok := q.StarterCode[lang]; ok {
			return lang
		}
	}
	for lang := range q.StarterCode {
		return lang
	}
	return "javascript"
}
