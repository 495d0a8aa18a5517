// Package quickpractice implements the timed-MCQ sibling of the coding
// session: a per-question countdown, locked answers with explanations,
// delayed auto-advance and one batched submission at the end.
package quickpractice

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// NoAnswer is the sentinel recorded when the countdown expires with no
// selection.
const NoAnswer = -1

// MCQ is one multiple-choice question.
type MCQ struct {
	ID           string   `json:"id"`
	Prompt       string   `json:"prompt"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
	Explanation  string   `json:"explanation"`
}

// Answer is one locally held response.
type Answer struct {
	QuestionID string `json:"question_id"`
	Selected   int    `json:"selected"` // NoAnswer when the timer expired.
}

// SubmitFunc delivers the whole answer sheet in one batched request.
// The quiz never makes per-question server calls.
type SubmitFunc func(ctx context.Context, answers []Answer) error

// Snapshot is the UI view of the quiz.
type Snapshot struct {
	Index     int
	Total     int
	Question  *MCQ
	Selected  int
	Locked    bool // Locked questions show their explanation.
	Correct   int  // Count of correct locked answers so far.
	Finished  bool
	Remaining time.Duration
}

// Quiz is the timed MCQ state machine. Each question runs its own
// countdown, independent of any coding-session timer.
type Quiz struct {
	questions    []MCQ
	perQuestion  time.Duration
	advanceDelay time.Duration
	submit       SubmitFunc
	log          zerolog.Logger

	mu       sync.Mutex
	idx      int
	answers  map[string]int
	locked   map[string]bool
	finished bool
	// gen guards timer races: every advance and every answer lock bumps
	// it, and a timer fired for an older generation is a no-op. Expiry
	// and a late manual navigation can therefore never advance twice.
	gen          int
	armedAt      time.Time
	countdown    *time.Timer
	advanceTimer *time.Timer
}

// New creates a quiz over the given questions.
func New(questions []MCQ, perQuestion, advanceDelay time.Duration, submit SubmitFunc, log zerolog.Logger) *Quiz {
	return &Quiz{
		questions:    questions,
		perQuestion:  perQuestion,
		advanceDelay: advanceDelay,
		submit:       submit,
		log:          log.With().Str("component", "quickpractice").Logger(),
		answers:      make(map[string]int),
		locked:       make(map[string]bool),
	}
}

// Start arms the countdown for the first question.
func (q *Quiz) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.questions) == 0 {
		q.finished = true
		return
	}
	q.armCountdownLocked()
}

// SelectAnswer records a choice for the current question and locks it:
// no further changes, explanation becomes visible, and a fixed-delay
// auto-advance is scheduled. Selecting on a locked question is a no-op.
func (q *Quiz) SelectAnswer(option int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.finished {
		return
	}
	mcq := &q.questions[q.idx]
	if q.locked[mcq.ID] {
		return
	}
	if option < 0 || option >= len(mcq.Options) {
		return
	}

	q.answers[mcq.ID] = option
	q.locked[mcq.ID] = true
	q.stopCountdownLocked()

	// Invalidate any countdown that fired concurrently and is waiting on
	// the lock: a lost-race expiry must not cut the explanation delay
	// short by advancing immediately.
	q.gen++
	gen := q.gen
	q.advanceTimer = time.AfterFunc(q.advanceDelay, func() {
		q.advance(gen)
	})
}

// Advance moves to the next question manually, cancelling any scheduled
// auto-advance so the quiz never skips a question.
func (q *Quiz) Advance() {
	q.mu.Lock()
	gen := q.gen
	q.mu.Unlock()
	q.advance(gen)
}

// advance moves forward exactly once per generation. Late timers carrying
// a stale generation fall through.
func (q *Quiz) advance(gen int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.finished || gen != q.gen {
		return
	}
	q.gen++
	q.stopCountdownLocked()
	if q.advanceTimer != nil {
		q.advanceTimer.Stop()
		q.advanceTimer = nil
	}

	q.idx++
	if q.idx >= len(q.questions) {
		q.finished = true
		q.log.Debug().Int("questions", len(q.questions)).Msg("Quiz finished")
		return
	}
	q.armCountdownLocked()
}

// expire fires when the countdown hits zero with no selection: it records
// the sentinel unanswered response and advances once.
func (q *Quiz) expire(gen int) {
	q.mu.Lock()
	if q.finished || gen != q.gen {
		q.mu.Unlock()
		return
	}
	mcq := &q.questions[q.idx]
	if !q.locked[mcq.ID] {
		q.answers[mcq.ID] = NoAnswer
		q.locked[mcq.ID] = true
	}
	q.mu.Unlock()
	q.advance(gen)
}

// Submit batches every locally held answer into one request, in question
// order. Questions never reached are recorded with the sentinel.
func (q *Quiz) Submit(ctx context.Context) error {
	q.mu.Lock()
	sheet := make([]Answer, 0, len(q.questions))
	for i := range q.questions {
		selected, ok := q.answers[q.questions[i].ID]
		if !ok {
			selected = NoAnswer
		}
		sheet = append(sheet, Answer{QuestionID: q.questions[i].ID, Selected: selected})
	}
	q.mu.Unlock()

	return q.submit(ctx, sheet)
}

// Snapshot returns the UI view of the quiz.
func (q *Quiz) Snapshot() Snapshot {
	q.mu.Lock()
	defer q.mu.Unlock()
	snap := Snapshot{
		Index:    q.idx,
		Total:    len(q.questions),
		Finished: q.finished,
		Selected: NoAnswer,
	}
	for i := range q.questions {
		if q.locked[q.questions[i].ID] && q.answers[q.questions[i].ID] == q.questions[i].CorrectIndex {
			snap.Correct++
		}
	}
	if !q.finished && q.idx < len(q.questions) {
		mcq := q.questions[q.idx]
		snap.Question = &mcq
		snap.Locked = q.locked[mcq.ID]
		if sel, ok := q.answers[mcq.ID]; ok {
			snap.Selected = sel
		}
		if !snap.Locked {
			left := q.perQuestion - time.Since(q.armedAt)
			if left < 0 {
				left = 0
			}
			snap.Remaining = left
		}
	}
	return snap
}

// Close stops all timers.
func (q *Quiz) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.finished = true
	q.gen++
	q.stopCountdownLocked()
	if q.advanceTimer != nil {
		q.advanceTimer.Stop()
		q.advanceTimer = nil
	}
}

func (q *Quiz) armCountdownLocked() {
	q.stopCountdownLocked()
	q.armedAt = time.Now()
	gen := q.gen
	q.countdown = time.AfterFunc(q.perQuestion, func() {
		q.expire(gen)
	})
}

func (q *Quiz) stopCountdownLocked() {
	if q.countdown != nil {
		q.countdown.Stop()
		q.countdown = nil
	}
}
