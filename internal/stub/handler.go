package stub

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/prepstack/interview-client/internal/model"
	"github.com/prepstack/interview-client/internal/socket"
	"github.com/prepstack/interview-client/internal/transport"
)

// Handler implements the REST side of the backend contract over the
// in-memory store.
type Handler struct {
	store *Store
	hub   *Hub
	log   zerolog.Logger
}

// NewHandler creates the REST handler set.
func NewHandler(store *Store, hub *Hub, log zerolog.Logger) *Handler {
	return &Handler{
		store: store,
		hub:   hub,
		log:   log.With().Str("component", "stub_handler").Logger(),
	}
}

// GetSession godoc
// GET /api/v1/session/:session_id
func (h *Handler) GetSession(c *gin.Context) {
	sess, ok := h.store.GetSession(c.Param("session_id"))
	if !ok {
		Fail(c, http.StatusNotFound, transport.ErrNotFound, "session not found")
		return
	}
	Success(c, http.StatusOK, sess)
}

// GetProgress godoc
// GET /api/v1/progress/:session_id?questionId=
func (h *Handler) GetProgress(c *gin.Context) {
	sessionID := c.Param("session_id")
	questionID := c.Query("questionId")
	if questionID == "" {
		Fail(c, http.StatusBadRequest, transport.ErrValidation, "questionId query parameter is required")
		return
	}
	rec, ok := h.store.GetProgress(sessionID, questionID)
	if !ok {
		Fail(c, http.StatusNotFound, transport.ErrNotFound, "no progress saved for this question")
		return
	}
	Success(c, http.StatusOK, rec)
}

// executePayload mirrors transport.ExecuteRequest with binding tags.
type executePayload struct {
	SessionID  string           `json:"session_id" binding:"required"`
	QuestionID string           `json:"question_id" binding:"required"`
	Code       string           `json:"code" binding:"required"`
	Language   string           `json:"language" binding:"required"`
	TestCases  []model.TestCase `json:"test_cases"`
	Seq        uint64           `json:"seq"`
}

// Execute godoc
// POST /api/v1/execute
// Runs the judge and pushes the verdict over the socket as well — the
// client reconciles both deliveries into one result.
func (h *Handler) Execute(c *gin.Context) {
	var req executePayload
	if fields := Bind(c, &req); fields != nil {
		FailWithFields(c, http.StatusBadRequest, transport.ErrValidation, "invalid execute payload", fields)
		return
	}

	cases := req.TestCases
	if len(cases) == 0 {
		// Fall back to the stored question's cases (hidden ones included).
		if sess, ok := h.store.GetSession(req.SessionID); ok {
			for i := range sess.Questions {
				if sess.Questions[i].ID == req.QuestionID {
					cases = sess.Questions[i].TestCases
					break
				}
			}
		}
	}

	result := Evaluate(req.Code, req.Language, cases)

	h.hub.Broadcast(req.SessionID, socket.NewFrame(
		socket.EventExecutionResult, req.SessionID, req.QuestionID,
		socket.ExecutionResultPayload{Result: result, Seq: req.Seq},
	))

	Success(c, http.StatusOK, result)
}

// progressPayload mirrors model.ProgressRecord with binding tags.
type progressPayload struct {
	SessionID   string `json:"session_id" binding:"required"`
	QuestionID  string `json:"question_id" binding:"required"`
	Code        string `json:"code"`
	Language    string `json:"language" binding:"required"`
	Score       int    `json:"score" binding:"min=0,max=100"`
	TestsPassed int    `json:"tests_passed" binding:"min=0"`
	TotalTests  int    `json:"total_tests" binding:"min=0"`
	TimeElapsed int    `json:"time_elapsed_seconds" binding:"min=0"`
}

func (p *progressPayload) record() model.ProgressRecord {
	return model.ProgressRecord{
		SessionID:   p.SessionID,
		QuestionID:  p.QuestionID,
		Code:        p.Code,
		Language:    p.Language,
		Score:       p.Score,
		TestsPassed: p.TestsPassed,
		TotalTests:  p.TotalTests,
		TimeElapsed: p.TimeElapsed,
	}
}

// SaveProgress godoc
// POST /api/v1/save-progress
// Last write wins; an empty buffer overwrites prior progress.
func (h *Handler) SaveProgress(c *gin.Context) {
	var req progressPayload
	if fields := Bind(c, &req); fields != nil {
		FailWithFields(c, http.StatusBadRequest, transport.ErrValidation, "invalid progress payload", fields)
		return
	}

	h.store.SaveProgress(req.record())

	h.hub.Broadcast(req.SessionID, socket.NewFrame(
		socket.EventProgressSaved, req.SessionID, req.QuestionID,
		socket.ProgressSavedPayload{QuestionID: req.QuestionID, SavedAt: time.Now()},
	))

	Success(c, http.StatusOK, gin.H{"status": "saved"})
}

// submitPayload is a progress snapshot plus the final score.
type submitPayload struct {
	progressPayload
	FinalScore int `json:"final_score" binding:"min=0,max=100"`
}

// Submit godoc
// POST /api/v1/submit
// Overwrites any previous response for the question (idempotent).
func (h *Handler) Submit(c *gin.Context) {
	var req submitPayload
	if fields := Bind(c, &req); fields != nil {
		FailWithFields(c, http.StatusBadRequest, transport.ErrValidation, "invalid submit payload", fields)
		return
	}

	h.store.SaveProgress(req.record())
	status, ok := h.store.PutResponse(req.SessionID, model.Response{
		QuestionID:  req.QuestionID,
		Code:        req.Code,
		Language:    req.Language,
		FinalScore:  req.FinalScore,
		SubmittedAt: time.Now(),
	})
	if !ok {
		Fail(c, http.StatusNotFound, transport.ErrNotFound, "session not found")
		return
	}

	h.hub.Broadcast(req.SessionID, socket.NewFrame(
		socket.EventSessionStatusUpdate, req.SessionID, "",
		socket.SessionStatusPayload{Status: status},
	))

	h.log.Info().
		Str("session_id", req.SessionID).
		Str("question_id", req.QuestionID).
		Int("final_score", req.FinalScore).
		Msg("Response recorded")

	Success(c, http.StatusOK, gin.H{"status": string(status)})
}

// Health godoc
// GET /api/v1/health
func (h *Handler) Health(c *gin.Context) {
	Success(c, http.StatusOK, gin.H{"status": "ok"})
}
