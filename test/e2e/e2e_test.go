//go:build e2e
// +build e2e

// End-to-end walk through the happy path against an in-process stub
// backend: load a session, edit, run the judge over both channels, save
// progress and submit. Run with: go test -tags e2e ./test/e2e/
package e2e

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepstack/interview-client/internal/autosave"
	"github.com/prepstack/interview-client/internal/config"
	"github.com/prepstack/interview-client/internal/logger"
	"github.com/prepstack/interview-client/internal/model"
	"github.com/prepstack/interview-client/internal/session"
	"github.com/prepstack/interview-client/internal/socket"
	"github.com/prepstack/interview-client/internal/stub"
	"github.com/prepstack/interview-client/internal/transport"
)

const jwtSecret = "e2e-secret"

// seedSession plants a one-question Two Sum session whose single visible
// test case the stub judge can score to 100.
func seedSession(store *stub.Store) *model.Session {
	sess := &model.Session{
		ID:                 "e2e-session",
		Status:             model.SessionStatusCreated,
		StartTime:          time.Now(),
		ConfiguredDuration: model.DurationSeconds(45 * time.Minute),
		Questions: []model.Question{
			{
				ID:          "e2e-q1",
				Title:       "Two Sum",
				Difficulty:  model.DifficultyEasy,
				Type:        model.QuestionTypeCoding,
				Description: "Return the indices of the two numbers adding up to the target.",
				TestCases: []model.TestCase{
					{Input: "[2,7,11,15], 9", ExpectedOutput: "[0,1]"},
				},
				StarterCode: map[string]string{
					"javascript": "function twoSum(nums, target) {\n  // your code here\n}\n",
				},
			},
		},
	}
	store.PutSession(sess)
	return sess
}

func startStub(t *testing.T) (*httptest.Server, *stub.Store) {
	t.Helper()
	stub.SetupValidator()

	log := logger.Nop()
	store := stub.NewStore()
	hub := stub.NewHub(log, nil)
	handler := stub.NewHandler(store, hub, log)

	cfg := &config.Config{GinMode: "release", JWTSecret: jwtSecret}
	ts := httptest.NewServer(stub.SetupRouter(cfg, handler, hub))
	t.Cleanup(ts.Close)
	return ts, store
}

func clientConfig(serverURL string) *config.Config {
	return &config.Config{
		APIBaseURL:     serverURL + "/api/v1",
		SocketURL:      "ws" + strings.TrimPrefix(serverURL, "http"),
		RequestTimeout: 5 * time.Second,

		WakeBudget:       5 * time.Second,
		WakeProbeTimeout: time.Second,
		WakeInitialDelay: 10 * time.Millisecond,

		SocketMaxReconnects:  2,
		SocketReconnectDelay: 10 * time.Millisecond,
		NoticeMinInterval:    time.Hour,

		AutosaveDebounce: 20 * time.Millisecond,
		AutosaveInterval: time.Hour,
		TypingThrottle:   time.Hour,

		SubmitMinScore: 1,
	}
}

func TestInterviewHappyPath(t *testing.T) {
	ts, store := startStub(t)
	seeded := seedSession(store)

	token, err := stub.IssueToken(jwtSecret, "e2e-user", time.Hour)
	require.NoError(t, err)

	cfg := clientConfig(ts.URL)
	tokens := transport.NewStaticTokenSource(token)
	log := logger.Nop()
	rest := transport.NewClient(cfg, tokens, log)
	evts := socket.NewClient(cfg, tokens, log)

	c := session.NewClient(cfg, rest, evts, log)
	defer c.Close()
	defer evts.Close()

	ctx := context.Background()
	require.NoError(t, c.Load(ctx, seeded.ID))

	snap := c.Snapshot()
	require.Equal(t, session.StateReady, snap.State)
	assert.Equal(t, "javascript", snap.Language)
	assert.Contains(t, snap.Buffer, "twoSum", "starter template is loaded")
	assert.Positive(t, snap.Remaining)

	// Autosave rides the edit hooks exactly as in the app shell.
	saver := autosave.NewController(cfg, c, log)
	c.OnEdit(saver.Arm)
	defer saver.Stop()

	solution := "function twoSum(nums, target) {\n  return [0,1];\n}\n"
	c.Edit(solution)

	// The judge verdict arrives over REST and as a socket push; the two
	// deliveries reconcile into one applied result.
	res, err := c.Execute(ctx)
	require.NoError(t, err)
	require.True(t, res.Success)

	snap = c.Snapshot()
	assert.Equal(t, 1, snap.Summary.Passed)
	assert.Equal(t, 1, snap.Summary.Total)
	assert.Equal(t, 100, snap.Summary.Score)

	// The debounced autosave lands server-side.
	assert.Eventually(t, func() bool {
		rec, ok := store.GetProgress(seeded.ID, "e2e-q1")
		return ok && rec.Code == solution
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, c.Submit(ctx))
	require.NoError(t, c.Submit(ctx), "submit is idempotent")

	stored, ok := store.GetSession(seeded.ID)
	require.True(t, ok)
	assert.Len(t, stored.Responses, 1, "resubmitting overwrites, never duplicates")
	assert.Equal(t, 100, stored.Responses[0].FinalScore)
	assert.Equal(t, model.SessionStatusCompleted, stored.Status)
	assert.Equal(t, session.StateSubmitted, c.Snapshot().State)
}

func TestReloadRestoresProgress(t *testing.T) {
	ts, store := startStub(t)
	seeded := seedSession(store)

	token, err := stub.IssueToken(jwtSecret, "e2e-user", time.Hour)
	require.NoError(t, err)

	cfg := clientConfig(ts.URL)
	log := logger.Nop()
	ctx := context.Background()

	// First visit: type something and save explicitly.
	first := session.NewClient(cfg, transport.NewClient(cfg, transport.NewStaticTokenSource(token), log), nil, log)
	require.NoError(t, first.Load(ctx, seeded.ID))
	first.Edit("function twoSum(nums, target) {\n  // half done\n}\n")
	require.NoError(t, first.Save(ctx, true))
	first.Close()

	// Second visit resumes exactly where the first left off.
	second := session.NewClient(cfg, transport.NewClient(cfg, transport.NewStaticTokenSource(token), log), nil, log)
	require.NoError(t, second.Load(ctx, seeded.ID))
	defer second.Close()

	assert.Contains(t, second.Buffer(), "half done")
}

func TestRejectedCredentialsClearIdentity(t *testing.T) {
	ts, store := startStub(t)
	seeded := seedSession(store)

	cfg := clientConfig(ts.URL)
	log := logger.Nop()
	tokens := transport.NewStaticTokenSource("not-a-valid-token")

	redirected := false
	rest := transport.NewClient(cfg, tokens, log,
		transport.WithAuthFailureHandler(func() { redirected = true }))
	c := session.NewClient(cfg, rest, nil, log)

	err := c.Load(context.Background(), seeded.ID)
	require.Error(t, err)
	assert.True(t, transport.IsAuth(err))
	assert.True(t, redirected)
	_, err = tokens.Token()
	assert.ErrorIs(t, err, transport.ErrNoToken)
}
