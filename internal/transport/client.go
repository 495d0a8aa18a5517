package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/prepstack/interview-client/internal/config"
	"github.com/prepstack/interview-client/internal/model"
)

// envelope mirrors the backend's standard response shape.
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *errorBody      `json:"error,omitempty"`
}

type errorBody struct {
	Code    ErrCode           `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// ExecuteRequest is the payload for POST execute. Seq is the client's
// issue-order sequence for this run; the server echoes it in the pushed
// verdict so both deliveries reconcile against the same run.
type ExecuteRequest struct {
	SessionID  string           `json:"session_id"`
	QuestionID string           `json:"question_id"`
	Code       string           `json:"code"`
	Language   string           `json:"language"`
	TestCases  []model.TestCase `json:"test_cases"`
	Seq        uint64           `json:"seq,omitempty"`
}

// SubmitRequest is the payload for POST submit: a progress snapshot plus
// the final score. Re-submitting the same question overwrites the stored
// response rather than duplicating it.
type SubmitRequest struct {
	model.ProgressRecord
	FinalScore int `json:"final_score"`
}

// Client is the request/response channel to the backend. Every call
// carries a deadline; failures are classified per the error taxonomy.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	log     zerolog.Logger
	waker   *waker

	// onAuthFailure runs at most once across the client's lifetime, no
	// matter how many concurrent requests hit a 401.
	onAuthFailure func()
	authFired     atomic.Bool
}

// Option customizes a Client.
type Option func(*Client)

// WithAuthFailureHandler installs the single-flight credential-clear /
// redirect hook invoked on the first 401.
func WithAuthFailureHandler(fn func()) Option {
	return func(c *Client) { c.onAuthFailure = fn }
}

// WithHTTPClient overrides the underlying HTTP client (tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// NewClient creates a REST transport client.
func NewClient(cfg *config.Config, tokens TokenSource, log zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(cfg.APIBaseURL, "/"),
		http:    &http.Client{Timeout: cfg.RequestTimeout},
		tokens:  tokens,
		log:     log.With().Str("component", "transport").Logger(),
	}
	c.waker = newWaker(c, cfg.WakeBudget, cfg.WakeProbeTimeout, cfg.WakeInitialDelay)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetSession fetches the session and its questions.
func (c *Client) GetSession(ctx context.Context, sessionID string) (*model.Session, error) {
	var sess model.Session
	if err := c.do(ctx, http.MethodGet, "/session/"+url.PathEscape(sessionID), nil, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// GetProgress fetches the last saved progress record for a question.
// Returns (nil, nil) when no record exists yet.
func (c *Client) GetProgress(ctx context.Context, sessionID, questionID string) (*model.ProgressRecord, error) {
	path := "/progress/" + url.PathEscape(sessionID) + "?questionId=" + url.QueryEscape(questionID)
	var rec model.ProgressRecord
	err := c.do(ctx, http.MethodGet, path, nil, &rec)
	if err != nil {
		var te *Error
		if errors.As(err, &te) && te.Code == ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// Execute runs the buffer against the judge and returns its verdict.
// A failed program run is a successful call with Success=false.
func (c *Client) Execute(ctx context.Context, req ExecuteRequest) (*model.ExecutionResult, error) {
	var res model.ExecutionResult
	if err := c.do(ctx, http.MethodPost, "/execute", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// SaveProgress persists a progress snapshot. Last write wins on the
// (session, question) key.
func (c *Client) SaveProgress(ctx context.Context, rec model.ProgressRecord) error {
	return c.do(ctx, http.MethodPost, "/save-progress", rec, nil)
}

// Submit records the final answer for a question. Idempotent server-side:
// resubmitting overwrites the stored response.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) error {
	return c.do(ctx, http.MethodPost, "/submit", req, nil)
}

// Health probes backend liveness. Used by the wake sequence.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// WakeBackend runs the bounded cold-start wake sequence. Concurrent
// callers share a single in-flight sequence.
func (c *Client) WakeBackend(ctx context.Context) error {
	return c.waker.Wake(ctx)
}

// do executes one request and decodes the response envelope into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		token, err := c.tokens.Token()
		if err == nil {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		terr := classifyNetErr(err)
		c.log.Debug().Err(err).Str("path", path).Msg("Round trip failed")
		return terr
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return classifyNetErr(err)
	}

	c.log.Trace().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("Request complete")

	if resp.StatusCode >= 400 {
		return c.failure(resp.StatusCode, raw)
	}

	if out == nil {
		return nil
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &Error{Kind: KindRejection, Code: ErrInternal, StatusCode: resp.StatusCode,
			Message: "malformed response body", cause: err}
	}
	if len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &Error{Kind: KindRejection, Code: ErrInternal, StatusCode: resp.StatusCode,
			Message: "malformed response data", cause: err}
	}
	return nil
}

// failure classifies a non-2xx response and fires the 401 hook once.
func (c *Client) failure(status int, raw []byte) error {
	var env envelope
	var code ErrCode
	var message string
	if err := json.Unmarshal(raw, &env); err == nil && env.Error != nil {
		code = env.Error.Code
		message = env.Error.Message
	}

	terr := classifyStatus(status, code, message)
	if terr.Kind == KindAuth && c.onAuthFailure != nil {
		if c.authFired.CompareAndSwap(false, true) {
			c.log.Warn().Int("status", status).Msg("Authentication failed, clearing credentials")
			if c.tokens != nil {
				c.tokens.Clear()
			}
			c.onAuthFailure()
		}
	}
	return terr
}
