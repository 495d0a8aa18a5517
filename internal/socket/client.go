package socket

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/prepstack/interview-client/internal/config"
	"github.com/prepstack/interview-client/internal/transport"
)

const writeTimeout = 10 * time.Second

// ErrClosed is returned after Close.
var ErrClosed = errors.New("socket: client closed")

// ErrNotConnected is returned by emits before Connect succeeds.
var ErrNotConnected = errors.New("socket: not connected")

// Handler consumes one inbound frame. Handlers run on the read loop;
// they must not block.
type Handler func(Frame)

// Subscription is a disposable handle returned by Subscribe. Every
// subscribe taken at mount must be released at unmount; ListenerCount
// returning to baseline is the invariant tests assert.
type Subscription struct {
	client *Client
	event  Event
	id     int
	once   sync.Once
}

// Unsubscribe removes the handler. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.client.mu.Lock()
		defer s.client.mu.Unlock()
		if handlers, ok := s.client.subs[s.event]; ok {
			delete(handlers, s.id)
			if len(handlers) == 0 {
				delete(s.client.subs, s.event)
			}
		}
	})
}

// Client is the persistent event channel, scoped to one session at a
// time. It is established lazily — only pages needing realtime features
// call Connect — and torn down on navigation away or logout.
type Client struct {
	url    string
	tokens transport.TokenSource
	log    zerolog.Logger

	maxReconnects  int
	reconnectDelay time.Duration

	// onNotice receives user-facing connection problem notices,
	// rate-limited to at most one per noticeMinInterval.
	onNotice          func(string)
	noticeMinInterval time.Duration
	lastNotice        time.Time

	dialer *websocket.Dialer

	mu        sync.Mutex
	conn      *websocket.Conn
	sessionID string // Currently joined session, empty when none.
	subs      map[Event]map[int]Handler
	nextSubID int
	closed    bool
	writeMu   sync.Mutex
}

// Option customizes a Client.
type Option func(*Client)

// WithNoticeHandler installs the rate-limited connection-error notice sink.
func WithNoticeHandler(fn func(string)) Option {
	return func(c *Client) { c.onNotice = fn }
}

// WithDialer overrides the websocket dialer (tests).
func WithDialer(d *websocket.Dialer) Option {
	return func(c *Client) { c.dialer = d }
}

// NewClient creates a socket client. No connection is opened until Connect.
func NewClient(cfg *config.Config, tokens transport.TokenSource, log zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		url:               cfg.SocketURL + "/ws",
		tokens:            tokens,
		log:               log.With().Str("component", "socket").Logger(),
		maxReconnects:     cfg.SocketMaxReconnects,
		reconnectDelay:    cfg.SocketReconnectDelay,
		noticeMinInterval: cfg.NoticeMinInterval,
		dialer:            websocket.DefaultDialer,
		subs:              make(map[Event]map[int]Handler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect dials the socket endpoint and starts the read loop. It requires
// an authenticated identity; callers without a token get an auth error
// and no connection attempt is made.
func (c *Client) Connect(ctx context.Context) error {
	token, err := c.tokens.Token()
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.conn != nil {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	conn, err := c.dial(ctx, token)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed || c.conn != nil {
		// Lost a concurrent dial race, or Close ran meanwhile. This
		// connection is redundant; drop it before it leaks a read loop.
		closed := c.closed
		c.mu.Unlock()
		conn.Close()
		if closed {
			return ErrClosed
		}
		return nil
	}
	c.conn = conn
	c.mu.Unlock()

	go c.readLoop(conn)
	c.log.Info().Str("url", c.url).Msg("Socket connected")
	return nil
}

func (c *Client) dial(ctx context.Context, token string) (*websocket.Conn, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	conn, _, err := c.dialer.DialContext(ctx, c.url, header)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Close tears the channel down: leaves any joined session, closes the
// connection and stops reconnection attempts.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	sessionID := c.sessionID
	c.conn = nil
	c.sessionID = ""
	c.mu.Unlock()

	if conn != nil {
		if sessionID != "" {
			c.write(conn, NewFrame(EventLeaveInterview, sessionID, "", nil))
		}
		conn.Close()
	}
	return nil
}

// JoinSession joins a session room. Switching sessions leaves the old one
// first — join and leave stay symmetric.
func (c *Client) JoinSession(sessionID string) error {
	c.mu.Lock()
	conn := c.conn
	prev := c.sessionID
	if conn == nil || c.closed {
		c.mu.Unlock()
		return ErrNotConnected
	}
	c.sessionID = sessionID
	c.mu.Unlock()

	if prev != "" && prev != sessionID {
		if err := c.write(conn, NewFrame(EventLeaveInterview, prev, "", nil)); err != nil {
			return err
		}
	}
	return c.write(conn, NewFrame(EventJoinInterview, sessionID, "", nil))
}

// LeaveSession leaves the currently joined session, if any.
func (c *Client) LeaveSession() error {
	c.mu.Lock()
	conn := c.conn
	sessionID := c.sessionID
	c.sessionID = ""
	c.mu.Unlock()

	if conn == nil || sessionID == "" {
		return nil
	}
	return c.write(conn, NewFrame(EventLeaveInterview, sessionID, "", nil))
}

// SessionID returns the currently joined session, empty when none.
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Subscribe registers a handler for an event and returns its disposable
// handle.
func (c *Client) Subscribe(event Event, fn Handler) *Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextSubID++
	id := c.nextSubID
	if c.subs[event] == nil {
		c.subs[event] = make(map[int]Handler)
	}
	c.subs[event][id] = fn
	return &Subscription{client: c, event: event, id: id}
}

// ListenerCount reports the number of handlers registered for an event.
func (c *Client) ListenerCount(event Event) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs[event])
}

// EmitCodeUpdate broadcasts the current buffer to session participants.
func (c *Client) EmitCodeUpdate(sessionID, questionID, code, language string) error {
	return c.emit(NewFrame(EventCodeUpdate, sessionID, questionID, CodeUpdatePayload{Code: code, Language: language}))
}

// EmitTypingIndicator signals typing activity.
func (c *Client) EmitTypingIndicator(sessionID, questionID string, typing bool) error {
	return c.emit(NewFrame(EventTypingIndicator, sessionID, questionID, TypingPayload{Typing: typing}))
}

// EmitProgress pushes progress counters to the session.
func (c *Client) EmitProgress(sessionID string, payload InterviewProgressPayload) error {
	return c.emit(NewFrame(EventInterviewProgress, sessionID, payload.QuestionID, payload))
}

func (c *Client) emit(frame Frame) error {
	c.mu.Lock()
	conn := c.conn
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if conn == nil {
		return ErrNotConnected
	}
	return c.write(conn, frame)
}

func (c *Client) write(conn *websocket.Conn, frame Frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(frame)
}

// readLoop pumps inbound frames into dispatch until the connection drops,
// then hands off to the reconnect sequence.
func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		var frame Frame
		if err := conn.ReadJSON(&frame); err != nil {
			c.mu.Lock()
			stale := c.conn != conn
			closed := c.closed
			c.mu.Unlock()
			if closed || stale {
				return
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn().Err(err).Msg("Unexpected socket close")
			} else {
				c.log.Debug().Msg("Socket closed")
			}
			c.reconnect()
			return
		}
		c.dispatch(frame)
	}
}

// dispatch filters a frame against the current session scope and fans it
// out to subscribers. A stale frame from a just-left session must never
// mutate the newly joined session's state.
func (c *Client) dispatch(frame Frame) {
	c.mu.Lock()
	current := c.sessionID
	if frame.SessionID == "" || frame.SessionID != current {
		c.mu.Unlock()
		c.log.Debug().
			Str("event", string(frame.Event)).
			Str("frame_session", frame.SessionID).
			Str("current_session", current).
			Msg("Dropping out-of-scope frame")
		return
	}
	handlers := make([]Handler, 0, len(c.subs[frame.Event]))
	for _, fn := range c.subs[frame.Event] {
		handlers = append(handlers, fn)
	}
	c.mu.Unlock()

	for _, fn := range handlers {
		fn(frame)
	}
}

// reconnect retries the connection a bounded number of times, rejoining
// the previously joined session on success.
func (c *Client) reconnect() {
	c.mu.Lock()
	c.conn = nil
	rejoin := c.sessionID
	c.mu.Unlock()

	for attempt := 1; attempt <= c.maxReconnects; attempt++ {
		token, err := c.tokens.Token()
		if err != nil {
			// Identity disappeared (logout or expiry): tear down quietly.
			c.log.Info().Msg("No identity, stopping reconnection")
			return
		}

		time.Sleep(c.reconnectDelay * time.Duration(attempt))

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		conn, err := c.dial(ctx, token)
		cancel()
		if err != nil {
			c.log.Debug().Err(err).Int("attempt", attempt).Msg("Reconnect failed")
			c.notify("Connection lost, retrying…")
			continue
		}

		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()

		if rejoin != "" {
			c.write(conn, NewFrame(EventJoinInterview, rejoin, "", nil))
		}
		go c.readLoop(conn)
		c.log.Info().Int("attempt", attempt).Msg("Socket reconnected")
		return
	}

	c.notify("Realtime connection unavailable")
	c.log.Warn().Int("max_attempts", c.maxReconnects).Msg("Reconnection attempts exhausted")
}

// notify forwards a connection notice to the UI, rate-limited so flaky
// connectivity does not spam the user.
func (c *Client) notify(message string) {
	if c.onNotice == nil {
		return
	}
	c.mu.Lock()
	now := time.Now()
	if now.Sub(c.lastNotice) < c.noticeMinInterval {
		c.mu.Unlock()
		return
	}
	c.lastNotice = now
	c.mu.Unlock()
	c.onNotice(message)
}
