package stub

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/prepstack/interview-client/internal/socket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allow-list permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// member is one connected socket participant.
type member struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (m *member) send(frame socket.Frame) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	m.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return m.conn.WriteJSON(frame)
}

// Hub manages session-scoped socket rooms and relays frames between
// participants of the same session.
type Hub struct {
	log      zerolog.Logger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	rooms map[string]map[*member]bool
}

// NewHub creates an empty hub.
func NewHub(log zerolog.Logger, allowedOrigins []string) *Hub {
	return &Hub{
		log:      log.With().Str("component", "stub_hub").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
		rooms:    make(map[string]map[*member]bool),
	}
}

// HandleWS upgrades the request and pumps frames until the peer closes.
func (h *Hub) HandleWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	m := &member{conn: conn}
	joined := "" // Session this member currently belongs to.
	defer func() {
		if joined != "" {
			h.leave(joined, m)
		}
	}()

	for {
		var frame socket.Frame
		conn.SetReadDeadline(time.Now().Add(5 * time.Minute))
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn().Err(err).Msg("Unexpected close")
			} else {
				h.log.Debug().Msg("Connection closed")
			}
			return
		}

		switch frame.Event {
		case socket.EventJoinInterview:
			if joined != "" && joined != frame.SessionID {
				h.leave(joined, m)
			}
			h.join(frame.SessionID, m)
			joined = frame.SessionID
		case socket.EventLeaveInterview:
			if joined == frame.SessionID {
				h.leave(joined, m)
				joined = ""
			}
		case socket.EventCodeUpdate, socket.EventTypingIndicator,
			socket.EventInterviewProgress, socket.EventSessionStatusUpdate:
			h.relay(frame, m)
		default:
			h.log.Debug().Str("event", string(frame.Event)).Msg("Unknown event ignored")
		}
	}
}

func (h *Hub) join(sessionID string, m *member) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[sessionID] == nil {
		h.rooms[sessionID] = make(map[*member]bool)
	}
	h.rooms[sessionID][m] = true
}

func (h *Hub) leave(sessionID string, m *member) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if room, ok := h.rooms[sessionID]; ok {
		delete(room, m)
		if len(room) == 0 {
			delete(h.rooms, sessionID)
		}
	}
}

// relay forwards a frame to every other participant in its session room.
func (h *Hub) relay(frame socket.Frame, from *member) {
	for _, m := range h.members(frame.SessionID) {
		if m == from {
			continue
		}
		if err := m.send(frame); err != nil {
			h.log.Debug().Err(err).Msg("Relay write failed")
		}
	}
}

// Broadcast pushes a server-originated frame to everyone in the session
// room. REST handlers use this for the dual-channel result delivery.
func (h *Hub) Broadcast(sessionID string, frame socket.Frame) {
	for _, m := range h.members(sessionID) {
		if err := m.send(frame); err != nil {
			h.log.Debug().Err(err).Msg("Broadcast write failed")
		}
	}
}

func (h *Hub) members(sessionID string) []*member {
	h.mu.Lock()
	defer h.mu.Unlock()
	room := h.rooms[sessionID]
	out := make([]*member, 0, len(room))
	for m := range room {
		out = append(out, m)
	}
	return out
}
