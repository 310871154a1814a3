package api

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"

	domain "github.com/example/realtime-chat/domain/chat"
	"github.com/example/realtime-chat/modules/chat"
)

// Rate limiting constants.
const (
	messagesPerSecond = 10
	burstSize         = 20
)

// rateLimiter implements a simple token bucket rate limiter.
type rateLimiter struct {
	tokens     int
	maxTokens  int
	refillRate int // tokens per second
	lastRefill time.Time
	mu         sync.Mutex
}

func newRateLimiter(maxTokens, refillRate int) *rateLimiter {
	return &rateLimiter{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

func (r *rateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(r.lastRefill)
	tokensToAdd := int(elapsed.Seconds()) * r.refillRate
	if tokensToAdd > 0 {
		r.tokens += tokensToAdd
		if r.tokens > r.maxTokens {
			r.tokens = r.maxTokens
		}
		r.lastRefill = now
	}

	if r.tokens > 0 {
		r.tokens--
		return true
	}
	return false
}

// wsConn adapts a websocket connection to the chat.Conn interface.
// Writes are serialized; the websocket library forbids concurrent
// WriteMessage calls.
type wsConn struct {
	id       string
	identity domain.Identity
	conn     *websocket.Conn
	writeMu  sync.Mutex
}

var _ chat.Conn = (*wsConn)(nil)

func newWSConn(conn *websocket.Conn, identity domain.Identity) *wsConn {
	return &wsConn{
		id:       uuid.New().String(),
		identity: identity,
		conn:     conn,
	}
}

func (w *wsConn) ID() string {
	return w.id
}

func (w *wsConn) Identity() domain.Identity {
	return w.identity
}

func (w *wsConn) Send(evt chat.ServerEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	return w.conn.WriteMessage(websocket.TextMessage, payload)
}

func (w *wsConn) Close() error {
	return w.conn.Close()
}

// HandleWebSocket runs the read loop for an upgraded connection. The
// identity was verified and stored by UpgradeMiddleware.
func (h *Handlers) HandleWebSocket(c *websocket.Conn) {
	identity, ok := c.Locals(identityContextKey).(domain.Identity)
	if !ok {
		// Upgrade without a verified identity; refuse the session.
		c.Close()
		return
	}

	conn := newWSConn(c, identity)
	limiter := newRateLimiter(burstSize, messagesPerSecond)

	h.router.Connect(conn)
	defer func() {
		h.router.Disconnect(conn)
		c.Close()
	}()

	h.logger.Info("websocket connected", "connID", conn.ID(), "userID", identity.ID, "username", identity.Username)

	for {
		_, msgBytes, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				h.logger.Error("websocket read error", "connID", conn.ID(), "error", err)
			}
			break
		}

		if !limiter.allow() {
			h.logger.Warn("rate limit exceeded", "connID", conn.ID(), "userID", identity.ID)
			continue
		}

		var evt chat.ClientEvent
		if err := json.Unmarshal(msgBytes, &evt); err != nil {
			h.logger.Debug("dropping unparseable frame", "connID", conn.ID(), "error", err)
			continue
		}

		h.router.HandleEvent(context.Background(), conn, evt)
	}

	h.logger.Info("websocket disconnected", "connID", conn.ID(), "userID", identity.ID)
}
