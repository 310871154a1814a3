package chat

import (
	"context"
	"sync"
	"time"

	domain "github.com/example/realtime-chat/domain/chat"
	"github.com/go-monolith/mono/pkg/types"
)

const (
	// historyLimit is the number of messages returned on join.
	historyLimit = 50
	// storeTimeout bounds every message-store call; a send whose append
	// exceeds it is treated as failed and dropped.
	storeTimeout = 5 * time.Second
)

// MessageStore is the durable persistence contract the router depends
// on. Append must be durable before it returns; RecentHistory must see
// the result of a completed Append (read-your-write within the process).
type MessageStore interface {
	Append(ctx context.Context, msg *domain.Message) (*domain.Message, error)
	RecentHistory(ctx context.Context, roomID string, limit int) ([]domain.Message, error)
}

// Router is the core state machine. It consumes inbound client events,
// applies them against the presence registry and room membership table,
// writes through to the message store, and fans the resulting events out
// to the correct set of live connections.
//
// Each connection feeds the router from a single goroutine, so events of
// one connection are processed in order; events of different connections
// interleave freely against the lock-guarded shared structures.
type Router struct {
	presence *PresenceRegistry
	rooms    *RoomMembership
	typing   *TypingTracker
	store    MessageStore
	logger   types.Logger

	// seqMu guards seq; each room's mutex serializes append+broadcast so
	// broadcast order equals append-completion order within a room.
	seqMu sync.Mutex
	seq   map[string]*sync.Mutex
}

// NewRouter creates a router. The message store is attached separately
// once the providing module's service container is available.
func NewRouter(logger types.Logger) *Router {
	return &Router{
		presence: NewPresenceRegistry(),
		rooms:    NewRoomMembership(),
		typing:   NewTypingTracker(),
		logger:   logger,
		seq:      make(map[string]*sync.Mutex),
	}
}

// SetStore attaches the message store. Must be called before the first
// connection is accepted.
func (r *Router) SetStore(store MessageStore) {
	r.store = store
}

// Presence exposes the registry for health reporting.
func (r *Router) Presence() *PresenceRegistry {
	return r.presence
}

// Rooms exposes the membership table for health reporting.
func (r *Router) Rooms() *RoomMembership {
	return r.rooms
}

// Connect registers an authenticated connection. The connection is added
// to the presence registry, auto-joined to its identity's personal room,
// and told who is online. When the identity comes online (first
// connection) the refreshed online list is broadcast to everyone.
func (r *Router) Connect(conn Conn) {
	identity := conn.Identity()
	first := r.presence.Register(conn)
	r.rooms.Join(conn, domain.PersonalRoom(identity.ID))

	r.logger.Info("user connected",
		"userID", identity.ID,
		"username", identity.Username,
		"connID", conn.ID(),
		"firstConnection", first)

	if first {
		r.broadcastPresence()
		return
	}
	// The aggregated list did not change; only the new connection needs it.
	r.send(conn, ServerEvent{Event: EventOnlineUsers, Data: r.presence.ListOnline()})
}

// Disconnect tears the connection out of every shared structure. It is
// the only cancellation signal: after it returns no further event is
// processed for the connection and nothing will be delivered to it.
func (r *Router) Disconnect(conn Conn) {
	identity := conn.Identity()
	left := r.rooms.Teardown(conn)

	// Retract dangling typing indicators, unless another connection of
	// the same identity still sits in the room.
	for _, roomID := range left {
		if r.rooms.HasIdentity(roomID, identity.ID) {
			continue
		}
		if r.typing.Stop(roomID, identity.ID) {
			r.broadcastToRoom(roomID, ServerEvent{Event: EventUserStoppedTyping, Data: identity.ID}, conn.ID())
		}
	}

	last := r.presence.Unregister(conn)
	r.logger.Info("user disconnected",
		"userID", identity.ID,
		"username", identity.Username,
		"connID", conn.ID(),
		"lastConnection", last)

	if last {
		r.broadcastPresence()
	}
}

// HandleEvent dispatches one inbound event. Unknown events and malformed
// payloads are dropped with a log line and no state mutation.
func (r *Router) HandleEvent(ctx context.Context, conn Conn, evt ClientEvent) {
	switch evt.Event {
	case EventJoinRoom:
		roomID, ok := r.decodeRoomID(conn, evt)
		if !ok {
			return
		}
		r.handleJoin(ctx, conn, roomID)
	case EventLeaveRoom:
		roomID, ok := r.decodeRoomID(conn, evt)
		if !ok {
			return
		}
		r.handleLeave(conn, roomID)
	case EventSendMessage:
		var payload SendMessagePayload
		if err := unmarshalData(evt.Data, &payload); err != nil {
			r.dropEvent(conn, evt.Event, err)
			return
		}
		r.handleSend(ctx, conn, payload)
	case EventTypingStart:
		roomID, ok := r.decodeRoomID(conn, evt)
		if !ok {
			return
		}
		r.handleTypingStart(conn, roomID)
	case EventTypingStop:
		roomID, ok := r.decodeRoomID(conn, evt)
		if !ok {
			return
		}
		r.handleTypingStop(conn, roomID)
	default:
		r.logger.Debug("dropping unknown event",
			"event", evt.Event,
			"connID", conn.ID())
	}
}

// handleJoin adds the connection to the room and replies with the most
// recent history, oldest first, to the requester only. A history fetch
// failure is logged and the reply suppressed; membership still holds, so
// live events flow from here on.
func (r *Router) handleJoin(ctx context.Context, conn Conn, roomID string) {
	r.rooms.Join(conn, roomID)
	r.logger.Info("joined room",
		"userID", conn.Identity().ID,
		"roomID", roomID)

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	history, err := r.store.RecentHistory(ctx, roomID, historyLimit)
	if err != nil {
		r.logger.Error("failed to fetch history",
			"roomID", roomID,
			"error", err)
		return
	}
	r.send(conn, ServerEvent{Event: EventLoadHistory, Data: history})
}

func (r *Router) handleLeave(conn Conn, roomID string) {
	r.rooms.Leave(conn, roomID)
	r.logger.Info("left room",
		"userID", conn.Identity().ID,
		"roomID", roomID)
}

// handleSend persists the message and broadcasts it to the room's
// members. Append and broadcast run under the room's sequencing lock, so
// two concurrent sends to one room are never broadcast out of their
// persisted order. A persistence failure or timeout drops the send with
// no broadcast and no retry; the sender is not notified.
func (r *Router) handleSend(ctx context.Context, conn Conn, payload SendMessagePayload) {
	if err := ValidateSend(&payload); err != nil {
		r.dropEvent(conn, EventSendMessage, err)
		return
	}

	identity := conn.Identity()
	msg := &domain.Message{
		RoomID:     payload.RoomID,
		SenderID:   identity.ID,
		SenderName: identity.Username,
		ReceiverID: payload.ReceiverID,
		Text:       payload.Text,
		Kind:       payload.Kind,
		FileURL:    payload.FileURL,
	}

	lock := r.roomLock(payload.RoomID)
	lock.Lock()
	defer lock.Unlock()

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	saved, err := r.store.Append(ctx, msg)
	if err != nil {
		r.logger.Error("failed to persist message, dropping send",
			"roomID", payload.RoomID,
			"senderID", identity.ID,
			"error", err)
		return
	}

	r.broadcastToRoom(payload.RoomID, ServerEvent{Event: EventReceiveMessage, Data: saved}, "")

	// Side-channel notification to the receiver's personal room, so a
	// private message reaches its addressee even while they sit in some
	// other room. Suppressed for the public default room.
	if payload.ReceiverID != "" && payload.RoomID != domain.DefaultRoom {
		r.broadcastToRoom(domain.PersonalRoom(payload.ReceiverID), ServerEvent{
			Event: EventPrivateNotification,
			Data: PrivateNotification{
				SenderID:   identity.ID,
				SenderName: identity.Username,
				Message:    *saved,
			},
		}, "")
	}
}

// handleTypingStart notifies the other members of the room. No state
// beyond the ephemeral typing map is mutated.
func (r *Router) handleTypingStart(conn Conn, roomID string) {
	identity := conn.Identity()
	if !r.typing.Start(roomID, identity.ID, identity.Username) {
		return
	}
	r.broadcastToRoom(roomID, ServerEvent{
		Event: EventUserTyping,
		Data:  TypingNotice{UserID: identity.ID, Username: identity.Username},
	}, conn.ID())
}

func (r *Router) handleTypingStop(conn Conn, roomID string) {
	identity := conn.Identity()
	if !r.typing.Stop(roomID, identity.ID) {
		return
	}
	r.broadcastToRoom(roomID, ServerEvent{Event: EventUserStoppedTyping, Data: identity.ID}, conn.ID())
}

// broadcastPresence pushes the deduplicated online list to every live
// connection.
func (r *Router) broadcastPresence() {
	evt := ServerEvent{Event: EventOnlineUsers, Data: r.presence.ListOnline()}
	for _, c := range r.presence.Connections() {
		r.send(c, evt)
	}
}

// broadcastToRoom delivers evt to every member of roomID exactly once,
// skipping the connection named by except (used for typing indicators,
// which are not echoed to their originator).
func (r *Router) broadcastToRoom(roomID string, evt ServerEvent, except string) {
	for _, c := range r.rooms.Members(roomID) {
		if c.ID() == except {
			continue
		}
		r.send(c, evt)
	}
}

func (r *Router) send(conn Conn, evt ServerEvent) {
	if err := conn.Send(evt); err != nil {
		r.logger.Error("failed to deliver event",
			"event", evt.Event,
			"connID", conn.ID(),
			"error", err)
	}
}

// roomLock returns the sequencing mutex for a room, creating it on first
// use. Locks are never removed; the per-room footprint is one mutex.
func (r *Router) roomLock(roomID string) *sync.Mutex {
	r.seqMu.Lock()
	defer r.seqMu.Unlock()

	lock, ok := r.seq[roomID]
	if !ok {
		lock = &sync.Mutex{}
		r.seq[roomID] = lock
	}
	return lock
}

func (r *Router) decodeRoomID(conn Conn, evt ClientEvent) (string, bool) {
	var roomID string
	if err := unmarshalData(evt.Data, &roomID); err != nil {
		r.dropEvent(conn, evt.Event, err)
		return "", false
	}
	if err := ValidateRoomName(roomID); err != nil {
		r.dropEvent(conn, evt.Event, err)
		return "", false
	}
	return roomID, true
}

func (r *Router) dropEvent(conn Conn, event string, err error) {
	r.logger.Warn("dropping malformed event",
		"event", event,
		"connID", conn.ID(),
		"error", err)
}
