package chat

import (
	"encoding/json"
	"errors"

	domain "github.com/example/realtime-chat/domain/chat"
)

// Inbound event names (client -> server).
const (
	EventJoinRoom    = "join_room"
	EventLeaveRoom   = "leave_room"
	EventSendMessage = "send_message"
	EventTypingStart = "typing_start"
	EventTypingStop  = "typing_stop"
)

// Outbound event names (server -> client).
const (
	EventOnlineUsers         = "get_online_users"
	EventLoadHistory         = "load_history"
	EventReceiveMessage      = "receive_message"
	EventPrivateNotification = "private_message_notification"
	EventUserTyping          = "user_typing"
	EventUserStoppedTyping   = "user_stopped_typing"
)

// ClientEvent is one inbound frame. Data is decoded per event name by the
// router; a frame that fails to decode is dropped without state mutation.
type ClientEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ServerEvent is one outbound frame.
type ServerEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// unmarshalData decodes an event's data field. An absent field is an
// error: every inbound event carries a payload.
func unmarshalData(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return errors.New("missing event data")
	}
	return json.Unmarshal(data, v)
}

// Conn is one live transport session belonging to an authenticated
// identity. The transport layer adapts its concrete connection type onto
// this interface; the core never touches a socket directly, so it can be
// exercised with in-memory fakes.
type Conn interface {
	// ID is the unique connection handle. An identity may own several
	// concurrent connections, each with its own ID.
	ID() string
	// Identity returns the owning identity, fixed at handshake time.
	Identity() domain.Identity
	// Send delivers one event to the client. Implementations must be safe
	// for concurrent use.
	Send(event ServerEvent) error
	// Close tears down the underlying transport.
	Close() error
}
