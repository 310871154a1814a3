package chat

import (
	"sort"
	"time"
)

// DefaultRoom is the well-known public room every client may join.
// Private-message notifications are suppressed for it.
const DefaultRoom = "general"

// PrivateRoomPrefix namespaces rooms derived from a pair of identity ids.
const PrivateRoomPrefix = "private_"

// Message kinds.
const (
	KindText  = "text"
	KindImage = "image"
	KindFile  = "file"
)

// Identity is an authenticated end user. It is produced once per
// connection by the credential verifier and is immutable for the
// connection's lifetime.
type Identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// OnlineUser is one entry of the aggregated online-user list.
type OnlineUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Message is a persisted chat message. It is written exactly once and
// never mutated. ReceiverID is set only for private-room messages and is
// informational; room membership governs delivery.
type Message struct {
	ID         string    `json:"id"`
	RoomID     string    `json:"roomId"`
	SenderID   string    `json:"senderId"`
	SenderName string    `json:"senderName"`
	ReceiverID string    `json:"receiverId,omitempty"`
	Text       string    `json:"text"`
	Kind       string    `json:"type"`
	FileURL    string    `json:"fileUrl,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ValidKind reports whether kind is a known message kind.
func ValidKind(kind string) bool {
	switch kind {
	case KindText, KindImage, KindFile:
		return true
	}
	return false
}

// DerivePrivateRoom returns the canonical private room name for a pair of
// identity ids. Both participants compute the same name independently:
// the ids are sorted, joined with "_" and prefixed, so
// DerivePrivateRoom(a, b) == DerivePrivateRoom(b, a).
func DerivePrivateRoom(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return PrivateRoomPrefix + ids[0] + "_" + ids[1]
}

// PersonalRoom returns the implicit private room an identity always
// listens on. It is used for out-of-band notifications and equals the
// identity id.
func PersonalRoom(identityID string) string {
	return identityID
}
