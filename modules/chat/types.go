package chat

import (
	"errors"
	"unicode/utf8"

	domain "github.com/example/realtime-chat/domain/chat"
)

// Validation constants
const (
	MaxRoomNameLength = 100
	MaxMessageLength  = 5000
)

// Validation errors
var (
	ErrRoomNameEmpty   = errors.New("room name cannot be empty")
	ErrRoomNameTooLong = errors.New("room name exceeds maximum length")
	ErrRoomNameInvalid = errors.New("room name contains invalid characters")
	ErrMessageEmpty    = errors.New("message text cannot be empty")
	ErrMessageTooLong  = errors.New("message exceeds maximum length")
	ErrMessageInvalid  = errors.New("message contains invalid characters")
	ErrUnknownKind     = errors.New("unknown message kind")
)

// SendMessagePayload is the data of a send_message event. ReceiverID is
// optional and only meaningful for private rooms.
type SendMessagePayload struct {
	RoomID     string `json:"roomId"`
	Text       string `json:"text"`
	Kind       string `json:"type"`
	FileURL    string `json:"fileUrl,omitempty"`
	ReceiverID string `json:"receiverId,omitempty"`
}

// TypingNotice is the data of a user_typing event.
type TypingNotice struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// PrivateNotification is the data of a private_message_notification
// event, delivered to the receiver's personal room.
type PrivateNotification struct {
	SenderID   string         `json:"senderId"`
	SenderName string         `json:"senderName"`
	Message    domain.Message `json:"message"`
}

// ValidateRoomName validates a room name.
func ValidateRoomName(name string) error {
	if name == "" {
		return ErrRoomNameEmpty
	}
	if len(name) > MaxRoomNameLength {
		return ErrRoomNameTooLong
	}
	if !utf8.ValidString(name) {
		return ErrRoomNameInvalid
	}
	return nil
}

// ValidateSend validates a send_message payload. Text is required for
// text messages; image and file messages may carry an empty caption but
// must reference an attachment.
func ValidateSend(p *SendMessagePayload) error {
	if err := ValidateRoomName(p.RoomID); err != nil {
		return err
	}
	if p.Kind == "" {
		p.Kind = domain.KindText
	}
	if !domain.ValidKind(p.Kind) {
		return ErrUnknownKind
	}
	if p.Kind == domain.KindText && p.Text == "" {
		return ErrMessageEmpty
	}
	if p.Kind != domain.KindText && p.FileURL == "" {
		return ErrMessageEmpty
	}
	if len(p.Text) > MaxMessageLength {
		return ErrMessageTooLong
	}
	if !utf8.ValidString(p.Text) {
		return ErrMessageInvalid
	}
	return nil
}
