package store

import (
	domain "github.com/example/realtime-chat/domain/chat"
)

// Service names registered in the service container.
const (
	ServiceAppendMessage = "append-message"
	ServiceRecentHistory = "recent-history"
)

// AppendMessageRequest is the request for appending a message.
type AppendMessageRequest struct {
	Message domain.Message `json:"message"`
}

// AppendMessageResponse carries the persisted message with its assigned
// id and timestamp.
type AppendMessageResponse struct {
	Message domain.Message `json:"message"`
}

// RecentHistoryRequest is the request for a room's recent history.
type RecentHistoryRequest struct {
	RoomID string `json:"room_id"`
	Limit  int    `json:"limit"`
}

// RecentHistoryResponse carries the history, oldest first.
type RecentHistoryResponse struct {
	Messages []domain.Message `json:"messages"`
}
