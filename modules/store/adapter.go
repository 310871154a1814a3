package store

import (
	"context"
	"encoding/json"
	"fmt"

	domain "github.com/example/realtime-chat/domain/chat"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// StoreAdapter gives other modules access to the message store through
// the service container. It satisfies the chat core's MessageStore
// contract.
type StoreAdapter struct {
	container mono.ServiceContainer
}

// NewStoreAdapter creates a new StoreAdapter.
func NewStoreAdapter(container mono.ServiceContainer) *StoreAdapter {
	if container == nil {
		panic("store: ServiceContainer is nil")
	}
	return &StoreAdapter{container: container}
}

// Append durably persists a message and returns the persisted copy.
func (a *StoreAdapter) Append(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	req := AppendMessageRequest{Message: *msg}
	var resp AppendMessageResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceAppendMessage,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("append-message request failed: %w", err)
	}
	return &resp.Message, nil
}

// RecentHistory returns a room's most recent messages, oldest first.
func (a *StoreAdapter) RecentHistory(ctx context.Context, roomID string, limit int) ([]domain.Message, error) {
	req := RecentHistoryRequest{RoomID: roomID, Limit: limit}
	var resp RecentHistoryResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceRecentHistory,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("recent-history request failed: %w", err)
	}
	return resp.Messages, nil
}
