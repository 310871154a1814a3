package store

import (
	"context"
	"errors"
	"time"

	domain "github.com/example/realtime-chat/domain/chat"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrEmptyRoom is returned when an append names no room.
var ErrEmptyRoom = errors.New("message room id is required")

// MessageRecord is the persisted form of a chat message. Records are
// append-only: nothing in this repository updates or deletes them.
type MessageRecord struct {
	ID         string    `gorm:"primaryKey;type:text"`
	RoomID     string    `gorm:"index:idx_messages_room_created,priority:1;not null;type:text"`
	SenderID   string    `gorm:"not null;type:text"`
	SenderName string    `gorm:"type:text"`
	ReceiverID string    `gorm:"type:text"`
	Text       string    `gorm:"type:text"`
	Kind       string    `gorm:"not null;type:text"`
	FileURL    string    `gorm:"type:text"`
	CreatedAt  time.Time `gorm:"index:idx_messages_room_created,priority:2"`
}

// TableName returns the table name for the MessageRecord entity.
func (MessageRecord) TableName() string {
	return "messages"
}

func (rec *MessageRecord) toDomain() domain.Message {
	return domain.Message{
		ID:         rec.ID,
		RoomID:     rec.RoomID,
		SenderID:   rec.SenderID,
		SenderName: rec.SenderName,
		ReceiverID: rec.ReceiverID,
		Text:       rec.Text,
		Kind:       rec.Kind,
		FileURL:    rec.FileURL,
		CreatedAt:  rec.CreatedAt,
	}
}

// MessageRepository handles message persistence using GORM.
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new MessageRepository.
func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{
		db: db,
	}
}

// Append durably persists a message, assigning its id and timestamp. The
// persisted copy is returned; the input is not modified. A completed
// Append is immediately visible to RecentHistory.
func (r *MessageRepository) Append(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	if msg.RoomID == "" {
		return nil, ErrEmptyRoom
	}

	rec := MessageRecord{
		ID:         uuid.New().String(),
		RoomID:     msg.RoomID,
		SenderID:   msg.SenderID,
		SenderName: msg.SenderName,
		ReceiverID: msg.ReceiverID,
		Text:       msg.Text,
		Kind:       msg.Kind,
		FileURL:    msg.FileURL,
		CreatedAt:  time.Now(),
	}

	if result := r.db.WithContext(ctx).Create(&rec); result.Error != nil {
		return nil, result.Error
	}

	saved := rec.toDomain()
	return &saved, nil
}

// RecentHistory returns the most recent limit messages of a room,
// ordered oldest first. Appends to one room are serialized by the
// caller, so created_at is strictly ordered within a room.
func (r *MessageRepository) RecentHistory(ctx context.Context, roomID string, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = 50
	}

	var records []MessageRecord
	result := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at DESC").
		Limit(limit).
		Find(&records)
	if result.Error != nil {
		return nil, result.Error
	}

	// The query yields newest first; reverse into delivery order.
	messages := make([]domain.Message, len(records))
	for i, rec := range records {
		messages[len(records)-1-i] = rec.toDomain()
	}
	return messages, nil
}

// CountByRoom returns the number of persisted messages in a room.
func (r *MessageRepository) CountByRoom(ctx context.Context, roomID string) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).
		Model(&MessageRecord{}).
		Where("room_id = ?", roomID).
		Count(&count)
	if result.Error != nil {
		return 0, result.Error
	}
	return count, nil
}
