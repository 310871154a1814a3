package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// StoreModule provides durable message persistence via GORM + SQLite.
type StoreModule struct {
	db     *gorm.DB
	repo   *MessageRepository
	dbPath string
}

// Compile-time interface checks.
var _ mono.Module = (*StoreModule)(nil)
var _ mono.ServiceProviderModule = (*StoreModule)(nil)
var _ mono.HealthCheckableModule = (*StoreModule)(nil)

// NewModule creates a new StoreModule.
func NewModule() *StoreModule {
	dbPath := os.Getenv("CHAT_DB_PATH")
	if dbPath == "" {
		dbPath = "chat_messages.db"
	}
	return &StoreModule{
		dbPath: dbPath,
	}
}

// Name returns the module name.
func (m *StoreModule) Name() string {
	return "store"
}

// Start opens the database and migrates the message schema.
func (m *StoreModule) Start(_ context.Context) error {
	db, err := gorm.Open(sqlite.Open(m.dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	m.db = db

	if err := db.AutoMigrate(&MessageRecord{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	m.repo = NewMessageRepository(db)

	log.Printf("[store] Module started (database: %s)", m.dbPath)
	return nil
}

// Stop shuts down the module.
func (m *StoreModule) Stop(_ context.Context) error {
	if m.db != nil {
		sqlDB, err := m.db.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
	log.Println("[store] Module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *StoreModule) Health(ctx context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "database not initialized",
		}
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("failed to get database connection: %v", err),
		}
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"driver": "sqlite",
			"path":   m.dbPath,
		},
	}
}

// RegisterServices registers request-reply services in the service
// container.
func (m *StoreModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container,
		ServiceAppendMessage,
		json.Unmarshal,
		json.Marshal,
		m.handleAppend,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceAppendMessage, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container,
		ServiceRecentHistory,
		json.Unmarshal,
		json.Marshal,
		m.handleRecentHistory,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceRecentHistory, err)
	}

	log.Printf("[store] Registered services: %s, %s", ServiceAppendMessage, ServiceRecentHistory)
	return nil
}

// handleAppend persists a message.
func (m *StoreModule) handleAppend(ctx context.Context, req AppendMessageRequest, _ *mono.Msg) (AppendMessageResponse, error) {
	saved, err := m.repo.Append(ctx, &req.Message)
	if err != nil {
		return AppendMessageResponse{}, err
	}
	return AppendMessageResponse{Message: *saved}, nil
}

// handleRecentHistory fetches a room's recent history.
func (m *StoreModule) handleRecentHistory(ctx context.Context, req RecentHistoryRequest, _ *mono.Msg) (RecentHistoryResponse, error) {
	messages, err := m.repo.RecentHistory(ctx, req.RoomID, req.Limit)
	if err != nil {
		return RecentHistoryResponse{}, err
	}
	return RecentHistoryResponse{Messages: messages}, nil
}
