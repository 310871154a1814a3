package files

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-monolith/mono"
)

const bucketName = "chat-uploads"

// FilesModule provides blob storage for message attachments.
type FilesModule struct {
	store   *JetStreamObjectStore
	natsURL string
}

// Compile-time interface checks.
var _ mono.Module = (*FilesModule)(nil)
var _ mono.HealthCheckableModule = (*FilesModule)(nil)

// NewModule creates a new FilesModule.
func NewModule() *FilesModule {
	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		natsURL = "nats://localhost:4222"
	}
	return &FilesModule{
		natsURL: natsURL,
	}
}

// Name returns the module name.
func (m *FilesModule) Name() string {
	return "files"
}

// Start connects to NATS and prepares the upload bucket.
func (m *FilesModule) Start(ctx context.Context) error {
	store, err := NewJetStreamObjectStore(m.natsURL, bucketName)
	if err != nil {
		return fmt.Errorf("failed to create object store: %w", err)
	}
	if err := store.Init(ctx); err != nil {
		store.Close()
		return fmt.Errorf("failed to init object store: %w", err)
	}
	m.store = store

	log.Printf("[files] Module started (bucket: %s)", bucketName)
	return nil
}

// Stop shuts down the module.
func (m *FilesModule) Stop(_ context.Context) error {
	if m.store != nil {
		m.store.Close()
	}
	log.Println("[files] Module stopped")
	return nil
}

// Health returns the health status.
func (m *FilesModule) Health(_ context.Context) mono.HealthStatus {
	if m.store == nil || !m.store.IsConnected() {
		return mono.HealthStatus{
			Healthy: false,
			Message: "object store not connected",
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"bucket": bucketName,
		},
	}
}

// Store returns the object store for the API module to use. Returns
// nil until Start has connected to NATS.
func (m *FilesModule) Store() ObjectStore {
	if m.store == nil {
		return nil
	}
	return m.store
}
