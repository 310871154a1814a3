package chat

import (
	"context"
	"fmt"

	"github.com/example/realtime-chat/modules/store"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
)

// Module hosts the realtime core: presence registry, room membership,
// typing tracker and the event router that ties them together.
type Module struct {
	router *Router
	logger types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.DependentModule = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates the chat core module.
func NewModule(logger types.Logger) *Module {
	return &Module{
		router: NewRouter(logger),
		logger: logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "chat"
}

// Dependencies returns the list of module dependencies.
func (m *Module) Dependencies() []string {
	return []string{"store"}
}

// SetDependencyServiceContainer receives service containers from
// dependencies.
func (m *Module) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "store":
		m.router.SetStore(store.NewStoreAdapter(container))
	}
}

// Router returns the event router for the transport layer to attach
// connections to.
func (m *Module) Router() *Router {
	return m.router
}

// Start verifies wiring. The core holds no resources of its own; all its
// state lives in process memory for the process lifetime.
func (m *Module) Start(_ context.Context) error {
	if m.router.store == nil {
		return fmt.Errorf("message store dependency not set")
	}
	m.logger.Info("chat core started")
	return nil
}

// Stop shuts down the module. Live connections are closed by the
// transport layer; presence and membership state dies with the process.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("chat core stopped",
		"onlineUsers", m.router.presence.OnlineCount(),
		"connections", m.router.presence.ConnectionCount())
	return nil
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"online_users": m.router.presence.OnlineCount(),
			"connections":  m.router.presence.ConnectionCount(),
			"active_rooms": m.router.rooms.RoomCount(),
		},
	}
}
