package api

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/example/realtime-chat/modules/auth"
	"github.com/example/realtime-chat/modules/chat"
	"github.com/example/realtime-chat/modules/files"
)

// APIModule serves the HTTP surface and the WebSocket endpoint.
type APIModule struct {
	app         *fiber.App
	handlers    *Handlers
	authAdapter auth.AuthPort
	router      *chat.Router
	filesModule *files.FilesModule
	addr        string
	logger      types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*APIModule)(nil)
var _ mono.DependentModule = (*APIModule)(nil)
var _ mono.HealthCheckableModule = (*APIModule)(nil)

// NewModule creates a new APIModule.
func NewModule(moduleLogger types.Logger) *APIModule {
	port := os.Getenv("PORT")
	if port == "" {
		port = "5000"
	}
	return &APIModule{
		addr:   ":" + port,
		logger: moduleLogger,
	}
}

// Name returns the module name.
func (m *APIModule) Name() string {
	return "api"
}

// Dependencies returns the list of module dependencies.
func (m *APIModule) Dependencies() []string {
	return []string{"auth"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *APIModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "auth":
		m.authAdapter = auth.NewAuthAdapter(container)
	}
}

// SetRouter injects the chat event router. Called from main before Start.
func (m *APIModule) SetRouter(router *chat.Router) {
	m.router = router
}

// SetFiles injects the attachment storage module. Called from main
// before Start; the underlying object store is resolved during Start,
// after the files module has connected.
func (m *APIModule) SetFiles(filesModule *files.FilesModule) {
	m.filesModule = filesModule
}

// Start initializes the Fiber HTTP server.
func (m *APIModule) Start(_ context.Context) error {
	if m.authAdapter == nil {
		return fmt.Errorf("auth dependency not set")
	}
	if m.router == nil {
		return fmt.Errorf("chat router not set")
	}

	m.app = fiber.New(fiber.Config{
		AppName:               "Realtime Chat",
		DisableStartupMessage: true,
		BodyLimit:             maxUploadBytes + 1024*1024,
		ErrorHandler:          m.errorHandler,
	})

	m.app.Use(recover.New())
	m.app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} ${method} ${path} ${latency}\n",
		Next: func(c *fiber.Ctx) bool {
			// Upgrade requests hijack the connection; skip access logging.
			return websocket.IsWebSocketUpgrade(c)
		},
	}))

	allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000,http://localhost:8080"
	}
	m.app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}))

	var blobs files.ObjectStore
	if m.filesModule != nil {
		blobs = m.filesModule.Store()
	}
	m.handlers = NewHandlers(m.authAdapter, m.router, blobs, m.logger)
	m.registerRoutes()

	errCh := make(chan error, 1)
	go func() {
		if err := m.app.Listen(m.addr); err != nil {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
	}

	m.logger.Info("HTTP server started", "addr", m.addr)
	return nil
}

// Stop gracefully shuts down the Fiber HTTP server.
func (m *APIModule) Stop(ctx context.Context) error {
	if m.app == nil {
		return nil
	}
	if err := m.app.ShutdownWithContext(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	m.logger.Info("HTTP server stopped")
	return nil
}

// Health returns the health status of the module.
func (m *APIModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: map[string]any{
			"addr": m.addr,
		},
	}
}

// registerRoutes sets up HTTP and WebSocket routes.
func (m *APIModule) registerRoutes() {
	m.app.Get("/health", m.handlers.HealthCheck)

	authGroup := m.app.Group("/api/auth")
	authGroup.Post("/register", m.handlers.Register)
	authGroup.Post("/login", m.handlers.Login)
	authGroup.Post("/forgot-password", m.handlers.ForgotPassword)
	authGroup.Post("/reset-password", m.handlers.ResetPassword)

	m.app.Post("/api/uploads", m.handlers.AuthMiddleware, m.handlers.Upload)
	m.app.Get("/api/files/:name", m.handlers.GetFile)

	// WebSocket upgrade middleware. Credentials are checked here,
	// before the upgrade, so an unauthenticated client never reaches
	// the event loop.
	m.app.Use("/ws", m.handlers.UpgradeMiddleware)
	m.app.Get("/ws", websocket.New(m.handlers.HandleWebSocket))
}

// errorHandler handles errors globally.
func (m *APIModule) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	m.logger.Error("HTTP error", "code", code, "message", message, "error", err)

	return c.Status(code).JSON(ErrorResponse{
		Error:   "internal_error",
		Message: message,
	})
}
