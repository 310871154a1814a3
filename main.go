package main

import (
	"context"
	"log"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"

	"github.com/example/realtime-chat/modules/api"
	"github.com/example/realtime-chat/modules/auth"
	"github.com/example/realtime-chat/modules/chat"
	"github.com/example/realtime-chat/modules/files"
	"github.com/example/realtime-chat/modules/store"
)

const shutdownTimeout = 30 * time.Second

func main() {
	log.Println("=== Realtime Chat Server ===")

	// Create mono application
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	// Create modules
	storeModule := store.NewModule()
	authModule := auth.NewModule()
	chatModule := chat.NewModule(app.Logger())
	filesModule := files.NewModule()
	apiModule := api.NewModule(app.Logger())

	// Inject the realtime pieces into the API module. The chat router
	// and the attachment store are not exposed via ServiceContainer,
	// so this wiring is manual.
	apiModule.SetRouter(chatModule.Router())
	apiModule.SetFiles(filesModule)

	// Register modules with the framework.
	// Order: independent modules first, then modules with dependencies
	// - store: message persistence (ServiceProviderModule)
	// - auth: accounts and credential verification (ServiceProviderModule)
	// - chat: presence, rooms and event routing (depends on store)
	// - files: attachment blob storage
	// - api: driving adapter (Fiber HTTP/WebSocket server, depends on auth)
	app.Register(storeModule)
	app.Register(authModule)
	app.Register(chatModule)
	app.Register(filesModule)
	app.Register(apiModule)

	// Start application
	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo()

	// Graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "5000"
	}
	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		natsURL = "nats://localhost:4222"
	}

	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Println("Architecture:")
	log.Println("  - HTTP Framework: Fiber with WebSocket support")
	log.Println("  - Persistence: SQLite via GORM (messages, users)")
	log.Printf("  - Attachments: NATS JetStream Object Store (%s)", natsURL)
	log.Println("")
	log.Printf("REST API Endpoints (http://localhost:%s):", port)
	log.Println("  GET    /health                    - Health check")
	log.Println("  POST   /api/auth/register         - Create an account")
	log.Println("  POST   /api/auth/login            - Log in")
	log.Println("  POST   /api/auth/forgot-password  - Request a reset token")
	log.Println("  POST   /api/auth/reset-password   - Consume a reset token")
	log.Println("  POST   /api/uploads               - Upload an attachment (auth required)")
	log.Println("  GET    /api/files/:name           - Download an attachment")
	log.Println("")
	log.Printf("WebSocket Endpoint (ws://localhost:%s/ws?token=<jwt>):", port)
	log.Println("  Client events: join_room, leave_room, send_message, typing_start, typing_stop")
	log.Println("  Server events: get_online_users, load_history, receive_message,")
	log.Println("                 private_message_notification, user_typing, user_stopped_typing")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
