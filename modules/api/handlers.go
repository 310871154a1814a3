package api

import (
	"io"
	"strings"

	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/realtime-chat/modules/auth"
	"github.com/example/realtime-chat/modules/chat"
	"github.com/example/realtime-chat/modules/files"
)

// maxUploadBytes caps attachment size at 10MB.
const maxUploadBytes = 10 * 1024 * 1024

// Handlers contains the HTTP and WebSocket handlers.
type Handlers struct {
	authAdapter auth.AuthPort
	router      *chat.Router
	blobs       files.ObjectStore
	logger      types.Logger
}

// NewHandlers creates a new handlers instance.
func NewHandlers(authAdapter auth.AuthPort, router *chat.Router, blobs files.ObjectStore, moduleLogger types.Logger) *Handlers {
	return &Handlers{
		authAdapter: authAdapter,
		router:      router,
		blobs:       blobs,
		logger:      moduleLogger,
	}
}

// HealthCheck reports liveness plus a summary of the realtime state.
func (h *Handlers) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status: "ok",
		Details: map[string]any{
			"online_users": h.router.Presence().OnlineCount(),
			"connections":  h.router.Presence().ConnectionCount(),
			"active_rooms": h.router.Rooms().RoomCount(),
		},
	})
}

// Register handles user registration.
func (h *Handlers) Register(c *fiber.Ctx) error {
	var req auth.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Invalid request body",
		})
	}

	if req.Username == "" || req.Email == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Username, email and password are required",
		})
	}

	resp, err := h.authAdapter.Register(c.Context(), req)
	if err != nil {
		return h.handleAuthError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(resp)
}

// Login handles user login.
func (h *Handlers) Login(c *fiber.Ctx) error {
	var req auth.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Invalid request body",
		})
	}

	if req.Email == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Email and password are required",
		})
	}

	resp, err := h.authAdapter.Login(c.Context(), req)
	if err != nil {
		return h.handleAuthError(c, err)
	}

	return c.JSON(resp)
}

// ForgotPassword generates a password reset token.
func (h *Handlers) ForgotPassword(c *fiber.Ctx) error {
	var req auth.ForgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Invalid request body",
		})
	}

	if req.Email == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Email is required",
		})
	}

	token, err := h.authAdapter.ForgotPassword(c.Context(), req.Email)
	if err != nil {
		return h.handleAuthError(c, err)
	}

	return c.JSON(auth.ForgotPasswordResponse{ResetToken: token})
}

// ResetPassword consumes a reset token and sets a new password.
func (h *Handlers) ResetPassword(c *fiber.Ctx) error {
	var req auth.ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Invalid request body",
		})
	}

	if req.Token == "" || req.NewPassword == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Token and new password are required",
		})
	}

	if err := h.authAdapter.ResetPassword(c.Context(), req.Token, req.NewPassword); err != nil {
		return h.handleAuthError(c, err)
	}

	return c.JSON(auth.ResetPasswordResponse{Success: true})
}

// Upload stores a message attachment and returns its URL.
func (h *Handlers) Upload(c *fiber.Ctx) error {
	if h.blobs == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error:   "unavailable",
			Message: "Attachment storage is not available",
		})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Multipart field 'file' is required",
		})
	}
	if fileHeader.Size > maxUploadBytes {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(ErrorResponse{
			Error:   "too_large",
			Message: "Attachment exceeds the 10MB limit",
		})
	}

	f, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Failed to read attachment",
		})
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Failed to read attachment",
		})
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	// Stored under a fresh name so clients cannot collide or overwrite.
	name := uuid.New().String() + sanitizeExtension(fileHeader.Filename)
	info, err := h.blobs.Put(c.Context(), name, data, contentType)
	if err != nil {
		h.logger.Error("attachment upload failed", "name", name, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to store attachment",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(UploadResponse{
		URL:  "/api/files/" + info.Name,
		Name: info.Name,
		Size: info.Size,
	})
}

// GetFile streams a stored attachment back to the client.
func (h *Handlers) GetFile(c *fiber.Ctx) error {
	if h.blobs == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error:   "unavailable",
			Message: "Attachment storage is not available",
		})
	}

	name := c.Params("name")
	data, info, err := h.blobs.Get(c.Context(), name)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error:   "not_found",
			Message: "Attachment not found",
		})
	}

	c.Set(fiber.HeaderContentType, info.ContentType)
	return c.Send(data)
}

// sanitizeExtension keeps a short, dot-prefixed extension from the
// original filename and discards everything else.
func sanitizeExtension(filename string) string {
	idx := strings.LastIndexByte(filename, '.')
	if idx < 0 || idx == len(filename)-1 || len(filename)-idx > 10 {
		return ""
	}
	ext := strings.ToLower(filename[idx:])
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}

// handleAuthError maps auth failures to HTTP status codes. Errors cross
// the service container as strings, so matching is by message.
func (h *Handlers) handleAuthError(c *fiber.Ctx, err error) error {
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "invalid email or password"):
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "unauthorized",
			Message: "Invalid email or password",
		})
	case strings.Contains(errStr, "already exists"):
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{
			Error:   "conflict",
			Message: "User with this username or email already exists",
		})
	case strings.Contains(errStr, "invalid email format"):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Invalid email format",
		})
	case strings.Contains(errStr, "username is required"):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Username is required",
		})
	case strings.Contains(errStr, "password must be at least"):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Password must be at least 8 characters",
		})
	case strings.Contains(errStr, "password must be at most"):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Password must be at most 72 characters",
		})
	case strings.Contains(errStr, "user not found"):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error:   "not_found",
			Message: "No account with that email",
		})
	case strings.Contains(errStr, "invalid or expired reset token"):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Invalid or expired reset token",
		})
	default:
		h.logger.Error("auth request failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "internal_error",
			Message: "An unexpected error occurred",
		})
	}
}
