package handlers

import (
	"context"
	"errors"
	"strings"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/saeid-a/CourseHubBack/internal/middleware"
	"github.com/saeid-a/CourseHubBack/internal/models"
	"github.com/saeid-a/CourseHubBack/internal/services"
	chatws "github.com/saeid-a/CourseHubBack/internal/websocket"
)

type chatApplicationService interface {
	ListMessages(ctx context.Context, viewer models.Viewer, courseID string) ([]models.CourseMessage, error)
	AppendMessage(ctx context.Context, sender models.Viewer, courseID, text string) (*services.ChatDelivery, error)
	SubscribeMessages(ctx context.Context, viewer models.Viewer, courseID string) (*services.MessageSubscription, error)
}

type liveInboxService interface {
	OpenInbox(ctx context.Context, viewer models.Viewer) (*services.InboxView, error)
	ToggleRead(ctx context.Context, viewer models.Viewer, notificationID string, currentRead bool) (bool, error)
	MarkAllRead(ctx context.Context, viewer models.Viewer) int
}

type ChatHandler struct {
	service   chatApplicationService
	inbox     liveInboxService
	hub       *chatws.Hub
	resolver  middleware.ViewerResolver
	jwtSecret string
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

func NewChatHandler(
	service chatApplicationService,
	inbox liveInboxService,
	hub *chatws.Hub,
	resolver middleware.ViewerResolver,
	jwtSecret string,
) *ChatHandler {
	return &ChatHandler{
		service:   service,
		inbox:     inbox,
		hub:       hub,
		resolver:  resolver,
		jwtSecret: jwtSecret,
	}
}

func (h *ChatHandler) GetMessages(c *fiber.Ctx) error {
	viewer, ok := middleware.ViewerFrom(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	courseID := strings.TrimSpace(c.Params("id"))
	if courseID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid course id"})
	}

	messages, err := h.service.ListMessages(c.Context(), viewer, courseID)
	if err != nil {
		return mapChatError(c, err)
	}

	return c.JSON(fiber.Map{
		"course_id": courseID,
		"messages":  messages,
	})
}

func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	viewer, ok := middleware.ViewerFrom(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	courseID := strings.TrimSpace(c.Params("id"))
	if courseID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid course id"})
	}

	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	delivery, err := h.service.AppendMessage(c.Context(), viewer, courseID, req.Text)
	if err != nil {
		return mapChatError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":       delivery.Message,
		"notifications": len(delivery.Notifications),
	})
}

func (h *ChatHandler) WebSocketAuth(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{"error": "WebSocket upgrade required"})
	}

	tokenString := strings.TrimSpace(c.Query("token"))
	if tokenString == "" {
		tokenString, _ = middleware.BearerToken(c.Get("Authorization"))
	}
	if tokenString == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired token"})
	}

	return middleware.Authenticate(c, tokenString, h.jwtSecret, h.resolver)
}

func (h *ChatHandler) HandleWebSocket(conn *websocket.Conn) {
	viewer, _ := conn.Locals(middleware.ViewerKey).(models.Viewer)
	client := chatws.NewClient(h.hub, conn, viewer, h.service, h.inbox)

	if !h.hub.Register(client) {
		_ = conn.Close()
		return
	}
	go client.WritePump()
	client.ReadPump()
}

func mapChatError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Message text is required"})
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	case errors.Is(err, services.ErrCourseNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Course not found"})
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Notification not found"})
	case errors.Is(err, services.ErrPersistence):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Message store unavailable"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process chat request"})
	}
}
