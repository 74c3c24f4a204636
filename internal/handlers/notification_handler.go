package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/saeid-a/CourseHubBack/internal/middleware"
	"github.com/saeid-a/CourseHubBack/internal/models"
)

type notificationApplicationService interface {
	ListInbox(ctx context.Context, viewer models.Viewer) ([]models.Notification, error)
	UnreadCount(ctx context.Context, viewer models.Viewer) (int, error)
	ToggleRead(ctx context.Context, viewer models.Viewer, notificationID string, currentRead bool) (bool, error)
	MarkAllRead(ctx context.Context, viewer models.Viewer) int
}

type NotificationHandler struct {
	service notificationApplicationService
}

type toggleReadRequest struct {
	Read *bool `json:"read"`
}

func NewNotificationHandler(service notificationApplicationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

func (h *NotificationHandler) ListNotifications(c *fiber.Ctx) error {
	viewer, ok := middleware.ViewerFrom(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	page := parsePositiveInt(c.Query("page"), 1)
	limit := parsePositiveInt(c.Query("limit"), defaultPageLimit)
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	items, err := h.service.ListInbox(c.Context(), viewer)
	if err != nil {
		return mapChatError(c, err)
	}

	unread := 0
	for i := range items {
		if !items[i].Read {
			unread++
		}
	}

	return c.JSON(fiber.Map{
		"notifications": paginate(items, page, limit),
		"unread_count":  unread,
		"pagination":    buildPaginationMeta(page, limit, len(items)),
	})
}

func (h *NotificationHandler) UnreadCount(c *fiber.Ctx) error {
	viewer, ok := middleware.ViewerFrom(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	count, err := h.service.UnreadCount(c.Context(), viewer)
	if err != nil {
		return mapChatError(c, err)
	}

	return c.JSON(fiber.Map{"unread_count": count})
}

func (h *NotificationHandler) ToggleRead(c *fiber.Ctx) error {
	viewer, ok := middleware.ViewerFrom(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	notificationID := strings.TrimSpace(c.Params("id"))
	if notificationID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid notification id"})
	}

	var req toggleReadRequest
	if err := c.BodyParser(&req); err != nil || req.Read == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "read is required"})
	}

	read, err := h.service.ToggleRead(c.Context(), viewer, notificationID, *req.Read)
	if err != nil {
		return mapChatError(c, err)
	}

	return c.JSON(fiber.Map{
		"id":   notificationID,
		"read": read,
	})
}

func (h *NotificationHandler) MarkAllRead(c *fiber.Ctx) error {
	viewer, ok := middleware.ViewerFrom(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	return c.JSON(fiber.Map{"updated": h.service.MarkAllRead(c.Context(), viewer)})
}
