package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/saeid-a/CourseHubBack/internal/middleware"
	"github.com/saeid-a/CourseHubBack/internal/models"
)

type progressApplicationService interface {
	GetCourseProgress(ctx context.Context, viewer models.Viewer, courseID string) (*models.LessonProgress, error)
	MarkWatched(ctx context.Context, viewer models.Viewer, courseID string, lessonIndex int) (*models.LessonProgress, error)
}

type ProgressHandler struct {
	service progressApplicationService
}

func NewProgressHandler(service progressApplicationService) *ProgressHandler {
	return &ProgressHandler{service: service}
}

func (h *ProgressHandler) GetProgress(c *fiber.Ctx) error {
	viewer, ok := middleware.ViewerFrom(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	progress, err := h.service.GetCourseProgress(c.Context(), viewer, strings.TrimSpace(c.Params("id")))
	if err != nil {
		return mapChatError(c, err)
	}

	return c.JSON(fiber.Map{"progress": progress})
}

func (h *ProgressHandler) MarkWatched(c *fiber.Ctx) error {
	viewer, ok := middleware.ViewerFrom(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	lessonIndex, err := parseNonNegativeInt(c.Params("index"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid lesson index"})
	}

	progress, err := h.service.MarkWatched(c.Context(), viewer, strings.TrimSpace(c.Params("id")), lessonIndex)
	if err != nil {
		return mapChatError(c, err)
	}

	return c.JSON(fiber.Map{"progress": progress})
}
