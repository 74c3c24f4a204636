package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/saeid-a/CourseHubBack/internal/middleware"
)

// AuthHandler exposes the resolved identity. Sign-in itself happens at the
// external auth provider that issues the bearer token.
type AuthHandler struct{}

func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	viewer, ok := middleware.ViewerFrom(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	return c.JSON(fiber.Map{
		"user": fiber.Map{
			"id":    viewer.ID,
			"email": viewer.Email,
			"name":  viewer.Name,
		},
		"is_admin": viewer.IsInstructor,
	})
}
