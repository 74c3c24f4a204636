package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/saeid-a/CourseHubBack/internal/models"
	"github.com/saeid-a/CourseHubBack/internal/services"
	"github.com/saeid-a/CourseHubBack/pkg/logger"
	"github.com/saeid-a/CourseHubBack/pkg/utils"
)

const ViewerKey = "viewer"

type ViewerResolver interface {
	Resolve(ctx context.Context, session services.Session) (models.Viewer, error)
}

func AuthRequired(secret string, resolver ViewerResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing authorization header",
			})
		}

		tokenString, ok := BearerToken(authHeader)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid authorization header format",
			})
		}

		return Authenticate(c, tokenString, secret, resolver)
	}
}

// Authenticate validates tokenString, resolves the caller and stores the
// viewer in c.Locals before continuing the chain.
func Authenticate(c *fiber.Ctx, tokenString, secret string, resolver ViewerResolver) error {
	claims, err := utils.ValidateToken(tokenString, secret)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid or expired token",
		})
	}

	viewer, err := resolver.Resolve(c.Context(), services.Session{
		UserID: claims.UserID,
		Email:  claims.Email,
		Name:   claims.Name,
	})
	if err != nil {
		if errors.Is(err, services.ErrForbidden) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}
		logger.Error().Err(err).Str("user_id", claims.UserID).Msg("resolve viewer")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Unable to load profile",
		})
	}

	c.Locals(ViewerKey, viewer)
	c.Locals("user_id", viewer.ID)
	return c.Next()
}

func BearerToken(header string) (string, bool) {
	parts := strings.Split(strings.TrimSpace(header), " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// ViewerFrom returns the viewer stored by AuthRequired.
func ViewerFrom(c *fiber.Ctx) (models.Viewer, bool) {
	viewer, ok := c.Locals(ViewerKey).(models.Viewer)
	if !ok || viewer.ID == "" {
		return models.Viewer{}, false
	}
	return viewer, true
}
