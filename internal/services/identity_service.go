package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/saeid-a/CourseHubBack/internal/models"
)

const (
	defaultUserName       = "User"
	defaultInstructorName = "Instructor"
	defaultCourseName     = "Course"
)

type userReader interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// Session is what the bearer token asserts about the caller.
type Session struct {
	UserID string
	Email  string
	Name   string
}

type IdentityService struct {
	users      userReader
	adminEmail string
}

func NewIdentityService(users userReader, adminEmail string) *IdentityService {
	return &IdentityService{
		users:      users,
		adminEmail: strings.ToLower(strings.TrimSpace(adminEmail)),
	}
}

// Resolve builds the Viewer for a session. The persisted is_admin flag wins;
// when the profile has none, or no profile exists yet, the configured
// administrator address decides.
func (s *IdentityService) Resolve(ctx context.Context, session Session) (models.Viewer, error) {
	userID := strings.TrimSpace(session.UserID)
	if userID == "" {
		return models.Viewer{}, ErrForbidden
	}

	viewer := models.Viewer{
		ID:    userID,
		Email: strings.TrimSpace(session.Email),
		Name:  strings.TrimSpace(session.Name),
	}

	user, err := s.users.GetByID(ctx, userID)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		viewer.IsInstructor = s.isAdminEmail(viewer.Email)
	case err != nil:
		return models.Viewer{}, fmt.Errorf("%w: load profile: %w", ErrPersistence, err)
	default:
		if user.Email != "" {
			viewer.Email = user.Email
		}
		viewer.Name = user.DisplayName(viewer.Name)
		if user.IsAdmin != nil {
			viewer.IsInstructor = *user.IsAdmin
		} else {
			viewer.IsInstructor = s.isAdminEmail(viewer.Email)
		}
	}

	if viewer.Name == "" {
		viewer.Name = defaultUserName
	}
	return viewer, nil
}

func (s *IdentityService) isAdminEmail(email string) bool {
	return s.adminEmail != "" && strings.EqualFold(strings.TrimSpace(email), s.adminEmail)
}
