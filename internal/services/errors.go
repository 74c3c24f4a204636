package services

import (
	"errors"

	"github.com/saeid-a/CourseHubBack/internal/repository"
)

var (
	ErrForbidden        = errors.New("forbidden")
	ErrInvalidInput     = errors.New("invalid input")
	ErrValidation       = errors.New("message text is required")
	ErrPersistence      = errors.New("persistence failure")
	ErrQueryUnsupported = errors.New("query not supported by store")
	ErrNotFound         = errors.New("not found")
	ErrCourseNotFound   = errors.New("course not found")
)

func isQueryUnsupported(err error) bool {
	return errors.Is(err, ErrQueryUnsupported) || repository.IsQueryUnsupported(err)
}
