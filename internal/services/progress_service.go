package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/saeid-a/CourseHubBack/internal/models"
)

type progressStore interface {
	Get(ctx context.Context, userID, courseID string) (*models.LessonProgress, error)
	MarkWatched(ctx context.Context, userID, courseID string, lessonIndex int) (*models.LessonProgress, error)
}

type ProgressService struct {
	progress progressStore
}

func NewProgressService(progress progressStore) *ProgressService {
	return &ProgressService{progress: progress}
}

func (s *ProgressService) MarkWatched(
	ctx context.Context,
	viewer models.Viewer,
	courseID string,
	lessonIndex int,
) (*models.LessonProgress, error) {
	if viewer.ID == "" {
		return nil, ErrForbidden
	}
	courseID = strings.TrimSpace(courseID)
	if courseID == "" || lessonIndex < 0 {
		return nil, ErrInvalidInput
	}

	progress, err := s.progress.MarkWatched(ctx, viewer.ID, courseID, lessonIndex)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("%w: mark lesson watched: %w", ErrPersistence, err)
	}
	return progress, nil
}

// GetCourseProgress returns the viewer's progress; a course never opened
// yields an empty record rather than an error.
func (s *ProgressService) GetCourseProgress(
	ctx context.Context,
	viewer models.Viewer,
	courseID string,
) (*models.LessonProgress, error) {
	if viewer.ID == "" {
		return nil, ErrForbidden
	}
	courseID = strings.TrimSpace(courseID)
	if courseID == "" {
		return nil, ErrInvalidInput
	}

	progress, err := s.progress.Get(ctx, viewer.ID, courseID)
	if errors.Is(err, pgx.ErrNoRows) {
		return &models.LessonProgress{
			UserID:         viewer.ID,
			CourseID:       courseID,
			WatchedLessons: []int{},
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load progress: %w", ErrPersistence, err)
	}
	return progress, nil
}

func (s *ProgressService) IsLessonWatched(
	ctx context.Context,
	viewer models.Viewer,
	courseID string,
	lessonIndex int,
) (bool, error) {
	progress, err := s.GetCourseProgress(ctx, viewer, courseID)
	if err != nil {
		return false, err
	}
	for _, index := range progress.WatchedLessons {
		if index == lessonIndex {
			return true, nil
		}
	}
	return false, nil
}
