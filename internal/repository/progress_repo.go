package repository

import (
	"context"

	"github.com/saeid-a/CourseHubBack/internal/models"
)

type ProgressRepository struct {
	db DBTX
}

func NewProgressRepository(db DBTX) *ProgressRepository {
	return &ProgressRepository{db: db}
}

func (r *ProgressRepository) Get(ctx context.Context, userID, courseID string) (*models.LessonProgress, error) {
	var progress models.LessonProgress
	var watched []int32
	var last *int32
	err := r.db.QueryRow(ctx, `
		SELECT user_id, course_id, watched_lessons, last_watched, created_at, updated_at
		FROM lesson_progress
		WHERE user_id = $1 AND course_id = $2
	`, userID, courseID).Scan(
		&progress.UserID,
		&progress.CourseID,
		&watched,
		&last,
		&progress.CreatedAt,
		&progress.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	fillProgress(&progress, watched, last)
	return &progress, nil
}

// MarkWatched adds lessonIndex to the watched set and records it as the last
// watched lesson. The set never holds duplicates.
func (r *ProgressRepository) MarkWatched(ctx context.Context, userID, courseID string, lessonIndex int) (*models.LessonProgress, error) {
	var progress models.LessonProgress
	var watched []int32
	var last *int32
	err := r.db.QueryRow(ctx, `
		INSERT INTO lesson_progress (user_id, course_id, watched_lessons, last_watched)
		VALUES ($1, $2, ARRAY[$3::int], $3)
		ON CONFLICT (user_id, course_id) DO UPDATE
		SET watched_lessons = CASE
				WHEN $3 = ANY(lesson_progress.watched_lessons) THEN lesson_progress.watched_lessons
				ELSE array_append(lesson_progress.watched_lessons, $3)
			END,
			last_watched = $3,
			updated_at = NOW()
		RETURNING user_id, course_id, watched_lessons, last_watched, created_at, updated_at
	`, userID, courseID, lessonIndex).Scan(
		&progress.UserID,
		&progress.CourseID,
		&watched,
		&last,
		&progress.CreatedAt,
		&progress.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	fillProgress(&progress, watched, last)
	return &progress, nil
}

func fillProgress(progress *models.LessonProgress, watched []int32, last *int32) {
	progress.WatchedLessons = make([]int, 0, len(watched))
	for _, index := range watched {
		progress.WatchedLessons = append(progress.WatchedLessons, int(index))
	}
	if last != nil {
		value := int(*last)
		progress.LastWatched = &value
	}
}
