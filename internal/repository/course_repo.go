package repository

import (
	"context"

	"github.com/saeid-a/CourseHubBack/internal/models"
)

type CourseRepository struct {
	db DBTX
}

func NewCourseRepository(db DBTX) *CourseRepository {
	return &CourseRepository{db: db}
}

func (r *CourseRepository) GetByID(ctx context.Context, courseID string) (*models.Course, error) {
	var course models.Course
	err := r.db.QueryRow(ctx, `
		SELECT id, title
		FROM courses
		WHERE id = $1
	`, courseID).Scan(&course.ID, &course.Title)
	if err != nil {
		return nil, err
	}
	return &course, nil
}
