package models

import "time"

type Course struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type LessonProgress struct {
	UserID         string    `json:"user_id"`
	CourseID       string    `json:"course_id"`
	WatchedLessons []int     `json:"watched_lessons"`
	LastWatched    *int      `json:"last_watched"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type PaginationMeta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}
