package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/saeid-a/CourseHubBack/internal/models"
)

type CreateMessageInput struct {
	CourseID     string
	SenderID     string
	SenderName   string
	SenderEmail  string
	Text         string
	IsInstructor bool
	TargetUserID *string
}

type MessageRepository struct {
	db DBTX
}

func NewMessageRepository(db DBTX) *MessageRepository {
	return &MessageRepository{db: db}
}

const messageColumns = `id, seq, course_id, sender_id, sender_name, sender_email, text, is_instructor, target_user_id, created_at`

func scanMessage(row rowScanner) (*models.CourseMessage, error) {
	var message models.CourseMessage
	if err := row.Scan(
		&message.ID,
		&message.Seq,
		&message.CourseID,
		&message.SenderID,
		&message.SenderName,
		&message.SenderEmail,
		&message.Text,
		&message.IsInstructor,
		&message.TargetUserID,
		&message.Timestamp,
	); err != nil {
		return nil, err
	}
	return &message, nil
}

func (r *MessageRepository) Create(ctx context.Context, input CreateMessageInput) (*models.CourseMessage, error) {
	query := `
		INSERT INTO course_messages (course_id, sender_id, sender_name, sender_email, text, is_instructor, target_user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + messageColumns

	return scanMessage(r.db.QueryRow(
		ctx,
		query,
		input.CourseID,
		input.SenderID,
		input.SenderName,
		input.SenderEmail,
		input.Text,
		input.IsInstructor,
		input.TargetUserID,
	))
}

// ListByCourse returns the full log in insertion order.
func (r *MessageRepository) ListByCourse(ctx context.Context, courseID string) ([]models.CourseMessage, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+messageColumns+`
		FROM course_messages
		WHERE course_id = $1
		ORDER BY seq ASC
	`, courseID)
	if err != nil {
		return nil, err
	}
	return collectMessages(rows)
}

// ListRecent returns at most limit messages, newest first.
func (r *MessageRepository) ListRecent(ctx context.Context, courseID string, limit int) ([]models.CourseMessage, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+messageColumns+`
		FROM course_messages
		WHERE course_id = $1
		ORDER BY seq DESC
		LIMIT $2
	`, courseID, limit)
	if err != nil {
		return nil, err
	}
	return collectMessages(rows)
}

func collectMessages(rows pgx.Rows) ([]models.CourseMessage, error) {
	defer rows.Close()

	messages := make([]models.CourseMessage, 0)
	for rows.Next() {
		message, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *message)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}
