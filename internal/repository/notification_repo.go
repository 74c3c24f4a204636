package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/saeid-a/CourseHubBack/internal/models"
)

type CreateNotificationInput struct {
	CourseID            string
	CourseName          string
	UserID              string
	UserName            string
	MessageID           string
	MessageText         string
	Type                models.NotificationType
	TargetUserID        *string
	IsAdminNotification bool
}

type NotificationRepository struct {
	db DBTX
}

func NewNotificationRepository(db DBTX) *NotificationRepository {
	return &NotificationRepository{db: db}
}

const notificationColumns = `id, course_id, course_name, user_id, user_name, message_id, message_text, type, read, created_at, target_user_id, is_admin_notification`

func scanNotification(row rowScanner) (*models.Notification, error) {
	var notification models.Notification
	var notificationType string
	if err := row.Scan(
		&notification.ID,
		&notification.CourseID,
		&notification.CourseName,
		&notification.UserID,
		&notification.UserName,
		&notification.MessageID,
		&notification.MessageText,
		&notificationType,
		&notification.Read,
		&notification.Timestamp,
		&notification.TargetUserID,
		&notification.IsAdminNotification,
	); err != nil {
		return nil, err
	}
	notification.Type = models.NotificationType(notificationType)
	return &notification, nil
}

func (r *NotificationRepository) Create(ctx context.Context, input CreateNotificationInput) (*models.Notification, error) {
	query := `
		INSERT INTO notifications (
			course_id, course_name, user_id, user_name, message_id, message_text,
			type, read, target_user_id, is_admin_notification
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, $8, $9)
		RETURNING ` + notificationColumns

	return scanNotification(r.db.QueryRow(
		ctx,
		query,
		input.CourseID,
		input.CourseName,
		input.UserID,
		input.UserName,
		input.MessageID,
		input.MessageText,
		string(input.Type),
		input.TargetUserID,
		input.IsAdminNotification,
	))
}

func (r *NotificationRepository) GetByID(ctx context.Context, notificationID string) (*models.Notification, error) {
	if _, err := uuid.Parse(notificationID); err != nil {
		return nil, pgx.ErrNoRows
	}
	return scanNotification(r.db.QueryRow(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE id = $1
	`, notificationID))
}

// ListInbox is the filtered, ordered inbox query. It relies on the inbox
// indexes; callers fall back to ListAll when the backend rejects it.
func (r *NotificationRepository) ListInbox(ctx context.Context, viewer models.Viewer) ([]models.Notification, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if viewer.IsInstructor {
		rows, err = r.db.Query(ctx, `
			SELECT `+notificationColumns+`
			FROM notifications
			WHERE is_admin_notification = TRUE
			ORDER BY created_at DESC, id DESC
		`)
	} else {
		rows, err = r.db.Query(ctx, `
			SELECT `+notificationColumns+`
			FROM notifications
			WHERE target_user_id = $1
			ORDER BY created_at DESC, id DESC
		`, viewer.ID)
	}
	if err != nil {
		return nil, err
	}
	return collectNotifications(rows)
}

// ListAll is the ordered-only query used by the degraded inbox path.
func (r *NotificationRepository) ListAll(ctx context.Context) ([]models.Notification, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, err
	}
	return collectNotifications(rows)
}

func (r *NotificationRepository) SetRead(ctx context.Context, notificationID string, read bool) (*models.Notification, error) {
	if _, err := uuid.Parse(notificationID); err != nil {
		return nil, pgx.ErrNoRows
	}
	return scanNotification(r.db.QueryRow(ctx, `
		UPDATE notifications
		SET read = $2
		WHERE id = $1
		RETURNING `+notificationColumns,
		notificationID, read))
}

// MarkAllRead flips every unread notification in the viewer's inbox and
// returns the rows it changed.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, viewer models.Viewer) ([]models.Notification, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if viewer.IsInstructor {
		rows, err = r.db.Query(ctx, `
			UPDATE notifications
			SET read = TRUE
			WHERE read = FALSE AND is_admin_notification = TRUE
			RETURNING `+notificationColumns)
	} else {
		rows, err = r.db.Query(ctx, `
			UPDATE notifications
			SET read = TRUE
			WHERE read = FALSE AND target_user_id = $1
			RETURNING `+notificationColumns,
			viewer.ID)
	}
	if err != nil {
		return nil, err
	}
	return collectNotifications(rows)
}

func collectNotifications(rows pgx.Rows) ([]models.Notification, error) {
	defer rows.Close()

	notifications := make([]models.Notification, 0)
	for rows.Next() {
		notification, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, *notification)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return notifications, nil
}
