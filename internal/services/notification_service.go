package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/saeid-a/CourseHubBack/internal/live"
	"github.com/saeid-a/CourseHubBack/internal/models"
	"github.com/saeid-a/CourseHubBack/pkg/logger"
)

type notificationStore interface {
	GetByID(ctx context.Context, notificationID string) (*models.Notification, error)
	ListInbox(ctx context.Context, viewer models.Viewer) ([]models.Notification, error)
	ListAll(ctx context.Context) ([]models.Notification, error)
	SetRead(ctx context.Context, notificationID string, read bool) (*models.Notification, error)
	MarkAllRead(ctx context.Context, viewer models.Viewer) ([]models.Notification, error)
}

type NotificationService struct {
	notifications notificationStore
	broker        live.Broker
	retry         RetryPolicy
	bufferSize    int
}

func NewNotificationService(
	notifications notificationStore,
	broker live.Broker,
	retry RetryPolicy,
	bufferSize int,
) *NotificationService {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &NotificationService{
		notifications: notifications,
		broker:        broker,
		retry:         retry,
		bufferSize:    bufferSize,
	}
}

// ListInbox returns the viewer's notifications, newest first. When the
// filtered query is rejected the unfiltered listing is used and the inbox
// predicate applied here.
func (s *NotificationService) ListInbox(ctx context.Context, viewer models.Viewer) ([]models.Notification, error) {
	if viewer.ID == "" {
		return nil, ErrForbidden
	}

	return s.loadInbox(ctx, viewer)
}

func (s *NotificationService) UnreadCount(ctx context.Context, viewer models.Viewer) (int, error) {
	items, err := s.ListInbox(ctx, viewer)
	if err != nil {
		return 0, err
	}
	return countUnread(items), nil
}

func (s *NotificationService) loadInbox(ctx context.Context, viewer models.Viewer) ([]models.Notification, error) {
	items, err := s.notifications.ListInbox(ctx, viewer)
	if err == nil {
		return items, nil
	}
	if !isQueryUnsupported(err) {
		return nil, fmt.Errorf("%w: list inbox: %w", ErrPersistence, err)
	}

	logger.Warn().Err(err).Str("viewer_id", viewer.ID).Msg("inbox query unsupported, filtering client side")
	all, err := s.notifications.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list notifications: %w", ErrPersistence, err)
	}
	return filterInbox(all, viewer), nil
}

// ToggleRead sets read to the opposite of currentRead and returns the state
// the caller should display. Store failures are retried, then absorbed.
func (s *NotificationService) ToggleRead(
	ctx context.Context,
	viewer models.Viewer,
	notificationID string,
	currentRead bool,
) (bool, error) {
	if viewer.ID == "" {
		return currentRead, ErrForbidden
	}
	notificationID = strings.TrimSpace(notificationID)
	if notificationID == "" {
		return currentRead, ErrInvalidInput
	}

	var existing *models.Notification
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		existing, err = s.notifications.GetByID(ctx, notificationID)
		return err
	})
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return currentRead, ErrNotFound
	case err != nil:
		logger.Warn().Err(err).Str("notification_id", notificationID).Msg("load notification for toggle")
		return currentRead, nil
	}
	if !existing.InInbox(viewer) {
		return currentRead, ErrNotFound
	}

	var updated *models.Notification
	err = s.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		updated, err = s.notifications.SetRead(ctx, notificationID, !currentRead)
		return err
	})
	if err != nil {
		logger.Warn().Err(err).Str("notification_id", notificationID).Msg("toggle notification read")
		return currentRead, nil
	}

	s.publishUpdate(ctx, updated)
	return updated.Read, nil
}

// MarkAllRead marks every unread notification in the viewer's inbox as read
// and reports how many changed. Notifications created after the update are
// left for the next call.
func (s *NotificationService) MarkAllRead(ctx context.Context, viewer models.Viewer) int {
	if viewer.ID == "" {
		return 0
	}

	var updated []models.Notification
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		updated, err = s.notifications.MarkAllRead(ctx, viewer)
		return err
	})
	if err != nil {
		logger.Warn().Err(err).Str("viewer_id", viewer.ID).Msg("mark all notifications read")
		return 0
	}

	for i := range updated {
		s.publishUpdate(ctx, &updated[i])
	}
	return len(updated)
}

func (s *NotificationService) publishUpdate(ctx context.Context, notification *models.Notification) {
	if notification == nil {
		return
	}
	if err := live.PublishAll(ctx, s.broker, live.NotificationTopics(notification), live.Event{
		Kind:         live.NotificationUpdated,
		Notification: notification,
	}); err != nil {
		logger.Warn().Err(err).Str("notification_id", notification.ID).Msg("publish notification update")
	}
}

func filterInbox(items []models.Notification, viewer models.Viewer) []models.Notification {
	filtered := make([]models.Notification, 0, len(items))
	for i := range items {
		if items[i].InInbox(viewer) {
			filtered = append(filtered, items[i])
		}
	}
	return filtered
}

func countUnread(items []models.Notification) int {
	unread := 0
	for i := range items {
		if !items[i].Read {
			unread++
		}
	}
	return unread
}
