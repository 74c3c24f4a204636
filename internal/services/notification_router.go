package services

import (
	"context"

	"github.com/saeid-a/CourseHubBack/internal/config"
	"github.com/saeid-a/CourseHubBack/internal/live"
	"github.com/saeid-a/CourseHubBack/internal/models"
	"github.com/saeid-a/CourseHubBack/internal/repository"
	"github.com/saeid-a/CourseHubBack/pkg/logger"
)

type Recipient struct {
	UserID   string
	UserName string
}

// Targeting decides which participants an instructor message notifies,
// given the course's most recent messages (newest first).
type Targeting interface {
	Name() string
	Window() int
	Recipients(recent []models.CourseMessage, instructorID string) []Recipient
}

// LatestParticipant notifies only the author of the newest participant
// message.
type LatestParticipant struct{}

func (LatestParticipant) Name() string { return config.TargetingLatest }

func (LatestParticipant) Window() int { return 20 }

func (LatestParticipant) Recipients(recent []models.CourseMessage, instructorID string) []Recipient {
	for _, message := range recent {
		if message.IsInstructor || message.SenderID == instructorID {
			continue
		}
		return []Recipient{{UserID: message.SenderID, UserName: message.SenderName}}
	}
	return nil
}

// RecentParticipants notifies every distinct participant with a message in
// the window, newest first.
type RecentParticipants struct{}

func (RecentParticipants) Name() string { return config.TargetingRecent }

func (RecentParticipants) Window() int { return 50 }

func (RecentParticipants) Recipients(recent []models.CourseMessage, instructorID string) []Recipient {
	seen := make(map[string]struct{})
	recipients := make([]Recipient, 0)
	for _, message := range recent {
		if message.IsInstructor || message.SenderID == instructorID {
			continue
		}
		if _, ok := seen[message.SenderID]; ok {
			continue
		}
		seen[message.SenderID] = struct{}{}
		recipients = append(recipients, Recipient{UserID: message.SenderID, UserName: message.SenderName})
	}
	return recipients
}

func TargetingFor(name string) Targeting {
	if name == config.TargetingRecent {
		return RecentParticipants{}
	}
	return LatestParticipant{}
}

type recentMessageReader interface {
	ListRecent(ctx context.Context, courseID string, limit int) ([]models.CourseMessage, error)
}

type notificationWriter interface {
	Create(ctx context.Context, input repository.CreateNotificationInput) (*models.Notification, error)
}

type courseReader interface {
	GetByID(ctx context.Context, courseID string) (*models.Course, error)
}

type NotificationRouter struct {
	messages      recentMessageReader
	notifications notificationWriter
	courses       courseReader
	broker        live.Broker
	targeting     Targeting
}

func NewNotificationRouter(
	messages recentMessageReader,
	notifications notificationWriter,
	courses courseReader,
	broker live.Broker,
	targeting Targeting,
) *NotificationRouter {
	if targeting == nil {
		targeting = LatestParticipant{}
	}
	return &NotificationRouter{
		messages:      messages,
		notifications: notifications,
		courses:       courses,
		broker:        broker,
		targeting:     targeting,
	}
}

// Route creates the notifications for a freshly appended message and
// returns the ones that were stored. Failures are logged, never returned.
func (r *NotificationRouter) Route(
	ctx context.Context,
	sender models.Viewer,
	message *models.CourseMessage,
) []models.Notification {
	if message == nil {
		return nil
	}
	if !sender.IsInstructor {
		return r.notifyInstructor(ctx, message)
	}
	return r.notifyParticipants(ctx, sender, message)
}

func (r *NotificationRouter) notifyInstructor(ctx context.Context, message *models.CourseMessage) []models.Notification {
	notification := r.create(ctx, repository.CreateNotificationInput{
		CourseID:            message.CourseID,
		CourseName:          r.courseName(ctx, message.CourseID),
		UserID:              message.SenderID,
		UserName:            message.SenderName,
		MessageID:           message.ID,
		MessageText:         message.Text,
		Type:                models.NotificationTypeMessage,
		TargetUserID:        nil,
		IsAdminNotification: true,
	})
	if notification == nil {
		return nil
	}
	return []models.Notification{*notification}
}

func (r *NotificationRouter) notifyParticipants(
	ctx context.Context,
	instructor models.Viewer,
	message *models.CourseMessage,
) []models.Notification {
	// The window covers the messages preceding the reply, matching the scan
	// that resolved its target_user_id before insert.
	window := r.targeting.Window()
	recent, err := r.messages.ListRecent(ctx, message.CourseID, window+1)
	if err != nil {
		logger.Warn().Err(err).Str("course_id", message.CourseID).Msg("scan recent messages for notification targets")
		return nil
	}
	recent = precedingMessages(recent, message.ID, window)

	recipients := r.targeting.Recipients(recent, instructor.ID)
	if len(recipients) == 0 {
		return nil
	}

	courseName := r.courseName(ctx, message.CourseID)
	instructorName := instructor.Name
	if instructorName == "" {
		instructorName = defaultInstructorName
	}

	created := make([]models.Notification, 0, len(recipients))
	for _, recipient := range recipients {
		target := recipient.UserID
		notification := r.create(ctx, repository.CreateNotificationInput{
			CourseID:            message.CourseID,
			CourseName:          courseName,
			UserID:              recipient.UserID,
			UserName:            instructorName,
			MessageID:           message.ID,
			MessageText:         message.Text,
			Type:                models.NotificationTypeInstructorReply,
			TargetUserID:        &target,
			IsAdminNotification: false,
		})
		if notification != nil {
			created = append(created, *notification)
		}
	}
	return created
}

// precedingMessages drops the triggering message from a newest-first scan
// and keeps at most size entries.
func precedingMessages(recent []models.CourseMessage, messageID string, size int) []models.CourseMessage {
	out := make([]models.CourseMessage, 0, size)
	for _, message := range recent {
		if message.ID == messageID {
			continue
		}
		if len(out) == size {
			break
		}
		out = append(out, message)
	}
	return out
}

func (r *NotificationRouter) create(ctx context.Context, input repository.CreateNotificationInput) *models.Notification {
	// Single attempt: a retried insert whose first commit went through
	// would store the notification twice.
	notification, err := r.notifications.Create(ctx, input)
	if err != nil {
		logger.Warn().
			Err(err).
			Str("course_id", input.CourseID).
			Str("message_id", input.MessageID).
			Bool("admin", input.IsAdminNotification).
			Msg("create notification")
		return nil
	}

	if err := live.PublishAll(ctx, r.broker, live.NotificationTopics(notification), live.Event{
		Kind:         live.NotificationCreated,
		Notification: notification,
	}); err != nil {
		logger.Warn().Err(err).Str("notification_id", notification.ID).Msg("publish notification event")
	}
	return notification
}

func (r *NotificationRouter) courseName(ctx context.Context, courseID string) string {
	course, err := r.courses.GetByID(ctx, courseID)
	if err != nil || course == nil || course.Title == "" {
		if err != nil {
			logger.Debug().Err(err).Str("course_id", courseID).Msg("course name lookup")
		}
		return defaultCourseName
	}
	return course.Title
}
