package live

import (
	"fmt"

	"github.com/saeid-a/CourseHubBack/internal/models"
)

type EventKind string

const (
	MessageCreated      EventKind = "message.created"
	NotificationCreated EventKind = "notification.created"
	NotificationUpdated EventKind = "notification.updated"
)

type Event struct {
	Kind         EventKind             `json:"kind"`
	Message      *models.CourseMessage `json:"message,omitempty"`
	Notification *models.Notification  `json:"notification,omitempty"`
}

// AllNotificationsTopic carries every notification event; the degraded
// inbox path subscribes here and filters locally.
const AllNotificationsTopic = "notifications"

func CourseTopic(courseID string) string {
	return fmt.Sprintf("course:%s:messages", courseID)
}

func AdminInboxTopic() string {
	return "notifications:admin"
}

func UserInboxTopic(userID string) string {
	return fmt.Sprintf("notifications:user:%s", userID)
}

// InboxTopic returns the filtered topic for the viewer's inbox predicate.
func InboxTopic(viewer models.Viewer) string {
	if viewer.IsInstructor {
		return AdminInboxTopic()
	}
	return UserInboxTopic(viewer.ID)
}

// NotificationTopics lists every topic a notification event is published on.
func NotificationTopics(notification *models.Notification) []string {
	topics := []string{AllNotificationsTopic}
	if notification.IsAdminNotification {
		topics = append(topics, AdminInboxTopic())
	}
	if notification.TargetUserID != nil {
		topics = append(topics, UserInboxTopic(*notification.TargetUserID))
	}
	return topics
}
