package models

import "time"

type NotificationType string

const (
	NotificationTypeMessage         NotificationType = "message"
	NotificationTypeInstructorReply NotificationType = "instructor_reply"
)

type Notification struct {
	ID                  string           `json:"id"`
	CourseID            string           `json:"course_id"`
	CourseName          string           `json:"course_name"`
	UserID              string           `json:"user_id"`
	UserName            string           `json:"user_name"`
	MessageID           string           `json:"message_id"`
	MessageText         string           `json:"message_text"`
	Type                NotificationType `json:"type"`
	Read                bool             `json:"read"`
	Timestamp           time.Time        `json:"timestamp"`
	TargetUserID        *string          `json:"target_user_id"`
	IsAdminNotification bool             `json:"is_admin_notification"`
}

// InInbox is the inbox predicate: instructors own admin notifications,
// participants own the notifications addressed to them.
func (n *Notification) InInbox(viewer Viewer) bool {
	if viewer.IsInstructor {
		return n.IsAdminNotification
	}
	return n.TargetUserID != nil && *n.TargetUserID == viewer.ID
}
