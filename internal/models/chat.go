package models

import "time"

type CourseMessage struct {
	ID           string    `json:"id"`
	CourseID     string    `json:"course_id"`
	SenderID     string    `json:"sender_id"`
	SenderName   string    `json:"sender_name"`
	SenderEmail  string    `json:"sender_email"`
	Text         string    `json:"text"`
	IsInstructor bool      `json:"is_instructor"`
	TargetUserID *string   `json:"target_user_id"`
	Timestamp    time.Time `json:"timestamp"`
	Seq          int64     `json:"-"`
}

// VisibleTo reports whether viewer may see the message. Instructors see
// everything; participants see their own messages and instructor messages
// that are either broadcast or addressed to them.
func (m *CourseMessage) VisibleTo(viewer Viewer) bool {
	if viewer.IsInstructor {
		return true
	}
	if m.SenderID == viewer.ID {
		return true
	}
	if !m.IsInstructor {
		return false
	}
	return m.TargetUserID == nil || *m.TargetUserID == viewer.ID
}
