package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/saeid-a/CourseHubBack/internal/live"
	"github.com/saeid-a/CourseHubBack/internal/models"
	"github.com/saeid-a/CourseHubBack/internal/repository"
)

var testEpoch = time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)

var errStoreDown = errors.New("store unavailable")

type fakeMessageStore struct {
	mu           sync.Mutex
	messages     []models.CourseMessage
	seq          int64
	createErr    error
	listErr      error
	recentErr    error
	recentLimits []int
}

func (s *fakeMessageStore) Create(_ context.Context, input repository.CreateMessageInput) (*models.CourseMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.createErr != nil {
		return nil, s.createErr
	}
	s.seq++
	message := models.CourseMessage{
		ID:           fmt.Sprintf("m%d", s.seq),
		Seq:          s.seq,
		CourseID:     input.CourseID,
		SenderID:     input.SenderID,
		SenderName:   input.SenderName,
		SenderEmail:  input.SenderEmail,
		Text:         input.Text,
		IsInstructor: input.IsInstructor,
		TargetUserID: input.TargetUserID,
		Timestamp:    testEpoch.Add(time.Duration(s.seq) * time.Second),
	}
	s.messages = append(s.messages, message)
	return &message, nil
}

func (s *fakeMessageStore) ListByCourse(_ context.Context, courseID string) ([]models.CourseMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]models.CourseMessage, 0)
	for _, message := range s.messages {
		if message.CourseID == courseID {
			out = append(out, message)
		}
	}
	return out, nil
}

func (s *fakeMessageStore) ListRecent(_ context.Context, courseID string, limit int) ([]models.CourseMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.recentLimits = append(s.recentLimits, limit)
	if s.recentErr != nil {
		return nil, s.recentErr
	}
	out := make([]models.CourseMessage, 0)
	for i := len(s.messages) - 1; i >= 0 && len(out) < limit; i-- {
		if s.messages[i].CourseID == courseID {
			out = append(out, s.messages[i])
		}
	}
	return out, nil
}

func (s *fakeMessageStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

type fakeNotificationStore struct {
	mu            sync.Mutex
	notifications []models.Notification
	seq           int
	createCalls   int
	createErr     error
	inboxErr      error
	setReadFails  int
	setReadCalls  int
	markAllErr    error
	getErr        error
}

func (s *fakeNotificationStore) Create(_ context.Context, input repository.CreateNotificationInput) (*models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.createCalls++
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.seq++
	notification := models.Notification{
		ID:                  fmt.Sprintf("n%d", s.seq),
		CourseID:            input.CourseID,
		CourseName:          input.CourseName,
		UserID:              input.UserID,
		UserName:            input.UserName,
		MessageID:           input.MessageID,
		MessageText:         input.MessageText,
		Type:                input.Type,
		Timestamp:           testEpoch.Add(time.Duration(s.seq) * time.Second),
		TargetUserID:        input.TargetUserID,
		IsAdminNotification: input.IsAdminNotification,
	}
	s.notifications = append(s.notifications, notification)
	return &notification, nil
}

func (s *fakeNotificationStore) GetByID(_ context.Context, notificationID string) (*models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.getErr != nil {
		return nil, s.getErr
	}
	for i := range s.notifications {
		if s.notifications[i].ID == notificationID {
			notification := s.notifications[i]
			return &notification, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *fakeNotificationStore) ListInbox(_ context.Context, viewer models.Viewer) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inboxErr != nil {
		return nil, s.inboxErr
	}
	return newestFirst(filterInbox(s.notifications, viewer)), nil
}

func (s *fakeNotificationStore) ListAll(_ context.Context) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return newestFirst(s.notifications), nil
}

func (s *fakeNotificationStore) SetRead(_ context.Context, notificationID string, read bool) (*models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.setReadCalls++
	if s.setReadFails > 0 {
		s.setReadFails--
		return nil, errStoreDown
	}
	for i := range s.notifications {
		if s.notifications[i].ID == notificationID {
			s.notifications[i].Read = read
			notification := s.notifications[i]
			return &notification, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *fakeNotificationStore) MarkAllRead(_ context.Context, viewer models.Viewer) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.markAllErr != nil {
		return nil, s.markAllErr
	}
	updated := make([]models.Notification, 0)
	for i := range s.notifications {
		if !s.notifications[i].Read && s.notifications[i].InInbox(viewer) {
			s.notifications[i].Read = true
			updated = append(updated, s.notifications[i])
		}
	}
	return updated, nil
}

func (s *fakeNotificationStore) all() []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Notification, len(s.notifications))
	copy(out, s.notifications)
	return out
}

func newestFirst(items []models.Notification) []models.Notification {
	out := make([]models.Notification, 0, len(items))
	for i := len(items) - 1; i >= 0; i-- {
		out = append(out, items[i])
	}
	return out
}

type fakeCourses struct {
	titles map[string]string
	err    error
}

func (c *fakeCourses) GetByID(_ context.Context, courseID string) (*models.Course, error) {
	if c.err != nil {
		return nil, c.err
	}
	title, ok := c.titles[courseID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &models.Course{ID: courseID, Title: title}, nil
}

var fastRetry = RetryPolicy{Attempts: 3, Delay: time.Millisecond}

type chatFixture struct {
	hub           *live.Hub
	messages      *fakeMessageStore
	notifications *fakeNotificationStore
	courses       *fakeCourses
	router        *NotificationRouter
	chat          *ChatService
	inbox         *NotificationService
}

func newChatFixture(t *testing.T, targeting Targeting) *chatFixture {
	t.Helper()

	hub := live.NewHub(16)
	go hub.Run()
	t.Cleanup(func() { _ = hub.Close() })

	fixture := &chatFixture{
		hub:           hub,
		messages:      &fakeMessageStore{},
		notifications: &fakeNotificationStore{},
		courses:       &fakeCourses{titles: map[string]string{"C101": "Intro"}},
	}
	fixture.router = NewNotificationRouter(fixture.messages, fixture.notifications, fixture.courses, hub, targeting)
	fixture.chat = NewChatService(fixture.messages, hub, fixture.router, 16)
	fixture.inbox = NewNotificationService(fixture.notifications, hub, fastRetry, 16)
	return fixture
}

var (
	participantA = models.Viewer{ID: "A", Name: "Alice", Email: "a@example.com"}
	participantB = models.Viewer{ID: "B", Name: "Bruno", Email: "b@example.com"}
	instructor   = models.Viewer{ID: "I", Name: "Prof", Email: "prof@example.com", IsInstructor: true}
)

func strPtr(value string) *string {
	return &value
}
