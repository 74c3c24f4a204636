package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/saeid-a/CourseHubBack/internal/live"
	"github.com/saeid-a/CourseHubBack/internal/models"
	"github.com/saeid-a/CourseHubBack/internal/repository"
	"github.com/saeid-a/CourseHubBack/pkg/logger"
)

// replyTargetWindow is how far back an instructor message looks for the
// participant it answers.
const replyTargetWindow = 20

type messageStore interface {
	Create(ctx context.Context, input repository.CreateMessageInput) (*models.CourseMessage, error)
	ListByCourse(ctx context.Context, courseID string) ([]models.CourseMessage, error)
	ListRecent(ctx context.Context, courseID string, limit int) ([]models.CourseMessage, error)
}

type messageNotifier interface {
	Route(ctx context.Context, sender models.Viewer, message *models.CourseMessage) []models.Notification
}

type ChatService struct {
	messages   messageStore
	broker     live.Broker
	notifier   messageNotifier
	bufferSize int
}

type ChatDelivery struct {
	Message       *models.CourseMessage
	Notifications []models.Notification
}

func NewChatService(messages messageStore, broker live.Broker, notifier messageNotifier, bufferSize int) *ChatService {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &ChatService{
		messages:   messages,
		broker:     broker,
		notifier:   notifier,
		bufferSize: bufferSize,
	}
}

func (s *ChatService) AppendMessage(
	ctx context.Context,
	sender models.Viewer,
	courseID string,
	text string,
) (*ChatDelivery, error) {
	if sender.ID == "" {
		return nil, ErrForbidden
	}
	courseID = strings.TrimSpace(courseID)
	if courseID == "" {
		return nil, ErrInvalidInput
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, ErrValidation
	}

	var targetUserID *string
	if sender.IsInstructor {
		targetUserID = s.resolveReplyTarget(ctx, courseID, sender.ID)
	}

	message, err := s.messages.Create(ctx, repository.CreateMessageInput{
		CourseID:     courseID,
		SenderID:     sender.ID,
		SenderName:   senderDisplayName(sender),
		SenderEmail:  sender.Email,
		Text:         trimmed,
		IsInstructor: sender.IsInstructor,
		TargetUserID: targetUserID,
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("%w: append message: %w", ErrPersistence, err)
	}

	// The message is committed; everything below is best effort and must
	// not depend on the caller staying connected.
	secondary := context.WithoutCancel(ctx)

	if err := s.broker.Publish(secondary, live.CourseTopic(courseID), live.Event{
		Kind:    live.MessageCreated,
		Message: message,
	}); err != nil {
		logger.Warn().Err(err).Str("course_id", courseID).Str("message_id", message.ID).Msg("publish message event")
	}

	delivery := &ChatDelivery{Message: message}
	if s.notifier != nil {
		delivery.Notifications = s.notifier.Route(secondary, sender, message)
	}
	return delivery, nil
}

// resolveReplyTarget picks the author of the newest participant message in
// the recency window. Lookup failures leave the reply untargeted.
func (s *ChatService) resolveReplyTarget(ctx context.Context, courseID, instructorID string) *string {
	recent, err := s.messages.ListRecent(ctx, courseID, replyTargetWindow)
	if err != nil {
		logger.Warn().Err(err).Str("course_id", courseID).Msg("resolve reply target")
		return nil
	}

	for _, message := range recent {
		if !message.IsInstructor && message.SenderID != instructorID {
			target := message.SenderID
			return &target
		}
	}
	return nil
}

// ListMessages returns the course history visible to viewer, oldest first.
func (s *ChatService) ListMessages(ctx context.Context, viewer models.Viewer, courseID string) ([]models.CourseMessage, error) {
	if viewer.ID == "" {
		return nil, ErrForbidden
	}
	if strings.TrimSpace(courseID) == "" {
		return nil, ErrInvalidInput
	}

	history, err := s.messages.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("%w: list messages: %w", ErrPersistence, err)
	}

	visible := make([]models.CourseMessage, 0, len(history))
	for i := range history {
		if history[i].VisibleTo(viewer) {
			visible = append(visible, history[i])
		}
	}
	return visible, nil
}

type MessageSubscription struct {
	C <-chan models.CourseMessage

	once   sync.Once
	cancel context.CancelFunc
	done   chan struct{}
}

// Cancel stops delivery and waits for the forwarding goroutine to exit.
func (s *MessageSubscription) Cancel() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
}

// SubscribeMessages replays the visible history of a course and then keeps
// delivering newly appended messages. The live subscription is opened before
// the history is read, so nothing appended in between is lost; messages seen
// in both are delivered once.
func (s *ChatService) SubscribeMessages(
	ctx context.Context,
	viewer models.Viewer,
	courseID string,
) (*MessageSubscription, error) {
	if viewer.ID == "" {
		return nil, ErrForbidden
	}
	if strings.TrimSpace(courseID) == "" {
		return nil, ErrInvalidInput
	}

	sub, err := s.broker.Subscribe(ctx, live.CourseTopic(courseID))
	if err != nil {
		return nil, fmt.Errorf("%w: subscribe messages: %w", ErrPersistence, err)
	}

	history, err := s.messages.ListByCourse(ctx, courseID)
	if err != nil {
		sub.Cancel()
		return nil, fmt.Errorf("%w: replay messages: %w", ErrPersistence, err)
	}

	streamCtx, cancel := context.WithCancel(ctx)
	out := make(chan models.CourseMessage, s.bufferSize)
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer close(out)
		defer sub.Cancel()

		replayed := make(map[string]struct{}, len(history))
		for i := range history {
			replayed[history[i].ID] = struct{}{}
			if !history[i].VisibleTo(viewer) {
				continue
			}
			select {
			case out <- history[i]:
			case <-streamCtx.Done():
				return
			}
		}

		for {
			select {
			case <-streamCtx.Done():
				return
			case event, ok := <-sub.C:
				if !ok {
					return
				}
				if event.Kind != live.MessageCreated || event.Message == nil || event.Message.CourseID != courseID {
					continue
				}
				if _, dup := replayed[event.Message.ID]; dup {
					continue
				}
				if !event.Message.VisibleTo(viewer) {
					continue
				}
				select {
				case out <- *event.Message:
				case <-streamCtx.Done():
					return
				}
			}
		}
	}()

	return &MessageSubscription{C: out, cancel: cancel, done: done}, nil
}

func senderDisplayName(sender models.Viewer) string {
	if name := strings.TrimSpace(sender.Name); name != "" {
		return name
	}
	if sender.IsInstructor {
		return defaultInstructorName
	}
	return defaultUserName
}

func FormatChatTimestamp(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339)
}
