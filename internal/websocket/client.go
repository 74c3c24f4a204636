package chatws

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/saeid-a/CourseHubBack/internal/live"
	"github.com/saeid-a/CourseHubBack/internal/models"
	"github.com/saeid-a/CourseHubBack/internal/services"
	"github.com/saeid-a/CourseHubBack/pkg/logger"
	"golang.org/x/time/rate"
)

const (
	sendBufferSize = 64
	writeTimeout   = 10 * time.Second

	// Chat sends per connection: 5 per second with bursts of 10.
	messageRate  = rate.Limit(5)
	messageBurst = 10

	channelCourse = "course"
	channelInbox  = "inbox"
)

type chatService interface {
	AppendMessage(ctx context.Context, sender models.Viewer, courseID, text string) (*services.ChatDelivery, error)
	SubscribeMessages(ctx context.Context, viewer models.Viewer, courseID string) (*services.MessageSubscription, error)
}

type inboxService interface {
	OpenInbox(ctx context.Context, viewer models.Viewer) (*services.InboxView, error)
	ToggleRead(ctx context.Context, viewer models.Viewer, notificationID string, currentRead bool) (bool, error)
	MarkAllRead(ctx context.Context, viewer models.Viewer) int
}

// Client is one websocket connection. Each course subscription and the
// inbox view it opens are owned by the client and cancelled with it.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	viewer models.Viewer
	chat   chatService
	inbox  inboxService
	send   chan []byte

	limiter *rate.Limiter

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	courses    map[string]*services.MessageSubscription
	inboxView  *services.InboxView
	forwarders sync.WaitGroup
}

type inboundFrame struct {
	Type           string `json:"type"`
	RequestID      string `json:"request_id,omitempty"`
	Channel        string `json:"channel,omitempty"`
	CourseID       string `json:"course_id,omitempty"`
	Text           string `json:"text,omitempty"`
	NotificationID string `json:"notification_id,omitempty"`
	Read           bool   `json:"read,omitempty"`
}

type outboundFrame struct {
	Type          string                `json:"type"`
	RequestID     string                `json:"request_id,omitempty"`
	Channel       string                `json:"channel,omitempty"`
	CourseID      string                `json:"course_id,omitempty"`
	Message       *models.CourseMessage `json:"message,omitempty"`
	Event         live.EventKind        `json:"event,omitempty"`
	Notification  *models.Notification  `json:"notification,omitempty"`
	Notifications []models.Notification `json:"notifications,omitempty"`
	UnreadCount   *int                  `json:"unread_count,omitempty"`
	Degraded      bool                  `json:"degraded,omitempty"`
	Read          *bool                 `json:"read,omitempty"`
	Updated       *int                  `json:"updated,omitempty"`
	Error         string                `json:"error,omitempty"`
	Timestamp     string                `json:"timestamp"`
}

func NewClient(hub *Hub, conn *websocket.Conn, viewer models.Viewer, chat chatService, inbox inboxService) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		hub:     hub,
		conn:    conn,
		viewer:  viewer,
		chat:    chat,
		inbox:   inbox,
		send:    make(chan []byte, sendBufferSize),
		limiter: rate.NewLimiter(messageRate, messageBurst),
		ctx:     ctx,
		cancel:  cancel,
		courses: make(map[string]*services.MessageSubscription),
	}
}

func (c *Client) ReadPump() {
	defer func() {
		c.close()
		c.release()
		if c.hub != nil {
			c.hub.Unregister(c)
		}
	}()

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var frame inboundFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			c.writeError("", "invalid message payload")
			continue
		}
		c.handle(frame)
	}
}

func (c *Client) WritePump() {
	defer c.close()

	for {
		select {
		case <-c.ctx.Done():
			return
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}
	}
}

func (c *Client) handle(frame inboundFrame) {
	switch frame.Type {
	case "subscribe":
		c.subscribe(frame)
	case "unsubscribe":
		c.unsubscribe(frame)
	case "message":
		c.sendMessage(frame)
	case "toggle_read":
		c.toggleRead(frame)
	case "mark_all_read":
		updated := c.inbox.MarkAllRead(c.ctx, c.viewer)
		c.write(outboundFrame{Type: "ack", RequestID: frame.RequestID, Updated: &updated})
	default:
		c.writeError(frame.RequestID, "unsupported message type")
	}
}

func (c *Client) subscribe(frame inboundFrame) {
	switch frame.Channel {
	case channelCourse:
		courseID := strings.TrimSpace(frame.CourseID)
		if courseID == "" {
			c.writeError(frame.RequestID, "course_id is required")
			return
		}

		c.mu.Lock()
		_, exists := c.courses[courseID]
		c.mu.Unlock()
		if exists {
			c.write(outboundFrame{Type: "ack", RequestID: frame.RequestID, Channel: channelCourse, CourseID: courseID})
			return
		}

		sub, err := c.chat.SubscribeMessages(c.ctx, c.viewer, courseID)
		if err != nil {
			c.writeServiceError(frame.RequestID, err)
			return
		}

		c.mu.Lock()
		if _, raced := c.courses[courseID]; raced {
			c.mu.Unlock()
			sub.Cancel()
			return
		}
		c.courses[courseID] = sub
		c.mu.Unlock()

		c.write(outboundFrame{Type: "ack", RequestID: frame.RequestID, Channel: channelCourse, CourseID: courseID})
		c.forward(func() {
			for message := range sub.C {
				if !c.write(outboundFrame{Type: "message", CourseID: courseID, Message: &message}) {
					return
				}
			}
			c.dropCourse(courseID, sub)
		})

	case channelInbox:
		c.mu.Lock()
		open := c.inboxView != nil
		c.mu.Unlock()
		if open {
			c.write(outboundFrame{Type: "ack", RequestID: frame.RequestID, Channel: channelInbox})
			return
		}

		view, err := c.inbox.OpenInbox(c.ctx, c.viewer)
		if err != nil {
			c.writeServiceError(frame.RequestID, err)
			return
		}

		c.mu.Lock()
		if c.inboxView != nil {
			c.mu.Unlock()
			view.Close()
			return
		}
		c.inboxView = view
		c.mu.Unlock()

		unread := view.UnreadCount()
		c.write(outboundFrame{
			Type:          "inbox",
			RequestID:     frame.RequestID,
			Notifications: view.Snapshot(),
			UnreadCount:   &unread,
			Degraded:      view.Degraded(),
		})
		c.forward(func() {
			for update := range view.Updates() {
				unread := update.UnreadCount
				if !c.write(outboundFrame{
					Type:         "inbox",
					Event:        update.Kind,
					Notification: update.Notification,
					UnreadCount:  &unread,
				}) {
					return
				}
			}
			c.dropInbox(view)
		})

	default:
		c.writeError(frame.RequestID, "unknown channel")
	}
}

// dropCourse forgets a course stream that ended on its own, typically after
// the broker cut a lagging subscriber, and tells the peer to resubscribe.
// Streams already replaced or removed by unsubscribe are left alone.
func (c *Client) dropCourse(courseID string, sub *services.MessageSubscription) {
	c.mu.Lock()
	current := c.courses[courseID] == sub
	if current {
		delete(c.courses, courseID)
	}
	c.mu.Unlock()
	if !current {
		return
	}

	sub.Cancel()
	if c.ctx.Err() == nil {
		c.write(outboundFrame{Type: "closed", Channel: channelCourse, CourseID: courseID})
	}
}

func (c *Client) dropInbox(view *services.InboxView) {
	c.mu.Lock()
	current := c.inboxView == view
	if current {
		c.inboxView = nil
	}
	c.mu.Unlock()
	if !current {
		return
	}

	view.Close()
	if c.ctx.Err() == nil {
		c.write(outboundFrame{Type: "closed", Channel: channelInbox})
	}
}

func (c *Client) unsubscribe(frame inboundFrame) {
	switch frame.Channel {
	case channelCourse:
		courseID := strings.TrimSpace(frame.CourseID)
		c.mu.Lock()
		sub := c.courses[courseID]
		delete(c.courses, courseID)
		c.mu.Unlock()
		sub.Cancel()
	case channelInbox:
		c.mu.Lock()
		view := c.inboxView
		c.inboxView = nil
		c.mu.Unlock()
		if view != nil {
			view.Close()
		}
	default:
		c.writeError(frame.RequestID, "unknown channel")
		return
	}
	c.write(outboundFrame{Type: "ack", RequestID: frame.RequestID, Channel: frame.Channel, CourseID: frame.CourseID})
}

func (c *Client) sendMessage(frame inboundFrame) {
	if !c.limiter.Allow() {
		c.writeError(frame.RequestID, "rate limit exceeded")
		return
	}
	delivery, err := c.chat.AppendMessage(c.ctx, c.viewer, frame.CourseID, frame.Text)
	if err != nil {
		c.writeServiceError(frame.RequestID, err)
		return
	}
	c.write(outboundFrame{
		Type:      "ack",
		RequestID: frame.RequestID,
		CourseID:  delivery.Message.CourseID,
		Message:   delivery.Message,
	})
}

func (c *Client) toggleRead(frame inboundFrame) {
	read, err := c.inbox.ToggleRead(c.ctx, c.viewer, frame.NotificationID, frame.Read)
	if err != nil {
		c.writeServiceError(frame.RequestID, err)
		return
	}
	c.write(outboundFrame{Type: "ack", RequestID: frame.RequestID, Read: &read})
}

func (c *Client) forward(loop func()) {
	c.forwarders.Add(1)
	go func() {
		defer c.forwarders.Done()
		loop()
	}()
}

// write queues a frame for WritePump and blocks while the buffer is full.
// It reports false once the client is closing.
func (c *Client) write(frame outboundFrame) bool {
	frame.Timestamp = services.FormatChatTimestamp(time.Now())
	payload, err := json.Marshal(frame)
	if err != nil {
		logger.Error().Err(err).Str("type", frame.Type).Msg("encode websocket frame")
		return true
	}

	select {
	case c.send <- payload:
		return true
	case <-c.ctx.Done():
		return false
	}
}

func (c *Client) writeError(requestID, message string) {
	c.write(outboundFrame{Type: "error", RequestID: requestID, Error: message})
}

func (c *Client) writeServiceError(requestID string, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		c.writeError(requestID, "message text is required")
	case errors.Is(err, services.ErrForbidden):
		c.writeError(requestID, "forbidden")
	case errors.Is(err, services.ErrInvalidInput):
		c.writeError(requestID, "invalid request")
	case errors.Is(err, services.ErrNotFound):
		c.writeError(requestID, "notification not found")
	case errors.Is(err, services.ErrCourseNotFound):
		c.writeError(requestID, "course not found")
	default:
		logger.Error().Err(err).Str("viewer_id", c.viewer.ID).Msg("websocket request failed")
		c.writeError(requestID, "failed to process request")
	}
}

func (c *Client) close() {
	c.cancel()
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// release cancels every subscription the client opened and waits for the
// forwarding goroutines to finish.
func (c *Client) release() {
	c.mu.Lock()
	courses := c.courses
	c.courses = make(map[string]*services.MessageSubscription)
	view := c.inboxView
	c.inboxView = nil
	c.mu.Unlock()

	for _, sub := range courses {
		sub.Cancel()
	}
	if view != nil {
		view.Close()
	}
	c.forwarders.Wait()
}
