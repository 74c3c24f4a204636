package live

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/saeid-a/CourseHubBack/pkg/logger"
)

var ErrBrokerClosed = errors.New("live broker closed")

type subscriber struct {
	id    string
	topic string
	send  chan Event
}

type publication struct {
	topic string
	event Event
}

// Hub is the in-process Broker. A single goroutine owns the subscriber
// table; register, unregister and publish are serialized through channels.
type Hub struct {
	topics     map[string]map[string]*subscriber
	register   chan *subscriber
	unregister chan *subscriber
	broadcast  chan publication
	done       chan struct{}
	bufferSize int
}

func NewHub(bufferSize int) *Hub {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Hub{
		topics:     make(map[string]map[string]*subscriber),
		register:   make(chan *subscriber),
		unregister: make(chan *subscriber),
		broadcast:  make(chan publication, 64),
		done:       make(chan struct{}),
		bufferSize: bufferSize,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case sub := <-h.register:
			set, ok := h.topics[sub.topic]
			if !ok {
				set = make(map[string]*subscriber)
				h.topics[sub.topic] = set
			}
			set[sub.id] = sub
		case sub := <-h.unregister:
			h.drop(sub)
		case pub := <-h.broadcast:
			h.deliver(pub)
		case <-h.done:
			for _, set := range h.topics {
				for _, sub := range set {
					close(sub.send)
				}
			}
			h.topics = make(map[string]map[string]*subscriber)
			return
		}
	}
}

func (h *Hub) Publish(ctx context.Context, topic string, event Event) error {
	if h.closed() {
		return ErrBrokerClosed
	}
	select {
	case h.broadcast <- publication{topic: topic, event: event}:
		return nil
	case <-h.done:
		return ErrBrokerClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) Subscribe(ctx context.Context, topic string) (*Subscription, error) {
	sub := &subscriber{
		id:    uuid.NewString(),
		topic: topic,
		send:  make(chan Event, h.bufferSize),
	}

	if h.closed() {
		return nil, ErrBrokerClosed
	}
	select {
	case h.register <- sub:
	case <-h.done:
		return nil, ErrBrokerClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return newSubscription(sub.send, func() {
		select {
		case h.unregister <- sub:
		case <-h.done:
		}
	}), nil
}

func (h *Hub) Close() error {
	select {
	case <-h.done:
	default:
		close(h.done)
	}
	return nil
}

func (h *Hub) closed() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

func (h *Hub) drop(sub *subscriber) {
	set, ok := h.topics[sub.topic]
	if !ok {
		return
	}
	if _, exists := set[sub.id]; exists {
		delete(set, sub.id)
		close(sub.send)
	}
	if len(set) == 0 {
		delete(h.topics, sub.topic)
	}
}

func (h *Hub) deliver(pub publication) {
	set, ok := h.topics[pub.topic]
	if !ok {
		return
	}

	for id, sub := range set {
		select {
		case sub.send <- pub.event:
		default:
			logger.Warn().Str("topic", pub.topic).Str("subscriber", id).Msg("dropping slow live subscriber")
			delete(set, id)
			close(sub.send)
		}
	}
	if len(set) == 0 {
		delete(h.topics, pub.topic)
	}
}
