package live

import (
	"context"
	"sync"
)

// Broker fans events out to topic subscribers. Subscriptions are push based
// and cancellable; a subscriber that cannot keep up is dropped and sees its
// channel closed.
type Broker interface {
	Publish(ctx context.Context, topic string, event Event) error
	Subscribe(ctx context.Context, topic string) (*Subscription, error)
	Close() error
}

type Subscription struct {
	C      <-chan Event
	once   sync.Once
	cancel func()
}

func newSubscription(events <-chan Event, cancel func()) *Subscription {
	return &Subscription{C: events, cancel: cancel}
}

// Cancel stops delivery. Safe to call more than once.
func (s *Subscription) Cancel() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
}

// PublishAll publishes event on each topic and returns the first failure.
func PublishAll(ctx context.Context, broker Broker, topics []string, event Event) error {
	var firstErr error
	for _, topic := range topics {
		if err := broker.Publish(ctx, topic, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
