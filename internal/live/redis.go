package live

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/saeid-a/CourseHubBack/pkg/logger"
)

const redisChannelPrefix = "coursehub:live:"

// RedisBroker relays events through Redis pub/sub so that every API
// instance sees writes made by the others.
type RedisBroker struct {
	client     *redis.Client
	bufferSize int
}

func NewRedisBroker(client *redis.Client, bufferSize int) *RedisBroker {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &RedisBroker{client: client, bufferSize: bufferSize}
}

func (b *RedisBroker) Publish(ctx context.Context, topic string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode live event: %w", err)
	}
	if err := b.client.Publish(ctx, redisChannelPrefix+topic, payload).Err(); err != nil {
		return fmt.Errorf("publish live event: %w", err)
	}
	return nil
}

func (b *RedisBroker) Subscribe(ctx context.Context, topic string) (*Subscription, error) {
	pubsub := b.client.Subscribe(ctx, redisChannelPrefix+topic)
	// Wait for the subscription confirmation so no publish after this call
	// is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	events := make(chan Event, b.bufferSize)
	stop := make(chan struct{})

	go func() {
		defer close(events)
		incoming := pubsub.Channel()
		for {
			select {
			case <-stop:
				return
			case msg, ok := <-incoming:
				if !ok {
					return
				}
				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					logger.Warn().Err(err).Str("topic", topic).Msg("discarding malformed live event")
					continue
				}
				select {
				case events <- event:
				default:
					logger.Warn().Str("topic", topic).Msg("dropping slow live subscriber")
					_ = pubsub.Close()
					return
				}
			}
		}
	}()

	return newSubscription(events, func() {
		close(stop)
		_ = pubsub.Close()
	}), nil
}

func (b *RedisBroker) Close() error {
	return nil
}
