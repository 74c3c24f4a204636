package live

import (
	"context"
	"os"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/saeid-a/CourseHubBack/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisBrokerRoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set; skipping Redis broker test")
	}

	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())

	broker := NewRedisBroker(client, 4)
	sub, err := broker.Subscribe(ctx, CourseTopic("redis-test"))
	require.NoError(t, err)
	defer sub.Cancel()

	target := "u1"
	require.NoError(t, broker.Publish(ctx, CourseTopic("redis-test"), Event{
		Kind:    MessageCreated,
		Message: &models.CourseMessage{ID: "m1", CourseID: "redis-test", TargetUserID: &target},
	}))

	event, ok := receive(t, sub)
	require.True(t, ok)
	assert.Equal(t, MessageCreated, event.Kind)
	require.NotNil(t, event.Message)
	assert.Equal(t, "m1", event.Message.ID)
	require.NotNil(t, event.Message.TargetUserID)
	assert.Equal(t, "u1", *event.Message.TargetUserID)

	sub.Cancel()
	_, ok = receive(t, sub)
	assert.False(t, ok)
}
