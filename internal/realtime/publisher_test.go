package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisPublisher(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	ctx := context.Background()
	channel := RoomChannel(uuid.New())

	sub := client.Subscribe(ctx, channel)
	t.Cleanup(func() { sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	pub := NewRedisPublisher(client)
	err = pub.Publish(ctx, channel, Event{
		Type: "new-message",
		Data: map[string]any{"content": "hello"},
	})
	require.NoError(t, err)

	select {
	case msg := <-sub.Channel():
		var event Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &event))
		assert.Equal(t, "new-message", event.Type)
		assert.Equal(t, "hello", event.Data["content"])
		assert.False(t, event.Timestamp.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("no message delivered")
	}
}

func TestChannelNames(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	assert.Equal(t, "doctor-6ba7b810-9dad-11d1-80b4-00c04fd430c8", DoctorChannel(id))
	assert.Equal(t, "user-6ba7b810-9dad-11d1-80b4-00c04fd430c8", UserChannel(id))
	assert.Equal(t, "chat-6ba7b810-9dad-11d1-80b4-00c04fd430c8", RoomChannel(id))
	assert.Equal(t, "availability-6ba7b810-9dad-11d1-80b4-00c04fd430c8", AvailabilityChannel(id))
}
