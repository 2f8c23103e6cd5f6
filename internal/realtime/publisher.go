package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Event is the wire shape delivered to realtime subscribers. Delivery
// semantics (ordering, at-least-once) belong to the transport; callers treat
// publishing as best-effort notification of already-persisted state.
type Event struct {
	Type      string         `json:"type"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

type Publisher interface {
	Publish(ctx context.Context, channel string, event Event) error
}

// Channel names, one namespace per audience.

func DoctorChannel(doctorID uuid.UUID) string {
	return fmt.Sprintf("doctor-%s", doctorID)
}

func UserChannel(userID uuid.UUID) string {
	return fmt.Sprintf("user-%s", userID)
}

func RoomChannel(roomID uuid.UUID) string {
	return fmt.Sprintf("chat-%s", roomID)
}

func AvailabilityChannel(doctorID uuid.UUID) string {
	return fmt.Sprintf("availability-%s", doctorID)
}

type redisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) Publisher {
	return &redisPublisher{client: client}
}

func (p *redisPublisher) Publish(ctx context.Context, channel string, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %q: %w", event.Type, err)
	}

	if err := p.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", channel, err)
	}

	return nil
}
