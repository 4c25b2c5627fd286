package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/room-relay/backend/internal/event"
)

// RedisRelay is a Broadcaster that publishes room events to Redis and
// delivers everything received from Redis to the members of its local
// RoomHub. Several relay processes sharing one Redis see the same rooms.
type RedisRelay struct {
	client *redis.Client
	prefix string
	local  *RoomHub

	pubsub *redis.PubSub
	done   chan struct{}
	once   sync.Once
}

// NewRedisRelay creates a relay. Channels are "<prefix>room:<name>".
func NewRedisRelay(client *redis.Client, prefix string, local *RoomHub) *RedisRelay {
	return &RedisRelay{
		client: client,
		prefix: prefix,
		local:  local,
		done:   make(chan struct{}),
	}
}

func (r *RedisRelay) channel(room string) string {
	return r.prefix + "room:" + room
}

// Start subscribes to all room channels and begins local delivery.
func (r *RedisRelay) Start(ctx context.Context) error {
	r.pubsub = r.client.PSubscribe(ctx, r.channel("*"))
	// wait for the subscription so no publish after Start is missed
	if _, err := r.pubsub.Receive(ctx); err != nil {
		r.pubsub.Close()
		return fmt.Errorf("failed to subscribe to room channels: %w", err)
	}

	go r.run()
	return nil
}

func (r *RedisRelay) run() {
	defer close(r.done)

	roomPrefix := r.channel("")
	for msg := range r.pubsub.Channel() {
		room := strings.TrimPrefix(msg.Channel, roomPrefix)

		var ev event.Event
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			log.Printf("Failed to decode relayed event for room %s: %v", room, err)
			continue
		}
		r.local.Broadcast(context.Background(), room, ev)
	}
}

// Subscribe adds m to the local group of room.
func (r *RedisRelay) Subscribe(room string, m Member) {
	r.local.Subscribe(room, m)
}

// Unsubscribe removes m from the local group of room.
func (r *RedisRelay) Unsubscribe(room string, m Member) {
	r.local.Unsubscribe(room, m)
}

// Broadcast publishes ev to the room channel.
func (r *RedisRelay) Broadcast(ctx context.Context, room string, ev event.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel(room), data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Close stops the subscription and waits for local delivery to finish.
func (r *RedisRelay) Close() error {
	var err error
	r.once.Do(func() {
		if r.pubsub == nil {
			close(r.done)
			return
		}
		err = r.pubsub.Close()
		<-r.done
	})
	return err
}
