package presence

import (
	"context"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
)

// RedisRegistry keeps presence in Redis sets so that several relay
// processes share one view of each room.
type RedisRegistry struct {
	client *redis.Client
	prefix string
}

// NewRedisRegistry creates a RedisRegistry. Keys are "<prefix>presence:<room>".
func NewRedisRegistry(client *redis.Client, prefix string) *RedisRegistry {
	return &RedisRegistry{
		client: client,
		prefix: prefix,
	}
}

func (r *RedisRegistry) key(room string) string {
	return r.prefix + "presence:" + room
}

// Join adds identity to the room set.
func (r *RedisRegistry) Join(ctx context.Context, room, identity string) error {
	if err := r.client.SAdd(ctx, r.key(room), identity).Err(); err != nil {
		return fmt.Errorf("failed to join presence: %w", err)
	}
	return nil
}

// Leave removes identity from the room set.
func (r *RedisRegistry) Leave(ctx context.Context, room, identity string) (bool, error) {
	removed, err := r.client.SRem(ctx, r.key(room), identity).Result()
	if err != nil {
		return false, fmt.Errorf("failed to leave presence: %w", err)
	}
	return removed > 0, nil
}

// List returns the members of the room set.
func (r *RedisRegistry) List(ctx context.Context, room string) ([]string, error) {
	users, err := r.client.SMembers(ctx, r.key(room)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list presence: %w", err)
	}
	sort.Strings(users)
	return users, nil
}
