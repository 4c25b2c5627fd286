package presence

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
)

const testRedisAddr = "localhost:6379"

func setupTestRedis(t *testing.T) *RedisRegistry {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: testRedisAddr})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available at %s: %v", testRedisAddr, err)
	}

	r := NewRedisRegistry(client, "relay-test:")
	t.Cleanup(func() {
		client.Del(ctx, r.key("general"))
		client.Close()
	})
	client.Del(ctx, r.key("general"))
	return r
}

func TestRedisRegistryJoinLeave(t *testing.T) {
	r := setupTestRedis(t)
	ctx := context.Background()

	if err := r.Join(ctx, "general", "bob"); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if err := r.Join(ctx, "general", "alice"); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	r.Join(ctx, "general", "alice")

	users, err := r.List(ctx, "general")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(users) != 2 || users[0] != "alice" || users[1] != "bob" {
		t.Errorf("expected [alice bob], got %v", users)
	}

	present, err := r.Leave(ctx, "general", "alice")
	if err != nil || !present {
		t.Errorf("expected alice to leave, present=%v err=%v", present, err)
	}
	present, _ = r.Leave(ctx, "general", "alice")
	if present {
		t.Error("expected second leave to report absent")
	}
}
