package presence

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestMemoryRegistryJoinLeave(t *testing.T) {
	r := NewMemoryRegistry()
	ctx := context.Background()

	r.Join(ctx, "general", "alice")
	r.Join(ctx, "general", "bob")
	r.Join(ctx, "general", "alice")

	users, _ := r.List(ctx, "general")
	if len(users) != 2 || users[0] != "alice" || users[1] != "bob" {
		t.Errorf("expected [alice bob], got %v", users)
	}

	present, _ := r.Leave(ctx, "general", "alice")
	if !present {
		t.Error("expected alice to have been present")
	}
	present, _ = r.Leave(ctx, "general", "alice")
	if present {
		t.Error("expected second leave to report absent")
	}
	present, _ = r.Leave(ctx, "other", "alice")
	if present {
		t.Error("expected leave from unknown room to report absent")
	}

	r.Leave(ctx, "general", "bob")
	if r.RoomCount() != 0 {
		t.Errorf("expected empty rooms to be dropped, got %d rooms", r.RoomCount())
	}

	users, _ = r.List(ctx, "general")
	if len(users) != 0 {
		t.Errorf("expected empty list, got %v", users)
	}
}

func TestMemoryRegistryConcurrent(t *testing.T) {
	r := NewMemoryRegistry()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("user-%d", i)
			r.Join(ctx, "general", id)
			if i%2 == 0 {
				r.Leave(ctx, "general", id)
			}
		}(i)
	}
	wg.Wait()

	users, _ := r.List(ctx, "general")
	if len(users) != 25 {
		t.Errorf("expected 25 present users, got %d", len(users))
	}
}

func TestPresenceJoinLeaveCountProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("N joins and M leaves leave exactly N-M distinct identities", prop.ForAll(
		func(n, m int) bool {
			if m > n {
				n, m = m, n
			}
			r := NewMemoryRegistry()
			ctx := context.Background()

			for i := 0; i < n; i++ {
				r.Join(ctx, "room", fmt.Sprintf("id-%d", i))
			}
			for i := 0; i < m; i++ {
				r.Leave(ctx, "room", fmt.Sprintf("id-%d", i))
			}

			users, err := r.List(ctx, "room")
			if err != nil || len(users) != n-m {
				return false
			}
			seen := make(map[string]bool)
			for _, u := range users {
				if seen[u] {
					return false
				}
				seen[u] = true
			}
			return true
		},
		gen.IntRange(0, 50),
		gen.IntRange(0, 50),
	))

	properties.TestingRun(t)
}
