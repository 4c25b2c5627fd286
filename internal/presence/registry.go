// Package presence tracks which identities are connected to which room.
package presence

import (
	"context"
	"sort"
	"sync"
)

// Registry is the set of identities present in each room.
type Registry interface {
	// Join adds identity to the room. Joining twice is a no-op.
	Join(ctx context.Context, room, identity string) error
	// Leave removes identity from the room and reports whether it was present.
	Leave(ctx context.Context, room, identity string) (bool, error)
	// List returns the identities present in the room, sorted.
	List(ctx context.Context, room string) ([]string, error)
}

// MemoryRegistry is a process-local Registry.
type MemoryRegistry struct {
	rooms map[string]map[string]struct{}
	mu    sync.RWMutex
}

// NewMemoryRegistry creates an empty MemoryRegistry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		rooms: make(map[string]map[string]struct{}),
	}
}

// Join adds identity to the room.
func (r *MemoryRegistry) Join(_ context.Context, room, identity string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[room]
	if !ok {
		members = make(map[string]struct{})
		r.rooms[room] = members
	}
	members[identity] = struct{}{}
	return nil
}

// Leave removes identity from the room. Empty rooms are dropped.
func (r *MemoryRegistry) Leave(_ context.Context, room, identity string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[room]
	if !ok {
		return false, nil
	}
	if _, ok := members[identity]; !ok {
		return false, nil
	}
	delete(members, identity)
	if len(members) == 0 {
		delete(r.rooms, room)
	}
	return true, nil
}

// List returns the identities present in the room.
func (r *MemoryRegistry) List(_ context.Context, room string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]string, 0, len(r.rooms[room]))
	for identity := range r.rooms[room] {
		users = append(users, identity)
	}
	sort.Strings(users)
	return users, nil
}

// RoomCount returns the number of rooms with at least one identity present.
func (r *MemoryRegistry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
