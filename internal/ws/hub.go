package ws

import (
	"context"
	"log"
	"sync"

	"github.com/room-relay/backend/internal/event"
)

// Member is a subscriber of a room broadcast group.
type Member interface {
	// Deliver hands ev to the member. It must not block.
	Deliver(ev event.Event) error
}

// Broadcaster is the group membership and fan-out contract used by sessions.
type Broadcaster interface {
	Subscribe(room string, m Member)
	Unsubscribe(room string, m Member)
	Broadcast(ctx context.Context, room string, ev event.Event) error
}

// Hub is the broadcast group of a single room.
type Hub struct {
	room    string
	members map[Member]bool
	mu      sync.Mutex
}

// NewHub creates a new Hub for the given room.
func NewHub(room string) *Hub {
	return &Hub{
		room:    room,
		members: make(map[Member]bool),
	}
}

// Room returns the room name for this hub.
func (h *Hub) Room() string {
	return h.room
}

// Register adds a member to the hub.
func (h *Hub) Register(m Member) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.members[m] = true
}

// Unregister removes a member and returns how many remain.
func (h *Hub) Unregister(m Member) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.members, m)
	return len(h.members)
}

// Broadcast delivers ev to every member, including its author.
// A failed delivery is logged and skipped.
func (h *Hub) Broadcast(ev event.Event) {
	// holding the lock for the whole loop keeps broadcasts of a room ordered
	h.mu.Lock()
	defer h.mu.Unlock()

	for m := range h.members {
		if err := m.Deliver(ev); err != nil {
			log.Printf("Failed to deliver %s event in room %s: %v", ev.Kind, h.room, err)
		}
	}
}

// MemberCount returns the number of subscribed members.
func (h *Hub) MemberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.members)
}

// RoomHub manages the hubs of all rooms with live members.
type RoomHub struct {
	hubs map[string]*Hub
	mu   sync.RWMutex
}

// NewRoomHub creates a new RoomHub.
func NewRoomHub() *RoomHub {
	return &RoomHub{
		hubs: make(map[string]*Hub),
	}
}

// Subscribe adds m to the broadcast group of room, creating the group if needed.
func (r *RoomHub) Subscribe(room string, m Member) {
	r.mu.Lock()
	defer r.mu.Unlock()

	hub, ok := r.hubs[room]
	if !ok {
		hub = NewHub(room)
		r.hubs[room] = hub
	}
	hub.Register(m)
}

// Unsubscribe removes m from room. An emptied group is dropped.
func (r *RoomHub) Unsubscribe(room string, m Member) {
	r.mu.Lock()
	defer r.mu.Unlock()

	hub, ok := r.hubs[room]
	if !ok {
		return
	}
	if hub.Unregister(m) == 0 {
		delete(r.hubs, room)
	}
}

// Broadcast delivers ev to every member of room. Rooms without members are valid.
func (r *RoomHub) Broadcast(_ context.Context, room string, ev event.Event) error {
	if hub := r.Get(room); hub != nil {
		hub.Broadcast(ev)
	}
	return nil
}

// Get returns the hub for the room, or nil if it has no members.
func (r *RoomHub) Get(room string) *Hub {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hubs[room]
}

// RoomCount returns the number of rooms with members.
func (r *RoomHub) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.hubs)
}
