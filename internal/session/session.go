// Package session implements one live chat connection: joining a room,
// relaying classified client frames and leaving on every exit path.
package session

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/room-relay/backend/internal/event"
	"github.com/room-relay/backend/internal/model"
	"github.com/room-relay/backend/internal/presence"
	"github.com/room-relay/backend/internal/ws"
)

// State is the lifecycle state of a Session.
type State int

const (
	StateConnecting State = iota
	StateJoined
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateJoined:
		return "joined"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Store durably keeps rooms and chat messages.
type Store interface {
	EnsureRoom(ctx context.Context, name string) (*model.Room, error)
	SaveMessage(ctx context.Context, msg model.NewMessage) (*model.Message, error)
}

// FailureJournal records messages that were broadcast but could not be stored.
type FailureJournal interface {
	Record(msg model.NewMessage, cause error) error
}

// Transport carries rendered frames to the client.
type Transport interface {
	Send(data []byte) error
	Close()
}

// Deps are the collaborators shared by all sessions.
type Deps struct {
	Hub      ws.Broadcaster
	Presence presence.Registry
	Store    Store
	Journal  FailureJournal // optional
}

// Session is the state of one connected client in one room.
type Session struct {
	id        string
	room      string
	identity  string
	transport Transport
	deps      Deps

	mu    sync.Mutex
	state State
}

// New creates a session in the Connecting state.
func New(room, identity string, transport Transport, deps Deps) *Session {
	return &Session{
		id:        uuid.New().String(),
		room:      room,
		identity:  identity,
		transport: transport,
		deps:      deps,
		state:     StateConnecting,
	}
}

// ID returns the unique session ID.
func (s *Session) ID() string { return s.id }

// Room returns the room name.
func (s *Session) Room() string { return s.room }

// Identity returns the connected username.
func (s *Session) Identity() string { return s.identity }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Open joins the room. An anonymous identity is rejected with
// model.ErrUnauthorized and the session moves straight to Closed without
// touching any shared state. On success the client receives the online list
// and the room, this client included, receives a user_join.
func (s *Session) Open(ctx context.Context) error {
	if s.identity == "" {
		s.setState(StateClosed)
		return model.ErrUnauthorized
	}
	if s.room == "" {
		s.setState(StateClosed)
		return model.ErrRoomNameRequired
	}

	s.deps.Hub.Subscribe(s.room, s)
	if err := s.deps.Presence.Join(ctx, s.room, s.identity); err != nil {
		return err
	}
	if _, err := s.deps.Store.EnsureRoom(ctx, s.room); err != nil {
		log.Printf("Failed to ensure room %s: %v", s.room, err)
	}

	// the snapshot goes out before any room event reaches Deliver
	s.mu.Lock()
	if s.state != StateConnecting {
		s.mu.Unlock()
		return model.ErrSessionClosed
	}
	users, err := s.deps.Presence.List(ctx, s.room)
	if err != nil {
		log.Printf("Failed to list presence for room %s: %v", s.room, err)
		users = []string{s.identity}
	}
	if data, ok := event.Render(event.OnlineList(users), s.identity); ok {
		if err := s.transport.Send(data); err != nil {
			log.Printf("Failed to send online list to %s: %v", s.identity, err)
		}
	}
	s.state = StateJoined
	s.mu.Unlock()

	if err := s.deps.Hub.Broadcast(ctx, s.room, event.UserJoin(s.identity)); err != nil {
		log.Printf("Failed to broadcast join of %s in room %s: %v", s.identity, s.room, err)
	}
	return nil
}

// HandleFrame classifies one inbound frame, broadcasts it and stores it when
// it is a chat message. Frames that classify to nothing are dropped.
func (s *Session) HandleFrame(ctx context.Context, raw []byte) {
	if s.State() != StateJoined {
		return
	}

	act := event.Classify(event.Decode(raw), s.identity)
	if act == nil {
		return
	}

	if err := s.deps.Hub.Broadcast(ctx, s.room, act.Event()); err != nil {
		log.Printf("Failed to broadcast in room %s: %v", s.room, err)
	}

	p, ok := act.(event.Persistable)
	if !ok {
		return
	}
	msg, ok := p.Record(s.room)
	if !ok {
		return
	}
	// the broadcast stands even if storing fails
	if _, err := s.deps.Store.SaveMessage(ctx, msg); err != nil {
		log.Printf("Failed to save message from %s in room %s: %v", s.identity, s.room, err)
		if s.deps.Journal != nil {
			if jerr := s.deps.Journal.Record(msg, err); jerr != nil {
				log.Printf("Failed to journal unsaved message: %v", jerr)
			}
		}
	}
}

// Deliver renders a room event for this client and queues it. Events arriving
// before the online list was sent or after Close are ignored.
func (s *Session) Deliver(ev event.Event) error {
	if s.State() != StateJoined {
		return nil
	}
	data, ok := event.Render(ev, s.identity)
	if !ok {
		return nil
	}
	return s.transport.Send(data)
}

// Close leaves the room. It is safe to call more than once and from any
// exit path. A user_leave is broadcast only if the identity was present.
func (s *Session) Close(ctx context.Context) {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.state = StateClosed
	s.mu.Unlock()

	present, err := s.deps.Presence.Leave(ctx, s.room, s.identity)
	if err != nil {
		log.Printf("Failed to leave presence for %s in room %s: %v", s.identity, s.room, err)
	}
	if present {
		if err := s.deps.Hub.Broadcast(ctx, s.room, event.UserLeave(s.identity)); err != nil {
			log.Printf("Failed to broadcast leave of %s in room %s: %v", s.identity, s.room, err)
		}
	}
	s.deps.Hub.Unsubscribe(s.room, s)
	s.transport.Close()
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}
