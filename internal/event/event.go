package event

import (
	"encoding/json"

	"github.com/room-relay/backend/internal/model"
)

// Kind identifies a broadcast event variant.
type Kind string

const (
	KindPresence   Kind = "presence"
	KindOnlineList Kind = "online_list"
	KindTyping     Kind = "typing"
	KindSignal     Kind = "signal"
	KindMessage    Kind = "message"
)

// Presence frame types.
const (
	TypeUserJoin   = "user_join"
	TypeUserLeave  = "user_leave"
	TypeOnlineList = "online_list"
)

// Event is a room broadcast. Which fields are set depends on Kind.
// It is also the unit published between relay processes.
type Event struct {
	Kind        Kind                       `json:"kind"`
	Type        string                     `json:"type,omitempty"`
	Username    string                     `json:"username,omitempty"`
	Users       []string                   `json:"users,omitempty"`
	Message     string                     `json:"message,omitempty"`
	Attachments []model.Attachment         `json:"attachments,omitempty"`
	ReplyTo     json.RawMessage            `json:"reply_to,omitempty"`
	Payload     map[string]json.RawMessage `json:"payload,omitempty"`
}

// UserJoin is broadcast when identity connects to a room.
func UserJoin(identity string) Event {
	return Event{Kind: KindPresence, Type: TypeUserJoin, Username: identity}
}

// UserLeave is broadcast when identity disconnects from a room.
func UserLeave(identity string) Event {
	return Event{Kind: KindPresence, Type: TypeUserLeave, Username: identity}
}

// OnlineList is the presence snapshot sent to a newly joined connection.
func OnlineList(users []string) Event {
	return Event{Kind: KindOnlineList, Type: TypeOnlineList, Users: users}
}

type presenceFrame struct {
	Type     string `json:"type"`
	Username string `json:"username"`
}

type onlineListFrame struct {
	Type  string   `json:"type"`
	Users []string `json:"users"`
}

type messageFrame struct {
	Message     string             `json:"message"`
	Username    string             `json:"username"`
	Attachments []model.Attachment `json:"attachments"`
	ReplyTo     json.RawMessage    `json:"reply_to,omitempty"`
}

// Render encodes ev for the connection of recipient. It returns false when
// nothing should be sent, as for a typing event echoed to its own author.
func Render(ev Event, recipient string) ([]byte, bool) {
	var frame interface{}

	switch ev.Kind {
	case KindPresence:
		frame = presenceFrame{Type: ev.Type, Username: ev.Username}

	case KindOnlineList:
		users := ev.Users
		if users == nil {
			users = []string{}
		}
		frame = onlineListFrame{Type: TypeOnlineList, Users: users}

	case KindTyping:
		if ev.Username == recipient {
			return nil, false
		}
		frame = presenceFrame{Type: "typing", Username: ev.Username}

	case KindSignal:
		frame = ev.Payload

	case KindMessage:
		attachments := ev.Attachments
		if attachments == nil {
			attachments = []model.Attachment{}
		}
		mf := messageFrame{
			Message:     ev.Message,
			Username:    ev.Username,
			Attachments: attachments,
		}
		if truthy(ev.ReplyTo) {
			mf.ReplyTo = ev.ReplyTo
		}
		frame = mf

	default:
		return nil, false
	}

	data, err := json.Marshal(frame)
	if err != nil {
		return nil, false
	}
	return data, true
}
