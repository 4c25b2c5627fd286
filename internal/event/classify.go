package event

import (
	"encoding/json"

	"github.com/room-relay/backend/internal/model"
)

// Action is a classified inbound frame.
type Action interface {
	// Event returns what is broadcast to the room.
	Event() Event
}

// Persistable is an Action that is also stored as a chat message.
type Persistable interface {
	Action
	// Record returns the message to store for room. ok is false when the
	// action carries nothing worth storing.
	Record(room string) (msg model.NewMessage, ok bool)
}

// Signal is a call signaling frame relayed verbatim with its sender.
type Signal struct {
	From   string
	Fields map[string]json.RawMessage
}

// Typing is a typing indicator.
type Typing struct {
	From string
}

// Media is a single uploaded file shared in the room.
type Media struct {
	From       string
	Attachment model.Attachment
}

// Text is a chat message with optional attachments and reply reference.
type Text struct {
	From        string
	Content     string
	Attachments []model.Attachment
	ReplyTo     json.RawMessage
}

// Classify maps a decoded frame from sender onto an Action. The first matching
// rule wins: signal, typing, media, then text. Frames matching nothing return nil.
func Classify(in Inbound, sender string) Action {
	switch {
	case IsSignal(in.Type):
		fields := make(map[string]json.RawMessage, len(in.Fields)+1)
		for k, v := range in.Fields {
			fields[k] = v
		}
		from, _ := json.Marshal(sender)
		fields["from"] = from
		return &Signal{From: sender, Fields: fields}

	case in.Type == "typing":
		return &Typing{From: sender}

	case in.Type == "media":
		return &Media{
			From: sender,
			Attachment: model.Attachment{
				Kind:     model.AttachmentKind(in.MediaType),
				URL:      in.MediaURL,
				Name:     in.Name,
				Duration: in.Duration,
			},
		}

	case in.Message != "" || len(in.Attachments) > 0:
		return &Text{
			From:        sender,
			Content:     in.Message,
			Attachments: in.Attachments,
			ReplyTo:     in.ReplyTo,
		}
	}
	return nil
}

// Event returns the signal broadcast.
func (s *Signal) Event() Event {
	return Event{Kind: KindSignal, Username: s.From, Payload: s.Fields}
}

// Event returns the typing broadcast.
func (t *Typing) Event() Event {
	return Event{Kind: KindTyping, Username: t.From}
}

// Event returns a message broadcast with empty content and one attachment.
func (m *Media) Event() Event {
	return Event{
		Kind:        KindMessage,
		Username:    m.From,
		Attachments: []model.Attachment{m.Attachment},
	}
}

// Record returns a message with empty content and the media attachment.
func (m *Media) Record(room string) (model.NewMessage, bool) {
	return model.NewMessage{
		Room:        room,
		Username:    m.From,
		Attachments: []model.Attachment{m.Attachment},
	}, true
}

// Event returns the message broadcast.
func (t *Text) Event() Event {
	ev := Event{
		Kind:        KindMessage,
		Username:    t.From,
		Message:     t.Content,
		Attachments: t.Attachments,
	}
	if truthy(t.ReplyTo) {
		ev.ReplyTo = t.ReplyTo
	}
	return ev
}

// Record returns the message to store with every broadcast attachment.
func (t *Text) Record(room string) (model.NewMessage, bool) {
	msg := model.NewMessage{
		Room:        room,
		Username:    t.From,
		Content:     t.Content,
		Attachments: t.Attachments,
		ReplyTo:     replyID(t.ReplyTo),
	}
	if msg.Validate() != nil {
		return model.NewMessage{}, false
	}
	return msg, true
}
