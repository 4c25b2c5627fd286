package model

import (
	"strings"
	"time"
)

// AttachmentKind is the media kind of an attachment.
type AttachmentKind string

const (
	AttachmentImage AttachmentKind = "image"
	AttachmentVideo AttachmentKind = "video"
	AttachmentAudio AttachmentKind = "audio"
	AttachmentFile  AttachmentKind = "file"
	AttachmentVoice AttachmentKind = "voice"
)

// NormalizeKind maps a client supplied kind onto a known AttachmentKind.
// Unknown or empty kinds are stored as files.
func NormalizeKind(kind string) AttachmentKind {
	switch k := AttachmentKind(strings.ToLower(strings.TrimSpace(kind))); k {
	case AttachmentImage, AttachmentVideo, AttachmentAudio, AttachmentFile, AttachmentVoice:
		return k
	default:
		return AttachmentFile
	}
}

// KindFromMIME derives the attachment kind from a MIME type such as "image/png".
func KindFromMIME(mime string) AttachmentKind {
	switch {
	case strings.HasPrefix(mime, "image"):
		return AttachmentImage
	case strings.HasPrefix(mime, "video"):
		return AttachmentVideo
	case strings.HasPrefix(mime, "audio"):
		return AttachmentAudio
	default:
		return AttachmentFile
	}
}

// Room is a named broadcast domain and message container.
type Room struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Attachment is a media reference bound to a message.
type Attachment struct {
	Kind     AttachmentKind `json:"type"`
	URL      string         `json:"url"`
	Name     string         `json:"name"`
	Duration string         `json:"duration"`
}

// Message is a persisted chat message.
// Username is nil when the message has no recorded author.
type Message struct {
	ID          int64        `json:"id"`
	RoomID      int64        `json:"roomId"`
	Username    *string      `json:"username"`
	Content     string       `json:"message"`
	Attachments []Attachment `json:"attachments"`
	ReplyTo     *int64       `json:"replyTo,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// NewMessage is the input for persisting a message.
type NewMessage struct {
	Room        string
	Username    string
	Content     string
	Attachments []Attachment
	ReplyTo     *int64
}

// Validate checks the non-empty invariant of a message.
func (m *NewMessage) Validate() error {
	if m.Room == "" {
		return ErrRoomNameRequired
	}
	if m.Content == "" && len(m.Attachments) == 0 {
		return ErrEmptyMessage
	}
	return nil
}
