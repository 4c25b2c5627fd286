package model

import "errors"

var (
	// ErrRoomNameRequired is returned when an operation needs a room name and none was given.
	ErrRoomNameRequired = errors.New("room name is required")

	// ErrRoomNotFound is returned when a room does not exist.
	ErrRoomNotFound = errors.New("room not found")

	// ErrEmptyMessage is returned when a message has neither content nor attachments.
	ErrEmptyMessage = errors.New("message has no content and no attachments")

	// ErrUnauthorized is returned when a connection carries no authenticated identity.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrSessionClosed is returned when a connection session is already closed.
	ErrSessionClosed = errors.New("session is closed")

	// ErrRecordingRequired is returned when a call recording upload has no file.
	ErrRecordingRequired = errors.New("recording file is required")

	// ErrRecordingNotFound is returned when a call recording does not exist.
	ErrRecordingNotFound = errors.New("call recording not found")

	// ErrInvalidChunk is returned when a chunked upload part has an invalid index or count.
	ErrInvalidChunk = errors.New("invalid chunk")
)
