package model

import "time"

// CallRecording is the stored audio of a completed call.
type CallRecording struct {
	ID        int64      `json:"id"`
	Caller    string     `json:"caller"`
	Receiver  string     `json:"receiver"`
	RoomName  *string    `json:"roomName,omitempty"`
	URL       string     `json:"recordingUrl"`
	Duration  *int       `json:"duration,omitempty"`
	StartedAt time.Time  `json:"startedAt"`
	EndedAt   *time.Time `json:"endedAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Elapsed returns the recorded call duration. Unknown durations are zero.
func (r *CallRecording) Elapsed() time.Duration {
	if r.Duration == nil {
		return 0
	}
	return time.Duration(*r.Duration) * time.Second
}
