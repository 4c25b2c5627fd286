// Package event decodes inbound client frames into typed actions and renders
// broadcast events for each receiving connection.
package event

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/room-relay/backend/internal/model"
)

// Signal types relayed between call peers.
const (
	SignalCallRequest = "call_request"
	SignalCallAccept  = "call_accept"
	SignalCallReject  = "call_reject"
	SignalCallTimeout = "call_timeout"
	SignalOffer       = "offer"
	SignalAnswer      = "answer"
	SignalICE         = "ice"
	SignalCallEnd     = "call_end"
)

var signalTypes = map[string]bool{
	SignalCallRequest: true,
	SignalCallAccept:  true,
	SignalCallReject:  true,
	SignalCallTimeout: true,
	SignalOffer:       true,
	SignalAnswer:      true,
	SignalICE:         true,
	SignalCallEnd:     true,
}

// IsSignal reports whether t is a call signaling type.
func IsSignal(t string) bool {
	return signalTypes[t]
}

// Inbound is a decoded client frame. Fields with an unexpected JSON type are
// left at their zero value.
type Inbound struct {
	Type        string
	Message     string
	Attachments []model.Attachment
	ReplyTo     json.RawMessage

	MediaType string
	MediaURL  string
	Name      string
	Duration  string

	// Fields holds every top-level field of the frame as received.
	Fields map[string]json.RawMessage
}

// Decode parses a client frame. Anything that is not a JSON object yields an
// empty Inbound, which Classify drops.
func Decode(raw []byte) Inbound {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return Inbound{}
	}

	in := Inbound{Fields: fields}
	decodeField(fields, "type", &in.Type)
	decodeField(fields, "message", &in.Message)
	decodeField(fields, "attachments", &in.Attachments)
	decodeField(fields, "media_type", &in.MediaType)
	decodeField(fields, "media_url", &in.MediaURL)
	decodeField(fields, "name", &in.Name)
	decodeField(fields, "duration", &in.Duration)
	if r, ok := fields["reply_to"]; ok {
		in.ReplyTo = r
	}
	return in
}

func decodeField(fields map[string]json.RawMessage, key string, dst interface{}) {
	raw, ok := fields[key]
	if !ok {
		return
	}
	// a type mismatch leaves dst untouched
	_ = json.Unmarshal(raw, dst)
}

// truthy reports whether a raw JSON value is present and not a zero value.
func truthy(raw json.RawMessage) bool {
	v := bytes.TrimSpace(raw)
	if len(v) == 0 {
		return false
	}
	switch string(v) {
	case "null", "false", `""`, "[]", "{}":
		return false
	}
	if f, err := strconv.ParseFloat(string(v), 64); err == nil {
		return f != 0
	}
	return true
}

// replyID interprets a reply reference as a message ID. Numbers and numeric
// strings are accepted.
func replyID(raw json.RawMessage) *int64 {
	if !truthy(raw) {
		return nil
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return &n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return &n
		}
	}
	return nil
}
