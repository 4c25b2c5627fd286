// Package logger records chat messages that were delivered live but could not
// be stored, so operators can inspect and replay them.
package logger

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/room-relay/backend/internal/model"
)

// JournalHeader is the first line of a journal file.
type JournalHeader struct {
	Version   int    `json:"version"`
	Timestamp int64  `json:"timestamp"`
	Kind      string `json:"kind"`
}

// FailedMessage is the stored form of an unsaved message.
type FailedMessage struct {
	Room        string             `json:"room"`
	Username    string             `json:"username"`
	Content     string             `json:"message"`
	Attachments []model.Attachment `json:"attachments"`
	ReplyTo     *int64             `json:"reply_to,omitempty"`
	Error       string             `json:"error"`
}

// JournalEntry is one journal line.
// Format: [time_offset, "persist_failure", message]
type JournalEntry struct {
	TimeOffset float64
	Message    FailedMessage
}

const entryKind = "persist_failure"

// MarshalJSON implements custom JSON marshaling for JournalEntry.
func (e JournalEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{e.TimeOffset, entryKind, e.Message})
}

// UnmarshalJSON implements custom JSON unmarshaling for JournalEntry.
func (e *JournalEntry) UnmarshalJSON(data []byte) error {
	var arr []json.RawMessage
	if err := json.Unmarshal(data, &arr); err != nil {
		return err
	}
	if len(arr) != 3 {
		return fmt.Errorf("invalid entry format: expected 3 elements, got %d", len(arr))
	}
	if err := json.Unmarshal(arr[0], &e.TimeOffset); err != nil {
		return fmt.Errorf("invalid time offset: %w", err)
	}
	var kind string
	if err := json.Unmarshal(arr[1], &kind); err != nil || kind != entryKind {
		return fmt.Errorf("invalid entry kind %s", arr[1])
	}
	if err := json.Unmarshal(arr[2], &e.Message); err != nil {
		return fmt.Errorf("invalid entry message: %w", err)
	}
	return nil
}

// FailureJournal appends unsaved messages to a JSON-lines file.
type FailureJournal struct {
	writer    io.Writer
	file      *os.File // only set if we own the file
	startTime time.Time
	mu        sync.Mutex
}

// NewFailureJournal opens the journal at filePath for appending and writes a
// header line.
func NewFailureJournal(filePath string) (*FailureJournal, error) {
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal file: %w", err)
	}

	j := &FailureJournal{
		writer:    file,
		file:      file,
		startTime: time.Now(),
	}
	if err := j.writeHeader(); err != nil {
		file.Close()
		return nil, err
	}
	return j, nil
}

// NewFailureJournalWithWriter creates a journal that writes to w.
// This is useful for testing.
func NewFailureJournalWithWriter(w io.Writer) (*FailureJournal, error) {
	j := &FailureJournal{
		writer:    w,
		startTime: time.Now(),
	}
	if err := j.writeHeader(); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *FailureJournal) writeHeader() error {
	header := JournalHeader{
		Version:   1,
		Timestamp: j.startTime.Unix(),
		Kind:      entryKind,
	}

	data, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}
	if _, err := j.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	return nil
}

// Record appends msg with the error that prevented storing it.
func (j *FailureJournal) Record(msg model.NewMessage, cause error) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	entry := JournalEntry{
		TimeOffset: time.Since(j.startTime).Seconds(),
		Message: FailedMessage{
			Room:        msg.Room,
			Username:    msg.Username,
			Content:     msg.Content,
			Attachments: msg.Attachments,
			ReplyTo:     msg.ReplyTo,
		},
	}
	if entry.Message.Attachments == nil {
		entry.Message.Attachments = []model.Attachment{}
	}
	if cause != nil {
		entry.Message.Error = cause.Error()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}
	if _, err := j.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write entry: %w", err)
	}
	return nil
}

// Close closes the journal file.
func (j *FailureJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.file != nil {
		return j.file.Close()
	}
	return nil
}

// ReadJournal parses a journal stream. A file that was reopened contains one
// header per session; all entries are returned in file order.
func ReadJournal(r io.Reader) ([]JournalEntry, error) {
	var entries []JournalEntry
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for line := 1; scanner.Scan(); line++ {
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		if raw[0] == '{' {
			var header JournalHeader
			if err := json.Unmarshal(raw, &header); err != nil {
				return nil, fmt.Errorf("line %d: invalid header: %w", line, err)
			}
			continue
		}
		var entry JournalEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}
	return entries, nil
}

// ToNewMessage converts a journal entry back into a message for replay.
func (m FailedMessage) ToNewMessage() model.NewMessage {
	return model.NewMessage{
		Room:        m.Room,
		Username:    m.Username,
		Content:     m.Content,
		Attachments: m.Attachments,
		ReplyTo:     m.ReplyTo,
	}
}
