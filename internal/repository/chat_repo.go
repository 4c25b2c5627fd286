package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/room-relay/backend/internal/model"
)

// ChatRepository provides data access for rooms, messages and attachments.
type ChatRepository struct {
	db *sql.DB
}

// NewChatRepository creates a new ChatRepository.
func NewChatRepository(db *sql.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// EnsureRoom returns the room with the given name, creating it if needed.
func (r *ChatRepository) EnsureRoom(ctx context.Context, name string) (*model.Room, error) {
	if name == "" {
		return nil, model.ErrRoomNameRequired
	}
	return ensureRoom(ctx, r.db, name)
}

func ensureRoom(ctx context.Context, q queryer, name string) (*model.Room, error) {
	_, err := q.ExecContext(ctx,
		`INSERT INTO rooms (name, created_at) VALUES (?, ?) ON CONFLICT(name) DO NOTHING`,
		name, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	room := &model.Room{}
	err = q.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM rooms WHERE name = ?`, name,
	).Scan(&room.ID, &room.Name, &room.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	return room, nil
}

// GetRoom retrieves a room by name.
func (r *ChatRepository) GetRoom(ctx context.Context, name string) (*model.Room, error) {
	room := &model.Room{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM rooms WHERE name = ?`, name,
	).Scan(&room.ID, &room.Name, &room.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, model.ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	return room, nil
}

// SaveMessage stores a message and its attachments in a single transaction.
// The room is created if it does not exist yet. A reply reference that does
// not point at a message of the same room is stored as NULL.
func (r *ChatRepository) SaveMessage(ctx context.Context, in model.NewMessage) (*model.Message, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	room, err := ensureRoom(ctx, tx, in.Room)
	if err != nil {
		return nil, err
	}

	replyTo, err := resolveReply(ctx, tx, room.ID, in.ReplyTo)
	if err != nil {
		return nil, err
	}

	var username *string
	if in.Username != "" {
		u := in.Username
		username = &u
	}

	msg := &model.Message{
		RoomID:    room.ID,
		Username:  username,
		Content:   in.Content,
		ReplyTo:   replyTo,
		CreatedAt: time.Now().UTC(),
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO messages (room_id, username, content, reply_to, created_at) VALUES (?, ?, ?, ?, ?)`,
		msg.RoomID, msg.Username, msg.Content, msg.ReplyTo, msg.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}
	if msg.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("failed to get message id: %w", err)
	}

	msg.Attachments = make([]model.Attachment, 0, len(in.Attachments))
	for _, a := range in.Attachments {
		a.Kind = model.NormalizeKind(string(a.Kind))
		_, err := tx.ExecContext(ctx,
			`INSERT INTO attachments (message_id, position, kind, url, name, duration) VALUES (?, ?, ?, ?, ?, ?)`,
			msg.ID, len(msg.Attachments), string(a.Kind), a.URL, a.Name, a.Duration,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create attachment: %w", err)
		}
		msg.Attachments = append(msg.Attachments, a)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit message: %w", err)
	}
	return msg, nil
}

func resolveReply(ctx context.Context, q queryer, roomID int64, replyTo *int64) (*int64, error) {
	if replyTo == nil {
		return nil, nil
	}
	var id int64
	err := q.QueryRowContext(ctx,
		`SELECT id FROM messages WHERE id = ? AND room_id = ?`, *replyTo, roomID,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve reply: %w", err)
	}
	return &id, nil
}

// ListMessages returns the latest limit messages of a room, oldest first.
func (r *ChatRepository) ListMessages(ctx context.Context, roomName string, limit int) ([]*model.Message, error) {
	room, err := r.GetRoom(ctx, roomName)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, room_id, username, content, reply_to, created_at FROM (
			SELECT id, room_id, username, content, reply_to, created_at
			FROM messages
			WHERE room_id = ?
			ORDER BY id DESC
			LIMIT ?
		) ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, room.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []*model.Message
	byID := make(map[int64]*model.Message)
	for rows.Next() {
		msg := &model.Message{Attachments: []model.Attachment{}}
		var username sql.NullString
		var replyTo sql.NullInt64
		if err := rows.Scan(&msg.ID, &msg.RoomID, &username, &msg.Content, &replyTo, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if username.Valid {
			msg.Username = &username.String
		}
		if replyTo.Valid {
			msg.ReplyTo = &replyTo.Int64
		}
		messages = append(messages, msg)
		byID[msg.ID] = msg
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	if len(messages) == 0 {
		return messages, nil
	}

	if err := r.loadAttachments(ctx, room.ID, messages[0].ID, byID); err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *ChatRepository) loadAttachments(ctx context.Context, roomID, fromID int64, byID map[int64]*model.Message) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.message_id, a.kind, a.url, a.name, a.duration
		FROM attachments a
		JOIN messages m ON m.id = a.message_id
		WHERE m.room_id = ? AND m.id >= ?
		ORDER BY a.message_id, a.position
	`, roomID, fromID)
	if err != nil {
		return fmt.Errorf("failed to list attachments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var messageID int64
		var a model.Attachment
		var kind string
		if err := rows.Scan(&messageID, &kind, &a.URL, &a.Name, &a.Duration); err != nil {
			return fmt.Errorf("failed to scan attachment: %w", err)
		}
		a.Kind = model.AttachmentKind(kind)
		if msg, ok := byID[messageID]; ok {
			msg.Attachments = append(msg.Attachments, a)
		}
	}
	return rows.Err()
}
