package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/room-relay/backend/internal/model"
)

// RecordingRepository provides data access for call recordings.
type RecordingRepository struct {
	db *sql.DB
}

// NewRecordingRepository creates a new RecordingRepository.
func NewRecordingRepository(db *sql.DB) *RecordingRepository {
	return &RecordingRepository{db: db}
}

// Create inserts a call recording and sets its ID.
func (r *RecordingRepository) Create(ctx context.Context, rec *model.CallRecording) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = rec.CreatedAt
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO call_recordings (caller, receiver, room_name, file_url, duration, started_at, ended_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.Caller,
		rec.Receiver,
		rec.RoomName,
		rec.URL,
		rec.Duration,
		rec.StartedAt,
		rec.EndedAt,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create call recording: %w", err)
	}

	if rec.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("failed to get call recording id: %w", err)
	}
	return nil
}

// GetByID retrieves a call recording by its ID.
func (r *RecordingRepository) GetByID(ctx context.Context, id int64) (*model.CallRecording, error) {
	rec := &model.CallRecording{}
	var roomName sql.NullString
	var duration sql.NullInt64
	var endedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, `
		SELECT id, caller, receiver, room_name, file_url, duration, started_at, ended_at, created_at
		FROM call_recordings
		WHERE id = ?
	`, id).Scan(
		&rec.ID,
		&rec.Caller,
		&rec.Receiver,
		&roomName,
		&rec.URL,
		&duration,
		&rec.StartedAt,
		&endedAt,
		&rec.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, model.ErrRecordingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get call recording: %w", err)
	}

	if roomName.Valid {
		rec.RoomName = &roomName.String
	}
	if duration.Valid {
		d := int(duration.Int64)
		rec.Duration = &d
	}
	if endedAt.Valid {
		rec.EndedAt = &endedAt.Time
	}
	return rec, nil
}
