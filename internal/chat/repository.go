package chat

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"chat-connect/internal/apperr"
)

// ErrDuplicatePair is returned by Insert when the unique constraint on the
// normalized pair fires, meaning a concurrent caller created the room first.
var ErrDuplicatePair = errors.New("chat room pair already exists")

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Insert persists a room for an already-normalized pair (userOne < userTwo).
func (r *Repository) Insert(ctx context.Context, userOneID, userTwoID int64) (*Room, error) {
	room := &Room{UserOneID: userOneID, UserTwoID: userTwoID}
	query := `INSERT INTO chat_rooms (user_one_id, user_two_id) VALUES ($1, $2)
	          RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query, userOneID, userTwoID).
		Scan(&room.ID, &room.CreatedAt, &room.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicatePair
		}
		return nil, err
	}
	return room, nil
}

// FindByPair looks up the room for an already-normalized pair.
func (r *Repository) FindByPair(ctx context.Context, userOneID, userTwoID int64) (*Room, error) {
	room := &Room{}
	query := `SELECT id, user_one_id, user_two_id, created_at, updated_at
	          FROM chat_rooms WHERE user_one_id = $1 AND user_two_id = $2`

	err := r.db.QueryRowContext(ctx, query, userOneID, userTwoID).
		Scan(&room.ID, &room.UserOneID, &room.UserTwoID, &room.CreatedAt, &room.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("Chat room not found")
		}
		return nil, err
	}
	return room, nil
}

func (r *Repository) FindByID(ctx context.Context, id int64) (*Room, error) {
	room := &Room{}
	query := `SELECT id, user_one_id, user_two_id, created_at, updated_at
	          FROM chat_rooms WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&room.ID, &room.UserOneID, &room.UserTwoID, &room.CreatedAt, &room.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("Chat room not found")
		}
		return nil, err
	}
	return room, nil
}

// UnreadCount counts messages in the room addressed to receiverID that the
// receiver has not read yet.
func (r *Repository) UnreadCount(ctx context.Context, roomID, receiverID int64) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM messages
	          WHERE chat_room_id = $1 AND receiver_id = $2 AND status IN ('SENT', 'DELIVERED')`

	if err := r.db.QueryRowContext(ctx, query, roomID, receiverID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// LastMessage returns the content and creation time of the most recent message
// in the room, or ok=false when the room has no messages yet.
func (r *Repository) LastMessage(ctx context.Context, roomID int64) (string, time.Time, bool, error) {
	var content string
	var createdAt time.Time
	query := `SELECT content, created_at FROM messages
	          WHERE chat_room_id = $1 ORDER BY created_at DESC LIMIT 1`

	err := r.db.QueryRowContext(ctx, query, roomID).Scan(&content, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", time.Time{}, false, nil
		}
		return "", time.Time{}, false, err
	}
	return content, createdAt, true, nil
}
