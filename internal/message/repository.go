package message

import (
	"context"
	"database/sql"
	"time"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Insert(ctx context.Context, m *Message) (*Message, error) {
	query := `INSERT INTO messages
	              (chat_room_id, sender_id, receiver_id, content, status, delivered_at)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		m.ChatRoomID, m.SenderID, m.ReceiverID, m.Content, m.Status, m.DeliveredAt).
		Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// PageByRoom returns one reverse-chronological page of a room's messages plus
// the total row count for the room.
func (r *Repository) PageByRoom(ctx context.Context, roomID int64, page, size int) ([]Message, int64, error) {
	var total int64
	countQuery := `SELECT COUNT(*) FROM messages WHERE chat_room_id = $1`
	if err := r.db.QueryRowContext(ctx, countQuery, roomID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT id, chat_room_id, sender_id, receiver_id, content, status,
	                 created_at, delivered_at, read_at
	          FROM messages
	          WHERE chat_room_id = $1
	          ORDER BY created_at DESC, id DESC
	          LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, roomID, size, page*size)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ChatRoomID, &m.SenderID, &m.ReceiverID, &m.Content,
			&m.Status, &m.CreatedAt, &m.DeliveredAt, &m.ReadAt); err != nil {
			return nil, 0, err
		}
		messages = append(messages, m)
	}
	return messages, total, rows.Err()
}

// MarkRead bulk-updates every message in the room sent by senderID to
// readerID that is not yet READ. The conditional predicate makes concurrent
// duplicate calls idempotent, and the delivered timestamp is backfilled so a
// READ row always carries one.
func (r *Repository) MarkRead(ctx context.Context, roomID, readerID, senderID int64, readAt time.Time) (int64, error) {
	query := `UPDATE messages
	          SET status = 'READ', read_at = $4, delivered_at = COALESCE(delivered_at, $4)
	          WHERE chat_room_id = $1 AND receiver_id = $2 AND sender_id = $3
	            AND status <> 'READ'`

	res, err := r.db.ExecContext(ctx, query, roomID, readerID, senderID, readAt)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// MarkDelivered flips the room's SENT messages addressed to receiverID to
// DELIVERED, used when a previously offline receiver reconnects.
func (r *Repository) MarkDelivered(ctx context.Context, roomID, receiverID int64, deliveredAt time.Time) (int64, error) {
	query := `UPDATE messages
	          SET status = 'DELIVERED', delivered_at = $3
	          WHERE chat_room_id = $1 AND receiver_id = $2 AND status = 'SENT'`

	res, err := r.db.ExecContext(ctx, query, roomID, receiverID, deliveredAt)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
