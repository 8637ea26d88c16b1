package message

import "time"

// Status is the message delivery state machine. Transitions are monotonic:
// SENT -> DELIVERED -> READ, never backward.
type Status string

const (
	StatusSent      Status = "SENT"
	StatusDelivered Status = "DELIVERED"
	StatusRead      Status = "READ"
)

type Message struct {
	ID          int64      `json:"id"`
	ChatRoomID  int64      `json:"chat_room_id"`
	SenderID    int64      `json:"sender_id"`
	ReceiverID  int64      `json:"receiver_id"`
	Content     string     `json:"content"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
}

// SendRequest is an outgoing message from a client. ChatRoomID is optional:
// without it the room is resolved from the receiver. ClientMessageID is an
// idempotency token echoed back to the sender's own sessions so the client
// can reconcile its optimistic copy; it is never persisted.
type SendRequest struct {
	ChatRoomID      *int64 `json:"chat_room_id,omitempty"`
	ReceiverID      int64  `json:"receiver_id"`
	Content         string `json:"content"`
	ClientMessageID string `json:"client_message_id,omitempty"`
}

// Payload is the message event pushed to both participants, and the history
// item shape.
type Payload struct {
	ID              int64      `json:"id"`
	ClientMessageID string     `json:"client_message_id,omitempty"`
	ChatRoomID      int64      `json:"chat_room_id"`
	SenderID        int64      `json:"sender_id"`
	ReceiverID      int64      `json:"receiver_id"`
	Content         string     `json:"content"`
	Status          Status     `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	DeliveredAt     *time.Time `json:"delivered_at,omitempty"`
	ReadAt          *time.Time `json:"read_at,omitempty"`
}

// ReadReceipt is pushed to the other participant when a bulk read flips at
// least one message. One event per markRead call, not one per message.
type ReadReceipt struct {
	ChatRoomID int64     `json:"chat_room_id"`
	ReaderID   int64     `json:"reader_id"`
	ReadAt     time.Time `json:"read_at"`
}

// TypingRequest is the inbound typing indicator.
type TypingRequest struct {
	ChatRoomID *int64 `json:"chat_room_id,omitempty"`
	ReceiverID int64  `json:"receiver_id"`
	Typing     bool   `json:"typing"`
}

// TypingEvent is forwarded to the receiver only.
type TypingEvent struct {
	ChatRoomID *int64 `json:"chat_room_id,omitempty"`
	SenderID   int64  `json:"sender_id"`
	Typing     bool   `json:"typing"`
}

// RoomAckRequest addresses a whole conversation for delivered/read acks.
type RoomAckRequest struct {
	ChatRoomID int64 `json:"chat_room_id"`
}

// PageResponse is one page of history, chronologically ascending within the
// page even though pages are requested newest-first.
type PageResponse struct {
	Messages      []Payload `json:"messages"`
	Page          int       `json:"page"`
	Size          int       `json:"size"`
	TotalElements int64     `json:"total_elements"`
	TotalPages    int       `json:"total_pages"`
	Last          bool      `json:"last"`
}
