package message

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"chat-connect/internal/apperr"
	"chat-connect/internal/chat"
	"chat-connect/internal/event"
	"chat-connect/internal/metrics"
)

const (
	maxContentRunes = 2000
	defaultPageSize = 30
	maxPageSize     = 100
)

// store is what the service needs from the message repository.
type store interface {
	Insert(ctx context.Context, m *Message) (*Message, error)
	PageByRoom(ctx context.Context, roomID int64, page, size int) ([]Message, int64, error)
	MarkRead(ctx context.Context, roomID, readerID, senderID int64, readAt time.Time) (int64, error)
	MarkDelivered(ctx context.Context, roomID, receiverID int64, deliveredAt time.Time) (int64, error)
}

// roomResolver is what the pipeline needs from the chat service.
type roomResolver interface {
	GetOrCreateRoom(ctx context.Context, currentUserID, participantID int64) (*chat.Room, error)
	AuthorizedRoom(ctx context.Context, roomID, userID int64) (*chat.Room, error)
}

type presenceChecker interface {
	IsOnline(userID int64) bool
}

// userChecker is what the typing path needs from the user repository.
type userChecker interface {
	ExistsByID(ctx context.Context, id int64) (bool, error)
}

// publisher pushes an event to every live session of one user. Delivery is
// fire-and-forget: the durable row is committed before any publish, so a
// missed event is recovered through history, never retried.
type publisher interface {
	Publish(userID int64, topic string, payload any)
}

type Service struct {
	repo      store
	rooms     roomResolver
	presence  presenceChecker
	users     userChecker
	publisher publisher
	logger    zerolog.Logger
}

func NewService(repo store, rooms roomResolver, presence presenceChecker, users userChecker, pub publisher, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		rooms:     rooms,
		presence:  presence,
		users:     users,
		publisher: pub,
		logger:    logger,
	}
}

// Send validates and persists an outgoing message, then pushes the payload to
// both participants. The sender receives its own message back as the
// acknowledgment carrying the server-assigned id and status.
func (s *Service) Send(ctx context.Context, senderID int64, req *SendRequest) (*Payload, error) {
	room, err := s.resolveRoom(ctx, senderID, req)
	if err != nil {
		return nil, err
	}

	receiverID := room.OtherParticipant(senderID)
	if receiverID != req.ReceiverID {
		return nil, apperr.Validation("Receiver does not belong to this room")
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, apperr.Validation("Message content cannot be empty")
	}
	if len([]rune(content)) > maxContentRunes {
		return nil, apperr.Validation("Message must be at most 2000 characters")
	}

	// Point-in-time presence snapshot: if the receiver flips on or off a
	// microsecond later, the stored status stays as decided here.
	now := time.Now().UTC()
	m := &Message{
		ChatRoomID: room.ID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		Status:     StatusSent,
	}
	if s.presence.IsOnline(receiverID) {
		m.Status = StatusDelivered
		m.DeliveredAt = &now
	}

	saved, err := s.repo.Insert(ctx, m)
	if err != nil {
		return nil, err
	}
	metrics.MessagesSentTotal.WithLabelValues(string(saved.Status)).Inc()

	payload := toPayload(saved, req.ClientMessageID)
	s.logger.Debug().
		Int64("message_id", payload.ID).
		Int64("room_id", payload.ChatRoomID).
		Int64("sender_id", payload.SenderID).
		Int64("receiver_id", payload.ReceiverID).
		Str("status", string(payload.Status)).
		Msg("message persisted")

	s.publisher.Publish(senderID, event.TopicMessage, payload)
	s.publisher.Publish(receiverID, event.TopicMessage, payload)

	return &payload, nil
}

// MarkRead bulk-flips every unread message addressed to readerID in the room
// and, when anything changed, emits exactly one read receipt to the other
// participant. A duplicate call finds zero eligible rows and emits nothing.
func (s *Service) MarkRead(ctx context.Context, readerID, roomID int64) (int64, error) {
	room, err := s.rooms.AuthorizedRoom(ctx, roomID, readerID)
	if err != nil {
		return 0, err
	}
	otherID := room.OtherParticipant(readerID)

	readAt := time.Now().UTC()
	updated, err := s.repo.MarkRead(ctx, room.ID, readerID, otherID, readAt)
	if err != nil {
		return 0, err
	}

	if updated > 0 {
		s.publisher.Publish(otherID, event.TopicReadReceipt, ReadReceipt{
			ChatRoomID: room.ID,
			ReaderID:   readerID,
			ReadAt:     readAt,
		})
	}
	return updated, nil
}

// MarkDelivered flips the room's SENT messages addressed to receiverID to
// DELIVERED. The sender is not notified; it observes the change through a
// later history fetch.
func (s *Service) MarkDelivered(ctx context.Context, receiverID, roomID int64) (int64, error) {
	room, err := s.rooms.AuthorizedRoom(ctx, roomID, receiverID)
	if err != nil {
		return 0, err
	}

	return s.repo.MarkDelivered(ctx, room.ID, receiverID, time.Now().UTC())
}

// Typing forwards a typing indicator to the receiver only. Typing at yourself
// is silently ignored.
func (s *Service) Typing(ctx context.Context, senderID int64, req *TypingRequest) error {
	if req.ReceiverID == 0 {
		return apperr.Validation("Receiver is required")
	}
	if req.ReceiverID == senderID {
		return nil
	}

	if req.ChatRoomID != nil {
		room, err := s.rooms.AuthorizedRoom(ctx, *req.ChatRoomID, senderID)
		if err != nil {
			return err
		}
		if room.OtherParticipant(senderID) != req.ReceiverID {
			return apperr.Validation("Invalid receiver for this room")
		}
	} else {
		// Without a room the participant check above cannot vouch for the
		// receiver; verify it resolves to a real user before publishing.
		exists, err := s.users.ExistsByID(ctx, req.ReceiverID)
		if err != nil {
			return err
		}
		if !exists {
			return apperr.NotFound("Typing target user not found")
		}
	}

	s.publisher.Publish(req.ReceiverID, event.TopicTyping, TypingEvent{
		ChatRoomID: req.ChatRoomID,
		SenderID:   senderID,
		Typing:     req.Typing,
	})
	return nil
}

// History returns one page of a room's messages. Pages are addressed
// newest-first but each page is returned chronologically ascending.
func (s *Service) History(ctx context.Context, userID, roomID int64, page, size int) (*PageResponse, error) {
	if page < 0 {
		page = 0
	}
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	room, err := s.rooms.AuthorizedRoom(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}

	messages, total, err := s.repo.PageByRoom(ctx, room.ID, page, size)
	if err != nil {
		return nil, err
	}

	payloads := make([]Payload, 0, len(messages))
	for i := len(messages) - 1; i >= 0; i-- {
		payloads = append(payloads, toPayload(&messages[i], ""))
	}

	totalPages := int((total + int64(size) - 1) / int64(size))
	return &PageResponse{
		Messages:      payloads,
		Page:          page,
		Size:          size,
		TotalElements: total,
		TotalPages:    totalPages,
		Last:          page >= totalPages-1,
	}, nil
}

func (s *Service) resolveRoom(ctx context.Context, senderID int64, req *SendRequest) (*chat.Room, error) {
	if req.ReceiverID == 0 {
		return nil, apperr.Validation("Receiver is required")
	}
	if req.ChatRoomID != nil {
		return s.rooms.AuthorizedRoom(ctx, *req.ChatRoomID, senderID)
	}
	return s.rooms.GetOrCreateRoom(ctx, senderID, req.ReceiverID)
}

func toPayload(m *Message, clientMessageID string) Payload {
	return Payload{
		ID:              m.ID,
		ClientMessageID: clientMessageID,
		ChatRoomID:      m.ChatRoomID,
		SenderID:        m.SenderID,
		ReceiverID:      m.ReceiverID,
		Content:         m.Content,
		Status:          m.Status,
		CreatedAt:       m.CreatedAt,
		DeliveredAt:     m.DeliveredAt,
		ReadAt:          m.ReadAt,
	}
}
