package chat

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"chat-connect/internal/apperr"
	"chat-connect/internal/user"
)

const previewMaxRunes = 60

// roomStore is what the resolver needs from the chat repository.
type roomStore interface {
	Insert(ctx context.Context, userOneID, userTwoID int64) (*Room, error)
	FindByPair(ctx context.Context, userOneID, userTwoID int64) (*Room, error)
	FindByID(ctx context.Context, id int64) (*Room, error)
	UnreadCount(ctx context.Context, roomID, receiverID int64) (int64, error)
	LastMessage(ctx context.Context, roomID int64) (string, time.Time, bool, error)
}

// userDirectory is what the service needs from the user repository.
type userDirectory interface {
	GetByID(ctx context.Context, id int64) (*user.User, error)
	ListOthers(ctx context.Context, excludeID int64) ([]user.User, error)
}

type presenceChecker interface {
	IsOnline(userID int64) bool
}

type Service struct {
	rooms    roomStore
	users    userDirectory
	presence presenceChecker
	logger   zerolog.Logger
}

func NewService(rooms roomStore, users userDirectory, presence presenceChecker, logger zerolog.Logger) *Service {
	return &Service{
		rooms:    rooms,
		users:    users,
		presence: presence,
		logger:   logger,
	}
}

// normalizePair orders two user ids so the smaller one is always userOne.
// This ordering is the only mechanism that lets the unique constraint prevent
// duplicate rooms no matter which participant initiates.
func normalizePair(a, b int64) (int64, int64) {
	if a < b {
		return a, b
	}
	return b, a
}

// GetOrCreateRoom resolves the single conversation between the current user
// and participantID, creating it on first contact. Two concurrent first
// contacts are resolved by the store's unique constraint: the loser of the
// race re-reads the row the winner inserted.
func (s *Service) GetOrCreateRoom(ctx context.Context, currentUserID, participantID int64) (*Room, error) {
	if participantID == currentUserID {
		return nil, apperr.Validation("You cannot create a room with yourself")
	}
	if _, err := s.users.GetByID(ctx, participantID); err != nil {
		return nil, err
	}

	userOne, userTwo := normalizePair(currentUserID, participantID)

	room, err := s.rooms.FindByPair(ctx, userOne, userTwo)
	if err == nil {
		return room, nil
	}
	if apperr.KindOf(err) != apperr.KindNotFound {
		return nil, err
	}

	room, err = s.rooms.Insert(ctx, userOne, userTwo)
	if err == nil {
		s.logger.Info().
			Int64("room_id", room.ID).
			Int64("user_one", userOne).
			Int64("user_two", userTwo).
			Msg("chat room created")
		return room, nil
	}
	if !errors.Is(err, ErrDuplicatePair) {
		return nil, err
	}

	// A concurrent request created the same normalized pair first; the row
	// must exist now. If the re-read still misses, surface a retryable
	// conflict rather than crashing.
	s.logger.Debug().
		Int64("user_one", userOne).
		Int64("user_two", userTwo).
		Msg("concurrent chat room creation detected, refetching")

	room, err = s.rooms.FindByPair(ctx, userOne, userTwo)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, apperr.Conflict("Unable to resolve chat room, please retry")
		}
		return nil, err
	}
	return room, nil
}

// GetOrCreateRoomResponse is the REST shape of GetOrCreateRoom, resolving the
// other participant's profile for the client.
func (s *Service) GetOrCreateRoomResponse(ctx context.Context, currentUserID, participantID int64) (*RoomResponse, error) {
	room, err := s.GetOrCreateRoom(ctx, currentUserID, participantID)
	if err != nil {
		return nil, err
	}

	other, err := s.users.GetByID(ctx, room.OtherParticipant(currentUserID))
	if err != nil {
		return nil, err
	}

	return &RoomResponse{
		ChatRoomID:       room.ID,
		ParticipantID:    other.ID,
		ParticipantName:  other.Name,
		ParticipantEmail: other.Email,
	}, nil
}

// AuthorizedRoom fetches a room by id and confirms the caller is one of its
// two participants.
func (s *Service) AuthorizedRoom(ctx context.Context, roomID, userID int64) (*Room, error) {
	room, err := s.rooms.FindByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.HasParticipant(userID) {
		return nil, apperr.Forbidden("You do not have access to this chat room")
	}
	return room, nil
}

// Sidebar lists every other user as a potential conversation partner, with
// online flag, unread count and last-message preview where a room exists.
// Sorted most-recent-conversation first (users without one last), then by
// name case-insensitively.
func (s *Service) Sidebar(ctx context.Context, currentUserID int64) ([]Summary, error) {
	others, err := s.users.ListOthers(ctx, currentUserID)
	if err != nil {
		return nil, err
	}

	summaries := make([]Summary, 0, len(others))
	for _, u := range others {
		summary := Summary{
			UserID:          u.ID,
			Name:            u.Name,
			Email:           u.Email,
			ProfileImageURL: u.ProfileImageURL,
			Online:          s.presence.IsOnline(u.ID),
		}

		userOne, userTwo := normalizePair(currentUserID, u.ID)
		room, err := s.rooms.FindByPair(ctx, userOne, userTwo)
		switch {
		case err == nil:
			summary.ChatRoomID = &room.ID

			unread, err := s.rooms.UnreadCount(ctx, room.ID, currentUserID)
			if err != nil {
				return nil, err
			}
			summary.UnreadCount = unread

			content, at, ok, err := s.rooms.LastMessage(ctx, room.ID)
			if err != nil {
				return nil, err
			}
			if ok {
				preview := shortenPreview(content)
				summary.LastMessagePreview = &preview
				summary.LastMessageAt = &at
			}
		case apperr.KindOf(err) == apperr.KindNotFound:
			// No conversation yet, leave the zero values.
		default:
			return nil, err
		}

		summaries = append(summaries, summary)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		a, b := summaries[i].LastMessageAt, summaries[j].LastMessageAt
		switch {
		case a != nil && b != nil && !a.Equal(*b):
			return a.After(*b)
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		}
		return strings.ToLower(summaries[i].Name) < strings.ToLower(summaries[j].Name)
	})

	return summaries, nil
}

func shortenPreview(content string) string {
	trimmed := strings.TrimSpace(content)
	runes := []rune(trimmed)
	if len(runes) <= previewMaxRunes {
		return trimmed
	}
	return string(runes[:previewMaxRunes]) + "..."
}
