package chat

import "time"

// Room is one two-party conversation. The pair is stored ordered
// (UserOneID < UserTwoID) so the database's unique constraint on the pair is
// enough to guarantee at most one room per pair of users.
type Room struct {
	ID        int64     `json:"id"`
	UserOneID int64     `json:"user_one_id"`
	UserTwoID int64     `json:"user_two_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *Room) HasParticipant(userID int64) bool {
	return r.UserOneID == userID || r.UserTwoID == userID
}

// OtherParticipant returns the id of the participant that is not userID.
// Callers must check HasParticipant first.
func (r *Room) OtherParticipant(userID int64) int64 {
	if r.UserOneID == userID {
		return r.UserTwoID
	}
	return r.UserOneID
}

// RoomResponse is what the fetch-or-create endpoint returns.
type RoomResponse struct {
	ChatRoomID       int64  `json:"chat_room_id"`
	ParticipantID    int64  `json:"participant_id"`
	ParticipantName  string `json:"participant_name"`
	ParticipantEmail string `json:"participant_email"`
}

// Summary is one sidebar row: a potential conversation partner with the state
// of the conversation, if any exists yet.
type Summary struct {
	UserID             int64      `json:"user_id"`
	Name               string     `json:"name"`
	Email              string     `json:"email"`
	ProfileImageURL    *string    `json:"profile_image_url,omitempty"`
	Online             bool       `json:"online"`
	UnreadCount        int64      `json:"unread_count"`
	LastMessagePreview *string    `json:"last_message_preview,omitempty"`
	LastMessageAt      *time.Time `json:"last_message_at,omitempty"`
	ChatRoomID         *int64     `json:"chat_room_id,omitempty"`
}
