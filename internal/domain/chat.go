package domain

import "time"

// ChatRoom is a two-party conversation, optionally attached to a listing.
// Rooms are never deleted; deactivation hides them from the room list.
type ChatRoom struct {
	ID             int64     `json:"id"`
	ParticipantIDs []int64   `json:"participantIds"`
	ProductID      int64     `json:"productId,omitempty"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// HasParticipant reports whether the user belongs to the room.
func (r ChatRoom) HasParticipant(userID int64) bool {
	for _, id := range r.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// ChatMessage is one message inside a chat room. Content is stored already
// escaped.
type ChatMessage struct {
	ID         int64     `json:"id"`
	RoomID     int64     `json:"roomId"`
	SenderID   int64     `json:"senderId"`
	SenderName string    `json:"senderName"`
	Content    string    `json:"content"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"createdAt"`
}
