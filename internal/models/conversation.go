package models

import "time"

// ConversationStatus is the lifecycle state of a conversation.
type ConversationStatus string

const (
	StatusActive   ConversationStatus = "active"
	StatusResolved ConversationStatus = "resolved"
	StatusArchived ConversationStatus = "archived"
)

// Conversation is a private conversation between exactly two users,
// optionally scoped to the lost/found item it concerns. Participants are
// stored normalized (user1_id < user2_id) so the pair is order-insensitive.
type Conversation struct {
	ID              int                `db:"id" json:"id"`
	User1ID         int                `db:"user1_id" json:"user1_id"`
	User2ID         int                `db:"user2_id" json:"user2_id"`
	ItemID          *int               `db:"item_id" json:"item_id,omitempty"`
	Status          ConversationStatus `db:"status" json:"status"`
	LastMessage     string             `db:"last_message" json:"last_message"`
	LastMessageTime time.Time          `db:"last_message_time" json:"last_message_time"`
	UnreadUser1     int                `db:"unread_user1" json:"unread_user1"`
	UnreadUser2     int                `db:"unread_user2" json:"unread_user2"`
	CreatedAt       time.Time          `db:"created_at" json:"created_at"`
}

// HasParticipant reports whether userID is one of the two participants.
func (c Conversation) HasParticipant(userID int) bool {
	return c.User1ID == userID || c.User2ID == userID
}

// OtherParticipant returns the counterpart of userID, or 0 if userID is
// not a participant.
func (c Conversation) OtherParticipant(userID int) int {
	switch userID {
	case c.User1ID:
		return c.User2ID
	case c.User2ID:
		return c.User1ID
	}
	return 0
}

// UnreadFor returns the pending-unread counter for the given participant.
func (c Conversation) UnreadFor(userID int) int {
	switch userID {
	case c.User1ID:
		return c.UnreadUser1
	case c.User2ID:
		return c.UnreadUser2
	}
	return 0
}

// ConversationSummary is the API-friendly view of a conversation for one
// participant, as returned by the list endpoint.
type ConversationSummary struct {
	ConversationID  int                `json:"conversation_id"`
	OtherUserID     int                `json:"other_user_id"`
	OtherUserName   string             `json:"other_user_name,omitempty"`
	ItemID          *int               `json:"item_id,omitempty"`
	ItemName        string             `json:"item_name,omitempty"`
	ItemType        string             `json:"item_type,omitempty"`
	Status          ConversationStatus `json:"status"`
	LastMessage     string             `json:"last_message"`
	LastMessageTime time.Time          `json:"last_message_time"`
	UnreadCount     int                `json:"unread_count"`
	CreatedAt       time.Time          `json:"created_at"`
}
