package ws

import "fmt"

// RoomKind tags which delivery model a room belongs to. Conversation rooms
// carry the durable 1:1 model, item rooms the ephemeral per-item discussion.
type RoomKind string

const (
	RoomConversation RoomKind = "conversation"
	RoomItem         RoomKind = "item"
)

// Valid reports whether k is a known room kind.
func (k RoomKind) Valid() bool {
	return k == RoomConversation || k == RoomItem
}

// Room identifies one fan-out unit in the hub. It is comparable and used
// directly as a registry key.
type Room struct {
	Kind RoomKind `json:"kind"`
	ID   int      `json:"id"`
}

func (r Room) String() string {
	return fmt.Sprintf("%s:%d", r.Kind, r.ID)
}
