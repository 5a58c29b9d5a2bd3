package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoomKindValid(t *testing.T) {
	assert.True(t, RoomConversation.Valid())
	assert.True(t, RoomItem.Valid())
	assert.False(t, RoomKind("group").Valid())
	assert.False(t, RoomKind("").Valid())
}

func TestRoomString(t *testing.T) {
	assert.Equal(t, "conversation:5", Room{Kind: RoomConversation, ID: 5}.String())
	assert.Equal(t, "item:9", Room{Kind: RoomItem, ID: 9}.String())
}
