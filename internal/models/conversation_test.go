package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConversationParticipants(t *testing.T) {
	conv := Conversation{ID: 1, User1ID: 3, User2ID: 8}

	assert.True(t, conv.HasParticipant(3))
	assert.True(t, conv.HasParticipant(8))
	assert.False(t, conv.HasParticipant(5))

	assert.Equal(t, 8, conv.OtherParticipant(3))
	assert.Equal(t, 3, conv.OtherParticipant(8))
}

func TestUnreadFor(t *testing.T) {
	conv := Conversation{User1ID: 3, User2ID: 8, UnreadUser1: 2, UnreadUser2: 5}

	assert.Equal(t, 2, conv.UnreadFor(3))
	assert.Equal(t, 5, conv.UnreadFor(8))
	assert.Equal(t, 0, conv.UnreadFor(99))
}
