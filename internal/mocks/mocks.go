package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"messaging-service/internal/clients"
	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
)

type ConversationRepositoryMock struct {
	mock.Mock
}

func (m *ConversationRepositoryMock) FindOrCreate(ctx context.Context, userID, otherID int, itemID *int) (models.Conversation, error) {
	args := m.Called(ctx, userID, otherID, itemID)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationRepositoryMock) Get(ctx context.Context, conversationID int) (models.Conversation, error) {
	args := m.Called(ctx, conversationID)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationRepositoryMock) IsParticipant(ctx context.Context, conversationID, userID int) (bool, error) {
	args := m.Called(ctx, conversationID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *ConversationRepositoryMock) ListForUser(ctx context.Context, userID int) ([]models.Conversation, error) {
	args := m.Called(ctx, userID)
	var convs []models.Conversation
	if val := args.Get(0); val != nil {
		convs = val.([]models.Conversation)
	}
	return convs, args.Error(1)
}

func (m *ConversationRepositoryMock) Transition(ctx context.Context, conversationID int, to models.ConversationStatus) (models.Conversation, error) {
	args := m.Called(ctx, conversationID, to)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) Append(ctx context.Context, conversationID, senderID int, content string) (models.Message, error) {
	args := m.Called(ctx, conversationID, senderID, content)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListForConversation(ctx context.Context, conversationID int) ([]models.Message, error) {
	args := m.Called(ctx, conversationID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) MarkRead(ctx context.Context, conversationID, userID int) error {
	args := m.Called(ctx, conversationID, userID)
	return args.Error(0)
}

type ItemMessageRepositoryMock struct {
	mock.Mock
}

func (m *ItemMessageRepositoryMock) Create(ctx context.Context, itemID, senderID int, senderName, content string) (models.ItemMessage, error) {
	args := m.Called(ctx, itemID, senderID, senderName, content)
	var msg models.ItemMessage
	if val := args.Get(0); val != nil {
		msg = val.(models.ItemMessage)
	}
	return msg, args.Error(1)
}

func (m *ItemMessageRepositoryMock) ListForItem(ctx context.Context, itemID int) ([]models.ItemMessage, error) {
	args := m.Called(ctx, itemID)
	var msgs []models.ItemMessage
	if val := args.Get(0); val != nil {
		msgs = val.([]models.ItemMessage)
	}
	return msgs, args.Error(1)
}

func (m *ItemMessageRepositoryMock) DeleteForItem(ctx context.Context, itemID int) (int64, error) {
	args := m.Called(ctx, itemID)
	return args.Get(0).(int64), args.Error(1)
}

type UserDirectoryMock struct {
	mock.Mock
}

func (m *UserDirectoryMock) BulkUsers(ctx context.Context, ids []int) ([]clients.User, error) {
	args := m.Called(ctx, ids)
	var users []clients.User
	if val := args.Get(0); val != nil {
		users = val.([]clients.User)
	}
	return users, args.Error(1)
}

type ItemCatalogMock struct {
	mock.Mock
}

func (m *ItemCatalogMock) BulkItems(ctx context.Context, ids []int) ([]clients.Item, error) {
	args := m.Called(ctx, ids)
	var items []clients.Item
	if val := args.Get(0); val != nil {
		items = val.([]clients.Item)
	}
	return items, args.Error(1)
}

func (m *ItemCatalogMock) ResolveItem(ctx context.Context, itemID int) error {
	args := m.Called(ctx, itemID)
	return args.Error(0)
}

type IngestorMock struct {
	mock.Mock
}

func (m *IngestorMock) SendToConversation(ctx context.Context, senderID, conversationID int, content string) (models.Message, error) {
	args := m.Called(ctx, senderID, conversationID, content)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *IngestorMock) SendToUser(ctx context.Context, senderID, otherUserID int, itemID *int, content string) (models.Message, models.Conversation, error) {
	args := m.Called(ctx, senderID, otherUserID, itemID, content)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	var conv models.Conversation
	if val := args.Get(1); val != nil {
		conv = val.(models.Conversation)
	}
	return msg, conv, args.Error(2)
}

func (m *IngestorMock) SendToItem(ctx context.Context, itemID, senderID int, senderName, content string) (models.ItemMessage, error) {
	args := m.Called(ctx, itemID, senderID, senderName, content)
	var msg models.ItemMessage
	if val := args.Get(0); val != nil {
		msg = val.(models.ItemMessage)
	}
	return msg, args.Error(1)
}

var _ repositories.ConversationRepository = (*ConversationRepositoryMock)(nil)
var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
var _ repositories.ItemMessageRepository = (*ItemMessageRepositoryMock)(nil)
var _ interface {
	BulkUsers(context.Context, []int) ([]clients.User, error)
} = (*UserDirectoryMock)(nil)
var _ interface {
	BulkItems(context.Context, []int) ([]clients.Item, error)
	ResolveItem(context.Context, int) error
} = (*ItemCatalogMock)(nil)
