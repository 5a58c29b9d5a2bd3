package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"messaging-service/internal/models"
	"messaging-service/internal/observability"
	"messaging-service/internal/repositories"
	"messaging-service/internal/ws"
)

// MaxContentLength bounds message content in runes.
const MaxContentLength = 2000

const convLockShards = 64

var (
	ErrEmptyContent         = errors.New("message content is empty")
	ErrContentTooLong       = errors.New("message content exceeds length bound")
	ErrNotParticipant       = errors.New("sender is not a conversation participant")
	ErrConversationInactive = errors.New("conversation is not active")
	ErrStoreTimeout         = errors.New("message store timed out")
)

// Broadcaster is the hub surface the pipeline needs.
type Broadcaster interface {
	Broadcast(room ws.Room, frame ws.ServerFrame) int
}

// Ingestor is the message ingestion pipeline: validate, persist, fan out,
// acknowledge. Both the HTTP handlers and the websocket session drive their
// sends through it, one method per delivery model.
type Ingestor struct {
	convRepo     repositories.ConversationRepository
	msgRepo      repositories.MessageRepository
	itemMsgRepo  repositories.ItemMessageRepository
	hub          Broadcaster
	storeTimeout time.Duration

	// Sharded by conversation id so the lock table stays fixed-size no
	// matter how many conversations the process touches.
	convLocks [convLockShards]sync.Mutex
}

// NewIngestor constructs the pipeline.
func NewIngestor(convRepo repositories.ConversationRepository, msgRepo repositories.MessageRepository, itemMsgRepo repositories.ItemMessageRepository, hub Broadcaster) *Ingestor {
	return &Ingestor{
		convRepo:     convRepo,
		msgRepo:      msgRepo,
		itemMsgRepo:  itemMsgRepo,
		hub:          hub,
		storeTimeout: 5 * time.Second,
	}
}

// SendToConversation runs the pipeline for the 1:1 model against an existing
// conversation. The returned message carries the server-assigned id and
// timestamp so the sender can reconcile its optimistic local copy.
func (in *Ingestor) SendToConversation(ctx context.Context, senderID, conversationID int, content string) (models.Message, error) {
	content, err := validateContent(content)
	if err != nil {
		return models.Message{}, err
	}

	conv, err := in.convRepo.Get(ctx, conversationID)
	if err != nil {
		return models.Message{}, err
	}
	if !conv.HasParticipant(senderID) {
		return models.Message{}, ErrNotParticipant
	}
	if conv.Status != models.StatusActive {
		return models.Message{}, ErrConversationInactive
	}

	return in.appendAndFanOut(ctx, conversationID, senderID, content)
}

// SendToUser resolves the conversation for (sender, other, item) through the
// registry, creating it on first contact, then runs the same pipeline.
func (in *Ingestor) SendToUser(ctx context.Context, senderID, otherUserID int, itemID *int, content string) (models.Message, models.Conversation, error) {
	content, err := validateContent(content)
	if err != nil {
		return models.Message{}, models.Conversation{}, err
	}

	conv, err := in.convRepo.FindOrCreate(ctx, senderID, otherUserID, itemID)
	if err != nil {
		return models.Message{}, models.Conversation{}, err
	}
	if conv.Status != models.StatusActive {
		return models.Message{}, models.Conversation{}, ErrConversationInactive
	}

	msg, err := in.appendAndFanOut(ctx, conv.ID, senderID, content)
	return msg, conv, err
}

// appendAndFanOut persists the message and broadcasts it. The
// per-conversation lock keeps persistence order equal to sender-call order,
// and the broadcast happens under the same lock so fan-out order matches.
func (in *Ingestor) appendAndFanOut(ctx context.Context, conversationID, senderID int, content string) (models.Message, error) {
	lock := in.lockFor(conversationID)
	lock.Lock()
	defer lock.Unlock()

	pctx, cancel := context.WithTimeout(ctx, in.storeTimeout)
	defer cancel()

	msg, err := in.msgRepo.Append(pctx, conversationID, senderID, content)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return models.Message{}, fmt.Errorf("%w: %v", ErrStoreTimeout, err)
		}
		return models.Message{}, err
	}
	observability.IncMessageIngested("conversation")

	room := ws.Room{Kind: ws.RoomConversation, ID: conversationID}
	frame := ws.ServerFrame{Type: ws.FrameMessage, Room: &room, Message: msg}
	if delivered := in.hub.Broadcast(room, frame); delivered == 0 {
		// Accepted gap: nobody is connected, recipients catch up on the
		// next history fetch.
		log.Printf("no live connections for %s, message %d delivered on next fetch", room, msg.ID)
	}
	return msg, nil
}

// SendToItem runs the pipeline for the per-item discussion model. No unread
// tracking and no lifecycle apply; any authenticated user may post.
func (in *Ingestor) SendToItem(ctx context.Context, itemID, senderID int, senderName, content string) (models.ItemMessage, error) {
	content, err := validateContent(content)
	if err != nil {
		return models.ItemMessage{}, err
	}

	pctx, cancel := context.WithTimeout(ctx, in.storeTimeout)
	defer cancel()

	msg, err := in.itemMsgRepo.Create(pctx, itemID, senderID, senderName, content)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return models.ItemMessage{}, fmt.Errorf("%w: %v", ErrStoreTimeout, err)
		}
		return models.ItemMessage{}, err
	}
	observability.IncMessageIngested("item")

	room := ws.Room{Kind: ws.RoomItem, ID: itemID}
	frame := ws.ServerFrame{Type: ws.FrameMessage, Room: &room, Message: msg}
	if delivered := in.hub.Broadcast(room, frame); delivered == 0 {
		log.Printf("no live connections for %s, message %d delivered on next fetch", room, msg.ID)
	}
	return msg, nil
}

func (in *Ingestor) lockFor(conversationID int) *sync.Mutex {
	return &in.convLocks[uint(conversationID)%convLockShards]
}

func validateContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", ErrEmptyContent
	}
	if len([]rune(content)) > MaxContentLength {
		return "", ErrContentTooLong
	}
	return content, nil
}
