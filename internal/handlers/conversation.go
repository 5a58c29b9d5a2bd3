package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"messaging-service/internal/chat"
	"messaging-service/internal/clients"
	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
	"messaging-service/internal/telemetry"
)

// userDirectory supplies display data for conversation participants.
type userDirectory interface {
	BulkUsers(ctx context.Context, ids []int) ([]clients.User, error)
}

// itemCatalog is the item collaborator: metadata for labeling plus the
// resolve side effect.
type itemCatalog interface {
	BulkItems(ctx context.Context, ids []int) ([]clients.Item, error)
	ResolveItem(ctx context.Context, itemID int) error
}

// ingestor is the message ingestion pipeline surface the HTTP layer drives.
type ingestor interface {
	SendToConversation(ctx context.Context, senderID, conversationID int, content string) (models.Message, error)
	SendToUser(ctx context.Context, senderID, otherUserID int, itemID *int, content string) (models.Message, models.Conversation, error)
}

// ConversationHandler manages the durable 1:1 conversation endpoints.
type ConversationHandler struct {
	convRepo repositories.ConversationRepository
	msgRepo  repositories.MessageRepository
	pipeline ingestor
	users    userDirectory
	items    itemCatalog
	audit    *telemetry.AuditEmitter
}

// NewConversationHandler builds a ConversationHandler.
func NewConversationHandler(convRepo repositories.ConversationRepository, msgRepo repositories.MessageRepository, pipeline ingestor, users userDirectory, items itemCatalog, audit *telemetry.AuditEmitter) *ConversationHandler {
	return &ConversationHandler{
		convRepo: convRepo,
		msgRepo:  msgRepo,
		pipeline: pipeline,
		users:    users,
		items:    items,
		audit:    audit,
	}
}

// List returns the caller's active conversations, most recent first,
// labeled with counterpart and item display data.
func (h *ConversationHandler) List(c *gin.Context) {
	userID := c.GetInt("userID")

	convs, err := h.convRepo.ListForUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversations"})
		return
	}

	otherIDs := make([]int, 0, len(convs))
	itemIDs := make([]int, 0, len(convs))
	for _, conv := range convs {
		otherIDs = append(otherIDs, conv.OtherParticipant(userID))
		if conv.ItemID != nil {
			itemIDs = append(itemIDs, *conv.ItemID)
		}
	}

	users, err := h.users.BulkUsers(c.Request.Context(), otherIDs)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to load user info"})
		return
	}
	nameByID := map[int]string{}
	for _, u := range users {
		nameByID[u.ID] = u.Name
	}

	items, err := h.items.BulkItems(c.Request.Context(), itemIDs)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to load item info"})
		return
	}
	itemByID := map[int]clients.Item{}
	for _, it := range items {
		itemByID[it.ID] = it
	}

	summaries := make([]models.ConversationSummary, 0, len(convs))
	for _, conv := range convs {
		otherID := conv.OtherParticipant(userID)
		summary := models.ConversationSummary{
			ConversationID:  conv.ID,
			OtherUserID:     otherID,
			OtherUserName:   nameByID[otherID],
			ItemID:          conv.ItemID,
			Status:          conv.Status,
			LastMessage:     conv.LastMessage,
			LastMessageTime: conv.LastMessageTime,
			UnreadCount:     conv.UnreadFor(userID),
			CreatedAt:       conv.CreatedAt,
		}
		if conv.ItemID != nil {
			if it, ok := itemByID[*conv.ItemID]; ok {
				summary.ItemName = it.Name
				summary.ItemType = it.Type
			}
		}
		summaries = append(summaries, summary)
	}

	c.JSON(http.StatusOK, gin.H{"conversations": summaries})
}

// CreateOrGet finds or creates the unique conversation for the
// (caller, other user, optional item) key.
func (h *ConversationHandler) CreateOrGet(c *gin.Context) {
	var req struct {
		OtherUserID int  `json:"other_user_id" binding:"required"`
		ItemID      *int `json:"item_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	conv, err := h.convRepo.FindOrCreate(c.Request.Context(), userID, req.OtherUserID, req.ItemID)
	if err != nil {
		if errors.Is(err, repositories.ErrSelfConversation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot start a conversation with yourself"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create conversation"})
		return
	}

	participants, err := h.users.BulkUsers(c.Request.Context(), []int{conv.User1ID, conv.User2ID})
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to load participants"})
		return
	}

	h.emitAudit(c, "INFO", "Conversation opened")
	c.JSON(http.StatusOK, gin.H{"conversation": conv, "participants": participants})
}

// GetMessages returns the conversation's message log in append order. As a
// side effect the caller's counterpart messages are flagged read and the
// caller's unread counter is zeroed; the returned payload still shows the
// pre-fetch read flags.
func (h *ConversationHandler) GetMessages(c *gin.Context) {
	conversationID, ok := paramID(c, "conversation_id")
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	if !h.requireParticipant(c, conversationID, userID) {
		return
	}

	msgs, err := h.msgRepo.ListForConversation(c.Request.Context(), conversationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	if err := h.msgRepo.MarkRead(c.Request.Context(), conversationID, userID); err != nil {
		log.Printf("mark read after fetch failed for conversation %d: %v", conversationID, err)
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// PostMessage sends into an existing conversation through the ingestion
// pipeline and returns the persisted message.
func (h *ConversationHandler) PostMessage(c *gin.Context) {
	conversationID, ok := paramID(c, "conversation_id")
	if !ok {
		return
	}

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	msg, err := h.pipeline.SendToConversation(c.Request.Context(), userID, conversationID, req.Content)
	if err != nil {
		h.respondSendError(c, err)
		return
	}

	h.emitAudit(c, "INFO", "Message sent")
	c.JSON(http.StatusCreated, msg)
}

// SendDirect sends to another user without a conversation id, resolving the
// conversation through the registry on first contact.
func (h *ConversationHandler) SendDirect(c *gin.Context) {
	var req struct {
		OtherUserID int    `json:"other_user_id" binding:"required"`
		ItemID      *int   `json:"item_id"`
		Content     string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	msg, conv, err := h.pipeline.SendToUser(c.Request.Context(), userID, req.OtherUserID, req.ItemID, req.Content)
	if err != nil {
		if errors.Is(err, repositories.ErrSelfConversation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot message yourself"})
			return
		}
		h.respondSendError(c, err)
		return
	}

	h.emitAudit(c, "INFO", "Message sent")
	c.JSON(http.StatusCreated, gin.H{"message": msg, "conversation": conv})
}

// Resolve transitions the conversation to resolved and, when it concerns an
// item, asks the catalog to mark the item resolved. The catalog call is
// best-effort: its failure is logged and audited but the conversation stays
// resolved.
func (h *ConversationHandler) Resolve(c *gin.Context) {
	conv, ok := h.transition(c, models.StatusResolved)
	if !ok {
		return
	}

	if conv.ItemID != nil {
		if err := h.items.ResolveItem(c.Request.Context(), *conv.ItemID); err != nil {
			log.Printf("resolve item %d for conversation %d failed: %v", *conv.ItemID, conv.ID, err)
			h.emitAudit(c, "ERROR", "item resolve notification failed")
		}
	}

	h.emitAudit(c, "INFO", "Conversation resolved")
	c.JSON(http.StatusOK, gin.H{"conversation": conv})
}

// Archive transitions the conversation to its terminal archived state.
func (h *ConversationHandler) Archive(c *gin.Context) {
	conv, ok := h.transition(c, models.StatusArchived)
	if !ok {
		return
	}

	h.emitAudit(c, "INFO", "Conversation archived")
	c.JSON(http.StatusOK, gin.H{"conversation": conv})
}

// MarkRead zeroes the caller's unread counter and flags counterpart
// messages read.
func (h *ConversationHandler) MarkRead(c *gin.Context) {
	conversationID, ok := paramID(c, "conversation_id")
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	if !h.requireParticipant(c, conversationID, userID) {
		return
	}

	if err := h.msgRepo.MarkRead(c.Request.Context(), conversationID, userID); err != nil {
		if errors.Is(err, repositories.ErrConversationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not mark read"})
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *ConversationHandler) transition(c *gin.Context, to models.ConversationStatus) (models.Conversation, bool) {
	conversationID, ok := paramID(c, "conversation_id")
	if !ok {
		return models.Conversation{}, false
	}

	userID := c.GetInt("userID")
	if !h.requireParticipant(c, conversationID, userID) {
		return models.Conversation{}, false
	}

	conv, err := h.convRepo.Transition(c.Request.Context(), conversationID, to)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrConversationNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		case errors.Is(err, repositories.ErrInvalidTransition):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lifecycle transition"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update conversation"})
		}
		return models.Conversation{}, false
	}
	return conv, true
}

// requireParticipant loads the conversation and rejects the request when it
// does not exist (404) or the caller is not one of its two participants
// (403). An unknown conversation is never reported as a membership failure.
func (h *ConversationHandler) requireParticipant(c *gin.Context, conversationID, userID int) bool {
	conv, err := h.convRepo.Get(c.Request.Context(), conversationID)
	if err != nil {
		if errors.Is(err, repositories.ErrConversationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
			return false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversation"})
		return false
	}
	if !conv.HasParticipant(userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a conversation participant"})
		return false
	}
	return true
}

func (h *ConversationHandler) respondSendError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, chat.ErrEmptyContent), errors.Is(err, chat.ErrContentTooLong):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, chat.ErrConversationInactive):
		c.JSON(http.StatusBadRequest, gin.H{"error": "conversation is not active"})
	case errors.Is(err, chat.ErrNotParticipant):
		c.JSON(http.StatusForbidden, gin.H{"error": "not a conversation participant"})
	case errors.Is(err, repositories.ErrConversationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
	case errors.Is(err, chat.ErrStoreTimeout):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "message store unavailable, retry"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
	}
	h.emitAudit(c, "ERROR", "message send failed")
}

func (h *ConversationHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}

func paramID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}
