package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"messaging-service/internal/chat"
	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
	"messaging-service/internal/telemetry"
)

type itemIngestor interface {
	SendToItem(ctx context.Context, itemID, senderID int, senderName, content string) (models.ItemMessage, error)
}

// ItemChatHandler serves the per-item open discussion board.
type ItemChatHandler struct {
	itemMsgRepo repositories.ItemMessageRepository
	pipeline    itemIngestor
	audit       *telemetry.AuditEmitter
}

func NewItemChatHandler(itemMsgRepo repositories.ItemMessageRepository, pipeline itemIngestor, audit *telemetry.AuditEmitter) *ItemChatHandler {
	return &ItemChatHandler{
		itemMsgRepo: itemMsgRepo,
		pipeline:    pipeline,
		audit:       audit,
	}
}

// List returns every message posted under the item, oldest first. Item
// discussions are open to any authenticated user.
func (h *ItemChatHandler) List(c *gin.Context) {
	itemID, ok := paramID(c, "item_id")
	if !ok {
		return
	}

	msgs, err := h.itemMsgRepo.ListForItem(c.Request.Context(), itemID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// Post appends a message to the item discussion through the ingestion
// pipeline. The sender's display name is denormalized into the message so
// readers never need a directory lookup.
func (h *ItemChatHandler) Post(c *gin.Context) {
	itemID, ok := paramID(c, "item_id")
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
	userName := c.GetString("userName")

	msg, err := h.pipeline.SendToItem(c.Request.Context(), itemID, userID, userName, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrEmptyContent), errors.Is(err, chat.ErrContentTooLong):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, chat.ErrStoreTimeout):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "message store unavailable, retry"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		}
		return
	}

	if h.audit != nil {
		h.audit.Emit(c.Request.Context(), "INFO", "Item message posted", requestIDFromContext(c), userIDFromContext(c))
	}
	c.JSON(http.StatusCreated, msg)
}

// Purge removes every message under the item. Called by the item service
// when an item is deleted.
func (h *ItemChatHandler) Purge(c *gin.Context) {
	itemID, ok := paramID(c, "item_id")
	if !ok {
		return
	}

	deleted, err := h.itemMsgRepo.DeleteForItem(c.Request.Context(), itemID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete messages"})
		return
	}

	if h.audit != nil {
		h.audit.Emit(c.Request.Context(), "WARN", "Item discussion purged", requestIDFromContext(c), userIDFromContext(c))
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}
