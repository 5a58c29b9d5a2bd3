package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/chat"
	"messaging-service/internal/mocks"
	"messaging-service/internal/models"
)

func setupItemChatRouter(handler *ItemChatHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", 1)
		c.Set("userName", "alice")
		c.Next()
	})
	r.GET("/items/:item_id/messages", handler.List)
	r.POST("/items/:item_id/messages", handler.Post)
	r.DELETE("/items/:item_id/messages", handler.Purge)
	return r
}

func TestListItemMessages(t *testing.T) {
	repo := new(mocks.ItemMessageRepositoryMock)
	handler := NewItemChatHandler(repo, nil, nil)
	router := setupItemChatRouter(handler)

	repo.On("ListForItem", mock.Anything, 9).Return([]models.ItemMessage{
		{ID: 1, ItemID: 9, SenderID: 2, SenderName: "bob", Content: "seen it near the station"},
	}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/items/9/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Messages []models.ItemMessage `json:"messages"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, "bob", resp.Messages[0].SenderName)
	repo.AssertExpectations(t)
}

func TestPostItemMessageCarriesSenderName(t *testing.T) {
	pipeline := new(mocks.IngestorMock)
	handler := NewItemChatHandler(new(mocks.ItemMessageRepositoryMock), pipeline, nil)
	router := setupItemChatRouter(handler)

	pipeline.On("SendToItem", mock.Anything, 9, 1, "alice", "is this yours?").Return(
		models.ItemMessage{ID: 5, ItemID: 9, SenderID: 1, SenderName: "alice", Content: "is this yours?"}, nil,
	).Once()

	req := httptest.NewRequest(http.MethodPost, "/items/9/messages", bytes.NewBufferString(`{"content":"is this yours?"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	pipeline.AssertExpectations(t)
}

func TestPostItemMessageValidationError(t *testing.T) {
	pipeline := new(mocks.IngestorMock)
	handler := NewItemChatHandler(new(mocks.ItemMessageRepositoryMock), pipeline, nil)
	router := setupItemChatRouter(handler)

	pipeline.On("SendToItem", mock.Anything, 9, 1, "alice", "   ").Return(models.ItemMessage{}, chat.ErrEmptyContent).Once()

	req := httptest.NewRequest(http.MethodPost, "/items/9/messages", bytes.NewBufferString(`{"content":"   "}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	pipeline.AssertExpectations(t)
}

func TestPostItemMessageMissingBody(t *testing.T) {
	handler := NewItemChatHandler(new(mocks.ItemMessageRepositoryMock), new(mocks.IngestorMock), nil)
	router := setupItemChatRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/items/9/messages", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPurgeItemMessages(t *testing.T) {
	repo := new(mocks.ItemMessageRepositoryMock)
	handler := NewItemChatHandler(repo, nil, nil)
	router := setupItemChatRouter(handler)

	repo.On("DeleteForItem", mock.Anything, 9).Return(int64(4), nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/items/9/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Deleted int64 `json:"deleted"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, int64(4), resp.Deleted)
	repo.AssertExpectations(t)
}
