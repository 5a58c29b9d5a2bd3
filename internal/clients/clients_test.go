package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/internal/auth/validate", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["token"] == "good" {
			json.NewEncoder(w).Encode(map[string]any{"valid": true, "user_id": 7, "name": "alice"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"valid": false})
	}))
	defer server.Close()

	client := NewAuthClient(server.URL)

	principal, err := client.ValidateToken(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, 7, principal.ID)
	assert.Equal(t, "alice", principal.Name)

	_, err = client.ValidateToken(context.Background(), "bad")
	require.Error(t, err)
}

func TestBulkUsersEmptyIDsSkipsCall(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	client := NewAuthClient(server.URL)
	users, err := client.BulkUsers(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, users)
	assert.False(t, called)
}

func TestBulkItems(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/internal/items/bulk", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{"items": []Item{{ID: 9, Name: "black wallet", Type: "lost"}}})
	}))
	defer server.Close()

	client := NewItemClient(server.URL)
	items, err := client.BulkItems(context.Background(), []int{9})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "black wallet", items[0].Name)
}

func TestResolveItemAcceptsNoContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/internal/items/9/resolve", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewItemClient(server.URL)
	require.NoError(t, client.ResolveItem(context.Background(), 9))
}

func TestResolveItemErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewItemClient(server.URL)
	require.Error(t, client.ResolveItem(context.Background(), 9))
}
