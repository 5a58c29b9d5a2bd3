package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Item is the catalog metadata used to label conversations. The messaging
// core never mutates item records directly.
type Item struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	OwnerID int    `json:"owner_id"`
	Status  string `json:"status"`
}

// ItemClient talks to the item catalog service over its internal HTTP API.
type ItemClient struct {
	baseURL string
	http    *http.Client
}

// NewItemClient constructs the client.
func NewItemClient(baseURL string) *ItemClient {
	return &ItemClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

// GetItem retrieves one item's metadata.
func (c *ItemClient) GetItem(ctx context.Context, itemID int) (Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/internal/items/%d", c.baseURL, itemID), nil)
	if err != nil {
		return Item{}, err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return Item{}, fmt.Errorf("item service: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return Item{}, errors.New("item not found")
	}
	if res.StatusCode != http.StatusOK {
		return Item{}, fmt.Errorf("item service: unexpected status %d", res.StatusCode)
	}
	var item Item
	if err := json.NewDecoder(res.Body).Decode(&item); err != nil {
		return Item{}, err
	}
	return item, nil
}

// BulkItems fetches multiple items in one call.
func (c *ItemClient) BulkItems(ctx context.Context, ids []int) ([]Item, error) {
	if len(ids) == 0 {
		return []Item{}, nil
	}
	payload, err := json.Marshal(map[string][]int{"ids": ids})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/internal/items/bulk", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("item service: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("item service: unexpected status %d", res.StatusCode)
	}
	var resp struct {
		Items []Item `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// ResolveItem asks the catalog to mark the item resolved. Callers treat it
// as a best-effort side effect: a failure is logged, never rolled back into
// the conversation transition that triggered it.
func (c *ItemClient) ResolveItem(ctx context.Context, itemID int) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/internal/items/%d/resolve", c.baseURL, itemID), nil)
	if err != nil {
		return err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("item service: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusNoContent {
		return fmt.Errorf("item service: unexpected status %d", res.StatusCode)
	}
	return nil
}
