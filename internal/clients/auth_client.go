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

// Principal is the authenticated identity the auth service vouches for.
// The messaging core trusts it and performs no credential checks itself.
type Principal struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// User is the directory record used to label conversations.
type User struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// AuthClient talks to the auth service over its internal HTTP API.
type AuthClient struct {
	baseURL string
	http    *http.Client
}

// NewAuthClient constructs the client.
func NewAuthClient(baseURL string) *AuthClient {
	return &AuthClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

// ValidateToken verifies the bearer token and returns the principal it
// belongs to.
func (a *AuthClient) ValidateToken(ctx context.Context, token string) (Principal, error) {
	var resp struct {
		Valid  bool   `json:"valid"`
		UserID int    `json:"user_id"`
		Name   string `json:"name"`
	}
	if err := a.postJSON(ctx, "/internal/auth/validate", map[string]string{"token": token}, &resp); err != nil {
		return Principal{}, err
	}
	if !resp.Valid || resp.UserID == 0 {
		return Principal{}, errors.New("invalid token")
	}
	return Principal{ID: resp.UserID, Name: resp.Name}, nil
}

// BulkUsers fetches multiple user records in one call.
func (a *AuthClient) BulkUsers(ctx context.Context, ids []int) ([]User, error) {
	if len(ids) == 0 {
		return []User{}, nil
	}
	var resp struct {
		Users []User `json:"users"`
	}
	if err := a.postJSON(ctx, "/internal/users/bulk", map[string][]int{"ids": ids}, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

func (a *AuthClient) postJSON(ctx context.Context, path string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("auth service: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("auth service: unexpected status %d", res.StatusCode)
	}
	return json.NewDecoder(res.Body).Decode(out)
}
