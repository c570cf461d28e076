// Package client is a typed HTTP client for the gamedex server API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gamedex/core"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("HTTP error! status: %d", e.Status)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// Client talks to one gamedex server. A non-empty token is sent as a
// bearer credential on collection calls.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func New(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
	}
}

// HasSession reports whether the client carries a session token.
func (c *Client) HasSession() bool {
	return c.token != ""
}

// Search queries the catalog. limit <= 0 uses the server default.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]core.SearchResult, error) {
	params := url.Values{"q": {query}}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	var results []core.SearchResult
	if err := c.do(ctx, http.MethodGet, "/api/search?"+params.Encode(), nil, false, &results); err != nil {
		return nil, err
	}
	if results == nil {
		results = []core.SearchResult{}
	}
	return results, nil
}

// Popular returns the top rated games.
func (c *Client) Popular(ctx context.Context, limit int) ([]core.SearchResult, error) {
	return c.Search(ctx, "popular", limit)
}

// Game fetches a game with its similar games.
func (c *Client) Game(ctx context.Context, id int64) (*core.GameDetails, error) {
	var details core.GameDetails
	if err := c.do(ctx, http.MethodGet, "/api/games/"+strconv.FormatInt(id, 10), nil, false, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

// ListCollection returns the signed-in user's rows, newest first.
func (c *Client) ListCollection(ctx context.Context) ([]*core.CollectionRow, error) {
	var rows []*core.CollectionRow
	if err := c.do(ctx, http.MethodGet, "/api/user/collections", nil, true, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// AddToCollection stores game in the signed-in user's collection.
func (c *Client) AddToCollection(ctx context.Context, game core.CollectedGame) (*core.CollectionRow, error) {
	data, err := json.Marshal(game)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(map[string]any{
		"game_id":   game.ID,
		"game_data": json.RawMessage(data),
	})
	if err != nil {
		return nil, err
	}

	var row core.CollectionRow
	if err := c.do(ctx, http.MethodPost, "/api/user/collections", body, true, &row); err != nil {
		return nil, err
	}
	return &row, nil
}

// RemoveFromCollection deletes a game from the signed-in user's collection.
func (c *Client) RemoveFromCollection(ctx context.Context, gameID int64) error {
	path := "/api/user/collections?game_id=" + strconv.FormatInt(gameID, 10)
	return c.do(ctx, http.MethodDelete, path, nil, true, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, authenticated bool, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authenticated {
		if c.token == "" {
			return &APIError{Status: http.StatusUnauthorized, Message: "Unauthorized"}
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&payload) == nil {
			apiErr.Message = payload.Error
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
