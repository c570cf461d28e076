// Package catalog fronts the IGDB game catalog with a token manager, a
// bounded response cache and an outbound rate limit.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gamedex/core"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

type (
	// Options configures a Client.
	Options struct {
		BaseURL        string
		ClientID       string
		Tokens         TokenSource
		HTTPClient     *http.Client
		RequestsPerSec float64
		CacheSize      int
		GameTTL        time.Duration
		SearchTTL      time.Duration
	}

	// Client issues catalog queries. Failures are logged and returned next to
	// an empty result, so callers may either ignore the error and render the
	// empty result or tell an upstream failure apart from "no results".
	Client struct {
		baseURL    string
		clientID   string
		tokens     TokenSource
		httpClient *http.Client
		limiter    *rate.Limiter
		games      *Cache[*core.Game]
		lists      *Cache[[]core.SearchResult]
		log        *logrus.Entry
	}
)

// NewClient creates a catalog client with its own caches.
func NewClient(opts Options) (*Client, error) {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if opts.RequestsPerSec <= 0 {
		opts.RequestsPerSec = 4
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 1024
	}
	if opts.GameTTL <= 0 {
		opts.GameTTL = 10 * time.Minute
	}
	if opts.SearchTTL <= 0 {
		opts.SearchTTL = 5 * time.Minute
	}

	games, err := NewCache[*core.Game](opts.CacheSize, opts.GameTTL)
	if err != nil {
		return nil, err
	}
	lists, err := NewCache[[]core.SearchResult](opts.CacheSize, opts.SearchTTL)
	if err != nil {
		return nil, err
	}

	burst := int(opts.RequestsPerSec)
	if burst < 1 {
		burst = 1
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		clientID:   opts.ClientID,
		tokens:     opts.Tokens,
		httpClient: opts.HTTPClient,
		limiter:    rate.NewLimiter(rate.Limit(opts.RequestsPerSec), burst),
		games:      games,
		lists:      lists,
		log:        logrus.WithField("component", "catalog"),
	}, nil
}

// GameDetails returns the full record for a game. A nil game with a nil
// error means the catalog has no such id.
func (c *Client) GameDetails(ctx context.Context, id int64) (*core.Game, error) {
	key := gameKey(id)
	if game, ok := c.games.Get(key); ok {
		return game, nil
	}

	var raw []rawGame
	if err := c.query(ctx, detailQuery(id), &raw); err != nil {
		c.log.WithFields(logrus.Fields{"error": err, "gameID": id}).Error("Failed to get game details")
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}

	game := normalizeGame(raw[0])
	c.games.Put(key, game)
	return game, nil
}

// Details fetches a game together with its similar games. A failed
// similar-games lookup degrades to an empty list.
func (c *Client) Details(ctx context.Context, id int64) (*core.GameDetails, error) {
	game, err := c.GameDetails(ctx, id)
	if err != nil || game == nil {
		return nil, err
	}

	similar := []core.SearchResult{}
	if len(game.SimilarGames) > 0 {
		similar, _ = c.SimilarGames(ctx, game.SimilarGames)
	}
	return &core.GameDetails{Game: game, SimilarGames: similar}, nil
}

// SimilarGames resolves up to six of the given ids to search results.
func (c *Client) SimilarGames(ctx context.Context, ids []int64) ([]core.SearchResult, error) {
	if len(ids) == 0 {
		return []core.SearchResult{}, nil
	}
	return c.list(ctx, similarKey(ids), similarQuery(ids), false, "Failed to get similar games")
}

// Search runs a free-text search restricted to base games.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]core.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return []core.SearchResult{}, nil
	}
	return c.list(ctx, searchKey(query, limit), searchQuery(query, limit), false, "Failed to search games")
}

// Popular returns the highest rated base games.
func (c *Client) Popular(ctx context.Context, limit int) ([]core.SearchResult, error) {
	return c.list(ctx, popularKey(limit), popularQuery(limit), true, "Failed to fetch popular games")
}

func (c *Client) list(ctx context.Context, key, body string, withRating bool, failure string) ([]core.SearchResult, error) {
	if results, ok := c.lists.Get(key); ok {
		return results, nil
	}

	var raw []rawGame
	if err := c.query(ctx, body, &raw); err != nil {
		c.log.WithFields(logrus.Fields{"error": err, "key": key}).Error(failure)
		return []core.SearchResult{}, err
	}

	results := normalizeResults(raw, withRating)
	c.lists.Put(key, results)
	return results, nil
}

// query posts one apicalypse body to the games endpoint and decodes the reply into out.
func (c *Client) query(ctx context.Context, body string, out any) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", core.ErrUpstreamCatalog, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/games", bytes.NewBufferString(body))
	if err != nil {
		return fmt.Errorf("%w: create request: %v", core.ErrUpstreamCatalog, err)
	}
	req.Header.Set("Client-ID", c.clientID)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrUpstreamCatalog, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 240))
		return fmt.Errorf("%w: status %d: %q", core.ErrUpstreamCatalog, resp.StatusCode, b)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode: %v", core.ErrUpstreamCatalog, err)
	}
	return nil
}
