package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gamedex/core"
	"gamedex/handlers/api/collections"
	"gamedex/handlers/api/games"
	"gamedex/handlers/api/search"
	"gamedex/middleware"
	"gamedex/stores/memory"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCatalog struct {
	lastQuery string
	lastLimit int
}

func (s *stubCatalog) Details(ctx context.Context, id int64) (*core.GameDetails, error) {
	if id != 1942 {
		return nil, nil
	}
	return &core.GameDetails{
		Game:         &core.Game{ID: 1942, Name: "The Witcher 3", Platforms: []core.Platform{}, Screenshots: []core.Image{}, SimilarGames: []int64{}},
		SimilarGames: []core.SearchResult{},
	}, nil
}

func (s *stubCatalog) Search(ctx context.Context, query string, limit int) ([]core.SearchResult, error) {
	s.lastQuery, s.lastLimit = query, limit
	return []core.SearchResult{{ID: 1, Name: "Super Mario Bros."}}, nil
}

func (s *stubCatalog) Popular(ctx context.Context, limit int) ([]core.SearchResult, error) {
	s.lastQuery, s.lastLimit = "popular", limit
	return []core.SearchResult{{ID: 2, Name: "Popular Game"}}, nil
}

type stubVerifier struct{}

func (stubVerifier) GetUser(ctx context.Context, token string) (*core.User, error) {
	if token == "secret" {
		return &core.User{ID: "alice"}, nil
	}
	return nil, core.ErrUnauthorized
}

func newTestServer(t *testing.T) (*httptest.Server, *stubCatalog) {
	catalog := &stubCatalog{}
	h := collections.NewHandler(memory.NewStore(), nil)

	r := chi.NewRouter()
	r.Get("/api/games/{id}", games.HandleGetGame(catalog))
	r.Get("/api/search", search.HandleSearch(catalog))
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthBearer(stubVerifier{}))
		r.Get("/api/user/collections", h.HandleList)
		r.Post("/api/user/collections", h.HandleAdd)
		r.Delete("/api/user/collections", h.HandleRemove)
	})

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server, catalog
}

func TestSearch(t *testing.T) {
	server, catalog := newTestServer(t)
	c := New(server.URL+"/", "", nil)

	results, err := c.Search(context.Background(), "super mario", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "super mario", catalog.lastQuery)
	assert.Equal(t, 5, catalog.lastLimit)

	results, err = c.Popular(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, "Popular Game", results[0].Name)
	assert.Equal(t, 10, catalog.lastLimit)
}

func TestGame(t *testing.T) {
	server, _ := newTestServer(t)
	c := New(server.URL, "", nil)

	details, err := c.Game(context.Background(), 1942)
	require.NoError(t, err)
	assert.Equal(t, "The Witcher 3", details.Game.Name)

	_, err = c.Game(context.Background(), 7)
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusNotFound))
	assert.Equal(t, "Game not found", err.Error())
}

func TestCollectionLifecycle(t *testing.T) {
	server, _ := newTestServer(t)
	c := New(server.URL, "secret", nil)
	ctx := context.Background()

	game := core.CollectedGame{
		Game:        core.Game{ID: 1942, Name: "The Witcher 3", Platforms: []core.Platform{}, Screenshots: []core.Image{}, SimilarGames: []int64{}},
		CollectedAt: 1700000000000,
	}
	row, err := c.AddToCollection(ctx, game)
	require.NoError(t, err)
	assert.Equal(t, int64(1942), row.GameID)

	var stored core.CollectedGame
	require.NoError(t, json.Unmarshal(row.GameData, &stored))
	assert.Equal(t, game, stored)

	_, err = c.AddToCollection(ctx, game)
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusBadRequest))
	assert.Equal(t, "Game already in collection", err.Error())

	rows, err := c.ListCollection(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	require.NoError(t, c.RemoveFromCollection(ctx, 1942))
	rows, err = c.ListCollection(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestCollection_RequiresToken(t *testing.T) {
	server, _ := newTestServer(t)

	_, err := New(server.URL, "", nil).ListCollection(context.Background())
	assert.True(t, IsStatus(err, http.StatusUnauthorized))

	_, err = New(server.URL, "forged", nil).ListCollection(context.Background())
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
}

func TestAPIError_FallbackMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := New(server.URL, "", nil).Search(context.Background(), "x", 0)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "502"))
}
