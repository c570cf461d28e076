package catalog

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"gamedex/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken string

func (s staticToken) Token(ctx context.Context) (string, error) { return string(s), nil }

type failingToken struct{}

func (failingToken) Token(ctx context.Context) (string, error) {
	return "", core.ErrUpstreamAuth
}

// fakeIGDB records every query body and answers with a canned reply per query kind.
type fakeIGDB struct {
	mu      sync.Mutex
	bodies  []string
	status  int
	replies map[string]string // keyed by a substring of the query body
}

func (f *fakeIGDB) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.bodies)
}

func (f *fakeIGDB) lastBody() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.bodies) == 0 {
		return ""
	}
	return f.bodies[len(f.bodies)-1]
}

func (f *fakeIGDB) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.bodies = append(f.bodies, string(body))
	status := f.status
	f.mu.Unlock()

	if r.URL.Path != "/games" || r.Header.Get("Client-ID") != "client-id" || r.Header.Get("Authorization") != "Bearer test-token" {
		http.Error(w, "bad request", http.StatusUnauthorized)
		return
	}
	if status != 0 {
		http.Error(w, "upstream down", status)
		return
	}
	for marker, reply := range f.replies {
		if strings.Contains(string(body), marker) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, reply)
			return
		}
	}
	_, _ = io.WriteString(w, "[]")
}

func newTestClient(t *testing.T, upstream *fakeIGDB, tokens TokenSource) *Client {
	t.Helper()
	srv := httptest.NewServer(upstream)
	t.Cleanup(srv.Close)

	c, err := NewClient(Options{
		BaseURL:        srv.URL,
		ClientID:       "client-id",
		Tokens:         tokens,
		HTTPClient:     srv.Client(),
		RequestsPerSec: 1000,
	})
	require.NoError(t, err)
	return c
}

const zeldaRecord = `[{
	"id": 1025,
	"name": "The Legend of Zelda",
	"cover": {"id": 7, "url": "//images.igdb.com/igdb/image/upload/t_thumb/co1uii.jpg"},
	"first_release_date": 509328000,
	"rating": 87.4,
	"platforms": [{"id": 18, "name": "NES"}],
	"screenshots": [{"id": 3, "url": "//images.igdb.com/igdb/image/upload/t_thumb/sc1.jpg"}],
	"similar_games": [1026, 1027],
	"slug": "the-legend-of-zelda",
	"involved_companies": [
		{"company": {"id": 70, "name": "Nintendo of America"}, "developer": false},
		{"company": {"id": 1, "name": "Nintendo EAD"}, "developer": true}
	]
}]`

func TestGameDetails_NormalizesRecord(t *testing.T) {
	upstream := &fakeIGDB{replies: map[string]string{"where id = 1025;": zeldaRecord}}
	c := newTestClient(t, upstream, staticToken("test-token"))

	game, err := c.GameDetails(context.Background(), 1025)
	require.NoError(t, err)
	require.NotNil(t, game)

	assert.Equal(t, "The Legend of Zelda", game.Name)
	require.NotNil(t, game.Cover)
	assert.Equal(t, "https://images.igdb.com/igdb/image/upload/t_cover_big/co1uii.jpg", game.Cover.URL)
	require.Len(t, game.Screenshots, 1)
	assert.Equal(t, "https://images.igdb.com/igdb/image/upload/t_screenshot_huge/sc1.jpg", game.Screenshots[0].URL)
	assert.Equal(t, "Nintendo EAD", game.Developer)
	assert.Equal(t, []int64{1026, 1027}, game.SimilarGames)
	assert.Equal(t, []core.Platform{{ID: 18, Name: "NES"}}, game.Platforms)
	assert.Contains(t, upstream.lastBody(), "involved_companies.developer")
}

func TestGameDetails_DefaultsMissingFields(t *testing.T) {
	upstream := &fakeIGDB{replies: map[string]string{"where id = 5;": `[{"id": 5, "name": "Bare"}]`}}
	c := newTestClient(t, upstream, staticToken("test-token"))

	game, err := c.GameDetails(context.Background(), 5)
	require.NoError(t, err)
	require.NotNil(t, game)

	assert.Nil(t, game.Cover)
	assert.NotNil(t, game.Platforms)
	assert.Empty(t, game.Platforms)
	assert.NotNil(t, game.Screenshots)
	assert.NotNil(t, game.SimilarGames)
	assert.Equal(t, core.UnknownDeveloper, game.Developer)
}

func TestGameDetails_SecondCallWithinTTLIsCached(t *testing.T) {
	upstream := &fakeIGDB{replies: map[string]string{"where id = 1025;": zeldaRecord}}
	c := newTestClient(t, upstream, staticToken("test-token"))
	ctx := context.Background()

	first, err := c.GameDetails(ctx, 1025)
	require.NoError(t, err)
	second, err := c.GameDetails(ctx, 1025)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, upstream.calls())
}

func TestGameDetails_RefetchesAfterTTL(t *testing.T) {
	upstream := &fakeIGDB{replies: map[string]string{"where id = 1025;": zeldaRecord}}
	c := newTestClient(t, upstream, staticToken("test-token"))
	now := time.Now()
	c.games.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := c.GameDetails(ctx, 1025)
	require.NoError(t, err)
	now = now.Add(10 * time.Minute)
	_, err = c.GameDetails(ctx, 1025)
	require.NoError(t, err)

	assert.Equal(t, 2, upstream.calls())
}

func TestGameDetails_NotFound(t *testing.T) {
	c := newTestClient(t, &fakeIGDB{}, staticToken("test-token"))

	game, err := c.GameDetails(context.Background(), 404)
	assert.NoError(t, err)
	assert.Nil(t, game)
}

func TestGameDetails_UpstreamFailureIsNotCached(t *testing.T) {
	upstream := &fakeIGDB{status: http.StatusServiceUnavailable}
	c := newTestClient(t, upstream, staticToken("test-token"))
	ctx := context.Background()

	game, err := c.GameDetails(ctx, 1025)
	assert.Nil(t, game)
	assert.ErrorIs(t, err, core.ErrUpstreamCatalog)

	_, _ = c.GameDetails(ctx, 1025)
	assert.Equal(t, 2, upstream.calls())
}

func TestGameDetails_TokenFailure(t *testing.T) {
	upstream := &fakeIGDB{}
	c := newTestClient(t, upstream, failingToken{})

	game, err := c.GameDetails(context.Background(), 1025)
	assert.Nil(t, game)
	assert.ErrorIs(t, err, core.ErrUpstreamAuth)
	assert.Zero(t, upstream.calls())
}

func TestDetails_IncludesSimilarGames(t *testing.T) {
	upstream := &fakeIGDB{replies: map[string]string{
		"where id = 1025;":        zeldaRecord,
		"where id = (1026,1027);": `[{"id": 1026, "name": "Zelda II", "cover": {"id": 9, "url": "//images.igdb.com/igdb/image/upload/t_thumb/z2.jpg"}}]`,
	}}
	c := newTestClient(t, upstream, staticToken("test-token"))

	details, err := c.Details(context.Background(), 1025)
	require.NoError(t, err)
	require.NotNil(t, details)

	assert.Equal(t, int64(1025), details.Game.ID)
	require.Len(t, details.SimilarGames, 1)
	assert.Equal(t, "Zelda II", details.SimilarGames[0].Name)
	assert.Equal(t, "https://images.igdb.com/igdb/image/upload/t_cover_big/z2.jpg", details.SimilarGames[0].Cover.URL)
	assert.Contains(t, upstream.lastBody(), "limit 6;")
}

func TestSearch_ReturnsAllMatchesWithAbsoluteCovers(t *testing.T) {
	upstream := &fakeIGDB{replies: map[string]string{`search "mario"`: `[
		{"id": 1, "name": "Super Mario Bros.", "cover": {"id": 11, "url": "//images.igdb.com/igdb/image/upload/t_thumb/a.jpg"}},
		{"id": 2, "name": "Super Mario 64", "cover": {"id": 12, "url": "//images.igdb.com/igdb/image/upload/t_thumb/b.jpg"}},
		{"id": 3, "name": "Mario Kart"}
	]`}}
	c := newTestClient(t, upstream, staticToken("test-token"))

	results, err := c.Search(context.Background(), "mario", 5)
	require.NoError(t, err)
	require.Len(t, results, 3)

	for _, r := range results {
		if r.Cover != nil {
			assert.True(t, strings.HasPrefix(r.Cover.URL, "https://"), r.Cover.URL)
		}
		assert.Nil(t, r.Rating)
	}
	assert.Nil(t, results[2].Cover)

	body := upstream.lastBody()
	assert.Contains(t, body, "limit 5;")
	assert.Contains(t, body, "where category = 0;")
}

func TestSearch_CacheKeyIgnoresCase(t *testing.T) {
	upstream := &fakeIGDB{replies: map[string]string{"search": `[{"id": 1, "name": "Halo"}]`}}
	c := newTestClient(t, upstream, staticToken("test-token"))
	ctx := context.Background()

	_, err := c.Search(ctx, "Halo", 10)
	require.NoError(t, err)
	_, err = c.Search(ctx, "halo", 10)
	require.NoError(t, err)
	_, err = c.Search(ctx, "halo", 5)
	require.NoError(t, err)

	assert.Equal(t, 2, upstream.calls())
}

func TestSearch_BlankQuerySkipsUpstream(t *testing.T) {
	upstream := &fakeIGDB{}
	c := newTestClient(t, upstream, staticToken("test-token"))

	results, err := c.Search(context.Background(), "   ", 10)
	assert.NoError(t, err)
	assert.Empty(t, results)
	assert.Zero(t, upstream.calls())
}

func TestSearch_EscapesQuotes(t *testing.T) {
	upstream := &fakeIGDB{}
	c := newTestClient(t, upstream, staticToken("test-token"))

	_, _ = c.Search(context.Background(), `say "hi"`, 10)
	assert.Contains(t, upstream.lastBody(), `search "say \"hi\"";`)
}

func TestSearch_UpstreamFailureReturnsEmpty(t *testing.T) {
	upstream := &fakeIGDB{status: http.StatusInternalServerError}
	c := newTestClient(t, upstream, staticToken("test-token"))

	results, err := c.Search(context.Background(), "mario", 10)
	assert.ErrorIs(t, err, core.ErrUpstreamCatalog)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestPopular_SortsByRatingAndKeepsRating(t *testing.T) {
	upstream := &fakeIGDB{replies: map[string]string{"sort rating desc": `[{"id": 9, "name": "Top", "rating": 98.5}]`}}
	c := newTestClient(t, upstream, staticToken("test-token"))

	results, err := c.Popular(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NotNil(t, results[0].Rating)
	assert.InDelta(t, 98.5, *results[0].Rating, 0.001)

	body := upstream.lastBody()
	assert.Contains(t, body, "where category = 0 & rating != null;")
	assert.Contains(t, body, "limit 5;")
}
