package core

import (
	"fmt"
	"time"
)

// UnknownDeveloper is reported when no involved company is flagged as the developer.
const UnknownDeveloper = "Unknown Developer"

type (
	// Image is a cover or screenshot reference with a fully-qualified URL.
	Image struct {
		ID  int64  `json:"id"`
		URL string `json:"url"`
	}

	Platform struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}

	// Game is a catalog entity as served by /api/games/{id}.
	// Rating is kept on the upstream 0-100 scale; see RatingOutOfTen.
	Game struct {
		ID               int64      `json:"id"`
		Name             string     `json:"name"`
		Cover            *Image     `json:"cover,omitempty"`
		FirstReleaseDate *int64     `json:"first_release_date,omitempty"` // epoch seconds
		Rating           *float64   `json:"rating,omitempty"`
		Platforms        []Platform `json:"platforms"`
		Screenshots      []Image    `json:"screenshots"`
		SimilarGames     []int64    `json:"similar_games"`
		Slug             string     `json:"slug,omitempty"`
		Developer        string     `json:"developer,omitempty"`
	}

	// SearchResult is the reduced projection returned by search, popular and similar-games queries.
	SearchResult struct {
		ID               int64    `json:"id"`
		Name             string   `json:"name"`
		Cover            *Image   `json:"cover,omitempty"`
		FirstReleaseDate *int64   `json:"first_release_date,omitempty"`
		Slug             string   `json:"slug,omitempty"`
		Rating           *float64 `json:"rating,omitempty"`
	}

	// CollectedGame is a Game plus the epoch-millisecond time it entered a collection.
	CollectedGame struct {
		Game
		CollectedAt int64 `json:"collectedAt"`
	}

	// GameDetails is the payload of GET /api/games/{id}.
	GameDetails struct {
		Game         *Game          `json:"game"`
		SimilarGames []SearchResult `json:"similarGames"`
	}
)

// HasFullDetails reports whether the detail-only fields were populated by a detail fetch.
func (g *Game) HasFullDetails() bool {
	return g.Rating != nil && g.Platforms != nil && g.Screenshots != nil
}

// Summary projects the game onto a SearchResult.
func (g *Game) Summary() SearchResult {
	return SearchResult{
		ID:               g.ID,
		Name:             g.Name,
		Cover:            g.Cover,
		FirstReleaseDate: g.FirstReleaseDate,
		Slug:             g.Slug,
		Rating:           g.Rating,
	}
}

// Game widens a search result into a Game without detail fields.
func (r SearchResult) Game() Game {
	return Game{
		ID:               r.ID,
		Name:             r.Name,
		Cover:            r.Cover,
		FirstReleaseDate: r.FirstReleaseDate,
		Slug:             r.Slug,
		Rating:           r.Rating,
	}
}

// RatingOutOfTen converts an upstream 0-100 rating to the 0-10 display scale.
func RatingOutOfTen(rating float64) float64 {
	return rating / 10
}

// FormatRating renders a 0-100 rating as a one-decimal 0-10 score, e.g. 87.4 -> "8.7".
func FormatRating(rating float64) string {
	return fmt.Sprintf("%.1f", RatingOutOfTen(rating))
}

// FormatReleaseDate renders an epoch-seconds release date as "Jan 02, 2006" in UTC.
func FormatReleaseDate(ts int64) string {
	return time.Unix(ts, 0).UTC().Format("Jan 02, 2006")
}
