package games

import (
	"context"
	"net/http"
	"strconv"

	"gamedex/core"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

const cacheControl = "public, s-maxage=600, stale-while-revalidate=1200"

// DetailsFetcher looks up a game and its similar games.
type DetailsFetcher interface {
	Details(ctx context.Context, id int64) (*core.GameDetails, error)
}

// HandleGetGame serves GET /api/games/{id}.
func HandleGetGame(catalog DetailsFetcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Invalid game ID"})
			return
		}

		details, err := catalog.Details(r.Context(), id)
		if err != nil {
			// Upstream failures surface as a missing game.
			logrus.WithFields(logrus.Fields{
				"error":  err,
				"gameID": id,
			}).Warn("Failed to get game details")
		}
		if details == nil || details.Game == nil {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, map[string]string{"error": "Game not found"})
			return
		}
		if details.SimilarGames == nil {
			details.SimilarGames = []core.SearchResult{}
		}

		w.Header().Set("Cache-Control", cacheControl)
		render.JSON(w, r, details)
	}
}
