package search

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"gamedex/core"

	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

const (
	cacheControl = "public, s-maxage=300, stale-while-revalidate=600"
	defaultLimit = 10
	// IGDB rejects limits above 500.
	maxLimit = 500
)

// Catalog is the part of the catalog client the search route needs.
type Catalog interface {
	Search(ctx context.Context, query string, limit int) ([]core.SearchResult, error)
	Popular(ctx context.Context, limit int) ([]core.SearchResult, error)
}

// HandleSearch serves GET /api/search?q=&limit=. The literal query
// "popular" (any case) returns the top rated games instead.
func HandleSearch(catalog Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("q")
		if query == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Query parameter 'q' is required"})
			return
		}
		limit := parseLimit(r.URL.Query().Get("limit"))

		var (
			results []core.SearchResult
			err     error
		)
		if strings.EqualFold(query, "popular") {
			results, err = catalog.Popular(r.Context(), limit)
		} else {
			results, err = catalog.Search(r.Context(), query, limit)
		}
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"error": err,
				"query": query,
				"limit": limit,
			}).Warn("Search failed, returning empty result")
		}
		if results == nil {
			results = []core.SearchResult{}
		}

		w.Header().Set("Cache-Control", cacheControl)
		render.JSON(w, r, results)
	}
}

func parseLimit(raw string) int {
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}
