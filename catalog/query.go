package catalog

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	detailFields  = "name,cover.url,first_release_date,rating,platforms.name,screenshots.url,similar_games,slug,involved_companies.company.name,involved_companies.developer"
	summaryFields = "name,cover.url,first_release_date,slug"
	popularFields = summaryFields + ",rating"

	// similarGamesLimit caps the similar-games strip on the detail page.
	similarGamesLimit = 6

	// baseGameCategory restricts results to main games, excluding DLC and expansions.
	baseGameCategory = 0
)

func detailQuery(id int64) string {
	return fmt.Sprintf("fields %s;\nwhere id = %d;\n", detailFields, id)
}

func similarQuery(ids []int64) string {
	return fmt.Sprintf("fields %s;\nwhere id = (%s);\nlimit %d;\n", summaryFields, joinIDs(ids), similarGamesLimit)
}

func searchQuery(query string, limit int) string {
	return fmt.Sprintf("search \"%s\";\nfields %s;\nlimit %d;\nwhere category = %d;\n",
		escapeQuery(query), summaryFields, limit, baseGameCategory)
}

func popularQuery(limit int) string {
	return fmt.Sprintf("fields %s;\nsort rating desc;\nwhere category = %d & rating != null;\nlimit %d;\n",
		popularFields, baseGameCategory, limit)
}

func escapeQuery(q string) string {
	q = strings.ReplaceAll(q, `\`, `\\`)
	return strings.ReplaceAll(q, `"`, `\"`)
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

func gameKey(id int64) string {
	return "game-" + strconv.FormatInt(id, 10)
}

func similarKey(ids []int64) string {
	return "similar-" + joinIDs(ids)
}

func searchKey(query string, limit int) string {
	return fmt.Sprintf("search-%s-%d", strings.ToLower(query), limit)
}

func popularKey(limit int) string {
	return fmt.Sprintf("popular-%d", limit)
}
