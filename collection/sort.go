package collection

import (
	"fmt"
	"sort"

	"gamedex/core"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Criterion selects a collection ordering.
type Criterion string

const (
	// ByDateAdded puts the most recently collected game first.
	ByDateAdded Criterion = "dateAdded"
	// ByReleaseDate puts the newest release first; undated games go last.
	ByReleaseDate Criterion = "releaseDate"
	// ByName orders names alphabetically using locale-aware comparison.
	ByName Criterion = "name"
)

// ParseCriterion validates a criterion name.
func ParseCriterion(s string) (Criterion, error) {
	switch c := Criterion(s); c {
	case ByDateAdded, ByReleaseDate, ByName:
		return c, nil
	}
	return "", fmt.Errorf("unknown sort criterion %q (want dateAdded, releaseDate or name)", s)
}

func sortGames(games []core.CollectedGame, by Criterion) {
	switch by {
	case ByDateAdded:
		sort.SliceStable(games, func(i, j int) bool {
			return games[i].CollectedAt > games[j].CollectedAt
		})
	case ByReleaseDate:
		sort.SliceStable(games, func(i, j int) bool {
			a, b := games[i].FirstReleaseDate, games[j].FirstReleaseDate
			switch {
			case a == nil:
				return false
			case b == nil:
				return true
			}
			return *a > *b
		})
	case ByName:
		// Collators are not safe for concurrent use.
		c := collate.New(language.English, collate.Loose)
		sort.SliceStable(games, func(i, j int) bool {
			return c.CompareString(games[i].Name, games[j].Name) < 0
		})
	}
}
