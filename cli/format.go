package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"gamedex/core"

	"github.com/fatih/color"
)

var (
	titleColor = color.New(color.Bold)
	dimColor   = color.New(color.Faint)
)

func releaseYear(ts *int64) string {
	if ts == nil {
		return "TBA"
	}
	return strconv.Itoa(time.Unix(*ts, 0).UTC().Year())
}

func ratingText(rating *float64) string {
	if rating == nil {
		return "-"
	}
	return core.FormatRating(*rating)
}

func printResults(w io.Writer, results []core.SearchResult) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No games found.")
		return
	}
	for _, r := range results {
		fmt.Fprintf(w, "%8d  %s %s\n", r.ID, r.Name, dimColor.Sprintf("(%s)", releaseYear(r.FirstReleaseDate)))
	}
}

func printGame(w io.Writer, details *core.GameDetails) {
	g := details.Game
	titleColor.Fprintln(w, g.Name)
	fmt.Fprintln(w, strings.Repeat("─", 50))

	released := "TBA"
	if g.FirstReleaseDate != nil {
		released = core.FormatReleaseDate(*g.FirstReleaseDate)
	}
	fmt.Fprintf(w, "ID:        %d\n", g.ID)
	fmt.Fprintf(w, "Released:  %s\n", released)
	fmt.Fprintf(w, "Rating:    %s\n", ratingText(g.Rating))
	if g.Developer != "" {
		fmt.Fprintf(w, "Developer: %s\n", g.Developer)
	}
	if len(g.Platforms) > 0 {
		names := make([]string, 0, len(g.Platforms))
		for _, p := range g.Platforms {
			names = append(names, p.Name)
		}
		fmt.Fprintf(w, "Platforms: %s\n", strings.Join(names, ", "))
	}
	if g.Cover != nil {
		fmt.Fprintf(w, "Cover:     %s\n", g.Cover.URL)
	}
	if len(g.Screenshots) > 0 {
		fmt.Fprintf(w, "Screenshots: %d\n", len(g.Screenshots))
	}

	if len(details.SimilarGames) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Similar games:")
		printResults(w, details.SimilarGames)
	}
}

func printCollection(w io.Writer, games []core.CollectedGame) {
	if len(games) == 0 {
		fmt.Fprintln(w, "Your collection is empty.")
		fmt.Fprintln(w, "\nUse 'gamedex collection add <game-id>' to add a game.")
		return
	}
	fmt.Fprintf(w, "COLLECTION (%d games)\n", len(games))
	fmt.Fprintln(w, strings.Repeat("─", 50))
	for _, g := range games {
		fmt.Fprintf(w, "%8d  %-40s %6s  %s\n", g.ID, g.Name, ratingText(g.Rating), releaseYear(g.FirstReleaseDate))
	}
}
