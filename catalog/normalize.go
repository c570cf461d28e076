package catalog

import (
	"strings"

	"gamedex/core"
)

// Image size tokens in IGDB image URLs.
const (
	sizeThumb          = "t_thumb"
	sizeCoverBig       = "t_cover_big"
	sizeScreenshotHuge = "t_screenshot_huge"
)

type (
	rawImage struct {
		ID  int64  `json:"id"`
		URL string `json:"url"`
	}

	rawPlatform struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}

	rawInvolvedCompany struct {
		Company *struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		} `json:"company"`
		Developer bool `json:"developer"`
	}

	// rawGame is a game record as returned by the IGDB games endpoint.
	rawGame struct {
		ID                int64                `json:"id"`
		Name              string               `json:"name"`
		Cover             *rawImage            `json:"cover"`
		FirstReleaseDate  *int64               `json:"first_release_date"`
		Rating            *float64             `json:"rating"`
		Platforms         []rawPlatform        `json:"platforms"`
		Screenshots       []rawImage           `json:"screenshots"`
		SimilarGames      []int64              `json:"similar_games"`
		Slug              string               `json:"slug"`
		InvolvedCompanies []rawInvolvedCompany `json:"involved_companies"`
	}
)

// imageURL swaps the thumbnail size token for size and makes the URL absolute.
// IGDB returns protocol-relative URLs such as //images.igdb.com/...
func imageURL(raw, size string) string {
	u := strings.Replace(raw, sizeThumb, size, 1)
	switch {
	case u == "":
		return u
	case strings.HasPrefix(u, "//"):
		return "https:" + u
	case strings.HasPrefix(u, "https://"), strings.HasPrefix(u, "http://"):
		return u
	default:
		return "https://" + strings.TrimPrefix(u, "/")
	}
}

func normalizeCover(img *rawImage) *core.Image {
	if img == nil {
		return nil
	}
	return &core.Image{ID: img.ID, URL: imageURL(img.URL, sizeCoverBig)}
}

func developerName(companies []rawInvolvedCompany) string {
	for _, ic := range companies {
		if ic.Developer {
			if ic.Company != nil && ic.Company.Name != "" {
				return ic.Company.Name
			}
			break
		}
	}
	return core.UnknownDeveloper
}

func normalizeGame(g rawGame) *core.Game {
	platforms := make([]core.Platform, 0, len(g.Platforms))
	for _, p := range g.Platforms {
		platforms = append(platforms, core.Platform{ID: p.ID, Name: p.Name})
	}
	screenshots := make([]core.Image, 0, len(g.Screenshots))
	for _, s := range g.Screenshots {
		screenshots = append(screenshots, core.Image{ID: s.ID, URL: imageURL(s.URL, sizeScreenshotHuge)})
	}
	similar := g.SimilarGames
	if similar == nil {
		similar = []int64{}
	}

	return &core.Game{
		ID:               g.ID,
		Name:             g.Name,
		Cover:            normalizeCover(g.Cover),
		FirstReleaseDate: g.FirstReleaseDate,
		Rating:           g.Rating,
		Platforms:        platforms,
		Screenshots:      screenshots,
		SimilarGames:     similar,
		Slug:             g.Slug,
		Developer:        developerName(g.InvolvedCompanies),
	}
}

// normalizeResults projects raw records onto search results. Rating is only
// carried when withRating is set (popular list).
func normalizeResults(games []rawGame, withRating bool) []core.SearchResult {
	out := make([]core.SearchResult, 0, len(games))
	for _, g := range games {
		r := core.SearchResult{
			ID:               g.ID,
			Name:             g.Name,
			Cover:            normalizeCover(g.Cover),
			FirstReleaseDate: g.FirstReleaseDate,
			Slug:             g.Slug,
		}
		if withRating {
			r.Rating = g.Rating
		}
		out = append(out, r)
	}
	return out
}
