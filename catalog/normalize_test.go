package catalog

import (
	"testing"

	"gamedex/core"

	"github.com/stretchr/testify/assert"
)

func TestImageURL(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		size string
		want string
	}{
		{"protocol relative", "//images.igdb.com/igdb/image/upload/t_thumb/x.jpg", sizeCoverBig, "https://images.igdb.com/igdb/image/upload/t_cover_big/x.jpg"},
		{"already absolute", "https://images.igdb.com/igdb/image/upload/t_thumb/x.jpg", sizeScreenshotHuge, "https://images.igdb.com/igdb/image/upload/t_screenshot_huge/x.jpg"},
		{"bare host", "images.igdb.com/igdb/image/upload/t_720p/x.jpg", sizeCoverBig, "https://images.igdb.com/igdb/image/upload/t_720p/x.jpg"},
		{"empty", "", sizeCoverBig, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, imageURL(tt.raw, tt.size))
		})
	}
}

func TestDeveloperName(t *testing.T) {
	named := func(name string, dev bool) rawInvolvedCompany {
		ic := rawInvolvedCompany{Developer: dev}
		ic.Company = &struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		}{Name: name}
		return ic
	}

	assert.Equal(t, core.UnknownDeveloper, developerName(nil))
	assert.Equal(t, core.UnknownDeveloper, developerName([]rawInvolvedCompany{named("Publisher", false)}))
	assert.Equal(t, "Studio", developerName([]rawInvolvedCompany{named("Publisher", false), named("Studio", true), named("Other", true)}))
	assert.Equal(t, core.UnknownDeveloper, developerName([]rawInvolvedCompany{{Developer: true}}))
}
