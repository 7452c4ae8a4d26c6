package place

import (
	"unicode/utf8"

	"github.com/local/imageplanner/internal/imagery"
)

// GenerateFallbackPlacements distributes images across sections one per
// section, in order, when the scored pass was skipped entirely (for example
// after an upstream failure). It yields exactly min(len(images), len(sections))
// placements with fixed, unsurprising rendering hints.
func GenerateFallbackPlacements(images []imagery.Image, sections []imagery.Section) []imagery.Placement {
	flat := flatten(sections)
	if len(flat) == 0 || len(images) == 0 {
		return nil
	}
	n := len(images)
	if len(flat) < n {
		n = len(flat)
	}

	placements := make([]imagery.Placement, 0, n)
	for i := 0; i < n; i++ {
		img := images[i]
		sec := flat[i%len(flat)]
		caption := img.Alt
		if caption == "" {
			caption = img.Caption
		}
		placements = append(placements, imagery.Placement{
			ImageID:   img.URL,
			SectionID: sec.ID,
			Position:  imagery.PositionMiddle,
			Alignment: imagery.AlignCenter,
			Caption:   caption,
			WrapText:  true,
			Size:      imagery.SizeMedium,
			Priority:  50,
		})
	}
	return placements
}

// CreatePlaceholderPlacements marks sections that would benefit from a manual
// image: substantial content (over 500 characters) and not an introduction.
// The synthetic image id is placeholder_<sectionID> so downstream tooling can
// tell these apart from real placements.
func CreatePlaceholderPlacements(sections []imagery.Section) []imagery.Placement {
	var placements []imagery.Placement
	for _, sec := range flatten(sections) {
		if sec.Type == imagery.SectionIntroduction || utf8.RuneCountInString(sec.Content) <= 500 {
			continue
		}
		caption := defaultCaptions[sec.Type]
		if caption == "" {
			caption = defaultCaptions[imagery.SectionOther]
		}
		placements = append(placements, imagery.Placement{
			ImageID:     "placeholder_" + sec.ID,
			SectionID:   sec.ID,
			Position:    imagery.PositionMiddle,
			Alignment:   imagery.AlignCenter,
			Caption:     caption,
			WrapText:    true,
			Size:        imagery.SizeMedium,
			Priority:    25,
			Placeholder: true,
		})
	}
	return placements
}
