package place

import "github.com/local/imageplanner/internal/imagery"

// ApplyPlacements returns a copy of the section tree with placed images
// appended to their target sections' image lists. The input tree is never
// modified; callers that want the original can keep using it. Placeholder
// placements have no backing image and are skipped.
func ApplyPlacements(sections []imagery.Section, images []imagery.Image, placements []imagery.Placement) []imagery.Section {
	byID := make(map[string]imagery.Image, len(images))
	for _, img := range images {
		byID[img.URL] = img
	}

	bySection := make(map[string][]imagery.Image)
	for _, p := range placements {
		img, ok := byID[p.ImageID]
		if !ok {
			continue
		}
		if p.Caption != "" && img.Caption == "" {
			img.Caption = p.Caption
		}
		bySection[p.SectionID] = append(bySection[p.SectionID], img)
	}

	var clone func([]imagery.Section) []imagery.Section
	clone = func(secs []imagery.Section) []imagery.Section {
		out := make([]imagery.Section, len(secs))
		for i, s := range secs {
			c := s
			c.Images = append(append([]imagery.Image(nil), s.Images...), bySection[s.ID]...)
			c.Subsections = clone(s.Subsections)
			out[i] = c
		}
		return out
	}
	return clone(sections)
}
