package place

import (
	"sort"
	"strings"

	"github.com/local/imageplanner/internal/imagery"
)

// Options controls one placement run.
type Options struct {
	MaxImagesPerSection int    `json:"maxImagesPerSection,omitempty"`
	PreferredPosition   string `json:"preferredPosition,omitempty"`
	PreferredAlignment  string `json:"preferredAlignment,omitempty"`
	AllowTextWrapping   bool   `json:"allowTextWrapping,omitempty"`
	// PrioritizeRelevance stable-sorts images by relevance (descending)
	// before scoring. Off by default: input order is part of the contract
	// callers rely on for determinism.
	PrioritizeRelevance bool `json:"prioritizeRelevance,omitempty"`
}

// DefaultOptions returns the baseline placement configuration.
func DefaultOptions() Options {
	return Options{
		MaxImagesPerSection: 3,
		PreferredPosition:   imagery.PositionMiddle,
		PreferredAlignment:  imagery.AlignCenter,
		AllowTextWrapping:   true,
	}
}

func (o Options) withDefaults() Options {
	if o.MaxImagesPerSection <= 0 {
		o.MaxImagesPerSection = 3
	}
	if o.PreferredPosition == "" {
		o.PreferredPosition = imagery.PositionMiddle
	}
	if o.PreferredAlignment == "" {
		o.PreferredAlignment = imagery.AlignCenter
	}
	return o
}

// Keywords strongly associated with a section type. An image whose alt text or
// caption contains one of these gets the full type-match weight.
var typeKeywords = map[string][]string{
	imagery.SectionFeatures:        {"feature", "function"},
	imagery.SectionInstallation:    {"install", "setup"},
	imagery.SectionUsage:           {"use", "step"},
	imagery.SectionTroubleshooting: {"error", "problem"},
	imagery.SectionSpecifications:  {"spec", "technical"},
}

// Partial type-match weight when no keyword hits, fixed per section type.
var typePartialMatch = map[string]float64{
	imagery.SectionIntroduction:    0.8,
	imagery.SectionFeatures:        0.6,
	imagery.SectionInstallation:    0.5,
	imagery.SectionUsage:           0.7,
	imagery.SectionTroubleshooting: 0.5,
	imagery.SectionSpecifications:  0.6,
	imagery.SectionOther:           0.5,
}

var defaultCaptions = map[string]string{
	imagery.SectionIntroduction:    "Overview illustration",
	imagery.SectionFeatures:        "Feature overview",
	imagery.SectionInstallation:    "Installation step",
	imagery.SectionUsage:           "Usage example",
	imagery.SectionTroubleshooting: "Troubleshooting reference",
	imagery.SectionSpecifications:  "Technical specifications",
	imagery.SectionOther:           "Related illustration",
}

var typePriorityBonus = map[string]int{
	imagery.SectionFeatures:     20,
	imagery.SectionUsage:        15,
	imagery.SectionInstallation: 10,
}

// Place assigns images to sections with a deterministic scoring pass.
// Placements and UnplacedImages always partition the input image set.
func Place(images []imagery.Image, sections []imagery.Section, opts Options) imagery.PlacementResult {
	opts = opts.withDefaults()
	flat := flatten(sections)

	analyses := make([]SectionAnalysis, len(flat))
	for i, sec := range flat {
		analyses[i] = AnalyzeSection(sec)
	}

	ordered := images
	if opts.PrioritizeRelevance {
		ordered = make([]imagery.Image, len(images))
		copy(ordered, images)
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].RelevanceOrDefault() > ordered[j].RelevanceOrDefault()
		})
	}

	// Count of placements made into each section during this run, keyed by
	// flat index. Pre-attached images count toward the empty-section bonus
	// but not toward the per-run cap.
	placedCount := make([]int, len(flat))

	res := imagery.PlacementResult{}
	for _, img := range ordered {
		best := -1
		bestScore := 0.0
		for i, sec := range flat {
			if placedCount[i] >= opts.MaxImagesPerSection {
				continue
			}
			empty := len(sec.Images) == 0 && placedCount[i] == 0
			score := sectionScore(img, analyses[i], empty)
			if best == -1 || score > bestScore {
				best = i
				bestScore = score
			}
		}
		if best == -1 {
			res.UnplacedImages = append(res.UnplacedImages, img)
			continue
		}
		res.Placements = append(res.Placements, derivePlacement(img, flat[best], analyses[best], placedCount[best], opts))
		placedCount[best]++
	}

	res.Score = aggregateScore(res.Placements, placedCount, len(flat))
	return res
}

// sectionScore rates how well an image suits one section. Higher is better;
// strict comparison keeps ties on the earliest eligible section.
func sectionScore(img imagery.Image, a SectionAnalysis, sectionEmpty bool) float64 {
	score := img.RelevanceOrDefault() * 40
	score += typeMatch(img, a.Type) * 30
	if a.ContentLength > 500 {
		score += 15
	}
	if a.ContentLength > 1000 {
		score += 10
	}
	if sectionEmpty {
		score += 20
	}
	switch a.Complexity {
	case ComplexityHigh:
		score += 15
	case ComplexityMedium:
		score += 10
	default:
		score += 5
	}
	return score
}

func typeMatch(img imagery.Image, sectionType string) float64 {
	text := strings.ToLower(img.Alt + " " + img.Caption)
	for _, kw := range typeKeywords[sectionType] {
		if strings.Contains(text, kw) {
			return 1.0
		}
	}
	if partial, ok := typePartialMatch[sectionType]; ok {
		return partial
	}
	return typePartialMatch[imagery.SectionOther]
}

// derivePlacement fixes the rendering hints for an image that won a section.
// alreadyPlaced is the number of images placed into that section earlier in
// this run.
func derivePlacement(img imagery.Image, sec imagery.Section, a SectionAnalysis, alreadyPlaced int, opts Options) imagery.Placement {
	cycle := []string{imagery.PositionTop, imagery.PositionMiddle, imagery.PositionBottom}
	position := opts.PreferredPosition
	if alreadyPlaced > 0 {
		position = cycle[alreadyPlaced%3]
	}

	aspect := img.AspectRatio()
	alignment := opts.PreferredAlignment
	switch {
	case aspect > 2:
		alignment = imagery.AlignCenter
	case aspect < 0.7:
		if opts.PreferredAlignment != imagery.AlignCenter {
			alignment = imagery.AlignLeft
		}
	}

	caption := img.Alt
	if caption == "" {
		caption = img.Caption
	}
	if caption == "" {
		caption = defaultCaptions[sec.Type]
		if caption == "" {
			caption = defaultCaptions[imagery.SectionOther]
		}
	}

	wrap := opts.AllowTextWrapping
	if aspect > 1.5 || a.ContentLength < 500 {
		wrap = false
	}

	size := imagery.SizeSmall
	switch {
	case aspect > 2:
		size = imagery.SizeFullWidth
	case a.ContentLength > 1500:
		size = imagery.SizeLarge
	case a.ContentLength > 800:
		size = imagery.SizeMedium
	}

	priority := 50
	if bonus, ok := typePriorityBonus[sec.Type]; ok {
		priority += bonus
	} else {
		priority += 5
	}

	return imagery.Placement{
		ImageID:   img.URL,
		SectionID: sec.ID,
		Position:  position,
		Alignment: alignment,
		Caption:   caption,
		WrapText:  wrap,
		Size:      size,
		Priority:  priority,
	}
}

// aggregateScore reduces a placement list to a 0-100 quality figure. Priority
// mass contributes up to 80 points, distribution across sections up to 20.
func aggregateScore(placements []imagery.Placement, placedCount []int, totalSections int) float64 {
	if len(placements) == 0 {
		return 0
	}
	sum := 0
	for _, p := range placements {
		sum += p.Priority
	}
	score := float64(sum) / float64(100*len(placements)) * 80

	if totalSections > 0 {
		used := 0
		for _, n := range placedCount {
			if n > 0 {
				used++
			}
		}
		score += float64(used) / float64(totalSections) * 20
	}

	if score > 100 {
		score = 100
	}
	return score
}
