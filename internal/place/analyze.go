package place

import (
	"strings"
	"unicode/utf8"

	"github.com/local/imageplanner/internal/imagery"
)

// Content complexity buckets.
const (
	ComplexityLow    = "low"
	ComplexityMedium = "medium"
	ComplexityHigh   = "high"
)

// SectionAnalysis is the per-section view the scorer works from.
//
// ImageCapacity is an advisory estimate only. The binding constraint during
// assignment is the run's MaxImagesPerSection option; the capacity estimate is
// reported so callers can see which sections look under- or over-provisioned,
// but it is deliberately not enforced anywhere.
type SectionAnalysis struct {
	SectionID     string
	Type          string
	ContentLength int
	ImageCapacity int
	Complexity    string
}

// AnalyzeSection derives length, capacity estimate and complexity for one
// section. Length is counted in characters, not bytes, so multi-byte scripts
// hit the same thresholds as ASCII.
func AnalyzeSection(sec imagery.Section) SectionAnalysis {
	length := utf8.RuneCountInString(sec.Content)

	capacity := 2
	switch {
	case length > 2000:
		capacity += 2
	case length > 1000:
		capacity++
	case length < 300:
		capacity--
	}
	if capacity < 1 {
		capacity = 1
	}

	return SectionAnalysis{
		SectionID:     sec.ID,
		Type:          sec.Type,
		ContentLength: length,
		ImageCapacity: capacity,
		Complexity:    contentComplexity(sec.Content),
	}
}

func contentComplexity(text string) string {
	words := len(strings.Fields(text))
	sentences := countSentences(text)
	if sentences == 0 {
		sentences = 1
	}
	avg := float64(words) / float64(sentences)

	switch {
	case avg > 20 || words > 1500:
		return ComplexityHigh
	case avg > 12 || words > 500:
		return ComplexityMedium
	default:
		return ComplexityLow
	}
}

func countSentences(text string) int {
	n := 0
	for _, r := range text {
		switch r {
		case '.', '!', '?':
			n++
		}
	}
	return n
}

// flatten walks the section tree depth-first so that subsections compete for
// images on equal footing with their parents.
func flatten(sections []imagery.Section) []imagery.Section {
	out := make([]imagery.Section, 0, len(sections))
	var walk func([]imagery.Section)
	walk = func(secs []imagery.Section) {
		for _, s := range secs {
			out = append(out, s)
			if len(s.Subsections) > 0 {
				walk(s.Subsections)
			}
		}
	}
	walk(sections)
	return out
}
