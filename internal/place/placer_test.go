package place

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/local/imageplanner/internal/imagery"
)

// sectionText builds deterministic filler of roughly n characters with short
// sentences, so complexity stays "low" and tests only exercise the length
// bonuses they mean to.
func sectionText(n int) string {
	var b strings.Builder
	for b.Len() < n {
		b.WriteString("Short filler sentence here. ")
	}
	return b.String()[:n]
}

func TestAnalyzeSectionCapacity(t *testing.T) {
	tests := []struct {
		length int
		want   int
	}{
		{0, 1},
		{100, 1},
		{299, 1},
		{300, 2},
		{500, 2},
		{1000, 2},
		{1001, 3},
		{2000, 3},
		{2001, 4},
	}
	for _, tt := range tests {
		a := AnalyzeSection(imagery.Section{ID: "s", Content: sectionText(tt.length)})
		if a.ImageCapacity != tt.want {
			t.Errorf("length %d: capacity = %d, want %d", tt.length, a.ImageCapacity, tt.want)
		}
		if a.ContentLength != tt.length {
			t.Errorf("length %d: contentLength = %d", tt.length, a.ContentLength)
		}
	}
}

func TestContentComplexity(t *testing.T) {
	longSentence := strings.Repeat("word ", 25) + "."
	tests := []struct {
		name string
		text string
		want string
	}{
		{"empty", "", ComplexityLow},
		{"short sentences", "One two three. Four five six.", ComplexityLow},
		{"long average sentence", longSentence, ComplexityHigh},
		{"many short sentences", strings.Repeat("word word word. ", 100), ComplexityLow},
		{"medium average", strings.Repeat("word ", 15) + ".", ComplexityMedium},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := contentComplexity(tt.text); got != tt.want {
				t.Errorf("complexity = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestContentComplexityWordCountThresholds(t *testing.T) {
	// 600 words in 100 short sentences: avg 6, but word count pushes medium.
	text := strings.Repeat("one two three four five six. ", 100)
	if got := contentComplexity(text); got != ComplexityMedium {
		t.Fatalf("600 words = %q, want medium", got)
	}
	// 1600 words in short sentences: word count pushes high.
	text = strings.Repeat("one two three four five six seven eight. ", 200)
	if got := contentComplexity(text); got != ComplexityHigh {
		t.Fatalf("1600 words = %q, want high", got)
	}
}

func TestPlaceKeywordExample(t *testing.T) {
	images := []imagery.Image{
		{URL: "http://a/install.png", Alt: "installation wizard screenshot"},
		{URL: "http://a/feature.png", Alt: "feature icon"},
	}
	sections := []imagery.Section{
		{ID: "sec-install", Type: imagery.SectionInstallation, Content: sectionText(600)},
		{ID: "sec-features", Type: imagery.SectionFeatures, Content: sectionText(1800)},
	}

	res := Place(images, sections, DefaultOptions())

	if len(res.Placements) != 2 || len(res.UnplacedImages) != 0 {
		t.Fatalf("placements = %d, unplaced = %d, want 2/0", len(res.Placements), len(res.UnplacedImages))
	}
	if res.Placements[0].SectionID != "sec-install" {
		t.Errorf("install image placed in %q, want sec-install", res.Placements[0].SectionID)
	}
	if res.Placements[1].SectionID != "sec-features" {
		t.Errorf("feature image placed in %q, want sec-features", res.Placements[1].SectionID)
	}

	// Priorities: installation 60, features 70. Base 52 plus full 2/2
	// distribution bonus of 20.
	if want := 72.0; res.Score != want {
		t.Errorf("score = %v, want %v", res.Score, want)
	}
}

func TestPlaceCapOnePerSection(t *testing.T) {
	images := []imagery.Image{
		{URL: "img1"}, {URL: "img2"}, {URL: "img3"},
	}
	sections := []imagery.Section{
		{ID: "only", Type: imagery.SectionUsage, Content: sectionText(900)},
	}
	opts := DefaultOptions()
	opts.MaxImagesPerSection = 1

	res := Place(images, sections, opts)
	if len(res.Placements) != 1 {
		t.Fatalf("placements = %d, want 1", len(res.Placements))
	}
	if len(res.UnplacedImages) != 2 {
		t.Fatalf("unplaced = %d, want 2", len(res.UnplacedImages))
	}
	if res.Placements[0].ImageID != "img1" {
		t.Errorf("placed image = %q, want img1 (input order)", res.Placements[0].ImageID)
	}
}

func TestPlacePartitionProperty(t *testing.T) {
	sections := []imagery.Section{
		{ID: "a", Type: imagery.SectionFeatures, Content: sectionText(1200)},
		{ID: "b", Type: imagery.SectionUsage, Content: sectionText(400)},
	}
	for _, n := range []int{0, 1, 4, 9} {
		images := make([]imagery.Image, n)
		for i := range images {
			images[i] = imagery.Image{URL: fmt.Sprintf("img-%d", i)}
		}
		res := Place(images, sections, DefaultOptions())
		if got := len(res.Placements) + len(res.UnplacedImages); got != n {
			t.Errorf("n=%d: placements+unplaced = %d", n, got)
		}
		seen := map[string]bool{}
		for _, p := range res.Placements {
			if seen[p.ImageID] {
				t.Errorf("n=%d: image %q placed twice", n, p.ImageID)
			}
			seen[p.ImageID] = true
		}
		for _, img := range res.UnplacedImages {
			if seen[img.URL] {
				t.Errorf("n=%d: image %q both placed and unplaced", n, img.URL)
			}
		}
		perSection := map[string]int{}
		for _, p := range res.Placements {
			perSection[p.SectionID]++
		}
		for id, c := range perSection {
			if c > 3 {
				t.Errorf("n=%d: section %q has %d placements", n, id, c)
			}
		}
		if res.Score < 0 || res.Score > 100 {
			t.Errorf("n=%d: score %v out of range", n, res.Score)
		}
		if n == 0 && res.Score != 0 {
			t.Errorf("empty placement list score = %v, want 0", res.Score)
		}
	}
}

func TestPlaceDeterminism(t *testing.T) {
	images := []imagery.Image{
		{URL: "u1", Alt: "setup guide", Relevance: 0.3},
		{URL: "u2", Alt: "error dialog", Width: 300, Height: 500},
		{URL: "u3", Alt: "feature matrix", Relevance: 0.9},
		{URL: "u4"},
	}
	sections := []imagery.Section{
		{ID: "s1", Type: imagery.SectionInstallation, Content: sectionText(700)},
		{ID: "s2", Type: imagery.SectionTroubleshooting, Content: sectionText(1100)},
		{ID: "s3", Type: imagery.SectionFeatures, Content: sectionText(2500)},
	}
	first := Place(images, sections, DefaultOptions())
	second := Place(images, sections, DefaultOptions())
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("two identical runs differ:\n%+v\n%+v", first, second)
	}
}

func TestPlaceNoSections(t *testing.T) {
	res := Place([]imagery.Image{{URL: "solo"}}, nil, DefaultOptions())
	if len(res.Placements) != 0 || len(res.UnplacedImages) != 1 {
		t.Fatalf("placements = %d, unplaced = %d, want 0/1", len(res.Placements), len(res.UnplacedImages))
	}
	if res.Score != 0 {
		t.Fatalf("score = %v, want 0", res.Score)
	}
}

func TestPlacePositionCycle(t *testing.T) {
	images := []imagery.Image{{URL: "p1"}, {URL: "p2"}, {URL: "p3"}}
	sections := []imagery.Section{
		{ID: "s", Type: imagery.SectionUsage, Content: sectionText(1700)},
	}
	res := Place(images, sections, DefaultOptions())
	if len(res.Placements) != 3 {
		t.Fatalf("placements = %d, want 3", len(res.Placements))
	}
	// First takes the preferred position, later ones cycle by count mod 3.
	want := []string{imagery.PositionMiddle, imagery.PositionMiddle, imagery.PositionBottom}
	for i, p := range res.Placements {
		if p.Position != want[i] {
			t.Errorf("placement %d position = %q, want %q", i, p.Position, want[i])
		}
	}
}

func TestDerivePlacementFields(t *testing.T) {
	longSec := imagery.Section{ID: "s", Type: imagery.SectionFeatures, Content: sectionText(1700)}
	shortSec := imagery.Section{ID: "t", Type: imagery.SectionOther, Content: sectionText(200)}
	opts := DefaultOptions()

	tests := []struct {
		name      string
		img       imagery.Image
		sec       imagery.Section
		alignment string
		size      string
		wrap      bool
		caption   string
	}{
		{
			name:      "panoramic centers and spans",
			img:       imagery.Image{URL: "u", Alt: "banner", Width: 2100, Height: 900},
			sec:       longSec,
			alignment: imagery.AlignCenter,
			size:      imagery.SizeFullWidth,
			wrap:      false,
			caption:   "banner",
		},
		{
			name:      "tall image keeps center preference",
			img:       imagery.Image{URL: "u", Width: 400, Height: 900},
			sec:       longSec,
			alignment: imagery.AlignCenter,
			size:      imagery.SizeLarge,
			wrap:      true,
			caption:   "Feature overview",
		},
		{
			name:      "defaults when dimensions missing",
			img:       imagery.Image{URL: "u", Caption: "from caption"},
			sec:       shortSec,
			alignment: imagery.AlignCenter,
			size:      imagery.SizeSmall,
			wrap:      false,
			caption:   "from caption",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := derivePlacement(tt.img, tt.sec, AnalyzeSection(tt.sec), 0, opts)
			if p.Alignment != tt.alignment {
				t.Errorf("alignment = %q, want %q", p.Alignment, tt.alignment)
			}
			if p.Size != tt.size {
				t.Errorf("size = %q, want %q", p.Size, tt.size)
			}
			if p.WrapText != tt.wrap {
				t.Errorf("wrapText = %v, want %v", p.WrapText, tt.wrap)
			}
			if p.Caption != tt.caption {
				t.Errorf("caption = %q, want %q", p.Caption, tt.caption)
			}
		})
	}
}

func TestDerivePlacementLeftAlignment(t *testing.T) {
	opts := DefaultOptions()
	opts.PreferredAlignment = imagery.AlignRight
	sec := imagery.Section{ID: "s", Type: imagery.SectionUsage, Content: sectionText(900)}
	img := imagery.Image{URL: "u", Width: 400, Height: 900}
	p := derivePlacement(img, sec, AnalyzeSection(sec), 0, opts)
	if p.Alignment != imagery.AlignLeft {
		t.Fatalf("alignment = %q, want left for tall image with non-center preference", p.Alignment)
	}
}

func TestPlacePrioritizeRelevance(t *testing.T) {
	images := []imagery.Image{
		{URL: "weak", Relevance: 0.2},
		{URL: "strong", Relevance: 0.95},
	}
	sections := []imagery.Section{
		{ID: "s", Type: imagery.SectionUsage, Content: sectionText(900)},
	}
	opts := DefaultOptions()
	opts.MaxImagesPerSection = 1
	opts.PrioritizeRelevance = true

	res := Place(images, sections, opts)
	if len(res.Placements) != 1 || res.Placements[0].ImageID != "strong" {
		t.Fatalf("placements = %+v, want the high-relevance image placed", res.Placements)
	}
	// Input slice must stay in its original order.
	if images[0].URL != "weak" || images[1].URL != "strong" {
		t.Fatalf("input slice reordered: %+v", images)
	}
}

func TestPlaceSubsectionsCompete(t *testing.T) {
	sections := []imagery.Section{
		{
			ID:      "parent",
			Type:    imagery.SectionOther,
			Content: sectionText(100),
			Subsections: []imagery.Section{
				{ID: "child", Type: imagery.SectionFeatures, Content: sectionText(1900)},
			},
		},
	}
	res := Place([]imagery.Image{{URL: "u", Alt: "feature shot"}}, sections, DefaultOptions())
	if len(res.Placements) != 1 || res.Placements[0].SectionID != "child" {
		t.Fatalf("placements = %+v, want image in the subsection", res.Placements)
	}
}

func TestGenerateFallbackPlacements(t *testing.T) {
	sections := []imagery.Section{
		{ID: "s1"}, {ID: "s2"}, {ID: "s3"},
	}
	tests := []struct {
		images int
		want   int
	}{
		{0, 0},
		{2, 2},
		{3, 3},
		{7, 3},
	}
	for _, tt := range tests {
		images := make([]imagery.Image, tt.images)
		for i := range images {
			images[i] = imagery.Image{URL: fmt.Sprintf("f-%d", i)}
		}
		got := GenerateFallbackPlacements(images, sections)
		if len(got) != tt.want {
			t.Errorf("%d images: %d placements, want %d", tt.images, len(got), tt.want)
			continue
		}
		for i, p := range got {
			if p.Position != imagery.PositionMiddle || p.Size != imagery.SizeMedium {
				t.Errorf("fallback %d: position %q size %q", i, p.Position, p.Size)
			}
			if p.SectionID != sections[i%len(sections)].ID {
				t.Errorf("fallback %d targets %q", i, p.SectionID)
			}
			if p.Priority != 50 || !p.WrapText || p.Alignment != imagery.AlignCenter {
				t.Errorf("fallback %d has unexpected hints: %+v", i, p)
			}
		}
	}
}

func TestCreatePlaceholderPlacements(t *testing.T) {
	sections := []imagery.Section{
		{ID: "intro", Type: imagery.SectionIntroduction, Content: sectionText(900)},
		{ID: "thin", Type: imagery.SectionUsage, Content: sectionText(500)},
		{ID: "rich", Type: imagery.SectionTroubleshooting, Content: sectionText(800)},
	}
	got := CreatePlaceholderPlacements(sections)
	if len(got) != 1 {
		t.Fatalf("placeholders = %d, want 1", len(got))
	}
	p := got[0]
	if p.SectionID != "rich" {
		t.Errorf("placeholder targets %q, want rich", p.SectionID)
	}
	if p.ImageID != "placeholder_rich" {
		t.Errorf("placeholder id = %q", p.ImageID)
	}
	if p.Priority != 25 || !p.Placeholder {
		t.Errorf("placeholder fields: %+v", p)
	}
}

func TestLengthThresholdsCountCharacters(t *testing.T) {
	// Thai text is 3 bytes per character; thresholds must not triple.
	thai400 := strings.Repeat("ก", 400)
	a := AnalyzeSection(imagery.Section{ID: "th", Type: imagery.SectionUsage, Content: thai400})
	if a.ContentLength != 400 {
		t.Fatalf("contentLength = %d, want 400", a.ContentLength)
	}
	if a.ImageCapacity != 2 {
		t.Errorf("capacity = %d, want 2", a.ImageCapacity)
	}

	// A 400-character section scores the same whichever script it uses.
	img := imagery.Image{URL: "u"}
	ascii := AnalyzeSection(imagery.Section{ID: "en", Type: imagery.SectionUsage, Content: sectionText(400)})
	if got, want := sectionScore(img, a, true), sectionScore(img, ascii, true); got != want {
		t.Errorf("thai score = %v, ascii score = %v", got, want)
	}

	// Under 500 characters: no text wrap, small size.
	p := derivePlacement(img, imagery.Section{ID: "th", Type: imagery.SectionUsage}, a, 0, DefaultOptions())
	if p.WrapText || p.Size != imagery.SizeSmall {
		t.Errorf("400-char placement: wrap=%v size=%q", p.WrapText, p.Size)
	}

	// Placeholder cut-off is 500 characters, not 500 bytes.
	got := CreatePlaceholderPlacements([]imagery.Section{
		{ID: "short-th", Type: imagery.SectionUsage, Content: thai400},
		{ID: "long-th", Type: imagery.SectionUsage, Content: strings.Repeat("ก", 600)},
	})
	if len(got) != 1 || got[0].SectionID != "long-th" {
		t.Fatalf("placeholders = %+v, want only long-th", got)
	}
}

func TestApplyPlacementsPure(t *testing.T) {
	images := []imagery.Image{
		{URL: "u1", Alt: "feature shot"},
		{URL: "u2"},
	}
	sections := []imagery.Section{
		{ID: "a", Type: imagery.SectionFeatures, Content: sectionText(1900)},
		{ID: "b", Type: imagery.SectionUsage, Content: sectionText(900)},
	}
	res := Place(images, sections, DefaultOptions())

	applied := ApplyPlacements(sections, images, res.Placements)

	for _, s := range sections {
		if len(s.Images) != 0 {
			t.Fatalf("input section %q mutated: %d images", s.ID, len(s.Images))
		}
	}
	total := 0
	for _, s := range applied {
		total += len(s.Images)
	}
	if total != len(res.Placements) {
		t.Fatalf("applied %d images, want %d", total, len(res.Placements))
	}
}
