package imagery

import "time"

// Image is a candidate or optimized image. The URL is the unique key within a
// processing run. Images are value types: stages that change an image return a
// replacement, they never mutate the one they were given.
type Image struct {
	URL       string `json:"url"`
	Alt       string `json:"alt,omitempty"`
	Caption   string `json:"caption,omitempty"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	Format    string `json:"format,omitempty"`
	SizeBytes int    `json:"size_bytes,omitempty"`
	// Relevance is an advisory weight in (0,1]. Zero means the producer did
	// not score the image; consumers fall back to DefaultRelevance.
	Relevance float64 `json:"relevance,omitempty"`
	// Data carries the raw bytes for images that have no fetchable URL,
	// such as captured video frames. Never serialized.
	Data []byte `json:"-"`
}

// DefaultRelevance is assumed when a producer did not score an image.
const DefaultRelevance = 0.5

// Default pixel dimensions assumed when an image carries none.
const (
	DefaultWidth  = 800
	DefaultHeight = 600
)

// RelevanceOrDefault returns the image relevance, or DefaultRelevance when unset.
func (im Image) RelevanceOrDefault() float64 {
	if im.Relevance <= 0 {
		return DefaultRelevance
	}
	return im.Relevance
}

// AspectRatio returns width/height, assuming 800x600 when either is missing.
func (im Image) AspectRatio() float64 {
	w, h := im.Width, im.Height
	if w <= 0 || h <= 0 {
		w, h = DefaultWidth, DefaultHeight
	}
	return float64(w) / float64(h)
}

// Importance tiers for video moments.
const (
	ImportanceLow    = "low"
	ImportanceMedium = "medium"
	ImportanceHigh   = "high"
)

// VideoMoment marks a notable timestamp in a video. Produced upstream,
// consumed read-only by the screenshot capturer.
type VideoMoment struct {
	Timestamp   float64 `json:"timestamp"`
	Description string  `json:"description,omitempty"`
	Importance  string  `json:"importance,omitempty"`
	ActionType  string  `json:"action_type,omitempty"`
}

// Video describes the video sub-record of a content source.
type Video struct {
	ID         string        `json:"id"`
	Duration   float64       `json:"duration,omitempty"`
	Transcript string        `json:"transcript,omitempty"`
	KeyMoments []VideoMoment `json:"key_moments,omitempty"`
}

// Content is the source record handed to the orchestrator.
type Content struct {
	SourceURL  string `json:"source_url,omitempty"`
	SourceType string `json:"source_type,omitempty"`
	HTML       string `json:"html,omitempty"`
	Text       string `json:"text,omitempty"`
	Video      *Video `json:"video,omitempty"`
}

// Section types form a closed set.
const (
	SectionIntroduction    = "introduction"
	SectionFeatures        = "features"
	SectionInstallation    = "installation"
	SectionUsage           = "usage"
	SectionTroubleshooting = "troubleshooting"
	SectionSpecifications  = "specifications"
	SectionOther           = "other"
)

// Section is one node of a document outline. The placer never creates or
// deletes sections; it only proposes images for them via placements.
type Section struct {
	ID          string    `json:"id"`
	Title       string    `json:"title,omitempty"`
	Content     string    `json:"content,omitempty"`
	Type        string    `json:"type,omitempty"`
	Subsections []Section `json:"subsections,omitempty"`
	Images      []Image   `json:"images,omitempty"`
}

// OptimizationResult pairs the replaced image with its size accounting.
// CompressionRatio is optimized/original; below 1 means the shrink worked.
type OptimizationResult struct {
	Image            Image   `json:"image"`
	OriginalSize     int     `json:"original_size"`
	OptimizedSize    int     `json:"optimized_size"`
	CompressionRatio float64 `json:"compression_ratio"`
}

// Placement positions.
const (
	PositionTop     = "top"
	PositionMiddle  = "middle"
	PositionBottom  = "bottom"
	PositionInline  = "inline"
	PositionSidebar = "sidebar"
)

// Placement alignments.
const (
	AlignLeft   = "left"
	AlignCenter = "center"
	AlignRight  = "right"
)

// Rendered size classes.
const (
	SizeSmall     = "small"
	SizeMedium    = "medium"
	SizeLarge     = "large"
	SizeFullWidth = "full-width"
)

// Placement assigns one image to one section with rendering hints. Priority is
// a 0-100 weight used for scoring and reporting only; it never reorders
// placements within a section.
type Placement struct {
	ImageID     string `json:"image_id"`
	SectionID   string `json:"section_id"`
	Position    string `json:"position"`
	Alignment   string `json:"alignment"`
	Caption     string `json:"caption,omitempty"`
	WrapText    bool   `json:"wrap_text"`
	Size        string `json:"size"`
	Priority    int    `json:"priority"`
	Placeholder bool   `json:"placeholder,omitempty"`
}

// PlacementResult is the placement plan for one run. Placements and
// UnplacedImages partition the input image set with no overlap.
type PlacementResult struct {
	Placements     []Placement `json:"placements"`
	UnplacedImages []Image     `json:"unplaced_images,omitempty"`
	Score          float64     `json:"score"`
}

// ProcessResult is the full outcome of one pipeline invocation. Errors are
// non-fatal stage messages; a run that produced nothing still returns a
// result rather than failing.
type ProcessResult struct {
	ExtractedImages []Image              `json:"extracted_images,omitempty"`
	Screenshots     []Image              `json:"screenshots,omitempty"`
	Optimized       []OptimizationResult `json:"optimized,omitempty"`
	Placement       PlacementResult      `json:"placement"`
	Errors          []string             `json:"errors,omitempty"`
	ProcessingTime  time.Duration        `json:"processing_time_ns"`
}

// Statistics summarizes a ProcessResult for reporting.
type Statistics struct {
	TotalImages             int     `json:"total_images"`
	SuccessfulExtractions   int     `json:"successful_extractions"`
	SuccessfulOptimizations int     `json:"successful_optimizations"`
	PlacementScore          float64 `json:"placement_score"`
	MeanCompressionRatio    float64 `json:"mean_compression_ratio"`
}
