package pipeline

import (
	"github.com/local/imageplanner/internal/capture"
	"github.com/local/imageplanner/internal/extract"
	"github.com/local/imageplanner/internal/imagery"
	"github.com/local/imageplanner/internal/optimize"
	"github.com/local/imageplanner/internal/place"
)

// Document types with tuned defaults.
const (
	DocTypeUserManual      = "user_manual"
	DocTypeProductDocument = "product_document"
)

// DefaultOptions is the baseline configuration for unrecognized document types.
func DefaultOptions() Options {
	return Options{
		Extraction:   extract.DefaultOptions(),
		Screenshot:   capture.DefaultOptions(),
		Optimization: optimize.DefaultOptions(),
		Placement:    place.DefaultOptions(),
	}
}

// OptionsFor returns the tuned defaults for a document type. Manuals are
// image-heavy with frequent screenshots; product documents stay tighter and
// lead with the image at the top of each section.
func OptionsFor(docType string) Options {
	opts := DefaultOptions()
	switch docType {
	case DocTypeUserManual:
		opts.Extraction.MaxImages = 15
		opts.Screenshot.MaxScreenshots = 8
		opts.Screenshot.IntervalSeconds = 20
	case DocTypeProductDocument:
		opts.Placement.MaxImagesPerSection = 2
		opts.Placement.PreferredPosition = imagery.PositionTop
	}
	return opts
}
