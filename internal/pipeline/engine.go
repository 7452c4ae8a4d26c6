package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/imageplanner/internal/capture"
	"github.com/local/imageplanner/internal/extract"
	"github.com/local/imageplanner/internal/imagery"
	"github.com/local/imageplanner/internal/metrics"
	"github.com/local/imageplanner/internal/optimize"
	"github.com/local/imageplanner/internal/place"
)

// Extractor discovers candidate images in source content.
type Extractor interface {
	Extract(ctx context.Context, content imagery.Content, opts extract.Options) ([]imagery.Image, []string, error)
}

// Capturer turns video timestamps into image records.
type Capturer interface {
	Capture(ctx context.Context, video imagery.Video, opts capture.Options) ([]imagery.Image, []string, error)
}

// Optimizer reworks a batch of images to fit a size/quality budget.
type Optimizer interface {
	Optimize(ctx context.Context, images []imagery.Image, opts optimize.Options) ([]imagery.OptimizationResult, []string, error)
}

// Options aggregates the per-stage configuration of one run.
type Options struct {
	Extraction   extract.Options  `json:"extraction"`
	Screenshot   capture.Options  `json:"screenshot"`
	Optimization optimize.Options `json:"optimization"`
	Placement    place.Options    `json:"placement"`
}

// Engine sequences extraction, capture, optimization and placement. The leaf
// capabilities are injected so tests can substitute them without global state.
type Engine struct {
	extractor Extractor
	capturer  Capturer
	optimizer Optimizer
	placeFn   func([]imagery.Image, []imagery.Section, place.Options) imagery.PlacementResult
}

// New wires an engine from its leaf capabilities. Any of them may be nil, in
// which case the corresponding stage is skipped with an error message.
func New(extractor Extractor, capturer Capturer, optimizer Optimizer) *Engine {
	return &Engine{
		extractor: extractor,
		capturer:  capturer,
		optimizer: optimizer,
		placeFn:   place.Place,
	}
}

// Process runs the full pipeline. It always returns a result: stage failures
// degrade that stage to empty output and add a message, and an unexpected
// internal fault produces a zero result with the fault recorded.
func (e *Engine) Process(ctx context.Context, content imagery.Content, sections []imagery.Section, opts Options) (result imagery.ProcessResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("pipeline fault")
			result = imagery.ProcessResult{
				Errors:         []string{fmt.Sprintf("internal fault: %v", r)},
				ProcessingTime: time.Since(start),
			}
		}
	}()

	// Extraction.
	extracted, errs := e.runExtraction(ctx, content, opts.Extraction)
	result.ExtractedImages = extracted
	result.Errors = append(result.Errors, errs...)

	// Screenshot capture, video sources only.
	if content.Video != nil {
		shots, errs := e.runCapture(ctx, *content.Video, opts.Screenshot)
		result.Screenshots = shots
		result.Errors = append(result.Errors, errs...)
	}

	// Merge and optimize.
	merged := append(append([]imagery.Image(nil), result.ExtractedImages...), result.Screenshots...)
	optimized, errs := e.runOptimization(ctx, merged, opts.Optimization)
	result.Optimized = optimized
	result.Errors = append(result.Errors, errs...)

	// Placement over whatever survived.
	images := make([]imagery.Image, len(optimized))
	for i, r := range optimized {
		images[i] = r.Image
	}
	placement, errs := e.runPlacement(images, sections, opts.Placement)
	result.Placement = placement
	result.Errors = append(result.Errors, errs...)
	if len(images) == 0 && len(result.Errors) > 0 {
		// Acquisition failed outright; mark where manual images belong.
		result.Placement.Placements = place.CreatePlaceholderPlacements(sections)
	}

	result.ProcessingTime = time.Since(start)
	metrics.ObservePipeline(len(images), len(result.Placement.Placements), result.Placement.Score, result.ProcessingTime)
	log.Info().
		Int("extracted", len(result.ExtractedImages)).
		Int("screenshots", len(result.Screenshots)).
		Int("placed", len(result.Placement.Placements)).
		Int("unplaced", len(result.Placement.UnplacedImages)).
		Float64("score", result.Placement.Score).
		Dur("elapsed", result.ProcessingTime).
		Msg("pipeline finished")
	return result
}

// runPlacement guards the scorer. A fault inside it degrades to the plain
// round-robin fallback instead of losing the images the earlier stages won.
func (e *Engine) runPlacement(images []imagery.Image, sections []imagery.Section, opts place.Options) (res imagery.PlacementResult, errs []string) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("placement fault")
			res = imagery.PlacementResult{Placements: place.GenerateFallbackPlacements(images, sections)}
			errs = []string{fmt.Sprintf("placement degraded to fallback: %v", r)}
		}
	}()
	return e.placeFn(images, sections, opts), nil
}

func (e *Engine) runExtraction(ctx context.Context, content imagery.Content, opts extract.Options) ([]imagery.Image, []string) {
	if e.extractor == nil {
		return nil, []string{"extraction skipped: no extractor configured"}
	}
	t := time.Now()
	images, itemErrs, err := e.extractor.Extract(ctx, content, opts)
	metrics.ObserveStage("extract", err == nil, time.Since(t))
	if err != nil {
		return nil, append(itemErrs, fmt.Sprintf("extraction failed: %v", err))
	}
	return images, itemErrs
}

func (e *Engine) runCapture(ctx context.Context, video imagery.Video, opts capture.Options) ([]imagery.Image, []string) {
	if e.capturer == nil {
		return nil, []string{"screenshot capture skipped: no capturer configured"}
	}
	t := time.Now()
	shots, itemErrs, err := e.capturer.Capture(ctx, video, opts)
	metrics.ObserveStage("capture", err == nil, time.Since(t))
	if err != nil {
		return nil, append(itemErrs, fmt.Sprintf("screenshot capture failed: %v", err))
	}
	return shots, itemErrs
}

func (e *Engine) runOptimization(ctx context.Context, images []imagery.Image, opts optimize.Options) ([]imagery.OptimizationResult, []string) {
	if len(images) == 0 {
		return nil, nil
	}
	if e.optimizer == nil {
		return nil, []string{"optimization skipped: no optimizer configured"}
	}
	t := time.Now()
	results, itemErrs, err := e.optimizer.Optimize(ctx, images, opts)
	metrics.ObserveStage("optimize", err == nil, time.Since(t))
	if err != nil {
		return nil, append(itemErrs, fmt.Sprintf("optimization failed: %v", err))
	}
	return results, itemErrs
}
