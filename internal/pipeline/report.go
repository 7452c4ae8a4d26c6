package pipeline

import (
	"fmt"

	"github.com/local/imageplanner/internal/imagery"
)

// Statistics summarizes a finished run for reporting.
func Statistics(res imagery.ProcessResult) imagery.Statistics {
	stats := imagery.Statistics{
		TotalImages:           len(res.ExtractedImages) + len(res.Screenshots),
		SuccessfulExtractions: len(res.ExtractedImages),
		PlacementScore:        res.Placement.Score,
	}
	if len(res.Optimized) > 0 {
		sum := 0.0
		for _, r := range res.Optimized {
			if r.CompressionRatio < 1.0 {
				stats.SuccessfulOptimizations++
			}
			sum += r.CompressionRatio
		}
		stats.MeanCompressionRatio = sum / float64(len(res.Optimized))
	}
	return stats
}

// Recommendations derives follow-up hints from simple thresholds over the
// run's statistics.
func Recommendations(res imagery.ProcessResult) []string {
	stats := Statistics(res)
	var recs []string

	if n := len(res.Placement.UnplacedImages); n > 0 {
		recs = append(recs, fmt.Sprintf("%d images could not be placed automatically; review the unplaced list", n))
	}
	if len(res.Optimized) > 0 && stats.MeanCompressionRatio > 0.8 {
		recs = append(recs, fmt.Sprintf("consider more aggressive optimization (mean compression ratio %.2f)", stats.MeanCompressionRatio))
	}
	if len(res.Placement.Placements) > 0 && res.Placement.Score < 60 {
		recs = append(recs, fmt.Sprintf("placement could be improved (score %.0f); check section types and image alt text", res.Placement.Score))
	}
	if stats.TotalImages == 0 {
		recs = append(recs, "no usable images were found; the document will render without illustrations")
	}
	return recs
}
