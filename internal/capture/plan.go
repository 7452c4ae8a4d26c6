package capture

import (
	"sort"

	"github.com/local/imageplanner/internal/imagery"
)

// Options bounds one capture pass.
type Options struct {
	MaxScreenshots  int     `json:"maxScreenshots,omitempty"`
	IntervalSeconds float64 `json:"intervalSeconds,omitempty"`
}

// DefaultOptions returns the baseline capture configuration.
func DefaultOptions() Options {
	return Options{MaxScreenshots: 5, IntervalSeconds: 30}
}

// Shot is one planned capture point.
type Shot struct {
	Timestamp   float64
	Description string
	Importance  string
}

// PlanShots decides where to capture frames. Explicit key moments win: the
// most important ones are kept up to the cap and shot in timestamp order.
// Without moments, the video is sampled uniformly every IntervalSeconds.
func PlanShots(video imagery.Video, opts Options) []Shot {
	if opts.MaxScreenshots <= 0 {
		opts.MaxScreenshots = 5
	}
	if opts.IntervalSeconds <= 0 {
		opts.IntervalSeconds = 30
	}

	if len(video.KeyMoments) > 0 {
		return planFromMoments(video.KeyMoments, opts.MaxScreenshots)
	}
	return planFromInterval(video.Duration, opts.IntervalSeconds, opts.MaxScreenshots)
}

func planFromMoments(moments []imagery.VideoMoment, max int) []Shot {
	ranked := make([]imagery.VideoMoment, len(moments))
	copy(ranked, moments)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := importanceRank(ranked[i].Importance), importanceRank(ranked[j].Importance)
		if a != b {
			return a > b
		}
		return ranked[i].Timestamp < ranked[j].Timestamp
	})
	if len(ranked) > max {
		ranked = ranked[:max]
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].Timestamp < ranked[j].Timestamp })

	shots := make([]Shot, len(ranked))
	for i, m := range ranked {
		shots[i] = Shot{Timestamp: m.Timestamp, Description: m.Description, Importance: m.Importance}
	}
	return shots
}

func planFromInterval(duration, interval float64, max int) []Shot {
	if duration <= 0 {
		return nil
	}
	var shots []Shot
	for t := interval; t < duration && len(shots) < max; t += interval {
		shots = append(shots, Shot{Timestamp: t})
	}
	return shots
}

func importanceRank(importance string) int {
	switch importance {
	case imagery.ImportanceHigh:
		return 3
	case imagery.ImportanceMedium:
		return 2
	case imagery.ImportanceLow:
		return 1
	default:
		return 0
	}
}

// importanceRelevance maps a moment's importance tier onto the advisory
// relevance weight carried by the resulting image. Interval shots have no
// tier and keep the zero value, which consumers treat as neutral.
func importanceRelevance(importance string) float64 {
	switch importance {
	case imagery.ImportanceHigh:
		return 0.9
	case imagery.ImportanceMedium:
		return 0.7
	case imagery.ImportanceLow:
		return 0.5
	default:
		return 0
	}
}
