package capture

import (
	"sort"
	"testing"

	"github.com/local/imageplanner/internal/imagery"
)

func TestPlanShotsFromMoments(t *testing.T) {
	video := imagery.Video{
		ID:       "abc123",
		Duration: 600,
		KeyMoments: []imagery.VideoMoment{
			{Timestamp: 300, Description: "wrap up", Importance: imagery.ImportanceLow},
			{Timestamp: 45, Description: "first step", Importance: imagery.ImportanceHigh},
			{Timestamp: 120, Description: "demo", Importance: imagery.ImportanceMedium},
			{Timestamp: 200, Description: "key result", Importance: imagery.ImportanceHigh},
		},
	}
	opts := DefaultOptions()
	opts.MaxScreenshots = 3

	shots := PlanShots(video, opts)
	if len(shots) != 3 {
		t.Fatalf("shots = %d, want 3", len(shots))
	}
	// Both high-importance moments survive the cut, the low one does not,
	// and the result is in timestamp order.
	wantTS := []float64{45, 120, 200}
	for i, s := range shots {
		if s.Timestamp != wantTS[i] {
			t.Errorf("shot %d at %v, want %v", i, s.Timestamp, wantTS[i])
		}
	}
}

func TestPlanShotsInterval(t *testing.T) {
	video := imagery.Video{ID: "abc123", Duration: 200}
	opts := Options{MaxScreenshots: 10, IntervalSeconds: 30}

	shots := PlanShots(video, opts)
	if len(shots) != 6 {
		t.Fatalf("shots = %d, want 6", len(shots))
	}
	if !sort.SliceIsSorted(shots, func(i, j int) bool { return shots[i].Timestamp < shots[j].Timestamp }) {
		t.Fatal("interval shots not in timestamp order")
	}
	if shots[0].Timestamp != 30 || shots[5].Timestamp != 180 {
		t.Errorf("interval endpoints: %v .. %v", shots[0].Timestamp, shots[5].Timestamp)
	}
}

func TestPlanShotsIntervalCap(t *testing.T) {
	video := imagery.Video{ID: "abc123", Duration: 10000}
	shots := PlanShots(video, DefaultOptions())
	if len(shots) != 5 {
		t.Fatalf("shots = %d, want capped at 5", len(shots))
	}
}

func TestPlanShotsZeroDuration(t *testing.T) {
	if shots := PlanShots(imagery.Video{ID: "x"}, DefaultOptions()); len(shots) != 0 {
		t.Fatalf("shots = %d for zero-duration video, want 0", len(shots))
	}
}

func TestImportanceRelevance(t *testing.T) {
	tests := []struct {
		importance string
		want       float64
	}{
		{imagery.ImportanceHigh, 0.9},
		{imagery.ImportanceMedium, 0.7},
		{imagery.ImportanceLow, 0.5},
		{"", 0},
	}
	for _, tt := range tests {
		if got := importanceRelevance(tt.importance); got != tt.want {
			t.Errorf("importanceRelevance(%q) = %v, want %v", tt.importance, got, tt.want)
		}
	}
}
