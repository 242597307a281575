package buckets

import (
	"fmt"
	"testing"
)

var testBounds = []float64{
	0.1, 0.2, 0.4, 0.8, 1.6, 3.2, 6.4, 12.8, 25.6, 51.12, 102.4, 204.8,
}

func assertSlicesEqual(t *testing.T, given, expected []int, message string) {
	t.Helper()

	if len(given) != len(expected) {
		t.Errorf("%s: slices have different lengths, given: %d, expected: %d", message, len(given), len(expected))
		return
	}

	for i := range given {
		if given[i] != expected[i] {
			t.Errorf("%s: slices differ at index %d, given: %v, expected: %v", message, i, given, expected)
			return
		}
	}
}

func TestHistogram(t *testing.T) {
	routes := NewPerRoute(testBounds)
	h := routes.For("/api/seq/{id}/drain")

	h.Observe(1, 200)
	h.Observe(0.5, 200)
	h.Observe(50, 404)
	h.Observe(90, 200)
	h.Observe(100, 200)
	h.Observe(110, 200)
	h.Observe(150, 200)
	h.Observe(151, 500)
	h.Observe(250, 200)

	snap := h.Snapshot()
	expectedCounts := []int{0, 0, 0, 1, 1, 0, 0, 0, 0, 1, 2, 3, 1}
	assertSlicesEqual(t, snap.Counts, expectedCounts, "bucket counts")

	if snap.TotalCount != 9 || h.Count() != 9 {
		t.Errorf("TotalCount = %d, Count() = %d, want 9", snap.TotalCount, h.Count())
	}
	if snap.StatusCount[200] != 7 || snap.StatusCount[404] != 1 || snap.StatusCount[500] != 1 {
		t.Errorf("unexpected status counts %v", snap.StatusCount)
	}

	tests := []struct {
		percentile float64
		expected   float64
	}{
		{0.1, 0.8},
		{10, 0.8},
		{20, 1.6},
		{50, 102.4},
		{60, 204.8},
		{90, 204.8 + 1},
		{99, 204.8 + 1},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%f", tt.percentile), func(t *testing.T) {
			value := h.Percentile(tt.percentile)
			if value != tt.expected {
				t.Errorf("Percentile(%v) = %v, want %v", tt.percentile, value, tt.expected)
			}
		})
	}
}

func TestEmptyHistogram(t *testing.T) {
	h := NewHistogram(testBounds)
	if got := h.Percentile(50); got != 0 {
		t.Errorf("Percentile(50) on empty histogram = %v, want 0", got)
	}
	if got := h.Snapshot().TotalCount; got != 0 {
		t.Errorf("TotalCount = %d, want 0", got)
	}
}

func TestPerRouteReusesHistogram(t *testing.T) {
	routes := NewPerRoute(testBounds)
	routes.For("/a").Observe(0.1, 200)
	routes.For("/a").Observe(0.3, 200)
	routes.For("/b").Observe(0.3, 201)

	snaps := routes.Snapshots()
	if len(snaps) != 2 {
		t.Fatalf("got %d routes, want 2", len(snaps))
	}
	if snaps["/a"].TotalCount != 2 {
		t.Errorf("/a TotalCount = %d, want 2", snaps["/a"].TotalCount)
	}
	if snaps["/b"].Percentiles[50] != 0.4 {
		t.Errorf("/b p50 = %v, want 0.4", snaps["/b"].Percentiles[50])
	}
}
