package buckets

import (
	"math"
	"sort"
	"sync"
	"time"

	"drainsum/numseq"
)

// Histogram counts request durations into fixed buckets.
type Histogram struct {
	mu        sync.Mutex
	bounds    []float64 // upper bounds, seconds
	counts    []int     // len(bounds)+1, last one is overflow
	totalTime float64
	statuses  map[int]int
	firstSeen time.Time
	lastSeen  time.Time
}

// Snapshot is a point-in-time copy of a Histogram.
type Snapshot struct {
	Bounds      []float64       `json:"buckets"`
	Counts      []int           `json:"counts"`
	TotalCount  int             `json:"totalCount"`
	TotalTime   float64         `json:"totalTime"`
	Percentiles map[int]float64 `json:"percentiles"`
	StatusCount map[int]int     `json:"statusCount"`
	FirstSeen   time.Time       `json:"firstSeen"`
	LastSeen    time.Time       `json:"lastSeen"`
	Active      int64           `json:"active"`
	MaxActive   int64           `json:"maxActive"`
}

// ReportedPercentiles are the percentiles included in a Snapshot.
var ReportedPercentiles = []int{50, 90, 95, 98, 99}

// NewHistogram returns a histogram over the given ascending upper bounds.
func NewHistogram(bounds []float64) *Histogram {
	return &Histogram{
		bounds:    bounds,
		counts:    make([]int, len(bounds)+1),
		statuses:  make(map[int]int),
		firstSeen: time.Now(),
	}
}

// Observe records one request.
func (h *Histogram) Observe(seconds float64, status int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.totalTime += seconds
	h.lastSeen = time.Now()
	h.statuses[status]++

	i := sort.SearchFloat64s(h.bounds, seconds)
	h.counts[i]++
}

// Count returns how many observations were recorded.
func (h *Histogram) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return numseq.Sum(h.counts)
}

// Percentile returns the upper bound of the bucket holding the p-th
// percentile. Observations beyond the last bound report last bound + 1.
func (h *Histogram) Percentile(p float64) float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.percentile(p)
}

func (h *Histogram) percentile(p float64) float64 {
	total := numseq.Sum(h.counts)
	if total == 0 {
		return 0
	}

	threshold := int(math.Ceil(p / 100.0 * float64(total)))
	cumulative := 0
	for i, c := range h.counts {
		cumulative += c
		if cumulative >= threshold {
			if i < len(h.bounds) {
				return h.bounds[i]
			}
			return h.bounds[len(h.bounds)-1] + 1
		}
	}
	return 0
}

// Snapshot copies the histogram state.
func (h *Histogram) Snapshot() Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()

	snap := Snapshot{
		Bounds:      append([]float64(nil), h.bounds...),
		Counts:      append([]int(nil), h.counts...),
		TotalCount:  numseq.Sum(h.counts),
		TotalTime:   h.totalTime,
		Percentiles: make(map[int]float64, len(ReportedPercentiles)),
		StatusCount: make(map[int]int, len(h.statuses)),
		FirstSeen:   h.firstSeen,
		LastSeen:    h.lastSeen,
	}
	for _, p := range ReportedPercentiles {
		snap.Percentiles[p] = h.percentile(float64(p))
	}
	for code, n := range h.statuses {
		snap.StatusCount[code] = n
	}
	return snap
}

// PerRoute holds one histogram per normalized route.
type PerRoute struct {
	mu     sync.Mutex
	bounds []float64
	byPath map[string]*Histogram
}

func NewPerRoute(bounds []float64) *PerRoute {
	return &PerRoute{
		bounds: bounds,
		byPath: make(map[string]*Histogram),
	}
}

// For returns the histogram for route, creating it on first use.
func (p *PerRoute) For(route string) *Histogram {
	p.mu.Lock()
	defer p.mu.Unlock()

	h, ok := p.byPath[route]
	if !ok {
		h = NewHistogram(p.bounds)
		p.byPath[route] = h
	}
	return h
}

// Snapshots returns a snapshot per route.
func (p *PerRoute) Snapshots() map[string]Snapshot {
	p.mu.Lock()
	hists := make(map[string]*Histogram, len(p.byPath))
	for route, h := range p.byPath {
		hists[route] = h
	}
	p.mu.Unlock()

	out := make(map[string]Snapshot, len(hists))
	for route, h := range hists {
		out[route] = h.Snapshot()
	}
	return out
}
