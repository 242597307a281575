package active

import (
	"sync"
	"sync/atomic"
)

// Gauge counts in-flight requests for one route and remembers the peak.
type Gauge struct {
	current atomic.Int64
	max     atomic.Int64
}

// Registry hands out one Gauge per route.
type Registry struct {
	gauges sync.Map // route -> *Gauge
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Get returns the gauge for route without changing it.
func (r *Registry) Get(route string) *Gauge {
	g, _ := r.gauges.LoadOrStore(route, &Gauge{})
	return g.(*Gauge)
}

// Start marks one more request in flight on route. Call Done on the returned
// gauge when the request finishes.
func (r *Registry) Start(route string) *Gauge {
	g := r.Get(route)
	n := g.current.Add(1)

	for {
		peak := g.max.Load()
		if n <= peak || g.max.CompareAndSwap(peak, n) {
			break
		}
	}
	return g
}

// Done marks one request on the gauge as finished.
func (g *Gauge) Done() {
	g.current.Add(-1)
}

func (g *Gauge) Current() int64 {
	return g.current.Load()
}

func (g *Gauge) Max() int64 {
	return g.max.Load()
}
