package lastrequests

import (
	"sync"
	"time"
)

// Operation records one handled request.
type Operation struct {
	RequestID string    `json:"requestId"`
	Method    string    `json:"method"`
	Route     string    `json:"route"`
	Status    int       `json:"status"`
	ClientIP  string    `json:"ip"`
	Count     int       `json:"count,omitempty"` // values summed, if any
	Sum       float64   `json:"sum,omitempty"`
	Start     time.Time `json:"startTime"`
	Duration  float64   `json:"duration"`
}

// Ring is a fixed-size circular buffer of the latest operations. It is safe
// for concurrent use.
type Ring struct {
	mu     sync.Mutex
	buffer []Operation
	head   int
	size   int
}

// NewRing creates a ring holding at most capacity operations.
func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{buffer: make([]Operation, capacity)}
}

// Add stores op, overwriting the oldest entry when full.
func (r *Ring) Add(op Operation) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buffer[r.head] = op
	r.head = (r.head + 1) % len(r.buffer)
	if r.size < len(r.buffer) {
		r.size++
	}
}

// All returns the stored operations, oldest first.
func (r *Ring) All() []Operation {
	r.mu.Lock()
	defer r.mu.Unlock()

	capacity := len(r.buffer)
	out := make([]Operation, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.buffer[(r.head-r.size+i+capacity)%capacity]
	}
	return out
}

func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}
