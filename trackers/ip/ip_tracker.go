package ip

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Tracker bans clients that keep sending requests the service rejects.
type Tracker struct {
	mu          sync.Mutex
	rejects     map[string]int
	banned      map[string]time.Time
	statusCount map[string]map[int]int
	threshold   int
	banDuration time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

// Snapshot is a copy of the tracker's state.
type Snapshot struct {
	Rejects     map[string]int         `json:"rejects"`
	Banned      map[string]time.Time   `json:"banned"`
	StatusCount map[string]map[int]int `json:"statusCountPerIp"`
}

// NewTracker bans a client once it has more than threshold rejected
// requests, for banDuration.
func NewTracker(threshold int, banDuration time.Duration, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		rejects:     make(map[string]int),
		banned:      make(map[string]time.Time),
		statusCount: make(map[string]map[int]int),
		threshold:   threshold,
		banDuration: banDuration,
		logger:      logger,
		now:         time.Now,
	}
}

// Check reports whether ip is currently banned. Expired bans are lifted.
func (t *Tracker) Check(ip string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	since, banned := t.banned[ip]
	if !banned {
		return false
	}
	if t.now().Sub(since) > t.banDuration {
		delete(t.banned, ip)
		return false
	}
	return true
}

// Reject counts one rejected request from ip and reports whether that got it
// banned.
func (t *Tracker) Reject(ip string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rejects[ip]++
	if t.rejects[ip] <= t.threshold {
		return false
	}
	t.banned[ip] = t.now()
	delete(t.rejects, ip)
	t.logger.Warn("client banned", zap.String("ip", ip), zap.Duration("for", t.banDuration))
	return true
}

// RecordStatus counts a response status for ip.
func (t *Tracker) RecordStatus(ip string, status int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	counts, ok := t.statusCount[ip]
	if !ok {
		counts = make(map[int]int)
		t.statusCount[ip] = counts
	}
	counts[status]++
}

// Rejects returns the pending reject count for ip.
func (t *Tracker) Rejects(ip string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rejects[ip]
}

// UnbanAll lifts every ban.
func (t *Tracker) UnbanAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.banned = make(map[string]time.Time)
	t.logger.Info("all clients unbanned")
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := Snapshot{
		Rejects:     make(map[string]int, len(t.rejects)),
		Banned:      make(map[string]time.Time, len(t.banned)),
		StatusCount: make(map[string]map[int]int, len(t.statusCount)),
	}
	for ip, n := range t.rejects {
		snap.Rejects[ip] = n
	}
	for ip, at := range t.banned {
		snap.Banned[ip] = at
	}
	for ip, counts := range t.statusCount {
		c := make(map[int]int, len(counts))
		for code, n := range counts {
			c[code] = n
		}
		snap.StatusCount[ip] = c
	}
	return snap
}
