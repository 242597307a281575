// Package store keeps named, in-memory number sequences that callers fill
// over several requests and then sum, either destructively or not.
package store

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"drainsum/numseq"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrNotFound     = errors.New("sequence not found")
	ErrInvalidValue = errors.New("value must be a finite number")
	ErrTooLarge     = errors.New("sequence too large")
	ErrOverflow     = errors.New("sum overflows")
)

// Result is the outcome of summing a sequence.
type Result struct {
	Sum   float64 `json:"sum"`
	Count int     `json:"count"`
}

// Info describes a stored sequence.
type Info struct {
	ID        uuid.UUID `json:"id"`
	Len       int       `json:"len"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Drains    int       `json:"drains"`
}

type entry struct {
	seq     numseq.Sequence[float64]
	created time.Time
	updated time.Time
	drains  int
}

// Store is safe for concurrent use. Every operation holds the store lock for
// its whole duration, so no caller can observe a partially drained sequence.
type Store struct {
	mu     sync.Mutex
	seqs   map[uuid.UUID]*entry
	maxLen int
	logger *zap.Logger
	now    func() time.Time
}

// New returns an empty store. maxLen bounds the length of any one sequence.
func New(maxLen int, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		seqs:   make(map[uuid.UUID]*entry),
		maxLen: maxLen,
		logger: logger,
		now:    time.Now,
	}
}

func checkValues(values []float64) error {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("index %d: %w", i, ErrInvalidValue)
		}
	}
	return nil
}

// Create registers a new sequence holding values.
func (s *Store) Create(values ...float64) (uuid.UUID, error) {
	if err := checkValues(values); err != nil {
		return uuid.Nil, err
	}
	if len(values) > s.maxLen {
		return uuid.Nil, fmt.Errorf("%d values, limit %d: %w", len(values), s.maxLen, ErrTooLarge)
	}

	id := uuid.New()
	now := s.now()
	e := &entry{created: now, updated: now}
	e.seq.Push(values...)

	s.mu.Lock()
	s.seqs[id] = e
	s.mu.Unlock()

	s.logger.Debug("sequence created", zap.Stringer("id", id), zap.Int("len", len(values)))
	return id, nil
}

// Append adds values to the end of the sequence and returns its new length.
func (s *Store) Append(id uuid.UUID, values ...float64) (int, error) {
	if err := checkValues(values); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.seqs[id]
	if !ok {
		return 0, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if e.seq.Len()+len(values) > s.maxLen {
		return e.seq.Len(), fmt.Errorf("%s: %d+%d values, limit %d: %w", id, e.seq.Len(), len(values), s.maxLen, ErrTooLarge)
	}
	e.seq.Push(values...)
	e.updated = s.now()
	return e.seq.Len(), nil
}

// Get returns a copy of the sequence's values.
func (s *Store) Get(id uuid.UUID) ([]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.seqs[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return e.seq.Values(), nil
}

// Sum totals the sequence without modifying it.
func (s *Store) Sum(id uuid.UUID) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.seqs[id]
	if !ok {
		return Result{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	sum := e.seq.Sum()
	if math.IsInf(sum, 0) {
		return Result{}, fmt.Errorf("%s: %w", id, ErrOverflow)
	}
	return Result{Sum: sum, Count: e.seq.Len()}, nil
}

// Drain totals the sequence and empties it. The id stays registered. A sum
// that would overflow leaves the sequence untouched.
func (s *Store) Drain(id uuid.UUID) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.seqs[id]
	if !ok {
		return Result{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if math.IsInf(e.seq.Sum(), 0) {
		return Result{}, fmt.Errorf("%s: %w", id, ErrOverflow)
	}
	n := e.seq.Len()
	sum := e.seq.Drain()
	e.drains++
	e.updated = s.now()

	s.logger.Debug("sequence drained",
		zap.Stringer("id", id),
		zap.Int("count", n),
		zap.Float64("sum", sum),
	)
	return Result{Sum: sum, Count: n}, nil
}

// Clear empties the sequence without summing.
func (s *Store) Clear(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.seqs[id]
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	e.seq.Clear()
	e.updated = s.now()
	return nil
}

// Delete forgets the sequence.
func (s *Store) Delete(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seqs[id]; !ok {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	delete(s.seqs, id)
	s.logger.Debug("sequence deleted", zap.Stringer("id", id))
	return nil
}

// List describes every sequence, oldest first.
func (s *Store) List() []Info {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]Info, 0, len(s.seqs))
	for id, e := range s.seqs {
		infos = append(infos, Info{
			ID:        id,
			Len:       e.seq.Len(),
			CreatedAt: e.created,
			UpdatedAt: e.updated,
			Drains:    e.drains,
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].ID.String() < infos[j].ID.String()
		}
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	return infos
}

// Len returns the number of stored sequences.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seqs)
}
