package numseq

import "slices"

// Sequence is an owned, growable sequence of numbers. The zero value is an
// empty sequence ready to use. It is not safe for concurrent use.
type Sequence[T Number] struct {
	values []T
}

// NewSequence returns a sequence holding a copy of values.
func NewSequence[T Number](values ...T) *Sequence[T] {
	return &Sequence[T]{values: slices.Clone(values)}
}

// Push appends values to the end of the sequence.
func (s *Sequence[T]) Push(values ...T) {
	s.values = append(s.values, values...)
}

// Pop removes the last value.
func (s *Sequence[T]) Pop() (T, bool) {
	return Pop(&s.values)
}

func (s *Sequence[T]) Len() int {
	return len(s.values)
}

// Values returns a copy of the current contents.
func (s *Sequence[T]) Values() []T {
	return slices.Clone(s.values)
}

// Sum returns the total without consuming anything.
func (s *Sequence[T]) Sum() T {
	return Sum(s.values)
}

// Drain returns the total and leaves the sequence empty.
func (s *Sequence[T]) Drain() T {
	return Drain(&s.values)
}

// Clear drops every value.
func (s *Sequence[T]) Clear() {
	Clear(&s.values)
}

// Pair is a two-field record.
type Pair[A, B any] struct {
	First  A
	Second B
}

// DrainCount drains *s and reports the sum together with how many elements
// were consumed.
func DrainCount[T Number](s *[]T) Pair[T, int] {
	var n int
	if s != nil {
		n = len(*s)
	}
	return Pair[T, int]{First: Drain(s), Second: n}
}
