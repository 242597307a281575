package numseq

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequence(t *testing.T) {
	var s Sequence[int]
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, s.Drain())

	s.Push(1, 2)
	s.Push(3)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 6, s.Sum())
	assert.Equal(t, 3, s.Len(), "Sum must not consume")

	v, ok := s.Pop()
	assert.True(t, ok)
	assert.Equal(t, 3, v)

	assert.Equal(t, 3, s.Drain())
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Values())
}

func TestNewSequenceCopiesInput(t *testing.T) {
	in := []float64{1.5, 2.5}
	s := NewSequence(in...)
	assert.Equal(t, 4.0, s.Drain())
	assert.Equal(t, []float64{1.5, 2.5}, in)
}

func TestSequenceValuesIsACopy(t *testing.T) {
	s := NewSequence(1, 2)
	vals := s.Values()
	vals[0] = 100
	assert.Equal(t, 3, s.Sum())

	s.Clear()
	assert.Equal(t, 0, s.Len())
}

func TestDrainCount(t *testing.T) {
	s := []int64{10, 20, 30}
	got := DrainCount(&s)
	assert.Equal(t, Pair[int64, int]{First: 60, Second: 3}, got)
	assert.Len(t, s, 0)

	assert.Equal(t, Pair[int, int]{}, DrainCount[int](nil))
}
