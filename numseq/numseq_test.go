package numseq

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrain(t *testing.T) {
	t.Run("ints", func(t *testing.T) {
		s := []int{1, 2, 3}
		assert.Equal(t, 6, Drain(&s))
		assert.Empty(t, s)
		assert.NotNil(t, s)
	})

	t.Run("cancelling", func(t *testing.T) {
		s := []int{-5, 5}
		assert.Equal(t, 0, Drain(&s))
		assert.Len(t, s, 0)
	})

	t.Run("floats", func(t *testing.T) {
		s := []float64{1.5, 2.5}
		assert.Equal(t, 4.0, Drain(&s))
		assert.Len(t, s, 0)
	})

	t.Run("empty", func(t *testing.T) {
		s := []float64{}
		assert.Equal(t, 0.0, Drain(&s))
	})

	t.Run("nil slice", func(t *testing.T) {
		var s []int64
		assert.Equal(t, int64(0), Drain(&s))
	})

	t.Run("nil pointer", func(t *testing.T) {
		assert.Equal(t, 0, Drain[int](nil))
	})

	t.Run("second drain returns zero", func(t *testing.T) {
		s := []int{4, 5}
		require.Equal(t, 9, Drain(&s))
		assert.Equal(t, 0, Drain(&s))
		assert.Len(t, s, 0)
	})
}

func TestDrainDoesNotStopOnZeroLikeValues(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		want float64
	}{
		{"zeros in the middle", []float64{1, 0, 0, 2}, 3},
		{"trailing zero", []float64{7, 0}, 7},
		{"negative zero", []float64{3, math.Copysign(0, -1)}, 3},
		{"only zeros", []float64{0, 0, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := append([]float64(nil), tt.in...)
			assert.Equal(t, tt.want, Drain(&s))
			assert.Len(t, s, 0)
		})
	}

	t.Run("NaN is consumed like any other value", func(t *testing.T) {
		s := []float64{1, math.NaN(), 2}
		assert.True(t, math.IsNaN(Drain(&s)))
		assert.Len(t, s, 0)
	})
}

func TestDrainZeroesBackingArray(t *testing.T) {
	backing := []int{1, 2, 3}
	s := backing[:]
	Drain(&s)
	assert.Equal(t, []int{0, 0, 0}, backing)
	assert.Equal(t, 3, cap(s))
}

func TestDrainMatchesSum(t *testing.T) {
	in := []float64{0.1, 0.2, 0.3, 1e16, -1e16, 42.5}
	pure := Sum(in)
	assert.Len(t, in, 6)

	s := append([]float64(nil), in...)
	assert.Equal(t, pure, Drain(&s))
}

func TestSumDoesNotMutate(t *testing.T) {
	s := []uint8{10, 20, 30}
	assert.Equal(t, uint8(60), Sum(s))
	assert.Equal(t, []uint8{10, 20, 30}, s)
	assert.Equal(t, 0, Sum[int](nil))
}

func TestPop(t *testing.T) {
	s := []string{"a", "b"}

	v, ok := Pop(&s)
	require.True(t, ok)
	assert.Equal(t, "b", v)

	v, ok = Pop(&s)
	require.True(t, ok)
	assert.Equal(t, "a", v)

	v, ok = Pop(&s)
	assert.False(t, ok)
	assert.Equal(t, "", v)

	_, ok = Pop[int](nil)
	assert.False(t, ok)
}

func TestClear(t *testing.T) {
	s := []int{1, 2, 3}
	Clear(&s)
	assert.Len(t, s, 0)
	assert.Equal(t, 0, Drain(&s))

	Clear[int](nil)
}
