// Package numseq sums sequences of numbers, either in place (draining the
// caller's slice) or without touching it.
package numseq

import "golang.org/x/exp/constraints"

// Number is any integer or floating point kind.
type Number interface {
	constraints.Integer | constraints.Float
}

// Pop removes and returns the last element of *s. ok is false when the
// sequence is empty; emptiness is decided by length only, so any stored value
// (zero, NaN, negative zero) is a legitimate element.
func Pop[T any](s *[]T) (v T, ok bool) {
	if s == nil || len(*s) == 0 {
		return v, false
	}
	last := len(*s) - 1
	v = (*s)[last]
	var zero T
	(*s)[last] = zero
	*s = (*s)[:last]
	return v, true
}

// Drain sums the elements of *s, consuming them from last to first. On return
// *s is empty (capacity is kept). A nil pointer or empty slice sums to 0.
func Drain[T Number](s *[]T) T {
	var acc T
	for {
		v, ok := Pop(s)
		if !ok {
			return acc
		}
		acc += v
	}
}

// Sum returns the sum of s without modifying it. Elements are added in the
// same last-to-first order as Drain so both agree bit for bit on floats.
func Sum[T Number](s []T) T {
	var acc T
	for i := len(s) - 1; i >= 0; i-- {
		acc += s[i]
	}
	return acc
}

// Clear empties *s without summing.
func Clear[T any](s *[]T) {
	if s == nil {
		return
	}
	clear(*s)
	*s = (*s)[:0]
}
