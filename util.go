package main

import (
	"fmt"
	"math"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

var intSegment = regexp.MustCompile(`^\d+$`)

// CleanPath replaces dynamic path segments (UUIDs, integers) with {id} so
// that statistics are grouped per route rather than per sequence.
func CleanPath(path string) string {
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		if segment == "" {
			continue
		}
		if intSegment.MatchString(segment) || isUUID(segment) {
			segments[i] = "{id}"
		}
	}
	return strings.Join(segments, "/")
}

func isUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// clientIP returns the remote address without its port. With trustForwarded
// set, the first X-Forwarded-For entry wins when present.
func clientIP(r *http.Request, trustForwarded bool) string {
	if trustForwarded {
		if fwd := strings.TrimSpace(strings.Split(r.Header.Get("X-Forwarded-For"), ",")[0]); fwd != "" {
			return fwd
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// parsedNumbers holds CLI input parsed either as integers or as floats.
type parsedNumbers struct {
	ints   []int64
	floats []float64
	float  bool
}

// parseNumbers parses every field as an int64 unless forceFloat is set or any
// field is not an integer, in which case all fields are parsed as float64.
func parseNumbers(fields []string, forceFloat bool) (parsedNumbers, error) {
	var out parsedNumbers
	if !forceFloat {
		ints := make([]int64, 0, len(fields))
		for _, f := range fields {
			n, err := strconv.ParseInt(f, 10, 64)
			if err != nil {
				ints = nil
				break
			}
			ints = append(ints, n)
		}
		if ints != nil {
			out.ints = ints
			return out, nil
		}
	}

	out.float = true
	out.floats = make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return parsedNumbers{}, fmt.Errorf("not a number: %q", f)
		}
		out.floats = append(out.floats, v)
	}
	return out, nil
}

// checkedSumInt64 adds vals in the same last-to-first order as numseq.Drain
// and reports false if any partial sum leaves the int64 range.
func checkedSumInt64(vals []int64) (int64, bool) {
	var acc int64
	for i := len(vals) - 1; i >= 0; i-- {
		v := vals[i]
		if (v > 0 && acc > math.MaxInt64-v) || (v < 0 && acc < math.MinInt64-v) {
			return 0, false
		}
		acc += v
	}
	return acc, true
}
