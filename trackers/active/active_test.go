package active

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGaugeTracksPeak(t *testing.T) {
	r := NewRegistry()

	a := r.Start("/api/sum")
	b := r.Start("/api/sum")
	assert.Equal(t, int64(2), r.Get("/api/sum").Current())

	a.Done()
	b.Done()
	assert.Equal(t, int64(0), r.Get("/api/sum").Current())
	assert.Equal(t, int64(2), r.Get("/api/sum").Max())

	assert.Equal(t, int64(0), r.Get("/other").Max())
}

func TestGaugeConcurrent(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g := r.Start("/x")
			g.Done()
		}()
	}
	wg.Wait()

	g := r.Get("/x")
	assert.Equal(t, int64(0), g.Current())
	assert.GreaterOrEqual(t, g.Max(), int64(1))
	assert.LessOrEqual(t, g.Max(), int64(64))
}
