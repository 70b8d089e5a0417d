package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOlsFit(t *testing.T) {
	// arithmetic sequence with step 10: slope 10, intercept 100
	ys := make([]int64, 12)
	for i := range ys {
		ys[i] = 100 + int64(i)*10
	}
	slope, intercept := olsFit(ys)
	assert.InDelta(t, 10.0, slope, 1e-9)
	assert.InDelta(t, 100.0, intercept, 1e-9)

	// flat series
	slope, intercept = olsFit([]int64{500, 500, 500})
	assert.InDelta(t, 0.0, slope, 1e-9)
	assert.InDelta(t, 500.0, intercept, 1e-9)

	// degenerate inputs
	slope, intercept = olsFit(nil)
	assert.Zero(t, slope)
	assert.Zero(t, intercept)

	slope, intercept = olsFit([]int64{42})
	assert.Zero(t, slope)
	assert.InDelta(t, 42.0, intercept, 1e-9)
}
