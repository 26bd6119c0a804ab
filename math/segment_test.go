package math

import (
	m "math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSegmentGeometry(t *testing.T) {
	s := NewSegment(0, 131, 10, 228)

	assert.False(t, s.Horizontal())
	assert.InDelta(t, 10.0/97.0, s.Slope(), 1e-12)
	assert.InDelta(t, -1310.0/97.0, s.Intercept(), 1e-9)
	assert.InDelta(t, m.Sqrt(9509), s.Length(), 1e-9)
}

func TestSegmentInterceptIsEndpointSymmetric(t *testing.T) {
	a := NewSegment(100, 200, 180, 40)
	b := NewSegment(180, 40, 100, 200)

	assert.InDelta(t, a.Intercept(), b.Intercept(), 1e-9)
	assert.InDelta(t, 200.0, a.Intercept(), 1e-9)
}

func TestSegmentHorizontal(t *testing.T) {
	assert.True(t, NewSegment(0, 50, 300, 50).Horizontal())
}

func TestClip(t *testing.T) {
	assert.Equal(t, 1.0, Unit(3))
	assert.Equal(t, -1.0, Unit(-1.5))
	assert.Equal(t, 0.25, Unit(0.25))
	assert.Equal(t, 2.0, Clip(5, 0, 2))
}

func TestMovingAverage(t *testing.T) {
	a := MovingAverage{}
	a.Init(4)

	assert.Equal(t, 2.0, a.Update(2), "first update seeds the window")
	a.Update(6)
	assert.InDelta(t, 3.0, a.Estimate, 1e-12)
	for range 4 {
		a.Update(10)
	}
	assert.InDelta(t, 10.0, a.Estimate, 1e-12)
}
