package math

import (
	m "math"
)

// Segment is a detected line segment in image coordinates, y growing downward.
type Segment struct {
	X1, Y1, X2, Y2 float64
}

func NewSegment(x1, y1, x2, y2 int) Segment {
	return Segment{X1: float64(x1), Y1: float64(y1), X2: float64(x2), Y2: float64(y2)}
}

// Horizontal segments have no defined crossing with the y=0 row.
func (s Segment) Horizontal() bool {
	return s.Y1 == s.Y2
}

// Slope is dx/dy, so vertical segments have a slope of zero.
func (s Segment) Slope() float64 {
	return (s.X1 - s.X2) / (s.Y1 - s.Y2)
}

// Intercept is the column where the extended segment crosses y=0.
func (s Segment) Intercept() float64 {
	return s.X1 - s.Slope()*s.Y1
}

func (s Segment) Length() float64 {
	return m.Hypot(s.X1-s.X2, s.Y1-s.Y2)
}
