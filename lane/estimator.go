package lane

import (
	m "math"

	"gonum.org/v1/gonum/stat"

	tm "github.com/Koyaani/titaniumcar/math"
	"github.com/Koyaani/titaniumcar/settings"
)

// Convergence is the column where the detected lane lines meet the top row
// of the frame.
type Convergence struct {
	X        float64 `json:"x"`
	Admitted int     `json:"admitted"`
	Ignored  int     `json:"ignored"`
}

type Estimator struct {
	Width            float64
	Margin           float64
	MinIgnoredLength float64
	IgnoredDivisor   float64
}

// NewEstimator normalizes against a frame of the given width.
func NewEstimator(s settings.EstimatorSettings, width float64) *Estimator {
	e := &Estimator{
		Width:            width,
		Margin:           s.Margin,
		MinIgnoredLength: s.MinIgnoredLength,
		IgnoredDivisor:   s.IgnoredDivisor,
	}
	if e.IgnoredDivisor == 0 {
		e.IgnoredDivisor = 3
	}
	return e
}

// Estimate returns the length weighted mean intercept of the admissible
// segments. ok is false when no segment is admissible.
func (e *Estimator) Estimate(segments []tm.Segment) (c Convergence, ok bool) {
	intercepts := make([]float64, 0, len(segments))
	lengths := make([]float64, 0, len(segments))

	for _, s := range segments {
		if s.Horizontal() {
			continue
		}
		b := s.Intercept()
		length := s.Length()
		if m.IsNaN(b) || m.IsInf(b, 0) {
			continue
		}
		if -e.Margin < b && b < e.Width+e.Margin {
			intercepts = append(intercepts, b)
			lengths = append(lengths, length)
		} else if length > e.MinIgnoredLength {
			c.Ignored++
		}
	}

	if len(intercepts) == 0 {
		return c, false
	}

	c.Admitted = len(intercepts)
	c.X = stat.Mean(intercepts, lengths)

	// far off-center estimates are pushed further out by the long segments
	// that were too steep to admit
	if m.Abs(c.X-e.Width/2) > e.Width/2 {
		c.X *= 1 + float64(c.Ignored)/e.IgnoredDivisor
	}
	return c, true
}
