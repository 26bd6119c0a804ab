package lane

import (
	m "math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	tm "github.com/Koyaani/titaniumcar/math"
	"github.com/Koyaani/titaniumcar/settings"
)

type Smoother struct {
	Width         float64
	Gain          float64
	Damping       float64
	FallbackSpeed float64

	window    *tm.Window
	direction float64
}

func NewSmoother(s settings.SmootherSettings, width float64) *Smoother {
	return &Smoother{
		Width:         width,
		Gain:          s.Gain,
		Damping:       s.Damping,
		FallbackSpeed: s.FallbackSpeed,
		window:        tm.NewWindow(s.WindowSize),
	}
}

// Update turns a convergence column into a clipped direction and a speed
// that drops as the long horizon average direction grows.
func (s *Smoother) Update(x float64) (direction, speed float64) {
	raw := s.Gain * m.Atan((x-s.Width/2)/s.Width)
	s.window.Push(raw)
	s.direction = tm.Unit(raw)

	oldest := s.window.Oldest(max(1, s.window.Len()/4))
	speed = 1 - s.Damping*m.Abs(stat.Mean(oldest, nil))
	return s.direction, speed
}

// Hold is used on frames without an estimate. The window is untouched, the
// previous direction stands, and speed drops to the fallback.
func (s *Smoother) Hold() (direction, speed float64) {
	return s.direction, s.FallbackSpeed
}

// Curvature is the mean absolute direction over the whole window.
func (s *Smoother) Curvature() float64 {
	values := s.window.Values()
	for i, v := range values {
		values[i] = m.Abs(v)
	}
	return floats.Sum(values) / float64(len(values))
}

func (s *Smoother) Window() []float64 {
	return s.window.Values()
}

func (s *Smoother) Reset() {
	s.window.Reset()
	s.direction = 0
}
