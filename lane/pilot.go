package lane

import (
	"github.com/Koyaani/titaniumcar/math"
	"github.com/Koyaani/titaniumcar/settings"
)

// Command is the output of one perception frame. HasDirection is false
// when the frame produced no estimate and the direction target must be
// left alone.
type Command struct {
	Direction    float64     `json:"direction"`
	Speed        float64     `json:"speed"`
	HasDirection bool        `json:"has_direction"`
	Estimated    bool        `json:"estimated"`
	Convergence  Convergence `json:"convergence"`
	Curvature    float64     `json:"curvature"`
}

type Pilot struct {
	Estimator *Estimator
	Smoother  *Smoother
}

func NewPilot(s settings.CarSettings) *Pilot {
	return &Pilot{
		Estimator: NewEstimator(s.Estimator, float64(s.Width)),
		Smoother:  NewSmoother(s.Smoother, float64(s.Width)),
	}
}

func (p *Pilot) Steer(segments []math.Segment) Command {
	c, ok := p.Estimator.Estimate(segments)
	if !ok {
		direction, speed := p.Smoother.Hold()
		return Command{Direction: direction, Speed: speed, Curvature: p.Smoother.Curvature()}
	}
	direction, speed := p.Smoother.Update(c.X)
	return Command{
		Direction:    direction,
		Speed:        speed,
		HasDirection: true,
		Estimated:    true,
		Convergence:  c,
		Curvature:    p.Smoother.Curvature(),
	}
}
