package lane

import (
	tm "github.com/Koyaani/titaniumcar/math"
	"github.com/Koyaani/titaniumcar/settings"
	"github.com/Koyaani/titaniumcar/utils"
)

// Predictor runs the steering model on a preprocessed tensor. ok is false
// while no prediction is available yet.
type Predictor interface {
	Predict(tensor []float32, rows, cols int) (direction, speed float64, ok bool, err error)
}

// ModelPilot steers from model predictions instead of line geometry. The
// model's speed output is shifted by SpeedScale*p + SpeedOffset.
type ModelPilot struct {
	Predictor     Predictor
	SpeedScale    float64
	SpeedOffset   float64
	FallbackSpeed float64
	direction     float64
}

func NewModelPilot(p Predictor, s settings.CarSettings) *ModelPilot {
	return &ModelPilot{
		Predictor:     p,
		SpeedScale:    s.Model.SpeedScale,
		SpeedOffset:   s.Model.SpeedOffset,
		FallbackSpeed: s.Smoother.FallbackSpeed,
	}
}

func (p *ModelPilot) Steer(tensor []float32, rows, cols int) Command {
	direction, speed, ok, err := p.Predictor.Predict(tensor, rows, cols)
	if err != nil {
		utils.Logwe(err)
	}
	if err != nil || !ok {
		return p.Hold()
	}
	p.direction = tm.Unit(direction)
	return Command{
		Direction:    p.direction,
		Speed:        p.SpeedScale*speed + p.SpeedOffset,
		HasDirection: true,
	}
}

// Hold keeps the last predicted direction at the fallback speed.
func (p *ModelPilot) Hold() Command {
	return Command{Direction: p.direction, Speed: p.FallbackSpeed}
}
