package chassis

import (
	m "math"

	"github.com/pkg/errors"
)

var ErrInvalidCalibration = errors.New("invalid calibration")

// Calibration maps a normalized value to raw PWM ticks: Low at -1, Mid at
// 0 and High at 1.
type Calibration struct {
	Low  int `json:"low"`
	Mid  int `json:"mid"`
	High int `json:"high"`
}

func (c Calibration) Validate() error {
	if c.Low >= c.Mid || c.Mid >= c.High {
		return errors.Wrapf(ErrInvalidCalibration, "expected low < mid < high, got (%d, %d, %d)", c.Low, c.Mid, c.High)
	}
	return nil
}

// Linear interpolates on both sides of Mid and is continuous at zero.
func (c Calibration) Linear(v float64) float64 {
	if v >= 0 {
		return float64(c.Mid) + v*float64(c.High-c.Mid)
	}
	return float64(c.Mid) + v*float64(c.Mid-c.Low)
}

// Throttle is Linear for forward values and snaps anything negative to Low.
func (c Calibration) Throttle(v float64) float64 {
	if v >= 0 {
		return c.Linear(v)
	}
	return float64(c.Low)
}

func ticks(pulse float64) int {
	return int(m.Round(pulse))
}
