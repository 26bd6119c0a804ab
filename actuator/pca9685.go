package actuator

import (
	"log/slog"
	m "math"
	"sync"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/pca9685"
	"periph.io/x/host/v3"
)

// PCA9685 drives the servo and ESC through a 16 channel PWM controller on
// an I2C bus. Pulses are raw 12-bit counts.
type PCA9685 struct {
	mu  sync.Mutex
	bus i2c.BusCloser
	dev *pca9685.Dev
}

// OpenPCA9685 opens the named I2C bus (empty for the first one available)
// and sets the PWM frequency in hertz.
func OpenPCA9685(busName string, frequency float64) (*PCA9685, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "could not initialize periph host drivers")
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open i2c bus %q", busName)
	}
	dev, err := pca9685.NewI2C(bus, pca9685.I2CAddr)
	if err != nil {
		bus.Close()
		return nil, errors.Wrap(err, "could not initialize pca9685")
	}
	freq := physic.Frequency(m.Round(frequency * float64(physic.Hertz)))
	if err := dev.SetPwmFreq(freq); err != nil {
		bus.Close()
		return nil, errors.Wrap(err, "could not set pwm frequency")
	}
	slog.Info("pca9685 ready", "bus", bus.String(), "frequency", freq)
	return &PCA9685{bus: bus, dev: dev}, nil
}

func (p *PCA9685) SetPulse(pin, pulse int) error {
	if pulse < 0 || pulse > 4095 {
		return errors.Errorf("pulse %d out of 12-bit range", pulse)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dev == nil {
		return errors.New("pca9685 is closed")
	}
	return p.dev.SetPwm(pin, 0, gpio.Duty(pulse))
}

func (p *PCA9685) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dev == nil {
		return nil
	}
	p.dev = nil
	return p.bus.Close()
}
