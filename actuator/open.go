package actuator

import (
	"log/slog"

	"github.com/pkg/errors"

	"github.com/Koyaani/titaniumcar/chassis"
	"github.com/Koyaani/titaniumcar/settings"
)

const (
	ACTUATOR_PCA9685 = "pca9685"
	ACTUATOR_SERIAL  = "serial"
	ACTUATOR_NULL    = "null"
)

var (
	openPCA9685      = func(bus string, freq float64) (chassis.Actuator, error) { return OpenPCA9685(bus, freq) }
	openSerialBridge = func(path string, baud int, freq float64) (chassis.Actuator, error) {
		return OpenSerialBridge(path, baud, freq)
	}
)

// Open returns the configured actuator. If the hardware cannot be reached
// it logs a warning and returns Null, so the car runs in degraded mode.
func Open(s settings.CarSettings, frequency float64) chassis.Actuator {
	a, err := open(s, frequency)
	if err != nil {
		slog.Warn("actuator unavailable, running without output", "actuator", s.Actuator, "error", err)
		return Null{}
	}
	return a
}

func open(s settings.CarSettings, frequency float64) (chassis.Actuator, error) {
	switch s.Actuator {
	case ACTUATOR_PCA9685, "":
		return openPCA9685(s.I2CBus, frequency)
	case ACTUATOR_SERIAL:
		return openSerialBridge(s.SerialPort, s.SerialBaud, frequency)
	case ACTUATOR_NULL:
		return Null{}, nil
	}
	return nil, errors.Errorf("unknown actuator %q", s.Actuator)
}
