package actuator

import (
	"log/slog"
)

// Null drops every write. It is used when no PWM hardware is reachable so
// the rest of the pipeline can still run.
type Null struct{}

func (Null) SetPulse(pin, pulse int) error {
	slog.Debug("null actuator", "pin", pin, "pulse", pulse)
	return nil
}

func (Null) Close() error { return nil }
