package chassis

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/Koyaani/titaniumcar/settings"
	"github.com/Koyaani/titaniumcar/utils"
)

// Actuator writes raw PWM ticks to an output pin.
type Actuator interface {
	SetPulse(pin, pulse int) error
	Close() error
}

type Tick struct {
	Time    time.Time `json:"time"`
	Outputs []Output  `json:"outputs"`
}

// Scheduler advances its channels on a fixed period and forwards their
// pulses to the actuator. Observers run on the scheduler goroutine and must
// not block.
type Scheduler struct {
	Period    time.Duration
	Channels  []*Channel
	Actuator  Actuator
	observers []func(Tick)
	errLog    utils.LogLimiter
}

func NewScheduler(actuator Actuator, channels ...*Channel) *Scheduler {
	return &Scheduler{
		Period:   settings.ACTUATION_PERIOD,
		Channels: channels,
		Actuator: actuator,
		errLog:   utils.LogLimiter{Interval: time.Second},
	}
}

func (s *Scheduler) Observe(fn func(Tick)) {
	s.observers = append(s.observers, fn)
}

// Run ticks until ctx is done, then drives every channel to idle and closes
// the actuator. Cancellation is the normal way to stop and is not an error.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.Period)
	defer ticker.Stop()

	slog.Info("actuation scheduler started", "period", s.Period, "channels", len(s.Channels))
	for {
		select {
		case <-ctx.Done():
			slog.Info("actuation scheduler stopping")
			return s.Shutdown()
		case <-ticker.C:
			s.Step()
		}
	}
}

// Step runs a single tick.
func (s *Scheduler) Step() Tick {
	tick := Tick{Time: time.Now(), Outputs: make([]Output, 0, len(s.Channels))}
	for _, c := range s.Channels {
		out := c.Advance()
		s.write(out)
		tick.Outputs = append(tick.Outputs, out)
	}
	for _, fn := range s.observers {
		fn(tick)
	}
	return tick
}

// Shutdown writes the idle pulse of every channel and releases the
// actuator.
func (s *Scheduler) Shutdown() error {
	tick := Tick{Time: time.Now()}
	var idleErr error
	for _, c := range s.Channels {
		out := c.Idle()
		err := s.Actuator.SetPulse(out.Pin, out.Pulse)
		if err != nil && idleErr == nil {
			idleErr = errors.Wrapf(err, "could not idle %s channel", out.Channel)
		}
		tick.Outputs = append(tick.Outputs, out)
	}
	for _, fn := range s.observers {
		fn(tick)
	}

	err := s.Actuator.Close()
	if err != nil {
		err = errors.Wrap(err, "could not close actuator")
		if idleErr == nil {
			return err
		}
		utils.Loge(err)
	}
	return idleErr
}

func (s *Scheduler) write(out Output) {
	err := s.Actuator.SetPulse(out.Pin, out.Pulse)
	if err != nil {
		s.errLog.Logwe(errors.Wrap(err, "could not write pulse"), "channel", out.Channel, "pin", out.Pin, "pulse", out.Pulse)
	}
}
