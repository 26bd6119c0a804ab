package chassis

import (
	"sync"

	"github.com/pkg/errors"

	tm "github.com/Koyaani/titaniumcar/math"
)

type Kind int

const (
	Speed Kind = iota
	Direction
)

func (k Kind) String() string {
	if k == Speed {
		return "speed"
	}
	return "direction"
}

// Output is what the scheduler writes for one channel on one tick.
type Output struct {
	Channel string `json:"channel"`
	Pin     int    `json:"pin"`
	Pulse   int    `json:"pulse"`
	State   State  `json:"state"`
}

// Channel holds one actuated value. SetTarget is called from perception and
// Advance from the scheduler; both hold the channel's own mutex.
type Channel struct {
	Kind        Kind
	Pin         int
	Calibration Calibration
	Policy      Policy

	mu    sync.Mutex
	state State
}

func NewChannel(kind Kind, spec ChannelSpec) (*Channel, error) {
	if err := spec.Calibration.Validate(); err != nil {
		return nil, errors.Wrapf(err, "%s channel", kind)
	}
	policy, err := spec.Policy.Build()
	if err != nil {
		return nil, errors.Wrapf(err, "%s channel", kind)
	}
	return &Channel{
		Kind:        kind,
		Pin:         spec.Pin,
		Calibration: spec.Calibration,
		Policy:      policy,
	}, nil
}

// SetTarget clips v to [-1, 1] and returns the stored value.
func (c *Channel) SetTarget(v float64) float64 {
	v = tm.Unit(v)
	c.mu.Lock()
	c.state.Target = v
	c.mu.Unlock()
	return v
}

func (c *Channel) Advance() Output {
	c.mu.Lock()
	next := c.Policy.Step(c.state)
	next.Current = tm.Unit(next.Current)
	c.state = next
	c.mu.Unlock()

	return Output{
		Channel: c.Kind.String(),
		Pin:     c.Pin,
		Pulse:   ticks(c.pulse(next.Current)),
		State:   next,
	}
}

func (c *Channel) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Idle resets the channel and returns the safe pulse: Mid for direction,
// Low for speed.
func (c *Channel) Idle() Output {
	c.mu.Lock()
	c.state = State{}
	c.mu.Unlock()

	pulse := c.Calibration.Mid
	if c.Kind == Speed {
		pulse = c.Calibration.Low
	}
	return Output{Channel: c.Kind.String(), Pin: c.Pin, Pulse: pulse}
}

func (c *Channel) pulse(v float64) float64 {
	if c.Kind == Direction {
		return c.Calibration.Linear(v)
	}
	if _, ok := c.Policy.(Hysteresis); ok {
		return c.Calibration.Linear(v)
	}
	return c.Calibration.Throttle(v)
}
