package chassis

import (
	m "math"

	"github.com/pkg/errors"
)

const (
	POLICY_IMMEDIATE  = "immediate"
	POLICY_INERTIA    = "inertia"
	POLICY_HYSTERESIS = "hysteresis"
)

// State is the mutable part of a channel. Trace is only used by the
// hysteresis policy.
type State struct {
	Target  float64 `json:"target"`
	Current float64 `json:"current"`
	Trace   float64 `json:"trace"`
}

// Policy computes the next channel state from the previous one. It must not
// keep state of its own.
type Policy interface {
	Step(s State) State
	Name() string
}

type Immediate struct{}

func (Immediate) Step(s State) State {
	s.Current = s.Target
	return s
}

func (Immediate) Name() string { return POLICY_IMMEDIATE }

// Inertia moves current toward target by ln(1.1+|target-current|)*(1-k)/2
// per step without overshooting. A larger coefficient gives smaller steps.
type Inertia struct {
	Coefficient float64 `json:"coefficient"`
}

func (p Inertia) Step(s State) State {
	s.Current = inertiaStep(s.Target, s.Current, p.Coefficient)
	return s
}

func (Inertia) Name() string { return POLICY_INERTIA }

func inertiaStep(target, current, k float64) float64 {
	if current == target {
		return current
	}
	step := m.Log(1.1+m.Abs(target-current)) * (1 - k) / 2
	if current < target {
		return min(current+step, target)
	}
	return max(current-step, target)
}

// Hysteresis is a speed policy with a high speed trace. The trace fills
// while the channel runs above Threshold and bleeds off otherwise. While it
// is empty a negative target is held at zero, and while it is not a negative
// target passes through so the car can brake from speed.
type Hysteresis struct {
	Inertia    float64 `json:"inertia"`
	Threshold  float64 `json:"threshold"`
	Rise       float64 `json:"rise"`
	BrakeDecay float64 `json:"brake_decay"`
	IdleDecay  float64 `json:"idle_decay"`
	Max        float64 `json:"max"`
}

func DefaultHysteresis() Hysteresis {
	return Hysteresis{
		Inertia:    0,
		Threshold:  0.45,
		Rise:       0.4,
		BrakeDecay: 0.1,
		IdleDecay:  0.02,
		Max:        1.2,
	}
}

// Step holds a negative target at zero while the trace is empty. With
// Inertia set, Current ramps toward that zero like any other target.
func (p Hysteresis) Step(s State) State {
	target := s.Target
	if target < 0 && s.Trace == 0 {
		target = 0
	}
	if p.Inertia > 0 {
		s.Current = inertiaStep(target, s.Current, p.Inertia)
	} else {
		s.Current = target
	}

	switch {
	case s.Current > p.Threshold:
		s.Trace += p.Rise
	case s.Current < 0:
		s.Trace -= p.BrakeDecay
	default:
		s.Trace -= p.IdleDecay
	}
	s.Trace = max(0, min(p.Max, s.Trace))
	return s
}

func (Hysteresis) Name() string { return POLICY_HYSTERESIS }

func (p Hysteresis) Validate() error {
	if p.Max <= 0 {
		return errors.Errorf("hysteresis max must be positive, got %v", p.Max)
	}
	if p.Rise < 0 || p.BrakeDecay < 0 || p.IdleDecay < 0 {
		return errors.New("hysteresis rates must not be negative")
	}
	if p.Inertia < 0 || p.Inertia >= 1 {
		return errors.Errorf("hysteresis inertia must be in [0, 1), got %v", p.Inertia)
	}
	return nil
}

// PolicySpec is the serialized form of a policy.
type PolicySpec struct {
	Type       string     `json:"type"`
	Inertia    float64    `json:"inertia,omitempty"`
	Hysteresis Hysteresis `json:"hysteresis,omitzero"`
}

func (p PolicySpec) Build() (Policy, error) {
	switch p.Type {
	case POLICY_IMMEDIATE, "":
		return Immediate{}, nil
	case POLICY_INERTIA:
		if p.Inertia < 0 || p.Inertia >= 1 {
			return nil, errors.Errorf("inertia must be in [0, 1), got %v", p.Inertia)
		}
		return Inertia{Coefficient: p.Inertia}, nil
	case POLICY_HYSTERESIS:
		if err := p.Hysteresis.Validate(); err != nil {
			return nil, err
		}
		return p.Hysteresis, nil
	}
	return nil, errors.Errorf("unknown policy %q", p.Type)
}
