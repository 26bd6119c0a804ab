package chassis

import (
	m "math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func channel(t *testing.T, kind Kind, policy PolicySpec) *Channel {
	t.Helper()
	c, err := NewChannel(kind, ChannelSpec{Pin: 1, Calibration: Calibration{375, 409, 413}, Policy: policy})
	require.NoError(t, err)
	return c
}

func TestSetTargetClips(t *testing.T) {
	c := channel(t, Direction, PolicySpec{Type: POLICY_IMMEDIATE})

	assert.Equal(t, 1.0, c.SetTarget(3))
	assert.Equal(t, -1.0, c.SetTarget(-7))
	assert.Equal(t, 0.5, c.SetTarget(0.5))
	assert.Equal(t, 0.5, c.Snapshot().Target)
}

func TestStateStaysInBounds(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for _, policy := range []PolicySpec{
		{Type: POLICY_IMMEDIATE},
		{Type: POLICY_INERTIA, Inertia: 0.8},
		{Type: POLICY_INERTIA, Inertia: 0},
		{Type: POLICY_HYSTERESIS, Hysteresis: DefaultHysteresis()},
	} {
		t.Run(policy.Type, func(t *testing.T) {
			c := channel(t, Speed, policy)
			for range 2000 {
				c.SetTarget(r.Float64()*6 - 3)
				out := c.Advance()
				assert.GreaterOrEqual(t, out.State.Current, -1.0)
				assert.LessOrEqual(t, out.State.Current, 1.0)
				assert.GreaterOrEqual(t, out.State.Target, -1.0)
				assert.LessOrEqual(t, out.State.Target, 1.0)
				assert.GreaterOrEqual(t, out.Pulse, 375)
				assert.LessOrEqual(t, out.Pulse, 413)
			}
		})
	}
}

func TestInertiaFirstStep(t *testing.T) {
	c := channel(t, Speed, PolicySpec{Type: POLICY_INERTIA, Inertia: 0.8})
	c.SetTarget(1)

	out := c.Advance()

	assert.InDelta(t, m.Log(2.1)*0.1, out.State.Current, 1e-12)
	assert.InDelta(t, 0.0742, out.State.Current, 1e-4)
}

func TestInertiaConvergesWithoutOvershoot(t *testing.T) {
	for _, target := range []float64{1, -1, 0.3, -0.05} {
		c := channel(t, Direction, PolicySpec{Type: POLICY_INERTIA, Inertia: 0.8})
		c.SetTarget(target)

		prev := 0.0
		steps := 0
		for c.Snapshot().Current != target {
			cur := c.Advance().State.Current
			require.False(t, m.IsNaN(cur))
			if target > 0 {
				require.Greater(t, cur, prev)
				require.LessOrEqual(t, cur, target)
			} else {
				require.Less(t, cur, prev)
				require.GreaterOrEqual(t, cur, target)
			}
			prev = cur
			steps++
			require.Less(t, steps, 1000, "inertia never reached the target")
		}
		assert.Equal(t, target, c.Advance().State.Current, "holds once reached")
	}
}

func TestCalibrationContinuity(t *testing.T) {
	c := Calibration{315, 410, 530}

	assert.Equal(t, 410.0, c.Linear(0))
	assert.InDelta(t, c.Linear(0), c.Linear(-1e-9), 1e-6)
	assert.InDelta(t, c.Linear(0), c.Linear(1e-9), 1e-6)
	assert.Equal(t, 315.0, c.Linear(-1))
	assert.Equal(t, 530.0, c.Linear(1))
	assert.Equal(t, 362.5, c.Linear(-0.5))

	assert.Equal(t, 410.0, c.Throttle(0))
	assert.Equal(t, 315.0, c.Throttle(-1e-9), "throttle snaps negative values to low")
}

func TestSpeedBranches(t *testing.T) {
	immediate := channel(t, Speed, PolicySpec{Type: POLICY_IMMEDIATE})
	immediate.SetTarget(-0.5)
	assert.Equal(t, 375, immediate.Advance().Pulse)

	direction := channel(t, Direction, PolicySpec{Type: POLICY_IMMEDIATE})
	direction.SetTarget(-0.5)
	assert.Equal(t, 392, direction.Advance().Pulse)

	immediate.SetTarget(1)
	assert.Equal(t, 413, immediate.Advance().Pulse)
	immediate.SetTarget(0.5)
	assert.Equal(t, 411, immediate.Advance().Pulse)
}

func TestHysteresisHoldsAtRestAndBrakesFromSpeed(t *testing.T) {
	c := channel(t, Speed, PolicySpec{Type: POLICY_HYSTERESIS, Hysteresis: DefaultHysteresis()})

	c.SetTarget(-1)
	out := c.Advance()
	assert.Zero(t, out.State.Current, "negative targets are held while the trace is empty")
	assert.Equal(t, 409, out.Pulse)

	c.SetTarget(1)
	out = c.Advance()
	assert.InDelta(t, 0.4, out.State.Trace, 1e-12)
	c.Advance()
	c.Advance()
	out = c.Advance()
	assert.InDelta(t, 1.2, out.State.Trace, 1e-12, "the trace saturates")

	c.SetTarget(-1)
	out = c.Advance()
	assert.Equal(t, -1.0, out.State.Current)
	assert.Equal(t, 375, out.Pulse, "braking passes through the linear branch")
	assert.InDelta(t, 1.1, out.State.Trace, 1e-12)
}

func TestHysteresisRampsToRestWithInertia(t *testing.T) {
	h := DefaultHysteresis()
	h.Inertia = 0.8

	s := h.Step(State{Target: -1, Current: 0.3})
	assert.Less(t, s.Current, 0.3)
	assert.Greater(t, s.Current, 0.0, "the held zero is approached, not snapped to")

	for range 200 {
		s = h.Step(s)
	}
	assert.Zero(t, s.Current)
	assert.Zero(t, s.Trace)
}

func TestHysteresisTraceBounds(t *testing.T) {
	h := DefaultHysteresis()
	r := rand.New(rand.NewPCG(3, 4))
	s := State{}
	for range 5000 {
		s.Target = r.Float64()*2 - 1
		s = h.Step(s)
		require.GreaterOrEqual(t, s.Trace, 0.0)
		require.LessOrEqual(t, s.Trace, h.Max)
	}
}

func TestHysteresisDecayOrdering(t *testing.T) {
	h := DefaultHysteresis()

	braking := h.Step(State{Target: -0.5, Current: -0.5, Trace: 1})
	idle := h.Step(State{Target: 0.2, Current: 0.2, Trace: 1})
	rising := h.Step(State{Target: 0.9, Current: 0.9, Trace: 0.5})

	assert.Less(t, braking.Trace, idle.Trace)
	assert.Less(t, idle.Trace, 1.0)
	assert.Greater(t, rising.Trace, 0.5)
}

func TestIdle(t *testing.T) {
	speed := channel(t, Speed, PolicySpec{Type: POLICY_IMMEDIATE})
	direction := channel(t, Direction, PolicySpec{Type: POLICY_IMMEDIATE})
	speed.SetTarget(1)
	speed.Advance()

	assert.Equal(t, 375, speed.Idle().Pulse)
	assert.Equal(t, 409, direction.Idle().Pulse)
	assert.Equal(t, State{}, speed.Snapshot())
}

func TestNewChannelRejectsBadSpecs(t *testing.T) {
	_, err := NewChannel(Speed, ChannelSpec{Calibration: Calibration{409, 409, 413}})
	assert.ErrorIs(t, err, ErrInvalidCalibration)

	_, err = NewChannel(Speed, ChannelSpec{Calibration: Calibration{375, 409, 413}, Policy: PolicySpec{Type: POLICY_INERTIA, Inertia: 1}})
	assert.Error(t, err)

	_, err = NewChannel(Speed, ChannelSpec{Calibration: Calibration{375, 409, 413}, Policy: PolicySpec{Type: "turbo"}})
	assert.Error(t, err)
}
