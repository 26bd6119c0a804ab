package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/Koyaani/titaniumcar/cereal"
	"github.com/Koyaani/titaniumcar/chassis"
	"github.com/Koyaani/titaniumcar/lane"
	"github.com/Koyaani/titaniumcar/settings"
)

type fakeSource struct {
	frames int
	frame  gocv.Mat
}

func (f *fakeSource) Read() (gocv.Mat, bool) {
	if f.frames == 0 {
		return f.frame, false
	}
	f.frames--
	return f.frame, true
}

func (f *fakeSource) Close() error {
	return f.frame.Close()
}

type fixedPerception struct {
	cmd   lane.Command
	calls int
}

func (p *fixedPerception) Steer(frame gocv.Mat) lane.Command {
	p.calls++
	return p.cmd
}

func (p *fixedPerception) Close() error { return nil }

func carChannels(t *testing.T) (*chassis.Channel, *chassis.Channel) {
	t.Helper()
	p, err := chassis.Preset("car")
	require.NoError(t, err)
	speed, direction, err := p.Channels()
	require.NoError(t, err)
	return speed, direction
}

func TestApplyKeepsDirectionWithoutEstimate(t *testing.T) {
	speed, direction := carChannels(t)

	apply(lane.Command{Direction: 0.5, Speed: 0.2, HasDirection: true}, speed, direction)
	assert.InDelta(t, 0.5, direction.Snapshot().Target, 1e-9)
	assert.InDelta(t, 0.2, speed.Snapshot().Target, 1e-9)

	apply(lane.Command{Direction: -1, Speed: 0.33}, speed, direction)
	assert.InDelta(t, 0.5, direction.Snapshot().Target, 1e-9)
	assert.InDelta(t, 0.33, speed.Snapshot().Target, 1e-9)
}

func TestControlFeedThrottles(t *testing.T) {
	var states []cereal.ControlState
	feed := &controlFeed{
		Profile: "car",
		Mode:    MODE_LINE,
		Period:  50 * time.Millisecond,
		Sinks:   []func(cereal.ControlState){func(s cereal.ControlState) { states = append(states, s) }},
	}
	feed.SetCommand(lane.Command{Speed: 0.4, HasDirection: true}, 24)

	t0 := time.Now()
	outputs := []chassis.Output{
		{Channel: chassis.Speed.String(), Pin: 5, Pulse: 410},
		{Channel: chassis.Direction.String(), Pin: 15, Pulse: 400},
	}
	feed.Observe(chassis.Tick{Time: t0, Outputs: outputs})
	feed.Observe(chassis.Tick{Time: t0.Add(10 * time.Millisecond), Outputs: outputs})
	feed.Observe(chassis.Tick{Time: t0.Add(60 * time.Millisecond), Outputs: outputs})

	require.Len(t, states, 2)
	assert.Equal(t, "car", states[0].Profile)
	assert.Equal(t, 410, states[0].Speed.Pulse)
	assert.Equal(t, 400, states[0].Direction.Pulse)
	assert.Equal(t, 24.0, states[0].FrameRate)
	assert.Equal(t, t0.Add(60*time.Millisecond).UnixNano(), states[1].Time)
}

func TestPerceiveFailsWhenSourceRunsDry(t *testing.T) {
	source := &fakeSource{frames: 3, frame: gocv.NewMat()}
	defer source.Close()
	p := &fixedPerception{cmd: lane.Command{Speed: 0.3}}

	var got []lane.Command
	err := perceive(context.Background(), source, p, func(cmd lane.Command, rate float64) {
		got = append(got, cmd)
	})
	require.Error(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, 3, p.calls)
}

func TestPerceiveStopsOnCancel(t *testing.T) {
	source := &fakeSource{frames: 100, frame: gocv.NewMat()}
	defer source.Close()
	p := &fixedPerception{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := perceive(ctx, source, p, func(lane.Command, float64) {})
	require.NoError(t, err)
	assert.Zero(t, p.calls)
}

func TestNewPerceptionRejectsUnknownMode(t *testing.T) {
	s := settings.CarSettings{}
	s.Default()
	s.Mode = "teleport"
	_, err := newPerception(s)
	assert.Error(t, err)
}
