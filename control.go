package main

import (
	"sync"
	"time"

	"github.com/Koyaani/titaniumcar/cereal"
	"github.com/Koyaani/titaniumcar/chassis"
	"github.com/Koyaani/titaniumcar/lane"
)

// controlFeed joins the latest perception output with scheduler ticks and
// hands the result to its sinks at most once per period.
type controlFeed struct {
	Profile string
	Mode    string
	Period  time.Duration
	Sinks   []func(cereal.ControlState)

	mu        sync.Mutex
	command   lane.Command
	frameRate float64
	lastSent  time.Time
}

func (f *controlFeed) SetCommand(cmd lane.Command, frameRate float64) {
	f.mu.Lock()
	f.command = cmd
	f.frameRate = frameRate
	f.mu.Unlock()
}

// Observe is registered on the scheduler.
func (f *controlFeed) Observe(tick chassis.Tick) {
	f.mu.Lock()
	if !f.lastSent.IsZero() && tick.Time.Sub(f.lastSent) < f.Period {
		f.mu.Unlock()
		return
	}
	f.lastSent = tick.Time
	state := cereal.ControlState{
		Time:      tick.Time.UnixNano(),
		Profile:   f.Profile,
		Mode:      f.Mode,
		Command:   f.command,
		FrameRate: f.frameRate,
	}
	f.mu.Unlock()

	for _, out := range tick.Outputs {
		switch out.Channel {
		case chassis.Speed.String():
			state.Speed = out
		case chassis.Direction.String():
			state.Direction = out
		}
	}
	for _, sink := range f.Sinks {
		sink(state)
	}
}
