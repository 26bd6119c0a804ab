package chassis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type write struct {
	pin, pulse int
}

type fakeActuator struct {
	mu     sync.Mutex
	writes []write
	closed bool
	fail   bool
}

func (f *fakeActuator) SetPulse(pin, pulse int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("write after close")
	}
	f.writes = append(f.writes, write{pin, pulse})
	if f.fail {
		return errors.New("bus error")
	}
	return nil
}

func (f *fakeActuator) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeActuator) snapshot() ([]write, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]write(nil), f.writes...), f.closed
}

func newScheduler(t *testing.T, a Actuator) (*Scheduler, *Channel, *Channel) {
	t.Helper()
	p, err := Preset("car")
	require.NoError(t, err)
	speed, direction, err := p.Channels()
	require.NoError(t, err)
	return NewScheduler(a, speed, direction), speed, direction
}

func TestStepWritesEveryChannel(t *testing.T) {
	a := &fakeActuator{}
	s, speed, direction := newScheduler(t, a)
	speed.SetTarget(1)
	direction.SetTarget(-1)

	var observed []Tick
	s.Observe(func(tick Tick) { observed = append(observed, tick) })
	tick := s.Step()

	writes, _ := a.snapshot()
	require.Len(t, writes, 2)
	assert.Equal(t, 5, writes[0].pin)
	assert.Equal(t, 10, writes[1].pin)
	assert.Len(t, tick.Outputs, 2)
	assert.Len(t, observed, 1)
	assert.Greater(t, speed.Snapshot().Current, 0.0)
}

func TestStepKeepsGoingOnWriteErrors(t *testing.T) {
	a := &fakeActuator{fail: true}
	s, _, _ := newScheduler(t, a)

	for range 5 {
		s.Step()
	}

	writes, _ := a.snapshot()
	assert.Len(t, writes, 10)
}

func TestRunDrivesToIdleOnCancel(t *testing.T) {
	a := &fakeActuator{}
	s, speed, direction := newScheduler(t, a)
	s.Period = time.Millisecond
	speed.SetTarget(1)
	direction.SetTarget(1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		writes, _ := a.snapshot()
		return len(writes) >= 20
	}, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}

	writes, closed := a.snapshot()
	assert.True(t, closed)
	last := writes[len(writes)-2:]
	assert.Equal(t, []write{{5, 390}, {10, 410}}, last, "idle pulses are the final writes")
	assert.Equal(t, State{}, speed.Snapshot())
	assert.Equal(t, State{}, direction.Snapshot())
}

func TestConcurrentTargets(t *testing.T) {
	a := &fakeActuator{}
	s, speed, direction := newScheduler(t, a)
	s.Period = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	var wg sync.WaitGroup
	for i := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 500 {
				v := float64((i+j)%21-10) / 10
				speed.SetTarget(v)
				direction.SetTarget(-v)
			}
		}()
	}
	wg.Wait()
	cancel()
	require.NoError(t, <-done)

	writes, _ := a.snapshot()
	for _, w := range writes {
		if w.pin == 5 {
			assert.GreaterOrEqual(t, w.pulse, 390)
			assert.LessOrEqual(t, w.pulse, 414)
		} else {
			assert.GreaterOrEqual(t, w.pulse, 315)
			assert.LessOrEqual(t, w.pulse, 530)
		}
	}
}
