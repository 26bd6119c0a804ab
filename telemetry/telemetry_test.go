package telemetry

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Koyaani/titaniumcar/chassis"
	"github.com/Koyaani/titaniumcar/lane"
)

func TestRecordAndQuery(t *testing.T) {
	dir := t.TempDir()
	r, err := OpenRecorder(filepath.Join(dir, "drives.db"))
	require.NoError(t, err)

	id, err := r.StartSession("f1", "line")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	start := time.Now()
	for i := range 10 {
		at := start.Add(time.Duration(i) * 30 * time.Millisecond)
		r.RecordFrame(at, lane.Command{Direction: 0.1 * float64(i), Speed: 0.5, HasDirection: true, Estimated: true,
			Convergence: lane.Convergence{X: 228}})
		r.RecordTick(chassis.Tick{Time: at, Outputs: []chassis.Output{
			{Channel: "speed", Pin: 5, Pulse: 411, State: chassis.State{Target: 0.5, Current: 0.4, Trace: 0.4}},
			{Channel: "direction", Pin: 15, Pulse: 420, State: chassis.State{Target: 0.1, Current: 0.08}},
		}})
	}
	require.NoError(t, r.Close())

	r, err = OpenRecorder(filepath.Join(dir, "drives.db"))
	require.NoError(t, err)
	defer r.Close()

	sessions, err := r.Sessions()
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, id, sessions[0].ID)
	assert.Equal(t, "f1", sessions[0].Profile)

	latest, err := r.LatestSession()
	require.NoError(t, err)
	assert.Equal(t, id, latest)

	frames, err := r.Frames(id)
	require.NoError(t, err)
	require.Len(t, frames, 10)
	assert.True(t, frames[3].Estimated)
	assert.InDelta(t, 0.3, frames[3].Direction, 1e-12)
	assert.Equal(t, 228.0, frames[3].Convergence)

	ticks, err := r.Ticks(id)
	require.NoError(t, err)
	require.Len(t, ticks, 10)
	assert.Equal(t, 411, ticks[0].SpeedPulse)
	assert.Equal(t, 420, ticks[0].DirectionPulse)
	assert.Equal(t, 0.4, ticks[0].Trace)
	assert.Less(t, ticks[0].T, ticks[9].T)
}

func TestLatestSessionEmpty(t *testing.T) {
	r, err := OpenRecorder(filepath.Join(t.TempDir(), "drives.db"))
	require.NoError(t, err)
	defer r.Close()

	_, err = r.LatestSession()
	assert.Error(t, err)
}

func TestRenderSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drive.png")
	frames := []FrameRecord{{T: 0, Direction: 0.2, Speed: 0.5}, {T: 0.1, Direction: -0.3, Speed: 0.33}}
	ticks := []TickRecord{{T: 0, SpeedTarget: 0.5}, {T: 0.05, SpeedTarget: 0.5, SpeedCurrent: 0.1}, {T: 0.1, DirectionTarget: -0.3}}

	require.NoError(t, RenderSession(path, frames, ticks))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	assert.Error(t, RenderSession(path, nil, nil))
}
