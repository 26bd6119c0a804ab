package cereal

import (
	"encoding/binary"
	m "math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Koyaani/titaniumcar/chassis"
)

// loopback wires a publisher straight into a subscriber's queue.
func loopback[T any](encode Encoder[T], decode Decoder[T]) (*Publisher[T], *Subscriber[T]) {
	var queue [][]byte
	pub := &Publisher[T]{
		send:   func(b []byte) { queue = append(queue, b) },
		encode: encode,
	}
	sub := &Subscriber[T]{
		read: func() []byte {
			if len(queue) == 0 {
				return nil
			}
			b := queue[0]
			queue = queue[1:]
			return b
		},
		decode: decode,
	}
	return pub, sub
}

func TestFrameWireFormat(t *testing.T) {
	b, err := EncodeFrame(Frame{Seq: 7, Rows: 1, Cols: 2, Data: []float32{0.5, 1}})
	require.NoError(t, err)

	require.Len(t, b, 16)
	assert.Equal(t, uint32(7), binary.LittleEndian.Uint32(b[0:]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(b[4:]))
	assert.Equal(t, uint16(2), binary.LittleEndian.Uint16(b[6:]))
	assert.Equal(t, m.Float32bits(0.5), binary.LittleEndian.Uint32(b[8:]))
	assert.Equal(t, m.Float32bits(1), binary.LittleEndian.Uint32(b[12:]))
}

func TestFrameErrors(t *testing.T) {
	_, err := EncodeFrame(Frame{Rows: 2, Cols: 2, Data: []float32{1}})
	assert.Error(t, err)

	_, err = DecodeFrame([]byte{1, 2, 3})
	assert.Error(t, err)

	b, err := EncodeFrame(Frame{Rows: 69, Cols: 223, Data: make([]float32, 69*223)})
	require.NoError(t, err)
	_, err = DecodeFrame(b[:len(b)-4])
	assert.Error(t, err)
}

func TestPredictionRejectsNaN(t *testing.T) {
	b, err := EncodePrediction(Prediction{Direction: float32(m.NaN())})
	require.NoError(t, err)

	_, err = DecodePrediction(b)
	assert.Error(t, err)
	_, err = DecodePrediction(b[:8])
	assert.Error(t, err)
}

func TestPublishSubscribe(t *testing.T) {
	pub, sub := loopback(EncodeControlState, DecodeControlState)

	_, ok := sub.Read()
	assert.False(t, ok)

	state := ControlState{
		Time:    42,
		Profile: "car",
		Speed:   chassis.Output{Channel: "speed", Pin: 5, Pulse: 410, State: chassis.State{Target: 0.5, Current: 0.25}},
	}
	require.NoError(t, pub.Send(state))

	got, ok := sub.Read()
	require.True(t, ok)
	if diff := cmp.Diff(state, got); diff != "" {
		t.Errorf("control state mismatch (-want +got):\n%s", diff)
	}
}

func TestSubscriberDropsGarbage(t *testing.T) {
	pub, sub := loopback(func(Prediction) ([]byte, error) { return []byte("nope"), nil }, DecodePrediction)
	require.NoError(t, pub.Send(Prediction{}))

	_, ok := sub.Read()
	assert.False(t, ok)
}

func TestInferenceClientUsesNewestPrediction(t *testing.T) {
	frames, frameSub := loopback(EncodeFrame, DecodeFrame)
	modelPub, predictions := loopback(EncodePrediction, DecodePrediction)
	c := &InferenceClient{frames: *frames, predictions: *predictions}

	_, _, ok, err := c.Predict(make([]float32, 6), 2, 3)
	require.NoError(t, err)
	assert.False(t, ok, "no prediction has arrived yet")

	f, ok := frameSub.Read()
	require.True(t, ok)
	assert.Equal(t, uint32(1), f.Seq)
	assert.Equal(t, 2, f.Rows)

	require.NoError(t, modelPub.Send(Prediction{Seq: 1, Direction: -0.5, Speed: 0.25}))
	require.NoError(t, modelPub.Send(Prediction{Seq: 2, Direction: 0.75, Speed: 0.5}))

	direction, speed, ok, err := c.Predict(make([]float32, 6), 2, 3)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0.75, direction)
	assert.Equal(t, 0.5, speed)

	direction, _, ok, err = c.Predict(make([]float32, 6), 2, 3)
	require.NoError(t, err)
	assert.True(t, ok, "the last prediction is kept")
	assert.Equal(t, 0.75, direction)

	_, _, _, err = c.Predict(make([]float32, 5), 2, 3)
	assert.Error(t, err)
}
