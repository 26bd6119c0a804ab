package cereal

import (
	"encoding/binary"
	"encoding/json"
	m "math"

	"github.com/pkg/errors"

	"github.com/Koyaani/titaniumcar/chassis"
	"github.com/Koyaani/titaniumcar/lane"
)

// Frame is a preprocessed model input. Wire format, little endian:
// seq u32, rows u16, cols u16, rows*cols f32.
type Frame struct {
	Seq  uint32
	Rows int
	Cols int
	Data []float32
}

// Prediction is the model output for the frame with the same Seq.
// Wire format, little endian: seq u32, direction f32, speed f32.
type Prediction struct {
	Seq       uint32
	Direction float32
	Speed     float32
}

// ControlState is published for monitoring on every scheduler tick that
// passes the publish throttle.
type ControlState struct {
	Time      int64          `json:"time"`
	Profile   string         `json:"profile"`
	Mode      string         `json:"mode"`
	Speed     chassis.Output `json:"speed"`
	Direction chassis.Output `json:"direction"`
	Command   lane.Command   `json:"command"`
	FrameRate float64        `json:"frame_rate"`
}

const (
	frameHeaderSize = 8
	predictionSize  = 12
)

func EncodeFrame(f Frame) ([]byte, error) {
	if f.Rows*f.Cols != len(f.Data) {
		return nil, errors.Errorf("frame is %dx%d but holds %d values", f.Rows, f.Cols, len(f.Data))
	}
	if f.Rows > m.MaxUint16 || f.Cols > m.MaxUint16 {
		return nil, errors.Errorf("frame %dx%d too large", f.Rows, f.Cols)
	}
	b := make([]byte, frameHeaderSize+4*len(f.Data))
	binary.LittleEndian.PutUint32(b[0:], f.Seq)
	binary.LittleEndian.PutUint16(b[4:], uint16(f.Rows))
	binary.LittleEndian.PutUint16(b[6:], uint16(f.Cols))
	for i, v := range f.Data {
		binary.LittleEndian.PutUint32(b[frameHeaderSize+4*i:], m.Float32bits(v))
	}
	return b, nil
}

func DecodeFrame(b []byte) (f Frame, err error) {
	if len(b) < frameHeaderSize {
		return f, errors.Errorf("frame message too short: %d bytes", len(b))
	}
	f.Seq = binary.LittleEndian.Uint32(b[0:])
	f.Rows = int(binary.LittleEndian.Uint16(b[4:]))
	f.Cols = int(binary.LittleEndian.Uint16(b[6:]))
	if len(b) != frameHeaderSize+4*f.Rows*f.Cols {
		return f, errors.Errorf("frame message is %d bytes, expected %d", len(b), frameHeaderSize+4*f.Rows*f.Cols)
	}
	f.Data = make([]float32, f.Rows*f.Cols)
	for i := range f.Data {
		f.Data[i] = m.Float32frombits(binary.LittleEndian.Uint32(b[frameHeaderSize+4*i:]))
	}
	return f, nil
}

func EncodePrediction(p Prediction) ([]byte, error) {
	b := make([]byte, predictionSize)
	binary.LittleEndian.PutUint32(b[0:], p.Seq)
	binary.LittleEndian.PutUint32(b[4:], m.Float32bits(p.Direction))
	binary.LittleEndian.PutUint32(b[8:], m.Float32bits(p.Speed))
	return b, nil
}

func DecodePrediction(b []byte) (p Prediction, err error) {
	if len(b) != predictionSize {
		return p, errors.Errorf("prediction message is %d bytes, expected %d", len(b), predictionSize)
	}
	p.Seq = binary.LittleEndian.Uint32(b[0:])
	p.Direction = m.Float32frombits(binary.LittleEndian.Uint32(b[4:]))
	p.Speed = m.Float32frombits(binary.LittleEndian.Uint32(b[8:]))
	if m.IsNaN(float64(p.Direction)) || m.IsNaN(float64(p.Speed)) {
		return p, errors.New("prediction holds NaN")
	}
	return p, nil
}

func EncodeControlState(s ControlState) ([]byte, error) {
	return json.Marshal(s)
}

func DecodeControlState(b []byte) (s ControlState, err error) {
	err = json.Unmarshal(b, &s)
	return s, err
}
