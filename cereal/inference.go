package cereal

import (
	"github.com/pkg/errors"

	"github.com/Koyaani/titaniumcar/settings"
)

// InferenceClient talks to the steering model process over two queues. It
// never blocks: Predict publishes the tensor and returns the newest
// prediction received so far, which may belong to an earlier frame.
type InferenceClient struct {
	frames      Publisher[Frame]
	predictions Subscriber[Prediction]
	seq         uint32
	last        Prediction
	received    bool
}

func OpenInferenceClient() (*InferenceClient, error) {
	frames, err := NewPublisher(settings.FRAME_QUEUE, EncodeFrame)
	if err != nil {
		return nil, err
	}
	predictions, err := NewSubscriber(settings.MODEL_QUEUE, DecodePrediction, true)
	if err != nil {
		frames.Close()
		return nil, err
	}
	return &InferenceClient{frames: frames, predictions: predictions}, nil
}

func (c *InferenceClient) Predict(tensor []float32, rows, cols int) (direction, speed float64, ok bool, err error) {
	c.seq++
	err = c.frames.Send(Frame{Seq: c.seq, Rows: rows, Cols: cols, Data: tensor})
	if err != nil {
		return 0, 0, false, errors.Wrap(err, "could not publish frame")
	}
	for {
		p, ok := c.predictions.Read()
		if !ok {
			break
		}
		c.last = p
		c.received = true
	}
	if !c.received {
		return 0, 0, false, nil
	}
	return float64(c.last.Direction), float64(c.last.Speed), true, nil
}

func (c *InferenceClient) Close() error {
	err := c.frames.Close()
	err2 := c.predictions.Close()
	if err != nil {
		return err
	}
	return err2
}
