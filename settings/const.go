package settings

import (
	"time"
)

const (
	FRAME_WIDTH  = 456
	FRAME_HEIGHT = 228

	WINDOW_SIZE      = 12
	ACTUATION_PERIOD = 10 * time.Millisecond
	PWM_FREQUENCY    = 60 // Hz

	MODEL_INPUT_HEIGHT = 69
	MODEL_INPUT_WIDTH  = 223

	CONTROL_PUBLISH_PERIOD = 50 * time.Millisecond
	DEFAULT_SEGMENT_SIZE   = 2 * 1024 * 1024

	FRAME_QUEUE   = "titaniumFrame"
	MODEL_QUEUE   = "titaniumModel"
	CONTROL_QUEUE = "titaniumControl"
)
