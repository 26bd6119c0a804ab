package vision

import (
	"image"
	"log/slog"
	"strconv"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// Camera wraps a gocv capture device. Source is either a device index or
// anything VideoCapture accepts (file, URL, gstreamer pipeline).
type Camera struct {
	capture *gocv.VideoCapture
	frame   gocv.Mat
	Width   int
	Height  int
}

func OpenCamera(source string, width, height, fps int) (*Camera, error) {
	var device any = source
	if id, err := strconv.Atoi(source); err == nil {
		device = id
	}
	capture, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open camera %s", source)
	}
	capture.Set(gocv.VideoCaptureFrameWidth, float64(width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(height))
	if fps > 0 {
		capture.Set(gocv.VideoCaptureFPS, float64(fps))
	}
	slog.Info("camera open", "source", source, "width", width, "height", height, "fps", fps)
	return &Camera{capture: capture, frame: gocv.NewMat(), Width: width, Height: height}, nil
}

// Read grabs the next frame, resized to the configured size when the device
// ignores the requested resolution. The returned Mat is owned by the camera
// and is only valid until the next Read.
func (c *Camera) Read() (gocv.Mat, bool) {
	if ok := c.capture.Read(&c.frame); !ok || c.frame.Empty() {
		return c.frame, false
	}
	if c.frame.Cols() != c.Width || c.frame.Rows() != c.Height {
		gocv.Resize(c.frame, &c.frame, image.Pt(c.Width, c.Height), 0, 0, gocv.InterpolationArea)
	}
	return c.frame, true
}

func (c *Camera) Close() error {
	c.frame.Close()
	return c.capture.Close()
}
