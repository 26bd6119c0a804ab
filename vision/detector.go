package vision

import (
	"image"
	"image/color"
	m "math"

	"gocv.io/x/gocv"

	tm "github.com/Koyaani/titaniumcar/math"
	"github.com/Koyaani/titaniumcar/settings"
)

// Detector finds straight segments of the track borders inside a fixed
// region of interest. It reuses its scratch matrices between frames and
// must be closed.
type Detector struct {
	s      settings.DetectorSettings
	mask   gocv.Mat
	gray   gocv.Mat
	blur   gocv.Mat
	edges  gocv.Mat
	masked gocv.Mat
	lines  gocv.Mat
}

func NewDetector(s settings.DetectorSettings, width, height int) *Detector {
	return &Detector{
		s:      s,
		mask:   roiMask(s.RegionOfInterest, width, height),
		gray:   gocv.NewMat(),
		blur:   gocv.NewMat(),
		edges:  gocv.NewMat(),
		masked: gocv.NewMat(),
		lines:  gocv.NewMat(),
	}
}

func roiMask(poly []settings.Point, width, height int) gocv.Mat {
	mask := gocv.Zeros(height, width, gocv.MatTypeCV8U)
	pts := make([]image.Point, len(poly))
	for i, p := range poly {
		pts[i] = image.Pt(p.X, p.Y)
	}
	vec := gocv.NewPointsVectorFromPoints([][]image.Point{pts})
	defer vec.Close()
	gocv.FillPoly(&mask, vec, color.RGBA{255, 255, 255, 0})
	return mask
}

// Detect returns the segments found in a BGR frame. An empty frame or one
// whose size does not match the mask yields no segments.
func (d *Detector) Detect(frame gocv.Mat) []tm.Segment {
	if frame.Empty() || frame.Rows() != d.mask.Rows() || frame.Cols() != d.mask.Cols() {
		return nil
	}

	if frame.Channels() == 1 {
		frame.CopyTo(&d.gray)
	} else {
		gocv.CvtColor(frame, &d.gray, gocv.ColorBGRToGray)
	}
	edges(d.gray, &d.blur, &d.edges, d.s.BlurSize, d.s.CannyLow, d.s.CannyHigh)
	gocv.BitwiseAnd(d.edges, d.mask, &d.masked)
	gocv.HoughLinesPWithParams(d.masked, &d.lines, d.s.HoughRho, float32(m.Pi/180), d.s.HoughThreshold,
		float32(d.s.HoughMinLength), float32(d.s.HoughMaxGap))

	segments := make([]tm.Segment, 0, d.lines.Rows())
	for i := range d.lines.Rows() {
		v := d.lines.GetVeciAt(i, 0)
		if len(v) < 4 {
			continue
		}
		segments = append(segments, tm.NewSegment(int(v[0]), int(v[1]), int(v[2]), int(v[3])))
	}
	return segments
}

func edges(gray gocv.Mat, blur, out *gocv.Mat, blurSize int, low, high float32) {
	if blurSize%2 == 0 {
		blurSize++
	}
	gocv.GaussianBlur(gray, blur, image.Pt(blurSize, blurSize), 0, 0, gocv.BorderDefault)
	gocv.Canny(*blur, out, low, high)
}

func (d *Detector) Close() error {
	for _, mat := range []*gocv.Mat{&d.mask, &d.gray, &d.blur, &d.edges, &d.masked, &d.lines} {
		if err := mat.Close(); err != nil {
			return err
		}
	}
	return nil
}
