package vision

import (
	"image"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/Koyaani/titaniumcar/settings"
)

// Preprocessor turns a frame into the single channel float tensor the
// steering model was trained on: edges inside the region of interest,
// halved, cropped and min-max normalized to [0, 1].
type Preprocessor struct {
	s      settings.ModelSettings
	mask   gocv.Mat
	gray   gocv.Mat
	blur   gocv.Mat
	edges  gocv.Mat
	masked gocv.Mat
	small  gocv.Mat
}

func NewPreprocessor(s settings.ModelSettings, width, height int) *Preprocessor {
	return &Preprocessor{
		s:      s,
		mask:   roiMask(s.RegionOfInterest, width, height),
		gray:   gocv.NewMat(),
		blur:   gocv.NewMat(),
		edges:  gocv.NewMat(),
		masked: gocv.NewMat(),
		small:  gocv.NewMat(),
	}
}

// Shape is the (rows, cols) of the tensor produced for the configured frame
// size.
func (p *Preprocessor) Shape() (rows, cols int) {
	rows = p.mask.Rows()/2 - p.s.CropTop
	cols = p.mask.Cols()/2 - p.s.CropRight
	return rows, cols
}

func (p *Preprocessor) Tensor(frame gocv.Mat) ([]float32, error) {
	if frame.Empty() {
		return nil, errors.New("empty frame")
	}
	if frame.Rows() != p.mask.Rows() || frame.Cols() != p.mask.Cols() {
		return nil, errors.Errorf("frame is %dx%d, expected %dx%d", frame.Cols(), frame.Rows(), p.mask.Cols(), p.mask.Rows())
	}

	if frame.Channels() == 1 {
		frame.CopyTo(&p.gray)
	} else {
		gocv.CvtColor(frame, &p.gray, gocv.ColorBGRToGray)
	}
	edges(p.gray, &p.blur, &p.edges, p.s.BlurSize, 20, 100)
	gocv.BitwiseAnd(p.edges, p.mask, &p.masked)
	gocv.Resize(p.masked, &p.small, image.Point{}, 0.5, 0.5, gocv.InterpolationArea)

	rows, cols := p.Shape()
	if rows <= 0 || cols <= 0 {
		return nil, errors.Errorf("crop leaves an empty tensor (%dx%d)", cols, rows)
	}
	region := p.small.Region(image.Rect(0, p.s.CropTop, cols, p.s.CropTop+rows))
	defer region.Close()

	cropped := gocv.NewMat()
	defer cropped.Close()
	region.ConvertTo(&cropped, gocv.MatTypeCV32F)

	normalized := gocv.NewMat()
	defer normalized.Close()
	gocv.Normalize(cropped, &normalized, 0, 1, gocv.NormMinMax)

	data, err := normalized.DataPtrFloat32()
	if err != nil {
		return nil, errors.Wrap(err, "could not read tensor data")
	}
	return append([]float32(nil), data...), nil
}

func (p *Preprocessor) Close() error {
	for _, mat := range []*gocv.Mat{&p.mask, &p.gray, &p.blur, &p.edges, &p.masked, &p.small} {
		if err := mat.Close(); err != nil {
			return err
		}
	}
	return nil
}
