package telemetry

import (
	"image/color"
	"os"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

var (
	targetColor  = color.RGBA{R: 200, G: 60, B: 60, A: 255}
	currentColor = color.RGBA{R: 40, G: 90, B: 200, A: 255}
	frameColor   = color.RGBA{R: 40, G: 160, B: 80, A: 255}
	traceColor   = color.RGBA{R: 150, G: 150, B: 150, A: 255}
)

func line(pts plotter.XYs, c color.Color, dashed bool) (*plotter.Line, error) {
	l, err := plotter.NewLine(pts)
	if err != nil {
		return nil, errors.Wrap(err, "could not build plot line")
	}
	l.Color = c
	l.Width = vg.Points(1)
	if dashed {
		l.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	}
	return l, nil
}

func channelPlot(title string, ticks []TickRecord, frames []FrameRecord, target, current func(TickRecord) float64, frame func(FrameRecord) float64) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "t (s)"
	p.Y.Min, p.Y.Max = -1.1, 1.1
	p.Add(plotter.NewGrid())

	targetPts := make(plotter.XYs, 0, len(ticks))
	currentPts := make(plotter.XYs, 0, len(ticks))
	for _, t := range ticks {
		targetPts = append(targetPts, plotter.XY{X: t.T, Y: target(t)})
		currentPts = append(currentPts, plotter.XY{X: t.T, Y: current(t)})
	}
	framePts := make(plotter.XYs, 0, len(frames))
	for _, f := range frames {
		framePts = append(framePts, plotter.XY{X: f.T, Y: frame(f)})
	}

	for _, l := range []struct {
		name   string
		pts    plotter.XYs
		color  color.Color
		dashed bool
	}{
		{"target", targetPts, targetColor, true},
		{"current", currentPts, currentColor, false},
		{"frame", framePts, frameColor, false},
	} {
		if len(l.pts) == 0 {
			continue
		}
		pl, err := line(l.pts, l.color, l.dashed)
		if err != nil {
			return nil, err
		}
		p.Add(pl)
		p.Legend.Add(l.name, pl)
	}
	return p, nil
}

// RenderSession draws speed and direction of a recorded drive, one panel
// above the other, and saves it as a PNG.
func RenderSession(path string, frames []FrameRecord, ticks []TickRecord) error {
	if len(frames) == 0 && len(ticks) == 0 {
		return errors.New("nothing to plot")
	}

	speed, err := channelPlot("speed", ticks, frames,
		func(t TickRecord) float64 { return t.SpeedTarget },
		func(t TickRecord) float64 { return t.SpeedCurrent },
		func(f FrameRecord) float64 { return f.Speed })
	if err != nil {
		return err
	}
	if len(ticks) > 0 {
		tracePts := make(plotter.XYs, 0, len(ticks))
		for _, t := range ticks {
			tracePts = append(tracePts, plotter.XY{X: t.T, Y: t.Trace})
		}
		trace, err := line(tracePts, traceColor, true)
		if err != nil {
			return err
		}
		speed.Add(trace)
		speed.Legend.Add("trace", trace)
		speed.Y.Max = 1.3
	}

	direction, err := channelPlot("direction", ticks, frames,
		func(t TickRecord) float64 { return t.DirectionTarget },
		func(t TickRecord) float64 { return t.DirectionCurrent },
		func(f FrameRecord) float64 { return f.Direction })
	if err != nil {
		return err
	}

	img := vgimg.New(14*vg.Inch, 8*vg.Inch)
	dc := draw.New(img)
	tiles := draw.Tiles{Rows: 2, Cols: 1, PadX: vg.Millimeter, PadY: vg.Millimeter}
	canvases := plot.Align([][]*plot.Plot{{speed}, {direction}}, tiles, dc)
	speed.Draw(canvases[0][0])
	direction.Draw(canvases[1][0])

	return errors.Wrap(savePNG(path, img), "could not save plot")
}

func savePNG(path string, img *vgimg.Canvas) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
