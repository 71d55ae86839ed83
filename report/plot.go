// Package report renders evaluation results as figures, tables and terminal histograms.
package report

import (
	"fmt"
	"image/color"
	"path/filepath"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/isae-vo/trajeval/evaluation"
	"github.com/isae-vo/trajeval/logging"
	"github.com/isae-vo/trajeval/trajectory"
)

const (
	trajectoryFigureSize = 10 * vg.Inch
	scaleFigureWidth     = 8 * vg.Inch
	scaleFigureHeight    = 5 * vg.Inch
)

// Plotter writes one trajectory figure and one scale figure per evaluated sequence into Dir.
type Plotter struct {
	Dir    string
	Logger logging.Logger
}

// TrajectoryFile returns the path of the trajectory figure of seq.
func (p *Plotter) TrajectoryFile(seq string) string {
	return filepath.Join(p.Dir, fmt.Sprintf("sequence_%s.pdf", seq))
}

// ScaleFile returns the path of the scale figure of seq.
func (p *Plotter) ScaleFile(seq string) string {
	return filepath.Join(p.Dir, fmt.Sprintf("scale_%s.png", seq))
}

// Report draws both figures of res.
func (p *Plotter) Report(res *evaluation.Result) error {
	if err := evaluation.EnsureDir(p.Dir); err != nil {
		return err
	}

	traj, err := TrajectoryPlot(res.Sequence, res.GroundTruth, res.Prediction)
	if err != nil {
		return err
	}
	if err := traj.Save(trajectoryFigureSize, trajectoryFigureSize, p.TrajectoryFile(res.Sequence)); err != nil {
		return errors.Wrap(err, "cannot save trajectory figure")
	}

	scale, err := ScalePlot(res.Sequence, res.ScaleRatios)
	if err != nil {
		return err
	}
	if err := scale.Save(scaleFigureWidth, scaleFigureHeight, p.ScaleFile(res.Sequence)); err != nil {
		return errors.Wrap(err, "cannot save scale figure")
	}

	if p.Logger != nil {
		p.Logger.Debugw("figures written", "seq", res.Sequence, "dir", p.Dir)
	}
	return nil
}

// TrajectoryPlot draws the top-down (x, y) paths of the ground truth and the prediction.
func TrajectoryPlot(seq string, gt, pred trajectory.Trajectory) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = seq
	p.X.Label.Text = "x (m)"
	p.Y.Label.Text = "y (m)"
	p.Legend.Top = true

	if err := plotutil.AddLines(p, "Ground Truth", topDown(gt), "Prediction", topDown(pred)); err != nil {
		return nil, errors.Wrap(err, "cannot draw trajectories")
	}
	return p, nil
}

// ScalePlot draws the scale ratio of every keyframe pair.
func ScalePlot(seq string, ratios []float64) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = seq
	p.X.Label.Text = "Keyframes"
	p.Y.Label.Text = "Scale ratio"
	p.Add(plotter.NewGrid())

	if len(ratios) > 0 {
		pts := make(plotter.XYs, len(ratios))
		for i, r := range ratios {
			pts[i] = plotter.XY{X: float64(i), Y: r}
		}
		scatter, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, errors.Wrap(err, "cannot draw scale ratios")
		}
		scatter.GlyphStyle.Shape = draw.CrossGlyph{}
		scatter.GlyphStyle.Color = color.RGBA{R: 255, A: 255}
		p.Add(scatter)
	}

	// fixed range, ratios above 2 fall off the figure
	p.Y.Min, p.Y.Max = 0, 2
	return p, nil
}

func topDown(t trajectory.Trajectory) plotter.XYs {
	pts := make(plotter.XYs, t.Len())
	for i, pos := range t.Positions() {
		pts[i] = plotter.XY{X: pos.X, Y: pos.Y}
	}
	return pts
}
