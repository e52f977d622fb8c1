package report

import (
	"bytes"
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/MCS-OSU/mcs-eval3/internal/geometry"
	"github.com/MCS-OSU/mcs-eval3/internal/gravity"
)

var (
	supportColor = color.RGBA{R: 90, G: 90, B: 90, A: 255}
	pathColor    = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	dropColor    = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

// TrajectoryPlotter draws the target's bottom-face centroid path over the
// support footprint, seen from above.
type TrajectoryPlotter struct {
	Width  vg.Length
	Height vg.Length
}

// NewTrajectoryPlotter returns a plotter producing 6x6 inch images.
func NewTrajectoryPlotter() *TrajectoryPlotter {
	return &TrajectoryPlotter{Width: 6 * vg.Inch, Height: 6 * vg.Inch}
}

// PNG renders the episode as a PNG image.
func (tp *TrajectoryPlotter) PNG(scene string, traj []gravity.TrajectorySample, support geometry.Cuboid, v gravity.Verdict) ([]byte, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s: %s", scene, v.Choice())
	p.X.Label.Text = "X"
	p.Y.Label.Text = "Z"
	p.Add(plotter.NewGrid())

	top, _, _ := geometry.ExtractBoundingFaces(support, geometry.DefaultVerticalTolerance)
	if len(top.Corners) > 0 {
		min, max := top.Bounds()
		outline, err := plotter.NewLine(plotter.XYs{
			{X: min.X, Y: min.Z}, {X: max.X, Y: min.Z},
			{X: max.X, Y: max.Z}, {X: min.X, Y: max.Z},
			{X: min.X, Y: min.Z},
		})
		if err != nil {
			return nil, fmt.Errorf("support outline: %w", err)
		}
		outline.Color = supportColor
		outline.Width = vg.Points(2)
		p.Add(outline)
		p.Legend.Add("support", outline)
	}

	if len(traj) > 0 {
		pts := make(plotter.XYs, 0, len(traj))
		var dropPt plotter.XYs
		for _, s := range traj {
			_, bottom, _ := geometry.ExtractBoundingFaces(s.Cuboid, geometry.DefaultVerticalTolerance)
			xy := plotter.XY{X: bottom.Centroid.X, Y: bottom.Centroid.Z}
			pts = append(pts, xy)
			if v.DropFrame >= 0 && s.Step <= v.DropFrame {
				dropPt = plotter.XYs{xy}
			}
		}

		path, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("trajectory line: %w", err)
		}
		path.Color = pathColor
		path.Width = vg.Points(1)
		p.Add(path)
		p.Legend.Add("target", path)

		if len(dropPt) > 0 {
			marker, err := plotter.NewScatter(dropPt)
			if err != nil {
				return nil, fmt.Errorf("drop marker: %w", err)
			}
			marker.GlyphStyle.Color = dropColor
			marker.GlyphStyle.Shape = draw.CrossGlyph{}
			marker.GlyphStyle.Radius = vg.Points(5)
			p.Add(marker)
			p.Legend.Add("drop", marker)
		}
	}

	w, err := p.WriterTo(tp.Width, tp.Height, "png")
	if err != nil {
		return nil, fmt.Errorf("png writer: %w", err)
	}
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("render png: %w", err)
	}
	return buf.Bytes(), nil
}
