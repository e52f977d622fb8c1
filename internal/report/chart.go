package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/MCS-OSU/mcs-eval3/internal/geometry"
	"github.com/MCS-OSU/mcs-eval3/internal/gravity"
)

// Episode is what the run report needs from one scene.
type Episode struct {
	Scene      string
	Trajectory []gravity.TrajectorySample
	Support    geometry.Cuboid
	Verdict    gravity.Verdict
}

// HeightChart plots the target's lowest point against the step number.
func HeightChart(e Episode) *charts.Line {
	steps := make([]int, 0, len(e.Trajectory))
	heights := make([]opts.LineData, 0, len(e.Trajectory))
	for _, s := range e.Trajectory {
		minY, _ := s.Cuboid.VerticalExtent()
		steps = append(steps, s.Step)
		heights = append(heights, opts.LineData{Value: minY})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "360px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    e.Scene,
			Subtitle: fmt.Sprintf("%s  drop_step=%d  cross_check=%s  support %s",
				e.Verdict.Choice(), e.Verdict.DropStep, e.Verdict.CrossCheck.Status, footprint(e.Support)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "step", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "bottom y", NameLocation: "middle", NameGap: 30}),
	)
	line.SetXAxis(steps).AddSeries("target", heights)
	return line
}

// SummaryChart counts the choices of a run.
func SummaryChart(runID string, episodes []Episode) *charts.Bar {
	var plausible, implausible, inconclusive, divergent int
	for _, e := range episodes {
		switch {
		case e.Verdict.Inconclusive:
			inconclusive++
		case e.Verdict.Implausible:
			implausible++
		default:
			plausible++
		}
		if e.Verdict.CrossCheck.Divergent() {
			divergent++
		}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "360px"}),
		charts.WithTitleOpts(opts.Title{Title: "Verdicts", Subtitle: fmt.Sprintf("run=%s scenes=%d", runID, len(episodes))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis([]string{gravity.ChoicePlausible, gravity.ChoiceImplausible, "inconclusive", "sim divergent"}).
		AddSeries("scenes", []opts.BarData{
			{Value: plausible}, {Value: implausible}, {Value: inconclusive}, {Value: divergent},
		}, charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}))
	return bar
}

// WriteRunReport renders the summary and one height chart per episode.
func WriteRunReport(w io.Writer, runID string, episodes []Episode) error {
	page := components.NewPage()
	page.PageTitle = "VoE run " + runID
	page.AddCharts(SummaryChart(runID, episodes))
	for _, e := range episodes {
		page.AddCharts(HeightChart(e))
	}
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render run report: %w", err)
	}
	return nil
}

func footprint(support geometry.Cuboid) string {
	top, _, _ := geometry.ExtractBoundingFaces(support, geometry.DefaultVerticalTolerance)
	min, max := top.Bounds()
	return fmt.Sprintf("x[%.2f,%.2f] z[%.2f,%.2f]", min.X, max.X, min.Z, max.Z)
}
