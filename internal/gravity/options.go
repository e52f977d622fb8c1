package gravity

import (
	"github.com/MCS-OSU/mcs-eval3/internal/config"
	"github.com/MCS-OSU/mcs-eval3/internal/geometry"
	"github.com/MCS-OSU/mcs-eval3/internal/observation"
	"github.com/MCS-OSU/mcs-eval3/internal/oracle"
)

// DefaultLevel is the task difficulty tag handed to the oracle.
const DefaultLevel = "level2"

// Options tunes one detector.
type Options struct {
	FaceTolerance       float64
	CentroidTolerance   float64
	SupportRange        SupportRangeMode
	Selector            observation.Selector
	Level               string
	DivergenceThreshold float64
}

// DefaultOptions returns the detector defaults.
func DefaultOptions() Options {
	return Options{
		FaceTolerance:       geometry.DefaultVerticalTolerance,
		CentroidTolerance:   geometry.DefaultCentroidTolerance,
		SupportRange:        SupportRangeCorrected,
		Selector:            observation.DefaultSelector(),
		Level:               DefaultLevel,
		DivergenceThreshold: oracle.DefaultDivergenceThreshold,
	}
}

// OptionsFromParams maps resolved configuration onto detector options.
func OptionsFromParams(p config.Params) Options {
	o := Options{
		FaceTolerance:     p.FaceTolerance,
		CentroidTolerance: p.CentroidTolerance,
		SupportRange:      SupportRangeCorrected,
		Selector: observation.Selector{
			IDMinLength: p.IDMinLength,
			PoleMarker:  p.PoleMarker,
		},
		Level:               p.Level,
		DivergenceThreshold: p.DivergenceThreshold,
	}
	if p.LegacySupportRange {
		o.SupportRange = SupportRangeLegacy
	}
	return o
}
