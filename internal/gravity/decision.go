package gravity

import (
	"github.com/MCS-OSU/mcs-eval3/internal/geometry"
	"github.com/MCS-OSU/mcs-eval3/internal/oracle"
)

// Prediction choices reported to the environment.
const (
	ChoicePlausible   = "plausible"
	ChoiceImplausible = "implausible"
)

// PlausibleChoice maps a violation flag onto the reported choice.
func PlausibleChoice(violation bool) string {
	if violation {
		return ChoiceImplausible
	}
	return ChoicePlausible
}

// Diagnostic records a degenerate face met while deciding. The verdict still
// stands but was computed from a partial corner set.
type Diagnostic struct {
	Subject string                        `json:"subject"`
	Step    int                           `json:"step"`
	Face    *geometry.DegenerateFaceError `json:"face"`
}

// Verdict is the single terminal output of an episode.
type Verdict struct {
	Scene        string            `json:"scene,omitempty"`
	Implausible  bool              `json:"implausible"`
	Confidence   float64           `json:"confidence"`
	ViolationsXY []geometry.Planar `json:"violations_xy_list"`
	Heatmap      []byte            `json:"heatmap_img,omitempty"`

	DropStep        int  `json:"drop_step"`
	DropFrame       int  `json:"drop_frame"`
	PredictedStable bool `json:"predicted_stable"`
	ActualStable    bool `json:"actual_stable"`

	Inconclusive bool         `json:"inconclusive,omitempty"`
	Reason       string       `json:"reason,omitempty"`
	Degenerate   bool         `json:"degenerate,omitempty"`
	Diagnostics  []Diagnostic `json:"diagnostics,omitempty"`

	TargetID   string            `json:"target_id,omitempty"`
	SupportID  string            `json:"support_id,omitempty"`
	Stats      Stats             `json:"stats"`
	CrossCheck oracle.CrossCheck `json:"cross_check"`
}

// Choice returns the reported choice for the verdict.
func (v Verdict) Choice() string {
	return PlausibleChoice(v.Implausible)
}

// StepPrediction is the lightweight per-step record sent to the environment.
type StepPrediction struct {
	Scene        string            `json:"scene,omitempty"`
	Step         int               `json:"step"`
	Choice       string            `json:"choice"`
	Confidence   float64           `json:"confidence"`
	ViolationsXY []geometry.Planar `json:"violations_xy_list"`
	HeatmapImg   []byte            `json:"heatmap_img,omitempty"`
}

// Plausible returns the default per-step prediction: no violation has been
// established while the scene is still running.
func Plausible(scene string, step int) StepPrediction {
	return StepPrediction{
		Scene:        scene,
		Step:         step,
		Choice:       ChoicePlausible,
		Confidence:   1.0,
		ViolationsXY: []geometry.Planar{},
	}
}

func (e *Episode) decide() Verdict {
	v := Verdict{
		Confidence:   1.0,
		ViolationsXY: []geometry.Planar{},
		DropStep:     NoDrop,
		DropFrame:    NoDrop,
		TargetID:     e.targetID,
		SupportID:    e.supportID,
		Stats:        e.stats,
		CrossCheck:   oracle.Skipped("not run"),
	}

	drop, err := DetermineDropStep(e.SignalValues())
	if err != nil {
		return inconclusive(v, err)
	}
	v.DropStep = drop
	if drop != NoDrop {
		v.DropFrame = e.signal[drop].Step
	}
	if len(e.trajectory) == 0 {
		return inconclusive(v, ErrNoTrajectory)
	}
	if !e.hasSupport {
		return inconclusive(v, ErrNoSupport)
	}

	tol := e.opts.FaceTolerance
	atDrop := e.sampleAtDrop(drop)
	atEnd := e.trajectory[len(e.trajectory)-1]

	_, dropBottom, diag := geometry.ExtractBoundingFaces(atDrop.Cuboid, tol)
	v.note("target_at_drop", atDrop.Step, diag)
	_, endBottom, diag := geometry.ExtractBoundingFaces(atEnd.Cuboid, tol)
	v.note("target_at_end", atEnd.Step, diag)
	supportTop, _, diag := geometry.ExtractBoundingFaces(e.support, tol)
	v.note("support", -1, diag)

	v.PredictedStable = PredictStability(dropBottom, supportTop, e.opts.SupportRange)
	v.ActualStable = ActuallyRested(dropBottom, endBottom, e.opts.CentroidTolerance)
	v.Implausible = v.PredictedStable != v.ActualStable
	return v
}

func (v *Verdict) note(subject string, step int, diag *geometry.DegenerateFaceError) {
	if diag == nil {
		return
	}
	v.Degenerate = true
	v.Diagnostics = append(v.Diagnostics, Diagnostic{Subject: subject, Step: step, Face: diag})
}

func inconclusive(v Verdict, err error) Verdict {
	v.Implausible = false
	v.Confidence = 0
	v.Inconclusive = true
	v.Reason = err.Error()
	return v
}
