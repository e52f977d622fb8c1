package gravity

import (
	"errors"
	"fmt"

	"github.com/MCS-OSU/mcs-eval3/internal/geometry"
	"github.com/MCS-OSU/mcs-eval3/internal/monitoring"
	"github.com/MCS-OSU/mcs-eval3/internal/observation"
)

var (
	// ErrEpisodeDone is returned by Decide once the verdict has been issued.
	ErrEpisodeDone = errors.New("episode already decided")
	// ErrNotObserving is returned by Observe after the episode left the
	// observing phase.
	ErrNotObserving = errors.New("episode is no longer observing")
	// ErrNoTrajectory marks a verdict for a scene where the target was never
	// seen.
	ErrNoTrajectory = errors.New("target never observed")
	// ErrNoSupport marks a verdict for a scene where the support was never
	// seen.
	ErrNoSupport = errors.New("support never observed")
)

// Phase is the state of an Episode.
type Phase int

const (
	PhaseObserving Phase = iota
	PhaseDeciding
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseObserving:
		return "observing"
	case PhaseDeciding:
		return "deciding"
	case PhaseDone:
		return "done"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// TrajectorySample is the target's cuboid at one step.
type TrajectorySample struct {
	Step     int
	Cuboid   geometry.Cuboid
	Position *geometry.Point
}

// SignalSample is the release signal read from the pole at one step.
type SignalSample struct {
	Step  int
	Value string
}

// Stats counts the steps whose contribution to a series was skipped because
// the object was not in view.
type Stats struct {
	Steps          int `json:"steps"`
	MissingTarget  int `json:"missing_target"`
	MissingSupport int `json:"missing_support"`
	MissingPole    int `json:"missing_pole"`
}

// Episode accumulates the observations of one scene. It is owned by a single
// goroutine and must not be shared between scenes.
type Episode struct {
	opts  Options
	phase Phase

	trajectory []TrajectorySample
	signal     []SignalSample
	support    geometry.Cuboid
	hasSupport bool

	targetID  string
	supportID string
	records   []observation.StepRecord
	stats     Stats
	verdict   Verdict
}

// NewEpisode returns an episode in the observing phase.
func NewEpisode(opts Options) *Episode {
	return &Episode{opts: opts}
}

// Phase returns the current phase.
func (e *Episode) Phase() Phase { return e.phase }

// Observe appends the contribution of one step record. Objects that are not
// in view, or whose geometry is malformed, are skipped for this step only.
func (e *Episode) Observe(rec *observation.StepRecord) error {
	if e.phase != PhaseObserving {
		return ErrNotObserving
	}
	if rec == nil {
		return nil
	}
	e.stats.Steps++
	e.records = append(e.records, *rec)

	sel := e.opts.Selector
	targetID := sel.TargetID(rec)
	supportID, poleID := sel.StructuralIDs(rec)

	var missing []string
	if obj, ok := rec.Target(targetID); ok {
		if c, ok := obj.Cuboid(); ok {
			e.trajectory = append(e.trajectory, TrajectorySample{Step: rec.Step, Cuboid: c, Position: obj.Position})
			e.targetID = targetID
		} else {
			missing = append(missing, "target")
			e.stats.MissingTarget++
		}
	} else {
		missing = append(missing, "target")
		e.stats.MissingTarget++
	}

	if s, ok := rec.Structural(supportID); ok {
		if c, ok := s.Cuboid(); ok {
			e.support = c
			e.hasSupport = true
			e.supportID = supportID
		} else {
			missing = append(missing, "support")
			e.stats.MissingSupport++
		}
	} else {
		missing = append(missing, "support")
		e.stats.MissingSupport++
	}

	if p, ok := rec.Structural(poleID); ok {
		if v, ok := p.Signal(); ok {
			e.signal = append(e.signal, SignalSample{Step: rec.Step, Value: v})
		} else {
			missing = append(missing, "pole")
			e.stats.MissingPole++
		}
	} else {
		missing = append(missing, "pole")
		e.stats.MissingPole++
	}

	if len(missing) > 0 {
		monitoring.WithFields(monitoring.Fields{"step": rec.Step, "missing": missing}).
			Debug("observation skipped")
	}
	return nil
}

// DropConfirmed reports whether the drop detected in the signal history sits
// exactly one sample before the newest one, i.e. the first step at which the
// release has been seen and the history has advanced past it.
func (e *Episode) DropConfirmed() bool {
	if len(e.signal) < 2 {
		return false
	}
	drop, err := DetermineDropStep(e.SignalValues())
	return err == nil && drop == len(e.signal)-2
}

// Trajectory returns a copy of the target trajectory.
func (e *Episode) Trajectory() []TrajectorySample {
	return append([]TrajectorySample(nil), e.trajectory...)
}

// Signal returns a copy of the release signal history.
func (e *Episode) Signal() []SignalSample {
	return append([]SignalSample(nil), e.signal...)
}

// SignalValues returns the release signal values in order.
func (e *Episode) SignalValues() []string {
	out := make([]string, len(e.signal))
	for i, s := range e.signal {
		out[i] = s.Value
	}
	return out
}

// Support returns the most recently observed support cuboid.
func (e *Episode) Support() (geometry.Cuboid, bool) {
	return e.support, e.hasSupport
}

// TargetID returns the id of the tracked target, "" if never seen.
func (e *Episode) TargetID() string { return e.targetID }

// SupportID returns the id of the support, "" if never seen.
func (e *Episode) SupportID() string { return e.supportID }

// Records returns the step records observed so far.
func (e *Episode) Records() []observation.StepRecord {
	return append([]observation.StepRecord(nil), e.records...)
}

// Stats returns the skipped-observation counters.
func (e *Episode) Stats() Stats { return e.stats }

// LastTargetPosition returns the target's most recent reported position.
func (e *Episode) LastTargetPosition() (geometry.Point, bool) {
	for i := len(e.trajectory) - 1; i >= 0; i-- {
		if p := e.trajectory[i].Position; p != nil {
			return *p, true
		}
	}
	return geometry.Point{}, false
}

// Decide ends observation and issues the episode's single verdict.
func (e *Episode) Decide() (Verdict, error) {
	if e.phase == PhaseDone {
		return Verdict{}, ErrEpisodeDone
	}
	e.phase = PhaseDeciding
	e.verdict = e.decide()
	e.phase = PhaseDone
	return e.verdict, nil
}

// sampleAtDrop maps a drop index in the signal history onto the target
// trajectory. NoDrop resolves to the last sample.
func (e *Episode) sampleAtDrop(drop int) TrajectorySample {
	if drop < 0 || drop >= len(e.signal) {
		return e.trajectory[len(e.trajectory)-1]
	}
	step := e.signal[drop].Step
	best := e.trajectory[0]
	for _, s := range e.trajectory {
		if s.Step > step {
			break
		}
		best = s
	}
	return best
}
