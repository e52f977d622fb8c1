package oracle

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/MCS-OSU/mcs-eval3/internal/geometry"
)

// DefaultDivergenceThreshold is the distance, in scene units, at which the
// simulated and observed final positions are considered to disagree.
const DefaultDivergenceThreshold = 0.25

// Status is the outcome of a cross-check.
type Status int

const (
	// StatusSkipped means no replay was attempted: no oracle was configured
	// or the drop was never confirmed.
	StatusSkipped Status = iota
	// StatusUnavailable means the oracle failed or returned nothing usable.
	StatusUnavailable
	// StatusConsistent means the simulated and observed positions agree.
	StatusConsistent
	// StatusDivergent means the simulation suggests a violation.
	StatusDivergent
)

var statusNames = [...]string{"skipped", "unavailable", "consistent", "divergent"}

func (s Status) String() string {
	if int(s) < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("Status(%d)", int(s))
	}
	return statusNames[s]
}

// MarshalText renders the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a status name.
func (s *Status) UnmarshalText(text []byte) error {
	for i, name := range statusNames {
		if name == string(text) {
			*s = Status(i)
			return nil
		}
	}
	return fmt.Errorf("unknown cross-check status %q", text)
}

// CrossCheck is the advisory comparison attached to a verdict.
type CrossCheck struct {
	Status    Status     `json:"status"`
	Distance  float64    `json:"distance,omitempty"`
	Threshold float64    `json:"threshold,omitempty"`
	Simulated [3]float64 `json:"simulated"`
	Observed  [3]float64 `json:"observed"`
	Reason    string     `json:"reason,omitempty"`
}

// Divergent reports whether the simulation disagreed with the observation.
func (c CrossCheck) Divergent() bool { return c.Status == StatusDivergent }

// Skipped returns a cross-check that was never attempted.
func Skipped(reason string) CrossCheck {
	return CrossCheck{Status: StatusSkipped, Reason: reason}
}

// Unavailable returns a cross-check for a failed replay.
func Unavailable(err error) CrossCheck {
	reason := ErrUnavailable.Error()
	if err != nil {
		reason = err.Error()
	}
	return CrossCheck{Status: StatusUnavailable, Reason: reason}
}

// ToOracleFrame permutes a Y-up scene point into the oracle's Z-up frame:
// observed (x, y, z) becomes (x, z, y).
func ToOracleFrame(p geometry.Point) [3]float64 {
	return [3]float64{p.X, p.Z, p.Y}
}

// Compare checks the oracle's final simulated position for targetID against
// the observed final position. Distances at or above threshold are divergent.
func Compare(resp Response, targetID string, observed geometry.Point, threshold float64) CrossCheck {
	obj, ok := resp.Objects[targetID]
	if !ok {
		return Unavailable(fmt.Errorf("%w: no simulated trajectory for %q", ErrUnavailable, targetID))
	}
	sim, ok := obj.Final()
	if !ok {
		return Unavailable(fmt.Errorf("%w: empty simulated trajectory for %q", ErrUnavailable, targetID))
	}

	obs := ToOracleFrame(observed)
	d := floats.Distance(sim[:], obs[:], 2)

	cc := CrossCheck{
		Status:    StatusConsistent,
		Distance:  d,
		Threshold: threshold,
		Simulated: sim,
		Observed:  obs,
	}
	if d >= threshold {
		cc.Status = StatusDivergent
	}
	return cc
}
