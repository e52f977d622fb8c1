package oracle

import (
	"context"
	"errors"

	"github.com/MCS-OSU/mcs-eval3/internal/observation"
)

// ErrUnavailable is returned (wrapped) whenever the oracle could not produce
// a replay: transport failure, timeout, or a response without the target.
var ErrUnavailable = errors.New("stability oracle unavailable")

// Request is the input of one replay.
type Request struct {
	Records   []observation.StepRecord `json:"records"`
	TargetID  string                   `json:"target_id"`
	SupportID string                   `json:"support_id"`
	Level     string                   `json:"level"`
}

// SimulatedObject holds one object's simulated positions in the oracle
// frame, parallel to the replayed records.
type SimulatedObject struct {
	Pos [][3]float64 `json:"pos"`
}

// Final returns the last simulated position.
func (o SimulatedObject) Final() ([3]float64, bool) {
	if len(o.Pos) == 0 {
		return [3]float64{}, false
	}
	return o.Pos[len(o.Pos)-1], true
}

// Response maps object ids to their simulated trajectories.
type Response struct {
	Objects map[string]SimulatedObject `json:"objects"`
}

// StabilityOracle replays a trajectory in a rigid-body simulator.
// Implementations must be safe to call from one goroutine at a time; callers
// sharing an oracle across episodes wrap it with Serialize.
type StabilityOracle interface {
	Replay(ctx context.Context, req Request) (Response, error)
}

// Func adapts a plain function to StabilityOracle.
type Func func(ctx context.Context, req Request) (Response, error)

// Replay calls f.
func (f Func) Replay(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}
