package gravity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/MCS-OSU/mcs-eval3/internal/geometry"
	"github.com/MCS-OSU/mcs-eval3/internal/monitoring"
	"github.com/MCS-OSU/mcs-eval3/internal/observation"
	"github.com/MCS-OSU/mcs-eval3/internal/oracle"
	"github.com/MCS-OSU/mcs-eval3/internal/timeutil"
)

const tracerName = "github.com/MCS-OSU/mcs-eval3/internal/gravity"

// PredictionSink receives the agent's output for the environment: one
// prediction per step and the verdict once at the end of the scene.
type PredictionSink interface {
	MakeStepPrediction(ctx context.Context, p StepPrediction) error
	EndScene(ctx context.Context, v Verdict) error
}

// HeatmapRenderer draws an image of the episode to attach to the verdict.
type HeatmapRenderer interface {
	RenderEpisode(scene string, trajectory []TrajectorySample, support geometry.Cuboid, v Verdict) ([]byte, error)
}

// SceneMeta identifies the scene being run.
type SceneMeta struct {
	Name  string
	Level string
}

// Agent runs scenes through the detector.
type Agent struct {
	opts     Options
	oracle   oracle.StabilityOracle
	sink     PredictionSink
	renderer HeatmapRenderer
	clock    timeutil.Clock
	tracer   trace.Tracer
}

// AgentOption configures an Agent.
type AgentOption func(*Agent)

// WithOracle enables the advisory cross-check.
func WithOracle(o oracle.StabilityOracle) AgentOption {
	return func(a *Agent) { a.oracle = o }
}

// WithSink sets the prediction consumer.
func WithSink(s PredictionSink) AgentOption {
	return func(a *Agent) { a.sink = s }
}

// WithHeatmap attaches a rendered image to every verdict.
func WithHeatmap(r HeatmapRenderer) AgentOption {
	return func(a *Agent) { a.renderer = r }
}

// WithClock replaces the wall clock used to time scenes.
func WithClock(c timeutil.Clock) AgentOption {
	return func(a *Agent) { a.clock = c }
}

// NewAgent returns an agent using opts for every scene.
func NewAgent(opts Options, options ...AgentOption) *Agent {
	a := &Agent{
		opts:   opts,
		sink:   discardSink{},
		clock:  timeutil.RealClock{},
		tracer: otel.Tracer(tracerName),
	}
	for _, o := range options {
		o(a)
	}
	return a
}

// RunScene consumes src until it reports the end of the episode, emitting a
// plausible prediction after every step, then decides and emits the verdict.
// The returned error covers the step source and the sink; oracle failures
// only affect the verdict's cross-check.
func (a *Agent) RunScene(ctx context.Context, meta SceneMeta, src observation.StepSource) (v Verdict, err error) {
	level := meta.Level
	if level == "" {
		level = a.opts.Level
	}
	ctx, span := a.tracer.Start(ctx, "gravity.RunScene",
		trace.WithAttributes(
			attribute.String("scene", meta.Name),
			attribute.String("level", level),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	start := a.clock.Now()
	ep := NewEpisode(a.opts)
	var (
		replayed  bool
		replay    oracle.Response
		replayErr error
	)

	for {
		rec, ok, err := src.Next(ctx)
		if err != nil {
			return Verdict{}, fmt.Errorf("scene %s: next step: %w", meta.Name, err)
		}
		if !ok {
			break
		}
		if err := ep.Observe(rec); err != nil {
			return Verdict{}, fmt.Errorf("scene %s: %w", meta.Name, err)
		}

		if a.oracle != nil && !replayed && ep.DropConfirmed() {
			replayed = true
			replay, replayErr = a.replay(ctx, ep, level)
		}

		if err := a.sink.MakeStepPrediction(ctx, Plausible(meta.Name, rec.Step)); err != nil {
			return Verdict{}, fmt.Errorf("scene %s: step %d prediction: %w", meta.Name, rec.Step, err)
		}
	}

	v, err = ep.Decide()
	if err != nil {
		return Verdict{}, err
	}
	v.Scene = meta.Name
	v.CrossCheck = a.crossCheck(ep, replayed, replay, replayErr)

	if a.renderer != nil {
		support, _ := ep.Support()
		img, err := a.renderer.RenderEpisode(meta.Name, ep.Trajectory(), support, v)
		if err != nil {
			monitoring.Logf("scene %s: heatmap render failed: %v", meta.Name, err)
		} else {
			v.Heatmap = img
		}
	}

	a.logVerdict(meta.Name, v, a.clock.Since(start))
	span.SetAttributes(
		attribute.Bool("implausible", v.Implausible),
		attribute.Bool("inconclusive", v.Inconclusive),
		attribute.Int("drop_step", v.DropStep),
		attribute.String("cross_check", v.CrossCheck.Status.String()),
	)

	if err := a.sink.EndScene(ctx, v); err != nil {
		return v, fmt.Errorf("scene %s: end scene: %w", meta.Name, err)
	}
	return v, nil
}

func (a *Agent) replay(ctx context.Context, ep *Episode, level string) (oracle.Response, error) {
	ctx, span := a.tracer.Start(ctx, "gravity.OracleReplay")
	defer span.End()

	resp, err := a.oracle.Replay(ctx, oracle.Request{
		Records:   ep.Records(),
		TargetID:  ep.TargetID(),
		SupportID: ep.SupportID(),
		Level:     level,
	})
	if err != nil {
		span.RecordError(err)
		if !errors.Is(err, oracle.ErrUnavailable) {
			err = fmt.Errorf("%w: %v", oracle.ErrUnavailable, err)
		}
		return oracle.Response{}, err
	}
	return resp, nil
}

func (a *Agent) crossCheck(ep *Episode, replayed bool, resp oracle.Response, replayErr error) oracle.CrossCheck {
	switch {
	case a.oracle == nil:
		return oracle.Skipped("no oracle configured")
	case !replayed:
		return oracle.Skipped("drop never confirmed")
	case replayErr != nil:
		monitoring.Logf("cross-check unavailable: %v", replayErr)
		return oracle.Unavailable(replayErr)
	}

	observed, ok := ep.LastTargetPosition()
	if !ok {
		return oracle.Skipped("target position never observed")
	}
	cc := oracle.Compare(resp, ep.TargetID(), observed, a.opts.DivergenceThreshold)
	switch cc.Status {
	case oracle.StatusDivergent:
		monitoring.Logf("Physics sim suggests VoE: final position off by %.3f (threshold %.3f)", cc.Distance, cc.Threshold)
	case oracle.StatusUnavailable:
		monitoring.Logf("cross-check unavailable: %s", cc.Reason)
	}
	return cc
}

func (a *Agent) logVerdict(scene string, v Verdict, elapsed time.Duration) {
	fields := monitoring.Fields{
		"scene":            scene,
		"choice":           v.Choice(),
		"drop_step":        v.DropStep,
		"predicted_stable": v.PredictedStable,
		"actual_stable":    v.ActualStable,
		"cross_check":      v.CrossCheck.Status.String(),
		"elapsed_s":        elapsed.Seconds(),
	}
	entry := monitoring.WithFields(fields)
	switch {
	case v.Inconclusive:
		entry.Warnf("inconclusive: %s", v.Reason)
	case v.Implausible:
		entry.Info("VoE")
	default:
		entry.Info("no VoE")
	}
	if v.Degenerate {
		entry.Warnf("%d degenerate face(s); verdict built from partial corners", len(v.Diagnostics))
	}
}

type discardSink struct{}

func (discardSink) MakeStepPrediction(context.Context, StepPrediction) error { return nil }
func (discardSink) EndScene(context.Context, Verdict) error                { return nil }
