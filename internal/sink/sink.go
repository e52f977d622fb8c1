package sink

import (
	"context"
	"errors"
	"sync"

	"github.com/MCS-OSU/mcs-eval3/internal/gravity"
	"github.com/MCS-OSU/mcs-eval3/internal/monitoring"
)

// Log writes predictions to the shared logger. Step predictions are logged
// at debug level.
type Log struct{}

// MakeStepPrediction logs p.
func (Log) MakeStepPrediction(_ context.Context, p gravity.StepPrediction) error {
	monitoring.WithFields(monitoring.Fields{
		"scene":      p.Scene,
		"step":       p.Step,
		"choice":     p.Choice,
		"confidence": p.Confidence,
	}).Debug("step prediction")
	return nil
}

// EndScene logs the final choice.
func (Log) EndScene(_ context.Context, v gravity.Verdict) error {
	monitoring.Logf("scene %s ended: %s (confidence %.2f)", v.Scene, v.Choice(), v.Confidence)
	return nil
}

// Multi fans predictions out to several sinks. Every sink is called even
// when an earlier one fails; the errors are joined.
type Multi []gravity.PredictionSink

// MakeStepPrediction forwards p to every sink.
func (m Multi) MakeStepPrediction(ctx context.Context, p gravity.StepPrediction) error {
	var errs []error
	for _, s := range m {
		if err := s.MakeStepPrediction(ctx, p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// EndScene forwards v to every sink.
func (m Multi) EndScene(ctx context.Context, v gravity.Verdict) error {
	var errs []error
	for _, s := range m {
		if err := s.EndScene(ctx, v); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorder keeps every prediction in memory. Safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	steps    []gravity.StepPrediction
	verdicts []gravity.Verdict
}

// MakeStepPrediction records p.
func (r *Recorder) MakeStepPrediction(_ context.Context, p gravity.StepPrediction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = append(r.steps, p)
	return nil
}

// EndScene records v.
func (r *Recorder) EndScene(_ context.Context, v gravity.Verdict) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.verdicts = append(r.verdicts, v)
	return nil
}

// Steps returns the recorded step predictions.
func (r *Recorder) Steps() []gravity.StepPrediction {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]gravity.StepPrediction(nil), r.steps...)
}

// Verdicts returns the recorded verdicts.
func (r *Recorder) Verdicts() []gravity.Verdict {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]gravity.Verdict(nil), r.verdicts...)
}
