// Package gravity is the trajectory-based stability violation detector.
//
// An Episode accumulates three series from the step records of one scene:
// the target trajectory, the latest support footprint, and the release
// signal history read from the pole. At the end of the scene Decide locates
// the drop step, predicts whether the target should rest on the support,
// checks whether it actually stayed where it was released, and reports a
// violation of expectation when the two disagree.
//
// Agent drives an Episode from an observation.StepSource, emits per-step
// predictions to a PredictionSink and runs the advisory oracle cross-check
// once the drop has been confirmed.
//
// Dependency rule: gravity may depend on geometry, observation, oracle,
// config and monitoring. Rendering and persistence live in report and
// storage and are injected.
package gravity
